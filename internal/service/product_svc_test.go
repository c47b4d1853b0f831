package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
)

func TestCategoryService_CRUD(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewCategoryService(uow)
	ctx := context.Background()

	drinks, err := svc.Create(ctx, &dto.CategoryRequest{Name: "酒水"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &dto.CategoryRequest{Name: "停售", IsActive: boolPtr(false)})
	require.NoError(t, err)

	public, err := svc.List(ctx, Anonymous)
	require.NoError(t, err)
	assert.Len(t, public, 1)

	staff, err := svc.List(ctx, Actor{UserID: 1, Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, staff, 2)

	shop := seedShop(t, uow, "分类店", true)
	product := seedProduct(t, uow, shop.ID, "精酿", "30.00", 0, 5)
	require.NoError(t, uow.Products.UpdateFields(ctx, product.ID, map[string]interface{}{"category_id": drinks.ID}))

	updated, err := svc.Update(ctx, drinks.ID, &dto.CategoryRequest{Name: "啤酒", Description: "各类啤酒"})
	require.NoError(t, err)
	assert.Equal(t, "啤酒", updated.Name)

	// 删除分类后商品保留，分类置空
	require.NoError(t, svc.Delete(ctx, drinks.ID))
	reloaded, err := uow.Products.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.CategoryID)

	_, err = svc.Get(ctx, drinks.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestProductService_CreateValidation(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewProductService(uow, newTestStorage(t))
	ctx := context.Background()

	shop := seedShop(t, uow, "商品店", true)
	merchant := seedUser(t, uow, "owner", model.RoleMerchant, &shop.ID)
	actor := merchantOf(merchant)

	original := decimal.RequireFromString("25")
	info, err := svc.Create(ctx, actor, &dto.CreateProductRequest{
		Name:          "鸡尾酒",
		Price:         decimal.RequireFromString("19.999"),
		OriginalPrice: &original,
		PointsPrice:   200,
		StockQuantity: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, shop.ID, info.ShopID)
	assert.Equal(t, "商品店", info.ShopName)
	assert.True(t, info.Price.Equal(decimal.RequireFromString("20")))
	assert.True(t, info.IsOnSale)
	assert.True(t, info.CanBuyWithPoints)
	assert.Equal(t, "published", info.Status)

	_, err = svc.Create(ctx, actor, &dto.CreateProductRequest{Name: "免费", Price: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	low := decimal.RequireFromString("5")
	_, err = svc.Create(ctx, actor, &dto.CreateProductRequest{Name: "原价过低", Price: decimal.NewFromInt(10), OriginalPrice: &low})
	assert.ErrorIs(t, err, ErrInvalidOriginalPrice)

	_, err = svc.Create(ctx, actor, &dto.CreateProductRequest{
		Name:                "积分原价过低",
		Price:               decimal.NewFromInt(10),
		PointsPrice:         100,
		OriginalPointsPrice: int64Ptr(50),
	})
	assert.ErrorIs(t, err, ErrInvalidPointsPrice)

	// 商家不能为其他店铺创建商品
	other := seedShop(t, uow, "隔壁店", true)
	_, err = svc.Create(ctx, actor, &dto.CreateProductRequest{Name: "越权", Price: decimal.NewFromInt(1), ShopID: other.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, actor, &dto.CreateProductRequest{Name: "无分类", Price: decimal.NewFromInt(1), CategoryID: int64Ptr(404)})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	noShop := Actor{UserID: 99, Role: model.RoleMerchant}
	_, err = svc.Create(ctx, noShop, &dto.CreateProductRequest{Name: "无店铺", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrMerchantNoShop)
}

func TestProductService_ListFilters(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewProductService(uow, newTestStorage(t))
	ctx := context.Background()

	shop := seedShop(t, uow, "筛选店", true)
	other := seedShop(t, uow, "另一家", true)
	seedProduct(t, uow, shop.ID, "黑啤", "15.00", 0, 0)
	seedProduct(t, uow, shop.ID, "白啤", "25.00", 100, 3)
	draft := seedProduct(t, uow, shop.ID, "草稿酒", "30.00", 0, 3)
	require.NoError(t, uow.Products.UpdateFields(ctx, draft.ID, map[string]interface{}{"status": model.ProductDraft}))
	seedProduct(t, uow, other.ID, "外店啤酒", "18.00", 0, 3)

	page, err := svc.List(ctx, Anonymous, &dto.ProductListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	minPrice := 16.0
	page, err = svc.List(ctx, Anonymous, &dto.ProductListRequest{MinPrice: &minPrice, Shop: &shop.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "白啤", page.List[0].Name)

	page, err = svc.List(ctx, Anonymous, &dto.ProductListRequest{InStock: boolPtr(false)})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "黑啤", page.List[0].Name)

	page, err = svc.List(ctx, Anonymous, &dto.ProductListRequest{Search: "啤", Ordering: "-price"})
	require.NoError(t, err)
	require.Equal(t, int64(3), page.Total)
	assert.Equal(t, "白啤", page.List[0].Name)

	// 顾客传 all 无效
	page, err = svc.List(ctx, Anonymous, &dto.ProductListRequest{All: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	merchant := seedUser(t, uow, "filter_owner", model.RoleMerchant, &shop.ID)
	page, err = svc.List(ctx, merchantOf(merchant), &dto.ProductListRequest{All: true, Shop: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total, "商家只能看到所属店铺")

	_, err = svc.ShopProducts(ctx, 404, dto.PageQuery{})
	assert.ErrorIs(t, err, ErrShopNotFound)
	shopPage, err := svc.ShopProducts(ctx, other.ID, dto.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), shopPage.Total)
}

func TestProductService_ManageAndVisibility(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewProductService(uow, newTestStorage(t))
	ctx := context.Background()

	shop := seedShop(t, uow, "管理店", true)
	other := seedShop(t, uow, "别家店", true)
	owner := merchantOf(seedUser(t, uow, "m1", model.RoleMerchant, &shop.ID))
	stranger := merchantOf(seedUser(t, uow, "m2", model.RoleMerchant, &other.ID))
	customer := customerOf(seedUser(t, uow, "c1", model.RoleCustomer, nil))
	product := seedProduct(t, uow, shop.ID, "特调", "40.00", 0, 5)

	_, err := svc.Update(ctx, stranger, product.ID, &dto.UpdateProductRequest{Name: strPtr("偷改")})
	assert.ErrorIs(t, err, ErrForbidden)

	info, err := svc.ToggleStatus(ctx, owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", info.Status)

	_, err = svc.Get(ctx, customer, product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = svc.Get(ctx, owner, product.ID)
	assert.NoError(t, err)

	price := decimal.RequireFromString("38.5")
	info, err = svc.Update(ctx, owner, product.ID, &dto.UpdateProductRequest{
		Price:         &price,
		Status:        strPtr("published"),
		StockQuantity: intPtr(20),
	})
	require.NoError(t, err)
	assert.True(t, info.Price.Equal(price))
	assert.Equal(t, 20, info.StockQuantity)

	_, err = svc.Get(ctx, customer, product.ID)
	assert.NoError(t, err)

	upload, err := svc.UploadImage(ctx, owner, product.ID, pngHeader)
	require.NoError(t, err)
	assert.Contains(t, upload.URL, "/products/")

	admin := Actor{UserID: 1, Role: model.RoleAdmin}
	require.NoError(t, svc.Delete(ctx, admin, product.ID))
	_, err = svc.Get(ctx, admin, product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
