package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
)

// ==================== CategoryService ====================

// CategoryService 分类服务
type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(uow *repository.UnitOfWork) *CategoryService {
	return &CategoryService{categoryRepo: uow.Categories}
}

// List 分类列表，非员工只看启用的
func (s *CategoryService) List(ctx context.Context, actor Actor) ([]dto.CategoryInfo, error) {
	categories, err := s.categoryRepo.List(ctx, !actor.IsStaff())
	if err != nil {
		return nil, err
	}
	list := make([]dto.CategoryInfo, 0, len(categories))
	for i := range categories {
		list = append(list, toCategoryInfo(&categories[i]))
	}
	return list, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*dto.CategoryInfo, error) {
	category, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	info := toCategoryInfo(category)
	return &info, nil
}

func (s *CategoryService) Create(ctx context.Context, req *dto.CategoryRequest) (*dto.CategoryInfo, error) {
	category := &model.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    true,
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	info := toCategoryInfo(category)
	return &info, nil
}

func (s *CategoryService) Update(ctx context.Context, id int64, req *dto.CategoryRequest) (*dto.CategoryInfo, error) {
	category, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	info := toCategoryInfo(category)
	return &info, nil
}

func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if _, err := s.mustGet(ctx, id); err != nil {
		return err
	}
	return s.categoryRepo.Delete(ctx, id)
}

func (s *CategoryService) mustGet(ctx context.Context, id int64) (*model.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

func toCategoryInfo(c *model.Category) dto.CategoryInfo {
	return dto.CategoryInfo{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
	}
}

// ==================== ProductService ====================

// ProductService 商品服务
type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	shopRepo     repository.ShopRepository
	storage      *StorageService
}

// NewProductService 创建商品服务
func NewProductService(uow *repository.UnitOfWork, storage *StorageService) *ProductService {
	return &ProductService{
		productRepo:  uow.Products,
		categoryRepo: uow.Categories,
		shopRepo:     uow.Shops,
		storage:      storage,
	}
}

// List 商品列表
// 默认只返回已上架且可售的商品；员工传 all=true 查看全部状态，商家限定所属店铺
func (s *ProductService) List(ctx context.Context, actor Actor, req *dto.ProductListRequest) (*dto.PageResult[dto.ProductInfo], error) {
	filter := repository.ProductFilter{
		PublishedOnly: true,
		ShopID:        req.Shop,
		CategoryID:    req.Category,
		InStock:       req.InStock,
		Status:        req.Status,
		IsAvailable:   req.IsAvailable,
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		Search:        strings.TrimSpace(req.Search),
		Ordering:      req.Ordering,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}
	if req.MinPrice != nil {
		v := decimal.NewFromFloat(*req.MinPrice)
		filter.MinPrice = &v
	}
	if req.MaxPrice != nil {
		v := decimal.NewFromFloat(*req.MaxPrice)
		filter.MaxPrice = &v
	}

	if req.All && actor.IsStaff() {
		filter.PublishedOnly = false
		scope, err := actor.ShopScope(req.Shop)
		if err != nil {
			return nil, err
		}
		filter.ShopID = scope
	}

	return s.list(ctx, filter, req.PageQuery)
}

// Published 已上架商品
func (s *ProductService) Published(ctx context.Context, q dto.PageQuery) (*dto.PageResult[dto.ProductInfo], error) {
	return s.list(ctx, repository.ProductFilter{
		PublishedOnly: true,
		Page:          q.Page,
		PageSize:      q.PageSize,
	}, q)
}

// ShopProducts 店铺在售商品
func (s *ProductService) ShopProducts(ctx context.Context, shopID int64, q dto.PageQuery) (*dto.PageResult[dto.ProductInfo], error) {
	shop, err := s.shopRepo.GetByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if shop == nil || !shop.IsActive {
		return nil, ErrShopNotFound
	}

	return s.list(ctx, repository.ProductFilter{
		PublishedOnly: true,
		ShopID:        &shopID,
		Page:          q.Page,
		PageSize:      q.PageSize,
	}, q)
}

func (s *ProductService) list(ctx context.Context, filter repository.ProductFilter, q dto.PageQuery) (*dto.PageResult[dto.ProductInfo], error) {
	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	list := make([]dto.ProductInfo, 0, len(products))
	for i := range products {
		list = append(list, *toProductInfo(&products[i]))
	}
	return dto.NewPageResult(list, total, q), nil
}

// Get 商品详情，未上架商品只有员工可见
func (s *ProductService) Get(ctx context.Context, actor Actor, id int64) (*dto.ProductInfo, error) {
	product, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsPurchasable() && !actor.IsStaff() {
		return nil, ErrProductNotFound
	}
	return toProductInfo(product), nil
}

// Create 创建商品
func (s *ProductService) Create(ctx context.Context, actor Actor, req *dto.CreateProductRequest) (*dto.ProductInfo, error) {
	shopID, err := actor.ResolveShopID(req.ShopID)
	if err != nil {
		return nil, err
	}
	if err := s.checkShop(ctx, shopID); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:                strings.TrimSpace(req.Name),
		Description:         req.Description,
		Price:               req.Price.Round(2),
		PointsPrice:         req.PointsPrice,
		OriginalPointsPrice: req.OriginalPointsPrice,
		CategoryID:          req.CategoryID,
		ShopID:              shopID,
		IsAvailable:         true,
		Status:              model.ProductPublished,
		StockQuantity:       req.StockQuantity,
		SortOrder:           req.SortOrder,
	}
	if req.OriginalPrice != nil {
		product.OriginalPrice = decimal.NewNullDecimal(req.OriginalPrice.Round(2))
	}
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}
	if req.Status != "" {
		product.Status = model.ProductStatus(req.Status)
	}
	if err := validateProductPrices(product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	log.Info().Int64("product_id", product.ID).Int64("shop_id", shopID).Msg("创建商品")
	return s.Get(ctx, actor, product.ID)
}

// Update 更新商品
func (s *ProductService) Update(ctx context.Context, actor Actor, id int64, req *dto.UpdateProductRequest) (*dto.ProductInfo, error) {
	product, err := s.mustManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = req.Price.Round(2)
	}
	if req.ClearOriginalPrice {
		product.OriginalPrice = decimal.NullDecimal{}
	} else if req.OriginalPrice != nil {
		product.OriginalPrice = decimal.NewNullDecimal(req.OriginalPrice.Round(2))
	}
	if req.PointsPrice != nil {
		product.PointsPrice = *req.PointsPrice
	}
	if req.OriginalPointsPrice != nil {
		product.OriginalPointsPrice = req.OriginalPointsPrice
	}
	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = req.CategoryID
		product.Category = nil
	}
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}
	if req.Status != nil {
		product.Status = model.ProductStatus(*req.Status)
	}
	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}
	if req.SortOrder != nil {
		product.SortOrder = *req.SortOrder
	}
	if err := validateProductPrices(product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Delete 删除商品
func (s *ProductService) Delete(ctx context.Context, actor Actor, id int64) error {
	if _, err := s.mustManage(ctx, actor, id); err != nil {
		return err
	}
	return s.productRepo.Delete(ctx, id)
}

// ToggleStatus 上架 <-> 草稿
func (s *ProductService) ToggleStatus(ctx context.Context, actor Actor, id int64) (*dto.ProductInfo, error) {
	product, err := s.mustManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	next := model.ProductPublished
	if product.Status == model.ProductPublished {
		next = model.ProductDraft
	}
	if err := s.productRepo.UpdateFields(ctx, id, map[string]interface{}{"status": next}); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// UploadImage 上传商品图片
func (s *ProductService) UploadImage(ctx context.Context, actor Actor, id int64, data []byte) (*dto.UploadResponse, error) {
	product, err := s.mustManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.UploadImage(ctx, data, "products")
	if err != nil {
		return nil, err
	}
	if err := s.productRepo.UpdateFields(ctx, id, map[string]interface{}{"image": url}); err != nil {
		return nil, err
	}
	if product.Image != "" {
		if err := s.storage.Delete(ctx, product.Image); err != nil {
			log.Warn().Err(err).Str("url", product.Image).Msg("删除旧商品图失败")
		}
	}
	return &dto.UploadResponse{URL: url}, nil
}

// ==================== 内部方法 ====================

func (s *ProductService) mustGet(ctx context.Context, id int64) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// mustManage 获取商品并校验店铺权限
func (s *ProductService) mustManage(ctx context.Context, actor Actor, id int64) (*model.Product, error) {
	product, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsMerchant() && actor.ShopID == nil {
		return nil, ErrMerchantNoShop
	}
	if !actor.CanManageShop(product.ShopID) {
		return nil, ErrForbidden
	}
	return product, nil
}

func (s *ProductService) checkShop(ctx context.Context, shopID int64) error {
	shop, err := s.shopRepo.GetByID(ctx, shopID)
	if err != nil {
		return err
	}
	if shop == nil {
		return ErrShopNotFound
	}
	return nil
}

func (s *ProductService) checkCategory(ctx context.Context, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	category, err := s.categoryRepo.GetByID(ctx, *categoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	return nil
}

// validateProductPrices 现价大于0，原价（若有）高于现价
func validateProductPrices(p *model.Product) error {
	if !p.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if p.OriginalPrice.Valid && !p.OriginalPrice.Decimal.GreaterThan(p.Price) {
		return ErrInvalidOriginalPrice
	}
	if p.PointsPrice < 0 {
		return ErrInvalidPointsPrice
	}
	if p.OriginalPointsPrice != nil && *p.OriginalPointsPrice > 0 && *p.OriginalPointsPrice <= p.PointsPrice {
		return ErrInvalidPointsPrice
	}
	return nil
}

func toProductInfo(p *model.Product) *dto.ProductInfo {
	info := &dto.ProductInfo{
		ID:                  p.ID,
		Name:                p.Name,
		Description:         p.Description,
		Price:               p.Price,
		OriginalPrice:       p.OriginalPrice,
		PointsPrice:         p.PointsPrice,
		OriginalPointsPrice: p.OriginalPointsPrice,
		Image:               p.Image,
		CategoryID:          p.CategoryID,
		ShopID:              p.ShopID,
		IsAvailable:         p.IsAvailable,
		Status:              string(p.Status),
		StockQuantity:       p.StockQuantity,
		SortOrder:           p.SortOrder,
		IsOnSale:            p.IsOnSale(),
		IsPointsOnSale:      p.IsPointsOnSale(),
		CanBuyWithPoints:    p.CanBuyWithPoints(),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if p.Category != nil {
		info.CategoryName = p.Category.Name
	}
	if p.Shop != nil {
		info.ShopName = p.Shop.Name
	}
	return info
}
