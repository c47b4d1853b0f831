package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
)

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	shopRepo    repository.ShopRepository
}

// NewCartService 创建购物车服务
func NewCartService(uow *repository.UnitOfWork) *CartService {
	return &CartService{
		cartRepo:    uow.Carts,
		productRepo: uow.Products,
		shopRepo:    uow.Shops,
	}
}

// List 我的全部购物车
func (s *CartService) List(ctx context.Context, userID int64) ([]dto.CartInfo, error) {
	carts, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := make([]dto.CartInfo, 0, len(carts))
	for i := range carts {
		list = append(list, *toCartInfo(&carts[i]))
	}
	return list, nil
}

// Get 获取指定店铺的购物车，不存在时创建
func (s *CartService) Get(ctx context.Context, userID, shopID int64) (*dto.CartInfo, error) {
	if shopID <= 0 {
		return nil, ErrShopIDRequired
	}
	shop, err := s.shopRepo.GetByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userID, shopID)
	if err != nil {
		return nil, err
	}
	return toCartInfo(cart), nil
}

// AddItem 加入购物车，同一商品累加数量，价格取加入时的现价
func (s *CartService) AddItem(ctx context.Context, userID int64, req *dto.AddCartItemRequest) (*dto.CartInfo, error) {
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.IsPurchasable() {
		return nil, ErrProductUnavailable
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userID, product.ShopID)
	if err != nil {
		return nil, err
	}

	item, err := s.cartRepo.FindItem(ctx, cart.ID, product.ID)
	if err != nil {
		return nil, err
	}
	if item != nil {
		err = s.cartRepo.IncrementItem(ctx, item.ID, qty)
	} else {
		err = s.cartRepo.CreateItem(ctx, &model.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  qty,
			Price:     product.Price,
		})
	}
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.Touch(ctx, cart.ID, time.Now()); err != nil {
		return nil, err
	}

	cart, err = s.cartRepo.GetByUserShop(ctx, userID, product.ShopID)
	if err != nil {
		return nil, err
	}
	return toCartInfo(cart), nil
}

// UpdateItem 修改条目数量，只能修改自己的购物车
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*dto.CartItemInfo, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	item, err := s.cartRepo.GetItemForUser(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Touch(ctx, item.CartID, time.Now()); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	info := toCartItemInfo(item)
	return &info, nil
}

// RemoveItem 删除条目
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	item, err := s.cartRepo.GetItemForUser(ctx, itemID, userID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrCartItemNotFound
	}
	if err := s.cartRepo.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	return s.cartRepo.Touch(ctx, item.CartID, time.Now())
}

// Clear 清空店铺购物车
func (s *CartService) Clear(ctx context.Context, userID, shopID int64) error {
	if shopID <= 0 {
		return ErrShopIDRequired
	}
	cart, err := s.cartRepo.GetByUserShop(ctx, userID, shopID)
	if err != nil {
		return err
	}
	if cart == nil {
		return ErrCartNotFound
	}
	return s.cartRepo.ClearItems(ctx, cart.ID)
}

func toCartInfo(cart *model.Cart) *dto.CartInfo {
	info := &dto.CartInfo{
		ID:            cart.ID,
		UserID:        cart.UserID,
		ShopID:        cart.ShopID,
		Items:         make([]dto.CartItemInfo, 0, len(cart.Items)),
		TotalAmount:   cart.TotalAmount(),
		TotalPoints:   cart.TotalPoints(),
		TotalQuantity: cart.TotalQuantity(),
		CreatedAt:     cart.CreatedAt,
		UpdatedAt:     cart.UpdatedAt,
	}
	if cart.Shop != nil {
		info.ShopName = cart.Shop.Name
	}
	for i := range cart.Items {
		info.Items = append(info.Items, toCartItemInfo(&cart.Items[i]))
	}
	return info
}

func toCartItemInfo(item *model.CartItem) dto.CartItemInfo {
	info := dto.CartItemInfo{
		ID:             item.ID,
		ProductID:      item.ProductID,
		Price:          item.Price,
		Quantity:       item.Quantity,
		Subtotal:       item.Subtotal(),
		PointsSubtotal: item.PointsSubtotal(),
	}
	if item.Product != nil {
		info.ProductName = item.Product.Name
		info.ProductImage = item.Product.Image
		info.PointsPrice = item.Product.PointsPrice
	}
	return info
}

// cartAmount 现金合计，保留两位小数
func cartAmount(cart *model.Cart) decimal.Decimal {
	return cart.TotalAmount().Round(2)
}
