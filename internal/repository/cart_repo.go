package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"jiuba_platform/internal/model"
)

// CartRepository 购物车仓库接口
type CartRepository interface {
	// GetByUserShop 获取购物车及条目，不存在返回 nil
	GetByUserShop(ctx context.Context, userID, shopID int64) (*model.Cart, error)
	GetOrCreate(ctx context.Context, userID, shopID int64) (*model.Cart, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Cart, error)
	Touch(ctx context.Context, cartID int64, at time.Time) error
	// DeleteIdleBefore 删除长期未更新的购物车
	DeleteIdleBefore(ctx context.Context, before time.Time) (int64, error)

	FindItem(ctx context.Context, cartID, productID int64) (*model.CartItem, error)
	// GetItemForUser 获取属于该用户的条目
	GetItemForUser(ctx context.Context, itemID, userID int64) (*model.CartItem, error)
	CreateItem(ctx context.Context, item *model.CartItem) error
	IncrementItem(ctx context.Context, itemID int64, qty int) error
	UpdateItemQuantity(ctx context.Context, itemID int64, qty int) error
	DeleteItem(ctx context.Context, itemID int64) error
	ClearItems(ctx context.Context, cartID int64) error
}

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepo{db: db}
}

func (r *cartRepo) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Shop").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id ASC") }).
		Preload("Items.Product")
}

func (r *cartRepo) GetByUserShop(ctx context.Context, userID, shopID int64) (*model.Cart, error) {
	var cart model.Cart
	err := r.withItems(ctx).
		Where("user_id = ? AND shop_id = ?", userID, shopID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &cart, err
}

func (r *cartRepo) GetOrCreate(ctx context.Context, userID, shopID int64) (*model.Cart, error) {
	cart := model.Cart{UserID: userID, ShopID: shopID}
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND shop_id = ?", userID, shopID).
		FirstOrCreate(&cart).Error; err != nil {
		return nil, err
	}
	return r.GetByUserShop(ctx, userID, shopID)
}

func (r *cartRepo) ListByUser(ctx context.Context, userID int64) ([]model.Cart, error) {
	var carts []model.Cart
	err := r.withItems(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&carts).Error
	return carts, err
}

func (r *cartRepo) Touch(ctx context.Context, cartID int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("updated_at", at).Error
}

func (r *cartRepo) DeleteIdleBefore(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		idle := tx.Model(&model.Cart{}).Select("id").Where("updated_at < ?", before)
		if err := tx.Where("cart_id IN (?)", idle).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("updated_at < ?", before).Delete(&model.Cart{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

func (r *cartRepo) FindItem(ctx context.Context, cartID, productID int64) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &item, err
}

func (r *cartRepo) GetItemForUser(ctx context.Context, itemID, userID int64) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		Preload("Product").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &item, err
}

func (r *cartRepo) CreateItem(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Omit("Product").Create(item).Error
}

func (r *cartRepo) IncrementItem(ctx context.Context, itemID int64, qty int) error {
	return r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", gorm.Expr("quantity + ?", qty)).Error
}

func (r *cartRepo) UpdateItemQuantity(ctx context.Context, itemID int64, qty int) error {
	return r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", qty).Error
}

func (r *cartRepo) DeleteItem(ctx context.Context, itemID int64) error {
	return r.db.WithContext(ctx).Delete(&model.CartItem{}, itemID).Error
}

func (r *cartRepo) ClearItems(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error
}
