package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"jiuba_platform/internal/model"
)

// ShopRepository 店铺仓库接口
type ShopRepository interface {
	Create(ctx context.Context, shop *model.Shop) error
	GetByID(ctx context.Context, id int64) (*model.Shop, error)
	Update(ctx context.Context, shop *model.Shop) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ShopFilter) ([]model.Shop, int64, error)
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)
	// CountAvailableProducts 各店铺可售商品数
	CountAvailableProducts(ctx context.Context, shopIDs []int64) (map[int64]int64, error)
}

// ShopFilter 店铺筛选条件
type ShopFilter struct {
	ActiveOnly bool
	Search     string // name / address / phone
	Ordering   string
	Page       int
	PageSize   int
}

var shopOrdering = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type shopRepo struct {
	db *gorm.DB
}

func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepo{db: db}
}

func (r *shopRepo) Create(ctx context.Context, shop *model.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

func (r *shopRepo) GetByID(ctx context.Context, id int64) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).First(&shop, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &shop, err
}

func (r *shopRepo) Update(ctx context.Context, shop *model.Shop) error {
	return r.db.WithContext(ctx).Save(shop).Error
}

func (r *shopRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Shop{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 软删除店铺，同时下线其商品、活动、公告，解绑员工并清空购物车
func (r *shopRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := tx.Model(&model.Cart{}).Select("id").Where("shop_id = ?", id)
		if err := tx.Where("cart_id IN (?)", carts).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("shop_id = ?", id).Delete(&model.Cart{}).Error; err != nil {
			return err
		}

		for _, owned := range []interface{}{&model.Product{}, &model.Activity{}, &model.Notice{}} {
			if err := tx.Where("shop_id = ?", id).Delete(owned).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&model.User{}).Where("shop_id = ?", id).Update("shop_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Shop{}, id).Error
	})
}

func (r *shopRepo) List(ctx context.Context, filter ShopFilter) ([]model.Shop, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Shop{})

	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		kw := likePattern(filter.Search)
		query = query.Where("name LIKE ? OR address LIKE ? OR phone LIKE ?", kw, kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var shops []model.Shop
	err := paginate(query.Order(orderBy(filter.Ordering, shopOrdering, "created_at DESC")), filter.Page, filter.PageSize).
		Find(&shops).Error
	return shops, total, err
}

// ExistsByName 名称唯一校验，包含已软删除的店铺
func (r *shopRepo) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Unscoped().Model(&model.Shop{}).Where("name = ?", name)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *shopRepo) CountAvailableProducts(ctx context.Context, shopIDs []int64) (map[int64]int64, error) {
	result := make(map[int64]int64, len(shopIDs))
	if len(shopIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		ShopID int64
		Cnt    int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("shop_id, COUNT(*) AS cnt").
		Where("shop_id IN ? AND is_available = ?", shopIDs, true).
		Group("shop_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ShopID] = row.Cnt
	}
	return result, nil
}
