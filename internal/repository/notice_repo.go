package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"jiuba_platform/internal/model"
)

// NoticeRepository 公告仓库接口
type NoticeRepository interface {
	Create(ctx context.Context, notice *model.Notice) error
	GetByID(ctx context.Context, id int64) (*model.Notice, error)
	Update(ctx context.Context, notice *model.Notice) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter NoticeFilter) ([]model.Notice, int64, error)
}

// NoticeFilter 公告筛选条件
type NoticeFilter struct {
	ShopID     *int64
	ActiveOnly bool
	Page       int
	PageSize   int
}

type noticeRepo struct {
	db *gorm.DB
}

func NewNoticeRepository(db *gorm.DB) NoticeRepository {
	return &noticeRepo{db: db}
}

func (r *noticeRepo) Create(ctx context.Context, notice *model.Notice) error {
	return r.db.WithContext(ctx).Omit("Shop").Create(notice).Error
}

func (r *noticeRepo) GetByID(ctx context.Context, id int64) (*model.Notice, error) {
	var notice model.Notice
	err := r.db.WithContext(ctx).Preload("Shop").First(&notice, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &notice, err
}

func (r *noticeRepo) Update(ctx context.Context, notice *model.Notice) error {
	return r.db.WithContext(ctx).Omit("Shop").Save(notice).Error
}

func (r *noticeRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Notice{}, id).Error
}

func (r *noticeRepo) List(ctx context.Context, filter NoticeFilter) ([]model.Notice, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Notice{})
	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Notice
	err := paginate(query.Order("created_at DESC, id DESC"), filter.Page, filter.PageSize).
		Preload("Shop").
		Find(&list).Error
	return list, total, err
}
