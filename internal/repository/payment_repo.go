package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"jiuba_platform/internal/model"
)

// PaymentRepository 支付仓库接口
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	GetByOrderID(ctx context.Context, orderID int64) (*model.Payment, error)
	GetByOutTradeNo(ctx context.Context, outTradeNo string) (*model.Payment, error)
	Update(ctx context.Context, payment *model.Payment) error
	// UpdateStatus 仅当当前状态为 from 时更新，返回是否成功
	UpdateStatus(ctx context.Context, id int64, from model.PaymentStatus, fields map[string]interface{}) (bool, error)
	ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]model.Payment, int64, error)
	ListPendingBefore(ctx context.Context, method model.PayMethod, before time.Time, limit int) ([]model.Payment, error)
}

type paymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Omit("Order").Create(payment).Error
}

func (r *paymentRepo) first(ctx context.Context, query string, args ...interface{}) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Where(query, args...).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &payment, err
}

func (r *paymentRepo) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *paymentRepo) GetByOrderID(ctx context.Context, orderID int64) (*model.Payment, error) {
	return r.first(ctx, "order_id = ?", orderID)
}

func (r *paymentRepo) GetByOutTradeNo(ctx context.Context, outTradeNo string) (*model.Payment, error) {
	return r.first(ctx, "out_trade_no = ?", outTradeNo)
}

func (r *paymentRepo) Update(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Omit("Order").Save(payment).Error
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, id int64, from model.PaymentStatus, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	return res.RowsAffected == 1, res.Error
}

func (r *paymentRepo) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]model.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Payment{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Payment
	err := paginate(query.Order("created_at DESC, id DESC"), page, pageSize).Find(&list).Error
	return list, total, err
}

func (r *paymentRepo) ListPendingBefore(ctx context.Context, method model.PayMethod, before time.Time, limit int) ([]model.Payment, error) {
	var list []model.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND method = ? AND created_at < ?", model.PaymentPending, method, before).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
