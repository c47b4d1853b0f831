package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"jiuba_platform/internal/model"
)

// OrderRepository 订单仓库接口
type OrderRepository interface {
	// Create 创建订单及明细
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	Stats(ctx context.Context, filter OrderFilter) (*OrderStats, error)
	CountSince(ctx context.Context, shopID *int64, since time.Time) (int64, error)

	// UpdateStatus 仅当当前状态为 from 时更新，返回是否成功
	UpdateStatus(ctx context.Context, id int64, from, to model.OrderStatus, fields map[string]interface{}) (bool, error)
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]model.Order, error)

	CreateLog(ctx context.Context, log *model.OrderStatusLog) error
	ListLogs(ctx context.Context, orderID int64) ([]model.OrderStatusLog, error)
}

// OrderFilter 订单筛选条件
type OrderFilter struct {
	UserID        *int64
	ShopID        *int64
	PaymentMethod string
	Status        string
	Search        string // order_number / customer_notes
	Ordering      string
	Page          int
	PageSize      int
}

// OrderStats 订单统计
type OrderStats struct {
	TotalOrders       int64           `json:"total_orders"`
	TotalCashAmount   decimal.Decimal `json:"total_cash_amount"`
	TotalPointsAmount int64           `json:"total_points_amount"`
	CashOrders        int64           `json:"cash_orders"`
	PointsOrders      int64           `json:"points_orders"`
}

var orderOrdering = map[string]string{
	"created_at":   "created_at",
	"total_amount": "total_amount",
	"updated_at":   "updated_at",
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Omit("User", "Shop").Create(order).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Shop").
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepo) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepo) applyFilter(query *gorm.DB, filter OrderFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		kw := likePattern(filter.Search)
		query = query.Where("order_number LIKE ? OR customer_notes LIKE ?", kw, kw)
	}
	return query
}

func (r *orderRepo) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&model.Order{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []model.Order
	err := paginate(query.Order(orderBy(filter.Ordering, orderOrdering, "created_at DESC")), filter.Page, filter.PageSize).
		Preload("Items").
		Preload("Shop").
		Find(&orders).Error
	return orders, total, err
}

// Stats 只统计已支付/已完成订单，按支付方式分组汇总
func (r *orderRepo) Stats(ctx context.Context, filter OrderFilter) (*OrderStats, error) {
	var rows []struct {
		PaymentMethod string
		Cnt           int64
		CashAmount    decimal.NullDecimal
		PointsAmount  int64
	}
	err := r.applyFilter(r.db.WithContext(ctx).Model(&model.Order{}), filter).
		Where("status IN ?", []model.OrderStatus{model.OrderPaid, model.OrderCompleted}).
		Select("payment_method, COUNT(*) AS cnt, SUM(total_amount) AS cash_amount, " +
			"COALESCE(SUM(total_points), 0) AS points_amount").
		Group("payment_method").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &OrderStats{TotalCashAmount: decimal.Zero}
	for _, row := range rows {
		stats.TotalOrders += row.Cnt
		switch model.PaymentMethod(row.PaymentMethod) {
		case model.PaymentCash:
			stats.CashOrders = row.Cnt
			if row.CashAmount.Valid {
				stats.TotalCashAmount = row.CashAmount.Decimal.Round(2)
			}
		case model.PaymentPoints:
			stats.PointsOrders = row.Cnt
			stats.TotalPointsAmount = row.PointsAmount
		}
	}
	return stats, nil
}

func (r *orderRepo) CountSince(ctx context.Context, shopID *int64, since time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Order{}).Where("created_at >= ?", since)
	if shopID != nil {
		query = query.Where("shop_id = ?", *shopID)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id int64, from, to model.OrderStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *orderRepo) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND created_at < ?", model.OrderPending, before).
		Order("id ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) CreateLog(ctx context.Context, log *model.OrderStatusLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *orderRepo) ListLogs(ctx context.Context, orderID int64) ([]model.OrderStatusLog, error) {
	var logs []model.OrderStatusLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}
