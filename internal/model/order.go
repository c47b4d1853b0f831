package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentMethod 订单结算币种
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentPoints PaymentMethod = "points"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// orderTransitions 允许的状态流转
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCancelled},
	OrderPaid:    {OrderCompleted, OrderRefunded},
}

// CanTransitionTo 校验状态流转
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Order 订单
type Order struct {
	BaseModel
	OrderNumber string `gorm:"size:32;uniqueIndex;not null" json:"order_number"`

	UserID int64 `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ShopID int64 `gorm:"not null;index" json:"shop_id"`
	Shop   *Shop `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	PaymentMethod PaymentMethod   `gorm:"size:10;not null;index" json:"payment_method"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`
	TotalPoints   int64           `gorm:"not null;default:0" json:"total_points"`

	Status        OrderStatus `gorm:"size:20;not null;index" json:"status"`
	IsPaid        bool        `gorm:"not null" json:"is_paid"`
	PaidAt        *time.Time  `json:"paid_at"`
	TransactionID string      `gorm:"size:64" json:"transaction_id"`
	CustomerNotes string      `gorm:"type:text" json:"customer_notes"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem 订单明细，商品信息为下单时快照
type OrderItem struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID            int64           `gorm:"not null;index" json:"order_id"`
	ProductID          *int64          `gorm:"index" json:"product_id"`
	Product            *Product        `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	ProductName        string          `gorm:"size:200;not null" json:"product_name"`
	ProductPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"product_price"`
	ProductPointsPrice int64           `gorm:"not null;default:0" json:"product_points_price"`
	Quantity           int             `gorm:"not null" json:"quantity"`
	CreatedAt          time.Time       `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal 现金小计
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PointsSubtotal 积分小计
func (i *OrderItem) PointsSubtotal() int64 {
	return i.ProductPointsPrice * int64(i.Quantity)
}

// OrderStatusLog 订单状态变更记录
type OrderStatusLog struct {
	ID         int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64             `gorm:"not null;index" json:"order_id"`
	FromStatus OrderStatus       `gorm:"size:20" json:"from_status"`
	ToStatus   OrderStatus       `gorm:"size:20;not null" json:"to_status"`
	OperatorID int64             `json:"operator_id"`
	Note       string            `gorm:"size:500" json:"note"`
	Extra      datatypes.JSONMap `json:"extra"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (OrderStatusLog) TableName() string {
	return "order_status_logs"
}
