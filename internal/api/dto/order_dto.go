package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ==================== 购物车 ====================

// CartInfo 购物车
type CartInfo struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	ShopID        int64           `json:"shop_id"`
	ShopName      string          `json:"shop_name"`
	Items         []CartItemInfo  `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalPoints   int64           `json:"total_points"`
	TotalQuantity int             `json:"total_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CartItemInfo 购物车条目
type CartItemInfo struct {
	ID             int64           `json:"id"`
	ProductID      int64           `json:"product_id"`
	ProductName    string          `json:"product_name"`
	ProductImage   string          `json:"product_image"`
	Price          decimal.Decimal `json:"price"`
	PointsPrice    int64           `json:"points_price"`
	Quantity       int             `json:"quantity"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	PointsSubtotal int64           `json:"points_subtotal"`
}

// AddCartItemRequest 加入购物车
type AddCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"omitempty,min=1"`
}

// UpdateCartItemRequest 修改数量
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// ==================== 订单 ====================

// CreateOrderRequest 从购物车下单
type CreateOrderRequest struct {
	ShopID        int64  `json:"shop_id" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=cash points"`
	CustomerNotes string `json:"customer_notes" binding:"max=500"`
}

// OrderListRequest 订单列表请求
type OrderListRequest struct {
	ShopID        *int64 `form:"shop_id"`
	PaymentMethod string `form:"payment_method" binding:"omitempty,oneof=cash points"`
	Status        string `form:"status" binding:"omitempty,oneof=pending paid completed cancelled refunded"`
	Search        string `form:"search"`
	Ordering      string `form:"ordering"` // created_at | total_amount | updated_at
	PageQuery
}

// OrderInfo 订单
type OrderInfo struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"order_number"`
	UserID        int64           `json:"user_id"`
	ShopID        int64           `json:"shop_id"`
	ShopName      string          `json:"shop_name"`
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalPoints   int64           `json:"total_points"`
	Status        string          `json:"status"`
	IsPaid        bool            `json:"is_paid"`
	PaidAt        *time.Time      `json:"paid_at"`
	TransactionID string          `json:"transaction_id"`
	CustomerNotes string          `json:"customer_notes"`
	Items         []OrderItemInfo `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItemInfo 订单明细
type OrderItemInfo struct {
	ID                 int64           `json:"id"`
	ProductID          *int64          `json:"product_id"`
	ProductName        string          `json:"product_name"`
	ProductPrice       decimal.Decimal `json:"product_price"`
	ProductPointsPrice int64           `json:"product_points_price"`
	Quantity           int             `json:"quantity"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	PointsSubtotal     int64           `json:"points_subtotal"`
}

// OrderStatusRequest 员工变更订单状态
type OrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=paid completed cancelled refunded"`
	Note   string `json:"note" binding:"max=500"`
}

// CancelOrderRequest 取消订单
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderStatsResponse 订单统计
type OrderStatsResponse struct {
	TotalOrders       int64           `json:"total_orders"`
	TotalCashAmount   decimal.Decimal `json:"total_cash_amount"`
	TotalPointsAmount int64           `json:"total_points_amount"`
	CashOrders        int64           `json:"cash_orders"`
	PointsOrders      int64           `json:"points_orders"`
}

// ==================== 支付 ====================

// CreatePaymentRequest 发起支付
type CreatePaymentRequest struct {
	OrderID int64  `json:"order_id" binding:"required"`
	Method  string `json:"method" binding:"required,oneof=wechat balance"`
}

// PaymentInfo 支付记录
type PaymentInfo struct {
	ID            int64             `json:"id"`
	OrderID       int64             `json:"order_id"`
	UserID        int64             `json:"user_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Method        string            `json:"method"`
	Status        string            `json:"status"`
	TransactionID string            `json:"transaction_id"`
	OutTradeNo    string            `json:"out_trade_no"`
	PayParams     map[string]string `json:"pay_params,omitempty"`
	FailReason    string            `json:"fail_reason,omitempty"`
	RefundReason  string            `json:"refund_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	PaidAt        *time.Time        `json:"paid_at"`
	RefundedAt    *time.Time        `json:"refunded_at"`
}

// WechatNotifyRequest 支付回调（JSON 形式）
type WechatNotifyRequest struct {
	OutTradeNo    string `json:"out_trade_no"`
	TransactionID string `json:"transaction_id"`
	ResultCode    string `json:"result_code"`
	Sign          string `json:"sign,omitempty"`
}

// RefundPaymentRequest 申请退款
type RefundPaymentRequest struct {
	Reason string `json:"reason" binding:"max=200"`
}

// PaymentQueryResponse 支付状态查询
type PaymentQueryResponse struct {
	PaymentID  int64  `json:"payment_id"`
	Status     string `json:"status"`
	TradeState string `json:"trade_state,omitempty"`
	OrderPaid  bool   `json:"order_paid"`
}
