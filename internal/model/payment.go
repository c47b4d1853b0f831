package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PayMethod 支付渠道
type PayMethod string

const (
	PayWechat  PayMethod = "wechat"
	PayBalance PayMethod = "balance"
)

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment 支付记录，与订单一对一
type Payment struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64  `gorm:"not null;uniqueIndex" json:"order_id"`
	Order   *Order `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID  int64  `gorm:"not null;index" json:"user_id"`

	Amount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method PayMethod       `gorm:"size:20;not null" json:"method"`
	Status PaymentStatus   `gorm:"size:20;not null;index" json:"status"`

	TransactionID string `gorm:"size:64" json:"transaction_id"`
	OutTradeNo    string `gorm:"size:64;uniqueIndex;not null" json:"out_trade_no"`

	PayParams     datatypes.JSONMap `json:"pay_params,omitempty"`
	NotifyPayload datatypes.JSONMap `json:"-"`
	FailReason    string            `gorm:"size:200" json:"fail_reason,omitempty"`
	RefundReason  string            `gorm:"size:200" json:"refund_reason,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	PaidAt     *time.Time `json:"paid_at"`
	RefundedAt *time.Time `json:"refunded_at"`
}

func (Payment) TableName() string {
	return "payments"
}
