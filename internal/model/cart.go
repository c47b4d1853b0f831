package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart 购物车，每个用户在每个店铺一个
type Cart struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64      `gorm:"not null;uniqueIndex:idx_cart_user_shop" json:"user_id"`
	ShopID    int64      `gorm:"not null;uniqueIndex:idx_cart_user_shop" json:"shop_id"`
	Shop      *Shop      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `gorm:"index" json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

// TotalAmount 现金合计
func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Items {
		total = total.Add(c.Items[i].Subtotal())
	}
	return total
}

// TotalPoints 积分合计
func (c *Cart) TotalPoints() int64 {
	var total int64
	for i := range c.Items {
		total += c.Items[i].PointsSubtotal()
	}
	return total
}

// TotalQuantity 商品总件数
func (c *Cart) TotalQuantity() int {
	var total int
	for i := range c.Items {
		total += c.Items[i].Quantity
	}
	return total
}

// CartItem 购物车条目，价格为加入时快照
type CartItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64           `gorm:"not null;uniqueIndex:idx_cart_item_product" json:"cart_id"`
	ProductID int64           `gorm:"not null;uniqueIndex:idx_cart_item_product" json:"product_id"`
	Product   *Product        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// Subtotal 现金小计
func (i *CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PointsSubtotal 积分小计，需预加载 Product
func (i *CartItem) PointsSubtotal() int64 {
	if i.Product == nil {
		return 0
	}
	return i.Product.PointsPrice * int64(i.Quantity)
}
