package model

import (
	"github.com/shopspring/decimal"
)

// ProductStatus 商品状态
type ProductStatus string

const (
	ProductDraft        ProductStatus = "draft"
	ProductPublished    ProductStatus = "published"
	ProductOutOfStock   ProductStatus = "out_of_stock"
	ProductDiscontinued ProductStatus = "discontinued"
)

// Valid 是否为合法状态
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductDraft, ProductPublished, ProductOutOfStock, ProductDiscontinued:
		return true
	}
	return false
}

// Category 商品分类
type Category struct {
	BaseModel
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `gorm:"not null" json:"is_active"`
}

func (Category) TableName() string {
	return "categories"
}

// Product 商品
type Product struct {
	BaseModel
	Name        string `gorm:"size:200;not null;index" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	// 现金价格
	Price         decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"price"`
	OriginalPrice decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"original_price"`

	// 积分价格，0 表示不支持积分购买
	PointsPrice         int64  `gorm:"not null;default:0" json:"points_price"`
	OriginalPointsPrice *int64 `json:"original_points_price"`

	Image string `gorm:"size:500" json:"image"`

	CategoryID *int64    `gorm:"index" json:"category_id"`
	Category   *Category `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	ShopID     int64     `gorm:"not null;index" json:"shop_id"`
	Shop       *Shop     `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	IsAvailable   bool          `gorm:"not null;index" json:"is_available"`
	Status        ProductStatus `gorm:"size:20;not null;index" json:"status"`
	StockQuantity int           `gorm:"not null;default:0" json:"stock_quantity"`
	SortOrder     int           `gorm:"not null;default:0" json:"sort_order"`
}

func (Product) TableName() string {
	return "products"
}

// IsOnSale 原价高于现价
func (p *Product) IsOnSale() bool {
	return p.OriginalPrice.Valid && p.OriginalPrice.Decimal.GreaterThan(p.Price)
}

// IsPointsOnSale 积分原价高于积分价
func (p *Product) IsPointsOnSale() bool {
	return p.OriginalPointsPrice != nil && p.PointsPrice > 0 && *p.OriginalPointsPrice > p.PointsPrice
}

// CanBuyWithPoints 是否支持积分购买
func (p *Product) CanBuyWithPoints() bool {
	return p.PointsPrice > 0
}

// IsPurchasable 已上架且可售
func (p *Product) IsPurchasable() bool {
	return p.IsAvailable && p.Status == ProductPublished
}
