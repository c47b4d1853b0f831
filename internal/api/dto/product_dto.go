package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ==================== 分类 ====================

// CategoryInfo 分类
type CategoryInfo struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryRequest 创建/更新分类
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// ==================== 商品 ====================

// ProductListRequest 商品列表筛选
type ProductListRequest struct {
	All         bool     `form:"all"` // 员工查看全部状态
	MinPrice    *float64 `form:"min_price"`
	MaxPrice    *float64 `form:"max_price"`
	Category    *int64   `form:"category"`
	Shop        *int64   `form:"shop"`
	InStock     *bool    `form:"in_stock"`
	Status      string   `form:"status" binding:"omitempty,oneof=draft published out_of_stock discontinued"`
	IsAvailable *bool    `form:"is_available"`
	Name        string   `form:"name"`
	Description string   `form:"description"`
	Search      string   `form:"search"`
	Ordering    string   `form:"ordering"` // price | created_at | sort_order
	PageQuery
}

// ProductInfo 商品信息
type ProductInfo struct {
	ID                  int64               `json:"id"`
	Name                string              `json:"name"`
	Description         string              `json:"description"`
	Price               decimal.Decimal     `json:"price"`
	OriginalPrice       decimal.NullDecimal `json:"original_price"`
	PointsPrice         int64               `json:"points_price"`
	OriginalPointsPrice *int64              `json:"original_points_price"`
	Image               string              `json:"image"`
	CategoryID          *int64              `json:"category_id"`
	CategoryName        string              `json:"category_name"`
	ShopID              int64               `json:"shop_id"`
	ShopName            string              `json:"shop_name"`
	IsAvailable         bool                `json:"is_available"`
	Status              string              `json:"status"`
	StockQuantity       int                 `json:"stock_quantity"`
	SortOrder           int                 `json:"sort_order"`
	IsOnSale            bool                `json:"is_on_sale"`
	IsPointsOnSale      bool                `json:"is_points_on_sale"`
	CanBuyWithPoints    bool                `json:"can_buy_with_points"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// CreateProductRequest 创建商品，商家的 shop_id 固定为所属店铺
type CreateProductRequest struct {
	Name                string           `json:"name" binding:"required,max=200"`
	Description         string           `json:"description"`
	Price               decimal.Decimal  `json:"price"`
	OriginalPrice       *decimal.Decimal `json:"original_price"`
	PointsPrice         int64            `json:"points_price" binding:"min=0"`
	OriginalPointsPrice *int64           `json:"original_points_price" binding:"omitempty,min=0"`
	CategoryID          *int64           `json:"category_id"`
	ShopID              int64            `json:"shop_id"`
	IsAvailable         *bool            `json:"is_available"`
	Status              string           `json:"status" binding:"omitempty,oneof=draft published out_of_stock discontinued"`
	StockQuantity       int              `json:"stock_quantity" binding:"min=0"`
	SortOrder           int              `json:"sort_order"`
}

// UpdateProductRequest 更新商品
type UpdateProductRequest struct {
	Name                *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description         *string          `json:"description"`
	Price               *decimal.Decimal `json:"price"`
	OriginalPrice       *decimal.Decimal `json:"original_price"`
	ClearOriginalPrice  bool             `json:"clear_original_price"`
	PointsPrice         *int64           `json:"points_price" binding:"omitempty,min=0"`
	OriginalPointsPrice *int64           `json:"original_points_price" binding:"omitempty,min=0"`
	CategoryID          *int64           `json:"category_id"`
	IsAvailable         *bool            `json:"is_available"`
	Status              *string          `json:"status" binding:"omitempty,oneof=draft published out_of_stock discontinued"`
	StockQuantity       *int             `json:"stock_quantity" binding:"omitempty,min=0"`
	SortOrder           *int             `json:"sort_order"`
}
