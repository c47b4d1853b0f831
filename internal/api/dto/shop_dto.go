package dto

import "time"

// ==================== 店铺 ====================

// ShopListRequest 店铺列表请求
type ShopListRequest struct {
	Search   string `form:"search"`
	Ordering string `form:"ordering"` // name | created_at | updated_at，"-" 前缀倒序
	PageQuery
}

// ShopInfo 店铺信息
type ShopInfo struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Address             string    `json:"address"`
	Phone               string    `json:"phone"`
	Description         string    `json:"description"`
	Logo                string    `json:"logo"`
	IsActive            bool      `json:"is_active"`
	ActiveProductsCount int64     `json:"active_products_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CreateShopRequest 创建店铺
type CreateShopRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Address     string `json:"address" binding:"max=200"`
	Phone       string `json:"phone" binding:"max=20"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// UpdateShopRequest 更新店铺，字段为空表示不修改
type UpdateShopRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Address     *string `json:"address" binding:"omitempty,max=200"`
	Phone       *string `json:"phone" binding:"omitempty,max=20"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// ==================== 公告 ====================

// NoticeListRequest 公告列表
type NoticeListRequest struct {
	ShopID *int64 `form:"shop_id"`
	PageQuery
}

// NoticeInfo 公告
type NoticeInfo struct {
	ID        int64     `json:"id"`
	ShopID    int64     `json:"shop_id"`
	ShopName  string    `json:"shop_name"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateNoticeRequest 创建公告，商家默认发布到所属店铺
type CreateNoticeRequest struct {
	ShopID   int64  `json:"shop_id"`
	Title    string `json:"title" binding:"required,max=200"`
	Content  string `json:"content"`
	IsActive *bool  `json:"is_active"`
}

// UpdateNoticeRequest 更新公告
type UpdateNoticeRequest struct {
	Title    *string `json:"title" binding:"omitempty,min=1,max=200"`
	Content  *string `json:"content"`
	IsActive *bool   `json:"is_active"`
}

// ==================== 商家后台 ====================

// DashboardResponse 仪表盘
type DashboardResponse struct {
	ShopID        *int64 `json:"shop_id"`
	ProductsCount int64  `json:"products_count"`
	TodayOrders   int64  `json:"today_orders"`
	UsersCount    int64  `json:"users_count"`
}
