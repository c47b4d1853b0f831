package dto

import "time"

// ==================== 活动 ====================

// ActivityListRequest 活动列表
type ActivityListRequest struct {
	Search   string `form:"search"`
	Ordering string `form:"ordering"` // start_time | end_time | created_at
	PageQuery
}

// ActivitySearchRequest 活动搜索
type ActivitySearchRequest struct {
	Q      string `form:"q"`
	ShopID *int64 `form:"shop_id"`
	Date   string `form:"date"` // YYYY-MM-DD
	PageQuery
}

// ActivityInfo 活动信息
type ActivityInfo struct {
	ID              int64     `json:"id"`
	ShopID          int64     `json:"shop_id"`
	ShopName        string    `json:"shop_name"`
	ShopAddress     string    `json:"shop_address"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Image           string    `json:"image"`
	IsFeatured      bool      `json:"is_featured"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	MaxParticipants *int      `json:"max_participants"`
	IsActive        bool      `json:"is_active"`
	Status          string    `json:"status"`
	CanReserve      bool      `json:"can_reserve"`
	RemainingSlots  *int      `json:"remaining_slots"`
	ConfirmedCount  int64     `json:"confirmed_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateActivityRequest 创建活动
type CreateActivityRequest struct {
	ShopID          int64     `json:"shop_id"`
	Title           string    `json:"title" binding:"required,max=200"`
	Description     string    `json:"description"`
	IsFeatured      *bool     `json:"is_featured"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	EndTime         time.Time `json:"end_time" binding:"required"`
	MaxParticipants *int      `json:"max_participants" binding:"omitempty,min=1"`
	IsActive        *bool     `json:"is_active"`
}

// UpdateActivityRequest 更新活动
type UpdateActivityRequest struct {
	Title                *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description          *string    `json:"description"`
	IsFeatured           *bool      `json:"is_featured"`
	StartTime            *time.Time `json:"start_time"`
	EndTime              *time.Time `json:"end_time"`
	MaxParticipants      *int       `json:"max_participants" binding:"omitempty,min=1"`
	ClearMaxParticipants bool       `json:"clear_max_participants"`
	IsActive             *bool      `json:"is_active"`
}

// ActivityReservationStats 活动预约统计
type ActivityReservationStats struct {
	ActivityID      int64 `json:"activity_id"`
	Total           int64 `json:"total"`
	Confirmed       int64 `json:"confirmed"`
	Completed       int64 `json:"completed"`
	Cancelled       int64 `json:"cancelled"`
	MaxParticipants *int  `json:"max_participants"`
	RemainingSlots  *int  `json:"remaining_slots"`
}

// ==================== 预约 ====================

// CreateReservationRequest 创建预约
type CreateReservationRequest struct {
	ActivityID   int64  `json:"activity_id" binding:"required"`
	ContactPhone string `json:"contact_phone" binding:"required,max=20"`
	Note         string `json:"note" binding:"max=500"`
}

// ReservationListRequest 预约列表
type ReservationListRequest struct {
	ActivityID *int64 `form:"activity_id"`
	Status     string `form:"status" binding:"omitempty,oneof=confirmed completed cancelled"`
	PageQuery
}

// ReservationInfo 预约信息
type ReservationInfo struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	ActivityID        int64      `json:"activity_id"`
	ActivityTitle     string     `json:"activity_title"`
	ActivityStartTime *time.Time `json:"activity_start_time,omitempty"`
	ShopID            int64      `json:"shop_id"`
	ContactPhone      string     `json:"contact_phone"`
	Note              string     `json:"note"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
}

// BatchReservationStatusRequest 批量修改预约状态
type BatchReservationStatusRequest struct {
	IDs    []int64 `json:"ids" binding:"required,min=1,max=200"`
	Status string  `json:"status" binding:"required,oneof=confirmed completed cancelled"`
}

// BatchUpdateResponse 批量操作结果
type BatchUpdateResponse struct {
	Updated int64 `json:"updated"`
}
