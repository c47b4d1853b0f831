package model

import (
	"time"
)

// ActivityStatus 活动时间状态
type ActivityStatus string

const (
	ActivityUpcoming ActivityStatus = "upcoming"
	ActivityOngoing  ActivityStatus = "ongoing"
	ActivityEnded    ActivityStatus = "ended"
)

// Activity 店铺活动
type Activity struct {
	BaseModel
	ShopID      int64  `gorm:"not null;index" json:"shop_id"`
	Shop        *Shop  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Image       string `gorm:"size:500" json:"image"`
	IsFeatured  bool   `gorm:"not null;index" json:"is_featured"`

	StartTime time.Time `gorm:"not null;index" json:"start_time"`
	EndTime   time.Time `gorm:"not null;index" json:"end_time"`

	// 为空表示不限人数
	MaxParticipants *int `json:"max_participants"`
	IsActive        bool `gorm:"not null;index" json:"is_active"`
}

func (Activity) TableName() string {
	return "activities"
}

// StatusAt 按时间计算活动状态
func (a *Activity) StatusAt(now time.Time) ActivityStatus {
	switch {
	case now.Before(a.StartTime):
		return ActivityUpcoming
	case now.After(a.EndTime):
		return ActivityEnded
	default:
		return ActivityOngoing
	}
}

// CanReserveAt 开始前可预约
func (a *Activity) CanReserveAt(now time.Time) bool {
	return a.StartTime.After(now)
}

// RemainingSlots 剩余名额，不限人数时返回 nil
func (a *Activity) RemainingSlots(confirmed int64) *int {
	if a.MaxParticipants == nil {
		return nil
	}
	left := *a.MaxParticipants - int(confirmed)
	if left < 0 {
		left = 0
	}
	return &left
}

// ReservationStatus 预约状态
type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Valid 是否为合法状态
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationConfirmed, ReservationCompleted, ReservationCancelled:
		return true
	}
	return false
}

// Reservation 活动预约
type Reservation struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64             `gorm:"not null;index" json:"user_id"`
	User         *User             `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ActivityID   int64             `gorm:"not null;index" json:"activity_id"`
	Activity     *Activity         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ShopID       int64             `gorm:"not null;index" json:"shop_id"`
	ContactPhone string            `gorm:"size:20;not null" json:"contact_phone"`
	Note         string            `gorm:"type:text" json:"note"`
	Status       ReservationStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}
