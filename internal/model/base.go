package model

import (
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// --- 审计字段 ---
	CreatedBy int64 `gorm:"comment:创建人ID" json:"created_by"`
	UpdatedBy int64 `gorm:"comment:更新人ID" json:"updated_by"`
}

// AllModels 需要迁移的全部模型，顺序按外键依赖
func AllModels() []interface{} {
	return []interface{}{
		&Shop{}, &User{},
		&Category{}, &Product{},
		&Cart{}, &CartItem{},
		&Order{}, &OrderItem{}, &OrderStatusLog{},
		&Payment{},
		&Activity{}, &Reservation{},
		&Notice{},
	}
}
