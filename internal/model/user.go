package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRole 系统角色
type UserRole string

const (
	RoleCustomer UserRole = "customer" // 普通顾客
	RoleMerchant UserRole = "merchant" // 商家员工，通过 ShopID 绑定店铺
	RoleAdmin    UserRole = "admin"    // 平台管理员
)

// IsStaff 是否为后台人员
func (r UserRole) IsStaff() bool {
	return r == RoleMerchant || r == RoleAdmin
}

// User 用户
type User struct {
	BaseModel
	Username string   `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password string   `gorm:"size:255;not null" json:"-"`
	Email    string   `gorm:"size:100" json:"email"`
	Phone    string   `gorm:"size:20;index" json:"phone"`
	Role     UserRole `gorm:"size:20;not null" json:"role"`

	// 员工所属店铺
	ShopID *int64 `gorm:"index" json:"shop_id"`
	Shop   *Shop  `gorm:"constraint:OnDelete:SET NULL" json:"-"`

	Balance decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"balance"`
	Points  int64           `gorm:"not null;default:0" json:"points"`

	Avatar      string     `gorm:"size:500" json:"avatar"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

func (User) TableName() string {
	return "users"
}
