package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ==================== 注册 / 登录 ====================

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=100"`
	Email    string `json:"email" binding:"omitempty,email,max=100"`
	Phone    string `json:"phone" binding:"omitempty,max=20"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *UserInfo `json:"user"`
}

// ==================== Token 刷新 ====================

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshTokenResponse 刷新 Token 响应
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ==================== 用户信息 ====================

// UserInfo 用户信息
type UserInfo struct {
	ID          int64           `json:"id"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Role        string          `json:"role"`
	ShopID      *int64          `json:"shop_id"`
	Balance     decimal.Decimal `json:"balance"`
	Points      int64           `json:"points"`
	Avatar      string          `json:"avatar"`
	IsActive    bool            `json:"is_active"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// UpdateProfileRequest 更新个人资料
type UpdateProfileRequest struct {
	Email *string `json:"email" binding:"omitempty,email,max=100"`
	Phone *string `json:"phone" binding:"omitempty,max=20"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required,min=6"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=100"`
}

// ==================== 用户管理（商家/管理员） ====================

// UserListRequest 用户列表请求
type UserListRequest struct {
	Search string `form:"search"`
	Role   string `form:"role" binding:"omitempty,oneof=customer merchant admin"`
	PageQuery
}

// UpdateBalancePointsRequest 直接设置余额与积分，均可选
type UpdateBalancePointsRequest struct {
	Balance *decimal.Decimal `json:"balance"`
	Points  *int64           `json:"points" binding:"omitempty,min=0"`
}

// BalancePointsResponse 余额积分变更结果
type BalancePointsResponse struct {
	UserID        int64           `json:"user_id"`
	OldBalance    decimal.Decimal `json:"old_balance"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	BalanceChange decimal.Decimal `json:"balance_change"`
	OldPoints     int64           `json:"old_points"`
	NewPoints     int64           `json:"new_points"`
	PointsChange  int64           `json:"points_change"`
}

// AddBalanceRequest 充值余额
type AddBalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// AddPointsRequest 增加积分
type AddPointsRequest struct {
	Points int64 `json:"points" binding:"required,gt=0"`
}

// ==================== 商家账号（命令行） ====================

// SetupMerchantRequest 创建商家账号
type SetupMerchantRequest struct {
	Username string
	Password string
	ShopID   int64
	ShopName string // ShopID 为 0 时按名称查找或新建店铺
	Role     string
}
