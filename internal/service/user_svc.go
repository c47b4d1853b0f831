package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/middleware"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
)

// ==================== UserService 用户服务 ====================

// UserService 用户服务
type UserService struct {
	uow      *repository.UnitOfWork
	userRepo repository.UserRepository
	storage  *StorageService
}

// NewUserService 创建用户服务
func NewUserService(uow *repository.UnitOfWork, storage *StorageService) *UserService {
	return &UserService{uow: uow, userRepo: uow.Users, storage: storage}
}

// ==================== 认证相关 ====================

// Register 注册顾客账号
func (s *UserService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserInfo, error) {
	username := strings.TrimSpace(req.Username)
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: username,
		Password: string(hashed),
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     model.RoleCustomer,
		Balance:  decimal.Zero,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("用户注册")
	return toUserInfo(user), nil
}

// Login 用户登录
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	accessToken, refreshToken, err := middleware.GenerateTokenPair(user.ID, user.Username, string(user.Role), user.ShopID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("更新最后登录时间失败")
	}
	user.LastLoginAt = &now

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(middleware.GetJWTConfig().AccessTokenTTL),
		User:         toUserInfo(user),
	}, nil
}

// RefreshToken 刷新 Token
func (s *UserService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.RefreshTokenResponse, error) {
	claims, err := middleware.ParseToken(req.RefreshToken)
	if err != nil || claims.Subject != "refresh" {
		return nil, ErrInvalidToken
	}

	// 重新读取用户，角色与店铺以数据库为准
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUserDisabled
	}

	accessToken, refreshToken, err := middleware.GenerateTokenPair(user.ID, user.Username, string(user.Role), user.ShopID)
	if err != nil {
		return nil, err
	}

	return &dto.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(middleware.GetJWTConfig().AccessTokenTTL),
	}, nil
}

// ChangePassword 修改密码
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.mustGet(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return ErrInvalidOldPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, userID, string(hashed))
}

// ==================== 个人资料 ====================

// GetProfile 获取当前用户信息
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

// UpdateProfile 更新邮箱、手机号
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	fields := map[string]interface{}{}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if len(fields) == 0 {
		return s.GetProfile(ctx, userID)
	}

	if _, err := s.mustGet(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// UploadAvatar 上传头像，替换后删除旧文件
func (s *UserService) UploadAvatar(ctx context.Context, userID int64, data []byte) (*dto.UserInfo, error) {
	user, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.UploadImage(ctx, data, "avatars")
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"avatar": url}); err != nil {
		return nil, err
	}

	if user.Avatar != "" {
		if err := s.storage.Delete(ctx, user.Avatar); err != nil {
			log.Warn().Err(err).Str("url", user.Avatar).Msg("删除旧头像失败")
		}
	}
	user.Avatar = url
	return toUserInfo(user), nil
}

// ==================== 用户管理（商家/管理员） ====================

// ListUsers 用户列表，按注册时间倒序
func (s *UserService) ListUsers(ctx context.Context, req *dto.UserListRequest) (*dto.PageResult[dto.UserInfo], error) {
	users, total, err := s.userRepo.List(ctx, repository.UserFilter{
		Search:   strings.TrimSpace(req.Search),
		Role:     req.Role,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	list := make([]dto.UserInfo, 0, len(users))
	for i := range users {
		list = append(list, *toUserInfo(&users[i]))
	}
	return dto.NewPageResult(list, total, req.PageQuery), nil
}

// GetUser 用户详情
func (s *UserService) GetUser(ctx context.Context, id int64) (*dto.UserInfo, error) {
	return s.GetProfile(ctx, id)
}

// UpdateBalancePoints 直接设置余额和积分
func (s *UserService) UpdateBalancePoints(ctx context.Context, id int64, req *dto.UpdateBalancePointsRequest) (*dto.BalancePointsResponse, error) {
	if req.Balance == nil && req.Points == nil {
		return nil, ErrNothingToUpdate
	}
	if req.Balance != nil && req.Balance.IsNegative() {
		return nil, ErrNegativeBalance
	}

	var resp *dto.BalancePointsResponse
	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		user, err := tx.Users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		resp = &dto.BalancePointsResponse{
			UserID:     user.ID,
			OldBalance: user.Balance,
			NewBalance: user.Balance,
			OldPoints:  user.Points,
			NewPoints:  user.Points,
		}
		fields := map[string]interface{}{}
		if req.Balance != nil {
			resp.NewBalance = req.Balance.Round(2)
			fields["balance"] = resp.NewBalance
		}
		if req.Points != nil {
			resp.NewPoints = *req.Points
			fields["points"] = resp.NewPoints
		}
		resp.BalanceChange = resp.NewBalance.Sub(resp.OldBalance)
		resp.PointsChange = resp.NewPoints - resp.OldPoints

		return tx.Users.UpdateFields(ctx, id, fields)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", id).
		Str("balance_change", resp.BalanceChange.String()).
		Int64("points_change", resp.PointsChange).
		Msg("调整用户余额积分")
	return resp, nil
}

// AddBalance 充值余额
func (s *UserService) AddBalance(ctx context.Context, id int64, amount decimal.Decimal) (*dto.BalancePointsResponse, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount = amount.Round(2)
	return s.adjust(ctx, id, func(tx *repository.UnitOfWork) error {
		return tx.Users.AddBalance(ctx, id, amount)
	})
}

// AddPoints 增加积分
func (s *UserService) AddPoints(ctx context.Context, id int64, points int64) (*dto.BalancePointsResponse, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	return s.adjust(ctx, id, func(tx *repository.UnitOfWork) error {
		return tx.Users.AddPoints(ctx, id, points)
	})
}

// adjust 在事务内执行增量修改并返回前后对比
func (s *UserService) adjust(ctx context.Context, id int64, apply func(tx *repository.UnitOfWork) error) (*dto.BalancePointsResponse, error) {
	var resp *dto.BalancePointsResponse
	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		before, err := tx.Users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if before == nil {
			return ErrUserNotFound
		}
		if err := apply(tx); err != nil {
			return err
		}
		after, err := tx.Users.GetByID(ctx, id)
		if err != nil {
			return err
		}

		resp = &dto.BalancePointsResponse{
			UserID:        id,
			OldBalance:    before.Balance,
			NewBalance:    after.Balance,
			BalanceChange: after.Balance.Sub(before.Balance),
			OldPoints:     before.Points,
			NewPoints:     after.Points,
			PointsChange:  after.Points - before.Points,
		}
		return nil
	})
	return resp, err
}

// ==================== 命令行 ====================

// SetupAccount 创建或更新员工账号，已存在时重置密码和角色
func (s *UserService) SetupAccount(ctx context.Context, req *dto.SetupMerchantRequest) (*model.User, error) {
	role := model.UserRole(req.Role)
	if role != model.RoleMerchant && role != model.RoleAdmin {
		return nil, fmt.Errorf("不支持的角色: %s", req.Role)
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("密码长度不能少于6位")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		var shopID *int64
		if role == model.RoleMerchant {
			id, err := s.resolveShop(ctx, tx, req)
			if err != nil {
				return err
			}
			shopID = &id
		}

		existing, err := tx.Users.GetByUsername(ctx, req.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Password = string(hashed)
			existing.Role = role
			existing.ShopID = shopID
			existing.IsActive = true
			user = existing
			return tx.Users.Update(ctx, existing)
		}

		user = &model.User{
			Username: req.Username,
			Password: string(hashed),
			Role:     role,
			ShopID:   shopID,
			Balance:  decimal.Zero,
			IsActive: true,
		}
		return tx.Users.Create(ctx, user)
	})
	return user, err
}

func (s *UserService) resolveShop(ctx context.Context, tx *repository.UnitOfWork, req *dto.SetupMerchantRequest) (int64, error) {
	if req.ShopID > 0 {
		shop, err := tx.Shops.GetByID(ctx, req.ShopID)
		if err != nil {
			return 0, err
		}
		if shop == nil {
			return 0, ErrShopNotFound
		}
		return shop.ID, nil
	}
	if req.ShopName == "" {
		return 0, ErrShopIDRequired
	}

	shops, _, err := tx.Shops.List(ctx, repository.ShopFilter{Search: req.ShopName, PageSize: 100})
	if err != nil {
		return 0, err
	}
	for _, shop := range shops {
		if shop.Name == req.ShopName {
			return shop.ID, nil
		}
	}

	shop := &model.Shop{Name: req.ShopName, IsActive: true}
	if err := tx.Shops.Create(ctx, shop); err != nil {
		return 0, err
	}
	return shop.ID, nil
}

// ==================== 内部方法 ====================

func (s *UserService) mustGet(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// toUserInfo 转换为 DTO
func toUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Phone:       user.Phone,
		Role:        string(user.Role),
		ShopID:      user.ShopID,
		Balance:     user.Balance,
		Points:      user.Points,
		Avatar:      user.Avatar,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}
