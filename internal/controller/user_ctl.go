package controller

import (
	"github.com/gin-gonic/gin"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/middleware"
	"jiuba_platform/internal/service"
)

// ==================== UserController 用户控制器 ====================

// UserController 用户控制器
type UserController struct {
	userService *service.UserService
}

// NewUserController 创建用户控制器
func NewUserController(userService *service.UserService) *UserController {
	return &UserController{userService: userService}
}

// ==================== 认证接口 ====================

// Register 用户注册
// @Summary 用户注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "注册信息"
// @Success 201 {object} dto.UserInfo
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/register [post]
func (c *UserController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	user, err := c.userService.Register(ctx.Request.Context(), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	created(ctx, "注册成功", user)
}

// Login 用户登录
// @Summary 用户登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (c *UserController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, err := c.userService.Login(ctx.Request.Context(), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "登录成功", resp)
}

// RefreshToken 刷新 Token
// @Summary 刷新 Token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh Token"
// @Success 200 {object} dto.RefreshTokenResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/refresh [post]
func (c *UserController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, err := c.userService.RefreshToken(ctx.Request.Context(), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "刷新成功", resp)
}

// Logout 退出登录
// Token 无状态，客户端丢弃即可
// @Summary 退出登录
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/logout [post]
func (c *UserController) Logout(ctx *gin.Context) {
	success(ctx, "已退出登录", nil)
}

// ==================== 个人中心 ====================

// GetProfile 获取当前用户信息
// @Summary 获取当前用户信息
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserInfo
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/profile [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	user, err := c.userService.GetProfile(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "success", user)
}

// UpdateProfile 更新个人资料
// @Summary 更新个人资料
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "资料"
// @Success 200 {object} dto.UserInfo
// @Router /api/auth/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	user, err := c.userService.UpdateProfile(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "更新成功", user)
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ChangePasswordRequest true "密码信息"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/password [put]
func (c *UserController) ChangePassword(ctx *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	if err := c.userService.ChangePassword(ctx.Request.Context(), middleware.GetUserID(ctx), &req); err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "密码修改成功", nil)
}

// UploadAvatar 上传头像
// @Summary 上传头像
// @Tags Auth
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "头像图片"
// @Success 200 {object} dto.UserInfo
// @Router /api/auth/avatar [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	data, ok := readImage(ctx, "file")
	if !ok {
		return
	}

	user, err := c.userService.UploadAvatar(ctx.Request.Context(), middleware.GetUserID(ctx), data)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "上传成功", user)
}

// ==================== 用户管理 ====================

// ListUsers 用户列表
// @Summary 用户列表
// @Tags User
// @Produce json
// @Security BearerAuth
// @Param search query string false "用户名/手机/邮箱"
// @Param role query string false "角色"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.PageResult[dto.UserInfo]
// @Router /api/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	var req dto.UserListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.userService.ListUsers(ctx.Request.Context(), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "success", page)
}

// GetUser 用户详情
// @Summary 用户详情
// @Tags User
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} dto.UserInfo
// @Failure 404 {object} map[string]interface{}
// @Router /api/users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	user, err := c.userService.GetUser(ctx.Request.Context(), id)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "success", user)
}

// UpdateBalancePoints 设置余额与积分
// @Summary 设置余额与积分
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body dto.UpdateBalancePointsRequest true "余额/积分"
// @Success 200 {object} dto.BalancePointsResponse
// @Router /api/users/{id}/balance-points [put]
func (c *UserController) UpdateBalancePoints(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateBalancePointsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, err := c.userService.UpdateBalancePoints(ctx.Request.Context(), id, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "更新成功", resp)
}

// AddBalance 充值余额
// @Summary 充值余额
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body dto.AddBalanceRequest true "金额"
// @Success 200 {object} dto.BalancePointsResponse
// @Router /api/users/{id}/balance [post]
func (c *UserController) AddBalance(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.AddBalanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, err := c.userService.AddBalance(ctx.Request.Context(), id, req.Amount)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "充值成功", resp)
}

// AddPoints 增加积分
// @Summary 增加积分
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body dto.AddPointsRequest true "积分"
// @Success 200 {object} dto.BalancePointsResponse
// @Router /api/users/{id}/points [post]
func (c *UserController) AddPoints(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.AddPointsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, err := c.userService.AddPoints(ctx.Request.Context(), id, req.Points)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "积分已增加", resp)
}
