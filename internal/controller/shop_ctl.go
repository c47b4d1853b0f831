package controller

import (
	"github.com/gin-gonic/gin"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/service"
)

type ShopController struct {
	shopSvc    *service.ShopService
	productSvc *service.ProductService
}

func NewShopController(shopSvc *service.ShopService, productSvc *service.ProductService) *ShopController {
	return &ShopController{
		shopSvc:    shopSvc,
		productSvc: productSvc,
	}
}

// GetShopList 获取店铺列表
// @Summary 获取店铺列表
// @Description 游客与顾客只能看到营业中的店铺，管理员可查看全部
// @Tags Shop (店铺管理)
// @Produce json
// @Param search query string false "名称/地址/电话"
// @Param ordering query string false "name | created_at | updated_at，- 前缀倒序"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} dto.PageResult[dto.ShopInfo] "店铺列表"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Router /api/shops [get]
func (c *ShopController) GetShopList(ctx *gin.Context) {
	var req dto.ShopListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.shopSvc.List(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "success", page)
}

// GetActiveShops 营业中的店铺
// @Summary 营业中的店铺
// @Tags Shop (店铺管理)
// @Produce json
// @Success 200 {array} dto.ShopInfo
// @Router /api/shops/active [get]
func (c *ShopController) GetActiveShops(ctx *gin.Context) {
	shops, err := c.shopSvc.Active(ctx.Request.Context())
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "success", shops)
}

// GetShopDetail 获取店铺详情
// @Summary 获取店铺详情
// @Tags Shop (店铺管理)
// @Produce json
// @Param id path int true "店铺ID"
// @Success 200 {object} dto.ShopInfo "店铺详情"
// @Failure 404 {object} map[string]interface{} "店铺不存在"
// @Router /api/shops/{id} [get]
func (c *ShopController) GetShopDetail(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	shop, err := c.shopSvc.Get(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "success", shop)
}

// GetShopProducts 店铺在售商品
// @Summary 店铺在售商品
// @Tags Shop (店铺管理)
// @Produce json
// @Param id path int true "店铺ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.PageResult[dto.ProductInfo]
// @Router /api/shops/{id}/products [get]
func (c *ShopController) GetShopProducts(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.productSvc.ShopProducts(ctx.Request.Context(), id, q)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "success", page)
}

// CreateShop 创建店铺
// @Summary 创建店铺
// @Tags Shop (店铺管理)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateShopRequest true "店铺信息"
// @Success 201 {object} dto.ShopInfo
// @Failure 400 {object} map[string]interface{} "参数错误或名称重复"
// @Router /api/shops [post]
func (c *ShopController) CreateShop(ctx *gin.Context) {
	var req dto.CreateShopRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	shop, err := c.shopSvc.Create(ctx.Request.Context(), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	created(ctx, "创建成功", shop)
}

// UpdateShop 更新店铺
// @Summary 更新店铺
// @Tags Shop (店铺管理)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "店铺ID"
// @Param request body dto.UpdateShopRequest true "更新参数"
// @Success 200 {object} dto.ShopInfo
// @Router /api/shops/{id} [put]
func (c *ShopController) UpdateShop(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateShopRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	shop, err := c.shopSvc.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "更新成功", shop)
}

// ToggleShopStatus 切换营业状态
// @Summary 切换营业状态
// @Tags Shop (店铺管理)
// @Produce json
// @Security BearerAuth
// @Param id path int true "店铺ID"
// @Success 200 {object} dto.ShopInfo
// @Router /api/shops/{id}/toggle-status [post]
func (c *ShopController) ToggleShopStatus(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	shop, err := c.shopSvc.ToggleStatus(ctx.Request.Context(), id)
	if err != nil {
		handleError(ctx, err)
		return
	}

	msg := "店铺已停业"
	if shop.IsActive {
		msg = "店铺已开业"
	}
	success(ctx, msg, shop)
}

// UploadShopLogo 上传店铺 Logo
// @Summary 上传店铺 Logo
// @Tags Shop (店铺管理)
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "店铺ID"
// @Param file formData file true "Logo 图片"
// @Success 200 {object} dto.UploadResponse
// @Router /api/shops/{id}/logo [post]
func (c *ShopController) UploadShopLogo(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	data, ok := readImage(ctx, "file")
	if !ok {
		return
	}

	resp, err := c.shopSvc.UploadLogo(ctx.Request.Context(), id, data)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "上传成功", resp)
}

// DeleteShop 删除店铺
// @Summary 删除店铺
// @Description 软删除店铺记录
// @Tags Shop (店铺管理)
// @Produce json
// @Security BearerAuth
// @Param id path int true "店铺ID"
// @Success 200 {object} map[string]interface{} "删除成功"
// @Failure 404 {object} map[string]interface{} "店铺不存在"
// @Router /api/shops/{id} [delete]
func (c *ShopController) DeleteShop(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.shopSvc.Delete(ctx.Request.Context(), id); err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "删除成功", nil)
}
