package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/service"
)

// NoticeController 店铺公告
type NoticeController struct {
	noticeSvc *service.NoticeService
}

func NewNoticeController(noticeSvc *service.NoticeService) *NoticeController {
	return &NoticeController{noticeSvc: noticeSvc}
}

// ListNotices 公告列表
// @Summary 公告列表
// @Description 游客只能看到已发布的公告
// @Tags Notice
// @Produce json
// @Param shop_id query int false "店铺ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.PageResult[dto.NoticeInfo]
// @Router /api/notices [get]
func (c *NoticeController) ListNotices(ctx *gin.Context) {
	var req dto.NoticeListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.noticeSvc.List(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", page)
}

// ShopNotices 指定店铺的公告
// @Summary 店铺公告
// @Tags Notice
// @Produce json
// @Param shop_id query int true "店铺ID"
// @Success 200 {object} dto.PageResult[dto.NoticeInfo]
// @Failure 400 {object} map[string]interface{} "缺少 shop_id"
// @Router /api/notices/shop_notices [get]
func (c *NoticeController) ShopNotices(ctx *gin.Context) {
	var q dto.PageQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}

	var shopID *int64
	if raw := ctx.Query("shop_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(ctx, http.StatusBadRequest, "无效的 shop_id")
			return
		}
		shopID = &id
	}

	page, err := c.noticeSvc.ShopNotices(ctx.Request.Context(), shopID, q)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", page)
}

// GetNotice 公告详情
// @Summary 公告详情
// @Tags Notice
// @Produce json
// @Param id path int true "公告ID"
// @Success 200 {object} dto.NoticeInfo
// @Router /api/notices/{id} [get]
func (c *NoticeController) GetNotice(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	notice, err := c.noticeSvc.Get(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", notice)
}

// CreateNotice 发布公告
// @Summary 发布公告
// @Tags Notice
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateNoticeRequest true "公告"
// @Success 201 {object} dto.NoticeInfo
// @Router /api/notices [post]
func (c *NoticeController) CreateNotice(ctx *gin.Context) {
	var req dto.CreateNoticeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	notice, err := c.noticeSvc.Create(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	created(ctx, "发布成功", notice)
}

// UpdateNotice 更新公告
// @Summary 更新公告
// @Tags Notice
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "公告ID"
// @Param request body dto.UpdateNoticeRequest true "更新字段"
// @Success 200 {object} dto.NoticeInfo
// @Router /api/notices/{id} [put]
func (c *NoticeController) UpdateNotice(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateNoticeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	notice, err := c.noticeSvc.Update(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "更新成功", notice)
}

// ToggleNoticeStatus 发布/撤回
// @Summary 发布/撤回公告
// @Tags Notice
// @Produce json
// @Security BearerAuth
// @Param id path int true "公告ID"
// @Success 200 {object} dto.NoticeInfo
// @Router /api/notices/{id}/toggle-status [post]
func (c *NoticeController) ToggleNoticeStatus(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	notice, err := c.noticeSvc.ToggleStatus(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "状态已更新", notice)
}

// DeleteNotice 删除公告
// @Summary 删除公告
// @Tags Notice
// @Produce json
// @Security BearerAuth
// @Param id path int true "公告ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/notices/{id} [delete]
func (c *NoticeController) DeleteNotice(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.noticeSvc.Delete(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "删除成功", nil)
}
