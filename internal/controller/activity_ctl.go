package controller

import (
	"github.com/gin-gonic/gin"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/middleware"
	"jiuba_platform/internal/service"
)

// ActivityController 活动与预约
type ActivityController struct {
	activitySvc    *service.ActivityService
	reservationSvc *service.ReservationService
}

func NewActivityController(activitySvc *service.ActivityService, reservationSvc *service.ReservationService) *ActivityController {
	return &ActivityController{
		activitySvc:    activitySvc,
		reservationSvc: reservationSvc,
	}
}

// pageView 不带筛选条件的分页视图
func (c *ActivityController) pageView(ctx *gin.Context, fetch func(q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error)) {
	var q dto.PageQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}
	page, err := fetch(q)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", page)
}

// ==================== 活动查询 ====================

// ListActivities 活动列表
// @Summary 活动列表
// @Description 公开列表只含启用且未结束的活动
// @Tags Activity
// @Produce json
// @Param search query string false "标题/描述"
// @Param ordering query string false "start_time | end_time | created_at"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.PageResult[dto.ActivityInfo]
// @Router /api/activities [get]
func (c *ActivityController) ListActivities(ctx *gin.Context) {
	var req dto.ActivityListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.activitySvc.List(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", page)
}

// Featured 推荐活动
// @Summary 推荐活动
// @Tags Activity
// @Produce json
// @Success 200 {object} dto.PageResult[dto.ActivityInfo]
// @Router /api/activities/featured [get]
func (c *ActivityController) Featured(ctx *gin.Context) {
	c.pageView(ctx, func(q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error) {
		return c.activitySvc.Featured(ctx.Request.Context(), q)
	})
}

// Ongoing 进行中的活动
// @Summary 进行中的活动
// @Tags Activity
// @Produce json
// @Success 200 {object} dto.PageResult[dto.ActivityInfo]
// @Router /api/activities/ongoing [get]
func (c *ActivityController) Ongoing(ctx *gin.Context) {
	c.pageView(ctx, func(q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error) {
		return c.activitySvc.Ongoing(ctx.Request.Context(), q)
	})
}

// Upcoming 即将开始的活动
// @Summary 即将开始的活动
// @Tags Activity
// @Produce json
// @Success 200 {object} dto.PageResult[dto.ActivityInfo]
// @Router /api/activities/upcoming [get]
func (c *ActivityController) Upcoming(ctx *gin.Context) {
	c.pageView(ctx, func(q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error) {
		return c.activitySvc.Upcoming(ctx.Request.Context(), q)
	})
}

// Today 今日活动
// @Summary 今日活动
// @Tags Activity
// @Produce json
// @Success 200 {object} dto.PageResult[dto.ActivityInfo]
// @Router /api/activities/today [get]
func (c *ActivityController) Today(ctx *gin.Context) {
	c.pageView(ctx, func(q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error) {
		return c.activitySvc.Today(ctx.Request.Context(), q)
	})
}

// Search 搜索活动
// @Summary 搜索活动
// @Tags Activity
// @Produce json
// @Param q query string false "关键词"
// @Param shop_id query int false "店铺ID"
// @Param date query string false "日期 YYYY-MM-DD"
// @Success 200 {object} dto.PageResult[dto.ActivityInfo]
// @Failure 400 {object} map[string]interface{} "日期格式错误"
// @Router /api/activities/search [get]
func (c *ActivityController) Search(ctx *gin.Context) {
	var req dto.ActivitySearchRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.activitySvc.Search(ctx.Request.Context(), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", page)
}

// ShopActivities 店铺活动
// @Summary 店铺活动
// @Tags Activity
// @Produce json
// @Param id path int true "店铺ID"
// @Success 200 {object} dto.PageResult[dto.ActivityInfo]
// @Router /api/shops/{id}/activities [get]
func (c *ActivityController) ShopActivities(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	c.pageView(ctx, func(q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error) {
		return c.activitySvc.ShopActivities(ctx.Request.Context(), id, q)
	})
}

// GetActivity 活动详情
// @Summary 活动详情
// @Tags Activity
// @Produce json
// @Param id path int true "活动ID"
// @Success 200 {object} dto.ActivityInfo
// @Router /api/activities/{id} [get]
func (c *ActivityController) GetActivity(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	activity, err := c.activitySvc.Get(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", activity)
}

// ==================== 活动管理 ====================

// CreateActivity 创建活动
// @Summary 创建活动
// @Tags Activity
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateActivityRequest true "活动"
// @Success 201 {object} dto.ActivityInfo
// @Router /api/activities [post]
func (c *ActivityController) CreateActivity(ctx *gin.Context) {
	var req dto.CreateActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	activity, err := c.activitySvc.Create(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	created(ctx, "创建成功", activity)
}

// UpdateActivity 更新活动
// @Summary 更新活动
// @Tags Activity
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Param request body dto.UpdateActivityRequest true "更新字段"
// @Success 200 {object} dto.ActivityInfo
// @Router /api/activities/{id} [put]
func (c *ActivityController) UpdateActivity(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	activity, err := c.activitySvc.Update(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "更新成功", activity)
}

// DeleteActivity 删除活动
// @Summary 删除活动
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/activities/{id} [delete]
func (c *ActivityController) DeleteActivity(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.activitySvc.Delete(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "删除成功", nil)
}

// ToggleActivityStatus 启用/停用
// @Summary 启用/停用活动
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Success 200 {object} dto.ActivityInfo
// @Router /api/activities/{id}/toggle-status [post]
func (c *ActivityController) ToggleActivityStatus(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	activity, err := c.activitySvc.ToggleStatus(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "状态已更新", activity)
}

// ToggleFeatured 设为/取消推荐
// @Summary 设为/取消推荐
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Success 200 {object} dto.ActivityInfo
// @Router /api/activities/{id}/toggle-featured [post]
func (c *ActivityController) ToggleFeatured(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	activity, err := c.activitySvc.ToggleFeatured(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "推荐状态已更新", activity)
}

// ReservationStats 活动预约统计
// @Summary 活动预约统计
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Success 200 {object} dto.ActivityReservationStats
// @Router /api/activities/{id}/reservation-stats [get]
func (c *ActivityController) ReservationStats(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	stats, err := c.activitySvc.ReservationStats(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", stats)
}

// UploadCover 上传活动封面
// @Summary 上传活动封面
// @Tags Activity
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Param file formData file true "封面图片"
// @Success 200 {object} dto.UploadResponse
// @Router /api/activities/{id}/cover [post]
func (c *ActivityController) UploadCover(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	data, ok := readImage(ctx, "file")
	if !ok {
		return
	}

	resp, err := c.activitySvc.UploadCover(ctx.Request.Context(), actorFrom(ctx), id, data)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "上传成功", resp)
}

// ==================== 预约 ====================

// CreateReservation 预约活动
// @Summary 预约活动
// @Tags Reservation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateReservationRequest true "预约信息"
// @Success 201 {object} dto.ReservationInfo
// @Failure 400 {object} map[string]interface{} "名额已满/重复预约/活动已开始"
// @Router /api/reservations [post]
func (c *ActivityController) CreateReservation(ctx *gin.Context) {
	var req dto.CreateReservationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	reservation, err := c.reservationSvc.Create(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	created(ctx, "预约成功", reservation)
}

// ListReservations 预约列表
// @Summary 预约列表
// @Description 顾客看自己的，商家看本店，管理员看全部
// @Tags Reservation
// @Produce json
// @Security BearerAuth
// @Param activity_id query int false "活动ID"
// @Param status query string false "confirmed | completed | cancelled"
// @Success 200 {object} dto.PageResult[dto.ReservationInfo]
// @Router /api/reservations [get]
func (c *ActivityController) ListReservations(ctx *gin.Context) {
	var req dto.ReservationListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.reservationSvc.List(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", page)
}

// MyReservations 我的预约
// @Summary 我的预约
// @Tags Reservation
// @Produce json
// @Security BearerAuth
// @Param status query string false "confirmed | completed | cancelled"
// @Success 200 {object} dto.PageResult[dto.ReservationInfo]
// @Router /api/reservations/mine [get]
func (c *ActivityController) MyReservations(ctx *gin.Context) {
	var req dto.ReservationListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.reservationSvc.Mine(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", page)
}

// ShopReservations 店铺预约
// @Summary 店铺预约
// @Tags Reservation
// @Produce json
// @Security BearerAuth
// @Param id path int true "店铺ID"
// @Param status query string false "confirmed | completed | cancelled"
// @Success 200 {object} dto.PageResult[dto.ReservationInfo]
// @Router /api/shops/{id}/reservations [get]
func (c *ActivityController) ShopReservations(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.ReservationListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.reservationSvc.ShopReservations(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", page)
}

// GetReservation 预约详情
// @Summary 预约详情
// @Tags Reservation
// @Produce json
// @Security BearerAuth
// @Param id path int true "预约ID"
// @Success 200 {object} dto.ReservationInfo
// @Router /api/reservations/{id} [get]
func (c *ActivityController) GetReservation(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	reservation, err := c.reservationSvc.Get(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", reservation)
}

// CancelReservation 取消预约
// @Summary 取消预约
// @Tags Reservation
// @Produce json
// @Security BearerAuth
// @Param id path int true "预约ID"
// @Success 200 {object} dto.ReservationInfo
// @Router /api/reservations/{id}/cancel [post]
func (c *ActivityController) CancelReservation(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	reservation, err := c.reservationSvc.Cancel(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "预约已取消", reservation)
}

// CompleteReservation 核销预约
// @Summary 核销预约
// @Tags Reservation
// @Produce json
// @Security BearerAuth
// @Param id path int true "预约ID"
// @Success 200 {object} dto.ReservationInfo
// @Router /api/reservations/{id}/complete [post]
func (c *ActivityController) CompleteReservation(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	reservation, err := c.reservationSvc.Complete(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "预约已完成", reservation)
}

// BatchUpdateReservations 批量修改预约状态
// @Summary 批量修改预约状态
// @Tags Reservation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BatchReservationStatusRequest true "预约ID与目标状态"
// @Success 200 {object} dto.BatchUpdateResponse
// @Router /api/reservations/batch-status [post]
func (c *ActivityController) BatchUpdateReservations(ctx *gin.Context) {
	var req dto.BatchReservationStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, err := c.reservationSvc.BatchUpdateStatus(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "批量更新成功", resp)
}
