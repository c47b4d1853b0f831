package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/middleware"
	"jiuba_platform/internal/service"
)

// OrderController 购物车与订单
type OrderController struct {
	cartSvc  *service.CartService
	orderSvc *service.OrderService
}

func NewOrderController(cartSvc *service.CartService, orderSvc *service.OrderService) *OrderController {
	return &OrderController{
		cartSvc:  cartSvc,
		orderSvc: orderSvc,
	}
}

// ==================== 购物车 ====================

// ListCarts 我的购物车
// @Summary 我的购物车
// @Tags Cart
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.CartInfo
// @Router /api/carts [get]
func (c *OrderController) ListCarts(ctx *gin.Context) {
	carts, err := c.cartSvc.List(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", carts)
}

// GetCart 获取指定店铺的购物车，不存在时创建
// @Summary 获取店铺购物车
// @Tags Cart
// @Produce json
// @Security BearerAuth
// @Param shop_id query int true "店铺ID"
// @Success 200 {object} dto.CartInfo
// @Failure 400 {object} map[string]interface{} "缺少 shop_id"
// @Failure 404 {object} map[string]interface{} "店铺不存在"
// @Router /api/carts/current [get]
func (c *OrderController) GetCart(ctx *gin.Context) {
	shopID, err := strconv.ParseInt(ctx.Query("shop_id"), 10, 64)
	if err != nil || shopID <= 0 {
		fail(ctx, http.StatusBadRequest, service.ErrShopIDRequired.Error())
		return
	}

	cart, err := c.cartSvc.Get(ctx.Request.Context(), middleware.GetUserID(ctx), shopID)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", cart)
}

// AddCartItem 加入购物车
// @Summary 加入购物车
// @Tags Cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AddCartItemRequest true "商品与数量"
// @Success 200 {object} dto.CartInfo
// @Router /api/carts/items [post]
func (c *OrderController) AddCartItem(ctx *gin.Context) {
	var req dto.AddCartItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	cart, err := c.cartSvc.AddItem(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "已加入购物车", cart)
}

// UpdateCartItem 修改数量
// @Summary 修改购物车数量
// @Tags Cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "条目ID"
// @Param request body dto.UpdateCartItemRequest true "数量"
// @Success 200 {object} dto.CartItemInfo
// @Router /api/carts/items/{id} [put]
func (c *OrderController) UpdateCartItem(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateCartItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	item, err := c.cartSvc.UpdateItem(ctx.Request.Context(), middleware.GetUserID(ctx), id, req.Quantity)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "更新成功", item)
}

// RemoveCartItem 移除条目
// @Summary 移除购物车条目
// @Tags Cart
// @Produce json
// @Security BearerAuth
// @Param id path int true "条目ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/carts/items/{id} [delete]
func (c *OrderController) RemoveCartItem(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.cartSvc.RemoveItem(ctx.Request.Context(), middleware.GetUserID(ctx), id); err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "已移除", nil)
}

// ClearCart 清空购物车
// @Summary 清空购物车
// @Tags Cart
// @Produce json
// @Security BearerAuth
// @Param shop_id query int true "店铺ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/carts/clear [post]
func (c *OrderController) ClearCart(ctx *gin.Context) {
	shopID, err := strconv.ParseInt(ctx.Query("shop_id"), 10, 64)
	if err != nil || shopID <= 0 {
		fail(ctx, http.StatusBadRequest, service.ErrShopIDRequired.Error())
		return
	}

	if err := c.cartSvc.Clear(ctx.Request.Context(), middleware.GetUserID(ctx), shopID); err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "购物车已清空", nil)
}

// ==================== 订单 ====================

// CreateOrder 从购物车下单
// @Summary 从购物车下单
// @Description 现金订单待支付，积分订单直接扣积分并完成支付
// @Tags Order
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateOrderRequest true "下单参数"
// @Success 201 {object} dto.OrderInfo
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Router /api/orders [post]
func (c *OrderController) CreateOrder(ctx *gin.Context) {
	var req dto.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	order, err := c.orderSvc.Checkout(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	created(ctx, "下单成功", order)
}

// ListOrders 订单列表
// @Summary 订单列表
// @Description 顾客只看自己的订单，商家看本店订单，管理员看全部
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param shop_id query int false "店铺ID（管理员）"
// @Param payment_method query string false "cash | points"
// @Param status query string false "订单状态"
// @Param search query string false "订单号/备注"
// @Param ordering query string false "created_at | total_amount | updated_at"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.PageResult[dto.OrderInfo]
// @Router /api/orders [get]
func (c *OrderController) ListOrders(ctx *gin.Context) {
	var req dto.OrderListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.orderSvc.List(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", page)
}

// OrderStats 订单统计
// @Summary 订单统计
// @Description 金额只统计已支付与已完成的订单
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param shop_id query int false "店铺ID（管理员）"
// @Param payment_method query string false "cash | points"
// @Param status query string false "订单状态"
// @Success 200 {object} dto.OrderStatsResponse
// @Router /api/orders/stats [get]
func (c *OrderController) OrderStats(ctx *gin.Context) {
	var req dto.OrderListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	stats, err := c.orderSvc.Stats(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", stats)
}

// GetOrder 订单详情
// @Summary 订单详情
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 200 {object} dto.OrderInfo
// @Failure 404 {object} map[string]interface{}
// @Router /api/orders/{id} [get]
func (c *OrderController) GetOrder(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	order, err := c.orderSvc.Get(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", order)
}

// GetOrderLogs 订单状态变更记录
// @Summary 订单状态变更记录
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 200 {array} model.OrderStatusLog
// @Router /api/orders/{id}/logs [get]
func (c *OrderController) GetOrderLogs(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	logs, err := c.orderSvc.Logs(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", logs)
}

// CancelOrder 取消订单
// @Summary 取消订单
// @Description 仅待支付订单可取消，库存回补
// @Tags Order
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Param request body dto.CancelOrderRequest false "取消原因"
// @Success 200 {object} dto.OrderInfo
// @Router /api/orders/{id}/cancel [post]
func (c *OrderController) CancelOrder(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.CancelOrderRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
	}

	order, err := c.orderSvc.Cancel(ctx.Request.Context(), actorFrom(ctx), id, req.Reason)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "订单已取消", order)
}

// UpdateOrderStatus 员工变更订单状态
// @Summary 变更订单状态
// @Description pending→paid/cancelled，paid→completed/refunded
// @Tags Order
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Param request body dto.OrderStatusRequest true "目标状态"
// @Success 200 {object} dto.OrderInfo
// @Failure 400 {object} map[string]interface{} "非法的状态流转"
// @Router /api/orders/{id}/status [post]
func (c *OrderController) UpdateOrderStatus(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.OrderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	order, err := c.orderSvc.Transition(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "状态已更新", order)
}
