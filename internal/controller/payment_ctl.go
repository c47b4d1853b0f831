package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/middleware"
	"jiuba_platform/internal/service"
)

const maxNotifyBody = 64 << 10

// PaymentController 支付
type PaymentController struct {
	paymentSvc *service.PaymentService
}

func NewPaymentController(paymentSvc *service.PaymentService) *PaymentController {
	return &PaymentController{paymentSvc: paymentSvc}
}

// CreatePayment 发起支付
// @Summary 发起支付
// @Description wechat 返回前端调起支付的参数；balance 直接扣减余额
// @Tags Payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePaymentRequest true "订单与支付方式"
// @Success 201 {object} dto.PaymentInfo
// @Failure 400 {object} map[string]interface{} "余额不足或订单状态不允许"
// @Router /api/payments [post]
func (c *PaymentController) CreatePayment(ctx *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	payment, err := c.paymentSvc.Create(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	created(ctx, "支付已创建", payment)
}

// ListPayments 我的支付记录
// @Summary 我的支付记录
// @Tags Payment
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.PageResult[dto.PaymentInfo]
// @Router /api/payments [get]
func (c *PaymentController) ListPayments(ctx *gin.Context) {
	var q dto.PageQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.paymentSvc.List(ctx.Request.Context(), middleware.GetUserID(ctx), q)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", page)
}

// GetPayment 支付详情
// @Summary 支付详情
// @Tags Payment
// @Produce json
// @Security BearerAuth
// @Param id path int true "支付ID"
// @Success 200 {object} dto.PaymentInfo
// @Router /api/payments/{id} [get]
func (c *PaymentController) GetPayment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	payment, err := c.paymentSvc.Get(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", payment)
}

// QueryPayment 查询支付状态
// @Summary 查询支付状态
// @Description 待支付的微信支付会向网关确认
// @Tags Payment
// @Produce json
// @Security BearerAuth
// @Param id path int true "支付ID"
// @Success 200 {object} dto.PaymentQueryResponse
// @Router /api/payments/{id}/query [get]
func (c *PaymentController) QueryPayment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	resp, err := c.paymentSvc.Query(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", resp)
}

// RefundPayment 申请退款
// @Summary 申请退款
// @Tags Payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "支付ID"
// @Param request body dto.RefundPaymentRequest false "退款原因"
// @Success 200 {object} dto.PaymentInfo
// @Router /api/payments/{id}/refund [post]
func (c *PaymentController) RefundPayment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.RefundPaymentRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
	}

	payment, err := c.paymentSvc.Refund(ctx.Request.Context(), actorFrom(ctx), id, req.Reason)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "退款成功", payment)
}

// WechatNotify 微信支付回调
// @Summary 微信支付回调
// @Description XML 报文按微信协议应答；JSON 报文在 remote 模式下需带 sign
// @Tags Payment
// @Accept json,xml
// @Produce json,xml
// @Param request body dto.WechatNotifyRequest false "JSON 回调"
// @Success 200 {object} dto.PaymentInfo
// @Failure 400 {object} map[string]interface{} "未知的商户订单号"
// @Router /api/payments/wechat/callback [post]
func (c *PaymentController) WechatNotify(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxNotifyBody))
	if err != nil {
		fail(ctx, http.StatusBadRequest, "读取回调报文失败")
		return
	}

	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("<")) {
		reply := c.paymentSvc.HandleNotifyXML(ctx.Request.Context(), body)
		ctx.Data(http.StatusOK, "application/xml; charset=utf-8", reply)
		return
	}

	var req dto.WechatNotifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		fail(ctx, http.StatusBadRequest, "回调报文格式错误")
		return
	}

	payment, err := c.paymentSvc.HandleNotifyJSON(ctx.Request.Context(), &req)
	if err != nil {
		if service.IsNotifyClientError(err) {
			fail(ctx, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("out_trade_no", req.OutTradeNo).Msg("[WechatNotify] 处理回调失败")
		handleError(ctx, err)
		return
	}
	success(ctx, "SUCCESS", payment)
}
