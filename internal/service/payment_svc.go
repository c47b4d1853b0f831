package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
	"jiuba_platform/pkg/cache"
	"jiuba_platform/pkg/events"
	"jiuba_platform/pkg/utils"
	"jiuba_platform/pkg/wxpay"
)

// ==================== PaymentService 支付服务 ====================

// PaymentService 支付服务
type PaymentService struct {
	uow       *repository.UnitOfWork
	gateway   wxpay.Gateway
	apiKey    string // 回调验签
	locker    cache.Locker
	publisher events.Publisher
}

// NewPaymentService 创建支付服务
func NewPaymentService(uow *repository.UnitOfWork, gateway wxpay.Gateway, apiKey string, locker cache.Locker, publisher events.Publisher) *PaymentService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &PaymentService{
		uow:       uow,
		gateway:   gateway,
		apiKey:    apiKey,
		locker:    locker,
		publisher: publisher,
	}
}

func (s *PaymentService) publish(eventType string, order *model.Order) {
	events.PublishAsync(s.publisher, events.New(eventType, order.ID, map[string]interface{}{
		"order_number":   order.OrderNumber,
		"user_id":        order.UserID,
		"shop_id":        order.ShopID,
		"payment_method": order.PaymentMethod,
		"total_amount":   order.TotalAmount,
		"status":         order.Status,
	}))
}

// ==================== 发起支付 ====================

// Create 为待支付的现金订单发起支付
// 同一订单只有一条支付记录，失败的记录可重新发起
func (s *PaymentService) Create(ctx context.Context, actor Actor, req *dto.CreatePaymentRequest) (*dto.PaymentInfo, error) {
	method := model.PayMethod(req.Method)
	if method != model.PayWechat && method != model.PayBalance {
		return nil, ErrInvalidPayMethod
	}

	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("payment:order:%d", req.OrderID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		payment      *model.Payment
		order        *model.Order
		insufficient bool
	)
	err = s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		var err error
		order, err = tx.Orders.GetByID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if order == nil || order.UserID != actor.UserID {
			return ErrOrderNotFound
		}
		if order.PaymentMethod == model.PaymentPoints {
			return ErrPointsOrderNoPayment
		}
		if order.Status != model.OrderPending {
			return ErrOrderNotPayable
		}

		payment, err = tx.Payments.GetByOrderID(ctx, order.ID)
		if err != nil {
			return err
		}
		now := time.Now()
		if payment != nil {
			if payment.Status != model.PaymentFailed {
				return ErrPaymentExists
			}
			// 复用失败记录，重新生成商户单号
			payment.Method = method
			payment.Status = model.PaymentPending
			payment.Amount = order.TotalAmount
			payment.OutTradeNo = utils.OutTradeNo(now)
			payment.TransactionID = ""
			payment.FailReason = ""
			payment.PayParams = nil
			if err := tx.Payments.Update(ctx, payment); err != nil {
				return err
			}
		} else {
			payment = &model.Payment{
				OrderID:    order.ID,
				UserID:     actor.UserID,
				Amount:     order.TotalAmount,
				Method:     method,
				Status:     model.PaymentPending,
				OutTradeNo: utils.OutTradeNo(now),
			}
			if err := tx.Payments.Create(ctx, payment); err != nil {
				return err
			}
		}

		switch method {
		case model.PayWechat:
			return s.prepay(ctx, tx, order, payment)
		default:
			ok, err := tx.Users.DeductBalance(ctx, actor.UserID, payment.Amount)
			if err != nil {
				return err
			}
			if !ok {
				insufficient = true
				payment.Status = model.PaymentFailed
				payment.FailReason = ErrInsufficientBalance.Error()
				return tx.Payments.Update(ctx, payment)
			}
			return s.settle(ctx, tx, order, payment, utils.TransactionID(), nil)
		}
	})
	if err != nil {
		return nil, err
	}
	if insufficient {
		return nil, ErrInsufficientBalance
	}

	if payment.Status == model.PaymentSuccess {
		log.Info().Str("out_trade_no", payment.OutTradeNo).Int64("order_id", order.ID).Msg("余额支付成功")
		s.publish(events.OrderPaid, order)
	}
	return toPaymentInfo(payment), nil
}

// prepay 调用统一下单并保存前端调起参数
func (s *PaymentService) prepay(ctx context.Context, tx *repository.UnitOfWork, order *model.Order, payment *model.Payment) error {
	result, err := s.gateway.UnifiedOrder(ctx, &wxpay.UnifiedOrderRequest{
		OutTradeNo: payment.OutTradeNo,
		TotalFee:   toFen(payment),
		Body:       "订单 " + order.OrderNumber,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}

	params := s.gateway.PayParams(result.PrepayID)
	payment.PayParams = make(datatypes.JSONMap, len(params))
	for k, v := range params {
		payment.PayParams[k] = v
	}
	return tx.Payments.Update(ctx, payment)
}

// settle 支付成功：更新支付记录并将订单置为已支付，已处理过时直接返回
func (s *PaymentService) settle(ctx context.Context, tx *repository.UnitOfWork, order *model.Order, payment *model.Payment, transactionID string, payload datatypes.JSONMap) error {
	now := time.Now()
	fields := map[string]interface{}{
		"status":         model.PaymentSuccess,
		"transaction_id": transactionID,
		"paid_at":        now,
	}
	if payload != nil {
		fields["notify_payload"] = payload
	}
	ok, err := tx.Payments.UpdateStatus(ctx, payment.ID, model.PaymentPending, fields)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	payment.Status = model.PaymentSuccess
	payment.TransactionID = transactionID
	payment.PaidAt = &now

	if order.Status != model.OrderPending {
		log.Warn().
			Int64("order_id", order.ID).
			Str("status", string(order.Status)).
			Str("out_trade_no", payment.OutTradeNo).
			Msg("订单非待支付状态，支付成功需人工处理")
		return nil
	}
	return transitionOrder(ctx, tx, order, model.OrderPaid, payment.UserID, "支付成功", map[string]interface{}{
		"is_paid":        true,
		"paid_at":        now,
		"transaction_id": transactionID,
	})
}

// ==================== 支付回调 ====================

// HandleNotify 处理支付结果通知，重复通知幂等
func (s *PaymentService) HandleNotify(ctx context.Context, req *dto.WechatNotifyRequest) (*dto.PaymentInfo, error) {
	if req.OutTradeNo == "" {
		return nil, ErrPaymentNotFound
	}

	var (
		payment *model.Payment
		order   *model.Order
		paid    bool
	)
	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		var err error
		payment, err = tx.Payments.GetByOutTradeNo(ctx, req.OutTradeNo)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if payment.Status != model.PaymentPending {
			return nil
		}

		payload := datatypes.JSONMap{
			"out_trade_no":   req.OutTradeNo,
			"transaction_id": req.TransactionID,
			"result_code":    req.ResultCode,
		}
		if req.ResultCode != wxpay.TradeSuccess {
			payment.Status = model.PaymentFailed
			_, err := tx.Payments.UpdateStatus(ctx, payment.ID, model.PaymentPending, map[string]interface{}{
				"status":         model.PaymentFailed,
				"fail_reason":    "支付失败: " + req.ResultCode,
				"notify_payload": payload,
			})
			return err
		}

		order, err = tx.Orders.GetByID(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		transactionID := req.TransactionID
		if transactionID == "" {
			transactionID = utils.TransactionID()
		}
		if err := s.settle(ctx, tx, order, payment, transactionID, payload); err != nil {
			return err
		}
		paid = order.Status == model.OrderPaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("out_trade_no", req.OutTradeNo).
		Str("result_code", req.ResultCode).
		Str("status", string(payment.Status)).
		Msg("支付回调")
	if paid {
		s.publish(events.OrderPaid, order)
	}
	return toPaymentInfo(payment), nil
}

// HandleNotifyJSON JSON 通知只在模拟网关下免签，真实网关必须携带 sign
func (s *PaymentService) HandleNotifyJSON(ctx context.Context, req *dto.WechatNotifyRequest) (*dto.PaymentInfo, error) {
	if _, simulated := s.gateway.(*wxpay.MockGateway); !simulated {
		params := wxpay.Params{
			"out_trade_no":   req.OutTradeNo,
			"transaction_id": req.TransactionID,
			"result_code":    req.ResultCode,
			"sign":           req.Sign,
		}
		if s.apiKey == "" || !wxpay.Verify(params, s.apiKey) {
			log.Warn().Str("out_trade_no", req.OutTradeNo).Msg("JSON 支付回调验签失败")
			return nil, ErrNotifySignature
		}
	}
	return s.HandleNotify(ctx, req)
}

// HandleNotifyXML 处理 XML 格式通知，返回应答报文
func (s *PaymentService) HandleNotifyXML(ctx context.Context, body []byte) []byte {
	params, err := wxpay.DecodeXML(body)
	if err != nil {
		return wxpay.FailReply("报文格式错误")
	}
	if s.apiKey != "" && !wxpay.Verify(params, s.apiKey) {
		log.Warn().Str("out_trade_no", params["out_trade_no"]).Msg("支付回调验签失败")
		return wxpay.FailReply("签名错误")
	}

	resultCode := params["result_code"]
	if params["return_code"] != "" && params["return_code"] != wxpay.TradeSuccess {
		resultCode = params["return_code"]
	}
	_, err = s.HandleNotify(ctx, &dto.WechatNotifyRequest{
		OutTradeNo:    params["out_trade_no"],
		TransactionID: params["transaction_id"],
		ResultCode:    resultCode,
	})
	if err != nil {
		return wxpay.FailReply(err.Error())
	}
	return wxpay.SuccessReply()
}

// ==================== 退款 ====================

// Refund 退款仅限付款人本人：微信走网关，余额原路退回；已支付订单置为已退款并恢复库存
func (s *PaymentService) Refund(ctx context.Context, actor Actor, id int64, reason string) (*dto.PaymentInfo, error) {
	var (
		payment       *model.Payment
		order         *model.Order
		orderRefunded bool
	)
	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		var err error
		payment, order, err = s.visible(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if payment.UserID != actor.UserID {
			return ErrForbidden
		}
		if payment.Status != model.PaymentSuccess {
			return ErrPaymentNotRefundable
		}

		switch payment.Method {
		case model.PayWechat:
			fee := toFen(payment)
			if _, err := s.gateway.Refund(ctx, &wxpay.RefundRequest{
				OutTradeNo:  payment.OutTradeNo,
				OutRefundNo: "R" + payment.OutTradeNo,
				TotalFee:    fee,
				RefundFee:   fee,
				Reason:      reason,
			}); err != nil {
				return fmt.Errorf("%w: %v", ErrGateway, err)
			}
		case model.PayBalance:
			if err := tx.Users.AddBalance(ctx, payment.UserID, payment.Amount); err != nil {
				return err
			}
		}

		now := time.Now()
		ok, err := tx.Payments.UpdateStatus(ctx, payment.ID, model.PaymentSuccess, map[string]interface{}{
			"status":        model.PaymentRefunded,
			"refund_reason": reason,
			"refunded_at":   now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrPaymentNotRefundable
		}
		payment.Status = model.PaymentRefunded
		payment.RefundReason = reason
		payment.RefundedAt = &now

		if order.Status != model.OrderPaid {
			return nil
		}
		if err := transitionOrder(ctx, tx, order, model.OrderRefunded, actor.UserID, reason, nil); err != nil {
			return err
		}
		orderRefunded = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("out_trade_no", payment.OutTradeNo).Str("method", string(payment.Method)).Msg("支付已退款")
	if orderRefunded {
		s.publish(events.OrderRefunded, order)
	}
	return toPaymentInfo(payment), nil
}

// ==================== 查询 ====================

// List 我的支付记录
func (s *PaymentService) List(ctx context.Context, userID int64, q dto.PageQuery) (*dto.PageResult[dto.PaymentInfo], error) {
	payments, total, err := s.uow.Payments.ListByUser(ctx, userID, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	list := make([]dto.PaymentInfo, 0, len(payments))
	for i := range payments {
		list = append(list, *toPaymentInfo(&payments[i]))
	}
	return dto.NewPageResult(list, total, q), nil
}

// Get 支付详情
func (s *PaymentService) Get(ctx context.Context, actor Actor, id int64) (*dto.PaymentInfo, error) {
	payment, _, err := s.visible(ctx, s.uow, actor, id)
	if err != nil {
		return nil, err
	}
	return toPaymentInfo(payment), nil
}

// Query 查询支付状态，待支付的微信支付会向网关确认
func (s *PaymentService) Query(ctx context.Context, actor Actor, id int64) (*dto.PaymentQueryResponse, error) {
	payment, order, err := s.visible(ctx, s.uow, actor, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.PaymentQueryResponse{PaymentID: payment.ID}
	if payment.Status == model.PaymentPending && payment.Method == model.PayWechat {
		result, err := s.gateway.Query(ctx, payment.OutTradeNo)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGateway, err)
		}
		resp.TradeState = result.TradeState

		if result.TradeState == wxpay.TradeSuccess {
			info, err := s.HandleNotify(ctx, &dto.WechatNotifyRequest{
				OutTradeNo:    payment.OutTradeNo,
				TransactionID: result.TransactionID,
				ResultCode:    wxpay.TradeSuccess,
			})
			if err != nil {
				return nil, err
			}
			resp.Status = info.Status
			resp.OrderPaid = true
			return resp, nil
		}
	}

	resp.Status = string(payment.Status)
	resp.OrderPaid = order.IsPaid
	return resp, nil
}

// ExpirePending 超时未支付的微信支付置为失败，返回处理数量
func (s *PaymentService) ExpirePending(ctx context.Context, before time.Time, limit int) (int, error) {
	payments, err := s.uow.Payments.ListPendingBefore(ctx, model.PayWechat, before, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, payment := range payments {
		ok, err := s.uow.Payments.UpdateStatus(ctx, payment.ID, model.PaymentPending, map[string]interface{}{
			"status":      model.PaymentFailed,
			"fail_reason": "支付超时",
		})
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

// visible 支付记录本人可见，员工可见本店订单的支付
func (s *PaymentService) visible(ctx context.Context, uow *repository.UnitOfWork, actor Actor, id int64) (*model.Payment, *model.Order, error) {
	payment, err := uow.Payments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, ErrPaymentNotFound
	}
	order, err := uow.Orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, ErrOrderNotFound
	}
	if payment.UserID != actor.UserID && !actor.CanManageShop(order.ShopID) {
		return nil, nil, ErrPaymentNotFound
	}
	return payment, order, nil
}

// IsNotifyClientError 回调中可以直接返回 400 的错误
func IsNotifyClientError(err error) bool {
	return errors.Is(err, ErrPaymentNotFound) || errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrNotifySignature)
}

// toFen 元转分
func toFen(payment *model.Payment) int64 {
	return payment.Amount.Shift(2).Round(0).IntPart()
}

func toPaymentInfo(p *model.Payment) *dto.PaymentInfo {
	info := &dto.PaymentInfo{
		ID:            p.ID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		Method:        string(p.Method),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		OutTradeNo:    p.OutTradeNo,
		FailReason:    p.FailReason,
		RefundReason:  p.RefundReason,
		CreatedAt:     p.CreatedAt,
		PaidAt:        p.PaidAt,
		RefundedAt:    p.RefundedAt,
	}
	if len(p.PayParams) > 0 {
		info.PayParams = make(map[string]string, len(p.PayParams))
		for k, v := range p.PayParams {
			info.PayParams[k] = fmt.Sprint(v)
		}
	}
	return info
}
