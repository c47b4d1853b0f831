package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/middleware"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
	"jiuba_platform/pkg/cache"
	"jiuba_platform/pkg/events"
	"jiuba_platform/pkg/utils"
)

// ==================== OrderService 订单服务 ====================

// OrderService 订单服务
type OrderService struct {
	uow       *repository.UnitOfWork
	locker    cache.Locker
	publisher events.Publisher
	limiter   *middleware.CooldownLimiter
	cooldown  time.Duration
}

// NewOrderService 创建订单服务，cooldown 为同一用户两次下单的最小间隔
func NewOrderService(uow *repository.UnitOfWork, locker cache.Locker, publisher events.Publisher, cooldown time.Duration) *OrderService {
	if cooldown <= 0 {
		cooldown = middleware.GetInterval(middleware.ActionCheckout)
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &OrderService{
		uow:       uow,
		locker:    locker,
		publisher: publisher,
		limiter:   middleware.NewCooldownLimiter(),
		cooldown:  cooldown,
	}
}

// orderEvent 事件载荷
type orderEvent struct {
	OrderNumber   string          `json:"order_number"`
	UserID        int64           `json:"user_id"`
	ShopID        int64           `json:"shop_id"`
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalPoints   int64           `json:"total_points"`
	Status        string          `json:"status"`
}

func (s *OrderService) publish(eventType string, order *model.Order) {
	events.PublishAsync(s.publisher, events.New(eventType, order.ID, orderEvent{
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		ShopID:        order.ShopID,
		PaymentMethod: string(order.PaymentMethod),
		TotalAmount:   order.TotalAmount,
		TotalPoints:   order.TotalPoints,
		Status:        string(order.Status),
	}))
}

// ==================== 下单 ====================

// Checkout 从购物车创建订单
// 现金订单创建后待支付；积分订单直接扣积分并置为已支付
func (s *OrderService) Checkout(ctx context.Context, actor Actor, req *dto.CreateOrderRequest) (*dto.OrderInfo, error) {
	method := model.PaymentMethod(req.PaymentMethod)
	if method != model.PaymentCash && method != model.PaymentPoints {
		return nil, ErrInvalidPayMethod
	}

	key := middleware.UserActionKey(actor.UserID, middleware.ActionCheckout)
	if res := s.limiter.Check(key, s.cooldown); !res.Allowed {
		return nil, ErrTooFrequent
	}

	order, err := s.checkout(ctx, actor.UserID, req.ShopID, method, req.CustomerNotes)
	if err != nil {
		// 业务失败允许立即重试
		s.limiter.Reset(key)
		return nil, err
	}

	log.Info().
		Str("order_number", order.OrderNumber).
		Int64("user_id", order.UserID).
		Int64("shop_id", order.ShopID).
		Str("payment_method", string(order.PaymentMethod)).
		Msg("订单创建成功")

	s.publish(events.OrderCreated, order)
	if order.Status == model.OrderPaid {
		s.publish(events.OrderPaid, order)
	}
	return s.Get(ctx, actor, order.ID)
}

func (s *OrderService) checkout(ctx context.Context, userID, shopID int64, method model.PaymentMethod, notes string) (*model.Order, error) {
	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("checkout:%d:%d", userID, shopID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var order *model.Order
	err = s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		shop, err := tx.Shops.GetByID(ctx, shopID)
		if err != nil {
			return err
		}
		if shop == nil {
			return ErrShopNotFound
		}
		if !shop.IsActive {
			return ErrShopInactive
		}

		cart, err := tx.Carts.GetByUserShop(ctx, userID, shopID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartNotFound
		}
		if len(cart.Items) == 0 {
			return ErrCartEmpty
		}

		now := time.Now()
		order = &model.Order{
			OrderNumber:   utils.OrderNumber(now),
			UserID:        userID,
			ShopID:        shopID,
			PaymentMethod: method,
			TotalAmount:   decimal.Zero,
			Status:        model.OrderPending,
			CustomerNotes: strings.TrimSpace(notes),
			Items:         make([]model.OrderItem, 0, len(cart.Items)),
		}

		for i := range cart.Items {
			item := &cart.Items[i]
			product := item.Product
			if product == nil {
				return ErrProductNotFound
			}
			if !product.IsPurchasable() {
				return fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
			}
			if method == model.PaymentPoints && !product.CanBuyWithPoints() {
				return fmt.Errorf("%w: %s", ErrPointsNotSupported, product.Name)
			}

			ok, err := tx.Products.DecrementStock(ctx, product.ID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
			}

			productID := product.ID
			order.Items = append(order.Items, model.OrderItem{
				ProductID:          &productID,
				ProductName:        product.Name,
				ProductPrice:       item.Price,
				ProductPointsPrice: product.PointsPrice,
				Quantity:           item.Quantity,
			})
		}

		if method == model.PaymentPoints {
			order.TotalPoints = cart.TotalPoints()
			ok, err := tx.Users.DeductPoints(ctx, userID, order.TotalPoints)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInsufficientPoints
			}
			order.Status = model.OrderPaid
			order.IsPaid = true
			order.PaidAt = &now
			order.TransactionID = utils.TransactionID()
		} else {
			order.TotalAmount = cartAmount(cart)
		}

		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}
		if err := tx.Carts.ClearItems(ctx, cart.ID); err != nil {
			return err
		}
		return tx.Orders.CreateLog(ctx, &model.OrderStatusLog{
			OrderID:    order.ID,
			ToStatus:   order.Status,
			OperatorID: userID,
			Note:       "下单",
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ==================== 查询 ====================

// orderFilter 按角色确定可见范围：顾客本人，商家本店，管理员全部
func orderFilter(actor Actor, req *dto.OrderListRequest) (repository.OrderFilter, error) {
	filter := repository.OrderFilter{
		PaymentMethod: req.PaymentMethod,
		Status:        req.Status,
		Search:        strings.TrimSpace(req.Search),
		Ordering:      req.Ordering,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}
	if actor.IsStaff() {
		scope, err := actor.ShopScope(req.ShopID)
		if err != nil {
			return filter, err
		}
		filter.ShopID = scope
		return filter, nil
	}
	userID := actor.UserID
	filter.UserID = &userID
	filter.ShopID = req.ShopID
	return filter, nil
}

// List 订单列表
func (s *OrderService) List(ctx context.Context, actor Actor, req *dto.OrderListRequest) (*dto.PageResult[dto.OrderInfo], error) {
	filter, err := orderFilter(actor, req)
	if err != nil {
		return nil, err
	}
	orders, total, err := s.uow.Orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	list := make([]dto.OrderInfo, 0, len(orders))
	for i := range orders {
		list = append(list, *toOrderInfo(&orders[i]))
	}
	return dto.NewPageResult(list, total, req.PageQuery), nil
}

// Stats 订单统计，范围与列表一致
func (s *OrderService) Stats(ctx context.Context, actor Actor, req *dto.OrderListRequest) (*dto.OrderStatsResponse, error) {
	filter, err := orderFilter(actor, req)
	if err != nil {
		return nil, err
	}
	stats, err := s.uow.Orders.Stats(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.OrderStatsResponse{
		TotalOrders:       stats.TotalOrders,
		TotalCashAmount:   stats.TotalCashAmount,
		TotalPointsAmount: stats.TotalPointsAmount,
		CashOrders:        stats.CashOrders,
		PointsOrders:      stats.PointsOrders,
	}, nil
}

// Get 订单详情
func (s *OrderService) Get(ctx context.Context, actor Actor, id int64) (*dto.OrderInfo, error) {
	order, err := s.visible(ctx, s.uow, actor, id)
	if err != nil {
		return nil, err
	}
	return toOrderInfo(order), nil
}

// Logs 订单状态变更记录
func (s *OrderService) Logs(ctx context.Context, actor Actor, id int64) ([]model.OrderStatusLog, error) {
	if _, err := s.visible(ctx, s.uow, actor, id); err != nil {
		return nil, err
	}
	return s.uow.Orders.ListLogs(ctx, id)
}

// visible 获取订单并校验可见性，不可见按不存在处理
func (s *OrderService) visible(ctx context.Context, uow *repository.UnitOfWork, actor Actor, id int64) (*model.Order, error) {
	order, err := uow.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID == actor.UserID || actor.CanManageShop(order.ShopID) {
		return order, nil
	}
	return nil, ErrOrderNotFound
}

// ==================== 状态流转 ====================

// Cancel 取消待支付订单，订单本人或员工可操作
func (s *OrderService) Cancel(ctx context.Context, actor Actor, id int64, reason string) (*dto.OrderInfo, error) {
	var order *model.Order
	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		var err error
		order, err = s.visible(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		return transitionOrder(ctx, tx, order, model.OrderCancelled, actor.UserID, reason, nil)
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.OrderCancelled, order)
	return s.Get(ctx, actor, id)
}

// Transition 员工变更订单状态
//   - pending -> paid: 柜台收款（仅现金订单）
//   - paid -> completed
//   - paid -> refunded: 积分订单退回积分；现金订单需通过支付退款
//   - pending -> cancelled
func (s *OrderService) Transition(ctx context.Context, actor Actor, id int64, req *dto.OrderStatusRequest) (*dto.OrderInfo, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	to := model.OrderStatus(req.Status)

	var order *model.Order
	err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		var err error
		order, err = tx.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if !actor.CanManageShop(order.ShopID) {
			return ErrForbidden
		}

		switch to {
		case model.OrderPaid:
			if order.PaymentMethod != model.PaymentCash {
				return ErrInvalidTransition
			}
			now := time.Now()
			return transitionOrder(ctx, tx, order, to, actor.UserID, req.Note, map[string]interface{}{
				"is_paid":        true,
				"paid_at":        now,
				"transaction_id": utils.TransactionID(),
			})
		case model.OrderRefunded:
			if order.PaymentMethod == model.PaymentCash {
				return ErrCashRefundByPay
			}
			if err := transitionOrder(ctx, tx, order, to, actor.UserID, req.Note, nil); err != nil {
				return err
			}
			return tx.Users.AddPoints(ctx, order.UserID, order.TotalPoints)
		default:
			return transitionOrder(ctx, tx, order, to, actor.UserID, req.Note, nil)
		}
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("order_id", id).Str("status", string(to)).Int64("operator_id", actor.UserID).Msg("订单状态变更")
	switch to {
	case model.OrderPaid:
		s.publish(events.OrderPaid, order)
	case model.OrderCancelled:
		s.publish(events.OrderCancelled, order)
	case model.OrderRefunded:
		s.publish(events.OrderRefunded, order)
	}
	return s.Get(ctx, actor, id)
}

// ExpirePending 取消超时未支付的订单，返回取消数量
func (s *OrderService) ExpirePending(ctx context.Context, before time.Time, limit int) (int, error) {
	orders, err := s.uow.Orders.ListPendingBefore(ctx, before, limit)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range orders {
		order := &orders[i]
		err := s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
			return transitionOrder(ctx, tx, order, model.OrderCancelled, 0, "超时未支付自动取消", nil)
		})
		if err != nil {
			log.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("自动取消订单失败")
			continue
		}
		cancelled++
		s.publish(events.OrderCancelled, order)
	}
	return cancelled, nil
}

// transitionOrder 条件更新订单状态并记录日志，取消/退款时恢复库存
// 必须在事务内调用
func transitionOrder(ctx context.Context, tx *repository.UnitOfWork, order *model.Order, to model.OrderStatus, operatorID int64, note string, fields map[string]interface{}) error {
	from := order.Status
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	ok, err := tx.Orders.UpdateStatus(ctx, order.ID, from, to, fields)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}

	if to == model.OrderCancelled || to == model.OrderRefunded {
		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			if err := tx.Products.IncrementStock(ctx, *item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
	}

	var extra datatypes.JSONMap
	if txID, ok := fields["transaction_id"].(string); ok && txID != "" {
		extra = datatypes.JSONMap{"transaction_id": txID}
	}
	if err := tx.Orders.CreateLog(ctx, &model.OrderStatusLog{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		OperatorID: operatorID,
		Note:       note,
		Extra:      extra,
	}); err != nil {
		return err
	}

	order.Status = to
	if to == model.OrderPaid {
		order.IsPaid = true
	}
	return nil
}

// ==================== 转换 ====================

func toOrderInfo(order *model.Order) *dto.OrderInfo {
	info := &dto.OrderInfo{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		ShopID:        order.ShopID,
		PaymentMethod: string(order.PaymentMethod),
		TotalAmount:   order.TotalAmount,
		TotalPoints:   order.TotalPoints,
		Status:        string(order.Status),
		IsPaid:        order.IsPaid,
		PaidAt:        order.PaidAt,
		TransactionID: order.TransactionID,
		CustomerNotes: order.CustomerNotes,
		Items:         make([]dto.OrderItemInfo, 0, len(order.Items)),
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	if order.Shop != nil {
		info.ShopName = order.Shop.Name
	}
	for i := range order.Items {
		item := &order.Items[i]
		info.Items = append(info.Items, dto.OrderItemInfo{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			ProductName:        item.ProductName,
			ProductPrice:       item.ProductPrice,
			ProductPointsPrice: item.ProductPointsPrice,
			Quantity:           item.Quantity,
			Subtotal:           item.Subtotal(),
			PointsSubtotal:     item.PointsSubtotal(),
		})
	}
	return info
}
