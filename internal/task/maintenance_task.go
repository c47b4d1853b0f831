package task

import (
	"context"
	"time"
)

// PendingExpirer 超时未支付记录的处理方，订单与支付服务均实现
type PendingExpirer interface {
	ExpirePending(ctx context.Context, before time.Time, limit int) (int, error)
}

// ReservationCompleter 已结束活动的预约自动完成
type ReservationCompleter interface {
	CompleteEnded(ctx context.Context) (int64, error)
}

// CartCleaner 清理长期未使用的购物车
type CartCleaner interface {
	DeleteIdleBefore(ctx context.Context, before time.Time) (int64, error)
}

// ==================== 支付超时 ====================

// newPaymentExpireTask 每分钟把超时的微信待支付记录置为失败
func newPaymentExpireTask(svc PendingExpirer, after time.Duration, batch int, now func() time.Time) *cronTask {
	t := newCronTask("PaymentExpireTask", "0 * * * * *", time.Minute, nil)
	t.run = func(ctx context.Context) error {
		total := 0
		for {
			n, err := svc.ExpirePending(ctx, now().Add(-after), batch)
			total += n
			if err != nil {
				return err
			}
			if n < batch || ctx.Err() != nil {
				break
			}
		}
		if total > 0 {
			t.logger.Info().Int("expired", total).Msgf("[%s] 超时支付已关闭", t.name)
		}
		return nil
	}
	return t
}

// ==================== 订单超时 ====================

// newOrderExpireTask 每 5 分钟取消超时未支付的订单，库存回补
func newOrderExpireTask(svc PendingExpirer, after time.Duration, batch int, now func() time.Time) *cronTask {
	t := newCronTask("OrderExpireTask", "0 */5 * * * *", 5*time.Minute, nil)
	t.run = func(ctx context.Context) error {
		n, err := svc.ExpirePending(ctx, now().Add(-after), batch)
		if err != nil {
			return err
		}
		if n > 0 {
			t.logger.Info().Int("cancelled", n).Msgf("[%s] 超时订单已取消", t.name)
		}
		return nil
	}
	return t
}

// ==================== 预约完成 ====================

func newReservationCompleteTask(svc ReservationCompleter) *cronTask {
	t := newCronTask("ReservationCompleteTask", "0 */10 * * * *", 5*time.Minute, nil)
	t.run = func(ctx context.Context) error {
		n, err := svc.CompleteEnded(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			t.logger.Info().Int64("completed", n).Msgf("[%s] 预约已自动完成", t.name)
		}
		return nil
	}
	return t
}

// ==================== 购物车清理 ====================

// newCartCleanupTask 每天 03:30 清理
func newCartCleanupTask(carts CartCleaner, idle time.Duration, now func() time.Time) *cronTask {
	t := newCronTask("CartCleanupTask", "0 30 3 * * *", 10*time.Minute, nil)
	t.run = func(ctx context.Context) error {
		n, err := carts.DeleteIdleBefore(ctx, now().Add(-idle))
		if err != nil {
			return err
		}
		t.logger.Info().Int64("deleted", n).Msgf("[%s] 清理闲置购物车", t.name)
		return nil
	}
	return t
}
