package task

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"jiuba_platform/internal/config"
)

// ==================== TaskManager 后台维护任务管理器 ====================

// TaskManager 统一管理后台维护任务
// 管理范围：支付超时、订单超时、预约完成、购物车清理
type TaskManager struct {
	paymentTask     *cronTask
	orderTask       *cronTask
	reservationTask *cronTask
	cartTask        *cronTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Payments     PendingExpirer
	Orders       PendingExpirer
	Reservations ReservationCompleter
	Carts        CartCleaner

	// Now 测试时替换
	Now func() time.Time
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	PaymentExpireAfter time.Duration
	OrderExpireAfter   time.Duration
	CartIdleAfter      time.Duration
	BatchSize          int
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		PaymentExpireAfter: 30 * time.Minute,
		OrderExpireAfter:   24 * time.Hour,
		CartIdleAfter:      30 * 24 * time.Hour,
		BatchSize:          100,
	}
}

// ConfigFrom 由配置文件生成，未配置的项使用默认值
func ConfigFrom(cfg config.TasksConfig) *TaskManagerConfig {
	out := DefaultConfig()
	if cfg.PaymentExpireAfter > 0 {
		out.PaymentExpireAfter = cfg.PaymentExpireAfter
	}
	if cfg.OrderExpireAfter > 0 {
		out.OrderExpireAfter = cfg.OrderExpireAfter
	}
	if cfg.CartIdleAfter > 0 {
		out.CartIdleAfter = cfg.CartIdleAfter
	}
	return out
}

// NewTaskManager 创建任务管理器，依赖为空的任务不启用
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	tm := &TaskManager{}
	if deps.Payments != nil {
		tm.paymentTask = newPaymentExpireTask(deps.Payments, cfg.PaymentExpireAfter, cfg.BatchSize, now)
	}
	if deps.Orders != nil {
		tm.orderTask = newOrderExpireTask(deps.Orders, cfg.OrderExpireAfter, cfg.BatchSize, now)
	}
	if deps.Reservations != nil {
		tm.reservationTask = newReservationCompleteTask(deps.Reservations)
	}
	if deps.Carts != nil {
		tm.cartTask = newCartCleanupTask(deps.Carts, cfg.CartIdleAfter, now)
	}
	return tm
}

func (tm *TaskManager) tasks() []*cronTask {
	var out []*cronTask
	for _, t := range []*cronTask{tm.paymentTask, tm.orderTask, tm.reservationTask, tm.cartTask} {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	log.Info().Msg("[TaskManager] 正在启动后台任务...")

	for _, t := range tm.tasks() {
		if err := t.Start(); err != nil {
			return err
		}
	}

	log.Info().Msg("[TaskManager] 后台任务已全部启动")
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Info().Msg("[TaskManager] 正在停止后台任务...")

	for _, t := range tm.tasks() {
		t.Stop()
	}

	log.Info().Msg("[TaskManager] 后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerPaymentExpire 立即关闭超时支付
func (tm *TaskManager) TriggerPaymentExpire(ctx context.Context) error {
	if tm.paymentTask == nil {
		return ErrTaskDisabled
	}
	return tm.paymentTask.RunNow(ctx)
}

// TriggerOrderExpire 立即取消超时订单
func (tm *TaskManager) TriggerOrderExpire(ctx context.Context) error {
	if tm.orderTask == nil {
		return ErrTaskDisabled
	}
	return tm.orderTask.RunNow(ctx)
}

// TriggerReservationComplete 立即完成已结束活动的预约
func (tm *TaskManager) TriggerReservationComplete(ctx context.Context) error {
	if tm.reservationTask == nil {
		return ErrTaskDisabled
	}
	return tm.reservationTask.RunNow(ctx)
}

// TriggerCartCleanup 立即清理闲置购物车
func (tm *TaskManager) TriggerCartCleanup(ctx context.Context) error {
	if tm.cartTask == nil {
		return ErrTaskDisabled
	}
	return tm.cartTask.RunNow(ctx)
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() []Status {
	tasks := tm.tasks()
	out := make([]Status, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.status())
	}
	return out
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
