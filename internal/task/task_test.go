package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jiuba_platform/internal/config"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
)

// ==================== 测试替身 ====================

type fakeExpirer struct {
	mu      sync.Mutex
	pending int
	calls   []time.Time
	err     error
}

func (f *fakeExpirer) ExpirePending(_ context.Context, before time.Time, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, before)
	if f.err != nil {
		return 0, f.err
	}
	n := f.pending
	if n > limit {
		n = limit
	}
	f.pending -= n
	return n, nil
}

func (f *fakeExpirer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeCompleter) CompleteEnded(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 2, nil
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

// ==================== 配置 ====================

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.TasksConfig{OrderExpireAfter: time.Hour})
	assert.Equal(t, time.Hour, cfg.OrderExpireAfter)
	assert.Equal(t, 30*time.Minute, cfg.PaymentExpireAfter)
	assert.Equal(t, 30*24*time.Hour, cfg.CartIdleAfter)
	assert.Equal(t, 100, cfg.BatchSize)
}

// ==================== 支付超时 ====================

func TestPaymentExpire_DrainsInBatches(t *testing.T) {
	payments := &fakeExpirer{pending: 5}
	tm := NewTaskManager(&TaskManagerDeps{Payments: payments, Now: fixedNow}, &TaskManagerConfig{
		PaymentExpireAfter: 30 * time.Minute,
		BatchSize:          2,
	})

	require.NoError(t, tm.TriggerPaymentExpire(context.Background()))

	// 2 + 2 + 1
	assert.Equal(t, 3, payments.callCount())
	assert.Zero(t, payments.pending)
	assert.Equal(t, fixedNow().Add(-30*time.Minute), payments.calls[0])
}

func TestOrderExpire_SingleBatchAndError(t *testing.T) {
	orders := &fakeExpirer{pending: 5}
	tm := NewTaskManager(&TaskManagerDeps{Orders: orders, Now: fixedNow}, &TaskManagerConfig{
		OrderExpireAfter: 24 * time.Hour,
		BatchSize:        2,
	})

	require.NoError(t, tm.TriggerOrderExpire(context.Background()))
	assert.Equal(t, 1, orders.callCount())
	assert.Equal(t, fixedNow().Add(-24*time.Hour), orders.calls[0])

	orders.err = errors.New("db down")
	assert.Error(t, tm.TriggerOrderExpire(context.Background()))

	status := tm.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "OrderExpireTask", status[0].Name)
	assert.Equal(t, 2, status[0].RunCount)
	assert.Equal(t, "db down", status[0].LastErr)
}

func TestDisabledTasks(t *testing.T) {
	tm := NewTaskManager(&TaskManagerDeps{}, nil)
	ctx := context.Background()

	assert.ErrorIs(t, tm.TriggerPaymentExpire(ctx), ErrTaskDisabled)
	assert.ErrorIs(t, tm.TriggerOrderExpire(ctx), ErrTaskDisabled)
	assert.ErrorIs(t, tm.TriggerReservationComplete(ctx), ErrTaskDisabled)
	assert.ErrorIs(t, tm.TriggerCartCleanup(ctx), ErrTaskDisabled)
	assert.Empty(t, tm.Status())
}

// ==================== 生命周期 ====================

func TestStartRunsOnceAndStopWaits(t *testing.T) {
	completer := &fakeCompleter{}
	tm := NewTaskManager(&TaskManagerDeps{Reservations: completer}, nil)

	require.NoError(t, tm.Start())
	// 重复启动不会重复注册
	require.NoError(t, tm.reservationTask.Start())
	tm.Stop()

	completer.mu.Lock()
	calls := completer.calls
	completer.mu.Unlock()
	assert.Equal(t, 1, calls)

	status := tm.Status()
	require.Len(t, status, 1)
	assert.False(t, status[0].Running)

	// 停止后可再次启动
	require.NoError(t, tm.Start())
	tm.Stop()
	assert.Equal(t, 2, tm.Status()[0].RunCount)
}

func TestInvalidSpec(t *testing.T) {
	task := newCronTask("Broken", "not a cron spec", time.Second, func(context.Context) error { return nil })
	assert.Error(t, task.Start())
	task.Stop()
}

// ==================== 购物车清理 ====================

func setupTaskTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func TestCartCleanup(t *testing.T) {
	db := setupTaskTestDB(t)
	uow := repository.NewUnitOfWork(db)
	ctx := context.Background()

	shop := &model.Shop{Name: "清理店", IsActive: true}
	if err := uow.Shops.Create(ctx, shop); err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}

	stale, err := uow.Carts.GetOrCreate(ctx, 1, shop.ID)
	if err != nil {
		t.Fatalf("创建购物车失败: %v", err)
	}
	if _, err := uow.Carts.GetOrCreate(ctx, 2, shop.ID); err != nil {
		t.Fatalf("创建购物车失败: %v", err)
	}
	if err := uow.Carts.Touch(ctx, stale.ID, fixedNow().Add(-40*24*time.Hour)); err != nil {
		t.Fatalf("更新时间失败: %v", err)
	}

	tm := NewTaskManager(&TaskManagerDeps{Carts: uow.Carts, Now: fixedNow}, nil)
	if err := tm.TriggerCartCleanup(ctx); err != nil {
		t.Fatalf("清理失败: %v", err)
	}

	carts, _ := uow.Carts.ListByUser(ctx, 1)
	if len(carts) != 0 {
		t.Errorf("闲置购物车应被删除, got %d", len(carts))
	}
	carts, _ = uow.Carts.ListByUser(ctx, 2)
	if len(carts) != 1 {
		t.Errorf("活跃购物车应保留, got %d", len(carts))
	}
}
