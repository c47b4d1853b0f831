package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ==================== cronTask 定时任务骨架 ====================

// cronTask 启动时先执行一次，之后按 cron 表达式周期执行
// 上一轮未结束时跳过本轮
type cronTask struct {
	name     string
	spec     string
	timeout  time.Duration
	run      func(ctx context.Context) error
	cron     *cron.Cron
	logger   zerolog.Logger
	mu       sync.Mutex
	started  bool
	initial  sync.WaitGroup
	runMu    sync.Mutex
	lastRun  time.Time
	lastErr  error
	runCount int
}

func newCronTask(name, spec string, timeout time.Duration, run func(ctx context.Context) error) *cronTask {
	return &cronTask{
		name:    name,
		spec:    spec,
		timeout: timeout,
		run:     run,
		logger:  log.With().Str("task", name).Logger(),
	}
}

// Start 启动定时任务，重复调用无副作用，Stop 之后可再次启动
func (t *cronTask) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(t.spec, t.execute); err != nil {
		t.logger.Error().Err(err).Msgf("[%s] 定时任务启动失败", t.name)
		return err
	}

	// 首次执行
	t.initial.Add(1)
	go func() {
		defer t.initial.Done()
		t.execute()
	}()

	t.cron = c
	t.cron.Start()
	t.started = true
	t.logger.Info().Str("spec", t.spec).Msgf("[%s] 已启动", t.name)
	return nil
}

// Stop 停止任务并等待正在执行的一轮结束
func (t *cronTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}

	<-t.cron.Stop().Done()
	t.initial.Wait()
	t.started = false
	t.logger.Info().Msgf("[%s] 已停止", t.name)
}

// RunNow 同步执行一轮
func (t *cronTask) RunNow(ctx context.Context) error {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	start := time.Now()
	err := t.run(ctx)
	t.lastRun = start
	t.lastErr = err
	t.runCount++

	if err != nil {
		t.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msgf("[%s] 执行失败", t.name)
	}
	return err
}

func (t *cronTask) execute() {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	_ = t.RunNow(ctx)
}

// Status 任务状态
type Status struct {
	Name     string    `json:"name"`
	Spec     string    `json:"spec"`
	Running  bool      `json:"running"`
	LastRun  time.Time `json:"last_run"`
	LastErr  string    `json:"last_error,omitempty"`
	RunCount int       `json:"run_count"`
}

func (t *cronTask) status() Status {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()

	t.runMu.Lock()
	defer t.runMu.Unlock()
	s := Status{
		Name:     t.name,
		Spec:     t.spec,
		Running:  started,
		LastRun:  t.lastRun,
		RunCount: t.runCount,
	}
	if t.lastErr != nil {
		s.LastErr = t.lastErr.Error()
	}
	return s
}
