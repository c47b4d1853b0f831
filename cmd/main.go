package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/config"
	"jiuba_platform/internal/controller"
	"jiuba_platform/internal/middleware"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
	"jiuba_platform/internal/router"
	"jiuba_platform/internal/service"
	"jiuba_platform/internal/task"
	"jiuba_platform/pkg/cache"
	"jiuba_platform/pkg/database"
	"jiuba_platform/pkg/events"
	"jiuba_platform/pkg/logger"
	"jiuba_platform/pkg/wxpay"
)

// @title 酒吧点单平台 API
// @version 1.0
// @description 多店铺酒吧点单、支付、活动预约后台接口
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := &cli.App{
		Name:  "jiuba",
		Usage: "酒吧点单平台",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
				EnvVars: []string{"JIUBA_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "启动 HTTP 服务和后台任务",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "migrate", Value: true, Usage: "启动前自动迁移表结构"},
				},
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "迁移表结构",
				Action: runMigrate,
			},
			{
				Name:  "setup-merchant",
				Usage: "创建或重置商家账号",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.Int64Flag{Name: "shop-id", Usage: "绑定已有店铺"},
					&cli.StringFlag{Name: "shop-name", Usage: "未指定 shop-id 时按名称查找或新建店铺"},
				},
				Action: runSetupMerchant,
			},
			{
				Name:  "create-admin",
				Usage: "创建或重置管理员账号",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: runCreateAdmin,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("启动失败")
	}
}

// ==================== 命令 ====================

func runServe(c *cli.Context) error {
	cfg, db, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if c.Bool("migrate") {
		if err := database.Migrate(db, model.AllModels()...); err != nil {
			return err
		}
	}

	// 1. 初始化依赖
	deps, err := initDependencies(cfg, db)
	if err != nil {
		return err
	}
	defer deps.Close()

	// 2. 启动定时任务
	if cfg.Tasks.Enabled {
		if err := deps.Tasks.Start(); err != nil {
			return err
		}
		defer deps.Tasks.Stop()
	}

	// 3. 初始化路由
	opts := router.Options{
		Mode:         cfg.Server.Mode,
		AllowOrigins: cfg.Server.AllowOrigins,
	}
	if dir, ok := deps.Services.Storage.LocalDir(); ok {
		opts.UploadsDir = dir
	}
	if cfg.RateLimit.RPS > 0 {
		opts.RateLimiter = middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	r := router.SetupRouter(deps.Controllers, opts)

	// 4. 启动服务
	return startServer(r, cfg.Server)
}

func runMigrate(c *cli.Context) error {
	_, db, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := database.Migrate(db, model.AllModels()...); err != nil {
		return err
	}
	log.Info().Msg("表结构迁移完成")
	return nil
}

func runSetupMerchant(c *cli.Context) error {
	return setupAccount(c, &dto.SetupMerchantRequest{
		Username: c.String("username"),
		Password: c.String("password"),
		ShopID:   c.Int64("shop-id"),
		ShopName: c.String("shop-name"),
		Role:     string(model.RoleMerchant),
	})
}

func runCreateAdmin(c *cli.Context) error {
	return setupAccount(c, &dto.SetupMerchantRequest{
		Username: c.String("username"),
		Password: c.String("password"),
		Role:     string(model.RoleAdmin),
	})
}

func setupAccount(c *cli.Context, req *dto.SetupMerchantRequest) error {
	if req.Role == string(model.RoleMerchant) && req.ShopID == 0 && req.ShopName == "" {
		return errors.New("shop-id 与 shop-name 至少指定一个")
	}

	_, db, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := database.Migrate(db, model.AllModels()...); err != nil {
		return err
	}

	userSvc := service.NewUserService(repository.NewUnitOfWork(db), nil)
	user, err := userSvc.SetupAccount(c.Context, req)
	if err != nil {
		return err
	}

	event := log.Info().Int64("user_id", user.ID).Str("username", user.Username).Str("role", string(user.Role))
	if user.ShopID != nil {
		event = event.Int64("shop_id", *user.ShopID)
	}
	event.Msg("账号已就绪")
	return nil
}

// ==================== 初始化函数 ====================

// bootstrap 加载配置、初始化日志并连接数据库
func bootstrap(c *cli.Context) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	config.OnChange(func(next *config.Config) {
		logger.SetLevel(next.Log.Level)
		middleware.SetJWTConfig(middleware.JWTConfigFrom(next.JWT))
		log.Info().Str("level", next.Log.Level).Msg("配置已重新加载")
	})

	db, err := database.Open(database.Options{
		Driver:  cfg.Database.Driver,
		DSN:     cfg.Database.DSN,
		MaxIdle: cfg.Database.MaxIdle,
		MaxOpen: cfg.Database.MaxOpen,
		Logger:  logger.NewGormLogger(cfg.Database.LogLevel),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := middleware.RegisterAuditCallbacks(db); err != nil {
		closeDB(db)
		return nil, nil, err
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	UOW         *repository.UnitOfWork
	Redis       *redis.Client
	Publisher   events.Publisher
	Services    *Services
	Controllers *router.Controllers
	Tasks       *task.TaskManager
}

// Services 服务集合
type Services struct {
	Storage     *service.StorageService
	User        *service.UserService
	Shop        *service.ShopService
	Category    *service.CategoryService
	Product     *service.ProductService
	Cart        *service.CartService
	Order       *service.OrderService
	Payment     *service.PaymentService
	Activity    *service.ActivityService
	Reservation *service.ReservationService
	Notice      *service.NoticeService
	Merchant    *service.MerchantService
}

// Close 释放外部连接
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭事件发布器失败")
		}
	}
	if d.Redis != nil {
		d.Redis.Close()
	}
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB) (*Dependencies, error) {
	middleware.SetJWTConfig(middleware.JWTConfigFrom(cfg.JWT))

	deps := &Dependencies{DB: db, UOW: repository.NewUnitOfWork(db)}

	// -------- 基础设施 --------
	locker, redisClient := initLocker(cfg.Redis)
	deps.Redis = redisClient

	publisher, err := events.NewPublisher(events.Config{
		Driver:   cfg.Events.Driver,
		Brokers:  cfg.Events.Brokers,
		Topic:    cfg.Events.Topic,
		URL:      cfg.Events.URL,
		Exchange: cfg.Events.Exchange,
	})
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Publisher = publisher

	gateway, err := wxpay.NewGateway(cfg.Wechat.Mode, wxpay.Config{
		AppID:      cfg.Wechat.AppID,
		MchID:      cfg.Wechat.MchID,
		APIKey:     cfg.Wechat.APIKey,
		NotifyURL:  cfg.Wechat.NotifyURL,
		GatewayURL: cfg.Wechat.GatewayURL,
	})
	if err != nil {
		deps.Close()
		return nil, err
	}

	storage, err := service.NewStorageService(cfg.Storage)
	if err != nil {
		// 存储不可用时上传接口返回 503，其余功能正常
		log.Warn().Err(err).Msg("存储服务初始化失败")
		storage = nil
	}

	// -------- 业务服务 --------
	uow := deps.UOW
	svc := &Services{
		Storage:     storage,
		User:        service.NewUserService(uow, storage),
		Shop:        service.NewShopService(uow, storage),
		Category:    service.NewCategoryService(uow),
		Product:     service.NewProductService(uow, storage),
		Cart:        service.NewCartService(uow),
		Order:       service.NewOrderService(uow, locker, publisher, cfg.RateLimit.CheckoutCooldown),
		Payment:     service.NewPaymentService(uow, gateway, cfg.Wechat.APIKey, locker, publisher),
		Activity:    service.NewActivityService(uow, storage),
		Reservation: service.NewReservationService(uow, locker, publisher),
		Notice:      service.NewNoticeService(uow),
		Merchant:    service.NewMerchantService(uow),
	}
	deps.Services = svc

	// -------- Controller 层 --------
	deps.Controllers = initControllers(svc)

	// -------- 定时任务 --------
	deps.Tasks = task.NewTaskManager(&task.TaskManagerDeps{
		Payments:     svc.Payment,
		Orders:       svc.Order,
		Reservations: svc.Reservation,
		Carts:        uow.Carts,
	}, task.ConfigFrom(cfg.Tasks))

	return deps, nil
}

// initLocker 配置了 Redis 时使用分布式锁，否则使用进程内锁
func initLocker(cfg config.RedisConfig) (cache.Locker, *redis.Client) {
	if cfg.Addr == "" {
		return cache.NewMemoryLocker(cache.DefaultLockOptions().Wait), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis 不可用，改用进程内锁")
		client.Close()
		return cache.NewMemoryLocker(cache.DefaultLockOptions().Wait), nil
	}

	log.Info().Str("addr", cfg.Addr).Msg("Redis 已连接")
	return cache.NewRedisLocker(client, "jiuba:lock:", cache.DefaultLockOptions()), client
}

// initControllers 初始化所有控制器
func initControllers(svc *Services) *router.Controllers {
	return &router.Controllers{
		User:     controller.NewUserController(svc.User),
		Shop:     controller.NewShopController(svc.Shop, svc.Product),
		Product:  controller.NewProductController(svc.Product, svc.Category),
		Order:    controller.NewOrderController(svc.Cart, svc.Order),
		Payment:  controller.NewPaymentController(svc.Payment),
		Activity: controller.NewActivityController(svc.Activity, svc.Reservation),
		Notice:   controller.NewNoticeController(svc.Notice),
		Merchant: controller.NewMerchantController(svc.Merchant),
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务，收到退出信号后优雅关闭
func startServer(handler http.Handler, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("服务启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("服务启动失败: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("正在关闭服务...")
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务强制关闭: %w", err)
	}

	log.Info().Msg("服务已退出")
	return nil
}
