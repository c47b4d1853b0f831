package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "jiuba_platform/docs"
	"jiuba_platform/internal/controller"
	"jiuba_platform/internal/middleware"
)

// Controllers 控制器集合
type Controllers struct {
	User     *controller.UserController
	Shop     *controller.ShopController
	Product  *controller.ProductController
	Order    *controller.OrderController
	Payment  *controller.PaymentController
	Activity *controller.ActivityController
	Notice   *controller.NoticeController
	Merchant *controller.MerchantController
}

// Options 路由选项
type Options struct {
	Mode         string
	AllowOrigins []string
	// UploadsDir 本地存储目录，非空时以 /uploads 对外提供
	UploadsDir  string
	RateLimiter *middleware.IPRateLimiter
}

const (
	roleAdmin    = "admin"
	roleMerchant = "merchant"
)

// SetupRouter 创建 gin 引擎并注册全部路由
func SetupRouter(ctl *Controllers, opts Options) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.CORS(opts.AllowOrigins),
	)
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Middleware())
	}

	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"code": 0, "message": "ok"})
	})
	if opts.UploadsDir != "" {
		r.Static("/uploads", opts.UploadsDir)
	}

	InitRoutes(r, ctl)
	return r
}

// InitRoutes 注册所有 API 路由
func InitRoutes(r *gin.Engine, ctl *Controllers) {
	api := r.Group("/api")

	// 公开接口可选登录，登录后按角色扩大可见范围
	public := api.Group("", middleware.OptionalAuth())
	authed := api.Group("", middleware.JWTAuth(), middleware.AuditContext())
	staff := authed.Group("", middleware.RequireRole(roleAdmin, roleMerchant))
	admin := authed.Group("", middleware.RequireRole(roleAdmin))

	// auth 认证
	{
		auth := api.Group("/auth")
		auth.POST("/register", ctl.User.Register)
		auth.POST("/login", ctl.User.Login)
		auth.POST("/refresh", ctl.User.RefreshToken)

		me := authed.Group("/auth")
		me.POST("/logout", ctl.User.Logout)
		me.GET("/profile", ctl.User.GetProfile)
		me.PUT("/profile", ctl.User.UpdateProfile)
		me.PUT("/password", ctl.User.ChangePassword)
		me.POST("/avatar", ctl.User.UploadAvatar)
	}

	// users 用户管理
	{
		users := staff.Group("/users")
		users.GET("", ctl.User.ListUsers)
		users.GET("/:id", ctl.User.GetUser)
		users.PUT("/:id/balance-points", ctl.User.UpdateBalancePoints)
		users.POST("/:id/balance", ctl.User.AddBalance)
		users.POST("/:id/points", ctl.User.AddPoints)
	}

	// shops 店铺
	{
		shops := public.Group("/shops")
		shops.GET("", ctl.Shop.GetShopList)
		shops.GET("/active", ctl.Shop.GetActiveShops)
		shops.GET("/:id", ctl.Shop.GetShopDetail)
		shops.GET("/:id/products", ctl.Shop.GetShopProducts)
		shops.GET("/:id/activities", ctl.Activity.ShopActivities)

		staff.GET("/shops/:id/reservations", ctl.Activity.ShopReservations)

		manage := admin.Group("/shops")
		manage.POST("", ctl.Shop.CreateShop)
		manage.PUT("/:id", ctl.Shop.UpdateShop)
		manage.DELETE("/:id", ctl.Shop.DeleteShop)
		manage.POST("/:id/toggle-status", ctl.Shop.ToggleShopStatus)
		manage.POST("/:id/logo", ctl.Shop.UploadShopLogo)
	}

	// categories 分类
	{
		public.GET("/categories", ctl.Product.ListCategories)
		public.GET("/categories/:id", ctl.Product.GetCategory)

		manage := admin.Group("/categories")
		manage.POST("", ctl.Product.CreateCategory)
		manage.PUT("/:id", ctl.Product.UpdateCategory)
		manage.DELETE("/:id", ctl.Product.DeleteCategory)
	}

	// products 商品
	{
		products := public.Group("/products")
		products.GET("", ctl.Product.GetProducts)
		products.GET("/published", ctl.Product.GetPublished)
		products.GET("/:id", ctl.Product.GetProduct)

		manage := staff.Group("/products")
		manage.POST("", ctl.Product.CreateProduct)
		manage.PUT("/:id", ctl.Product.UpdateProduct)
		manage.DELETE("/:id", ctl.Product.DeleteProduct)
		manage.POST("/:id/toggle-status", ctl.Product.ToggleProductStatus)
		manage.POST("/:id/image", ctl.Product.UploadProductImage)
	}

	// carts 购物车
	{
		carts := authed.Group("/carts")
		carts.GET("", ctl.Order.ListCarts)
		carts.GET("/current", ctl.Order.GetCart)
		carts.POST("/clear", ctl.Order.ClearCart)
		carts.POST("/items", ctl.Order.AddCartItem)
		carts.PUT("/items/:id", ctl.Order.UpdateCartItem)
		carts.DELETE("/items/:id", ctl.Order.RemoveCartItem)
	}

	// orders 订单
	{
		orders := authed.Group("/orders")
		orders.POST("", ctl.Order.CreateOrder)
		orders.GET("", ctl.Order.ListOrders)
		orders.GET("/stats", ctl.Order.OrderStats)
		orders.GET("/:id", ctl.Order.GetOrder)
		orders.GET("/:id/logs", ctl.Order.GetOrderLogs)
		orders.POST("/:id/cancel", ctl.Order.CancelOrder)

		staff.POST("/orders/:id/status", ctl.Order.UpdateOrderStatus)
	}

	// payments 支付
	{
		// 微信回调无需登录，验签在服务层完成
		api.POST("/payments/wechat/callback", ctl.Payment.WechatNotify)

		payments := authed.Group("/payments")
		payments.POST("",
			middleware.ActionCooldown(middleware.ActionPayment, 0),
			ctl.Payment.CreatePayment,
		)
		payments.GET("", ctl.Payment.ListPayments)
		payments.GET("/:id", ctl.Payment.GetPayment)
		payments.GET("/:id/query", ctl.Payment.QueryPayment)
		payments.POST("/:id/refund", ctl.Payment.RefundPayment)
	}

	// activities 活动
	{
		activities := public.Group("/activities")
		activities.GET("", ctl.Activity.ListActivities)
		activities.GET("/featured", ctl.Activity.Featured)
		activities.GET("/ongoing", ctl.Activity.Ongoing)
		activities.GET("/upcoming", ctl.Activity.Upcoming)
		activities.GET("/today", ctl.Activity.Today)
		activities.GET("/search", ctl.Activity.Search)
		activities.GET("/:id", ctl.Activity.GetActivity)

		manage := staff.Group("/activities")
		manage.POST("", ctl.Activity.CreateActivity)
		manage.PUT("/:id", ctl.Activity.UpdateActivity)
		manage.DELETE("/:id", ctl.Activity.DeleteActivity)
		manage.POST("/:id/toggle-status", ctl.Activity.ToggleActivityStatus)
		manage.POST("/:id/toggle-featured", ctl.Activity.ToggleFeatured)
		manage.GET("/:id/reservation-stats", ctl.Activity.ReservationStats)
		manage.POST("/:id/cover", ctl.Activity.UploadCover)
	}

	// reservations 预约
	{
		reservations := authed.Group("/reservations")
		reservations.POST("",
			middleware.ActionCooldown(middleware.ActionReservation, 0),
			ctl.Activity.CreateReservation,
		)
		reservations.GET("", ctl.Activity.ListReservations)
		reservations.GET("/mine", ctl.Activity.MyReservations)
		reservations.GET("/:id", ctl.Activity.GetReservation)
		reservations.POST("/:id/cancel", ctl.Activity.CancelReservation)

		staff.POST("/reservations/:id/complete", ctl.Activity.CompleteReservation)
		staff.POST("/reservations/batch-status", ctl.Activity.BatchUpdateReservations)
	}

	// notices 公告
	{
		notices := public.Group("/notices")
		notices.GET("", ctl.Notice.ListNotices)
		notices.GET("/shop_notices", ctl.Notice.ShopNotices)
		notices.GET("/:id", ctl.Notice.GetNotice)

		manage := staff.Group("/notices")
		manage.POST("", ctl.Notice.CreateNotice)
		manage.PUT("/:id", ctl.Notice.UpdateNotice)
		manage.DELETE("/:id", ctl.Notice.DeleteNotice)
		manage.POST("/:id/toggle-status", ctl.Notice.ToggleNoticeStatus)
	}

	// merchant 商家后台
	{
		staff.GET("/merchant/dashboard", ctl.Merchant.Dashboard)
	}
}
