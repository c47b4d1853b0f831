package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/logger"

	"jiuba_platform/internal/config"
	"jiuba_platform/internal/controller"
	"jiuba_platform/internal/middleware"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
	"jiuba_platform/internal/service"
	"jiuba_platform/pkg/cache"
	"jiuba_platform/pkg/database"
	"jiuba_platform/pkg/wxpay"
)

const testAPIKey = "router_test_key"

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	engine *gin.Engine
	uow    *repository.UnitOfWork
}

// newTestApp 内存库 + 真实服务 + 完整路由
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.Open(database.Options{
		Driver: "sqlite",
		DSN:    "file:router_" + uuid.NewString() + "?mode=memory&cache=shared",
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.AllModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	uow := repository.NewUnitOfWork(db)
	storage, err := service.NewStorageService(config.StorageConfig{
		Provider: "local",
		BasePath: t.TempDir(),
		Endpoint: "http://test/uploads",
	})
	require.NoError(t, err)

	locker := cache.NewMemoryLocker(time.Second)
	gateway := wxpay.NewMockGateway(wxpay.Config{AppID: "wx_test", MchID: "10000", APIKey: testAPIKey})

	userSvc := service.NewUserService(uow, storage)
	productSvc := service.NewProductService(uow, storage)
	ctl := &Controllers{
		User:    controller.NewUserController(userSvc),
		Shop:    controller.NewShopController(service.NewShopService(uow, storage), productSvc),
		Product: controller.NewProductController(productSvc, service.NewCategoryService(uow)),
		Order: controller.NewOrderController(
			service.NewCartService(uow),
			service.NewOrderService(uow, locker, nil, 0),
		),
		Payment: controller.NewPaymentController(service.NewPaymentService(uow, gateway, testAPIKey, locker, nil)),
		Activity: controller.NewActivityController(
			service.NewActivityService(uow, storage),
			service.NewReservationService(uow, locker, nil),
		),
		Notice:   controller.NewNoticeController(service.NewNoticeService(uow)),
		Merchant: controller.NewMerchantController(service.NewMerchantService(uow)),
	}

	return &testApp{engine: SetupRouter(ctl, Options{}), uow: uow}
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// seedUser 直接入库并签发 access token
func (a *testApp) seedUser(t *testing.T, username string, role model.UserRole, shopID *int64) (*model.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Username: username,
		Password: string(hash),
		Role:     role,
		ShopID:   shopID,
		Balance:  decimal.NewFromInt(100),
		Points:   500,
		IsActive: true,
	}
	require.NoError(t, a.uow.Users.Create(context.Background(), user))

	token, err := middleware.GenerateAccessToken(user.ID, user.Username, string(role), shopID)
	require.NoError(t, err)
	return user, token
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

// ==================== 基础 ====================

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w, resp := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp.Message)
}

// ==================== 认证 ====================

func TestAuth_RegisterLoginProfile(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
		User        struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	decode(t, resp.Data, &login)
	require.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "customer", login.User.Role)

	w, resp = app.do(t, http.MethodGet, "/api/auth/profile", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		Username string `json:"username"`
	}
	decode(t, resp.Data, &profile)
	assert.Equal(t, "alice", profile.Username)

	w, _ = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ValidationErrorsByField(t *testing.T) {
	app := newTestApp(t)

	w, resp := app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "al",
		"password": "123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var fields map[string]string
	decode(t, resp.Data, &fields)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
}

func TestAuth_RequiresToken(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.do(t, http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = app.do(t, http.MethodGet, "/api/orders", "bad.token.value", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoles_CustomerCannotManage(t *testing.T) {
	app := newTestApp(t)
	_, token := app.seedUser(t, "bob", model.RoleCustomer, nil)

	w, _ := app.do(t, http.MethodPost, "/api/products", token, map[string]interface{}{"name": "扎啤", "shop_id": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = app.do(t, http.MethodPost, "/api/shops", token, map[string]interface{}{"name": "一号店"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = app.do(t, http.MethodGet, "/api/merchant/dashboard", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// ==================== 店铺与商品 ====================

// setupShop 管理员建店并上架一件 20 元 / 100 积分的商品
func (a *testApp) setupShop(t *testing.T, adminToken string) (shopID, productID int64) {
	t.Helper()

	w, resp := a.do(t, http.MethodPost, "/api/shops", adminToken, map[string]interface{}{
		"name":    "一号店",
		"address": "人民路1号",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var shop struct {
		ID int64 `json:"id"`
	}
	decode(t, resp.Data, &shop)

	w, resp = a.do(t, http.MethodPost, "/api/products", adminToken, map[string]interface{}{
		"name":           "扎啤",
		"price":          "20",
		"points_price":   100,
		"shop_id":        shop.ID,
		"status":         "published",
		"stock_quantity": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product struct {
		ID int64 `json:"id"`
	}
	decode(t, resp.Data, &product)
	return shop.ID, product.ID
}

func TestShops_PublicListing(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.seedUser(t, "root", model.RoleAdmin, nil)
	shopID, productID := app.setupShop(t, adminToken)

	w, resp := app.do(t, http.MethodGet, "/api/shops", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total int64 `json:"total"`
	}
	decode(t, resp.Data, &page)
	assert.Equal(t, int64(1), page.Total)

	w, resp = app.do(t, http.MethodGet, "/api/shops/"+strconv.FormatInt(shopID, 10)+"/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(resp.Data), "扎啤")

	w, _ = app.do(t, http.MethodGet, "/api/products/"+strconv.FormatInt(productID, 10), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(t, http.MethodGet, "/api/products/99999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = app.do(t, http.MethodGet, "/api/products/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ==================== 下单与支付 ====================

func TestCheckoutAndWechatCallback(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.seedUser(t, "root", model.RoleAdmin, nil)
	shopID, productID := app.setupShop(t, adminToken)
	_, token := app.seedUser(t, "carol", model.RoleCustomer, nil)

	w, _ := app.do(t, http.MethodGet, "/api/carts/current", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.do(t, http.MethodPost, "/api/carts/items", token, map[string]interface{}{
		"product_id": productID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp := app.do(t, http.MethodPost, "/api/orders", token, map[string]interface{}{
		"shop_id":        shopID,
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order struct {
		ID          int64           `json:"id"`
		Status      string          `json:"status"`
		TotalAmount decimal.Decimal `json:"total_amount"`
	}
	decode(t, resp.Data, &order)
	assert.Equal(t, "pending", order.Status)
	assert.True(t, decimal.NewFromInt(40).Equal(order.TotalAmount))

	w, resp = app.do(t, http.MethodPost, "/api/payments", token, map[string]interface{}{
		"order_id": order.ID,
		"method":   "wechat",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var payment struct {
		OutTradeNo string `json:"out_trade_no"`
	}
	decode(t, resp.Data, &payment)
	require.NotEmpty(t, payment.OutTradeNo)

	// 未知订单号
	w, _ = app.do(t, http.MethodPost, "/api/payments/wechat/callback", "", map[string]string{
		"out_trade_no": "NOPE",
		"result_code":  "SUCCESS",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.do(t, http.MethodPost, "/api/payments/wechat/callback", "", map[string]string{
		"out_trade_no":   payment.OutTradeNo,
		"transaction_id": "wx_tx_1",
		"result_code":    "SUCCESS",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = app.do(t, http.MethodGet, "/api/orders/"+strconv.FormatInt(order.ID, 10), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, resp.Data, &order)
	assert.Equal(t, "paid", order.Status)

	// 其它顾客看不到这笔订单
	_, other := app.seedUser(t, "dave", model.RoleCustomer, nil)
	w, _ = app.do(t, http.MethodGet, "/api/orders/"+strconv.FormatInt(order.ID, 10), other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWechatCallback_XML(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/wechat/callback",
		strings.NewReader("<xml><out_trade_no>X</out_trade_no></xml>"))
	req.Header.Set("Content-Type", "text/xml")
	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")

	params, err := wxpay.DecodeXML(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "FAIL", params["return_code"])

	// 签名正确但订单号不存在
	notify := wxpay.Params{"out_trade_no": "NOPE", "result_code": "SUCCESS", "return_code": "SUCCESS"}
	notify["sign"] = wxpay.Sign(notify, testAPIKey)
	req = httptest.NewRequest(http.MethodPost, "/api/payments/wechat/callback", bytes.NewReader(wxpay.EncodeXML(notify)))
	w = httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)

	params, err = wxpay.DecodeXML(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "FAIL", params["return_code"])
	assert.NotEqual(t, "签名错误", params["return_msg"])
}

// ==================== 活动预约 ====================

func TestReservationFlow(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.seedUser(t, "root", model.RoleAdmin, nil)
	shopID, _ := app.setupShop(t, adminToken)

	start := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	w, resp := app.do(t, http.MethodPost, "/api/activities", adminToken, map[string]interface{}{
		"shop_id":          shopID,
		"title":            "周五爵士夜",
		"start_time":       start,
		"end_time":         start.Add(3 * time.Hour),
		"max_participants": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var activity struct {
		ID int64 `json:"id"`
	}
	decode(t, resp.Data, &activity)

	_, first := app.seedUser(t, "erin", model.RoleCustomer, nil)
	w, _ = app.do(t, http.MethodPost, "/api/reservations", first, map[string]interface{}{
		"activity_id":   activity.ID,
		"contact_phone": "13800000000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	_, second := app.seedUser(t, "frank", model.RoleCustomer, nil)
	w, _ = app.do(t, http.MethodPost, "/api/reservations", second, map[string]interface{}{
		"activity_id":   activity.ID,
		"contact_phone": "13900000000",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = app.do(t, http.MethodGet, "/api/reservations/mine", first, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), "周五爵士夜")
}

// ==================== 商家后台 ====================

func TestMerchantDashboard(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.seedUser(t, "root", model.RoleAdmin, nil)
	shopID, _ := app.setupShop(t, adminToken)

	_, merchantToken := app.seedUser(t, "boss", model.RoleMerchant, &shopID)
	w, resp := app.do(t, http.MethodGet, "/api/merchant/dashboard", merchantToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var dash struct {
		ShopID        *int64 `json:"shop_id"`
		ProductsCount int64  `json:"products_count"`
	}
	decode(t, resp.Data, &dash)
	require.NotNil(t, dash.ShopID)
	assert.Equal(t, shopID, *dash.ShopID)
	assert.Equal(t, int64(1), dash.ProductsCount)

	_, orphan := app.seedUser(t, "nobody", model.RoleMerchant, nil)
	w, _ = app.do(t, http.MethodGet, "/api/merchant/dashboard", orphan, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
