package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
)

type orderFixture struct {
	uow      *repository.UnitOfWork
	orders   *OrderService
	carts    *CartService
	shop     *model.Shop
	customer *model.User
	merchant *model.User
	beer     *model.Product
	snack    *model.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	uow := newTestUOW(t)
	shop := seedShop(t, uow, "下单店", true)
	return &orderFixture{
		uow:      uow,
		orders:   NewOrderService(uow, newTestLocker(), nil, time.Nanosecond),
		carts:    NewCartService(uow),
		shop:     shop,
		customer: seedUser(t, uow, "diner", model.RoleCustomer, nil),
		merchant: seedUser(t, uow, "keeper", model.RoleMerchant, &shop.ID),
		beer:     seedProduct(t, uow, shop.ID, "扎啤", "20.00", 150, 5),
		snack:    seedProduct(t, uow, shop.ID, "花生", "6.50", 0, 5),
	}
}

func (f *orderFixture) add(t *testing.T, product *model.Product, qty int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), f.customer.ID, &dto.AddCartItemRequest{ProductID: product.ID, Quantity: qty})
	require.NoError(t, err)
}

func (f *orderFixture) stock(t *testing.T, product *model.Product) int {
	t.Helper()
	p, err := f.uow.Products.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	return p.StockQuantity
}

func (f *orderFixture) checkout(method string) (*dto.OrderInfo, error) {
	return f.orders.Checkout(context.Background(), customerOf(f.customer), &dto.CreateOrderRequest{
		ShopID:        f.shop.ID,
		PaymentMethod: method,
		CustomerNotes: " 少冰 ",
	})
}

func TestOrderService_CashCheckout(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	f.add(t, f.beer, 2)
	f.add(t, f.snack, 1)

	order, err := f.checkout("cash")
	require.NoError(t, err)
	assert.Equal(t, "pending", order.Status)
	assert.False(t, order.IsPaid)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("46.5")), order.TotalAmount.String())
	assert.Equal(t, "少冰", order.CustomerNotes)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "下单店", order.ShopName)

	assert.Equal(t, 3, f.stock(t, f.beer))
	assert.Equal(t, 4, f.stock(t, f.snack))

	cart, err := f.carts.Get(ctx, f.customer.ID, f.shop.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items, "下单后清空购物车")

	logs, err := f.orders.Logs(ctx, customerOf(f.customer), order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.OrderPending, logs[0].ToStatus)

	_, err = f.checkout("cash")
	assert.ErrorIs(t, err, ErrCartEmpty)
}

func TestOrderService_PointsCheckout(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	f.add(t, f.beer, 2)
	_, err := f.checkout("points")
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Equal(t, 5, f.stock(t, f.beer), "失败时库存回滚")

	require.NoError(t, f.uow.Users.AddPoints(ctx, f.customer.ID, 500))
	order, err := f.checkout("points")
	require.NoError(t, err)
	assert.Equal(t, "paid", order.Status)
	assert.True(t, order.IsPaid)
	assert.NotEmpty(t, order.TransactionID)
	assert.Equal(t, int64(300), order.TotalPoints)
	assert.True(t, order.TotalAmount.IsZero())

	user, err := f.uow.Users.GetByID(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), user.Points)

	// 不支持积分的商品
	f.add(t, f.snack, 1)
	_, err = f.checkout("points")
	assert.ErrorIs(t, err, ErrPointsNotSupported)
}

func TestOrderService_CheckoutFailures(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.checkout("wechat")
	assert.ErrorIs(t, err, ErrInvalidPayMethod)

	_, err = f.checkout("cash")
	assert.ErrorIs(t, err, ErrCartNotFound)

	f.add(t, f.beer, 6)
	_, err = f.checkout("cash")
	assert.ErrorIs(t, err, ErrInsufficientStock)

	require.NoError(t, f.uow.Shops.UpdateFields(ctx, f.shop.ID, map[string]interface{}{"is_active": false}))
	_, err = f.checkout("cash")
	assert.ErrorIs(t, err, ErrShopInactive)
	require.NoError(t, f.uow.Shops.UpdateFields(ctx, f.shop.ID, map[string]interface{}{"is_active": true}))

	// 商品下架后购物车里的条目不能结算
	require.NoError(t, f.uow.Products.UpdateFields(ctx, f.beer.ID, map[string]interface{}{"stock_quantity": 10, "status": model.ProductDraft}))
	_, err = f.checkout("cash")
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestOrderService_CheckoutAfterProductDeleted(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	f.add(t, f.beer, 1)
	f.add(t, f.snack, 2)
	require.NoError(t, f.uow.Products.Delete(ctx, f.snack.ID))

	cart, err := f.carts.Get(ctx, f.customer.ID, f.shop.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	order, err := f.checkout("cash")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("20")), order.TotalAmount.String())
}

func TestOrderService_CheckoutCooldown(t *testing.T) {
	f := newOrderFixture(t)
	f.orders = NewOrderService(f.uow, newTestLocker(), nil, time.Hour)

	// 业务失败不占用冷却
	_, err := f.checkout("cash")
	assert.ErrorIs(t, err, ErrCartNotFound)

	f.add(t, f.snack, 1)
	_, err = f.checkout("cash")
	require.NoError(t, err)

	f.add(t, f.snack, 1)
	_, err = f.checkout("cash")
	assert.ErrorIs(t, err, ErrTooFrequent)
}

func TestOrderService_CancelRestoresStock(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	f.add(t, f.beer, 3)
	order, err := f.checkout("cash")
	require.NoError(t, err)
	assert.Equal(t, 2, f.stock(t, f.beer))

	stranger := seedUser(t, f.uow, "stranger", model.RoleCustomer, nil)
	_, err = f.orders.Cancel(ctx, customerOf(stranger), order.ID, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	cancelled, err := f.orders.Cancel(ctx, customerOf(f.customer), order.ID, "不想要了")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, 5, f.stock(t, f.beer))

	_, err = f.orders.Cancel(ctx, customerOf(f.customer), order.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	logs, err := f.orders.Logs(ctx, merchantOf(f.merchant), order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.OrderPending, logs[1].FromStatus)
	assert.Equal(t, "不想要了", logs[1].Note)
}

func TestOrderService_StaffTransitions(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	staff := merchantOf(f.merchant)

	f.add(t, f.snack, 2)
	order, err := f.checkout("cash")
	require.NoError(t, err)

	_, err = f.orders.Transition(ctx, customerOf(f.customer), order.ID, &dto.OrderStatusRequest{Status: "paid"})
	assert.ErrorIs(t, err, ErrForbidden)

	other := seedShop(t, f.uow, "他店", true)
	otherStaff := merchantOf(seedUser(t, f.uow, "other_keeper", model.RoleMerchant, &other.ID))
	_, err = f.orders.Transition(ctx, otherStaff, order.ID, &dto.OrderStatusRequest{Status: "paid"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.orders.Transition(ctx, staff, order.ID, &dto.OrderStatusRequest{Status: "completed"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	paid, err := f.orders.Transition(ctx, staff, order.ID, &dto.OrderStatusRequest{Status: "paid", Note: "柜台收款"})
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Status)
	assert.True(t, paid.IsPaid)
	assert.NotNil(t, paid.PaidAt)
	assert.NotEmpty(t, paid.TransactionID)

	_, err = f.orders.Transition(ctx, staff, order.ID, &dto.OrderStatusRequest{Status: "refunded"})
	assert.ErrorIs(t, err, ErrCashRefundByPay)

	done, err := f.orders.Transition(ctx, staff, order.ID, &dto.OrderStatusRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)

	logs, err := f.orders.Logs(ctx, staff, order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, paid.TransactionID, logs[1].Extra["transaction_id"])
}

func TestOrderService_PointsRefund(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	admin := adminOf(seedUser(t, f.uow, "root", model.RoleAdmin, nil))

	require.NoError(t, f.uow.Users.AddPoints(ctx, f.customer.ID, 150))
	f.add(t, f.beer, 1)
	order, err := f.checkout("points")
	require.NoError(t, err)
	assert.Equal(t, 4, f.stock(t, f.beer))

	refunded, err := f.orders.Transition(ctx, admin, order.ID, &dto.OrderStatusRequest{Status: "refunded", Note: "酒洒了"})
	require.NoError(t, err)
	assert.Equal(t, "refunded", refunded.Status)
	assert.Equal(t, 5, f.stock(t, f.beer))

	user, err := f.uow.Users.GetByID(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), user.Points)
}

func TestOrderService_ListAndStats(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uow.Users.AddPoints(ctx, f.customer.ID, 1000))

	f.add(t, f.beer, 1)
	cash, err := f.checkout("cash")
	require.NoError(t, err)
	f.add(t, f.snack, 2)
	_, err = f.checkout("cash")
	require.NoError(t, err)
	f.add(t, f.beer, 2)
	_, err = f.checkout("points")
	require.NoError(t, err)

	staff := merchantOf(f.merchant)
	_, err = f.orders.Transition(ctx, staff, cash.ID, &dto.OrderStatusRequest{Status: "paid"})
	require.NoError(t, err)

	// 另一位顾客的订单对本人不可见
	other := seedUser(t, f.uow, "other_diner", model.RoleCustomer, nil)
	page, err := f.orders.List(ctx, customerOf(other), &dto.OrderListRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	_, err = f.orders.Get(ctx, customerOf(other), cash.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	page, err = f.orders.List(ctx, customerOf(f.customer), &dto.OrderListRequest{PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = f.orders.List(ctx, staff, &dto.OrderListRequest{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	stats, err := f.orders.Stats(ctx, staff, &dto.OrderListRequest{})
	require.NoError(t, err)
	// 待支付订单不计入
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.CashOrders)
	assert.Equal(t, int64(1), stats.PointsOrders)
	assert.True(t, stats.TotalCashAmount.Equal(decimal.RequireFromString("20")), stats.TotalCashAmount.String())
	assert.Equal(t, int64(300), stats.TotalPointsAmount)

	// 仅剩待支付订单时统计为空
	stats, err = f.orders.Stats(ctx, customerOf(f.customer), &dto.OrderListRequest{Status: "pending"})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalOrders)
	assert.Zero(t, stats.CashOrders)
	assert.True(t, stats.TotalCashAmount.IsZero())

	noShop := Actor{UserID: 999, Role: model.RoleMerchant}
	_, err = f.orders.Stats(ctx, noShop, &dto.OrderListRequest{})
	assert.ErrorIs(t, err, ErrMerchantNoShop)
}

func TestOrderService_ExpirePending(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	f.add(t, f.beer, 2)
	order, err := f.checkout("cash")
	require.NoError(t, err)

	n, err := f.orders.ExpirePending(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.orders.ExpirePending(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	info, err := f.orders.Get(ctx, customerOf(f.customer), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", info.Status)
	assert.Equal(t, 5, f.stock(t, f.beer))
}
