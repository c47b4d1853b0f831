package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
)

func TestCartService_AddAndTotals(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewCartService(uow)
	ctx := context.Background()

	shop := seedShop(t, uow, "购物车店", true)
	user := seedUser(t, uow, "buyer", model.RoleCustomer, nil)
	beer := seedProduct(t, uow, shop.ID, "啤酒", "12.50", 100, 10)
	chips := seedProduct(t, uow, shop.ID, "薯条", "8.00", 0, 10)

	cart, err := svc.AddItem(ctx, user.ID, &dto.AddCartItemRequest{ProductID: beer.ID})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, "购物车店", cart.ShopName)

	// 同一商品累加
	cart, err = svc.AddItem(ctx, user.ID, &dto.AddCartItemRequest{ProductID: beer.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	cart, err = svc.AddItem(ctx, user.ID, &dto.AddCartItemRequest{ProductID: chips.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.True(t, cart.TotalAmount.Equal(decimal.RequireFromString("53.5")), cart.TotalAmount.String())
	assert.Equal(t, int64(300), cart.TotalPoints)
	assert.Equal(t, 5, cart.TotalQuantity)

	_, err = svc.AddItem(ctx, user.ID, &dto.AddCartItemRequest{ProductID: 404})
	assert.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, uow.Products.UpdateFields(ctx, chips.ID, map[string]interface{}{"is_available": false}))
	_, err = svc.AddItem(ctx, user.ID, &dto.AddCartItemRequest{ProductID: chips.ID})
	assert.ErrorIs(t, err, ErrProductUnavailable)

	carts, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, carts, 1)
}

func TestCartService_GetCreatesEmptyCart(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewCartService(uow)
	ctx := context.Background()

	shop := seedShop(t, uow, "空车店", true)
	user := seedUser(t, uow, "viewer", model.RoleCustomer, nil)

	_, err := svc.Get(ctx, user.ID, 0)
	assert.ErrorIs(t, err, ErrShopIDRequired)
	_, err = svc.Get(ctx, user.ID, 404)
	assert.ErrorIs(t, err, ErrShopNotFound)

	cart, err := svc.Get(ctx, user.ID, shop.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.TotalAmount.IsZero())

	again, err := svc.Get(ctx, user.ID, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestCartService_ItemOwnership(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewCartService(uow)
	ctx := context.Background()

	shop := seedShop(t, uow, "条目店", true)
	owner := seedUser(t, uow, "owner", model.RoleCustomer, nil)
	other := seedUser(t, uow, "other", model.RoleCustomer, nil)
	product := seedProduct(t, uow, shop.ID, "果汁", "9.90", 0, 10)

	cart, err := svc.AddItem(ctx, owner.ID, &dto.AddCartItemRequest{ProductID: product.ID})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	_, err = svc.UpdateItem(ctx, other.ID, itemID, 5)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
	assert.ErrorIs(t, svc.RemoveItem(ctx, other.ID, itemID), ErrCartItemNotFound)

	_, err = svc.UpdateItem(ctx, owner.ID, itemID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	item, err := svc.UpdateItem(ctx, owner.ID, itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
	assert.True(t, item.Subtotal.Equal(decimal.RequireFromString("39.6")), item.Subtotal.String())

	require.NoError(t, svc.RemoveItem(ctx, owner.ID, itemID))
	view, err := svc.Get(ctx, owner.ID, shop.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestCartService_Clear(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewCartService(uow)
	ctx := context.Background()

	shop := seedShop(t, uow, "清空店", true)
	user := seedUser(t, uow, "clearer", model.RoleCustomer, nil)
	product := seedProduct(t, uow, shop.ID, "可乐", "5.00", 0, 10)

	assert.ErrorIs(t, svc.Clear(ctx, user.ID, shop.ID), ErrCartNotFound)

	_, err := svc.AddItem(ctx, user.ID, &dto.AddCartItemRequest{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, user.ID, shop.ID))

	cart, err := svc.Get(ctx, user.ID, shop.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
