package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
)

func TestShopService_CreateAndUpdate(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewShopService(uow, newTestStorage(t))
	ctx := context.Background()

	shop, err := svc.Create(ctx, &dto.CreateShopRequest{Name: " 老街酒吧 ", Address: "老街 8 号"})
	require.NoError(t, err)
	assert.Equal(t, "老街酒吧", shop.Name)
	assert.True(t, shop.IsActive)

	_, err = svc.Create(ctx, &dto.CreateShopRequest{Name: "老街酒吧"})
	assert.ErrorIs(t, err, ErrShopNameExists)

	other, err := svc.Create(ctx, &dto.CreateShopRequest{Name: "新街酒吧", IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, other.IsActive)

	_, err = svc.Update(ctx, other.ID, &dto.UpdateShopRequest{Name: strPtr("老街酒吧")})
	assert.ErrorIs(t, err, ErrShopNameExists)

	updated, err := svc.Update(ctx, shop.ID, &dto.UpdateShopRequest{Phone: strPtr("021-1234")})
	require.NoError(t, err)
	assert.Equal(t, "021-1234", updated.Phone)
	assert.Equal(t, "老街 8 号", updated.Address)

	_, err = svc.Update(ctx, 999, &dto.UpdateShopRequest{})
	assert.ErrorIs(t, err, ErrShopNotFound)
}

func TestShopService_ListVisibility(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewShopService(uow, newTestStorage(t))
	ctx := context.Background()

	open := seedShop(t, uow, "营业店", true)
	closed := seedShop(t, uow, "停业店", false)
	seedProduct(t, uow, open.ID, "啤酒", "12.00", 0, 10)
	seedProduct(t, uow, open.ID, "薯条", "8.00", 0, 10)

	page, err := svc.List(ctx, Anonymous, &dto.ShopListRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, open.ID, page.List[0].ID)
	assert.Equal(t, int64(2), page.List[0].ActiveProductsCount)

	admin := Actor{UserID: 1, Role: model.RoleAdmin}
	page, err = svc.List(ctx, admin, &dto.ShopListRequest{Ordering: "name"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	_, err = svc.Get(ctx, Anonymous, closed.ID)
	assert.ErrorIs(t, err, ErrShopNotFound)
	info, err := svc.Get(ctx, admin, closed.ID)
	require.NoError(t, err)
	assert.False(t, info.IsActive)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestShopService_ToggleAndDelete(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewShopService(uow, newTestStorage(t))
	ctx := context.Background()

	shop := seedShop(t, uow, "切换店", true)

	info, err := svc.ToggleStatus(ctx, shop.ID)
	require.NoError(t, err)
	assert.False(t, info.IsActive)

	info, err = svc.ToggleStatus(ctx, shop.ID)
	require.NoError(t, err)
	assert.True(t, info.IsActive)

	logo, err := svc.UploadLogo(ctx, shop.ID, pngHeader)
	require.NoError(t, err)
	assert.Contains(t, logo.URL, "/shops/")

	require.NoError(t, svc.Delete(ctx, shop.ID))
	assert.ErrorIs(t, svc.Delete(ctx, shop.ID), ErrShopNotFound)
}
