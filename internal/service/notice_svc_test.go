package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
)

func TestNoticeService_Lifecycle(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewNoticeService(uow)
	ctx := context.Background()

	shop := seedShop(t, uow, "公告店", true)
	owner := merchantOf(seedUser(t, uow, "announcer", model.RoleMerchant, &shop.ID))
	admin := adminOf(seedUser(t, uow, "root", model.RoleAdmin, nil))

	notice, err := svc.Create(ctx, owner, &dto.CreateNoticeRequest{Title: " 国庆营业时间 ", Content: "照常营业"})
	require.NoError(t, err)
	assert.Equal(t, "国庆营业时间", notice.Title)
	assert.Equal(t, "公告店", notice.ShopName)
	assert.True(t, notice.IsActive)

	_, err = svc.Create(ctx, admin, &dto.CreateNoticeRequest{Title: "缺店铺"})
	assert.ErrorIs(t, err, ErrShopIDRequired)
	_, err = svc.Create(ctx, admin, &dto.CreateNoticeRequest{ShopID: 404, Title: "店铺不存在"})
	assert.ErrorIs(t, err, ErrShopNotFound)

	draft, err := svc.Create(ctx, admin, &dto.CreateNoticeRequest{ShopID: shop.ID, Title: "草稿", IsActive: boolPtr(false)})
	require.NoError(t, err)

	page, err := svc.List(ctx, Anonymous, &dto.NoticeListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = svc.List(ctx, owner, &dto.NoticeListRequest{ShopID: &shop.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	_, err = svc.Get(ctx, Anonymous, draft.ID)
	assert.ErrorIs(t, err, ErrNoticeNotFound)

	toggled, err := svc.ToggleStatus(ctx, owner, draft.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	shopPage, err := svc.ShopNotices(ctx, &shop.ID, dto.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), shopPage.Total)
	_, err = svc.ShopNotices(ctx, nil, dto.PageQuery{})
	assert.ErrorIs(t, err, ErrShopIDRequired)

	updated, err := svc.Update(ctx, owner, notice.ID, &dto.UpdateNoticeRequest{Content: strPtr("提前一小时打烊")})
	require.NoError(t, err)
	assert.Equal(t, "提前一小时打烊", updated.Content)

	other := seedShop(t, uow, "别家", true)
	stranger := merchantOf(seedUser(t, uow, "stranger", model.RoleMerchant, &other.ID))
	assert.ErrorIs(t, svc.Delete(ctx, stranger, notice.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, owner, notice.ID))
	_, err = svc.Get(ctx, owner, notice.ID)
	assert.ErrorIs(t, err, ErrNoticeNotFound)
}
