package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
)

func TestActivityService_CreateAndUpdate(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewActivityService(uow, newTestStorage(t))
	ctx := context.Background()

	shop := seedShop(t, uow, "活动店", true)
	owner := merchantOf(seedUser(t, uow, "host", model.RoleMerchant, &shop.ID))
	start := time.Now().Add(24 * time.Hour)

	_, err := svc.Create(ctx, owner, &dto.CreateActivityRequest{
		Title:     "时间倒置",
		StartTime: start,
		EndTime:   start.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	info, err := svc.Create(ctx, owner, &dto.CreateActivityRequest{
		Title:           " 周五爵士夜 ",
		StartTime:       start,
		EndTime:         start.Add(3 * time.Hour),
		MaxParticipants: intPtr(20),
	})
	require.NoError(t, err)
	assert.Equal(t, "周五爵士夜", info.Title)
	assert.Equal(t, shop.ID, info.ShopID)
	assert.Equal(t, "活动店", info.ShopName)
	assert.Equal(t, "upcoming", info.Status)
	assert.True(t, info.CanReserve)
	require.NotNil(t, info.RemainingSlots)
	assert.Equal(t, 20, *info.RemainingSlots)

	updated, err := svc.Update(ctx, owner, info.ID, &dto.UpdateActivityRequest{ClearMaxParticipants: true, Description: strPtr("现场乐队")})
	require.NoError(t, err)
	assert.Nil(t, updated.MaxParticipants)
	assert.Nil(t, updated.RemainingSlots)
	assert.Equal(t, "现场乐队", updated.Description)

	earlier := start.Add(-48 * time.Hour)
	_, err = svc.Update(ctx, owner, info.ID, &dto.UpdateActivityRequest{EndTime: &earlier})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	other := seedShop(t, uow, "别的店", true)
	stranger := merchantOf(seedUser(t, uow, "guest_host", model.RoleMerchant, &other.ID))
	_, err = svc.Update(ctx, stranger, info.ID, &dto.UpdateActivityRequest{Title: strPtr("抢活动")})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, stranger, info.ID), ErrForbidden)

	featured, err := svc.ToggleFeatured(ctx, owner, info.ID)
	require.NoError(t, err)
	assert.True(t, featured.IsFeatured)

	cover, err := svc.UploadCover(ctx, owner, info.ID, pngHeader)
	require.NoError(t, err)
	assert.Contains(t, cover.URL, "/activities/")

	require.NoError(t, svc.Delete(ctx, owner, info.ID))
	_, err = svc.Get(ctx, owner, info.ID)
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestActivityService_TimeViews(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewActivityService(uow, newTestStorage(t))
	ctx := context.Background()

	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return now }

	shop := seedShop(t, uow, "时间店", true)
	ongoing := seedActivity(t, uow, shop.ID, "进行中", now.Add(-time.Hour), now.Add(time.Hour), nil)
	tonight := seedActivity(t, uow, shop.ID, "今晚", now.Add(4*time.Hour), now.Add(6*time.Hour), nil)
	nextWeek := seedActivity(t, uow, shop.ID, "下周", now.Add(7*24*time.Hour), now.Add(7*24*time.Hour+2*time.Hour), nil)
	seedActivity(t, uow, shop.ID, "已结束", now.Add(-48*time.Hour), now.Add(-47*time.Hour), nil)
	hidden := seedActivity(t, uow, shop.ID, "停用", now.Add(time.Hour), now.Add(2*time.Hour), nil)
	require.NoError(t, uow.Activities.UpdateFields(ctx, hidden.ID, map[string]interface{}{"is_active": false}))
	require.NoError(t, uow.Activities.UpdateFields(ctx, nextWeek.ID, map[string]interface{}{"is_featured": true}))

	page, err := svc.List(ctx, Anonymous, &dto.ActivityListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total, "公开列表不含已结束和停用")

	page, err = svc.List(ctx, adminOf(seedUser(t, uow, "root", model.RoleAdmin, nil)), &dto.ActivityListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)

	page, err = svc.Ongoing(ctx, dto.PageQuery{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, ongoing.ID, page.List[0].ID)
	assert.Equal(t, "ongoing", page.List[0].Status)
	assert.False(t, page.List[0].CanReserve)

	page, err = svc.Upcoming(ctx, dto.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, tonight.ID, page.List[0].ID)

	page, err = svc.Today(ctx, dto.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = svc.Featured(ctx, dto.PageQuery{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, nextWeek.ID, page.List[0].ID)

	page, err = svc.Search(ctx, &dto.ActivitySearchRequest{Date: "2026-05-27"})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "下周", page.List[0].Title)

	page, err = svc.Search(ctx, &dto.ActivitySearchRequest{Q: "今晚", ShopID: &shop.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = svc.Search(ctx, &dto.ActivitySearchRequest{Date: "05/27/2026"})
	assert.ErrorIs(t, err, ErrInvalidDate)

	page, err = svc.ShopActivities(ctx, shop.ID, dto.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	_, err = svc.ShopActivities(ctx, 404, dto.PageQuery{})
	assert.ErrorIs(t, err, ErrShopNotFound)

	_, err = svc.Get(ctx, Anonymous, hidden.ID)
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestActivityService_ReservationStats(t *testing.T) {
	uow := newTestUOW(t)
	svc := NewActivityService(uow, newTestStorage(t))
	ctx := context.Background()

	shop := seedShop(t, uow, "统计店", true)
	owner := merchantOf(seedUser(t, uow, "stat_host", model.RoleMerchant, &shop.ID))
	start := time.Now().Add(time.Hour)
	activity := seedActivity(t, uow, shop.ID, "品酒会", start, start.Add(time.Hour), intPtr(3))

	statuses := []model.ReservationStatus{model.ReservationConfirmed, model.ReservationConfirmed, model.ReservationCancelled}
	for i, status := range statuses {
		user := seedUser(t, uow, "guest"+string(rune('a'+i)), model.RoleCustomer, nil)
		require.NoError(t, uow.Reservations.Create(ctx, &model.Reservation{
			UserID:       user.ID,
			ActivityID:   activity.ID,
			ShopID:       shop.ID,
			ContactPhone: "13800000000",
			Status:       status,
		}))
	}

	stats, err := svc.ReservationStats(ctx, owner, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Confirmed)
	assert.Equal(t, int64(1), stats.Cancelled)
	require.NotNil(t, stats.RemainingSlots)
	assert.Equal(t, 1, *stats.RemainingSlots)

	info, err := svc.Get(ctx, Anonymous, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.ConfirmedCount)

	_, err = svc.ReservationStats(ctx, customerOf(seedUser(t, uow, "nosy", model.RoleCustomer, nil)), activity.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
