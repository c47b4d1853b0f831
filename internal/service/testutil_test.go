package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"jiuba_platform/internal/config"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
	"jiuba_platform/pkg/cache"
	"jiuba_platform/pkg/database"
)

// pngHeader 足以被识别为 image/png 的最小数据
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// newTestUOW 每个测试独立的内存库
func newTestUOW(t *testing.T) *repository.UnitOfWork {
	t.Helper()

	db, err := database.Open(database.Options{
		Driver: "sqlite",
		DSN:    "file:svc_" + uuid.NewString() + "?mode=memory&cache=shared",
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.AllModels()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewUnitOfWork(db)
}

func newTestStorage(t *testing.T) *StorageService {
	t.Helper()
	svc, err := NewStorageService(config.StorageConfig{
		Provider: "local",
		BasePath: t.TempDir(),
		Endpoint: "http://test/uploads",
	})
	require.NoError(t, err)
	return svc
}

func newTestLocker() cache.Locker {
	return cache.NewMemoryLocker(time.Second)
}

// ==================== 数据准备 ====================

func seedShop(t *testing.T, uow *repository.UnitOfWork, name string, active bool) *model.Shop {
	t.Helper()
	shop := &model.Shop{Name: name, Address: name + "路1号", Phone: "13800000000", IsActive: active}
	require.NoError(t, uow.Shops.Create(context.Background(), shop))
	return shop
}

func seedUser(t *testing.T, uow *repository.UnitOfWork, username string, role model.UserRole, shopID *int64) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Password: "x",
		Role:     role,
		ShopID:   shopID,
		Balance:  decimal.Zero,
		IsActive: true,
	}
	require.NoError(t, uow.Users.Create(context.Background(), user))
	return user
}

func seedProduct(t *testing.T, uow *repository.UnitOfWork, shopID int64, name, price string, points int64, stock int) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		PointsPrice:   points,
		ShopID:        shopID,
		IsAvailable:   true,
		Status:        model.ProductPublished,
		StockQuantity: stock,
	}
	require.NoError(t, uow.Products.Create(context.Background(), product))
	return product
}

func seedActivity(t *testing.T, uow *repository.UnitOfWork, shopID int64, title string, start, end time.Time, max *int) *model.Activity {
	t.Helper()
	activity := &model.Activity{
		ShopID:          shopID,
		Title:           title,
		StartTime:       start,
		EndTime:         end,
		MaxParticipants: max,
		IsActive:        true,
	}
	require.NoError(t, uow.Activities.Create(context.Background(), activity))
	return activity
}

func customerOf(u *model.User) Actor {
	return Actor{UserID: u.ID, Role: model.RoleCustomer}
}

func merchantOf(u *model.User) Actor {
	return Actor{UserID: u.ID, Role: model.RoleMerchant, ShopID: u.ShopID}
}

func adminOf(u *model.User) Actor {
	return Actor{UserID: u.ID, Role: model.RoleAdmin}
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }
