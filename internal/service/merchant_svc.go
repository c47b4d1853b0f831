package service

import (
	"context"
	"time"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/repository"
)

// MerchantService 商家后台
type MerchantService struct {
	uow *repository.UnitOfWork
	now func() time.Time
}

func NewMerchantService(uow *repository.UnitOfWork) *MerchantService {
	return &MerchantService{uow: uow, now: time.Now}
}

// Dashboard 仪表盘：商品数和今日订单数按店铺统计，用户数为全平台
func (s *MerchantService) Dashboard(ctx context.Context, actor Actor, shopID *int64) (*dto.DashboardResponse, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	scope, err := actor.ShopScope(shopID)
	if err != nil {
		return nil, err
	}

	products, err := s.uow.Products.Count(ctx, scope)
	if err != nil {
		return nil, err
	}
	today, _ := dayRange(s.now())
	orders, err := s.uow.Orders.CountSince(ctx, scope, today)
	if err != nil {
		return nil, err
	}
	users, err := s.uow.Users.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.DashboardResponse{
		ShopID:        scope,
		ProductsCount: products,
		TodayOrders:   orders,
		UsersCount:    users,
	}, nil
}
