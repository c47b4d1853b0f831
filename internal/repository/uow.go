package repository

import (
	"context"

	"gorm.io/gorm"
)

// UnitOfWork 工作单元，事务内的仓库共享同一个 tx
type UnitOfWork struct {
	db           *gorm.DB
	Users        UserRepository
	Shops        ShopRepository
	Categories   CategoryRepository
	Products     ProductRepository
	Carts        CartRepository
	Orders       OrderRepository
	Payments     PaymentRepository
	Activities   ActivityRepository
	Reservations ReservationRepository
	Notices      NoticeRepository
}

// NewUnitOfWork 创建工作单元
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{
		db:           db,
		Users:        NewUserRepository(db),
		Shops:        NewShopRepository(db),
		Categories:   NewCategoryRepository(db),
		Products:     NewProductRepository(db),
		Carts:        NewCartRepository(db),
		Orders:       NewOrderRepository(db),
		Payments:     NewPaymentRepository(db),
		Activities:   NewActivityRepository(db),
		Reservations: NewReservationRepository(db),
		Notices:      NewNoticeRepository(db),
	}
}

// Transaction 执行事务，fn 返回错误时回滚
func (u *UnitOfWork) Transaction(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewUnitOfWork(tx))
	})
}

// DB 底层连接
func (u *UnitOfWork) DB() *gorm.DB {
	return u.db
}
