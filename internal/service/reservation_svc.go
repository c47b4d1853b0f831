package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
	"jiuba_platform/pkg/cache"
	"jiuba_platform/pkg/events"
)

// ReservationService 活动预约服务
type ReservationService struct {
	uow       *repository.UnitOfWork
	locker    cache.Locker
	publisher events.Publisher
	now       func() time.Time
}

// NewReservationService 创建预约服务
func NewReservationService(uow *repository.UnitOfWork, locker cache.Locker, publisher events.Publisher) *ReservationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ReservationService{
		uow:       uow,
		locker:    locker,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *ReservationService) publish(eventType string, r *model.Reservation) {
	events.PublishAsync(s.publisher, events.New(eventType, r.ID, map[string]interface{}{
		"user_id":     r.UserID,
		"activity_id": r.ActivityID,
		"shop_id":     r.ShopID,
		"status":      r.Status,
	}))
}

// Create 预约活动
// 名额校验和写入在活动级锁内完成，避免超卖
func (s *ReservationService) Create(ctx context.Context, actor Actor, req *dto.CreateReservationRequest) (*dto.ReservationInfo, error) {
	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("reservation:activity:%d", req.ActivityID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var reservation *model.Reservation
	err = s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		activity, err := tx.Activities.GetByID(ctx, req.ActivityID)
		if err != nil {
			return err
		}
		if activity == nil {
			return ErrActivityNotFound
		}
		if !activity.IsActive {
			return ErrActivityInactive
		}
		if !activity.CanReserveAt(s.now()) {
			return ErrActivityStarted
		}

		held, err := tx.Reservations.CountHeldByUser(ctx, activity.ID, actor.UserID)
		if err != nil {
			return err
		}
		if held > 0 {
			return ErrAlreadyReserved
		}

		if activity.MaxParticipants != nil {
			counts, err := tx.Reservations.ConfirmedCounts(ctx, []int64{activity.ID})
			if err != nil {
				return err
			}
			if counts[activity.ID] >= int64(*activity.MaxParticipants) {
				return ErrActivityFull
			}
		}

		reservation = &model.Reservation{
			UserID:       actor.UserID,
			ActivityID:   activity.ID,
			ShopID:       activity.ShopID,
			ContactPhone: strings.TrimSpace(req.ContactPhone),
			Note:         req.Note,
			Status:       model.ReservationConfirmed,
		}
		if err := tx.Reservations.Create(ctx, reservation); err != nil {
			return err
		}
		reservation.Activity = activity
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("reservation_id", reservation.ID).
		Int64("activity_id", reservation.ActivityID).
		Int64("user_id", actor.UserID).
		Msg("活动预约成功")
	s.publish(events.ReservationCreated, reservation)
	return toReservationInfo(reservation), nil
}

// List 预约列表：顾客本人，商家本店，管理员全部
func (s *ReservationService) List(ctx context.Context, actor Actor, req *dto.ReservationListRequest) (*dto.PageResult[dto.ReservationInfo], error) {
	filter := repository.ReservationFilter{
		ActivityID: req.ActivityID,
		Status:     req.Status,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	if actor.IsStaff() {
		scope, err := actor.ShopScope(nil)
		if err != nil {
			return nil, err
		}
		filter.ShopID = scope
	} else {
		userID := actor.UserID
		filter.UserID = &userID
	}
	return s.list(ctx, filter, req.PageQuery)
}

// Mine 我的预约
func (s *ReservationService) Mine(ctx context.Context, userID int64, req *dto.ReservationListRequest) (*dto.PageResult[dto.ReservationInfo], error) {
	return s.list(ctx, repository.ReservationFilter{
		UserID:     &userID,
		ActivityID: req.ActivityID,
		Status:     req.Status,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}, req.PageQuery)
}

// ShopReservations 店铺预约（员工），管理员需指定 shop_id
func (s *ReservationService) ShopReservations(ctx context.Context, actor Actor, shopID int64, req *dto.ReservationListRequest) (*dto.PageResult[dto.ReservationInfo], error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	id, err := actor.ResolveShopID(shopID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, repository.ReservationFilter{
		ShopID:     &id,
		ActivityID: req.ActivityID,
		Status:     req.Status,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}, req.PageQuery)
}

func (s *ReservationService) list(ctx context.Context, filter repository.ReservationFilter, q dto.PageQuery) (*dto.PageResult[dto.ReservationInfo], error) {
	reservations, total, err := s.uow.Reservations.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	list := make([]dto.ReservationInfo, 0, len(reservations))
	for i := range reservations {
		list = append(list, *toReservationInfo(&reservations[i]))
	}
	return dto.NewPageResult(list, total, q), nil
}

// Get 预约详情
func (s *ReservationService) Get(ctx context.Context, actor Actor, id int64) (*dto.ReservationInfo, error) {
	reservation, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toReservationInfo(reservation), nil
}

// Cancel 取消预约，本人或员工可操作
func (s *ReservationService) Cancel(ctx context.Context, actor Actor, id int64) (*dto.ReservationInfo, error) {
	reservation, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.changeStatus(ctx, reservation, model.ReservationCancelled); err != nil {
		return nil, err
	}
	s.publish(events.ReservationCancelled, reservation)
	return toReservationInfo(reservation), nil
}

// Complete 员工核销预约
func (s *ReservationService) Complete(ctx context.Context, actor Actor, id int64) (*dto.ReservationInfo, error) {
	reservation, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageShop(reservation.ShopID) {
		return nil, ErrForbidden
	}
	if err := s.changeStatus(ctx, reservation, model.ReservationCompleted); err != nil {
		return nil, err
	}
	return toReservationInfo(reservation), nil
}

// BatchUpdateStatus 批量修改预约状态，商家只能修改本店预约
func (s *ReservationService) BatchUpdateStatus(ctx context.Context, actor Actor, req *dto.BatchReservationStatusRequest) (*dto.BatchUpdateResponse, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	status := model.ReservationStatus(req.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, req.Status)
	}
	scope, err := actor.ShopScope(nil)
	if err != nil {
		return nil, err
	}

	updated, err := s.uow.Reservations.BatchUpdateStatus(ctx, req.IDs, status, scope)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("operator_id", actor.UserID).Int64("updated", updated).Str("status", req.Status).Msg("批量修改预约状态")
	return &dto.BatchUpdateResponse{Updated: updated}, nil
}

// CompleteEnded 已结束活动的确认预约自动完成
func (s *ReservationService) CompleteEnded(ctx context.Context) (int64, error) {
	return s.uow.Reservations.CompleteEnded(ctx, s.now())
}

func (s *ReservationService) changeStatus(ctx context.Context, reservation *model.Reservation, to model.ReservationStatus) error {
	if reservation.Status != model.ReservationConfirmed {
		return ErrReservationNotConfirmed
	}
	ok, err := s.uow.Reservations.UpdateStatus(ctx, reservation.ID, model.ReservationConfirmed, to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrReservationNotConfirmed
	}
	reservation.Status = to
	return nil
}

// visible 本人或可管理该店铺的员工可见
func (s *ReservationService) visible(ctx context.Context, actor Actor, id int64) (*model.Reservation, error) {
	reservation, err := s.uow.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}
	if reservation.UserID != actor.UserID && !actor.CanManageShop(reservation.ShopID) {
		return nil, ErrReservationNotFound
	}
	return reservation, nil
}

func toReservationInfo(r *model.Reservation) *dto.ReservationInfo {
	info := &dto.ReservationInfo{
		ID:           r.ID,
		UserID:       r.UserID,
		ActivityID:   r.ActivityID,
		ShopID:       r.ShopID,
		ContactPhone: r.ContactPhone,
		Note:         r.Note,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
	}
	if r.Activity != nil {
		info.ActivityTitle = r.Activity.Title
		start := r.Activity.StartTime
		info.ActivityStartTime = &start
	}
	return info
}
