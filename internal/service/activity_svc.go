package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
)

// ActivityService 活动服务
type ActivityService struct {
	activityRepo    repository.ActivityRepository
	reservationRepo repository.ReservationRepository
	shopRepo        repository.ShopRepository
	storage         *StorageService
	now             func() time.Time
}

// NewActivityService 创建活动服务
func NewActivityService(uow *repository.UnitOfWork, storage *StorageService) *ActivityService {
	return &ActivityService{
		activityRepo:    uow.Activities,
		reservationRepo: uow.Reservations,
		shopRepo:        uow.Shops,
		storage:         storage,
		now:             time.Now,
	}
}

// ==================== 列表 ====================

// List 活动列表：公开接口只返回启用且未结束的活动，员工查看全部
func (s *ActivityService) List(ctx context.Context, actor Actor, req *dto.ActivityListRequest) (*dto.PageResult[dto.ActivityInfo], error) {
	filter := repository.ActivityFilter{
		Search:   strings.TrimSpace(req.Search),
		Ordering: req.Ordering,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if actor.IsStaff() {
		scope, err := actor.ShopScope(nil)
		if err != nil {
			return nil, err
		}
		filter.ShopID = scope
	} else {
		now := s.now()
		filter.ActiveOnly = true
		filter.EndAfter = &now
	}
	return s.list(ctx, filter, req.PageQuery)
}

// Featured 推荐活动
func (s *ActivityService) Featured(ctx context.Context, q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error) {
	now := s.now()
	featured := true
	return s.list(ctx, repository.ActivityFilter{
		ActiveOnly: true,
		Featured:   &featured,
		EndAfter:   &now,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, q)
}

// Ongoing 进行中的活动
func (s *ActivityService) Ongoing(ctx context.Context, q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error) {
	now := s.now()
	return s.list(ctx, repository.ActivityFilter{
		ActiveOnly:  true,
		StartBefore: &now,
		EndAfter:    &now,
		Page:        q.Page,
		PageSize:    q.PageSize,
	}, q)
}

// Upcoming 即将开始的活动
func (s *ActivityService) Upcoming(ctx context.Context, q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error) {
	now := s.now()
	return s.list(ctx, repository.ActivityFilter{
		ActiveOnly: true,
		StartAfter: &now,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, q)
}

// Today 今天有安排的活动
func (s *ActivityService) Today(ctx context.Context, q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error) {
	start, end := dayRange(s.now())
	return s.list(ctx, repository.ActivityFilter{
		ActiveOnly: true,
		DayStart:   &start,
		DayEnd:     &end,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, q)
}

// Search 按关键词、店铺、日期搜索未结束的活动
func (s *ActivityService) Search(ctx context.Context, req *dto.ActivitySearchRequest) (*dto.PageResult[dto.ActivityInfo], error) {
	now := s.now()
	filter := repository.ActivityFilter{
		ActiveOnly: true,
		ShopID:     req.ShopID,
		EndAfter:   &now,
		Search:     strings.TrimSpace(req.Q),
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	if req.Date != "" {
		day, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			return nil, ErrInvalidDate
		}
		start, end := dayRange(day)
		filter.DayStart = &start
		filter.DayEnd = &end
	}
	return s.list(ctx, filter, req.PageQuery)
}

// ShopActivities 店铺的未结束活动
func (s *ActivityService) ShopActivities(ctx context.Context, shopID int64, q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error) {
	shop, err := s.shopRepo.GetByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}

	now := s.now()
	return s.list(ctx, repository.ActivityFilter{
		ActiveOnly: true,
		ShopID:     &shopID,
		EndAfter:   &now,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, q)
}

func (s *ActivityService) list(ctx context.Context, filter repository.ActivityFilter, q dto.PageQuery) (*dto.PageResult[dto.ActivityInfo], error) {
	activities, total, err := s.activityRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ID)
	}
	counts, err := s.reservationRepo.ConfirmedCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	list := make([]dto.ActivityInfo, 0, len(activities))
	for i := range activities {
		list = append(list, *toActivityInfo(&activities[i], counts[activities[i].ID], now))
	}
	return dto.NewPageResult(list, total, q), nil
}

// ==================== 详情 / 管理 ====================

// Get 活动详情，停用的活动只有员工可见
func (s *ActivityService) Get(ctx context.Context, actor Actor, id int64) (*dto.ActivityInfo, error) {
	activity, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !activity.IsActive && !actor.IsStaff() {
		return nil, ErrActivityNotFound
	}

	counts, err := s.reservationRepo.ConfirmedCounts(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	return toActivityInfo(activity, counts[id], s.now()), nil
}

// Create 创建活动
func (s *ActivityService) Create(ctx context.Context, actor Actor, req *dto.CreateActivityRequest) (*dto.ActivityInfo, error) {
	shopID, err := actor.ResolveShopID(req.ShopID)
	if err != nil {
		return nil, err
	}
	shop, err := s.shopRepo.GetByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidTimeRange
	}

	activity := &model.Activity{
		ShopID:          shopID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		IsActive:        true,
	}
	if req.IsFeatured != nil {
		activity.IsFeatured = *req.IsFeatured
	}
	if req.IsActive != nil {
		activity.IsActive = *req.IsActive
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		return nil, err
	}

	log.Info().Int64("activity_id", activity.ID).Int64("shop_id", shopID).Msg("创建活动")
	return s.Get(ctx, actor, activity.ID)
}

// Update 更新活动
func (s *ActivityService) Update(ctx context.Context, actor Actor, id int64, req *dto.UpdateActivityRequest) (*dto.ActivityInfo, error) {
	activity, err := s.mustManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		activity.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		activity.Description = *req.Description
	}
	if req.IsFeatured != nil {
		activity.IsFeatured = *req.IsFeatured
	}
	if req.StartTime != nil {
		activity.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		activity.EndTime = *req.EndTime
	}
	if req.ClearMaxParticipants {
		activity.MaxParticipants = nil
	} else if req.MaxParticipants != nil {
		activity.MaxParticipants = req.MaxParticipants
	}
	if req.IsActive != nil {
		activity.IsActive = *req.IsActive
	}
	if !activity.EndTime.After(activity.StartTime) {
		return nil, ErrInvalidTimeRange
	}

	if err := s.activityRepo.Update(ctx, activity); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Delete 删除活动
func (s *ActivityService) Delete(ctx context.Context, actor Actor, id int64) error {
	if _, err := s.mustManage(ctx, actor, id); err != nil {
		return err
	}
	return s.activityRepo.Delete(ctx, id)
}

// ToggleStatus 启用/停用
func (s *ActivityService) ToggleStatus(ctx context.Context, actor Actor, id int64) (*dto.ActivityInfo, error) {
	activity, err := s.mustManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.activityRepo.UpdateFields(ctx, id, map[string]interface{}{"is_active": !activity.IsActive}); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// ToggleFeatured 设为/取消推荐
func (s *ActivityService) ToggleFeatured(ctx context.Context, actor Actor, id int64) (*dto.ActivityInfo, error) {
	activity, err := s.mustManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.activityRepo.UpdateFields(ctx, id, map[string]interface{}{"is_featured": !activity.IsFeatured}); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// ReservationStats 活动预约统计
func (s *ActivityService) ReservationStats(ctx context.Context, actor Actor, id int64) (*dto.ActivityReservationStats, error) {
	activity, err := s.mustManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.reservationRepo.CountByStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	stats := &dto.ActivityReservationStats{
		ActivityID:      id,
		Confirmed:       counts[model.ReservationConfirmed],
		Completed:       counts[model.ReservationCompleted],
		Cancelled:       counts[model.ReservationCancelled],
		MaxParticipants: activity.MaxParticipants,
	}
	stats.Total = stats.Confirmed + stats.Completed + stats.Cancelled
	stats.RemainingSlots = activity.RemainingSlots(stats.Confirmed)
	return stats, nil
}

// UploadCover 上传活动封面
func (s *ActivityService) UploadCover(ctx context.Context, actor Actor, id int64, data []byte) (*dto.UploadResponse, error) {
	activity, err := s.mustManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.UploadImage(ctx, data, "activities")
	if err != nil {
		return nil, err
	}
	if err := s.activityRepo.UpdateFields(ctx, id, map[string]interface{}{"image": url}); err != nil {
		return nil, err
	}
	if activity.Image != "" {
		if err := s.storage.Delete(ctx, activity.Image); err != nil {
			log.Warn().Err(err).Str("url", activity.Image).Msg("删除旧封面失败")
		}
	}
	return &dto.UploadResponse{URL: url}, nil
}

func (s *ActivityService) mustGet(ctx context.Context, id int64) (*model.Activity, error) {
	activity, err := s.activityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

func (s *ActivityService) mustManage(ctx context.Context, actor Actor, id int64) (*model.Activity, error) {
	activity, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsMerchant() && actor.ShopID == nil {
		return nil, ErrMerchantNoShop
	}
	if !actor.CanManageShop(activity.ShopID) {
		return nil, ErrForbidden
	}
	return activity, nil
}

// dayRange 当天零点到次日零点
func dayRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

func toActivityInfo(a *model.Activity, confirmed int64, now time.Time) *dto.ActivityInfo {
	info := &dto.ActivityInfo{
		ID:              a.ID,
		ShopID:          a.ShopID,
		Title:           a.Title,
		Description:     a.Description,
		Image:           a.Image,
		IsFeatured:      a.IsFeatured,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		MaxParticipants: a.MaxParticipants,
		IsActive:        a.IsActive,
		Status:          string(a.StatusAt(now)),
		CanReserve:      a.CanReserveAt(now),
		RemainingSlots:  a.RemainingSlots(confirmed),
		ConfirmedCount:  confirmed,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.Shop != nil {
		info.ShopName = a.Shop.Name
		info.ShopAddress = a.Shop.Address
	}
	return info
}
