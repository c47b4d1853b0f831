package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"jiuba_platform/internal/model"
)

// ==================== ActivityRepository ====================

// ActivityRepository 活动仓库接口
type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	GetByID(ctx context.Context, id int64) (*model.Activity, error)
	Update(ctx context.Context, activity *model.Activity) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ActivityFilter) ([]model.Activity, int64, error)
}

// ActivityFilter 活动筛选条件，时间条件均为可选
type ActivityFilter struct {
	ActiveOnly  bool
	ShopID      *int64
	Featured    *bool
	EndAfter    *time.Time // 未结束: end_time > t
	StartAfter  *time.Time // 未开始: start_time > t
	StartBefore *time.Time // 已开始: start_time <= t
	DayStart    *time.Time // 与某天有交集 [DayStart, DayEnd)
	DayEnd      *time.Time
	Search      string // title / description
	Ordering    string
	Page        int
	PageSize    int
}

var activityOrdering = map[string]string{
	"start_time": "start_time",
	"end_time":   "end_time",
	"created_at": "created_at",
}

type activityRepo struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) Create(ctx context.Context, activity *model.Activity) error {
	return r.db.WithContext(ctx).Omit("Shop").Create(activity).Error
}

func (r *activityRepo) GetByID(ctx context.Context, id int64) (*model.Activity, error) {
	var activity model.Activity
	err := r.db.WithContext(ctx).Preload("Shop").First(&activity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &activity, err
}

func (r *activityRepo) Update(ctx context.Context, activity *model.Activity) error {
	return r.db.WithContext(ctx).Omit("Shop").Save(activity).Error
}

func (r *activityRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Activity{}).Where("id = ?", id).Updates(fields).Error
}

func (r *activityRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Activity{}, id).Error
}

func (r *activityRepo) List(ctx context.Context, filter ActivityFilter) ([]model.Activity, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Activity{})

	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}
	if filter.Featured != nil {
		query = query.Where("is_featured = ?", *filter.Featured)
	}
	if filter.EndAfter != nil {
		query = query.Where("end_time > ?", *filter.EndAfter)
	}
	if filter.StartAfter != nil {
		query = query.Where("start_time > ?", *filter.StartAfter)
	}
	if filter.StartBefore != nil {
		query = query.Where("start_time <= ?", *filter.StartBefore)
	}
	if filter.DayStart != nil && filter.DayEnd != nil {
		query = query.Where("start_time < ? AND end_time >= ?", *filter.DayEnd, *filter.DayStart)
	}
	if filter.Search != "" {
		kw := likePattern(filter.Search)
		query = query.Where("title LIKE ? OR description LIKE ?", kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Activity
	err := paginate(query.Order(orderBy(filter.Ordering, activityOrdering, "start_time ASC")), filter.Page, filter.PageSize).
		Preload("Shop").
		Find(&list).Error
	return list, total, err
}

// ==================== ReservationRepository ====================

// ReservationRepository 预约仓库接口
type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	GetByID(ctx context.Context, id int64) (*model.Reservation, error)
	// UpdateStatus 仅当当前状态为 from 时更新，返回是否成功
	UpdateStatus(ctx context.Context, id int64, from, to model.ReservationStatus) (bool, error)
	BatchUpdateStatus(ctx context.Context, ids []int64, to model.ReservationStatus, shopID *int64) (int64, error)
	List(ctx context.Context, filter ReservationFilter) ([]model.Reservation, int64, error)

	// CountHeldByUser 用户在该活动下已确认/已完成的预约数
	CountHeldByUser(ctx context.Context, activityID, userID int64) (int64, error)
	CountByStatus(ctx context.Context, activityID int64) (map[model.ReservationStatus]int64, error)
	ConfirmedCounts(ctx context.Context, activityIDs []int64) (map[int64]int64, error)
	// CompleteEnded 已结束活动的确认预约标记为完成
	CompleteEnded(ctx context.Context, now time.Time) (int64, error)
}

// ReservationFilter 预约筛选条件
type ReservationFilter struct {
	UserID     *int64
	ShopID     *int64
	ActivityID *int64
	Status     string
	Page       int
	PageSize   int
}

type reservationRepo struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepo{db: db}
}

func (r *reservationRepo) Create(ctx context.Context, reservation *model.Reservation) error {
	return r.db.WithContext(ctx).Omit("User", "Activity").Create(reservation).Error
}

func (r *reservationRepo) GetByID(ctx context.Context, id int64) (*model.Reservation, error) {
	var reservation model.Reservation
	err := r.db.WithContext(ctx).Preload("Activity").First(&reservation, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &reservation, err
}

func (r *reservationRepo) UpdateStatus(ctx context.Context, id int64, from, to model.ReservationStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected == 1, res.Error
}

func (r *reservationRepo) BatchUpdateStatus(ctx context.Context, ids []int64, to model.ReservationStatus, shopID *int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := r.db.WithContext(ctx).Model(&model.Reservation{}).Where("id IN ?", ids)
	if shopID != nil {
		query = query.Where("shop_id = ?", *shopID)
	}
	res := query.Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *reservationRepo) List(ctx context.Context, filter ReservationFilter) ([]model.Reservation, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Reservation{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}
	if filter.ActivityID != nil {
		query = query.Where("activity_id = ?", *filter.ActivityID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Reservation
	err := paginate(query.Order("created_at DESC, id DESC"), filter.Page, filter.PageSize).
		Preload("Activity").
		Find(&list).Error
	return list, total, err
}

func (r *reservationRepo) CountHeldByUser(ctx context.Context, activityID, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("activity_id = ? AND user_id = ? AND status IN ?", activityID, userID,
			[]model.ReservationStatus{model.ReservationConfirmed, model.ReservationCompleted}).
		Count(&count).Error
	return count, err
}

func (r *reservationRepo) CountByStatus(ctx context.Context, activityID int64) (map[model.ReservationStatus]int64, error) {
	var rows []struct {
		Status string
		Cnt    int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Select("status, COUNT(*) AS cnt").
		Where("activity_id = ?", activityID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[model.ReservationStatus]int64, len(rows))
	for _, row := range rows {
		result[model.ReservationStatus(row.Status)] = row.Cnt
	}
	return result, nil
}

func (r *reservationRepo) ConfirmedCounts(ctx context.Context, activityIDs []int64) (map[int64]int64, error) {
	result := make(map[int64]int64, len(activityIDs))
	if len(activityIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		ActivityID int64
		Cnt        int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Select("activity_id, COUNT(*) AS cnt").
		Where("activity_id IN ? AND status = ?", activityIDs, model.ReservationConfirmed).
		Group("activity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ActivityID] = row.Cnt
	}
	return result, nil
}

func (r *reservationRepo) CompleteEnded(ctx context.Context, now time.Time) (int64, error) {
	ended := r.db.Model(&model.Activity{}).Select("id").Where("end_time < ?", now)
	res := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("status = ? AND activity_id IN (?)", model.ReservationConfirmed, ended).
		Update("status", model.ReservationCompleted)
	return res.RowsAffected, res.Error
}
