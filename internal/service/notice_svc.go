package service

import (
	"context"
	"strings"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
)

// NoticeService 店铺公告
type NoticeService struct {
	noticeRepo repository.NoticeRepository
	shopRepo   repository.ShopRepository
}

func NewNoticeService(uow *repository.UnitOfWork) *NoticeService {
	return &NoticeService{noticeRepo: uow.Notices, shopRepo: uow.Shops}
}

// List 公告列表，未登录只看启用的
func (s *NoticeService) List(ctx context.Context, actor Actor, req *dto.NoticeListRequest) (*dto.PageResult[dto.NoticeInfo], error) {
	filter := repository.NoticeFilter{
		ShopID:     req.ShopID,
		ActiveOnly: !actor.IsAuthenticated(),
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	return s.list(ctx, filter, req.PageQuery)
}

// ShopNotices 店铺启用中的公告
func (s *NoticeService) ShopNotices(ctx context.Context, shopID *int64, q dto.PageQuery) (*dto.PageResult[dto.NoticeInfo], error) {
	if shopID == nil || *shopID <= 0 {
		return nil, ErrShopIDRequired
	}
	return s.list(ctx, repository.NoticeFilter{
		ShopID:     shopID,
		ActiveOnly: true,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, q)
}

func (s *NoticeService) list(ctx context.Context, filter repository.NoticeFilter, q dto.PageQuery) (*dto.PageResult[dto.NoticeInfo], error) {
	notices, total, err := s.noticeRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	list := make([]dto.NoticeInfo, 0, len(notices))
	for i := range notices {
		list = append(list, *toNoticeInfo(&notices[i]))
	}
	return dto.NewPageResult(list, total, q), nil
}

func (s *NoticeService) Get(ctx context.Context, actor Actor, id int64) (*dto.NoticeInfo, error) {
	notice, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !notice.IsActive && !actor.IsAuthenticated() {
		return nil, ErrNoticeNotFound
	}
	return toNoticeInfo(notice), nil
}

// Create 发布公告
func (s *NoticeService) Create(ctx context.Context, actor Actor, req *dto.CreateNoticeRequest) (*dto.NoticeInfo, error) {
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

	notice := &model.Notice{
		ShopID:   shopID,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		IsActive: true,
	}
	if req.IsActive != nil {
		notice.IsActive = *req.IsActive
	}
	if err := s.noticeRepo.Create(ctx, notice); err != nil {
		return nil, err
	}
	notice.Shop = shop
	return toNoticeInfo(notice), nil
}

func (s *NoticeService) Update(ctx context.Context, actor Actor, id int64, req *dto.UpdateNoticeRequest) (*dto.NoticeInfo, error) {
	notice, err := s.mustManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		notice.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		notice.Content = *req.Content
	}
	if req.IsActive != nil {
		notice.IsActive = *req.IsActive
	}
	if err := s.noticeRepo.Update(ctx, notice); err != nil {
		return nil, err
	}
	return toNoticeInfo(notice), nil
}

func (s *NoticeService) Delete(ctx context.Context, actor Actor, id int64) error {
	if _, err := s.mustManage(ctx, actor, id); err != nil {
		return err
	}
	return s.noticeRepo.Delete(ctx, id)
}

// ToggleStatus 启用/停用
func (s *NoticeService) ToggleStatus(ctx context.Context, actor Actor, id int64) (*dto.NoticeInfo, error) {
	notice, err := s.mustManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	notice.IsActive = !notice.IsActive
	if err := s.noticeRepo.Update(ctx, notice); err != nil {
		return nil, err
	}
	return toNoticeInfo(notice), nil
}

func (s *NoticeService) mustGet(ctx context.Context, id int64) (*model.Notice, error) {
	notice, err := s.noticeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notice == nil {
		return nil, ErrNoticeNotFound
	}
	return notice, nil
}

func (s *NoticeService) mustManage(ctx context.Context, actor Actor, id int64) (*model.Notice, error) {
	notice, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsMerchant() && actor.ShopID == nil {
		return nil, ErrMerchantNoShop
	}
	if !actor.CanManageShop(notice.ShopID) {
		return nil, ErrForbidden
	}
	return notice, nil
}

func toNoticeInfo(n *model.Notice) *dto.NoticeInfo {
	info := &dto.NoticeInfo{
		ID:        n.ID,
		ShopID:    n.ShopID,
		Title:     n.Title,
		Content:   n.Content,
		IsActive:  n.IsActive,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if n.Shop != nil {
		info.ShopName = n.Shop.Name
	}
	return info
}
