package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/repository"
)

// ShopService 店铺服务
type ShopService struct {
	shopRepo repository.ShopRepository
	storage  *StorageService
}

// NewShopService 创建店铺服务
func NewShopService(uow *repository.UnitOfWork, storage *StorageService) *ShopService {
	return &ShopService{shopRepo: uow.Shops, storage: storage}
}

// List 店铺列表，非管理员只能看到营业中的店铺
func (s *ShopService) List(ctx context.Context, actor Actor, req *dto.ShopListRequest) (*dto.PageResult[dto.ShopInfo], error) {
	shops, total, err := s.shopRepo.List(ctx, repository.ShopFilter{
		ActiveOnly: !actor.IsAdmin(),
		Search:     strings.TrimSpace(req.Search),
		Ordering:   req.Ordering,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	list, err := s.toInfos(ctx, shops)
	if err != nil {
		return nil, err
	}
	return dto.NewPageResult(list, total, req.PageQuery), nil
}

// Active 全部营业中的店铺
func (s *ShopService) Active(ctx context.Context) ([]dto.ShopInfo, error) {
	shops, _, err := s.shopRepo.List(ctx, repository.ShopFilter{ActiveOnly: true, Ordering: "name", PageSize: 100})
	if err != nil {
		return nil, err
	}
	return s.toInfos(ctx, shops)
}

// Get 店铺详情，停业店铺仅管理员可见
func (s *ShopService) Get(ctx context.Context, actor Actor, id int64) (*dto.ShopInfo, error) {
	shop, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !shop.IsActive && !actor.IsAdmin() {
		return nil, ErrShopNotFound
	}

	infos, err := s.toInfos(ctx, []model.Shop{*shop})
	if err != nil {
		return nil, err
	}
	return &infos[0], nil
}

// Create 创建店铺
func (s *ShopService) Create(ctx context.Context, req *dto.CreateShopRequest) (*dto.ShopInfo, error) {
	name := strings.TrimSpace(req.Name)
	exists, err := s.shopRepo.ExistsByName(ctx, name, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrShopNameExists
	}

	shop := &model.Shop{
		Name:        name,
		Address:     req.Address,
		Phone:       req.Phone,
		Description: req.Description,
		IsActive:    true,
	}
	if req.IsActive != nil {
		shop.IsActive = *req.IsActive
	}
	if err := s.shopRepo.Create(ctx, shop); err != nil {
		return nil, err
	}

	log.Info().Int64("shop_id", shop.ID).Str("name", shop.Name).Msg("创建店铺")
	return &dto.ShopInfo{
		ID:          shop.ID,
		Name:        shop.Name,
		Address:     shop.Address,
		Phone:       shop.Phone,
		Description: shop.Description,
		Logo:        shop.Logo,
		IsActive:    shop.IsActive,
		CreatedAt:   shop.CreatedAt,
		UpdatedAt:   shop.UpdatedAt,
	}, nil
}

// Update 更新店铺
func (s *ShopService) Update(ctx context.Context, id int64, req *dto.UpdateShopRequest) (*dto.ShopInfo, error) {
	shop, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != shop.Name {
			exists, err := s.shopRepo.ExistsByName(ctx, name, id)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrShopNameExists
			}
			shop.Name = name
		}
	}
	if req.Address != nil {
		shop.Address = *req.Address
	}
	if req.Phone != nil {
		shop.Phone = *req.Phone
	}
	if req.Description != nil {
		shop.Description = *req.Description
	}
	if req.IsActive != nil {
		shop.IsActive = *req.IsActive
	}

	if err := s.shopRepo.Update(ctx, shop); err != nil {
		return nil, err
	}
	return s.Get(ctx, Actor{Role: model.RoleAdmin}, id)
}

// Delete 删除店铺（软删除）
func (s *ShopService) Delete(ctx context.Context, id int64) error {
	if _, err := s.mustGet(ctx, id); err != nil {
		return err
	}
	return s.shopRepo.Delete(ctx, id)
}

// ToggleStatus 切换营业状态
func (s *ShopService) ToggleStatus(ctx context.Context, id int64) (*dto.ShopInfo, error) {
	shop, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.shopRepo.UpdateFields(ctx, id, map[string]interface{}{"is_active": !shop.IsActive}); err != nil {
		return nil, err
	}
	log.Info().Int64("shop_id", id).Bool("is_active", !shop.IsActive).Msg("切换店铺状态")
	return s.Get(ctx, Actor{Role: model.RoleAdmin}, id)
}

// UploadLogo 上传店铺 Logo
func (s *ShopService) UploadLogo(ctx context.Context, id int64, data []byte) (*dto.UploadResponse, error) {
	shop, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.UploadImage(ctx, data, "shops")
	if err != nil {
		return nil, err
	}
	if err := s.shopRepo.UpdateFields(ctx, id, map[string]interface{}{"logo": url}); err != nil {
		return nil, err
	}
	if shop.Logo != "" {
		if err := s.storage.Delete(ctx, shop.Logo); err != nil {
			log.Warn().Err(err).Str("url", shop.Logo).Msg("删除旧 Logo 失败")
		}
	}
	return &dto.UploadResponse{URL: url}, nil
}

func (s *ShopService) mustGet(ctx context.Context, id int64) (*model.Shop, error) {
	shop, err := s.shopRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	return shop, nil
}

// toInfos 批量转换并填充在售商品数
func (s *ShopService) toInfos(ctx context.Context, shops []model.Shop) ([]dto.ShopInfo, error) {
	ids := make([]int64, 0, len(shops))
	for _, shop := range shops {
		ids = append(ids, shop.ID)
	}
	counts, err := s.shopRepo.CountAvailableProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	list := make([]dto.ShopInfo, 0, len(shops))
	for _, shop := range shops {
		list = append(list, dto.ShopInfo{
			ID:                  shop.ID,
			Name:                shop.Name,
			Address:             shop.Address,
			Phone:               shop.Phone,
			Description:         shop.Description,
			Logo:                shop.Logo,
			IsActive:            shop.IsActive,
			ActiveProductsCount: counts[shop.ID],
			CreatedAt:           shop.CreatedAt,
			UpdatedAt:           shop.UpdatedAt,
		})
	}
	return list, nil
}
