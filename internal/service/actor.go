package service

import "jiuba_platform/internal/model"

// Actor 当前操作人
type Actor struct {
	UserID int64
	Role   model.UserRole
	ShopID *int64 // 商家所属店铺
}

// Anonymous 未登录
var Anonymous = Actor{}

func (a Actor) IsAuthenticated() bool { return a.UserID > 0 }
func (a Actor) IsAdmin() bool         { return a.Role == model.RoleAdmin }
func (a Actor) IsMerchant() bool      { return a.Role == model.RoleMerchant }
func (a Actor) IsStaff() bool         { return a.Role.IsStaff() }

// CanManageShop 管理员可管理全部店铺，商家只能管理所属店铺
func (a Actor) CanManageShop(shopID int64) bool {
	switch a.Role {
	case model.RoleAdmin:
		return true
	case model.RoleMerchant:
		return a.ShopID != nil && *a.ShopID == shopID
	}
	return false
}

// ShopScope 列表查询的店铺范围
// 商家固定为所属店铺；管理员使用请求参数；顾客返回 nil
func (a Actor) ShopScope(requested *int64) (*int64, error) {
	switch a.Role {
	case model.RoleMerchant:
		if a.ShopID == nil {
			return nil, ErrMerchantNoShop
		}
		return a.ShopID, nil
	case model.RoleAdmin:
		return requested, nil
	}
	return nil, nil
}

// ResolveShopID 创建资源时确定所属店铺
func (a Actor) ResolveShopID(requested int64) (int64, error) {
	switch a.Role {
	case model.RoleMerchant:
		if a.ShopID == nil {
			return 0, ErrMerchantNoShop
		}
		if requested != 0 && requested != *a.ShopID {
			return 0, ErrForbidden
		}
		return *a.ShopID, nil
	case model.RoleAdmin:
		if requested == 0 {
			return 0, ErrShopIDRequired
		}
		return requested, nil
	}
	return 0, ErrForbidden
}
