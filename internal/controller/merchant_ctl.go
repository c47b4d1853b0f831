package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jiuba_platform/internal/service"
)

// MerchantController 商家后台
type MerchantController struct {
	merchantSvc *service.MerchantService
}

func NewMerchantController(merchantSvc *service.MerchantService) *MerchantController {
	return &MerchantController{merchantSvc: merchantSvc}
}

// Dashboard 后台仪表盘
// @Summary 后台仪表盘
// @Description 商家固定统计所属店铺；管理员可传 shop_id，不传统计全平台
// @Tags Merchant
// @Produce json
// @Security BearerAuth
// @Param shop_id query int false "店铺ID（管理员）"
// @Success 200 {object} dto.DashboardResponse
// @Failure 403 {object} map[string]interface{}
// @Router /api/merchant/dashboard [get]
func (c *MerchantController) Dashboard(ctx *gin.Context) {
	var shopID *int64
	if raw := ctx.Query("shop_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(ctx, http.StatusBadRequest, "无效的 shop_id")
			return
		}
		shopID = &id
	}

	dash, err := c.merchantSvc.Dashboard(ctx.Request.Context(), actorFrom(ctx), shopID)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", dash)
}
