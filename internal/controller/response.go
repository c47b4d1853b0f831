package controller

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"jiuba_platform/internal/middleware"
	"jiuba_platform/internal/model"
	"jiuba_platform/internal/service"
	"jiuba_platform/pkg/cache"
)

// ==================== 统一响应 ====================

func success(ctx *gin.Context, message string, data interface{}) {
	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": message,
		"data":    data,
	})
}

func created(ctx *gin.Context, message string, data interface{}) {
	ctx.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": message,
		"data":    data,
	})
}

func fail(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}

// badRequest 参数绑定失败，校验错误按字段返回
func badRequest(ctx *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误",
			"data":    fields,
		})
		return
	}
	fail(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
}

func init() {
	// 校验错误使用 json/form 字段名
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "该字段为必填项"
	case "min":
		return "不能小于 " + fe.Param()
	case "max":
		return "不能大于 " + fe.Param()
	case "gt":
		return "必须大于 " + fe.Param()
	case "oneof":
		return "必须是以下值之一: " + fe.Param()
	case "email":
		return "邮箱格式不正确"
	}
	return "校验失败: " + fe.Tag()
}

// handleError 业务错误映射为 HTTP 状态码
func handleError(ctx *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", middleware.GetRequestID(ctx)).
			Str("path", ctx.FullPath()).
			Msg("请求处理失败")
		fail(ctx, status, "服务器内部错误")
		return
	}
	fail(ctx, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case isAny(err,
		service.ErrUserNotFound, service.ErrShopNotFound, service.ErrCategoryNotFound,
		service.ErrProductNotFound, service.ErrCartNotFound, service.ErrCartItemNotFound,
		service.ErrOrderNotFound, service.ErrPaymentNotFound, service.ErrActivityNotFound,
		service.ErrReservationNotFound, service.ErrNoticeNotFound):
		return http.StatusNotFound
	case isAny(err, service.ErrForbidden, service.ErrMerchantNoShop):
		return http.StatusForbidden
	case isAny(err, service.ErrInvalidCredentials, service.ErrUserDisabled, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case isAny(err, service.ErrTooFrequent, cache.ErrLockTimeout):
		return http.StatusTooManyRequests
	case isAny(err, service.ErrGateway):
		return http.StatusBadGateway
	case isAny(err, service.ErrStorageDisabled):
		return http.StatusServiceUnavailable
	case isAny(err,
		service.ErrInvalidOldPassword, service.ErrUsernameExists, service.ErrInvalidAmount,
		service.ErrNegativeBalance, service.ErrInvalidPoints, service.ErrNothingToUpdate,
		service.ErrShopIDRequired, service.ErrInvalidFile,
		service.ErrShopNameExists, service.ErrShopInactive, service.ErrProductUnavailable,
		service.ErrInvalidPrice, service.ErrInvalidOriginalPrice, service.ErrInvalidPointsPrice,
		service.ErrCartEmpty, service.ErrInvalidQuantity, service.ErrPointsNotSupported,
		service.ErrInsufficientPoints, service.ErrInsufficientStock, service.ErrInvalidTransition,
		service.ErrCashRefundByPay, service.ErrInvalidPayMethod,
		service.ErrPaymentExists, service.ErrInsufficientBalance, service.ErrOrderNotPayable,
		service.ErrPointsOrderNoPayment, service.ErrPaymentNotRefundable,
		service.ErrInvalidTimeRange, service.ErrInvalidDate, service.ErrActivityStarted,
		service.ErrActivityInactive, service.ErrAlreadyReserved, service.ErrActivityFull,
		service.ErrReservationNotConfirmed):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ==================== 请求上下文 ====================

// actorFrom 由 JWT 中间件注入的信息构造操作人
func actorFrom(ctx *gin.Context) service.Actor {
	userID := middleware.GetUserID(ctx)
	if userID == 0 {
		return service.Anonymous
	}
	return service.Actor{
		UserID: userID,
		Role:   model.UserRole(middleware.GetUserRole(ctx)),
		ShopID: middleware.GetShopID(ctx),
	}
}

// pathID 解析路径中的 ID，失败时直接写入 400
func pathID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(ctx, http.StatusBadRequest, "无效的ID")
		return 0, false
	}
	return id, true
}

const maxUploadSize = 10 << 20

// readImage 读取 multipart 上传的图片
func readImage(ctx *gin.Context, field string) ([]byte, bool) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		fail(ctx, http.StatusBadRequest, "请上传文件: "+field)
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		fail(ctx, http.StatusBadRequest, "读取文件失败")
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		fail(ctx, http.StatusBadRequest, "读取文件失败")
		return nil, false
	}
	return data, true
}
