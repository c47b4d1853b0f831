package service

import "errors"

// ==================== 错误定义 ====================

// 认证 / 用户
var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserDisabled       = errors.New("用户已禁用")
	ErrInvalidToken       = errors.New("Token 无效")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrInvalidOldPassword = errors.New("旧密码错误")
	ErrUsernameExists     = errors.New("用户名已存在")
	ErrInvalidAmount      = errors.New("金额必须大于0")
	ErrNegativeBalance    = errors.New("余额不能为负数")
	ErrInvalidPoints      = errors.New("积分必须大于0")
	ErrNothingToUpdate    = errors.New("没有需要更新的字段")
)

// 权限
var (
	ErrForbidden       = errors.New("无权限操作")
	ErrMerchantNoShop  = errors.New("商家账号未绑定店铺")
	ErrShopIDRequired  = errors.New("缺少 shop_id 参数")
	ErrTooFrequent     = errors.New("操作过于频繁，请稍后重试")
	ErrStorageDisabled = errors.New("存储服务未配置")
	ErrInvalidFile     = errors.New("文件格式不支持")
)

// 店铺 / 商品
var (
	ErrShopNotFound         = errors.New("店铺不存在")
	ErrShopNameExists       = errors.New("店铺名称已存在")
	ErrShopInactive         = errors.New("店铺已停业")
	ErrCategoryNotFound     = errors.New("分类不存在")
	ErrProductNotFound      = errors.New("商品不存在")
	ErrProductUnavailable   = errors.New("商品已下架或不可售")
	ErrInvalidPrice         = errors.New("价格必须大于0")
	ErrInvalidOriginalPrice = errors.New("原价必须高于现价")
	ErrInvalidPointsPrice   = errors.New("积分原价必须高于积分价")
)

// 购物车 / 订单
var (
	ErrCartNotFound       = errors.New("购物车不存在")
	ErrCartEmpty          = errors.New("购物车为空")
	ErrCartItemNotFound   = errors.New("购物车商品不存在")
	ErrInvalidQuantity    = errors.New("数量必须大于0")
	ErrOrderNotFound      = errors.New("订单不存在")
	ErrPointsNotSupported = errors.New("商品不支持积分购买")
	ErrInsufficientPoints = errors.New("积分不足")
	ErrInsufficientStock  = errors.New("库存不足")
	ErrInvalidTransition  = errors.New("订单状态不允许该操作")
	ErrCashRefundByPay    = errors.New("现金订单请通过支付退款")
	ErrInvalidPayMethod   = errors.New("不支持的支付方式")
)

// 支付
var (
	ErrPaymentNotFound      = errors.New("支付记录不存在")
	ErrPaymentExists        = errors.New("订单已存在支付记录")
	ErrInsufficientBalance  = errors.New("余额不足")
	ErrOrderNotPayable      = errors.New("订单状态不允许支付")
	ErrPointsOrderNoPayment = errors.New("积分订单无需支付")
	ErrPaymentNotRefundable = errors.New("支付状态不允许退款")
	ErrGateway              = errors.New("支付网关调用失败")
	ErrNotifySignature      = errors.New("回调签名错误")
)

// 活动 / 预约 / 公告
var (
	ErrActivityNotFound        = errors.New("活动不存在")
	ErrInvalidTimeRange        = errors.New("结束时间必须晚于开始时间")
	ErrInvalidDate             = errors.New("日期格式应为 YYYY-MM-DD")
	ErrActivityStarted         = errors.New("活动已开始，无法预约")
	ErrActivityInactive        = errors.New("活动未开放")
	ErrAlreadyReserved         = errors.New("您已预约过该活动")
	ErrActivityFull            = errors.New("活动名额已满")
	ErrReservationNotFound     = errors.New("预约不存在")
	ErrReservationNotConfirmed = errors.New("只有已确认的预约可以操作")
	ErrNoticeNotFound          = errors.New("公告不存在")
)
