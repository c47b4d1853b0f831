package wxpay

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// 交易状态
const (
	TradeSuccess = "SUCCESS"
	TradeNotPay  = "NOTPAY"
	TradeClosed  = "CLOSED"
	TradeRefund  = "REFUND"
)

// Config 商户配置
type Config struct {
	AppID      string
	MchID      string
	APIKey     string
	NotifyURL  string
	GatewayURL string
}

// UnifiedOrderRequest 统一下单
type UnifiedOrderRequest struct {
	OutTradeNo string
	TotalFee   int64 // 分
	Body       string
	ClientIP   string
	OpenID     string
}

// UnifiedOrderResult 统一下单结果
type UnifiedOrderResult struct {
	PrepayID string
}

// RefundRequest 退款
type RefundRequest struct {
	OutTradeNo  string
	OutRefundNo string
	TotalFee    int64
	RefundFee   int64
	Reason      string
}

// RefundResult 退款结果
type RefundResult struct {
	RefundID string
}

// QueryResult 订单查询结果
type QueryResult struct {
	TradeState    string
	TransactionID string
}

// Gateway 支付网关
type Gateway interface {
	UnifiedOrder(ctx context.Context, req *UnifiedOrderRequest) (*UnifiedOrderResult, error)
	Query(ctx context.Context, outTradeNo string) (*QueryResult, error)
	Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error)
	// PayParams 生成前端 JSAPI 调起支付参数
	PayParams(prepayID string) Params
}

// NewGateway 按模式创建网关
func NewGateway(mode string, cfg Config) (Gateway, error) {
	switch mode {
	case "", "mock":
		return NewMockGateway(cfg), nil
	case "remote":
		return NewRemoteGateway(cfg), nil
	default:
		return nil, fmt.Errorf("不支持的支付网关模式: %s", mode)
	}
}

// buildPayParams JSAPI 支付参数
func buildPayParams(cfg Config, prepayID string) Params {
	p := Params{
		"appId":     cfg.AppID,
		"timeStamp": strconv.FormatInt(time.Now().Unix(), 10),
		"nonceStr":  NonceStr(32),
		"package":   "prepay_id=" + prepayID,
		"signType":  "MD5",
	}
	p["paySign"] = Sign(p, cfg.APIKey)
	return p
}
