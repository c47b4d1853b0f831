package wxpay

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteGateway 调用微信支付 v2 XML 接口
type RemoteGateway struct {
	cfg    Config
	client *resty.Client
}

// NewRemoteGateway 创建远程网关
func NewRemoteGateway(cfg Config) *RemoteGateway {
	client := resty.New().
		SetBaseURL(cfg.GatewayURL).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(300*time.Millisecond).
		SetHeader("Content-Type", "text/xml; charset=utf-8")

	return &RemoteGateway{cfg: cfg, client: client}
}

// post 签名后发送 XML 请求并校验返回
func (g *RemoteGateway) post(ctx context.Context, path string, params Params) (Params, error) {
	params["appid"] = g.cfg.AppID
	params["mch_id"] = g.cfg.MchID
	params["nonce_str"] = NonceStr(32)
	params["sign"] = Sign(params, g.cfg.APIKey)

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(EncodeXML(params)).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("请求微信支付失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("微信支付返回 HTTP %d", resp.StatusCode())
	}

	result, err := DecodeXML(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("解析微信支付响应失败: %w", err)
	}
	if result["return_code"] != "SUCCESS" {
		return nil, fmt.Errorf("微信支付请求失败: %s", result["return_msg"])
	}
	if _, signed := result["sign"]; signed && !Verify(result, g.cfg.APIKey) {
		return nil, fmt.Errorf("微信支付响应签名错误")
	}
	if result["result_code"] != "" && result["result_code"] != "SUCCESS" {
		return nil, fmt.Errorf("微信支付业务失败: %s", result["err_code_des"])
	}
	return result, nil
}

func (g *RemoteGateway) UnifiedOrder(ctx context.Context, req *UnifiedOrderRequest) (*UnifiedOrderResult, error) {
	result, err := g.post(ctx, "/pay/unifiedorder", Params{
		"body":             req.Body,
		"out_trade_no":     req.OutTradeNo,
		"total_fee":        strconv.FormatInt(req.TotalFee, 10),
		"spbill_create_ip": req.ClientIP,
		"notify_url":       g.cfg.NotifyURL,
		"trade_type":       "JSAPI",
		"openid":           req.OpenID,
	})
	if err != nil {
		return nil, err
	}
	return &UnifiedOrderResult{PrepayID: result["prepay_id"]}, nil
}

func (g *RemoteGateway) Query(ctx context.Context, outTradeNo string) (*QueryResult, error) {
	result, err := g.post(ctx, "/pay/orderquery", Params{"out_trade_no": outTradeNo})
	if err != nil {
		return nil, err
	}
	return &QueryResult{
		TradeState:    result["trade_state"],
		TransactionID: result["transaction_id"],
	}, nil
}

func (g *RemoteGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error) {
	result, err := g.post(ctx, "/secapi/pay/refund", Params{
		"out_trade_no":  req.OutTradeNo,
		"out_refund_no": req.OutRefundNo,
		"total_fee":     strconv.FormatInt(req.TotalFee, 10),
		"refund_fee":    strconv.FormatInt(req.RefundFee, 10),
		"refund_desc":   req.Reason,
	})
	if err != nil {
		return nil, err
	}
	return &RefundResult{RefundID: result["refund_id"]}, nil
}

func (g *RemoteGateway) PayParams(prepayID string) Params {
	return buildPayParams(g.cfg, prepayID)
}
