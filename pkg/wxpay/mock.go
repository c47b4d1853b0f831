package wxpay

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// MockGateway 本地模拟网关，不发起网络请求
type MockGateway struct {
	cfg Config

	mu   sync.Mutex
	paid map[string]string // out_trade_no -> transaction_id
}

// NewMockGateway 创建模拟网关
func NewMockGateway(cfg Config) *MockGateway {
	if cfg.APIKey == "" {
		cfg.APIKey = "mock_api_key"
	}
	return &MockGateway{cfg: cfg, paid: make(map[string]string)}
}

func (g *MockGateway) UnifiedOrder(_ context.Context, req *UnifiedOrderRequest) (*UnifiedOrderResult, error) {
	if req.OutTradeNo == "" {
		return nil, fmt.Errorf("out_trade_no 不能为空")
	}
	if req.TotalFee <= 0 {
		return nil, fmt.Errorf("total_fee 必须大于0")
	}
	return &UnifiedOrderResult{
		PrepayID: fmt.Sprintf("wx%d%d", time.Now().Unix(), 1000+rand.Intn(9000)),
	}, nil
}

// MarkPaid 模拟用户完成支付
func (g *MockGateway) MarkPaid(outTradeNo, transactionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paid[outTradeNo] = transactionID
}

func (g *MockGateway) Query(_ context.Context, outTradeNo string) (*QueryResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if txID, ok := g.paid[outTradeNo]; ok {
		return &QueryResult{TradeState: TradeSuccess, TransactionID: txID}, nil
	}
	return &QueryResult{TradeState: TradeNotPay}, nil
}

func (g *MockGateway) Refund(_ context.Context, req *RefundRequest) (*RefundResult, error) {
	if req.RefundFee <= 0 || req.RefundFee > req.TotalFee {
		return nil, fmt.Errorf("退款金额无效")
	}
	return &RefundResult{
		RefundID: "RF" + strings.ToUpper(NonceStr(18)),
	}, nil
}

func (g *MockGateway) PayParams(prepayID string) Params {
	return buildPayParams(g.cfg, prepayID)
}
