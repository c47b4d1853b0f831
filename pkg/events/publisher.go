package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// 事件类型
const (
	OrderCreated         = "order.created"
	OrderPaid            = "order.paid"
	OrderCancelled       = "order.cancelled"
	OrderRefunded        = "order.refunded"
	ReservationCreated   = "reservation.created"
	ReservationCancelled = "reservation.cancelled"
)

// Event 领域事件
type Event struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	AggregateID int64       `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Payload     interface{} `json:"payload"`
}

// New 创建事件
func New(eventType string, aggregateID int64, payload interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now(),
		Payload:     payload,
	}
}

// Key 消息分区键
func (e Event) Key() string {
	return fmt.Sprintf("%d", e.AggregateID)
}

// Encode 序列化为 JSON
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 事件发布器
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// ==================== Noop ====================

// NoopPublisher 丢弃所有事件
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// ==================== Log ====================

// LogPublisher 只写日志
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, evt Event) error {
	log.Info().
		Str("event_id", evt.ID).
		Str("type", evt.Type).
		Int64("aggregate_id", evt.AggregateID).
		Msg("domain event")
	return nil
}

func (LogPublisher) Close() error { return nil }

// ==================== 工厂 ====================

// Config 发布器配置
type Config struct {
	Driver   string // none | log | kafka | rabbitmq
	Brokers  []string
	Topic    string
	URL      string
	Exchange string
}

// NewPublisher 按配置创建发布器
func NewPublisher(cfg Config) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return NoopPublisher{}, nil
	case "log":
		return LogPublisher{}, nil
	case "kafka":
		return NewKafkaPublisher(cfg.Brokers, cfg.Topic)
	case "rabbitmq":
		return NewRabbitPublisher(cfg.URL, cfg.Exchange)
	default:
		return nil, fmt.Errorf("不支持的事件驱动: %s", cfg.Driver)
	}
}

// PublishAsync 发布失败只记录日志，不影响业务
func PublishAsync(p Publisher, evt Event) {
	if p == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.Publish(ctx, evt); err != nil {
			log.Warn().Err(err).Str("type", evt.Type).Int64("aggregate_id", evt.AggregateID).Msg("事件发布失败")
		}
	}()
}
