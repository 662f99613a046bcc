package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelAccountEvents = "account_events"
)

// 事件类型
const (
	EventPaymentConfirmed = "payment_confirmed"
	EventCreditsGranted   = "credits_granted"
	EventPlanChanged      = "plan_changed"
)

// AccountEvent 账户变更事件，推送给该账户的 websocket 连接
type AccountEvent struct {
	Type           string `json:"type"`
	AccountID      string `json:"account_id"`
	Plan           string `json:"plan,omitempty"`
	CreditsBalance int64  `json:"credits_balance"`
	TxID           string `json:"txid,omitempty"`
	Amount         int64  `json:"amount,omitempty"`
	At             int64  `json:"at"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布账户事件
func (p *Publisher) Publish(ctx context.Context, event *AccountEvent) error {
	if event.At == 0 {
		event.At = time.Now().UnixMilli()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal account event: %w", err)
	}

	return p.client.Publish(ctx, ChannelAccountEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅账户事件，阻塞直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*AccountEvent)) error {
	pubsub := s.client.Subscribe(ctx, ChannelAccountEvents)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event AccountEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
