package notifications

import (
	"context"
	"fmt"

	"restaurant_backend/internal/cache"
	"restaurant_backend/internal/models"
	"restaurant_backend/pkg/utils"
)

// Sender delivers one outbox message to its customer-facing transport.
type Sender interface {
	Send(ctx context.Context, msg models.OutboxMessage) error
}

// LogSender writes notifications to the structured log. It is the default transport when no
// external channel is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg models.OutboxMessage) error {
	recipient := ""
	if msg.Recipient != nil {
		recipient = *msg.Recipient
	}
	utils.LogInfo("Notification sent", map[string]interface{}{
		"message_id": msg.MessageID,
		"topic":      msg.Topic,
		"order_id":   msg.OrderID,
		"recipient":  recipient,
		"payload":    string(msg.Payload),
	})
	return nil
}

type publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// RedisSender publishes each message on "<channel>.<topic>" so mailers and kitchen displays can
// subscribe to the topics they care about.
type RedisSender struct {
	publisher publisher
	channel   string
}

func NewRedisSender(p *cache.Publisher, channel string) *RedisSender {
	return &RedisSender{publisher: p, channel: channel}
}

func (s *RedisSender) Send(ctx context.Context, msg models.OutboxMessage) error {
	channel := s.channel + "." + msg.Topic
	receivers, err := s.publisher.Publish(ctx, channel, msg.Payload)
	if err != nil {
		return fmt.Errorf("publishing %s to %s: %w", msg.MessageID, channel, err)
	}
	utils.LogDebug("Notification published", map[string]interface{}{
		"message_id": msg.MessageID, "channel": channel, "receivers": receivers,
	})
	return nil
}
