package services

import (
	"encoding/json"
	"fmt"
	"time"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/repositories"

	"github.com/google/uuid"
)

// OrderNotifier queues customer-facing notifications. Messages are written to the outbox inside
// the caller's transaction and delivered later by the dispatcher, so a delivery failure can never
// undo the state change that produced it.
type OrderNotifier interface {
	OrderConfirmed(executor repositories.SQLExecutor, order *models.Order) error
	OrderReady(executor repositories.SQLExecutor, order *models.Order) error
}

type outboxNotifier struct {
	outboxRepo repositories.OutboxRepository
}

// NewOrderNotifier creates an OrderNotifier backed by the notification outbox.
func NewOrderNotifier(outboxRepo repositories.OutboxRepository) OrderNotifier {
	return &outboxNotifier{outboxRepo: outboxRepo}
}

func (n *outboxNotifier) OrderConfirmed(executor repositories.SQLExecutor, order *models.Order) error {
	return n.enqueue(executor, models.NotificationOrderConfirmation, order)
}

func (n *outboxNotifier) OrderReady(executor repositories.SQLExecutor, order *models.Order) error {
	return n.enqueue(executor, models.NotificationOrderReady, order)
}

func (n *outboxNotifier) enqueue(executor repositories.SQLExecutor, topic string, order *models.Order) error {
	payload, err := json.Marshal(models.OrderNotification{
		OrderID:      order.ID,
		Status:       order.Status,
		CustomerName: order.CustomerName(),
		TotalCost:    order.TotalCost.StringFixed(2),
		OrderType:    order.OrderType,
		TableNumber:  order.TableNumber,
	})
	if err != nil {
		return fmt.Errorf("encoding %s payload for order %d: %w", topic, order.ID, err)
	}
	msg := models.OutboxMessage{
		MessageID: uuid.NewString(),
		Topic:     topic,
		OrderID:   order.ID,
		Recipient: order.CustomerEmail,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if _, err := n.outboxRepo.Enqueue(executor, &msg); err != nil {
		return persistenceError(fmt.Sprintf("enqueuing %s for order %d", topic, order.ID), err)
	}
	return nil
}
