package models

import "time"

// Notification topics written to the outbox.
const (
	NotificationOrderConfirmation = "order_confirmation"
	NotificationOrderReady        = "order_ready"
)

// OutboxMessage is a pending notification written in the same transaction as the state change
// that caused it.
type OutboxMessage struct {
	ID        int64      `json:"id" db:"id"`
	MessageID string     `json:"message_id" db:"message_id"`
	Topic     string     `json:"topic" db:"topic"`
	OrderID   int64      `json:"order_id" db:"order_id"`
	Recipient *string    `json:"recipient,omitempty" db:"recipient"`
	Payload   []byte     `json:"payload" db:"payload"`
	Attempts  int        `json:"attempts" db:"attempts"`
	LastError *string    `json:"last_error,omitempty" db:"last_error"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	FailedAt  *time.Time `json:"failed_at,omitempty" db:"failed_at"`
	// ClaimedUntil is the lease a dispatcher holds while delivering the message.
	ClaimedUntil *time.Time `json:"claimed_until,omitempty" db:"claimed_until"`
}

// OrderNotification is the JSON payload stored on an outbox row.
type OrderNotification struct {
	OrderID      int64       `json:"order_id"`
	Status       OrderStatus `json:"status"`
	CustomerName string      `json:"customer_name"`
	TotalCost    string      `json:"total_cost"`
	OrderType    OrderType   `json:"order_type"`
	TableNumber  *int        `json:"table_number,omitempty"`
}
