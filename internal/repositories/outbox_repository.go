package repositories

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"restaurant_backend/internal/models"
)

// OutboxRepository stores notifications until the dispatcher delivers them.
type OutboxRepository interface {
	Enqueue(executor SQLExecutor, msg *models.OutboxMessage) (int64, error)
	// ClaimPending leases up to limit undelivered rows for the given duration. Rows leased by
	// another dispatcher are skipped until their lease runs out.
	ClaimPending(executor SQLExecutor, limit int, lease time.Duration) ([]models.OutboxMessage, error)
	MarkSent(executor SQLExecutor, id int64, sentAt time.Time) error
	// MarkAttemptFailed records a failed delivery and drops the lease. When giveUp is set the row
	// is parked and never claimed again.
	MarkAttemptFailed(executor SQLExecutor, id int64, errMsg string, giveUp bool) error
}

type outboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository creates a new instance of OutboxRepository.
func NewOutboxRepository(db *sql.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Enqueue(executor SQLExecutor, msg *models.OutboxMessage) (int64, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	err := executor.QueryRow(
		`INSERT INTO notification_outbox (message_id, topic, order_id, recipient, payload, attempts, created_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6)
		 RETURNING id`,
		msg.MessageID, msg.Topic, msg.OrderID, msg.Recipient, msg.Payload, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return 0, classifyWriteError(err, fmt.Sprintf("enqueuing %s for order %d", msg.Topic, msg.OrderID))
	}
	return msg.ID, nil
}

func (r *outboxRepository) ClaimPending(executor SQLExecutor, limit int, lease time.Duration) ([]models.OutboxMessage, error) {
	messages := []models.OutboxMessage{}
	until := time.Now().Add(lease)
	rows, err := executor.Query(
		`UPDATE notification_outbox SET claimed_until = $1
		 WHERE id IN (
		     SELECT id FROM notification_outbox
		     WHERE sent_at IS NULL AND failed_at IS NULL
		       AND (claimed_until IS NULL OR claimed_until < NOW())
		     ORDER BY id
		     LIMIT $2
		     FOR UPDATE SKIP LOCKED)
		 RETURNING id, message_id, topic, order_id, recipient, payload, attempts, last_error, created_at, claimed_until`,
		until, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: claiming outbox messages: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg models.OutboxMessage
		if err := rows.Scan(
			&msg.ID, &msg.MessageID, &msg.Topic, &msg.OrderID, &msg.Recipient, &msg.Payload,
			&msg.Attempts, &msg.LastError, &msg.CreatedAt, &msg.ClaimedUntil,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning outbox message: %v", ErrDatabaseError, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating outbox messages: %v", ErrDatabaseError, err)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	return messages, nil
}

func (r *outboxRepository) MarkSent(executor SQLExecutor, id int64, sentAt time.Time) error {
	_, err := executor.Exec(`UPDATE notification_outbox SET sent_at = $1, attempts = attempts + 1, claimed_until = NULL WHERE id = $2`, sentAt, id)
	if err != nil {
		return fmt.Errorf("%w: marking outbox message %d sent: %v", ErrDatabaseError, id, err)
	}
	return nil
}

func (r *outboxRepository) MarkAttemptFailed(executor SQLExecutor, id int64, errMsg string, giveUp bool) error {
	var failedAt sql.NullTime
	if giveUp {
		failedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	_, err := executor.Exec(
		`UPDATE notification_outbox SET attempts = attempts + 1, last_error = $1, failed_at = $2, claimed_until = NULL WHERE id = $3`,
		errMsg, failedAt, id,
	)
	if err != nil {
		return fmt.Errorf("%w: recording failed delivery of outbox message %d: %v", ErrDatabaseError, id, err)
	}
	return nil
}
