package notifications

import (
	"context"
	"fmt"
	"time"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/repositories"
	"restaurant_backend/pkg/utils"
)

const sendTimeout = 5 * time.Second

// DispatcherConfig tunes the outbox poll loop.
type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Dispatcher drains the notification outbox. Delivery happens after the producing transaction
// committed, so a failing transport only delays or drops a notification.
type Dispatcher struct {
	outboxRepo repositories.OutboxRepository
	tx         repositories.Transactor
	sender     Sender
	cfg        DispatcherConfig
}

func NewDispatcher(outboxRepo repositories.OutboxRepository, tx repositories.Transactor, sender Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Dispatcher{outboxRepo: outboxRepo, tx: tx, sender: sender, cfg: cfg}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	utils.LogInfo("Outbox dispatcher started", map[string]interface{}{
		"poll_interval": d.cfg.PollInterval.String(), "batch_size": d.cfg.BatchSize, "max_attempts": d.cfg.MaxAttempts,
	})
	for {
		select {
		case <-ctx.Done():
			utils.LogInfo("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				utils.LogError(err, "Outbox dispatcher: batch failed")
			}
		}
	}
}

// DispatchOnce leases one batch in a short transaction, delivers the messages with no
// transaction open, then records each outcome in its own transaction. It returns the number of
// messages delivered.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	var messages []models.OutboxMessage
	err := d.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		claimed, err := d.outboxRepo.ClaimPending(exec, d.cfg.BatchSize, d.claimLease())
		messages = claimed
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("claiming outbox batch: %w", err)
	}

	sent := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			break
		}
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		sendErr := d.sender.Send(sendCtx, msg)
		cancel()

		if err := d.record(msg, sendErr); err != nil {
			return sent, fmt.Errorf("recording delivery of %s: %w", msg.MessageID, err)
		}
		if sendErr == nil {
			sent++
		}
	}
	return sent, nil
}

func (d *Dispatcher) record(msg models.OutboxMessage, sendErr error) error {
	return d.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		if sendErr == nil {
			return d.outboxRepo.MarkSent(exec, msg.ID, time.Now())
		}
		giveUp := msg.Attempts+1 >= d.cfg.MaxAttempts
		utils.LogWarn("Notification delivery failed", map[string]interface{}{
			"message_id": msg.MessageID, "topic": msg.Topic, "order_id": msg.OrderID,
			"attempt": msg.Attempts + 1, "give_up": giveUp, "error": sendErr.Error(),
		})
		return d.outboxRepo.MarkAttemptFailed(exec, msg.ID, sendErr.Error(), giveUp)
	})
}

// claimLease covers sending a full batch; a crashed dispatcher's rows become claimable after it.
func (d *Dispatcher) claimLease() time.Duration {
	return time.Duration(d.cfg.BatchSize)*sendTimeout + d.cfg.PollInterval
}
