package services

import (
	"fmt"
	"strings"

	"restaurant_backend/internal/models"
)

// StockAction is what the stock engine must do for a lifecycle event.
type StockAction int

const (
	StockActionNone StockAction = iota
	StockActionReserve
	StockActionRestore
)

// ReservationPolicy decides when ingredient stock is debited and credited back. The stock engine
// keys both actions off the order's own reservation movements, so switching policies while orders
// are open never reserves twice or skips a restore.
type ReservationPolicy interface {
	Name() string
	// OnCreate is consulted once when an order is accepted.
	OnCreate() StockAction
	// OnTransition is consulted for every non-self transition that passed the transition table.
	OnTransition(from, to models.OrderStatus) StockAction
}

// EagerReservation debits stock when the order is accepted and credits it back when the order
// is cancelled.
type EagerReservation struct{}

func (EagerReservation) Name() string { return "eager" }

func (EagerReservation) OnCreate() StockAction { return StockActionReserve }

func (EagerReservation) OnTransition(from, to models.OrderStatus) StockAction {
	if to == models.OrderStatusCancelled && !from.Terminal() {
		return StockActionRestore
	}
	return StockActionNone
}

// LazyReservation debits stock when the kitchen starts preparing the order. Cancellation still
// asks for a restore: an order accepted under another policy may hold a reservation already.
type LazyReservation struct{}

func (LazyReservation) Name() string { return "lazy" }

func (LazyReservation) OnCreate() StockAction { return StockActionNone }

func (LazyReservation) OnTransition(from, to models.OrderStatus) StockAction {
	switch {
	case from == models.OrderStatusPending && to == models.OrderStatusPreparing:
		return StockActionReserve
	case to == models.OrderStatusCancelled && !from.Terminal():
		return StockActionRestore
	}
	return StockActionNone
}

// PolicyByName resolves the configured policy name.
func PolicyByName(name string) (ReservationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "eager":
		return EagerReservation{}, nil
	case "lazy":
		return LazyReservation{}, nil
	}
	return nil, fmt.Errorf("unknown reservation policy %q", name)
}
