package services

import (
	"errors"
	"fmt"

	"restaurant_backend/internal/repositories"
)

// Service-level errors. Handlers map each of them to a reason code.
var (
	ErrValidation            = errors.New("validation failed")
	ErrOrderNotFound         = errors.New("order not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrIngredientNotFound    = errors.New("ingredient not found")
	ErrInventoryItemNotFound = errors.New("inventory item not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidTransition     = errors.New("invalid order status transition")
	ErrPersistence           = errors.New("persistence failure")
	ErrConflict              = errors.New("record was modified concurrently")
	ErrDuplicate             = errors.New("record already exists")
)

// persistenceError wraps an unexpected repository failure so callers can match ErrPersistence
// while the original cause stays in the chain.
func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// notFoundOr maps repositories.ErrNotFound to target and anything else to a persistence error.
func notFoundOr(target error, op string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", target, op)
	}
	return persistenceError(op, err)
}
