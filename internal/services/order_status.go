package services

import (
	"fmt"
	"strings"

	"restaurant_backend/internal/models"
)

// orderTransitions lists every legal edge of the order lifecycle. Self transitions are handled
// separately as no-ops; terminal statuses have no outgoing edges.
var orderTransitions = map[models.OrderStatus]map[models.OrderStatus]bool{
	models.OrderStatusPending: {
		models.OrderStatusPreparing: true,
		models.OrderStatusCancelled: true,
	},
	models.OrderStatusPreparing: {
		models.OrderStatusReady:     true,
		models.OrderStatusCancelled: true,
	},
	models.OrderStatusReady: {
		models.OrderStatusDelivered: true,
		models.OrderStatusCancelled: true,
	},
	models.OrderStatusDelivered: {},
	models.OrderStatusCancelled: {},
}

// ParseOrderStatus accepts a status name in any case.
func ParseOrderStatus(s string) (models.OrderStatus, error) {
	status := models.OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := orderTransitions[status]; !ok {
		return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
	}
	return status, nil
}

// CanTransition reports whether an order in from may move to to.
func CanTransition(from, to models.OrderStatus) bool {
	edges, ok := orderTransitions[from]
	if !ok {
		return false
	}
	if from == to {
		return true
	}
	return edges[to]
}

// AllowedTransitions returns the statuses reachable from from in one step.
func AllowedTransitions(from models.OrderStatus) []models.OrderStatus {
	next := []models.OrderStatus{}
	for _, to := range []models.OrderStatus{
		models.OrderStatusPending, models.OrderStatusPreparing, models.OrderStatusReady,
		models.OrderStatusDelivered, models.OrderStatusCancelled,
	} {
		if orderTransitions[from][to] {
			next = append(next, to)
		}
	}
	return next
}
