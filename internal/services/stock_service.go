package services

import (
	"fmt"
	"sort"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/repositories"
	"restaurant_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

// StockEngine debits ingredient stock for an order and credits it back on cancellation.
// Both operations must run inside the caller's transaction.
type StockEngine interface {
	// Check fails with ErrInsufficientStock when any line item cannot be made from current stock.
	Check(executor repositories.SQLExecutor, order *models.Order) error
	Reserve(executor repositories.SQLExecutor, order *models.Order, staffID *int64) error
	Restore(executor repositories.SQLExecutor, order *models.Order, staffID *int64) error
}

type stockEngine struct {
	resolver        BOMResolver
	checker         AvailabilityChecker
	inventoryRepo   repositories.InventoryRepository
	inventoryMvRepo repositories.InventoryMovementRepository
}

// NewStockEngine creates a new StockEngine.
func NewStockEngine(
	resolver BOMResolver,
	checker AvailabilityChecker,
	inventoryRepo repositories.InventoryRepository,
	inventoryMvRepo repositories.InventoryMovementRepository,
) StockEngine {
	return &stockEngine{
		resolver:        resolver,
		checker:         checker,
		inventoryRepo:   inventoryRepo,
		inventoryMvRepo: inventoryMvRepo,
	}
}

func (e *stockEngine) Check(executor repositories.SQLExecutor, order *models.Order) error {
	for _, line := range order.Lines() {
		ok, err := e.checker.IsAvailable(executor, line.Kind, line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s %q x%d", ErrInsufficientStock, line.Kind, line.ProductName, line.Quantity)
		}
	}
	return nil
}

// Reserve checks every line item, then locks the touched ingredient rows in id order and
// re-validates the summed requirement under the lock. A second order racing for the same stock
// is rejected with ErrInsufficientStock instead of being clamped. An order that already carries
// reservation movements is left alone, whichever policy wrote them.
func (e *stockEngine) Reserve(executor repositories.SQLExecutor, order *models.Order, staffID *int64) error {
	reserved, err := e.inventoryMvRepo.ListOrderMovements(executor, order.ID, models.MovementTypeReservation)
	if err != nil {
		return persistenceError(fmt.Sprintf("loading reservation of order %d", order.ID), err)
	}
	if len(reserved) > 0 {
		utils.LogDebug("Order already reserved", map[string]interface{}{"order_id": order.ID, "movements": len(reserved)})
		return nil
	}

	if err := e.Check(executor, order); err != nil {
		return err
	}

	totals, err := e.orderRequirements(executor, order)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		return nil
	}
	ids := sortedIDs(totals)

	locked, err := e.inventoryRepo.LockItems(executor, ids)
	if err != nil {
		return persistenceError("locking ingredient rows", err)
	}
	for _, id := range ids {
		item, ok := locked[id]
		if !ok || !item.Active {
			return fmt.Errorf("%w: inventory item %d", ErrIngredientNotFound, id)
		}
		if item.CurrentStock.LessThan(totals[id]) {
			return fmt.Errorf("%w: %s needs %s %s, %s available",
				ErrInsufficientStock, item.Name, totals[id].String(), item.Unit, item.CurrentStock.String())
		}
	}

	reason := fmt.Sprintf("Order %d reservation", order.ID)
	for _, id := range ids {
		need := totals[id]
		newStock, err := e.inventoryRepo.AdjustStock(executor, id, need.Neg())
		if err != nil {
			return notFoundOr(ErrIngredientNotFound, fmt.Sprintf("debiting inventory item %d", id), err)
		}
		if err := e.recordMovement(executor, id, order.ID, staffID, models.MovementTypeReservation, need.Neg(), reason); err != nil {
			return err
		}
		utils.LogDebug("Ingredient reserved", map[string]interface{}{
			"order_id": order.ID, "inventory_item_id": id, "amount": need.String(), "stock": newStock.String(),
		})
	}
	return nil
}

// Restore credits back exactly what the order's reservation movements debited, so the recipe
// may change between reservation and cancellation without skewing stock. An order that was never
// reserved gets nothing back.
func (e *stockEngine) Restore(executor repositories.SQLExecutor, order *models.Order, staffID *int64) error {
	reserved, err := e.inventoryMvRepo.ListOrderMovements(executor, order.ID, models.MovementTypeReservation)
	if err != nil {
		return persistenceError(fmt.Sprintf("loading reservation of order %d", order.ID), err)
	}
	totals := map[int64]decimal.Decimal{}
	for _, mv := range reserved {
		totals[mv.InventoryItemID] = totals[mv.InventoryItemID].Add(mv.QuantityChanged.Neg())
	}
	if len(totals) == 0 {
		return nil
	}
	ids := sortedIDs(totals)

	if _, err := e.inventoryRepo.LockItems(executor, ids); err != nil {
		return persistenceError("locking ingredient rows", err)
	}

	reason := fmt.Sprintf("Order %d cancelled", order.ID)
	for _, id := range ids {
		amount := totals[id]
		if !amount.IsPositive() {
			continue
		}
		newStock, err := e.inventoryRepo.AdjustStock(executor, id, amount)
		if err != nil {
			return notFoundOr(ErrIngredientNotFound, fmt.Sprintf("crediting inventory item %d", id), err)
		}
		if err := e.recordMovement(executor, id, order.ID, staffID, models.MovementTypeCompensation, amount, reason); err != nil {
			return err
		}
		utils.LogDebug("Ingredient restored", map[string]interface{}{
			"order_id": order.ID, "inventory_item_id": id, "amount": amount.String(), "stock": newStock.String(),
		})
	}
	return nil
}

// orderRequirements sums the scaled recipe of every line item per inventory item.
func (e *stockEngine) orderRequirements(executor repositories.SQLExecutor, order *models.Order) (map[int64]decimal.Decimal, error) {
	totals := map[int64]decimal.Decimal{}
	for _, line := range order.Lines() {
		reqs, err := e.resolver.Resolve(executor, line.Kind, line.ProductID)
		if err != nil {
			return nil, err
		}
		for id, need := range TotalRequired(reqs, line.Quantity) {
			totals[id] = totals[id].Add(need)
		}
	}
	return totals, nil
}

func (e *stockEngine) recordMovement(executor repositories.SQLExecutor, itemID, orderID int64, staffID *int64, movementType string, qty decimal.Decimal, reason string) error {
	movement := models.InventoryMovement{
		InventoryItemID: itemID,
		OrderID:         &orderID,
		StaffID:         staffID,
		MovementType:    movementType,
		QuantityChanged: qty,
		Reason:          models.NewNullString(reason),
	}
	if _, err := e.inventoryMvRepo.CreateMovement(executor, &movement); err != nil {
		return persistenceError(fmt.Sprintf("recording %s movement for inventory item %d", movementType, itemID), err)
	}
	return nil
}

func sortedIDs(totals map[int64]decimal.Decimal) []int64 {
	ids := make([]int64, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
