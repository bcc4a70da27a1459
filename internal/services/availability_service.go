package services

import (
	"errors"
	"fmt"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/repositories"
)

// AvailabilityChecker answers whether a number of portions of a product can be made right now.
type AvailabilityChecker interface {
	IsAvailable(executor repositories.SQLExecutor, kind models.ProductKind, productID int64, portions int) (bool, error)
}

type availabilityChecker struct {
	resolver      BOMResolver
	inventoryRepo repositories.InventoryRepository
	catalogRepo   repositories.CatalogRepository
}

// NewAvailabilityChecker creates a new AvailabilityChecker.
func NewAvailabilityChecker(resolver BOMResolver, inventoryRepo repositories.InventoryRepository, catalogRepo repositories.CatalogRepository) AvailabilityChecker {
	return &availabilityChecker{resolver: resolver, inventoryRepo: inventoryRepo, catalogRepo: catalogRepo}
}

func (c *availabilityChecker) IsAvailable(executor repositories.SQLExecutor, kind models.ProductKind, productID int64, portions int) (bool, error) {
	if portions <= 0 {
		return false, fmt.Errorf("%w: portions must be positive, got %d", ErrValidation, portions)
	}

	switch kind {
	case models.ProductKindMeal, models.ProductKindDrink:
		reqs, err := c.resolver.Resolve(executor, kind, productID)
		if err != nil {
			return false, err
		}
		return c.satisfied(executor, reqs, portions)

	case models.ProductKindPromotion:
		promo, err := c.catalogRepo.GetPromotion(executor, productID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return false, nil
			}
			return false, persistenceError(fmt.Sprintf("loading promotion %d", productID), err)
		}
		for _, mealID := range promo.MealIDs {
			ok, err := c.IsAvailable(executor, models.ProductKindMeal, mealID, portions)
			if err != nil || !ok {
				return false, err
			}
		}
		for _, drinkID := range promo.DrinkIDs {
			ok, err := c.IsAvailable(executor, models.ProductKindDrink, drinkID, portions)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	return false, fmt.Errorf("%w: unknown product kind %q", ErrValidation, kind)
}

// satisfied compares scaled requirements with current stock. Equality counts as satisfied and
// a product without recipe rows is always available.
func (c *availabilityChecker) satisfied(executor repositories.SQLExecutor, reqs []models.Requirement, portions int) (bool, error) {
	if len(reqs) == 0 {
		return true, nil
	}
	totals := TotalRequired(reqs, portions)
	items, err := c.inventoryRepo.GetItemsByIDs(executor, requirementIDs(reqs))
	if err != nil {
		return false, persistenceError("loading ingredient stock", err)
	}
	for id, need := range totals {
		item, ok := items[id]
		if !ok {
			return false, nil
		}
		if item.CurrentStock.LessThan(need) {
			return false, nil
		}
	}
	return true, nil
}

func requirementIDs(reqs []models.Requirement) []int64 {
	ids := make([]int64, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.InventoryItemID)
	}
	return ids
}
