package services

import (
	"errors"
	"fmt"
	"sort"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

// BOMResolver maps a finished product to the raw ingredients one portion consumes.
type BOMResolver interface {
	// Resolve returns per-portion requirements ordered by inventory item id. Promotions expand
	// into the summed recipes of their bundled meals and drinks.
	Resolve(executor repositories.SQLExecutor, kind models.ProductKind, productID int64) ([]models.Requirement, error)
}

type bomResolver struct {
	bomRepo     repositories.BOMRepository
	catalogRepo repositories.CatalogRepository
}

// NewBOMResolver creates a new BOMResolver.
func NewBOMResolver(bomRepo repositories.BOMRepository, catalogRepo repositories.CatalogRepository) BOMResolver {
	return &bomResolver{bomRepo: bomRepo, catalogRepo: catalogRepo}
}

func (r *bomResolver) Resolve(executor repositories.SQLExecutor, kind models.ProductKind, productID int64) ([]models.Requirement, error) {
	switch kind {
	case models.ProductKindMeal, models.ProductKindDrink:
		return r.recipe(executor, kind, productID)
	case models.ProductKindPromotion:
		promo, err := r.catalogRepo.GetPromotion(executor, productID)
		if err != nil {
			return nil, notFoundOr(ErrProductNotFound, fmt.Sprintf("promotion %d", productID), err)
		}
		var parts [][]models.Requirement
		for _, id := range promo.MealIDs {
			reqs, err := r.recipe(executor, models.ProductKindMeal, id)
			if err != nil {
				return nil, err
			}
			parts = append(parts, reqs)
		}
		for _, id := range promo.DrinkIDs {
			reqs, err := r.recipe(executor, models.ProductKindDrink, id)
			if err != nil {
				return nil, err
			}
			parts = append(parts, reqs)
		}
		return mergeRequirements(parts...), nil
	}
	return nil, fmt.Errorf("%w: unknown product kind %q", ErrValidation, kind)
}

func (r *bomResolver) recipe(executor repositories.SQLExecutor, kind models.ProductKind, productID int64) ([]models.Requirement, error) {
	ingredients, err := r.bomRepo.GetActiveIngredients(executor, kind, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return []models.Requirement{}, nil
		}
		return nil, persistenceError(fmt.Sprintf("resolving recipe of %s %d", kind, productID), err)
	}
	reqs := make([]models.Requirement, 0, len(ingredients))
	for _, ing := range ingredients {
		req := models.Requirement{
			InventoryItemID:    ing.InventoryItemID,
			QuantityPerPortion: ing.QuantityNeeded,
		}
		if ing.InventoryItem != nil {
			req.Name = ing.InventoryItem.Name
			req.Unit = ing.InventoryItem.Unit
		}
		reqs = append(reqs, req)
	}
	return mergeRequirements(reqs), nil
}

// mergeRequirements sums requirements that share an inventory item and sorts by item id.
func mergeRequirements(parts ...[]models.Requirement) []models.Requirement {
	byID := map[int64]*models.Requirement{}
	for _, part := range parts {
		for _, req := range part {
			if existing, ok := byID[req.InventoryItemID]; ok {
				existing.QuantityPerPortion = existing.QuantityPerPortion.Add(req.QuantityPerPortion)
				continue
			}
			r := req
			byID[req.InventoryItemID] = &r
		}
	}
	merged := make([]models.Requirement, 0, len(byID))
	for _, req := range byID {
		merged = append(merged, *req)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].InventoryItemID < merged[j].InventoryItemID })
	return merged
}

// TotalRequired scales per-portion requirements to portions, keyed by inventory item id.
func TotalRequired(reqs []models.Requirement, portions int) map[int64]decimal.Decimal {
	totals := make(map[int64]decimal.Decimal, len(reqs))
	n := decimal.NewFromInt(int64(portions))
	for _, req := range reqs {
		totals[req.InventoryItemID] = totals[req.InventoryItemID].Add(req.QuantityPerPortion.Mul(n))
	}
	return totals
}
