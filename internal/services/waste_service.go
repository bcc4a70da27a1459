package services

import (
	"fmt"
	"strings"
	"time"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/repositories"
	"restaurant_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

const finishedItemUnit = "unidad"

// RecordWasteRequest is the payload for registering discarded goods.
type RecordWasteRequest struct {
	Kind     string          `json:"kind" binding:"required"`
	ItemID   int64           `json:"item_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason"`
	// Author defaults to the authenticated username when empty.
	Author string `json:"author"`
}

// WasteService records waste and answers waste queries.
type WasteService interface {
	RecordWaste(req RecordWasteRequest) (*models.WasteRecord, error)
	ListWaste(filters models.WasteFilters) ([]models.WasteRecord, error)
	RecentWaste() ([]models.WasteRecord, error)
	TotalWasteCost(from, to time.Time) (decimal.Decimal, error)
	WasteStats() ([]models.WasteStats, error)
}

type wasteService struct {
	wasteRepo   repositories.WasteRepository
	catalogRepo repositories.CatalogRepository
	tx          repositories.Transactor
}

// NewWasteService creates a new instance of WasteService.
func NewWasteService(wasteRepo repositories.WasteRepository, catalogRepo repositories.CatalogRepository, tx repositories.Transactor) WasteService {
	return &wasteService{wasteRepo: wasteRepo, catalogRepo: catalogRepo, tx: tx}
}

// RecordWaste writes a waste record. PRODUCT waste debits the product on-hand ledger and never
// lets it go negative; MEAL and DRINK waste only book the cost of the finished item.
func (s *wasteService) RecordWaste(req RecordWasteRequest) (*models.WasteRecord, error) {
	kind := models.WasteKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown waste kind %q", ErrValidation, req.Kind)
	}
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if utils.IsEmpty(req.Author) {
		return nil, fmt.Errorf("%w: author is required", ErrValidation)
	}

	record := &models.WasteRecord{
		Kind:         kind,
		ItemID:       req.ItemID,
		Quantity:     req.Quantity,
		Reason:       strings.TrimSpace(req.Reason),
		RegisteredBy: req.Author,
		RegisteredAt: time.Now(),
	}

	err := s.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		switch kind {
		case models.WasteKindProduct:
			product, err := s.catalogRepo.GetProductForUpdate(exec, req.ItemID)
			if err != nil {
				return notFoundOr(ErrProductNotFound, fmt.Sprintf("product %d", req.ItemID), err)
			}
			remaining := product.Quantity.Sub(req.Quantity)
			if remaining.IsNegative() {
				return fmt.Errorf("%w: %s has %s %s, cannot discard %s",
					ErrInsufficientStock, product.Name, product.Quantity.String(), product.Unit, req.Quantity.String())
			}
			if err := s.catalogRepo.UpdateProductQuantity(exec, product.ID, remaining); err != nil {
				return notFoundOr(ErrProductNotFound, fmt.Sprintf("debiting product %d", product.ID), err)
			}
			record.ItemName, record.Unit, record.UnitCost = product.Name, product.Unit, product.Cost

		case models.WasteKindMeal:
			meal, err := s.catalogRepo.GetMeal(exec, req.ItemID)
			if err != nil {
				return notFoundOr(ErrProductNotFound, fmt.Sprintf("meal %d", req.ItemID), err)
			}
			record.ItemName, record.Unit, record.UnitCost = meal.Name, finishedItemUnit, meal.Cost

		case models.WasteKindDrink:
			drink, err := s.catalogRepo.GetDrink(exec, req.ItemID)
			if err != nil {
				return notFoundOr(ErrProductNotFound, fmt.Sprintf("drink %d", req.ItemID), err)
			}
			record.ItemName, record.Unit, record.UnitCost = drink.Name, finishedItemUnit, drink.Price
		}

		record.TotalCost = record.Quantity.Mul(record.UnitCost)
		if _, err := s.wasteRepo.CreateRecord(exec, record); err != nil {
			return persistenceError("creating waste record", err)
		}
		return nil
	})
	if err != nil {
		utils.LogError(err, fmt.Sprintf("RecordWaste: %s %d rejected", kind, req.ItemID))
		return nil, err
	}

	utils.LogInfo("Waste recorded", map[string]interface{}{
		"waste_id": record.ID, "kind": kind, "item_id": record.ItemID,
		"quantity": record.Quantity.String(), "total_cost": record.TotalCost.String(), "registered_by": record.RegisteredBy,
	})
	return record, nil
}

func (s *wasteService) ListWaste(filters models.WasteFilters) ([]models.WasteRecord, error) {
	if filters.Kind != nil {
		kind := models.WasteKind(strings.ToUpper(string(*filters.Kind)))
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: unknown waste kind %q", ErrValidation, *filters.Kind)
		}
		filters.Kind = &kind
	}
	if filters.From != nil && filters.To != nil && filters.To.Before(*filters.From) {
		return nil, fmt.Errorf("%w: range end is before range start", ErrValidation)
	}
	if filters.Limit < 0 {
		filters.Limit = 0
	}
	records, err := s.wasteRepo.ListRecords(filters)
	if err != nil {
		return nil, persistenceError("listing waste records", err)
	}
	return records, nil
}

// RecentWaste returns the ten latest records.
func (s *wasteService) RecentWaste() ([]models.WasteRecord, error) {
	return s.ListWaste(models.WasteFilters{Limit: 10})
}

func (s *wasteService) TotalWasteCost(from, to time.Time) (decimal.Decimal, error) {
	if to.Before(from) {
		return decimal.Zero, fmt.Errorf("%w: range end is before range start", ErrValidation)
	}
	total, err := s.wasteRepo.TotalCost(from, to)
	if err != nil {
		return decimal.Zero, persistenceError("summing waste cost", err)
	}
	return total, nil
}

func (s *wasteService) WasteStats() ([]models.WasteStats, error) {
	stats, err := s.wasteRepo.StatsByKind()
	if err != nil {
		return nil, persistenceError("aggregating waste", err)
	}
	return stats, nil
}
