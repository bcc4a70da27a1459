package services

import (
	"errors"
	"fmt"
	"strings"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/repositories"
	"restaurant_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

// CreateInventoryItemRequest is used for registering a new ingredient.
type CreateInventoryItemRequest struct {
	Name         string          `json:"name" binding:"required"`
	Description  *string         `json:"description"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
	Unit         string          `json:"unit" binding:"required"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	Category     string          `json:"category" binding:"required"`
	Supplier     *string         `json:"supplier"`
}

// UpdateInventoryItemRequest carries the version the client read. Nil fields are left unchanged.
type UpdateInventoryItemRequest struct {
	Version      int64            `json:"version" binding:"required"`
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	MinimumStock *decimal.Decimal `json:"minimum_stock"`
	Unit         *string          `json:"unit"`
	CostPerUnit  *decimal.Decimal `json:"cost_per_unit"`
	Category     *string          `json:"category"`
	Supplier     *string          `json:"supplier"`
}

// StockChangeRequest is a manual restock or adjustment.
type StockChangeRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason"`
	Actor    *Actor          `json:"-"`
}

// AddIngredientRequest links an inventory item to a meal or drink recipe.
type AddIngredientRequest struct {
	InventoryItemID int64           `json:"inventory_item_id" binding:"required"`
	QuantityNeeded  decimal.Decimal `json:"quantity_needed"`
	Notes           *string         `json:"notes"`
}

// --- InventoryService Interface ---
type InventoryService interface {
	CreateItem(req CreateInventoryItemRequest) (*models.InventoryItem, error)
	GetItem(id int64) (*models.InventoryItem, error)
	UpdateItem(id int64, req UpdateInventoryItemRequest) (*models.InventoryItem, error)
	DeactivateItem(id int64) error
	ListItems(filters models.InventoryFilters) ([]models.InventoryItem, error)
	ListLowStock() ([]models.InventoryItem, error)
	ListOutOfStock() ([]models.InventoryItem, error)
	Restock(id int64, req StockChangeRequest) (*models.InventoryItem, error)
	AdjustStock(id int64, req StockChangeRequest) (*models.InventoryItem, error)
	GetMovements(filters models.MovementFilters) ([]models.InventoryMovement, int, error)

	ListIngredients(kind string, productID int64) ([]models.Ingredient, error)
	AddIngredient(kind string, productID int64, req AddIngredientRequest) (*models.Ingredient, error)
	RemoveIngredient(id int64) error
}

type inventoryService struct {
	inventoryRepo   repositories.InventoryRepository
	inventoryMvRepo repositories.InventoryMovementRepository
	bomRepo         repositories.BOMRepository
	catalogRepo     repositories.CatalogRepository
	tx              repositories.Transactor
	db              repositories.SQLExecutor
}

// NewInventoryService creates a new instance of InventoryService.
func NewInventoryService(
	inventoryRepo repositories.InventoryRepository,
	inventoryMvRepo repositories.InventoryMovementRepository,
	bomRepo repositories.BOMRepository,
	catalogRepo repositories.CatalogRepository,
	tx repositories.Transactor,
	db repositories.SQLExecutor,
) InventoryService {
	return &inventoryService{
		inventoryRepo:   inventoryRepo,
		inventoryMvRepo: inventoryMvRepo,
		bomRepo:         bomRepo,
		catalogRepo:     catalogRepo,
		tx:              tx,
		db:              db,
	}
}

func parseCategory(raw string) (models.InventoryCategory, error) {
	category := models.InventoryCategory(strings.ToUpper(strings.TrimSpace(raw)))
	if !category.Valid() {
		return "", fmt.Errorf("%w: unknown inventory category %q", ErrValidation, raw)
	}
	return category, nil
}

func (s *inventoryService) CreateItem(req CreateInventoryItemRequest) (*models.InventoryItem, error) {
	if utils.IsEmpty(req.Name) || utils.IsEmpty(req.Unit) {
		return nil, fmt.Errorf("%w: name and unit are required", ErrValidation)
	}
	category, err := parseCategory(req.Category)
	if err != nil {
		return nil, err
	}
	if req.CurrentStock.IsNegative() || req.MinimumStock.IsNegative() || req.CostPerUnit.IsNegative() {
		return nil, fmt.Errorf("%w: stock levels and cost cannot be negative", ErrValidation)
	}

	item := &models.InventoryItem{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		CurrentStock: req.CurrentStock,
		MinimumStock: req.MinimumStock,
		Unit:         strings.TrimSpace(req.Unit),
		CostPerUnit:  req.CostPerUnit,
		Category:     category,
		Supplier:     req.Supplier,
	}
	err = s.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		_, err := s.inventoryRepo.CreateItem(exec, item)
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: inventory item %q", ErrDuplicate, item.Name)
		}
		return nil, persistenceError("creating inventory item", err)
	}
	utils.LogInfo("Inventory item created", map[string]interface{}{"inventory_item_id": item.ID, "name": item.Name})
	return item, nil
}

func (s *inventoryService) GetItem(id int64) (*models.InventoryItem, error) {
	item, err := s.inventoryRepo.GetItemByID(s.db, id)
	if err != nil {
		return nil, notFoundOr(ErrInventoryItemNotFound, fmt.Sprintf("inventory item %d", id), err)
	}
	return item, nil
}

// UpdateItem changes descriptive fields. Stock is only changed through Restock and AdjustStock,
// so the current stock read here is written back unchanged under the version check.
func (s *inventoryService) UpdateItem(id int64, req UpdateInventoryItemRequest) (*models.InventoryItem, error) {
	var updated *models.InventoryItem
	err := s.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		item, err := s.inventoryRepo.GetItemByID(exec, id)
		if err != nil {
			return notFoundOr(ErrInventoryItemNotFound, fmt.Sprintf("inventory item %d", id), err)
		}
		if item.Version != req.Version {
			return fmt.Errorf("%w: inventory item %d is at version %d", ErrConflict, id, item.Version)
		}
		if req.Name != nil {
			if utils.IsEmpty(*req.Name) {
				return fmt.Errorf("%w: name cannot be empty", ErrValidation)
			}
			item.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			item.Description = req.Description
		}
		if req.MinimumStock != nil {
			if req.MinimumStock.IsNegative() {
				return fmt.Errorf("%w: minimum stock cannot be negative", ErrValidation)
			}
			item.MinimumStock = *req.MinimumStock
		}
		if req.Unit != nil {
			if utils.IsEmpty(*req.Unit) {
				return fmt.Errorf("%w: unit cannot be empty", ErrValidation)
			}
			item.Unit = strings.TrimSpace(*req.Unit)
		}
		if req.CostPerUnit != nil {
			if req.CostPerUnit.IsNegative() {
				return fmt.Errorf("%w: cost cannot be negative", ErrValidation)
			}
			item.CostPerUnit = *req.CostPerUnit
		}
		if req.Category != nil {
			category, err := parseCategory(*req.Category)
			if err != nil {
				return err
			}
			item.Category = category
		}
		if req.Supplier != nil {
			item.Supplier = req.Supplier
		}

		if err := s.inventoryRepo.UpdateItem(exec, item); err != nil {
			switch {
			case errors.Is(err, repositories.ErrOptimisticLock):
				return fmt.Errorf("%w: inventory item %d", ErrConflict, id)
			case errors.Is(err, repositories.ErrDuplicateKey):
				return fmt.Errorf("%w: inventory item %q", ErrDuplicate, item.Name)
			}
			return notFoundOr(ErrInventoryItemNotFound, fmt.Sprintf("updating inventory item %d", id), err)
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeactivateItem soft deletes an ingredient. Recipes referencing it stop requiring it.
func (s *inventoryService) DeactivateItem(id int64) error {
	err := s.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		return s.inventoryRepo.SetActive(exec, id, false)
	})
	if err != nil {
		return notFoundOr(ErrInventoryItemNotFound, fmt.Sprintf("deactivating inventory item %d", id), err)
	}
	utils.LogInfo("Inventory item deactivated", map[string]interface{}{"inventory_item_id": id})
	return nil
}

func (s *inventoryService) ListItems(filters models.InventoryFilters) ([]models.InventoryItem, error) {
	if filters.Category != nil {
		category, err := parseCategory(string(*filters.Category))
		if err != nil {
			return nil, err
		}
		filters.Category = &category
	}
	items, err := s.inventoryRepo.ListItems(filters)
	if err != nil {
		return nil, persistenceError("listing inventory", err)
	}
	return items, nil
}

func (s *inventoryService) ListLowStock() ([]models.InventoryItem, error) {
	items, err := s.inventoryRepo.ListLowStock()
	if err != nil {
		return nil, persistenceError("listing low stock", err)
	}
	return items, nil
}

func (s *inventoryService) ListOutOfStock() ([]models.InventoryItem, error) {
	items, err := s.inventoryRepo.ListOutOfStock()
	if err != nil {
		return nil, persistenceError("listing out of stock", err)
	}
	return items, nil
}

// Restock credits a positive quantity and records a restock movement.
func (s *inventoryService) Restock(id int64, req StockChangeRequest) (*models.InventoryItem, error) {
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: restock quantity must be positive", ErrValidation)
	}
	return s.changeStock(id, req.Quantity, models.MovementTypeRestock, req)
}

// AdjustStock applies a signed correction. A negative result is floored at zero and the movement
// records the amount actually removed.
func (s *inventoryService) AdjustStock(id int64, req StockChangeRequest) (*models.InventoryItem, error) {
	if req.Quantity.IsZero() {
		return nil, fmt.Errorf("%w: adjustment quantity cannot be zero", ErrValidation)
	}
	if utils.IsEmpty(req.Reason) {
		return nil, fmt.Errorf("%w: adjustments need a reason", ErrValidation)
	}
	return s.changeStock(id, req.Quantity, models.MovementTypeAdjustment, req)
}

func (s *inventoryService) changeStock(id int64, delta decimal.Decimal, movementType string, req StockChangeRequest) (*models.InventoryItem, error) {
	var item *models.InventoryItem
	err := s.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		locked, err := s.inventoryRepo.LockItems(exec, []int64{id})
		if err != nil {
			return persistenceError(fmt.Sprintf("locking inventory item %d", id), err)
		}
		current, ok := locked[id]
		if !ok || !current.Active {
			return fmt.Errorf("%w: inventory item %d", ErrInventoryItemNotFound, id)
		}
		before := current.CurrentStock
		newStock, err := s.inventoryRepo.AdjustStock(exec, id, delta)
		if err != nil {
			return notFoundOr(ErrInventoryItemNotFound, fmt.Sprintf("adjusting inventory item %d", id), err)
		}

		movement := models.InventoryMovement{
			InventoryItemID: id,
			StaffID:         actorID(req.Actor),
			MovementType:    movementType,
			QuantityChanged: newStock.Sub(before),
			Reason:          models.NewNullString(strings.TrimSpace(req.Reason)),
		}
		if _, err := s.inventoryMvRepo.CreateMovement(exec, &movement); err != nil {
			return persistenceError(fmt.Sprintf("recording %s movement for inventory item %d", movementType, id), err)
		}
		current.CurrentStock = newStock
		item = current
		return nil
	})
	if err != nil {
		utils.LogError(err, fmt.Sprintf("changeStock: %s of inventory item %d rejected", movementType, id))
		return nil, err
	}
	utils.LogInfo("Inventory stock changed", map[string]interface{}{
		"inventory_item_id": id, "movement_type": movementType, "amount": delta.String(), "stock": item.CurrentStock.String(),
	})
	if item.IsLowStock() {
		utils.LogWarn("Inventory item at or below minimum stock", map[string]interface{}{
			"inventory_item_id": id, "stock": item.CurrentStock.String(), "minimum": item.MinimumStock.String(),
		})
	}
	return item, nil
}

func (s *inventoryService) GetMovements(filters models.MovementFilters) ([]models.InventoryMovement, int, error) {
	movements, total, err := s.inventoryMvRepo.GetMovements(filters)
	if err != nil {
		return nil, 0, persistenceError("listing inventory movements", err)
	}
	return movements, total, nil
}

func recipeKind(raw string) (models.ProductKind, error) {
	kind := models.ProductKind(strings.ToUpper(strings.TrimSpace(raw)))
	if !kind.HasRecipe() {
		return "", fmt.Errorf("%w: recipes exist only for meals and drinks, got %q", ErrValidation, raw)
	}
	return kind, nil
}

func (s *inventoryService) ListIngredients(kind string, productID int64) ([]models.Ingredient, error) {
	productKind, err := recipeKind(kind)
	if err != nil {
		return nil, err
	}
	ingredients, err := s.bomRepo.ListIngredients(productKind, productID)
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("listing recipe of %s %d", productKind, productID), err)
	}
	return ingredients, nil
}

func (s *inventoryService) AddIngredient(kind string, productID int64, req AddIngredientRequest) (*models.Ingredient, error) {
	productKind, err := recipeKind(kind)
	if err != nil {
		return nil, err
	}
	if !req.QuantityNeeded.IsPositive() {
		return nil, fmt.Errorf("%w: quantity needed must be positive", ErrValidation)
	}

	ingredient := &models.Ingredient{
		ProductKind:     productKind,
		ProductID:       productID,
		InventoryItemID: req.InventoryItemID,
		QuantityNeeded:  req.QuantityNeeded,
		Notes:           req.Notes,
	}
	err = s.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		switch productKind {
		case models.ProductKindMeal:
			if _, err := s.catalogRepo.GetMeal(exec, productID); err != nil {
				return notFoundOr(ErrProductNotFound, fmt.Sprintf("meal %d", productID), err)
			}
		case models.ProductKindDrink:
			if _, err := s.catalogRepo.GetDrink(exec, productID); err != nil {
				return notFoundOr(ErrProductNotFound, fmt.Sprintf("drink %d", productID), err)
			}
		}
		item, err := s.inventoryRepo.GetItemByID(exec, req.InventoryItemID)
		if err != nil {
			return notFoundOr(ErrInventoryItemNotFound, fmt.Sprintf("inventory item %d", req.InventoryItemID), err)
		}
		if !item.Active {
			return fmt.Errorf("%w: inventory item %d is inactive", ErrInventoryItemNotFound, item.ID)
		}
		if _, err := s.bomRepo.AddIngredient(exec, ingredient); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("%w: %s %d already uses inventory item %d", ErrDuplicate, productKind, productID, item.ID)
			}
			return persistenceError("adding recipe row", err)
		}
		ingredient.InventoryItem = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Recipe ingredient added", map[string]interface{}{
		"product_kind": productKind, "product_id": productID, "inventory_item_id": req.InventoryItemID,
		"quantity_needed": req.QuantityNeeded.String(),
	})
	return ingredient, nil
}

func (s *inventoryService) RemoveIngredient(id int64) error {
	err := s.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		return s.bomRepo.DeleteIngredient(exec, id)
	})
	if err != nil {
		return notFoundOr(ErrIngredientNotFound, fmt.Sprintf("recipe row %d", id), err)
	}
	return nil
}
