package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"restaurant_backend/internal/models"
)

// BOMRepository persists recipe rows linking meals and drinks to inventory items.
type BOMRepository interface {
	// GetActiveIngredients returns the recipe of a product restricted to active inventory items,
	// ordered by inventory item id.
	GetActiveIngredients(executor SQLExecutor, kind models.ProductKind, productID int64) ([]models.Ingredient, error)
	ListIngredients(kind models.ProductKind, productID int64) ([]models.Ingredient, error)
	AddIngredient(executor SQLExecutor, ingredient *models.Ingredient) (int64, error)
	DeleteIngredient(executor SQLExecutor, id int64) error
}

type bomRepository struct {
	db *sql.DB
}

// NewBOMRepository creates a new instance of BOMRepository.
func NewBOMRepository(db *sql.DB) BOMRepository {
	return &bomRepository{db: db}
}

const ingredientSelect = `SELECT pi.id, pi.product_kind, pi.product_id, pi.inventory_item_id, pi.quantity_needed,
	    pi.notes, pi.created_at, ii.name, ii.unit, ii.current_stock, ii.active
	  FROM product_ingredients pi
	  JOIN inventory_items ii ON ii.id = pi.inventory_item_id
	  WHERE pi.product_kind = $1 AND pi.product_id = $2`

func (r *bomRepository) GetActiveIngredients(executor SQLExecutor, kind models.ProductKind, productID int64) ([]models.Ingredient, error) {
	return r.queryIngredients(executor, ingredientSelect+` AND ii.active = TRUE ORDER BY pi.inventory_item_id`, kind, productID)
}

func (r *bomRepository) ListIngredients(kind models.ProductKind, productID int64) ([]models.Ingredient, error) {
	return r.queryIngredients(r.db, ingredientSelect+` ORDER BY pi.inventory_item_id`, kind, productID)
}

func (r *bomRepository) queryIngredients(executor SQLExecutor, query string, kind models.ProductKind, productID int64) ([]models.Ingredient, error) {
	ingredients := []models.Ingredient{}
	rows, err := executor.Query(query, string(kind), productID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting ingredients for %s %d: %v", ErrDatabaseError, kind, productID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var ing models.Ingredient
		var item models.InventoryItem
		var productKind string
		if err := rows.Scan(
			&ing.ID, &productKind, &ing.ProductID, &ing.InventoryItemID, &ing.QuantityNeeded,
			&ing.Notes, &ing.CreatedAt, &item.Name, &item.Unit, &item.CurrentStock, &item.Active,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning ingredient: %v", ErrDatabaseError, err)
		}
		ing.ProductKind = models.ProductKind(productKind)
		item.ID = ing.InventoryItemID
		ing.InventoryItem = &item
		ingredients = append(ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating ingredients: %v", ErrDatabaseError, err)
	}
	return ingredients, nil
}

func (r *bomRepository) AddIngredient(executor SQLExecutor, ingredient *models.Ingredient) (int64, error) {
	query := `INSERT INTO product_ingredients (product_kind, product_id, inventory_item_id, quantity_needed, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	ingredient.CreatedAt = time.Now()
	err := executor.QueryRow(query,
		string(ingredient.ProductKind), ingredient.ProductID, ingredient.InventoryItemID,
		ingredient.QuantityNeeded, ingredient.Notes, ingredient.CreatedAt,
	).Scan(&ingredient.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating ingredient")
	}
	return ingredient.ID, nil
}

func (r *bomRepository) DeleteIngredient(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM product_ingredients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting ingredient %d: %v", ErrDatabaseError, id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected for ingredient %d: %v", ErrDatabaseError, id, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
