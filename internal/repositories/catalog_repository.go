package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"restaurant_backend/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CatalogRepository gives read access to the menu and the product on-hand ledger.
type CatalogRepository interface {
	GetMeal(executor SQLExecutor, id int64) (*models.Meal, error)
	GetDrink(executor SQLExecutor, id int64) (*models.Drink, error)
	GetPromotion(executor SQLExecutor, id int64) (*models.Promotion, error)
	// GetProductForUpdate reads a product row and locks it for the rest of the transaction.
	GetProductForUpdate(executor SQLExecutor, id int64) (*models.Product, error)
	UpdateProductQuantity(executor SQLExecutor, id int64, quantity decimal.Decimal) error
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository.
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetMeal(executor SQLExecutor, id int64) (*models.Meal, error) {
	var meal models.Meal
	err := executor.QueryRow(
		`SELECT id, name, description, cost, available FROM meals WHERE id = $1`, id,
	).Scan(&meal.ID, &meal.Name, &meal.Description, &meal.Cost, &meal.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting meal %d: %v", ErrDatabaseError, id, err)
	}
	return &meal, nil
}

func (r *catalogRepository) GetDrink(executor SQLExecutor, id int64) (*models.Drink, error) {
	var drink models.Drink
	err := executor.QueryRow(
		`SELECT id, name, description, price, available FROM drinks WHERE id = $1`, id,
	).Scan(&drink.ID, &drink.Name, &drink.Description, &drink.Price, &drink.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting drink %d: %v", ErrDatabaseError, id, err)
	}
	return &drink, nil
}

func (r *catalogRepository) GetPromotion(executor SQLExecutor, id int64) (*models.Promotion, error) {
	var promo models.Promotion
	var mealIDs, drinkIDs pq.Int64Array
	query := `SELECT p.id, p.name, p.combo_price, p.active,
	            ARRAY(SELECT pm.meal_id FROM promotion_meals pm WHERE pm.promotion_id = p.id ORDER BY pm.meal_id),
	            ARRAY(SELECT pd.drink_id FROM promotion_drinks pd WHERE pd.promotion_id = p.id ORDER BY pd.drink_id)
	          FROM promotions p
	          WHERE p.id = $1`
	err := executor.QueryRow(query, id).Scan(
		&promo.ID, &promo.Name, &promo.ComboPrice, &promo.Active, &mealIDs, &drinkIDs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting promotion %d: %v", ErrDatabaseError, id, err)
	}
	promo.MealIDs = []int64(mealIDs)
	promo.DrinkIDs = []int64(drinkIDs)
	return &promo, nil
}

func (r *catalogRepository) GetProductForUpdate(executor SQLExecutor, id int64) (*models.Product, error) {
	var product models.Product
	err := executor.QueryRow(
		`SELECT id, name, quantity, unit, cost FROM products WHERE id = $1 FOR UPDATE`, id,
	).Scan(&product.ID, &product.Name, &product.Quantity, &product.Unit, &product.Cost)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting product %d: %v", ErrDatabaseError, id, err)
	}
	return &product, nil
}

func (r *catalogRepository) UpdateProductQuantity(executor SQLExecutor, id int64, quantity decimal.Decimal) error {
	result, err := executor.Exec(`UPDATE products SET quantity = $1 WHERE id = $2`, quantity, id)
	if err != nil {
		return fmt.Errorf("%w: updating product %d quantity: %v", ErrDatabaseError, id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected for product %d: %v", ErrDatabaseError, id, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
