package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"restaurant_backend/internal/models"

	"github.com/shopspring/decimal"
)

// WasteRepository persists waste (merma) records.
type WasteRepository interface {
	CreateRecord(executor SQLExecutor, record *models.WasteRecord) (int64, error)
	ListRecords(filters models.WasteFilters) ([]models.WasteRecord, error)
	TotalCost(from, to time.Time) (decimal.Decimal, error)
	StatsByKind() ([]models.WasteStats, error)
}

type wasteRepository struct {
	db *sql.DB
}

// NewWasteRepository creates a new instance of WasteRepository.
func NewWasteRepository(db *sql.DB) WasteRepository {
	return &wasteRepository{db: db}
}

func (r *wasteRepository) CreateRecord(executor SQLExecutor, record *models.WasteRecord) (int64, error) {
	query := `INSERT INTO waste_records
	          (kind, item_id, item_name, quantity, unit, unit_cost, total_cost, reason, registered_by, registered_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`
	err := executor.QueryRow(query,
		string(record.Kind), record.ItemID, record.ItemName, record.Quantity, record.Unit,
		record.UnitCost, record.TotalCost, record.Reason, record.RegisteredBy, record.RegisteredAt,
	).Scan(&record.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating waste record")
	}
	return record.ID, nil
}

func (r *wasteRepository) ListRecords(filters models.WasteFilters) ([]models.WasteRecord, error) {
	records := []models.WasteRecord{}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, kind, item_id, item_name, quantity, unit, unit_cost, total_cost,
	    reason, registered_by, registered_at
	  FROM waste_records`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argCount))
		args = append(args, string(*filters.Kind))
		argCount++
	}
	if filters.RegisteredBy != nil && *filters.RegisteredBy != "" {
		conditions = append(conditions, fmt.Sprintf("registered_by = $%d", argCount))
		args = append(args, *filters.RegisteredBy)
		argCount++
	}
	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("registered_at >= $%d", argCount))
		args = append(args, *filters.From)
		argCount++
	}
	if filters.To != nil {
		conditions = append(conditions, fmt.Sprintf("registered_at <= $%d", argCount))
		args = append(args, *filters.To)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY registered_at DESC")
	if filters.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, filters.Limit)
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing waste records: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.WasteRecord
		var kind string
		if err := rows.Scan(
			&rec.ID, &kind, &rec.ItemID, &rec.ItemName, &rec.Quantity, &rec.Unit, &rec.UnitCost,
			&rec.TotalCost, &rec.Reason, &rec.RegisteredBy, &rec.RegisteredAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning waste record: %v", ErrDatabaseError, err)
		}
		rec.Kind = models.WasteKind(kind)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating waste records: %v", ErrDatabaseError, err)
	}
	return records, nil
}

func (r *wasteRepository) TotalCost(from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(
		`SELECT COALESCE(SUM(total_cost), 0) FROM waste_records WHERE registered_at BETWEEN $1 AND $2`,
		from, to,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: summing waste cost: %v", ErrDatabaseError, err)
	}
	return total, nil
}

func (r *wasteRepository) StatsByKind() ([]models.WasteStats, error) {
	stats := []models.WasteStats{}
	rows, err := r.db.Query(`SELECT kind, COUNT(*), COALESCE(SUM(total_cost), 0)
	                         FROM waste_records GROUP BY kind ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregating waste stats: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.WasteStats
		var kind string
		if err := rows.Scan(&kind, &s.Count, &s.TotalCost); err != nil {
			return nil, fmt.Errorf("%w: scanning waste stats: %v", ErrDatabaseError, err)
		}
		s.Kind = models.WasteKind(kind)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating waste stats: %v", ErrDatabaseError, err)
	}
	return stats, nil
}
