package services

import (
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for every repository the services use. Executors are
// ignored; memTx snapshots the whole store and restores it when the transaction fails.
type memStore struct {
	items       map[int64]models.InventoryItem
	ingredients map[int64]models.Ingredient
	meals       map[int64]models.Meal
	drinks      map[int64]models.Drink
	promotions  map[int64]models.Promotion
	products    map[int64]models.Product
	orders      map[int64]models.Order
	lines       []models.OrderLine
	movements   []models.InventoryMovement
	sales       []models.Sale
	outbox      []models.OutboxMessage
	waste       []models.WasteRecord
	nextID      int64

	failEnqueue bool
}

func newMemStore() *memStore {
	return &memStore{
		items:       map[int64]models.InventoryItem{},
		ingredients: map[int64]models.Ingredient{},
		meals:       map[int64]models.Meal{},
		drinks:      map[int64]models.Drink{},
		promotions:  map[int64]models.Promotion{},
		products:    map[int64]models.Product{},
		orders:      map[int64]models.Order{},
		nextID:      1000,
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) snapshot() memStore {
	cp := *s
	cp.items = copyMap(s.items)
	cp.ingredients = copyMap(s.ingredients)
	cp.meals = copyMap(s.meals)
	cp.drinks = copyMap(s.drinks)
	cp.promotions = copyMap(s.promotions)
	cp.products = copyMap(s.products)
	cp.orders = copyMap(s.orders)
	cp.lines = append([]models.OrderLine(nil), s.lines...)
	cp.movements = append([]models.InventoryMovement(nil), s.movements...)
	cp.sales = append([]models.Sale(nil), s.sales...)
	cp.outbox = append([]models.OutboxMessage(nil), s.outbox...)
	cp.waste = append([]models.WasteRecord(nil), s.waste...)
	return cp
}

func (s *memStore) restore(snap memStore) {
	*s = snap
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// --- fixtures ---

func (s *memStore) addItem(id int64, name string, stock string) {
	s.items[id] = models.InventoryItem{
		ID: id, Name: name, Unit: "g", CurrentStock: decimal.RequireFromString(stock),
		MinimumStock: decimal.Zero, Category: models.CategoryOther, Active: true, Version: 1,
	}
}

func (s *memStore) addMeal(id int64, name string, cost string) {
	s.meals[id] = models.Meal{ID: id, Name: name, Cost: decimal.RequireFromString(cost), Available: true}
}

func (s *memStore) addDrink(id int64, name string, price string) {
	s.drinks[id] = models.Drink{ID: id, Name: name, Price: decimal.RequireFromString(price), Available: true}
}

func (s *memStore) addRecipe(kind models.ProductKind, productID, itemID int64, perPortion string) {
	id := s.id()
	s.ingredients[id] = models.Ingredient{
		ID: id, ProductKind: kind, ProductID: productID, InventoryItemID: itemID,
		QuantityNeeded: decimal.RequireFromString(perPortion),
	}
}

func (s *memStore) stockOf(id int64) string {
	return s.items[id].CurrentStock.String()
}

func (s *memStore) movementsOf(orderID int64, movementType string) []models.InventoryMovement {
	var out []models.InventoryMovement
	for _, mv := range s.movements {
		if mv.OrderID != nil && *mv.OrderID == orderID && mv.MovementType == movementType {
			out = append(out, mv)
		}
	}
	return out
}

// --- InventoryRepository ---

func (s *memStore) CreateItem(_ repositories.SQLExecutor, item *models.InventoryItem) (int64, error) {
	for _, existing := range s.items {
		if strings.EqualFold(existing.Name, item.Name) {
			return 0, repositories.ErrDuplicateKey
		}
	}
	item.ID = s.id()
	item.Active = true
	item.Version = 1
	s.items[item.ID] = *item
	return item.ID, nil
}

func (s *memStore) UpdateItem(_ repositories.SQLExecutor, item *models.InventoryItem) error {
	current, ok := s.items[item.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if current.Version != item.Version {
		return repositories.ErrOptimisticLock
	}
	item.Version++
	s.items[item.ID] = *item
	return nil
}

func (s *memStore) GetItemByID(_ repositories.SQLExecutor, id int64) (*models.InventoryItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &item, nil
}

func (s *memStore) GetItemsByIDs(_ repositories.SQLExecutor, ids []int64) (map[int64]*models.InventoryItem, error) {
	out := map[int64]*models.InventoryItem{}
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out[id] = &item
		}
	}
	return out, nil
}

func (s *memStore) LockItems(exec repositories.SQLExecutor, ids []int64) (map[int64]*models.InventoryItem, error) {
	return s.GetItemsByIDs(exec, ids)
}

func (s *memStore) AdjustStock(_ repositories.SQLExecutor, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	item, ok := s.items[id]
	if !ok {
		return decimal.Zero, repositories.ErrNotFound
	}
	if delta.IsNegative() {
		item.ReduceStock(delta.Neg())
	} else {
		item.AddStock(delta)
	}
	item.Version++
	s.items[id] = item
	return item.CurrentStock, nil
}

func (s *memStore) SetActive(_ repositories.SQLExecutor, id int64, active bool) error {
	item, ok := s.items[id]
	if !ok {
		return repositories.ErrNotFound
	}
	item.Active = active
	s.items[id] = item
	return nil
}

func (s *memStore) ListItems(filters models.InventoryFilters) ([]models.InventoryItem, error) {
	var out []models.InventoryItem
	for _, item := range s.sortedItems() {
		if filters.Category != nil && item.Category != *filters.Category {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *memStore) ListLowStock() ([]models.InventoryItem, error) {
	var out []models.InventoryItem
	for _, item := range s.sortedItems() {
		if item.IsLowStock() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *memStore) ListOutOfStock() ([]models.InventoryItem, error) {
	var out []models.InventoryItem
	for _, item := range s.sortedItems() {
		if item.IsOutOfStock() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *memStore) sortedItems() []models.InventoryItem {
	out := make([]models.InventoryItem, 0, len(s.items))
	for _, item := range s.items {
		if item.Active {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- BOMRepository ---

func (s *memStore) GetActiveIngredients(_ repositories.SQLExecutor, kind models.ProductKind, productID int64) ([]models.Ingredient, error) {
	var out []models.Ingredient
	for _, ing := range s.ingredients {
		item, ok := s.items[ing.InventoryItemID]
		if ing.ProductKind != kind || ing.ProductID != productID || !ok || !item.Active {
			continue
		}
		ing.InventoryItem = &item
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InventoryItemID < out[j].InventoryItemID })
	return out, nil
}

func (s *memStore) ListIngredients(kind models.ProductKind, productID int64) ([]models.Ingredient, error) {
	return s.GetActiveIngredients(nil, kind, productID)
}

func (s *memStore) AddIngredient(_ repositories.SQLExecutor, ingredient *models.Ingredient) (int64, error) {
	for _, ing := range s.ingredients {
		if ing.ProductKind == ingredient.ProductKind && ing.ProductID == ingredient.ProductID && ing.InventoryItemID == ingredient.InventoryItemID {
			return 0, repositories.ErrDuplicateKey
		}
	}
	ingredient.ID = s.id()
	s.ingredients[ingredient.ID] = *ingredient
	return ingredient.ID, nil
}

func (s *memStore) DeleteIngredient(_ repositories.SQLExecutor, id int64) error {
	if _, ok := s.ingredients[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.ingredients, id)
	return nil
}

// --- CatalogRepository ---

func (s *memStore) GetMeal(_ repositories.SQLExecutor, id int64) (*models.Meal, error) {
	meal, ok := s.meals[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &meal, nil
}

func (s *memStore) GetDrink(_ repositories.SQLExecutor, id int64) (*models.Drink, error) {
	drink, ok := s.drinks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &drink, nil
}

func (s *memStore) GetPromotion(_ repositories.SQLExecutor, id int64) (*models.Promotion, error) {
	promo, ok := s.promotions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &promo, nil
}

func (s *memStore) GetProductForUpdate(_ repositories.SQLExecutor, id int64) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &product, nil
}

func (s *memStore) UpdateProductQuantity(_ repositories.SQLExecutor, id int64, quantity decimal.Decimal) error {
	product, ok := s.products[id]
	if !ok {
		return repositories.ErrNotFound
	}
	product.Quantity = quantity
	s.products[id] = product
	return nil
}

// --- OrderRepository ---

func (s *memStore) CreateOrder(_ repositories.SQLExecutor, order *models.Order) (int64, error) {
	order.ID = s.id()
	header := *order
	header.Meals, header.Drinks, header.Promotions = nil, nil, nil
	s.orders[order.ID] = header
	return order.ID, nil
}

func (s *memStore) CreateOrderLine(_ repositories.SQLExecutor, line *models.OrderLine) (int64, error) {
	line.ID = s.id()
	s.lines = append(s.lines, *line)
	return line.ID, nil
}

func (s *memStore) GetOrderByID(_ repositories.SQLExecutor, orderID int64) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &order, nil
}

func (s *memStore) LockOrder(exec repositories.SQLExecutor, orderID int64) (*models.Order, error) {
	return s.GetOrderByID(exec, orderID)
}

func (s *memStore) GetOrderLines(_ repositories.SQLExecutor, orderID int64) ([]models.OrderLine, error) {
	var out []models.OrderLine
	for _, line := range s.lines {
		if line.OrderID == orderID {
			out = append(out, line)
		}
	}
	return out, nil
}

func (s *memStore) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	var out []models.Order
	for _, order := range s.orders {
		if filters.Status != nil && string(order.Status) != *filters.Status {
			continue
		}
		if filters.Paid != nil && order.Paid != *filters.Paid {
			continue
		}
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *memStore) UpdateOrderStatus(_ repositories.SQLExecutor, orderID int64, newStatus models.OrderStatus, updatedAt time.Time) error {
	order, ok := s.orders[orderID]
	if !ok {
		return repositories.ErrNotFound
	}
	order.Status = newStatus
	order.UpdatedAt = updatedAt
	s.orders[orderID] = order
	return nil
}

func (s *memStore) SetPaid(_ repositories.SQLExecutor, orderID int64, paid bool) (bool, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if order.Paid == paid {
		return false, nil
	}
	order.Paid = paid
	s.orders[orderID] = order
	return true, nil
}

// --- InventoryMovementRepository ---

func (s *memStore) CreateMovement(_ repositories.SQLExecutor, movement *models.InventoryMovement) (int64, error) {
	movement.ID = s.id()
	s.movements = append(s.movements, *movement)
	return movement.ID, nil
}

func (s *memStore) GetMovements(filters models.MovementFilters) ([]models.InventoryMovement, int, error) {
	var out []models.InventoryMovement
	for _, mv := range s.movements {
		if filters.InventoryItemID != nil && mv.InventoryItemID != *filters.InventoryItemID {
			continue
		}
		out = append(out, mv)
	}
	return out, len(out), nil
}

func (s *memStore) ListOrderMovements(_ repositories.SQLExecutor, orderID int64, movementType string) ([]models.InventoryMovement, error) {
	return s.movementsOf(orderID, movementType), nil
}

// --- SaleRepository ---

func (s *memStore) CreateSale(_ repositories.SQLExecutor, sale *models.Sale) (int64, error) {
	for _, existing := range s.sales {
		if existing.OrderID == sale.OrderID {
			return 0, repositories.ErrDuplicateKey
		}
	}
	sale.ID = s.id()
	s.sales = append(s.sales, *sale)
	return sale.ID, nil
}

func (s *memStore) GetSaleByOrderID(orderID int64) (*models.Sale, error) {
	for _, sale := range s.sales {
		if sale.OrderID == orderID {
			return &sale, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// --- OutboxRepository ---

func (s *memStore) Enqueue(_ repositories.SQLExecutor, msg *models.OutboxMessage) (int64, error) {
	if s.failEnqueue {
		return 0, errors.New("outbox table is locked")
	}
	msg.ID = s.id()
	s.outbox = append(s.outbox, *msg)
	return msg.ID, nil
}

func (s *memStore) ClaimPending(_ repositories.SQLExecutor, limit int, _ time.Duration) ([]models.OutboxMessage, error) {
	var out []models.OutboxMessage
	for _, msg := range s.outbox {
		if msg.SentAt == nil && len(out) < limit {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *memStore) MarkSent(_ repositories.SQLExecutor, id int64, sentAt time.Time) error {
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			s.outbox[i].SentAt = &sentAt
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *memStore) MarkAttemptFailed(_ repositories.SQLExecutor, id int64, errMsg string, _ bool) error {
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			s.outbox[i].Attempts++
			s.outbox[i].LastError = &errMsg
			return nil
		}
	}
	return repositories.ErrNotFound
}

// --- WasteRepository ---

func (s *memStore) CreateRecord(_ repositories.SQLExecutor, record *models.WasteRecord) (int64, error) {
	record.ID = s.id()
	s.waste = append(s.waste, *record)
	return record.ID, nil
}

func (s *memStore) ListRecords(filters models.WasteFilters) ([]models.WasteRecord, error) {
	var out []models.WasteRecord
	for i := len(s.waste) - 1; i >= 0; i-- {
		record := s.waste[i]
		if filters.Kind != nil && record.Kind != *filters.Kind {
			continue
		}
		out = append(out, record)
		if filters.Limit > 0 && len(out) == filters.Limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) TotalCost(from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, record := range s.waste {
		if !record.RegisteredAt.Before(from) && !record.RegisteredAt.After(to) {
			total = total.Add(record.TotalCost)
		}
	}
	return total, nil
}

func (s *memStore) StatsByKind() ([]models.WasteStats, error) {
	byKind := map[models.WasteKind]*models.WasteStats{}
	for _, record := range s.waste {
		st, ok := byKind[record.Kind]
		if !ok {
			st = &models.WasteStats{Kind: record.Kind}
			byKind[record.Kind] = st
		}
		st.Count++
		st.TotalCost = st.TotalCost.Add(record.TotalCost)
	}
	out := make([]models.WasteStats, 0, len(byKind))
	for _, st := range byKind {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

// --- transaction plumbing ---

// memExec records the raw statements a service issues directly, such as savepoints.
type memExec struct {
	statements []string
}

func (e *memExec) Exec(query string, _ ...interface{}) (sql.Result, error) {
	e.statements = append(e.statements, query)
	return nil, nil
}

func (e *memExec) QueryRow(string, ...interface{}) *sql.Row { return nil }

func (e *memExec) Query(string, ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("memExec does not run queries")
}

type memTx struct {
	store *memStore
	exec  *memExec
	count int
}

func newMemTx(store *memStore) *memTx {
	return &memTx{store: store, exec: &memExec{}}
}

func (t *memTx) WithinTransaction(fn func(exec repositories.SQLExecutor) error) error {
	t.count++
	snap := t.store.snapshot()
	if err := fn(t.exec); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// newTestOrderService wires the real engine, checker, ledger and notifier over st.
func newTestOrderService(st *memStore, policy ReservationPolicy) (OrderService, *memTx) {
	tx := newMemTx(st)
	resolver := NewBOMResolver(st, st)
	checker := NewAvailabilityChecker(resolver, st, st)
	engine := NewStockEngine(resolver, checker, st, st)
	svc := NewOrderService(st, st, engine, checker, policy, NewSaleLedger(st), NewOrderNotifier(st), tx, nil)
	return svc, tx
}
