package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/repositories"
	"restaurant_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

// --- Data Transfer Objects (DTOs) ---

// Actor identifies the authenticated staff member behind a request.
type Actor struct {
	UserID   int64
	Username string
	Role     string
}

// OrderLineRequest is one requested meal, drink or promotion.
type OrderLineRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderRequest is used for creating a new order.
type CreateOrderRequest struct {
	Meals             []OrderLineRequest `json:"meals"`
	Drinks            []OrderLineRequest `json:"drinks"`
	Promotions        []OrderLineRequest `json:"promotions"`
	OrderType         string             `json:"order_type" binding:"required"`
	TableNumber       *int               `json:"table_number"`
	TotalCost         decimal.Decimal    `json:"total_cost"`
	Paid              *bool              `json:"paid"`
	CustomerFirstName *string            `json:"customer_first_name"`
	CustomerLastName  *string            `json:"customer_last_name"`
	CustomerPhone     *string            `json:"customer_phone"`
	CustomerEmail     *string            `json:"customer_email"`
	// EmployeeOrder attributes the order to the authenticated staff member instead of a customer.
	EmployeeOrder bool   `json:"employee_order"`
	Actor         *Actor `json:"-"`
}

// UpdateOrderStatusRequest is used for updating the status of an order.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Actor  *Actor `json:"-"`
}

// UpdateOrderPaidRequest toggles the paid flag.
type UpdateOrderPaidRequest struct {
	Paid *bool `json:"paid" binding:"required"`
}

// --- OrderService Interface ---
type OrderService interface {
	CreateOrder(req CreateOrderRequest) (*models.Order, error)
	GetOrders(filters models.OrderFilters) ([]models.Order, int, error)
	GetOrderByID(orderID int64) (*models.Order, error)
	UpdateOrderStatus(orderID int64, req UpdateOrderStatusRequest) (*models.Order, error)
	UpdateOrderPaid(orderID int64, paid bool) (*models.Order, error)
	CheckAvailability(kind string, productID int64, quantity int) (bool, error)
}

// --- orderService Implementation ---
type orderService struct {
	orderRepo   repositories.OrderRepository
	catalogRepo repositories.CatalogRepository
	stock       StockEngine
	checker     AvailabilityChecker
	policy      ReservationPolicy
	ledger      SaleLedger
	notifier    OrderNotifier
	tx          repositories.Transactor
	db          repositories.SQLExecutor
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	catalogRepo repositories.CatalogRepository,
	stock StockEngine,
	checker AvailabilityChecker,
	policy ReservationPolicy,
	ledger SaleLedger,
	notifier OrderNotifier,
	tx repositories.Transactor,
	db repositories.SQLExecutor,
) OrderService {
	if policy == nil {
		policy = EagerReservation{}
	}
	return &orderService{
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		stock:       stock,
		checker:     checker,
		policy:      policy,
		ledger:      ledger,
		notifier:    notifier,
		tx:          tx,
		db:          db,
	}
}

func (s *orderService) CreateOrder(req CreateOrderRequest) (*models.Order, error) {
	order, err := newOrderFromRequest(req)
	if err != nil {
		return nil, err
	}
	staffID := actorID(req.Actor)

	err = s.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		if err := s.resolveLines(exec, order, req); err != nil {
			return err
		}

		if _, err := s.orderRepo.CreateOrder(exec, order); err != nil {
			return persistenceError("creating order", err)
		}
		for _, lines := range [][]models.OrderLine{order.Meals, order.Drinks, order.Promotions} {
			for i := range lines {
				lines[i].OrderID = order.ID
				if _, err := s.orderRepo.CreateOrderLine(exec, &lines[i]); err != nil {
					return persistenceError(fmt.Sprintf("creating %s line for product %d", lines[i].Kind, lines[i].ProductID), err)
				}
			}
		}

		switch s.policy.OnCreate() {
		case StockActionReserve:
			if err := s.stock.Reserve(exec, order, staffID); err != nil {
				return err
			}
		default:
			if err := s.stock.Check(exec, order); err != nil {
				return err
			}
		}

		if order.Paid {
			if _, err := s.ledger.RecordSale(exec, order); err != nil {
				return err
			}
		}

		if order.CustomerEmail != nil && !order.IsEmployeeOrder() {
			s.notify(exec, order, models.NotificationOrderConfirmation, s.notifier.OrderConfirmed)
		}
		return nil
	})
	if err != nil {
		utils.LogError(err, "CreateOrder: order rejected")
		return nil, err
	}

	utils.LogInfo("Order created", map[string]interface{}{
		"order_id": order.ID, "lines": order.LineCount(), "paid": order.Paid, "policy": s.policy.Name(),
	})
	return s.GetOrderByID(order.ID)
}

func newOrderFromRequest(req CreateOrderRequest) (*models.Order, error) {
	if len(req.Meals)+len(req.Drinks)+len(req.Promotions) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one meal, drink or promotion", ErrValidation)
	}
	for kind, lines := range map[models.ProductKind][]OrderLineRequest{
		models.ProductKindMeal:      req.Meals,
		models.ProductKindDrink:     req.Drinks,
		models.ProductKindPromotion: req.Promotions,
	} {
		for _, line := range lines {
			if line.ProductID <= 0 {
				return nil, fmt.Errorf("%w: invalid %s id %d", ErrValidation, kind, line.ProductID)
			}
			if line.Quantity <= 0 {
				return nil, fmt.Errorf("%w: quantity for %s %d must be positive", ErrValidation, kind, line.ProductID)
			}
		}
	}

	orderType := models.OrderType(strings.ToUpper(strings.TrimSpace(req.OrderType)))
	if !orderType.Valid() {
		return nil, fmt.Errorf("%w: unknown order type %q", ErrValidation, req.OrderType)
	}
	if req.TableNumber != nil && *req.TableNumber <= 0 {
		return nil, fmt.Errorf("%w: table number must be positive", ErrValidation)
	}
	if orderType == models.OrderTypeDineIn && req.TableNumber == nil {
		return nil, fmt.Errorf("%w: dine-in orders need a table number", ErrValidation)
	}
	if req.TotalCost.IsNegative() {
		return nil, fmt.Errorf("%w: total cost cannot be negative", ErrValidation)
	}
	if req.CustomerEmail != nil && *req.CustomerEmail != "" && !utils.IsValidEmail(*req.CustomerEmail) {
		return nil, fmt.Errorf("%w: invalid customer email", ErrValidation)
	}

	now := time.Now()
	order := &models.Order{
		Status:      models.OrderStatusPending,
		Paid:        true,
		TotalCost:   req.TotalCost,
		OrderType:   orderType,
		TableNumber: req.TableNumber,
		OrderDate:   now,
		UpdatedAt:   now,
	}
	if req.Paid != nil {
		order.Paid = *req.Paid
	}

	if req.EmployeeOrder {
		if req.Actor == nil {
			return nil, fmt.Errorf("%w: employee orders require an authenticated staff member", ErrValidation)
		}
		order.EmployeeID = &req.Actor.UserID
		order.EmployeeName = &req.Actor.Username
		order.EmployeeRole = &req.Actor.Role
	} else {
		order.CustomerFirstName = req.CustomerFirstName
		order.CustomerLastName = req.CustomerLastName
		order.CustomerPhone = req.CustomerPhone
		if req.CustomerEmail != nil && *req.CustomerEmail != "" {
			order.CustomerEmail = req.CustomerEmail
		}
	}
	return order, nil
}

// resolveLines loads every referenced catalog entry and captures its name and price on the line.
func (s *orderService) resolveLines(exec repositories.SQLExecutor, order *models.Order, req CreateOrderRequest) error {
	for _, r := range req.Meals {
		meal, err := s.catalogRepo.GetMeal(exec, r.ProductID)
		if err != nil {
			return notFoundOr(ErrProductNotFound, fmt.Sprintf("meal %d", r.ProductID), err)
		}
		order.Meals = append(order.Meals, models.OrderLine{
			Kind: models.ProductKindMeal, ProductID: meal.ID, ProductName: meal.Name, Quantity: r.Quantity, UnitPrice: meal.Cost,
		})
	}
	for _, r := range req.Drinks {
		drink, err := s.catalogRepo.GetDrink(exec, r.ProductID)
		if err != nil {
			return notFoundOr(ErrProductNotFound, fmt.Sprintf("drink %d", r.ProductID), err)
		}
		order.Drinks = append(order.Drinks, models.OrderLine{
			Kind: models.ProductKindDrink, ProductID: drink.ID, ProductName: drink.Name, Quantity: r.Quantity, UnitPrice: drink.Price,
		})
	}
	for _, r := range req.Promotions {
		promo, err := s.catalogRepo.GetPromotion(exec, r.ProductID)
		if err != nil {
			return notFoundOr(ErrProductNotFound, fmt.Sprintf("promotion %d", r.ProductID), err)
		}
		order.Promotions = append(order.Promotions, models.OrderLine{
			Kind: models.ProductKindPromotion, ProductID: promo.ID, ProductName: promo.Name, Quantity: r.Quantity, UnitPrice: promo.ComboPrice,
		})
	}
	return nil
}

func (s *orderService) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	if filters.Status != nil && *filters.Status != "" {
		status, err := ParseOrderStatus(*filters.Status)
		if err != nil {
			return nil, 0, err
		}
		normalized := string(status)
		filters.Status = &normalized
	}
	if filters.Date != nil && *filters.Date != "" {
		if _, err := time.Parse("2006-01-02", *filters.Date); err != nil {
			return nil, 0, fmt.Errorf("%w: invalid date filter format: %s, expected YYYY-MM-DD", ErrValidation, *filters.Date)
		}
	}
	orders, totalCount, err := s.orderRepo.GetOrders(filters)
	if err != nil {
		return nil, 0, persistenceError("listing orders", err)
	}
	return orders, totalCount, nil
}

func (s *orderService) GetOrderByID(orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(s.db, orderID)
	if err != nil {
		return nil, notFoundOr(ErrOrderNotFound, fmt.Sprintf("order %d", orderID), err)
	}
	if err := s.loadLines(s.db, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) loadLines(exec repositories.SQLExecutor, order *models.Order) error {
	lines, err := s.orderRepo.GetOrderLines(exec, order.ID)
	if err != nil {
		return persistenceError(fmt.Sprintf("loading lines of order %d", order.ID), err)
	}
	order.Meals, order.Drinks, order.Promotions = []models.OrderLine{}, []models.OrderLine{}, []models.OrderLine{}
	for _, line := range lines {
		switch line.Kind {
		case models.ProductKindMeal:
			order.Meals = append(order.Meals, line)
		case models.ProductKindDrink:
			order.Drinks = append(order.Drinks, line)
		case models.ProductKindPromotion:
			order.Promotions = append(order.Promotions, line)
		}
	}
	return nil
}

// UpdateOrderStatus moves the order along the transition table. A self transition returns the
// order untouched; stock and notification side effects run only for real edges.
func (s *orderService) UpdateOrderStatus(orderID int64, req UpdateOrderStatusRequest) (*models.Order, error) {
	to, err := ParseOrderStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var from models.OrderStatus
	changed := false
	err = s.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		order, err := s.orderRepo.LockOrder(exec, orderID)
		if err != nil {
			return notFoundOr(ErrOrderNotFound, fmt.Sprintf("order %d", orderID), err)
		}
		from = order.Status
		if from == to {
			return nil
		}
		if !CanTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		if err := s.loadLines(exec, order); err != nil {
			return err
		}

		staffID := actorID(req.Actor)
		switch s.policy.OnTransition(from, to) {
		case StockActionReserve:
			if err := s.stock.Reserve(exec, order, staffID); err != nil {
				return err
			}
		case StockActionRestore:
			if err := s.stock.Restore(exec, order, staffID); err != nil {
				return err
			}
		}

		if err := s.orderRepo.UpdateOrderStatus(exec, orderID, to, time.Now()); err != nil {
			return notFoundOr(ErrOrderNotFound, fmt.Sprintf("order %d", orderID), err)
		}
		order.Status = to

		if to == models.OrderStatusReady {
			s.notify(exec, order, models.NotificationOrderReady, s.notifier.OrderReady)
		}
		changed = true
		return nil
	})
	if err != nil {
		utils.LogError(err, fmt.Sprintf("UpdateOrderStatus: order %d -> %s rejected", orderID, to))
		return nil, err
	}
	if changed {
		utils.LogInfo("Order status changed", map[string]interface{}{"order_id": orderID, "from": from, "to": to})
	}
	return s.GetOrderByID(orderID)
}

// UpdateOrderPaid sets the paid flag. The conditional update guards on the previous value, so
// only the call that actually flips false to true records a sale.
func (s *orderService) UpdateOrderPaid(orderID int64, paid bool) (*models.Order, error) {
	err := s.tx.WithinTransaction(func(exec repositories.SQLExecutor) error {
		order, err := s.orderRepo.LockOrder(exec, orderID)
		if err != nil {
			return notFoundOr(ErrOrderNotFound, fmt.Sprintf("order %d", orderID), err)
		}
		changed, err := s.orderRepo.SetPaid(exec, orderID, paid)
		if err != nil {
			return persistenceError(fmt.Sprintf("updating paid flag of order %d", orderID), err)
		}
		if !changed || !paid {
			return nil
		}
		if err := s.loadLines(exec, order); err != nil {
			return err
		}
		order.Paid = true
		if _, err := s.ledger.RecordSale(exec, order); err != nil {
			if errors.Is(err, ErrDuplicate) {
				utils.LogWarn("UpdateOrderPaid: sale already recorded", map[string]interface{}{"order_id": orderID})
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		utils.LogError(err, fmt.Sprintf("UpdateOrderPaid: order %d", orderID))
		return nil, err
	}
	return s.GetOrderByID(orderID)
}

func (s *orderService) CheckAvailability(kind string, productID int64, quantity int) (bool, error) {
	productKind := models.ProductKind(strings.ToUpper(strings.TrimSpace(kind)))
	if !productKind.Valid() {
		return false, fmt.Errorf("%w: unknown product kind %q", ErrValidation, kind)
	}
	return s.checker.IsAvailable(s.db, productKind, productID, quantity)
}

// notify queues a notification under a savepoint named after the topic. A failure is logged and
// rolled back to the savepoint so the surrounding status change still commits.
func (s *orderService) notify(exec repositories.SQLExecutor, order *models.Order, topic string, send func(repositories.SQLExecutor, *models.Order) error) {
	savepoint := savepointName(topic)
	if _, err := exec.Exec("SAVEPOINT " + savepoint); err != nil {
		utils.LogError(err, fmt.Sprintf("notify: cannot open savepoint for %s of order %d", topic, order.ID))
		return
	}
	if err := send(exec, order); err != nil {
		utils.LogError(err, fmt.Sprintf("notify: %s for order %d not queued", topic, order.ID))
		if _, rbErr := exec.Exec("ROLLBACK TO SAVEPOINT " + savepoint); rbErr != nil {
			utils.LogError(rbErr, "notify: rollback to savepoint failed")
		}
		return
	}
	if _, err := exec.Exec("RELEASE SAVEPOINT " + savepoint); err != nil {
		utils.LogError(err, "notify: release savepoint failed")
	}
}

// savepointName turns a topic into an SQL identifier. Anything outside [a-z0-9_] becomes '_'.
func savepointName(topic string) string {
	var b strings.Builder
	b.WriteString("notify_")
	for _, r := range strings.ToLower(topic) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func actorID(actor *Actor) *int64 {
	if actor == nil {
		return nil
	}
	id := actor.UserID
	return &id
}
