package services

import (
	"testing"

	"restaurant_backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tomatoSauce int64 = 1
	lemonSyrup  int64 = 2
	pizza       int64 = 10
	calzone     int64 = 11
	salad       int64 = 12
	lemonade    int64 = 20
	pizzaCombo  int64 = 50
)

// pizzaStore holds one pizza needing 200g of sauce per portion and sauceStock grams of sauce.
func pizzaStore(sauceStock string) *memStore {
	st := newMemStore()
	st.addItem(tomatoSauce, "Tomato Sauce", sauceStock)
	st.addMeal(pizza, "Pizza", "12.50")
	st.addRecipe(models.ProductKindMeal, pizza, tomatoSauce, "200")
	return st
}

func takeaway(lines ...OrderLineRequest) CreateOrderRequest {
	return CreateOrderRequest{
		Meals:     lines,
		OrderType: "takeaway",
		TotalCost: decimal.RequireFromString("37.50"),
	}
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func moveTo(t *testing.T, svc OrderService, orderID int64, statuses ...models.OrderStatus) {
	t.Helper()
	for _, status := range statuses {
		_, err := svc.UpdateOrderStatus(orderID, UpdateOrderStatusRequest{Status: string(status)})
		require.NoError(t, err, "moving order %d to %s", orderID, status)
	}
}

func TestCreateOrder_ReservesAndCancelRestores(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, nil)

	order, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 3}))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	require.Len(t, order.Meals, 1)
	assert.Equal(t, "Pizza", order.Meals[0].ProductName)
	assert.True(t, order.Meals[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "400", st.stockOf(tomatoSauce))

	reserved := st.movementsOf(order.ID, models.MovementTypeReservation)
	require.Len(t, reserved, 1)
	assert.Equal(t, "-600", reserved[0].QuantityChanged.String())

	cancelled, err := svc.UpdateOrderStatus(order.ID, UpdateOrderStatusRequest{Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "1000", st.stockOf(tomatoSauce))

	restored := st.movementsOf(order.ID, models.MovementTypeCompensation)
	require.Len(t, restored, 1)
	assert.Equal(t, "600", restored[0].QuantityChanged.String())
}

func TestCreateOrder_InsufficientStockLeavesNothingBehind(t *testing.T) {
	st := pizzaStore("100")
	svc, _ := newTestOrderService(st, nil)

	available, err := svc.CheckAvailability("meal", pizza, 1)
	require.NoError(t, err)
	assert.False(t, available)

	_, err = svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1}))
	require.ErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, "100", st.stockOf(tomatoSauce))
	assert.Empty(t, st.orders)
	assert.Empty(t, st.lines)
	assert.Empty(t, st.movements)
	assert.Empty(t, st.sales)
}

func TestCreateOrder_RejectsSummedRequirementAcrossLines(t *testing.T) {
	st := pizzaStore("500")
	st.addMeal(calzone, "Calzone", "14")
	st.addRecipe(models.ProductKindMeal, calzone, tomatoSauce, "200")
	svc, _ := newTestOrderService(st, nil)

	// Each line fits on its own (400g and 200g) but together they need 600g.
	_, err := svc.CreateOrder(takeaway(
		OrderLineRequest{ProductID: pizza, Quantity: 2},
		OrderLineRequest{ProductID: calzone, Quantity: 1},
	))
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "500", st.stockOf(tomatoSauce))
	assert.Empty(t, st.orders)
}

func TestCreateOrder_Validation(t *testing.T) {
	st := pizzaStore("1000")
	svc, tx := newTestOrderService(st, nil)
	table := 4

	tests := []struct {
		name string
		req  CreateOrderRequest
	}{
		{"no line items", CreateOrderRequest{OrderType: "TAKEAWAY"}},
		{"zero quantity", takeaway(OrderLineRequest{ProductID: pizza, Quantity: 0})},
		{"unknown order type", CreateOrderRequest{Meals: []OrderLineRequest{{ProductID: pizza, Quantity: 1}}, OrderType: "DRIVE_THRU"}},
		{"dine in without table", CreateOrderRequest{Meals: []OrderLineRequest{{ProductID: pizza, Quantity: 1}}, OrderType: "DINE_IN"}},
		{"negative table", CreateOrderRequest{Meals: []OrderLineRequest{{ProductID: pizza, Quantity: 1}}, OrderType: "DINE_IN", TableNumber: func() *int { n := -table; return &n }()}},
		{"negative total", CreateOrderRequest{Meals: []OrderLineRequest{{ProductID: pizza, Quantity: 1}}, OrderType: "TAKEAWAY", TotalCost: decimal.NewFromInt(-1)}},
		{"bad email", CreateOrderRequest{Meals: []OrderLineRequest{{ProductID: pizza, Quantity: 1}}, OrderType: "TAKEAWAY", CustomerEmail: strPtr("not-an-email")}},
		{"employee order without actor", CreateOrderRequest{Meals: []OrderLineRequest{{ProductID: pizza, Quantity: 1}}, OrderType: "TAKEAWAY", EmployeeOrder: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, tx.count, "validation failures must not open a transaction")
	assert.Equal(t, "1000", st.stockOf(tomatoSauce))
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, nil)

	_, err := svc.CreateOrder(CreateOrderRequest{
		Drinks:    []OrderLineRequest{{ProductID: 999, Quantity: 1}},
		OrderType: "TAKEAWAY",
	})
	require.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, st.orders)
}

func TestCreateOrder_ProductWithoutRecipeIsAlwaysAvailable(t *testing.T) {
	st := pizzaStore("0")
	st.addMeal(salad, "House Salad", "6")
	svc, _ := newTestOrderService(st, nil)

	available, err := svc.CheckAvailability("MEAL", salad, 50)
	require.NoError(t, err)
	assert.True(t, available)

	order, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: salad, Quantity: 50}))
	require.NoError(t, err)
	assert.Empty(t, st.movementsOf(order.ID, models.MovementTypeReservation))
}

func TestCreateOrder_PromotionReservesBundledRecipes(t *testing.T) {
	st := pizzaStore("1000")
	st.addItem(lemonSyrup, "Lemon Syrup", "90")
	st.addDrink(lemonade, "Lemonade", "3")
	st.addRecipe(models.ProductKindDrink, lemonade, lemonSyrup, "30")
	st.promotions[pizzaCombo] = models.Promotion{
		ID: pizzaCombo, Name: "Pizza + Lemonade", ComboPrice: decimal.NewFromInt(14), Active: true,
		MealIDs: []int64{pizza}, DrinkIDs: []int64{lemonade},
	}
	svc, _ := newTestOrderService(st, nil)

	ok, err := svc.CheckAvailability("promotion", pizzaCombo, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.CheckAvailability("promotion", pizzaCombo, 4)
	require.NoError(t, err)
	assert.False(t, ok, "four lemonades need 120ml of syrup")
	ok, err = svc.CheckAvailability("promotion", 404, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	order, err := svc.CreateOrder(CreateOrderRequest{
		Promotions: []OrderLineRequest{{ProductID: pizzaCombo, Quantity: 2}},
		OrderType:  "TAKEAWAY",
		TotalCost:  decimal.NewFromInt(28),
	})
	require.NoError(t, err)
	require.Len(t, order.Promotions, 1)
	assert.Equal(t, "600", st.stockOf(tomatoSauce))
	assert.Equal(t, "30", st.stockOf(lemonSyrup))
}

func TestCheckAvailability_RejectsBadInput(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, nil)

	_, err := svc.CheckAvailability("dessert", pizza, 1)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CheckAvailability("meal", pizza, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateOrderStatus_DeliveredIsTerminal(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, nil)

	order, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1}))
	require.NoError(t, err)
	moveTo(t, svc, order.ID, models.OrderStatusPreparing, models.OrderStatusReady, models.OrderStatusDelivered)

	for _, to := range []models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusPending, models.OrderStatusReady} {
		_, err := svc.UpdateOrderStatus(order.ID, UpdateOrderStatusRequest{Status: string(to)})
		assert.ErrorIs(t, err, ErrInvalidTransition, "DELIVERED -> %s", to)
	}
	assert.Equal(t, models.OrderStatusDelivered, st.orders[order.ID].Status)
	assert.Equal(t, "800", st.stockOf(tomatoSauce))
	assert.Empty(t, st.movementsOf(order.ID, models.MovementTypeCompensation))
}

func TestUpdateOrderStatus_SkippingStepsIsRejected(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, nil)

	order, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1}))
	require.NoError(t, err)

	_, err = svc.UpdateOrderStatus(order.ID, UpdateOrderStatusRequest{Status: "DELIVERED"})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.OrderStatusPending, st.orders[order.ID].Status)

	_, err = svc.UpdateOrderStatus(order.ID, UpdateOrderStatusRequest{Status: "SHIPPED"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateOrderStatus(4242, UpdateOrderStatusRequest{Status: "READY"})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateOrderStatus_SelfTransitionIsNoOp(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, nil)

	order, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1}))
	require.NoError(t, err)
	moveTo(t, svc, order.ID, models.OrderStatusPreparing, models.OrderStatusReady)
	movements, outbox := len(st.movements), len(st.outbox)
	require.Equal(t, 1, outbox, "entering READY queues one notification")

	again, err := svc.UpdateOrderStatus(order.ID, UpdateOrderStatusRequest{Status: "READY"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, again.Status)
	assert.Len(t, st.movements, movements)
	assert.Len(t, st.outbox, outbox)
	assert.Equal(t, models.NotificationOrderReady, st.outbox[0].Topic)
}

func TestUpdateOrderStatus_CancelFromEveryOpenState(t *testing.T) {
	for _, path := range [][]models.OrderStatus{
		{},
		{models.OrderStatusPreparing},
		{models.OrderStatusPreparing, models.OrderStatusReady},
	} {
		st := pizzaStore("1000")
		svc, _ := newTestOrderService(st, nil)
		order, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 2}))
		require.NoError(t, err)
		moveTo(t, svc, order.ID, path...)

		moveTo(t, svc, order.ID, models.OrderStatusCancelled)
		assert.Equal(t, "1000", st.stockOf(tomatoSauce))
		assert.Len(t, st.movementsOf(order.ID, models.MovementTypeCompensation), 1)

		_, err = svc.UpdateOrderStatus(order.ID, UpdateOrderStatusRequest{Status: "CANCELLED"})
		require.NoError(t, err)
		assert.Len(t, st.movementsOf(order.ID, models.MovementTypeCompensation), 1, "cancelling twice credits once")
	}
}

func TestUpdateOrderStatus_RestoreUsesReservedAmounts(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, nil)

	order, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 2}))
	require.NoError(t, err)
	require.Equal(t, "600", st.stockOf(tomatoSauce))

	// The recipe changes after the order was taken.
	for id, ing := range st.ingredients {
		ing.QuantityNeeded = decimal.NewFromInt(350)
		st.ingredients[id] = ing
	}

	moveTo(t, svc, order.ID, models.OrderStatusCancelled)
	assert.Equal(t, "1000", st.stockOf(tomatoSauce))
}

func TestLazyReservation(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, LazyReservation{})

	order, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, "1000", st.stockOf(tomatoSauce), "nothing is debited until preparation starts")

	moveTo(t, svc, order.ID, models.OrderStatusPreparing)
	assert.Equal(t, "600", st.stockOf(tomatoSauce))

	moveTo(t, svc, order.ID, models.OrderStatusCancelled)
	assert.Equal(t, "1000", st.stockOf(tomatoSauce))

	pending, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1}))
	require.NoError(t, err)
	moveTo(t, svc, pending.ID, models.OrderStatusCancelled)
	assert.Equal(t, "1000", st.stockOf(tomatoSauce))
	assert.Empty(t, st.movementsOf(pending.ID, models.MovementTypeCompensation))

	_, err = svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 6}))
	assert.ErrorIs(t, err, ErrInsufficientStock, "creation still runs the availability check")
}

func TestLazyReservation_StartingPreparationCanFail(t *testing.T) {
	st := pizzaStore("300")
	svc, _ := newTestOrderService(st, LazyReservation{})

	first, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1}))
	require.NoError(t, err)
	second, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1}))
	require.NoError(t, err)

	moveTo(t, svc, first.ID, models.OrderStatusPreparing)
	_, err = svc.UpdateOrderStatus(second.ID, UpdateOrderStatusRequest{Status: "PREPARING"})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, models.OrderStatusPending, st.orders[second.ID].Status)
	assert.Equal(t, "100", st.stockOf(tomatoSauce))
}

func TestSwitchingPolicyKeepsOneReservationPerOrder(t *testing.T) {
	st := pizzaStore("1000")
	eager, _ := newTestOrderService(st, EagerReservation{})

	first, err := eager.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1}))
	require.NoError(t, err)
	second, err := eager.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1}))
	require.NoError(t, err)
	require.Equal(t, "600", st.stockOf(tomatoSauce))

	lazy, _ := newTestOrderService(st, LazyReservation{})

	moveTo(t, lazy, first.ID, models.OrderStatusPreparing)
	assert.Equal(t, "600", st.stockOf(tomatoSauce), "an order reserved at creation is not debited again")
	assert.Len(t, st.movementsOf(first.ID, models.MovementTypeReservation), 1)

	moveTo(t, lazy, second.ID, models.OrderStatusCancelled)
	assert.Equal(t, "800", st.stockOf(tomatoSauce), "a pending order reserved at creation gets its stock back")
	assert.Len(t, st.movementsOf(second.ID, models.MovementTypeCompensation), 1)

	moveTo(t, lazy, first.ID, models.OrderStatusCancelled)
	assert.Equal(t, "1000", st.stockOf(tomatoSauce))

	// Orders taken lazily and then handled eagerly still reserve once, on preparation.
	pending, err := lazy.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 2}))
	require.NoError(t, err)
	moveTo(t, lazy, pending.ID, models.OrderStatusPreparing)
	assert.Equal(t, "600", st.stockOf(tomatoSauce))
	moveTo(t, eager, pending.ID, models.OrderStatusCancelled)
	assert.Equal(t, "1000", st.stockOf(tomatoSauce))
}

func TestUpdateOrderPaid_RecordsOneSale(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, nil)

	req := takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1})
	req.Paid = boolPtr(false)
	order, err := svc.CreateOrder(req)
	require.NoError(t, err)
	assert.False(t, order.Paid)
	assert.Empty(t, st.sales)

	for i := 0; i < 2; i++ {
		paid, err := svc.UpdateOrderPaid(order.ID, true)
		require.NoError(t, err)
		assert.True(t, paid.Paid)
	}
	require.Len(t, st.sales, 1)
	assert.Equal(t, order.ID, st.sales[0].OrderID)
	require.Len(t, st.sales[0].Items, 1)
	assert.Equal(t, "Pizza", st.sales[0].Items[0].Name)

	// Unpaying and paying again must not book the same order twice.
	_, err = svc.UpdateOrderPaid(order.ID, false)
	require.NoError(t, err)
	_, err = svc.UpdateOrderPaid(order.ID, true)
	require.NoError(t, err)
	assert.Len(t, st.sales, 1)
	assert.True(t, st.orders[order.ID].Paid)
}

func TestCreateOrder_PaidByDefaultRecordsSale(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, nil)

	order, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1}))
	require.NoError(t, err)
	assert.True(t, order.Paid)
	require.Len(t, st.sales, 1)

	_, err = svc.UpdateOrderPaid(order.ID, true)
	require.NoError(t, err)
	assert.Len(t, st.sales, 1)
}

func TestCreateOrder_QueuesConfirmationForCustomers(t *testing.T) {
	st := pizzaStore("1000")
	svc, tx := newTestOrderService(st, nil)

	req := takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1})
	req.CustomerFirstName = strPtr("Ana")
	req.CustomerEmail = strPtr("ana@example.com")
	order, err := svc.CreateOrder(req)
	require.NoError(t, err)

	require.Len(t, st.outbox, 1)
	msg := st.outbox[0]
	assert.Equal(t, models.NotificationOrderConfirmation, msg.Topic)
	assert.Equal(t, order.ID, msg.OrderID)
	assert.Equal(t, "ana@example.com", *msg.Recipient)
	assert.NotEmpty(t, msg.MessageID)
	assert.Contains(t, string(msg.Payload), `"customer_name":"Ana"`)
	assert.Contains(t, tx.exec.statements, "RELEASE SAVEPOINT notify_order_confirmation")
}

func TestCreateOrder_EmployeeOrderSkipsCustomerFields(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, nil)

	req := takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1})
	req.EmployeeOrder = true
	req.CustomerEmail = strPtr("ana@example.com")
	req.Actor = &Actor{UserID: 7, Username: "chef", Role: models.RoleStaff}
	order, err := svc.CreateOrder(req)
	require.NoError(t, err)

	require.NotNil(t, order.EmployeeName)
	assert.Equal(t, "chef", *order.EmployeeName)
	assert.Nil(t, order.CustomerEmail)
	assert.Empty(t, st.outbox)

	reserved := st.movementsOf(order.ID, models.MovementTypeReservation)
	require.Len(t, reserved, 1)
	require.NotNil(t, reserved[0].StaffID)
	assert.Equal(t, int64(7), *reserved[0].StaffID)
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	st := pizzaStore("1000")
	st.failEnqueue = true
	svc, tx := newTestOrderService(st, nil)

	req := takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1})
	req.CustomerEmail = strPtr("ana@example.com")
	order, err := svc.CreateOrder(req)
	require.NoError(t, err)
	assert.Equal(t, "800", st.stockOf(tomatoSauce))
	assert.Contains(t, tx.exec.statements, "ROLLBACK TO SAVEPOINT notify_order_confirmation")

	moveTo(t, svc, order.ID, models.OrderStatusPreparing, models.OrderStatusReady)
	assert.Equal(t, models.OrderStatusReady, st.orders[order.ID].Status)
	assert.Contains(t, tx.exec.statements, "ROLLBACK TO SAVEPOINT notify_order_ready")
	assert.Empty(t, st.outbox)
}

func TestGetOrders_ValidatesFilters(t *testing.T) {
	st := pizzaStore("1000")
	svc, _ := newTestOrderService(st, nil)
	_, err := svc.CreateOrder(takeaway(OrderLineRequest{ProductID: pizza, Quantity: 1}))
	require.NoError(t, err)

	orders, total, err := svc.GetOrders(models.OrderFilters{Status: strPtr("pending")})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, orders, 1)

	_, _, err = svc.GetOrders(models.OrderFilters{Status: strPtr("LOST")})
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = svc.GetOrders(models.OrderFilters{Date: strPtr("19/10/2026")})
	assert.ErrorIs(t, err, ErrValidation)
}
