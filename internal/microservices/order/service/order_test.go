package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/microservices/order/repository"
)

var testNow = time.Date(2026, 10, 17, 18, 45, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, e domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	repo *repository.MemoryRepository
	svc  *OrderService
	inv  *InventoryService
	pub  *recordingPublisher

	restaurant uuid.UUID
	other      uuid.UUID
	customer   uuid.UUID
	staff      uuid.UUID

	burger  uuid.UUID // 12.99, stock 10
	soup    uuid.UUID // out of stock
	salad   uuid.UUID // not available
	foreign uuid.UUID // belongs to the other restaurant
	table   uuid.UUID
	farTbl  uuid.UUID // belongs to the other restaurant
}

func newFixture(t *testing.T, policy domain.TransitionPolicy) *fixture {
	t.Helper()
	no := false
	f := &fixture{
		repo:       repository.NewMemoryRepository(),
		pub:        &recordingPublisher{},
		restaurant: uuid.New(),
		other:      uuid.New(),
		customer:   uuid.New(),
		staff:      uuid.New(),
		burger:     uuid.New(),
		soup:       uuid.New(),
		salad:      uuid.New(),
		foreign:    uuid.New(),
		table:      uuid.New(),
		farTbl:     uuid.New(),
	}
	seed := repository.Seed{Restaurants: []repository.SeedRestaurant{
		{
			ID:                f.restaurant,
			Name:              "Bistro",
			TaxRate:           decimal.RequireFromString("8.5"),
			ServiceChargeRate: decimal.RequireFromString("10"),
			DeliveryFee:       decimal.RequireFromString("4.99"),
			Dishes: []repository.SeedDish{
				{ID: f.burger, Name: "Burger", Price: decimal.RequireFromString("12.99"), Stock: 10, LowStockThreshold: 2},
				{ID: f.soup, Name: "Soup", Price: decimal.RequireFromString("6.50"), Stock: 0},
				{ID: f.salad, Name: "Salad", Price: decimal.RequireFromString("8.00"), Stock: 5, Available: &no},
			},
			Tables: []repository.SeedTable{{ID: f.table, Number: 4, Capacity: 4}},
		},
		{
			ID:     f.other,
			Name:   "Diner",
			Dishes: []repository.SeedDish{{ID: f.foreign, Name: "Pie", Price: decimal.RequireFromString("5"), Stock: 5}},
			Tables: []repository.SeedTable{{ID: f.farTbl, Number: 1, Capacity: 2}},
		},
	}}
	if err := f.repo.Seed(context.Background(), seed); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	f.svc = NewOrderService(f.repo, f.pub, policy, logger.Discard())
	f.svc.now = func() time.Time { return testNow }
	f.inv = NewInventoryService(f.repo, logger.Discard())
	return f
}

func (f *fixture) dineIn(qty int) domain.CreateOrderRequest {
	table := f.table
	return domain.CreateOrderRequest{
		RestaurantID:  f.restaurant,
		CustomerID:    f.customer,
		OrderType:     domain.OrderTypeDineIn,
		PaymentMethod: domain.PaymentCard,
		TableID:       &table,
		Items:         []domain.CreateOrderItem{{DishID: f.burger, Quantity: qty}},
	}
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	d, ok := f.repo.Dish(id)
	if !ok {
		t.Fatalf("dish %s missing", id)
	}
	return d.StockQuantity
}

func (f *fixture) tableState(t *testing.T) domain.Table {
	t.Helper()
	tbl, ok := f.repo.Table(f.table)
	if !ok {
		t.Fatal("table missing")
	}
	return tbl
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateOrderPricesAndOccupies(t *testing.T) {
	f := newFixture(t, nil)
	req := f.dineIn(2)
	req.Items[0].Customizations = []domain.Customization{{Name: "Cheese", Option: "extra", Price: dec("1.50")}}

	o, err := f.svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	money := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"item_total", o.Items[0].ItemTotal, "27.48"},
		{"subtotal", o.Subtotal, "27.48"},
		{"tax", o.TaxAmount, "2.34"},
		{"service", o.ServiceCharge, "2.75"},
		{"delivery", o.DeliveryFee, "0"},
		{"total", o.TotalAmount, "32.57"},
	}
	for _, m := range money {
		if !m.got.Equal(dec(m.want)) {
			t.Errorf("%s = %s, want %s", m.name, m.got, m.want)
		}
	}
	if !o.Reconciles() {
		t.Error("total does not reconcile")
	}
	if o.OrderNumber != "ORD_20261017_001" {
		t.Errorf("OrderNumber = %s", o.OrderNumber)
	}
	if o.Status != domain.StatusPending || len(o.StatusHistory) != 1 || o.StatusHistory[0].Status != domain.StatusPending {
		t.Errorf("status %s history %+v", o.Status, o.StatusHistory)
	}
	if o.PaymentStatus != domain.PaymentPending {
		t.Errorf("PaymentStatus = %s", o.PaymentStatus)
	}
	if o.Items[0].Name != "Burger" || !o.Items[0].Price.Equal(dec("12.99")) {
		t.Errorf("line snapshot = %+v", o.Items[0])
	}

	if got := f.stock(t, f.burger); got != 8 {
		t.Errorf("burger stock = %d, want 8", got)
	}
	tbl := f.tableState(t)
	if tbl.Status != domain.TableOccupied || tbl.CurrentOrder == nil || *tbl.CurrentOrder != o.ID {
		t.Errorf("table = %+v", tbl)
	}

	stored, err := f.svc.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if stored.OrderNumber != o.OrderNumber || !stored.TotalAmount.Equal(o.TotalAmount) {
		t.Errorf("stored = %+v", stored)
	}
	if got := f.pub.types(); len(got) != 1 || got[0] != domain.EventOrderCreated {
		t.Errorf("events = %v", got)
	}
	if rk := f.pub.events[0].RoutingKey(); rk != "order.created.dine_in" {
		t.Errorf("routing key = %s", rk)
	}
}

func TestCreateDeliveryOrderAddsFee(t *testing.T) {
	f := newFixture(t, nil)
	o, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{
		RestaurantID:    f.restaurant,
		CustomerID:      f.customer,
		OrderType:       domain.OrderTypeDelivery,
		PaymentMethod:   domain.PaymentOnline,
		DeliveryAddress: " 1 Main St ",
		Items:           []domain.CreateOrderItem{{DishID: f.burger, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !o.DeliveryFee.Equal(dec("4.99")) || !o.Reconciles() {
		t.Fatalf("delivery fee %s total %s", o.DeliveryFee, o.TotalAmount)
	}
	if o.DeliveryAddress != "1 Main St" || o.TableID != nil {
		t.Fatalf("address %q table %v", o.DeliveryAddress, o.TableID)
	}
}

func TestCreateOrderNumbersAreSequential(t *testing.T) {
	f := newFixture(t, nil)
	for i, want := range []string{"ORD_20261017_001", "ORD_20261017_002", "ORD_20261017_003"} {
		req := f.dineIn(1)
		req.TableID = nil
		o, err := f.svc.CreateOrder(context.Background(), req)
		if err != nil {
			t.Fatalf("order %d: %v", i, err)
		}
		if o.OrderNumber != want {
			t.Fatalf("order %d number = %s, want %s", i, o.OrderNumber, want)
		}
	}
}

func TestCreateOrderRejects(t *testing.T) {
	f := newFixture(t, nil)
	unknown := uuid.New()
	farTable := f.farTbl

	tests := []struct {
		name   string
		mutate func(*domain.CreateOrderRequest)
		want   error
		detail string
	}{
		{"no items", func(r *domain.CreateOrderRequest) { r.Items = nil }, domain.ErrValidation, ""},
		{"zero quantity", func(r *domain.CreateOrderRequest) { r.Items[0].Quantity = 0 }, domain.ErrValidation, "quantity"},
		{"unknown order type", func(r *domain.CreateOrderRequest) { r.OrderType = "drive_thru" }, domain.ErrValidation, ""},
		{"unknown payment", func(r *domain.CreateOrderRequest) { r.PaymentMethod = "barter" }, domain.ErrValidation, ""},
		{"negative customization", func(r *domain.CreateOrderRequest) {
			r.Items[0].Customizations = []domain.Customization{{Name: "Coupon", Price: dec("-1")}}
		}, domain.ErrValidation, ""},
		{"delivery without address", func(r *domain.CreateOrderRequest) {
			r.OrderType = domain.OrderTypeDelivery
			r.TableID = nil
		}, domain.ErrValidation, "address"},
		{"unknown restaurant", func(r *domain.CreateOrderRequest) { r.RestaurantID = unknown }, domain.ErrInvalidReference, ""},
		{"unknown dish", func(r *domain.CreateOrderRequest) { r.Items[0].DishID = unknown }, domain.ErrInvalidReference, ""},
		{"dish of another restaurant", func(r *domain.CreateOrderRequest) { r.Items[0].DishID = f.foreign }, domain.ErrInvalidReference, ""},
		{"out of stock", func(r *domain.CreateOrderRequest) { r.Items[0].DishID = f.soup }, domain.ErrItemUnavailable, "Soup"},
		{"out of stock any quantity", func(r *domain.CreateOrderRequest) {
			r.Items[0].DishID = f.soup
			r.Items[0].Quantity = 1
		}, domain.ErrItemUnavailable, "Soup"},
		{"not available", func(r *domain.CreateOrderRequest) { r.Items[0].DishID = f.salad }, domain.ErrItemUnavailable, "Salad"},
		{"first violation wins", func(r *domain.CreateOrderRequest) {
			r.Items = []domain.CreateOrderItem{{DishID: f.salad, Quantity: 1}, {DishID: unknown, Quantity: 1}}
		}, domain.ErrItemUnavailable, "Salad"},
		{"unknown table", func(r *domain.CreateOrderRequest) { r.TableID = &unknown }, domain.ErrInvalidReference, ""},
		{"table of another restaurant", func(r *domain.CreateOrderRequest) { r.TableID = &farTable }, domain.ErrInvalidReference, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.dineIn(2)
			tt.mutate(&req)
			_, err := f.svc.CreateOrder(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.detail != "" && !strings.Contains(err.Error(), tt.detail) {
				t.Fatalf("err %q does not mention %q", err, tt.detail)
			}
		})
	}

	if got := f.stock(t, f.burger); got != 10 {
		t.Fatalf("burger stock = %d after rejected orders", got)
	}
	if tbl := f.tableState(t); tbl.Status != domain.TableAvailable {
		t.Fatalf("table = %s after rejected orders", tbl.Status)
	}
	if list, _ := f.svc.ListOrders(context.Background(), domain.OrderFilter{RestaurantID: f.restaurant}); len(list) != 0 {
		t.Fatalf("rejected orders persisted: %d", len(list))
	}
	if len(f.pub.types()) != 0 {
		t.Fatal("rejected orders published events")
	}
}

func TestCreateOrderOnOccupiedTableIsAtomic(t *testing.T) {
	f := newFixture(t, nil)
	first, err := f.svc.CreateOrder(context.Background(), f.dineIn(1))
	if err != nil {
		t.Fatalf("first order: %v", err)
	}

	_, err = f.svc.CreateOrder(context.Background(), f.dineIn(3))
	if !errors.Is(err, domain.ErrTableUnavailable) {
		t.Fatalf("err = %v, want ErrTableUnavailable", err)
	}
	if got := f.stock(t, f.burger); got != 9 {
		t.Fatalf("burger stock = %d, want 9", got)
	}
	tbl := f.tableState(t)
	if tbl.CurrentOrder == nil || *tbl.CurrentOrder != first.ID {
		t.Fatalf("table now points at %v", tbl.CurrentOrder)
	}
}

func TestCreateOrderOnReservedTable(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.inv.ReserveTable(context.Background(), f.table); err != nil {
		t.Fatalf("ReserveTable: %v", err)
	}
	o, err := f.svc.CreateOrder(context.Background(), f.dineIn(1))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if tbl := f.tableState(t); tbl.Status != domain.TableOccupied || *tbl.CurrentOrder != o.ID {
		t.Fatalf("table = %+v", tbl)
	}
}

func TestConcurrentCreatesDoNotOversell(t *testing.T) {
	f := newFixture(t, nil)
	const workers = 25

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		ok, refused int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := f.dineIn(1)
			req.OrderType = domain.OrderTypeTakeout
			req.TableID = nil
			_, err := f.svc.CreateOrder(context.Background(), req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrItemUnavailable):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 10 || refused != workers-10 {
		t.Fatalf("ok=%d refused=%d", ok, refused)
	}
	if got := f.stock(t, f.burger); got != 0 {
		t.Fatalf("burger stock = %d", got)
	}
}

func TestCancelOrderRestoresStockAndFreesTable(t *testing.T) {
	f := newFixture(t, nil)
	o, err := f.svc.CreateOrder(context.Background(), f.dineIn(3))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := f.svc.SetOrderStatus(context.Background(), o.ID, domain.StatusPreparing, f.staff, ""); err != nil {
		t.Fatalf("SetOrderStatus: %v", err)
	}

	const reason = "Customer changed their mind"
	c, err := f.svc.CancelOrder(context.Background(), o.ID, f.staff, reason)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if c.Status != domain.StatusCancelled || c.CancellationReason != reason {
		t.Fatalf("status %s reason %q", c.Status, c.CancellationReason)
	}
	last := c.StatusHistory[len(c.StatusHistory)-1]
	if len(c.StatusHistory) != 3 || last.Status != domain.StatusCancelled || last.Notes != reason || last.ActorID != f.staff {
		t.Fatalf("history = %+v", c.StatusHistory)
	}
	if c.CancelledBy == nil || *c.CancelledBy != f.staff || c.CancelledAt == nil {
		t.Fatalf("cancellation stamps = %v %v", c.CancelledBy, c.CancelledAt)
	}

	if got := f.stock(t, f.burger); got != 10 {
		t.Fatalf("burger stock = %d, want 10", got)
	}
	if tbl := f.tableState(t); tbl.Status != domain.TableAvailable || tbl.CurrentOrder != nil {
		t.Fatalf("table = %+v", tbl)
	}

	stored, _ := f.svc.GetOrder(context.Background(), o.ID)
	if stored.CancellationReason != reason || len(stored.StatusHistory) != 3 {
		t.Fatalf("stored = %+v", stored)
	}
	want := []domain.EventType{domain.EventOrderCreated, domain.EventOrderStatusChanged, domain.EventOrderCancelled}
	got := f.pub.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v", got)
		}
	}
}

func TestCancelRestoreIsClampedAfterWriteOff(t *testing.T) {
	f := newFixture(t, nil)
	o, err := f.svc.CreateOrder(context.Background(), f.dineIn(2))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := f.inv.AdjustDishStock(context.Background(), f.burger, -50, f.staff); err != nil {
		t.Fatalf("AdjustDishStock: %v", err)
	}
	if _, err := f.svc.CancelOrder(context.Background(), o.ID, f.staff, ""); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if got := f.stock(t, f.burger); got != 2 {
		t.Fatalf("burger stock = %d, want 2", got)
	}
}

func TestCancelTerminalOrderFails(t *testing.T) {
	for _, terminal := range []domain.OrderStatus{
		domain.StatusDelivered, domain.StatusCompleted, domain.StatusCancelled, domain.StatusRejected,
	} {
		t.Run(string(terminal), func(t *testing.T) {
			f := newFixture(t, nil)
			o, err := f.svc.CreateOrder(context.Background(), f.dineIn(2))
			if err != nil {
				t.Fatalf("CreateOrder: %v", err)
			}
			if _, err := f.svc.SetOrderStatus(context.Background(), o.ID, terminal, f.staff, ""); err != nil {
				t.Fatalf("SetOrderStatus: %v", err)
			}
			before, _ := f.svc.GetOrder(context.Background(), o.ID)
			stock := f.stock(t, f.burger)
			tbl := f.tableState(t)

			_, err = f.svc.CancelOrder(context.Background(), o.ID, f.staff, "too late")
			if !errors.Is(err, domain.ErrInvalidStateTransition) {
				t.Fatalf("err = %v, want ErrInvalidStateTransition", err)
			}

			after, _ := f.svc.GetOrder(context.Background(), o.ID)
			if after.Status != before.Status || len(after.StatusHistory) != len(before.StatusHistory) || after.CancellationReason != "" {
				t.Fatalf("order changed: %+v", after)
			}
			if got := f.stock(t, f.burger); got != stock {
				t.Fatalf("stock %d -> %d", stock, got)
			}
			if got := f.tableState(t); got.Status != tbl.Status {
				t.Fatalf("table %s -> %s", tbl.Status, got.Status)
			}
		})
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.svc.CancelOrder(context.Background(), uuid.New(), f.staff, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSetOrderStatusAppendsHistory(t *testing.T) {
	f := newFixture(t, nil)
	o, err := f.svc.CreateOrder(context.Background(), f.dineIn(1))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	steps := []domain.OrderStatus{domain.StatusConfirmed, domain.StatusPreparing, domain.StatusReady, domain.StatusCompleted}
	for i, s := range steps {
		got, err := f.svc.SetOrderStatus(context.Background(), o.ID, s, f.staff, "note")
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if len(got.StatusHistory) != i+2 {
			t.Fatalf("%s: history len %d", s, len(got.StatusHistory))
		}
	}

	stored, _ := f.svc.GetOrder(context.Background(), o.ID)
	want := append([]domain.OrderStatus{domain.StatusPending}, steps...)
	if len(stored.StatusHistory) != len(want) {
		t.Fatalf("history = %+v", stored.StatusHistory)
	}
	for i, s := range want {
		if stored.StatusHistory[i].Status != s {
			t.Fatalf("history[%d] = %s, want %s", i, stored.StatusHistory[i].Status, s)
		}
	}
	if stored.ActualDeliveryTime == nil || !stored.ActualDeliveryTime.Equal(testNow) {
		t.Fatalf("ActualDeliveryTime = %v", stored.ActualDeliveryTime)
	}

	last := f.pub.events[len(f.pub.events)-1]
	if last.Type != domain.EventOrderStatusChanged || last.OldStatus != domain.StatusReady || last.NewStatus != domain.StatusCompleted {
		t.Fatalf("last event = %+v", last)
	}
}

func TestSetOrderStatusPermissiveByDefault(t *testing.T) {
	f := newFixture(t, nil)
	o, _ := f.svc.CreateOrder(context.Background(), f.dineIn(1))
	if _, err := f.svc.SetOrderStatus(context.Background(), o.ID, domain.StatusCompleted, f.staff, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := f.svc.SetOrderStatus(context.Background(), o.ID, domain.StatusPending, f.staff, "reopened")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got.Status != domain.StatusPending || len(got.StatusHistory) != 3 {
		t.Fatalf("order = %s history %d", got.Status, len(got.StatusHistory))
	}
}

func TestSetOrderStatusStrictPolicy(t *testing.T) {
	f := newFixture(t, domain.StrictPolicy{})
	o, _ := f.svc.CreateOrder(context.Background(), f.dineIn(1))

	_, err := f.svc.SetOrderStatus(context.Background(), o.ID, domain.StatusReady, f.staff, "")
	if !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("skip ahead: err = %v", err)
	}
	_, err = f.svc.SetOrderStatus(context.Background(), o.ID, domain.StatusOutForDelivery, f.staff, "")
	if !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("dine-in out for delivery: err = %v", err)
	}
	stored, _ := f.svc.GetOrder(context.Background(), o.ID)
	if len(stored.StatusHistory) != 1 {
		t.Fatalf("rejected transitions were recorded: %+v", stored.StatusHistory)
	}

	if _, err := f.svc.SetOrderStatus(context.Background(), o.ID, domain.StatusConfirmed, f.staff, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.SetOrderStatus(context.Background(), o.ID, domain.StatusRejected, f.staff, "kitchen closed"); err != nil {
		t.Fatalf("reject: %v", err)
	}
}

func TestSetOrderStatusErrors(t *testing.T) {
	f := newFixture(t, nil)
	o, _ := f.svc.CreateOrder(context.Background(), f.dineIn(1))
	if _, err := f.svc.SetOrderStatus(context.Background(), o.ID, "shipped", f.staff, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown status: err = %v", err)
	}
	if _, err := f.svc.SetOrderStatus(context.Background(), uuid.New(), domain.StatusReady, f.staff, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown order: err = %v", err)
	}
}

func TestSetOrderStatusCancelledKeepsStock(t *testing.T) {
	f := newFixture(t, nil)
	o, _ := f.svc.CreateOrder(context.Background(), f.dineIn(2))
	got, err := f.svc.SetOrderStatus(context.Background(), o.ID, domain.StatusCancelled, f.staff, "")
	if err != nil {
		t.Fatalf("SetOrderStatus: %v", err)
	}
	if got.CancelledBy == nil || got.CancelledAt == nil {
		t.Fatal("cancellation not stamped")
	}
	if s := f.stock(t, f.burger); s != 8 {
		t.Fatalf("stock = %d; only CancelOrder restores stock", s)
	}
}

func TestAddReview(t *testing.T) {
	f := newFixture(t, nil)
	o, _ := f.svc.CreateOrder(context.Background(), f.dineIn(1))
	ctx := context.Background()

	if _, err := f.svc.AddReview(ctx, o.ID, f.customer, 5, "great"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("pending order: err = %v, want ErrInvalidState", err)
	}
	if _, err := f.svc.AddReview(ctx, o.ID, uuid.New(), 5, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("other customer: err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.AddReview(ctx, o.ID, f.customer, 6, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("rating 6: err = %v, want ErrValidation", err)
	}

	if _, err := f.svc.SetOrderStatus(ctx, o.ID, domain.StatusCompleted, f.staff, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.AddReview(ctx, o.ID, uuid.New(), 4, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("other customer on completed order: err = %v", err)
	}
	got, err := f.svc.AddReview(ctx, o.ID, f.customer, 4, "  tasty  ")
	if err != nil {
		t.Fatalf("AddReview: %v", err)
	}
	if got.Rating == nil || *got.Rating != 4 || got.Review != "tasty" || got.ReviewedAt == nil {
		t.Fatalf("review = %v %q %v", got.Rating, got.Review, got.ReviewedAt)
	}
	if _, err := f.svc.AddReview(ctx, o.ID, f.customer, 1, ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("second review: err = %v", err)
	}
	stored, _ := f.svc.GetOrder(ctx, o.ID)
	if stored.Rating == nil || *stored.Rating != 4 {
		t.Fatalf("stored rating = %v", stored.Rating)
	}
}

func TestPublishFailureKeepsCommittedOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.pub.err = errors.New("broker down")
	o, err := f.svc.CreateOrder(context.Background(), f.dineIn(1))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := f.svc.GetOrder(context.Background(), o.ID); err != nil {
		t.Fatalf("order not committed: %v", err)
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := newFixture(t, nil)
	o, _ := f.svc.CreateOrder(context.Background(), f.dineIn(1))
	got, err := f.svc.UpdatePaymentStatus(context.Background(), o.ID, domain.PaymentPaid, f.staff)
	if err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}
	if got.PaymentStatus != domain.PaymentPaid || len(got.StatusHistory) != 1 {
		t.Fatalf("order = %s history %d", got.PaymentStatus, len(got.StatusHistory))
	}
	if _, err := f.svc.UpdatePaymentStatus(context.Background(), o.ID, "bitcoin", f.staff); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestTimeline(t *testing.T) {
	f := newFixture(t, nil)
	o, _ := f.svc.CreateOrder(context.Background(), f.dineIn(1))
	for _, s := range []domain.OrderStatus{domain.StatusConfirmed, domain.StatusPreparing} {
		if _, err := f.svc.SetOrderStatus(context.Background(), o.ID, s, f.staff, ""); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		limit, offset int
		want          []domain.OrderStatus
	}{
		{0, 0, []domain.OrderStatus{domain.StatusPending, domain.StatusConfirmed, domain.StatusPreparing}},
		{2, 0, []domain.OrderStatus{domain.StatusPending, domain.StatusConfirmed}},
		{2, 2, []domain.OrderStatus{domain.StatusPreparing}},
		{5, 9, nil},
	}
	for _, tt := range tests {
		got, err := f.svc.Timeline(context.Background(), o.ID, tt.limit, tt.offset)
		if err != nil {
			t.Fatalf("Timeline: %v", err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("limit=%d offset=%d: %d entries", tt.limit, tt.offset, len(got))
		}
		for i := range tt.want {
			if got[i].Status != tt.want[i] {
				t.Fatalf("limit=%d offset=%d: entry %d = %s", tt.limit, tt.offset, i, got[i].Status)
			}
		}
	}
	if _, err := f.svc.Timeline(context.Background(), uuid.New(), 0, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestListOrdersAndDailySummary(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	takeout := func() domain.CreateOrderRequest {
		r := f.dineIn(1)
		r.OrderType = domain.OrderTypeTakeout
		r.TableID = nil
		return r
	}

	a, _ := f.svc.CreateOrder(ctx, takeout())
	b, _ := f.svc.CreateOrder(ctx, takeout())
	_, _ = f.svc.CreateOrder(ctx, takeout())
	if _, err := f.svc.SetOrderStatus(ctx, a.ID, domain.StatusCompleted, f.staff, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AddReview(ctx, a.ID, f.customer, 4, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CancelOrder(ctx, b.ID, f.staff, ""); err != nil {
		t.Fatal(err)
	}

	pending, err := f.svc.ListOrders(ctx, domain.OrderFilter{RestaurantID: f.restaurant, Status: domain.StatusPending})
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %d, err %v", len(pending), err)
	}
	if _, err := f.svc.ListOrders(ctx, domain.OrderFilter{Status: "lost"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad status filter: err = %v", err)
	}

	sum, err := f.svc.DailySummary(ctx, f.restaurant, testNow)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	if sum.Day != "2026-10-17" || sum.TotalOrders != 3 || sum.CancelledOrders != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if !sum.FulfilledRevenue.Equal(a.TotalAmount) {
		t.Fatalf("revenue = %s, want %s", sum.FulfilledRevenue, a.TotalAmount)
	}
	if sum.AverageRating == nil || *sum.AverageRating != 4 {
		t.Fatalf("average rating = %v", sum.AverageRating)
	}

	empty, err := f.svc.DailySummary(ctx, f.restaurant, testNow.AddDate(0, 0, -1))
	if err != nil || empty.TotalOrders != 0 {
		t.Fatalf("previous day = %+v, err %v", empty, err)
	}
}

func TestQuantityBoundsKeepStockExact(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, qty := range []int{math.MaxInt, domain.MaxItemQuantity + 1} {
		if _, err := f.svc.CreateOrder(ctx, f.dineIn(qty)); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("qty %d: err = %v, want validation error", qty, err)
		}
	}
	if got := f.stock(t, f.burger); got != 10 {
		t.Fatalf("stock = %d after rejected orders", got)
	}
	if tbl := f.tableState(t); tbl.Status != domain.TableAvailable {
		t.Fatalf("table = %+v after rejected orders", tbl)
	}

	o, err := f.svc.CreateOrder(ctx, f.dineIn(10))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := f.inv.AdjustDishStock(ctx, f.burger, 7, f.staff); err != nil {
		t.Fatalf("AdjustDishStock: %v", err)
	}
	if _, err := f.svc.CancelOrder(ctx, o.ID, f.staff, "changed plans"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if got := f.stock(t, f.burger); got != 17 {
		t.Fatalf("stock = %d, want 17", got)
	}
}
