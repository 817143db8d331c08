package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/microservices/order/repository"
)

const publishTimeout = 5 * time.Second

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
	Timeline(ctx context.Context, id uuid.UUID, limit, offset int) ([]domain.StatusEntry, error)
	SetOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, actor uuid.UUID, notes string) (domain.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID, actor uuid.UUID, reason string) (domain.Order, error)
	AddReview(ctx context.Context, id uuid.UUID, customer uuid.UUID, rating int, text string) (domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, actor uuid.UUID) (domain.Order, error)
	DailySummary(ctx context.Context, restaurantID uuid.UUID, day time.Time) (domain.DailySummary, error)
}

type OrderService struct {
	repo   repository.OrderRepositoryInterface
	pub    EventPublisher
	policy domain.TransitionPolicy
	lg     *logger.Logger
	now    func() time.Time
}

func NewOrderService(repo repository.OrderRepositoryInterface, pub EventPublisher, policy domain.TransitionPolicy, lg *logger.Logger) *OrderService {
	if pub == nil {
		pub = NopPublisher{}
	}
	if policy == nil {
		policy = domain.PermissivePolicy{}
	}
	if lg == nil {
		lg = logger.Discard()
	}
	return &OrderService{repo: repo, pub: pub, policy: policy, lg: lg, now: time.Now}
}

func (s *OrderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	lg := s.lg.With(map[string]any{"restaurant_id": req.RestaurantID.String()})
	if err := validateCreate(req); err != nil {
		lg.Warn("order_rejected", map[string]any{"reason": err.Error()})
		return domain.Order{}, err
	}

	now := s.now().UTC()
	order := domain.Order{
		ID:                  uuid.New(),
		RestaurantID:        req.RestaurantID,
		CustomerID:          req.CustomerID,
		OrderType:           req.OrderType,
		SpecialInstructions: req.SpecialInstructions,
		Status:              domain.StatusPending,
		PaymentMethod:       req.PaymentMethod,
		PaymentStatus:       domain.PaymentPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if req.OrderType == domain.OrderTypeDelivery {
		order.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
	}

	err := s.repo.InTx(ctx, func(tx repository.TxRepository) error {
		settings, err := tx.RestaurantSettings(ctx, req.RestaurantID)
		if err != nil {
			return asReference(err, "restaurant %s", req.RestaurantID)
		}

		dishes, err := lockDishes(ctx, tx, req.Items)
		if err != nil {
			return err
		}
		lines := make([]domain.LineItem, 0, len(req.Items))
		for _, it := range req.Items {
			d, ok := dishes[it.DishID]
			if !ok || d.RestaurantID != req.RestaurantID {
				return fmt.Errorf("%w: dish %s does not belong to restaurant %s", domain.ErrInvalidReference, it.DishID, req.RestaurantID)
			}
			if !d.Orderable() {
				return fmt.Errorf("%w: %s", domain.ErrItemUnavailable, d.Name)
			}
			lines = append(lines, domain.PriceLine(*d, it.Quantity, it.Customizations, it.SpecialInstructions))
		}

		var table *domain.Table
		if req.OrderType == domain.OrderTypeDineIn && req.TableID != nil {
			t, err := tx.TableForUpdate(ctx, *req.TableID)
			if err != nil {
				return asReference(err, "table %s", *req.TableID)
			}
			if t.RestaurantID != req.RestaurantID {
				return fmt.Errorf("%w: table %s does not belong to restaurant %s", domain.ErrInvalidReference, t.ID, req.RestaurantID)
			}
			if err := t.Occupy(order.ID); err != nil {
				return err
			}
			table = &t
			order.TableID = &t.ID
		}

		order.Items = lines
		domain.PriceOrder(lines, settings, req.OrderType).Apply(&order)
		if order.OrderNumber, err = tx.NextOrderNumber(ctx, req.RestaurantID, now); err != nil {
			return err
		}
		order.StatusHistory = []domain.StatusEntry{{
			Status:    domain.StatusPending,
			Timestamp: now,
			ActorID:   req.CustomerID,
			Notes:     "Order placed",
		}}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		for _, l := range lines {
			dishes[l.DishID].AdjustStock(-l.Quantity)
		}
		for _, d := range sortedDishes(dishes) {
			if err := tx.SaveDish(ctx, *d); err != nil {
				return err
			}
		}
		if table != nil {
			return tx.SaveTable(ctx, *table)
		}
		return nil
	})
	if err != nil {
		lg.Error("order_create_failed", err, map[string]any{"kind": kindName(err)})
		return domain.Order{}, err
	}

	lg.Info("order_created", map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount.StringFixed(2),
	})
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderCreated, order, "", req.CustomerID, "", now))
	return order, nil
}

func validateCreate(req domain.CreateOrderRequest) error {
	switch {
	case req.RestaurantID == uuid.Nil:
		return fmt.Errorf("%w: restaurant id is required", domain.ErrValidation)
	case req.CustomerID == uuid.Nil:
		return fmt.Errorf("%w: customer id is required", domain.ErrValidation)
	case !req.OrderType.Valid():
		return fmt.Errorf("%w: unknown order type %q", domain.ErrValidation, req.OrderType)
	case !req.PaymentMethod.Valid():
		return fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, req.PaymentMethod)
	case len(req.Items) == 0:
		return fmt.Errorf("%w: at least one item is required", domain.ErrValidation)
	}
	for i, it := range req.Items {
		if it.DishID == uuid.Nil {
			return fmt.Errorf("%w: item %d: dish id is required", domain.ErrValidation, i+1)
		}
		if it.Quantity < 1 || it.Quantity > domain.MaxItemQuantity {
			return fmt.Errorf("%w: item %d: quantity must be between 1 and %d", domain.ErrValidation, i+1, domain.MaxItemQuantity)
		}
		for _, c := range it.Customizations {
			if c.Price.IsNegative() {
				return fmt.Errorf("%w: item %d: customization %q has a negative price", domain.ErrValidation, i+1, c.Name)
			}
		}
	}
	if req.OrderType == domain.OrderTypeDelivery && strings.TrimSpace(req.DeliveryAddress) == "" {
		return fmt.Errorf("%w: delivery address is required for delivery orders", domain.ErrValidation)
	}
	return nil
}

// lockDishes locks every referenced dish once, in ascending id order, so two
// transactions touching the same dishes cannot deadlock. Unknown dishes are
// left out of the map.
func lockDishes(ctx context.Context, tx repository.TxRepository, items []domain.CreateOrderItem) (map[uuid.UUID]*domain.Dish, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, it := range items {
		if !seen[it.DishID] {
			seen[it.DishID] = true
			ids = append(ids, it.DishID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	out := make(map[uuid.UUID]*domain.Dish, len(ids))
	for _, id := range ids {
		d, err := tx.DishForUpdate(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = &d
	}
	return out, nil
}

func sortedDishes(m map[uuid.UUID]*domain.Dish) []*domain.Dish {
	out := make([]*domain.Dish, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (s *OrderService) SetOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, actor uuid.UUID, notes string) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	now := s.now().UTC()
	var (
		order domain.Order
		old   domain.OrderStatus
	)
	err := s.repo.InTx(ctx, func(tx repository.TxRepository) error {
		o, err := tx.OrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !s.policy.Allowed(o.OrderType, o.Status, status) {
			return fmt.Errorf("%w: %s order cannot move from %s to %s", domain.ErrInvalidStateTransition, o.OrderType, o.Status, status)
		}
		old = o.Status
		entry := o.Transition(status, actor, notes, now)
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		if err := tx.AppendStatus(ctx, o.ID, entry); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		s.lg.Error("order_status_change_failed", err, map[string]any{"order_id": id.String(), "status": string(status), "kind": kindName(err)})
		return domain.Order{}, err
	}

	s.lg.Info("order_status_changed", map[string]any{
		"order_id":   order.ID.String(),
		"old_status": string(old),
		"new_status": string(status),
		"changed_by": actor.String(),
	})
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderStatusChanged, order, old, actor, notes, now))
	return order, nil
}

// CancelOrder voids a live order and undoes its creation side effects: the
// ordered quantities go back on stock and a dine-in table is freed.
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID, actor uuid.UUID, reason string) (domain.Order, error) {
	now := s.now().UTC()
	var (
		order domain.Order
		old   domain.OrderStatus
	)
	err := s.repo.InTx(ctx, func(tx repository.TxRepository) error {
		o, err := tx.OrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return fmt.Errorf("%w: order %s is already %s", domain.ErrInvalidStateTransition, o.OrderNumber, o.Status)
		}
		old = o.Status
		entry := o.Transition(domain.StatusCancelled, actor, reason, now)
		o.CancellationReason = reason

		items := make([]domain.CreateOrderItem, 0, len(o.Items))
		for _, l := range o.Items {
			items = append(items, domain.CreateOrderItem{DishID: l.DishID, Quantity: l.Quantity})
		}
		dishes, err := lockDishes(ctx, tx, items)
		if err != nil {
			return err
		}
		for _, l := range o.Items {
			d, ok := dishes[l.DishID]
			if !ok {
				s.lg.Warn("stock_restore_skipped", map[string]any{"order_id": o.ID.String(), "dish_id": l.DishID.String()})
				continue
			}
			d.AdjustStock(l.Quantity)
		}
		for _, d := range sortedDishes(dishes) {
			if err := tx.SaveDish(ctx, *d); err != nil {
				return err
			}
		}

		if o.OrderType == domain.OrderTypeDineIn && o.TableID != nil {
			t, err := tx.TableForUpdate(ctx, *o.TableID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				s.lg.Warn("table_free_skipped", map[string]any{"order_id": o.ID.String(), "table_id": o.TableID.String()})
			case err != nil:
				return err
			default:
				t.Free()
				if err := tx.SaveTable(ctx, t); err != nil {
					return err
				}
			}
		}

		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		if err := tx.AppendStatus(ctx, o.ID, entry); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		s.lg.Error("order_cancel_failed", err, map[string]any{"order_id": id.String(), "kind": kindName(err)})
		return domain.Order{}, err
	}

	s.lg.Info("order_cancelled", map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"old_status":   string(old),
		"reason":       reason,
	})
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderCancelled, order, old, actor, reason, now))
	return order, nil
}

// AddReview is open only to the order's own customer, once, after the order
// is completed.
func (s *OrderService) AddReview(ctx context.Context, id uuid.UUID, customer uuid.UUID, rating int, text string) (domain.Order, error) {
	if rating < 1 || rating > 5 {
		return domain.Order{}, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation)
	}
	now := s.now().UTC()
	var order domain.Order
	err := s.repo.InTx(ctx, func(tx repository.TxRepository) error {
		o, err := tx.OrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.CustomerID != customer {
			return fmt.Errorf("%w: only the ordering customer may review order %s", domain.ErrForbidden, o.OrderNumber)
		}
		if o.Status != domain.StatusCompleted {
			return fmt.Errorf("%w: order %s is %s, reviews need a completed order", domain.ErrInvalidState, o.OrderNumber, o.Status)
		}
		if o.Rating != nil {
			return fmt.Errorf("%w: order %s is already reviewed", domain.ErrInvalidState, o.OrderNumber)
		}
		o.Rating = &rating
		o.Review = strings.TrimSpace(text)
		o.ReviewedAt = &now
		o.UpdatedAt = now
		order = o
		return tx.UpdateOrder(ctx, o)
	})
	if err != nil {
		s.lg.Error("order_review_failed", err, map[string]any{"order_id": id.String(), "kind": kindName(err)})
		return domain.Order{}, err
	}

	s.lg.Info("order_reviewed", map[string]any{"order_id": order.ID.String(), "rating": rating})
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderReviewed, order, order.Status, customer, "", now))
	return order, nil
}

func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, actor uuid.UUID) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown payment status %q", domain.ErrValidation, status)
	}
	now := s.now().UTC()
	var order domain.Order
	err := s.repo.InTx(ctx, func(tx repository.TxRepository) error {
		o, err := tx.OrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		o.PaymentStatus = status
		o.UpdatedAt = now
		order = o
		return tx.UpdateOrder(ctx, o)
	})
	if err != nil {
		s.lg.Error("payment_update_failed", err, map[string]any{"order_id": id.String(), "kind": kindName(err)})
		return domain.Order{}, err
	}
	s.lg.Info("payment_status_updated", map[string]any{
		"order_id":       order.ID.String(),
		"payment_status": string(status),
		"changed_by":     actor.String(),
	})
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, f.Status)
	}
	return s.repo.ListOrders(ctx, f)
}

// Timeline pages through the status history, oldest entry first.
func (s *OrderService) Timeline(ctx context.Context, id uuid.UUID, limit, offset int) ([]domain.StatusEntry, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = len(o.StatusHistory)
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(o.StatusHistory) {
		return []domain.StatusEntry{}, nil
	}
	end := offset + limit
	if end > len(o.StatusHistory) {
		end = len(o.StatusHistory)
	}
	return o.StatusHistory[offset:end], nil
}

const summaryPage = 200

func (s *OrderService) DailySummary(ctx context.Context, restaurantID uuid.UUID, day time.Time) (domain.DailySummary, error) {
	y, m, d := day.UTC().Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	var all []domain.Order
	for offset := 0; ; offset += summaryPage {
		page, err := s.repo.ListOrders(ctx, domain.OrderFilter{
			RestaurantID: restaurantID,
			CreatedFrom:  &from,
			CreatedTo:    &to,
			Limit:        summaryPage,
			Offset:       offset,
		})
		if err != nil {
			return domain.DailySummary{}, err
		}
		all = append(all, page...)
		if len(page) < summaryPage {
			break
		}
	}
	return domain.Summarize(restaurantID, from.Format("2006-01-02"), all), nil
}

// publish runs after commit. A failed publish is logged and never undoes
// the committed change.
func (s *OrderService) publish(ctx context.Context, e domain.OrderEvent) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.pub.PublishOrderEvent(pctx, e); err != nil {
		s.lg.Error("order_event_publish_failed", err, map[string]any{
			"order_id":    e.OrderID.String(),
			"event_type":  string(e.Type),
			"routing_key": e.RoutingKey(),
		})
	}
}

func asReference(err error, format string, args ...any) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: unknown "+format, append([]any{domain.ErrInvalidReference}, args...)...)
	}
	return err
}

func kindName(err error) string {
	if k := domain.Kind(err); k != nil {
		return k.Error()
	}
	return "internal"
}
