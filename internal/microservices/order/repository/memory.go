package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"restaurant-orders/internal/domain"
)

type memState struct {
	settings map[uuid.UUID]domain.RestaurantSettings
	dishes   map[uuid.UUID]domain.Dish
	tables   map[uuid.UUID]domain.Table
	orders   map[uuid.UUID]domain.Order
	counters map[string]int
}

func newMemState() *memState {
	return &memState{
		settings: make(map[uuid.UUID]domain.RestaurantSettings),
		dishes:   make(map[uuid.UUID]domain.Dish),
		tables:   make(map[uuid.UUID]domain.Table),
		orders:   make(map[uuid.UUID]domain.Order),
		counters: make(map[string]int),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.settings {
		c.settings[k] = v
	}
	for k, v := range s.dishes {
		c.dishes[k] = v
	}
	for k, v := range s.tables {
		if v.CurrentOrder != nil {
			id := *v.CurrentOrder
			v.CurrentOrder = &id
		}
		c.tables[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v.Clone()
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	return c
}

// MemoryRepository keeps everything in process. Transactions are
// serialized by one mutex and run against a copy of the state that replaces
// the live state only when fn succeeds. The copy includes every order, so
// each transaction costs time linear in the number of stored orders; use it
// for development and tests, not for production volumes.
type MemoryRepository struct {
	mu    sync.RWMutex
	state *memState
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{state: newMemState()}
}

func (m *MemoryRepository) InTx(ctx context.Context, fn func(tx TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(&memTx{s: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryRepository) GetOrder(_ context.Context, id uuid.UUID) (domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.state.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return o.Clone(), nil
}

func (m *MemoryRepository) ListOrders(_ context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Order
	for _, o := range m.state.orders {
		if f.RestaurantID != uuid.Nil && o.RestaurantID != f.RestaurantID {
			continue
		}
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.CreatedFrom != nil && o.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && !o.CreatedAt.Before(*f.CreatedTo) {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderNumber > out[j].OrderNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	limit, offset := f.Page()
	if offset >= len(out) {
		return []domain.Order{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (m *MemoryRepository) Seed(_ context.Context, s Seed) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range s.Restaurants {
		m.state.settings[r.ID] = r.settings()
		for _, d := range r.Dishes {
			m.state.dishes[d.ID] = d.dish(r.ID)
		}
		for _, t := range r.Tables {
			m.state.tables[t.ID] = t.table(r.ID)
		}
	}
	return nil
}

// Dish and Table read committed state; used by tests and diagnostics.
func (m *MemoryRepository) Dish(id uuid.UUID) (domain.Dish, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.state.dishes[id]
	return d, ok
}

func (m *MemoryRepository) Table(id uuid.UUID) (domain.Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.state.tables[id]
	if ok && t.CurrentOrder != nil {
		id := *t.CurrentOrder
		t.CurrentOrder = &id
	}
	return t, ok
}

type memTx struct{ s *memState }

func (t *memTx) RestaurantSettings(_ context.Context, restaurantID uuid.UUID) (domain.RestaurantSettings, error) {
	s, ok := t.s.settings[restaurantID]
	if !ok {
		return domain.RestaurantSettings{}, fmt.Errorf("restaurant %s: %w", restaurantID, domain.ErrNotFound)
	}
	return s, nil
}

func (t *memTx) DishForUpdate(_ context.Context, id uuid.UUID) (domain.Dish, error) {
	d, ok := t.s.dishes[id]
	if !ok {
		return domain.Dish{}, fmt.Errorf("dish %s: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

func (t *memTx) TableForUpdate(_ context.Context, id uuid.UUID) (domain.Table, error) {
	tbl, ok := t.s.tables[id]
	if !ok {
		return domain.Table{}, fmt.Errorf("table %s: %w", id, domain.ErrNotFound)
	}
	return tbl, nil
}

func (t *memTx) OrderForUpdate(_ context.Context, id uuid.UUID) (domain.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return o.Clone(), nil
}

func (t *memTx) NextOrderNumber(_ context.Context, restaurantID uuid.UUID, at time.Time) (string, error) {
	key := restaurantID.String() + "/" + utcDay(at).Format("2006-01-02")
	t.s.counters[key]++
	return FormatOrderNumber(at, t.s.counters[key]), nil
}

func (t *memTx) InsertOrder(_ context.Context, o domain.Order) error {
	if _, exists := t.s.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	for _, existing := range t.s.orders {
		if existing.RestaurantID == o.RestaurantID && existing.OrderNumber == o.OrderNumber {
			return fmt.Errorf("order number %s already used", o.OrderNumber)
		}
	}
	t.s.orders[o.ID] = o.Clone()
	return nil
}

func (t *memTx) UpdateOrder(_ context.Context, o domain.Order) error {
	existing, ok := t.s.orders[o.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", o.ID, domain.ErrNotFound)
	}
	updated := o.Clone()
	updated.StatusHistory = existing.StatusHistory
	t.s.orders[o.ID] = updated
	return nil
}

func (t *memTx) AppendStatus(_ context.Context, orderID uuid.UUID, e domain.StatusEntry) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	o.StatusHistory = append(o.StatusHistory, e)
	t.s.orders[orderID] = o
	return nil
}

func (t *memTx) SaveDish(_ context.Context, d domain.Dish) error {
	if _, ok := t.s.dishes[d.ID]; !ok {
		return fmt.Errorf("dish %s: %w", d.ID, domain.ErrNotFound)
	}
	t.s.dishes[d.ID] = d
	return nil
}

func (t *memTx) SaveTable(_ context.Context, tbl domain.Table) error {
	if _, ok := t.s.tables[tbl.ID]; !ok {
		return fmt.Errorf("table %s: %w", tbl.ID, domain.ErrNotFound)
	}
	if tbl.CurrentOrder != nil {
		id := *tbl.CurrentOrder
		tbl.CurrentOrder = &id
	}
	t.s.tables[tbl.ID] = tbl
	return nil
}
