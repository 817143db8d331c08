package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-orders/internal/domain"
)

// OrderRepositoryInterface is the persistence boundary of the order engine.
// Multi-record changes go through InTx, which commits only when fn returns
// nil. Lookups that miss return an error wrapping domain.ErrNotFound.
type OrderRepositoryInterface interface {
	InTx(ctx context.Context, fn func(tx TxRepository) error) error
	GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
	Seed(ctx context.Context, s Seed) error
}

// TxRepository operates inside one transaction. The ForUpdate lookups lock
// the row until the transaction ends.
type TxRepository interface {
	RestaurantSettings(ctx context.Context, restaurantID uuid.UUID) (domain.RestaurantSettings, error)
	DishForUpdate(ctx context.Context, id uuid.UUID) (domain.Dish, error)
	TableForUpdate(ctx context.Context, id uuid.UUID) (domain.Table, error)
	OrderForUpdate(ctx context.Context, id uuid.UUID) (domain.Order, error)
	NextOrderNumber(ctx context.Context, restaurantID uuid.UUID, at time.Time) (string, error)
	InsertOrder(ctx context.Context, o domain.Order) error
	// UpdateOrder persists every field except StatusHistory, which only
	// grows through AppendStatus.
	UpdateOrder(ctx context.Context, o domain.Order) error
	AppendStatus(ctx context.Context, orderID uuid.UUID, e domain.StatusEntry) error
	SaveDish(ctx context.Context, d domain.Dish) error
	SaveTable(ctx context.Context, t domain.Table) error
}

type Repository struct {
	OrderRepo OrderRepositoryInterface
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{
		OrderRepo: NewOrderRepository(pool),
	}
}

func NewInMemory() *Repository {
	return &Repository{
		OrderRepo: NewMemoryRepository(),
	}
}

// FormatOrderNumber renders ORD_YYYYMMDD_NNN using the UTC date of at.
func FormatOrderNumber(at time.Time, seq int) string {
	return fmt.Sprintf("ORD_%s_%03d", at.UTC().Format("20060102"), seq)
}

func utcDay(at time.Time) time.Time {
	y, m, d := at.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
