package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-orders/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) InTx(ctx context.Context, fn func(tx TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const orderColumns = `
	id, order_number, restaurant_id, customer_id, table_id, order_type,
	COALESCE(delivery_address, ''), COALESCE(special_instructions, ''),
	subtotal, tax_amount, service_charge, delivery_fee, discount_amount, total_amount,
	status, payment_method, payment_status,
	COALESCE(cancellation_reason, ''), cancelled_by, cancelled_at, actual_delivery_time,
	rating, COALESCE(review, ''), reviewed_at, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o      domain.Order
		rating *int16
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.RestaurantID, &o.CustomerID, &o.TableID, &o.OrderType,
		&o.DeliveryAddress, &o.SpecialInstructions,
		&o.Subtotal, &o.TaxAmount, &o.ServiceCharge, &o.DeliveryFee, &o.DiscountAmount, &o.TotalAmount,
		&o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.CancellationReason, &o.CancelledBy, &o.CancelledAt, &o.ActualDeliveryTime,
		&rating, &o.Review, &o.ReviewedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	if rating != nil {
		v := int(*rating)
		o.Rating = &v
	}
	return o, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return loadOrder(ctx, r.pool, id, false)
}

func loadOrder(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (domain.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	orders := []domain.Order{o}
	if err := attachDetails(ctx, q, orders); err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.RestaurantID != uuid.Nil {
		add("restaurant_id = $%d", f.RestaurantID)
	}
	if f.CustomerID != nil {
		add("customer_id = $%d", *f.CustomerID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.CreatedFrom != nil {
		add("created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		add("created_at < $%d", *f.CreatedTo)
	}

	sql := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	limit, offset := f.Page()
	args = append(args, limit, offset)
	sql += fmt.Sprintf(` ORDER BY created_at DESC, order_number DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachDetails(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachDetails loads line items and status history for a batch of orders.
func attachDetails(ctx context.Context, q querier, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		index[o.ID] = i
		orders[i].Items = []domain.LineItem{}
		orders[i].StatusHistory = []domain.StatusEntry{}
	}

	rows, err := q.Query(ctx, `
		SELECT order_id, dish_id, name, price, quantity, customizations,
		       COALESCE(special_instructions, ''), item_total
		FROM order_items WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	for rows.Next() {
		var (
			orderID uuid.UUID
			it      domain.LineItem
			custom  []byte
		)
		if err := rows.Scan(&orderID, &it.DishID, &it.Name, &it.Price, &it.Quantity, &custom, &it.SpecialInstructions, &it.ItemTotal); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if err := json.Unmarshal(custom, &it.Customizations); err != nil {
			rows.Close()
			return fmt.Errorf("failed to decode customizations: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.Query(ctx, `
		SELECT order_id, status, changed_at, changed_by, notes
		FROM order_status_log WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, id`, ids)
	if err != nil {
		return fmt.Errorf("failed to load status log: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID uuid.UUID
			e       domain.StatusEntry
		)
		if err := rows.Scan(&orderID, &e.Status, &e.Timestamp, &e.ActorID, &e.Notes); err != nil {
			return fmt.Errorf("failed to scan status log: %w", err)
		}
		i := index[orderID]
		orders[i].StatusHistory = append(orders[i].StatusHistory, e)
	}
	return rows.Err()
}

func (r *OrderRepository) Seed(ctx context.Context, s Seed) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return r.InTx(ctx, func(tx TxRepository) error {
		ptx := tx.(*pgTx).tx
		for _, rest := range s.Restaurants {
			st := rest.settings()
			if _, err := ptx.Exec(ctx, `
				INSERT INTO restaurants (id, name, tax_rate, service_charge_rate, delivery_fee, currency)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET
				  name = EXCLUDED.name, tax_rate = EXCLUDED.tax_rate,
				  service_charge_rate = EXCLUDED.service_charge_rate,
				  delivery_fee = EXCLUDED.delivery_fee, currency = EXCLUDED.currency`,
				rest.ID, rest.Name, st.TaxRate, st.ServiceChargeRate, st.DeliveryFee, st.Currency); err != nil {
				return fmt.Errorf("failed to seed restaurant %s: %w", rest.Name, err)
			}
			for _, sd := range rest.Dishes {
				d := sd.dish(rest.ID)
				if _, err := ptx.Exec(ctx, `
					INSERT INTO dishes (id, restaurant_id, name, price, is_available, stock_quantity,
					                    low_stock_threshold, is_low_stock, is_out_of_stock)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
					ON CONFLICT (id) DO UPDATE SET
					  name = EXCLUDED.name, price = EXCLUDED.price, is_available = EXCLUDED.is_available,
					  stock_quantity = EXCLUDED.stock_quantity, low_stock_threshold = EXCLUDED.low_stock_threshold,
					  is_low_stock = EXCLUDED.is_low_stock, is_out_of_stock = EXCLUDED.is_out_of_stock,
					  updated_at = now()`,
					d.ID, d.RestaurantID, d.Name, d.Price, d.IsAvailable, d.StockQuantity,
					d.LowStockThreshold, d.IsLowStock, d.IsOutOfStock); err != nil {
					return fmt.Errorf("failed to seed dish %s: %w", d.Name, err)
				}
			}
			for _, stbl := range rest.Tables {
				t := stbl.table(rest.ID)
				if _, err := ptx.Exec(ctx, `
					INSERT INTO restaurant_tables (id, restaurant_id, table_number, capacity, status)
					VALUES ($1, $2, $3, $4, $5)
					ON CONFLICT (id) DO UPDATE SET
					  table_number = EXCLUDED.table_number, capacity = EXCLUDED.capacity, updated_at = now()`,
					t.ID, t.RestaurantID, t.Number, t.Capacity, string(t.Status)); err != nil {
					return fmt.Errorf("failed to seed table %d: %w", t.Number, err)
				}
			}
		}
		return nil
	})
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) RestaurantSettings(ctx context.Context, restaurantID uuid.UUID) (domain.RestaurantSettings, error) {
	s := domain.RestaurantSettings{RestaurantID: restaurantID}
	err := t.tx.QueryRow(ctx, `
		SELECT tax_rate, service_charge_rate, delivery_fee, currency
		FROM restaurants WHERE id = $1`, restaurantID,
	).Scan(&s.TaxRate, &s.ServiceChargeRate, &s.DeliveryFee, &s.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RestaurantSettings{}, fmt.Errorf("restaurant %s: %w", restaurantID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.RestaurantSettings{}, fmt.Errorf("failed to load restaurant settings: %w", err)
	}
	return s, nil
}

func (t *pgTx) DishForUpdate(ctx context.Context, id uuid.UUID) (domain.Dish, error) {
	var d domain.Dish
	err := t.tx.QueryRow(ctx, `
		SELECT id, restaurant_id, name, price, is_available, stock_quantity,
		       low_stock_threshold, is_low_stock, is_out_of_stock
		FROM dishes WHERE id = $1 FOR UPDATE`, id,
	).Scan(&d.ID, &d.RestaurantID, &d.Name, &d.Price, &d.IsAvailable, &d.StockQuantity,
		&d.LowStockThreshold, &d.IsLowStock, &d.IsOutOfStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Dish{}, fmt.Errorf("dish %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Dish{}, fmt.Errorf("failed to lock dish %s: %w", id, err)
	}
	return d, nil
}

func (t *pgTx) TableForUpdate(ctx context.Context, id uuid.UUID) (domain.Table, error) {
	var tbl domain.Table
	err := t.tx.QueryRow(ctx, `
		SELECT id, restaurant_id, table_number, capacity, status, current_order_id
		FROM restaurant_tables WHERE id = $1 FOR UPDATE`, id,
	).Scan(&tbl.ID, &tbl.RestaurantID, &tbl.Number, &tbl.Capacity, &tbl.Status, &tbl.CurrentOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Table{}, fmt.Errorf("table %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to lock table %s: %w", id, err)
	}
	return tbl, nil
}

func (t *pgTx) OrderForUpdate(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return loadOrder(ctx, t.tx, id, true)
}

func (t *pgTx) NextOrderNumber(ctx context.Context, restaurantID uuid.UUID, at time.Time) (string, error) {
	var seq int
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_counters (restaurant_id, day, seq) VALUES ($1, $2, 1)
		ON CONFLICT (restaurant_id, day) DO UPDATE SET seq = order_counters.seq + 1
		RETURNING seq`, restaurantID, utcDay(at),
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}
	return FormatOrderNumber(at, seq), nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o domain.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, restaurant_id, customer_id, table_id, order_type,
			delivery_address, special_instructions,
			subtotal, tax_amount, service_charge, delivery_fee, discount_amount, total_amount,
			status, payment_method, payment_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''),
		          $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		o.ID, o.OrderNumber, o.RestaurantID, o.CustomerID, o.TableID, string(o.OrderType),
		o.DeliveryAddress, o.SpecialInstructions,
		o.Subtotal, o.TaxAmount, o.ServiceCharge, o.DeliveryFee, o.DiscountAmount, o.TotalAmount,
		string(o.Status), string(o.PaymentMethod), string(o.PaymentStatus), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, it := range o.Items {
		custom, err := json.Marshal(nonNil(it.Customizations))
		if err != nil {
			return fmt.Errorf("failed to encode customizations: %w", err)
		}
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items (order_id, position, dish_id, name, price, quantity,
			                         customizations, special_instructions, item_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)`,
			o.ID, i, it.DishID, it.Name, it.Price, it.Quantity, custom, it.SpecialInstructions, it.ItemTotal,
		); err != nil {
			return fmt.Errorf("failed to insert order item %s: %w", it.Name, err)
		}
	}

	for _, e := range o.StatusHistory {
		if err := t.AppendStatus(ctx, o.ID, e); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, o domain.Order) error {
	var rating *int16
	if o.Rating != nil {
		v := int16(*o.Rating)
		rating = &v
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET
			status = $2, payment_status = $3,
			cancellation_reason = NULLIF($4, ''), cancelled_by = $5, cancelled_at = $6,
			actual_delivery_time = $7, rating = $8, review = NULLIF($9, ''), reviewed_at = $10,
			updated_at = $11
		WHERE id = $1`,
		o.ID, string(o.Status), string(o.PaymentStatus),
		o.CancellationReason, o.CancelledBy, o.CancelledAt,
		o.ActualDeliveryTime, rating, o.Review, o.ReviewedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", o.ID, domain.ErrNotFound)
	}
	return nil
}

func (t *pgTx) AppendStatus(ctx context.Context, orderID uuid.UUID, e domain.StatusEntry) error {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at, notes)
		VALUES ($1, $2, $3, $4, $5)`,
		orderID, string(e.Status), e.ActorID, e.Timestamp, e.Notes,
	); err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}
	return nil
}

func (t *pgTx) SaveDish(ctx context.Context, d domain.Dish) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE dishes SET stock_quantity = $2, is_low_stock = $3, is_out_of_stock = $4,
		                  is_available = $5, updated_at = now()
		WHERE id = $1`,
		d.ID, d.StockQuantity, d.IsLowStock, d.IsOutOfStock, d.IsAvailable,
	)
	if err != nil {
		return fmt.Errorf("failed to save dish %s: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dish %s: %w", d.ID, domain.ErrNotFound)
	}
	return nil
}

func (t *pgTx) SaveTable(ctx context.Context, tbl domain.Table) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE restaurant_tables SET status = $2, current_order_id = $3, updated_at = now()
		WHERE id = $1`,
		tbl.ID, string(tbl.Status), tbl.CurrentOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to save table %s: %w", tbl.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("table %s: %w", tbl.ID, domain.ErrNotFound)
	}
	return nil
}

func nonNil(c []domain.Customization) []domain.Customization {
	if c == nil {
		return []domain.Customization{}
	}
	return c
}
