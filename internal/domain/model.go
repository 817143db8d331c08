package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeout  OrderType = "takeout"
	OrderTypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeout, OrderTypeDelivery:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentOnline PaymentMethod = "online"
	PaymentWallet PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentOnline, PaymentWallet:
		return true
	}
	return false
}

// PaymentStatus is recorded only; nothing here talks to a gateway.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type RestaurantSettings struct {
	RestaurantID uuid.UUID
	// TaxRate and ServiceChargeRate are percentages, e.g. 8.5 for 8.5%.
	TaxRate           decimal.Decimal
	ServiceChargeRate decimal.Decimal
	DeliveryFee       decimal.Decimal
	Currency          string
}

type Customization struct {
	Name   string          `json:"name"`
	Option string          `json:"option"`
	Price  decimal.Decimal `json:"price"`
}

// LineItem captures the dish name and price at order time.
type LineItem struct {
	DishID              uuid.UUID       `json:"dish_id"`
	Name                string          `json:"name"`
	Price               decimal.Decimal `json:"price"`
	Quantity            int             `json:"quantity"`
	Customizations      []Customization `json:"customizations"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	ItemTotal           decimal.Decimal `json:"item_total"`
}

type StatusEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	ActorID   uuid.UUID   `json:"actor_id"`
	Notes     string      `json:"notes,omitempty"`
}

type Order struct {
	ID                  uuid.UUID       `json:"id"`
	OrderNumber         string          `json:"order_number"`
	RestaurantID        uuid.UUID       `json:"restaurant_id"`
	CustomerID          uuid.UUID       `json:"customer_id"`
	TableID             *uuid.UUID      `json:"table_id,omitempty"`
	OrderType           OrderType       `json:"order_type"`
	DeliveryAddress     string          `json:"delivery_address,omitempty"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	Items               []LineItem      `json:"items"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	ServiceCharge       decimal.Decimal `json:"service_charge"`
	DeliveryFee         decimal.Decimal `json:"delivery_fee"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	Status              OrderStatus     `json:"status"`
	StatusHistory       []StatusEntry   `json:"status_history"`
	PaymentMethod       PaymentMethod   `json:"payment_method"`
	PaymentStatus       PaymentStatus   `json:"payment_status"`
	CancellationReason  string          `json:"cancellation_reason,omitempty"`
	CancelledBy         *uuid.UUID      `json:"cancelled_by,omitempty"`
	CancelledAt         *time.Time      `json:"cancelled_at,omitempty"`
	ActualDeliveryTime  *time.Time      `json:"actual_delivery_time,omitempty"`
	Rating              *int            `json:"rating,omitempty"`
	Review              string          `json:"review,omitempty"`
	ReviewedAt          *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Reconciles reports whether the stored total matches its components.
func (o Order) Reconciles() bool {
	want := o.Subtotal.Add(o.TaxAmount).Add(o.ServiceCharge).Add(o.DeliveryFee).Sub(o.DiscountAmount)
	return o.TotalAmount.Equal(want)
}

// Clone returns a deep copy so stores can hand out orders without sharing
// slices with their internal state.
func (o Order) Clone() Order {
	c := o
	c.Items = make([]LineItem, len(o.Items))
	for i, it := range o.Items {
		it.Customizations = append([]Customization(nil), it.Customizations...)
		c.Items[i] = it
	}
	c.StatusHistory = append([]StatusEntry(nil), o.StatusHistory...)
	c.TableID = clonePtr(o.TableID)
	c.CancelledBy = clonePtr(o.CancelledBy)
	c.CancelledAt = clonePtr(o.CancelledAt)
	c.ActualDeliveryTime = clonePtr(o.ActualDeliveryTime)
	c.Rating = clonePtr(o.Rating)
	c.ReviewedAt = clonePtr(o.ReviewedAt)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type OrderFilter struct {
	RestaurantID uuid.UUID
	CustomerID   *uuid.UUID
	Status       OrderStatus
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Page returns the limit and offset a listing actually uses. A limit
// outside 1..MaxPageSize becomes DefaultPageSize and a negative offset 0.
func (f OrderFilter) Page() (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type DailySummary struct {
	RestaurantID     uuid.UUID           `json:"restaurant_id"`
	Day              string              `json:"day"`
	TotalOrders      int                 `json:"total_orders"`
	ByStatus         map[OrderStatus]int `json:"by_status"`
	FulfilledRevenue decimal.Decimal     `json:"fulfilled_revenue"`
	CancelledOrders  int                 `json:"cancelled_orders"`
	AverageRating    *float64            `json:"average_rating,omitempty"`
}
