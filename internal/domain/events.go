package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventOrderCreated       EventType = "created"
	EventOrderStatusChanged EventType = "status_changed"
	EventOrderCancelled     EventType = "cancelled"
	EventOrderReviewed      EventType = "reviewed"
)

// OrderEvent is published after the change it describes has been committed.
type OrderEvent struct {
	Type         EventType       `json:"event_type"`
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	RestaurantID uuid.UUID       `json:"restaurant_id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	OrderType    OrderType       `json:"order_type"`
	OldStatus    OrderStatus     `json:"old_status,omitempty"`
	NewStatus    OrderStatus     `json:"new_status"`
	ChangedBy    uuid.UUID       `json:"changed_by"`
	Notes        string          `json:"notes,omitempty"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Timestamp    time.Time       `json:"timestamp"`
}

func NewOrderEvent(t EventType, o Order, oldStatus OrderStatus, actor uuid.UUID, notes string, at time.Time) OrderEvent {
	return OrderEvent{
		Type:         t,
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		RestaurantID: o.RestaurantID,
		CustomerID:   o.CustomerID,
		OrderType:    o.OrderType,
		OldStatus:    oldStatus,
		NewStatus:    o.Status,
		ChangedBy:    actor,
		Notes:        notes,
		TotalAmount:  o.TotalAmount,
		Timestamp:    at,
	}
}

// RoutingKey is the topic key on the orders exchange, e.g. order.created.dine_in.
func (e OrderEvent) RoutingKey() string {
	return "order." + string(e.Type) + "." + string(e.OrderType)
}

// Notification is the fanout payload read by the notification subscriber.
type Notification struct {
	Event        EventType   `json:"event_type"`
	OrderID      uuid.UUID   `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	RestaurantID uuid.UUID   `json:"restaurant_id"`
	CustomerID   uuid.UUID   `json:"customer_id"`
	OldStatus    OrderStatus `json:"old_status,omitempty"`
	NewStatus    OrderStatus `json:"new_status"`
	ChangedBy    uuid.UUID   `json:"changed_by"`
	Message      string      `json:"message"`
	Timestamp    time.Time   `json:"timestamp"`
}

func (e OrderEvent) Notification() Notification {
	var msg string
	switch e.Type {
	case EventOrderCreated:
		msg = fmt.Sprintf("Order %s placed", e.OrderNumber)
	case EventOrderCancelled:
		msg = fmt.Sprintf("Order %s cancelled", e.OrderNumber)
	case EventOrderReviewed:
		msg = fmt.Sprintf("Order %s reviewed", e.OrderNumber)
	default:
		msg = fmt.Sprintf("Order %s changed from %s to %s", e.OrderNumber, e.OldStatus, e.NewStatus)
	}
	return Notification{
		Event:        e.Type,
		OrderID:      e.OrderID,
		OrderNumber:  e.OrderNumber,
		RestaurantID: e.RestaurantID,
		CustomerID:   e.CustomerID,
		OldStatus:    e.OldStatus,
		NewStatus:    e.NewStatus,
		ChangedBy:    e.ChangedBy,
		Message:      msg,
		Timestamp:    e.Timestamp,
	}
}
