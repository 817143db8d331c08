package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateOrderItem struct {
	DishID              uuid.UUID       `json:"dish_id"`
	Quantity            int             `json:"quantity"`
	Customizations      []Customization `json:"customizations"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
}

type CreateOrderRequest struct {
	RestaurantID        uuid.UUID         `json:"-"`
	CustomerID          uuid.UUID         `json:"-"`
	OrderType           OrderType         `json:"order_type"`
	Items               []CreateOrderItem `json:"items"`
	PaymentMethod       PaymentMethod     `json:"payment_method"`
	TableID             *uuid.UUID        `json:"table_id,omitempty"`
	DeliveryAddress     string            `json:"delivery_address,omitempty"`
	SpecialInstructions string            `json:"special_instructions,omitempty"`
}

type UpdateStatusRequest struct {
	Status OrderStatus `json:"status"`
	Notes  string      `json:"notes,omitempty"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ReviewRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review,omitempty"`
}

type PaymentUpdateRequest struct {
	PaymentStatus PaymentStatus `json:"payment_status"`
}

type StockAdjustRequest struct {
	Delta int `json:"delta"`
}

type CreateOrderResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
