package handlers

import "restaurant-orders/internal/microservices/order/service"

type Handler struct {
	OrderHandler     *OrderHandler
	InventoryHandler *InventoryHandler
}

func New(s *service.Service) *Handler {
	return &Handler{
		OrderHandler:     NewOrderHandler(s.OrderService),
		InventoryHandler: NewInventoryHandler(s.InventoryService),
	}
}
