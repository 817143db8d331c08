package service

import (
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/microservices/order/repository"
)

type Service struct {
	OrderService     OrderServiceInterface
	InventoryService InventoryServiceInterface
}

func New(repo *repository.Repository, pub EventPublisher, policy domain.TransitionPolicy, lg *logger.Logger) *Service {
	return &Service{
		OrderService:     NewOrderService(repo.OrderRepo, pub, policy, lg),
		InventoryService: NewInventoryService(repo.OrderRepo, lg),
	}
}
