package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/microservices/order/repository"
)

// InventoryServiceInterface exposes the stock and table primitives to staff
// outside of order creation and cancellation.
type InventoryServiceInterface interface {
	AdjustDishStock(ctx context.Context, dishID uuid.UUID, delta int, actor uuid.UUID) (domain.Dish, error)
	ReserveTable(ctx context.Context, tableID uuid.UUID) (domain.Table, error)
	FreeTable(ctx context.Context, tableID uuid.UUID) (domain.Table, error)
}

type InventoryService struct {
	repo repository.OrderRepositoryInterface
	lg   *logger.Logger
}

func NewInventoryService(repo repository.OrderRepositoryInterface, lg *logger.Logger) *InventoryService {
	if lg == nil {
		lg = logger.Discard()
	}
	return &InventoryService{repo: repo, lg: lg}
}

func (s *InventoryService) AdjustDishStock(ctx context.Context, dishID uuid.UUID, delta int, actor uuid.UUID) (domain.Dish, error) {
	if delta == 0 {
		return domain.Dish{}, fmt.Errorf("%w: stock delta must not be zero", domain.ErrValidation)
	}
	if delta > domain.MaxStock || delta < -domain.MaxStock {
		return domain.Dish{}, fmt.Errorf("%w: stock delta must be within -%d and %d", domain.ErrValidation, domain.MaxStock, domain.MaxStock)
	}
	var (
		dish   domain.Dish
		before int
	)
	err := s.repo.InTx(ctx, func(tx repository.TxRepository) error {
		d, err := tx.DishForUpdate(ctx, dishID)
		if err != nil {
			return asReference(err, "dish %s", dishID)
		}
		before = d.StockQuantity
		d.AdjustStock(delta)
		dish = d
		return tx.SaveDish(ctx, d)
	})
	if err != nil {
		s.lg.Error("stock_adjust_failed", err, map[string]any{"dish_id": dishID.String(), "kind": kindName(err)})
		return domain.Dish{}, err
	}

	fields := map[string]any{
		"dish_id":    dish.ID.String(),
		"delta":      delta,
		"old_stock":  before,
		"new_stock":  dish.StockQuantity,
		"changed_by": actor.String(),
	}
	s.lg.Info("stock_adjusted", fields)
	if dish.IsLowStock {
		s.lg.Warn("stock_low", fields)
	}
	return dish, nil
}

func (s *InventoryService) ReserveTable(ctx context.Context, tableID uuid.UUID) (domain.Table, error) {
	return s.updateTable(ctx, tableID, "table_reserved", func(t *domain.Table) error { return t.Reserve() })
}

// FreeTable releases the table whatever its status; an order still attached
// to it keeps its table reference.
func (s *InventoryService) FreeTable(ctx context.Context, tableID uuid.UUID) (domain.Table, error) {
	return s.updateTable(ctx, tableID, "table_freed", func(t *domain.Table) error { t.Free(); return nil })
}

func (s *InventoryService) updateTable(ctx context.Context, tableID uuid.UUID, action string, apply func(*domain.Table) error) (domain.Table, error) {
	var table domain.Table
	err := s.repo.InTx(ctx, func(tx repository.TxRepository) error {
		t, err := tx.TableForUpdate(ctx, tableID)
		if err != nil {
			return asReference(err, "table %s", tableID)
		}
		if err := apply(&t); err != nil {
			return err
		}
		table = t
		return tx.SaveTable(ctx, t)
	})
	if err != nil {
		s.lg.Error(action+"_failed", err, map[string]any{"table_id": tableID.String(), "kind": kindName(err)})
		return domain.Table{}, err
	}
	s.lg.Info(action, map[string]any{"table_id": table.ID.String(), "status": string(table.Status)})
	return table, nil
}
