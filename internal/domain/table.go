package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type TableStatus string

const (
	TableAvailable    TableStatus = "available"
	TableOccupied     TableStatus = "occupied"
	TableReserved     TableStatus = "reserved"
	TableMaintenance  TableStatus = "maintenance"
	TableOutOfService TableStatus = "out_of_service"
)

// Table invariant: CurrentOrder is non-nil exactly when Status is occupied.
type Table struct {
	ID           uuid.UUID   `json:"id"`
	RestaurantID uuid.UUID   `json:"restaurant_id"`
	Number       int         `json:"table_number"`
	Capacity     int         `json:"capacity"`
	Status       TableStatus `json:"status"`
	CurrentOrder *uuid.UUID  `json:"current_order,omitempty"`
}

// Occupy attaches orderID. Only available or reserved tables can be
// occupied; on failure the table is left untouched.
func (t *Table) Occupy(orderID uuid.UUID) error {
	if t.Status != TableAvailable && t.Status != TableReserved {
		return fmt.Errorf("%w: table %d is %s", ErrTableUnavailable, t.Number, t.Status)
	}
	id := orderID
	t.Status = TableOccupied
	t.CurrentOrder = &id
	return nil
}

// Free resets the table regardless of its current status.
func (t *Table) Free() {
	t.Status = TableAvailable
	t.CurrentOrder = nil
}

func (t *Table) Reserve() error {
	if t.Status != TableAvailable {
		return fmt.Errorf("%w: table %d is %s", ErrTableUnavailable, t.Number, t.Status)
	}
	t.Status = TableReserved
	return nil
}
