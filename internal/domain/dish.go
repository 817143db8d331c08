package domain

import (
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Dish struct {
	ID                uuid.UUID       `json:"id"`
	RestaurantID      uuid.UUID       `json:"restaurant_id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	IsAvailable       bool            `json:"is_available"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	IsLowStock        bool            `json:"is_low_stock"`
	IsOutOfStock      bool            `json:"is_out_of_stock"`
}

const (
	// MaxStock is the largest stock a dish can hold; the stock column is a
	// 32-bit integer.
	MaxStock = math.MaxInt32
	// MaxItemQuantity bounds the quantity of a single order line.
	MaxItemQuantity = 10000
)

// AdjustStock is the only mutator of StockQuantity. The quantity saturates
// at zero and MaxStock, so a decrement followed by the inverse increment
// does not restore the original value if the decrement was clamped.
func (d *Dish) AdjustStock(delta int) {
	q := d.StockQuantity
	if q < 0 {
		q = 0
	} else if q > MaxStock {
		q = MaxStock
	}
	switch {
	case delta > 0 && delta > MaxStock-q:
		q = MaxStock
	case delta < 0 && delta < -q:
		q = 0
	default:
		q += delta
	}
	d.StockQuantity = q
	d.RefreshStockFlags()
}

func (d *Dish) RefreshStockFlags() {
	d.IsLowStock = d.StockQuantity <= d.LowStockThreshold
	d.IsOutOfStock = d.StockQuantity == 0
}

// Orderable reports whether new orders may include the dish.
func (d Dish) Orderable() bool { return d.IsAvailable && !d.IsOutOfStock }
