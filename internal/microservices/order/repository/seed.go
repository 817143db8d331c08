package repository

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"restaurant-orders/internal/domain"
)

// Seed is a fixture file of restaurants with their menu and floor plan.
type Seed struct {
	Restaurants []SeedRestaurant `yaml:"restaurants"`
}

type SeedRestaurant struct {
	ID                uuid.UUID       `yaml:"id"`
	Name              string          `yaml:"name"`
	TaxRate           decimal.Decimal `yaml:"tax_rate"`
	ServiceChargeRate decimal.Decimal `yaml:"service_charge_rate"`
	DeliveryFee       decimal.Decimal `yaml:"delivery_fee"`
	Currency          string          `yaml:"currency"`
	Dishes            []SeedDish      `yaml:"dishes"`
	Tables            []SeedTable     `yaml:"tables"`
}

type SeedDish struct {
	ID                uuid.UUID       `yaml:"id"`
	Name              string          `yaml:"name"`
	Price             decimal.Decimal `yaml:"price"`
	Available         *bool           `yaml:"available"`
	Stock             int             `yaml:"stock"`
	LowStockThreshold int             `yaml:"low_stock_threshold"`
}

type SeedTable struct {
	ID       uuid.UUID          `yaml:"id"`
	Number   int                `yaml:"number"`
	Capacity int                `yaml:"capacity"`
	Status   domain.TableStatus `yaml:"status"`
}

func LoadSeed(path string) (Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed %s: %w", path, err)
	}
	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Seed{}, err
	}
	return s, nil
}

func (s Seed) Validate() error {
	for _, r := range s.Restaurants {
		if r.ID == uuid.Nil {
			return fmt.Errorf("seed: restaurant %q has no id", r.Name)
		}
		for _, d := range r.Dishes {
			if d.ID == uuid.Nil || d.Price.IsNegative() || d.Stock < 0 || d.Stock > domain.MaxStock {
				return fmt.Errorf("seed: invalid dish %q in restaurant %q", d.Name, r.Name)
			}
		}
		for _, t := range r.Tables {
			if t.ID == uuid.Nil {
				return fmt.Errorf("seed: table %d in restaurant %q has no id", t.Number, r.Name)
			}
			if t.Status == domain.TableOccupied {
				return fmt.Errorf("seed: table %d cannot start occupied without an order", t.Number)
			}
		}
	}
	return nil
}

func (r SeedRestaurant) settings() domain.RestaurantSettings {
	currency := r.Currency
	if currency == "" {
		currency = "USD"
	}
	return domain.RestaurantSettings{
		RestaurantID:      r.ID,
		TaxRate:           r.TaxRate,
		ServiceChargeRate: r.ServiceChargeRate,
		DeliveryFee:       r.DeliveryFee,
		Currency:          currency,
	}
}

func (d SeedDish) dish(restaurantID uuid.UUID) domain.Dish {
	available := true
	if d.Available != nil {
		available = *d.Available
	}
	dish := domain.Dish{
		ID:                d.ID,
		RestaurantID:      restaurantID,
		Name:              d.Name,
		Price:             d.Price,
		IsAvailable:       available,
		StockQuantity:     d.Stock,
		LowStockThreshold: d.LowStockThreshold,
	}
	dish.RefreshStockFlags()
	return dish
}

func (t SeedTable) table(restaurantID uuid.UUID) domain.Table {
	status := t.Status
	if status == "" {
		status = domain.TableAvailable
	}
	capacity := t.Capacity
	if capacity <= 0 {
		capacity = 2
	}
	return domain.Table{
		ID:           t.ID,
		RestaurantID: restaurantID,
		Number:       t.Number,
		Capacity:     capacity,
		Status:       status,
	}
}
