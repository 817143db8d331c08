package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Summarize aggregates one day's orders. Revenue counts fulfilled orders
// only; voided orders are counted but never contribute money.
func Summarize(restaurantID uuid.UUID, day string, orders []Order) DailySummary {
	s := DailySummary{
		RestaurantID:     restaurantID,
		Day:              day,
		ByStatus:         make(map[OrderStatus]int),
		FulfilledRevenue: decimal.Zero,
	}
	var ratingSum, rated int
	for _, o := range orders {
		s.TotalOrders++
		s.ByStatus[o.Status]++
		if o.Status.IsFulfilled() {
			s.FulfilledRevenue = s.FulfilledRevenue.Add(o.TotalAmount)
		}
		if o.Status == StatusCancelled {
			s.CancelledOrders++
		}
		if o.Rating != nil {
			ratingSum += *o.Rating
			rated++
		}
	}
	if rated > 0 {
		avg := float64(ratingSum) / float64(rated)
		s.AverageRating = &avg
	}
	return s
}
