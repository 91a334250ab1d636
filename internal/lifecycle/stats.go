package lifecycle

import (
	"math"
	"time"

	"drone-fleet/internal/order"
)

// Summarize buckets orders for the dashboard. Revenue counts completed
// payments on orders created between local midnight of now's day and the
// next midnight.
func Summarize(orders []*order.Order, now time.Time) order.Stats {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	var s order.Stats
	for _, o := range orders {
		s.Total++
		switch o.Status {
		case order.StatusPending, order.StatusConfirmed:
			s.Pending++
		case order.StatusAssigned, order.StatusInTransit:
			s.InTransit++
		case order.StatusDelivered:
			s.Delivered++
		case order.StatusCancelled, order.StatusFailed:
			s.Cancelled++
		}

		if o.PaymentStatus == order.PaymentCompleted && !o.CreatedAt.Before(start) && o.CreatedAt.Before(end) {
			s.TodayRevenue += o.Price
		}
	}
	s.TodayRevenue = math.Round(s.TodayRevenue*100) / 100
	return s
}
