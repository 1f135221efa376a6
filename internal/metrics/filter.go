package metrics

import (
	"fmt"
	"time"

	"ecommerce-dashboard/internal/dataset"
)

const DateLayout = "2006-01-02"

// DateRange selects orders by purchase day. Both ends are calendar days and
// both are inclusive.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NewDateRange parses two YYYY-MM-DD dates.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return DateRange{Start: s, End: e}, nil
}

// DefaultRange spans the first to the last purchase day, which is the
// unfiltered view.
func DefaultRange(orders []dataset.Order) DateRange {
	if len(orders) == 0 {
		return DateRange{}
	}
	lo, hi := orders[0].PurchaseTimestamp, orders[0].PurchaseTimestamp
	for _, o := range orders[1:] {
		if o.PurchaseTimestamp.Before(lo) {
			lo = o.PurchaseTimestamp
		}
		if o.PurchaseTimestamp.After(hi) {
			hi = o.PurchaseTimestamp
		}
	}
	return DateRange{Start: truncateDay(lo), End: truncateDay(hi)}
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End.AddDate(0, 0, 1))
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

func FilterOrders(orders []dataset.Order, r DateRange) []dataset.Order {
	out := make([]dataset.Order, 0, len(orders))
	for _, o := range orders {
		if r.Contains(o.PurchaseTimestamp) {
			out = append(out, o)
		}
	}
	return out
}

// ItemsForOrders keeps the items whose order is in orders.
func ItemsForOrders(items []dataset.OrderItem, orders []dataset.Order) []dataset.OrderItem {
	ids := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		ids[o.OrderID] = struct{}{}
	}
	out := make([]dataset.OrderItem, 0, len(items))
	for _, it := range items {
		if _, ok := ids[it.OrderID]; ok {
			out = append(out, it)
		}
	}
	return out
}
