package metrics

import (
	"sort"

	"ecommerce-dashboard/internal/dataset"

	"github.com/shopspring/decimal"
)

type Summary struct {
	TotalOrders       int             `json:"total_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

// Overview counts distinct orders and sums item prices. The average order
// value is taken over orders that have at least one item.
func Overview(orders []dataset.Order, items []dataset.OrderItem) Summary {
	distinct := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		distinct[o.OrderID] = struct{}{}
	}

	revenue := decimal.Zero
	perOrder := make(map[string]struct{})
	for _, it := range items {
		revenue = revenue.Add(it.Price)
		perOrder[it.OrderID] = struct{}{}
	}

	s := Summary{TotalOrders: len(distinct), TotalRevenue: revenue, AverageOrderValue: decimal.Zero}
	if len(perOrder) > 0 {
		s.AverageOrderValue = revenue.Div(decimal.NewFromInt(int64(len(perOrder)))).Round(2)
	}
	return s
}

type DayCount struct {
	Date   string `json:"date"`
	Orders int    `json:"orders"`
}

// DailyOrders counts distinct orders per purchase day. Days without orders
// between the first and the last one are reported as zero.
func DailyOrders(orders []dataset.Order) []DayCount {
	if len(orders) == 0 {
		return nil
	}
	perDay := make(map[string]map[string]struct{})
	first, last := truncateDay(orders[0].PurchaseTimestamp), truncateDay(orders[0].PurchaseTimestamp)
	for _, o := range orders {
		d := truncateDay(o.PurchaseTimestamp)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
		key := d.Format(DateLayout)
		if perDay[key] == nil {
			perDay[key] = make(map[string]struct{})
		}
		perDay[key][o.OrderID] = struct{}{}
	}

	var out []DayCount
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		out = append(out, DayCount{Date: key, Orders: len(perDay[key])})
	}
	return out
}

type MonthCount struct {
	Month  string `json:"month"`
	Orders int    `json:"orders"`
}

// MonthlyOrders counts order rows per YYYY-MM, oldest first.
func MonthlyOrders(orders []dataset.Order) []MonthCount {
	counts := make(map[string]int)
	for _, o := range orders {
		counts[o.PurchaseTimestamp.Format("2006-01")]++
	}
	out := make([]MonthCount, 0, len(counts))
	for m, n := range counts {
		out = append(out, MonthCount{Month: m, Orders: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

type CategoryRevenue struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// TopCategories ranks product categories by item revenue. Items whose
// product is unknown or uncategorised are left out.
func TopCategories(items []dataset.OrderItem, products []dataset.Product, n int) []CategoryRevenue {
	category := make(map[string]string, len(products))
	for _, p := range products {
		if p.Category != "" {
			category[p.ProductID] = p.Category
		}
	}
	revenue := make(map[string]decimal.Decimal)
	for _, it := range items {
		c, ok := category[it.ProductID]
		if !ok {
			continue
		}
		revenue[c] = revenue[c].Add(it.Price)
	}

	out := make([]CategoryRevenue, 0, len(revenue))
	for c, r := range revenue {
		out = append(out, CategoryRevenue{Category: c, Revenue: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Revenue.Cmp(out[j].Revenue); cmp != 0 {
			return cmp > 0
		}
		return out[i].Category < out[j].Category
	})
	return limit(out, n)
}

type StateCount struct {
	State     string `json:"state"`
	Customers int    `json:"customers"`
}

func CustomerStates(customers []dataset.Customer, n int) []StateCount {
	counts := make(map[string]int)
	for _, c := range customers {
		if c.State != "" {
			counts[c.State]++
		}
	}
	out := make([]StateCount, 0, len(counts))
	for s, c := range counts {
		out = append(out, StateCount{State: s, Customers: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Customers != out[j].Customers {
			return out[i].Customers > out[j].Customers
		}
		return out[i].State < out[j].State
	})
	return limit(out, n)
}

type ScoreCount struct {
	Score   int `json:"score"`
	Reviews int `json:"reviews"`
}

// ReviewScores returns the count for each score 1 to 5.
func ReviewScores(reviews []dataset.Review) []ScoreCount {
	var counts [5]int
	for _, r := range reviews {
		if r.Score >= 1 && r.Score <= 5 {
			counts[r.Score-1]++
		}
	}
	out := make([]ScoreCount, 5)
	for i, c := range counts {
		out[i] = ScoreCount{Score: i + 1, Reviews: c}
	}
	return out
}

type PricePoint struct {
	Price   decimal.Decimal `json:"price"`
	Freight decimal.Decimal `json:"freight"`
}

func PriceFreight(items []dataset.OrderItem) []PricePoint {
	out := make([]PricePoint, len(items))
	for i, it := range items {
		out[i] = PricePoint{Price: it.Price, Freight: it.FreightValue}
	}
	return out
}

func limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
