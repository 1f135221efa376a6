package rfm

import (
	"sort"
	"strconv"
	"time"

	"ecommerce-dashboard/internal/dataset"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

type customerAcc struct {
	last     time.Time
	orders   map[string]struct{}
	monetary decimal.Decimal
}

// Compute derives the RFM table and the (R_Score, F_Score) heatmap from the
// full order and order item snapshot. It is deterministic and has no side
// effects; any error aborts the whole computation.
func Compute(orders []dataset.Order, items []dataset.OrderItem) (*Result, error) {
	if err := validate(orders, items); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, &DataQualityError{Dimension: DimRecency, Distinct: 0, Reason: "no orders"}
	}

	reference := orders[0].PurchaseTimestamp
	byCustomer := make(map[string]*customerAcc)
	owners := make(map[string][]*customerAcc)
	for _, o := range orders {
		if o.PurchaseTimestamp.After(reference) {
			reference = o.PurchaseTimestamp
		}
		acc, ok := byCustomer[o.CustomerID]
		if !ok {
			acc = &customerAcc{last: o.PurchaseTimestamp, orders: make(map[string]struct{})}
			byCustomer[o.CustomerID] = acc
		}
		if o.PurchaseTimestamp.After(acc.last) {
			acc.last = o.PurchaseTimestamp
		}
		if _, seen := acc.orders[o.OrderID]; !seen {
			acc.orders[o.OrderID] = struct{}{}
			owners[o.OrderID] = append(owners[o.OrderID], acc)
		}
	}

	// Items of unknown orders drop out, as in an inner join.
	for _, it := range items {
		for _, acc := range owners[it.OrderID] {
			acc.monetary = acc.monetary.Add(it.Price)
		}
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]CustomerRFM, len(ids))
	recency := make([]decimal.Decimal, len(ids))
	frequency := make([]int, len(ids))
	monetary := make([]decimal.Decimal, len(ids))
	for i, id := range ids {
		acc := byCustomer[id]
		rows[i] = CustomerRFM{
			CustomerID: id,
			Recency:    int(reference.Sub(acc.last) / day),
			Frequency:  len(acc.orders),
			Monetary:   acc.monetary,
		}
		recency[i] = decimal.NewFromInt(int64(rows[i].Recency))
		frequency[i] = rows[i].Frequency
		monetary[i] = acc.monetary
	}

	rScores, err := quartileScores(DimRecency, recency, descendingLabels)
	if err != nil {
		return nil, err
	}
	// Frequency is mostly 1; ranking first makes every value distinct so
	// the cut stays defined.
	fScores, err := quartileScores(DimFrequency, rankFirst(frequency), ascendingLabels)
	if err != nil {
		return nil, err
	}
	mScores, err := quartileScores(DimMonetary, monetary, ascendingLabels)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].RScore = rScores[i]
		rows[i].FScore = fScores[i]
		rows[i].MScore = mScores[i]
		rows[i].RFMScore = strconv.Itoa(rScores[i]) + strconv.Itoa(fScores[i]) + strconv.Itoa(mScores[i])
	}

	return &Result{
		ReferenceTime: reference,
		Customers:     rows,
		Heatmap:       buildHeatmap(rows),
	}, nil
}

func validate(orders []dataset.Order, items []dataset.OrderItem) error {
	for i, o := range orders {
		switch {
		case o.OrderID == "":
			return &MissingFieldError{Record: "order", Index: i, Field: "order_id"}
		case o.CustomerID == "":
			return &MissingFieldError{Record: "order", Index: i, Field: "customer_id"}
		case o.PurchaseTimestamp.IsZero():
			return &MissingFieldError{Record: "order", Index: i, Field: "purchase_timestamp"}
		}
	}
	for i, it := range items {
		if it.OrderID == "" {
			return &MissingFieldError{Record: "order_item", Index: i, Field: "order_id"}
		}
	}
	return nil
}

func buildHeatmap(rows []CustomerRFM) Heatmap {
	var sums [Quartiles][Quartiles]decimal.Decimal
	var h Heatmap
	for _, row := range rows {
		r, f := row.RScore-1, row.FScore-1
		sums[r][f] = sums[r][f].Add(row.Monetary)
		h.Cells[r][f].Customers++
	}
	for r := range h.Cells {
		for f := range h.Cells[r] {
			cell := &h.Cells[r][f]
			if cell.Customers == 0 {
				continue
			}
			cell.Defined = true
			cell.Mean = sums[r][f].Div(decimal.NewFromInt(int64(cell.Customers)))
		}
	}
	return h
}
