package rfm

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerRFM is one row of the segmentation table.
type CustomerRFM struct {
	CustomerID string `json:"customer_id"`
	// Recency is whole days between the newest order in the dataset and the
	// customer's newest order.
	Recency   int             `json:"recency"`
	Frequency int             `json:"frequency"`
	Monetary  decimal.Decimal `json:"monetary"`
	RScore    int             `json:"r_score"`
	FScore    int             `json:"f_score"`
	MScore    int             `json:"m_score"`
	RFMScore  string          `json:"rfm_score"`
}

type HeatmapCell struct {
	Customers int             `json:"customers"`
	Mean      decimal.Decimal `json:"mean"`
	Defined   bool            `json:"defined"`
}

// Heatmap holds mean Monetary per (R_Score, F_Score) pair. Cells[r-1][f-1]
// is the cell for R_Score r and F_Score f; pairs with no customers stay
// undefined.
type Heatmap struct {
	Cells [Quartiles][Quartiles]HeatmapCell `json:"cells"`
}

// At returns the mean Monetary for the given scores and whether any
// customer fell into that cell.
func (h *Heatmap) At(r, f int) (decimal.Decimal, bool) {
	if r < 1 || r > Quartiles || f < 1 || f > Quartiles {
		return decimal.Zero, false
	}
	c := h.Cells[r-1][f-1]
	return c.Mean, c.Defined
}

// Matrix returns the heatmap as rows R_Score 1..4 and columns F_Score 1..4
// with nil for blank cells.
func (h *Heatmap) Matrix() [Quartiles][Quartiles]*decimal.Decimal {
	var m [Quartiles][Quartiles]*decimal.Decimal
	for r := range h.Cells {
		for f := range h.Cells[r] {
			if h.Cells[r][f].Defined {
				mean := h.Cells[r][f].Mean
				m[r][f] = &mean
			}
		}
	}
	return m
}

// Result is the output of one computation. Callers sharing a Result through
// a Memo must treat it as read-only.
type Result struct {
	ReferenceTime time.Time     `json:"reference_time"`
	Customers     []CustomerRFM `json:"customers"`
	Heatmap       Heatmap       `json:"heatmap"`
}

// Customer looks up a row by customer id.
func (r *Result) Customer(id string) (CustomerRFM, bool) {
	for _, c := range r.Customers {
		if c.CustomerID == id {
			return c, true
		}
	}
	return CustomerRFM{}, false
}

// Segment returns the customers carrying the given composite code.
func (r *Result) Segment(code string) []CustomerRFM {
	var out []CustomerRFM
	for _, c := range r.Customers {
		if c.RFMScore == code {
			out = append(out, c)
		}
	}
	return out
}
