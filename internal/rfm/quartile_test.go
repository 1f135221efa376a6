package rfm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimals(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func TestQuartileScores_RecencyIsInverted(t *testing.T) {
	scores, err := quartileScores(DimRecency, decimals(1, 10, 20, 30), descendingLabels)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2, 1}, scores)

	scores, err = quartileScores(DimRecency, decimals(30, 1, 20, 10), descendingLabels)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 2, 3}, scores)
}

func TestQuartileScores_Ascending(t *testing.T) {
	scores, err := quartileScores(DimMonetary, decimals(5, 1, 8, 3, 2, 7, 4, 6), ascendingLabels)
	require.NoError(t, err)
	// edges 1, 2.75, 4.5, 6.25, 8
	assert.Equal(t, []int{3, 1, 4, 2, 1, 4, 2, 3}, scores)
}

func TestQuartileScores_BoundaryValuesFallInLowerBin(t *testing.T) {
	// edges 0, 1, 2, 3, 4: every value except the minimum sits on an edge
	scores, err := quartileScores(DimMonetary, decimals(0, 1, 2, 3, 4), ascendingLabels)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 3, 4}, scores)
}

func TestQuartileScores_Errors(t *testing.T) {
	tests := []struct {
		name     string
		values   []decimal.Decimal
		distinct int
		reason   string
	}{
		{"empty", nil, 0, "fewer than 4 distinct values"},
		{"three distinct", decimals(1, 2, 3, 3, 2, 1), 3, "fewer than 4 distinct values"},
		{"heavy ties", decimals(1, 1, 1, 1, 1, 1, 1, 2, 3, 4), 4, "quartile edges are not unique"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quartileScores(DimMonetary, tt.values, ascendingLabels)
			require.ErrorIs(t, err, ErrDataQuality)

			var dq *DataQualityError
			require.ErrorAs(t, err, &dq)
			assert.Equal(t, tt.distinct, dq.Distinct)
			assert.Equal(t, tt.reason, dq.Reason)
			assert.Equal(t, DimMonetary, dq.Dimension)
		})
	}
}

func TestQuartileEdges_Interpolates(t *testing.T) {
	edges := quartileEdges(decimals(10, 20, 30, 40))
	want := []string{"10", "17.5", "25", "32.5", "40"}
	for i, w := range want {
		assert.Truef(t, decimal.RequireFromString(w).Equal(edges[i]), "edge %d: want %s, got %s", i, w, edges[i])
	}
}

func TestRankFirst_BreaksTiesByPosition(t *testing.T) {
	ranks := rankFirst([]int{3, 1, 1, 2, 1})
	got := make([]int64, len(ranks))
	for i, r := range ranks {
		got[i] = r.IntPart()
	}
	assert.Equal(t, []int64{5, 1, 2, 4, 3}, got)
}
