package rfm

import (
	"slices"
	"sort"

	"github.com/shopspring/decimal"
)

// Quartiles is the number of score buckets per dimension.
const Quartiles = 4

var (
	ascendingLabels  = [Quartiles]int{1, 2, 3, 4}
	descendingLabels = [Quartiles]int{4, 3, 2, 1}
	quartileDivisor  = decimal.NewFromInt(Quartiles)
)

// quartileEdges returns the 0, .25, .5, .75 and 1 quantiles of sorted,
// interpolating linearly between the two closest ranks.
func quartileEdges(sorted []decimal.Decimal) [Quartiles + 1]decimal.Decimal {
	var edges [Quartiles + 1]decimal.Decimal
	n := len(sorted)
	for k := 0; k <= Quartiles; k++ {
		pos := (n - 1) * k
		lo, rem := pos/Quartiles, pos%Quartiles
		edges[k] = sorted[lo]
		if rem != 0 {
			frac := decimal.NewFromInt(int64(rem)).Div(quartileDivisor)
			edges[k] = sorted[lo].Add(sorted[lo+1].Sub(sorted[lo]).Mul(frac))
		}
	}
	return edges
}

func countDistinct(sorted []decimal.Decimal) int {
	if len(sorted) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(sorted); i++ {
		if !sorted[i].Equal(sorted[i-1]) {
			n++
		}
	}
	return n
}

// quartileScores cuts values into four quantile bins and maps bin i to
// labels[i]. Bins are right-closed, the first one also holding its lower
// edge. The cut is rejected when there are fewer than four distinct values
// or when ties collapse two edges into one.
func quartileScores(dim Dimension, values []decimal.Decimal, labels [Quartiles]int) ([]int, error) {
	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b decimal.Decimal) int { return a.Cmp(b) })

	distinct := countDistinct(sorted)
	if distinct < Quartiles {
		return nil, &DataQualityError{Dimension: dim, Distinct: distinct, Reason: "fewer than 4 distinct values"}
	}

	edges := quartileEdges(sorted)
	for k := 1; k <= Quartiles; k++ {
		if edges[k].Equal(edges[k-1]) {
			return nil, &DataQualityError{Dimension: dim, Distinct: distinct, Reason: "quartile edges are not unique"}
		}
	}

	scores := make([]int, len(values))
	for i, v := range values {
		bin := Quartiles - 1
		for k := 1; k < Quartiles; k++ {
			if v.LessThanOrEqual(edges[k]) {
				bin = k - 1
				break
			}
		}
		scores[i] = labels[bin]
	}
	return scores, nil
}

// rankFirst assigns ranks 1..n by ascending value. Equal values keep their
// input order, so every rank is distinct.
func rankFirst(values []int) []decimal.Decimal {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]decimal.Decimal, len(values))
	for r, i := range idx {
		ranks[i] = decimal.NewFromInt(int64(r + 1))
	}
	return ranks
}
