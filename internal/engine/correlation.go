package engine

import (
	"math"
	"sort"

	"tabsight/internal/dataset"
)

// RankCorrelations computes pairwise Pearson coefficients over the given
// numeric columns and returns the pairs whose absolute coefficient exceeds
// threshold, strongest first. Rows missing either member of a pair are
// excluded from that pair only (pairwise-complete). Ties keep the order the
// pairs were generated in, which follows the column order of the input.
// Fewer than two columns yields an empty slice, never an error.
func RankCorrelations(columns []*dataset.Column, threshold float64) []CorrelationPair {
	pairs := []CorrelationPair{}
	if len(columns) < 2 {
		return pairs
	}

	for i := 0; i < len(columns); i++ {
		for j := i + 1; j < len(columns); j++ {
			r, ok := pearson(columns[i], columns[j])
			if !ok {
				continue
			}
			if math.Abs(r) > threshold {
				pairs = append(pairs, CorrelationPair{
					ColumnA:     columns[i].Name,
					ColumnB:     columns[j].Name,
					Coefficient: r,
					Important:   true,
				})
			}
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Coefficient) > math.Abs(pairs[b].Coefficient)
	})
	return pairs
}

// CorrelationMatrix computes the full pairwise-complete coefficient matrix
// for the given columns, diagonal included. Pairs with no overlapping rows
// or zero variance carry NaN.
func CorrelationMatrix(columns []*dataset.Column) [][]float64 {
	n := len(columns)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r, ok := pearson(columns[i], columns[j])
			if !ok {
				r = math.NaN()
			}
			matrix[i][j] = r
			matrix[j][i] = r
		}
	}
	return matrix
}

// pearson accumulates the running sums over rows where both cells are
// numeric and derives the coefficient from them. The second return is false
// when fewer than two overlapping rows exist or either side has zero
// variance over the overlap.
func pearson(a, b *dataset.Column) (float64, bool) {
	rows := len(a.Values)
	if len(b.Values) < rows {
		rows = len(b.Values)
	}

	var n float64
	var sumX, sumY, sumXX, sumYY, sumXY float64
	for i := 0; i < rows; i++ {
		x, okX := a.Values[i].AsFloat()
		y, okY := b.Values[i].AsFloat()
		if !okX || !okY {
			continue
		}
		n++
		sumX += x
		sumY += y
		sumXX += x * x
		sumYY += y * y
		sumXY += x * y
	}
	if n < 2 {
		return 0, false
	}

	varX := n*sumXX - sumX*sumX
	varY := n*sumYY - sumY*sumY
	if varX <= 0 || varY <= 0 {
		return 0, false
	}

	r := (n*sumXY - sumX*sumY) / math.Sqrt(varX*varY)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}
