package engine

import (
	"tabsight/internal/dataset"
)

// IsMeaningfulNumeric reports whether a numeric column carries enough
// variety to justify a chart. It is advisory: a false verdict removes the
// column from recommendations, it never signals an error.
//
// A column is rejected when it has fewer than two distinct values, when its
// sample standard deviation is exactly zero, or when it increases
// monotonically with at most one distinct step size, which marks a row
// index or another identifier-like sequence.
func IsMeaningfulNumeric(col *dataset.Column) bool {
	values := col.Floats()

	distinct := make(map[float64]struct{}, len(values))
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	if len(distinct) < 2 {
		return false
	}

	if sampleStd(values) == 0 {
		return false
	}

	if isUniformRamp(values) {
		return false
	}

	return true
}

// isUniformRamp detects monotonically increasing sequences with at most one
// distinct step size.
func isUniformRamp(values []float64) bool {
	if len(values) < 2 {
		return false
	}
	steps := make(map[float64]struct{})
	for i := 1; i < len(values); i++ {
		step := values[i] - values[i-1]
		if step < 0 {
			return false
		}
		steps[step] = struct{}{}
		if len(steps) > 1 {
			return false
		}
	}
	return true
}

// IsMeaningfulCategorical reports whether a categorical column is worth a
// category chart: between 2 and maxCategories distinct values, and no
// single value covering 95% or more of the non-missing rows.
func IsMeaningfulCategorical(col *dataset.Column, maxCategories int) bool {
	counts, _ := col.ValueCounts()
	distinct := len(counts)
	if distinct < 2 || distinct > maxCategories {
		return false
	}

	nonMissing := col.NonMissingCount()
	top := 0
	for _, n := range counts {
		if n > top {
			top = n
		}
	}
	return float64(top) < dominanceCutoff*float64(nonMissing)
}
