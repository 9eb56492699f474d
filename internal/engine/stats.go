package engine

import (
	"math"
	"sort"

	"tabsight/internal/dataset"
)

// Summary holds the descriptive statistics for one numeric column. Count is
// the number of non-missing values that entered the computation.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mode   float64 `json:"mode"`
}

// Summarize computes descriptive statistics over the column's non-missing
// numeric values. The second return is false when the column holds no
// numeric values; an empty summary is the designed answer for "nothing to
// describe", not an error.
func Summarize(col *dataset.Column) (Summary, bool) {
	values := col.Floats()
	if len(values) == 0 {
		return Summary{}, false
	}

	minV, maxV := values[0], values[0]
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	return Summary{
		Count:  len(values),
		Mean:   sum / float64(len(values)),
		Median: median(values),
		Std:    sampleStd(values),
		Min:    minV,
		Max:    maxV,
		Mode:   mode(values),
	}, true
}

// DetectOutliers returns the values lying outside the Tukey fences
// [Q1 - 1.5·IQR, Q3 + 1.5·IQR], in row order. An empty slice means no value
// qualified, including the all-missing case.
func DetectOutliers(col *dataset.Column) []float64 {
	values := col.Floats()
	if len(values) == 0 {
		return []float64{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	outliers := []float64{}
	for _, v := range values {
		if v < lower || v > upper {
			outliers = append(outliers, v)
		}
	}
	return outliers
}

// quantile returns the q-th quantile of an ascending-sorted slice using
// linear interpolation between the two nearest ranks at position q·(n-1).
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= n {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// median returns the middle value, averaging the two central values for
// even lengths.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// mode returns the most frequent value; frequency ties resolve to the value
// that appears first in row order.
func mode(values []float64) float64 {
	counts := make(map[float64]int, len(values))
	var order []float64
	for _, v := range values {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	best := order[0]
	bestCount := counts[best]
	for _, v := range order[1:] {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

// sampleStd is the n-1 denominator standard deviation; a single value has
// no spread and yields zero.
func sampleStd(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	m2 := 0.0
	for _, v := range values {
		d := v - mean
		m2 += d * d
	}
	return math.Sqrt(m2 / float64(n-1))
}
