package engine

import (
	"fmt"
	"sort"
	"time"
)

// SelectGranularity picks the bucket width for a date range: spans over a
// year aggregate monthly, spans over a month weekly, anything shorter
// daily.
func SelectGranularity(min, max time.Time) Granularity {
	span := max.Sub(min)
	switch {
	case span > 365*24*time.Hour:
		return GranularityMonthly
	case span > 30*24*time.Hour:
		return GranularityWeekly
	default:
		return GranularityDaily
	}
}

// TimeBucket is one resampled point: the bucket start, the aggregated
// value, and how many raw points fell inside.
type TimeBucket struct {
	Start time.Time `json:"start"`
	Value float64   `json:"value"`
	Count int       `json:"count"`
}

// Resample groups a dated value series into granularity-wide buckets and
// applies the aggregation inside each bucket. Dates and values are parallel
// slices; buckets come back in ascending time order.
func Resample(dates []time.Time, values []float64, g Granularity, agg Aggregation) ([]TimeBucket, error) {
	if len(dates) != len(values) {
		return nil, fmt.Errorf("dates and values lengths differ: %d vs %d", len(dates), len(values))
	}
	if !g.IsValid() {
		return nil, fmt.Errorf("invalid granularity %q", g)
	}
	if !agg.IsValid() {
		return nil, fmt.Errorf("invalid aggregation %q", agg)
	}

	grouped := make(map[time.Time][]float64)
	for i, d := range dates {
		start := bucketStart(d, g)
		grouped[start] = append(grouped[start], values[i])
	}

	buckets := make([]TimeBucket, 0, len(grouped))
	for start, vs := range grouped {
		buckets = append(buckets, TimeBucket{
			Start: start,
			Value: agg.apply(vs),
			Count: len(vs),
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
	return buckets, nil
}

// bucketStart truncates a timestamp to its bucket: midnight for daily, the
// preceding Monday for weekly, the first of the month for monthly.
func bucketStart(t time.Time, g Granularity) time.Time {
	year, month, day := t.Date()
	switch g {
	case GranularityWeekly:
		midnight := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
		offset := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset)
	case GranularityMonthly:
		return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	}
}

// TrendSlope fits a least-squares line over the bucket values against their
// positions and returns the slope per bucket step. Fewer than two buckets
// have no trend and yield zero.
func TrendSlope(buckets []TimeBucket) float64 {
	n := float64(len(buckets))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXX, sumXY float64
	for i, b := range buckets {
		x := float64(i)
		sumX += x
		sumY += b.Value
		sumXX += x * x
		sumXY += x * b.Value
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func (a Aggregation) apply(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	switch a {
	case AggregationSum:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum
	case AggregationMedian:
		return median(values)
	case AggregationMin:
		minV := values[0]
		for _, v := range values[1:] {
			if v < minV {
				minV = v
			}
		}
		return minV
	case AggregationMax:
		maxV := values[0]
		for _, v := range values[1:] {
			if v > maxV {
				maxV = v
			}
		}
		return maxV
	default:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	}
}
