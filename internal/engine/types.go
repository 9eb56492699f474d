package engine

import (
	"errors"
	"fmt"
)

// ColumnType is the semantic tag assigned to a column by the classifier.
// The set is closed: every column receives exactly one of these.
type ColumnType string

const (
	TypeDateTime           ColumnType = "datetime"
	TypeGeoLatitude        ColumnType = "geo-latitude"
	TypeGeoLongitude       ColumnType = "geo-longitude"
	TypeNumericContinuous  ColumnType = "numeric-continuous"
	TypeNumericDiscrete    ColumnType = "numeric-discrete"
	TypeNumericPercentage  ColumnType = "numeric-percentage"
	TypeNumericMonetary    ColumnType = "numeric-monetary"
	TypeCategoricalNominal ColumnType = "categorical-nominal"
	TypeCategoricalBinary  ColumnType = "categorical-binary"
	TypeCategoricalID      ColumnType = "categorical-id"
	TypeFreeText           ColumnType = "free-text"
)

// IsNumeric reports whether the tag belongs to the numeric family.
// Geographic tags are deliberately excluded: coordinate columns stop at the
// geographic rules and never feed metric or correlation buckets.
func (t ColumnType) IsNumeric() bool {
	switch t {
	case TypeNumericContinuous, TypeNumericDiscrete, TypeNumericPercentage, TypeNumericMonetary:
		return true
	}
	return false
}

// IsCategorical reports whether the tag belongs to the categorical family
// eligible for category charts. Identifier columns are excluded: their
// values label rows rather than group them.
func (t ColumnType) IsCategorical() bool {
	return t == TypeCategoricalNominal || t == TypeCategoricalBinary
}

// ColumnTypeProfile is the classifier verdict for one column.
type ColumnTypeProfile struct {
	Column string     `json:"column"`
	Type   ColumnType `json:"type"`
}

// CorrelationPair holds the Pearson coefficient for an unordered pair of
// numeric columns. Important marks pairs whose absolute coefficient clears
// the configured threshold.
type CorrelationPair struct {
	ColumnA     string  `json:"column_a"`
	ColumnB     string  `json:"column_b"`
	Coefficient float64 `json:"coefficient"`
	Important   bool    `json:"important"`
}

// Category names a class of visualization offered to the rendering layer.
type Category string

const (
	CategoryGeographic   Category = "Geographic Maps"
	CategoryTimeSeries   Category = "Time Series"
	CategoryKeyMetrics   Category = "Key Metrics"
	CategoryCorrelations Category = "Correlations"
	CategoryCategories   Category = "Category Analysis"
	CategoryFinancial    Category = "Financial Analysis"
)

// Recommendation pairs a visualization category with the columns that
// qualified it. Recommendations are recomputed per analysis and never
// persisted.
type Recommendation struct {
	Category Category `json:"category"`
	Columns  []string `json:"columns"`
}

// Granularity is the time-bucket width used when resampling a dated series.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// IsValid reports whether the granularity is one of the supported widths.
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return true
	}
	return false
}

// ParseGranularity converts a request parameter into a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(s)
	if !g.IsValid() {
		return "", fmt.Errorf("invalid granularity %q: must be daily, weekly or monthly", s)
	}
	return g, nil
}

// Aggregation names the function applied to the values inside one time
// bucket. Selection is independent of granularity.
type Aggregation string

const (
	AggregationMean   Aggregation = "mean"
	AggregationSum    Aggregation = "sum"
	AggregationMedian Aggregation = "median"
	AggregationMin    Aggregation = "min"
	AggregationMax    Aggregation = "max"
)

// IsValid reports whether the aggregation is supported.
func (a Aggregation) IsValid() bool {
	switch a {
	case AggregationMean, AggregationSum, AggregationMedian, AggregationMin, AggregationMax:
		return true
	}
	return false
}

// ParseAggregation converts a request parameter into an Aggregation.
func ParseAggregation(s string) (Aggregation, error) {
	a := Aggregation(s)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid aggregation %q: must be mean, sum, median, min or max", s)
	}
	return a, nil
}

// Default engine parameters.
const (
	DefaultCorrelationThreshold = 0.3
	DefaultMaxCategories        = 10
	DefaultDatetimeSampleSize   = 100

	// dominanceCutoff is the share of rows above which a categorical
	// column's top value makes the column uninformative.
	dominanceCutoff = 0.95

	// identifierRatio is the distinct-to-rows ratio at or below which a
	// text column is low-cardinality enough for categorical treatment.
	identifierRatio = 0.05
)

// Options carries the tunable engine parameters. The zero value is not
// usable; start from DefaultOptions.
type Options struct {
	// CorrelationThreshold is the minimum absolute Pearson coefficient for
	// a pair to be reported.
	CorrelationThreshold float64 `json:"correlation_threshold"`
	// MaxCategories caps the distinct values a categorical column may have
	// and still be considered chartable.
	MaxCategories int `json:"max_categories"`
	// DatetimeSampleSize bounds how many values are test-parsed when a
	// column name suggests dates but the storage kind does not.
	DatetimeSampleSize int `json:"datetime_sample_size"`
}

// DefaultOptions returns the standard engine parameters.
func DefaultOptions() Options {
	return Options{
		CorrelationThreshold: DefaultCorrelationThreshold,
		MaxCategories:        DefaultMaxCategories,
		DatetimeSampleSize:   DefaultDatetimeSampleSize,
	}
}

// Validate checks the options are inside their documented domains.
func (o Options) Validate() error {
	if o.CorrelationThreshold < 0 || o.CorrelationThreshold > 1 {
		return fmt.Errorf("correlation threshold %v outside [0,1]", o.CorrelationThreshold)
	}
	if o.MaxCategories < 2 {
		return fmt.Errorf("max categories %d must be at least 2", o.MaxCategories)
	}
	if o.DatetimeSampleSize < 1 {
		return fmt.Errorf("datetime sample size %d must be positive", o.DatetimeSampleSize)
	}
	return nil
}

// Analysis is the full engine output for one dataset snapshot.
type Analysis struct {
	Profiles        []ColumnTypeProfile `json:"profiles"`
	Correlations    []CorrelationPair   `json:"correlations"`
	Recommendations []Recommendation    `json:"recommendations"`
}

// Sentinel errors for malformed input shape. Insufficient data is never an
// error: those paths return empty results instead.
var (
	ErrEmptyDataset   = errors.New("dataset is empty")
	ErrColumnNotFound = errors.New("column not found")
)
