package domain

import (
	"time"
)

// DatasetInfo is the catalog view of one uploaded dataset. The fingerprint
// is the BLAKE2b-256 hex digest of the raw upload and doubles as the parse
// cache key.
type DatasetInfo struct {
	ID          string    `json:"id" validate:"required,uuid"`
	Name        string    `json:"name" validate:"required"`
	Format      string    `json:"format" validate:"required,oneof=csv xlsx json sheet"`
	SizeBytes   int64     `json:"size_bytes" validate:"min=0"`
	Rows        int       `json:"rows" validate:"min=0"`
	Columns     int       `json:"columns" validate:"min=0"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ColumnProfile pairs a column with its classified type tag.
type ColumnProfile struct {
	Column string `json:"column" validate:"required"`
	Type   string `json:"type" validate:"required"`
}

// DatasetDetail is the full view of a stored dataset: catalog metadata plus
// the classification and recommendation results computed at upload time.
type DatasetDetail struct {
	DatasetInfo
	ColumnNames     []string            `json:"column_names"`
	Profiles        []ColumnProfile     `json:"profiles"`
	Recommendations []Recommendation    `json:"recommendations"`
	Correlations    []CorrelationResult `json:"correlations"`
	MissingValues   []ColumnMissingness `json:"missing_values,omitempty"`
}

// Recommendation names a visualization category and the columns that
// qualified it. Order in a slice of recommendations is meaningful and fixed
// by the engine.
type Recommendation struct {
	Category string   `json:"category" validate:"required"`
	Columns  []string `json:"columns"`
}

// CorrelationResult reports the Pearson coefficient for one column pair.
type CorrelationResult struct {
	ColumnA     string  `json:"column_a" validate:"required"`
	ColumnB     string  `json:"column_b" validate:"required"`
	Coefficient float64 `json:"coefficient" validate:"min=-1,max=1"`
	Important   bool    `json:"important"`
}

// ColumnMissingness reports how many cells of a column are missing.
type ColumnMissingness struct {
	Column  string  `json:"column" validate:"required"`
	Missing int     `json:"missing" validate:"min=0"`
	Percent float64 `json:"percent" validate:"min=0,max=100"`
}

// ColumnSummary carries the descriptive statistics for one numeric column.
type ColumnSummary struct {
	Column string           `json:"column" validate:"required"`
	Type   string           `json:"type" validate:"required"`
	Stats  DescriptiveStats `json:"stats"`
}

// DescriptiveStats are the classic location and spread measures over the
// non-missing values of a numeric column.
type DescriptiveStats struct {
	Count  int     `json:"count" validate:"min=0"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std" validate:"min=0"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mode   float64 `json:"mode"`
}

// ColumnOutliers lists the values of a numeric column outside the Tukey
// fences, in row order.
type ColumnOutliers struct {
	Column   string    `json:"column" validate:"required"`
	Count    int       `json:"count" validate:"min=0"`
	Outliers []float64 `json:"outliers"`
}

// TimeBucket is one resampled point of a time series.
type TimeBucket struct {
	Start time.Time `json:"start"`
	Value float64   `json:"value"`
	Count int       `json:"count" validate:"min=0"`
}

// TimeSeriesResult is a dated value series resampled to a fixed granularity
// with a fitted linear trend slope, expressed in value units per bucket.
type TimeSeriesResult struct {
	DateColumn  string       `json:"date_column" validate:"required"`
	ValueColumn string       `json:"value_column" validate:"required"`
	Granularity string       `json:"granularity" validate:"required,oneof=daily weekly monthly"`
	Aggregation string       `json:"aggregation" validate:"required,oneof=mean sum median min max"`
	Buckets     []TimeBucket `json:"buckets"`
	TrendSlope  float64      `json:"trend_slope"`
}

// UploadRequest describes a dataset upload for validation purposes. The
// body bytes travel out of band as multipart content.
type UploadRequest struct {
	Filename  string `json:"filename" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"min=1"`
}

// EnrichRequest asks for place-name geocoding of one categorical column.
type EnrichRequest struct {
	Column string `json:"column" validate:"required"`
}
