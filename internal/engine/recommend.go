package engine

import (
	"tabsight/internal/dataset"
)

// buckets is the partition of classified columns feeding the recommender.
type buckets struct {
	latitudes    []string
	longitudes   []string
	datetimes    []string
	numerics     []string // meaningful numeric columns, column order
	monetaries   []string // meaningful monetary columns
	categoricals []string // meaningful nominal and binary columns
}

func partition(ds *dataset.Dataset, profiles []ColumnTypeProfile, opts Options) buckets {
	var b buckets
	for _, p := range profiles {
		col, ok := ds.Column(p.Column)
		if !ok {
			continue
		}
		switch {
		case p.Type == TypeGeoLatitude:
			b.latitudes = append(b.latitudes, p.Column)
		case p.Type == TypeGeoLongitude:
			b.longitudes = append(b.longitudes, p.Column)
		case p.Type == TypeDateTime:
			b.datetimes = append(b.datetimes, p.Column)
		case p.Type.IsNumeric():
			if !IsMeaningfulNumeric(col) {
				continue
			}
			b.numerics = append(b.numerics, p.Column)
			if p.Type == TypeNumericMonetary {
				b.monetaries = append(b.monetaries, p.Column)
			}
		case p.Type.IsCategorical():
			if IsMeaningfulCategorical(col, opts.MaxCategories) {
				b.categoricals = append(b.categoricals, p.Column)
			}
		}
	}
	return b
}

// BuildRecommendations classifies every column once and derives the
// visualization menu. Categories appear in a fixed order chosen for
// predictable presentation: geography, time, key metrics, correlations,
// category analysis, financial. A category is emitted only when its
// qualifying columns survive the meaningfulness filters.
//
// Classification runs inside, so the datetime materialization side effect
// of ClassifyDataset applies here too.
func BuildRecommendations(ds *dataset.Dataset, opts Options) ([]Recommendation, error) {
	profiles, err := ClassifyDataset(ds, opts)
	if err != nil {
		return nil, err
	}
	return recommendationsFromProfiles(ds, profiles, opts), nil
}

func recommendationsFromProfiles(ds *dataset.Dataset, profiles []ColumnTypeProfile, opts Options) []Recommendation {
	b := partition(ds, profiles, opts)
	recs := []Recommendation{}

	if len(b.latitudes) > 0 && len(b.longitudes) > 0 {
		columns := append([]string{}, b.latitudes...)
		columns = append(columns, b.longitudes...)
		recs = append(recs, Recommendation{Category: CategoryGeographic, Columns: columns})
	}
	if len(b.datetimes) > 0 && len(b.numerics) > 0 {
		columns := append([]string{}, b.datetimes...)
		columns = append(columns, b.numerics...)
		recs = append(recs, Recommendation{Category: CategoryTimeSeries, Columns: columns})
	}
	if len(b.numerics) > 0 {
		recs = append(recs, Recommendation{Category: CategoryKeyMetrics, Columns: append([]string{}, b.numerics...)})
	}
	if len(b.numerics) >= 2 {
		recs = append(recs, Recommendation{Category: CategoryCorrelations, Columns: append([]string{}, b.numerics...)})
	}
	if len(b.categoricals) > 0 {
		recs = append(recs, Recommendation{Category: CategoryCategories, Columns: append([]string{}, b.categoricals...)})
	}
	if len(b.monetaries) > 0 {
		recs = append(recs, Recommendation{Category: CategoryFinancial, Columns: append([]string{}, b.monetaries...)})
	}
	return recs
}
