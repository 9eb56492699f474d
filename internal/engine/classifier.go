package engine

import (
	"tabsight/internal/dataset"
)

// Classify assigns exactly one semantic tag to the column. Rules are
// evaluated in a fixed order and the first match wins; the trailing
// catch-all guarantees totality, so every column gets a tag. Classification
// never mutates the column and never errors: a value that defeats a rule
// simply moves evaluation to the next rule.
func Classify(col *dataset.Column, opts Options) ColumnTypeProfile {
	c := newCandidate(col, opts)
	for _, r := range classifierRules {
		if r.applies(c) {
			return ColumnTypeProfile{Column: col.Name, Type: r.tag}
		}
	}
	// Unreachable: the catch-all rule always applies.
	return ColumnTypeProfile{Column: col.Name, Type: TypeFreeText}
}

// ClassifyDataset classifies every column once, in column order. Columns
// recognized as datetime but stored under another kind are materialized:
// their cells are overwritten with the parsed times and the storage kind
// flips to datetime. This is the engine's single documented mutation;
// callers sharing the snapshot must re-read such columns afterwards.
func ClassifyDataset(ds *dataset.Dataset, opts Options) ([]ColumnTypeProfile, error) {
	if ds == nil || ds.Rows() == 0 {
		return nil, ErrEmptyDataset
	}
	profiles := make([]ColumnTypeProfile, 0, len(ds.Columns()))
	for _, col := range ds.Columns() {
		profile := Classify(col, opts)
		if profile.Type == TypeDateTime && col.Kind != dataset.KindDateTime {
			materializeDatetime(col)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// materializeDatetime rewrites the column in place with parsed times.
// Classification sampled only a prefix of the values, so stragglers that
// fail to parse here become missing cells rather than failing the pass.
func materializeDatetime(col *dataset.Column) {
	for i, v := range col.Values {
		if v.IsMissing() || v.Kind == dataset.ValueTime {
			continue
		}
		if t, ok := parseTime(v.String()); ok {
			col.Values[i] = dataset.TimeValue(t)
		} else {
			col.Values[i] = dataset.MissingValue()
		}
	}
	col.Kind = dataset.KindDateTime
}
