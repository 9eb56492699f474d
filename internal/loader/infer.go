package loader

import (
	"strconv"
	"strings"

	"tabsight/internal/dataset"
)

// missingMarkers are the raw spellings treated as absent values, compared
// case-insensitively after trimming.
var missingMarkers = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"#n/a": {},
	"null": {},
	"nan":  {},
	"none": {},
}

func isMissingMarker(s string) bool {
	_, ok := missingMarkers[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// normalizeNumber strips grouping commas and surrounding space so that
// exported spreadsheets with formatted numbers still parse.
func normalizeNumber(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}

func parseIntStrict(s string) (int64, bool) {
	n, err := strconv.ParseInt(normalizeNumber(s), 10, 64)
	return n, err == nil
}

func parseFloatStrict(s string) (float64, bool) {
	f, err := strconv.ParseFloat(normalizeNumber(s), 64)
	return f, err == nil
}

func parseBoolStrict(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// inferKind picks the narrowest storage kind that accepts every non-missing
// raw value: integer before float before boolean, text as the catch-all.
// A column with nothing but missing markers stays text.
func inferKind(raw []string) dataset.Kind {
	allInt, allFloat, allBool := true, true, true
	nonMissing := 0
	for _, s := range raw {
		if isMissingMarker(s) {
			continue
		}
		nonMissing++
		if _, ok := parseIntStrict(s); !ok {
			allInt = false
		}
		if _, ok := parseFloatStrict(s); !ok {
			allFloat = false
		}
		if _, ok := parseBoolStrict(s); !ok {
			allBool = false
		}
		if !allInt && !allFloat && !allBool {
			break
		}
	}
	if nonMissing == 0 {
		return dataset.KindText
	}
	switch {
	case allInt:
		return dataset.KindInteger
	case allFloat:
		return dataset.KindFloat
	case allBool:
		return dataset.KindBoolean
	default:
		return dataset.KindText
	}
}

// buildColumn converts raw strings into typed cells under the inferred
// kind. A value that defeats the kind despite inference (possible when rows
// were padded) degrades to a missing cell.
func buildColumn(name string, kind dataset.Kind, raw []string) *dataset.Column {
	values := make([]dataset.Value, len(raw))
	for i, s := range raw {
		if isMissingMarker(s) {
			values[i] = dataset.MissingValue()
			continue
		}
		switch kind {
		case dataset.KindInteger:
			if n, ok := parseIntStrict(s); ok {
				values[i] = dataset.NumberValue(float64(n))
			} else {
				values[i] = dataset.MissingValue()
			}
		case dataset.KindFloat:
			if f, ok := parseFloatStrict(s); ok {
				values[i] = dataset.NumberValue(f)
			} else {
				values[i] = dataset.MissingValue()
			}
		case dataset.KindBoolean:
			if b, ok := parseBoolStrict(s); ok {
				values[i] = dataset.BoolValue(b)
			} else {
				values[i] = dataset.MissingValue()
			}
		default:
			values[i] = dataset.TextValue(strings.TrimSpace(s))
		}
	}
	return dataset.NewColumn(name, kind, values)
}
