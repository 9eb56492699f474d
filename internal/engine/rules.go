package engine

import (
	"strings"
	"time"

	"tabsight/internal/dataset"
)

// Keyword tables backing the name heuristics. Matching is case-insensitive;
// the tables are data so the rule order stays visible and testable.
var (
	datetimeKeywords   = []string{"date", "time", "year", "month", "day"}
	latitudeKeywords   = []string{"latitude"}
	longitudeKeywords  = []string{"longitude"}
	monetaryKeywords   = []string{"price", "cost", "revenue", "sales", "income", "expense", "payment", "amount"}
	identifierKeywords = []string{"id", "code", "number"}
	currencySymbols    = []string{"$", "€", "£", "¥", "₹"}

	// Short coordinate names are matched exactly so that words merely
	// containing "lat" or "lon" (platform, along) do not qualify.
	latitudeAliases  = []string{"lat"}
	longitudeAliases = []string{"lon", "lng", "long"}
)

// timeLayouts are tried in order when test-parsing candidate datetime text.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"2006-01",
}

func containsAny(name string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func equalsAny(name string, aliases []string) bool {
	for _, alias := range aliases {
		if name == alias {
			return true
		}
	}
	return false
}

func hasPrefixOrSuffixAny(name string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.HasPrefix(name, kw) || strings.HasSuffix(name, kw) {
			return true
		}
	}
	return false
}

func hasCurrencyPrefix(name string) bool {
	for _, sym := range currencySymbols {
		if strings.HasPrefix(name, sym) {
			return true
		}
	}
	return false
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// candidate carries the per-column facts the rules consult. Everything is
// computed once so each rule stays a cheap predicate.
type candidate struct {
	col        *dataset.Column
	name       string // lowercased column name
	rows       int
	nonMissing int
	distinct   int
	floats     []float64 // non-missing numeric payloads, row order
	sampleSize int
}

func newCandidate(col *dataset.Column, opts Options) *candidate {
	return &candidate{
		col:        col,
		name:       strings.ToLower(strings.TrimSpace(col.Name)),
		rows:       col.Len(),
		nonMissing: col.NonMissingCount(),
		distinct:   col.DistinctCount(),
		floats:     col.Floats(),
		sampleSize: opts.DatetimeSampleSize,
	}
}

func (c *candidate) numericKind() bool {
	return c.col.Kind.IsNumeric()
}

func (c *candidate) textualKind() bool {
	return c.col.Kind == dataset.KindText || c.col.Kind == dataset.KindBoolean
}

// allFloatsIn reports whether every non-missing numeric value lies in
// [lo, hi]. Vacuous truth is excluded: a column with no values matches no
// range rule so that all-missing columns keep falling through.
func (c *candidate) allFloatsIn(lo, hi float64) bool {
	if len(c.floats) == 0 {
		return false
	}
	for _, f := range c.floats {
		if f < lo || f > hi {
			return false
		}
	}
	return true
}

func (c *candidate) allFloatsWhole() bool {
	if len(c.floats) == 0 {
		return false
	}
	for _, f := range c.floats {
		if f != float64(int64(f)) {
			return false
		}
	}
	return true
}

// sampleParsesAsTime test-parses up to sampleSize non-missing values; every
// sampled value must parse for the column to qualify as datetime.
func (c *candidate) sampleParsesAsTime() bool {
	sampled := 0
	for _, v := range c.col.Values {
		if v.IsMissing() {
			continue
		}
		if sampled >= c.sampleSize {
			break
		}
		sampled++
		if v.Kind == dataset.ValueTime {
			continue
		}
		if _, ok := parseTime(v.String()); !ok {
			return false
		}
	}
	return sampled > 0
}

// rule is one entry of the classifier decision list: the first rule whose
// predicate holds assigns its tag.
type rule struct {
	tag     ColumnType
	applies func(c *candidate) bool
}

// classifierRules is the classifier decision list: datetime, geography,
// numeric subtypes, categorical subtypes, then the free-text catch-all.
// Order is load-bearing; the first match wins.
var classifierRules = []rule{
	{
		tag: TypeDateTime,
		applies: func(c *candidate) bool {
			if c.col.Kind == dataset.KindDateTime {
				return true
			}
			return containsAny(c.name, datetimeKeywords) && c.sampleParsesAsTime()
		},
	},
	{
		tag: TypeGeoLatitude,
		applies: func(c *candidate) bool {
			if !equalsAny(c.name, latitudeAliases) && !containsAny(c.name, latitudeKeywords) {
				return false
			}
			return c.numericKind() && c.allFloatsIn(-90, 90)
		},
	},
	{
		tag: TypeGeoLongitude,
		applies: func(c *candidate) bool {
			if !equalsAny(c.name, longitudeAliases) && !containsAny(c.name, longitudeKeywords) {
				return false
			}
			return c.numericKind() && c.allFloatsIn(-180, 180)
		},
	},
	{
		tag: TypeNumericPercentage,
		applies: func(c *candidate) bool {
			return c.numericKind() && strings.Contains(c.name, "%") && c.allFloatsIn(0, 100)
		},
	},
	{
		tag: TypeNumericMonetary,
		applies: func(c *candidate) bool {
			if !c.numericKind() || len(c.floats) == 0 {
				return false
			}
			return containsAny(c.name, monetaryKeywords) || hasCurrencyPrefix(c.name)
		},
	},
	{
		tag: TypeNumericDiscrete,
		applies: func(c *candidate) bool {
			return c.numericKind() && c.allFloatsWhole()
		},
	},
	{
		tag: TypeNumericContinuous,
		applies: func(c *candidate) bool {
			return c.numericKind() && len(c.floats) > 0
		},
	},
	{
		tag: TypeCategoricalBinary,
		applies: func(c *candidate) bool {
			return c.textualKind() && c.distinct == 2
		},
	},
	{
		tag: TypeCategoricalID,
		applies: func(c *candidate) bool {
			if !c.textualKind() || c.nonMissing == 0 {
				return false
			}
			if !hasPrefixOrSuffixAny(c.name, identifierKeywords) {
				return false
			}
			return float64(c.distinct) <= identifierRatio*float64(c.rows)
		},
	},
	{
		tag: TypeCategoricalNominal,
		applies: func(c *candidate) bool {
			if !c.textualKind() || c.nonMissing == 0 {
				return false
			}
			return float64(c.distinct) <= identifierRatio*float64(c.rows)
		},
	},
	{
		tag:     TypeFreeText,
		applies: func(c *candidate) bool { return true },
	},
}
