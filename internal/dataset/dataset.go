// Package dataset defines the tabular data model consumed by the analysis
// engine: a Dataset of named, equal-length Columns whose cells are tagged
// variant Values with explicit missing markers.
package dataset

import (
	"fmt"
	"time"
)

// Kind is the declared storage kind of a column, as reported by the
// collaborator that produced the dataset (file loader, API client).
type Kind int

const (
	KindInteger Kind = iota
	KindFloat
	KindText
	KindBoolean
	KindDateTime
)

// String returns the kind name used in reports and API payloads.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindDateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether the kind stores numbers.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat
}

// ValueKind tags the payload carried by a Value.
type ValueKind int

const (
	ValueMissing ValueKind = iota
	ValueNumber
	ValueText
	ValueBool
	ValueTime
)

// Value is a single cell: a tag plus the payload for that tag. The zero
// Value is a missing cell.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Bool bool
	Time time.Time
}

// MissingValue returns the missing-cell marker.
func MissingValue() Value {
	return Value{Kind: ValueMissing}
}

// NumberValue wraps a numeric cell.
func NumberValue(f float64) Value {
	return Value{Kind: ValueNumber, Num: f}
}

// TextValue wraps a text cell.
func TextValue(s string) Value {
	return Value{Kind: ValueText, Str: s}
}

// BoolValue wraps a boolean cell.
func BoolValue(b bool) Value {
	return Value{Kind: ValueBool, Bool: b}
}

// TimeValue wraps a datetime cell.
func TimeValue(t time.Time) Value {
	return Value{Kind: ValueTime, Time: t}
}

// IsMissing reports whether the cell carries no value.
func (v Value) IsMissing() bool {
	return v.Kind == ValueMissing
}

// AsFloat returns the numeric payload. Only ValueNumber cells qualify.
func (v Value) AsFloat() (float64, bool) {
	if v.Kind != ValueNumber {
		return 0, false
	}
	return v.Num, true
}

// AsTime returns the datetime payload.
func (v Value) AsTime() (time.Time, bool) {
	if v.Kind != ValueTime {
		return time.Time{}, false
	}
	return v.Time, true
}

// String renders the cell for display, value counting and CSV export.
// Missing cells render empty.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return formatFloat(v.Num)
	case ValueText:
		return v.Str
	case ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValueTime:
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) && f < 1e15 && f > -1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// Column is a named sequence of cells with a declared storage kind. All
// columns of one Dataset have the same length.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// NewColumn builds a column over the given cells.
func NewColumn(name string, kind Kind, values []Value) *Column {
	return &Column{Name: name, Kind: kind, Values: values}
}

// NumberColumn builds a numeric column from raw floats with no missing cells.
func NumberColumn(name string, kind Kind, values []float64) *Column {
	cells := make([]Value, len(values))
	for i, f := range values {
		cells[i] = NumberValue(f)
	}
	return &Column{Name: name, Kind: kind, Values: cells}
}

// TextColumn builds a text column from raw strings; empty strings become
// missing cells.
func TextColumn(name string, values []string) *Column {
	cells := make([]Value, len(values))
	for i, s := range values {
		if s == "" {
			cells[i] = MissingValue()
		} else {
			cells[i] = TextValue(s)
		}
	}
	return &Column{Name: name, Kind: KindText, Values: cells}
}

// TimeColumn builds a datetime column from parsed times.
func TimeColumn(name string, values []time.Time) *Column {
	cells := make([]Value, len(values))
	for i, t := range values {
		cells[i] = TimeValue(t)
	}
	return &Column{Name: name, Kind: KindDateTime, Values: cells}
}

// Len returns the number of cells including missing ones.
func (c *Column) Len() int {
	return len(c.Values)
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// NonMissingCount returns the number of cells carrying a value.
func (c *Column) NonMissingCount() int {
	return len(c.Values) - c.MissingCount()
}

// Floats returns the non-missing numeric payloads in row order.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := v.AsFloat(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Times returns the non-missing datetime payloads in row order.
func (c *Column) Times() []time.Time {
	out := make([]time.Time, 0, len(c.Values))
	for _, v := range c.Values {
		if t, ok := v.AsTime(); ok {
			out = append(out, t)
		}
	}
	return out
}

// Strings returns the non-missing cells rendered as text in row order.
func (c *Column) Strings() []string {
	out := make([]string, 0, len(c.Values))
	for _, v := range c.Values {
		if !v.IsMissing() {
			out = append(out, v.String())
		}
	}
	return out
}

// DistinctCount returns the number of distinct non-missing values, compared
// by their rendered text.
func (c *Column) DistinctCount() int {
	seen := make(map[string]struct{})
	for _, v := range c.Values {
		if !v.IsMissing() {
			seen[v.String()] = struct{}{}
		}
	}
	return len(seen)
}

// ValueCounts returns the occurrence count per distinct non-missing value
// together with the order in which each value first appeared. The order
// slice makes frequency ties resolvable by first occurrence.
func (c *Column) ValueCounts() (counts map[string]int, order []string) {
	counts = make(map[string]int)
	for _, v := range c.Values {
		if v.IsMissing() {
			continue
		}
		key := v.String()
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}
	return counts, order
}

// ValidationError signals a malformed dataset shape.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("dataset validation failed: %s: %s", e.Field, e.Message)
}

// Dataset is an ordered collection of equal-length named columns. The
// collaborator that built it owns the memory; the engine reads it, with one
// documented exception: materializing parsed datetimes back into a column.
type Dataset struct {
	columns []*Column
	index   map[string]int
}

// New validates and assembles a dataset. Columns must be uniquely named and
// of identical length.
func New(columns ...*Column) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, ValidationError{Field: "columns", Message: "dataset has no columns"}
	}
	index := make(map[string]int, len(columns))
	rows := columns[0].Len()
	for i, col := range columns {
		if col.Name == "" {
			return nil, ValidationError{Field: "columns", Message: fmt.Sprintf("column %d has no name", i)}
		}
		if _, dup := index[col.Name]; dup {
			return nil, ValidationError{Field: col.Name, Message: "duplicate column name"}
		}
		if col.Len() != rows {
			return nil, ValidationError{
				Field:   col.Name,
				Message: fmt.Sprintf("length %d does not match %d", col.Len(), rows),
			}
		}
		index[col.Name] = i
	}
	return &Dataset{columns: columns, index: index}, nil
}

// Rows returns the shared column length.
func (d *Dataset) Rows() int {
	if len(d.columns) == 0 {
		return 0
	}
	return d.columns[0].Len()
}

// Columns returns the columns in their original order.
func (d *Dataset) Columns() []*Column {
	return d.columns
}

// ColumnNames returns the column names in their original order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, col := range d.columns {
		names[i] = col.Name
	}
	return names
}

// Column looks a column up by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// AddColumn appends a column, used by enrichment collaborators that derive
// new columns (for example geocoded coordinates). The column must match the
// dataset's row count.
func (d *Dataset) AddColumn(col *Column) error {
	if _, dup := d.index[col.Name]; dup {
		return ValidationError{Field: col.Name, Message: "duplicate column name"}
	}
	if col.Len() != d.Rows() {
		return ValidationError{
			Field:   col.Name,
			Message: fmt.Sprintf("length %d does not match %d", col.Len(), d.Rows()),
		}
	}
	d.index[col.Name] = len(d.columns)
	d.columns = append(d.columns, col)
	return nil
}
