package loader

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tabsight/internal/dataset"
)

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "data/sales.csv", want: FormatCSV},
		{path: "report.XLSX", want: FormatExcel},
		{path: "legacy.xls", want: FormatExcel},
		{path: "records.json", want: FormatJSON},
		{path: "document.pdf", wantErr: true},
		{path: "noextension", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatForPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	input := strings.Join([]string{
		"name,age,score,active",
		"amira,34,91.5,true",
		"bashar,29,88.25,false",
		"caline,NA,79.0,true",
	}, "\n")

	l := New(nil)
	ds, err := l.LoadReader(context.Background(), strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"name", "age", "score", "active"}, ds.ColumnNames())

	name, _ := ds.Column("name")
	assert.Equal(t, dataset.KindText, name.Kind)

	age, _ := ds.Column("age")
	assert.Equal(t, dataset.KindInteger, age.Kind)
	assert.Equal(t, 1, age.MissingCount(), "NA marker becomes missing")
	assert.Equal(t, []float64{34, 29}, age.Floats())

	score, _ := ds.Column("score")
	assert.Equal(t, dataset.KindFloat, score.Kind)

	active, _ := ds.Column("active")
	assert.Equal(t, dataset.KindBoolean, active.Kind)
}

func TestLoadCSVRaggedRows(t *testing.T) {
	input := "a,b,c\n1,2,3\n4,5\n6"

	l := New(nil)
	ds, err := l.LoadReader(context.Background(), strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Rows())
	c, _ := ds.Column("c")
	assert.Equal(t, 2, c.MissingCount(), "short rows pad with missing cells")
}

func TestLoadCSVEmpty(t *testing.T) {
	l := New(nil)
	_, err := l.LoadReader(context.Background(), strings.NewReader(""), FormatCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestLoadCSVMaxRows(t *testing.T) {
	input := "v\n1\n2\n3\n4"
	l := New(nil, WithMaxRows(2))
	_, err := l.LoadReader(context.Background(), strings.NewReader(input), FormatCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestLoadCSVThousandsSeparators(t *testing.T) {
	input := "revenue\n\"1,250\"\n\"3,500\"\n900"
	l := New(nil)
	ds, err := l.LoadReader(context.Background(), strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	col, _ := ds.Column("revenue")
	assert.Equal(t, dataset.KindInteger, col.Kind)
	assert.Equal(t, []float64{1250, 3500, 900}, col.Floats())
}

func TestCleanHeader(t *testing.T) {
	l := New(nil)
	got := l.cleanHeader([]string{"price", "", "price", " city "})
	assert.Equal(t, []string{"price", "column_2", "price_2", "city"}, got)
}

func TestLoadJSON(t *testing.T) {
	input := `[
		{"city": "baghdad", "population": 8126755, "growth": 2.1},
		{"city": "basra", "population": 1352000, "growth": null},
		{"city": "erbil", "population": 879071, "growth": 2.9, "capital": false}
	]`

	l := New(nil)
	ds, err := l.LoadReader(context.Background(), strings.NewReader(input), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"city", "population", "growth", "capital"}, ds.ColumnNames(),
		"columns follow first appearance order")

	population, _ := ds.Column("population")
	assert.Equal(t, dataset.KindInteger, population.Kind)

	growth, _ := ds.Column("growth")
	assert.Equal(t, dataset.KindFloat, growth.Kind)
	assert.Equal(t, 1, growth.MissingCount(), "null becomes missing")

	capital, _ := ds.Column("capital")
	assert.Equal(t, dataset.KindBoolean, capital.Kind)
	assert.Equal(t, 2, capital.MissingCount(), "absent keys become missing")
}

func TestLoadJSONRejectsNonArray(t *testing.T) {
	l := New(nil)
	_, err := l.LoadReader(context.Background(), strings.NewReader(`{"a": 1}`), FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array")
}

func TestLoadJSONRejectsNested(t *testing.T) {
	l := New(nil)
	_, err := l.LoadReader(context.Background(), strings.NewReader(`[{"a": {"b": 1}}]`), FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested")
}

func TestLoadExcel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	// A leading empty row before the header, as exported reports often have.
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"product", "units"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"widget", 12}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"gadget", 7}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	l := New(nil)
	ds, err := l.LoadReader(context.Background(), buf, FormatExcel)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Rows())
	assert.Equal(t, []string{"product", "units"}, ds.ColumnNames())

	units, _ := ds.Column("units")
	assert.Equal(t, dataset.KindInteger, units.Kind)
	assert.Equal(t, []float64{12, 7}, units.Floats())
}

func TestLoadExcelNamedSheet(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet("metrics")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("metrics", "A1", &[]interface{}{"k", "v"}))
	require.NoError(t, f.SetSheetRow("metrics", "A2", &[]interface{}{"a", 1}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	l := New(nil)
	ds, err := l.LoadExcel(context.Background(), buf, "metrics")
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Rows())
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want dataset.Kind
	}{
		{name: "integers", raw: []string{"1", "2", "30"}, want: dataset.KindInteger},
		{name: "floats", raw: []string{"1.5", "2", "3.25"}, want: dataset.KindFloat},
		{name: "booleans", raw: []string{"true", "FALSE", "true"}, want: dataset.KindBoolean},
		{name: "text", raw: []string{"abc", "1"}, want: dataset.KindText},
		{name: "integers with missing", raw: []string{"1", "NA", "3"}, want: dataset.KindInteger},
		{name: "all missing", raw: []string{"", "null", "NaN"}, want: dataset.KindText},
		{name: "grouped thousands", raw: []string{"1,200", "3,400"}, want: dataset.KindInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferKind(tt.raw))
		})
	}
}

func TestRenderRow(t *testing.T) {
	got := renderRow([]interface{}{"text", 12.5, true, nil, 3})
	assert.Equal(t, []string{"text", "12.5", "true", "", "3"}, got)
}
