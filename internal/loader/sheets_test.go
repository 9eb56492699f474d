package loader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"tabsight/internal/dataset"
	apperrors "tabsight/internal/errors"
)

// sheetsClientForTest points the Sheets service at a local server so
// LoadSheet runs against canned API responses.
func sheetsClientForTest(t *testing.T, ld *Loader, body string) *SheetsClient {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication())
	require.NoError(t, err)

	return &SheetsClient{loader: ld, service: svc}
}

func TestLoadSheet(t *testing.T) {
	body := `{
		"range": "Sheet1!A1:C4",
		"majorDimension": "ROWS",
		"values": [
			["city", "price", "in_stock"],
			["Paris", 12.5, true],
			["Lyon", "8", false],
			["Nice", null, true]
		]
	}`
	client := sheetsClientForTest(t, New(nil), body)

	ds, err := client.LoadSheet(context.Background(), "sheet-id", "Sheet1!A1:C4")
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"city", "price", "in_stock"}, ds.ColumnNames())

	price, ok := ds.Column("price")
	require.True(t, ok)
	assert.Equal(t, dataset.KindFloat, price.Kind)
	assert.True(t, price.Values[2].IsMissing(), "null cells become missing")

	stock, ok := ds.Column("in_stock")
	require.True(t, ok)
	assert.Equal(t, dataset.KindBoolean, stock.Kind)
}

func TestLoadSheetEmptyRange(t *testing.T) {
	client := sheetsClientForTest(t, New(nil), `{"range": "Sheet1", "values": []}`)

	_, err := client.LoadSheet(context.Background(), "sheet-id", "Sheet1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)
}

func TestLoadSheetRequiresSpreadsheetID(t *testing.T) {
	client := sheetsClientForTest(t, New(nil), `{}`)

	_, err := client.LoadSheet(context.Background(), "", "Sheet1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
}

func TestLoadSheetRowLimit(t *testing.T) {
	body := `{
		"values": [
			["n"],
			["1"],
			["2"],
			["3"]
		]
	}`
	client := sheetsClientForTest(t, New(nil, WithMaxRows(2)), body)

	_, err := client.LoadSheet(context.Background(), "sheet-id", "Sheet1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row count exceeds limit")
}

func TestNewSheetsClientRequiresCredentials(t *testing.T) {
	_, err := NewSheetsClient(context.Background(), New(nil), nil)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeConfig, appErr.Type)
}
