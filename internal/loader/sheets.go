package loader

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"tabsight/internal/dataset"
	apperrors "tabsight/internal/errors"
)

// SheetsClient reads spreadsheet ranges into datasets through the Google
// Sheets API. It shares the loader's inference pipeline, so a shared sheet
// behaves exactly like an uploaded CSV.
type SheetsClient struct {
	loader  *Loader
	service *sheets.Service
}

// NewSheetsClient authenticates with a service account credentials blob.
func NewSheetsClient(ctx context.Context, loader *Loader, credentialsJSON []byte) (*SheetsClient, error) {
	if len(credentialsJSON) == 0 {
		return nil, apperrors.NewConfigError("sheets credentials are empty", nil)
	}
	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to create sheets service", err)
	}
	return &SheetsClient{loader: loader, service: service}, nil
}

// NewSheetsClientWithAPIKey authenticates with an API key, enough for
// reading public spreadsheets.
func NewSheetsClientWithAPIKey(ctx context.Context, loader *Loader, apiKey string) (*SheetsClient, error) {
	if apiKey == "" {
		return nil, apperrors.NewConfigError("sheets API key is empty", nil)
	}
	service, err := sheets.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to create sheets service", err)
	}
	return &SheetsClient{loader: loader, service: service}, nil
}

// LoadSheet fetches the given range (for example "Sheet1!A1:F200") and
// converts it like any other record input: first row is the header, the
// rest are data rows.
func (c *SheetsClient) LoadSheet(ctx context.Context, spreadsheetID, readRange string) (*dataset.Dataset, error) {
	if spreadsheetID == "" {
		return nil, apperrors.NewAppValidationError("spreadsheet id is required")
	}

	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("failed to read spreadsheet %s", spreadsheetID), err)
	}
	if len(resp.Values) == 0 {
		return nil, apperrors.NewParsingError("spreadsheet range is empty", nil)
	}

	header := renderRow(resp.Values[0])
	records := make([][]string, 0, len(resp.Values)-1)
	for _, row := range resp.Values[1:] {
		records = append(records, renderRow(row))
		if c.loader.maxRows > 0 && len(records) > c.loader.maxRows {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("row count exceeds limit of %d", c.loader.maxRows))
		}
	}
	return c.loader.fromRecords(header, records)
}

// renderRow flattens the API's loosely typed cells to raw strings for the
// shared inference pipeline.
func renderRow(row []interface{}) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		switch v := cell.(type) {
		case string:
			out[i] = v
		case float64:
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[i] = strconv.FormatBool(v)
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
