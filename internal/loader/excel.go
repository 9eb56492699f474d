package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"tabsight/internal/dataset"
	apperrors "tabsight/internal/errors"
)

func (l *Loader) loadExcel(ctx context.Context, r io.Reader) (*dataset.Dataset, error) {
	return l.LoadExcel(ctx, r, "")
}

// LoadExcel reads one worksheet into a dataset. An empty sheet name selects
// the workbook's first sheet. Leading rows with no content are skipped and
// the first non-empty row becomes the header.
func (l *Loader) LoadExcel(ctx context.Context, r io.Reader, sheet string) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open Excel workbook", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewParsingError("workbook has no sheets", nil)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}

	headerIdx := -1
	for i, row := range rows {
		if rowHasContent(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %q contains no data", sheet), nil)
	}

	l.logger.DebugContext(ctx, "excel sheet selected",
		slog.String("sheet", sheet),
		slog.Int("header_row", headerIdx),
		slog.Int("total_rows", len(rows)),
	)

	records := rows[headerIdx+1:]
	if l.maxRows > 0 && len(records) > l.maxRows {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("row count %d exceeds limit of %d", len(records), l.maxRows))
	}
	return l.fromRecords(rows[headerIdx], records)
}

func rowHasContent(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}
