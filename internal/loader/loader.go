// Package loader turns raw tabular files into dataset snapshots. It owns
// format dispatch, header handling, missing-value markers and storage-kind
// inference; schema semantics stay with the analysis engine.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tabsight/internal/dataset"
	apperrors "tabsight/internal/errors"
)

// Format identifies a supported input format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
	FormatJSON  Format = "json"
)

// Loader reads files into datasets with configurable safety limits.
type Loader struct {
	logger   *slog.Logger
	maxRows  int
	maxBytes int64
}

// Option tunes a Loader.
type Option func(*Loader)

// WithMaxRows caps the number of data rows accepted per file. Zero means
// unlimited.
func WithMaxRows(n int) Option {
	return func(l *Loader) { l.maxRows = n }
}

// WithMaxBytes caps the raw input size. Zero means unlimited.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) { l.maxBytes = n }
}

// New builds a loader. A nil logger falls back to the default logger.
func New(logger *slog.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{
		logger: logger.With(slog.String("component", "loader")),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FormatForPath resolves the input format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatExcel, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads the file at path, dispatching on its extension.
func (l *Loader) Load(ctx context.Context, path string) (*dataset.Dataset, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	if l.maxBytes > 0 {
		info, err := f.Stat()
		if err == nil && info.Size() > l.maxBytes {
			return nil, fmt.Errorf("%w: %d bytes exceeds limit %d",
				apperrors.ErrDatasetTooLarge, info.Size(), l.maxBytes)
		}
	}

	return l.LoadReader(ctx, f, format)
}

// LoadReader reads a dataset from a stream in the given format.
func (l *Loader) LoadReader(ctx context.Context, r io.Reader, format Format) (*dataset.Dataset, error) {
	if l.maxBytes > 0 {
		r = io.LimitReader(r, l.maxBytes+1)
	}

	var (
		ds  *dataset.Dataset
		err error
	)
	switch format {
	case FormatCSV:
		ds, err = l.loadCSV(ctx, r)
	case FormatExcel:
		ds, err = l.loadExcel(ctx, r)
	case FormatJSON:
		ds, err = l.loadJSON(ctx, r)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("format", string(format)),
		slog.Int("rows", ds.Rows()),
		slog.Int("columns", len(ds.Columns())),
	)
	return ds, nil
}

func (l *Loader) loadCSV(ctx context.Context, r io.Reader) (*dataset.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.NewParsingError("CSV file is empty", nil)
	}
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read CSV header", err)
	}

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read CSV row", err)
		}
		records = append(records, record)
		if l.maxRows > 0 && len(records) > l.maxRows {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("row count exceeds limit of %d", l.maxRows))
		}
	}

	return l.fromRecords(header, records)
}

// fromRecords converts a header row plus raw string records into a typed
// dataset. Ragged rows are padded with missing cells; headers are cleaned
// so the dataset's uniqueness invariant holds.
func (l *Loader) fromRecords(header []string, records [][]string) (*dataset.Dataset, error) {
	if len(header) == 0 {
		return nil, apperrors.NewParsingError("no columns found in input", nil)
	}
	names := l.cleanHeader(header)

	columns := make([]*dataset.Column, len(names))
	for i, name := range names {
		raw := make([]string, len(records))
		for j, record := range records {
			if i < len(record) {
				raw[j] = record[i]
			}
		}
		kind := inferKind(raw)
		columns[i] = buildColumn(name, kind, raw)
	}

	ds, err := dataset.New(columns...)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to assemble dataset", err)
	}
	return ds, nil
}

// cleanHeader trims names, fills in blanks and deduplicates, warning on
// every rename so the caller can see what shifted.
func (l *Loader) cleanHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
			l.logger.Warn("blank header cell renamed", slog.Int("position", i+1), slog.String("name", name))
		}
		if n, dup := seen[name]; dup {
			renamed := fmt.Sprintf("%s_%d", name, n+1)
			l.logger.Warn("duplicate header renamed",
				slog.String("original", name),
				slog.String("renamed", renamed),
			)
			seen[name] = n + 1
			name = renamed
		}
		seen[name] = 1
		names[i] = name
	}
	return names
}
