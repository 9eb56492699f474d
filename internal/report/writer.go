package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Format selects a report output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// IsValid reports whether the format is one this package can render.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatMarkdown:
		return true
	}
	return false
}

// Writer persists reports to streams and files.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a report writer.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger.With(slog.String("component", "report_writer"))}
}

// Write renders the report in the requested format.
func (w *Writer) Write(out io.Writer, r *Report, format Format) error {
	switch format {
	case FormatJSON:
		return w.WriteJSON(out, r)
	case FormatCSV:
		return w.WriteCSV(out, r)
	case FormatMarkdown:
		return w.WriteMarkdown(out, r)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// Save writes the report to a file, creating parent directories as needed.
func (w *Writer) Save(path string, r *Report, format Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := w.Write(file, r, format); err != nil {
		return err
	}
	w.logger.Info("report saved",
		slog.String("path", path),
		slog.String("format", string(format)),
	)
	return nil
}

// WriteJSON renders the full report as indented JSON.
func (w *Writer) WriteJSON(out io.Writer, r *Report) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV renders a per-column grid with a UTF-8 BOM so Excel opens it
// cleanly. Correlations and recommendations do not fit a column grid and
// are carried only by the JSON and Markdown formats.
func (w *Writer) WriteCSV(out io.Writer, r *Report) error {
	if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	missingByColumn := make(map[string]MissingValues, len(r.MissingValues))
	for _, m := range r.MissingValues {
		missingByColumn[m.Column] = m
	}
	summaryByColumn := make(map[string]NumericSummary, len(r.Summaries))
	for _, s := range r.Summaries {
		summaryByColumn[s.Column] = s
	}
	outliersByColumn := make(map[string]int, len(r.Outliers))
	for _, o := range r.Outliers {
		outliersByColumn[o.Column] = o.Count
	}

	cw := csv.NewWriter(out)
	header := []string{
		"column", "type", "storage", "missing", "missing_pct",
		"count", "mean", "median", "std", "min", "max", "mode", "outliers",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, ct := range r.ColumnTypes {
		record := []string{ct.Column, string(ct.Type), ct.Storage, "0", "0.00", "", "", "", "", "", "", "", ""}
		if m, ok := missingByColumn[ct.Column]; ok {
			record[3] = fmt.Sprintf("%d", m.Count)
			record[4] = formatFloat(m.Percent)
		}
		if s, ok := summaryByColumn[ct.Column]; ok {
			record[5] = fmt.Sprintf("%d", s.Count)
			record[6] = formatFloat(s.Mean)
			record[7] = formatFloat(s.Median)
			record[8] = formatFloat(s.Std)
			record[9] = formatFloat(s.Min)
			record[10] = formatFloat(s.Max)
			record[11] = formatFloat(s.Mode)
			record[12] = fmt.Sprintf("%d", outliersByColumn[ct.Column])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write record for %s: %w", ct.Column, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteMarkdown renders a human-readable report document.
func (w *Writer) WriteMarkdown(out io.Writer, r *Report) error {
	var b strings.Builder

	b.WriteString("# Dataset Report\n\n")
	b.WriteString(fmt.Sprintf("Generated %s\n\n", r.Overview.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	b.WriteString("## Dataset Overview\n\n")
	b.WriteString(fmt.Sprintf("- Rows: %d\n", r.Overview.Rows))
	b.WriteString(fmt.Sprintf("- Columns: %d\n\n", r.Overview.Columns))

	b.WriteString("## Column Types\n\n")
	b.WriteString("| Column | Type | Storage |\n|---|---|---|\n")
	for _, ct := range r.ColumnTypes {
		b.WriteString(fmt.Sprintf("| %s | %s | %s |\n", ct.Column, ct.Type, ct.Storage))
	}
	b.WriteString("\n")

	if len(r.MissingValues) > 0 {
		b.WriteString("## Missing Values\n\n")
		b.WriteString("| Column | Missing | Percent |\n|---|---|---|\n")
		for _, m := range r.MissingValues {
			b.WriteString(fmt.Sprintf("| %s | %d | %s%% |\n", m.Column, m.Count, formatFloat(m.Percent)))
		}
		b.WriteString("\n")
	}

	if len(r.Summaries) > 0 {
		b.WriteString("## Numerical Summaries\n\n")
		b.WriteString("| Column | Count | Mean | Median | Std | Min | Max | Mode |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|\n")
		for _, s := range r.Summaries {
			b.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s | %s | %s | %s |\n",
				s.Column, s.Count,
				formatFloat(s.Mean), formatFloat(s.Median), formatFloat(s.Std),
				formatFloat(s.Min), formatFloat(s.Max), formatFloat(s.Mode)))
		}
		b.WriteString("\n")
	}

	if len(r.Outliers) > 0 {
		b.WriteString("## Outliers\n\n")
		for _, o := range r.Outliers {
			b.WriteString(fmt.Sprintf("- %s: %d value(s)", o.Column, o.Count))
			if len(o.Values) > 0 {
				parts := make([]string, len(o.Values))
				for i, v := range o.Values {
					parts[i] = formatFloat(v)
				}
				b.WriteString(": " + strings.Join(parts, ", "))
				if o.Count > len(o.Values) {
					b.WriteString(", ...")
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(r.Correlations) > 0 {
		b.WriteString("## Correlations\n\n")
		b.WriteString("| Column A | Column B | Coefficient |\n|---|---|---|\n")
		for _, p := range r.Correlations {
			b.WriteString(fmt.Sprintf("| %s | %s | %s |\n", p.ColumnA, p.ColumnB, formatFloat(p.Coefficient)))
		}
		b.WriteString("\n")
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("## Recommended Visualizations\n\n")
		for _, rec := range r.Recommendations {
			b.WriteString(fmt.Sprintf("- **%s**: %s\n", rec.Category, strings.Join(rec.Columns, ", ")))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(out, b.String())
	return err
}

// formatFloat renders a value with exactly 2 decimal places so 13.4
// appears as 13.40 across report rows.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
