package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tabsight/internal/config"
	"tabsight/internal/dataset"
	"tabsight/internal/engine"
	"tabsight/internal/loader"
	"tabsight/internal/report"
	"tabsight/internal/validation"
)

func main() {
	in := flag.String("in", "", "input dataset file (csv, xlsx or json)")
	sheet := flag.String("sheet", "", "Google Sheets spreadsheet id to analyze instead of a local file")
	sheetRange := flag.String("range", "Sheet1", "A1 range to read when -sheet is set")
	out := flag.String("out", "", "output directory for the report (defaults to data/reports)")
	format := flag.String("format", "json", "report format: json | csv | markdown")
	threshold := flag.Float64("threshold", engine.DefaultCorrelationThreshold, "minimum absolute correlation to report, in [0,1]")
	maxCategories := flag.Int("max-categories", engine.DefaultMaxCategories, "maximum distinct values for a chartable categorical column")
	flag.Parse()

	if (*in == "") == (*sheet == "") {
		fmt.Fprintln(os.Stderr, "usage: analyze -in dataset.csv | -sheet spreadsheetID [-range Sheet1!A1:F100] [-out dir] [-format json|csv|markdown] [-threshold 0.3] [-max-categories 10]")
		os.Exit(2)
	}

	reportFormat := report.Format(*format)
	if !reportFormat.IsValid() {
		slog.Error("Unsupported report format", "format", *format, "supported", "json, csv, markdown")
		os.Exit(2)
	}

	// Initialize paths first to get default directories
	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	// Use the centralized reports directory as default if not specified
	useDefaultOut := *out == ""
	if useDefaultOut {
		*out = paths.ReportsDir
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger := slog.Default()

	logger.Info("Starting dataset analysis",
		slog.String("input", *in),
		slog.String("sheet", *sheet),
		slog.String("output_dir", *out),
		slog.String("format", *format))

	validator := validation.NewFileValidator(logger)
	if *in != "" {
		if err := validator.ValidateInputFile(*in); err != nil {
			slog.Error("Input validation failed", "error", err)
			os.Exit(1)
		}
	}
	if err := validator.ValidateOutputDirectory(*out); err != nil {
		slog.Error("Output validation failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Load the dataset
	ld := loader.New(logger,
		loader.WithMaxRows(cfg.Loader.MaxRows),
		loader.WithMaxBytes(cfg.Loader.MaxBytes))
	var ds *dataset.Dataset
	if *sheet != "" {
		ds, err = loadFromSheet(ctx, cfg, ld, *sheet, *sheetRange)
	} else {
		ds, err = ld.Load(ctx, *in)
	}
	if err != nil {
		slog.Error("Failed to load dataset", "path", *in, "sheet", *sheet, "error", err)
		os.Exit(1)
	}
	logger.Info("Loaded dataset",
		slog.Int("rows", ds.Rows()),
		slog.Int("columns", len(ds.Columns())))

	// Run the analysis
	opts := engine.DefaultOptions()
	opts.CorrelationThreshold = *threshold
	opts.MaxCategories = *maxCategories
	if cfg.Engine.DatetimeSampleSize > 0 {
		opts.DatetimeSampleSize = cfg.Engine.DatetimeSampleSize
	}

	eng, err := engine.New(opts, logger)
	if err != nil {
		slog.Error("Invalid analysis parameters", "error", err)
		os.Exit(2)
	}

	rep, err := report.NewBuilder(eng, logger).Build(ctx, ds)
	if err != nil {
		slog.Error("Analysis failed", "error", err)
		os.Exit(1)
	}

	// Save the report next to any earlier runs, stamped with the date
	base := *sheet
	if *in != "" {
		base = strings.TrimSuffix(filepath.Base(*in), filepath.Ext(*in))
	}
	name := base + "_report"
	var outputPath string
	if useDefaultOut {
		outputPath = paths.GetDatedReportPath(name, time.Now(), extensionFor(reportFormat))
	} else {
		filename := fmt.Sprintf("%s_%s.%s", name, time.Now().Format("20060102"), extensionFor(reportFormat))
		outputPath = filepath.Join(*out, filename)
	}

	writer := report.NewWriter(logger)
	if err := writer.Save(outputPath, rep, reportFormat); err != nil {
		slog.Error("Failed to save report", "path", outputPath, "error", err)
		os.Exit(1)
	}

	logger.Info("Report generated successfully",
		slog.String("report", outputPath),
		slog.Int("columns", len(rep.ColumnTypes)),
		slog.Int("recommendations", len(rep.Recommendations)))

	printSummary(rep)
}

// loadFromSheet fetches the requested range through the Google Sheets API
// using the service-account credentials file from the configuration.
func loadFromSheet(ctx context.Context, cfg *config.Config, ld *loader.Loader, spreadsheetID, readRange string) (*dataset.Dataset, error) {
	credsPath := cfg.GetSheetsCredentialsFile()
	creds, err := os.ReadFile(credsPath)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials %q: %w", credsPath, err)
	}
	client, err := loader.NewSheetsClient(ctx, ld, creds)
	if err != nil {
		return nil, err
	}
	return client.LoadSheet(ctx, spreadsheetID, readRange)
}

// extensionFor maps a report format to its file extension.
func extensionFor(f report.Format) string {
	if f == report.FormatMarkdown {
		return "md"
	}
	return string(f)
}

// printSummary writes a human-readable digest of the analysis to stdout.
func printSummary(rep *report.Report) {
	fmt.Printf("\n=== DATASET OVERVIEW ===\n")
	fmt.Printf("Rows: %d  Columns: %d\n", rep.Overview.Rows, rep.Overview.Columns)

	fmt.Printf("\n=== COLUMN TYPES ===\n")
	for _, ct := range rep.ColumnTypes {
		fmt.Printf("%-24s %s\n", ct.Column, ct.Type)
	}

	if len(rep.Correlations) > 0 {
		fmt.Printf("\n=== CORRELATIONS ===\n")
		for _, pair := range rep.Correlations {
			marker := " "
			if pair.Important {
				marker = "*"
			}
			fmt.Printf("%s %-20s %-20s %+.3f\n", marker, pair.ColumnA, pair.ColumnB, pair.Coefficient)
		}
	}

	if len(rep.Recommendations) > 0 {
		fmt.Printf("\n=== RECOMMENDED VISUALIZATIONS ===\n")
		for _, rec := range rep.Recommendations {
			fmt.Printf("%-20s %s\n", rec.Category, strings.Join(rec.Columns, ", "))
		}
	}
}
