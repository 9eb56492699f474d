package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "tabsight/internal/errors"
	"tabsight/internal/loader"
)

// FileValidator provides dataset file validation shared by the upload
// handler and the CLI
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateUpload checks an uploaded file's name and declared size before
// any bytes are parsed. maxSize of zero means unlimited.
func (v *FileValidator) ValidateUpload(filename string, size, maxSize int64) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("upload has no filename: %w", apperrors.ErrUnsupportedFormat)
	}

	if strings.ContainsAny(filename, `/\`) {
		v.logger.Warn("Upload filename contains path separators",
			slog.String("filename", filename))
		return apperrors.NewAppValidationError(
			fmt.Sprintf("filename %q must not contain path separators", filename))
	}

	// Office lock files sometimes land in upload forms
	if strings.HasPrefix(filename, "~$") {
		v.logger.Warn("Rejecting temporary Excel file",
			slog.String("filename", filename))
		return apperrors.NewAppValidationError(
			fmt.Sprintf("file %s is a temporary Excel file", filename))
	}

	if _, err := loader.FormatForPath(filename); err != nil {
		v.logger.Warn("Upload has unsupported extension",
			slog.String("filename", filename),
			slog.String("extension", filepath.Ext(filename)))
		return err
	}

	if size <= 0 {
		v.logger.Warn("Upload is empty",
			slog.String("filename", filename))
		return fmt.Errorf("file %s has no content: %w", filename, apperrors.ErrDatasetEmpty)
	}

	if maxSize > 0 && size > maxSize {
		v.logger.Warn("Upload exceeds size limit",
			slog.String("filename", filename),
			slog.Int64("size", size),
			slog.Int64("max_size", maxSize))
		return fmt.Errorf("file %s is %d bytes, limit is %d: %w",
			filename, size, maxSize, apperrors.ErrDatasetTooLarge)
	}

	v.logger.Debug("Upload validated",
		slog.String("filename", filename),
		slog.Int64("size", size))
	return nil
}

// ValidateInputFile checks that a local dataset file exists, is readable
// and carries a supported extension
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("Input file does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat input file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Input path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	if _, err := loader.FormatForPath(path); err != nil {
		v.logger.Error("Input file has unsupported extension",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return err
	}

	// Check if file is readable by opening it
	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Input file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("Input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures the report directory exists or can be
// created, and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	// Try to create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Info("Output directory validated",
		slog.String("directory", dir))
	return nil
}
