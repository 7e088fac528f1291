package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// workbookExtensions are the spreadsheet formats the reader can open.
var workbookExtensions = []string{".xlsx", ".xlsm", ".xltx", ".xltm"}

// FileValidator checks input workbooks and output directories before a run
// touches them.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "validation")),
	}
}

// ValidateWorkbook checks that path is a readable workbook file. Office lock
// files ("~$name.xlsx") are rejected.
func (v *FileValidator) ValidateWorkbook(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		v.logger.Error("Workbook not accessible",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("workbook %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("workbook %s is a directory", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !contains(workbookExtensions, ext) {
		v.logger.Error("Unsupported workbook format",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("workbook %s has unsupported extension %q", path, ext)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("workbook %s is an Office lock file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("workbook %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("Workbook validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory creates dir when needed and checks that it is
// writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
