package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"plaudit/internal/config"
)

// Path prefixes selecting the output directory of a relative path.
const (
	qcPrefix       = "qc/"
	analysisPrefix = "analysis/"
)

// Writer writes CSV and workbook artifacts under the configured directories.
type Writer struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewWriter creates a new writer instance
func NewWriter(paths *config.Paths, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{paths: paths, logger: logger.With(slog.String("component", "exporter"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file, replacing any existing file, and returns
// the resolved path.
func (w *Writer) WriteCSV(ctx context.Context, filePath string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.InfoContext(ctx, "Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return "", fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush %s: %w", fullPath, err)
	}
	return fullPath, nil
}

// resolvePath resolves a path to the appropriate directory
func (w *Writer) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	switch {
	case strings.HasPrefix(filePath, qcPrefix):
		return w.paths.GetQCPath(strings.TrimPrefix(filePath, qcPrefix))
	case strings.HasPrefix(filePath, analysisPrefix):
		return w.paths.GetAnalysisPath(strings.TrimPrefix(filePath, analysisPrefix))
	default:
		return w.paths.GetAnalysisPath(filePath)
	}
}
