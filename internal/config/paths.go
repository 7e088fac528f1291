package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains every file the pipeline writes.
type Paths struct {
	QCDir       string
	AnalysisDir string
	LogsDir     string
	MetricsFile string
}

// GetPaths resolves output paths from the configuration.
func (c *Config) GetPaths() *Paths {
	p := &Paths{
		QCDir:       c.Output.QCDir,
		AnalysisDir: c.Output.AnalysisDir,
		MetricsFile: c.Output.MetricsFile,
	}
	if c.Logging.FilePath != "" {
		p.LogsDir = filepath.Dir(c.Logging.FilePath)
	}
	return p
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{p.QCDir, p.AnalysisDir}
	if p.LogsDir != "" {
		directories = append(directories, p.LogsDir)
	}
	if p.MetricsFile != "" {
		directories = append(directories, filepath.Dir(p.MetricsFile))
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetQCPath returns the path of a QC artifact
func (p *Paths) GetQCPath(filename string) string {
	return filepath.Join(p.QCDir, filename)
}

// GetAnalysisPath returns the path of an analysis artifact
func (p *Paths) GetAnalysisPath(filename string) string {
	return filepath.Join(p.AnalysisDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
