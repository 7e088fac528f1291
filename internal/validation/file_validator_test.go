package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWorkbook(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("PK"), 0644))
		return path
	}

	tests := []struct {
		name          string
		path          string
		errorContains string
	}{
		{"xlsx", write("pnl.xlsx"), ""},
		{"upper case extension", write("PNL.XLSX"), ""},
		{"macro workbook", write("pnl.xlsm"), ""},
		{"missing", filepath.Join(dir, "absent.xlsx"), "absent.xlsx"},
		{"csv", write("pnl.csv"), "unsupported extension"},
		{"legacy xls", write("pnl.xls"), "unsupported extension"},
		{"lock file", write("~$pnl.xlsx"), "lock file"},
		{"directory", dir, "is a directory"},
	}

	v := NewFileValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateWorkbook(tt.path)
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errorContains)
		})
	}
}

func TestValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil)
	dir := filepath.Join(t.TempDir(), "outputs", "qc")

	require.NoError(t, v.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.Error(t, v.ValidateOutputDirectory(filepath.Join(file, "sub")))
}
