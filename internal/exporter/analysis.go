package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"plaudit/pkg/contracts/domain"
)

var flagHeaders = []string{"flag_id", "area", "description", "evidence", "materiality"}

// WriteFlagRegister writes the flag register into the analysis directory.
func (w *Writer) WriteFlagRegister(ctx context.Context, flags []domain.Flag) (string, error) {
	records := make([][]string, 0, len(flags))
	for _, f := range flags {
		records = append(records, []string{f.ID, f.Area, f.Description, f.Evidence, string(f.Materiality)})
	}
	return w.WriteCSV(ctx, analysisPrefix+FileFlagRegister, WriteOptions{
		Headers:   flagHeaders,
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteAggregatesWorkbook writes one sheet per table, in order, into the
// analysis directory. Money values are written as numbers.
func (w *Writer) WriteAggregatesWorkbook(ctx context.Context, tables []domain.AggregateTable) (string, error) {
	if len(tables) == 0 {
		return "", errors.New("no aggregate tables to write")
	}
	fullPath := w.resolvePath(analysisPrefix + FileAggregateWorkbook)

	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), t.Name); err != nil {
				return "", fmt.Errorf("rename sheet %s: %w", t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return "", fmt.Errorf("create sheet %s: %w", t.Name, err)
		}
		if err := writeTable(f, t); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("save %s: %w", fullPath, err)
	}

	w.logger.InfoContext(ctx, "Wrote aggregates workbook",
		slog.String("full_path", fullPath),
		slog.Int("sheet_count", len(tables)))
	return fullPath, nil
}

func writeTable(f *excelize.File, t domain.AggregateTable) error {
	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %s: %w", t.Name, err)
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = cellValue(v)
		}
		if err := f.SetSheetRow(t.Name, cell, &values); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i, t.Name, err)
		}
	}
	return nil
}

// cellValue converts decimals to float64; excelize writes other values as is.
func cellValue(v any) any {
	switch d := v.(type) {
	case decimal.Decimal:
		return d.InexactFloat64()
	case *decimal.Decimal:
		if d == nil {
			return nil
		}
		return d.InexactFloat64()
	default:
		return v
	}
}
