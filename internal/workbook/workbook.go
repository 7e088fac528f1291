// Package workbook is the ingestion boundary: it opens xlsx files and turns
// each sheet into an untyped RawGrid whose cells keep their stored kind.
package workbook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"plaudit/internal/config"
	apperrors "plaudit/internal/errors"
	"plaudit/internal/validation"
	"plaudit/pkg/contracts/domain"
)

// Workbook is an open source workbook.
type Workbook struct {
	Source string
	Path   string
	file   *excelize.File
}

// Open opens the workbook at path. Any failure is a missing input.
func Open(source, path string) (*Workbook, error) {
	if err := validation.NewFileValidator(nil).ValidateWorkbook(path); err != nil {
		return nil, apperrors.NewMissingInputError(source, "", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewMissingInputError(source, "", fmt.Errorf("failed to open file: %w", err))
	}
	return &Workbook{Source: source, Path: path, file: f}, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames returns sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// HasSheet reports whether the workbook contains a sheet.
func (w *Workbook) HasSheet(name string) bool {
	idx, err := w.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// ReadSheet reads one sheet into a grid. Cell values are unformatted; the cell
// kind comes from the stored cell type, so numbers held as text stay text.
func (w *Workbook) ReadSheet(name string) (domain.RawGrid, error) {
	if !w.HasSheet(name) {
		return domain.RawGrid{}, apperrors.NewMissingInputError(w.Source, name, nil)
	}

	rows, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.RawGrid{}, apperrors.NewMissingInputError(w.Source, name, err)
	}

	cells := make([][]domain.Cell, len(rows))
	for r, row := range rows {
		cells[r] = make([]domain.Cell, len(row))
		for c, raw := range row {
			if raw == "" {
				cells[r][c] = domain.EmptyCell()
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return domain.RawGrid{}, fmt.Errorf("sheet %q: %w", name, err)
			}
			cellType, err := w.file.GetCellType(name, axis)
			if err != nil {
				return domain.RawGrid{}, fmt.Errorf("sheet %q cell %s: %w", name, axis, err)
			}
			cells[r][c] = classify(cellType, raw)
		}
	}

	return domain.NewRawGrid(w.Source, name, cells), nil
}

// classify maps an excelize cell type to a cell kind. Cells without a type
// attribute hold numbers, including formula results.
func classify(cellType excelize.CellType, raw string) domain.Cell {
	switch cellType {
	case excelize.CellTypeBool:
		return domain.Cell{Kind: domain.CellBool, Raw: raw}
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if _, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return domain.NumberCell(raw)
		}
		return domain.TextCell(raw)
	default:
		return domain.TextCell(raw)
	}
}

// ReadAll opens every source, checks that the layout's required sheets exist
// and returns one grid per sheet, sources in order and sheets in workbook
// order. Missing required inputs abort with an error naming the file or sheet;
// an unreadable optional source or sheet is skipped and recorded.
//
// Sheet names are unique across sources. When two workbooks share a name the
// source the layout assigns the sheet to keeps it; otherwise the first source
// read keeps it. The other copy is dropped with a STRUCTURAL_AMBIGUITY
// diagnostic.
func ReadAll(ctx context.Context, sources []config.Source, layout config.Layout, logger *slog.Logger) ([]domain.RawGrid, []domain.Diagnostic, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := newCollector(layout, logger)

	for _, src := range sources {
		wb, err := Open(src.Label, src.Path)
		if err != nil {
			if !src.Required {
				logger.WarnContext(ctx, "optional input skipped",
					"source", src.Label, "path", src.Path, "error", err)
				continue
			}
			return nil, nil, err
		}

		err = c.collect(ctx, src.Label, wb)
		if cerr := wb.Close(); cerr != nil {
			logger.WarnContext(ctx, "failed to close workbook", "path", src.Path, "error", cerr)
		}
		if err != nil {
			return nil, nil, err
		}
	}

	return c.grids, c.diags, nil
}

// sheetReader is the part of a Workbook the collector reads from.
type sheetReader interface {
	SheetNames() []string
	HasSheet(name string) bool
	ReadSheet(name string) (domain.RawGrid, error)
}

// collector accumulates grids across sources, keeping sheet names unique.
type collector struct {
	layout config.Layout
	logger *slog.Logger
	grids  []domain.RawGrid
	diags  []domain.Diagnostic
	index  map[string]int
}

func newCollector(layout config.Layout, logger *slog.Logger) *collector {
	return &collector{layout: layout, logger: logger, index: make(map[string]int)}
}

// collect reads every sheet of one source. Only a missing or unreadable
// required sheet is an error.
func (c *collector) collect(ctx context.Context, source string, r sheetReader) error {
	required := c.layout.RequiredSheets(source)
	for _, sheet := range required {
		if !r.HasSheet(sheet) {
			return apperrors.NewMissingInputError(source, sheet, nil)
		}
	}

	for _, name := range r.SheetNames() {
		grid, err := r.ReadSheet(name)
		if err != nil {
			if contains(required, name) {
				if apperrors.IsMissingInput(err) {
					return err
				}
				return apperrors.NewMissingInputError(source, name, err)
			}
			c.logger.WarnContext(ctx, "unreadable sheet skipped",
				"source", source, "sheet", name, "error", err)
			c.diags = append(c.diags, apperrors.NewStructuralAmbiguity(name,
				fmt.Sprintf("sheet skipped in %s: %v", source, err)).Diagnostic())
			continue
		}

		if i, dup := c.index[name]; dup {
			kept, dropped := c.grids[i].Source, source
			if spec, ok := c.layout.Sheet(name); ok && spec.Source == source {
				kept, dropped = source, c.grids[i].Source
				c.grids[i] = grid
			}
			c.logger.WarnContext(ctx, "duplicate sheet name",
				"sheet", name, "kept", kept, "dropped", dropped)
			c.diags = append(c.diags, apperrors.NewStructuralAmbiguity(name,
				fmt.Sprintf("sheet also present in %s; kept the %s copy", dropped, kept)).Diagnostic())
			continue
		}

		c.logger.InfoContext(ctx, "sheet read",
			"source", source, "sheet", name,
			"rows", grid.RowCount(), "cols", grid.Width)
		c.index[name] = len(c.grids)
		c.grids = append(c.grids, grid)
	}
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
