package app

import (
	"context"

	"plaudit/internal/config"
	"plaudit/internal/schema"
	"plaudit/internal/workbook"
	"plaudit/pkg/contracts/domain"
)

// SheetInspection is the schema inference result for one sheet.
type SheetInspection struct {
	Source      string                 `json:"source"`
	Sheet       string                 `json:"sheet"`
	Rows        int                    `json:"rows"`
	Columns     int                    `json:"columns"`
	Placement   domain.HeaderPlacement `json:"placement"`
	Mappings    []domain.ColumnMapping `json:"mappings"`
	Diagnostics []domain.Diagnostic    `json:"diagnostics,omitempty"`
}

// Inspect runs header detection and column naming on every sheet of one
// workbook without normalizing anything. Sheets named by the layout use their
// pinned header row and columns.
func Inspect(ctx context.Context, path string, layout config.Layout, opts schema.Options) ([]SheetInspection, error) {
	wb, err := workbook.Open(config.SourcePnL, path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	var out []SheetInspection
	for _, name := range wb.SheetNames() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		grid, err := wb.ReadSheet(name)
		if err != nil {
			return nil, err
		}

		var spec *config.SheetSpec
		if s, ok := layout.Sheet(name); ok {
			spec = &s
		}
		placement, mappings, diags := schema.Infer(grid, spec, opts)
		out = append(out, SheetInspection{
			Source:      grid.Source,
			Sheet:       name,
			Rows:        grid.RowCount(),
			Columns:     grid.Width,
			Placement:   placement,
			Mappings:    mappings,
			Diagnostics: diags,
		})
	}
	return out, nil
}
