package schema

import (
	"fmt"

	"plaudit/internal/config"
	apperrors "plaudit/internal/errors"
	"plaudit/pkg/contracts/domain"
)

// Options tunes header detection.
type Options struct {
	ScanRows        int
	NonNullRatio    float64
	TextRatio       float64
	MetadataMarkers []string
}

// DefaultOptions returns the standard detection parameters.
func DefaultOptions() Options {
	return Options{
		ScanRows:        config.HeaderScanRows,
		NonNullRatio:    config.HeaderNonNullRatio,
		TextRatio:       config.HeaderTextRatio,
		MetadataMarkers: append([]string(nil), config.DefaultMetadataMarkers...),
	}
}

// OptionsFrom builds detection options from the analysis configuration.
func OptionsFrom(cfg config.AnalysisConfig) Options {
	opts := DefaultOptions()
	if cfg.HeaderScanRows > 0 {
		opts.ScanRows = cfg.HeaderScanRows
	}
	if cfg.MetadataMarkers != nil {
		opts.MetadataMarkers = cfg.MetadataMarkers
	}
	return opts
}

// IsLikelyHeaderRow reports whether row qualifies as a header for a grid that
// is width columns wide. Both ratio boundaries are inclusive.
func IsLikelyHeaderRow(row []domain.Cell, width int, opts Options) bool {
	var nonNull []domain.Cell
	for _, c := range row {
		if !c.IsNull() {
			nonNull = append(nonNull, c)
		}
	}
	if len(nonNull) == 0 || float64(len(nonNull)) < float64(width)*opts.NonNullRatio {
		return false
	}

	text := 0
	for _, c := range nonNull {
		if c.IsText() {
			text++
		}
	}
	if float64(text) < float64(len(nonNull))*opts.TextRatio {
		return false
	}

	for i, c := range nonNull {
		if i >= config.HeaderMarkerScan {
			break
		}
		for _, marker := range opts.MetadataMarkers {
			if c.Text() == marker {
				return false
			}
		}
	}
	return true
}

// DetectHeader returns the first row in the scan window that qualifies as a
// header, or row 0 as a documented fallback.
func DetectHeader(grid domain.RawGrid, opts Options) domain.HeaderPlacement {
	placement := domain.HeaderPlacement{SheetID: grid.Sheet}

	if grid.RowCount() < 2 {
		placement.Fallback = true
		placement.ConfidenceReasons = []string{
			fmt.Sprintf("Fallback: Using row 0 as header (sheet has %d row(s))", grid.RowCount()),
		}
		return placement
	}

	scan := min(opts.ScanRows, grid.RowCount())
	for idx := 0; idx < scan; idx++ {
		row := grid.Rows[idx]
		if !IsLikelyHeaderRow(row, grid.Width, opts) {
			continue
		}

		placement.HeaderRowIndex = idx
		placement.ConfidenceReasons = append(placement.ConfidenceReasons,
			fmt.Sprintf("Row %d identified as header: contains %d/%d non-null values", idx, countNonNull(row), grid.Width))

		if idx+1 < grid.RowCount() {
			if n := countNumeric(grid.Rows[idx+1]); n > 0 {
				placement.ConfidenceReasons = append(placement.ConfidenceReasons,
					fmt.Sprintf("Confirmed: Row %d contains %d numeric values (data row)", idx+1, n))
			}
		}
		return placement
	}

	placement.Fallback = true
	placement.ConfidenceReasons = []string{"Fallback: Using row 0 as header (no clear header detected)"}
	return placement
}

func countNonNull(row []domain.Cell) int {
	n := 0
	for _, c := range row {
		if !c.IsNull() {
			n++
		}
	}
	return n
}

func countNumeric(row []domain.Cell) int {
	n := 0
	for _, c := range row {
		if c.Kind == domain.CellNumber || c.Kind == domain.CellBool {
			n++
		}
	}
	return n
}

// Infer places the header and names the columns of one sheet. A layout spec
// may pin the header row and the column names; a pinned value always wins,
// and any disagreement with the inferred value is returned as a structural
// ambiguity diagnostic.
func Infer(grid domain.RawGrid, spec *config.SheetSpec, opts Options) (domain.HeaderPlacement, []domain.ColumnMapping, []domain.Diagnostic) {
	var diags []domain.Diagnostic
	placement := DetectHeader(grid, opts)

	if placement.Fallback {
		diags = append(diags, apperrors.NewStructuralAmbiguity(grid.Sheet,
			"no header row detected in scan window; row 0 used").Diagnostic())
	}

	if spec != nil && spec.HeaderRow != nil {
		configured := *spec.HeaderRow
		if configured != placement.HeaderRowIndex || placement.Fallback {
			msg := fmt.Sprintf("configured header row %d differs from inferred row %d", configured, placement.HeaderRowIndex)
			if placement.Fallback {
				msg = fmt.Sprintf("configured header row %d used; inference fell back to row 0", configured)
			}
			diags = append(diags, apperrors.NewStructuralAmbiguity(grid.Sheet, msg).Diagnostic())
			placement.ConfidenceReasons = append(placement.ConfidenceReasons, "Configured: "+msg)
		} else {
			placement.ConfidenceReasons = append(placement.ConfidenceReasons,
				fmt.Sprintf("Configured header row %d agrees with inference", configured))
		}
		placement.HeaderRowIndex = configured
		placement.Configured = true
		placement.Fallback = false
	}

	mappings := NormalizeColumnNames(HeaderLabels(grid, placement.HeaderRowIndex))

	if spec != nil && len(spec.Columns) > 0 {
		if len(spec.Columns) != len(mappings) {
			diags = append(diags, apperrors.NewStructuralAmbiguity(grid.Sheet,
				fmt.Sprintf("layout pins %d columns but sheet has %d; inferred names kept", len(spec.Columns), len(mappings))).Diagnostic())
		} else {
			for i := range mappings {
				if mappings[i].NormalizedName != spec.Columns[i] {
					diags = append(diags, apperrors.NewStructuralAmbiguity(grid.Sheet,
						fmt.Sprintf("column %d inferred as %q, layout names it %q", i, mappings[i].NormalizedName, spec.Columns[i])).Diagnostic())
				}
				mappings[i].NormalizedName = spec.Columns[i]
			}
		}
	}

	return placement, mappings, diags
}
