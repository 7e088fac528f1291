package normalize

import (
	"plaudit/internal/config"
	"plaudit/pkg/contracts/domain"
)

// Rule is one named normalization step. A rule without an executor is
// declared for the record but can never run.
type Rule struct {
	Name        string
	Description string
	apply       func(rc *ruleContext, in *domain.TypedTable) ruleResult
}

// Executable reports whether the rule has an implementation.
func (r Rule) Executable() bool {
	return r.apply != nil
}

// ruleContext carries the per-sheet inputs a rule may need.
type ruleContext struct {
	grid      domain.RawGrid
	placement domain.HeaderPlacement
	numeric   map[string]bool
	renames   map[string]string
}

// ruleResult is the table a rule produced plus what it did to column names
// and types, used to validate the transition.
type ruleResult struct {
	table     *domain.TypedTable
	renamed   map[string]string
	converted map[string]bool
	notes     []string
}

// Catalog returns every declared rule in execution order.
func Catalog() []Rule {
	return []Rule{
		{
			Name:        config.RuleTypeConversion,
			Description: "Convert allow-listed columns to exact numbers; unparseable values become null",
			apply:       convertTypes,
		},
		{
			Name:        config.RuleRounding,
			Description: "Round numeric values to cents",
		},
		{
			Name:        config.RuleCheckValueHandling,
			Description: "Replace spreadsheet check values with nulls",
		},
		{
			Name:        config.RuleRename,
			Description: "Rename columns through the static rename table",
			apply:       renameColumns,
		},
		{
			Name:        config.RulePreservation,
			Description: "Keep every non-allow-listed column exactly as read",
			apply:       preserveColumns,
		},
	}
}

func cloneRows(rows []domain.Record) []domain.Record {
	out := make([]domain.Record, len(rows))
	for i, r := range rows {
		out[i] = append(domain.Record(nil), r...)
	}
	return out
}

func cloneColumns(cols []domain.Column) []domain.Column {
	return append([]domain.Column(nil), cols...)
}

func convertTypes(rc *ruleContext, in *domain.TypedTable) ruleResult {
	cols := cloneColumns(in.Columns)
	rows := cloneRows(in.Rows)
	converted := make(map[string]bool)

	for i, c := range cols {
		if !rc.numeric[c.Name] || c.Type == domain.ColumnNumeric {
			continue
		}
		cols[i].Type = domain.ColumnNumeric
		converted[c.Name] = true
		for r := range rows {
			cell := rc.grid.At(rc.placement.DataStartRow()+r, i)
			d, ok := ParseNumeric(cell)
			if !ok {
				rows[r][i] = domain.Null()
				continue
			}
			v := domain.Number(d)
			v.Source = cell.Kind
			rows[r][i] = v
		}
	}

	return ruleResult{
		table:     domain.NewTypedTable(in.Source, in.SheetID, cols, rows),
		converted: converted,
	}
}

func renameColumns(rc *ruleContext, in *domain.TypedTable) ruleResult {
	cols := cloneColumns(in.Columns)
	renamed := make(map[string]string)

	taken := make(map[string]bool, len(cols))
	for _, c := range cols {
		taken[c.Name] = true
	}
	var notes []string
	for i, c := range cols {
		to, ok := rc.renames[c.Name]
		if !ok || to == c.Name {
			continue
		}
		if taken[to] {
			notes = append(notes, "rename of "+c.Name+" to "+to+" skipped: name already in use")
			continue
		}
		delete(taken, c.Name)
		taken[to] = true
		cols[i].Name = to
		renamed[c.Name] = to
	}

	return ruleResult{
		table:   domain.NewTypedTable(in.Source, in.SheetID, cols, cloneRows(in.Rows)),
		renamed: renamed,
		notes:   notes,
	}
}

// preserveColumns leaves the table untouched; the validator then compares the
// raw columns with the grid cell by cell.
func preserveColumns(rc *ruleContext, in *domain.TypedTable) ruleResult {
	return ruleResult{
		table: domain.NewTypedTable(in.Source, in.SheetID, cloneColumns(in.Columns), cloneRows(in.Rows)),
	}
}
