package config

import "fmt"

// SheetRole tells downstream components what a sheet is used for.
type SheetRole string

const (
	RoleBenchmarks       SheetRole = "benchmarks"
	RoleSummary          SheetRole = "summary"
	RoleOpex             SheetRole = "opex"
	RoleCogs             SheetRole = "cogs"
	RoleHeadcount        SheetRole = "headcount"
	RoleRecurringRevenue SheetRole = "recurring_revenue"
	RolePSORevenue       SheetRole = "pso_revenue"
	RolePerpetualRevenue SheetRole = "perpetual_revenue"
	RoleReference        SheetRole = "reference"
)

// Well-known column names of the P&L workbook after normalization.
const (
	ColumnTotal       = "2018_total"
	ColumnBenchmark   = "benchmark"
	ColumnCategory    = "category"
	ColumnSummary     = "p_l_summary"
	ColumnFunctionL2  = "function_l2"
	ColumnDepartment  = "department"
	ColumnRevenueType = "type"
)

// SheetSpec is the declarative description of one sheet, consumed by both
// schema inference and the normalizer.
type SheetSpec struct {
	Name   string    `yaml:"name" validate:"required"`
	Source string    `yaml:"source" validate:"required"`
	Role   SheetRole `yaml:"role" validate:"required,oneof=benchmarks summary opex cogs headcount recurring_revenue pso_revenue perpetual_revenue reference"`

	// HeaderRow pins the header row. When nil the row is inferred.
	HeaderRow *int `yaml:"header_row,omitempty" validate:"omitempty,min=0"`
	// Columns pins the normalized column names. When empty they are derived
	// from the header row.
	Columns        []string `yaml:"columns,omitempty"`
	NumericColumns []string `yaml:"numeric_columns,omitempty"`
	Required       bool     `yaml:"required"`

	// Analysis bindings, expressed in post-rename column names.
	MeasureColumn     string `yaml:"measure_column,omitempty"`
	LabelColumn       string `yaml:"label_column,omitempty"`
	CategoryColumn    string `yaml:"category_column,omitempty"`
	SubcategoryColumn string `yaml:"subcategory_column,omitempty"`
}

// Profiled reports whether the sheet takes part in negative-value analysis.
func (s SheetSpec) Profiled() bool {
	switch s.Role {
	case RoleOpex, RoleCogs, RoleHeadcount, RoleRecurringRevenue, RolePSORevenue, RolePerpetualRevenue:
		return s.MeasureColumn != ""
	default:
		return false
	}
}

// ReconcileCheck declares one detail-versus-summary comparison. A check over
// several sheets compares the sum of their aggregates, which is how derived
// totals are verified against their own summary label.
type ReconcileCheck struct {
	Name         string   `yaml:"name" validate:"required"`
	Sheets       []string `yaml:"sheets" validate:"required,min=1"`
	Column       string   `yaml:"column" validate:"required"`
	Sign         string   `yaml:"sign" validate:"omitempty,oneof=all positive negative"`
	SummaryLabel string   `yaml:"summary_label" validate:"required"`
}

// Layout is the ordered sheet table plus the reconciliation checks.
type Layout struct {
	Sheets []SheetSpec      `yaml:"sheets" validate:"dive"`
	Checks []ReconcileCheck `yaml:"checks" validate:"dive"`
}

// Sheet returns the spec for a sheet name.
func (l Layout) Sheet(name string) (SheetSpec, bool) {
	for _, s := range l.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return SheetSpec{}, false
}

// ByRole returns the first sheet with the given role.
func (l Layout) ByRole(role SheetRole) (SheetSpec, bool) {
	for _, s := range l.Sheets {
		if s.Role == role {
			return s, true
		}
	}
	return SheetSpec{}, false
}

// RequiredSheets returns the names of sheets that must be present in a source.
func (l Layout) RequiredSheets(source string) []string {
	var names []string
	for _, s := range l.Sheets {
		if s.Source == source && s.Required {
			names = append(names, s.Name)
		}
	}
	return names
}

func (l Layout) validate() error {
	seen := make(map[string]bool, len(l.Sheets))
	for _, s := range l.Sheets {
		if seen[s.Name] {
			return fmt.Errorf("layout: sheet %q declared twice", s.Name)
		}
		seen[s.Name] = true
		if len(s.Columns) > 0 {
			names := make(map[string]bool, len(s.Columns))
			for _, c := range s.Columns {
				if names[c] {
					return fmt.Errorf("layout: sheet %q pins column %q twice", s.Name, c)
				}
				names[c] = true
			}
			for _, n := range s.NumericColumns {
				if !contains(s.Columns, n) {
					return fmt.Errorf("layout: sheet %q numeric column %q is not among its columns", s.Name, n)
				}
			}
		}
	}
	for _, c := range l.Checks {
		for _, name := range c.Sheets {
			if !seen[name] {
				return fmt.Errorf("layout: check %q references unknown sheet %q", c.Name, name)
			}
		}
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

func intPtr(v int) *int {
	return &v
}

// DefaultLayout describes the operational P&L workbook and the central
// finance roles workbook.
func DefaultLayout() Layout {
	detail := []string{"function_l1", "function_l2", "dept", "dept_1", "vendor", ColumnTotal}
	revenue := []string{"tier", ColumnRevenueType, "customer_name", ColumnTotal}
	revenueSheet := func(name string, role SheetRole) SheetSpec {
		return SheetSpec{
			Name: name, Source: SourcePnL, Role: role, HeaderRow: intPtr(2),
			Columns: revenue, NumericColumns: []string{ColumnTotal}, Required: true,
			MeasureColumn: ColumnTotal, CategoryColumn: ColumnRevenueType,
		}
	}

	return Layout{
		Sheets: []SheetSpec{
			{
				Name: "Benchmarks", Source: SourcePnL, Role: RoleBenchmarks, HeaderRow: intPtr(0),
				Columns: []string{ColumnCategory, ColumnBenchmark}, NumericColumns: []string{ColumnBenchmark},
				Required: true, LabelColumn: ColumnCategory, MeasureColumn: ColumnBenchmark,
			},
			{
				Name: "P&L Summary", Source: SourcePnL, Role: RoleSummary, HeaderRow: intPtr(0),
				Columns: []string{ColumnSummary, ColumnTotal}, NumericColumns: []string{ColumnTotal},
				Required: true, LabelColumn: ColumnSummary, MeasureColumn: ColumnTotal,
			},
			{
				Name: "OPEX - NEmpl.", Source: SourcePnL, Role: RoleOpex, HeaderRow: intPtr(1),
				Columns: detail, NumericColumns: []string{ColumnTotal}, Required: true,
				MeasureColumn: ColumnTotal, CategoryColumn: ColumnFunctionL2, SubcategoryColumn: ColumnDepartment,
			},
			{
				Name: "COGS - NEmpl.", Source: SourcePnL, Role: RoleCogs, HeaderRow: intPtr(1),
				Columns: detail, NumericColumns: []string{ColumnTotal}, Required: true,
				MeasureColumn: ColumnTotal, CategoryColumn: ColumnFunctionL2, SubcategoryColumn: ColumnDepartment,
			},
			{
				Name: "Empl.", Source: SourcePnL, Role: RoleHeadcount, HeaderRow: intPtr(2),
				Columns:        []string{"tier", ColumnCategory, "function_l1", ColumnFunctionL2, "dept", "name", ColumnTotal},
				NumericColumns: []string{ColumnTotal}, Required: true,
				MeasureColumn: ColumnTotal, CategoryColumn: ColumnFunctionL2, SubcategoryColumn: ColumnDepartment,
			},
			revenueSheet("RecurringRevenue", RoleRecurringRevenue),
			revenueSheet("PSORevenue", RolePSORevenue),
			revenueSheet("PerpetualRevenue", RolePerpetualRevenue),
			{
				Name: "Finance Roles", Source: SourceFinanceRoles, Role: RoleReference, HeaderRow: intPtr(0),
				Columns:        []string{"title", "description", "hourly_rate_usd", "annual_salary_usd"},
				NumericColumns: []string{"hourly_rate_usd", "annual_salary_usd"},
			},
		},
		Checks: []ReconcileCheck{
			{Name: "Recurring Revenue", Sheets: []string{"RecurringRevenue"}, Column: ColumnTotal, SummaryLabel: "Recurring"},
			{Name: "PSO Revenue", Sheets: []string{"PSORevenue"}, Column: ColumnTotal, SummaryLabel: "PSO"},
			{Name: "Perpetual Revenue", Sheets: []string{"PerpetualRevenue"}, Column: ColumnTotal, SummaryLabel: "Perpetual"},
			{
				Name: "Total Revenue", Sheets: []string{"RecurringRevenue", "PSORevenue", "PerpetualRevenue"},
				Column: ColumnTotal, SummaryLabel: "Revenue",
			},
			{Name: "HC Expense (W2)", Sheets: []string{"Empl."}, Column: ColumnTotal, SummaryLabel: "HC Expense (W2)"},
			{Name: "Non HC Expense (OPEX)", Sheets: []string{"OPEX - NEmpl."}, Column: ColumnTotal, SummaryLabel: "Non HC Expense (OPEX)"},
			{Name: "Non HC Expense (COGS)", Sheets: []string{"COGS - NEmpl."}, Column: ColumnTotal, SummaryLabel: "Non HC Expense (COGS)"},
		},
	}
}
