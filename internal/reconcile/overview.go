package reconcile

import (
	"github.com/shopspring/decimal"

	"plaudit/internal/config"
	"plaudit/pkg/contracts/domain"
)

// Summary labels read into the overview.
const (
	LabelRevenue   = "Revenue"
	LabelMargin    = "Margin"
	LabelMarginPct = "Margin %"
)

var hundred = decimal.NewFromInt(100)

// BuildOverview computes revenue, expense and margin totals from the detail
// sheets named by the layout's roles. tables is keyed by sheet name; a sheet
// that is absent contributes zero.
func BuildOverview(tables map[string]*domain.TypedTable, layout config.Layout) domain.PnLOverview {
	roleSum := func(role config.SheetRole) decimal.Decimal {
		spec, ok := layout.ByRole(role)
		if !ok {
			return decimal.Zero
		}
		sum, err := SumColumn(tables[spec.Name], measure(spec), AllRows)
		if err != nil {
			return decimal.Zero
		}
		return sum
	}

	var o domain.PnLOverview
	o.RecurringRevenue = roleSum(config.RoleRecurringRevenue)
	o.PSORevenue = roleSum(config.RolePSORevenue)
	o.PerpetualRevenue = roleSum(config.RolePerpetualRevenue)
	o.TotalRevenue = o.RecurringRevenue.Add(o.PSORevenue).Add(o.PerpetualRevenue)

	o.HCExpense = roleSum(config.RoleHeadcount)
	o.NonHCOpex = roleSum(config.RoleOpex)
	o.NonHCCogs = roleSum(config.RoleCogs)
	o.TotalNonHC = o.NonHCOpex.Add(o.NonHCCogs)
	o.TotalExpense = o.HCExpense.Add(o.TotalNonHC)

	o.GrossMargin = o.TotalRevenue.Sub(o.TotalExpense)
	if !o.TotalRevenue.IsZero() {
		o.GrossMarginPct = o.GrossMargin.Div(o.TotalRevenue).Mul(hundred).InexactFloat64()
	}

	if spec, ok := layout.ByRole(config.RoleSummary); ok {
		summary := tables[spec.Name]
		label := spec.LabelColumn
		if label == "" {
			label = config.ColumnSummary
		}
		lookup := func(l string) *decimal.Decimal {
			v, err := LookupLabel(summary, label, measure(spec), l)
			if err != nil {
				return nil
			}
			return &v
		}
		o.SummaryRevenue = lookup(LabelRevenue)
		o.SummaryMargin = lookup(LabelMargin)
		if pct := lookup(LabelMarginPct); pct != nil {
			scaled := pct.Mul(hundred)
			o.SummaryMarginPct = &scaled
		}
	}
	return o
}

func measure(spec config.SheetSpec) string {
	if spec.MeasureColumn != "" {
		return spec.MeasureColumn
	}
	return config.ColumnTotal
}
