package anomaly

import (
	"strings"

	"github.com/shopspring/decimal"

	"plaudit/internal/config"
	"plaudit/pkg/contracts/domain"
)

var hundred = decimal.NewFromInt(100)

// ProfileTable profiles the spec's measure column over the whole table and
// per category and subcategory. Rows with a null group value belong to no
// group. Groups keep their order of first appearance.
func ProfileTable(t *domain.TypedTable, spec config.SheetSpec) domain.TableProfile {
	p := domain.TableProfile{Sheet: t.SheetID}
	measure := spec.MeasureColumn
	if measure == "" {
		measure = config.ColumnTotal
	}
	values, err := t.Values(measure)
	if err != nil {
		p.Table = domain.NegativeValueProfile{Sheet: t.SheetID}
		return p
	}

	p.Table = profile(t.SheetID, "", "", values)
	if spec.CategoryColumn != "" && t.HasColumn(spec.CategoryColumn) {
		p.Categories = groupProfiles(t, spec.CategoryColumn, values)
	}
	if spec.SubcategoryColumn != "" && t.HasColumn(spec.SubcategoryColumn) {
		p.Subcategories = groupProfiles(t, spec.SubcategoryColumn, values)
	}
	return p
}

func groupProfiles(t *domain.TypedTable, column string, measure []domain.Value) []domain.NegativeValueProfile {
	keys, _ := t.Values(column)

	var order []string
	members := make(map[string][]domain.Value)
	for i, k := range keys {
		if k.IsNull() {
			continue
		}
		key := strings.TrimSpace(k.String())
		if _, seen := members[key]; !seen {
			order = append(order, key)
		}
		members[key] = append(members[key], measure[i])
	}

	out := make([]domain.NegativeValueProfile, 0, len(order))
	for _, key := range order {
		out = append(out, profile(t.SheetID, column, key, members[key]))
	}
	return out
}

// profile computes the sign statistics of a set of values. Nulls count as rows
// but contribute nothing to the sums.
func profile(sheet, column, group string, values []domain.Value) domain.NegativeValueProfile {
	p := domain.NegativeValueProfile{
		Sheet:               sheet,
		GroupColumn:         column,
		Group:               group,
		RowCount:            len(values),
		SignedSum:           decimal.Zero,
		AbsoluteSum:         decimal.Zero,
		NegativeSignedSum:   decimal.Zero,
		NegativeAbsoluteSum: decimal.Zero,
	}
	for _, v := range values {
		if !v.IsNumber() {
			continue
		}
		p.SignedSum = p.SignedSum.Add(v.Num)
		p.AbsoluteSum = p.AbsoluteSum.Add(v.Num.Abs())
		if v.Num.IsNegative() {
			p.NegativeCount++
			p.NegativeSignedSum = p.NegativeSignedSum.Add(v.Num)
			p.NegativeAbsoluteSum = p.NegativeAbsoluteSum.Add(v.Num.Abs())
		}
	}
	if !p.AbsoluteSum.IsZero() {
		p.NegativeSharePct = p.NegativeAbsoluteSum.Div(p.AbsoluteSum).Mul(hundred).InexactFloat64()
	}
	return p
}
