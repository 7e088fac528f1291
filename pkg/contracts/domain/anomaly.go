package domain

import "github.com/shopspring/decimal"

// NegativeValueProfile describes the sign distribution of a measure column,
// either for a whole table or for one group within it.
type NegativeValueProfile struct {
	Sheet               string          `json:"sheet"`
	GroupColumn         string          `json:"group_column,omitempty"`
	Group               string          `json:"group,omitempty"`
	RowCount            int             `json:"row_count"`
	SignedSum           decimal.Decimal `json:"signed_sum"`
	AbsoluteSum         decimal.Decimal `json:"absolute_sum"`
	NegativeCount       int             `json:"negative_count"`
	NegativeSignedSum   decimal.Decimal `json:"negative_signed_sum"`
	NegativeAbsoluteSum decimal.Decimal `json:"negative_absolute_sum"`
	// NegativeSharePct is negative_absolute_sum / absolute_sum * 100.
	NegativeSharePct float64 `json:"negative_share_pct"`
}

// HasNegatives reports whether any row in the profile is negative.
func (p NegativeValueProfile) HasNegatives() bool {
	return p.NegativeCount > 0
}

// TableProfile is a whole-table profile with its category and subcategory drill-downs.
// Groups appear in first-appearance order.
type TableProfile struct {
	Sheet         string                 `json:"sheet"`
	Table         NegativeValueProfile   `json:"table"`
	Categories    []NegativeValueProfile `json:"categories"`
	Subcategories []NegativeValueProfile `json:"subcategories"`
}

// Classification is the three-tier verdict on a table's negative values.
type Classification string

const (
	ClassificationMaterial   Classification = "Material"
	ClassificationSystematic Classification = "Systematic"
	ClassificationIsolated   Classification = "Isolated"
)

// Flaggable reports whether the classification produces flags.
func (c Classification) Flaggable() bool {
	return c == ClassificationMaterial || c == ClassificationSystematic
}

// NegativePattern is a classified table profile. SystematicCategories and
// SystematicSubcategories hold the groups whose share and count qualify.
type NegativePattern struct {
	Sheet                   string                 `json:"sheet"`
	Classification          Classification         `json:"classification"`
	Profile                 TableProfile           `json:"profile"`
	SystematicCategories    []NegativeValueProfile `json:"systematic_categories"`
	SystematicSubcategories []NegativeValueProfile `json:"systematic_subcategories"`
}

// Signal is an actual ratio that deviates from its benchmark. Benchmark, Actual
// and Variance are display strings; the numeric values are percentages.
type Signal struct {
	Area           string   `json:"area"`
	Description    string   `json:"description"`
	Benchmark      string   `json:"benchmark"`
	Actual         string   `json:"actual"`
	Variance       string   `json:"variance"`
	Evidence       string   `json:"evidence"`
	BenchmarkValue float64  `json:"benchmark_value"`
	ActualValue    float64  `json:"actual_value"`
	FallbacksUsed  []string `json:"fallbacks_used,omitempty"`
}

// Benchmark is one labelled ratio from the benchmark table.
type Benchmark struct {
	Category string          `json:"category"`
	Ratio    decimal.Decimal `json:"ratio"`
}
