package anomaly

import (
	"plaudit/internal/config"
	"plaudit/pkg/contracts/domain"
)

// ClassifyOptions holds the classification threshold.
type ClassifyOptions struct {
	// MaterialityPct is the negative share, in percent, that must be exceeded.
	MaterialityPct float64
}

// DefaultClassifyOptions uses the standard materiality threshold.
func DefaultClassifyOptions() ClassifyOptions {
	return ClassifyOptions{MaterialityPct: config.MaterialityThresholdPct}
}

// Classify assigns a tier to a profiled table. It reports false, and returns
// no pattern, when the table has no negative rows.
func Classify(p domain.TableProfile, opts ClassifyOptions) (domain.NegativePattern, bool) {
	if !p.Table.HasNegatives() {
		return domain.NegativePattern{}, false
	}

	pattern := domain.NegativePattern{
		Sheet:                   p.Sheet,
		Profile:                 p,
		SystematicCategories:    systematic(p.Categories, opts.MaterialityPct),
		SystematicSubcategories: systematic(p.Subcategories, opts.MaterialityPct),
	}
	switch {
	case p.Table.NegativeSharePct > opts.MaterialityPct:
		pattern.Classification = domain.ClassificationMaterial
	case len(pattern.SystematicCategories) > 0 || len(pattern.SystematicSubcategories) > 0:
		pattern.Classification = domain.ClassificationSystematic
	default:
		pattern.Classification = domain.ClassificationIsolated
	}
	return pattern, true
}

// systematic keeps groups above the threshold with more than one negative row.
func systematic(groups []domain.NegativeValueProfile, thresholdPct float64) []domain.NegativeValueProfile {
	var out []domain.NegativeValueProfile
	for _, g := range groups {
		if g.NegativeSharePct > thresholdPct && g.NegativeCount > 1 {
			out = append(out, g)
		}
	}
	return out
}
