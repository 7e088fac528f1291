// Package flags merges classified negative-value patterns and benchmark
// signals into the flag register.
//
// Identifiers are assigned in a fixed traversal: for each Material or
// Systematic pattern a table flag, then its systematic categories, then at
// most the configured number of departments ranked by absolute negative sum
// and kept only above the department floor. Signal flags follow in signal
// order. The same inputs always produce the same identifiers.
package flags

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"plaudit/internal/config"
	"plaudit/pkg/contracts/domain"
)

// Options configures flag generation.
type Options struct {
	DepartmentFloor decimal.Decimal
	DepartmentLimit int
	Logger          *slog.Logger
}

// DefaultOptions uses the standard department floor and limit.
func DefaultOptions() Options {
	return Options{
		DepartmentFloor: decimal.NewFromFloat(config.DepartmentFlagFloor),
		DepartmentLimit: config.DepartmentFlagLimit,
	}
}

// OptionsFrom builds options from the analysis configuration.
func OptionsFrom(cfg config.AnalysisConfig, logger *slog.Logger) Options {
	return Options{
		DepartmentFloor: decimal.NewFromFloat(cfg.DepartmentFlagFloor),
		DepartmentLimit: cfg.DepartmentFlagLimit,
		Logger:          logger,
	}
}

var validate = validator.New()

// register assigns sequential identifiers.
type register struct {
	flags []domain.Flag
}

func (r *register) add(area, description, evidence string, m domain.Materiality) {
	r.flags = append(r.flags, domain.Flag{
		ID:          fmt.Sprintf("F-%02d", len(r.flags)+1),
		Area:        area,
		Description: description,
		Evidence:    evidence,
		Materiality: m,
	})
}

// Generate builds the flag register. patterns are traversed in the given
// order; Isolated patterns produce no flags. Every flag is validated before
// it is returned.
func Generate(patterns []domain.NegativePattern, signals []domain.Signal, opts Options) ([]domain.Flag, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var r register

	for _, p := range patterns {
		if !p.Classification.Flaggable() {
			continue
		}
		table := p.Profile.Table
		m := domain.MaterialityMedium
		if p.Classification == domain.ClassificationMaterial {
			m = domain.MaterialityHigh
		}
		r.add(p.Sheet,
			fmt.Sprintf("%s concentration of negative adjustments (%.1f%% of absolute total)", p.Classification, table.NegativeSharePct),
			fmt.Sprintf("Sheet: %s, Negative sum: %s, Count: %d", p.Sheet, domain.FormatCurrency(table.NegativeSignedSum), table.NegativeCount),
			m)

		for _, c := range p.SystematicCategories {
			r.add(p.Sheet+" - "+c.Group,
				fmt.Sprintf("Systematic negative adjustments in %s (%.1f%% of category)", c.Group, c.NegativeSharePct),
				fmt.Sprintf("Category: %s, Negative sum: %s, Count: %d", c.Group, domain.FormatCurrency(c.NegativeSignedSum), c.NegativeCount),
				domain.MaterialityMedium)
		}

		for _, d := range topDepartments(p.SystematicSubcategories, opts.DepartmentLimit) {
			if !d.NegativeSignedSum.Abs().GreaterThan(opts.DepartmentFloor) {
				logger.Debug("department flag below floor", "sheet", p.Sheet, "department", d.Group,
					"negative_sum", d.NegativeSignedSum.String())
				continue
			}
			r.add(p.Sheet+" - "+d.Group,
				fmt.Sprintf("Concentrated negative adjustments in %s department (%.1f%%)", d.Group, d.NegativeSharePct),
				fmt.Sprintf("Department: %s, Negative sum: %s, Count: %d", d.Group, domain.FormatCurrency(d.NegativeSignedSum), d.NegativeCount),
				domain.MaterialityMedium)
		}
	}

	for _, s := range signals {
		r.add(s.Area, s.Description, s.Evidence, signalMateriality(s))
	}

	for _, f := range r.flags {
		if err := validate.Struct(f); err != nil {
			return nil, fmt.Errorf("invalid flag %s: %w", f.ID, err)
		}
	}
	logger.Info("flag register generated", "flags", len(r.flags))
	return r.flags, nil
}

// topDepartments ranks departments by absolute negative sum, largest first,
// and keeps at most limit of them. Ties keep their original order.
func topDepartments(depts []domain.NegativeValueProfile, limit int) []domain.NegativeValueProfile {
	ranked := append([]domain.NegativeValueProfile(nil), depts...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].NegativeSignedSum.Abs().GreaterThan(ranked[j].NegativeSignedSum.Abs())
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func signalMateriality(s domain.Signal) domain.Materiality {
	if strings.Contains(strings.ToLower(s.Area), "margin") || strings.Contains(strings.ToLower(s.Description), "exceeds") {
		return domain.MaterialityHigh
	}
	return domain.MaterialityMedium
}
