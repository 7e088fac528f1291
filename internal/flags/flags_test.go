package flags

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaudit/pkg/contracts/domain"
)

func group(name string, negSum string, count int, share float64) domain.NegativeValueProfile {
	d := decimal.RequireFromString(negSum)
	return domain.NegativeValueProfile{
		Group: name, NegativeSignedSum: d, NegativeAbsoluteSum: d.Abs(),
		NegativeCount: count, NegativeSharePct: share,
	}
}

func pattern(sheet string, cls domain.Classification, negSum string, count int, share float64) domain.NegativePattern {
	p := domain.NegativePattern{Sheet: sheet, Classification: cls}
	p.Profile.Sheet = sheet
	p.Profile.Table = group("", negSum, count, share)
	return p
}

func fixture() ([]domain.NegativePattern, []domain.Signal) {
	opex := pattern("OPEX - NEmpl.", domain.ClassificationMaterial, "-1250000", 42, 18.26)
	opex.SystematicCategories = []domain.NegativeValueProfile{
		group("G&A", "-800000", 20, 35.0),
		group("R&D", "-300000", 12, 12.5),
	}
	opex.SystematicSubcategories = []domain.NegativeValueProfile{
		group("Facilities", "-150000", 3, 40.0),
		group("Finance", "-600000", 10, 25.0),
		group("Legal", "-90000", 2, 60.0),
		group("IT", "-450000", 5, 30.0),
		group("HR", "-200000", 4, 20.0),
	}
	cogs := pattern("COGS - NEmpl.", domain.ClassificationIsolated, "-500", 1, 0.4)
	rev := pattern("PSORevenue", domain.ClassificationSystematic, "-20000", 3, 4.0)
	rev.SystematicCategories = []domain.NegativeValueProfile{group("Services", "-20000", 3, 11.0)}

	signals := []domain.Signal{
		{Area: "OPEX - G&A", Description: "G&A expense at 10.0% of revenue", Evidence: "OPEX G&A total: $100,000"},
		{Area: "Expense Mix", Description: "Non-HC expense (53.8%) exceeds HC expense (46.2%)", Evidence: "HC: $1, Non-HC: $2"},
		{Area: "Margin", Description: "Gross margin at 35.0%, below benchmark", Evidence: "Margin: $350,000"},
		{Area: "Revenue Mix", Description: "Recurring revenue represents 90.0% of total", Evidence: "Recurring: $900,000"},
	}
	return []domain.NegativePattern{opex, cogs, rev}, signals
}

func TestGenerate(t *testing.T) {
	patterns, signals := fixture()
	flags, err := Generate(patterns, signals, DefaultOptions())
	require.NoError(t, err)

	areas := make([]string, len(flags))
	for i, f := range flags {
		areas[i] = f.Area
	}
	assert.Equal(t, []string{
		"OPEX - NEmpl.",
		"OPEX - NEmpl. - G&A",
		"OPEX - NEmpl. - R&D",
		"OPEX - NEmpl. - Finance",
		"OPEX - NEmpl. - IT",
		"OPEX - NEmpl. - HR",
		"PSORevenue",
		"PSORevenue - Services",
		"OPEX - G&A",
		"Expense Mix",
		"Margin",
		"Revenue Mix",
	}, areas)

	t.Run("table flag", func(t *testing.T) {
		f := flags[0]
		assert.Equal(t, "F-01", f.ID)
		assert.Equal(t, domain.MaterialityHigh, f.Materiality)
		assert.Equal(t, "Material concentration of negative adjustments (18.3% of absolute total)", f.Description)
		assert.Equal(t, "Sheet: OPEX - NEmpl., Negative sum: $-1,250,000, Count: 42", f.Evidence)
	})

	t.Run("category flag", func(t *testing.T) {
		f := flags[1]
		assert.Equal(t, "Systematic negative adjustments in G&A (35.0% of category)", f.Description)
		assert.Equal(t, "Category: G&A, Negative sum: $-800,000, Count: 20", f.Evidence)
		assert.Equal(t, domain.MaterialityMedium, f.Materiality)
	})

	t.Run("department flags ranked then floored", func(t *testing.T) {
		// Facilities clears the floor but ranks fourth.
		assert.Equal(t, "Concentrated negative adjustments in Finance department (25.0%)", flags[3].Description)
		assert.Equal(t, "Department: IT, Negative sum: $-450,000, Count: 5", flags[4].Evidence)
	})

	t.Run("systematic table is medium", func(t *testing.T) {
		assert.Equal(t, domain.MaterialityMedium, flags[6].Materiality)
		assert.Contains(t, flags[6].Description, "Systematic concentration")
	})

	t.Run("signal materiality", func(t *testing.T) {
		assert.Equal(t, domain.MaterialityMedium, flags[8].Materiality)
		assert.Equal(t, domain.MaterialityHigh, flags[9].Materiality, "exceeds")
		assert.Equal(t, domain.MaterialityHigh, flags[10].Materiality, "margin")
		assert.Equal(t, domain.MaterialityMedium, flags[11].Materiality)
	})

	t.Run("ids are sequential", func(t *testing.T) {
		want := []string{"F-01", "F-02", "F-03", "F-04", "F-05", "F-06", "F-07", "F-08", "F-09", "F-10", "F-11", "F-12"}
		got := make([]string, len(flags))
		for i, f := range flags {
			got[i] = f.ID
		}
		assert.Equal(t, want, got)
	})
}

func TestGenerateDeterministic(t *testing.T) {
	patterns, signals := fixture()
	first, err := Generate(patterns, signals, DefaultOptions())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Generate(patterns, signals, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestGenerateDepartmentFloorAndLimit(t *testing.T) {
	p := pattern("Empl.", domain.ClassificationSystematic, "-400000", 8, 5.0)
	p.SystematicSubcategories = []domain.NegativeValueProfile{
		group("Ops", "-100000", 2, 50.0),
		group("Support", "-100000.01", 2, 50.0),
		group("Sales", "-250000", 4, 50.0),
	}

	flags, err := Generate([]domain.NegativePattern{p}, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, flags, 3, "a sum of exactly the floor is suppressed")
	assert.Equal(t, "Empl. - Sales", flags[1].Area)
	assert.Equal(t, "Empl. - Support", flags[2].Area)

	opts := DefaultOptions()
	opts.DepartmentLimit = 1
	flags, err = Generate([]domain.NegativePattern{p}, nil, opts)
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, "Empl. - Sales", flags[1].Area)
}

func TestGenerateEmpty(t *testing.T) {
	flags, err := Generate(nil, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestGenerateRejectsInvalidFlag(t *testing.T) {
	_, err := Generate(nil, []domain.Signal{{Area: "Margin", Description: "Gross margin at 1.0%, below benchmark"}}, DefaultOptions())
	assert.Error(t, err, "a signal without evidence cannot become a flag")
}
