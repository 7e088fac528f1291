package testutil

import (
	"context"
	"errors"
	"time"

	"plaudit/internal/config"
	"plaudit/internal/operations"
	"plaudit/pkg/contracts/domain"
)

// CreateTestConfig returns a configuration with short retry delays.
func CreateTestConfig() *operations.Config {
	cfg := operations.NewConfig()
	cfg.RetryConfig = operations.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
	return cfg
}

// CreateSuccessfulStage creates a step that records its ID under the
// "executed" context key and succeeds.
func CreateSuccessfulStage(id, name string, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			executed, _ := operations.ContextValue[[]string](state, "executed")
			state.SetContext("executed", append(executed, id))
			return nil
		},
	}
}

// CreateFailingStage creates a step that always fails
func CreateFailingStage(id, name string, err error, deps ...string) *MockStage {
	if err == nil {
		err = errors.New("step failed")
	}
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			return err
		},
	}
}

// CreateRetryableStage creates a step that fails failCount times with a
// retryable error and then succeeds.
func CreateRetryableStage(id, name string, failCount int, deps ...string) *MockStage {
	attempts := 0
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			attempts++
			if attempts <= failCount {
				return operations.NewExecutionError(id, errors.New("temporary failure"), true)
			}
			return nil
		},
	}
}

// CreateValidationFailingStage creates a step that fails validation
func CreateValidationFailingStage(id, name string, validationErr error, deps ...string) *MockStage {
	if validationErr == nil {
		validationErr = errors.New("validation failed")
	}
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ValidateFunc: func(state *operations.OperationState) error {
			return validationErr
		},
	}
}

// CreateDiamondStages creates steps A, B, C and D where B and C depend on A
// and D depends on both.
func CreateDiamondStages() []operations.Step {
	return []operations.Step{
		CreateSuccessfulStage("A", "step A"),
		CreateSuccessfulStage("B", "step B", "A"),
		CreateSuccessfulStage("C", "step C", "A"),
		CreateSuccessfulStage("D", "step D", "B", "C"),
	}
}

// StageBuilder provides a fluent interface for creating test steps
type StageBuilder struct {
	step *MockStage
}

// NewStageBuilder creates a new step builder
func NewStageBuilder(id, name string) *StageBuilder {
	return &StageBuilder{step: &MockStage{IDValue: id, NameValue: name}}
}

// WithDependencies sets the step dependencies
func (b *StageBuilder) WithDependencies(deps ...string) *StageBuilder {
	b.step.DependenciesValue = deps
	return b
}

// WithExecute sets the execute function
func (b *StageBuilder) WithExecute(fn func(context.Context, *operations.OperationState) error) *StageBuilder {
	b.step.ExecuteFunc = fn
	return b
}

// WithValidate sets the validate function
func (b *StageBuilder) WithValidate(fn func(*operations.OperationState) error) *StageBuilder {
	b.step.ValidateFunc = fn
	return b
}

// Build returns the constructed step
func (b *StageBuilder) Build() *MockStage {
	return b.step
}

// AuditLayout describes a three-sheet P&L workbook: a summary, one revenue
// sheet with a banner row and an OPEX sheet.
func AuditLayout() config.Layout {
	zero, one := 0, 1
	return config.Layout{
		Sheets: []config.SheetSpec{
			{
				Name: "P&L Summary", Source: config.SourcePnL, Role: config.RoleSummary, HeaderRow: &zero,
				Columns:        []string{config.ColumnSummary, config.ColumnTotal},
				NumericColumns: []string{config.ColumnTotal}, Required: true,
				LabelColumn: config.ColumnSummary, MeasureColumn: config.ColumnTotal,
			},
			{
				Name: "RecurringRevenue", Source: config.SourcePnL, Role: config.RoleRecurringRevenue, HeaderRow: &one,
				Columns:        []string{config.ColumnRevenueType, "customer_name", config.ColumnTotal},
				NumericColumns: []string{config.ColumnTotal}, Required: true,
				MeasureColumn: config.ColumnTotal, CategoryColumn: config.ColumnRevenueType,
			},
			{
				Name: "OPEX - NEmpl.", Source: config.SourcePnL, Role: config.RoleOpex, HeaderRow: &zero,
				Columns:        []string{config.ColumnFunctionL2, "dept", config.ColumnTotal},
				NumericColumns: []string{config.ColumnTotal}, Required: true,
				MeasureColumn: config.ColumnTotal, CategoryColumn: config.ColumnFunctionL2,
				SubcategoryColumn: config.ColumnDepartment,
			},
		},
		Checks: []config.ReconcileCheck{
			{Name: "Recurring Revenue", Sheets: []string{"RecurringRevenue"}, Column: config.ColumnTotal, SummaryLabel: "Recurring"},
			{Name: "Non HC Expense (OPEX)", Sheets: []string{"OPEX - NEmpl."}, Column: config.ColumnTotal, SummaryLabel: "Non HC Expense (OPEX)"},
		},
	}
}

// AuditGrids returns raw grids matching AuditLayout. Both checks reconcile.
func AuditGrids() []domain.RawGrid {
	txt, num, blank := domain.TextCell, domain.NumberCell, domain.EmptyCell()
	return []domain.RawGrid{
		domain.NewRawGrid(config.SourcePnL, "P&L Summary", [][]domain.Cell{
			{txt("P&L Summary"), txt("2018 Total")},
			{txt("Recurring"), num("300")},
			{txt("Non HC Expense (OPEX)"), num("150")},
		}),
		domain.NewRawGrid(config.SourcePnL, "RecurringRevenue", [][]domain.Cell{
			{txt("IN USD"), blank, blank},
			{txt("Type"), txt("Customer Name"), txt("2018 Total")},
			{txt("Subscription"), txt("Acme"), num("200")},
			{txt("Subscription"), txt("Beta"), num("100")},
		}),
		domain.NewRawGrid(config.SourcePnL, "OPEX - NEmpl.", [][]domain.Cell{
			{txt("Function L2"), txt("Dept"), txt("2018 Total")},
			{txt("S&M"), txt("Field"), num("100")},
			{txt("G&A"), txt("Finance"), num("80")},
			{txt("G&A"), txt("Finance"), num("-30")},
		}),
	}
}
