package testutil

import (
	"context"
	"log/slog"
	"sync"

	"plaudit/internal/operations"
)

// MockStage is a configurable Step that counts its calls.
type MockStage struct {
	IDValue           string
	NameValue         string
	DependenciesValue []string

	ExecuteFunc  func(ctx context.Context, state *operations.OperationState) error
	ValidateFunc func(state *operations.OperationState) error

	mu            sync.Mutex
	executeCalls  int
	validateCalls int
}

// ID returns the step ID
func (m *MockStage) ID() string {
	return m.IDValue
}

// Name returns the step name
func (m *MockStage) Name() string {
	return m.NameValue
}

// GetDependencies returns the step dependencies
func (m *MockStage) GetDependencies() []string {
	if m.DependenciesValue == nil {
		return []string{}
	}
	return m.DependenciesValue
}

// Execute runs ExecuteFunc, or succeeds when it is nil.
func (m *MockStage) Execute(ctx context.Context, state *operations.OperationState) error {
	m.mu.Lock()
	m.executeCalls++
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, state)
	}
	return nil
}

// Validate runs ValidateFunc, or passes when it is nil.
func (m *MockStage) Validate(state *operations.OperationState) error {
	m.mu.Lock()
	m.validateCalls++
	m.mu.Unlock()

	if m.ValidateFunc != nil {
		return m.ValidateFunc(state)
	}
	return nil
}

// GetExecuteCalls returns the number of Execute calls
func (m *MockStage) GetExecuteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executeCalls
}

// GetValidateCalls returns the number of Validate calls
func (m *MockStage) GetValidateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validateCalls
}

// MockSlogHandler captures slog records for assertions.
type MockSlogHandler struct {
	mu      sync.Mutex
	records []MockLogRecord
}

// MockLogRecord is one captured record.
type MockLogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]interface{}
}

// Handle implements slog.Handler
func (h *MockSlogHandler) Handle(ctx context.Context, record slog.Record) error {
	attrs := make(map[string]interface{})
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, MockLogRecord{Level: record.Level, Message: record.Message, Attrs: attrs})
	return nil
}

// Enabled implements slog.Handler
func (h *MockSlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler. Base attributes are dropped.
func (h *MockSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

// WithGroup implements slog.Handler
func (h *MockSlogHandler) WithGroup(name string) slog.Handler {
	return h
}

// GetRecordsByLevel returns records filtered by level
func (h *MockSlogHandler) GetRecordsByLevel(level slog.Level) []MockLogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	var filtered []MockLogRecord
	for _, record := range h.records {
		if record.Level == level {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// HasMessage checks if any record carries the given message
func (h *MockSlogHandler) HasMessage(message string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, record := range h.records {
		if record.Message == message {
			return true
		}
	}
	return false
}

// CreateTestSlogLogger creates a logger backed by a MockSlogHandler
func CreateTestSlogLogger() (*slog.Logger, *MockSlogHandler) {
	handler := &MockSlogHandler{}
	return slog.New(handler), handler
}
