package operations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaudit/internal/operations"
	"plaudit/internal/operations/testutil"
)

func stepIDs(steps []operations.Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}

func TestRegistryRegister(t *testing.T) {
	r := operations.NewRegistry()

	require.NoError(t, r.Register(testutil.CreateSuccessfulStage("A", "step A")))
	assert.Error(t, r.Register(testutil.CreateSuccessfulStage("A", "again")))
	assert.Error(t, r.Register(testutil.CreateSuccessfulStage("", "no id")))
	assert.Error(t, r.Register(nil))

	step, err := r.Get("A")
	require.NoError(t, err)
	assert.Equal(t, "step A", step.Name())

	_, err = r.Get("B")
	assert.Error(t, err)
}

func TestDependencyOrderKeepsRegistrationOrderForTies(t *testing.T) {
	r := operations.NewRegistry()
	require.NoError(t, r.Register(testutil.CreateSuccessfulStage("export", "export", "flags", "normalize")))
	require.NoError(t, r.Register(testutil.CreateSuccessfulStage("ingest", "ingest")))
	require.NoError(t, r.Register(testutil.CreateSuccessfulStage("flags", "flags", "ingest")))
	require.NoError(t, r.Register(testutil.CreateSuccessfulStage("normalize", "normalize", "ingest")))

	steps, err := r.GetDependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"ingest", "flags", "normalize", "export"}, stepIDs(steps))
}

func TestDependencyOrderErrors(t *testing.T) {
	t.Run("missing dependency", func(t *testing.T) {
		r := operations.NewRegistry()
		require.NoError(t, r.Register(testutil.CreateSuccessfulStage("A", "step A", "ghost")))
		assert.Error(t, r.ValidateDependencies())
	})

	t.Run("cycle", func(t *testing.T) {
		r := operations.NewRegistry()
		require.NoError(t, r.Register(testutil.CreateSuccessfulStage("A", "step A", "B")))
		require.NoError(t, r.Register(testutil.CreateSuccessfulStage("B", "step B", "A")))
		_, err := r.GetDependencyOrder()
		assert.ErrorContains(t, err, "cycle")
	})
}
