package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/runner"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func runGraph(t *testing.T, failB bool) *runner.RunResult {
	t.Helper()
	b := graph.NewBuilder()
	b.Suite("S", nil).
		Helper("setup", func(t *graph.T) (any, error) { return nil, nil }).
		Test("A", func(t *graph.T) (any, error) { return nil, nil }, graph.Depends("setup")).
		Test("B", func(t *graph.T) (any, error) {
			if failB {
				return nil, errors.New("boom")
			}
			return nil, nil
		}).
		Test("C", func(t *graph.T) (any, error) { return nil, nil }, graph.Depends("B"))
	g, err := b.Build()
	require.NoError(t, err)

	res, err := runner.NewRunner(nil).Run(context.Background(), g)
	require.NoError(t, err)
	return res
}

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sqlite://./runs.db", "./runs.db"},
		{"sqlite:runs.db", "runs.db"},
		{" runs.db ", "runs.db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseConnectionString(tt.in), tt.in)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "sqlite://")
	assert.Error(t, err)
}

func TestStore_RecordAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	first := runGraph(t, true)
	require.NoError(t, s.Record(ctx, first))
	time.Sleep(10 * time.Millisecond)
	second := runGraph(t, false)
	second.StartTime = first.StartTime.Add(time.Second)
	require.NoError(t, s.Record(ctx, second))

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].ID)
	assert.True(t, runs[0].Clean)
	assert.Equal(t, first.RunID, runs[1].ID)
	assert.False(t, runs[1].Clean)
	assert.Equal(t, 1, runs[1].Passed)
	assert.Equal(t, 1, runs[1].Failed)
	assert.Equal(t, 1, runs[1].Skipped)

	outcomes, err := s.Outcomes(ctx, first.RunID)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Equal(t, "S::A", outcomes[0].TestID)
	assert.Equal(t, "success", outcomes[0].State)
	assert.Equal(t, "S::B", outcomes[1].TestID)
	assert.Equal(t, "boom", outcomes[1].Error)
	assert.Equal(t, "skipped", outcomes[2].State)

	failures, err := s.LastFailures(ctx)
	require.NoError(t, err)
	assert.Empty(t, failures)

	limited, err := s.Runs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_LastFailures(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Record(ctx, runGraph(t, true)))

	failures, err := s.LastFailures(ctx)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "S::B", failures[0].TestID)
	assert.Equal(t, "S", failures[0].Suite)
}

func TestStore_DuplicateRunIsRejected(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	res := runGraph(t, false)

	require.NoError(t, s.Record(ctx, res))
	assert.Error(t, s.Record(ctx, res))

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
