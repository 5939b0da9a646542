package output

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/runner"
)

// runSample runs A (passes), B (fails an assertion), C (skipped after B) and
// D (fails with an error), reporting to r.
func runSample(t *testing.T, r runner.Reporter) *runner.RunResult {
	t.Helper()
	b := graph.NewBuilder()
	b.Suite("Users", nil).
		Test("A", func(t *graph.T) (any, error) {
			t.Logf("created user")
			t.Assert().Equal(200, 200)
			return 1, nil
		}).
		Test("B", func(t *graph.T) (any, error) {
			t.Assert().Equal(2, 3)
			return nil, nil
		}, graph.Depends("A")).
		Test("C", func(t *graph.T) (any, error) { return nil, nil }, graph.Depends("B"))
	b.Suite("Orders", nil).
		Test("D", func(t *graph.T) (any, error) { return nil, errors.New("connection refused") })
	g, err := b.Build()
	require.NoError(t, err)

	res, err := runner.NewRunner(nil, runner.WithReporter(r)).Run(context.Background(), g)
	require.NoError(t, err)
	return res
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	runSample(t, r)

	out := buf.String()
	assert.Contains(t, out, "✓ Users::A")
	assert.Contains(t, out, "| created user")
	assert.Contains(t, out, "✗ Users::B")
	assert.Contains(t, out, "Expected: 2")
	assert.Contains(t, out, "Actual:   3")
	assert.Contains(t, out, "- Users::C (skipped)")
	assert.Contains(t, out, "→ connection refused")
	assert.Contains(t, out, "1 passed, 2 failed, 1 skipped, 4 total")
	assert.Contains(t, out, "Durations: p50")
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(JSONWithWriter(&buf))
	res := runSample(t, r)
	require.NoError(t, r.Err())

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, res.RunID, out.RunID)
	assert.Equal(t, JSONSummary{Total: 4, Passed: 1, Failed: 2, Skipped: 1}, out.Summary)
	require.Len(t, out.Tests, 4)

	assert.Equal(t, "Users::A", out.Tests[0].ID)
	assert.Equal(t, "success", out.Tests[0].State)
	assert.Equal(t, "created user\n", out.Tests[0].Output)
	assert.Equal(t, []string{"200 equals 200"}, out.Tests[0].Assertions)

	assert.Equal(t, "failure", out.Tests[1].State)
	assert.Equal(t, []string{"Users::A"}, out.Tests[1].DependsOn)
	assert.Contains(t, out.Tests[1].Error, "assertion failed")

	assert.Equal(t, "skipped", out.Tests[2].State)
	assert.Equal(t, "Orders", out.Tests[3].Suite)
}

func TestJUnitReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewJUnitReporter(JUnitWithWriter(&buf))
	runSample(t, r)
	require.NoError(t, r.Err())

	assert.Contains(t, buf.String(), `<?xml version="1.0" encoding="UTF-8"?>`)

	var out JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, 4, out.Tests)
	assert.Equal(t, 1, out.Failures)
	assert.Equal(t, 1, out.Errors)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.TestSuites, 2)

	users := out.TestSuites[0]
	assert.Equal(t, "Users", users.Name)
	require.Len(t, users.TestCases, 3)
	require.NotNil(t, users.TestCases[1].Failure)
	assert.Equal(t, "AssertionError", users.TestCases[1].Failure.Type)
	require.NotNil(t, users.TestCases[2].Skipped)
	assert.Equal(t, "dependency did not succeed: Users::B", users.TestCases[2].Skipped.Message)

	orders := out.TestSuites[1]
	require.NotNil(t, orders.TestCases[0].Error)
	assert.Equal(t, "connection refused", orders.TestCases[0].Error.Message)
}

func TestTAPReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewTAPReporter(TAPWithWriter(&buf))
	runSample(t, r)
	require.NoError(t, r.Err())

	out := buf.String()
	assert.Contains(t, out, "TAP version 13\n1..4\n")
	assert.Contains(t, out, "ok 1 - Users::A\n")
	assert.Contains(t, out, "not ok 2 - Users::B\n")
	assert.Contains(t, out, "  severity: fail\n")
	assert.Contains(t, out, "  expected: 2\n")
	assert.Contains(t, out, "ok 3 - Users::C # SKIP dependency did not succeed: Users::B\n")
	assert.Contains(t, out, "not ok 4 - Orders::D\n")
	assert.Contains(t, out, "  message: connection refused\n")
}

func TestNew(t *testing.T) {
	t.Run("unknown reporter", func(t *testing.T) {
		_, _, err := New([]string{"console", "html"}, Options{})
		assert.EqualError(t, err, `unknown reporter "html"`)
	})

	t.Run("report files go to the output directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "reports")
		var stdout bytes.Buffer

		r, closeFn, err := New([]string{"console", "json", "junit", "tap"}, Options{
			OutputDir: dir,
			Stdout:    &stdout,
			NoColor:   true,
		})
		require.NoError(t, err)
		runSample(t, r)
		require.NoError(t, closeFn())

		assert.Contains(t, stdout.String(), "4 total")
		for _, name := range []string{"hitgraph-report.json", "hitgraph-junit.xml", "hitgraph-report.tap"} {
			data, err := os.ReadFile(filepath.Join(dir, name))
			require.NoError(t, err, name)
			assert.NotEmpty(t, data, name)
		}
	})
}

func TestDurationStats(t *testing.T) {
	s := NewDurationStats()
	for i := 1; i <= 100; i++ {
		s.Record(time.Duration(i) * time.Millisecond)
	}

	assert.Equal(t, int64(100), s.Count())
	assert.InDelta(t, float64(50*time.Millisecond), float64(s.Percentile(50)), float64(time.Millisecond))
	assert.InDelta(t, float64(99*time.Millisecond), float64(s.Percentile(99)), float64(time.Millisecond))
	assert.InDelta(t, float64(100*time.Millisecond), float64(s.Max()), float64(time.Millisecond))

	s.Record(0)
	s.Record(2 * time.Hour)
	assert.Equal(t, int64(102), s.Count())
}
