package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	RunID    string      `json:"runId"`
	Summary  JSONSummary `json:"summary"`
	Tests    []JSONTest  `json:"tests"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

// JSONSummary represents the test summary
type JSONSummary struct {
	Total   int  `json:"total"`
	Passed  int  `json:"passed"`
	Failed  int  `json:"failed"`
	Skipped int  `json:"skipped"`
	Clean   bool `json:"clean"`
}

// JSONTest represents a single test result
type JSONTest struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Suite      string   `json:"suite"`
	State      string   `json:"state"`
	Helper     bool     `json:"helper,omitempty"`
	Duration   float64  `json:"duration"`
	DependsOn  []string `json:"dependsOn,omitempty"`
	Error      string   `json:"error,omitempty"`
	Output     string   `json:"output,omitempty"`
	Assertions []string `json:"assertions,omitempty"`
}

// JSONReporter writes the run as one JSON document once it has finished
type JSONReporter struct {
	collector
	writer io.Writer
	err    error
}

type JSONOption func(*JSONReporter)

func NewJSONReporter(opts ...JSONOption) *JSONReporter {
	f := &JSONReporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONReporter) {
		f.writer = w
	}
}

func (f *JSONReporter) Finished(result *runner.RunResult) {
	output := JSONOutput{
		RunID: result.RunID,
		Summary: JSONSummary{
			Total:   result.Total(),
			Passed:  result.Passed,
			Failed:  result.Failed,
			Skipped: result.Skipped,
			Clean:   result.Clean(),
		},
		Tests:    make([]JSONTest, 0, len(result.Tests)),
		Duration: float64(result.Duration.Milliseconds()),
		Time:     result.StartTime.Format(time.RFC3339),
	}

	for _, t := range result.Tests {
		test := JSONTest{
			ID:         t.Identifier(),
			Name:       t.DisplayName(),
			Suite:      suiteName(t),
			State:      t.State().String(),
			Helper:     !t.IsReal(),
			DependsOn:  parentIDs(t),
			Error:      errorText(t),
			Output:     t.Output(),
			Assertions: t.Assertions(),
		}
		if t.State() != graph.StateSkipped {
			if d, err := t.Duration(); err == nil {
				test.Duration = float64(d.Milliseconds())
			}
		}
		output.Tests = append(output.Tests, test)
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	f.err = encoder.Encode(output)
}

// Err returns the error hit while writing the report, if any
func (f *JSONReporter) Err() error {
	return f.err
}
