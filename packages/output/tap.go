package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitgraph/packages/assertions"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/runner"
)

// TAPReporter writes results in TAP (Test Anything Protocol) version 13
type TAPReporter struct {
	collector
	writer io.Writer
	err    error
}

// tapDiagnostic is the YAML block attached to a failing test
type tapDiagnostic struct {
	Message  string `yaml:"message"`
	Severity string `yaml:"severity"`
	Expected any    `yaml:"expected,omitempty"`
	Actual   any    `yaml:"actual,omitempty"`
	Output   string `yaml:"output,omitempty"`
}

type TAPOption func(*TAPReporter)

func NewTAPReporter(opts ...TAPOption) *TAPReporter {
	f := &TAPReporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPReporter) {
		f.writer = w
	}
}

func (f *TAPReporter) Finished(result *runner.RunResult) {
	var tests []*graph.Test
	for _, t := range result.Tests {
		if t.IsReal() {
			tests = append(tests, t)
		}
	}

	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", len(tests))

	for i, t := range tests {
		n := i + 1
		switch t.State() {
		case graph.StateSuccess:
			fmt.Fprintf(f.writer, "ok %d - %s\n", n, t.DisplayName())
		case graph.StateSkipped:
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", n, t.DisplayName(), skipReason(t))
		default:
			fmt.Fprintf(f.writer, "not ok %d - %s\n", n, t.DisplayName())
			if err := f.writeDiagnostic(t); err != nil && f.err == nil {
				f.err = err
			}
		}
	}

	fmt.Fprintln(f.writer)
}

func (f *TAPReporter) writeDiagnostic(t *graph.Test) error {
	diag := tapDiagnostic{
		Message:  errorText(t),
		Severity: "error",
		Output:   t.Output(),
	}
	var failure *assertions.Failure
	if errors.As(t.Failure(), &failure) {
		diag.Severity = "fail"
		diag.Expected = failure.Expected
		diag.Actual = failure.Actual
	}

	data, err := yaml.Marshal(diag)
	if err != nil {
		return err
	}
	fmt.Fprintf(f.writer, "  ---\n")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fmt.Fprintf(f.writer, "  %s\n", line)
	}
	fmt.Fprintf(f.writer, "  ...\n")
	return nil
}

// Err returns the error hit while writing the report, if any
func (f *TAPReporter) Err() error {
	return f.err
}
