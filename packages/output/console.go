package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/hitgraph/packages/assertions"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/runner"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	case map[string]string:
		return fmt.Sprintf("{map with %d entries}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

// ConsoleReporter prints each outcome as it happens and a summary at the end
type ConsoleReporter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleReporter)

func NewConsoleReporter(opts ...ConsoleOption) *ConsoleReporter {
	f := &ConsoleReporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleReporter) {
		f.writer = w
	}
}

// WithVerbose prints the output captured by each step
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleReporter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleReporter) {
		f.noColor = nc
	}
}

func (f *ConsoleReporter) StepStarted(t *graph.Test, output string) {
	f.printOutput(output)
}

func (f *ConsoleReporter) Succeeded(t *graph.Test, output string) {
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	f.printOutput(output)
	fmt.Fprintf(f.writer, "  %s %s %s\n", green("✓"), t.DisplayName(), cyan(fmt.Sprintf("(%dms)", elapsed(t).Milliseconds())))
	if f.verbose {
		for _, a := range t.Assertions() {
			fmt.Fprintf(f.writer, "    %s %s\n", green("·"), a)
		}
	}
}

func (f *ConsoleReporter) Failed(t *graph.Test, output string, err error) {
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	f.printOutput(output)
	fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), t.DisplayName(), cyan(fmt.Sprintf("(%dms)", elapsed(t).Milliseconds())))

	var failure *assertions.Failure
	if errors.As(err, &failure) {
		fmt.Fprintf(f.writer, "    %s %s\n", red("→"), failure.Description)
		fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(failure.Expected, 100))
		fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(failure.Actual, 100))
		if failure.Message != "" {
			fmt.Fprintf(f.writer, "      %s\n", failure.Message)
		}
		return
	}
	fmt.Fprintf(f.writer, "    %s %v\n", red("→"), err)
}

func (f *ConsoleReporter) Skipped(t *graph.Test) {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(f.writer, "  %s %s %s\n", yellow("-"), t.DisplayName(), yellow("(skipped)"))
}

func (f *ConsoleReporter) Finished(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Tests: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n", result.Total())
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration.Milliseconds())

	stats := NewDurationStats()
	stats.RecordTests(result.Tests)
	if stats.Count() > 0 {
		fmt.Fprintf(f.writer, "Durations: p50 %s, p95 %s, p99 %s, max %s\n",
			round(stats.Percentile(50)), round(stats.Percentile(95)), round(stats.Percentile(99)), round(stats.Max()))
	}
	if f.verbose {
		fmt.Fprintf(f.writer, "Peak concurrency: %d\n", result.PeakConcurrency)
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleReporter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleReporter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n\n", bold("hitgraph"), version)
}

func (f *ConsoleReporter) printOutput(output string) {
	if !f.verbose || output == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		fmt.Fprintf(f.writer, "    | %s\n", line)
	}
}

// elapsed is the running time of a test that may not have finished yet
func elapsed(t *graph.Test) time.Duration {
	if d, err := t.Duration(); err == nil {
		return d
	}
	if t.StartTime().IsZero() {
		return 0
	}
	return time.Since(t.StartTime())
}

func round(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(100 * time.Microsecond)
	default:
		return d
	}
}
