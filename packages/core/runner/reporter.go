package runner

import "github.com/abdul-hamid-achik/hitgraph/packages/core/graph"

// Reporter receives the events of a run. Calls are made from the scheduler
// goroutine, in order for any one test, and must return quickly.
type Reporter interface {
	// StepStarted is called when a test starts and before each further step,
	// with the output of the step that just ended.
	StepStarted(t *graph.Test, output string)
	Succeeded(t *graph.Test, output string)
	Failed(t *graph.Test, output string, err error)
	// Skipped is called for tests that never ran because a parent failed or
	// the run was cancelled.
	Skipped(t *graph.Test)
	Finished(result *RunResult)
}

// MultiReporter forwards every event to each reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) StepStarted(t *graph.Test, output string) {
	for _, r := range m {
		r.StepStarted(t, output)
	}
}

func (m MultiReporter) Succeeded(t *graph.Test, output string) {
	for _, r := range m {
		r.Succeeded(t, output)
	}
}

func (m MultiReporter) Failed(t *graph.Test, output string, err error) {
	for _, r := range m {
		r.Failed(t, output, err)
	}
}

func (m MultiReporter) Skipped(t *graph.Test) {
	for _, r := range m {
		r.Skipped(t)
	}
}

func (m MultiReporter) Finished(result *RunResult) {
	for _, r := range m {
		r.Finished(result)
	}
}

type nopReporter struct{}

func (nopReporter) StepStarted(*graph.Test, string)   {}
func (nopReporter) Succeeded(*graph.Test, string)     {}
func (nopReporter) Failed(*graph.Test, string, error) {}
func (nopReporter) Skipped(*graph.Test)               {}
func (nopReporter) Finished(*RunResult)               {}
