package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/pool"
	"github.com/abdul-hamid-achik/hitgraph/packages/http"
	"github.com/abdul-hamid-achik/hitgraph/packages/tracing"
)

const (
	// DefaultConcurrency is the default number of tests in flight at once
	DefaultConcurrency = 10
)

type Config struct {
	Concurrency int
	// TestTimeout bounds each test including its HTTP batches. Zero disables it.
	TestTimeout time.Duration
}

type Runner struct {
	config   *Config
	futures  *http.FuturePool
	reporter Reporter
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Runner)

// WithReporter sets the reporter receiving run events.
func WithReporter(r Reporter) Option {
	return func(rn *Runner) {
		if r != nil {
			rn.reporter = r
		}
	}
}

// WithFuturePool sets the pool every test step forks its HTTP batch from.
func WithFuturePool(p *http.FuturePool) Option {
	return func(rn *Runner) {
		if p != nil {
			rn.futures = p
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(rn *Runner) {
		if l != nil {
			rn.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(rn *Runner) {
		if t != nil {
			rn.tracer = t
		}
	}
}

func NewRunner(cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}

	r := &Runner{
		config:   &c,
		futures:  http.NewFuturePool(nil),
		reporter: nopReporter{},
		logger:   slog.New(slog.DiscardHandler),
		tracer:   noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type RunResult struct {
	RunID     string
	StartTime time.Time
	Duration  time.Duration
	// Tests holds every test of the graph in discovery order.
	Tests  []*graph.Test
	Suites []*graph.Suite
	// Counts only include real tests.
	Passed  int
	Failed  int
	Skipped int
	// PeakConcurrency is the largest number of tests that were in flight at once.
	PeakConcurrency int
}

// Total is the number of real tests.
func (r *RunResult) Total() int {
	return r.Passed + r.Failed + r.Skipped
}

// Clean reports whether every real test succeeded.
func (r *RunResult) Clean() bool {
	for _, t := range r.Tests {
		if t.IsReal() && t.State() != graph.StateSuccess {
			return false
		}
	}
	return true
}

// Failures returns the real tests that failed, in discovery order.
func (r *RunResult) Failures() []*graph.Test {
	var out []*graph.Test
	for _, t := range r.Tests {
		if t.IsReal() && t.State() == graph.StateFailure {
			out = append(out, t)
		}
	}
	return out
}

// Run executes g until every test is terminal. A failing test never aborts
// the run; an error is returned only for scheduling defects, an invalid
// configuration or a cancelled ctx. The result is returned in every case
// where the run started.
func (r *Runner) Run(ctx context.Context, g *graph.Graph) (*RunResult, error) {
	if g == nil {
		return nil, errors.New("nil test graph")
	}
	if r.config.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be a positive integer, got %d", r.config.Concurrency)
	}
	for _, t := range g.Tests() {
		if t.State() != graph.StatePending {
			return nil, fmt.Errorf("%w: %q is %s, a graph can only run once", pool.ErrInvariant, t.Identifier(), t.State())
		}
	}

	result := &RunResult{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
		Tests:     g.Tests(),
		Suites:    g.Suites(),
	}
	logger := r.logger.With("run_id", result.RunID)

	ctx, span := tracing.StartRunSpan(ctx, r.tracer, result.RunID, len(g.Tests()))

	for _, s := range g.Suites() {
		s.OnEnd(func(s *graph.Suite) {
			d, _ := s.Duration()
			logger.Debug("suite finished", "suite", s.Name(), "duration", d)
		})
	}

	logger.Info("run started", "tests", len(g.Tests()), "concurrency", r.config.Concurrency)
	s := newScheduler(r, g, logger)
	err := s.run(ctx)

	result.Duration = time.Since(result.StartTime)
	result.PeakConcurrency = s.peak
	for _, t := range g.Tests() {
		if !t.IsReal() {
			continue
		}
		switch t.State() {
		case graph.StateSuccess:
			result.Passed++
		case graph.StateFailure:
			result.Failed++
		case graph.StateSkipped:
			result.Skipped++
		}
	}

	if err != nil {
		logger.Error("run aborted", "error", err)
	}
	tracing.EndSpan(span, runState(result, err), err)
	logger.Info("run finished",
		"passed", result.Passed,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	r.reporter.Finished(result)
	return result, err
}

func runState(result *RunResult, err error) string {
	switch {
	case err != nil:
		return "aborted"
	case result.Clean():
		return "clean"
	default:
		return "failed"
	}
}
