package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/pool"
	"github.com/abdul-hamid-achik/hitgraph/packages/tracing"
)

// scheduler owns the pool and the graph for the duration of one run.
type scheduler struct {
	r        *Runner
	graph    *graph.Graph
	pool     *pool.Pool
	logger   *slog.Logger
	events   chan event
	abort    chan struct{}
	inflight map[*graph.Test]*task
	peak     int
}

func newScheduler(r *Runner, g *graph.Graph, logger *slog.Logger) *scheduler {
	return &scheduler{
		r:        r,
		graph:    g,
		pool:     pool.New(g),
		logger:   logger,
		events:   make(chan event),
		abort:    make(chan struct{}),
		inflight: make(map[*graph.Test]*task),
	}
}

// run dispatches tests while fewer than the configured number are in flight
// and waits for the next event otherwise. Cancelling ctx stops dispatching,
// skips the tests that have not started and waits for the running ones.
func (s *scheduler) run(ctx context.Context) error {
	defer close(s.abort)

	done := ctx.Done()
	cancelled := false
	for !s.pool.IsEmpty() {
		if !cancelled && ctx.Err() != nil {
			if err := s.cancel(); err != nil {
				return err
			}
			cancelled = true
			done = nil
			continue
		}

		if !cancelled && len(s.inflight) < s.r.config.Concurrency {
			if t := s.pool.GetTestToRun(); t != nil {
				if err := s.dispatch(ctx, t); err != nil {
					return err
				}
				continue
			}
		}

		if len(s.inflight) == 0 {
			return s.stalled()
		}

		// done is nil for contexts that cannot be cancelled and after
		// cancellation, leaving only the events case.
		select {
		case ev := <-s.events:
			if err := s.handle(ev); err != nil {
				return err
			}
		case <-done:
		}
	}

	for _, t := range s.graph.Tests() {
		if !t.IsCompleted() {
			return s.stalled()
		}
	}
	if cancelled {
		return ctx.Err()
	}
	return nil
}

func (s *scheduler) stalled() error {
	var waiting []string
	for _, t := range s.graph.Tests() {
		if !t.IsCompleted() {
			waiting = append(waiting, t.Identifier())
		}
	}
	return fmt.Errorf("%w: %d test(s) can never run: %s", ErrStalled, len(waiting), strings.Join(waiting, ", "))
}

func (s *scheduler) cancel() error {
	skipped, err := s.pool.SkipRemaining(s.graph)
	for _, t := range skipped {
		s.r.reporter.Skipped(t)
	}
	s.logger.Warn("run cancelled", "skipped", len(skipped), "in_flight", len(s.inflight))
	return err
}

func (s *scheduler) dispatch(ctx context.Context, t *graph.Test) error {
	s.r.reporter.StepStarted(t, "")
	if err := t.Start(); err != nil {
		return err
	}

	suite := ""
	if t.Suite() != nil {
		suite = t.Suite().Name()
	}
	ctx, span := tracing.StartTestSpan(ctx, s.r.tracer, t.Identifier(), suite)

	k := &task{
		test:   t,
		span:   span,
		events: s.events,
		abort:  s.abort,
	}
	s.inflight[t] = k
	if n := len(s.inflight); n > s.peak {
		s.peak = n
	}

	s.logger.Debug("test dispatched", "test", t.Identifier(), "in_flight", len(s.inflight))
	go s.r.execute(ctx, k)
	return nil
}

func (s *scheduler) handle(ev event) error {
	k, ok := s.inflight[ev.task.test]
	if !ok || k != ev.task {
		return nil
	}
	t := k.test

	switch ev.kind {
	case eventStep:
		k.output.WriteString(ev.output)
		s.r.reporter.StepStarted(t, ev.output)
		s.logger.Debug("flushing calls", "test", t.Identifier(), "calls", ev.calls)
		return s.pool.QueueFutureHttp(t, ev.batch)
	case eventFlushed:
		s.pool.TakeFutureHttp(t)
		return nil
	default:
		return s.finish(k, ev)
	}
}

// finish records the outcome of a test and propagates it to its children.
func (s *scheduler) finish(k *task, ev event) error {
	t := k.test
	delete(s.inflight, t)
	k.output.WriteString(ev.output)
	output := k.output.String()

	if ev.err == nil && s.pool.HasPendingHttp(t) {
		err := fmt.Errorf("%w: %q returned with unsettled calls", pool.ErrInvariant, t.Identifier())
		tracing.EndSpan(k.span, "aborted", err)
		return err
	}
	s.pool.TakeFutureHttp(t)

	if ev.err == nil {
		for _, e := range t.Edges() {
			e.Test.AddArgument(ev.value, t)
		}
		s.r.reporter.Succeeded(t, ev.output)
		if err := t.Success(output); err != nil {
			tracing.EndSpan(k.span, "aborted", err)
			return err
		}
	} else {
		s.r.reporter.Failed(t, ev.output, ev.err)
		if err := t.Fail(output, ev.err); err != nil {
			tracing.EndSpan(k.span, "aborted", err)
			return err
		}
	}
	tracing.EndSpan(k.span, t.State().String(), ev.err)

	d, _ := t.Duration()
	s.logger.Debug("test finished",
		"test", t.Identifier(),
		"state", t.State().String(),
		"duration", d,
		"assertions", t.AssertionsCount(),
	)

	queued, skipped, err := s.pool.Complete(t)
	for _, sk := range skipped {
		s.r.reporter.Skipped(sk)
		s.logger.Debug("test skipped", "test", sk.Identifier(), "cause", t.Identifier())
	}
	if err != nil {
		return err
	}
	if len(queued) > 0 {
		s.logger.Debug("tests unblocked", "parent", t.Identifier(), "count", len(queued))
	}
	return nil
}
