package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/abdul-hamid-achik/hitgraph/packages/capture"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/http"
)

type eventKind int

const (
	eventStep eventKind = iota
	eventFlushed
	eventDone
)

type event struct {
	kind   eventKind
	task   *task
	output string
	batch  *http.FuturePool
	calls  int
	value  any
	err    error
}

// task is one in-flight execution of a test.
type task struct {
	test   *graph.Test
	span   trace.Span
	events chan<- event
	abort  <-chan struct{}

	current atomic.Pointer[capture.Step]

	// output accumulates every step's output; scheduler only.
	output strings.Builder

	mu     sync.Mutex
	sealed bool
}

// send delivers ev unless the task already reported its outcome.
func (k *task) send(ev event) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.sealed {
		return
	}
	if ev.kind == eventDone {
		k.sealed = true
	}
	select {
	case k.events <- ev:
	case <-k.abort:
	}
}

func (r *Runner) execute(ctx context.Context, k *task) {
	if r.config.TestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.TestTimeout)
		defer cancel()
	}

	k.current.Store(capture.Begin())
	result := make(chan event, 1)
	go func() {
		result <- r.body(ctx, k)
	}()

	select {
	case ev := <-result:
		k.send(ev)
	case <-ctx.Done():
		select {
		case ev := <-result:
			k.send(ev)
			return
		default:
		}
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) && r.config.TestTimeout > 0 {
			err = fmt.Errorf("timed out after %s: %w", r.config.TestTimeout, err)
		}
		k.send(event{
			kind:   eventDone,
			task:   k,
			output: k.current.Load().End(),
			err:    err,
		})
	}
}

// body runs the test method, then flushes each batch of queued calls and
// resumes the test with the results until no calls remain.
func (r *Runner) body(ctx context.Context, k *task) (ev event) {
	t := k.test
	ev = event{kind: eventDone, task: k}

	defer func() {
		if rec := recover(); rec != nil {
			ev.value = nil
			ev.err = recovered(rec)
		}
		ev.output = k.current.Load().End()
	}()

	var instance any
	if s := t.Suite(); s != nil {
		inst, err := s.Instance(ctx)
		if err != nil {
			ev.err = fmt.Errorf("building suite %q: %w", s.Name(), err)
			return ev
		}
		instance = inst
	}

	tt := graph.NewT(ctx, t, instance, k.current.Load(), r.futures.Fork())
	if init, ok := instance.(graph.Initializer); ok {
		if err := init.Initialize(tt); err != nil {
			ev.err = fmt.Errorf("initializing %q: %w", t.Identifier(), err)
			return ev
		}
	}

	ev.value, ev.err = t.Method()(tt)
	for ev.err == nil {
		next := tt.TakeNext()
		batch := tt.Futures()
		if next == nil && batch.IsEmpty() {
			break
		}

		out := capture.Begin()
		prev := k.current.Swap(out)
		tt.NextStep(out, r.futures.Fork())
		k.send(event{kind: eventStep, task: k, output: prev.End(), batch: batch, calls: batch.Len()})

		results, err := batch.Flush(ctx)
		k.send(event{kind: eventFlushed, task: k})
		if err != nil {
			ev.err = fmt.Errorf("flushing calls: %w", err)
			break
		}

		if next == nil {
			ev.err = http.FirstError(results)
			continue
		}
		ev.value, ev.err = next(tt, results)
	}

	// Calls queued by a failing step are still sent, their results dropped.
	if ev.err != nil && !tt.Futures().IsEmpty() {
		_, _ = tt.Futures().Flush(ctx)
	}
	return ev
}
