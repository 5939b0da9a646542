package pool

import (
	"cmp"
	"slices"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/http"
)

type Pool struct {
	queued    []*graph.Test
	inQueue   map[*graph.Test]bool
	running   map[*graph.Test]bool
	completed map[*graph.Test]bool
	pending   map[*graph.Test]*http.FuturePool
}

// New returns a pool seeded with the roots of g in discovery order.
func New(g *graph.Graph) *Pool {
	p := &Pool{
		inQueue:   make(map[*graph.Test]bool),
		running:   make(map[*graph.Test]bool),
		completed: make(map[*graph.Test]bool),
		pending:   make(map[*graph.Test]*http.FuturePool),
	}
	if g == nil {
		return p
	}
	for _, t := range g.Roots() {
		p.enqueue(t)
	}
	return p
}

// IsEmpty reports whether nothing is queued or running.
func (p *Pool) IsEmpty() bool {
	return len(p.queued) == 0 && len(p.running) == 0
}

// GetTestToRun removes the first runnable test from the queue, in FIFO
// order, and moves it to the running set. It returns nil when no queued
// test can run.
func (p *Pool) GetTestToRun() *graph.Test {
	for i, t := range p.queued {
		if !t.CanBeRun() {
			continue
		}
		p.queued = append(p.queued[:i:i], p.queued[i+1:]...)
		delete(p.inQueue, t)
		p.running[t] = true
		return t
	}
	return nil
}

// QueueTest adds t to the queue. Queueing a test twice, or one that is
// already running or completed, has no effect.
func (p *Pool) QueueTest(t *graph.Test) error {
	if p.HasTest(t) {
		return nil
	}
	for _, parent := range t.Parents() {
		if !parent.IsCompleted() {
			return invariantf("%q queued while parent %q is %s", t.Identifier(), parent.Identifier(), parent.State())
		}
	}
	p.enqueue(t)
	return nil
}

func (p *Pool) enqueue(t *graph.Test) {
	if p.HasTest(t) {
		return
	}
	p.queued = append(p.queued, t)
	p.inQueue[t] = true
}

// HasTest reports whether t is in any of the three sets.
func (p *Pool) HasTest(t *graph.Test) bool {
	return p.inQueue[t] || p.running[t] || p.completed[t]
}

func (p *Pool) HasCompletedTest(t *graph.Test) bool {
	return p.completed[t]
}

func (p *Pool) IsRunning(t *graph.Test) bool {
	return p.running[t]
}

// PassFinishTest moves t from running to completed.
func (p *Pool) PassFinishTest(t *graph.Test) error {
	if !p.running[t] {
		return invariantf("%q finished but is not running", t.Identifier())
	}
	if !t.IsCompleted() {
		return invariantf("%q finished in state %s", t.Identifier(), t.State())
	}
	delete(p.running, t)
	p.completed[t] = true
	return nil
}

// Complete finishes t and propagates its outcome to its children. It returns
// the tests that became queued and those that were skipped, both in the
// order their edges were declared.
func (p *Pool) Complete(t *graph.Test) (queued, skipped []*graph.Test, err error) {
	if err := p.PassFinishTest(t); err != nil {
		return nil, nil, err
	}
	if err := p.propagate(t, &queued, &skipped); err != nil {
		return queued, skipped, err
	}
	return queued, skipped, nil
}

// propagate skips every skip-if-failed child of a parent that did not
// succeed, cascading into the skipped child, and queues any other child
// whose parents are all terminal.
func (p *Pool) propagate(parent *graph.Test, queued, skipped *[]*graph.Test) error {
	succeeded := parent.State() == graph.StateSuccess

	for _, e := range parent.Edges() {
		child := e.Test
		if p.HasTest(child) || !child.IsPending() {
			continue
		}

		if e.SkipIfFailed && !succeeded {
			if err := child.Skip(); err != nil {
				return err
			}
			p.completed[child] = true
			*skipped = append(*skipped, child)
			if err := p.propagate(child, queued, skipped); err != nil {
				return err
			}
			continue
		}

		if !child.CanBeRun() {
			continue
		}
		if err := p.QueueTest(child); err != nil {
			return err
		}
		*queued = append(*queued, child)
	}
	return nil
}

// SkipRemaining skips every test of g that has not started yet and removes
// queued tests. It is used when a run is cancelled.
func (p *Pool) SkipRemaining(g *graph.Graph) ([]*graph.Test, error) {
	var skipped []*graph.Test
	for _, t := range g.Tests() {
		if !t.IsPending() {
			continue
		}
		if err := t.Skip(); err != nil {
			return skipped, err
		}
		delete(p.inQueue, t)
		p.completed[t] = true
		skipped = append(skipped, t)
	}
	p.queued = nil
	return skipped, nil
}

// QueueFutureHttp registers the outstanding batch issued by a running test.
func (p *Pool) QueueFutureHttp(t *graph.Test, batch *http.FuturePool) error {
	if !p.running[t] {
		return invariantf("%q issued calls while not running", t.Identifier())
	}
	p.pending[t] = batch
	return nil
}

// TakeFutureHttp returns and forgets the batch registered for t.
func (p *Pool) TakeFutureHttp(t *graph.Test) *http.FuturePool {
	batch := p.pending[t]
	delete(p.pending, t)
	return batch
}

func (p *Pool) HasPendingHttp(t *graph.Test) bool {
	_, ok := p.pending[t]
	return ok
}

// Running returns the running tests in discovery order.
func (p *Pool) Running() []*graph.Test {
	out := make([]*graph.Test, 0, len(p.running))
	for t := range p.running {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *graph.Test) int {
		return cmp.Compare(a.Index(), b.Index())
	})
	return out
}

// Queued returns the queue in FIFO order.
func (p *Pool) Queued() []*graph.Test {
	out := make([]*graph.Test, len(p.queued))
	copy(out, p.queued)
	return out
}

func (p *Pool) Completed() int { return len(p.completed) }
