package graph

import (
	"context"
	"fmt"
	"io"

	"github.com/abdul-hamid-achik/hitgraph/packages/assertions"
	"github.com/abdul-hamid-achik/hitgraph/packages/capture"
	"github.com/abdul-hamid-achik/hitgraph/packages/http"
)

// Step continues a test once the calls queued by its previous step have
// settled. Its return value replaces the value of the previous step.
type Step func(t *T, results []*http.Result) (any, error)

// T is handed to a running test body. A T belongs to one test and must not
// be retained after the body returns.
type T struct {
	ctx      context.Context
	test     *Test
	instance any
	args     []any
	output   *capture.Step
	futures  *http.FuturePool
	assert   *assertions.Asserter
	next     Step
}

// NewT builds the context for one execution of test.
func NewT(ctx context.Context, test *Test, instance any, output *capture.Step, futures *http.FuturePool) *T {
	return &T{
		ctx:      ctx,
		test:     test,
		instance: instance,
		args:     test.Arguments(),
		output:   output,
		futures:  futures,
		assert:   assertions.New(test.AddAssertion),
	}
}

func (t *T) Context() context.Context { return t.ctx }
func (t *T) Test() *Test              { return t.test }

// Instance is the suite's shared instance, nil for suites without a factory.
func (t *T) Instance() any { return t.instance }

// Args returns the forwarded and bound arguments in delivery order.
func (t *T) Args() []any { return t.args }

// Arg returns the i-th argument, or nil when absent.
func (t *T) Arg(i int) any {
	if i < 0 || i >= len(t.args) {
		return nil
	}
	return t.args[i]
}

// Output is the writer attributed to the current step.
func (t *T) Output() io.Writer { return t.output }

func (t *T) Logf(format string, args ...any) {
	fmt.Fprintf(t.output, format+"\n", args...)
}

func (t *T) Assert() *assertions.Asserter { return t.assert }

// Client returns the HTTP client for direct, synchronous calls.
func (t *T) Client() *http.Client { return t.futures.Client() }

// Queue adds calls to the current step's batch. They are performed together
// once the step returns, and the test does not finish before they settle.
func (t *T) Queue(reqs ...*http.Request) {
	t.futures.Enqueue(reqs...)
}

// Then sets the continuation that receives the queued calls' results.
func (t *T) Then(step Step) {
	t.next = step
}

// Futures is the batch of calls queued by the current step.
func (t *T) Futures() *http.FuturePool { return t.futures }

// TakeNext returns the pending continuation and clears it.
func (t *T) TakeNext() Step {
	next := t.next
	t.next = nil
	return next
}

// NextStep swaps in a fresh batch and output capture for the following step.
func (t *T) NextStep(output *capture.Step, futures *http.FuturePool) {
	t.output = output
	t.futures = futures
}

// Initializer is implemented by suite instances that reset shared state
// before each of their tests runs.
type Initializer interface {
	Initialize(t *T) error
}
