package graph

import (
	"fmt"
	"sync"
	"time"
)

// Method is the body of a test. The returned value is forwarded to every
// direct child when the test succeeds.
type Method func(t *T) (any, error)

// Edge is a dependency edge from a parent to one of its children.
type Edge struct {
	Test         *Test
	SkipIfFailed bool
}

type argument struct {
	source string
	value  any
}

// Test is a schedulable unit bound to one test method.
//
// State, edges and arguments are mutated by the scheduler only. Assertions
// are recorded by the running body and are guarded separately.
type Test struct {
	suite       *Suite
	name        string
	method      Method
	identifier  string
	displayName string
	real        bool
	index       int

	state     State
	startTime time.Time
	endTime   time.Time
	output    string
	failure   error

	parents   []*Test
	children  []Edge
	arguments []argument
	bound     int
	deps      []dependency

	mu         sync.Mutex
	assertions []string
}

// TestOption configures a Test.
type TestOption func(*Test)

// WithIdentifier overrides the default "<suite>::<method>" identifier.
func WithIdentifier(id string) TestOption {
	return func(t *Test) {
		t.identifier = id
	}
}

// WithDisplayName sets the name used by reporters.
func WithDisplayName(name string) TestOption {
	return func(t *Test) {
		t.displayName = name
	}
}

// Synthetic marks the test as a helper that is not counted as a real test.
func Synthetic() TestOption {
	return func(t *Test) {
		t.real = false
	}
}

// NewTest creates a pending test. suite may be nil for synthetic helpers.
func NewTest(suite *Suite, name string, method Method, opts ...TestOption) *Test {
	t := &Test{
		suite:  suite,
		name:   name,
		method: method,
		real:   true,
		state:  StatePending,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.identifier == "" {
		if suite != nil {
			t.identifier = fmt.Sprintf("%s::%s", suite.Name(), name)
		} else {
			t.identifier = name
		}
	}
	if t.displayName == "" {
		t.displayName = t.identifier
	}
	if suite != nil {
		suite.add(t)
	}
	return t
}

func (t *Test) Identifier() string   { return t.identifier }
func (t *Test) Name() string         { return t.name }
func (t *Test) DisplayName() string  { return t.displayName }
func (t *Test) Suite() *Suite        { return t.suite }
func (t *Test) Method() Method       { return t.method }
func (t *Test) IsReal() bool         { return t.real }
func (t *Test) State() State         { return t.state }
func (t *Test) Output() string       { return t.output }
func (t *Test) StartTime() time.Time { return t.startTime }
func (t *Test) EndTime() time.Time   { return t.endTime }

// Index is the discovery order of the test inside its graph.
func (t *Test) Index() int { return t.index }

// SetDisplayName changes the name used by reporters.
func (t *Test) SetDisplayName(name string) {
	t.displayName = name
}

// Failure returns the captured error. It is nil unless the test failed.
func (t *Test) Failure() error { return t.failure }

func (t *Test) IsCompleted() bool { return t.state.IsTerminal() }
func (t *Test) IsRunning() bool   { return t.state == StateRunning }
func (t *Test) IsPending() bool   { return t.state == StatePending }

// CanBeRun reports whether the test is pending and every parent is terminal.
func (t *Test) CanBeRun() bool {
	if t.IsCompleted() || t.IsRunning() {
		return false
	}
	for _, p := range t.parents {
		if !p.IsCompleted() {
			return false
		}
	}
	return true
}

func (t *Test) transition(to State) error {
	if !isAllowedTransition(t.state, to) {
		return transitionError(t.identifier, t.state, to)
	}
	t.state = to
	return nil
}

// Start moves the test to Running and records its start time.
func (t *Test) Start() error {
	if err := t.transition(StateRunning); err != nil {
		return err
	}
	t.startTime = time.Now()
	if t.suite != nil {
		t.suite.start(t.startTime)
	}
	return nil
}

// Success records a successful end with the output captured by its last step.
func (t *Test) Success(output string) error {
	if err := t.transition(StateSuccess); err != nil {
		return err
	}
	t.finish(output)
	return nil
}

// Fail records a failed end with the captured error.
func (t *Test) Fail(output string, err error) error {
	if terr := t.transition(StateFailure); terr != nil {
		return terr
	}
	t.failure = err
	t.finish(output)
	return nil
}

// Skip marks a pending test as skipped without ever running it.
func (t *Test) Skip() error {
	if err := t.transition(StateSkipped); err != nil {
		return err
	}
	t.startTime = time.Now()
	t.finish("")
	return nil
}

func (t *Test) finish(output string) {
	t.endTime = time.Now()
	t.output = output
	if t.suite != nil {
		t.suite.tryEnd(t.endTime)
	}
}

// Duration is the time between start and end. It is only defined once the
// test is terminal.
func (t *Test) Duration() (time.Duration, error) {
	if !t.IsCompleted() {
		return 0, fmt.Errorf("%w: %q is %s", ErrNotTerminal, t.identifier, t.state)
	}
	return t.endTime.Sub(t.startTime), nil
}

func (t *Test) AddParent(parent *Test) {
	t.parents = append(t.parents, parent)
}

func (t *Test) AddChild(child *Test, skipIfFailed bool) {
	t.children = append(t.children, Edge{Test: child, SkipIfFailed: skipIfFailed})
}

// Parents returns the parents in registration order.
func (t *Test) Parents() []*Test {
	return t.parents
}

// Edges returns the child edges in registration order.
func (t *Test) Edges() []Edge {
	return t.children
}

// Children returns the child tests, optionally only those linked with
// skipIfFailed.
func (t *Test) Children(onlySkipIfFailed bool) []*Test {
	children := make([]*Test, 0, len(t.children))
	for _, e := range t.children {
		if onlySkipIfFailed && !e.SkipIfFailed {
			continue
		}
		children = append(children, e.Test)
	}
	return children
}

// AddArgument stores a value for the test body. Values coming from a test
// are keyed by its identifier so a later value from the same source replaces
// the earlier one. A nil source binds a plain positional value.
func (t *Test) AddArgument(value any, from *Test) {
	if from == nil {
		t.bound++
		t.arguments = append(t.arguments, argument{source: fmt.Sprintf("\x00bound:%d", t.bound), value: value})
		return
	}
	for i := range t.arguments {
		if t.arguments[i].source == from.identifier {
			t.arguments[i].value = value
			return
		}
	}
	t.arguments = append(t.arguments, argument{source: from.identifier, value: value})
}

// Arguments returns parent-forwarded values in parent registration order,
// followed by every other stored value in insertion order.
func (t *Test) Arguments() []any {
	args := make([]any, 0, len(t.arguments))
	used := make(map[string]bool, len(t.parents))

	for _, p := range t.parents {
		for _, a := range t.arguments {
			if a.source == p.identifier && !used[a.source] {
				args = append(args, a.value)
				used[a.source] = true
				break
			}
		}
	}
	for _, a := range t.arguments {
		if used[a.source] {
			continue
		}
		args = append(args, a.value)
	}
	return args
}

func (t *Test) AddAssertion(desc string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.assertions = append(t.assertions, desc)
}

func (t *Test) Assertions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.assertions))
	copy(out, t.assertions)
	return out
}

func (t *Test) AssertionsCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.assertions)
}
