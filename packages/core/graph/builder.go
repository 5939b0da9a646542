package graph

import (
	"strings"
)

type dependency struct {
	id           string
	skipIfFailed bool
}

// Depends makes the test wait for id and skips it when id does not succeed.
// Inside a suite, a bare method name refers to a test of the same suite.
func Depends(id string) TestOption {
	return func(t *Test) {
		t.deps = append(t.deps, dependency{id: id, skipIfFailed: true})
	}
}

// DependsAllowFailure makes the test wait for id but still run when id fails.
func DependsAllowFailure(id string) TestOption {
	return func(t *Test) {
		t.deps = append(t.deps, dependency{id: id, skipIfFailed: false})
	}
}

// WithArguments binds values passed to the body after forwarded ones.
func WithArguments(values ...any) TestOption {
	return func(t *Test) {
		for _, v := range values {
			t.AddArgument(v, nil)
		}
	}
}

// Graph is a validated set of tests ready to be scheduled.
type Graph struct {
	tests  []*Test
	suites []*Suite
	byID   map[string]*Test
}

// Tests returns every test in discovery order.
func (g *Graph) Tests() []*Test   { return g.tests }
func (g *Graph) Suites() []*Suite { return g.suites }

func (g *Graph) Test(id string) (*Test, bool) {
	t, ok := g.byID[id]
	return t, ok
}

// Roots returns the tests without parents in discovery order.
func (g *Graph) Roots() []*Test {
	var roots []*Test
	for _, t := range g.tests {
		if len(t.parents) == 0 {
			roots = append(roots, t)
		}
	}
	return roots
}

// Builder is the declarative registration API producing a Graph.
type Builder struct {
	suites []*Suite
	tests  []*Test
}

func NewBuilder() *Builder {
	return &Builder{}
}

// SuiteBuilder registers tests on one suite.
type SuiteBuilder struct {
	b     *Builder
	suite *Suite
}

// Suite registers a suite whose tests share the instance built by factory.
func (b *Builder) Suite(name string, factory Factory) *SuiteBuilder {
	s := NewSuite(name, factory)
	b.suites = append(b.suites, s)
	return &SuiteBuilder{b: b, suite: s}
}

// Add registers a test built elsewhere, typically a synthetic helper.
func (b *Builder) Add(t *Test) *Test {
	b.tests = append(b.tests, t)
	return t
}

func (s *SuiteBuilder) Suite() *Suite { return s.suite }

// Test registers a real test named name.
func (s *SuiteBuilder) Test(name string, method Method, opts ...TestOption) *SuiteBuilder {
	s.b.Add(NewTest(s.suite, name, method, opts...))
	return s
}

// Helper registers a synthetic test that other tests can depend on but that
// is not counted as a real test.
func (s *SuiteBuilder) Helper(name string, method Method, opts ...TestOption) *SuiteBuilder {
	s.b.Add(NewTest(s.suite, name, method, append(opts, Synthetic())...))
	return s
}

// Build wires dependency edges and validates the graph. It fails on
// duplicate identifiers or dependencies, unknown or self dependencies, and
// cycles.
func (b *Builder) Build() (*Graph, error) {
	g := &Graph{
		tests:  b.tests,
		suites: b.suites,
		byID:   make(map[string]*Test, len(b.tests)),
	}

	for i, t := range b.tests {
		if t.method == nil {
			return nil, invalidf("test %q has no method", t.identifier)
		}
		if _, exists := g.byID[t.identifier]; exists {
			return nil, invalidf("duplicate test identifier %q", t.identifier)
		}
		t.index = i
		g.byID[t.identifier] = t
	}

	for _, t := range b.tests {
		seen := make(map[*Test]bool, len(t.deps))
		for _, dep := range t.deps {
			parent := g.resolve(t, dep.id)
			if parent == nil {
				return nil, invalidf("test %q depends on unknown test %q", t.identifier, dep.id)
			}
			if parent == t {
				return nil, invalidf("test %q depends on itself", t.identifier)
			}
			if seen[parent] {
				return nil, invalidf("test %q depends on %q more than once", t.identifier, parent.identifier)
			}
			seen[parent] = true
			t.AddParent(parent)
			parent.AddChild(t, dep.skipIfFailed)
		}
		t.deps = nil
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) resolve(from *Test, id string) *Test {
	if from.suite != nil && !strings.Contains(id, "::") {
		if t, ok := g.byID[from.suite.Name()+"::"+id]; ok {
			return t
		}
	}
	return g.byID[id]
}

const (
	unvisited = iota
	visiting
	visited
)

func (g *Graph) detectCycles() error {
	marks := make(map[*Test]int, len(g.tests))
	var stack []*Test

	var visit func(t *Test) error
	visit = func(t *Test) error {
		marks[t] = visiting
		stack = append(stack, t)
		for _, e := range t.children {
			switch marks[e.Test] {
			case visiting:
				var path []string
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == e.Test {
						for _, s := range stack[i:] {
							path = append(path, s.identifier)
						}
						break
					}
				}
				return cycleError(append(path, e.Test.identifier))
			case unvisited:
				if err := visit(e.Test); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		marks[t] = visited
		return nil
	}

	for _, t := range g.tests {
		if marks[t] == unvisited {
			if err := visit(t); err != nil {
				return err
			}
		}
	}
	return nil
}
