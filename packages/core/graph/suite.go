package graph

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Factory builds the instance shared by every test of a suite.
type Factory func(ctx context.Context) (any, error)

// Suite groups the tests declared together and owns their shared instance.
type Suite struct {
	name    string
	factory Factory
	tests   []*Test

	group    singleflight.Group
	mu       sync.Mutex
	instance any
	built    bool

	startTime time.Time
	endTime   time.Time
	started   bool
	ended     bool
	onEnd     func(*Suite)
}

// NewSuite creates a suite. A nil factory gives tests a nil instance.
func NewSuite(name string, factory Factory) *Suite {
	return &Suite{
		name:    name,
		factory: factory,
	}
}

func (s *Suite) Name() string         { return s.name }
func (s *Suite) Tests() []*Test       { return s.tests }
func (s *Suite) StartTime() time.Time { return s.startTime }
func (s *Suite) EndTime() time.Time   { return s.endTime }
func (s *Suite) Ended() bool          { return s.ended }

// OnEnd registers a callback fired once when every member test is terminal.
func (s *Suite) OnEnd(fn func(*Suite)) {
	s.onEnd = fn
}

func (s *Suite) add(t *Test) {
	s.tests = append(s.tests, t)
}

// Instance returns the shared instance, building it on first use. Concurrent
// first callers share a single factory call. A factory error is not cached.
func (s *Suite) Instance(ctx context.Context) (any, error) {
	s.mu.Lock()
	if s.built {
		inst := s.instance
		s.mu.Unlock()
		return inst, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(s.name, func() (any, error) {
		s.mu.Lock()
		if s.built {
			inst := s.instance
			s.mu.Unlock()
			return inst, nil
		}
		s.mu.Unlock()

		var inst any
		if s.factory != nil {
			var err error
			inst, err = s.factory(ctx)
			if err != nil {
				return nil, err
			}
		}

		s.mu.Lock()
		s.instance = inst
		s.built = true
		s.mu.Unlock()
		return inst, nil
	})
	return v, err
}

func (s *Suite) start(at time.Time) {
	if s.started {
		return
	}
	s.started = true
	s.startTime = at
}

func (s *Suite) tryEnd(at time.Time) {
	if s.ended {
		return
	}
	for _, t := range s.tests {
		if !t.IsCompleted() {
			return
		}
	}
	s.ended = true
	s.endTime = at
	if !s.started {
		s.startTime = at
	}
	if s.onEnd != nil {
		s.onEnd(s)
	}
}

// Duration returns the suite wall time once every member has finished.
func (s *Suite) Duration() (time.Duration, error) {
	if !s.ended {
		return 0, ErrNotTerminal
	}
	return s.endTime.Sub(s.startTime), nil
}
