package capture

import (
	"bytes"
	"fmt"
	"sync"
)

// Step collects the output written during one test step.
type Step struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Begin starts a new, empty step capture.
func Begin() *Step {
	return &Step{}
}

func (s *Step) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *Step) Printf(format string, args ...any) {
	fmt.Fprintf(s, format, args...)
}

// End returns what was written since Begin or the previous End, and clears it.
func (s *Step) End() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buf.String()
	s.buf.Reset()
	return out
}
