package runner

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hitgraph/packages/assertions"
)

// ErrStalled is returned when tests remain but none can ever run.
var ErrStalled = errors.New("scheduler stalled")

// recovered turns a panic raised by a test body into its failure.
func recovered(rec any) error {
	switch v := rec.(type) {
	case *assertions.Failure:
		return v
	case error:
		return fmt.Errorf("panic: %w", v)
	default:
		return fmt.Errorf("panic: %v", v)
	}
}
