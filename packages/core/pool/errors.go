package pool

import (
	"errors"
	"fmt"
)

// ErrInvariant reports a scheduling defect such as queueing a test whose
// parents are still running. It must abort the run.
var ErrInvariant = errors.New("scheduling invariant violated")

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
