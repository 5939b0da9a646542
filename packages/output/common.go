package output

import (
	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
)

// collector gives the file formats no-op live events. They read the final
// states from the run result instead.
type collector struct{}

func (collector) StepStarted(*graph.Test, string)   {}
func (collector) Succeeded(*graph.Test, string)     {}
func (collector) Failed(*graph.Test, string, error) {}
func (collector) Skipped(*graph.Test)               {}

func suiteName(t *graph.Test) string {
	if t.Suite() == nil {
		return "helpers"
	}
	return t.Suite().Name()
}

func errorText(t *graph.Test) string {
	if err := t.Failure(); err != nil {
		return err.Error()
	}
	return ""
}

func parentIDs(t *graph.Test) []string {
	parents := t.Parents()
	if len(parents) == 0 {
		return nil
	}
	ids := make([]string, len(parents))
	for i, p := range parents {
		ids[i] = p.Identifier()
	}
	return ids
}
