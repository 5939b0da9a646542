package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered tests",
	Long: `List all registered tests grouped by suite, with their dependencies.

A dependency marked "(allow failure)" lets the test run even when the
dependency fails.

Examples:
  hitgraph list`,
	Args: cobra.NoArgs,
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	g, err := loadGraph()
	if err != nil {
		return err
	}
	printGraph(cmd.OutOrStdout(), g)
	return nil
}

func printGraph(w io.Writer, g *graph.Graph) {
	count := 0
	for _, t := range g.Tests() {
		if t.IsReal() {
			count++
		}
	}

	var helpers []*graph.Test
	for _, t := range g.Tests() {
		if t.Suite() == nil {
			helpers = append(helpers, t)
		}
	}

	for _, s := range g.Suites() {
		fmt.Fprintf(w, "\n%s:\n", s.Name())
		for _, t := range s.Tests() {
			printTest(w, t)
		}
	}
	if len(helpers) > 0 {
		fmt.Fprintf(w, "\nhelpers:\n")
		for _, t := range helpers {
			printTest(w, t)
		}
	}
	fmt.Fprintf(w, "\n%d tests in %d suites\n", count, len(g.Suites()))
}

func printTest(w io.Writer, t *graph.Test) {
	name := t.DisplayName()
	if !t.IsReal() {
		name += " (helper)"
	}
	fmt.Fprintf(w, "  - %s\n", name)

	var deps []string
	for _, p := range t.Parents() {
		for _, e := range p.Edges() {
			if e.Test != t {
				continue
			}
			if e.SkipIfFailed {
				deps = append(deps, p.Identifier())
			} else {
				deps = append(deps, p.Identifier()+" (allow failure)")
			}
			break
		}
	}
	if len(deps) > 0 {
		fmt.Fprintf(w, "    depends on: %s\n", strings.Join(deps, ", "))
	}
}
