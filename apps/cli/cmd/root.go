package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
)

var (
	version   = "dev"
	buildTime = "unknown"

	buildGraph func() (*graph.Graph, error)
)

var rootCmd = &cobra.Command{
	Use:   "hitgraph",
	Short: "Dependency-aware API test runner.",
	Long: `hitgraph runs a graph of API tests registered in Go code. Tests
declare the tests they depend on, receive their return values and run
concurrently as soon as their parents have finished.`,
	SilenceUsage: true,
}

// Execute runs the CLI against the graph returned by build. build is called
// once per command that needs the tests, so each run gets fresh state.
func Execute(v, bt string, build func() (*graph.Graph, error)) {
	version = v
	buildTime = bt
	buildGraph = build
	os.Exit(execute())
}

func execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", exit.err)
		}
		return exit.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return ExitUsageError
}

func loadGraph() (*graph.Graph, error) {
	if buildGraph == nil {
		return nil, withExitCode(ExitGraphError, errors.New("no tests registered"))
	}
	g, err := buildGraph()
	if err != nil {
		return nil, withExitCode(ExitGraphError, err)
	}
	return g, nil
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}
