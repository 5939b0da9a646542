package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the test graph and configuration without running",
	Long: `Build the registered test graph and load the configuration without
executing anything. Unknown dependencies, duplicate identifiers, cycles
and invalid settings are reported.

Examples:
  hitgraph validate
  hitgraph validate --config ci.hitgraph.yaml`,
	Args: cobra.NoArgs,
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().StringVar(&configFlag, "config", getEnvString("HITGRAPH_CONFIG", ""), "Path to config file (env: HITGRAPH_CONFIG)")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	g, err := loadGraph()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Valid: %d tests in %d suites\n", len(g.Tests()), len(g.Suites()))

	if _, err := resolveConfig(cmd); err != nil {
		return withExitCode(ExitConfigError, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Valid: configuration\n")
	return nil
}
