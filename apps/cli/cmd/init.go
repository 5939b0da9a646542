package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/config"
)

var (
	forceInit   bool
	initBaseURL string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a .hitgraph.yaml with the default settings to the current directory.

Examples:
  hitgraph init
  hitgraph init --base-url http://localhost:8080
  hitgraph init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
	initCmd.Flags().StringVar(&initBaseURL, "base-url", "http://localhost:3000", "Base URL for relative request URLs")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, config.ConfigFilenames[0])
	if !forceInit {
		if _, err := os.Stat(configFile); err == nil {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", configFile)
		}
	}

	cfg := config.DefaultConfig()
	cfg.BaseURL = initBaseURL
	cfg.Headers = map[string]string{
		"User-Agent": "hitgraph/" + version,
	}
	cfg.OutputDir = "reports"

	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)
	fmt.Fprintf(cmd.OutOrStdout(), "\nRun 'hitgraph run' to execute the registered tests.\n")

	return nil
}
