package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitgraph/packages/history"
)

var (
	historyDBFlag    string
	historyLimitFlag int
	historyRunFlag   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs",
	Long: `Show runs recorded with "hitgraph run --history", newest first,
followed by the failures of the latest run.

Examples:
  hitgraph history --db runs.db
  hitgraph history --db runs.db --limit 5
  hitgraph history --db runs.db --run 3f1c0e52-...`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "db", getEnvString("HITGRAPH_HISTORY", ""), "SQLite history database (env: HITGRAPH_HISTORY)")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().StringVar(&historyRunFlag, "run", "", "Show every outcome of one run")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	if historyDBFlag == "" {
		return withExitCode(ExitUsageError, fmt.Errorf("--db is required"))
	}

	ctx := cmd.Context()
	store, err := history.Open(ctx, historyDBFlag)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	if historyRunFlag != "" {
		outcomes, err := store.Outcomes(ctx, historyRunFlag)
		if err != nil {
			return err
		}
		if len(outcomes) == 0 {
			return fmt.Errorf("no run %q recorded", historyRunFlag)
		}
		printOutcomes(cmd, outcomes)
		return nil
	}

	runs, err := store.Runs(ctx, historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tPASSED\tFAILED\tSKIPPED\tRESULT")
	for _, r := range runs {
		result := green("clean")
		if !r.Clean {
			result = red("failed")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Duration, r.Passed, r.Failed, r.Skipped, result)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	failures, err := store.LastFailures(ctx)
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		fmt.Fprintf(out, "\nFailures in the latest run:\n")
		printOutcomes(cmd, failures)
	}
	return nil
}

func printOutcomes(cmd *cobra.Command, outcomes []history.Outcome) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, o := range outcomes {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", o.TestID, o.State, o.Duration, o.Error)
	}
	_ = tw.Flush()
}
