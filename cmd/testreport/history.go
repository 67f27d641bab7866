package testreport

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kamilpajak/testreport/pkg/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List stored runs or render one of them",
	Long: `Without arguments, list the most recent runs saved with "parse --store".
With a run ID, render that run using the current output settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 0 {
		runs, err := db.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		printRunList(cmd.OutOrStdout(), runs)
		return nil
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run ID %q: %w", args[0], err)
	}
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	return renderRuns(cmd.OutOrStdout(), []*models.TestRunResult{run.Result}, cfg, false)
}
