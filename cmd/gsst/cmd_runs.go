package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ljmartin/generalized-tempering/internal/config"
	"github.com/ljmartin/generalized-tempering/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect persisted tempering runs",
		Long: `List persisted runs and their weight snapshots.

Examples:
  gsst runs list --store runs.db
  gsst runs show <run-id> --store runs.db`,
	}

	cmd.PersistentFlags().String("store", "", "SQLite database (overrides config store_path)")

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
	)

	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			db, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(context.Background(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tLABEL\tLEVELS\tCUTOFF\tTEMP\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%g\t%s\n",
					r.ID, r.Label, len(r.Levels), r.Cutoff, r.BaseTemperature,
					r.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the weight snapshots of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			runID := args[0]

			db, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			snaps, err := db.ListSnapshots(context.Background(), runID)
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"run_id":    runID,
					"snapshots": snaps,
					"count":     len(snaps),
				})
			}

			if len(snaps) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No snapshots for run %s.\n", runID)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tSTAGE\tFACTOR\tCONVERGED\tWEIGHTS")
			for _, s := range snaps {
				fmt.Fprintf(w, "%d\t%d\t%g\t%v\t%s\n",
					s.Step, s.Stage, s.UpdateFactor, s.Converged, formatWeights(s.Weights))
			}
			return w.Flush()
		},
	}
}

// openRunStore resolves the database path from the --store flag or the
// loaded configuration.
func openRunStore(cmd *cobra.Command) (*store.Store, error) {
	path, _ := cmd.Flags().GetString("store")
	if path == "" {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		path = cfg.StorePath
	}
	if path == "" {
		return nil, fmt.Errorf("no store configured (set store_path or pass --store)")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("store not found: %s", path)
	}
	return store.Open(path)
}
