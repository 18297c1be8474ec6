package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ljmartin/generalized-tempering/internal/config"
	"github.com/ljmartin/generalized-tempering/internal/dynamics"
	"github.com/ljmartin/generalized-tempering/internal/ladder"
	"github.com/ljmartin/generalized-tempering/internal/logging"
	"github.com/ljmartin/generalized-tempering/internal/report"
	"github.com/ljmartin/generalized-tempering/internal/store"
	"github.com/ljmartin/generalized-tempering/internal/tempering"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a tempering simulation over the configured level ladder",
		Long: `Run the built-in scaled harmonic system under serial simulated tempering.

The walker integrates dynamics between level-change attempts; at each attempt
every level's energy is evaluated, the next level is drawn by metropolized
independence sampling, and the Wang-Landau weights adapt until visitation is
flat and the update factor drops below the cutoff.

Examples:
  gsst run --steps 1000000 --report tempering.dat
  gsst run --report tempering.dat.gz --store runs.db --label "lambda-scan"
  gsst run --store runs.db --weights-from <run-id>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyRunFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			transitions := logging.NewTransitionLogger(cfg.Logging.Dir, cfg.Logging.Level)
			defer transitions.Close()

			lad, err := ladder.New(cfg.Levels)
			if err != nil {
				return err
			}

			seed := cfg.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			rng := rand.New(rand.NewSource(seed))
			sys := dynamics.NewHarmonic(cfg.Dynamics.Stiffness, cfg.Dynamics.Noise, rng)

			var rep *report.Writer
			if cfg.ReportFile != "" {
				rep, err = report.Open(cfg.ReportFile, cfg.Levels)
			} else {
				rep, err = report.NewWriter(os.Stdout, cfg.Levels)
			}
			if err != nil {
				return fmt.Errorf("failed to open report: %w", err)
			}
			defer rep.Close()

			ctx := context.Background()

			// Optional persistence: create a run row and snapshot weights at
			// every stage boundary.
			var db *store.Store
			var run store.Run
			var onStage func(tempering.StageSnapshot)
			if cfg.StorePath != "" {
				db, err = store.Open(cfg.StorePath)
				if err != nil {
					return fmt.Errorf("failed to open store: %w", err)
				}
				defer db.Close()

				weightsFrom, _ := cmd.Flags().GetString("weights-from")
				if weightsFrom != "" {
					snap, err := db.LatestSnapshot(ctx, weightsFrom)
					if err != nil {
						return fmt.Errorf("failed to load weights from run %s: %w", weightsFrom, err)
					}
					cfg.Weights = snap.Weights
					logger.Info("seeded pre-equilibrated weights",
						"run", weightsFrom, "step", snap.Step, "converged", snap.Converged)
				}

				run, err = db.CreateRun(ctx, cfg.Label, cfg.Levels, cfg.Cutoff, cfg.BaseTemperature)
				if err != nil {
					return fmt.Errorf("failed to create run: %w", err)
				}
				onStage = func(s tempering.StageSnapshot) {
					snap := store.Snapshot{
						RunID:        run.ID,
						Step:         s.Step,
						Stage:        s.Stage,
						UpdateFactor: s.UpdateFactor,
						Weights:      s.Weights,
						Converged:    s.Converged,
					}
					if err := db.SaveSnapshot(ctx, snap); err != nil {
						logger.Warn("failed to save weight snapshot", "step", s.Step, "error", err)
					}
				}
			} else if from, _ := cmd.Flags().GetString("weights-from"); from != "" {
				return fmt.Errorf("--weights-from requires a store (set store_path or --store)")
			}

			ctl, err := tempering.New(tempering.Options{
				Ladder:          lad,
				System:          sys,
				Cutoff:          cfg.Cutoff,
				BaseTemperature: cfg.BaseTemperature,
				Weights:         cfg.Weights,
				ChangeInterval:  cfg.ChangeInterval,
				ReportInterval:  cfg.ReportInterval,
				StartLevel:      cfg.StartLevel,
				Report:          rep,
				Rand:            rng,
				Logger:          logger,
				Transitions:     transitions,
				OnStage:         onStage,
			})
			if err != nil {
				return err
			}

			logger.Info("starting tempering run",
				"levels", len(cfg.Levels),
				"steps", cfg.Steps,
				"cutoff", cfg.Cutoff,
				"seed", seed,
				"preEquilibrated", cfg.Weights != nil)

			step := 0
			for step < cfg.Steps {
				n := ctl.NextTickSteps(step)
				if step+n > cfg.Steps {
					sys.Advance(cfg.Steps - step)
					break
				}
				sys.Advance(n)
				step += n
				if err := ctl.Tick(step); err != nil {
					return fmt.Errorf("tempering failed at step %d: %w", step, err)
				}
			}

			return printRunSummary(cmd, ctl, run, cfg.Steps, jsonOut)
		},
	}

	cmd.Flags().Int("steps", 0, "Total dynamics steps (overrides config)")
	cmd.Flags().Int64("seed", 0, "Random seed (overrides config)")
	cmd.Flags().Int("start-level", -1, "Starting level index (overrides config)")
	cmd.Flags().String("report", "", "Report file; .gz enables compression (overrides config)")
	cmd.Flags().String("store", "", "SQLite database for weight snapshots (overrides config)")
	cmd.Flags().String("label", "", "Label attached to the persisted run")
	cmd.Flags().String("weights-from", "", "Run ID whose latest snapshot seeds the weights")

	return cmd
}

// applyRunFlags layers explicitly-set run flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetInt("steps"); v > 0 {
		cfg.Steps = v
	}
	if v, _ := cmd.Flags().GetInt64("seed"); v != 0 {
		cfg.Seed = v
	}
	if v, _ := cmd.Flags().GetInt("start-level"); v >= 0 {
		cfg.StartLevel = v
	}
	if v, _ := cmd.Flags().GetString("report"); v != "" {
		cfg.ReportFile = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.StorePath = v
	}
	if v, _ := cmd.Flags().GetString("label"); v != "" {
		cfg.Label = v
	}
}

func printRunSummary(cmd *cobra.Command, ctl *tempering.Controller, run store.Run, steps int, jsonOut bool) error {
	if jsonOut {
		out := map[string]interface{}{
			"steps":             steps,
			"final_level":       ctl.CurrentLevel(),
			"final_level_value": ctl.CurrentValue(),
			"weights":           ctl.Weights(),
			"update_factor":     ctl.UpdateFactor(),
			"stages":            ctl.Stage(),
			"converged":         !ctl.AdaptationActive(),
			"made_transition":   ctl.HasMadeTransition(),
		}
		if run.ID != "" {
			out["run_id"] = run.ID
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	}

	fmt.Fprintf(os.Stderr, "Run complete after %d steps.\n", steps)
	if run.ID != "" {
		fmt.Fprintf(os.Stderr, "  Run ID:        %s\n", run.ID)
	}
	fmt.Fprintf(os.Stderr, "  Final level:   %d (value %g)\n", ctl.CurrentLevel(), ctl.CurrentValue())
	fmt.Fprintf(os.Stderr, "  Update factor: %g (stage %d)\n", ctl.UpdateFactor(), ctl.Stage())
	fmt.Fprintf(os.Stderr, "  Converged:     %v\n", !ctl.AdaptationActive())
	fmt.Fprintf(os.Stderr, "  Weights:       %s\n", formatWeights(ctl.Weights()))
	return nil
}

// formatWeights renders a weight vector compactly for terminal output.
func formatWeights(w []float64) string {
	s := "["
	for i, v := range w {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%.4g", v)
	}
	return s + "]"
}
