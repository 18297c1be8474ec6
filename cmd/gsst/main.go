package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	// Optional .env for GSST_* overrides; absence is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gsst",
		Short: "Generalized serial simulated tempering",
		Long: `gsst runs serial simulated tempering over a ladder of levels of an
arbitrary thermodynamic parameter (temperature, lambda, restraint center).

A single walker owns one level at a time; per-level weights are estimated
online with the Wang-Landau recursion until visitation is flat, then frozen.
Estimated weights can be persisted and reused to seed later runs.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.gsst/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newRunCmd(),
		newRunsCmd(),
		newConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("gsst version %s\n", version)
			}
		},
	}
}
