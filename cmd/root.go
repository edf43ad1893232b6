package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/trustgate/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "trustgate",
	Short: "Verification evidence aggregation and ship/no-ship gating",
	Long:  "Combines formal, runtime, chaos, and heuristic verification evidence into one calibrated trust score, applies organization policy, and produces an auditable ship/no-ship verdict with score history.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
