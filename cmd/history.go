package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/trustgate/internal/history"
	"github.com/sells-group/trustgate/internal/model"
	"github.com/sells-group/trustgate/internal/policy"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and export trust score history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history entries for the current project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		entries, _, err := loadProjectHistory(cmd)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No history entries for this project.")
			return nil
		}
		_ = ctx

		fmt.Printf("%-20s %6s %-10s %-10s %s\n", "Timestamp", "Score", "Verdict", "Commit", "Counts (P/F/Pa/U)")
		fmt.Println(strings.Repeat("-", 72))
		for _, e := range entries {
			commit := e.CommitHash
			if len(commit) > 8 {
				commit = commit[:8]
			}
			fmt.Printf("%-20s %6d %-10s %-10s %d/%d/%d/%d\n",
				e.Timestamp.Format("2006-01-02 15:04:05"), e.Score, e.Verdict, commit,
				e.Counts.Pass, e.Counts.Fail, e.Counts.Partial, e.Counts.Unknown)
		}
		return nil
	},
}

var historyRegressionCmd = &cobra.Command{
	Use:   "regression",
	Short: "Check a score against the rolling history average",
	RunE: func(cmd *cobra.Command, _ []string) error {
		score, _ := cmd.Flags().GetInt("score")
		if score < 0 || score > 100 {
			return eris.Errorf("history: --score must be within [0,100] (got %d)", score)
		}

		entries, pol, err := loadProjectHistory(cmd)
		if err != nil {
			return err
		}

		reg := history.DetectRegression(entries, score,
			pol.Scoring.RegressionWindow, pol.Scoring.RegressionDelta)

		fmt.Printf("Current score:   %d\n", reg.CurrentScore)
		fmt.Printf("Rolling average: %.1f (over %d of last %d entries)\n",
			reg.AverageScore, reg.Compared, reg.Window)
		if reg.HasRegression {
			fmt.Println("Regression:      YES")
			return eris.New("history: score regression detected")
		}
		fmt.Println("Regression:      no")
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export history entries to CSV or XLSX for audit hand-off",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			return eris.New("history: --output is required for export")
		}

		entries, _, err := loadProjectHistory(cmd)
		if err != nil {
			return err
		}

		switch format {
		case "csv":
			if err := exportHistoryCSV(output, entries); err != nil {
				return err
			}
		case "xlsx":
			if err := exportHistoryXLSX(output, entries); err != nil {
				return err
			}
		default:
			return eris.Errorf("history: --format must be csv or xlsx (got %q)", format)
		}

		fmt.Printf("Exported %d entries to %s\n", len(entries), output)
		return nil
	},
}

func init() {
	historyCmd.PersistentFlags().String("project-root", ".", "project root used for fingerprinting")
	historyCmd.PersistentFlags().String("policy", "", "policy file path (default from config)")

	historyRegressionCmd.Flags().Int("score", 0, "score to compare against history")

	historyExportCmd.Flags().String("format", "csv", "export format: csv or xlsx")
	historyExportCmd.Flags().String("output", "", "output file path")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyRegressionCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadProjectHistory opens the configured store and returns this project's
// entries (oldest first) plus the loaded policy for scoring parameters.
func loadProjectHistory(cmd *cobra.Command) ([]model.TrustHistoryEntry, *policy.Config, error) {
	ctx := cmd.Context()

	path, _ := cmd.Flags().GetString("policy")
	if path == "" {
		path = cfg.Policy.Path
	}
	pol, err := policy.Load(path)
	if err != nil {
		return nil, nil, err
	}

	projectRoot, _ := cmd.Flags().GetString("project-root")
	fingerprint, err := history.ComputeFingerprint(projectRoot)
	if err != nil {
		return nil, nil, err
	}

	store, err := openHistoryStore(ctx, cfg.History)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close() //nolint:errcheck

	entries, err := store.Load(ctx, fingerprint)
	if err != nil {
		return nil, nil, err
	}
	return entries, pol, nil
}

var historyExportHeader = []string{
	"timestamp", "score", "verdict", "commit_hash", "fingerprint",
	"pass", "fail", "partial", "unknown",
}

func exportHistoryCSV(path string, entries []model.TrustHistoryEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "history: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write(historyExportHeader); err != nil {
		return eris.Wrap(err, "history: write CSV header")
	}
	for _, e := range entries {
		row := []string{
			e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			fmt.Sprintf("%d", e.Score),
			string(e.Verdict),
			e.CommitHash,
			e.Fingerprint,
			fmt.Sprintf("%d", e.Counts.Pass),
			fmt.Sprintf("%d", e.Counts.Fail),
			fmt.Sprintf("%d", e.Counts.Partial),
			fmt.Sprintf("%d", e.Counts.Unknown),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "history: write CSV row")
		}
	}
	return nil
}

func exportHistoryXLSX(path string, entries []model.TrustHistoryEntry) error {
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("Trust History")
	if err != nil {
		return eris.Wrap(err, "history: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range historyExportHeader {
		header.AddCell().SetString(h)
	}
	for _, e := range entries {
		row := sheet.AddRow()
		row.AddCell().SetString(e.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		row.AddCell().SetInt(e.Score)
		row.AddCell().SetString(string(e.Verdict))
		row.AddCell().SetString(e.CommitHash)
		row.AddCell().SetString(e.Fingerprint)
		row.AddCell().SetInt(e.Counts.Pass)
		row.AddCell().SetInt(e.Counts.Fail)
		row.AddCell().SetInt(e.Counts.Partial)
		row.AddCell().SetInt(e.Counts.Unknown)
	}

	return eris.Wrapf(wb.Save(path), "history: save %s", path)
}
