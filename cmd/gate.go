package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/trustgate/internal/chaos"
	"github.com/sells-group/trustgate/internal/engine"
	"github.com/sells-group/trustgate/internal/evidence"
	"github.com/sells-group/trustgate/internal/model"
	"github.com/sells-group/trustgate/internal/policy"
	"github.com/sells-group/trustgate/internal/verdict"
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Aggregate evidence batches and decide ship/no-ship",
	Long: `Run the trust gate over one or more evidence batch files.

Each batch file holds the clause results one verification tier produced
(formal proofs, runtime tests, chaos trials, heuristic scans). The gate
normalizes all batches, scores each trust category, composes the weighted
0-100 trust score, applies organization policy, and prints the verdict with
its reasons. Unless --no-history is set, the run is appended to score
history and compared against the project's rolling average.

Examples:
  # Gate a project using default policy and profile
  gate --evidence formal.json --evidence runtime.json --project-root .

  # Strict profile, explicit policy file, JSON output
  gate -e results.json --policy policy.yaml --profile strict --format json

  # Proof-bundle vocabulary for report consumers
  gate -e results.json --vocabulary proof`,
	RunE: runGate,
}

func init() {
	f := gateCmd.Flags()
	f.StringSliceP("evidence", "e", nil, "evidence batch file (repeatable)")
	f.String("source", "", "fallback evidence source for records that omit one (formal, runtime, heuristic)")
	f.String("policy", "", "policy file path (overrides config; empty uses built-in defaults)")
	f.String("profile", "", "threshold profile: strict, standard, lenient (default from policy)")
	f.String("project-root", ".", "project root used for fingerprinting")
	f.String("spec", "", "specification file the evidence refers to")
	f.String("impl", "", "implementation file the evidence refers to")
	f.String("commit", "", "commit hash recorded with the history entry")
	f.String("format", "table", "output format: table or json")
	f.String("vocabulary", "ship", "verdict vocabulary: ship or proof")
	f.String("chaos", "", "chaos runner summary file; scenarios join the evidence under the chaos category")
	f.Bool("no-history", false, "skip history read and append")

	rootCmd.AddCommand(gateCmd)
}

func runGate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	files, _ := cmd.Flags().GetStringSlice("evidence")
	if len(files) == 0 {
		return eris.New("gate: at least one --evidence file is required")
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" {
		return eris.Errorf("gate: --format must be table or json (got %q)", format)
	}
	vocabFlag, _ := cmd.Flags().GetString("vocabulary")
	vocab := verdict.Vocabulary(vocabFlag)
	if vocab != verdict.VocabularyShip && vocab != verdict.VocabularyProof {
		return eris.Errorf("gate: --vocabulary must be ship or proof (got %q)", vocabFlag)
	}

	pol, err := loadPolicy(cmd)
	if err != nil {
		return err
	}

	fallback, _ := cmd.Flags().GetString("source")
	producers := make([]evidence.Producer, len(files))
	for i, path := range files {
		producers[i] = evidence.NewFileProducer(path, model.EvidenceSource(fallback))
	}
	results, err := evidence.Collect(ctx, producers...)
	if err != nil {
		return err
	}

	if chaosFile, _ := cmd.Flags().GetString("chaos"); chaosFile != "" {
		chaosResults, err := loadChaosEvidence(chaosFile, pol)
		if err != nil {
			return err
		}
		results = append(results, chaosResults...)
	}

	projectRoot, _ := cmd.Flags().GetString("project-root")
	specFile, _ := cmd.Flags().GetString("spec")
	implFile, _ := cmd.Flags().GetString("impl")
	commit, _ := cmd.Flags().GetString("commit")
	noHistory, _ := cmd.Flags().GetBool("no-history")
	profile, _ := cmd.Flags().GetString("profile")

	meta := model.RunMetadata{
		SpecFile:    specFile,
		ImplFile:    implFile,
		Timestamp:   time.Now().UTC(),
		ProjectRoot: projectRoot,
		CommitHash:  commit,
	}
	// Flags win; batch envelope metadata fills whatever they left blank.
	if meta.SpecFile == "" || meta.ImplFile == "" {
		if batch, err := evidence.ReadBatch(files[0]); err == nil {
			if meta.SpecFile == "" {
				meta.SpecFile = batch.Metadata.SpecFile
			}
			if meta.ImplFile == "" {
				meta.ImplFile = batch.Metadata.ImplFile
			}
		}
	}

	opts := engine.Options{
		Policy:        pol,
		Profile:       profile,
		RecordHistory: !noHistory,
	}
	if !noHistory {
		store, err := openHistoryStore(ctx, cfg.History)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck
		opts.Store = store
	}

	eng, err := engine.New(opts)
	if err != nil {
		return err
	}

	zap.L().Info("gate: running",
		zap.Int("clauses", len(results)),
		zap.Int("batches", len(files)),
		zap.String("profile", opts.Profile),
	)

	res, err := eng.Run(ctx, results, meta)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		if err := printGateJSON(res, vocab, len(results)); err != nil {
			return err
		}
	default:
		printGateTable(res, vocab, len(results))
	}

	if res.Report.Verdict == model.VerdictNoShip {
		return eris.Errorf("gate: verdict %s", verdict.Render(res.Report.Verdict, vocab, len(results)))
	}
	return nil
}

// loadChaosEvidence evaluates a chaos runner summary and converts its
// scenarios into normalized chaos-category clause results.
func loadChaosEvidence(path string, pol *policy.Config) ([]model.ClauseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "gate: read chaos summary %s", path)
	}
	var sum chaos.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, eris.Wrapf(err, "gate: parse chaos summary %s", path)
	}

	tier := chaos.Evaluate(sum, pol.Scoring.ChaosCoverage)
	zap.L().Info("gate: chaos tier evaluated",
		zap.Int("score", tier.Score),
		zap.String("verdict", string(tier.Verdict)),
		zap.Float64("coverage", tier.Coverage.Overall),
		zap.Int("scenarios", len(sum.Scenarios)),
	)
	return evidence.Normalize(chaos.ClauseBatch(sum, tier), model.SourceRuntime), nil
}

// loadPolicy resolves the policy path from the flag or config. A path set
// in either place is explicit: failure to load it aborts the run.
func loadPolicy(cmd *cobra.Command) (*policy.Config, error) {
	path, _ := cmd.Flags().GetString("policy")
	if path == "" {
		path = cfg.Policy.Path
	}
	return policy.Load(path)
}

func printGateJSON(res *engine.Result, vocab verdict.Vocabulary, evidenceCount int) error {
	out := struct {
		Score      int                   `json:"score"`
		Verdict    string                `json:"verdict"`
		Profile    string                `json:"profile"`
		Categories []model.CategoryScore `json:"categories"`
		Reasons    []string              `json:"reasons"`
		Regression *struct {
			HasRegression bool    `json:"has_regression"`
			AverageScore  float64 `json:"average_score"`
			Compared      int     `json:"compared"`
		} `json:"regression,omitempty"`
	}{
		Score:      res.Report.Score,
		Verdict:    verdict.Render(res.Report.Verdict, vocab, evidenceCount),
		Profile:    res.ProfileName,
		Categories: res.Report.Categories,
		Reasons:    res.Report.Reasons,
	}
	if res.PriorRuns > 0 {
		out.Regression = &struct {
			HasRegression bool    `json:"has_regression"`
			AverageScore  float64 `json:"average_score"`
			Compared      int     `json:"compared"`
		}{res.Regression.HasRegression, res.Regression.AverageScore, res.Regression.Compared}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(out), "gate: encode report")
}

func printGateTable(res *engine.Result, vocab verdict.Vocabulary, evidenceCount int) {
	fmt.Printf("Trust Score:  %d / 100\n", res.Report.Score)
	fmt.Printf("Verdict:      %s\n", verdict.Render(res.Report.Verdict, vocab, evidenceCount))
	fmt.Printf("Profile:      %s\n", res.ProfileName)

	if len(res.Report.Categories) > 0 {
		fmt.Printf("\n%-16s %7s %8s %6s %6s %8s %8s\n",
			"Category", "Score", "Weight", "Pass", "Fail", "Partial", "Unknown")
		fmt.Println(strings.Repeat("-", 64))
		for _, cs := range res.Report.Categories {
			fmt.Printf("%-16s %7d %7.1f%% %6d %6d %8d %8d\n",
				cs.Category, cs.Score, cs.Weight*100,
				cs.Counts.Pass, cs.Counts.Fail, cs.Counts.Partial, cs.Counts.Unknown)
		}
	}

	if len(res.Report.Reasons) > 0 {
		fmt.Println("\nReasons:")
		for _, r := range res.Report.Reasons {
			fmt.Printf("  - %s\n", r)
		}
	}

	if res.PriorRuns > 0 {
		fmt.Printf("\nHistory: %d prior run(s), rolling average %.1f",
			res.PriorRuns, res.Regression.AverageScore)
		if res.Regression.HasRegression {
			fmt.Printf("  ** REGRESSION: score %d fell below average %.1f **",
				res.Regression.CurrentScore, res.Regression.AverageScore)
		}
		fmt.Println()
	}
}
