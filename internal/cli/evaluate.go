package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/histograde/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outputDir        string
	outMD            string
	outErrors        string
	trainSource      string
	trainAnnotations string
	evalTimeout      time.Duration
	noFooter         bool
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <dir|file|url>",
	Short: "Score extracted grades against annotated gold grades",
	Long: `Evaluate classifies every record and compares the verdicts with gold
annotations:
- Rule-only, classifier-only and combined accuracy, each with its formula
- Coverage, tumor count mismatches, missing annotations and failures
- A JSON report, an optional Markdown report and an error dump

When the naive Bayes classifier has no model file, pass --train to fit one
on a separate annotated set first; otherwise only the rules are scored.

Example:
  histograde evaluate ./test --annotations gold.json
  histograde evaluate ./test --annotations gold.json --train ./train
  histograde evaluate ./test --annotations gold.json --ml none --md report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&annotations, "annotations", "", "annotation file or URL with gold grades (required)")
	evaluateCmd.Flags().StringVar(&trainSource, "train", "", "annotated records to train the text classifier on")
	evaluateCmd.Flags().StringVar(&trainAnnotations, "train-annotations", "", "annotations for --train (default: --annotations)")
	evaluateCmd.Flags().StringVar(&outputDir, "output-dir", "./histograde-reports", "output directory for reports")
	evaluateCmd.Flags().StringVar(&outMD, "md", "", "Markdown report file name (optional)")
	evaluateCmd.Flags().StringVar(&outErrors, "errors", "errors.txt", "error dump file name (empty to skip)")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", 30*time.Minute, "overall timeout")
	evaluateCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	_ = evaluateCmd.MarkFlagRequired("annotations")
	addClassifierFlags(evaluateCmd)
	addMLFlags(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	cfg, p, err := setup(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("no-footer") {
		cfg.Output.IncludeFooter = !noFooter
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Histograde Evaluation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Records:     %s\n", source)
	fmt.Fprintf(os.Stderr, "  Gold:        %s\n", annotations)
	fmt.Fprintf(os.Stderr, "  Mode:        %s\n", cfg.Classifier.Mode())
	fmt.Fprintf(os.Stderr, "  Workers:     %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:  %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if trainSource != "" {
		if err := trainInto(ctx, p, trainSource, trainAnnotations); err != nil {
			return err
		}
	} else if p.Model() == nil && cfg.ML.Provider == "bayes" {
		fmt.Fprintf(os.Stderr, "⚠ No trained model (use --model or --train); scoring rules only\n")
	}

	records, err := loadRecords(ctx, p, source, annotations)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d records\n", len(records))

	report := p.Evaluate(ctx, subjectOf(source), records, progressPrinter())

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	jsonPath := filepath.Join(outputDir, "report.json")
	if err := renderer.RenderJSON(report, jsonPath); err != nil {
		return fmt.Errorf("render JSON: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)

	if outMD != "" {
		mdPath := filepath.Join(outputDir, outMD)
		if err := renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
	}

	if outErrors != "" {
		errPath := filepath.Join(outputDir, outErrors)
		if err := renderer.RenderErrors(report, errPath); err != nil {
			return fmt.Errorf("render error dump: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote error dump: %s\n", errPath)
	}

	renderer.RenderSummary(os.Stderr, report)
	return nil
}

// trainInto fits the naive Bayes classifier on an annotated set
func trainInto(ctx context.Context, p *pipeline.Pipeline, source, gold string) error {
	if gold == "" {
		gold = annotations
	}
	records, err := loadRecords(ctx, p, source, gold)
	if err != nil {
		return fmt.Errorf("load training records: %w", err)
	}

	_, n, err := p.Train(ctx, records)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Trained text classifier on %d lines from %d records\n", n, len(records))
	return nil
}

// subjectOf names a run after its input
func subjectOf(source string) string {
	if pipeline.IsRemote(source) {
		return source
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return source
	}
	return filepath.Base(abs)
}
