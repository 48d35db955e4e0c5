package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/histograde/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outJSON         string
	classifyTimeout time.Duration
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <file|dir|url|->",
	Short: "Extract histologic grades from pathology records",
	Long: `Classify reads pathology records and prints one result per patient:
- Rule cascade grades, one per tumor mention, and the strategy that found them
- Text classifier labels for flagged lines (when a classifier is configured)
- The reconciled best grade

Input may be a record dump, a directory of dumps, an http(s) URL or "-" for
stdin. Text without record delimiters is treated as a single record.

Example:
  histograde classify report.txt
  histograde classify ./dumps --mode max-only --json grades.json
  echo "Histologic Grade: 3/9" | histograde classify -`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")
	classifyCmd.Flags().DurationVar(&classifyTimeout, "timeout", 10*time.Minute, "overall timeout")
	classifyCmd.Flags().StringVar(&annotations, "annotations", "", "annotation file or URL to attach gold grades")
	addClassifierFlags(classifyCmd)
	addMLFlags(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), classifyTimeout)
	defer cancel()

	cfg, p, err := setup(cmd)
	if err != nil {
		return err
	}

	records, err := loadRecords(ctx, p, args[0], annotations)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Classifying %d record(s) with %d workers...\n", len(records), cfg.Concurrency.Workers)
	}

	results := p.ClassifyAll(ctx, records, progressPrinter())
	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)

	if outJSON == "" {
		return renderer.WriteResultJSON(os.Stdout, results)
	}

	f, err := os.Create(outJSON)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := renderer.WriteResultJSON(f, results); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
	}
	return nil
}
