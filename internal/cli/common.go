package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/histograde/internal/model"
	"github.com/ppiankov/histograde/internal/pipeline"
	"github.com/ppiankov/histograde/internal/worker"
	"github.com/spf13/cobra"
)

// Flags shared by classify, evaluate and train
var (
	diffMode    string
	ceiling     int
	mlProvider  string
	mlModel     string
	modelPath   string
	noCache     bool
	workers     int
	annotations string
	idsFile     string
)

func addClassifierFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&diffMode, "mode", "", "differentiation mode: skip, max-only, exclude-3 (or 0, 1, 2)")
	cmd.Flags().IntVar(&ceiling, "ceiling", 0, "highest lone numeral taken literally (3 or 4)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the classification cache")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent record workers")
	cmd.Flags().StringVar(&idsFile, "ids", "", "file listing record ids to keep (one per line)")
}

func addMLFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&mlProvider, "ml", "", "text classifier: bayes, openai, ollama, none")
	cmd.Flags().StringVar(&mlModel, "ml-model", "", "LLM model name for openai/ollama")
	cmd.Flags().StringVar(&modelPath, "model", "", "trained naive Bayes model file")
}

// applyFlags overrides configuration with flags the user actually set
func applyFlags(cmd *cobra.Command, cfg *model.Config) error {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		if _, err := model.ParseDifferentiationMode(diffMode); err != nil {
			return err
		}
		cfg.Classifier.DifferentiationMode = diffMode
	}
	if flags.Changed("ceiling") {
		if ceiling != 3 && ceiling != 4 {
			return fmt.Errorf("--ceiling must be 3 or 4, got %d", ceiling)
		}
		cfg.Classifier.NumeralCeiling = ceiling
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if flags.Changed("workers") && workers > 0 {
		cfg.Concurrency.Workers = workers
	}
	if flags.Changed("ml") {
		cfg.ML.Provider = mlProvider
	}
	if flags.Changed("ml-model") {
		cfg.ML.Model = mlModel
	}
	if flags.Changed("model") {
		cfg.ML.ModelPath = modelPath
	}
	return nil
}

// setup loads configuration, applies flags and builds the pipeline
func setup(cmd *cobra.Command) (*model.Config, *pipeline.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, nil, err
	}

	p, err := pipeline.NewPipeline(cfg, newLogger(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, p, nil
}

// loadRecords reads records from source ("-" for stdin), attaches gold
// when an annotation source is given and applies the --ids filter
func loadRecords(ctx context.Context, p *pipeline.Pipeline, source, gold string) ([]model.Record, error) {
	var records []model.Record
	if source == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		records = p.ReadText("stdin", string(data))
	} else {
		var err error
		records, err = p.LoadRecords(ctx, source)
		if err != nil {
			return nil, err
		}
	}

	if gold != "" {
		g, err := p.LoadAnnotations(ctx, gold)
		if err != nil {
			return nil, err
		}
		if missing := p.AttachGold(records, g); len(missing) > 0 && verbose {
			fmt.Fprintf(os.Stderr, "⚠ %d record(s) have no annotations\n", len(missing))
		}
	}

	if idsFile != "" {
		ids, err := worker.ReadIDList(idsFile)
		if err != nil {
			return nil, fmt.Errorf("read id list: %w", err)
		}
		records = worker.FilterRecords(records, ids)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no records to process in %s", source)
	}
	return records, nil
}

// progressPrinter reports progress on stderr in verbose mode
func progressPrinter() worker.Progress {
	if !verbose {
		return nil
	}
	return func(done, total int, outcome *worker.RecordOutcome) {
		status := "✓"
		if outcome.Error != nil {
			status = "✗"
		}
		fmt.Fprintf(os.Stderr, "  [%d/%d] %s %s\n", done, total, status, outcome.RecordID)
	}
}
