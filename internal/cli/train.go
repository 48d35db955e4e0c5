package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var errNoModelOut = errors.New("--out is required")

var (
	modelOut     string
	trainTimeout time.Duration
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train <dir|file|url>",
	Short: "Train the naive Bayes line classifier",
	Long: `Train fits the naive Bayes text classifier on annotated records and
saves it for later runs (ml.model_path or --model).

Lines the rules can grade keep that grade, lines that mention grade take the
record's gold grade, and a seeded sample of other lines become negatives.

Example:
  histograde train ./train --annotations gold.json --out model.json`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVar(&annotations, "annotations", "", "annotation file or URL with gold grades (required)")
	trainCmd.Flags().StringVar(&modelOut, "out", "", "where to write the trained model (required)")
	trainCmd.Flags().DurationVar(&trainTimeout, "timeout", 30*time.Minute, "overall timeout")
	_ = trainCmd.MarkFlagRequired("annotations")
	_ = trainCmd.MarkFlagRequired("out")
	addClassifierFlags(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	if modelOut == "" {
		return errNoModelOut
	}

	ctx, cancel := context.WithTimeout(context.Background(), trainTimeout)
	defer cancel()

	_, p, err := setup(cmd)
	if err != nil {
		return err
	}

	records, err := loadRecords(ctx, p, args[0], annotations)
	if err != nil {
		return err
	}

	nb, n, err := p.Train(ctx, records)
	if err != nil {
		return err
	}
	if err := nb.Save(modelOut); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "✓ Trained on %d lines from %d records\n", n, len(records))
	fmt.Fprintf(os.Stderr, "✓ Wrote model: %s (%d classes, %d terms)\n", modelOut, len(nb.Classes), len(nb.Vocabulary))
	return nil
}
