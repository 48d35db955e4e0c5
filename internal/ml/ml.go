// Package ml is the line-level text classifier used alongside the rule
// cascade. Each pathology line is labelled with a grade 0-4, where 0 means
// the line says nothing about grade.
package ml

import (
	"context"
	"errors"

	"github.com/ppiankov/histograde/internal/model"
)

var (
	// ErrNotTrained is returned when a model is used before training
	ErrNotTrained = errors.New("model not trained")

	// ErrEmptyTrainingSet is returned when there is nothing to learn from
	ErrEmptyTrainingSet = errors.New("empty training set")
)

// Example is one labelled line
type Example struct {
	Text  string      `json:"text"`
	Label model.Grade `json:"label"`
}

// Model labels lines with grades
type Model interface {
	// Name identifies the model in reports
	Name() string

	// Predict returns one label per line, in order
	Predict(ctx context.Context, lines []string) ([]model.Grade, error)
}

// Trainer fits a Model to labelled examples
type Trainer interface {
	Train(ctx context.Context, examples []Example) (Model, error)
}

// Flagged returns the lines with a non-zero label and those labels
func Flagged(lines []string, labels []model.Grade) ([]string, []model.Grade) {
	var outLines []string
	var outLabels []model.Grade
	for i, l := range labels {
		if i < len(lines) && l.Known() {
			outLines = append(outLines, lines[i])
			outLabels = append(outLabels, l)
		}
	}
	return outLines, outLabels
}
