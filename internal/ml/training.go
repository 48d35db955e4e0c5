package ml

import (
	"math/rand/v2"
	"regexp"

	"github.com/ppiankov/histograde/internal/ingest"
	"github.com/ppiankov/histograde/internal/model"
	"github.com/ppiankov/histograde/internal/score"
)

// gradeCue marks lines that talk about grade even when no rule resolves them
var gradeCue = regexp.MustCompile(`(?i)\bgrade\b|differentiated|nottingham|bloom|richardson`)

// LineClassifier reads a grade from a single line
type LineClassifier func(line string) model.Grade

// BuildTrainingSet turns annotated records into labelled lines. A line the
// rules can grade keeps that grade. A line that mentions grade but resolves
// to nothing takes the record's gold verdict. Every other line becomes a
// negative example with probability negRatio. Records without gold are
// skipped. The same seed always yields the same set.
func BuildTrainingSet(records []model.Record, classify LineClassifier, negRatio float64, seed int64) []Example {
	rng := rand.New(rand.NewPCG(uint64(seed), 0))

	var examples []Example
	for _, rec := range records {
		if !rec.HasGold() {
			continue
		}
		gold := score.RuleBest(rec.Gold)

		for _, line := range ingest.PlainLines(rec.Text) {
			if g := classify(line); g.Known() {
				examples = append(examples, Example{Text: line, Label: g})
				continue
			}
			if gradeCue.MatchString(line) && gold.Known() {
				examples = append(examples, Example{Text: line, Label: gold})
				continue
			}
			if rng.Float64() < negRatio {
				examples = append(examples, Example{Text: line, Label: model.GradeUnknown})
			}
		}
	}
	return examples
}
