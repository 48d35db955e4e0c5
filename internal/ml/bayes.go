package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/ppiankov/histograde/internal/model"
)

// NaiveBayes is a multinomial naive Bayes bag-of-words classifier with
// Laplace smoothing
type NaiveBayes struct {
	Classes    []model.Grade                  `json:"classes"`
	LogPriors  map[model.Grade]float64        `json:"log_priors"`
	WordCounts map[model.Grade]map[string]int `json:"word_counts"`
	TotalWords map[model.Grade]int            `json:"total_words"`
	Vocabulary map[string]bool                `json:"vocabulary"`
	Documents  int                            `json:"documents"`
}

// BayesTrainer trains NaiveBayes models
type BayesTrainer struct{}

// NewBayesTrainer creates a naive Bayes trainer
func NewBayesTrainer() *BayesTrainer {
	return &BayesTrainer{}
}

// Tokenize lower-cases text and splits it into letter/digit runs
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		counts[tok]++
	}
	return counts
}

// featureStat tracks whether a term's count differs across documents
type featureStat struct {
	first    int
	docs     int
	constant bool
}

// Train fits the model. Terms whose count is identical in every document
// carry no signal and are dropped.
func (t *BayesTrainer) Train(ctx context.Context, examples []Example) (Model, error) {
	if len(examples) == 0 {
		return nil, ErrEmptyTrainingSet
	}

	docs := make([]map[string]int, len(examples))
	stats := make(map[string]*featureStat)
	for i, ex := range examples {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		docs[i] = termCounts(ex.Text)
		for term, n := range docs[i] {
			s, ok := stats[term]
			if !ok {
				stats[term] = &featureStat{first: n, docs: 1, constant: true}
				continue
			}
			s.docs++
			if n != s.first {
				s.constant = false
			}
		}
	}

	vocab := make(map[string]bool)
	for term, s := range stats {
		if len(examples) > 1 && s.docs == len(examples) && s.constant {
			continue
		}
		vocab[term] = true
	}

	nb := &NaiveBayes{
		LogPriors:  make(map[model.Grade]float64),
		WordCounts: make(map[model.Grade]map[string]int),
		TotalWords: make(map[model.Grade]int),
		Vocabulary: vocab,
		Documents:  len(examples),
	}

	classDocs := make(map[model.Grade]int)
	for i, ex := range examples {
		c := ex.Label
		classDocs[c]++
		if nb.WordCounts[c] == nil {
			nb.WordCounts[c] = make(map[string]int)
		}
		for term, n := range docs[i] {
			if !vocab[term] {
				continue
			}
			nb.WordCounts[c][term] += n
			nb.TotalWords[c] += n
		}
	}

	for c, n := range classDocs {
		nb.Classes = append(nb.Classes, c)
		nb.LogPriors[c] = math.Log(float64(n) / float64(len(examples)))
	}
	slices.Sort(nb.Classes)

	return nb, nil
}

// Name identifies the model
func (nb *NaiveBayes) Name() string {
	return "bayes"
}

// Predict labels each line with the most probable class. Ties go to the
// lower class.
func (nb *NaiveBayes) Predict(ctx context.Context, lines []string) ([]model.Grade, error) {
	if nb == nil || len(nb.Classes) == 0 {
		return nil, ErrNotTrained
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels := make([]model.Grade, len(lines))
	for i, line := range lines {
		labels[i] = nb.classify(termCounts(line))
	}
	return labels, nil
}

func (nb *NaiveBayes) classify(counts map[string]int) model.Grade {
	v := float64(len(nb.Vocabulary))
	best := nb.Classes[0]
	bestScore := math.Inf(-1)
	for _, c := range nb.Classes {
		score := nb.LogPriors[c]
		denom := float64(nb.TotalWords[c]) + v
		for term, n := range counts {
			if !nb.Vocabulary[term] {
				continue
			}
			score += float64(n) * math.Log((float64(nb.WordCounts[c][term])+1)/denom)
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// Save writes the model as JSON
func (nb *NaiveBayes) Save(path string) error {
	data, err := json.Marshal(nb)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	return nil
}

// LoadNaiveBayes reads a model written by Save
func LoadNaiveBayes(path string) (*NaiveBayes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	var nb NaiveBayes
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", path, err)
	}
	if len(nb.Classes) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNotTrained)
	}
	return &nb, nil
}
