package ml

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ppiankov/histograde/internal/model"
)

func trainingExamples() []Example {
	return []Example{
		{Text: "Histologic grade: poorly differentiated", Label: 3},
		{Text: "high grade carcinoma, poorly formed glands", Label: 3},
		{Text: "well differentiated adenocarcinoma", Label: 1},
		{Text: "low grade tumor, well formed tubules", Label: 1},
		{Text: "margins are free of tumor", Label: 0},
		{Text: "specimen received in formalin", Label: 0},
		{Text: "lymph nodes negative", Label: 0},
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Grade: 2/3, Well-Differentiated")
	want := []string{"grade", "2", "3", "well", "differentiated"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestBayesTrainer_EmptySet(t *testing.T) {
	_, err := NewBayesTrainer().Train(context.Background(), nil)
	if !errors.Is(err, ErrEmptyTrainingSet) {
		t.Errorf("expected ErrEmptyTrainingSet, got %v", err)
	}
}

func TestNaiveBayes_Predict(t *testing.T) {
	m, err := NewBayesTrainer().Train(context.Background(), trainingExamples())
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if m.Name() != "bayes" {
		t.Errorf("expected name bayes, got %s", m.Name())
	}

	labels, err := m.Predict(context.Background(), []string{
		"poorly differentiated",
		"well differentiated",
		"margins free",
	})
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	want := []model.Grade{3, 1, 0}
	if !slices.Equal(labels, want) {
		t.Errorf("expected %v, got %v", want, labels)
	}
}

func TestNaiveBayes_UnknownWordsUsePrior(t *testing.T) {
	m, _ := NewBayesTrainer().Train(context.Background(), trainingExamples())

	labels, err := m.Predict(context.Background(), []string{"zzz qqq"})
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	// Class 0 has the largest prior
	if labels[0] != 0 {
		t.Errorf("expected 0 for unseen words, got %d", labels[0])
	}
}

func TestBayesTrainer_DropsConstantFeatures(t *testing.T) {
	examples := []Example{
		{Text: "report grade 1", Label: 1},
		{Text: "report grade 3", Label: 3},
		{Text: "report nothing", Label: 0},
	}
	m, err := NewBayesTrainer().Train(context.Background(), examples)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	nb := m.(*NaiveBayes)
	if nb.Vocabulary["report"] {
		t.Error("expected term present once in every line to be dropped")
	}
	if !nb.Vocabulary["grade"] {
		t.Error("expected term missing from one line to be kept")
	}
}

func TestNaiveBayes_Untrained(t *testing.T) {
	var nb *NaiveBayes
	if _, err := nb.Predict(context.Background(), []string{"x"}); !errors.Is(err, ErrNotTrained) {
		t.Errorf("expected ErrNotTrained, got %v", err)
	}
}

func TestNaiveBayes_SaveLoad(t *testing.T) {
	m, _ := NewBayesTrainer().Train(context.Background(), trainingExamples())
	path := filepath.Join(t.TempDir(), "model.json")

	if err := m.(*NaiveBayes).Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadNaiveBayes(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	lines := []string{"poorly differentiated", "well differentiated", "lymph nodes"}
	before, _ := m.Predict(context.Background(), lines)
	after, _ := loaded.Predict(context.Background(), lines)
	if !slices.Equal(before, after) {
		t.Errorf("expected loaded model to agree, got %v vs %v", before, after)
	}
}

func TestLoadNaiveBayes_Missing(t *testing.T) {
	if _, err := LoadNaiveBayes(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing model file")
	}
}

func TestFlagged(t *testing.T) {
	lines, labels := Flagged([]string{"a", "b", "c"}, []model.Grade{0, 2, 3})
	if !slices.Equal(lines, []string{"b", "c"}) || !slices.Equal(labels, []model.Grade{2, 3}) {
		t.Errorf("unexpected flagged lines %v %v", lines, labels)
	}
}
