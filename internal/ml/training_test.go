package ml

import (
	"testing"

	"github.com/ppiankov/histograde/internal/model"
)

func fixedClassifier(line string) model.Grade {
	if line == "Histologic grade: 2" {
		return 2
	}
	return 0
}

func TestBuildTrainingSet(t *testing.T) {
	records := []model.Record{
		{ID: "PAT1", Gold: []model.Grade{3}, Text: "Histologic grade: 2\nGrade: see comment\nmargins free\nnodes negative"},
		{ID: "PAT2", Text: "Histologic grade: 2"},
	}

	examples := BuildTrainingSet(records, fixedClassifier, 1.0, 1)
	if len(examples) != 4 {
		t.Fatalf("expected 4 examples, got %d: %+v", len(examples), examples)
	}
	if examples[0].Label != 2 {
		t.Errorf("expected rule label 2, got %d", examples[0].Label)
	}
	if examples[1].Label != 3 {
		t.Errorf("expected gold label 3 for grade cue line, got %d", examples[1].Label)
	}
	if examples[2].Label != 0 || examples[3].Label != 0 {
		t.Errorf("expected negatives, got %+v", examples[2:])
	}
}

func TestBuildTrainingSet_NoNegatives(t *testing.T) {
	records := []model.Record{
		{ID: "PAT1", Gold: []model.Grade{1}, Text: "margins free\nnodes negative"},
	}
	if got := BuildTrainingSet(records, fixedClassifier, 0, 1); len(got) != 0 {
		t.Errorf("expected no examples, got %+v", got)
	}
}

func TestBuildTrainingSet_Deterministic(t *testing.T) {
	records := []model.Record{
		{ID: "PAT1", Gold: []model.Grade{1}, Text: "a\nb\nc\nd\ne\nf\ng\nh"},
	}
	first := BuildTrainingSet(records, fixedClassifier, 0.5, 7)
	second := BuildTrainingSet(records, fixedClassifier, 0.5, 7)
	if len(first) != len(second) {
		t.Fatalf("expected same size for same seed, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("example %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
