package score

import (
	"testing"

	"github.com/ppiankov/histograde/internal/model"
)

func TestBestGrade_TieGoesHigher(t *testing.T) {
	rule := []model.Grade{1, 1, 2}
	ml := []model.Grade{2}

	counts := Tally(rule, ml)
	if counts[1] != 2 || counts[2] != 2 {
		t.Errorf("expected counts {1:2, 2:2}, got %v", counts)
	}
	if got := BestGrade(rule, ml); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestBestGrade(t *testing.T) {
	tests := []struct {
		name     string
		rule, ml []model.Grade
		want     model.Grade
	}{
		{"empty", nil, nil, 0},
		{"unknown only", []model.Grade{0}, nil, 0},
		{"unknown ties lose", []model.Grade{0}, []model.Grade{1}, 1},
		{"unknown majority wins", []model.Grade{0, 0}, []model.Grade{3}, 0},
		{"plurality", []model.Grade{3}, []model.Grade{2, 2}, 2},
		{"three-way tie", []model.Grade{1, 2}, []model.Grade{3}, 3},
		{"undifferentiated", []model.Grade{4}, nil, 4},
		{"invalid ignored", []model.Grade{7, 7, 7}, []model.Grade{1}, 1},
	}

	for _, tc := range tests {
		if got := BestGrade(tc.rule, tc.ml); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestRuleAndMLBest(t *testing.T) {
	if got := RuleBest([]model.Grade{1, 1, 2}); got != 1 {
		t.Errorf("expected rule best 1, got %d", got)
	}
	if got := MLBest([]model.Grade{2}); got != 2 {
		t.Errorf("expected ml best 2, got %d", got)
	}
	if got := MLBest(nil); got != 0 {
		t.Errorf("expected ml best 0 for no labels, got %d", got)
	}
}

func TestCounts_Total(t *testing.T) {
	if got := Tally([]model.Grade{1, 2}, []model.Grade{0, 9}).Total(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}
