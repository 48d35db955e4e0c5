package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/ppiankov/histograde/internal/model"
)

// mockClassifier grades every record 2 unless told to fail
type mockClassifier struct {
	failIDs map[string]bool
}

func (m *mockClassifier) ClassifyRecord(ctx context.Context, rec model.Record) (model.RecordResult, error) {
	time.Sleep(5 * time.Millisecond)
	if m.failIDs[rec.ID] {
		return model.RecordResult{}, errors.New("classify error")
	}
	return model.RecordResult{
		RecordID:   rec.ID,
		RuleGrades: []model.Grade{2},
		Best:       2,
	}, nil
}

func records(ids ...string) []model.Record {
	out := make([]model.Record, len(ids))
	for i, id := range ids {
		out[i] = model.Record{ID: id}
	}
	return out
}

func TestBatchProcessor_ProcessRecords_Order(t *testing.T) {
	processor := NewBatchProcessor(&mockClassifier{}, 3)

	ids := []string{"PAT1", "PAT2", "PAT3", "PAT4", "PAT5", "PAT6", "PAT7"}
	results := processor.ProcessRecords(context.Background(), records(ids...))

	if len(results) != len(ids) {
		t.Fatalf("expected %d results, got %d", len(ids), len(results))
	}
	for i, res := range results {
		if res.RecordID != ids[i] {
			t.Errorf("result %d: expected %s, got %s", i, ids[i], res.RecordID)
		}
		if res.Index != i {
			t.Errorf("result %d: expected index %d, got %d", i, i, res.Index)
		}
		if res.Error != "" {
			t.Errorf("unexpected error for %s: %s", res.RecordID, res.Error)
		}
	}
}

func TestBatchProcessor_ProcessRecords_Errors(t *testing.T) {
	processor := NewBatchProcessor(&mockClassifier{failIDs: map[string]bool{"PAT2": true}}, 2)

	results := processor.ProcessRecords(context.Background(), records("PAT1", "PAT2", "PAT3"))

	if results[1].Error != "classify error" {
		t.Errorf("expected error recorded on PAT2, got %q", results[1].Error)
	}
	if results[1].RecordID != "PAT2" {
		t.Errorf("expected failed result to keep its id, got %q", results[1].RecordID)
	}
	if results[0].Error != "" || results[2].Error != "" {
		t.Error("expected other records to succeed")
	}
}

func TestBatchProcessor_ProcessRecords_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockClassifier{}, 2)
	if got := processor.ProcessRecords(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestBatchProcessor_ProcessRecords_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockClassifier{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := processor.ProcessRecords(ctx, records("PAT1", "PAT2", "PAT3"))
	if len(results) != 3 {
		t.Fatalf("expected a result per record, got %d", len(results))
	}
	for _, res := range results {
		if res.Error == "" {
			t.Errorf("expected %s to carry a cancellation error", res.RecordID)
		}
	}
}

func TestBatchProcessor_Progress(t *testing.T) {
	processor := NewBatchProcessor(&mockClassifier{}, 2)

	var seen []int
	processor.OnProgress(func(done, total int, outcome *RecordOutcome) {
		if total != 4 {
			t.Errorf("expected total 4, got %d", total)
		}
		seen = append(seen, done)
	})

	processor.ProcessRecords(context.Background(), records("PAT1", "PAT2", "PAT3", "PAT4"))

	if !slices.Equal(seen, []int{1, 2, 3, 4}) {
		t.Errorf("expected progress 1..4, got %v", seen)
	}
}

func TestReadIDList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	content := "# held-out set\nPAT1\n\nPAT2\nPAT1\n  PAT3  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ids, err := ReadIDList(path)
	if err != nil {
		t.Fatalf("ReadIDList failed: %v", err)
	}
	if !slices.Equal(ids, []string{"PAT1", "PAT2", "PAT3"}) {
		t.Errorf("expected [PAT1 PAT2 PAT3], got %v", ids)
	}

	if _, err := ReadIDList(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFilterRecords(t *testing.T) {
	all := records("PAT1", "PAT2", "PAT3")

	if got := FilterRecords(all, nil); len(got) != 3 {
		t.Errorf("expected no filtering without ids, got %d", len(got))
	}

	got := FilterRecords(all, []string{"PAT3", "PAT1"})
	if len(got) != 2 || got[0].ID != "PAT1" || got[1].ID != "PAT3" {
		t.Errorf("expected [PAT1 PAT3] in input order, got %v", got)
	}
}
