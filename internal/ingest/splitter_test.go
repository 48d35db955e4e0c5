package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ppiankov/histograde/internal/logging"
	"github.com/ppiankov/histograde/internal/model"
)

const dump = `header line that is not a record
**PROTECTED[begin]
<PATIENT_DISPLAY_ID>
PAT12
</PATIENT_DISPLAY_ID>
<DIAGNOSIS>
Histologic Grade: 2 of 3
**PROTECTED[begin]
<PATIENT_DISPLAY_ID>
PAT3
</PATIENT_DISPLAY_ID>
<DIAGNOSIS>
poorly differentiated
**PROTECTED[begin]
<PATIENT_DISPLAY_ID>
PAT12
</PATIENT_DISPLAY_ID>
<ADDENDUM>
Histologic Grade: 3
`

func TestSplitRecords_DropsPreamble(t *testing.T) {
	records := SplitRecords(dump)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for _, r := range records {
		if strings.Contains(r, "header line") {
			t.Error("expected preamble to be dropped")
		}
	}
	if got := SplitRecords("no delimiter here"); len(got) != 0 {
		t.Errorf("expected no records without a delimiter, got %d", len(got))
	}
}

func TestPatientID(t *testing.T) {
	tests := []struct {
		record string
		want   string
		ok     bool
	}{
		{"<PATIENT_DISPLAY_ID>\nPAT7\n</PATIENT_DISPLAY_ID>", "PAT7", true},
		{"\n<patient_display_id>PAT8</patient_display_id><X>y", "PAT8", true},
		{"<PATIENT_DISPLAY_ID>PAT9<DIAGNOSIS>unclosed", "PAT9", true},
		{"<DIAGNOSIS>text</DIAGNOSIS><PATIENT_DISPLAY_ID>PAT1</PATIENT_DISPLAY_ID>", UnknownPatient, false},
		{"<PATIENT_DISPLAY_ID>\n</PATIENT_DISPLAY_ID>", UnknownPatient, false},
		{"no tags at all", UnknownPatient, false},
	}

	for _, tc := range tests {
		got, ok := PatientID(tc.record)
		if got != tc.want || ok != tc.ok {
			t.Errorf("PatientID(%q) = (%q, %v), want (%q, %v)", tc.record, got, ok, tc.want, tc.ok)
		}
	}
}

func TestGroupByPatient(t *testing.T) {
	records := GroupByPatient(SplitFile("a.txt", dump))

	if len(records) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(records))
	}
	if records[0].ID != "PAT3" || records[1].ID != "PAT12" {
		t.Errorf("expected numeric id order [PAT3 PAT12], got [%s %s]", records[0].ID, records[1].ID)
	}
	if !strings.Contains(records[1].Text, "2 of 3") || !strings.Contains(records[1].Text, "ADDENDUM") {
		t.Error("expected both PAT12 records to be concatenated")
	}
	if records[0].File != "a.txt" {
		t.Errorf("expected file to be kept, got %q", records[0].File)
	}
}

func TestGroupByPatient_UnknownSortsLast(t *testing.T) {
	chunks := []Chunk{
		{PatientID: UnknownPatient, Text: "x"},
		{PatientID: "PAT2", Text: "y"},
	}
	records := GroupByPatient(chunks)
	if records[0].ID != "PAT2" || records[1].ID != UnknownPatient {
		t.Errorf("expected unknown patient last, got %s then %s", records[0].ID, records[1].ID)
	}
}

func TestLoader_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	second := "**PROTECTED[begin]<PATIENT_DISPLAY_ID>PAT1</PATIENT_DISPLAY_ID>\nwell differentiated\n"

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte(dump), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte(second), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(logging.NewNopLogger(), 2)
	records, err := loader.LoadDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	if !slices.Equal(ids, []string{"PAT1", "PAT3", "PAT12"}) {
		t.Errorf("expected [PAT1 PAT3 PAT12], got %v", ids)
	}
}

func TestLoader_LoadDirectory_Empty(t *testing.T) {
	loader := NewLoader(nil, 0)
	_, err := loader.LoadDirectory(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNoRecords) {
		t.Errorf("expected ErrNoRecords, got %v", err)
	}
}

func TestLoader_LoadDirectory_Missing(t *testing.T) {
	loader := NewLoader(nil, 1)
	if _, err := loader.LoadDirectory(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoader_ReadRecords_PlainFile(t *testing.T) {
	loader := NewLoader(nil, 1)

	records := loader.ReadRecords("/tmp/report-7.txt", "Histologic Grade: 2\r\n")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ID != "report-7" {
		t.Errorf("expected id from file name, got %q", records[0].ID)
	}
	if strings.Contains(records[0].Text, "\r") {
		t.Error("expected line endings to be normalized")
	}

	records = loader.ReadRecords("dump.txt", dump)
	if len(records) != 2 {
		t.Errorf("expected delimited text to be split, got %d records", len(records))
	}
}

func TestAttachGold(t *testing.T) {
	records := []model.Record{{ID: "PAT1"}, {ID: "PAT2"}}
	gold := map[string][]model.Grade{"PAT1": {2, 3}}

	missing := AttachGold(records, gold)
	if !slices.Equal(missing, []string{"PAT2"}) {
		t.Errorf("expected PAT2 missing, got %v", missing)
	}
	if !slices.Equal(records[0].Gold, []model.Grade{2, 3}) {
		t.Errorf("expected gold [2 3], got %v", records[0].Gold)
	}
	if records[1].HasGold() {
		t.Error("expected PAT2 to stay ungraded")
	}
}
