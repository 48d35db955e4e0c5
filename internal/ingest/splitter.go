// Package ingest turns raw pathology dumps into patient records.
package ingest

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/ppiankov/histograde/internal/model"
)

// RecordDelimiter opens every record in a dump
const RecordDelimiter = "**PROTECTED[begin]"

// UnknownPatient is the id given to records without a leading
// PATIENT_DISPLAY_ID tag
const UnknownPatient = "none"

const patientTag = "patient_display_id"

// Chunk is one record of a dump before patient grouping
type Chunk struct {
	PatientID string
	Text      string
	File      string
}

// SplitRecords splits a dump on RecordDelimiter. Text before the first
// delimiter is not a record and is dropped.
func SplitRecords(dump string) []string {
	parts := strings.Split(dump, RecordDelimiter)
	return parts[1:]
}

// PatientID returns the text of the first tag in record if that tag is
// PATIENT_DISPLAY_ID
func PatientID(record string) (string, bool) {
	name, text, ok := firstTaggedSection(record)
	if !ok || name != patientTag {
		return UnknownPatient, false
	}
	id := strings.TrimSpace(text)
	if id == "" {
		return UnknownPatient, false
	}
	return id, true
}

// SplitFile splits one dump and tags each record with its patient id
func SplitFile(file, dump string) []Chunk {
	records := SplitRecords(dump)
	chunks := make([]Chunk, 0, len(records))
	for _, rec := range records {
		id, _ := PatientID(rec)
		chunks = append(chunks, Chunk{PatientID: id, Text: rec, File: file})
	}
	return chunks
}

// GroupByPatient concatenates the records of each patient within a file and
// orders the result by the numeric part of the id ("PAT12" sorts as 12).
// Ids without a numeric part sort last.
func GroupByPatient(chunks []Chunk) []model.Record {
	type key struct{ file, id string }

	var order []key
	texts := make(map[key]*strings.Builder)
	for _, c := range chunks {
		k := key{file: c.File, id: c.PatientID}
		b, ok := texts[k]
		if !ok {
			b = &strings.Builder{}
			texts[k] = b
			order = append(order, k)
		}
		b.WriteString(c.Text)
	}

	records := make([]model.Record, 0, len(order))
	for _, k := range order {
		records = append(records, model.Record{ID: k.id, Text: texts[k].String(), File: k.file})
	}

	slices.SortStableFunc(records, func(a, b model.Record) int {
		return patientNumber(a.ID) - patientNumber(b.ID)
	})
	return records
}

// patientNumber parses id[3:]
func patientNumber(id string) int {
	if len(id) <= 3 {
		return math.MaxInt32
	}
	n, err := strconv.Atoi(id[3:])
	if err != nil {
		return math.MaxInt32
	}
	return n
}
