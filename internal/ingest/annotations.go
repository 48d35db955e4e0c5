package ingest

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/ppiankov/histograde/internal/model"
	"github.com/tidwall/gjson"
)

// ErrInvalidAnnotations is returned for annotation files that are not JSON
var ErrInvalidAnnotations = errors.New("invalid annotation file")

// GradeCategoryKey is the annotation field holding gold grades
const GradeCategoryKey = "Grade Category"

var digits = regexp.MustCompile(`\d+`)

// LoadAnnotations reads gold grades keyed by patient id
func LoadAnnotations(path string) (map[string][]model.Grade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations: %w", err)
	}
	gold, err := ParseAnnotations(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return gold, nil
}

// ParseAnnotations parses an annotation export of the form
//
//	{"<record>": {"PatientId": "PAT1", "Annotations": {"<tumor>": {"Grade Category": "2"}}}}
//
// Every integer found in a "Grade Category" value is a gold grade, in
// document order. Records of the same patient accumulate.
func ParseAnnotations(data []byte) (map[string][]model.Grade, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidAnnotations
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidAnnotations)
	}

	gold := make(map[string][]model.Grade)
	root.ForEach(func(_, record gjson.Result) bool {
		pid := record.Get("PatientId").String()
		if pid == "" {
			return true
		}
		grades := gold[pid]
		record.Get("Annotations").ForEach(func(_, tumor gjson.Result) bool {
			category := tumor.Get(GradeCategoryKey)
			if !category.Exists() {
				return true
			}
			for _, tok := range digits.FindAllString(category.String(), -1) {
				n, err := strconv.Atoi(tok)
				if err != nil {
					continue
				}
				if g := model.Grade(n); g.Valid() {
					grades = append(grades, g)
				}
			}
			return true
		})
		if grades == nil {
			grades = []model.Grade{}
		}
		gold[pid] = grades
		return true
	})
	return gold, nil
}

// AttachGold copies gold grades onto records and returns the ids that had
// no annotation entry
func AttachGold(records []model.Record, gold map[string][]model.Grade) []string {
	var missing []string
	for i := range records {
		grades, ok := gold[records[i].ID]
		if !ok {
			missing = append(missing, records[i].ID)
			continue
		}
		records[i].Gold = grades
	}
	return missing
}
