package extract

import "github.com/ppiankov/histograde/internal/model"

// Sections partitions doc at every occurrence of header. Each section starts
// where its header match ends and stops at the next header match, the last
// one running to end of text. Closing tags are never consulted.
func Sections(doc string, header *Pattern) []model.Section {
	matches := header.FindAll(doc)
	sections := make([]model.Section, 0, len(matches))
	for i, m := range matches {
		end := len(doc)
		if i+1 < len(matches) {
			end = matches[i+1].Start()
		}
		sections = append(sections, model.Section{
			Header: m.Text(),
			Start:  m.End(),
			End:    end,
		})
	}
	return sections
}

// HeaderTrial grades every section introduced by header.
//
// The three outcomes are distinct:
//   - nil: header does not occur in doc, try the next header
//   - [0]: header occurs but no section yielded a grade
//   - grades: non-zero grades in document order
func (e *Extractor) HeaderTrial(doc string, header *Pattern) []model.Grade {
	sections := Sections(doc, header)
	if len(sections) == 0 {
		return nil
	}

	var grades []model.Grade
	for _, s := range sections {
		if g := e.ClassifySection(s.Text(doc)); g.Known() {
			grades = append(grades, g)
		}
	}
	if len(grades) == 0 {
		return model.UnknownGrades()
	}
	return grades
}
