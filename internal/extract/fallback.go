package extract

import (
	"slices"

	"github.com/ppiankov/histograde/internal/model"
)

// NuclearGrades collects "low/intermediate/high nuclear grade" mentions
func NuclearGrades(doc string) []model.Grade {
	return wordGradesAnywhere(patterns().nuclearWords, doc)
}

// GradeWords collects bare "low/intermediate/high grade" mentions
func GradeWords(doc string) []model.Grade {
	return wordGradesAnywhere(patterns().gradeWords, doc)
}

// DifferentiationPhrases collects every differentiation phrase in doc
func DifferentiationPhrases(doc string) []model.Grade {
	return wordGradesAnywhere(patterns().diffAnywhere, doc)
}

// Undifferentiated reports whether doc calls the tumor undifferentiated
func Undifferentiated(doc string) bool {
	return patterns().undifferentiated.Find(doc) != nil
}

// Differentiation scans the whole document for differentiation phrases and
// filters them by mode. If no phrase survives the filter, an
// "undifferentiated" mention yields [4]; otherwise the result is nil.
func Differentiation(doc string, mode model.DifferentiationMode) []model.Grade {
	var grades []model.Grade

	switch mode {
	case model.DiffMaxOnly:
		found := DifferentiationPhrases(doc)
		distinct := slices.Compact(slices.Sorted(slices.Values(found)))
		switch {
		case len(distinct) > 1:
			grades = []model.Grade{distinct[len(distinct)-1]}
		case len(distinct) == 1 && distinct[0] != model.GradeHigh:
			grades = distinct
		}
	case model.DiffExclude3:
		for _, g := range DifferentiationPhrases(doc) {
			if g != model.GradeHigh {
				grades = append(grades, g)
			}
		}
	default:
		return nil
	}

	if len(grades) == 0 && Undifferentiated(doc) {
		grades = []model.Grade{model.GradeUndifferentiated}
	}
	return grades
}

func wordGradesAnywhere(p *Pattern, doc string) []model.Grade {
	var grades []model.Grade
	for _, m := range p.FindAll(doc) {
		if g := resolveWords(m.Slot(SlotWord), m.Slot(SlotAlt)); g.Known() {
			grades = append(grades, g)
		}
	}
	return grades
}
