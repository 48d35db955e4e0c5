package score

import "github.com/ppiankov/histograde/internal/model"

// Counts is a frequency table over grades 0..4
type Counts [int(model.MaxGrade) + 1]int

// Tally counts every valid grade across all lists. Out-of-range values are
// ignored.
func Tally(lists ...[]model.Grade) Counts {
	var c Counts
	for _, list := range lists {
		for _, g := range list {
			if g.Valid() {
				c[g]++
			}
		}
	}
	return c
}

// Best returns the most frequent grade. Ties go to the higher grade, so the
// unknown sentinel only wins when it strictly outnumbers every real grade.
// An empty table returns 0.
func (c Counts) Best() model.Grade {
	best := model.GradeUnknown
	for g := model.GradeUnknown; g <= model.MaxGrade; g++ {
		if c[g] > 0 && c[g] >= c[best] {
			best = g
		}
	}
	return best
}

// Total returns the number of grades counted
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// BestGrade reconciles rule and ML grades for one record by plurality vote
// over their union
func BestGrade(rule, ml []model.Grade) model.Grade {
	return Tally(rule, ml).Best()
}

// RuleBest is the rule-only verdict
func RuleBest(rule []model.Grade) model.Grade {
	return Tally(rule).Best()
}

// MLBest is the ML-only verdict
func MLBest(ml []model.Grade) model.Grade {
	return Tally(ml).Best()
}
