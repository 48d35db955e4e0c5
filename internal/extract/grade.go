package extract

import (
	"strings"

	"github.com/ppiankov/histograde/internal/model"
	"github.com/ppiankov/histograde/internal/numeral"
)

// Numeral ceilings for lone numbers. Anything above the ceiling is read as a
// combined Nottingham score.
const (
	DefaultCeiling = 3
	StrictCeiling  = 4
)

// ComparatorPolicy says how a secondary numeral modifies the primary one
type ComparatorPolicy int

const (
	PolicyNone        ComparatorPolicy = iota // No secondary numeral
	PolicyRange                               // "2 to 3", "2-3": the higher end wins
	PolicyDenominator                         // "2/3", "2 of 3", "8 out of 9": secondary is a scale maximum
)

func (p ComparatorPolicy) String() string {
	switch p {
	case PolicyRange:
		return "range"
	case PolicyDenominator:
		return "denominator"
	default:
		return "none"
	}
}

// PolicyFor maps a captured comparator token to its policy
func PolicyFor(comparator string) ComparatorPolicy {
	c := strings.Join(strings.Fields(strings.ToLower(comparator)), " ")
	switch c {
	case "":
		return PolicyNone
	case "to", "-":
		return PolicyRange
	default:
		return PolicyDenominator
	}
}

var gradeWords = map[string]model.Grade{
	"poor":         model.GradeHigh,
	"poorly":       model.GradeHigh,
	"high":         model.GradeHigh,
	"moderate":     model.GradeIntermediate,
	"moderately":   model.GradeIntermediate,
	"intermediate": model.GradeIntermediate,
	"well":         model.GradeLow,
	"low":          model.GradeLow,
}

// WordGrade maps a differentiation or grade word to a grade, 0 if unknown
func WordGrade(word string) model.Grade {
	return gradeWords[strings.ToLower(strings.TrimSpace(word))]
}

// Extractor reads single grades out of header-delimited spans and lines
type Extractor struct {
	ceiling int
}

// NewExtractor creates an extractor. Ceilings other than 4 fall back to 3.
func NewExtractor(ceiling int) *Extractor {
	if ceiling != StrictCeiling {
		ceiling = DefaultCeiling
	}
	return &Extractor{ceiling: ceiling}
}

// Ceiling returns the lone-numeral ceiling in use
func (e *Extractor) Ceiling() int {
	return e.ceiling
}

// sectionStrategy tries one pattern against a trimmed span
type sectionStrategy func(e *Extractor, lib *library, span string) (model.GradeMatch, bool)

// sectionStrategies run in priority order; the first non-zero grade wins
var sectionStrategies = []sectionStrategy{
	matchSum,
	matchDifferentiation,
	matchWordGrade,
	matchNumeric,
	matchOverall,
	matchForm,
}

// MatchSection returns the first grade found in span along with how it was
// read. ok is false when no strategy produced a non-zero grade.
func (e *Extractor) MatchSection(span string) (model.GradeMatch, bool) {
	lib := patterns()
	span = trimSpan(span)
	for _, strategy := range sectionStrategies {
		if gm, ok := strategy(e, lib, span); ok {
			return gm, true
		}
	}
	return model.GradeMatch{}, false
}

// ClassifySection returns the single best grade for one header-delimited span
func (e *Extractor) ClassifySection(span string) model.Grade {
	gm, _ := e.MatchSection(span)
	return gm.Grade
}

// ClassifyString grades a line that may or may not start with a header.
// A leading header is stripped before the section strategies run.
func (e *Extractor) ClassifyString(text string) model.Grade {
	for _, h := range patterns().headers {
		m := h.Find(text)
		if m == nil {
			continue
		}
		if g := e.ClassifySection(text[m.End():]); g.Known() {
			return g
		}
	}
	return e.ClassifySection(text)
}

func trimSpan(span string) string {
	return strings.TrimLeft(span, " \t\r\n:-")
}

func matchSum(_ *Extractor, lib *library, span string) (model.GradeMatch, bool) {
	for _, m := range lib.sum.FindAll(span) {
		total := numeral.Parse(m.Slot(SlotPrimary))
		if total == 0 {
			continue
		}
		return model.GradeMatch{
			Text:    m.Text(),
			Grade:   model.Grade(numeral.NormalizeOrdinal(total)),
			Rule:    lib.sum.Name,
			Primary: m.Slot(SlotPrimary),
		}, true
	}
	return model.GradeMatch{}, false
}

func matchDifferentiation(e *Extractor, lib *library, span string) (model.GradeMatch, bool) {
	return e.matchWords(lib.differentiation, span)
}

func matchWordGrade(e *Extractor, lib *library, span string) (model.GradeMatch, bool) {
	return e.matchWords(lib.wordGrade, span)
}

func matchNumeric(e *Extractor, lib *library, span string) (model.GradeMatch, bool) {
	m := lib.numeric.Find(span)
	if m == nil {
		return model.GradeMatch{}, false
	}
	return e.numericMatch(lib.numeric, m)
}

func matchOverall(e *Extractor, lib *library, span string) (model.GradeMatch, bool) {
	for _, m := range lib.overall.FindAll(span) {
		if gm, ok := e.numericMatch(lib.overall, m); ok {
			return gm, true
		}
	}
	return model.GradeMatch{}, false
}

func matchForm(e *Extractor, lib *library, span string) (model.GradeMatch, bool) {
	for _, m := range lib.form.FindAll(span) {
		g := e.resolveNumeric(numeral.Parse(m.Slot(SlotPrimary)), 0, PolicyNone)
		if !g.Known() {
			continue
		}
		return model.GradeMatch{
			Text:    strings.TrimSpace(m.Text()),
			Grade:   g,
			Rule:    lib.form.Name,
			Primary: m.Slot(SlotPrimary),
		}, true
	}
	return model.GradeMatch{}, false
}

func (e *Extractor) matchWords(p *Pattern, span string) (model.GradeMatch, bool) {
	m := p.Find(span)
	if m == nil {
		return model.GradeMatch{}, false
	}
	g := resolveWords(m.Slot(SlotWord), m.Slot(SlotAlt))
	if !g.Known() {
		return model.GradeMatch{}, false
	}
	return model.GradeMatch{
		Text:      m.Text(),
		Grade:     g,
		Rule:      p.Name,
		Primary:   m.Slot(SlotWord),
		Secondary: m.Slot(SlotAlt),
	}, true
}

func (e *Extractor) numericMatch(p *Pattern, m *Match) (model.GradeMatch, bool) {
	primary := m.Slot(SlotPrimary)
	secondary := m.Slot(SlotSecondary)
	comparator := m.Slot(SlotComparator)

	policy := PolicyNone
	if secondary != "" {
		policy = PolicyFor(comparator)
	}

	g := e.resolveNumeric(numeral.Parse(primary), numeral.Parse(secondary), policy)
	if !g.Known() {
		return model.GradeMatch{}, false
	}
	return model.GradeMatch{
		Text:       m.Text(),
		Grade:      g,
		Rule:       p.Name,
		Primary:    primary,
		Secondary:  secondary,
		Comparator: comparator,
	}, true
}

// resolveNumeric applies the comparator policy to a parsed numeral pair.
// An unparseable primary always resolves to 0.
func (e *Extractor) resolveNumeric(primary, secondary int, policy ComparatorPolicy) model.Grade {
	if primary == 0 {
		return model.GradeUnknown
	}

	switch policy {
	case PolicyRange:
		return foldAbove(max(primary, secondary), int(model.MaxGrade))
	case PolicyDenominator:
		switch {
		case numeral.IsCombinedDenominator(secondary):
			return model.Grade(numeral.NormalizeOrdinal(primary))
		case secondary == 3 || secondary == 4:
			return foldAbove(primary, int(model.MaxGrade))
		default:
			return foldAbove(max(primary, secondary), int(model.MaxGrade))
		}
	default:
		return foldAbove(primary, e.ceiling)
	}
}

// foldAbove returns n as a grade, ordinal-normalized when it exceeds limit
func foldAbove(n, limit int) model.Grade {
	if n > limit {
		return model.Grade(numeral.NormalizeOrdinal(n))
	}
	return model.Grade(n)
}

// resolveWords returns the higher grade of a word and its optional alternate
func resolveWords(word, alt string) model.Grade {
	g := WordGrade(word)
	if alt != "" {
		g = max(g, WordGrade(alt))
	}
	return g
}
