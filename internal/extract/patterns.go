package extract

import (
	"fmt"
	"regexp"
	"slices"
	"sync"

	"github.com/ppiankov/histograde/internal/numeral"
)

// Capture slot names. Extraction code reads matches by slot, never by group number.
const (
	SlotPrimary    = "primary"    // Grade numeral
	SlotSecondary  = "secondary"  // Range end or denominator numeral
	SlotComparator = "comparator" // "/", "of", "out of", "to", "-"
	SlotWord       = "word"       // Grade or differentiation word
	SlotAlt        = "alt"        // Alternate word in "x to y" phrases
)

// Pattern is a named, case-insensitive regular expression with capture slots
type Pattern struct {
	Name  string
	re    *regexp.Regexp
	slots []string
}

// newPattern compiles expr and panics if any declared slot is missing from it
func newPattern(name, expr string, slots ...string) *Pattern {
	re := regexp.MustCompile("(?i)" + expr)
	for _, slot := range slots {
		if re.SubexpIndex(slot) < 0 {
			panic(fmt.Sprintf("extract: pattern %q declares slot %q but does not capture it", name, slot))
		}
	}
	return &Pattern{Name: name, re: re, slots: slots}
}

// Has reports whether the pattern captures the given slot
func (p *Pattern) Has(slot string) bool {
	return slices.Contains(p.slots, slot)
}

// String returns the underlying expression
func (p *Pattern) String() string {
	return p.re.String()
}

// Find returns the leftmost match in text, or nil
func (p *Pattern) Find(text string) *Match {
	loc := p.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}
	return &Match{pattern: p, input: text, loc: loc}
}

// FindAll returns every non-overlapping match in text
func (p *Pattern) FindAll(text string) []*Match {
	all := p.re.FindAllStringSubmatchIndex(text, -1)
	matches := make([]*Match, 0, len(all))
	for _, loc := range all {
		matches = append(matches, &Match{pattern: p, input: text, loc: loc})
	}
	return matches
}

// Match is one application of a Pattern to a text
type Match struct {
	pattern *Pattern
	input   string
	loc     []int
}

// Text returns the whole matched substring
func (m *Match) Text() string {
	return m.input[m.loc[0]:m.loc[1]]
}

// Start returns the byte offset where the match begins
func (m *Match) Start() int {
	return m.loc[0]
}

// End returns the byte offset just past the match
func (m *Match) End() int {
	return m.loc[1]
}

// Slot returns the text captured by a named slot, or "" if the slot did not
// take part in the match. Asking for a slot the pattern never declared is a
// programming error and panics.
func (m *Match) Slot(name string) string {
	if !m.pattern.Has(name) {
		panic(fmt.Sprintf("extract: pattern %q has no slot %q", m.pattern.Name, name))
	}
	i := m.pattern.re.SubexpIndex(name)
	if m.loc[2*i] < 0 {
		return ""
	}
	return m.input[m.loc[2*i]:m.loc[2*i+1]]
}

// library is the read-only pattern table
type library struct {
	headers []*Pattern

	sum             *Pattern // 3+3+2=8 anywhere
	differentiation *Pattern // differentiation phrase at span start
	wordGrade       *Pattern // low/intermediate/moderate/high at span start
	numeric         *Pattern // numeric grade at span start
	overall         *Pattern // overall grade / total score anywhere
	form            *Pattern // __x__ Grade 2

	nuclearWords     *Pattern // "high nuclear grade" anywhere
	gradeWords       *Pattern // "low grade" anywhere
	diffAnywhere     *Pattern // differentiation phrase anywhere
	undifferentiated *Pattern
}

var patterns = sync.OnceValue(buildLibrary)

const (
	num        = numeral.Pattern
	diffWord   = `poorly|moderately|moderate|well`
	gradeWord  = `low|intermediate|moderate|high`
	comparator = `/|out\s+of|of|to|-`

	// numberExpr captures "primary [comparator secondary]"
	numberExpr = `(?P<primary>` + num + `)\b(?:\s*(?P<comparator>` + comparator + `)\s*(?P<secondary>` + num + `)\b)?`
)

func wordPair(words string) string {
	return `(?P<word>` + words + `)(?:\s+(?:to|and)\s+(?P<alt>` + words + `))?`
}

func buildLibrary() *library {
	numSlots := []string{SlotPrimary, SlotComparator, SlotSecondary}
	wordSlots := []string{SlotWord, SlotAlt}

	return &library{
		headers: []*Pattern{
			newPattern("histologic-grade-colon",
				`histologic\s+(?:grade|score)\s*:\s*`),
			newPattern("histologic-grade-nottingham",
				`histologic\s+grade\s*:?\s*\(?\s*nottingham\s*(?:histologic\s*)?(?:grade|score)?\s*\)?\s*:?\s*`),
			newPattern("histologic-grade-bloom-richardson",
				`histologic\s+grade\s*:\s*bloom[-\s]+richardson\s+score\s*`),
			newPattern("histologic-grade-qualified",
				`histologic\s+grade\s*\(\s*(?:mbr|if\s+applicable)\s*\)\s*:?\s*`),
			newPattern("histologic-grade",
				`histologic\s+grade\s*`),
			newPattern("nottingham-histologic",
				`\(?nottingham\)?\s+histologic\s+(?:grade|score)\s*:?\s*`),
			newPattern("bloom-richardson",
				`bloom[-\s]+richardson(?:\s+score)?\s*:?\s*`),
			newPattern("overall-grade",
				`overall\s+grade\s*:\s*`),
			newPattern("nuclear-grade",
				`nuclear\s+grade\s*:\s*`),
		},

		sum: newPattern("nottingham-sum",
			`\d+\s*\+\s*\d+\s*\+\s*\d+\s*=\s*(?P<primary>\d+)`, SlotPrimary),
		differentiation: newPattern("differentiation",
			`^`+wordPair(diffWord)+`(?:\s*-\s*|\s+)differentiated`, wordSlots...),
		wordGrade: newPattern("word-grade",
			`^`+wordPair(gradeWord)+`\b`, wordSlots...),
		numeric: newPattern("numeric-grade",
			`^(?:at\s*least\s*)?(?:grade|g)?\s*:?\s*`+numberExpr, numSlots...),
		overall: newPattern("overall-expression",
			`(?:overall\s+grade|total\s+score|nottingham\s+(?:histologic\s+)?(?:score-grade|grade|score)|bloom[-\s]+richardson\s+(?:score|grade))`+
				`\s*-?\s*:?\s*(?:grade|g|score)?\s*-?\s*:?\s*`+numberExpr, numSlots...),
		form: newPattern("form-grade",
			`(?:^|[^a-z0-9])_*x_*\s*grade\s*:?\s*(?P<primary>\d+|i+v?|one|two|three|four)\b`, SlotPrimary),

		nuclearWords: newPattern("nuclear-grade-words",
			`\b`+wordPair(gradeWord)+`(?:\s*-\s*|\s+)nuclear\s+grade\b`, wordSlots...),
		gradeWords: newPattern("grade-words",
			`\b`+wordPair(gradeWord)+`(?:\s*-\s*|\s+)grade\b`, wordSlots...),
		diffAnywhere: newPattern("differentiation-anywhere",
			`\b`+wordPair(diffWord)+`(?:\s*-\s*|\s+)differentiated`, wordSlots...),
		undifferentiated: newPattern("undifferentiated",
			`\bundifferentiated\b`),
	}
}

// Headers returns the section header catalogue in priority order
func Headers() []*Pattern {
	return slices.Clone(patterns().headers)
}

// HeaderByName looks up a header pattern
func HeaderByName(name string) (*Pattern, bool) {
	for _, h := range patterns().headers {
		if h.Name == name {
			return h, true
		}
	}
	return nil, false
}
