package model

import "strconv"

// Grade is a histologic tumor grade. Zero is the "unknown" sentinel, not a grade.
type Grade int

const (
	GradeUnknown          Grade = 0 // No grade found
	GradeLow              Grade = 1 // Well differentiated
	GradeIntermediate     Grade = 2 // Moderately differentiated
	GradeHigh             Grade = 3 // Poorly differentiated
	GradeUndifferentiated Grade = 4 // Undifferentiated, distinct from unknown
)

// MaxGrade is the highest valid grade
const MaxGrade = GradeUndifferentiated

func (g Grade) String() string {
	switch g {
	case GradeUnknown:
		return "unknown"
	case GradeLow:
		return "low"
	case GradeIntermediate:
		return "intermediate"
	case GradeHigh:
		return "high"
	case GradeUndifferentiated:
		return "undifferentiated"
	default:
		return "invalid(" + strconv.Itoa(int(g)) + ")"
	}
}

// Valid reports whether g is within 0..4
func (g Grade) Valid() bool {
	return g >= GradeUnknown && g <= MaxGrade
}

// Known reports whether g is a real grade rather than the unknown sentinel
func (g Grade) Known() bool {
	return g > GradeUnknown && g <= MaxGrade
}

// UnknownGrades is the cascade's "nothing found" result
func UnknownGrades() []Grade {
	return []Grade{GradeUnknown}
}

// GradeMatch is the result of applying one pattern to one text span
type GradeMatch struct {
	Text       string `json:"text"`                 // Raw matched substring
	Grade      Grade  `json:"grade"`                // Resolved grade
	Rule       string `json:"rule"`                 // Pattern that produced the match
	Primary    string `json:"primary,omitempty"`    // Primary numeral or word token
	Secondary  string `json:"secondary,omitempty"`  // Secondary numeral or alternate word
	Comparator string `json:"comparator,omitempty"` // "to", "/", "of", ...
}

// Section is a half-open span [Start, End) of a document introduced by Header
type Section struct {
	Header string `json:"header"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// Text returns the section body within doc
func (s Section) Text(doc string) string {
	return doc[s.Start:s.End]
}

// Classification is the cascade's verdict for one record
type Classification struct {
	Grades   []Grade `json:"grades"`   // One per detected tumor mention, in document order
	Strategy string  `json:"strategy"` // Which cascade step produced the grades
}
