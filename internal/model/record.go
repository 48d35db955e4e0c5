package model

// Record is one patient's pathology text plus optional gold annotations
type Record struct {
	ID   string  `json:"id"`             // Patient display id (e.g., "PAT12")
	Text string  `json:"-"`              // Raw text with unclosed pseudo-XML tags
	Gold []Grade `json:"gold,omitempty"` // Annotated grades, one per tumor; empty if ungraded
	File string  `json:"file,omitempty"` // Source file the record came from
}

// HasGold reports whether the record carries any annotation
func (r Record) HasGold() bool {
	return len(r.Gold) > 0
}

// LineResult is one ML-flagged line and what the rules read from it
type LineResult struct {
	Text      string `json:"text"`
	Label     Grade  `json:"label"`      // Text classifier output
	RuleGrade Grade  `json:"rule_grade"` // ClassifyString on the same line
}

// RecordResult is the complete verdict for one record
type RecordResult struct {
	Index    int    `json:"-"` // Input position, used to restore order after parallel work
	RecordID string `json:"record_id"`

	Gold       []Grade `json:"gold,omitempty"`
	RuleGrades []Grade `json:"rule_grades"`
	Strategy   string  `json:"strategy"`
	MLGrades   []Grade `json:"ml_grades,omitempty"`

	FlaggedLines []LineResult `json:"flagged_lines,omitempty"`

	Best     Grade `json:"best"`      // Reconciled rule + ML verdict
	RuleBest Grade `json:"rule_best"` // Rule-only verdict
	MLBest   Grade `json:"ml_best"`   // ML-only verdict
	GoldBest Grade `json:"gold_best"` // Gold list reduced with the same policy

	Cached bool   `json:"cached,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Correct reports whether the reconciled verdict matches gold
func (r RecordResult) Correct() bool {
	return r.Best == r.GoldBest
}
