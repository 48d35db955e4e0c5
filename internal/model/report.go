package model

import "time"

// Report represents a complete histograde evaluation run
type Report struct {
	RunID       string    `json:"run_id"`       // Unique per run, ties JSON and Markdown outputs together
	Subject     string    `json:"subject"`      // Dataset name (usually the input directory)
	GeneratedAt time.Time `json:"generated_at"` // When the run finished

	DifferentiationMode DifferentiationMode `json:"differentiation_mode"`
	NumeralCeiling      int                 `json:"numeral_ceiling"`
	Labeler             string              `json:"labeler,omitempty"` // Text classifier provider, empty if disabled
	Duration            time.Duration       `json:"duration"`
	CacheHits           int64               `json:"cache_hits,omitempty"`

	Records []RecordResult `json:"records"`
	Score   Score          `json:"score"`
}

// Errors returns the records that failed, plus the annotated records whose
// reconciled verdict disagrees with gold
func (r *Report) Errors() []RecordResult {
	var out []RecordResult
	for _, rec := range r.Records {
		if rec.Error != "" || (len(rec.Gold) > 0 && !rec.Correct()) {
			out = append(out, rec)
		}
	}
	return out
}

// Score represents the transparent accuracy breakdown
type Score struct {
	Total      int      `json:"total"`      // Records scored
	Rule       Accuracy `json:"rule"`       // Rule cascade alone
	ML         Accuracy `json:"ml"`         // Text classifier alone
	Combined   Accuracy `json:"combined"`   // Reconciled verdict
	Confidence string   `json:"confidence"` // "low", "medium", "high"
	Signals    []Signal `json:"signals"`
}

// Accuracy is a correct/total ratio with a safe zero denominator
type Accuracy struct {
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Ratio   float64 `json:"ratio"`
}

// NewAccuracy builds an Accuracy, reporting 0 when total is 0
func NewAccuracy(correct, total int) Accuracy {
	a := Accuracy{Correct: correct, Total: total}
	if total > 0 {
		a.Ratio = float64(correct) / float64(total)
	}
	return a
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalRuleAccuracy     SignalType = "rule_accuracy"     // Rule verdict vs gold
	SignalMLAccuracy       SignalType = "ml_accuracy"       // Classifier verdict vs gold
	SignalCombinedAccuracy SignalType = "combined_accuracy" // Reconciled verdict vs gold
	SignalRuleCoverage     SignalType = "rule_coverage"     // Records where rules found any grade
	SignalLengthMismatch   SignalType = "length_mismatch"   // Rule list length differs from gold list length
	SignalMissingGold      SignalType = "missing_gold"      // Records without annotations
	SignalRecordErrors     SignalType = "record_errors"     // Records that failed to classify
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
