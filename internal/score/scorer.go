package score

import (
	"fmt"

	"github.com/ppiankov/histograde/internal/model"
)

// Scorer measures verdicts against gold and generates diagnostic signals
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate scores a finished batch. Records without gold or with an error
// are left out of the accuracy figures but reported as signals. withML
// controls whether the ML-only accuracy is computed.
func (s *Scorer) Calculate(results []model.RecordResult, withML bool) model.Score {
	var signals []model.Signal

	graded := make([]model.RecordResult, 0, len(results))
	var failed, ungraded int
	for _, r := range results {
		switch {
		case r.Error != "":
			failed++
		case len(r.Gold) == 0:
			ungraded++
		default:
			graded = append(graded, r)
		}
	}

	// 1. Rule cascade alone
	rule, ruleSignal := s.accuracy(graded, model.SignalRuleAccuracy, "Rule",
		func(r model.RecordResult) model.Grade { return r.RuleBest })
	signals = append(signals, ruleSignal)

	// 2. Text classifier alone
	var ml model.Accuracy
	if withML {
		var mlSignal model.Signal
		ml, mlSignal = s.accuracy(graded, model.SignalMLAccuracy, "ML",
			func(r model.RecordResult) model.Grade { return r.MLBest })
		signals = append(signals, mlSignal)
	}

	// 3. Reconciled verdict
	combined, combinedSignal := s.accuracy(graded, model.SignalCombinedAccuracy, "Combined",
		func(r model.RecordResult) model.Grade { return r.Best })
	signals = append(signals, combinedSignal)

	// 4. Coverage
	signals = append(signals, s.calculateCoverage(results))

	// 5. Tumor count disagreement
	if sig := s.detectLengthMismatch(graded); sig.Type != "" {
		signals = append(signals, sig)
	}

	// 6. Missing annotations and failures
	if ungraded > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalMissingGold,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d record(s) without gold annotations", ungraded),
			Data:        map[string]interface{}{"records": ungraded},
		})
	}
	if failed > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalRecordErrors,
			Severity:    model.SeverityCritical,
			Description: fmt.Sprintf("%d record(s) failed to classify", failed),
			Data:        map[string]interface{}{"records": failed},
		})
	}

	return model.Score{
		Total:      len(graded),
		Rule:       rule,
		ML:         ml,
		Combined:   combined,
		Confidence: s.determineConfidence(combined, failed),
		Signals:    signals,
	}
}

// accuracy compares one verdict column to the gold best grade
func (s *Scorer) accuracy(graded []model.RecordResult, kind model.SignalType, label string, verdict func(model.RecordResult) model.Grade) (model.Accuracy, model.Signal) {
	correct := 0
	for _, r := range graded {
		if verdict(r) == r.GoldBest {
			correct++
		}
	}
	acc := model.NewAccuracy(correct, len(graded))

	if acc.Total == 0 {
		return acc, model.Signal{
			Type:        kind,
			Severity:    model.SeverityWarning,
			Description: label + " accuracy: no graded records",
			Data:        map[string]interface{}{"total": 0},
		}
	}

	severity := model.SeverityInfo
	if acc.Ratio < 0.5 {
		severity = model.SeverityCritical
	} else if acc.Ratio < 0.75 {
		severity = model.SeverityWarning
	}

	return acc, model.Signal{
		Type:        kind,
		Severity:    severity,
		Description: fmt.Sprintf("%s accuracy: %d/%d (%.1f%%)", label, acc.Correct, acc.Total, acc.Ratio*100),
		Data: map[string]interface{}{
			"correct": acc.Correct,
			"total":   acc.Total,
			"ratio":   acc.Ratio,
			"formula": "count(verdict == best(gold)) / graded_records",
		},
	}
}

// calculateCoverage reports how many records the rules graded at all
func (s *Scorer) calculateCoverage(results []model.RecordResult) model.Signal {
	total, covered := 0, 0
	for _, r := range results {
		if r.Error != "" {
			continue
		}
		total++
		for _, g := range r.RuleGrades {
			if g.Known() {
				covered++
				break
			}
		}
	}

	if total == 0 {
		return model.Signal{
			Type:        model.SignalRuleCoverage,
			Severity:    model.SeverityWarning,
			Description: "No records classified",
			Data:        map[string]interface{}{"records": 0},
		}
	}

	ratio := float64(covered) / float64(total)
	severity := model.SeverityInfo
	if ratio < 0.5 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalRuleCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("Rules found a grade in %d/%d records (%.0f%%)", covered, total, ratio*100),
		Data: map[string]interface{}{
			"covered": covered,
			"records": total,
			"ratio":   ratio,
			"formula": "count(any(rule_grades) > 0) / records",
		},
	}
}

// detectLengthMismatch counts records where the rules found a different
// number of tumors than the annotators did
func (s *Scorer) detectLengthMismatch(graded []model.RecordResult) model.Signal {
	var ids []string
	for _, r := range graded {
		if len(r.RuleGrades) != len(r.Gold) {
			ids = append(ids, r.RecordID)
		}
	}
	if len(ids) == 0 {
		return model.Signal{}
	}

	return model.Signal{
		Type:        model.SignalLengthMismatch,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("Rule grade count differs from gold count in %d/%d records", len(ids), len(graded)),
		Data: map[string]interface{}{
			"records":     len(ids),
			"record_ids":  ids,
			"explanation": "Gold lists one grade per annotated tumor; rules list one per header section, so counts drift when reports repeat or omit headers",
		},
	}
}

// determineConfidence grades the run itself from the combined accuracy
func (s *Scorer) determineConfidence(combined model.Accuracy, failed int) string {
	if combined.Total < 10 || failed > 0 {
		return "low"
	}

	if combined.Ratio >= 0.9 {
		return "high"
	} else if combined.Ratio >= 0.75 {
		return "medium"
	} else {
		return "low"
	}
}
