package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ppiankov/histograde/internal/model"
)

// Renderer writes reports as JSON, Markdown and plain-text summaries
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the full report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// WriteResultJSON writes classification results to w, one JSON document
func (r *Renderer) WriteResultJSON(w io.Writer, results []model.RecordResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// RenderMarkdown writes the report as Markdown
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create markdown: %w", err)
	}
	if err := r.WriteMarkdown(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteMarkdown renders the report to w
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Histologic grade evaluation: %s\n\n", report.Subject)
	fmt.Fprintf(&b, "- Run: `%s`\n", report.RunID)
	fmt.Fprintf(&b, "- Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Differentiation mode: %s\n", report.DifferentiationMode)
	fmt.Fprintf(&b, "- Numeral ceiling: %d\n", report.NumeralCeiling)
	labeler := report.Labeler
	if labeler == "" {
		labeler = "disabled"
	}
	fmt.Fprintf(&b, "- Text classifier: %s\n", labeler)
	fmt.Fprintf(&b, "- Records: %s (%s graded)\n\n", humanize.Comma(int64(len(report.Records))), humanize.Comma(int64(report.Score.Total)))

	b.WriteString("## Accuracy\n\n")
	b.WriteString("| Verdict | Correct | Total | Accuracy |\n")
	b.WriteString("|---|---|---|---|\n")
	writeAccuracyRow(&b, "Rules", report.Score.Rule)
	if report.Labeler != "" {
		writeAccuracyRow(&b, "Text classifier", report.Score.ML)
	}
	writeAccuracyRow(&b, "Combined", report.Score.Combined)
	fmt.Fprintf(&b, "\nConfidence: **%s**\n\n", report.Score.Confidence)

	if len(report.Score.Signals) > 0 {
		b.WriteString("## Signals\n\n")
		for _, s := range report.Score.Signals {
			fmt.Fprintf(&b, "- [%s] %s\n", s.Severity, s.Description)
		}
		b.WriteString("\n")
	}

	errs := report.Errors()
	if len(errs) > 0 {
		fmt.Fprintf(&b, "## Disagreements (%s)\n\n", humanize.Comma(int64(len(errs))))
		b.WriteString("| Record | Gold | Rules | Classifier | Best | Strategy |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, rec := range errs {
			if rec.Error != "" {
				fmt.Fprintf(&b, "| %s | %s | error: %s | | | |\n", rec.RecordID, gradeList(rec.Gold), rec.Error)
				continue
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %s |\n",
				rec.RecordID, gradeList(rec.Gold), gradeList(rec.RuleGrades), gradeList(rec.MLGrades), rec.Best, rec.Strategy)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("Grades are extracted by textual rules and a statistical classifier. ")
		b.WriteString("They are not a clinical determination.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderErrors writes one block per record whose verdict disagrees with gold
func (r *Renderer) RenderErrors(report *model.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create error dump: %w", err)
	}
	if err := r.WriteErrors(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteErrors renders the error dump to w
func (r *Renderer) WriteErrors(w io.Writer, report *model.Report) error {
	var b strings.Builder
	for _, rec := range report.Errors() {
		fmt.Fprintf(&b, "=== %s ===\n", rec.RecordID)
		if rec.Error != "" {
			fmt.Fprintf(&b, "error: %s\n\n", rec.Error)
			continue
		}
		fmt.Fprintf(&b, "gold:        %s (best %d)\n", gradeList(rec.Gold), rec.GoldBest)
		fmt.Fprintf(&b, "rules:       %s via %s (best %d)\n", gradeList(rec.RuleGrades), rec.Strategy, rec.RuleBest)
		fmt.Fprintf(&b, "classifier:  %s (best %d)\n", gradeList(rec.MLGrades), rec.MLBest)
		fmt.Fprintf(&b, "combined:    %d\n", rec.Best)
		for _, line := range rec.FlaggedLines {
			fmt.Fprintf(&b, "  [%d/%d] %s\n", line.Label, line.RuleGrade, line.Text)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSummary prints a short run summary to w
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Histograde Evaluation\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Subject:     %s\n", report.Subject)
	fmt.Fprintf(w, "  Run:         %s\n", report.RunID)
	fmt.Fprintf(w, "  Records:     %s (%s graded)\n", humanize.Comma(int64(len(report.Records))), humanize.Comma(int64(report.Score.Total)))
	fmt.Fprintf(w, "  Rules:       %s\n", formatAccuracy(report.Score.Rule))
	if report.Labeler != "" {
		fmt.Fprintf(w, "  Classifier:  %s (%s)\n", formatAccuracy(report.Score.ML), report.Labeler)
	}
	fmt.Fprintf(w, "  Combined:    %s\n", formatAccuracy(report.Score.Combined))
	fmt.Fprintf(w, "  Confidence:  %s\n", report.Score.Confidence)
	if report.CacheHits > 0 {
		fmt.Fprintf(w, "  Cache hits:  %s\n", humanize.Comma(report.CacheHits))
	}
	fmt.Fprintf(w, "  Duration:    %s\n", report.Duration.Round(1e6))
	fmt.Fprintf(w, "\n")
}

func writeAccuracyRow(b *strings.Builder, label string, a model.Accuracy) {
	fmt.Fprintf(b, "| %s | %s | %s | %s |\n", label, humanize.Comma(int64(a.Correct)), humanize.Comma(int64(a.Total)), percent(a))
}

func formatAccuracy(a model.Accuracy) string {
	return fmt.Sprintf("%s/%s (%s)", humanize.Comma(int64(a.Correct)), humanize.Comma(int64(a.Total)), percent(a))
}

func percent(a model.Accuracy) string {
	return humanize.FtoaWithDigits(a.Ratio*100, 1) + "%"
}

func gradeList(grades []model.Grade) string {
	if len(grades) == 0 {
		return "-"
	}
	parts := make([]string, len(grades))
	for i, g := range grades {
		parts[i] = fmt.Sprint(int(g))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
