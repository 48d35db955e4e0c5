package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ppiankov/histograde/internal/model"
)

// RecordClassifier produces the full verdict for one record
type RecordClassifier interface {
	ClassifyRecord(ctx context.Context, rec model.Record) (model.RecordResult, error)
}

// RecordJob classifies one record
type RecordJob struct {
	Index      int
	Record     model.Record
	Classifier RecordClassifier
}

// Execute executes the record job
func (j *RecordJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &RecordOutcome{Index: j.Index, RecordID: j.Record.ID, Error: err}
	}
	result, err := j.Classifier.ClassifyRecord(ctx, j.Record)
	return &RecordOutcome{Index: j.Index, RecordID: j.Record.ID, Result: result, Error: err}
}

// RecordOutcome is the result of a record job
type RecordOutcome struct {
	Index    int
	RecordID string
	Result   model.RecordResult
	Error    error
}

// GetError returns the error from the record outcome
func (r *RecordOutcome) GetError() error {
	return r.Error
}

// Progress is called after each record completes
type Progress func(done, total int, outcome *RecordOutcome)

// BatchProcessor classifies many records concurrently
type BatchProcessor struct {
	classifier  RecordClassifier
	concurrency int
	progress    Progress
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(classifier RecordClassifier, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		classifier:  classifier,
		concurrency: concurrency,
	}
}

// OnProgress registers a progress callback. Calls are serialized.
func (b *BatchProcessor) OnProgress(fn Progress) {
	b.progress = fn
}

// ProcessRecords classifies records concurrently and returns results in
// input order. A failed record yields a result carrying its error message.
func (b *BatchProcessor) ProcessRecords(ctx context.Context, records []model.Record) []model.RecordResult {
	if len(records) == 0 {
		return []model.RecordResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	classifier := b.classifier
	if b.progress != nil {
		classifier = &progressClassifier{next: b.classifier, total: len(records), fn: b.progress}
	}

	for i, rec := range records {
		pool.Submit(&RecordJob{Index: i, Record: rec, Classifier: classifier})
	}

	results := pool.Wait()

	out := make([]model.RecordResult, len(records))
	seen := make([]bool, len(records))
	for _, r := range results {
		o := r.(*RecordOutcome)
		res := o.Result
		res.Index = o.Index
		if res.RecordID == "" {
			res.RecordID = o.RecordID
		}
		if o.Error != nil {
			res.Error = o.Error.Error()
		}
		out[o.Index] = res
		seen[o.Index] = true
	}

	// Records never picked up because the context ended
	for i, ok := range seen {
		if !ok {
			out[i] = model.RecordResult{
				Index:    i,
				RecordID: records[i].ID,
				Gold:     records[i].Gold,
				Error:    "not processed: " + contextError(ctx),
			}
		}
	}

	return out
}

func contextError(ctx context.Context) string {
	if err := ctx.Err(); err != nil {
		return err.Error()
	}
	return "cancelled"
}

// progressClassifier reports each completion to a callback
type progressClassifier struct {
	next  RecordClassifier
	total int
	fn    Progress

	mu   sync.Mutex
	done int
}

func (p *progressClassifier) ClassifyRecord(ctx context.Context, rec model.Record) (model.RecordResult, error) {
	res, err := p.next.ClassifyRecord(ctx, rec)

	p.mu.Lock()
	p.done++
	p.fn(p.done, p.total, &RecordOutcome{RecordID: rec.ID, Result: res, Error: err})
	p.mu.Unlock()

	return res, err
}

// ReadIDList reads record ids from a file (one per line), skipping blanks,
// comments and duplicates
func ReadIDList(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}

// FilterRecords keeps the records whose id is in ids, preserving order
func FilterRecords(records []model.Record, ids []string) []model.Record {
	if len(ids) == 0 {
		return records
	}
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	var out []model.Record
	for _, r := range records {
		if keep[r.ID] {
			out = append(out, r)
		}
	}
	return out
}
