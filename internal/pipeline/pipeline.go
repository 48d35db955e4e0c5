// Package pipeline wires ingestion, the rule cascade, the text classifier
// and scoring into classify/train/evaluate runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/histograde/internal/cache"
	"github.com/ppiankov/histograde/internal/extract"
	"github.com/ppiankov/histograde/internal/ingest"
	"github.com/ppiankov/histograde/internal/logging"
	"github.com/ppiankov/histograde/internal/ml"
	"github.com/ppiankov/histograde/internal/model"
	"github.com/ppiankov/histograde/internal/score"
	"github.com/ppiankov/histograde/internal/worker"
)

// Pipeline orchestrates classification and evaluation runs
type Pipeline struct {
	classifier *extract.Classifier
	model      ml.Model // nil when the text classifier is disabled
	store      *cache.ClassificationStore
	scorer     *score.Scorer
	loader     *ingest.Loader
	fetcher    *Fetcher
	logger     logging.Logger
	config     *model.Config
}

// NewPipeline creates a pipeline from cfg. A bayes provider without a model
// file leaves the classifier unset until Train is called.
func NewPipeline(cfg *model.Config, logger logging.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("pipeline")

	p := &Pipeline{
		classifier: extract.NewClassifier(cfg.Classifier.Mode(), cfg.Classifier.NumeralCeiling),
		scorer:     score.NewScorer(),
		loader:     ingest.NewLoader(logger, cfg.Concurrency.FileReaders),
		fetcher:    NewFetcher(cfg.HTTP),
		logger:     logger,
		config:     cfg,
	}

	if c := cache.New(cfg.Cache); c != nil {
		p.store = cache.NewClassificationStore(c)
	}

	m, err := ml.NewModel(cfg.ML, logger)
	switch {
	case errors.Is(err, ml.ErrNotTrained):
		logger.Info("text classifier needs training", logging.String("provider", cfg.ML.Provider))
	case err != nil:
		return nil, fmt.Errorf("init text classifier: %w", err)
	default:
		p.model = m
	}

	return p, nil
}

// Classifier returns the rule cascade
func (p *Pipeline) Classifier() *extract.Classifier {
	return p.classifier
}

// Model returns the text classifier, or nil when disabled
func (p *Pipeline) Model() ml.Model {
	return p.model
}

// SetModel replaces the text classifier; nil disables it
func (p *Pipeline) SetModel(m ml.Model) {
	p.model = m
}

// ClassifyRecord grades one record with the rule cascade and, when enabled,
// the text classifier, then reconciles both. It implements
// worker.RecordClassifier.
func (p *Pipeline) ClassifyRecord(ctx context.Context, rec model.Record) (model.RecordResult, error) {
	text := ingest.Normalize(rec.Text)

	result := model.RecordResult{
		RecordID: rec.ID,
		Gold:     rec.Gold,
		GoldBest: score.RuleBest(rec.Gold),
	}

	cls, cached := p.classify(text)
	result.RuleGrades = cls.Grades
	result.Strategy = cls.Strategy
	result.Cached = cached

	if p.model != nil {
		lines := ingest.PlainLines(text)
		labels, err := p.model.Predict(ctx, lines)
		if err != nil {
			return result, fmt.Errorf("label lines of %s: %w", rec.ID, err)
		}

		flagged, grades := ml.Flagged(lines, labels)
		result.MLGrades = grades
		for i, line := range flagged {
			result.FlaggedLines = append(result.FlaggedLines, model.LineResult{
				Text:      line,
				Label:     grades[i],
				RuleGrade: p.classifier.ClassifyString(line),
			})
		}
	}

	result.Best = score.BestGrade(result.RuleGrades, result.MLGrades)
	result.RuleBest = score.RuleBest(result.RuleGrades)
	result.MLBest = score.MLBest(result.MLGrades)

	p.logger.Debug("record classified",
		logging.String("record", rec.ID),
		logging.String("strategy", result.Strategy),
		logging.Any("rule_grades", result.RuleGrades),
		logging.Any("ml_grades", result.MLGrades),
		logging.Int("best", int(result.Best)),
		logging.Bool("cached", cached))

	return result, nil
}

// classify runs the cascade through the result cache
func (p *Pipeline) classify(text string) (model.Classification, bool) {
	if p.store == nil {
		return p.classifier.Classify(text), false
	}

	key := cache.ClassificationKey(text, p.classifier.Mode(), p.classifier.Extractor().Ceiling())
	if cls, ok := p.store.Get(key); ok {
		return cls, true
	}

	cls := p.classifier.Classify(text)
	if err := p.store.Set(key, cls); err != nil {
		p.logger.Warn("failed to cache classification", logging.Err(err))
	}
	return cls, false
}

// Train fits a naive Bayes model on the annotated records and installs it.
// It returns the model and the number of training lines.
func (p *Pipeline) Train(ctx context.Context, records []model.Record) (*ml.NaiveBayes, int, error) {
	classify := func(line string) model.Grade {
		return p.classifier.ClassifyString(ingest.Normalize(line))
	}
	examples := ml.BuildTrainingSet(records, classify, p.config.ML.NegativeRatio, p.config.ML.Seed)

	p.logger.Info("training text classifier",
		logging.Int("records", len(records)),
		logging.Int("examples", len(examples)))

	m, err := ml.NewBayesTrainer().Train(ctx, examples)
	if err != nil {
		return nil, len(examples), fmt.Errorf("train: %w", err)
	}

	nb := m.(*ml.NaiveBayes)
	p.model = nb
	return nb, len(examples), nil
}

// ClassifyAll classifies records concurrently and returns results in input
// order without scoring them
func (p *Pipeline) ClassifyAll(ctx context.Context, records []model.Record, progress worker.Progress) []model.RecordResult {
	processor := worker.NewBatchProcessor(p, p.config.Concurrency.Workers)
	if progress != nil {
		processor.OnProgress(progress)
	}
	return processor.ProcessRecords(ctx, records)
}

// Evaluate classifies every record concurrently and scores the results
func (p *Pipeline) Evaluate(ctx context.Context, subject string, records []model.Record, progress worker.Progress) *model.Report {
	start := time.Now()

	results := p.ClassifyAll(ctx, records, progress)

	report := &model.Report{
		RunID:               uuid.NewString(),
		Subject:             subject,
		DifferentiationMode: p.classifier.Mode(),
		NumeralCeiling:      p.classifier.Extractor().Ceiling(),
		Records:             results,
		Score:               p.scorer.Calculate(results, p.model != nil),
	}
	if p.model != nil {
		report.Labeler = p.model.Name()
	}
	if p.store != nil {
		var misses int64
		report.CacheHits, misses = p.store.Stats()
		p.logger.Debug("classification cache",
			logging.Int("hits", int(report.CacheHits)),
			logging.Int("misses", int(misses)),
			logging.Int("entries", p.store.Len()))
	}
	report.GeneratedAt = time.Now().UTC()
	report.Duration = time.Since(start)

	p.logger.Info("evaluation finished",
		logging.String("run_id", report.RunID),
		logging.Int("records", len(results)),
		logging.Float64("combined_accuracy", report.Score.Combined.Ratio),
		logging.Duration("duration", report.Duration))

	return report
}

// LoadRecords reads records from a local directory, a single local file or
// an http(s) URL
func (p *Pipeline) LoadRecords(ctx context.Context, source string) ([]model.Record, error) {
	if IsRemote(source) {
		result, err := p.fetcher.FetchWithRetry(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("fetch records: %w", err)
		}
		records := p.loader.ReadRecords(result.Name, string(result.Body))
		if len(records) == 0 {
			return nil, fmt.Errorf("%s: %w", source, ingest.ErrNoRecords)
		}
		return records, nil
	}

	if filepath.Ext(source) == ".txt" {
		return p.loader.LoadFile(source)
	}
	return p.loader.LoadDirectory(ctx, source)
}

// ReadText parses in-memory text, such as stdin, into records
func (p *Pipeline) ReadText(name, text string) []model.Record {
	return p.loader.ReadRecords(name, text)
}

// LoadAnnotations reads gold grades from a local file or an http(s) URL
func (p *Pipeline) LoadAnnotations(ctx context.Context, source string) (map[string][]model.Grade, error) {
	if !IsRemote(source) {
		return ingest.LoadAnnotations(source)
	}

	result, err := p.fetcher.FetchWithRetry(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetch annotations: %w", err)
	}
	gold, err := ingest.ParseAnnotations(result.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return gold, nil
}

// AttachGold copies annotations onto records and logs the ids without one
func (p *Pipeline) AttachGold(records []model.Record, gold map[string][]model.Grade) []string {
	missing := ingest.AttachGold(records, gold)
	if len(missing) > 0 {
		p.logger.Warn("records without annotations",
			logging.Int("count", len(missing)),
			logging.Any("ids", missing))
	}
	return missing
}
