package extract

import "github.com/ppiankov/histograde/internal/model"

// Strategy is one step of the record-level cascade. Apply returns nil to
// pass control to the next strategy; any non-empty list ends the cascade.
type Strategy interface {
	// Name identifies the strategy in results and logs
	Name() string

	// Apply grades a whole document
	Apply(doc string) []model.Grade
}

// headerStrategy runs a header trial for one header pattern
type headerStrategy struct {
	extractor *Extractor
	header    *Pattern
}

func (s headerStrategy) Name() string { return "header:" + s.header.Name }

func (s headerStrategy) Apply(doc string) []model.Grade {
	return s.extractor.HeaderTrial(doc, s.header)
}

// scanStrategy wraps a whole-document scan
type scanStrategy struct {
	name string
	scan func(doc string) []model.Grade
}

func (s scanStrategy) Name() string { return s.name }

func (s scanStrategy) Apply(doc string) []model.Grade { return s.scan(doc) }

// StrategyNone names the verdict when every strategy passed
const StrategyNone = "none"

// Classifier is the record-level classification cascade
type Classifier struct {
	extractor  *Extractor
	mode       model.DifferentiationMode
	strategies []Strategy
}

// NewClassifier builds the cascade: every header in priority order, then
// nuclear grade words, bare grade words and the differentiation scan
func NewClassifier(mode model.DifferentiationMode, ceiling int) *Classifier {
	c := &Classifier{
		extractor:  NewExtractor(ceiling),
		mode:       mode,
		strategies: make([]Strategy, 0),
	}

	for _, h := range patterns().headers {
		c.Register(headerStrategy{extractor: c.extractor, header: h})
	}

	c.Register(scanStrategy{name: "nuclear-grade-words", scan: NuclearGrades})
	c.Register(scanStrategy{name: "grade-words", scan: GradeWords})
	c.Register(scanStrategy{
		name: "differentiation:" + mode.String(),
		scan: func(doc string) []model.Grade { return Differentiation(doc, mode) },
	})

	return c
}

// Register appends a strategy to the end of the cascade
func (c *Classifier) Register(s Strategy) {
	c.strategies = append(c.strategies, s)
}

// Strategies returns the cascade steps in order
func (c *Classifier) Strategies() []Strategy {
	out := make([]Strategy, len(c.strategies))
	copy(out, c.strategies)
	return out
}

// Extractor returns the span-level extractor used by the header steps
func (c *Classifier) Extractor() *Extractor {
	return c.extractor
}

// Mode returns the differentiation mode
func (c *Classifier) Mode() model.DifferentiationMode {
	return c.mode
}

// Classify runs the cascade and reports which step decided
func (c *Classifier) Classify(doc string) model.Classification {
	for _, s := range c.strategies {
		if grades := s.Apply(doc); len(grades) > 0 {
			return model.Classification{Grades: grades, Strategy: s.Name()}
		}
	}
	return model.Classification{Grades: model.UnknownGrades(), Strategy: StrategyNone}
}

// ClassifyRecord returns one grade per detected tumor mention, or [0]
func (c *Classifier) ClassifyRecord(doc string) []model.Grade {
	return c.Classify(doc).Grades
}

// ClassifySection grades one header-delimited span
func (c *Classifier) ClassifySection(span string) model.Grade {
	return c.extractor.ClassifySection(span)
}

// ClassifyString grades one free-standing line
func (c *Classifier) ClassifyString(text string) model.Grade {
	return c.extractor.ClassifyString(text)
}
