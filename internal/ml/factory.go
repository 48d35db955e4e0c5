package ml

import (
	"fmt"
	"strings"

	"github.com/ppiankov/histograde/internal/logging"
	"github.com/ppiankov/histograde/internal/model"
)

// NewModel creates the configured text classifier. A nil Model with a nil
// error means the classifier is disabled. The bayes provider needs a trained
// model file; without one it returns ErrNotTrained so the caller can train.
func NewModel(cfg model.MLConfig, logger logging.Logger) (Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "bayes":
		if cfg.ModelPath == "" {
			return nil, ErrNotTrained
		}
		nb, err := LoadNaiveBayes(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		return nb, nil

	case "openai", "ollama":
		labeler, err := NewLLMLabeler(cfg, logger)
		if err != nil {
			return nil, err
		}
		return labeler, nil

	case "", "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown ML provider: %s (supported: bayes, openai, ollama, none)", cfg.Provider)
	}
}
