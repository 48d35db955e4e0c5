package ml

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/histograde/internal/logging"
	"github.com/ppiankov/histograde/internal/model"
	"github.com/ppiankov/histograde/internal/util"
	"github.com/ppiankov/histograde/internal/worker"
	"github.com/sashabaranov/go-openai"
)

const (
	// DefaultOllamaURL is Ollama's OpenAI-compatible endpoint
	DefaultOllamaURL = "http://localhost:11434/v1"

	// DefaultOllamaModel is used when no model is configured for ollama
	DefaultOllamaModel = "llama3.1"
)

const labelPrompt = `You label single lines from pathology reports with the histologic tumor grade they state.
Answer with exactly one digit:
0 - the line does not state a grade
1 - low grade, grade 1, well differentiated
2 - intermediate grade, grade 2, moderately differentiated
3 - high grade, grade 3, poorly differentiated
4 - undifferentiated`

// LLMLabeler labels lines by asking a chat completion model. It speaks the
// OpenAI API, so it serves both OpenAI and Ollama.
type LLMLabeler struct {
	client   *openai.Client
	provider string
	model    string
	timeout  time.Duration
	limiter  *worker.Limiter
	hostKey  string
	logger   logging.Logger
}

// NewLLMLabeler creates a labeler for the openai or ollama provider
func NewLLMLabeler(cfg model.MLConfig, logger logging.Logger) (*LLMLabeler, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	provider := strings.ToLower(cfg.Provider)
	apiKey, baseURL, modelName := cfg.APIKey, cfg.BaseURL, cfg.Model

	switch provider {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		if modelName == "" {
			modelName = openai.GPT4oMini
		}
	case "ollama":
		if apiKey == "" {
			apiKey = "ollama"
		}
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		if modelName == "" {
			modelName = DefaultOllamaModel
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, ollama)", cfg.Provider)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
	}

	hostKey, err := worker.HostKey(clientConfig.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", clientConfig.BaseURL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &LLMLabeler{
		client:   openai.NewClientWithConfig(clientConfig),
		provider: provider,
		model:    modelName,
		timeout:  timeout,
		limiter:  worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		hostKey:  hostKey,
		logger:   logger.Named("llm").With(logging.String("provider", provider), logging.String("model", modelName)),
	}, nil
}

// Name returns the provider name
func (l *LLMLabeler) Name() string {
	return l.provider
}

// Predict labels every line with one request each
func (l *LLMLabeler) Predict(ctx context.Context, lines []string) ([]model.Grade, error) {
	labels := make([]model.Grade, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		g, err := l.label(ctx, line)
		if err != nil {
			return nil, err
		}
		labels[i] = g
	}
	return labels, nil
}

func (l *LLMLabeler) label(ctx context.Context, line string) (model.Grade, error) {
	if err := l.limiter.Wait(ctx, l.hostKey); err != nil {
		return 0, err
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	resp, err := l.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: labelPrompt},
			{Role: openai.ChatMessageRoleUser, Content: line},
		},
		MaxTokens:   4,
		Temperature: 0,
	})
	if err != nil {
		return 0, fmt.Errorf("%s API error: %w", l.provider, err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("no response from %s", l.provider)
	}

	answer := resp.Choices[0].Message.Content
	g := ParseLabel(answer)
	l.logger.Debug("line labelled",
		logging.String("answer", answer),
		logging.Int("grade", int(g)),
		logging.Int("tokens", resp.Usage.TotalTokens))
	return g, nil
}

// ParseLabel reads the first digit 0-4 in an answer. Anything else is 0.
func ParseLabel(answer string) model.Grade {
	for _, r := range answer {
		if r >= '0' && r <= '4' {
			return model.Grade(r - '0')
		}
		if r >= '5' && r <= '9' {
			return model.GradeUnknown
		}
	}
	return model.GradeUnknown
}
