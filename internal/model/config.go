package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DifferentiationMode selects the last-resort differentiation phrase scan
type DifferentiationMode int

const (
	DiffSkip     DifferentiationMode = 0 // Do not scan for differentiation phrases
	DiffMaxOnly  DifferentiationMode = 1 // Keep only the maximum; a lone grade 3 is suppressed
	DiffExclude3 DifferentiationMode = 2 // Drop every grade-3 phrase
)

func (m DifferentiationMode) String() string {
	switch m {
	case DiffSkip:
		return "skip"
	case DiffMaxOnly:
		return "max-only"
	case DiffExclude3:
		return "exclude-3"
	default:
		return "invalid(" + strconv.Itoa(int(m)) + ")"
	}
}

// MarshalText renders the mode by name in JSON reports
func (m DifferentiationMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts anything ParseDifferentiationMode does
func (m *DifferentiationMode) UnmarshalText(text []byte) error {
	parsed, err := ParseDifferentiationMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseDifferentiationMode accepts 0/1/2 or skip/max-only/exclude-3
func ParseDifferentiationMode(s string) (DifferentiationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "skip", "none", "":
		return DiffSkip, nil
	case "1", "max-only", "max":
		return DiffMaxOnly, nil
	case "2", "exclude-3", "exclude3":
		return DiffExclude3, nil
	}
	return DiffSkip, fmt.Errorf("unknown differentiation mode %q (supported: skip, max-only, exclude-3)", s)
}

// Config is the complete histograde configuration
type Config struct {
	Classifier  ClassifierConfig  `yaml:"classifier" mapstructure:"classifier"`
	ML          MLConfig          `yaml:"ml" mapstructure:"ml"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// ClassifierConfig tunes the rule cascade
type ClassifierConfig struct {
	// DifferentiationMode: skip, max-only, exclude-3 (or 0, 1, 2)
	DifferentiationMode string `yaml:"differentiation_mode" mapstructure:"differentiation_mode"`

	// NumeralCeiling is the highest lone numeral taken literally; larger
	// values are read as combined Nottingham scores. 3 or 4.
	NumeralCeiling int `yaml:"numeral_ceiling" mapstructure:"numeral_ceiling"`
}

// Mode parses DifferentiationMode, falling back to skip on bad input
func (c ClassifierConfig) Mode() DifferentiationMode {
	m, err := ParseDifferentiationMode(c.DifferentiationMode)
	if err != nil {
		return DiffSkip
	}
	return m
}

// MLConfig configures the line-level text classifier
type MLConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"` // bayes, openai, ollama, none
	Model             string        `yaml:"model" mapstructure:"model"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	NegativeRatio     float64       `yaml:"negative_ratio" mapstructure:"negative_ratio"` // Fraction of ungraded lines kept for training
	Seed              int64         `yaml:"seed" mapstructure:"seed"`
	ModelPath         string        `yaml:"model_path,omitempty" mapstructure:"model_path"` // Trained naive Bayes model file
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// HTTPConfig configures fetching of remote record dumps and annotation files
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"` // Comma-separated hosts that bypass the proxy
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// CacheConfig configures the classification result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig configures record-level parallelism
type ConcurrencyConfig struct {
	Workers     int `yaml:"workers" mapstructure:"workers"`
	FileReaders int `yaml:"file_readers" mapstructure:"file_readers"`
}

// OutputConfig configures report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// LogConfig configures the structured logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			DifferentiationMode: DiffExclude3.String(),
			NumeralCeiling:      3,
		},
		ML: MLConfig{
			Provider:          "bayes",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 2,
			Burst:             2,
			NegativeRatio:     0.1,
			Seed:              1,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "histograde/0.1",
			MaxBodyBytes:  64 << 20,
			RespectRobots: true,
			MaxRetries:    3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:     4,
			FileReaders: 4,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "histograde")
	}
	return filepath.Join(dir, "histograde")
}
