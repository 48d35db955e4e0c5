package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/histograde/internal/logging"
	"github.com/ppiankov/histograde/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "histograde",
	Short: "Histograde - tumor histologic grade extraction from pathology text",
	Long: `Histograde reads free-text pathology records and extracts the histologic
tumor grade (1-3, 4 for undifferentiated, 0 when nothing is stated).

A cascade of textual rules finds grade headers, Nottingham scores,
differentiation phrases and grade words. An optional text classifier labels
individual lines, and both are reconciled by plurality vote.

Grades are read from text. They are not a clinical determination.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("histograde v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.histograde/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".histograde"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// HISTOGRADE_ML_PROVIDER overrides ml.provider, and so on
	viper.SetEnvPrefix("HISTOGRADE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
	bindEnvKeys(model.DefaultConfig())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig overlays config file and environment onto the defaults, then
// fills API settings from the provider's usual environment variables
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	if _, err := model.ParseDifferentiationMode(cfg.Classifier.DifferentiationMode); err != nil {
		return nil, err
	}

	switch cfg.ML.Provider {
	case "openai":
		if cfg.ML.APIKey == "" {
			cfg.ML.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "ollama":
		if cfg.ML.BaseURL == "" {
			cfg.ML.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}

	if cfg.Output.Verbose && logging.ParseLevel(cfg.Log.Level) > logging.ParseLevel("info") {
		cfg.Log.Level = "info"
	}
	return cfg, nil
}

func newLogger(cfg *model.Config) logging.Logger {
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NewNopLogger()
	}
	return logger
}
