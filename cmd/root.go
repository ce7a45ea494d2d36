package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-ranker/internal/scoring"
	"github.com/spigell/cv-ranker/internal/table"
)

const (
	app = "cv-ranker"

	providerBackend = "backend"
	providerGemini  = "gemini"
)

type Config struct {
	Backend  *BackendConfig  `mapstructure:"backend"`
	Review   *ReviewConfig   `mapstructure:"review"`
	Export   *ExportConfig   `mapstructure:"export"`
	Matching *MatchingConfig `mapstructure:"matching"`
	AI       *AIConfig       `mapstructure:"ai"`
}

type BackendConfig struct {
	URL       string        `mapstructure:"url"`
	TokenFile string        `mapstructure:"token-file"`
	UserAgent string        `mapstructure:"user-agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type ReviewConfig struct {
	PageSize int `mapstructure:"page-size"`
	// Weights is a list because viper lower-cases map keys and section names are case sensitive.
	Weights []SectionWeight `mapstructure:"weights"`
}

type SectionWeight struct {
	Section string  `mapstructure:"section"`
	Weight  float64 `mapstructure:"weight"`
}

type ExportConfig struct {
	Path  string `mapstructure:"path"`
	Sheet string `mapstructure:"sheet"`
}

type MatchingConfig struct {
	Provider           string   `mapstructure:"provider"`
	ResultsFile        string   `mapstructure:"results-file"`
	JobDescriptionFile string   `mapstructure:"job-description-file"`
	Sections           []string `mapstructure:"sections"`
	Concurrency        int      `mapstructure:"concurrency"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-ranker is a cli for reviewing résumé rankings produced by a matching service",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("backend.token-file", "CV_RANKER_TOKEN_FILE"); err != nil {
		log.Fatalf("binding CV_RANKER_TOKEN_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	viper.SetDefault("backend.url", "http://localhost:5000")
	viper.SetDefault("backend.timeout", "30s")
	viper.SetDefault("review.page-size", table.DefaultPageSize)
	viper.SetDefault("export.path", "ranking.xlsx")
	viper.SetDefault("matching.provider", providerBackend)
	viper.SetDefault("matching.results-file", app+"-results.json")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("backend-url", "", "matching service url")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("backend.url", rootCmd.PersistentFlags().Lookup("backend-url"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The default config file is optional, an explicit one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Backend == nil {
		config.Backend = &BackendConfig{}
	}
	if config.Review == nil {
		config.Review = &ReviewConfig{}
	}
	if config.Export == nil {
		config.Export = &ExportConfig{}
	}
	if config.Matching == nil {
		config.Matching = &MatchingConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	return config, nil
}

// WeightSet returns the configured review weights, or nil when none are set.
func (r *ReviewConfig) WeightSet() (scoring.WeightSet, error) {
	if r == nil || len(r.Weights) == 0 {
		return nil, nil
	}

	weights := make(scoring.WeightSet, len(r.Weights))
	for _, w := range r.Weights {
		section := strings.TrimSpace(w.Section)
		if section == "" {
			return nil, errors.New("review.weights: section name is required")
		}
		if _, ok := weights[section]; ok {
			return nil, fmt.Errorf("review.weights: section %q is listed twice", section)
		}
		weights[section] = w.Weight
	}

	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("review.weights: %w", err)
	}
	return weights, nil
}
