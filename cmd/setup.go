package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/ai/gemini"
	"github.com/spigell/cv-ranker/internal/backend"
	"github.com/spigell/cv-ranker/internal/localmatch"
	logging "github.com/spigell/cv-ranker/internal/logger"
	"github.com/spigell/cv-ranker/internal/secrets"
	"github.com/spigell/cv-ranker/internal/session"
)

// tokenExpiryWarning is how close to expiry a stored token starts producing warnings.
const tokenExpiryWarning = 24 * time.Hour

// bootstrap builds the logger and reads the config. Failures here are fatal.
func bootstrap() (*zap.Logger, *Config) {
	logger, err := logging.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting", zap.String("version", version), zap.String("config", viper.ConfigFileUsed()))
	return logger, config
}

func newBackendClient(config *Config, logger *zap.Logger) *backend.Client {
	client := backend.New(logger, loadToken(config, logger))

	if config.Backend.URL != "" {
		client.APIURL = config.Backend.URL
	}
	if config.Backend.UserAgent != "" {
		client.UserAgent = config.Backend.UserAgent
	}
	if config.Backend.Timeout > 0 {
		client.HTTPClient.Timeout = config.Backend.Timeout
	}

	return client
}

// loadToken returns the stored access token. The matching service accepts
// anonymous reads, so a missing token is only logged.
func loadToken(config *Config, logger *zap.Logger) string {
	tokenFile := strings.TrimSpace(config.Backend.TokenFile)
	if tokenFile == "" {
		return ""
	}

	token, err := secrets.Load(secrets.Source{
		Name: "backend token",
		File: tokenFile,
	})
	if err != nil {
		logger.Warn("continuing without a backend token",
			zap.Error(err),
			zap.String("hint", "run the login command or set CV_RANKER_TOKEN_FILE"),
		)
		return ""
	}

	warnTokenExpiry(token, logger)
	return token
}

func warnTokenExpiry(token string, logger *zap.Logger) {
	exp, ok, err := backend.TokenExpiry(token)
	if err != nil {
		logger.Debug("backend token is not a jwt", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	switch left := time.Until(exp); {
	case left <= 0:
		logger.Warn("backend token has expired", zap.Time("expired_at", exp), zap.String("hint", "run the login command"))
	case left < tokenExpiryWarning:
		logger.Warn("backend token expires soon", zap.Time("expires_at", exp))
	}
}

type rankingSource interface {
	session.Fetcher
	session.Uploader
}

// newRankingSource picks the backend client or the local Gemini matcher.
func newRankingSource(ctx context.Context, config *Config, logger *zap.Logger) (rankingSource, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Matching.Provider))

	switch provider {
	case "", providerBackend:
		return newBackendClient(config, logger), nil
	case providerGemini:
		return newLocalMatcher(ctx, config, logger)
	default:
		return nil, fmt.Errorf("unsupported matching provider: %s", config.Matching.Provider)
	}
}

func newLocalMatcher(ctx context.Context, config *Config, logger *zap.Logger) (*localmatch.Service, error) {
	cfg := config.AI.Gemini

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, logger)
	if err != nil {
		return nil, err
	}

	jobFile := strings.TrimSpace(config.Matching.JobDescriptionFile)
	if jobFile == "" {
		return nil, errors.New("matching.job-description-file is required for the gemini provider")
	}
	docs, err := backend.ReadDocuments([]string{jobFile})
	if err != nil {
		return nil, fmt.Errorf("reading job description: %w", err)
	}

	weights, err := config.Review.WeightSet()
	if err != nil {
		return nil, err
	}

	matcherLogger := logging.WithCommonFields(logger, providerGemini, generator.Model())
	return localmatch.New(
		gemini.NewMatcher(generator, cfg.MaxLogLength, matcherLogger),
		localmatch.Options{
			ResultsFile:    config.Matching.ResultsFile,
			JobDescription: docs[0],
			Sections:       config.Matching.Sections,
			Weights:        weights,
			Concurrency:    config.Matching.Concurrency,
			Logger:         matcherLogger,
		},
	)
}

// newSession loads the first ranking. A failed first load is reported in the
// banner rather than stopping the command.
func newSession(ctx context.Context, config *Config, logger *zap.Logger) *session.Session {
	source, err := newRankingSource(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating a ranking source", zap.Error(err))
	}

	weights, err := config.Review.WeightSet()
	if err != nil {
		logger.Fatal("reading review weights", zap.Error(err))
	}

	s := session.New(source, source, session.Options{
		PageSize: config.Review.PageSize,
		Weights:  weights,
		Logger:   logger,
	})

	if err := s.Load(ctx); err != nil {
		logger.Warn("loading the ranking", zap.Error(err))
	}
	return s
}

func printBanner(s *session.Session) {
	if banner := s.Banner(); banner != "" {
		fmt.Fprintln(os.Stderr, bannerColor.Sprint("! "+banner))
	}
}
