package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hhhjonson/courseselector/config"
	"github.com/hhhjonson/courseselector/learn"
	"github.com/hhhjonson/courseselector/selector"
	"github.com/hhhjonson/courseselector/unifiedllm"
)

var demoStudents = []selector.StudentRecord{
	{Name: "Alice", Grade: selector.NumericGrade(3.7)},
	{Name: "Bob", Grade: selector.TextGrade("3.7GPA")},
}

func setupLogger(logLevel string) (logr.Logger, *zap.Logger) {
	var zapLevel zapcore.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLogger, err := zapConfig.Build()
	if err != nil {
		devConfig := zap.NewDevelopmentConfig()
		devConfig.Level = zap.NewAtomicLevelAt(zapLevel)
		zapLogger, _ = devConfig.Build()
	}
	return zapr.NewLogger(zapLogger), zapLogger
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// newModelClient builds a unifiedllm.Client for the configured provider.
func newModelClient(cfg config.Config, logger logr.Logger) (*unifiedllm.Client, error) {
	var (
		adapter unifiedllm.ProviderAdapter
		err     error
	)
	switch cfg.Model.Provider {
	case config.ProviderAzure:
		adapter, err = unifiedllm.NewAzureOpenAIAdapter(unifiedllm.AzureOpenAIConfig{
			Endpoint:   cfg.Model.Endpoint,
			APIKey:     cfg.Model.APIKey,
			APIVersion: cfg.Model.APIVersion,
			Deployment: cfg.Model.Name,
			Timeout:    cfg.RequestTimeout,
		})
	case config.ProviderOpenAI:
		adapter, err = unifiedllm.NewOpenAIAdapter(unifiedllm.OpenAIConfig{
			BaseURL: cfg.Model.Endpoint,
			APIKey:  cfg.Model.APIKey,
			Model:   cfg.Model.Name,
			Timeout: cfg.RequestTimeout,
		})
	case config.ProviderGollm:
		var opts []unifiedllm.GollmAdapterOption
		if cfg.Model.Name != "" {
			opts = append(opts, unifiedllm.WithModel(cfg.Model.Name))
		}
		adapter, err = unifiedllm.NewGollmAdapter(cfg.Model.Backend, cfg.Model.APIKey, opts...)
	default:
		err = &unifiedllm.ConfigurationError{SDKError: unifiedllm.SDKError{
			Message: fmt.Sprintf("unknown model provider %q", cfg.Model.Provider),
		}}
	}
	if err != nil {
		return nil, err
	}

	return unifiedllm.NewClient(
		unifiedllm.WithProvider(adapter.Name(), adapter),
		unifiedllm.WithMiddleware(unifiedllm.LoggingMiddleware(logger.WithName("llm"))),
	), nil
}

func newCatalog(cfg config.Config, logger logr.Logger) *learn.CatalogClient {
	opts := []learn.Option{learn.WithLogger(logger.WithName("learn"))}
	if cfg.Learn.TokenURL != "" {
		opts = append(opts, learn.WithTokenURL(cfg.Learn.TokenURL))
	}
	if cfg.Learn.Scope != "" {
		opts = append(opts, learn.WithScope(cfg.Learn.Scope))
	}
	tokens := learn.NewTokenProvider(cfg.Learn.Credentials(), opts...)
	return learn.NewCatalogClient(cfg.Learn.URL, tokens, opts...)
}

func run(ctx context.Context, cfg config.Config, logger logr.Logger) error {
	// Standardization needs neither the model nor the catalog.
	standardized := selector.Standardize(demoStudents, logger.WithName("selector"))
	out, err := json.Marshal(standardized)
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if err := cfg.ValidateModel(); err != nil {
		logger.Info("Skipping course recommendation: model is not configured", "reason", err.Error())
		return nil
	}
	if err := cfg.ValidateLearn(); err != nil {
		logger.Info("Skipping course recommendation: catalog is not configured", "reason", err.Error())
		return nil
	}

	client, err := newModelClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	s := selector.New(client, newCatalog(cfg, logger),
		selector.WithModelName(cfg.Model.Name),
		selector.WithLogger(logger.WithName("selector")))

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	answer, err := s.GetResponse(ctx)
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func main() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "error loading .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv(config.EnvPrefix + "_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger, zapLogger := setupLogger(cfg.LogLevel)
	defer func() {
		_ = zapLogger.Sync()
	}()

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error(err, "Course selection failed")
		_ = zapLogger.Sync()
		os.Exit(1)
	}
}
