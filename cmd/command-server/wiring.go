package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hospitality-commands/internal/command"
	"hospitality-commands/internal/common/config"
	"hospitality-commands/internal/common/database"
	commonhttp "hospitality-commands/internal/common/http"
	"hospitality-commands/internal/common/logger"
	"hospitality-commands/internal/dispatch"
	"hospitality-commands/internal/llm"
)

// retryWithBackoff runs operation until it succeeds, doubling the delay
// between attempts.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(operationName+" failed, retrying", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// buildInterpreter wires matcher, grammar and, unless disabled, the
// generative fallback.
func buildInterpreter(ctx context.Context, cfg *config.Config, withFallback bool, log logger.Logger) (*command.Interpreter, error) {
	grammar := command.NewGrammar()

	var fallback command.FallbackExtractor
	if withFallback {
		timeout := config.GetDuration(cfg.LLM.Timeout)
		client := commonhttp.NewClient(timeout)
		provider, err := llm.NewProvider(ctx, cfg.LLM, client)
		if err != nil {
			return nil, fmt.Errorf("llm provider: %w", err)
		}
		fallback = command.NewExtractor(provider, grammar, command.ExtractorConfig{
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			Timeout:   timeout,
		}, log)
		log.Info("generative fallback configured", map[string]interface{}{
			"provider": provider.Name(),
			"model":    cfg.LLM.Model,
		})
	}

	return command.NewInterpreter(command.NewMatcher(), grammar, fallback, log), nil
}

// openStores connects every enabled store, retrying until each answers a
// ping.
func openStores(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.Stores, error) {
	if !cfg.Dispatch.AnyStore() {
		return &database.Stores{}, nil
	}

	var stores *database.Stores
	err := retryWithBackoff(ctx, func() error {
		s, err := database.Open(cfg.Database, cfg.Dispatch)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		var errs []error
		for name, pingErr := range s.Ping(pingCtx) {
			if pingErr != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, pingErr))
			}
		}
		if err := errors.Join(errs...); err != nil {
			_ = s.Close()
			return err
		}
		stores = s
		return nil
	}, 10, 2*time.Second, log, "dispatch store connection")
	if err != nil {
		return nil, err
	}
	return stores, nil
}

func buildSinks(ctx context.Context, cfg *config.Config, stores *database.Stores) ([]dispatch.Sink, error) {
	var sinks []dispatch.Sink

	// Redis first so /commands lists from the capped recent list.
	if stores.Redis != nil {
		sinks = append(sinks, dispatch.NewRedisSink(stores.Redis.Client, cfg.Dispatch.RecentLimit))
	}
	if stores.Postgres != nil {
		pg := dispatch.NewPostgresSink(stores.Postgres.DB)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure dispatch schema: %w", err)
		}
		sinks = append(sinks, pg)
	}
	if stores.Elasticsearch != nil {
		sinks = append(sinks, dispatch.NewElasticsearchSink(stores.Elasticsearch.Client, cfg.Dispatch.Index))
	}
	return sinks, nil
}

// newLogger returns the root zap logger, for Sync, and the adapter every
// package logs through.
func newLogger(cfg *config.Config) (*zap.Logger, logger.Logger) {
	zapLog := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	return zapLog, logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"env":     cfg.App.Environment,
	})
}
