package command

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	apperrors "hospitality-commands/internal/common/errors"
	"hospitality-commands/internal/common/logger"
	"hospitality-commands/internal/common/metrics"
	"hospitality-commands/internal/models"
)

type PatternMatcher interface {
	Match(text string) (map[string]interface{}, bool)
}

type FallbackExtractor interface {
	Extract(ctx context.Context, text string) (models.Intent, error)
}

// Interpreter runs the pattern matcher and, only when it has no match, the
// generative fallback. The fallback may be nil, in which case unmatched
// text is unintelligible.
type Interpreter struct {
	matcher  PatternMatcher
	grammar  *Grammar
	fallback FallbackExtractor
	logger   logger.Logger
}

func NewInterpreter(matcher PatternMatcher, grammar *Grammar, fallback FallbackExtractor, log logger.Logger) *Interpreter {
	return &Interpreter{
		matcher:  matcher,
		grammar:  grammar,
		fallback: fallback,
		logger:   log.With(map[string]interface{}{"component": "interpreter"}),
	}
}

// Interpret never returns a raw error: every failure is a *StandardError
// with code UNINTELLIGIBLE_COMMAND or MALFORMED_INTENT.
func (i *Interpreter) Interpret(ctx context.Context, text string) (*models.Interpretation, error) {
	ctx, span := otel.Tracer("hospitality-commands/command").Start(ctx, "interpret")
	defer span.End()

	if candidate, ok := i.matcher.Match(text); ok {
		span.SetAttributes(attribute.String("command.source", string(models.SourcePattern)))
		intent, err := i.grammar.Validate(candidate)
		if err != nil {
			return nil, i.fail(models.SourcePattern, err)
		}
		return i.succeed(models.SourcePattern, intent), nil
	}

	span.SetAttributes(attribute.String("command.source", string(models.SourceFallback)))
	if i.fallback == nil {
		return nil, i.fail(models.SourceFallback, apperrors.NewUnintelligibleCommandError(nil).
			WithMetadata("reason", "fallback_disabled"))
	}

	intent, err := i.fallback.Extract(ctx, text)
	if err != nil {
		return nil, i.fail(models.SourceFallback, err)
	}
	if intent == nil {
		return nil, i.fail(models.SourceFallback, apperrors.NewUnintelligibleCommandError(nil))
	}
	return i.succeed(models.SourceFallback, intent), nil
}

func (i *Interpreter) succeed(source models.Source, intent models.Intent) *models.Interpretation {
	metrics.CommandsInterpreted.WithLabelValues(string(source), string(models.StatusProcessed)).Inc()
	i.logger.Debug("command interpreted", map[string]interface{}{
		"source": source,
		"kind":   intent.Kind(),
	})
	return &models.Interpretation{Intent: intent, Source: source}
}

func (i *Interpreter) fail(source models.Source, err error) error {
	stdErr := apperrors.Normalize(err)
	if stdErr.Code != apperrors.ErrCodeMalformedIntent && stdErr.Code != apperrors.ErrCodeUnintelligibleCommand {
		stdErr = apperrors.NewUnintelligibleCommandError(stdErr)
	}
	metrics.CommandsInterpreted.WithLabelValues(string(source), string(models.StatusFailed)).Inc()
	metrics.CommandFailures.WithLabelValues(string(stdErr.Code)).Inc()
	i.logger.Info("command not understood", map[string]interface{}{
		"source":    source,
		"errorCode": stdErr.Code,
		"details":   stdErr.Details,
	})
	return stdErr
}
