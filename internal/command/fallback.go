package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "hospitality-commands/internal/common/errors"
	"hospitality-commands/internal/common/logger"
	"hospitality-commands/internal/common/metrics"
	"hospitality-commands/internal/llm"
	"hospitality-commands/internal/models"
)

// SystemInstruction is sent verbatim with every fallback request.
const SystemInstruction = `Convert hotel commands to JSON. Output ONLY JSON.
Use exactly one of these shapes:
{"command": "block_room", "room": "<room>", "from": "<start>", "to": "<end>"}
{"command": "set_price", "room": "<room or all>", "price": "<digits>", "date": "<date>"}
All values are strings. No markdown, no explanation.`

const (
	DefaultMaxTokens       = 150
	DefaultFallbackTimeout = 15 * time.Second
)

type ExtractorConfig struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Extractor asks a generative model to turn free text into a candidate and
// runs it through the grammar. One request per call, never retried.
type Extractor struct {
	provider llm.Provider
	grammar  *Grammar
	cfg      ExtractorConfig
	logger   logger.Logger
}

func NewExtractor(provider llm.Provider, grammar *Grammar, cfg ExtractorConfig, log logger.Logger) *Extractor {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFallbackTimeout
	}
	return &Extractor{
		provider: provider,
		grammar:  grammar,
		cfg:      cfg,
		logger: log.With(map[string]interface{}{
			"component": "fallback",
			"provider":  provider.Name(),
		}),
	}
}

// Extract returns a validated intent or a *StandardError. Provider errors,
// timeouts and unparseable output are UNINTELLIGIBLE_COMMAND; well-formed
// JSON that breaks the grammar is MALFORMED_INTENT.
func (e *Extractor) Extract(ctx context.Context, text string) (models.Intent, error) {
	ctx, span := otel.Tracer("hospitality-commands/command").Start(ctx, "fallback.extract")
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", e.provider.Name()))

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.provider.Complete(callCtx, llm.Request{
		Model:     e.cfg.Model,
		System:    SystemInstruction,
		User:      text,
		MaxTokens: e.cfg.MaxTokens,
	})
	metrics.FallbackDuration.WithLabelValues(e.provider.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		result := "transport_error"
		details := err
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			result = "timeout"
			details = apperrors.NewLLMTimeoutError(e.cfg.Timeout)
		}
		e.logger.Error("fallback call failed", map[string]interface{}{
			"result": result,
			"error":  err.Error(),
		})
		e.observe(result)
		span.SetStatus(codes.Error, result)
		return nil, apperrors.NewUnintelligibleCommandError(details).WithMetadata("reason", result)
	}

	candidate, err := decodeCandidate(resp.Text)
	if err != nil {
		e.logger.Warn("fallback returned unparseable output", map[string]interface{}{
			"error":  err.Error(),
			"output": truncate(resp.Text, 200),
		})
		e.observe("unparseable")
		span.SetStatus(codes.Error, "unparseable")
		return nil, apperrors.NewUnintelligibleCommandError(err).WithMetadata("reason", "unparseable")
	}

	intent, err := e.grammar.Validate(candidate)
	if err != nil {
		e.logger.Warn("fallback output failed validation", map[string]interface{}{
			"error": err.Error(),
		})
		e.observe("malformed")
		span.SetStatus(codes.Error, "malformed")
		return nil, err
	}

	e.observe("ok")
	span.SetAttributes(attribute.String("intent.kind", string(intent.Kind())))
	return intent, nil
}

func (e *Extractor) observe(result string) {
	metrics.FallbackCalls.WithLabelValues(e.provider.Name(), result).Inc()
}

var codeFence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// decodeCandidate accepts a single JSON object, optionally wrapped in a
// markdown code fence. Numbers are kept as json.Number.
func decodeCandidate(raw string) (map[string]interface{}, error) {
	s := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if s == "" {
		return nil, fmt.Errorf("empty output")
	}
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var candidate map[string]interface{}
	if err := dec.Decode(&candidate); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after object")
	}
	if candidate == nil {
		return nil, fmt.Errorf("output is not an object")
	}
	return candidate, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
