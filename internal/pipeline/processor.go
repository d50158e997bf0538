package pipeline

import (
	"context"
	"fmt"
	"time"

	apperrors "hospitality-commands/internal/common/errors"
	"hospitality-commands/internal/common/logger"
	"hospitality-commands/internal/common/metrics"
	"hospitality-commands/internal/common/observability"
	"hospitality-commands/internal/dispatch"
	"hospitality-commands/internal/models"
	"hospitality-commands/internal/notify"
	"hospitality-commands/internal/render"
)

const (
	AckSuccess = "✅ Command processed successfully."
	AckFailure = "❌ Oops! Something went wrong."
)

const DefaultNotifyTimeout = 10 * time.Second

type Interpreter interface {
	Interpret(ctx context.Context, text string) (*models.Interpretation, error)
}

type Result struct {
	Ack       string
	Reply     *render.Message
	Outcome   *models.Outcome
	Delivered bool
}

type Options struct {
	NotifyTimeout time.Duration
	Observability *observability.Observability
}

// Processor handles one inbound message end to end: interpret, record,
// render, notify, acknowledge. It holds no per-request state.
type Processor struct {
	interpreter   Interpreter
	recorder      dispatch.Recorder
	renderer      *render.Renderer
	notifier      notify.Notifier
	logger        logger.Logger
	obs           *observability.Observability
	notifyTimeout time.Duration
}

func NewProcessor(
	interpreter Interpreter,
	recorder dispatch.Recorder,
	renderer *render.Renderer,
	notifier notify.Notifier,
	log logger.Logger,
	opts Options,
) *Processor {
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}
	return &Processor{
		interpreter:   interpreter,
		recorder:      recorder,
		renderer:      renderer,
		notifier:      notifier,
		logger:        log.With(map[string]interface{}{"component": "pipeline"}),
		obs:           opts.Observability,
		notifyTimeout: opts.NotifyTimeout,
	}
}

// Process always returns a result with an acknowledgment. The ack reflects
// interpretation only; delivery failures are logged and do not change it.
func (p *Processor) Process(ctx context.Context, msg models.InboundMessage) (result *Result) {
	start := time.Now()
	ctx, span := p.obs.Tracer().Start(ctx, "process")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while processing command", map[string]interface{}{
				"sender": msg.Sender,
				"panic":  fmt.Sprint(r),
			})
			result = &Result{Ack: AckFailure}
		}
	}()

	p.logger.Info("incoming command", map[string]interface{}{
		"sender": msg.Sender,
		"body":   msg.Body,
	})

	interp, err := p.interpreter.Interpret(ctx, msg.Body)
	outcome := models.NewOutcome(msg, interp, err)
	p.recorder.Record(ctx, outcome)

	result = &Result{Ack: AckSuccess, Outcome: outcome}

	var reply *render.Message
	if outcome.Failure != nil {
		result.Ack = AckFailure
		reply, err = p.renderer.RenderFailure(outcome.Failure)
	} else {
		reply, err = p.renderer.RenderIntent(outcome.Intent)
		if err != nil {
			p.logger.Error("template does not fit intent", map[string]interface{}{
				"commandId": outcome.ID,
				"error":     err,
			})
			result.Ack = AckFailure
			reply, err = p.renderer.RenderFailure(nil)
		}
	}
	if err != nil {
		p.logger.Error("error template failed to render", map[string]interface{}{"error": err})
		reply = nil
	}
	result.Reply = reply

	if reply != nil && msg.Sender != "" && p.notifier != nil {
		result.Delivered = p.deliver(ctx, outcome.ID, msg.Sender, reply.Body)
	}

	p.obs.RecordCommand(ctx, time.Since(start), string(outcome.Source), string(outcome.Status()))
	return result
}

func (p *Processor) deliver(ctx context.Context, commandID, recipient, body string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.notifyTimeout)
	defer cancel()

	start := time.Now()
	err := p.notifier.Send(ctx, recipient, body)
	transport := p.notifier.Name()
	if r, ok := p.notifier.(*notify.Router); ok {
		transport = r.Transport(recipient)
	}

	if err != nil {
		stdErr := apperrors.NewDeliveryFailedError(recipient, err)
		p.logger.Error("delivery failed", map[string]interface{}{
			"commandId": commandID,
			"transport": transport,
			"errorCode": stdErr.Code,
			"details":   stdErr.Details,
		})
		metrics.NotificationsSent.WithLabelValues(transport, "failed").Inc()
		p.obs.RecordDelivery(ctx, time.Since(start), "failed")
		return false
	}

	metrics.NotificationsSent.WithLabelValues(transport, "sent").Inc()
	p.obs.RecordDelivery(ctx, time.Since(start), "sent")
	return true
}
