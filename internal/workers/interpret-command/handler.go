package interpretcommand

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "hospitality-commands/internal/common/errors"
	"hospitality-commands/internal/common/logger"
	"hospitality-commands/internal/common/metrics"
	"hospitality-commands/internal/models"
	"hospitality-commands/internal/pipeline"
)

const (
	TaskType = "interpret-command"
)

type Processor interface {
	Process(ctx context.Context, msg models.InboundMessage) *pipeline.Result
}

// Handler runs a BPMN-supplied command through the same pipeline as the
// webhook. Interpretation failures are thrown as BPMN errors carrying the
// failure code so the process can branch on them.
type Handler struct {
	config     *Config
	processor  Processor
	errHandler *apperrors.JobErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, processor Processor, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		processor:  processor,
		errHandler: apperrors.NewJobErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute returns the outcome as process variables, or the interpretation
// failure as a *StandardError.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Body) == "" {
		return nil, apperrors.NewMalformedIntentError("empty command body").WithMetadata("field", "body")
	}

	res := h.processor.Process(ctx, models.NewInboundMessage(input.Sender, input.Body))
	if res == nil || res.Outcome == nil {
		return nil, apperrors.NewUnintelligibleCommandError(nil)
	}
	if res.Outcome.Failure != nil {
		return nil, res.Outcome.Failure
	}

	rec := res.Outcome.Record()
	output := &Output{
		CommandID: rec.ID,
		Command:   rec.Command,
		Payload:   rec.Payload,
		Source:    string(rec.Source),
		Status:    string(rec.Status),
		Ack:       res.Ack,
		Delivered: res.Delivered,
	}
	if res.Reply != nil {
		output.Reply = res.Reply.Body
	}

	h.logger.Info("command interpreted", map[string]interface{}{
		"commandId": output.CommandID,
		"command":   output.Command,
		"source":    output.Source,
	})
	return output, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// failJob is for jobs whose variables cannot be read at all. There is
// nothing to retry.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, "INVALID_VARIABLES").Inc()
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey": job.Key,
		"error":  err.Error(),
	})

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(0).
		ErrorMessage(err.Error()).
		Send(context.Background())
}
