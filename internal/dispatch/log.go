package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "hospitality-commands/internal/common/errors"
	"hospitality-commands/internal/common/logger"
	"hospitality-commands/internal/common/metrics"
	"hospitality-commands/internal/models"
)

// Recorder is the one-operation audit contract. Record never blocks on I/O
// and never fails.
type Recorder interface {
	Record(ctx context.Context, outcome *models.Outcome)
}

// Sink is a durable destination for command records.
type Sink interface {
	Name() string
	Write(ctx context.Context, rec models.CommandRecord) error
}

// RecentLister is implemented by sinks that can list what they stored,
// newest first.
type RecentLister interface {
	Recent(ctx context.Context, limit int) ([]models.CommandRecord, error)
}

const DefaultSinkTimeout = 5 * time.Second

// Log writes one structured log line per outcome and fans the record out to
// the configured sinks in the background.
type Log struct {
	logger  logger.Logger
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewLog(log logger.Logger, timeout time.Duration, sinks ...Sink) *Log {
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	return &Log{
		logger:  log.With(map[string]interface{}{"component": "dispatch"}),
		sinks:   sinks,
		timeout: timeout,
	}
}

func (l *Log) Record(ctx context.Context, outcome *models.Outcome) {
	if outcome == nil {
		return
	}
	rec := outcome.Record()

	fields := map[string]interface{}{
		"commandId": rec.ID,
		"sender":    rec.Sender,
		"status":    rec.Status,
	}
	if outcome.Failure != nil {
		fields["errorCode"] = outcome.Failure.Code
		fields["details"] = outcome.Failure.Details
		l.logger.Warn("command failed", fields)
	} else {
		fields["command"] = rec.Command
		fields["source"] = rec.Source
		fields["payload"] = rec.Payload
		l.logger.Info("command recorded", fields)
	}

	for _, sink := range l.sinks {
		l.wg.Add(1)
		go l.write(sink, rec)
	}
}

// write runs detached from the request context so a finished request does
// not cancel the audit write.
func (l *Log) write(sink Sink, rec models.CommandRecord) {
	defer l.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			l.fail(sink, rec, fmt.Errorf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	if err := sink.Write(ctx, rec); err != nil {
		l.fail(sink, rec, err)
		return
	}
	metrics.DispatchWrites.WithLabelValues(sink.Name(), "ok").Inc()
}

func (l *Log) fail(sink Sink, rec models.CommandRecord, err error) {
	metrics.DispatchWrites.WithLabelValues(sink.Name(), "failed").Inc()
	stdErr := apperrors.NewDispatchRecordFailedError(sink.Name(), err)
	l.logger.Error("dispatch sink write failed", map[string]interface{}{
		"commandId": rec.ID,
		"errorCode": stdErr.Code,
		"details":   stdErr.Details,
	})
}

// Close waits for in-flight sink writes, or until ctx is done.
func (l *Log) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lister returns the first sink that can list recent records, if any.
func (l *Log) Lister() (RecentLister, bool) {
	for _, s := range l.sinks {
		if rl, ok := s.(RecentLister); ok {
			return rl, true
		}
	}
	return nil, false
}
