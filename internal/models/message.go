// internal/models/message.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "hospitality-commands/internal/common/errors"
)

type InboundMessage struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// NewInboundMessage normalizes webhook fields. Channel addresses such as
// "whatsapp:+14155238886" keep only their last ":" segment.
func NewInboundMessage(from, body string) InboundMessage {
	sender := from
	if idx := strings.LastIndex(from, ":"); idx >= 0 {
		sender = from[idx+1:]
	}
	return InboundMessage{
		Sender: strings.TrimSpace(sender),
		Body:   strings.TrimSpace(body),
	}
}

type OutcomeStatus string

const (
	StatusProcessed OutcomeStatus = "processed"
	StatusFailed    OutcomeStatus = "failed"
)

// Outcome is what the dispatch log records for one inbound message:
// either an intent or a failure, never both.
type Outcome struct {
	ID         string
	Sender     string
	Body       string
	Intent     Intent
	Source     Source
	Failure    *apperrors.StandardError
	ReceivedAt time.Time
}

func NewOutcome(msg InboundMessage, interp *Interpretation, err error) *Outcome {
	o := &Outcome{
		ID:         uuid.New().String(),
		Sender:     msg.Sender,
		Body:       msg.Body,
		ReceivedAt: time.Now().UTC(),
	}
	if err != nil {
		o.Failure = apperrors.Normalize(err)
		return o
	}
	if interp != nil {
		o.Intent = interp.Intent
		o.Source = interp.Source
	}
	return o
}

func (o *Outcome) Status() OutcomeStatus {
	if o.Failure != nil || o.Intent == nil {
		return StatusFailed
	}
	return StatusProcessed
}

// CommandRecord is the storage shape of an Outcome.
type CommandRecord struct {
	ID        string            `json:"id"`
	Sender    string            `json:"sender"`
	Body      string            `json:"body"`
	Command   string            `json:"command,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	Status    OutcomeStatus     `json:"status"`
	ErrorCode string            `json:"errorCode,omitempty"`
	Source    Source            `json:"source,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (o *Outcome) Record() CommandRecord {
	rec := CommandRecord{
		ID:        o.ID,
		Sender:    o.Sender,
		Body:      o.Body,
		Status:    o.Status(),
		Source:    o.Source,
		CreatedAt: o.ReceivedAt,
	}
	if o.Intent != nil {
		rec.Command = string(o.Intent.Kind())
		rec.Payload = o.Intent.Fields()
	}
	if o.Failure != nil {
		rec.ErrorCode = string(o.Failure.Code)
	}
	return rec
}
