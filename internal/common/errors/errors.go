package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

type ErrorCode string

const (
	// Interpretation failures. Both surface to the sender as ParseFailure.
	ErrCodeUnintelligibleCommand ErrorCode = "UNINTELLIGIBLE_COMMAND"
	ErrCodeMalformedIntent       ErrorCode = "MALFORMED_INTENT"

	ErrCodeDeliveryFailed       ErrorCode = "DELIVERY_FAILED"
	ErrCodeTemplateRenderFailed ErrorCode = "TEMPLATE_RENDER_FAILED"
	ErrCodeDispatchRecordFailed ErrorCode = "DISPATCH_RECORD_FAILED"

	// Internal detail only, reported as UNINTELLIGIBLE_COMMAND to callers.
	ErrCodeLLMTimeout ErrorCode = "LLM_TIMEOUT"
)

// UnintelligibleMessage is the only text about a failed interpretation that
// is allowed to reach the sender.
const UnintelligibleMessage = "Couldn't understand your command. Please try again."

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e after attaching key/value.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// UserMessage is what the generic error template is filled with.
func (e *StandardError) UserMessage() string {
	switch e.Code {
	case ErrCodeUnintelligibleCommand, ErrCodeMalformedIntent:
		return UnintelligibleMessage
	}
	if e.Message == "" {
		return UnintelligibleMessage
	}
	return e.Message
}

// NewUnintelligibleCommandError covers bad model output, transport errors
// and timeouts alike. cause is kept in Details for logs only.
func NewUnintelligibleCommandError(cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      ErrCodeUnintelligibleCommand,
		Message:   UnintelligibleMessage,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewMalformedIntentError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedIntent,
		Message:   UnintelligibleMessage,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDeliveryFailedError(recipient string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Outbound message delivery failed",
		Details:   fmt.Sprintf("recipient: %s, error: %v", recipient, err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewTemplateRenderFailedError(templateName, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateRenderFailed,
		Message:   "Template rendering failed",
		Details:   fmt.Sprintf("template: %s, %s", templateName, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDispatchRecordFailedError(sink string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchRecordFailed,
		Message:   "Dispatch log write failed",
		Details:   fmt.Sprintf("sink: %s, error: %v", sink, err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewLLMTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "Generative service timeout",
		Details:   fmt.Sprintf("call exceeded %s", timeout),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// AsStandard unwraps err into a *StandardError if it carries one.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// Normalize guarantees a *StandardError; unknown errors become
// UNINTELLIGIBLE_COMMAND so nothing unclassified reaches the renderer.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := AsStandard(err); ok {
		return stdErr
	}
	return NewUnintelligibleCommandError(err)
}
