package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnintelligibleCommandError_HidesCause(t *testing.T) {
	err := NewUnintelligibleCommandError(stderrors.New("401 invalid api key sk-live-xyz"))

	assert.Equal(t, ErrCodeUnintelligibleCommand, err.Code)
	assert.Equal(t, UnintelligibleMessage, err.UserMessage())
	assert.NotContains(t, err.UserMessage(), "sk-live")
	assert.Contains(t, err.Details, "invalid api key")
	assert.False(t, err.Retryable)
}

func TestMalformedIntentError_UserMessageIsGeneric(t *testing.T) {
	err := NewMalformedIntentError("to: required field missing")
	assert.Equal(t, ErrCodeMalformedIntent, err.Code)
	assert.Equal(t, UnintelligibleMessage, err.UserMessage())
}

func TestAsStandard_Wrapped(t *testing.T) {
	base := NewMalformedIntentError("missing room")
	wrapped := fmt.Errorf("fallback: %w", base)

	got, ok := AsStandard(wrapped)
	require.True(t, ok)
	assert.Same(t, base, got)
	assert.True(t, HasCode(wrapped, ErrCodeMalformedIntent))
	assert.False(t, HasCode(wrapped, ErrCodeUnintelligibleCommand))
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))

	plain := Normalize(stderrors.New("something odd"))
	assert.Equal(t, ErrCodeUnintelligibleCommand, plain.Code)
	assert.Equal(t, "something odd", plain.Details)

	std := NewLLMTimeoutError(15 * time.Second)
	assert.Same(t, std, Normalize(std))
}

func TestToErrorVariables_IncludesMetadata(t *testing.T) {
	err := NewDeliveryFailedError("+15550001", stderrors.New("twilio 500")).
		WithMetadata("transport", "twilio")

	vars := err.ToErrorVariables()
	assert.Equal(t, "DELIVERY_FAILED", vars["errorCode"])
	assert.Equal(t, "twilio", vars["transport"])
	assert.Equal(t, false, vars["retryable"])
}

func TestTemplateRenderFailedError_Details(t *testing.T) {
	err := NewTemplateRenderFailedError("confirmation", "missing placeholder: end")
	assert.Equal(t, "template: confirmation, missing placeholder: end", err.Details)
	assert.Equal(t, "Template rendering failed", err.UserMessage())
}
