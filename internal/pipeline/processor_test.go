package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitality-commands/internal/command"
	apperrors "hospitality-commands/internal/common/errors"
	"hospitality-commands/internal/common/logger"
	"hospitality-commands/internal/llm"
	"hospitality-commands/internal/models"
	"hospitality-commands/internal/render"
)

// ==========================
// Mock Implementations
// ==========================

type MockProvider struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return llm.Response{}, m.err
	}
	return llm.Response{Text: m.text}, nil
}

type MockRecorder struct {
	outcomes []*models.Outcome
}

func (m *MockRecorder) Record(ctx context.Context, outcome *models.Outcome) {
	m.outcomes = append(m.outcomes, outcome)
}

type MockNotifier struct {
	err        error
	recipients []string
	bodies     []string
}

func (m *MockNotifier) Name() string { return "mock" }

func (m *MockNotifier) Send(ctx context.Context, recipient, body string) error {
	m.recipients = append(m.recipients, recipient)
	m.bodies = append(m.bodies, body)
	return m.err
}

type panickingInterpreter struct{}

func (panickingInterpreter) Interpret(ctx context.Context, text string) (*models.Interpretation, error) {
	panic("boom")
}

func newTestProcessor(t *testing.T, provider *MockProvider, notifier *MockNotifier) (*Processor, *MockRecorder) {
	t.Helper()
	log := logger.NewTestLogger(t)
	grammar := command.NewGrammar()
	extractor := command.NewExtractor(provider, grammar, command.ExtractorConfig{Model: "test"}, log)
	interpreter := command.NewInterpreter(command.NewMatcher(), grammar, extractor, log)
	recorder := &MockRecorder{}
	return NewProcessor(interpreter, recorder, render.NewRenderer(), notifier, log, Options{}), recorder
}

// ==========================
// End-to-end scenarios
// ==========================

func TestProcess_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		llmText        string
		wantAck        string
		wantStatus     models.OutcomeStatus
		wantLLMCalls   int
		validateOutput func(t *testing.T, res *Result)
	}{
		{
			name:         "block room by pattern",
			body:         "Block room 204 from March 5 to March 9",
			wantAck:      AckSuccess,
			wantStatus:   models.StatusProcessed,
			wantLLMCalls: 0,
			validateOutput: func(t *testing.T, res *Result) {
				assert.Equal(t, models.BlockRoom{Room: "204", From: "March 5", To: "March 9"}, res.Outcome.Intent)
				assert.Equal(t, models.SourcePattern, res.Outcome.Source)
				assert.Equal(t, render.TemplateConfirmation, res.Reply.Template)
				assert.Contains(t, res.Reply.Body, "Room 204 blocked from March 5 to March 9")
			},
		},
		{
			name:         "set price by pattern",
			body:         "set price to ₹2500 on 2024-12-25",
			wantAck:      AckSuccess,
			wantStatus:   models.StatusProcessed,
			wantLLMCalls: 0,
			validateOutput: func(t *testing.T, res *Result) {
				assert.Equal(t, models.SetPrice{Room: models.AllRooms, Price: "2500", Date: "2024-12-25"}, res.Outcome.Intent)
				assert.Equal(t, render.TemplatePriceUpdate, res.Reply.Template)
				assert.Contains(t, res.Reply.Body, "2500")
				assert.Contains(t, res.Reply.Body, "2024-12-25")
			},
		},
		{
			name:         "fallback returns prose",
			body:         "please tidy room 5",
			llmText:      "Sure, I will tidy room 5.",
			wantAck:      AckFailure,
			wantStatus:   models.StatusFailed,
			wantLLMCalls: 1,
			validateOutput: func(t *testing.T, res *Result) {
				assert.Equal(t, apperrors.ErrCodeUnintelligibleCommand, res.Outcome.Failure.Code)
				assert.Equal(t, render.TemplateError, res.Reply.Template)
				assert.Contains(t, res.Reply.Body, apperrors.UnintelligibleMessage)
			},
		},
		{
			name:         "fallback json missing a field",
			body:         "hold 301 over the weekend",
			llmText:      `{"command":"block_room","room":"301","from":"Saturday"}`,
			wantAck:      AckFailure,
			wantStatus:   models.StatusFailed,
			wantLLMCalls: 1,
			validateOutput: func(t *testing.T, res *Result) {
				assert.Equal(t, apperrors.ErrCodeMalformedIntent, res.Outcome.Failure.Code)
				assert.Equal(t, render.TemplateError, res.Reply.Template)
				assert.NotContains(t, res.Reply.Body, "301")
			},
		},
		{
			name:         "fallback json accepted",
			body:         "make 12 unavailable between the 3rd and the 6th",
			llmText:      `{"command":"block_room","room":"12","from":"3rd","to":"6th"}`,
			wantAck:      AckSuccess,
			wantStatus:   models.StatusProcessed,
			wantLLMCalls: 1,
			validateOutput: func(t *testing.T, res *Result) {
				assert.Equal(t, models.SourceFallback, res.Outcome.Source)
				assert.Contains(t, res.Reply.Body, "Room 12 blocked from 3rd to 6th")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &MockProvider{text: tt.llmText}
			notifier := &MockNotifier{}
			p, recorder := newTestProcessor(t, provider, notifier)

			res := p.Process(context.Background(), models.NewInboundMessage("whatsapp:+919876543210", tt.body))

			require.NotNil(t, res)
			require.NotNil(t, res.Outcome)
			require.NotNil(t, res.Reply)
			assert.Equal(t, tt.wantAck, res.Ack)
			assert.Equal(t, tt.wantStatus, res.Outcome.Status())
			assert.Equal(t, tt.wantLLMCalls, provider.calls)

			require.Len(t, recorder.outcomes, 1)
			assert.Same(t, res.Outcome, recorder.outcomes[0])

			assert.True(t, res.Delivered)
			assert.Equal(t, []string{"+919876543210"}, notifier.recipients)
			assert.Equal(t, []string{res.Reply.Body}, notifier.bodies)

			if tt.validateOutput != nil {
				tt.validateOutput(t, res)
			}
		})
	}
}

// ==========================
// Failure containment
// ==========================

func TestProcess_ProviderErrorNeverLeaks(t *testing.T) {
	provider := &MockProvider{err: errors.New("dial tcp 10.0.0.1:443: connection refused")}
	notifier := &MockNotifier{}
	p, _ := newTestProcessor(t, provider, notifier)

	res := p.Process(context.Background(), models.NewInboundMessage("+1", "do the thing"))

	assert.Equal(t, AckFailure, res.Ack)
	require.Len(t, notifier.bodies, 1)
	assert.NotContains(t, notifier.bodies[0], "connection refused")
	assert.NotContains(t, notifier.bodies[0], "10.0.0.1")
}

func TestProcess_DeliveryFailureKeepsAck(t *testing.T) {
	notifier := &MockNotifier{err: errors.New("twilio status 401")}
	p, recorder := newTestProcessor(t, &MockProvider{}, notifier)

	res := p.Process(context.Background(), models.NewInboundMessage("+1", "block room 7 from Mon to Tue"))

	assert.Equal(t, AckSuccess, res.Ack)
	assert.False(t, res.Delivered)
	require.Len(t, recorder.outcomes, 1)
	assert.Equal(t, models.StatusProcessed, recorder.outcomes[0].Status())
}

func TestProcess_EmptySenderSkipsDelivery(t *testing.T) {
	notifier := &MockNotifier{}
	p, _ := newTestProcessor(t, &MockProvider{}, notifier)

	res := p.Process(context.Background(), models.NewInboundMessage("", "block room 7 from Mon to Tue"))

	assert.Equal(t, AckSuccess, res.Ack)
	assert.False(t, res.Delivered)
	assert.Empty(t, notifier.recipients)
}

func TestProcess_RecoversFromPanic(t *testing.T) {
	p := NewProcessor(panickingInterpreter{}, &MockRecorder{}, render.NewRenderer(), &MockNotifier{},
		logger.NewNoOpLogger(), Options{})

	var res *Result
	assert.NotPanics(t, func() {
		res = p.Process(context.Background(), models.NewInboundMessage("+1", "anything"))
	})
	require.NotNil(t, res)
	assert.Equal(t, AckFailure, res.Ack)
}

func TestProcess_SequentialRequestsAreIndependent(t *testing.T) {
	provider := &MockProvider{text: "not json"}
	p, recorder := newTestProcessor(t, provider, &MockNotifier{})

	first := p.Process(context.Background(), models.NewInboundMessage("+1", "gibberish"))
	second := p.Process(context.Background(), models.NewInboundMessage("+1", "Block room 1 from A to B"))

	assert.Equal(t, AckFailure, first.Ack)
	assert.Equal(t, AckSuccess, second.Ack)
	assert.NotEqual(t, first.Outcome.ID, second.Outcome.ID)
	assert.Len(t, recorder.outcomes, 2)
}
