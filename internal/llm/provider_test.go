package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitality-commands/internal/common/config"
	commonhttp "hospitality-commands/internal/common/http"
)

func TestOpenAIProvider_Complete(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		responseBody string
		wantText     string
		wantErr      string
	}{
		{
			name:         "success",
			statusCode:   http.StatusOK,
			responseBody: `{"choices":[{"message":{"role":"assistant","content":"{\"command\":\"block_room\"}"}}]}`,
			wantText:     `{"command":"block_room"}`,
		},
		{
			name:         "non 2xx status",
			statusCode:   http.StatusUnauthorized,
			responseBody: `{"error":{"message":"bad key"}}`,
			wantErr:      "openai status 401",
		},
		{
			name:         "error payload",
			statusCode:   http.StatusOK,
			responseBody: `{"error":{"message":"model overloaded"}}`,
			wantErr:      "model overloaded",
		},
		{
			name:         "no choices",
			statusCode:   http.StatusOK,
			responseBody: `{"choices":[]}`,
			wantErr:      "empty openai response",
		},
		{
			name:         "not json",
			statusCode:   http.StatusOK,
			responseBody: `<html>`,
			wantErr:      "decode openai response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured openAIRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			p := NewOpenAIProvider(commonhttp.NewClient(5*time.Second), server.URL+"/v1/", "sk-test")
			resp, err := p.Complete(context.Background(), Request{
				Model:     "gpt-3.5-turbo",
				System:    "Output ONLY JSON.",
				User:      "please tidy room 5",
				MaxTokens: 150,
			})

			require.Len(t, captured.Messages, 2)
			assert.Equal(t, "system", captured.Messages[0].Role)
			assert.Equal(t, "please tidy room 5", captured.Messages[1].Content)
			assert.Equal(t, 150, captured.MaxTokens)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, resp.Text)
		})
	}
}

func TestOpenAIProvider_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := NewOpenAIProvider(http.DefaultClient, server.URL, "k")
	_, err := p.Complete(ctx, Request{User: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGeminiProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "generateContent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"command\":\"set_price\"}"}]}}]}`))
	}))
	defer server.Close()

	p, err := NewGeminiProvider(context.Background(), "test-key", server.URL)
	require.NoError(t, err)

	resp, err := p.Complete(context.Background(), Request{
		Model:     "gemini-2.0-flash",
		System:    "Output ONLY JSON.",
		User:      "set the price",
		MaxTokens: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"command":"set_price"}`, resp.Text)
	assert.Equal(t, "gemini", p.Name())
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), config.LLMConfig{Provider: config.ProviderOpenAI, BaseURL: "http://x"}, http.DefaultClient)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider(context.Background(), config.LLMConfig{Provider: "cohere"}, http.DefaultClient)
	assert.Error(t, err)
}
