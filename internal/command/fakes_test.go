package command

import (
	"context"
	"sync"
	"time"

	"hospitality-commands/internal/llm"
	"hospitality-commands/internal/models"
)

type fakeProvider struct {
	mu       sync.Mutex
	text     string
	err      error
	delay    time.Duration
	calls    int
	requests []llm.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		}
	}
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Text: f.text}, nil
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type countingMatcher struct {
	inner PatternMatcher
	calls int
}

func (c *countingMatcher) Match(text string) (map[string]interface{}, bool) {
	c.calls++
	return c.inner.Match(text)
}

type countingFallback struct {
	intent models.Intent
	err    error
	calls  int
}

func (c *countingFallback) Extract(ctx context.Context, text string) (models.Intent, error) {
	c.calls++
	return c.intent, c.err
}
