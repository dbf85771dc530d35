package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockResponse is one scripted reply. Err takes precedence over Content.
type MockResponse struct {
	Content string
	Err     error
}

// MockClient is an LLMClient for testing. It replays Script in order and then
// keeps returning ResponseText.
type MockClient struct {
	Latency      time.Duration
	ResponseText string
	Script       []MockResponse

	mu           sync.Mutex
	requests     []*ChatRequest
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: `[{"instruction": "mock question", "output": "mock answer"}]`,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat returns the next scripted response.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, req)
	next := MockResponse{Content: c.ResponseText}
	if int(count) <= len(c.Script) {
		next = c.Script[count-1]
	}
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return result.failed("context_cancelled", ctx.Err(), start), ctx.Err()
		}
	}
	if next.Err != nil {
		return result.failed("mock_failure", next.Err, start), next.Err
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	result.Success = true
	result.Content = next.Content
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(next.Content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns every request received so far.
func (c *MockClient) Requests() []*ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Reset clears the request history.
func (c *MockClient) Reset() {
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
	c.requestCount.Store(0)
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
