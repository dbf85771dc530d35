package providers

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled continuously at requestsPerMinute.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	windowSeconds     float64

	tokens     float64
	lastUpdate time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		windowSeconds:     60.0,
		tokens:            float64(requestsPerMinute),
		lastUpdate:        time.Now(),
	}
}

// Wait blocks until a token is available or context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()

		if r.tokens >= 1.0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}

		tokensNeeded := 1.0 - r.tokens
		refillRate := float64(r.requestsPerMinute) / r.windowSeconds
		waitTime := time.Duration(tokensNeeded / refillRate * float64(time.Second))
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// Record429 drains the bucket so the next request waits for a refill.
func (r *RateLimiter) Record429() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = 0
	r.lastUpdate = time.Now()
}

// refill adds tokens based on elapsed time. Must be called with lock held.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	refillRate := float64(r.requestsPerMinute) / r.windowSeconds
	r.tokens += elapsed * refillRate
	if r.tokens > float64(r.requestsPerMinute) {
		r.tokens = float64(r.requestsPerMinute)
	}
}

// PacedClient waits on a RateLimiter before every call to the wrapped client.
type PacedClient struct {
	client  LLMClient
	limiter *RateLimiter
}

// NewPacedClient wraps client so it sends at most requestsPerMinute requests.
func NewPacedClient(client LLMClient, requestsPerMinute int) *PacedClient {
	return &PacedClient{
		client:  client,
		limiter: NewRateLimiter(requestsPerMinute),
	}
}

// Name returns the wrapped client's name.
func (p *PacedClient) Name() string {
	return p.client.Name()
}

// Chat waits for a token and forwards the request.
func (p *PacedClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := p.client.Chat(ctx, req)
	if IsRateLimited(err) {
		p.limiter.Record429()
	}
	return result, err
}

// Verify interface
var _ LLMClient = (*PacedClient)(nil)
