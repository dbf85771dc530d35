package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
)

// ErrRateLimited matches every rate-limit failure via errors.Is.
var ErrRateLimited = errors.New("rate limited")

// rateLimitCode is the error code OpenAI-compatible services put in 429 bodies.
const rateLimitCode = "rate_limit_exceeded"

// RateLimitError is returned when the service rejects a request with 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// Is makes errors.Is(err, ErrRateLimited) true for any RateLimitError.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// IsRateLimitError unwraps err to a *RateLimitError.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// IsRateLimited reports whether err means the service asked us to slow down.
// Errors from clients that do not type their failures are matched on the
// rate_limit_exceeded code in the message, ignoring case.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), rateLimitCode)
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// mapOpenAIError converts SDK errors into RateLimitError where applicable.
func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Code == rateLimitCode {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("%s: %s", rateLimitCode, apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		if apiErr.Message != "" {
			return fmt.Errorf("chat completion error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("chat completion error (status %d)", apiErr.StatusCode)
	}
	return err
}
