package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	scerrors "github.com/matzehuels/scribetree/pkg/errors"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this type
// so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry executes fn up to attempts times with exponential backoff.
// It only retries errors wrapped with [RetryableError]; other errors are
// returned immediately. The delay doubles after each failed attempt, unless
// the error carries a server supplied Retry-After that is longer.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			wait := delay
			var rl *scerrors.RateLimitedError
			if errors.As(lastErr, &rl) {
				wait = max(wait, time.Duration(rl.RetryAfter)*time.Second)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				delay *= 2
			}
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 2048

// CheckStatus returns nil for 2xx responses. Otherwise it drains and closes
// the body and returns a structured error: 401/403 map to UNAUTHORIZED,
// 429 to a retryable [scerrors.RateLimitedError], 5xx to a retryable
// MODEL_UNAVAILABLE and everything else to MODEL_ERROR.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	msg := string(body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return scerrors.New(scerrors.ErrCodeUnauthorized, "status %d: %s", resp.StatusCode, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RetryableError{Err: &scerrors.RateLimitedError{
			Message:    msg,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}}
	case resp.StatusCode >= 500:
		return &RetryableError{Err: scerrors.New(scerrors.ErrCodeModelUnavailable, "status %d: %s", resp.StatusCode, msg)}
	default:
		return scerrors.New(scerrors.ErrCodeModel, "status %d: %s", resp.StatusCode, msg)
	}
}

// parseRetryAfter returns the Retry-After header in whole seconds.
func parseRetryAfter(v string) int {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(secs, 0)
	}
	if t, err := http.ParseTime(v); err == nil {
		return max(int(time.Until(t).Seconds()), 0)
	}
	return 0
}

// DescribeRequest is a short "METHOD host/path" label for logs and errors.
func DescribeRequest(req *http.Request) string {
	return fmt.Sprintf("%s %s%s", req.Method, req.URL.Host, req.URL.Path)
}
