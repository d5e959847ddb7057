// Package httputil provides HTTP utilities for the model API clients and the
// notes API server.
//
// # Overview
//
//   - [Retry]: Automatic retry with exponential backoff
//   - [CheckStatus]: Classifies non-2xx responses into structured errors
//   - [ReadEvents] and [EventWriter]: Server-Sent Events in both directions
//
// # Retry
//
// [Retry] re-runs an operation while it fails with a [RetryableError]:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Streaming requests are only retried until the response headers arrive;
// once text has been delivered to the caller the stream is never replayed.
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err = client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    return httputil.CheckStatus(resp)
//	})
//
// # Server-Sent Events
//
// [ReadEvents] parses an SSE body line by line and hands every complete
// event to a callback. [EventWriter] emits events on an http.ResponseWriter
// and flushes after each one.
package httputil
