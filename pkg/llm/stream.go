package llm

import (
	"bytes"
	"context"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/matzehuels/scribetree/pkg/buildinfo"
	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/httputil"
	"github.com/matzehuels/scribetree/pkg/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errDone ends event reading when the provider signals the end of a stream.
var errDone = errors.New(errors.ErrCodeInternal, "stream done")

// retryDelay is the initial backoff between attempts to open a stream.
var retryDelay = time.Second

// requestFunc builds a fresh request for every attempt.
type requestFunc func(ctx context.Context) (*http.Request, error)

// openStream posts a streaming request and returns the response once a 2xx
// status arrived. Network failures, 429 and 5xx are retried with backoff.
func openStream(ctx context.Context, client *http.Client, attempts int, build requestFunc) (*http.Response, error) {
	if attempts <= 0 {
		attempts = 3
	}
	hooks := observability.HTTP()

	var resp *http.Response
	err := httputil.Retry(ctx, attempts, retryDelay, func() error {
		req, err := build(ctx)
		if err != nil {
			return err
		}
		host, path := req.URL.Host, req.URL.Path
		hooks.OnRequest(ctx, req.Method, host, path)

		start := time.Now()
		r, err := client.Do(req)
		if err != nil {
			hooks.OnError(ctx, req.Method, host, path, err)
			if ctx.Err() != nil {
				return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "%s cancelled", httputil.DescribeRequest(req))
			}
			return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "%s", httputil.DescribeRequest(req))}
		}
		hooks.OnResponse(ctx, req.Method, host, path, r.StatusCode, time.Since(start))

		if err := httputil.CheckStatus(r); err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func jsonRequest(ctx context.Context, url string, body any, headers map[string]string) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// streamErr classifies an error that ended a stream mid-way.
func streamErr(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "%s stream cancelled", provider)
	}
	if errors.GetCode(err) != "" {
		return err
	}
	return errors.Wrap(errors.ErrCodeModel, err, "%s stream", provider)
}
