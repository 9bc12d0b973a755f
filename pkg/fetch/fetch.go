// Package fetch retrieves raw chart payloads over HTTP.
//
// The payload fetch is the chart engine's only asynchronous boundary: the
// upstream reporting collaborator serves the encoded records as JSON, and
// everything after the fetch is synchronous computation. Responses are
// cached and transient failures are retried with exponential backoff.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ledgerflow/flowchart/pkg/cache"
	"github.com/ledgerflow/flowchart/pkg/errors"
	"github.com/ledgerflow/flowchart/pkg/observability"
)

// DefaultTimeout bounds a single payload request.
const DefaultTimeout = 30 * time.Second

// Client fetches payloads with response caching.
type Client struct {
	httpClient *http.Client
	cache      cache.Cache
	keyer      cache.Keyer
	ttl        time.Duration

	retryAttempts int
	retryDelay    time.Duration
}

// New creates a fetch client. A nil cache disables response caching.
func New(c cache.Cache, keyer cache.Keyer) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Client{
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		cache:         c,
		keyer:         keyer,
		ttl:           cache.TTLPayload,
		retryAttempts: 3,
		retryDelay:    time.Second,
	}
}

// Payload fetches the raw payload bytes from url. When refresh is false a
// cached response is served if present; fresh responses are cached on the
// way out. Transient failures (network errors, 5xx, 429) are retried.
func (c *Client) Payload(ctx context.Context, url string, refresh bool) ([]byte, error) {
	key := c.keyer.HTTPKey("payload", url)

	if !refresh {
		if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "payload")
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, "payload")
	}

	var data []byte
	err := Retry(ctx, c.retryAttempts, c.retryDelay, func() error {
		var fetchErr error
		data, fetchErr = c.get(ctx, url)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, "payload", len(data))
	}
	return data, nil
}

// get performs one request, wrapping transient failures as retryable.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	observability.Fetch().OnRequest(ctx, url)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request for %s", url)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.Fetch().OnError(ctx, url, err)
		return nil, &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", url)}
	}
	defer resp.Body.Close()
	observability.Fetch().OnResponse(ctx, url, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to read
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RetryableError{Err: errors.New(errors.ErrCodeNetwork, "fetch %s: status %d", url, resp.StatusCode)}
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.New(errors.ErrCodeNotFound, "fetch %s: not found", url)
	default:
		return nil, errors.New(errors.ErrCodeNetwork, "fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("read %s: %w", url, err)}
	}
	return data, nil
}
