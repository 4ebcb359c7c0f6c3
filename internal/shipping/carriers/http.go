package carriers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
)

// httpClient is the shared transport for carrier REST APIs: JSON bodies, an
// API key header, and exponential-backoff retries on transient failures.
// 4xx responses are not retried; the carrier has rejected the request.
type httpClient struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries uint64
	backoff    time.Duration
	logg       *logger.Logger
}

func newHTTPClient(baseURL, apiKey string, timeout time.Duration, maxRetries uint64, backoff time.Duration, logg *logger.Logger) *httpClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	return &httpClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		backoff:    backoff,
		logg:       logg,
	}
}

func (c *httpClient) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding carrier request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *httpClient) do(ctx context.Context, method, path string, payload []byte, out any) error {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			if c.logg != nil {
				c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
					"method": method,
					"path":   path,
					"status": resp.StatusCode,
				}), "carrier request failed, retrying")
			}
			return retry.RetryableError(fmt.Errorf("carrier returned status %d", resp.StatusCode))
		}
		if resp.StatusCode >= http.StatusBadRequest {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return errors.New(errors.CodeDependency,
				fmt.Sprintf("carrier rejected request with status %d: %s", resp.StatusCode, string(raw)))
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "decoding carrier response")
		}
		return nil
	})
}
