// Package predict calls the rent prediction model service.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultBaseURL = "http://localhost:8000"

// Client requests rent predictions from the model service.
type Client interface {
	Predict(ctx context.Context, req Request) (*Response, error)
}

// Request is the request body for POST /predict.
type Request struct {
	District  string  `json:"district"`
	Rooms     int     `json:"rooms"`
	AreaM2    float64 `json:"area_m2"`
	Floor     int     `json:"floor,omitempty"`
	BuildYear int     `json:"build_year,omitempty"`
}

// Response is the model's prediction.
type Response struct {
	PricePerMonth float64 `json:"price_per_month"`
	PricePerM2    float64 `json:"price_per_m2"`
	ModelVersion  string  `json:"model_version"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithAPIKey sets a bearer token for the service.
func WithAPIKey(key string) Option {
	return func(c *httpClient) {
		c.apiKey = key
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithMaxRetries sets how many times a failed request is retried. Retries
// apply to transport errors and 5xx responses only.
func WithMaxRetries(n int) Option {
	return func(c *httpClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

type httpClient struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	maxRetries int
	backoff    time.Duration
}

// NewClient creates a prediction service client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRetries: 2,
		backoff:    500 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Predict(ctx context.Context, req Request) (*Response, error) {
	if req.District == "" {
		return nil, eris.New("predict: district is required")
	}
	if req.AreaM2 <= 0 {
		return nil, eris.Errorf("predict: area must be positive, got %.2f", req.AreaM2)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "predict: marshal request")
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<(attempt-1))
			zap.L().Debug("retrying prediction request",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait))
			select {
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "predict: context cancelled")
			case <-time.After(wait):
			}
		}

		resp, retryable, err := c.doOnce(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

// doOnce performs a single request. The second return value reports whether
// the failure is worth retrying.
func (c *httpClient) doOnce(ctx context.Context, body []byte) (*Response, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, false, eris.Wrap(err, "predict: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, true, eris.Wrap(err, "predict: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, eris.Wrap(err, "predict: read response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, eris.Errorf("predict: service error %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, eris.Errorf("predict: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result Response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, false, eris.Wrap(err, "predict: unmarshal response")
	}
	if result.PricePerMonth <= 0 {
		return nil, false, eris.Errorf("predict: model returned non-positive price %.2f", result.PricePerMonth)
	}
	return &result, false, nil
}
