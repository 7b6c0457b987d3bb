package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every external call made by a provider.
const DefaultTimeout = 30 * time.Second

const maxResponseBytes = 8 << 20

// NewHTTPClient returns a client with the given timeout whose requests wait on limiter before
// being sent. A nil limiter disables pacing.
func NewHTTPClient(timeout time.Duration, limiter *rate.Limiter) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var transport http.RoundTripper = http.DefaultTransport
	if limiter != nil {
		transport = &limitedTransport{next: transport, limiter: limiter}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// NewLimiter builds a limiter allowing rps requests per second with a burst of the same size.
// rps <= 0 returns nil (unlimited).
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

type limitedTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.next.RoundTrip(req)
}

// apiError represents a non-2xx response from an upstream API.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, body)
}

// GetJSON fetches u and decodes a 200 JSON reply into out. The body is capped like every
// client response.
func GetJSON(ctx context.Context, hc *http.Client, u string, headers map[string]string, out any) error {
	return doJSON(ctx, hc, http.MethodGet, u, headers, nil, out)
}

// doJSON sends in as a JSON body (none when in is nil), requires a 200 and decodes the reply
// into out.
func doJSON(ctx context.Context, hc *http.Client, method, url string, headers map[string]string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &apiError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
