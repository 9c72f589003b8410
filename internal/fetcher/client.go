package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/icholy/digest"
	"golang.org/x/time/rate"
)

// Response is the collapsed outcome of one vendor HTTP call.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the vendor answered with a success status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is the shared HTTP client for vendor requests: one timeout, one
// rate limit and one retry policy across all protocol executors.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	retrier     *Retrier
}

// NewClient creates a vendor HTTP client.
func NewClient(timeout time.Duration, requestsPerSecond float64, retry *RetryConfig) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		retrier:     NewRetrier(retry),
	}
}

// Do issues one request with rate limiting and retries.
func (c *Client) Do(ctx context.Context, method, rawURL string, header, query map[string]string, body []byte) (*Response, error) {
	return c.do(ctx, c.httpClient, method, rawURL, header, query, body)
}

// DoDigest issues one request authenticated with HTTP Digest.
func (c *Client) DoDigest(ctx context.Context, method, rawURL string, username, password string, query map[string]string) (*Response, error) {
	client := &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &digest.Transport{
			Username: username,
			Password: password,
		},
	}
	return c.do(ctx, client, method, rawURL, nil, query, nil)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, rawURL string, header, query map[string]string, body []byte) (*Response, error) {
	target, err := buildURL(rawURL, query)
	if err != nil {
		return nil, err
	}

	resp, err := c.retrier.DoHTTP(ctx, func(ctx context.Context) (*http.Response, error) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		var reader io.Reader
		if len(body) > 0 {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		for k, v := range header {
			req.Header.Set(k, v)
		}
		return hc.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", rawURL, err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       payload,
	}, nil
}

func buildURL(rawURL string, query map[string]string) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
