package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// QueryError represents a failed call against a control plane. Any network,
// auth or API-level failure surfaces as a QueryError; callers decide whether
// it is fatal to their run.
type QueryError struct {
	Op       string
	Endpoint string
	Status   int
	Err      error
}

func (e *QueryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("query %s %s: status %d", e.Op, e.Endpoint, e.Status)
	}
	return fmt.Sprintf("query %s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// RateLimiter enforces a minimum interval between calls to a control plane.
type RateLimiter struct {
	lastCall time.Time
	interval time.Duration
}

// NewRateLimiter creates a rate limiter with minimum interval between calls
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	interval := time.Duration(float64(time.Second) / requestsPerSecond)
	return &RateLimiter{
		interval: interval,
	}
}

// Wait blocks until it's safe to make the next API call
func (rl *RateLimiter) Wait() {
	if rl.lastCall.IsZero() {
		rl.lastCall = time.Now()
		return
	}

	elapsed := time.Since(rl.lastCall)
	if elapsed < rl.interval {
		sleepTime := rl.interval - elapsed
		log.Debug().Dur("sleep", sleepTime).Msg("Rate limiting API call")
		time.Sleep(sleepTime)
	}
	rl.lastCall = time.Now()
}

// Client is a rate-limited HTTP client shared by the control-plane clients.
// It makes exactly one attempt per call: the orchestrators own failure
// handling at the item boundary, so there is no retry layer here.
type Client struct {
	client      *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a client with the given timeout and request rate.
func NewClient(timeout time.Duration, requestsPerSecond float64) *Client {
	return &Client{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		rateLimiter: NewRateLimiter(requestsPerSecond),
	}
}

// Do executes one rate-limited request.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.rateLimiter.Wait()
	return c.client.Do(req)
}

// DoJSON executes a request, enforces a 2xx status and decodes the body into
// out when out is non-nil. Failures come back as *QueryError.
func (c *Client) DoJSON(op string, req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return &QueryError{Op: op, Endpoint: req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &QueryError{Op: op, Endpoint: req.URL.Path, Status: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &QueryError{Op: op, Endpoint: req.URL.Path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
