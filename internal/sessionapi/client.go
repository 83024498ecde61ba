// Package sessionapi is the host-side client for the verification service's
// session REST API. Hosts create sessions server-side and hand the resulting
// session id to the embedded flow; the flow core itself never talks to the
// network.
package sessionapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Config configures the API client.
type Config struct {
	BaseURL string
	APIKey  string

	// Timeout bounds each request including retries. Zero means 30s.
	Timeout time.Duration
	// RetryMax caps transport-level retries. Zero means 3.
	RetryMax int
	// RequestsPerSecond rate-limits outbound calls. Zero means unlimited.
	RequestsPerSecond float64
}

// Client wraps resty with retrying transport and rate limiting.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
}

// Session is a verification session as the service reports it.
type Session struct {
	ID        string    `json:"session_id"`
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Alias     string    `json:"alias,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type createRequest struct {
	Service string `json:"service"`
	Alias   string `json:"alias,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// New creates a client for the given service endpoint.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	retryMax := cfg.RetryMax
	if retryMax == 0 {
		retryMax = 3
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "verikit-host/1.0").
		SetHeader("Authorization", "Bearer "+cfg.APIKey)
	rc.SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1)
	}

	return &Client{resty: rc, limiter: limiter}
}

// CreateSession creates a verification session for the given service type.
// The idempotency key makes accidental duplicate submissions safe.
func (c *Client) CreateSession(ctx context.Context, service, alias string) (*Session, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		session Session
		apiErr  apiError
	)
	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(createRequest{Service: service, Alias: alias}).
		SetResult(&session).
		SetError(&apiErr).
		Post("/v1/sessions")
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("create session: %s (%s)", resp.Status(), apiErr.Message)
	}
	return &session, nil
}

// GetSession fetches the current state of a session.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		session Session
		apiErr  apiError
	)
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&session).
		SetError(&apiErr).
		Get("/v1/sessions/" + id)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("get session %s: not found", id)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get session %s: %s (%s)", id, resp.Status(), apiErr.Message)
	}
	return &session, nil
}
