// Package gateway is the single call primitive for the Zoho Projects
// API: every outbound request goes through the rate limiter, carries a
// valid OAuth token, and is retried on transient failures.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/botworks/zohobridge/internal/db/models"
	"github.com/botworks/zohobridge/internal/observe"
	"github.com/botworks/zohobridge/internal/ratelimit"
)

const (
	maxAttempts = 3

	// Cooldown after a rolling-throttle rejection. Zoho enforces the
	// rolling limit over a 2-minute horizon, so shorter waits just burn
	// attempts.
	throttleCooldown = 2 * time.Minute
)

// TokenSource supplies and refreshes conversation credentials.
type TokenSource interface {
	GetValidToken(ctx context.Context, conversationID string) (*models.Credential, error)
	Refresh(ctx context.Context, conversationID, refreshToken string) (*models.Credential, error)
}

// CallParams describes one upstream request.
type CallParams struct {
	Endpoint       string // path below the API base, e.g. "portal/123/tasks/"
	Method         string // defaults to GET
	Body           interface{}
	Query          url.Values
	ConversationID string
	PortalID       string
}

// Response is the upstream reply with its body fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Gateway composes the rate limiter, token manager and retry policy.
type Gateway struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *ratelimit.Limiter
	tokens      TokenSource
	obs         observe.Observer
	sleep       func(ctx context.Context, d time.Duration) error
	maxAttempts int
}

// New creates a gateway for one API base URL.
func New(baseURL string, limiter *ratelimit.Limiter, tokens TokenSource, obs observe.Observer) *Gateway {
	if obs == nil {
		obs = observe.Nop
	}
	return &Gateway{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		limiter:     limiter,
		tokens:      tokens,
		obs:         obs,
		sleep:       sleepCtx,
		maxAttempts: maxAttempts,
	}
}

// Call performs one upstream request. Rate limiting, token refresh on
// 401, and retries on 429/throttle responses are handled here; anything
// else surfaces as *UpstreamError.
func (g *Gateway) Call(ctx context.Context, p CallParams) (*Response, error) {
	if err := g.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	cred, err := g.tokens.GetValidToken(ctx, p.ConversationID)
	if err != nil {
		return nil, err
	}
	accessToken := cred.AccessToken

	reauthed := false
	for attempt := 0; attempt < g.maxAttempts; {
		resp, err := g.do(ctx, p, accessToken)
		if err != nil {
			return nil, &UpstreamError{Endpoint: p.Endpoint, Err: err}
		}

		switch {
		case resp.Status >= 200 && resp.Status < 300:
			return resp, nil

		case resp.Status == http.StatusTooManyRequests:
			wait := ParseRetryAfter(resp.Header, resp.Body)
			if wait <= 0 {
				wait = time.Duration(1<<(attempt+1)) * time.Second
			}
			attempt++
			g.obs.RetryAttempt(p.Endpoint, attempt, g.maxAttempts, wait)
			if err := g.sleep(ctx, wait); err != nil {
				return nil, err
			}

		case IsRollingThrottle(resp.Status, resp.Body):
			attempt++
			g.obs.RetryAttempt(p.Endpoint, attempt, g.maxAttempts, throttleCooldown)
			if err := g.sleep(ctx, throttleCooldown); err != nil {
				return nil, err
			}

		case resp.Status == http.StatusUnauthorized && p.ConversationID != "" && !reauthed:
			// One free refresh-and-retry; it does not consume an attempt.
			refreshed, rerr := g.tokens.Refresh(ctx, p.ConversationID, "")
			if rerr != nil {
				// Propagate the original 401, not the refresh failure.
				return nil, &UpstreamError{Endpoint: p.Endpoint, Status: resp.Status, Body: resp.Body}
			}
			accessToken = refreshed.AccessToken
			reauthed = true

		default:
			return nil, &UpstreamError{Endpoint: p.Endpoint, Status: resp.Status, Body: resp.Body}
		}
	}

	return nil, &UpstreamError{Endpoint: p.Endpoint, Err: ErrRetriesExhausted}
}

func (g *Gateway) do(ctx context.Context, p CallParams, accessToken string) (*Response, error) {
	method := p.Method
	if method == "" {
		method = http.MethodGet
	}

	target := g.baseURL + "/" + strings.TrimPrefix(p.Endpoint, "/")
	if len(p.Query) > 0 {
		target += "?" + p.Query.Encode()
	}

	var body io.Reader
	if p.Body != nil && hasRequestBody(method) {
		jsonData, err := json.Marshal(p.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Zoho-oauthtoken "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	if p.PortalID != "" {
		req.Header.Set("X-Portal-Id", p.PortalID)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func hasRequestBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
