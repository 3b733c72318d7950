package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/circuitbreaker"
	"safe-gateway-lite/internal/metrics"
)

// maxPages bounds how many `next` links a listing follows.
const maxPages = 50

type ClientOptions struct {
	BaseURL string
	Timeout time.Duration
	// RPS and Burst shape outgoing calls; RPS <= 0 disables limiting.
	RPS     float64
	Burst   int
	Breaker circuitbreaker.Config
	Logger  *slog.Logger
}

// Client is the HTTP implementation of Indexer.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.Breaker
	logger     *slog.Logger
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "indexer")
	if opts.Breaker.OnStateChange == nil {
		opts.Breaker.OnStateChange = func(from, to circuitbreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues("indexer").Set(float64(to))
			logger.Warn("indexer circuit breaker", "from", from.String(), "to", to.String())
		}
	}
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		breaker:    circuitbreaker.New(opts.Breaker),
		logger:     logger,
	}
	if opts.RPS > 0 {
		if opts.Burst <= 0 {
			opts.Burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst)
	}
	return c
}

// statusError is a non-2xx answer from the indexer.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.status, e.body)
}

// tripsBreaker reports whether err says the indexer itself is unhealthy.
// A 4xx answer means the indexer works and rejected the request.
func tripsBreaker(err error) bool {
	se, ok := err.(*statusError)
	return !ok || se.status >= 500 || se.status == http.StatusTooManyRequests
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	r := c.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	if delay := r.Delay(); delay > 0 {
		metrics.UpstreamRateLimitWaits.WithLabelValues("indexer").Inc()
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		}
	}
	return nil
}

// do sends one request and decodes a JSON answer into out when out is not nil.
func (c *Client) do(ctx context.Context, op, method, rawURL string, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.UpstreamCallsTotal.WithLabelValues("indexer", op, metrics.ClassifyError(err)).Inc()
		metrics.UpstreamLatency.WithLabelValues("indexer", op).Observe(time.Since(start).Seconds())
	}()

	if err := c.wait(ctx); err != nil {
		return apperr.Wrapf(apperr.ErrUpstreamUnavailable, "indexer %s: %v", op, err)
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	err = c.breaker.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &statusError{status: resp.StatusCode, body: string(respBody)}
		}
		if out == nil || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}, tripsBreaker)

	if err == nil {
		return nil
	}
	c.logger.Warn("indexer call failed", "op", op, "err", err)
	if se, ok := err.(*statusError); ok {
		switch se.status {
		case http.StatusNotFound:
			return apperr.Wrapf(apperr.ErrNotFound, "indexer %s: %s", op, se.body)
		case http.StatusConflict:
			return apperr.Wrapf(apperr.ErrConflict, "indexer %s: %s", op, se.body)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return apperr.Wrapf(apperr.ErrInvalidInput, "indexer %s: %s", op, se.body)
		}
	}
	return apperr.Wrapf(apperr.ErrUpstreamUnavailable, "indexer %s: %v", op, err)
}

func (c *Client) chainURL(chainID string, parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return c.baseURL + "/api/v1/chains/" + url.PathEscape(chainID) + "/" + strings.Join(escaped, "/") + "/"
}

func (c *Client) Propose(ctx context.Context, req ProposeRequest) error {
	return c.do(ctx, "propose", http.MethodPost, c.chainURL(req.ChainID, "safes", req.Safe, "multisig-transactions"), req, nil)
}

// Confirm posts the signature only; the indexer recovers the owner itself.
func (c *Client) Confirm(ctx context.Context, chainID, safeTxHash string, conf Confirmation) error {
	body := map[string]string{"signature": conf.Signature}
	return c.do(ctx, "confirm", http.MethodPost, c.chainURL(chainID, "multisig-transactions", safeTxHash, "confirmations"), body, nil)
}

func (c *Client) Delete(ctx context.Context, chainID, safeTxHash, signature string) error {
	body := map[string]string{"signature": signature}
	err := c.do(ctx, "delete", http.MethodDelete, c.chainURL(chainID, "multisig-transactions", safeTxHash), body, nil)
	if apperr.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Client) Transaction(ctx context.Context, chainID, safeTxHash string) (Transaction, error) {
	var tx Transaction
	err := c.do(ctx, "transaction", http.MethodGet, c.chainURL(chainID, "multisig-transactions", safeTxHash), nil, &tx)
	if err == nil && tx.ChainID == "" {
		tx.ChainID = chainID
	}
	return tx, err
}

func (c *Client) Queued(ctx context.Context, chainID, safe string) ([]Item, error) {
	return c.list(ctx, "queued", c.chainURL(chainID, "safes", safe, "transactions", "queued"))
}

func (c *Client) History(ctx context.Context, chainID, safe string) ([]Item, error) {
	return c.list(ctx, "history", c.chainURL(chainID, "safes", safe, "transactions", "history"))
}

// list follows `next` cursors and concatenates every page.
func (c *Client) list(ctx context.Context, op, first string) ([]Item, error) {
	var items []Item
	next := first
	for page := 0; next != ""; page++ {
		if page == maxPages {
			c.logger.Warn("indexer listing truncated", "op", op, "pages", maxPages)
			break
		}
		var p Page
		if err := c.do(ctx, op, http.MethodGet, next, nil, &p); err != nil {
			return nil, err
		}
		items = append(items, p.Results...)
		next = ""
		if p.Next != nil {
			next = *p.Next
		}
	}
	return items, nil
}
