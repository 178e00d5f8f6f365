package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"

	"bulk-deal-tracker/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// ErrEmptyResponse is returned when an endpoint answers with no body.
var ErrEmptyResponse = errors.New("empty response body")

// Client is a cookie-keeping HTTP session for scraping exchange pages.
// Requests are paced by a limiter and never retried.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewClient creates a new exchange client.
func NewClient(cfg *config.Exchange, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetCookieJar(jar).
		SetHeaders(map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,text/csv,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		})

	// One request per MinInterval, no bursts.
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Client{
		client:  client,
		logger:  logger.Named("exchange-client"),
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Get fetches url and returns the response body.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req := c.client.R().SetHeaders(headers)

	resp, err := c.doRequest(ctx, url, req)
	if err != nil {
		return nil, err
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("%s: %w", url, ErrEmptyResponse)
	}
	return body, nil
}

// WarmUp visits landing pages so the session collects the cookies some
// endpoints require. Failures are logged and otherwise ignored.
func (c *Client) WarmUp(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if _, err := c.doRequest(ctx, url, c.client.R()); err != nil {
			c.logger.Warn("Session warm-up failed", zap.String("url", url), zap.Error(err))
			continue
		}
		c.logger.Debug("Session warm-up complete", zap.String("url", url))
	}
}

// doRequest waits for the limiter and executes a single GET.
func (c *Client) doRequest(ctx context.Context, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	c.logger.Debug("Executing request", zap.String("url", url))
	resp, err := req.SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("request to %s failed with status %s", url, resp.Status())
	}
	return resp, nil
}
