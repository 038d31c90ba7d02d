package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/danwiki/internal/infrastructure/logging"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrNoResponse means every attempt failed or the site answered with a challenge page.
	ErrNoResponse = errors.New("no response")
	// ErrChallenge marks an anti-bot interstitial. It is always wrapped together with ErrNoResponse.
	ErrChallenge = errors.New("interstitial challenge page")
)

// challengeMarkers identify anti-bot interstitial pages.
var challengeMarkers = []string{"Just a moment", "Cloudflare"}

// Response is a completed page request.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 200 response.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// Config controls politeness and retries.
type Config struct {
	Timeout   time.Duration
	Attempts  int
	Delay     time.Duration // minimum spacing between requests
	Jitter    time.Duration // random extra pause added before each attempt
	RetryWait time.Duration // pause after a transport error
	UserAgent string
}

// Client fetches wiki pages with rate limiting, retries, and circuit breaker protection.
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
	Breaker *resilience.Breaker

	cfg     Config
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu        sync.RWMutex
	userAgent string
	cookies   []*http.Cookie
}

// New creates a page client.
func New(cfg Config, log *logging.Logger, metrics *monitoring.Metrics) *Client {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	log = log.Named("http")

	// Pooled transport from the retryable client; retries are driven here so
	// challenge pages can stop them early.
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	restyClient := resty.New()
	restyClient.
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}

	breaker := resilience.New("wiki-site", resilience.Settings{
		MaxRequests: 1,
		Interval:    2 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a challenge page or a cancelled caller says nothing about site health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrChallenge) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	return &Client{
		Resty:     restyClient,
		Limiter:   limiter,
		Breaker:   breaker,
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
		userAgent: cfg.UserAgent,
	}
}

// SetCredentials replaces the user agent and cookie jar used for later requests.
func (c *Client) SetCredentials(userAgent string, cookies map[string]string) {
	jar := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		jar = append(jar, &http.Cookie{Name: name, Value: value})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if userAgent != "" {
		c.userAgent = userAgent
	}
	c.cookies = jar
}

// UserAgent returns the user agent currently sent.
func (c *Client) UserAgent() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userAgent
}

// Get requests url up to the configured number of attempts. Transport
// errors are retried after RetryWait. A challenge page stops immediately.
// Any returned error wraps ErrNoResponse unless the context ended.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		if err := c.pause(ctx); err != nil {
			return nil, err
		}

		resp, err := resilience.Do(c.Breaker, func() (*Response, error) {
			return c.do(ctx, url)
		})
		switch {
		case err == nil:
			c.metrics.RecordPageRequest(fmt.Sprintf("status_%d", resp.StatusCode))
			return resp, nil
		case errors.Is(err, ErrChallenge):
			c.metrics.RecordPageRequest("challenge")
			c.log.Warn("challenge page received", zap.String("url", url))
			return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
		case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
			c.metrics.RecordPageRequest("circuit_open")
			return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}

		lastErr = err
		c.metrics.RecordPageRequest("error")
		c.log.Warn("request failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("attempts", c.cfg.Attempts),
			zap.Error(err))

		if attempt < c.cfg.Attempts {
			if err := sleep(ctx, c.cfg.RetryWait); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrNoResponse, lastErr)
}

func (c *Client) do(ctx context.Context, url string) (*Response, error) {
	c.mu.RLock()
	req := c.Resty.R().
		SetContext(ctx).
		SetHeader("User-Agent", c.userAgent).
		SetCookies(c.cookies)
	c.mu.RUnlock()

	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}

	body := resp.Body()
	if isChallenge(body) {
		return nil, ErrChallenge
	}
	return &Response{StatusCode: resp.StatusCode(), Body: body}, nil
}

// pause waits for the limiter and then a random jitter.
func (c *Client) pause(ctx context.Context) error {
	if err := c.Limiter.Wait(ctx); err != nil {
		return err
	}
	if c.cfg.Jitter <= 0 {
		return nil
	}
	return sleep(ctx, rand.N(c.cfg.Jitter))
}

func isChallenge(body []byte) bool {
	text := string(body)
	for _, m := range challengeMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
