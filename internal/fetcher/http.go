package fetcher

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/search-report/internal/model"
	"github.com/sells-group/search-report/internal/resilience"
)

// DefaultUserAgent identifies requests as a desktop browser; several sources
// serve a degraded page to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// HTTPOptions configures the HTTP transport.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration

	// MaxAttempts is the total number of tries per request. 1 disables retries.
	MaxAttempts  int
	RetryBackoff time.Duration

	// RatePerHost and Burst size the token bucket created for each host.
	RatePerHost rate.Limit
	Burst       int

	MaxBodyBytes int64
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit(host string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("fetcher: reducing rate after 429",
		zap.String("host", host),
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Transport using net/http with per-host rate
// limiting and optional retries.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
	retry  resilience.RetryConfig

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

var _ Transport = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.RatePerHost <= 0 {
		opts.RatePerHost = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = opts.MaxAttempts
	retry.InitialBackoff = opts.RetryBackoff
	retry.OnRetry = resilience.RetryLogger("http", "get")

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		retry:    retry,
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

// Options returns the effective options after defaults were applied.
func (f *HTTPFetcher) Options() HTTPOptions {
	return f.opts
}

func (f *HTTPFetcher) limiterFor(host string) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = NewAdaptiveLimiter(f.opts.RatePerHost, f.opts.Burst)
		f.limiters[host] = lim
	}
	return lim
}

type response struct {
	body        []byte
	contentType string
}

// FetchText fetches rawURL with params and returns the body as UTF-8 text.
func (f *HTTPFetcher) FetchText(ctx context.Context, rawURL string, params url.Values) (string, error) {
	resp, err := f.get(ctx, rawURL, params, "text/html,application/xhtml+xml,*/*;q=0.8")
	if err != nil {
		return "", err
	}
	return decodeBody(resp.body, resp.contentType), nil
}

// FetchJSON fetches rawURL with params and parses the body as JSON.
func (f *HTTPFetcher) FetchJSON(ctx context.Context, rawURL string, params url.Values) (gjson.Result, error) {
	resp, err := f.get(ctx, rawURL, params, "application/json")
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(resp.body) {
		return gjson.Result{}, &model.ParseError{Source: rawURL, Reason: "response is not valid json"}
	}
	return gjson.ParseBytes(resp.body), nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string, params url.Values, accept string) (*response, error) {
	target, err := BuildURL(rawURL, params)
	if err != nil {
		return nil, &model.TransportError{URL: rawURL, Err: err}
	}
	resp, err := resilience.DoVal(ctx, f.retry, func(ctx context.Context) (*response, error) {
		return f.do(ctx, target, accept)
	})
	if err != nil {
		var transient *resilience.TransientError
		if errors.As(err, &transient) {
			return nil, transient.Err
		}
		return nil, err
	}
	return resp, nil
}

func (f *HTTPFetcher) do(ctx context.Context, target, accept string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &model.TransportError{URL: target, Err: eris.Wrap(err, "create request")}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", accept)

	lim := f.limiterFor(req.URL.Host)
	if err := lim.Wait(ctx); err != nil {
		return nil, &model.TransportError{URL: target, Err: eris.Wrap(err, "rate limiter wait")}
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &model.TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		te := &model.TransportError{URL: target, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			lim.OnRateLimit(req.URL.Host)
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(te, resp.StatusCode)
		}
		return nil, te
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, &model.TransportError{URL: target, StatusCode: resp.StatusCode, Err: eris.Wrap(err, "read body")}
	}
	lim.OnSuccess()

	zap.L().Debug("fetcher: fetched",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &response{body: body, contentType: resp.Header.Get("Content-Type")}, nil
}
