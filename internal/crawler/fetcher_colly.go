package crawler

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const (
	// DefaultRequestTimeout bounds each crawl GET.
	DefaultRequestTimeout = 10 * time.Second
	// DefaultUserAgent identifies crawl requests as a desktop browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// FetcherConfig controls the colly collector used for crawling.
type FetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
	// HostQPS limits requests per second to a single host. Zero disables it.
	HostQPS float64
	// MaxBodySize caps the bytes read per response; links past the cap are
	// lost. Zero reads the whole body.
	MaxBodySize int
}

// CollyFetcher implements Fetcher with a gocolly collector. Each fetch runs on
// a clone of the base collector so callbacks never cross requests.
type CollyFetcher struct {
	cfg           FetcherConfig
	baseCollector *colly.Collector
	limiter       *hostLimiter
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// NewCollyFetcher builds a CollyFetcher. Zero values fall back to the defaults.
func NewCollyFetcher(cfg FetcherConfig, logger *zap.Logger) *CollyFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
	)
	base.MaxBodySize = cfg.MaxBodySize
	base.WithTransport(newHTTPTransport())
	base.SetRequestTimeout(cfg.Timeout)

	return &CollyFetcher{
		cfg:           cfg,
		baseCollector: base,
		limiter:       newHostLimiter(cfg.HostQPS),
		logger:        logger,
	}
}

// Fetch performs a GET for rawURL. Every status reaches OnResponse, so any
// 2xx is a success. Transport failures and non-2xx statuses come back as
// errors; the caller decides what a failure means.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, fmt.Errorf("colly fetch canceled: %w", err)
	}
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return Page{}, fmt.Errorf("host rate limit: %w", err)
	}

	var (
		result   Page
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, rawURL, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, rawURL, &fetchErr); err != nil {
		return Page{}, err
	}
	if !result.OK() {
		return result, fmt.Errorf("%w: %d", ErrHTTPStatus, result.StatusCode)
	}
	f.logger.Debug("fetched",
		zap.String("url", rawURL),
		zap.Int("status_code", result.StatusCode),
		zap.Int("bytes", len(result.Body)),
	)
	return result, nil
}

func (f *CollyFetcher) configureCollectorHooks(
	hooks collectorHooks,
	rawURL string,
	result *Page,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		page := Page{
			URL:        rawURL,
			FinalURL:   rawURL,
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
		if r.Request != nil && r.Request.URL != nil {
			page.FinalURL = r.Request.URL.String()
		}
		if r.Headers != nil {
			page.ContentType = r.Headers.Get("Content-Type")
		}
		*result = page
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*fetchErr = fmt.Errorf("%w: %d: %v", ErrHTTPStatus, r.StatusCode, err)
			return
		}
		*fetchErr = err
	})
}

func (f *CollyFetcher) runCollector(ctx context.Context, collector *colly.Collector, rawURL string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}
}
