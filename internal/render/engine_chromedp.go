package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const titleReadTimeout = 5 * time.Second

// ChromedpConfig controls the headless Chrome process.
type ChromedpConfig struct {
	Headless  bool
	UserAgent string
	// ExecPath overrides Chrome discovery when set.
	ExecPath string
}

// ChromedpLauncher starts headless Chrome through chromedp.
type ChromedpLauncher struct {
	cfg    ChromedpConfig
	logger *zap.Logger
}

// NewChromedpLauncher returns a Launcher backed by chromedp.
func NewChromedpLauncher(cfg ChromedpConfig, logger *zap.Logger) *ChromedpLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromedpLauncher{cfg: cfg, logger: logger}
}

// Launch starts one browser process and waits until it accepts commands.
func (l *ChromedpLauncher) Launch(_ context.Context) (Engine, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if l.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.cfg.UserAgent))
	}
	if l.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	l.logger.Debug("browser started", zap.Bool("headless", l.cfg.Headless))

	return &chromedpEngine{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		logger:        l.logger,
	}, nil
}

type chromedpEngine struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	logger        *zap.Logger
}

// NewSession opens a tab in its own browser context, so cookies, storage and
// cache are never shared between sessions. Closing the session disposes the
// context.
func (e *chromedpEngine) NewSession(_ context.Context) (Session, error) {
	tabCtx, cancel := chromedp.NewContext(e.browserCtx, chromedp.WithNewBrowserContext())
	meta := &responseMeta{}
	chromedp.ListenTarget(tabCtx, meta.captureEvent)
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &chromedpSession{tabCtx: tabCtx, cancel: cancel, meta: meta, logger: e.logger}, nil
}

// Close tears down the chromedp browser and allocator contexts.
func (e *chromedpEngine) Close() error {
	e.browserCancel()
	e.allocCancel()
	return nil
}

type chromedpSession struct {
	tabCtx context.Context
	cancel context.CancelFunc
	meta   *responseMeta
	logger *zap.Logger
}

// Navigate loads rawURL and waits for the load event. When the timeout fires
// first, the title of the partially loaded page is still read and returned
// with an ErrNavigationTimeout error.
func (s *chromedpSession) Navigate(ctx context.Context, rawURL string, timeout time.Duration) (Navigation, error) {
	if err := ctx.Err(); err != nil {
		return Navigation{}, fmt.Errorf("chromedp navigate: %w", err)
	}
	navCtx, cancelNav := context.WithTimeout(s.tabCtx, timeout)
	defer cancelNav()
	stopForward := forwardCancel(ctx, cancelNav)
	defer stopForward()

	navErr := chromedp.Run(navCtx, chromedp.Navigate(rawURL))
	timedOut := navErr != nil && errors.Is(navErr, context.DeadlineExceeded) && ctx.Err() == nil
	if navErr != nil && !timedOut {
		return Navigation{}, fmt.Errorf("chromedp navigate: %w", navErr)
	}

	var title string
	titleCtx, cancelTitle := context.WithTimeout(s.tabCtx, titleReadTimeout)
	defer cancelTitle()
	if err := chromedp.Run(titleCtx, chromedp.Title(&title)); err != nil {
		if !timedOut {
			return Navigation{}, fmt.Errorf("read title: %w", err)
		}
		s.logger.Debug("title unavailable after navigation timeout", zap.String("url", rawURL), zap.Error(err))
	}

	nav := Navigation{StatusCode: s.meta.status(), Title: title}
	if timedOut {
		return nav, fmt.Errorf("%w after %s: %s", ErrNavigationTimeout, timeout, rawURL)
	}
	return nav, nil
}

// RenderToFile prints the current page to a PDF at path.
func (s *chromedpSession) RenderToFile(ctx context.Context, path string, opts PDFOptions) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	width, height := opts.Format.Inches()
	var pdf []byte
	printAction := chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(opts.PrintBackground).
			WithPaperWidth(width).
			WithPaperHeight(height).
			Do(ctx)
		if err != nil {
			return err
		}
		pdf = data
		return nil
	})
	if err := chromedp.Run(runCtx, printAction); err != nil {
		return fmt.Errorf("print to pdf: %w", err)
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil { //nolint:gosec // rendered documents are meant to be shared
		return fmt.Errorf("write pdf %s: %w", path, err)
	}
	return nil
}

// Close closes the tab.
func (s *chromedpSession) Close() error {
	s.cancel()
	return nil
}

// responseMeta records the status of the first document response in a tab.
type responseMeta struct {
	mu         sync.Mutex
	statusCode int
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusCode == 0 {
		m.statusCode = int(resp.Response.Status)
	}
}

func (m *responseMeta) status() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCode
}

// forwardCancel calls cancel when parent is done, until the returned stop
// function runs.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
