package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/site2pdf/internal/metrics"
)

// Defaults applied by NewOrchestrator for zero config values.
const (
	DefaultConcurrency       = 8
	DefaultNavigationTimeout = 120 * time.Second
	DefaultOutputDir         = "output_pdfs"
)

// Config controls a render batch.
type Config struct {
	OutputDir         string
	Concurrency       int
	NavigationTimeout time.Duration
	TimeoutPolicy     TimeoutPolicy
	PDF               PDFOptions
}

// Orchestrator renders batches of URLs to PDF files.
type Orchestrator struct {
	launcher Launcher
	cfg      Config
	logger   *zap.Logger
}

// NewOrchestrator builds an Orchestrator. Zero values in cfg take the package
// defaults, except Concurrency, which is validated by RenderAll.
func NewOrchestrator(launcher Launcher, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.TimeoutPolicy == "" {
		cfg.TimeoutPolicy = TimeoutRender
	}
	if cfg.PDF.Format == "" {
		cfg.PDF.Format = FormatA4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		launcher: launcher,
		cfg:      cfg,
		logger:   logger,
	}
}

// RenderAll renders every URL to <OutputDir>/<name>.pdf and returns the
// aggregated report. Task failures are recorded in the report and never stop
// sibling tasks; the returned error covers only run-level problems (invalid
// concurrency, output directory, engine launch).
func (o *Orchestrator) RenderAll(ctx context.Context, urls []string) (Report, error) {
	if o.cfg.Concurrency < 1 {
		return Report{}, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, o.cfg.Concurrency)
	}
	if err := os.MkdirAll(o.cfg.OutputDir, 0o750); err != nil {
		return Report{}, fmt.Errorf("create output dir %s: %w", o.cfg.OutputDir, err)
	}

	report := Report{
		Results:   make(map[string]string, len(urls)),
		Attempted: len(urls),
	}
	if len(urls) == 0 {
		return report, nil
	}

	engine, err := o.launcher.Launch(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("launch render engine: %w", err)
	}

	batch := &batch{
		engine: engine,
		sem:    semaphore.NewWeighted(int64(o.cfg.Concurrency)),
		names:  NewNameAllocator(),
		total:  len(urls),
	}
	outcomes := make([]Outcome, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = o.runTask(ctx, batch, i+1, u)
		}()
	}
	wg.Wait()

	if err := engine.Close(); err != nil {
		o.logger.Warn("failed to close render engine", zap.Error(err))
	}

	report.Outcomes = outcomes
	for _, out := range outcomes {
		if out.OK() {
			report.Results[out.URL] = out.Path
			continue
		}
		report.Failures = append(report.Failures, out)
	}
	return report, nil
}

// batch is the state shared by the tasks of one RenderAll call.
type batch struct {
	engine Engine
	sem    *semaphore.Weighted
	names  *NameAllocator
	total  int
}

// runTask converts a panic inside a task into a render failure.
func (o *Orchestrator) runTask(ctx context.Context, b *batch, index int, rawURL string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{URL: rawURL, Kind: KindRenderFailure, Err: fmt.Errorf("render panic: %v", r)}
		}
		o.observe(index, b.total, out)
	}()
	return o.renderOne(ctx, b, rawURL)
}

func (o *Orchestrator) renderOne(ctx context.Context, b *batch, rawURL string) Outcome {
	fail := func(kind Kind, err error) Outcome {
		return Outcome{URL: rawURL, Kind: kind, Err: err}
	}

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return fail(KindRenderFailure, fmt.Errorf("acquire render slot: %w", err))
	}
	defer b.sem.Release(1)

	session, err := b.engine.NewSession(ctx)
	if err != nil {
		return fail(KindRenderFailure, fmt.Errorf("open session: %w", err))
	}
	metrics.IncActiveSessions()
	defer func() {
		metrics.DecActiveSessions()
		if cerr := session.Close(); cerr != nil {
			o.logger.Warn("failed to close session", zap.String("url", rawURL), zap.Error(cerr))
		}
	}()

	timedOut := false
	nav, err := session.Navigate(ctx, rawURL, o.cfg.NavigationTimeout)
	if err != nil {
		if !errors.Is(err, ErrNavigationTimeout) {
			return fail(KindRenderFailure, fmt.Errorf("navigate: %w", err))
		}
		if o.cfg.TimeoutPolicy == TimeoutFail {
			out := fail(KindNavigationTimeout, err)
			out.TimedOut = true
			return out
		}
		timedOut = true
	}
	if nav.StatusCode >= 400 {
		o.logger.Warn("page returned http error",
			zap.String("url", rawURL),
			zap.Int("status_code", nav.StatusCode),
		)
	}

	candidate := strings.TrimSpace(nav.Title)
	if candidate == "" {
		candidate = NameFromURL(rawURL)
	}
	name := b.names.Allocate(candidate)
	path := filepath.Join(o.cfg.OutputDir, name+".pdf")

	if err := session.RenderToFile(ctx, path, o.cfg.PDF); err != nil {
		out := fail(KindRenderFailure, fmt.Errorf("render pdf: %w", err))
		out.StatusCode = nav.StatusCode
		out.TimedOut = timedOut
		return out
	}
	return Outcome{
		URL:        rawURL,
		Path:       path,
		StatusCode: nav.StatusCode,
		TimedOut:   timedOut,
		Kind:       KindSuccess,
	}
}

func (o *Orchestrator) observe(index, total int, out Outcome) {
	fields := []zap.Field{
		zap.Int("index", index),
		zap.Int("total", total),
		zap.String("url", out.URL),
	}
	switch {
	case out.OK() && out.TimedOut:
		metrics.ObserveRender(out.URL, metrics.ResultTimedOut)
		o.logger.Info("rendered after navigation timeout", append(fields, zap.String("file", filepath.Base(out.Path)))...)
	case out.OK():
		metrics.ObserveRender(out.URL, metrics.ResultOK)
		o.logger.Info("rendered", append(fields, zap.String("file", filepath.Base(out.Path)))...)
	default:
		metrics.ObserveRender(out.URL, metrics.ResultFailed)
		o.logger.Error("render failed", append(fields, zap.String("kind", string(out.Kind)), zap.Error(out.Err))...)
	}
}
