package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site2pdf/internal/config"
	"github.com/JakeFAU/site2pdf/internal/crawler"
	"github.com/JakeFAU/site2pdf/internal/filter"
	"github.com/JakeFAU/site2pdf/internal/logging"
	"github.com/JakeFAU/site2pdf/internal/metrics"
	"github.com/JakeFAU/site2pdf/internal/render"
	"github.com/JakeFAU/site2pdf/internal/storage"
	"github.com/JakeFAU/site2pdf/internal/storage/gcs"
)

// services holds the collaborators of one run.
type services struct {
	logger   *zap.Logger
	fetcher  crawler.Fetcher
	launcher render.Launcher
	// store is nil when mirroring is disabled.
	store storage.BlobStore
	close func()
}

// newServices is the collaborator factory. It is a variable so tests can
// swap in fakes.
var newServices = func(ctx context.Context, cfg config.Config) (*services, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	logger, runID := logging.ForRun(logger)
	logger.Debug("run initialized", zap.String("run_id", runID))

	svc := &services{
		logger:   logger,
		fetcher:  crawler.NewCollyFetcher(cfg.FetcherConfig(), logger),
		launcher: render.NewChromedpLauncher(cfg.ChromedpConfig(), logger),
		close:    func() { _ = logger.Sync() },
	}
	if cfg.Storage.GCSBucket != "" {
		store, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs mirror: %w", err)
		}
		svc.store = store
		svc.close = func() {
			if cerr := store.Close(); cerr != nil {
				logger.Warn("failed to close gcs client", zap.Error(cerr))
			}
			_ = logger.Sync()
		}
	}
	return svc, nil
}

func runConvert(ctx context.Context, out io.Writer, cfg config.Config, rootURL string) error {
	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.close()
	logger := svc.logger

	stopMetrics := metrics.Serve(cfg.Metrics.Addr, logger)
	defer stopMetrics()

	start := time.Now()
	explorer := crawler.NewExplorer(svc.fetcher, crawler.NewGoqueryExtractor(), cfg.Crawl.Workers, logger)
	discovered, err := explorer.Explore(ctx, rootURL, cfg.Crawl.MaxDepth, cfg.Crawl.SameDomainOnly)
	if err != nil {
		return fmt.Errorf("crawl %s: %w", rootURL, err)
	}

	urls := filter.ByKeywords(discovered, cfg.Filter.URLContains)
	logger.Info("urls selected for rendering",
		zap.Int("discovered", len(discovered)),
		zap.Int("selected", len(urls)),
		zap.Strings("keywords", cfg.Filter.URLContains),
	)
	printSelection(out, urls)
	if len(urls) == 0 {
		return nil
	}

	orchestrator := render.NewOrchestrator(svc.launcher, cfg.OrchestratorConfig(), logger)
	report, err := orchestrator.RenderAll(ctx, urls)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if svc.store != nil && len(report.Results) > 0 {
		mirrored := storage.Mirror(ctx, svc.store, cfg.Storage.Prefix, report.Results)
		for _, merr := range mirrored.Errors {
			logger.Warn("mirror upload failed", zap.Error(merr))
		}
		logger.Info("pdfs mirrored",
			zap.String("bucket", cfg.Storage.GCSBucket),
			zap.Int("uploaded", len(mirrored.URIs)),
			zap.Int("failed", len(mirrored.Errors)),
		)
	}

	printSummary(out, report, time.Since(start), cfg.Render.OutputDir)
	return nil
}

func printSelection(out io.Writer, urls []string) {
	fmt.Fprintf(out, "selected %d url(s) for rendering\n", len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  -> %s\n", u)
	}
	if len(urls) == 0 {
		fmt.Fprintln(out, "nothing to render")
	}
}

const rule = "============================================================"

func printSummary(out io.Writer, report render.Report, elapsed time.Duration, outputDir string) {
	if abs, err := filepath.Abs(outputDir); err == nil {
		outputDir = abs
	}
	fmt.Fprintf(out, "\n%s\n", rule)
	fmt.Fprintf(out, "succeeded: %d/%d | elapsed: %.1fs\n", len(report.Results), report.Attempted, elapsed.Seconds())
	fmt.Fprintf(out, "output: %s\n", outputDir)

	sources := make([]string, 0, len(report.Results))
	for src := range report.Results {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		fmt.Fprintf(out, "  %s -> %s\n", src, filepath.Base(report.Results[src]))
	}
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  FAILED %s: %v\n", f.URL, f.Err)
	}
	fmt.Fprintln(out, rule)
}
