package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/site2pdf/internal/metrics"
)

// DefaultWorkers is the size of the per-level fetch pool.
const DefaultWorkers = 8

// Explorer performs level-synchronous breadth-first link discovery.
//
// Within a level, fetch-and-extract runs on a bounded pool. The discovered and
// visited sets belong to the Explore call and are only touched between
// fan-outs, so workers never share mutable state.
type Explorer struct {
	fetcher   Fetcher
	extractor LinkExtractor
	workers   int
	logger    *zap.Logger
}

// NewExplorer wires an Explorer. workers <= 0 selects DefaultWorkers.
func NewExplorer(fetcher Fetcher, extractor LinkExtractor, workers int, logger *zap.Logger) *Explorer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Explorer{
		fetcher:   fetcher,
		extractor: extractor,
		workers:   workers,
		logger:    logger,
	}
}

type exploreScope struct {
	rootHost       string
	sameDomainOnly bool
}

// Explore returns every URL reachable from root within maxDepth link hops,
// normalized and sorted. maxDepth == 0 returns the normalized root without any
// network activity. Per-page failures only shrink the result; the returned
// error is reserved for invalid input.
func (e *Explorer) Explore(ctx context.Context, root string, maxDepth int, sameDomainOnly bool) ([]string, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeDepth, maxDepth)
	}
	rootNorm, err := NormalizeURL(root)
	if err != nil {
		return nil, err
	}
	if maxDepth == 0 {
		return []string{rootNorm}, nil
	}

	scope := exploreScope{rootHost: hostOf(rootNorm), sameDomainOnly: sameDomainOnly}
	discovered := map[string]struct{}{rootNorm: {}}
	visited := make(map[string]struct{})
	frontier := []string{rootNorm}

	e.logger.Info("crawl started",
		zap.String("root", rootNorm),
		zap.Int("max_depth", maxDepth),
		zap.Bool("same_domain_only", sameDomainOnly),
	)

	for depth := 0; depth < maxDepth; depth++ {
		pending := make([]string, 0, len(frontier))
		for _, u := range frontier {
			if _, seen := visited[u]; seen {
				continue
			}
			visited[u] = struct{}{}
			pending = append(pending, u)
		}
		if len(pending) == 0 {
			break
		}

		found := e.expandLevel(ctx, pending, scope)

		var next []string
		for i, src := range pending {
			added := 0
			for _, link := range found[i] {
				if _, ok := discovered[link]; !ok {
					discovered[link] = struct{}{}
					added++
				}
				if _, ok := visited[link]; !ok {
					next = append(next, link)
				}
			}
			if added > 0 {
				metrics.ObserveDiscovered(added)
				e.logger.Info("new links",
					zap.String("url", src),
					zap.Int("depth", depth),
					zap.Int("added", added),
				)
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(discovered))
	for u := range discovered {
		out = append(out, u)
	}
	sort.Strings(out)
	e.logger.Info("crawl finished", zap.Int("discovered", len(out)), zap.Int("fetched", len(visited)))
	return out, nil
}

// expandLevel fetches every pending URL on the worker pool and returns the
// filtered links of pending[i] at index i. It returns once the whole level is
// done.
func (e *Explorer) expandLevel(ctx context.Context, pending []string, scope exploreScope) [][]string {
	found := make([][]string, len(pending))
	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, u := range pending {
		g.Go(func() error {
			found[i] = e.fetchAndExtract(ctx, u, scope)
			return nil
		})
	}
	_ = g.Wait()
	return found
}

// fetchAndExtract never fails: fetch errors, non-2xx responses, and non-HTML
// bodies all yield an empty link list.
func (e *Explorer) fetchAndExtract(ctx context.Context, pageURL string, scope exploreScope) []string {
	page, err := e.fetcher.Fetch(ctx, pageURL)
	if err == nil && !page.OK() {
		err = fmt.Errorf("%w: %d", ErrHTTPStatus, page.StatusCode)
	}
	if err == nil && !page.IsHTML() {
		err = fmt.Errorf("%w: %q", ErrNotHTML, page.ContentType)
	}
	if err != nil {
		result := metrics.ResultFailed
		if errors.Is(err, ErrNotHTML) {
			result = metrics.ResultSkipped
		}
		metrics.ObserveFetch(pageURL, result)
		e.logger.Debug("fetch yielded no links", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	metrics.ObserveFetch(pageURL, metrics.ResultOK)

	hrefs, err := e.extractor.ExtractLinks(page.Body)
	if err != nil {
		e.logger.Debug("link extraction failed", zap.String("url", pageURL), zap.Error(err))
		return nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	links := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		link, err := ResolveURL(base, href)
		if err != nil {
			continue
		}
		if scope.sameDomainOnly && hostOf(link) != scope.rootHost {
			continue
		}
		links = append(links, link)
	}
	return links
}
