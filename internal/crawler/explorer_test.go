package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockFetcher is a mock implementation of the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(Page), args.Error(1)
}

// siteFetcher serves a fixed set of HTML pages and counts fetches per URL.
type siteFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	counts map[string]int
}

func newSiteFetcher(pages map[string]string) *siteFetcher {
	return &siteFetcher{pages: pages, counts: make(map[string]int)}
}

func (f *siteFetcher) Fetch(_ context.Context, rawURL string) (Page, error) {
	f.mu.Lock()
	f.counts[rawURL]++
	f.mu.Unlock()
	body, ok := f.pages[rawURL]
	if !ok {
		return Page{}, fmt.Errorf("%w: 404", ErrHTTPStatus)
	}
	return Page{
		URL:         rawURL,
		StatusCode:  http.StatusOK,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(body),
	}, nil
}

func (f *siteFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.counts {
		n += c
	}
	return n
}

func anchors(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, h)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// chainSite is a small site: a -> b, c; b -> a, d; c -> d#x, other.com; d -> e.
func chainSite() map[string]string {
	return map[string]string{
		"http://example.com/a": anchors("/b", "c", "mailto:someone@example.com"),
		"http://example.com/b": anchors("/a", "/d"),
		"http://example.com/c": anchors("/d#x", "http://other.com/x"),
		"http://example.com/d": anchors("/e", "javascript:void(0)"),
		"http://example.com/e": anchors(),
	}
}

func newTestExplorer(f Fetcher) *Explorer {
	return NewExplorer(f, NewGoqueryExtractor(), 4, zap.NewNop())
}

func TestExplore_DepthZeroMakesNoCalls(t *testing.T) {
	fetcher := new(MockFetcher)
	e := newTestExplorer(fetcher)

	got, err := e.Explore(context.Background(), "HTTP://Example.com/start#top", 0, true)

	require.NoError(t, err)
	require.Equal(t, []string{"http://example.com/start"}, got)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestExplore_InvalidInput(t *testing.T) {
	e := newTestExplorer(new(MockFetcher))

	_, err := e.Explore(context.Background(), "ftp://example.com", 1, true)
	require.ErrorIs(t, err, ErrInvalidURL)

	_, err = e.Explore(context.Background(), "not a url", 1, true)
	require.ErrorIs(t, err, ErrInvalidURL)

	_, err = e.Explore(context.Background(), "http://example.com", -1, true)
	require.ErrorIs(t, err, ErrNegativeDepth)
}

func TestExplore_LeafPagesDiscoveredNotFetched(t *testing.T) {
	fetcher := newSiteFetcher(map[string]string{
		"http://example.com/a": anchors("http://example.com/b#frag", "http://other.com/c"),
	})
	e := newTestExplorer(fetcher)

	got, err := e.Explore(context.Background(), "http://example.com/a", 1, true)

	require.NoError(t, err)
	require.Equal(t, []string{"http://example.com/a", "http://example.com/b"}, got)
	require.Equal(t, 1, fetcher.total(), "leaf pages at max depth are not fetched")
}

func TestExplore_IncludeExternal(t *testing.T) {
	fetcher := newSiteFetcher(map[string]string{
		"http://example.com/a": anchors("http://example.com/b", "http://other.com/c"),
	})
	e := newTestExplorer(fetcher)

	got, err := e.Explore(context.Background(), "http://example.com/a", 1, false)

	require.NoError(t, err)
	require.Equal(t, []string{"http://example.com/a", "http://example.com/b", "http://other.com/c"}, got)
}

func TestExplore_SameDomainScope(t *testing.T) {
	e := newTestExplorer(newSiteFetcher(chainSite()))

	got, err := e.Explore(context.Background(), "http://example.com/a", 5, true)

	require.NoError(t, err)
	for _, u := range got {
		require.True(t, strings.HasPrefix(u, "http://example.com/"), "out of scope url %s", u)
	}
	require.Equal(t, []string{
		"http://example.com/a",
		"http://example.com/b",
		"http://example.com/c",
		"http://example.com/d",
		"http://example.com/e",
	}, got)
}

func TestExplore_Monotonic(t *testing.T) {
	var previous []string
	for depth := 0; depth <= 4; depth++ {
		e := newTestExplorer(newSiteFetcher(chainSite()))
		got, err := e.Explore(context.Background(), "http://example.com/a", depth, true)
		require.NoError(t, err)
		require.Subset(t, got, previous, "depth %d lost urls", depth)
		previous = got
	}
}

func TestExplore_NoRefetch(t *testing.T) {
	fetcher := newSiteFetcher(chainSite())
	e := newTestExplorer(fetcher)

	got, err := e.Explore(context.Background(), "http://example.com/a", 10, true)
	require.NoError(t, err)

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	for u, n := range fetcher.counts {
		require.Equal(t, 1, n, "url %s fetched %d times", u, n)
	}
	require.Len(t, fetcher.counts, len(got))
}

func TestExplore_DuplicateLinksWithinLevelFetchedOnce(t *testing.T) {
	fetcher := newSiteFetcher(map[string]string{
		"http://example.com/":  anchors("/x", "/y"),
		"http://example.com/x": anchors("/shared"),
		"http://example.com/y": anchors("/shared", "/shared#again"),
	})
	e := newTestExplorer(fetcher)

	_, err := e.Explore(context.Background(), "http://example.com/", 3, true)
	require.NoError(t, err)

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	require.Equal(t, 1, fetcher.counts["http://example.com/shared"])
}

func TestExplore_SoftFailures(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "http://example.com/").Return(Page{
		URL:         "http://example.com/",
		StatusCode:  http.StatusOK,
		ContentType: "text/html",
		Body:        []byte(anchors("/broken", "/pdf", "/missing")),
	}, nil)
	fetcher.On("Fetch", mock.Anything, "http://example.com/broken").Return(Page{}, errors.New("connection reset"))
	fetcher.On("Fetch", mock.Anything, "http://example.com/pdf").Return(Page{
		StatusCode:  http.StatusOK,
		ContentType: "application/pdf",
		Body:        []byte(anchors("/hidden")),
	}, nil)
	fetcher.On("Fetch", mock.Anything, "http://example.com/missing").Return(Page{
		StatusCode:  http.StatusNotFound,
		ContentType: "text/html",
		Body:        []byte(anchors("/hidden")),
	}, nil)
	e := newTestExplorer(fetcher)

	got, err := e.Explore(context.Background(), "http://example.com/", 3, true)

	require.NoError(t, err)
	require.Equal(t, []string{
		"http://example.com/",
		"http://example.com/broken",
		"http://example.com/missing",
		"http://example.com/pdf",
	}, got)
	fetcher.AssertExpectations(t)
}

func TestExplore_WithCollyFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, anchors("/docs", "/docs#intro", "https://elsewhere.invalid/"))
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, anchors("/docs/guide", "/"))
	})
	mux.HandleFunc("/docs/guide", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, anchors())
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fetcher := NewCollyFetcher(FetcherConfig{UserAgent: "site2pdf-test"}, zap.NewNop())
	e := NewExplorer(fetcher, NewGoqueryExtractor(), 2, zap.NewNop())

	got, err := e.Explore(context.Background(), srv.URL+"/", 2, true)

	require.NoError(t, err)
	require.Equal(t, []string{srv.URL + "/", srv.URL + "/docs", srv.URL + "/docs/guide"}, got)
}

func TestExplore_WithCollyFetcherStatusCodes(t *testing.T) {
	tests := []struct {
		status    int
		wantLinks bool
	}{
		{status: http.StatusOK, wantLinks: true},
		{status: http.StatusCreated, wantLinks: true},
		{status: http.StatusNonAuthoritativeInfo, wantLinks: true},
		{status: http.StatusPartialContent, wantLinks: true},
		{status: http.StatusNotFound, wantLinks: false},
		{status: http.StatusInternalServerError, wantLinks: false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				if r.URL.Path == "/" {
					w.WriteHeader(tt.status)
					fmt.Fprint(w, anchors("/next"))
					return
				}
				fmt.Fprint(w, anchors())
			}))
			defer srv.Close()

			fetcher := NewCollyFetcher(FetcherConfig{}, zap.NewNop())
			e := NewExplorer(fetcher, NewGoqueryExtractor(), 1, zap.NewNop())

			got, err := e.Explore(context.Background(), srv.URL+"/", 1, true)

			require.NoError(t, err)
			want := []string{srv.URL + "/"}
			if tt.wantLinks {
				want = append(want, srv.URL+"/next")
			}
			require.Equal(t, want, got)
		})
	}
}
