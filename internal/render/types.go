package render

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNavigationTimeout is wrapped by Session.Navigate when the page did not
	// finish loading within the navigation timeout.
	ErrNavigationTimeout = errors.New("navigation timed out")
	// ErrInvalidConcurrency is returned when RenderAll is configured with fewer
	// than one session.
	ErrInvalidConcurrency = errors.New("render concurrency must be > 0")
)

// Launcher starts the shared rendering engine for a batch.
type Launcher interface {
	Launch(ctx context.Context) (Engine, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Engine, error)

// Launch calls f(ctx).
func (f LauncherFunc) Launch(ctx context.Context) (Engine, error) {
	return f(ctx)
}

// Engine is a running browser that hands out isolated sessions.
type Engine interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

// Session is one isolated browser page used to render exactly one URL.
type Session interface {
	// Navigate loads rawURL. On timeout it returns whatever it could read
	// from the partially loaded page together with an error wrapping
	// ErrNavigationTimeout.
	Navigate(ctx context.Context, rawURL string, timeout time.Duration) (Navigation, error)
	RenderToFile(ctx context.Context, path string, opts PDFOptions) error
	Close() error
}

// Navigation describes the outcome of a page load.
type Navigation struct {
	// StatusCode of the main document response; 0 when no response arrived.
	StatusCode int
	Title      string
}

// PDFOptions controls the printed output.
type PDFOptions struct {
	Format          PageFormat
	PrintBackground bool
}

// TimeoutPolicy decides what a navigation timeout means for a task.
type TimeoutPolicy string

const (
	// TimeoutRender renders whatever content loaded before the timeout.
	TimeoutRender TimeoutPolicy = "render"
	// TimeoutFail treats a navigation timeout as a task failure.
	TimeoutFail TimeoutPolicy = "fail"
)

// Kind classifies a task outcome.
type Kind string

// Outcome kinds.
const (
	KindSuccess           Kind = "success"
	KindNavigationTimeout Kind = "navigation_timeout"
	KindRenderFailure     Kind = "render_failure"
)

// Outcome is the per-URL result of a render task.
type Outcome struct {
	URL        string
	Path       string
	StatusCode int
	// TimedOut is set when navigation timed out, whether or not the page was
	// still rendered.
	TimedOut bool
	Kind     Kind
	Err      error
}

// OK reports whether the task produced a PDF.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// Report aggregates a RenderAll run.
type Report struct {
	// Results maps each successfully rendered URL to its PDF path.
	Results   map[string]string
	Failures  []Outcome
	Outcomes  []Outcome
	Attempted int
}
