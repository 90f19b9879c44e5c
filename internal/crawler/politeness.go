package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiter spaces out requests to the same host. A zero qps disables it.
type hostLimiter struct {
	qps      float64
	limiters sync.Map
}

func newHostLimiter(qps float64) *hostLimiter {
	if qps <= 0 {
		return nil
	}
	return &hostLimiter{qps: qps}
}

// Wait blocks until a request to the host of rawURL is allowed.
func (l *hostLimiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil {
		return nil
	}
	host := strings.ToLower(hostOf(rawURL))
	val, _ := l.limiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(l.qps), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}
