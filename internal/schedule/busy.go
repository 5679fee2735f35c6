package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// busyIntervals merges local bookings and every connected provider's busy
// intervals over [from, to) into one sorted, coalesced, minimal sequence.
//
// Local bookings are authoritative; a store error fails the request. Provider
// fetches run concurrently, each bounded by the provider timeout, and fail
// soft: a slow or broken calendar degrades to zero intervals from that
// provider so that partial availability still beats no availability. The
// parent context cancels in-flight fetches when the caller goes away.
func (e *Engine) busyIntervals(ctx context.Context, userID string, from, to time.Time) ([]Window, error) {
	local, err := e.bookings.BusyWindows(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	all := make([]Window, 0, len(local))
	all = append(all, local...)

	if len(e.providers) > 0 {
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, p := range e.providers {
			wg.Add(1)
			go func(p BusyProvider) {
				defer wg.Done()
				fetchCtx, cancel := context.WithTimeout(ctx, e.providerTimeout)
				defer cancel()

				intervals, err := p.BusyIntervals(fetchCtx, userID, from, to)
				if err != nil {
					e.log.Warn("calendar provider unavailable, continuing without it",
						zap.String("provider", p.Name()),
						zap.String("user_id", userID),
						zap.Error(err))
					return
				}
				mu.Lock()
				all = append(all, intervals...)
				mu.Unlock()
			}(p)
		}
		wg.Wait()
	}

	return Merge(all), nil
}
