package shortener

import (
	"context"
)

const (
	TaskSetShort    = "set_short"
	TaskRecordClick = "record_click"
	TaskTotalClicks = "total_clicks"
	TaskShortClicks = "short_clicks"
	TaskClickLog    = "click_log"
)

// dispatch runs fn detached from the caller. The task keeps ctx values but not
// its cancellation, and is bounded by the configured background timeout.
func (s *Service) dispatch(ctx context.Context, task string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.metrics.BackgroundFailures.WithLabelValues(task).Inc()
				s.logger.Error("background task panicked", "task", task, "panic", r)
			}
		}()

		bgCtx := context.WithoutCancel(ctx)
		if s.cfg.BackgroundTimeout > 0 {
			var cancel context.CancelFunc
			bgCtx, cancel = context.WithTimeout(bgCtx, s.cfg.BackgroundTimeout)
			defer cancel()
		}
		fn(bgCtx)
	}()
}

func (s *Service) backgroundFailed(task, owner, code string, err error) {
	s.metrics.BackgroundFailures.WithLabelValues(task).Inc()
	s.logger.Error("background write failed", "task", task, "user", owner, "code", code, "error", err)
}

// Wait blocks until all background tasks started so far have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
