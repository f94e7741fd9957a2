package shortener

import (
	"context"
	"time"

	"github.com/ndajr/tinyurl-go/internal/core"
)

// Record applies the three click effects independently: total counter, per-code
// monthly counter and the click log append. A failing effect is logged and does
// not stop or undo the others.
func (s *Service) Record(ctx context.Context, owner, code, longURL string, clickTime time.Time) {
	if err := s.users.IncrementTotalClicks(ctx, owner, 1); err != nil {
		s.backgroundFailed(TaskTotalClicks, owner, code, err)
	}

	period := core.PeriodKey(s.now())
	if err := s.users.IncrementShortClicks(ctx, owner, code, period, 1); err != nil {
		s.backgroundFailed(TaskShortClicks, owner, code, err)
	}

	ev := core.ClickEvent{
		UserName:  owner,
		ClickTime: clickTime,
		Code:      code,
		LongURL:   longURL,
	}
	if err := s.clicks.AppendClick(ctx, ev); err != nil {
		s.backgroundFailed(TaskClickLog, owner, code, err)
	}
}
