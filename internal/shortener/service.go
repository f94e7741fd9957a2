// Package shortener allocates short codes, resolves them back to their
// destination and records click analytics for owned links.
package shortener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ndajr/tinyurl-go/internal/config"
	"github.com/ndajr/tinyurl-go/internal/core"
	"github.com/prometheus/client_golang/prometheus"
)

// CodeStore maps codes to encoded payloads with an atomic conditional write.
type CodeStore interface {
	SetIfAbsent(ctx context.Context, code string, payload string) (bool, error)
	// Get returns core.ErrNotFound for codes that were never reserved.
	Get(ctx context.Context, code string) (string, error)
}

// UserDirectory holds per-user short-link directories and click aggregates.
// All counter updates must be atomic increments on the store side.
type UserDirectory interface {
	IncrementTotalClicks(ctx context.Context, userName string, delta int64) error
	IncrementShortClicks(ctx context.Context, userName, code, period string, delta int64) error
	SetShort(ctx context.Context, userName, code, longURL string) error
}

// ClickLog is the append-only log of click events.
type ClickLog interface {
	AppendClick(ctx context.Context, ev core.ClickEvent) error
	FindClicksByUserName(ctx context.Context, userName string) ([]core.ClickEvent, error)
}

type Service struct {
	codes   CodeStore
	users   UserDirectory
	clicks  ClickLog
	gen     core.Generator
	logger  *slog.Logger
	metrics Metrics
	cfg     config.Shortener
	now     func() time.Time

	wg sync.WaitGroup
}

func NewService(
	logger *slog.Logger,
	cfg config.Shortener,
	codes CodeStore,
	users UserDirectory,
	clicks ClickLog,
	reg prometheus.Registerer,
) (*Service, error) {
	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("shortener: failed to register metrics: %w", err)
	}
	return &Service{
		codes:   codes,
		users:   users,
		clicks:  clicks,
		gen:     core.RandomGenerator{},
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// Shorten normalizes rawURL and reserves a code for it.
func (s *Service) Shorten(ctx context.Context, rawURL, owner string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("%w: missing long url", core.ErrInvalidURL)
	}
	longURL := core.NormalizeURL(rawURL)
	if len(longURL) > core.MaxURLLength {
		return "", fmt.Errorf("%w: url exceeds maximum length of %d characters", core.ErrInvalidURL, core.MaxURLLength)
	}
	return s.Reserve(ctx, longURL, owner)
}

// Reserve stores longURL under a fresh code, trying at most MaxRetries+1
// candidates. An empty owner means the link is anonymous. When every candidate
// is taken it fails with core.ErrSpaceExhausted, which is an alarm threshold
// rather than proof that the key space is full.
func (s *Service) Reserve(ctx context.Context, longURL, owner string) (string, error) {
	payload, err := core.ShortLink{LongURL: longURL, OwnerName: owner}.Encode()
	if err != nil {
		return "", fmt.Errorf("shortener: %w", err)
	}

	attempts := s.cfg.MaxRetries + 1
	for i := 0; i < attempts; i++ {
		code, err := s.gen.Generate()
		if err != nil {
			s.metrics.Reservations.WithLabelValues(StatusError).Inc()
			return "", fmt.Errorf("shortener: %w", err)
		}

		ok, err := s.codes.SetIfAbsent(ctx, code, payload)
		if err != nil {
			s.metrics.Reservations.WithLabelValues(StatusError).Inc()
			return "", fmt.Errorf("shortener: reserve: %w", err)
		}
		if !ok {
			s.metrics.Reservations.WithLabelValues(StatusCollision).Inc()
			s.logger.Info("collision detected, generating a new short code", "code", code, "attempt", i+1)
			continue
		}

		s.metrics.Reservations.WithLabelValues(StatusSuccess).Inc()
		if owner != "" {
			s.dispatch(ctx, TaskSetShort, func(ctx context.Context) {
				if err := s.users.SetShort(ctx, owner, code, longURL); err != nil {
					s.backgroundFailed(TaskSetShort, owner, code, err)
				}
			})
		}
		return code, nil
	}

	s.metrics.Reservations.WithLabelValues(StatusExhausted).Inc()
	s.logger.Error("short code space exhausted", "attempts", attempts)
	return "", fmt.Errorf("shortener: %d attempts collided: %w", attempts, core.ErrSpaceExhausted)
}

// Resolve returns the destination of code. Owned links get a click recorded in
// the background; the outcome of that recording never affects the result.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	if !core.ValidCode(code) {
		return "", core.ErrInvalidCodeShape
	}

	payload, err := s.codes.Get(ctx, code)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", core.ErrNotFound
		}
		return "", fmt.Errorf("shortener: resolve: %w", err)
	}

	link, err := core.DecodeShortLink(payload)
	if err != nil {
		s.logger.Error("stored payload is corrupt", "code", code, "error", err)
		return "", err
	}

	if link.OwnerName != "" {
		clickTime := s.now()
		s.dispatch(ctx, TaskRecordClick, func(ctx context.Context) {
			s.Record(ctx, link.OwnerName, code, link.LongURL, clickTime)
		})
	}
	return link.LongURL, nil
}

// Clicks returns the click log of userName, possibly empty.
func (s *Service) Clicks(ctx context.Context, userName string) ([]core.ClickEvent, error) {
	events, err := s.clicks.FindClicksByUserName(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("shortener: clicks: %w", err)
	}
	return events, nil
}
