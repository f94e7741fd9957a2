package shortener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ndajr/tinyurl-go/internal/config"
	"github.com/ndajr/tinyurl-go/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend unavailable")

// memCodeStore accepts a reservation unless the code is taken or rejectFirst
// attempts have not yet been used up.
type memCodeStore struct {
	mu          sync.Mutex
	data        map[string]string
	rejectFirst int
	rejectAll   bool
	attempts    int
	gets        int
	getErr      error
}

func newMemCodeStore() *memCodeStore {
	return &memCodeStore{data: map[string]string{}}
}

func (m *memCodeStore) SetIfAbsent(_ context.Context, code, payload string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.rejectAll || m.attempts <= m.rejectFirst {
		return false, nil
	}
	if _, ok := m.data[code]; ok {
		return false, nil
	}
	m.data[code] = payload
	return true, nil
}

func (m *memCodeStore) Get(_ context.Context, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[code]
	if !ok {
		return "", core.ErrNotFound
	}
	return v, nil
}

type memDirectory struct {
	mu          sync.Mutex
	total       map[string]int64
	perCode     map[string]int64
	shorts      map[string]string
	totalErr    error
	shortErr    error
	setShortErr error
	block       chan struct{}
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		total:   map[string]int64{},
		perCode: map[string]int64{},
		shorts:  map[string]string{},
	}
}

func (d *memDirectory) IncrementTotalClicks(_ context.Context, userName string, delta int64) error {
	if d.block != nil {
		<-d.block
	}
	if d.totalErr != nil {
		return d.totalErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.total[userName] += delta
	return nil
}

func (d *memDirectory) IncrementShortClicks(_ context.Context, userName, code, period string, delta int64) error {
	if d.shortErr != nil {
		return d.shortErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.perCode[userName+"/"+code+"/"+period] += delta
	return nil
}

func (d *memDirectory) SetShort(_ context.Context, userName, code, longURL string) error {
	if d.block != nil {
		<-d.block
	}
	if d.setShortErr != nil {
		return d.setShortErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shorts[userName+"/"+code] = longURL
	return nil
}

func (d *memDirectory) totalFor(user string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total[user]
}

func (d *memDirectory) shortFor(user, code string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.shorts[user+"/"+code]
	return v, ok
}

type memClickLog struct {
	mu        sync.Mutex
	events    []core.ClickEvent
	appendErr error
}

func (l *memClickLog) AppendClick(_ context.Context, ev core.ClickEvent) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *memClickLog) FindClicksByUserName(_ context.Context, userName string) ([]core.ClickEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []core.ClickEvent{}
	for _, ev := range l.events {
		if ev.UserName == userName {
			out = append(out, ev)
		}
	}
	return out, nil
}

// seqGenerator hands out codes in order, then fails.
type seqGenerator struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (g *seqGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next >= len(g.codes) {
		return "", fmt.Errorf("sequence exhausted after %d codes", len(g.codes))
	}
	code := g.codes[g.next]
	g.next++
	return code, nil
}

type fixture struct {
	svc    *Service
	codes  *memCodeStore
	users  *memDirectory
	clicks *memClickLog
}

func newFixture(t *testing.T, maxRetries int) fixture {
	t.Helper()
	f := fixture{
		codes:  newMemCodeStore(),
		users:  newMemDirectory(),
		clicks: &memClickLog{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(logger, config.Shortener{
		MaxRetries:        maxRetries,
		BackgroundTimeout: time.Second,
	}, f.codes, f.users, f.clicks, prometheus.NewRegistry())
	require.NoError(t, err)
	f.svc = svc
	t.Cleanup(svc.Wait)
	return f
}
