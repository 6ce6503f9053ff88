package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/profilestore"
	"github.com/yoockh/techfinder/internal/repositories"
	"github.com/yoockh/techfinder/internal/repositories/memory"
)

type published struct {
	channel string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{channel: channel, payload: payload})
	return p.err
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func seededSource() *memory.ProfileSource {
	src := memory.NewProfileSource()
	src.Put(models.CategoryContractor, "tech-a", map[string]any{
		"firebaseUID":   "uid-a",
		"firstName":     "Ana",
		"availability":  "Full Time",
		"qualification": "Developer",
		"skills":        []any{map[string]any{"skill": "Java"}, map[string]any{"skill": "Go"}},
		"location":      "Jakarta, JK, ID",
	})
	src.Put(models.CategoryContractor, "tech-b", map[string]any{
		"firebaseUID":  "uid-b",
		"firstName":    "Budi",
		"availability": "Other",
		"skills":       []any{map[string]any{"skill": "Rust"}},
	})
	src.Put(models.CategoryRecruiter, "rec-r", map[string]any{
		"firebaseUID": "uid-r",
		"firstName":   "Rina",
		"companyName": "Acme",
	})
	return src
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func newSessions(t *testing.T, src *memory.ProfileSource, log *logrus.Logger) SessionService {
	t.Helper()
	svc := NewSessionService(func() *profilestore.Store {
		return profilestore.New(src, nil, log)
	}, log)
	t.Cleanup(svc.Close)
	return svc
}

// asyncSource delivers snapshots from its own goroutine after a delay, the
// way a change stream backed source does.
type asyncSource struct {
	*memory.ProfileSource
	delay time.Duration
	mute  bool
}

func (s *asyncSource) SubscribeCollection(ctx context.Context, category models.Category, h repositories.SnapshotHandler) (func(), error) {
	var mu sync.Mutex
	wrapped := repositories.SnapshotHandler{
		OnSnapshot: func(docs []models.Document) {
			if s.mute {
				return
			}
			go func() {
				time.Sleep(s.delay)
				mu.Lock()
				defer mu.Unlock()
				h.OnSnapshot(docs)
			}()
		},
		OnError: h.OnError,
	}
	return s.ProfileSource.SubscribeCollection(ctx, category, wrapped)
}

func newAsyncSessions(t *testing.T, src *asyncSource, log *logrus.Logger, opts ...SessionOption) SessionService {
	t.Helper()
	svc := NewSessionService(func() *profilestore.Store {
		return profilestore.New(src, nil, log)
	}, log, opts...)
	t.Cleanup(svc.Close)
	return svc
}
