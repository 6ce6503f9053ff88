package services

import (
	"context"
	"testing"
	"time"

	"github.com/yoockh/techfinder/internal/cache"
	"github.com/yoockh/techfinder/internal/matching"
	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/utils"
)

func TestAcquireReusesStore(t *testing.T) {
	src := seededSource()
	log, _ := newTestLogger()
	svc := newSessions(t, src, log)
	ctx := context.Background()

	a, err := svc.Acquire(ctx, "uid-r")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	b, err := svc.Acquire(ctx, "uid-r")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if a != b {
		t.Fatalf("second acquire created a new store")
	}
	if got := src.Subscribers(models.CategoryContractor); got != 1 {
		t.Fatalf("subscribers = %d, want 1", got)
	}

	info, err := svc.Get("uid-r")
	if err != nil || !info.Loaded || info.Revision == 0 {
		t.Fatalf("Get = %+v, %v", info, err)
	}

	if _, err := svc.Acquire(ctx, ""); !utils.IsCode(err, utils.CodeUnauthorized) {
		t.Fatalf("empty identity err = %v", err)
	}
}

func TestEndReleasesSubscriptions(t *testing.T) {
	src := seededSource()
	log, _ := newTestLogger()
	svc := newSessions(t, src, log)

	if _, err := svc.Acquire(context.Background(), "uid-r"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := svc.End("uid-r"); err != nil {
		t.Fatalf("End: %v", err)
	}
	for _, c := range models.Categories {
		if got := src.Subscribers(c); got != 0 {
			t.Fatalf("%s subscribers = %d after End", c, got)
		}
	}
	if err := svc.End("uid-r"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("second End err = %v", err)
	}
	if _, err := svc.Get("uid-r"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("Get after End err = %v", err)
	}
}

func TestSweepReleasesIdleSessions(t *testing.T) {
	src := seededSource()
	log, _ := newTestLogger()
	svc := newSessions(t, src, log)
	impl := svc.(*sessionService)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	impl.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "uid-a"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	now = now.Add(20 * time.Minute)
	if _, err := svc.Acquire(ctx, "uid-r"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	now = now.Add(5 * time.Minute)

	if n := svc.Sweep(15 * time.Minute); n != 1 {
		t.Fatalf("Sweep released %d, want 1", n)
	}
	if svc.Active() != 1 {
		t.Fatalf("active = %d, want 1", svc.Active())
	}
	if _, err := svc.Get("uid-r"); err != nil {
		t.Fatalf("recent session swept: %v", err)
	}
	if got := src.Subscribers(models.CategoryRecruiter); got != 1 {
		t.Fatalf("subscribers = %d, want 1", got)
	}
}

func TestAcquireWaitsForAsyncFirstLoad(t *testing.T) {
	src := &asyncSource{ProfileSource: seededSource(), delay: 20 * time.Millisecond}
	log, _ := newTestLogger()
	sessions := newAsyncSessions(t, src, log)
	ctx := context.Background()

	me, err := NewProfileService(sessions, nil, log).GetMe(ctx, "uid-a")
	if err != nil {
		t.Fatalf("GetMe right after login: %v", err)
	}
	if me.ID != "tech-a" {
		t.Fatalf("GetMe = %q, want tech-a", me.ID)
	}

	search := NewSearchService(sessions, cache.NewMemoryCache(), time.Hour, log)
	out, err := search.Search(ctx, "uid-r", matching.Spec{Skills: []string{"Go"}})
	if err != nil {
		t.Fatalf("Search right after login: %v", err)
	}
	if out.Count != 1 {
		t.Fatalf("first search count = %d, want 1", out.Count)
	}
}

func TestAcquireTimesOutWhenSourceNeverDelivers(t *testing.T) {
	src := &asyncSource{ProfileSource: seededSource(), mute: true}
	log, hook := newTestLogger()
	svc := newAsyncSessions(t, src, log, WithLoadTimeout(30*time.Millisecond))

	start := time.Now()
	_, err := svc.Acquire(context.Background(), "uid-r")
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("Acquire err = %v, want unavailable", err)
	}
	if waited := time.Since(start); waited > 2*time.Second {
		t.Fatalf("Acquire waited %v", waited)
	}
	if last := hook.LastEntry(); last == nil || last.Message != "profiles not loaded in time" {
		t.Fatalf("expected a load timeout warning, got %+v", last)
	}
	// the session stays registered and keeps loading
	if got := svc.Active(); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}
}
