package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/profilestore"
	"github.com/yoockh/techfinder/internal/utils"
)

// SessionService owns one profile store per signed-in identity.
type SessionService interface {
	Acquire(ctx context.Context, identityRef string) (*profilestore.Store, error)
	CategoryOf(ctx context.Context, identityRef string) (models.Category, error)
	Get(identityRef string) (*models.Session, error)
	End(identityRef string) error
	Sweep(maxIdle time.Duration) int
	Active() int
	Close()
}

type StoreFactory func() *profilestore.Store

// DefaultLoadTimeout bounds how long Acquire waits for the first snapshot of
// both collections.
const DefaultLoadTimeout = 10 * time.Second

type SessionOption func(*sessionService)

// WithLoadTimeout overrides DefaultLoadTimeout. Non-positive values are ignored.
func WithLoadTimeout(d time.Duration) SessionOption {
	return func(s *sessionService) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

type liveSession struct {
	store *profilestore.Store
	info  models.Session
}

type sessionService struct {
	newStore    StoreFactory
	log         *logrus.Logger
	now         func() time.Time
	loadTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*liveSession
}

func NewSessionService(newStore StoreFactory, log *logrus.Logger, opts ...SessionOption) SessionService {
	if log == nil {
		log = logrus.New()
	}
	s := &sessionService{
		newStore:    newStore,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
		loadTimeout: DefaultLoadTimeout,
		sessions:    map[string]*liveSession{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire returns the identity's store, subscribing a new one on first use.
// It blocks until both collections have delivered once, so callers never
// read an empty mirror.
func (s *sessionService) Acquire(ctx context.Context, identityRef string) (*profilestore.Store, error) {
	const op = "SessionService.Acquire"

	if identityRef == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "identity is required", nil)
	}

	store, err := s.acquire(ctx, identityRef)
	if err != nil {
		return nil, err
	}
	if store.Snapshot().Loaded() {
		return store, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()
	if err := store.WaitLoaded(waitCtx); err != nil {
		s.log.WithFields(logrus.Fields{
			"identity": identityRef,
			"timeout":  s.loadTimeout,
		}).WithError(err).Warn("profiles not loaded in time")
		return nil, utils.E(utils.CodeUnavailable, op, "profiles are still loading", err)
	}
	return store, nil
}

func (s *sessionService) acquire(ctx context.Context, identityRef string) (*profilestore.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if ls, ok := s.sessions[identityRef]; ok {
		ls.info.LastSeen = now
		return ls.store, nil
	}

	store := s.newStore()
	if err := store.Subscribe(ctx, identityRef); err != nil {
		return nil, err
	}
	s.sessions[identityRef] = &liveSession{
		store: store,
		info:  models.Session{IdentityRef: identityRef, StartedAt: now, LastSeen: now},
	}
	s.log.WithField("identity", identityRef).Info("session started")
	return store, nil
}

// CategoryOf reports which collection holds the identity's own profile.
func (s *sessionService) CategoryOf(ctx context.Context, identityRef string) (models.Category, error) {
	const op = "SessionService.CategoryOf"

	store, err := s.Acquire(ctx, identityRef)
	if err != nil {
		return "", err
	}
	me, ok := store.MyProfile()
	if !ok {
		return "", utils.E(utils.CodeNotFound, op, "profile not found", utils.ErrNotFound)
	}
	return me.Category, nil
}

func (s *sessionService) Get(identityRef string) (*models.Session, error) {
	const op = "SessionService.Get"

	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[identityRef]
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "session not found", utils.ErrNotFound)
	}
	info := ls.info
	snap := ls.store.Snapshot()
	info.Revision = snap.Revision
	info.Loaded = snap.Loaded()
	return &info, nil
}

// End releases the identity's store, as on logout.
func (s *sessionService) End(identityRef string) error {
	const op = "SessionService.End"

	s.mu.Lock()
	ls, ok := s.sessions[identityRef]
	delete(s.sessions, identityRef)
	s.mu.Unlock()

	if !ok {
		return utils.E(utils.CodeNotFound, op, "session not found", utils.ErrNotFound)
	}
	ls.store.Release()
	s.log.WithField("identity", identityRef).Info("session ended")
	return nil
}

// Sweep releases sessions idle for longer than maxIdle and returns how many.
func (s *sessionService) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var idle []*liveSession
	for id, ls := range s.sessions {
		if ls.info.LastSeen.Before(cutoff) {
			idle = append(idle, ls)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, ls := range idle {
		ls.store.Release()
		s.log.WithFields(logrus.Fields{
			"identity":  ls.info.IdentityRef,
			"last_seen": ls.info.LastSeen,
		}).Info("idle session released")
	}
	return len(idle)
}

func (s *sessionService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *sessionService) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = map[string]*liveSession{}
	s.mu.Unlock()

	for _, ls := range all {
		ls.store.Release()
	}
}
