// Package profilestore keeps a live, in-memory mirror of the contractor and
// recruiter collections for one identity.
package profilestore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/repositories"
	"github.com/yoockh/techfinder/internal/utils"
)

// NoticeSaved is sent to the identity after a successful profile update.
const NoticeSaved = "The changes successfully saved"

// Notifier delivers user-visible notices.
type Notifier interface {
	Notify(ctx context.Context, identityRef, message string) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string) error { return nil }

// Snapshot is an immutable view of the store. Readers must not modify it.
type Snapshot struct {
	Revision          uint64
	Contractors       []models.Profile
	Recruiters        []models.Profile
	Me                *models.Profile
	ContractorsLoaded bool
	RecruitersLoaded  bool
}

// Loaded reports whether both collections have received a snapshot.
func (s *Snapshot) Loaded() bool {
	return s.ContractorsLoaded && s.RecruitersLoaded
}

type Store struct {
	source   repositories.ProfileSource
	notifier Notifier
	log      *logrus.Logger

	mu       sync.Mutex
	identity string
	gen      uint64
	unsubs   []func()
	changed  chan struct{}
	warned   map[string]bool

	snap atomic.Pointer[Snapshot]
}

func New(source repositories.ProfileSource, notifier Notifier, log *logrus.Logger) *Store {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if log == nil {
		log = logrus.New()
	}
	s := &Store{
		source:   source,
		notifier: notifier,
		log:      log,
		changed:  make(chan struct{}),
		warned:   map[string]bool{},
	}
	s.snap.Store(&Snapshot{})
	return s
}

// Subscribe opens one live subscription per collection for identityRef,
// releasing any earlier ones first. An empty identity releases everything
// and clears both collections.
func (s *Store) Subscribe(ctx context.Context, identityRef string) error {
	const op = "Store.Subscribe"

	s.mu.Lock()
	s.gen++
	gen := s.gen
	old := s.unsubs
	s.unsubs = nil
	s.identity = identityRef
	if identityRef == "" {
		s.publishLocked(&Snapshot{Revision: s.snap.Load().Revision + 1})
	} else {
		// my profile follows the new identity right away
		cur := s.snap.Load()
		next := *cur
		next.Revision++
		next.Me = s.resolveLocked(&next, identityRef)
		s.publishLocked(&next)
	}
	s.mu.Unlock()

	for _, unsub := range old {
		unsub()
	}
	if identityRef == "" {
		return nil
	}

	unsubs := make([]func(), 0, len(models.Categories))
	for _, category := range models.Categories {
		unsub, err := s.source.SubscribeCollection(ctx, category, s.handler(gen, category))
		if err != nil {
			for _, u := range unsubs {
				u()
			}
			s.log.WithFields(logrus.Fields{
				"identity":   identityRef,
				"collection": category,
			}).WithError(err).Error("profile subscription failed")
			return utils.E(utils.CodeUnavailable, op, "failed to subscribe to profiles", err)
		}
		unsubs = append(unsubs, unsub)
	}

	s.mu.Lock()
	if s.gen != gen {
		// superseded while subscribing
		s.mu.Unlock()
		for _, u := range unsubs {
			u()
		}
		return nil
	}
	s.unsubs = unsubs
	s.mu.Unlock()
	return nil
}

// Release tears down the subscriptions. Deliveries still in flight are
// ignored. Collected data stays readable.
func (s *Store) Release() {
	s.mu.Lock()
	s.gen++
	old := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, unsub := range old {
		unsub()
	}
}

func (s *Store) handler(gen uint64, category models.Category) repositories.SnapshotHandler {
	return repositories.SnapshotHandler{
		OnSnapshot: func(docs []models.Document) {
			s.apply(gen, category, docs)
		},
		OnError: func(err error) {
			s.mu.Lock()
			current := s.gen == gen
			identity := s.identity
			s.mu.Unlock()
			if !current {
				return
			}
			s.log.WithFields(logrus.Fields{
				"identity":   identity,
				"collection": category,
			}).WithError(err).Warn("profile sync failed, keeping last known data")
		},
	}
}

func (s *Store) apply(gen uint64, category models.Category, docs []models.Document) {
	profiles := make([]models.Profile, 0, len(docs))
	for _, doc := range docs {
		p, err := models.DecodeProfile(category, doc)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"collection": category,
				"doc_id":     doc.ID,
			}).WithError(err).Warn("skipping undecodable profile")
			continue
		}
		profiles = append(profiles, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}

	next := *s.snap.Load()
	next.Revision++
	switch category {
	case models.CategoryContractor:
		next.Contractors = profiles
		next.ContractorsLoaded = true
	case models.CategoryRecruiter:
		next.Recruiters = profiles
		next.RecruitersLoaded = true
	}
	next.Me = s.resolveLocked(&next, s.identity)
	s.publishLocked(&next)
}

func (s *Store) publishLocked(next *Snapshot) {
	s.snap.Store(next)
	close(s.changed)
	s.changed = make(chan struct{})
}

// resolveLocked finds the profile owned by ref, contractors first.
func (s *Store) resolveLocked(snap *Snapshot, ref string) *models.Profile {
	if ref == "" {
		return nil
	}
	contractor := find(snap.Contractors, ref)
	recruiter := find(snap.Recruiters, ref)
	if contractor != nil && recruiter != nil && !s.warned[ref] {
		s.warned[ref] = true
		s.log.WithFields(logrus.Fields{
			"identity":      ref,
			"contractor_id": contractor.ID,
			"recruiter_id":  recruiter.ID,
			"invariant":     "identity-single-category",
		}).Warn("identity owns profiles in both categories, using contractor")
	}
	if contractor != nil {
		return contractor
	}
	return recruiter
}

func find(profiles []models.Profile, ref string) *models.Profile {
	for i := range profiles {
		if profiles[i].IdentityRef == ref {
			p := profiles[i]
			return &p
		}
	}
	return nil
}

// Snapshot returns the current immutable snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Changed returns a channel closed on the next revision.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// WaitLoaded blocks until both collections have been delivered once.
func (s *Store) WaitLoaded(ctx context.Context) error {
	for {
		ch := s.Changed()
		if s.Snapshot().Loaded() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (s *Store) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Store) Contractors() []models.Profile {
	return cloneAll(s.snap.Load().Contractors)
}

func (s *Store) Recruiters() []models.Profile {
	return cloneAll(s.snap.Load().Recruiters)
}

// Contractor looks up a mirrored contractor by document id.
func (s *Store) Contractor(id string) (models.Profile, bool) {
	for _, p := range s.snap.Load().Contractors {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return models.Profile{}, false
}

func (s *Store) MyProfile() (models.Profile, bool) {
	me := s.snap.Load().Me
	if me == nil {
		return models.Profile{}, false
	}
	return me.Clone(), true
}

// ProfileByIdentity resolves a profile by owning identity. An empty ref
// returns the caller's own profile.
func (s *Store) ProfileByIdentity(ref string) (models.Profile, bool) {
	if ref == "" {
		return s.MyProfile()
	}
	s.mu.Lock()
	p := s.resolveLocked(s.snap.Load(), ref)
	s.mu.Unlock()
	if p == nil {
		return models.Profile{}, false
	}
	return p.Clone(), true
}

// UpdateProfile merges patch into the caller's own profile document and
// returns the confirmation notice.
func (s *Store) UpdateProfile(ctx context.Context, patch models.ProfilePatch) (string, error) {
	const op = "Store.UpdateProfile"

	me, ok := s.MyProfile()
	if !ok {
		return "", utils.E(utils.CodeNotFound, op, "profile not loaded", nil)
	}
	if err := patch.Validate(); err != nil {
		return "", utils.E(utils.CodeInvalidArgument, op, "invalid profile update", err)
	}
	fields, err := patch.Fields(me)
	if err != nil {
		return "", utils.E(utils.CodeInvalidArgument, op, err.Error(), err)
	}

	entry := s.log.WithFields(logrus.Fields{
		"identity":   me.IdentityRef,
		"collection": me.Category,
		"doc_id":     me.ID,
	})

	if _, err := s.source.GetDocument(ctx, me.Category, me.ID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			entry.Info("profile document vanished before update")
			return "", utils.E(utils.CodeNotFound, op, "profile no longer exists, refresh and retry", err)
		}
		entry.WithError(err).Error("profile lookup failed")
		return "", utils.E(utils.CodeUnavailable, op, "failed to load profile", err)
	}

	if err := s.source.UpdateDocument(ctx, me.Category, me.ID, fields); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			entry.Info("profile document vanished during update")
			return "", utils.E(utils.CodeNotFound, op, "profile no longer exists, refresh and retry", err)
		}
		entry.WithError(err).Error("profile update failed")
		return "", utils.E(utils.CodeUnavailable, op, "failed to save profile", err)
	}

	if err := s.notifier.Notify(ctx, me.IdentityRef, NoticeSaved); err != nil {
		entry.WithError(err).Warn("notice delivery failed")
	}
	entry.WithField("fields", len(fields)).Info("profile updated")
	return NoticeSaved, nil
}

func cloneAll(in []models.Profile) []models.Profile {
	out := make([]models.Profile, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
