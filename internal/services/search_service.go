package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/techfinder/internal/cache"
	"github.com/yoockh/techfinder/internal/matching"
	"github.com/yoockh/techfinder/internal/profilestore"
	"github.com/yoockh/techfinder/internal/utils"
)

const DefaultSearchTTL = 24 * time.Hour

type SearchOutcome struct {
	Spec     matching.Spec     `json:"spec"`
	Revision uint64            `json:"revision"`
	Count    int               `json:"count"`
	Results  []matching.Result `json:"results"`
	Steps    []matching.Step   `json:"steps"`
}

type SearchService interface {
	// Search matches the identity's mirrored contractors and remembers spec
	// as the identity's last search.
	Search(ctx context.Context, identityRef string, spec matching.Spec) (*SearchOutcome, error)
	// Evaluate matches a snapshot without side effects.
	Evaluate(snap *profilestore.Snapshot, spec matching.Spec) *SearchOutcome
	LastSearch(ctx context.Context, identityRef string) (*matching.Spec, error)
	ClearSearch(ctx context.Context, identityRef string) error
}

type searchService struct {
	sessions SessionService
	cache    cache.Cache
	ttl      time.Duration
	log      *logrus.Logger
}

func NewSearchService(sessions SessionService, c cache.Cache, ttl time.Duration, log *logrus.Logger) SearchService {
	if ttl <= 0 {
		ttl = DefaultSearchTTL
	}
	if log == nil {
		log = logrus.New()
	}
	return &searchService{sessions: sessions, cache: c, ttl: ttl, log: log}
}

func lastSearchKey(identityRef string) string {
	return "search:last:" + identityRef
}

func (s *searchService) Search(ctx context.Context, identityRef string, spec matching.Spec) (*SearchOutcome, error) {
	store, err := s.sessions.Acquire(ctx, identityRef)
	if err != nil {
		return nil, err
	}

	out := s.Evaluate(store.Snapshot(), spec)

	entry := s.log.WithField("identity", identityRef)
	for _, step := range out.Steps {
		entry.WithFields(logrus.Fields{
			"name":    step.Name,
			"initial": step.Initial,
			"dropped": step.Dropped,
			"left":    step.Left,
		}).Debug("match step")
	}
	entry.WithFields(logrus.Fields{
		"revision": out.Revision,
		"count":    out.Count,
		"skills":   len(out.Spec.Skills),
	}).Info("search")

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, lastSearchKey(identityRef), out.Spec, s.ttl); err != nil {
			entry.WithError(err).Warn("failed to remember search")
		}
	}
	return out, nil
}

func (s *searchService) Evaluate(snap *profilestore.Snapshot, spec matching.Spec) *SearchOutcome {
	spec = spec.Normalize()
	results, steps := matching.Run(snap.Contractors, spec)
	return &SearchOutcome{
		Spec:     spec,
		Revision: snap.Revision,
		Count:    len(results),
		Results:  results,
		Steps:    steps,
	}
}

func (s *searchService) LastSearch(ctx context.Context, identityRef string) (*matching.Spec, error) {
	const op = "SearchService.LastSearch"

	if identityRef == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "identity is required", nil)
	}
	if s.cache == nil {
		return nil, utils.E(utils.CodeNotFound, op, "no saved search", utils.ErrNotFound)
	}

	var spec matching.Spec
	hit, err := s.cache.GetJSON(ctx, lastSearchKey(identityRef), &spec)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to load saved search", err)
	}
	if !hit {
		return nil, utils.E(utils.CodeNotFound, op, "no saved search", utils.ErrNotFound)
	}
	return &spec, nil
}

func (s *searchService) ClearSearch(ctx context.Context, identityRef string) error {
	const op = "SearchService.ClearSearch"

	if identityRef == "" {
		return utils.E(utils.CodeUnauthorized, op, "identity is required", nil)
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Del(ctx, lastSearchKey(identityRef)); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to clear saved search", err)
	}
	return nil
}
