package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/techfinder/internal/events"
	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/repositories"
	"github.com/yoockh/techfinder/internal/utils"
)

type FavoriteService interface {
	// Toggle flips the favorite state of techID for the recruiter and returns
	// the new state. On any failure the returned state equals current.
	Toggle(ctx context.Context, recruiterRef, techID string, current bool) (bool, error)
	IsFavorite(ctx context.Context, recruiterRef, techID string) (bool, error)
	List(ctx context.Context, recruiterRef string) ([]models.Favorite, error)
}

// DocumentReader is the point-read part of the profile source.
type DocumentReader interface {
	GetDocument(ctx context.Context, category models.Category, id string) (models.Document, error)
}

// CategoryResolver reports which kind of profile an identity owns.
type CategoryResolver interface {
	CategoryOf(ctx context.Context, identityRef string) (models.Category, error)
}

type FavoriteToggled struct {
	Type        string    `json:"type"`
	TechID      string    `json:"techId"`
	RecruiterID string    `json:"recruiterId"`
	Favorited   bool      `json:"favorited"`
	At          time.Time `json:"at"`
}

type favoriteService struct {
	docs   DocumentReader
	roles  CategoryResolver
	favs   repositories.FavoriteRepository
	events events.Publisher
	log    *logrus.Logger
	now    func() time.Time
}

// NewFavoriteService builds the favorites service. When roles is nil the
// caller's category is not checked.
func NewFavoriteService(docs DocumentReader, roles CategoryResolver, favs repositories.FavoriteRepository, pub events.Publisher, log *logrus.Logger) FavoriteService {
	if log == nil {
		log = logrus.New()
	}
	return &favoriteService{
		docs:   docs,
		roles:  roles,
		favs:   favs,
		events: pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *favoriteService) Toggle(ctx context.Context, recruiterRef, techID string, current bool) (bool, error) {
	const op = "FavoriteService.Toggle"

	if recruiterRef == "" || techID == "" {
		return current, utils.E(utils.CodeInvalidArgument, op, "recruiter and techId are required", nil)
	}

	entry := s.log.WithFields(logrus.Fields{
		"recruiter": recruiterRef,
		"tech_id":   techID,
	})

	if s.roles != nil {
		category, err := s.roles.CategoryOf(ctx, recruiterRef)
		switch {
		case utils.IsCode(err, utils.CodeNotFound):
			entry.Info("favorite toggle by an identity without a profile")
			return current, utils.E(utils.CodeForbidden, op, "only recruiters can keep favorites", err)
		case err != nil:
			entry.WithError(err).Warn("favorite toggle failed: caller lookup")
			return current, utils.E(utils.CodeUnavailable, op, "failed to load caller profile", err)
		case category != models.CategoryRecruiter:
			entry.WithField("category", category).Info("favorite toggle by a non-recruiter")
			return current, utils.E(utils.CodeForbidden, op, "only recruiters can keep favorites", nil)
		}
	}

	if _, err := s.docs.GetDocument(ctx, models.CategoryContractor, techID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			entry.Info("favorite toggle on a missing contractor")
			return current, utils.E(utils.CodeNotFound, op, "contractor not found", err)
		}
		entry.WithError(err).Warn("favorite toggle failed: contractor lookup")
		return current, utils.E(utils.CodeUnavailable, op, "failed to load contractor", err)
	}

	existing, err := s.favs.FindPair(ctx, techID, recruiterRef)
	if err != nil {
		entry.WithError(err).Warn("favorite toggle failed: lookup")
		return current, utils.E(utils.CodeUnavailable, op, "failed to load favorites", err)
	}

	var next bool
	if len(existing) == 0 {
		fav := &models.Favorite{
			ID:          uuid.NewString(),
			TechID:      techID,
			RecruiterID: recruiterRef,
			CreatedAt:   s.now(),
		}
		err := s.favs.Create(ctx, fav)
		switch {
		case errors.Is(err, utils.ErrDuplicate):
			// a concurrent toggle created the pair first
			entry.Info("favorite already exists")
			return true, nil
		case err != nil:
			entry.WithError(err).Warn("favorite toggle failed: create")
			return current, utils.E(utils.CodeUnavailable, op, "failed to save favorite", err)
		}
		next = true
	} else {
		if len(existing) > 1 {
			entry.WithFields(logrus.Fields{
				"records":   len(existing),
				"invariant": "favorite-pair-unique",
			}).Warn("multiple favorite records for one pair, removing the first")
		}
		err := s.favs.Delete(ctx, existing[0].ID)
		switch {
		case errors.Is(err, utils.ErrNotFound):
			// a concurrent toggle removed it first
			entry.Info("favorite already removed")
		case err != nil:
			entry.WithError(err).Warn("favorite toggle failed: delete")
			return current, utils.E(utils.CodeUnavailable, op, "failed to remove favorite", err)
		}
		next = false
	}

	if s.events != nil {
		evt := FavoriteToggled{
			Type:        events.EventFavoriteToggled,
			TechID:      techID,
			RecruiterID: recruiterRef,
			Favorited:   next,
			At:          s.now(),
		}
		if err := s.events.Publish(ctx, events.EventFavoriteToggled, evt); err != nil {
			entry.WithError(err).Warn("publish " + events.EventFavoriteToggled + " failed")
		}
	}

	entry.WithField("favorited", next).Info("favorite toggled")
	return next, nil
}

func (s *favoriteService) IsFavorite(ctx context.Context, recruiterRef, techID string) (bool, error) {
	const op = "FavoriteService.IsFavorite"

	if recruiterRef == "" || techID == "" {
		return false, utils.E(utils.CodeInvalidArgument, op, "recruiter and techId are required", nil)
	}
	existing, err := s.favs.FindPair(ctx, techID, recruiterRef)
	if err != nil {
		return false, utils.E(utils.CodeUnavailable, op, "failed to load favorites", err)
	}
	return len(existing) > 0, nil
}

func (s *favoriteService) List(ctx context.Context, recruiterRef string) ([]models.Favorite, error) {
	const op = "FavoriteService.List"

	if recruiterRef == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recruiter is required", nil)
	}
	out, err := s.favs.ListByRecruiter(ctx, recruiterRef)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to list favorites", err)
	}
	if out == nil {
		out = []models.Favorite{}
	}
	return out, nil
}
