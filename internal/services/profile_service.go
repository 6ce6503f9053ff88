package services

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/storage"
	"github.com/yoockh/techfinder/internal/utils"
)

// ProfileService serves profile reads and writes from the caller's live store.
type ProfileService interface {
	GetMe(ctx context.Context, identityRef string) (*models.Profile, error)
	GetByIdentity(ctx context.Context, identityRef, ref string) (*models.Profile, error)
	Contractors(ctx context.Context, identityRef string) ([]models.Profile, error)
	Contractor(ctx context.Context, identityRef, id string) (*models.Profile, error)
	Recruiters(ctx context.Context, identityRef string) ([]models.Profile, error)
	Update(ctx context.Context, identityRef string, patch models.ProfilePatch) (string, error)
	UploadPicture(ctx context.Context, identityRef, filename, contentType string, r io.Reader) (string, error)
}

type profileService struct {
	sessions SessionService
	uploader storage.Uploader
	log      *logrus.Logger
}

func NewProfileService(sessions SessionService, uploader storage.Uploader, log *logrus.Logger) ProfileService {
	if log == nil {
		log = logrus.New()
	}
	return &profileService{sessions: sessions, uploader: uploader, log: log}
}

func (s *profileService) GetMe(ctx context.Context, identityRef string) (*models.Profile, error) {
	const op = "ProfileService.GetMe"

	store, err := s.sessions.Acquire(ctx, identityRef)
	if err != nil {
		return nil, err
	}
	p, ok := store.MyProfile()
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "profile not found", utils.ErrNotFound)
	}
	return &p, nil
}

func (s *profileService) GetByIdentity(ctx context.Context, identityRef, ref string) (*models.Profile, error) {
	const op = "ProfileService.GetByIdentity"

	store, err := s.sessions.Acquire(ctx, identityRef)
	if err != nil {
		return nil, err
	}
	p, ok := store.ProfileByIdentity(ref)
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "profile not found", utils.ErrNotFound)
	}
	return &p, nil
}

func (s *profileService) Contractors(ctx context.Context, identityRef string) ([]models.Profile, error) {
	store, err := s.sessions.Acquire(ctx, identityRef)
	if err != nil {
		return nil, err
	}
	return store.Contractors(), nil
}

func (s *profileService) Contractor(ctx context.Context, identityRef, id string) (*models.Profile, error) {
	const op = "ProfileService.Contractor"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	store, err := s.sessions.Acquire(ctx, identityRef)
	if err != nil {
		return nil, err
	}
	p, ok := store.Contractor(id)
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "contractor not found", utils.ErrNotFound)
	}
	return &p, nil
}

func (s *profileService) Recruiters(ctx context.Context, identityRef string) ([]models.Profile, error) {
	store, err := s.sessions.Acquire(ctx, identityRef)
	if err != nil {
		return nil, err
	}
	return store.Recruiters(), nil
}

func (s *profileService) Update(ctx context.Context, identityRef string, patch models.ProfilePatch) (string, error) {
	store, err := s.sessions.Acquire(ctx, identityRef)
	if err != nil {
		return "", err
	}
	return store.UpdateProfile(ctx, patch)
}

func (s *profileService) UploadPicture(ctx context.Context, identityRef, filename, contentType string, r io.Reader) (string, error) {
	const op = "ProfileService.UploadPicture"

	if s.uploader == nil {
		return "", utils.E(utils.CodeUnavailable, op, "image storage is not configured", nil)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", utils.E(utils.CodeInvalidArgument, op, "file must be an image", nil)
	}

	store, err := s.sessions.Acquire(ctx, identityRef)
	if err != nil {
		return "", err
	}
	if _, ok := store.MyProfile(); !ok {
		return "", utils.E(utils.CodeNotFound, op, "profile not found", utils.ErrNotFound)
	}

	object := "profiles/" + identityRef + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	url, err := s.uploader.Upload(ctx, object, contentType, r)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"identity": identityRef,
			"object":   object,
		}).WithError(err).Error("profile picture upload failed")
		return "", utils.E(utils.CodeUnavailable, op, "failed to upload picture", err)
	}

	if _, err := store.UpdateProfile(ctx, models.ProfilePatch{ProfileImg: &url}); err != nil {
		return "", err
	}
	return url, nil
}
