// Package repositories declares the storage contracts shared by the mongo,
// postgres and in-memory backends.
package repositories

import (
	"context"

	"github.com/yoockh/techfinder/internal/models"
)

// SnapshotHandler receives full collection snapshots in delivery order.
// OnError reports a subscription failure; the subscription stays open and
// resumes delivering once the source recovers.
type SnapshotHandler struct {
	OnSnapshot func(docs []models.Document)
	OnError    func(err error)
}

// ProfileSource is the live document source for profile collections.
type ProfileSource interface {
	// SubscribeCollection registers h for the collection. ctx only bounds the
	// registration; the subscription lives until unsubscribe is called.
	SubscribeCollection(ctx context.Context, category models.Category, h SnapshotHandler) (unsubscribe func(), err error)
	// GetDocument returns utils.ErrNotFound when the document is absent.
	GetDocument(ctx context.Context, category models.Category, id string) (models.Document, error)
	// UpdateDocument merges fields into an existing document. Dotted keys
	// address nested fields. Returns utils.ErrNotFound when absent.
	UpdateDocument(ctx context.Context, category models.Category, id string, fields map[string]any) error
}

// FavoriteRepository stores favorite pair records.
type FavoriteRepository interface {
	FindPair(ctx context.Context, techID, recruiterID string) ([]models.Favorite, error)
	// Create returns utils.ErrDuplicate when the pair already exists.
	Create(ctx context.Context, f *models.Favorite) error
	// Delete returns utils.ErrNotFound when no record has the id.
	Delete(ctx context.Context, id string) error
	ListByRecruiter(ctx context.Context, recruiterID string) ([]models.Favorite, error)
}
