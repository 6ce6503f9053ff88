package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/repositories"
	"github.com/yoockh/techfinder/internal/utils"
)

// FavoriteRepo keeps favorite records in insertion order and enforces the
// pair uniqueness the database indexes provide.
type FavoriteRepo struct {
	mu   sync.Mutex
	favs []models.Favorite
	err  error
}

var _ repositories.FavoriteRepository = (*FavoriteRepo)(nil)

func NewFavoriteRepo() *FavoriteRepo {
	return &FavoriteRepo{}
}

// Seed stores records without the uniqueness check, to reproduce data left
// behind by older clients.
func (r *FavoriteRepo) Seed(favs ...models.Favorite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.favs = append(r.favs, favs...)
}

// SetError makes every call fail with err until cleared with nil.
func (r *FavoriteRepo) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *FavoriteRepo) Count(techID, recruiterID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.favs {
		if f.TechID == techID && f.RecruiterID == recruiterID {
			n++
		}
	}
	return n
}

func (r *FavoriteRepo) FindPair(ctx context.Context, techID, recruiterID string) ([]models.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Favorite
	for _, f := range r.favs {
		if f.TechID == techID && f.RecruiterID == recruiterID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *FavoriteRepo) Create(ctx context.Context, f *models.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.favs {
		if existing.ID == f.ID || (existing.TechID == f.TechID && existing.RecruiterID == f.RecruiterID) {
			return utils.ErrDuplicate
		}
	}
	r.favs = append(r.favs, *f)
	return nil
}

func (r *FavoriteRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for i, f := range r.favs {
		if f.ID == id {
			r.favs = append(r.favs[:i], r.favs[i+1:]...)
			return nil
		}
	}
	return utils.ErrNotFound
}

func (r *FavoriteRepo) ListByRecruiter(ctx context.Context, recruiterID string) ([]models.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Favorite
	for _, f := range r.favs {
		if f.RecruiterID == recruiterID {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
