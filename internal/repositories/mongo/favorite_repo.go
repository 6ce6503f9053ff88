package mongo

import (
	"context"
	"time"

	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/repositories"
	"github.com/yoockh/techfinder/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const FavoritesCollection = "favs"

type favoriteRepo struct {
	col *mongo.Collection
}

func NewFavoriteRepo(db *mongo.Database) repositories.FavoriteRepository {
	return &favoriteRepo{col: db.Collection(FavoritesCollection)}
}

func (r *favoriteRepo) FindPair(ctx context.Context, techID, recruiterID string) ([]models.Favorite, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"techId": techID, "recruiterId": recruiterID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Favorite
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *favoriteRepo) Create(ctx context.Context, f *models.Favorite) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, f)
	if mongo.IsDuplicateKeyError(err) {
		return utils.ErrDuplicate
	}
	return err
}

func (r *favoriteRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *favoriteRepo) ListByRecruiter(ctx context.Context, recruiterID string) ([]models.Favorite, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"recruiterId": recruiterID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Favorite
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
