package config

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureMongoIndexes(dbName string) error {
	db, err := MongoDatabase(dbName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// favs: one record per pair
	favs := db.Collection("favs")
	_, err = favs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "techId", Value: 1}, {Key: "recruiterId", Value: 1}},
			Options: options.Index().
				SetName("uniq_tech_recruiter").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "recruiterId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("by_recruiter_created"),
		},
	})
	if err != nil {
		return err
	}

	// profile lookups by owning identity
	for _, name := range []string{"techs", "recruiter"} {
		_, err = db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "firebaseUID", Value: 1}},
			Options: options.Index().SetName("by_firebase_uid"),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
