// Package app assembles the services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/techfinder/config"
	"github.com/yoockh/techfinder/internal/api/handlers"
	"github.com/yoockh/techfinder/internal/api/middleware"
	"github.com/yoockh/techfinder/internal/api/routes"
	"github.com/yoockh/techfinder/internal/cache"
	"github.com/yoockh/techfinder/internal/events"
	"github.com/yoockh/techfinder/internal/profilestore"
	"github.com/yoockh/techfinder/internal/repositories"
	mongorepo "github.com/yoockh/techfinder/internal/repositories/mongo"
	pgrepo "github.com/yoockh/techfinder/internal/repositories/postgres"
	"github.com/yoockh/techfinder/internal/services"
	"github.com/yoockh/techfinder/internal/storage"
	"go.mongodb.org/mongo-driver/mongo"
)

const cachePrefix = "techfinder:"

type App struct {
	Config *config.Config
	Log    *logrus.Logger

	Source    *mongorepo.ProfileSource
	Sessions  services.SessionService
	Profiles  services.ProfileService
	Search    services.SearchService
	Favorites services.FavoriteService

	closers []func(context.Context) error
}

// New connects to the configured stores and builds the services. Redis and
// the image bucket are optional.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	if err := config.InitMongo(cfg.Mongo); err != nil {
		return nil, fmt.Errorf("mongo: %w", err)
	}
	a.closers = append(a.closers, config.CloseMongo)
	log.WithField("db", cfg.Mongo.DB).Info("MongoDB connected")

	db, err := config.MongoDatabase(cfg.Mongo.DB)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Source = mongorepo.NewProfileSource(db, log)
	a.closers = append(a.closers, func(context.Context) error {
		a.Source.Close()
		return nil
	})

	favs, err := a.favoriteRepo(db)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	var (
		c        cache.Cache
		pub      events.Publisher
		notifier profilestore.Notifier
	)
	if cfg.Redis.Addr != "" {
		if err := config.InitRedis(cfg.Redis); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return config.RedisClient.Close() })
		log.Info("Redis connected")

		c = cache.NewRedisCache(config.RedisClient, cachePrefix)
		rp := events.NewRedisPublisher(config.RedisClient)
		pub = rp
		notifier = events.NewNotifier(rp)
	} else {
		log.Warn("REDIS_ADDR not set: last search is kept in memory and events are not published")
		c = cache.NewMemoryCache()
	}

	var uploader storage.Uploader
	if cfg.Storage.Bucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, cfg.Storage.Bucket, cfg.Storage.PublicRead)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("gcs: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return gcs.Close() })
		uploader = gcs
	}

	source := a.Source
	a.Sessions = services.NewSessionService(func() *profilestore.Store {
		return profilestore.New(source, notifier, log)
	}, log, services.WithLoadTimeout(cfg.Session.LoadTimeout))
	a.closers = append(a.closers, func(context.Context) error {
		a.Sessions.Close()
		return nil
	})

	a.Profiles = services.NewProfileService(a.Sessions, uploader, log)
	a.Search = services.NewSearchService(a.Sessions, c, cfg.Search.CacheTTL, log)
	a.Favorites = services.NewFavoriteService(source, a.Sessions, favs, pub, log)
	return a, nil
}

func (a *App) favoriteRepo(db *mongo.Database) (repositories.FavoriteRepository, error) {
	switch a.Config.Favorites.Backend {
	case config.FavoritesPostgres:
		if err := config.InitPostgres(a.Config.Postgres); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			sqlDB, err := config.PostgresDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		a.Log.Info("PostgreSQL connected")
		return pgrepo.NewFavoriteRepo(config.PostgresDB), nil
	default:
		return mongorepo.NewFavoriteRepo(db), nil
	}
}

// Router builds the gin engine with every route registered.
func (a *App) Router() *gin.Engine {
	return NewRouter(a.Log, a.Config.Server.Mode, routes.Deps{
		Auth: middleware.JWTOptions{
			Secret:   a.Config.Auth.JWTSecret,
			Issuer:   a.Config.Auth.Issuer,
			Audience: a.Config.Auth.Audience,
		},
		Session:  handlers.NewSessionHandler(a.Sessions),
		Profile:  handlers.NewProfileHandler(a.Profiles),
		Search:   handlers.NewSearchHandler(a.Search),
		Favorite: handlers.NewFavoriteHandler(a.Favorites),
		WS:       handlers.NewWSHandler(a.Sessions, a.Search, a.Config.Server.AllowedOrigins, a.Log),
	})
}

func NewRouter(log *logrus.Logger, mode string, d routes.Deps) *gin.Engine {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, d)
	return r
}

// Close releases everything New opened, newest first.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
