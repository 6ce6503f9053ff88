package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	FavoritesMongo    = "mongo"
	FavoritesPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Session   SessionConfig
	Search    SearchConfig
	Favorites FavoritesConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port string
	Mode string
	// AllowedOrigins are the browser origins accepted by the live search
	// socket. Empty means same-host only.
	AllowedOrigins []string
}

type MongoConfig struct {
	URI         string
	DB          string
	ForceTLS    bool
	InsecureTLS bool
}

type RedisConfig struct {
	Addr string
}

type PostgresConfig struct {
	URI string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

type StorageConfig struct {
	Bucket     string
	PublicRead bool
}

type SessionConfig struct {
	IdleTimeout time.Duration
	SweepSpec   string
	LoadTimeout time.Duration
}

type SearchConfig struct {
	CacheTTL time.Duration
}

type FavoritesConfig struct {
	Backend string
}

type LoggingConfig struct {
	Level string
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GIN_MODE", "release")
	viper.SetDefault("MONGO_DB", "techfinder")
	viper.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	viper.SetDefault("SESSION_SWEEP_SPEC", "@every 1m")
	viper.SetDefault("SESSION_LOAD_TIMEOUT", "10s")
	viper.SetDefault("SEARCH_CACHE_TTL", "24h")
	viper.SetDefault("FAVORITES_BACKEND", FavoritesMongo)
	viper.SetDefault("LOG_LEVEL", "info")
}

// Load reads configuration from the environment. Call godotenv.Load first to
// pick up a local .env file.
func Load() (*Config, error) {
	viper.AutomaticEnv()
	setDefaults()

	redisAddr := viper.GetString("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = viper.GetString("REDIS_URI")
	}
	if redisAddr == "" {
		redisAddr = viper.GetString("REDIS_URL")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("PORT"),
			Mode:           viper.GetString("GIN_MODE"),
			AllowedOrigins: splitList(viper.GetString("WS_ALLOWED_ORIGINS")),
		},
		Mongo: MongoConfig{
			URI:         viper.GetString("MONGO_URI"),
			DB:          viper.GetString("MONGO_DB"),
			ForceTLS:    viper.GetBool("MONGO_FORCE_TLS_CONFIG"),
			InsecureTLS: viper.GetBool("MONGO_INSECURE_TLS"),
		},
		Redis: RedisConfig{
			Addr: redisAddr,
		},
		Postgres: PostgresConfig{
			URI: viper.GetString("POSTGRES_URI"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("JWT_SECRET"),
			Issuer:    viper.GetString("JWT_ISSUER"),
			Audience:  viper.GetString("JWT_AUDIENCE"),
		},
		Storage: StorageConfig{
			Bucket:     viper.GetString("GCS_BUCKET"),
			PublicRead: viper.GetBool("GCS_PUBLIC_READ"),
		},
		Session: SessionConfig{
			IdleTimeout: viper.GetDuration("SESSION_IDLE_TIMEOUT"),
			SweepSpec:   viper.GetString("SESSION_SWEEP_SPEC"),
			LoadTimeout: viper.GetDuration("SESSION_LOAD_TIMEOUT"),
		},
		Search: SearchConfig{
			CacheTTL: viper.GetDuration("SEARCH_CACHE_TTL"),
		},
		Favorites: FavoritesConfig{
			Backend: viper.GetString("FAVORITES_BACKEND"),
		},
		Logging: LoggingConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList parses a comma separated env value, dropping blank items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.Mongo.DB == "" {
		return fmt.Errorf("MONGO_DB is required")
	}
	switch c.Favorites.Backend {
	case FavoritesMongo:
	case FavoritesPostgres:
		if c.Postgres.URI == "" {
			return fmt.Errorf("POSTGRES_URI is required when FAVORITES_BACKEND=%s", FavoritesPostgres)
		}
	default:
		return fmt.Errorf("FAVORITES_BACKEND must be %q or %q, got %q", FavoritesMongo, FavoritesPostgres, c.Favorites.Backend)
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive")
	}
	return nil
}

// Validate checks the settings the HTTP server needs on top of Config.Validate.
func (a *AuthConfig) Validate() error {
	if a.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(a.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	return nil
}

// GetAddr returns the listen address.
func (s *ServerConfig) GetAddr() string {
	return ":" + s.Port
}
