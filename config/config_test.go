package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "MONGO_DB", "REDIS_ADDR", "REDIS_URI", "FAVORITES_BACKEND", "SESSION_IDLE_TIMEOUT", "SESSION_LOAD_TIMEOUT", "SEARCH_CACHE_TTL", "WS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.GetAddr() != ":8080" {
		t.Fatalf("addr = %q", cfg.Server.GetAddr())
	}
	if cfg.Mongo.DB != "techfinder" {
		t.Fatalf("mongo db = %q", cfg.Mongo.DB)
	}
	if cfg.Redis.Addr != "redis://localhost:6379/0" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr)
	}
	if cfg.Session.IdleTimeout != 30*time.Minute || cfg.Session.SweepSpec != "@every 1m" {
		t.Fatalf("session = %+v", cfg.Session)
	}
	if cfg.Search.CacheTTL != 24*time.Hour {
		t.Fatalf("search ttl = %v", cfg.Search.CacheTTL)
	}
	if cfg.Favorites.Backend != FavoritesMongo {
		t.Fatalf("favorites backend = %q", cfg.Favorites.Backend)
	}
	if cfg.Session.LoadTimeout != 10*time.Second {
		t.Fatalf("load timeout = %v", cfg.Session.LoadTimeout)
	}
	if len(cfg.Server.AllowedOrigins) != 0 {
		t.Fatalf("allowed origins = %q, want none", cfg.Server.AllowedOrigins)
	}
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("WS_ALLOWED_ORIGINS", " https://app.example.com, ,https://admin.example.com ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := strings.Join(cfg.Server.AllowedOrigins, "|"); got != "https://app.example.com|https://admin.example.com" {
		t.Fatalf("allowed origins = %q", got)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Mongo:     MongoConfig{URI: "mongodb://x", DB: "techfinder"},
			Favorites: FavoritesConfig{Backend: FavoritesMongo},
			Session:   SessionConfig{IdleTimeout: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "missing mongo", mutate: func(c *Config) { c.Mongo.URI = "" }, wantErr: "MONGO_URI"},
		{name: "postgres without uri", mutate: func(c *Config) { c.Favorites.Backend = FavoritesPostgres }, wantErr: "POSTGRES_URI"},
		{name: "postgres with uri", mutate: func(c *Config) {
			c.Favorites.Backend = FavoritesPostgres
			c.Postgres.URI = "postgres://x"
		}},
		{name: "unknown backend", mutate: func(c *Config) { c.Favorites.Backend = "sqlite" }, wantErr: "FAVORITES_BACKEND"},
		{name: "idle timeout", mutate: func(c *Config) { c.Session.IdleTimeout = 0 }, wantErr: "SESSION_IDLE_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestAuthValidate(t *testing.T) {
	if err := (&AuthConfig{}).Validate(); err == nil {
		t.Fatalf("empty secret accepted")
	}
	if err := (&AuthConfig{JWTSecret: "short"}).Validate(); err == nil {
		t.Fatalf("short secret accepted")
	}
	if err := (&AuthConfig{JWTSecret: strings.Repeat("k", 32)}).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
