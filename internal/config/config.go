package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix               = "INKPAD"
	defaultHTTPAddress      = "0.0.0.0:8080"
	defaultDatabasePath     = "inkpad.db"
	defaultLogLevel         = "info"
	defaultRedisAddress     = "127.0.0.1:6379"
	defaultRedisPoolSize    = 10
	defaultCacheKeyPrefix   = "note_api"
	defaultNoteTTLSeconds   = 600
	defaultListTTLSeconds   = 300
	defaultAccessTTLMinutes = 30
	defaultRefreshTTLHours  = 168
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress     string
	DatabasePath    string
	LogLevel        string
	RedisAddress    string
	RedisPassword   string
	RedisDB         int
	RedisPoolSize   int
	CacheKeyPrefix  string
	NoteCacheTTL    time.Duration
	ListCacheTTL    time.Duration
	SigningSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("redis.address", defaultRedisAddress)
	configViper.SetDefault("redis.password", "")
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("redis.pool_size", defaultRedisPoolSize)
	configViper.SetDefault("cache.key_prefix", defaultCacheKeyPrefix)
	configViper.SetDefault("cache.note_ttl_seconds", defaultNoteTTLSeconds)
	configViper.SetDefault("cache.list_ttl_seconds", defaultListTTLSeconds)
	configViper.SetDefault("auth.access_ttl_minutes", defaultAccessTTLMinutes)
	configViper.SetDefault("auth.refresh_ttl_hours", defaultRefreshTTLHours)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		DatabasePath:    configViper.GetString("database.path"),
		LogLevel:        configViper.GetString("log.level"),
		RedisAddress:    configViper.GetString("redis.address"),
		RedisPassword:   configViper.GetString("redis.password"),
		RedisDB:         configViper.GetInt("redis.db"),
		RedisPoolSize:   configViper.GetInt("redis.pool_size"),
		CacheKeyPrefix:  configViper.GetString("cache.key_prefix"),
		NoteCacheTTL:    time.Duration(configViper.GetInt("cache.note_ttl_seconds")) * time.Second,
		ListCacheTTL:    time.Duration(configViper.GetInt("cache.list_ttl_seconds")) * time.Second,
		SigningSecret:   configViper.GetString("auth.signing_secret"),
		AccessTokenTTL:  time.Duration(configViper.GetInt("auth.access_ttl_minutes")) * time.Minute,
		RefreshTokenTTL: time.Duration(configViper.GetInt("auth.refresh_ttl_hours")) * time.Hour,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.CacheKeyPrefix) == "" {
		return fmt.Errorf("cache.key_prefix is required")
	}
	if c.NoteCacheTTL <= 0 || c.ListCacheTTL <= 0 {
		return fmt.Errorf("cache ttl values must be positive")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("auth token ttl values must be positive")
	}
	if c.RedisPoolSize <= 0 {
		return fmt.Errorf("redis.pool_size must be positive")
	}
	return nil
}
