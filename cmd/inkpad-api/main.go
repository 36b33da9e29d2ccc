package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inkpadhq/inkpad/internal/auth"
	"github.com/inkpadhq/inkpad/internal/cache"
	"github.com/inkpadhq/inkpad/internal/config"
	"github.com/inkpadhq/inkpad/internal/database"
	"github.com/inkpadhq/inkpad/internal/logging"
	"github.com/inkpadhq/inkpad/internal/notes"
	"github.com/inkpadhq/inkpad/internal/server"
	"github.com/inkpadhq/inkpad/internal/tags"
	"github.com/inkpadhq/inkpad/internal/users"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "inkpad-api",
		Short: "Inkpad note-taking backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address")
	cmd.PersistentFlags().Int("redis-db", defaults.GetInt("redis.db"), "Redis database number")
	cmd.PersistentFlags().Int("redis-pool-size", defaults.GetInt("redis.pool_size"), "Redis connection pool size")
	cmd.PersistentFlags().String("cache-key-prefix", defaults.GetString("cache.key_prefix"), "Cache key namespace prefix")
	cmd.PersistentFlags().Int("note-ttl-seconds", defaults.GetInt("cache.note_ttl_seconds"), "Single-note cache TTL in seconds")
	cmd.PersistentFlags().Int("list-ttl-seconds", defaults.GetInt("cache.list_ttl_seconds"), "Note list cache TTL in seconds")
	cmd.PersistentFlags().Int("access-ttl-minutes", defaults.GetInt("auth.access_ttl_minutes"), "Access token TTL in minutes")
	cmd.PersistentFlags().Int("refresh-ttl-hours", defaults.GetInt("auth.refresh_ttl_hours"), "Refresh token TTL in hours")
	cmd.PersistentFlags().String("signing-secret", "", "JWT signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "redis.db", "redis-db")
	bindFlag(cmd, "redis.pool_size", "redis-pool-size")
	bindFlag(cmd, "cache.key_prefix", "cache-key-prefix")
	bindFlag(cmd, "cache.note_ttl_seconds", "note-ttl-seconds")
	bindFlag(cmd, "cache.list_ttl_seconds", "list-ttl-seconds")
	bindFlag(cmd, "auth.access_ttl_minutes", "access-ttl-minutes")
	bindFlag(cmd, "auth.refresh_ttl_hours", "refresh-ttl-hours")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	redisClient := cache.NewClient(ctx, cache.ClientConfig{
		Address:  appConfig.RedisAddress,
		Password: appConfig.RedisPassword,
		DB:       appConfig.RedisDB,
		PoolSize: appConfig.RedisPoolSize,
	}, logger)
	defer redisClient.Close()

	cacheStore, err := cache.NewStore(cache.StoreConfig{
		Client:    redisClient,
		KeyPrefix: appConfig.CacheKeyPrefix,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "inkpad-auth",
		Audience:      "inkpad-api",
		AccessTTL:     appConfig.AccessTokenTTL,
		RefreshTTL:    appConfig.RefreshTokenTTL,
	})

	userService, err := users.NewService(users.ServiceConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	noteRepository, err := notes.NewRepository(db)
	if err != nil {
		return err
	}
	noteService, err := notes.NewService(notes.ServiceConfig{
		Repository: noteRepository,
		Cache:      cacheStore,
		NoteTTL:    appConfig.NoteCacheTTL,
		ListTTL:    appConfig.ListCacheTTL,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	tagService, err := tags.NewService(db)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Users:  userService,
		Notes:  noteService,
		Tags:   tagService,
		Tokens: tokenManager,
		Cache:  cacheStore,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
