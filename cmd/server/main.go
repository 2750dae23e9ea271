// Command server runs the recipe cache-sync API.
//
// @title                      Recipe Cache Sync API
// @version                    1.0
// @description                Cached admin reads, mutations with targeted invalidation, mounted views and mutation notifications.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/recipe-cache-sync/internal/bus"
	"github.com/tbourn/recipe-cache-sync/internal/config"
	"github.com/tbourn/recipe-cache-sync/internal/domain"
	httpapi "github.com/tbourn/recipe-cache-sync/internal/http"
	"github.com/tbourn/recipe-cache-sync/internal/observability"
	"github.com/tbourn/recipe-cache-sync/internal/querystore"
	"github.com/tbourn/recipe-cache-sync/internal/repo"
	"github.com/tbourn/recipe-cache-sync/internal/services"
	"github.com/tbourn/recipe-cache-sync/internal/sysutil"
	"github.com/tbourn/recipe-cache-sync/internal/upstream"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const pruneEvery = time.Hour

func main() {
	os.Exit(run())
}

// run starts the service and blocks until it is signalled to stop. Deferred
// teardown happens before the exit code reaches os.Exit.
func run() int {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return 1
	}
	instance := sysutil.InstanceID(cfg.Redis.InstanceID)
	lg := sysutil.ConfigureLogging(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, instance)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, observability.Build{Version: version, InstanceID: instance})
	if err != nil {
		lg.Error().Err(err).Msg("otel setup failed")
		return 1
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		lg.Error().Err(err).Str("path", cfg.DBPath).Msg("open database")
		return 1
	}
	if err := repo.AutoMigrate(db); err != nil {
		lg.Error().Err(err).Msg("migrate database")
		closeDB(db)
		return 1
	}

	client := upstream.New(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Token:   cfg.Upstream.Token,
		Timeout: cfg.Upstream.Timeout,
		Logger:  &lg,
	})

	store := querystore.New(querystore.WithStaleAfter(cfg.Cache.StaleAfter))
	for _, e := range []domain.EntityType{
		domain.EntityRecipeList, domain.EntityRecipeStats,
		domain.EntityMealPlanList, domain.EntityMealPlanStats,
	} {
		store.Register(e, client.Fetch)
	}

	peers, closeBus := openBus(ctx, cfg.Redis, instance)

	notes := &services.NotificationService{
		DB:             db,
		DefaultLimit:   cfg.NotificationLimit,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	cache := services.NewCacheService(services.CacheServiceConfig{
		Store:           store,
		Upstream:        client,
		Notifier:        notes,
		Bus:             peers,
		Log:             &lg,
		RefreshInterval: cfg.Cache.RefreshInterval,
	})
	defer stopAll(cache, closeBus, func() { closeDB(db) })

	if cfg.Cache.PeriodicRefresh {
		// Stopped by cache.Close.
		cache.StartPeriodicRefresh(cfg.Cache.RefreshInterval)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cache, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := cache.Listen(gctx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error().Err(err).Msg("peer invalidation listener stopped")
		}
		return nil
	})
	g.Go(func() error {
		pruneLoop(gctx, notes, cfg.NotificationTTL)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			lg.Warn().Err(err).Msg("http shutdown")
		}
		if err := shutdownOTel(sctx); err != nil {
			lg.Warn().Err(err).Msg("otel shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		lg.Error().Err(err).Msg("server stopped")
		return 1
	}
	return 0
}

// stopAll releases components in dependency order: the cache service and its
// refresh loops, then the bus, then the database they write to.
func stopAll(cache interface{ Close() }, closeBus, closeDB func()) {
	cache.Close()
	closeBus()
	closeDB()
}

// openBus connects the Redis invalidation bus, or returns a no-op bus when
// Redis is not configured or unreachable. A lone instance works without it.
func openBus(ctx context.Context, rc config.RedisConfig, instance string) (bus.Bus, func()) {
	if rc.Addr == "" {
		return bus.Nop{}, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", rc.Addr).Msg("redis unreachable; peer invalidation disabled")
		_ = client.Close()
		return bus.Nop{}, func() {}
	}
	lg := log.With().Str("component", "bus").Logger()
	b := bus.NewRedis(client, rc.Channel, instance, &lg)
	return b, func() {
		if err := b.Close(); err != nil {
			log.Warn().Err(err).Msg("close bus")
		}
	}
}

// pruneLoop drops notifications and idempotency records older than maxAge.
func pruneLoop(ctx context.Context, notes *services.NotificationService, maxAge time.Duration) {
	t := time.NewTicker(pruneEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, r, err := notes.Prune(ctx, maxAge)
			if err != nil {
				log.Warn().Err(err).Msg("prune failed")
				continue
			}
			log.Debug().Int64("notifications", n).Int64("idempotency_records", r).Msg("pruned")
		}
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
