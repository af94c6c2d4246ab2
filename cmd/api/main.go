package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/hostaway"
	server "flex_reviews/internal/adapters/http_server"
	"flex_reviews/internal/adapters/memkv"
	"flex_reviews/internal/adapters/observability"
	redisad "flex_reviews/internal/adapters/redis"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/normalize"
	"flex_reviews/internal/shared"
	mysqlkv "flex_reviews/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listings, err := cfg.Listings()
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.ListingsFile).Msg("load listings failed")
	}
	normalizer := normalize.New(normalize.NewBucketResolver(listings))

	source, catalog := reviewSource(cfg, listings)
	kv, cache := stores(ctx, cfg)

	reviews := app.NewReviewService(source, normalizer, cache, cfg.CacheTTL)
	mod := app.NewModerationService(kv)
	q := app.NewQueryService(reviews, mod, catalog)
	c := app.NewCommandService(reviews, mod)

	// http
	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	srv := server.New(cfg.CORSOrigins)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, C: c})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("source", cfg.ReviewSource).
		Str("moderation_store", cfg.ModerationStore).
		Str("cache_store", cfg.CacheStore).
		Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

func reviewSource(cfg shared.Config, listings []domain.ListingRef) (domain.ReviewSource, domain.ListingCatalog) {
	if cfg.ReviewSource != shared.SourceHostaway {
		return hostaway.NewMockSource(0), hostaway.NewMockCatalog(listings)
	}
	client, err := hostaway.New(cfg.HostawayBase, cfg.HostawayAccountID, cfg.HostawayKey, cfg.HostawayRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Hostaway client")
	}
	return client, client
}

func stores(ctx context.Context, cfg shared.Config) (domain.KVStore, domain.Cache) {
	var rdb *redis.Client
	redisClient := func() *redis.Client {
		if rdb == nil {
			rdb = redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
			}
			log.Info().Msg("redis connection ok")
		}
		return rdb
	}

	var kv domain.KVStore
	switch cfg.ModerationStore {
	case shared.StoreRedis:
		kv = redisad.NewKV(redisClient(), "flex:")
	case shared.StoreMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		kv = mysqlkv.New(db)
	default:
		kv = memkv.NewStore()
	}

	var cache domain.Cache = memkv.NewCache()
	if cfg.CacheStore == shared.StoreRedis {
		cache = redisad.NewCache(redisClient())
	}
	return kv, cache
}
