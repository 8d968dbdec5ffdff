package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mavuno/sokoscope/internal/cache"
	"github.com/mavuno/sokoscope/internal/config"
	"github.com/mavuno/sokoscope/internal/history"
	"github.com/mavuno/sokoscope/internal/ingest"
	"github.com/mavuno/sokoscope/internal/market"
	"github.com/mavuno/sokoscope/internal/pricing"
	"github.com/mavuno/sokoscope/internal/reputation"
	"github.com/mavuno/sokoscope/internal/server"
	"github.com/mavuno/sokoscope/internal/success"
	"github.com/mavuno/sokoscope/internal/trend"
	"github.com/mavuno/sokoscope/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		println("failed to load configuration:", err.Error())
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	log.Info().Msg("starting sokoscope")

	store, err := history.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open history store")
	}
	defer store.Close()

	resultCache := newCache(cfg, log)

	trends := trend.NewCalculator(store, resultCache, log)
	engines := server.Config{
		Addr:       cfg.Addr,
		Log:        log,
		Trends:     trends,
		Pricing:    pricing.NewPredictor(trends, resultCache, log),
		Success:    success.NewEstimator(store, log),
		Reputation: reputation.NewEngine(store, log),
		Market:     market.NewSummarizer(trends, resultCache, log),
	}

	if len(cfg.BulletinSources) > 0 {
		sources := make([]ingest.Source, 0, len(cfg.BulletinSources))
		for _, s := range cfg.BulletinSources {
			sources = append(sources, ingest.Source{Name: s.Name, URL: s.URL, Region: s.Region})
		}

		sched, err := ingest.NewScheduler(ingest.NewIngester(store, log), sources, cfg.IngestCronSpec, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up ingest schedule")
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := server.New(engines)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Str("addr", cfg.Addr).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("sokoscope stopped")
}

// newCache picks the configured cache backend, falling back to memory
// when redis is unreachable.
func newCache(cfg *config.Config, log zerolog.Logger) cache.Store {
	if cfg.CacheBackend == "redis" {
		redis, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err == nil {
			log.Info().Str("addr", cfg.RedisAddr).Msg("using redis result cache")
			return redis
		}
		log.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
	}
	return cache.NewMemory()
}
