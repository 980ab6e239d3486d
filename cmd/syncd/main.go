package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vericred/internal/cache"
	"vericred/internal/chainclient"
	"vericred/internal/platform/config"
	"vericred/internal/platform/health"
	"vericred/internal/platform/logger"
	"vericred/internal/platform/metrics"
	platformredis "vericred/internal/platform/redis"
	"vericred/internal/ratelimit"
	"vericred/internal/ratelimit/store"
	"vericred/internal/syncengine"
	httptransport "vericred/internal/transport/http"
)

// main wires the sync daemon: chain client, credential cache, sync engine
// with its scheduler, the admission tiers, and the HTTP surface. Business
// logic lives in the internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		// Logger config may itself be broken; use a default logger here.
		logger.New("info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	log.Info("initializing vericred syncd",
		"addr", cfg.Addr,
		"chain_url", cfg.ChainBaseURL,
		"redis", cfg.RedisURL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	var credCache cache.Store = cache.NewMemory()
	var buckets ratelimit.Storage = store.NewMemory()
	if redisClient != nil {
		credCache = cache.NewRedis(redisClient.Client)
		buckets = store.NewRedis(redisClient.Client)
		defer redisClient.Close() //nolint:errcheck
	}

	chain, err := chainclient.New(chainclient.Config{
		BaseURL: cfg.ChainBaseURL,
		Timeout: cfg.ChainTimeout,
	}, chainclient.WithLogger(log))
	if err != nil {
		log.Error("chain client init failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	engine, err := syncengine.New(chain, credCache,
		syncengine.WithLogger(log),
		syncengine.WithMetrics(m),
	)
	if err != nil {
		log.Error("sync engine init failed", "error", err)
		os.Exit(1)
	}

	engine.StartAutoSync(cfg.Sync.Interval, syncengine.AutoSyncConfig{
		SyncOnStartup: cfg.Sync.OnStartup,
		WiFiOnly:      cfg.Sync.WiFiOnly,
		MaxRetries:    cfg.Sync.MaxRetries,
		RetryBackoff:  cfg.Sync.RetryBackoff,
	})
	defer engine.StopAutoSync()

	tiers, err := admissionTiers(cfg.RateLimit, buckets)
	if err != nil {
		log.Error("rate limiter init failed", "error", err)
		os.Exit(1)
	}
	defer tiers.Stop()

	probes := health.New()
	probes.RegisterCheck("chain", chain.Health)
	if redisClient != nil {
		probes.RegisterCheck("redis", redisClient.Health)
	}

	handler := httptransport.NewHandler(engine, credCache, log)
	router := httptransport.NewRouter(handler, probes, log, tiers, m)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("syncd stopped")
}

// admissionTiers builds the verification-path limiter stack: one shared
// global bucket, one per verifier, one per credential.
func admissionTiers(cfg config.RateLimitConfig, buckets ratelimit.Storage) (*ratelimit.MultiTier, error) {
	newLimiter := func(perMinute int) (*ratelimit.Limiter, error) {
		return ratelimit.New(ratelimit.Config{
			MaxRequests:     perMinute,
			Window:          time.Minute,
			BurstCapacity:   float64(perMinute) * cfg.BurstFactor,
			CleanupInterval: cfg.CleanupInterval,
		}, buckets)
	}

	global, err := newLimiter(cfg.GlobalPerMinute)
	if err != nil {
		return nil, err
	}
	verifier, err := newLimiter(cfg.VerifierPerMinute)
	if err != nil {
		return nil, err
	}
	credential, err := newLimiter(cfg.DIDPerMinute)
	if err != nil {
		return nil, err
	}

	return ratelimit.NewMultiTier(
		ratelimit.Tier{Name: "global", Limiter: global},
		ratelimit.Tier{Name: "verifier", Limiter: verifier},
		ratelimit.Tier{Name: "credential", Limiter: credential},
	)
}
