package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ytt/internal/platform/config"
	"ytt/internal/platform/logger"
	"ytt/internal/platform/metrics"
	"ytt/internal/transcript"
	"ytt/internal/youtube"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	defaultLangs := config.GetEnvList("DEFAULT_LANGUAGES", []string{"en"})
	cacheTTL := config.GetEnvDuration("CACHE_TTL", 15*time.Minute)
	pipelineTimeout := config.GetEnvDuration("PIPELINE_TIMEOUT", 30*time.Second)

	limiterRPS := config.GetEnvFloat("RATE_LIMIT_RPS", 2)
	limiterBurst := config.GetEnvInt("RATE_LIMIT_BURST", 4)
	limiterWait := config.GetEnvDuration("RATE_LIMIT_WAIT", 5*time.Second)
	maxAttempts := config.GetEnvInt("FETCH_MAX_ATTEMPTS", 3)
	backoffInitial := config.GetEnvDuration("FETCH_BACKOFF_INITIAL", 500*time.Millisecond)
	backoffMax := config.GetEnvDuration("FETCH_BACKOFF_MAX", 10*time.Second)
	attemptTimeout := config.GetEnvDuration("FETCH_ATTEMPT_TIMEOUT", 10*time.Second)

	log := logger.New(logLevel, logFormat)

	// The limiter is shared across all upstream calls; constructing it here
	// (rather than inside the client) keeps it injectable for tests.
	limiter := rate.NewLimiter(rate.Limit(limiterRPS), limiterBurst)

	upstream := youtube.NewClient(youtube.Config{
		Limiter:        limiter,
		MaxAttempts:    maxAttempts,
		BackoffInitial: backoffInitial,
		BackoffMax:     backoffMax,
		AttemptTimeout: attemptTimeout,
		LimiterWait:    limiterWait,
	}, log)

	cache := transcript.NewTranscriptCache(cacheTTL)
	met := metrics.New()

	langs := make([]transcript.LanguageCode, len(defaultLangs))
	for i, l := range defaultLangs {
		langs[i] = transcript.LanguageCode(l)
	}

	svc := transcript.NewService(upstream, upstream, cache, langs, pipelineTimeout, met)
	h := transcript.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetCacheEntries(cache.Len()) }).ServeHTTP(w, r)
	})
	r.Route("/videos/{video_id}", func(r chi.Router) {
		r.Get("/transcript", h.GetTranscript)
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"default_languages", defaultLangs,
		"cache_ttl", cacheTTL.String(),
		"rate_limit_rps", limiterRPS,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
