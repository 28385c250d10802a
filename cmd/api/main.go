package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/hostaway"
	server "flex_reviews/internal/adapters/http_server"
	"flex_reviews/internal/adapters/observability"
	redisad "flex_reviews/internal/adapters/redis"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "api")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// deps
	store, err := shared.OpenApprovalStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("approval store unavailable")
	}

	var src domain.ReviewSource
	if cfg.HostawayToken != "" {
		client, err := hostaway.New(cfg.HostawayBase, cfg.HostawayToken, cfg.HostawayRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Hostaway client")
		}
		src = client
	}

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		cache = redisad.NewCache(redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB))
	}

	reviews := app.NewReviewService(src, hostaway.Fallback, cache, cfg.CacheTTL)

	// http
	srv := server.New(cfg.RequestTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Reviews:   reviews,
		Dashboard: app.NewDashboardService(reviews, store),
		Public:    app.NewPublicService(reviews, store),
		Approvals: app.NewApprovalService(store),
		EdgeTTL:   cfg.CacheTTL,
	})

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("approvals", cfg.ApprovalStore).
		Bool("live_reviews", src != nil).
		Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutCtx)
	}()

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
