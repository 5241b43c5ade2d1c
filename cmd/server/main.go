package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "donation-gateway/internal/auth/handler"
	authservice "donation-gateway/internal/auth/service"
	authstore "donation-gateway/internal/auth/store"
	donationhandler "donation-gateway/internal/donation/handler"
	donationmetrics "donation-gateway/internal/donation/metrics"
	donationservice "donation-gateway/internal/donation/service"
	donationstore "donation-gateway/internal/donation/store"
	"donation-gateway/internal/events"
	"donation-gateway/internal/gateway"
	jwttoken "donation-gateway/internal/jwt_token"
	"donation-gateway/internal/notify"
	"donation-gateway/internal/platform/config"
	"donation-gateway/internal/platform/httpserver"
	"donation-gateway/internal/platform/logger"
	"donation-gateway/internal/platform/metrics"
	"donation-gateway/internal/platform/middleware"
	"donation-gateway/internal/platform/redis"
	"donation-gateway/internal/receipt"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	// Stores: PostgreSQL when configured, in-memory otherwise.
	var (
		donations donationstore.Store = donationstore.NewMemoryStore()
		users     authstore.Store     = authstore.NewMemoryStore()
	)
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		donations = donationstore.NewPostgres(pool)
		users = authstore.NewPostgres(pool)
		log.Info("using postgres store")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var gatewayClient gateway.Client
	if cfg.Gateway.Sandbox {
		log.Warn("gateway sandbox mode enabled, no real payments will happen")
		gatewayClient = gateway.NewSandbox(cfg.Gateway, log)
	} else {
		gatewayClient = gateway.NewHTTPClient(cfg.Gateway, log)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.Events.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafka(cfg.Events, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		publisher = kafkaPublisher
	}
	defer publisher.Close()

	var notifier notify.Notifier = notify.NewLog(log)
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTP(cfg.SMTP)
	}

	renderer, err := receipt.NewHTMLRenderer(cfg.Receipts.Dir, "Donation Gateway")
	if err != nil {
		log.Error("receipt renderer init failed", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "donation-gateway", 24*time.Hour)
	tokenValidator := jwttoken.NewJWTServiceAdapter(jwtService)

	httpMetrics := metrics.New()
	donMetrics := donationmetrics.New()

	authSvc := authservice.NewService(users, jwtService, log)
	donationSvc := donationservice.New(donations, gatewayClient, cfg.Gateway, publisher, donMetrics, log)
	dispatcher := donationservice.NewDispatcher(notifier, renderer, log)
	reconciler := donationservice.NewReconciler(donations, gatewayClient, dispatcher,
		publisher, donMetrics, log, redisClient, cfg.Gateway.PollGracePeriod)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RequestTime,
		middleware.Recovery(log),
		middleware.Logger(log),
		metrics.Latency(httpMetrics),
	)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Route("/api", func(api chi.Router) {
		authhandler.New(authSvc, log).Register(api)

		api.Group(func(donationRoutes chi.Router) {
			donationRoutes.Use(middleware.OptionalAuth(tokenValidator))
			donationhandler.New(donationSvc, reconciler, gatewayClient, renderer,
				donMetrics, log, cfg.Server.ThankYouURL).Register(donationRoutes)
		})
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("donation gateway listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
