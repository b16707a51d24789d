package router

import (
	"context"
	"net/http"
	"strings"

	"draftkeeper/internal/api/v1/handler"
	"draftkeeper/internal/cache"
	"draftkeeper/internal/config"
	"draftkeeper/internal/database"
	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/identity"
	"draftkeeper/internal/middleware"
	"draftkeeper/internal/pgmq"
	"draftkeeper/internal/repository"
	"draftkeeper/internal/secrets"
	"draftkeeper/internal/service"
	"draftkeeper/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires every dependency of the API and returns the root handler plus a
// cleanup function that releases connections.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// 1. Database
	db, err := database.Open(ctx, cfg, database.DriverPGX, logger)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { db.Close() })

	// 2. Stripe key, optionally from Secret Manager
	var accessor secrets.Accessor
	if cfg.StripeSecretName != "" {
		sm, closeSM, err := secrets.NewSecretManager(ctx, cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		accessor = sm
		closers = append(closers, func() { _ = closeSM() })
	}
	stripeKey, err := secrets.ResolveStripeKey(ctx, cfg, accessor)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// 3. File storage
	s3Client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	files := storage.NewFileStore(s3Client, cfg.S3Bucket, logger)

	// 4. Catalog cache. The API keeps serving from Postgres when Redis is down.
	var catalogCache service.CatalogCache
	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("redis_addr", cfg.RedisAddr).Msg("Redis unavailable, catalog cache disabled")
		_ = redisClient.Close()
	} else {
		catalogCache = cache.NewCatalogCache(redisClient, cfg.CatalogCacheTTL, logger)
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	// 5. Repositories, engine and services
	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepo(db)
	draftRepo := repository.NewDraftRepo(db)
	downloadRepo := repository.NewDownloadRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	queue := pgmq.New(db)

	engine := entitlement.NewEngine(userRepo, downloadRepo, entitlement.SystemClock{}, logger)
	provider := identity.NewGoTrueClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, logger)

	accountSvc := service.NewAccountService(provider, userRepo, engine, logger)
	subscriptionSvc := service.NewSubscriptionService(accountSvc, engine, logger)
	billingSvc := service.NewBillingService(service.BillingConfig{
		APIKey:        stripeKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.Currency,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
	}, accountSvc, userRepo, paymentRepo, engine, nil, logger)
	catalogSvc := service.NewCatalogService(draftRepo, catalogCache, files, entitlement.SystemClock{}, logger)
	downloadSvc := service.NewDownloadService(accountSvc, engine, draftRepo, downloadRepo, files, queue, cfg.DownloadQueueName, logger)

	// 6. Middleware
	authMw := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	adminMw := middleware.RequireAdmin(accountSvc, logger)
	planGate := middleware.RequirePlanSelection(accountSvc, logger)

	// 7. Routes
	apiV1Mux := http.NewServeMux()
	handler.NewAuthHandler(accountSvc, validate, logger).RegisterRoutes(apiV1Mux, authMw)
	handler.NewUserHandler(accountSvc, downloadSvc, validate, logger).RegisterRoutes(apiV1Mux, authMw)
	handler.NewSubscriptionHandler(subscriptionSvc, billingSvc, validate, logger).RegisterRoutes(apiV1Mux, authMw)
	handler.NewDraftHandler(catalogSvc, downloadSvc, logger).RegisterRoutes(apiV1Mux, authMw, planGate)
	handler.NewAdminHandler(catalogSvc, validate, logger).RegisterRoutes(apiV1Mux, authMw, adminMw)

	logger.Info().Msg("Router initialized")
	return Mount(apiV1Mux, logger), cleanup, nil
}

// Mount puts the v1 API under /v1 next to the health and metrics endpoints
// and applies CORS and access logging.
func Mount(apiV1 http.Handler, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Redirect /api/* to /v1/* for older clients
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/")
		http.Redirect(w, r, "/v1/"+rest, http.StatusMovedPermanently)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux))
}
