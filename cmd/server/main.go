package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/ruralpay/corebank/docs"
	"github.com/ruralpay/corebank/internal/config"
	"github.com/ruralpay/corebank/internal/database"
	"github.com/ruralpay/corebank/internal/handlers"
	"github.com/ruralpay/corebank/internal/lease"
	"github.com/ruralpay/corebank/internal/logger"
	mW "github.com/ruralpay/corebank/internal/middleware"
	"github.com/ruralpay/corebank/internal/services"
	"github.com/ruralpay/corebank/internal/store"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"
)

// @title Core Banking Transfer Engine API
// @version 1.0
// @description Transfers, card charges and an append-only ledger over account balances
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	loadConfig()

	log := logger.New(viper.GetString("log.level"))

	cfg, err := config.LoadEngineConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid engine configuration")
	}
	log = log.Level(logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer closeStore()

	leases, closeLeases, err := openLeases(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize account leases")
	}
	defer closeLeases()

	docs.SwaggerInfo.Host = viper.GetString("swagger.host")

	clock := services.SystemClock{}
	audit := services.NewAuditLogger(log)
	timeouts := services.Timeouts{Lease: cfg.LeaseTimeout, Commit: cfg.CommitTimeout}

	ledger := services.NewLedgerLog(st)
	limiter := services.NewCardSpendingLimiter(st, cfg.DefaultTimezone, log)
	orchestrator := services.NewTransferOrchestrator(
		st, leases, ledger, services.NewBalanceGuard(), limiter, clock, audit, timeouts, log,
	)
	controls := services.NewAccountControls(st, leases, clock, audit, timeouts, log)

	r := newRouter(log,
		handlers.NewTransferHandler(orchestrator),
		handlers.NewLedgerHandler(ledger, orchestrator),
		handlers.NewControlsHandler(controls, limiter, clock),
	)

	server := &http.Server{
		Addr:         ":" + viper.GetString("port"),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).
			Str("store", cfg.StoreBackend).
			Str("leases", cfg.LeaseBackend).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

func loadConfig() {
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("port", "PORT")
	viper.BindEnv("swagger.host", "SWAGGER_HOST")
	config.BindEnv()

	viper.SetDefault("port", "8080")
	viper.SetDefault("swagger.host", "localhost:8080")

	// a missing .env is fine, the environment and defaults still apply
	_ = viper.ReadInConfig()
}

func openStore(ctx context.Context, cfg *config.EngineConfig, log zerolog.Logger) (store.Store, func(), error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		log.Warn().Msg("Using in-memory store, balances are lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}

	db, err := database.InitDB(ctx, log)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.NewPostgresStore(db, cfg.LeaseTimeout), func() { db.Close() }, nil
}

func openLeases(ctx context.Context, cfg *config.EngineConfig, log zerolog.Logger) (lease.Manager, func(), error) {
	var rdb *redis.Client
	if cfg.LeaseBackend == config.LeaseBackendRedis {
		rdb = database.InitRedis(ctx, log)
	}

	leases, err := selectLeases(cfg, rdb, log)
	if err != nil {
		return nil, nil, err
	}
	if rdb == nil {
		return leases, func() {}, nil
	}
	return leases, func() { rdb.Close() }, nil
}

// selectLeases picks the lease manager for cfg. rdb is nil when Redis was
// not configured or could not be reached.
func selectLeases(cfg *config.EngineConfig, rdb *redis.Client, log zerolog.Logger) (lease.Manager, error) {
	if cfg.LeaseBackend != config.LeaseBackendRedis {
		return lease.NewLocal(), nil
	}
	if rdb != nil {
		return lease.NewRedis(rdb, cfg.LeaseKeyPrefix, cfg.LeaseTTL, cfg.LeaseRetryInterval), nil
	}
	if !cfg.LeaseLocalFallback {
		return nil, errors.New("lease.backend is redis but Redis is unreachable; set lease.local_fallback to run single-instance with in-process leases")
	}
	log.Warn().Msg("Redis unreachable, falling back to in-process account leases")
	return lease.NewLocal(), nil
}

func newRouter(log zerolog.Logger, transfers *handlers.TransferHandler, ledger *handlers.LedgerHandler, controls *handlers.ControlsHandler) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.Logger(log))
	r.Use(mW.Recovery(log))
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		handlers.RegisterRoutes(r, transfers, ledger, controls)
	})

	return r
}
