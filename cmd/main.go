package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/openanchor/gw-anchor-dispatcher/internal/assets"
	"github.com/openanchor/gw-anchor-dispatcher/internal/handlers"
	"github.com/openanchor/gw-anchor-dispatcher/internal/horizon"
	jwtservice "github.com/openanchor/gw-anchor-dispatcher/internal/jwt"
	"github.com/openanchor/gw-anchor-dispatcher/internal/logger"
	"github.com/openanchor/gw-anchor-dispatcher/internal/middlewares"
	"github.com/openanchor/gw-anchor-dispatcher/internal/repositories"
	"github.com/openanchor/gw-anchor-dispatcher/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// config holds all application, database, Redis, Kafka, Horizon, logging,
// and JWT configuration.
type config struct {
	appHost  string
	appPort  string
	logLevel string

	pgHost         string
	pgPort         int
	pgUser         string
	pgPassword     string
	pgDB           string
	pgMaxOpenConns int
	pgMaxIdleConns int

	redisHost         string
	redisPort         int
	redisDB           int
	redisPassword     string
	assetCacheTTL     time.Duration

	kafkaBroker string
	kafkaTopic  string

	horizonURL string

	jwtSecrets map[jwtservice.Audience]string
	jwtExp     time.Duration
}

// parseConfig loads environment variables from a file and returns the full
// application configuration.
func parseConfig(path string) (*config, error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}

	cfg := &config{
		appHost:  getEnv("APP_HOST", "localhost"),
		appPort:  getEnv("APP_PORT", "8085"),
		logLevel: getEnv("APP_LOG_LEVEL", "info"),

		pgHost:     getEnv("POSTGRES_HOST", "localhost"),
		pgUser:     getEnv("POSTGRES_USER", "user"),
		pgPassword: getEnv("POSTGRES_PASSWORD", "password"),
		pgDB:       getEnv("POSTGRES_DB", "anchor"),

		redisHost:     getEnv("REDIS_HOST", "localhost"),
		redisPassword: getEnv("REDIS_PASSWORD", ""),

		kafkaBroker: getEnv("KAFKA_BROKER", "localhost:9092"),
		kafkaTopic:  getEnv("KAFKA_TOPIC", "transaction-status-changed"),

		horizonURL: getEnv("HORIZON_URL", "https://horizon-testnet.stellar.org"),

		jwtSecrets: map[jwtservice.Audience]string{
			jwtservice.AudienceSep10:            getEnv("SECRET_SEP10_JWT_SECRET", ""),
			jwtservice.AudienceSep24Interactive: getEnv("SECRET_SEP24_INTERACTIVE_URL_JWT_SECRET", ""),
			jwtservice.AudienceSep24MoreInfo:    getEnv("SECRET_SEP24_MORE_INFO_URL_JWT_SECRET", ""),
			jwtservice.AudienceCallback:         getEnv("SECRET_CALLBACK_API_AUTH_SECRET", ""),
			jwtservice.AudiencePlatform:         getEnv("SECRET_PLATFORM_API_AUTH_SECRET", "platform_secret"),
			jwtservice.AudienceCustody:          getEnv("SECRET_CUSTODY_SERVER_AUTH_SECRET", ""),
		},
	}

	var err error
	if cfg.pgPort, err = strconv.Atoi(getEnv("POSTGRES_PORT", "5432")); err != nil {
		return nil, err
	}
	if cfg.pgMaxOpenConns, err = strconv.Atoi(getEnv("POSTGRES_MAX_OPEN_CONNS", "16")); err != nil {
		return nil, err
	}
	if cfg.pgMaxIdleConns, err = strconv.Atoi(getEnv("POSTGRES_MAX_IDLE_CONNS", "8")); err != nil {
		return nil, err
	}
	if cfg.redisPort, err = strconv.Atoi(getEnv("REDIS_PORT", "6379")); err != nil {
		return nil, err
	}
	if cfg.redisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, err
	}

	assetCacheTTLSecond, err := strconv.Atoi(getEnv("ASSET_CACHE_TTL_SECOND", "300"))
	if err != nil {
		return nil, err
	}
	cfg.assetCacheTTL = time.Duration(assetCacheTTLSecond) * time.Second

	jwtExpSecond, err := strconv.Atoi(getEnv("JWT_EXP_SECOND", "300"))
	if err != nil {
		return nil, err
	}
	cfg.jwtExp = time.Duration(jwtExpSecond) * time.Second

	return cfg, nil
}

// run initializes the logger, database, Redis, Kafka, and HTTP server. It
// sets up routes, applies middleware, and handles graceful shutdown.
func run(ctx context.Context, cfg *config) error {
	if err := logger.Initialize(cfg.logLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Log.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.logLevel)

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.pgUser, cfg.pgPassword, cfg.pgHost, cfg.pgPort, cfg.pgDB)
	logger.Log.Infof("Connecting to PostgreSQL at %s:%d", cfg.pgHost, cfg.pgPort)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return fmt.Errorf("PostgreSQL connection error: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.pgMaxOpenConns)
	db.SetMaxIdleConns(cfg.pgMaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("PostgreSQL ping failed: %w", err)
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.redisHost, cfg.redisPort),
		Password: cfg.redisPassword,
		DB:       cfg.redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis connection error: %w", err)
	}
	defer rdb.Close()

	// Kafka writer for status change events
	kafkaWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.kafkaBroker),
		Topic:    cfg.kafkaTopic,
		Balancer: &kafka.LeastBytes{},
	}
	defer kafkaWriter.Close()

	// Initialize JWT service
	jwt := jwtservice.New(cfg.jwtSecrets, cfg.jwtExp)

	// Asset catalog with Redis read-through cache
	assetService := assets.NewCachedAssetService(
		assets.NewStaticAssetService(assets.DefaultAssets), rdb, cfg.assetCacheTTL)

	// Horizon oracle
	horizonClient := horizon.NewHTTPClient(cfg.horizonURL)

	// Initialize repositories
	txn24Store := repositories.NewSep24TransactionRepository(db, middlewares.GetTxFromContext)
	txn31Store := repositories.NewSep31TransactionRepository(db, middlewares.GetTxFromContext)
	facade := services.NewTransactionFacade(txn24Store, txn31Store)

	// Initialize services
	events := services.NewEventPublisher(kafkaWriter)
	dispatcher := services.NewDispatcher(
		services.NewNotifyOnchainFundsReceivedHandler(facade, assetService, horizonClient, events),
		services.NewNotifyRefundInitiatedHandler(facade, assetService, events),
		services.NewNotifyRefundSentHandler(facade, assetService, events),
		services.NewNotifyTransactionExpiredHandler(facade, events),
		services.NewNotifyTransactionErrorHandler(facade, events),
		services.NewNotifyAmountsUpdatedHandler(facade, assetService, events),
	)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware)

	r.Get("/health", handlers.NewHealthHandler(buildVersion, pinger(db.PingContext), pinger(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})))

	// RPC route guarded by platform JWT, wrapped in a database transaction
	r.Group(func(r chi.Router) {
		r.Use(middlewares.AuthMiddleware(jwt))
		r.Use(middlewares.TxMiddleware(db))
		r.Post("/", handlers.NewRPCHandler(dispatcher))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.appHost, cfg.appPort)),
	))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.appHost, cfg.appPort),
		Handler: r,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s:%s", cfg.appHost, cfg.appPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}

// pinger adapts a ping function to the handlers.Pinger interface.
type pinger func(ctx context.Context) error

func (p pinger) Ping(ctx context.Context) error {
	return p(ctx)
}
