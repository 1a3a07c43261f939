package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/awkns-projects/rom-gateway/internal/api"
	"github.com/awkns-projects/rom-gateway/internal/config"
	"github.com/awkns-projects/rom-gateway/internal/database"
	"github.com/awkns-projects/rom-gateway/internal/gateway"
	"github.com/awkns-projects/rom-gateway/internal/handlers"
	"github.com/awkns-projects/rom-gateway/internal/logging"
	"github.com/awkns-projects/rom-gateway/internal/middleware"
	"github.com/awkns-projects/rom-gateway/internal/ratelimit"
	"github.com/awkns-projects/rom-gateway/internal/repository"
	"github.com/awkns-projects/rom-gateway/internal/services"
	"github.com/awkns-projects/rom-gateway/internal/vault"
)

const version = "1.0.0"

// NOTE: At least one .sql file must exist in migrations/ for embedding to work.
// Make sure to build from the project root so the path is correct.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

func runMigrations(cfg *config.Config) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}
	fmt.Println("Migrations applied successfully.")
	return nil
}

func main() {
	// CLI flags
	configPath := pflag.StringP("config", "c", "config.yaml", "Path to config file")
	migrateFlag := pflag.BoolP("migrate", "m", false, "Run database migrations and exit")
	versionFlag := pflag.BoolP("version", "v", false, "Print version and exit")
	port := pflag.IntP("port", "p", 8080, "HTTP server listen port")
	logLevel := pflag.StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	masterToken := pflag.String("master-token", "", "Override master token from config")
	agentSecret := pflag.String("agent-token-secret", "", "Override agent token secret from config")

	pflag.Parse()

	if *versionFlag {
		fmt.Printf("rom-gateway version %s\n", version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if *migrateFlag {
		if err := runMigrations(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Override config with CLI flags if set
	if pflag.Lookup("port").Changed {
		cfg.Server.Port = *port
	}
	if pflag.Lookup("log-level").Changed {
		cfg.Logging.Level = *logLevel
	}
	if pflag.Lookup("master-token").Changed && *masterToken != "" {
		cfg.Auth.MasterToken = *masterToken
	}
	if pflag.Lookup("agent-token-secret").Changed && *agentSecret != "" {
		cfg.Auth.AgentTokenSecret = *agentSecret
	}

	// Initialize logger
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Missing auth secrets must be loud at startup, not discovered request
	// by request.
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize database connection
	db, err := database.Connect(cfg.Database.ToDBConfig())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize the credential vault; the key tier is resolved (and logged)
	// exactly once here.
	v, err := vault.New(cfg.Vault, logger)
	if err != nil {
		logger.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	// Rate limiter backend: per-instance memory by default, Redis when the
	// deployment runs multiple gateways.
	var limiter ratelimit.Limiter
	limiterBackend := "memory"
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit)
		limiterBackend = "redis"
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit)
	}

	// Initialize repositories
	credentialRepo := repository.NewCredentialRepository(db)
	oauthRepo := repository.NewOAuthConnectionRepository(db)

	// Initialize services
	agentTokens := services.NewAgentTokenService(cfg.Auth.AgentTokenSecret, cfg.Auth.RefreshGrace)
	sessions := services.NewSessionService(cfg.Auth.SessionSecret)
	credentials := vault.NewCredentialService(v, credentialRepo, logger)
	oauthService := services.NewOAuthService(oauthRepo, v, logger)

	// Initialize the gateway dispatcher
	dispatcher := gateway.NewDispatcher(cfg.Gateway, agentTokens, limiter, sessions, logger)

	// Initialize handlers
	h := api.Handlers{
		Status:     handlers.NewStatusHandler(version, limiterBackend, cfg.RateLimit.Limit, v.Tier()),
		Token:      handlers.NewTokenHandler(agentTokens),
		Credential: handlers.NewCredentialHandler(credentials),
		OAuth:      handlers.NewOAuthHandler(oauthService),
		Agent:      handlers.NewAgentHandler(oauthService, credentials),
	}

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(logger))

	api.SetupRoutes(router, h, middleware.Gateway(dispatcher), cfg.Auth.MasterToken)

	// Start HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Fatal("Server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("Starting server", zap.Int("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}
}
