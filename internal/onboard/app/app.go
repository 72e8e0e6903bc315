package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/gatekeeper/internal/onboard/http"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/service"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store/drivers/postgres"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X ...BuildVersion=".
var BuildVersion = "v0.1.0"

// connectTimeout bounds the initial database connection.
const connectTimeout = 15 * time.Second

// Application encapsulates the onboarding service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db        store.Store
	codes     *cryptox.CodeHasher
	passwords *cryptox.CredentialHasher
	verifier  jwtx.Verifier

	// Services
	issuanceService   *service.IssuanceService
	redemptionService *service.RedemptionService
	credentialService *service.CredentialService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatekeeper",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initCrypto(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler exposes the configured router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Credentials returns the login and password reset service. It has no HTTP
// route; session handling lives with whatever embeds the application.
func (app *Application) Credentials() *service.CredentialService { return app.credentialService }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("gatekeeper starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"driver", app.cfg.DatabaseDriver,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatekeeper...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatekeeper stopped")
	return nil
}

// initCrypto builds the code hasher, password hasher and issuer verifier.
func (app *Application) initCrypto() error {
	pepper, err := app.cfg.Pepper()
	if err != nil {
		return err
	}
	app.codes, err = cryptox.NewCodeHasher(pepper)
	if err != nil {
		return err
	}

	app.passwords = cryptox.NewCredentialHasher(cryptox.DefaultArgon2Params)

	verifier, err := jwtx.NewHS256Verifier([]byte(app.cfg.IssuerSecret), app.cfg.Issuer)
	if err != nil {
		return &cryptox.ConfigurationError{Setting: "GATEKEEPER_ISSUER_SECRET", Reason: "unusable", Err: err}
	}
	app.verifier = verifier
	return nil
}

// initDatabase opens the configured store and applies migrations.
func (app *Application) initDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := openStore(ctx, app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.DatabaseDriver {
	case DriverPostgres:
		s, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSQLite:
		s, err := sqlite.NewStore(cfg.DatabaseFile)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.issuanceService = &service.IssuanceService{
		Store:      app.db,
		Codes:      app.codes,
		DefaultTTL: app.cfg.DefaultInviteTTL,
		MaxTTL:     service.MaxInviteTTL,
	}
	app.redemptionService = &service.RedemptionService{
		Store:     app.db,
		Codes:     app.codes,
		Passwords: app.passwords,
	}
	app.credentialService = &service.CredentialService{
		Store:     app.db,
		Passwords: app.passwords,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.verifier, BuildVersion, app.db, app.logger)

	// Wire services to router
	router.IssuanceService = app.issuanceService
	router.RedemptionService = app.redemptionService
	router.RedeemLimit = app.cfg.RedeemLimit
	router.IssuerLimit = app.cfg.IssuerLimit
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
