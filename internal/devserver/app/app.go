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

	httpapi "github.com/aussiebroadwan/bizops/internal/devserver/http"
	"github.com/aussiebroadwan/bizops/internal/devserver/service"
	"github.com/aussiebroadwan/bizops/internal/devserver/store"
	"github.com/aussiebroadwan/bizops/internal/devserver/store/drivers/sqlite"
	"github.com/aussiebroadwan/bizops/pkg/idx"
	"github.com/aussiebroadwan/bizops/pkg/jwtx"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application is the reference backend with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	signer   *jwtx.EdDSASigner
	verifier jwtx.Verifier

	tokenService   *service.TokenService
	authService    *service.AuthService
	userService    *service.UserService
	companyService *service.CompanyService
	recordService  *service.RecordService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with every dependency initialized. Signing
// keys are generated per process, so restarts log everyone out.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "opsdev",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	signer, err := jwtx.GenerateEdDSA(idx.New().String())
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	app.signer = signer
	app.verifier = jwtx.NewVerifierEdDSA(signer, cfg.Issuer)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler exposes the routed handler, for tests that serve it themselves.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("opsdev starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down opsdev...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	return app.Close()
}

// Close releases the database without touching the HTTP server.
func (app *Application) Close() error {
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	app.logger.Info("opsdev stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Signer:     app.signer,
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}
	app.authService = &service.AuthService{
		Store:      app.db,
		Tokens:     app.tokenService,
		Outbox:     service.LogOutbox{Logger: app.logger},
		Issuer:     app.cfg.Issuer,
		CodePeriod: app.cfg.CodePeriod,
	}
	app.userService = &service.UserService{Store: app.db, Auth: app.authService}
	app.companyService = &service.CompanyService{Store: app.db}
	app.recordService = &service.RecordService{Store: app.db}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		app.verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Rate limits come from RATELIMIT_{AUTH,API}_* via httpx
	router.LegacyChallenge = app.cfg.LegacyChallenge
	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.CompanyService = app.companyService
	router.RecordService = app.recordService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
