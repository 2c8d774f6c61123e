package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/auth"
	authPostgres "github.com/frahmantamala/time2pay/internal/auth/postgres"
	"github.com/frahmantamala/time2pay/internal/claim"
	claimPostgres "github.com/frahmantamala/time2pay/internal/claim/postgres"
	"github.com/frahmantamala/time2pay/internal/core/events"
	"github.com/frahmantamala/time2pay/internal/document"
	"github.com/frahmantamala/time2pay/internal/employee"
	employeePostgres "github.com/frahmantamala/time2pay/internal/employee/postgres"
	"github.com/frahmantamala/time2pay/internal/invoice"
	invoicePostgres "github.com/frahmantamala/time2pay/internal/invoice/postgres"
	"github.com/frahmantamala/time2pay/internal/notification"
	"github.com/frahmantamala/time2pay/internal/report"
	reportPostgres "github.com/frahmantamala/time2pay/internal/report/postgres"
	"github.com/frahmantamala/time2pay/internal/transport/middleware"
	"github.com/frahmantamala/time2pay/internal/transport/rest"
	"github.com/frahmantamala/time2pay/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	GormDB     *gorm.DB
	Router     *chi.Mux
	EventBus   *events.EventBus
	Dispatcher *notification.Dispatcher
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		// in-flight event handlers may still be queueing mail
		if err := deps.EventBus.Wait(ctx); err != nil {
			deps.Logger.Warn("Event handlers still running at shutdown", "error", err)
		}
		if deps.Dispatcher != nil {
			deps.Dispatcher.Shutdown(ctx)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	ctx := context.Background()

	store, err := document.NewStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize document store: %w", err)
	}

	authRepo := authPostgres.NewRepository(deps.GormDB)
	employeeRepo := employeePostgres.NewEmployeeRepository(deps.GormDB)
	claimRepo := claimPostgres.NewClaimRepository(deps.GormDB)
	invoiceRepo := invoicePostgres.NewInvoiceRepository(deps.GormDB)
	reportRepo := reportPostgres.NewReportRepository(deps.DB)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)

	authService := auth.NewService(authRepo, tokens, deps.Logger)
	employeeService := employee.NewService(employeeRepo, cfg.Security.BCryptCost, deps.Logger)
	claimService := claim.NewService(claimRepo, store, deps.EventBus, cfg.Storage.UploadLimit(), deps.Logger)
	invoiceService := invoice.NewService(invoiceRepo, invoice.NewGenerator(), deps.Logger)
	reportService := report.NewService(reportRepo, deps.Logger)

	if deps.Dispatcher != nil {
		notification.NewEventHandler(employeeRepo, deps.Dispatcher, deps.Logger).RegisterEventHandlers(deps.EventBus)
	}

	var validator *middleware.OpenAPIValidator
	doc, err := middleware.LoadOpenAPIDocument(ctx, cfg.Server.OpenAPIPath)
	if err != nil {
		deps.Logger.Warn("OpenAPI document unavailable, request validation disabled", "path", cfg.Server.OpenAPIPath, "error", err)
	} else {
		validator, err = middleware.NewOpenAPIValidator(doc, rest.APIPrefix, deps.Logger)
		if err != nil {
			return fmt.Errorf("failed to build OpenAPI validator: %w", err)
		}
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, rest.Handlers{
		Auth:     auth.NewHandler(authService),
		Employee: employee.NewHandler(employeeService),
		Claim:    claim.NewHandler(claimService).WithUploadLimit(cfg.Storage.UploadLimit()),
		Invoice:  invoice.NewHandler(invoiceService),
		Report:   report.NewHandler(reportService),
	}, rest.RouterOptions{
		AllowedOrigins: cfg.Server.Origins(),
		OpenAPIPath:    cfg.Server.OpenAPIPath,
		Validator:      validator,
	}, deps.Logger)

	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	initLogger(config)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config:   config,
		Logger:   lg,
		DB:       db,
		GormDB:   gormDB,
		Router:   chi.NewRouter(),
		EventBus: events.NewEventBus(lg),
	}

	if config.Notification.Enabled {
		deps.Dispatcher = newDispatcher(config, lg)
	}

	return deps, nil
}

func newDispatcher(cfg *internal.Config, lg *slog.Logger) *notification.Dispatcher {
	return notification.NewDispatcher(
		notification.NewSMTPSender(cfg.Mail, lg),
		notification.DispatcherConfig{
			MaxWorkers:   cfg.Notification.MaxWorkers,
			JobQueueSize: cfg.Notification.JobQueueSize,
		},
		lg)
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool so both layers see the same connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}
