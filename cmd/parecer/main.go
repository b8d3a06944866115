package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/legisdoc/parecer/internal/api"
	"github.com/legisdoc/parecer/internal/config"
	"github.com/legisdoc/parecer/internal/extract"
	"github.com/legisdoc/parecer/internal/logging"
	"github.com/legisdoc/parecer/internal/mcp"
	"github.com/legisdoc/parecer/internal/opinion"
	"github.com/legisdoc/parecer/internal/pdf"
	"github.com/legisdoc/parecer/internal/security"
	"github.com/legisdoc/parecer/internal/storage"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 10 * time.Second

// app holds the wired components shared by both modes.
type app struct {
	store     *storage.Store
	extractor *extract.Extractor
	generator *opinion.Generator
	validator *pdf.Validator
	uploads   *security.PathValidator
	generated *security.PathValidator
}

func newApp(cfg *config.Config, db *sql.DB, log *zap.Logger) (*app, error) {
	uploads, err := security.NewPathValidator(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("upload directory: %w", err)
	}
	generated, err := security.NewPathValidator(cfg.GeneratedDir)
	if err != nil {
		return nil, fmt.Errorf("generated directory: %w", err)
	}

	store := storage.NewStore(db)
	return &app{
		store:     store,
		extractor: extract.New(pdf.NewReader(cfg.MaxFileSize), log.Named("extract")),
		generator: opinion.NewGenerator(store, cfg.TemplateDir, cfg.GeneratedDir, log.Named("opinion")),
		validator: pdf.NewValidator(cfg.MaxFileSize),
		uploads:   uploads,
		generated: generated,
	}, nil
}

func (a *app) router(log *zap.Logger) *gin.Engine {
	h := api.NewHandler(api.Deps{
		Store:     a.store,
		Extractor: a.extractor,
		Generator: a.generator,
		Validator: a.validator,
		Uploads:   a.uploads,
		Generated: a.generated,
		Log:       log,
	})
	return api.NewRouter(h, log)
}

func (a *app) mcpServer(cfg *config.Config, log *zap.Logger) (*mcp.Server, error) {
	return mcp.NewServer(cfg, mcp.Deps{
		Catalog:   a.store,
		Extractor: a.extractor,
		Generator: a.generator,
		Validator: a.validator,
		Uploads:   a.uploads,
		Log:       log,
	})
}

// run opens the database and executes the configured command
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Command == config.CommandInitDB {
		if err := storage.Bootstrap(ctx, db, cfg.DBDriver); err != nil {
			return fmt.Errorf("initialise database: %w", err)
		}
		log.Info("database initialised", zap.String("driver", cfg.DBDriver))
		return nil
	}

	if err := storage.Migrate(db, cfg.DBDriver); err != nil {
		return err
	}

	a, err := newApp(cfg, db, log)
	if err != nil {
		return err
	}

	if cfg.IsServerMode() {
		return runServerMode(ctx, cfg, a.router(log.Named("http")), log)
	}
	return runStdioMode(cfg, a, log)
}

// runServerMode serves the HTTP API until ctx is cancelled
func runServerMode(ctx context.Context, cfg *config.Config, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		serverErrCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("server stopped successfully")
		return nil
	case err := <-serverErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// runStdioMode serves MCP tools until the parent closes stdin
func runStdioMode(cfg *config.Config, a *app, log *zap.Logger) error {
	server, err := a.mcpServer(cfg, log.Named("mcp"))
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}
	return server.ServeStdio()
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.Version = version
	}

	log, err := logging.New(cfg.LogLevel, cfg.IsStdioMode())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if !cfg.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Debug("starting", zap.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("exiting", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Parecer\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
