/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave tracker server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env, then config (CONFIG_PATH file + LEAVE_* env)
  2. Build the zap logger (stdout, optional rotated file)
  3. Open the JSON document store
  4. Seed the admin account when it is missing
  5. Start the backup scheduler
  6. Configure HTTP router and start serving

ENVIRONMENT:
  CONFIG_PATH         optional YAML config file
  LEAVE_DATA_FILE     document path (default: data.json)
  LEAVE_HTTP_PORT     HTTP server port (default: 5000)
  LEAVE_LOG_LEVEL     debug|info|warn|error
  LEAVE_LOG_FILE      rotated log file, e.g. debug_log.txt
  LEAVE_ADMIN_PASSWORD password of the seeded admin
  LEAVE_AUTH_JWT_SECRET      token signing key (empty disables authorization)
  LEAVE_BACKUP_INTERVAL_MIN  minutes between backups (0 disables)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Flush the logger
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/jsondoc/jsondoc.go: Document store
  - config/config.go: Configuration keys
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/leave-tracker/api"
	"github.com/warp/leave-tracker/auth"
	"github.com/warp/leave-tracker/backup"
	"github.com/warp/leave-tracker/config"
	"github.com/warp/leave-tracker/logging"
	"github.com/warp/leave-tracker/store/jsondoc"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		// No logger yet.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, flush := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		flush()
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, err := jsondoc.Open(ctx, cfg.Data.File, jsondoc.WithLogger(log.Named("store")))
	if err != nil {
		return err
	}
	log.Info("document loaded", zap.String("path", store.Path()))

	if err := seedAdmin(ctx, store, cfg.Admin, log); err != nil {
		return err
	}

	var tokens *auth.Tokens
	if cfg.Auth.JWTSecret != "" {
		tokens = auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.TokenTTLMin)*time.Minute)
	} else {
		log.Warn("auth.jwt_secret is empty, API authorization disabled")
	}

	handler := api.NewHandler(store, log.Named("api"), tokens)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.CORS.Origins})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTP.IdleTimeoutSec) * time.Second,
	}

	sched := backup.NewScheduler(store, cfg.Backup.Dir, log.Named("backup"))
	sched.Interval = time.Duration(cfg.Backup.IntervalMin) * time.Minute
	sched.Keep = cfg.Backup.Keep

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("api", "http://localhost"+server.Addr+"/api"),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
