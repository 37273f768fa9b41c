package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/secondlook/secondlook/internal/api/handlers"
	"github.com/secondlook/secondlook/internal/api/middleware"
	"github.com/secondlook/secondlook/internal/assessment"
	"github.com/secondlook/secondlook/internal/config"
	"github.com/secondlook/secondlook/internal/logger"
	"github.com/secondlook/secondlook/internal/scoring"
)

func main() {
	cfg := config.Load()

	// Parse command-line flags
	var (
		port           = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		backend        = flag.String("backend", cfg.BackendURL, "Scoring backend base URL (or set SECONDLOOK_BACKEND_URL env)")
		historyBackend = flag.String("history", cfg.HistoryBackend, "History backend: file, memory, bigquery or postgres")
		historyDir     = flag.String("history-dir", cfg.HistoryDir, "Directory for the file history backend")
		bucket         = flag.String("bucket", cfg.GCSBucket, "GCS bucket for statement archival (or set GCS_BUCKET env)")
		logLevel       = flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
		backendTimeout = flag.Duration("backend-timeout", 0, "Timeout for scoring requests (0 = none)")
		corsOrigins    = flag.String("cors-origins", strings.Join(cfg.CORSOrigins, ","), "Comma-separated browser origins allowed to call the API (empty = any)")
	)
	flag.Parse()

	cfg.Port = *port
	cfg.BackendURL = *backend
	cfg.HistoryBackend = *historyBackend
	cfg.HistoryDir = *historyDir
	cfg.GCSBucket = *bucket
	cfg.LogLevel = *logLevel
	cfg.CORSOrigins = config.SplitList(*corsOrigins)

	// Initialize logger
	log := logger.NewWithLevel(cfg.LogLevel)

	ctx := context.Background()

	repo, closeHistory, err := config.OpenHistory(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history store")
	}
	defer closeHistory()

	var opts []assessment.Option
	archiver, closeArchiver, err := config.OpenArchiver(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create statement archiver")
	}
	defer closeArchiver()
	if archiver != nil {
		opts = append(opts, assessment.WithArchiver(archiver))
	} else {
		log.Info().Msg("No GCS bucket configured - statement archival disabled")
	}

	client := scoring.NewClient(cfg.BackendURL,
		scoring.WithHTTPClient(&http.Client{Timeout: *backendTimeout}),
		scoring.WithLogger(log),
	)
	ctrl := assessment.NewController(client, repo, log, opts...)

	// Create router
	mux := http.NewServeMux()
	handlers.Routes(mux,
		handlers.NewHealthHandler(client, log),
		handlers.NewAssessmentsHandler(ctrl, log),
		handlers.NewHistoryHandler(repo, log),
	)

	// Scoring can take a while; the write timeout has to cover it.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Chain(mux, log, cfg.CORSOrigins...),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("backend", client.BaseURL()).
			Str("history_backend", cfg.HistoryBackend).
			Msg("Starting local UI server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
