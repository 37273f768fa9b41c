package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/config"
	infraBQ "github.com/secondlook/secondlook/internal/infra/bigquery"
	"github.com/secondlook/secondlook/internal/infra/postgres"
	"github.com/secondlook/secondlook/internal/logger"
)

// Action is what the tool does to the history schema.
type Action string

const (
	ActionUp     Action = "up"
	ActionDown   Action = "down"
	ActionStatus Action = "status"
)

func main() {
	cfg := config.Load()

	backend := flag.String("backend", cfg.HistoryBackend, "History backend to migrate: postgres or bigquery")
	databaseURL := flag.String("database-url", cfg.DatabaseURL, "Postgres connection URL (or set DATABASE_URL env)")
	projectID := flag.String("project", cfg.BQProject, "GCP project ID for the bigquery backend")
	datasetID := flag.String("dataset", cfg.BQDataset, "BigQuery dataset ID")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.Parse()

	log := logger.NewWithLevel(*logLevel)

	cfg.HistoryBackend = *backend
	cfg.DatabaseURL = *databaseURL
	cfg.BQProject = *projectID
	cfg.BQDataset = *datasetID

	action, err := parseAction(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\nUsage: migrate [flags] [up|down|status]\n", err)
		os.Exit(2)
	}
	if err := checkTarget(cfg, action); err != nil {
		log.Fatal().Err(err).Msg("Invalid migration target")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log = log.With().Str("history_backend", cfg.HistoryBackend).Str("action", string(action)).Logger()

	switch cfg.HistoryBackend {
	case config.BackendPostgres:
		err = runPostgres(cfg, action, log)
	case config.BackendBigQuery:
		err = runBigQuery(ctx, cfg, log)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func parseAction(args []string) (Action, error) {
	if len(args) == 0 {
		return ActionUp, nil
	}
	if len(args) > 1 {
		return "", fmt.Errorf("expected at most one action, got %d", len(args))
	}
	switch a := Action(args[0]); a {
	case ActionUp, ActionDown, ActionStatus:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", args[0])
	}
}

// checkTarget rejects backends without a schema and actions the backend
// cannot perform.
func checkTarget(cfg config.Config, action Action) error {
	switch cfg.HistoryBackend {
	case config.BackendPostgres:
	case config.BackendBigQuery:
		if action != ActionUp {
			return fmt.Errorf("the bigquery backend only supports %q", ActionUp)
		}
	case config.BackendFile, config.BackendMemory:
		return fmt.Errorf("the %s backend has no schema to migrate", cfg.HistoryBackend)
	}
	return cfg.Validate()
}

func runPostgres(cfg config.Config, action Action, log zerolog.Logger) error {
	switch action {
	case ActionDown:
		return postgres.Rollback(cfg.DatabaseURL, log)
	case ActionStatus:
		version, dirty, ok, err := postgres.SchemaVersion(cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("No migrations applied.")
			return nil
		}
		fmt.Printf("Version %04d", version)
		if dirty {
			fmt.Print(" (dirty)")
		}
		fmt.Println()
		return nil
	default:
		return postgres.Migrate(cfg.DatabaseURL, log)
	}
}

func runBigQuery(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	repo, err := infraBQ.NewHistoryRepository(ctx, cfg.BQProject, cfg.BQDataset, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.EnsureTable(ctx); err != nil {
		return err
	}
	log.Info().Str("table", repo.TableRef()).Msg("History table ready")
	return nil
}
