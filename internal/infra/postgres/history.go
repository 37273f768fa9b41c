// Package postgres stores analysis history in a Postgres table.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// HistoryRepository implements history.Repository on a pgx pool.
type HistoryRepository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// Open connects to databaseURL, applies pending migrations and returns a
// ready repository.
func Open(ctx context.Context, databaseURL string, log zerolog.Logger) (*HistoryRepository, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres.Open: database URL is required")
	}
	if err := Migrate(databaseURL, log); err != nil {
		return nil, fmt.Errorf("postgres.Open: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.Open: ping: %w", err)
	}
	return NewHistoryRepository(pool, log), nil
}

// NewHistoryRepository wraps an existing pool. The schema must already exist.
func NewHistoryRepository(pool *pgxpool.Pool, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{pool: pool, log: log}
}

// Close releases the pool.
func (r *HistoryRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// Migrate applies the embedded migrations to databaseURL.
func Migrate(databaseURL string, log zerolog.Logger) error {
	return withMigrator(databaseURL, log, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Debug().Msg("History schema up to date")
				return nil
			}
			return fmt.Errorf("Migrate: applying: %w", err)
		}
		log.Info().Msg("History schema migrated")
		return nil
	})
}

// Rollback reverts the most recent migration.
func Rollback(databaseURL string, log zerolog.Logger) error {
	return withMigrator(databaseURL, log, func(m *migrate.Migrate) error {
		if err := m.Steps(-1); err != nil {
			if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, os.ErrNotExist) {
				log.Info().Msg("Nothing to roll back")
				return nil
			}
			return fmt.Errorf("Rollback: %w", err)
		}
		log.Info().Msg("History schema rolled back one step")
		return nil
	})
}

// SchemaVersion reports the applied migration version. ok is false when no
// migration has run yet.
func SchemaVersion(databaseURL string, log zerolog.Logger) (version uint, dirty, ok bool, err error) {
	err = withMigrator(databaseURL, log, func(m *migrate.Migrate) error {
		v, d, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		if verr != nil {
			return fmt.Errorf("SchemaVersion: %w", verr)
		}
		version, dirty, ok = v, d, true
		return nil
	})
	return version, dirty, ok, err
}

func withMigrator(databaseURL string, log zerolog.Logger, fn func(*migrate.Migrate) error) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source_error", srcErr).AnErr("database_error", dbErr).Msg("Closing migrator")
		}
	}()
	return fn(m)
}

// migrateURL swaps the scheme for the one the pgx/v5 migrate driver registers.
func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

// Load returns every record, newest first.
func (r *HistoryRepository) Load(ctx context.Context) ([]domain.HistoryRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, record FROM analysis_history ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("HistoryRepository.Load: query: %w", err)
	}
	defer rows.Close()

	records := []domain.HistoryRecord{}
	for rows.Next() {
		var (
			id  int64
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("HistoryRepository.Load: scan: %w", err)
		}
		var rec domain.HistoryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			r.log.Debug().Err(err).Int64("id", id).Msg("Skipping undecodable history row")
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("HistoryRepository.Load: rows: %w", err)
	}
	return records, nil
}

// Append inserts one record. Re-appending an existing id is a no-op.
func (r *HistoryRepository) Append(ctx context.Context, rec domain.HistoryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("HistoryRepository.Append: encoding: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO analysis_history (id, recorded_at, filename, status, record)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Timestamp, rec.Filename, string(rec.Status), json.RawMessage(data),
	)
	if err != nil {
		return fmt.Errorf("HistoryRepository.Append: insert: %w", err)
	}
	return nil
}

// Clear deletes every row.
func (r *HistoryRepository) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM analysis_history`); err != nil {
		return fmt.Errorf("HistoryRepository.Clear: %w", err)
	}
	return nil
}
