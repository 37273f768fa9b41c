package bigquery

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/domain"
	"google.golang.org/api/iterator"
)

// HistoryTable is the table name inside the configured dataset.
const HistoryTable = "analysis_history"

// HistoryRow mirrors one row of analysis_history.
type HistoryRow struct {
	ID         int64  `bigquery:"id"`          // REQUIRED
	Timestamp  string `bigquery:"timestamp"`   // ISO, verbatim from the record
	Filename   string `bigquery:"filename"`    // NULLABLE
	Status     string `bigquery:"status"`      // NULLABLE
	RecordJSON string `bigquery:"record_json"` // full HistoryRecord as JSON
}

// NewHistoryRow flattens a record for insertion.
func NewHistoryRow(rec domain.HistoryRecord) (*HistoryRow, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("NewHistoryRow: encoding record: %w", err)
	}
	return &HistoryRow{
		ID:         rec.ID,
		Timestamp:  rec.Timestamp,
		Filename:   rec.Filename,
		Status:     string(rec.Status),
		RecordJSON: string(data),
	}, nil
}

// Record decodes the stored JSON back into a HistoryRecord.
func (r *HistoryRow) Record() (domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	if err := json.Unmarshal([]byte(r.RecordJSON), &rec); err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("HistoryRow.Record: decoding id %d: %w", r.ID, err)
	}
	return rec, nil
}

// HistoryRepository stores analysis history in BigQuery. It holds a shared
// client; call Close when done.
type HistoryRepository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	log       zerolog.Logger
}

// NewHistoryRepository creates a repository with its own BigQuery client.
func NewHistoryRepository(ctx context.Context, projectID, datasetID string, log zerolog.Logger) (*HistoryRepository, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewHistoryRepository: project ID is required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewHistoryRepository: creating client: %w", err)
	}
	return NewHistoryRepositoryWithClient(client, projectID, datasetID, log), nil
}

// NewHistoryRepositoryWithClient wraps an existing client.
func NewHistoryRepositoryWithClient(client *bigquery.Client, projectID, datasetID string, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		log:       log,
	}
}

// Close closes the BigQuery client connection.
func (r *HistoryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// TableRef is the fully qualified, backquoted table name.
func (r *HistoryRepository) TableRef() string {
	return tableRef(r.projectID, r.datasetID)
}

func tableRef(projectID, datasetID string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, HistoryTable)
}

// EnsureTable creates analysis_history if it doesn't exist.
func (r *HistoryRepository) EnsureTable(ctx context.Context) error {
	q := r.client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          INT64 NOT NULL,
			timestamp   STRING,
			filename    STRING,
			status      STRING,
			record_json STRING
		)
	`, r.TableRef()))
	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("EnsureTable: %w", err)
	}
	return nil
}

// Load returns every record, newest first. Rows whose JSON no longer decodes
// are skipped and logged at debug level.
func (r *HistoryRepository) Load(ctx context.Context) ([]domain.HistoryRecord, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT id, timestamp, filename, status, record_json
		FROM %s
		ORDER BY id DESC
	`, r.TableRef()))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("HistoryRepository.Load: reading query: %w", err)
	}

	records := []domain.HistoryRecord{}
	for {
		var row HistoryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("HistoryRepository.Load: iterating: %w", err)
		}
		rec, err := row.Record()
		if err != nil {
			r.log.Debug().Err(err).Int64("id", row.ID).Msg("Skipping undecodable history row")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Append inserts one record.
func (r *HistoryRepository) Append(ctx context.Context, rec domain.HistoryRecord) error {
	row, err := NewHistoryRow(rec)
	if err != nil {
		return fmt.Errorf("HistoryRepository.Append: %w", err)
	}

	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO %s (id, timestamp, filename, status, record_json)
		VALUES (@id, @timestamp, @filename, @status, @record_json)
	`, r.TableRef()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "timestamp", Value: row.Timestamp},
		{Name: "filename", Value: row.Filename},
		{Name: "status", Value: row.Status},
		{Name: "record_json", Value: row.RecordJSON},
	}

	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("HistoryRepository.Append: %w", err)
	}
	return nil
}

// Clear deletes every row.
func (r *HistoryRepository) Clear(ctx context.Context) error {
	q := r.client.Query(fmt.Sprintf(`DELETE FROM %s WHERE TRUE`, r.TableRef()))
	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("HistoryRepository.Clear: %w", err)
	}
	return nil
}

func runAndWait(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
