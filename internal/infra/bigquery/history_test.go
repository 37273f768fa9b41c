package bigquery

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRow_RoundTrip(t *testing.T) {
	d := domain.DecisionResult{
		Status:      domain.DecisionReviewNeeded,
		Score:       55,
		ReasonCodes: []string{"Irregular income"},
		Breakdown:   map[string]string{domain.BreakdownTransactionVolume: "40 total transactions"},
	}
	rec := domain.NewHistoryRecord(1706780400000, time.UnixMilli(1706780400000), "feb.csv", d, 40)
	rec.StatementURI = "gs://bucket/statements/2024/02/01/x-feb.csv"

	row, err := NewHistoryRow(rec)
	require.NoError(t, err)
	assert.Equal(t, int64(1706780400000), row.ID)
	assert.Equal(t, "2024-02-01T09:40:00.000Z", row.Timestamp)
	assert.Equal(t, "feb.csv", row.Filename)
	assert.Equal(t, "REVIEW_NEEDED", row.Status)
	assert.Contains(t, row.RecordJSON, `"statement_uri":"gs://bucket/statements/2024/02/01/x-feb.csv"`)

	back, err := row.Record()
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestHistoryRow_RecordCorrupt(t *testing.T) {
	row := &HistoryRow{ID: 7, RecordJSON: "{"}
	_, err := row.Record()
	assert.Error(t, err)
}

func TestTableRef(t *testing.T) {
	r := NewHistoryRepositoryWithClient(nil, "proj", "secondlook", zerolog.Nop())
	assert.Equal(t, "`proj.secondlook.analysis_history`", r.TableRef())
	assert.NoError(t, r.Close())
}
