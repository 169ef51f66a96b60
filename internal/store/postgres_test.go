package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Paxxs/moledao-spider/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBatchQueuesOneUpsertPerRecord(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []model.NormalizedRecord{
		{ID: "1", Company: "Acme", ContentParagraphs: []string{"a"}},
		{ID: "2", Company: "Globex"},
	}

	batch := buildBatch(records, at)
	require.Equal(t, 2, batch.Len())
	assert.Equal(t, upsertSQL, batch.QueuedQueries[0].SQL)
	assert.Equal(t, "1", batch.QueuedQueries[0].Arguments[0])
	assert.Equal(t, []string{}, batch.QueuedQueries[1].Arguments[8])
	assert.Equal(t, at, batch.QueuedQueries[1].Arguments[10])
}

func TestSaveRecordsEmptyIsNoop(t *testing.T) {
	p := &Postgres{}
	assert.NoError(t, p.SaveRecords(context.Background(), nil))
}

func TestPostgresRoundTrip(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := Connect(ctx, url, nil)
	require.NoError(t, err)
	defer p.Close()

	rec := model.NormalizedRecord{ID: "test-archive-1", Company: "Acme", Role: "Engineer", ContentParagraphs: []string{"x"}}
	require.NoError(t, p.SaveRecords(ctx, []model.NormalizedRecord{rec}))
	rec.Role = "Senior Engineer"
	require.NoError(t, p.SaveRecords(ctx, []model.NormalizedRecord{rec}))

	var role string
	require.NoError(t, p.pool.QueryRow(ctx, "SELECT role FROM job_postings WHERE id = $1", rec.ID).Scan(&role))
	assert.Equal(t, "Senior Engineer", role)

	_, err = p.pool.Exec(ctx, "DELETE FROM job_postings WHERE id = $1", rec.ID)
	require.NoError(t, err)
}
