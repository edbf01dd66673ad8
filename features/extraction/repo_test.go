package extraction_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpora/apps/backend/features/extraction"
)

func jobRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "blob_id", "tenant_id", "status", "coalesce", "retry_count",
		"extraction_version", "chunk_count", "model_version", "duration_ms", "input_tokens", "output_tokens",
		"queued_at", "started_at", "completed_at", "lease_expires_at",
	})
}

func TestPostgresRepo_Enqueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := extraction.NewPostgresRepo(db)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO extraction_jobs").
		WithArgs("blob-1", "tenant-1", "gemini-v1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "queued_at"}).AddRow("job-1", "queued", now))

	job := &extraction.Job{BlobID: "blob-1", TenantID: "tenant-1", ExtractionVersion: "gemini-v1"}
	err = repo.Enqueue(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, extraction.StatusQueued, job.Status)
}

func TestPostgresRepo_ClaimNext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := extraction.NewPostgresRepo(db)

	t.Run("Claims Oldest Queued", func(t *testing.T) {
		now := time.Now()
		lease := now.Add(5 * time.Minute)
		rows := jobRows().AddRow(
			"job-1", "blob-1", "tenant-1", "running", "", 0,
			"gemini-v1", 0, "", 0, 0, 0, now, now, nil, lease,
		)

		mock.ExpectQuery("UPDATE extraction_jobs\\s+SET status = 'running'(.+)FOR UPDATE SKIP LOCKED").
			WithArgs(300).
			WillReturnRows(rows)

		job, err := repo.ClaimNext(context.Background(), 300)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, "job-1", job.ID)
		assert.Equal(t, extraction.StatusRunning, job.Status)
		assert.NotNil(t, job.LeaseExpiresAt)
	})

	t.Run("Empty Queue Is A NoOp", func(t *testing.T) {
		mock.ExpectQuery("UPDATE extraction_jobs").
			WithArgs(300).
			WillReturnRows(jobRows())

		job, err := repo.ClaimNext(context.Background(), 300)
		assert.NoError(t, err)
		assert.Nil(t, job)
	})
}

func TestPostgresRepo_ClaimByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := extraction.NewPostgresRepo(db)

	t.Run("Only Claims Queued", func(t *testing.T) {
		// Job already running: the guarded UPDATE matches no row.
		mock.ExpectQuery("UPDATE extraction_jobs(.+)WHERE id = \\$1 AND status = 'queued'").
			WithArgs("job-1", 300).
			WillReturnRows(jobRows())

		job, err := repo.ClaimByID(context.Background(), "job-1", 300)
		assert.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		lease := now.Add(5 * time.Minute)
		rows := jobRows().AddRow(
			"job-1", "blob-1", "tenant-1", "running", "", 1,
			"gemini-v1", 0, "", 0, 0, 0, now, now, nil, lease,
		)
		mock.ExpectQuery("UPDATE extraction_jobs").
			WithArgs("job-1", 300).
			WillReturnRows(rows)

		job, err := repo.ClaimByID(context.Background(), "job-1", 300)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, 1, job.RetryCount)
	})
}

func TestPostgresRepo_MarkCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := extraction.NewPostgresRepo(db)

	mock.ExpectExec("UPDATE extraction_jobs\\s+SET status = 'completed'").
		WithArgs("job-1", 15, "gemini-2.0-flash", int64(820), 120, 45).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.MarkCompleted(context.Background(), "job-1", 15, extraction.RunStats{
		ModelVersion: "gemini-2.0-flash",
		DurationMS:   820,
		InputTokens:  120,
		OutputTokens: 45,
	})
	assert.NoError(t, err)
}

func TestPostgresRepo_MarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := extraction.NewPostgresRepo(db)

	mock.ExpectExec("UPDATE extraction_jobs\\s+SET status = 'failed'").
		WithArgs("job-1", "File not found in blob store").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.MarkFailed(context.Background(), "job-1", "File not found in blob store")
	assert.NoError(t, err)
}

func TestPostgresRepo_RequeueStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := extraction.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'queued', retry_count = retry_count + 1")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.RequeueStale(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPostgresRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := extraction.NewPostgresRepo(db)

	now := time.Now()
	rows := jobRows().
		AddRow("j1", "b1", "tenant-1", "completed", "", 0, "gemini-v1", 3, "gemini-2.0-flash", 820, 120, 45, now, now, now, nil).
		AddRow("j2", "b2", "tenant-1", "failed", "extraction failed: boom", 2, "gemini-v1", 0, "", 0, 0, 0, now, now, now, nil)

	mock.ExpectQuery("SELECT (.+) FROM extraction_jobs WHERE tenant_id = \\$1").
		WithArgs("tenant-1").
		WillReturnRows(rows)

	jobs, err := repo.List(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, 3, jobs[0].ChunkCount)
	assert.Equal(t, "gemini-2.0-flash", jobs[0].ModelVersion)
	assert.Equal(t, 120, jobs[0].InputTokens)
	assert.Equal(t, "extraction failed: boom", jobs[1].Error)
}

func TestPostgresOutputRepo_SaveAndLatest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := extraction.NewPostgresOutputRepo(db)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO extraction_outputs").
		WithArgs("job-1", "blob-1", "chunk_jsonl", "artifacts/blob-1/job-1.jsonl", "hash", "1.0", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("out-1", now))

	out := &extraction.Output{
		JobID:         "job-1",
		BlobID:        "blob-1",
		ArtifactType:  "chunk_jsonl",
		ArtifactKey:   "artifacts/blob-1/job-1.jsonl",
		ArtifactHash:  "hash",
		SchemaVersion: "1.0",
		ChunkCount:    3,
	}
	require.NoError(t, repo.Save(context.Background(), out))
	assert.Equal(t, "out-1", out.ID)

	rows := sqlmock.NewRows([]string{
		"id", "job_id", "blob_id", "artifact_type", "artifact_key", "artifact_hash", "schema_version", "chunk_count", "created_at",
	}).AddRow("out-1", "job-1", "blob-1", "chunk_jsonl", "artifacts/blob-1/job-1.jsonl", "hash", "1.0", 3, now)

	mock.ExpectQuery("SELECT (.+) FROM extraction_outputs WHERE blob_id = \\$1 ORDER BY created_at DESC LIMIT 1").
		WithArgs("blob-1").
		WillReturnRows(rows)

	latest, err := repo.LatestCompleted(context.Background(), "blob-1")
	require.NoError(t, err)
	assert.Equal(t, "out-1", latest.ID)
}
