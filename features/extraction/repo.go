package extraction

import (
	"context"
	"database/sql"
	"errors"
)

type Repository interface {
	Enqueue(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, tenantID string) ([]Job, error)
	ClaimNext(ctx context.Context, leaseSeconds int) (*Job, error)
	ClaimByID(ctx context.Context, id string, leaseSeconds int) (*Job, error)
	MarkCompleted(ctx context.Context, id string, chunkCount int, stats RunStats) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	RequeueStale(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const jobColumns = `id, blob_id, tenant_id, status, COALESCE(error, ''), retry_count, extraction_version, chunk_count, COALESCE(model_version, ''), duration_ms, input_tokens, output_tokens, queued_at, started_at, completed_at, lease_expires_at`

func scanJob(row interface{ Scan(...interface{}) error }, j *Job) error {
	return row.Scan(
		&j.ID, &j.BlobID, &j.TenantID, &j.Status, &j.Error, &j.RetryCount,
		&j.ExtractionVersion, &j.ChunkCount, &j.ModelVersion, &j.DurationMS,
		&j.InputTokens, &j.OutputTokens,
		&j.QueuedAt, &j.StartedAt, &j.CompletedAt, &j.LeaseExpiresAt,
	)
}

func (r *PostgresRepo) Enqueue(ctx context.Context, job *Job) error {
	query := `
		INSERT INTO extraction_jobs (blob_id, tenant_id, status, extraction_version)
		VALUES ($1, $2, 'queued', $3)
		RETURNING id, status, queued_at
	`
	return r.db.QueryRowContext(ctx, query, job.BlobID, job.TenantID, job.ExtractionVersion).
		Scan(&job.ID, &job.Status, &job.QueuedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Job, error) {
	j := &Job{}
	query := `SELECT ` + jobColumns + ` FROM extraction_jobs WHERE id = $1`
	if err := scanJob(r.db.QueryRowContext(ctx, query, id), j); err != nil {
		return nil, err
	}
	return j, nil
}

func (r *PostgresRepo) List(ctx context.Context, tenantID string) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM extraction_jobs WHERE tenant_id = $1 ORDER BY queued_at DESC`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := scanJob(rows, &j); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ClaimNext atomically flips the oldest queued job to running and takes a
// lease on it. FOR UPDATE SKIP LOCKED keeps concurrent workers from blocking
// on (or double-claiming) the same row. Returns (nil, nil) when the queue is
// empty.
func (r *PostgresRepo) ClaimNext(ctx context.Context, leaseSeconds int) (*Job, error) {
	query := `
		UPDATE extraction_jobs
		SET status = 'running', started_at = NOW(), lease_expires_at = NOW() + $1 * INTERVAL '1 second'
		WHERE id = (
			SELECT id FROM extraction_jobs
			WHERE status = 'queued'
			ORDER BY queued_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	j := &Job{}
	err := scanJob(r.db.QueryRowContext(ctx, query, leaseSeconds), j)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// ClaimByID claims one specific job; it only succeeds while the job is still
// queued, so a job cannot be claimed twice.
func (r *PostgresRepo) ClaimByID(ctx context.Context, id string, leaseSeconds int) (*Job, error) {
	query := `
		UPDATE extraction_jobs
		SET status = 'running', started_at = NOW(), lease_expires_at = NOW() + $2 * INTERVAL '1 second'
		WHERE id = $1 AND status = 'queued'
		RETURNING ` + jobColumns

	j := &Job{}
	err := scanJob(r.db.QueryRowContext(ctx, query, id, leaseSeconds), j)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *PostgresRepo) MarkCompleted(ctx context.Context, id string, chunkCount int, stats RunStats) error {
	query := `
		UPDATE extraction_jobs
		SET status = 'completed', chunk_count = $2, model_version = NULLIF($3, ''),
		    duration_ms = $4, input_tokens = $5, output_tokens = $6,
		    completed_at = NOW(), lease_expires_at = NULL, error = NULL
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, chunkCount,
		stats.ModelVersion, stats.DurationMS, stats.InputTokens, stats.OutputTokens)
	return err
}

func (r *PostgresRepo) MarkFailed(ctx context.Context, id, errMsg string) error {
	query := `
		UPDATE extraction_jobs
		SET status = 'failed', error = $2, completed_at = NOW(), lease_expires_at = NULL
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, errMsg)
	return err
}

// RequeueStale returns running jobs whose lease has expired to the queue and
// bumps their retry count.
func (r *PostgresRepo) RequeueStale(ctx context.Context) (int, error) {
	query := `
		UPDATE extraction_jobs
		SET status = 'queued', retry_count = retry_count + 1, started_at = NULL, lease_expires_at = NULL
		WHERE status = 'running' AND lease_expires_at < NOW()
	`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extraction_jobs`).Scan(&count)
	return count, err
}

func (r *PostgresRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extraction_jobs WHERE status = $1`, status).Scan(&count)
	return count, err
}
