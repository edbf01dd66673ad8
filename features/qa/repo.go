package qa

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository interface {
	CreateJob(ctx context.Context, job *GenerationJob) error
	GetJob(ctx context.Context, id string) (*GenerationJob, error)
	LatestJobForBlob(ctx context.Context, blobID string) (*GenerationJob, error)
	UpdateJobProgress(ctx context.Context, id string, processed, generated int, errMsg string) error
	CompleteJob(ctx context.Context, id string, processed, generated int, errMsg string) error

	SavePairs(ctx context.Context, pairs []Pair) error
	GetPair(ctx context.Context, id string) (*Pair, error)
	ListPairs(ctx context.Context, blobID, status string) ([]Pair, error)
	SetPairStatus(ctx context.Context, id, status, reviewerID string) (bool, error)
	ApproveAllPending(ctx context.Context, blobID, reviewerID string) (int, error)
	DeletePair(ctx context.Context, id string) error
	CountPairsForBlob(ctx context.Context, blobID string) (map[string]int, error)
	CountPairsByStatus(ctx context.Context, status string) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const jobCols = `id, blob_id, tenant_id, questions_per_chunk, total_chunks,
	processed_chunks, total_qa_generated, status, COALESCE(error, ''),
	COALESCE(created_by, ''), created_at, completed_at`

func scanGenerationJob(row interface{ Scan(...interface{}) error }) (*GenerationJob, error) {
	var j GenerationJob
	err := row.Scan(
		&j.ID, &j.BlobID, &j.TenantID, &j.QuestionsPerChunk, &j.TotalChunks,
		&j.ProcessedChunks, &j.TotalQAGenerated, &j.Status, &j.Error,
		&j.CreatedBy, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *PostgresRepo) CreateJob(ctx context.Context, job *GenerationJob) error {
	query := `
		INSERT INTO qa_jobs (blob_id, tenant_id, questions_per_chunk, total_chunks, status, created_by)
		VALUES ($1, $2, $3, $4, 'processing', NULLIF($5, ''))
		RETURNING id, status, created_at`
	err := r.db.QueryRowContext(ctx, query,
		job.BlobID, job.TenantID, job.QuestionsPerChunk, job.TotalChunks, job.CreatedBy,
	).Scan(&job.ID, &job.Status, &job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create qa job: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetJob(ctx context.Context, id string) (*GenerationJob, error) {
	query := `SELECT ` + jobCols + ` FROM qa_jobs WHERE id = $1`
	return scanGenerationJob(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepo) LatestJobForBlob(ctx context.Context, blobID string) (*GenerationJob, error) {
	query := `SELECT ` + jobCols + ` FROM qa_jobs WHERE blob_id = $1 ORDER BY created_at DESC LIMIT 1`
	return scanGenerationJob(r.db.QueryRowContext(ctx, query, blobID))
}

func (r *PostgresRepo) UpdateJobProgress(ctx context.Context, id string, processed, generated int, errMsg string) error {
	query := `
		UPDATE qa_jobs
		SET processed_chunks = $2, total_qa_generated = $3, error = NULLIF($4, '')
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, processed, generated, errMsg); err != nil {
		return fmt.Errorf("failed to update qa job progress: %w", err)
	}
	return nil
}

func (r *PostgresRepo) CompleteJob(ctx context.Context, id string, processed, generated int, errMsg string) error {
	query := `
		UPDATE qa_jobs
		SET status = 'completed', processed_chunks = $2, total_qa_generated = $3,
		    error = NULLIF($4, ''), completed_at = NOW()
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, processed, generated, errMsg); err != nil {
		return fmt.Errorf("failed to complete qa job: %w", err)
	}
	return nil
}

const pairCols = `id, job_id, blob_id, tenant_id, chunk_index, chunk_text,
	question, answer, status, generator, created_at, reviewed_at,
	COALESCE(reviewed_by, '')`

func scanPair(row interface{ Scan(...interface{}) error }) (*Pair, error) {
	var p Pair
	err := row.Scan(
		&p.ID, &p.JobID, &p.BlobID, &p.TenantID, &p.ChunkIndex, &p.ChunkText,
		&p.Question, &p.Answer, &p.Status, &p.Generator, &p.CreatedAt,
		&p.ReviewedAt, &p.ReviewedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepo) SavePairs(ctx context.Context, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO qa_pairs (job_id, blob_id, tenant_id, chunk_index, chunk_text, question, answer, status, generator)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)`
	for _, p := range pairs {
		if _, err := tx.ExecContext(ctx, query,
			p.JobID, p.BlobID, p.TenantID, p.ChunkIndex, p.ChunkText, p.Question, p.Answer, p.Generator,
		); err != nil {
			return fmt.Errorf("failed to insert qa pair: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PostgresRepo) GetPair(ctx context.Context, id string) (*Pair, error) {
	query := `SELECT ` + pairCols + ` FROM qa_pairs WHERE id = $1`
	return scanPair(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepo) ListPairs(ctx context.Context, blobID, status string) ([]Pair, error) {
	query := `SELECT ` + pairCols + ` FROM qa_pairs
		WHERE blob_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY chunk_index ASC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, blobID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list qa pairs: %w", err)
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, *p)
	}
	return pairs, rows.Err()
}

// SetPairStatus advances a pair out of pending. Returns false without error
// when the pair was not pending, which makes repeated reviews a no-op.
func (r *PostgresRepo) SetPairStatus(ctx context.Context, id, status, reviewerID string) (bool, error) {
	query := `
		UPDATE qa_pairs
		SET status = $2, reviewed_at = NOW(), reviewed_by = NULLIF($3, '')
		WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, status, reviewerID)
	if err != nil {
		return false, fmt.Errorf("failed to update qa pair status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) ApproveAllPending(ctx context.Context, blobID, reviewerID string) (int, error) {
	query := `
		UPDATE qa_pairs
		SET status = 'approved', reviewed_at = NOW(), reviewed_by = NULLIF($2, '')
		WHERE blob_id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, blobID, reviewerID)
	if err != nil {
		return 0, fmt.Errorf("failed to approve pending qa pairs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *PostgresRepo) DeletePair(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM qa_pairs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete qa pair: %w", err)
	}
	return nil
}

func (r *PostgresRepo) CountPairsForBlob(ctx context.Context, blobID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM qa_pairs WHERE blob_id = $1 GROUP BY status`, blobID)
	if err != nil {
		return nil, fmt.Errorf("failed to count qa pairs: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		PairStatusPending:  0,
		PairStatusApproved: 0,
		PairStatusRejected: 0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *PostgresRepo) CountPairsByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM qa_pairs WHERE status = $1`, status).Scan(&count)
	return count, err
}
