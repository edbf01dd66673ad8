package extraction

import (
	"context"
	"database/sql"
)

type OutputRepository interface {
	Save(ctx context.Context, out *Output) error
	GetByJob(ctx context.Context, jobID string) (*Output, error)
	LatestCompleted(ctx context.Context, blobID string) (*Output, error)
}

type PostgresOutputRepo struct {
	db *sql.DB
}

func NewPostgresOutputRepo(db *sql.DB) *PostgresOutputRepo {
	return &PostgresOutputRepo{db: db}
}

const outputColumns = `id, job_id, blob_id, artifact_type, artifact_key, artifact_hash, schema_version, chunk_count, created_at`

func (r *PostgresOutputRepo) Save(ctx context.Context, out *Output) error {
	query := `
		INSERT INTO extraction_outputs (job_id, blob_id, artifact_type, artifact_key, artifact_hash, schema_version, chunk_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		out.JobID, out.BlobID, out.ArtifactType, out.ArtifactKey, out.ArtifactHash, out.SchemaVersion, out.ChunkCount,
	).Scan(&out.ID, &out.CreatedAt)
}

func (r *PostgresOutputRepo) GetByJob(ctx context.Context, jobID string) (*Output, error) {
	out := &Output{}
	query := `SELECT ` + outputColumns + ` FROM extraction_outputs WHERE job_id = $1`
	err := r.db.QueryRowContext(ctx, query, jobID).Scan(
		&out.ID, &out.JobID, &out.BlobID, &out.ArtifactType, &out.ArtifactKey,
		&out.ArtifactHash, &out.SchemaVersion, &out.ChunkCount, &out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LatestCompleted returns the newest output for a blob, the one QA
// generation should read.
func (r *PostgresOutputRepo) LatestCompleted(ctx context.Context, blobID string) (*Output, error) {
	out := &Output{}
	query := `SELECT ` + outputColumns + ` FROM extraction_outputs WHERE blob_id = $1 ORDER BY created_at DESC LIMIT 1`
	err := r.db.QueryRowContext(ctx, query, blobID).Scan(
		&out.ID, &out.JobID, &out.BlobID, &out.ArtifactType, &out.ArtifactKey,
		&out.ArtifactHash, &out.SchemaVersion, &out.ChunkCount, &out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}
