package inventory

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, b *Blob) error {
	query := `
		INSERT INTO blobs (tenant_id, user_id, file_name, mime_type, byte_size, content_hash, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		b.TenantID, b.UserID, b.FileName, b.MimeType, b.ByteSize, b.ContentHash, b.Status,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

const blobColumns = `id, tenant_id, user_id, file_name, mime_type, byte_size, content_hash, storage_key, status, COALESCE(error, ''), created_at, updated_at`

func scanBlob(row interface{ Scan(...interface{}) error }, b *Blob) error {
	return row.Scan(
		&b.ID, &b.TenantID, &b.UserID, &b.FileName, &b.MimeType, &b.ByteSize,
		&b.ContentHash, &b.StorageKey, &b.Status, &b.Error, &b.CreatedAt, &b.UpdatedAt,
	)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Blob, error) {
	b := &Blob{}
	query := `SELECT ` + blobColumns + ` FROM blobs WHERE id = $1 AND deleted_at IS NULL`
	if err := scanBlob(r.db.QueryRowContext(ctx, query, id), b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PostgresRepo) List(ctx context.Context, tenantID string) ([]Blob, error) {
	query := `SELECT ` + blobColumns + ` FROM blobs WHERE tenant_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blobs []Blob
	for rows.Next() {
		var b Blob
		if err := scanBlob(rows, &b); err != nil {
			return nil, err
		}
		blobs = append(blobs, b)
	}
	return blobs, rows.Err()
}

func (r *PostgresRepo) ExistsByHash(ctx context.Context, tenantID, hash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM blobs WHERE tenant_id = $1 AND content_hash = $2 AND deleted_at IS NULL)`
	if err := r.db.QueryRowContext(ctx, query, tenantID, hash).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	query := `UPDATE blobs SET status = $1, error = NULLIF($2, ''), updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, errMsg, id)
	return err
}

func (r *PostgresRepo) UpdateStorageKey(ctx context.Context, id, key string) error {
	query := `UPDATE blobs SET storage_key = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, key, id)
	return err
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE blobs SET deleted_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blobs WHERE deleted_at IS NULL`).Scan(&count)
	return count, err
}

func (r *PostgresRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blobs WHERE status = $1 AND deleted_at IS NULL`, status).Scan(&count)
	return count, err
}
