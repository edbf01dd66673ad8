package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"corpora/apps/backend/internal/adapter/blobstore"
)

// Blob statuses
const (
	StatusUploaded   = "uploaded"
	StatusQueued     = "queued"
	StatusExtracting = "extracting"
	StatusExtracted  = "extracted"
	StatusFailed     = "failed"
)

type Blob struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	FileName    string    `json:"file_name"`
	MimeType    string    `json:"mime_type"`
	ByteSize    int64     `json:"byte_size"`
	ContentHash string    `json:"content_hash"`
	StorageKey  string    `json:"-"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Repository interface {
	Save(ctx context.Context, b *Blob) error
	Get(ctx context.Context, id string) (*Blob, error)
	List(ctx context.Context, tenantID string) ([]Blob, error)
	ExistsByHash(ctx context.Context, tenantID, hash string) (bool, error)
	UpdateStatus(ctx context.Context, id, status, errMsg string) error
	UpdateStorageKey(ctx context.Context, id, key string) error
	SoftDelete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type ChunkStore interface {
	DeleteChunksByDocument(ctx context.Context, documentID string) error
}

type Service struct {
	repo       Repository
	store      blobstore.Store
	chunkStore ChunkStore
}

func NewService(repo Repository, store blobstore.Store, chunkStore ChunkStore) *Service {
	return &Service{repo: repo, store: store, chunkStore: chunkStore}
}

// Register stores the uploaded bytes and records the inventory row. The
// caller has already computed the content hash.
func (s *Service) Register(ctx context.Context, b *Blob, data []byte) error {
	exists, err := s.repo.ExistsByHash(ctx, b.TenantID, b.ContentHash)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("Duplicate detected")
	}

	b.Status = StatusUploaded
	if err := s.repo.Save(ctx, b); err != nil {
		return err
	}

	b.StorageKey = fmt.Sprintf("blobs/%s/%s", b.ID, b.FileName)
	if err := s.store.Put(ctx, b.StorageKey, data); err != nil {
		// Roll the row back so a retry is not treated as a duplicate.
		if delErr := s.repo.SoftDelete(ctx, b.ID); delErr != nil {
			slog.ErrorContext(ctx, "failed to roll back blob row", "error", delErr, "blob_id", b.ID)
		}
		return fmt.Errorf("store blob bytes: %w", err)
	}

	return s.repo.UpdateStorageKey(ctx, b.ID, b.StorageKey)
}

func (s *Service) Get(ctx context.Context, id string) (*Blob, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Blob, error) {
	return s.repo.List(ctx, tenantID)
}

// Delete removes the stored bytes, any indexed chunks, and soft-deletes the
// row. Vector cleanup failures abort so the index never outlives the row.
func (s *Service) Delete(ctx context.Context, id string) error {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.chunkStore.DeleteChunksByDocument(ctx, id); err != nil {
		return err
	}

	if b.StorageKey != "" {
		if err := s.store.Delete(ctx, b.StorageKey); err != nil {
			slog.WarnContext(ctx, "failed to delete blob bytes", "error", err, "blob_id", id)
		}
	}

	return s.repo.SoftDelete(ctx, id)
}
