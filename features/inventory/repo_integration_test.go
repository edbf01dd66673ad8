package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpora/apps/backend/features/inventory"
	"corpora/apps/backend/internal/testutils"
)

func TestBlobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	repo := inventory.NewPostgresRepo(s.DB)
	ctx := context.Background()

	b := &inventory.Blob{
		TenantID:    "tenant-1",
		UserID:      "u1",
		FileName:    "report.pdf",
		MimeType:    "application/pdf",
		ByteSize:    2048,
		ContentHash: "hash1",
		Status:      inventory.StatusUploaded,
	}
	require.NoError(t, repo.Save(ctx, b))
	assert.NotEmpty(t, b.ID)

	exists, err := repo.ExistsByHash(ctx, "tenant-1", "hash1")
	require.NoError(t, err)
	assert.True(t, exists)

	// Same hash under another tenant is not a duplicate.
	exists, err = repo.ExistsByHash(ctx, "tenant-2", "hash1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.UpdateStorageKey(ctx, b.ID, "blobs/tenant-1/"+b.ID))
	require.NoError(t, repo.UpdateStatus(ctx, b.ID, inventory.StatusExtracted, ""))

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusExtracted, got.Status)
	assert.Equal(t, "blobs/tenant-1/"+b.ID, got.StorageKey)

	list, err := repo.List(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = repo.List(ctx, "tenant-2")
	require.NoError(t, err)
	assert.Empty(t, list)

	count, err := repo.CountByStatus(ctx, inventory.StatusExtracted)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Soft delete hides the row and frees the hash for re-upload.
	require.NoError(t, repo.SoftDelete(ctx, b.ID))
	_, err = repo.Get(ctx, b.ID)
	assert.Error(t, err)

	exists, err = repo.ExistsByHash(ctx, "tenant-1", "hash1")
	require.NoError(t, err)
	assert.False(t, exists)
}
