package extraction_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"corpora/apps/backend/features/extraction"
	"corpora/apps/backend/features/inventory"
	"corpora/apps/backend/internal/middleware"
)

func withIdentity(req *http.Request, id middleware.Identity) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), id))
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	return httptest.NewRequest(method, target, &buf)
}

func TestHandler_Enqueue(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)

		d.blobs.On("Get", mock.Anything, "blob-1").Return(testBlob(), nil)
		d.jobs.On("Enqueue", mock.Anything, mock.Anything).Return(nil)
		d.blobs.On("UpdateStatus", mock.Anything, "blob-1", inventory.StatusQueued, "").Return(nil)
		d.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

		w := httptest.NewRecorder()
		handler.Enqueue(w, jsonRequest("POST", "/extraction/jobs", map[string]string{"blob_id": "blob-1"}))

		assert.Equal(t, http.StatusCreated, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "job-1", data["id"])
		assert.Equal(t, "queued", data["status"])
	})

	t.Run("AcceptsFileIDAlias", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)

		d.blobs.On("Get", mock.Anything, "blob-1").Return(testBlob(), nil)
		d.jobs.On("Enqueue", mock.Anything, mock.Anything).Return(nil)
		d.blobs.On("UpdateStatus", mock.Anything, "blob-1", inventory.StatusQueued, "").Return(nil)
		d.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

		w := httptest.NewRecorder()
		handler.Enqueue(w, jsonRequest("POST", "/extraction/jobs", map[string]string{"file_id": "blob-1"}))

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("MissingBlobID", func(t *testing.T) {
		svc, _ := newService(t)
		handler := extraction.NewHandler(svc)

		w := httptest.NewRecorder()
		handler.Enqueue(w, jsonRequest("POST", "/extraction/jobs", map[string]string{}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})

	t.Run("UnknownBlob", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)

		d.blobs.On("Get", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

		w := httptest.NewRecorder()
		handler.Enqueue(w, jsonRequest("POST", "/extraction/jobs", map[string]string{"blob_id": "missing"}))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Blob not found")
	})
}

func TestHandler_Run(t *testing.T) {
	t.Run("EmptyQueueReturnsNoContent", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)

		d.jobs.On("ClaimNext", mock.Anything, 300).Return(nil, nil)

		req := httptest.NewRequest("POST", "/extraction/run", nil)
		w := httptest.NewRecorder()
		handler.Run(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("SpecificJob", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)

		d.jobs.On("ClaimByID", mock.Anything, "job-1", 300).Return(runningJob(), nil)
		d.blobs.On("Get", mock.Anything, "blob-1").Return(testBlob(), nil)
		d.blobs.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		d.jobs.On("MarkFailed", mock.Anything, "job-1", mock.Anything).Return(nil)
		d.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

		w := httptest.NewRecorder()
		handler.Run(w, jsonRequest("POST", "/extraction/run", map[string]string{"job_id": "job-1"}))

		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "failed", data["status"])
		assert.Equal(t, "File not found in blob store", data["error"])
	})
}

func TestHandler_List(t *testing.T) {
	t.Run("TenantScoped", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)

		d.jobs.On("List", mock.Anything, "tenant-1").Return([]extraction.Job{
			{ID: "job-1", BlobID: "blob-1", TenantID: "tenant-1", Status: extraction.StatusQueued},
		}, nil)

		req := withIdentity(httptest.NewRequest("GET", "/extraction/jobs", nil), middleware.Identity{TenantID: "tenant-1"})
		w := httptest.NewRecorder()
		handler.List(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Len(t, body["data"], 1)
		meta := body["meta"].(map[string]interface{})
		assert.Equal(t, float64(1), meta["count"])
	})

	t.Run("StatusFilter", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)

		d.jobs.On("List", mock.Anything, "tenant-1").Return([]extraction.Job{
			{ID: "job-1", TenantID: "tenant-1", Status: extraction.StatusQueued},
			{ID: "job-2", TenantID: "tenant-1", Status: extraction.StatusCompleted},
		}, nil)

		req := withIdentity(httptest.NewRequest("GET", "/extraction/jobs?status=completed", nil), middleware.Identity{TenantID: "tenant-1"})
		w := httptest.NewRecorder()
		handler.List(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		data := body["data"].([]interface{})
		require.Len(t, data, 1)
		assert.Equal(t, "job-2", data[0].(map[string]interface{})["id"])
	})

	t.Run("InvalidStatusFilter", func(t *testing.T) {
		svc, _ := newService(t)
		handler := extraction.NewHandler(svc)

		req := withIdentity(httptest.NewRequest("GET", "/extraction/jobs?status=bogus", nil), middleware.Identity{TenantID: "tenant-1"})
		w := httptest.NewRecorder()
		handler.List(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})

	t.Run("EmptyListIsNotNull", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)

		d.jobs.On("List", mock.Anything, "tenant-1").Return(nil, nil)

		req := withIdentity(httptest.NewRequest("GET", "/extraction/jobs", nil), middleware.Identity{TenantID: "tenant-1"})
		w := httptest.NewRecorder()
		handler.List(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})
}

func TestHandler_Get(t *testing.T) {
	job := &extraction.Job{ID: "job-1", BlobID: "blob-1", TenantID: "tenant-1", Status: extraction.StatusCompleted}

	t.Run("Owner", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)
		d.jobs.On("Get", mock.Anything, "job-1").Return(job, nil)

		req := httptest.NewRequest("GET", "/extraction/jobs/job-1", nil)
		req.SetPathValue("id", "job-1")
		req = withIdentity(req, middleware.Identity{TenantID: "tenant-1"})

		w := httptest.NewRecorder()
		handler.Get(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("OtherTenantForbidden", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)
		d.jobs.On("Get", mock.Anything, "job-1").Return(job, nil)

		req := httptest.NewRequest("GET", "/extraction/jobs/job-1", nil)
		req.SetPathValue("id", "job-1")
		req = withIdentity(req, middleware.Identity{TenantID: "tenant-2"})

		w := httptest.NewRecorder()
		handler.Get(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)
		d.jobs.On("Get", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

		req := httptest.NewRequest("GET", "/extraction/jobs/missing", nil)
		req.SetPathValue("id", "missing")
		req = withIdentity(req, middleware.Identity{TenantID: "tenant-1"})

		w := httptest.NewRecorder()
		handler.Get(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Job not found")
	})
}

func TestHandler_GetOutput(t *testing.T) {
	job := &extraction.Job{ID: "job-1", BlobID: "blob-1", TenantID: "tenant-1", Status: extraction.StatusCompleted}

	t.Run("Success", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)
		d.jobs.On("Get", mock.Anything, "job-1").Return(job, nil)
		d.outputs.On("GetByJob", mock.Anything, "job-1").Return(&extraction.Output{
			ID: "out-1", JobID: "job-1", BlobID: "blob-1",
			ArtifactType: "chunk_jsonl", ArtifactKey: "artifacts/blob-1/job-1.jsonl", ChunkCount: 4,
		}, nil)

		req := httptest.NewRequest("GET", "/extraction/jobs/job-1/output", nil)
		req.SetPathValue("id", "job-1")
		req = withIdentity(req, middleware.Identity{TenantID: "tenant-1"})

		w := httptest.NewRecorder()
		handler.GetOutput(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "chunk_jsonl", data["artifact_type"])
		assert.Equal(t, float64(4), data["chunk_count"])
	})

	t.Run("NoOutputYet", func(t *testing.T) {
		svc, d := newService(t)
		handler := extraction.NewHandler(svc)
		d.jobs.On("Get", mock.Anything, "job-1").Return(job, nil)
		d.outputs.On("GetByJob", mock.Anything, "job-1").Return(nil, sql.ErrNoRows)

		req := httptest.NewRequest("GET", "/extraction/jobs/job-1/output", nil)
		req.SetPathValue("id", "job-1")
		req = withIdentity(req, middleware.Identity{TenantID: "tenant-1"})

		w := httptest.NewRecorder()
		handler.GetOutput(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Output not found")
	})
}
