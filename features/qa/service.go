package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"corpora/apps/backend/features/extraction"
	"corpora/apps/backend/features/inventory"
	"corpora/apps/backend/internal/adapter/blobstore"
	"corpora/apps/backend/internal/adapter/gemini"
	"corpora/apps/backend/internal/chunks"
	"corpora/apps/backend/internal/middleware"
	"corpora/apps/backend/internal/modeljson"
	"corpora/apps/backend/internal/prompts"
	"corpora/apps/backend/internal/settings"
)

var (
	// ErrNotExtracted means the blob has no completed extraction output, so
	// there is no chunk artifact to generate from.
	ErrNotExtracted = errors.New("blob has no completed extraction")

	// ErrForbidden means the caller's tenant does not own the resource.
	ErrForbidden = errors.New("access denied")
)

type BlobRepository interface {
	Get(ctx context.Context, id string) (*inventory.Blob, error)
}

type OutputSource interface {
	LatestCompleted(ctx context.Context, blobID string) (*extraction.Output, error)
}

type SettingsService interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// Overview is the review-screen payload: the latest generation job for a
// blob, its pairs, and pair counts by status.
type Overview struct {
	Job    *GenerationJob `json:"job,omitempty"`
	Pairs  []Pair         `json:"pairs"`
	Counts map[string]int `json:"counts"`
}

type Service struct {
	repo       Repository
	blobs      BlobRepository
	outputs    OutputSource
	store      blobstore.Store
	gen        gemini.Generator
	promptRepo prompts.Repository
	settings   SettingsService
}

func NewService(
	repo Repository,
	blobs BlobRepository,
	outputs OutputSource,
	store blobstore.Store,
	gen gemini.Generator,
	promptRepo prompts.Repository,
	settingsSvc SettingsService,
) *Service {
	return &Service{
		repo:       repo,
		blobs:      blobs,
		outputs:    outputs,
		store:      store,
		gen:        gen,
		promptRepo: promptRepo,
		settings:   settingsSvc,
	}
}

// qaItem is the shape each element of the model's JSON array must have.
// Elements missing either field are dropped, not errors.
type qaItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Generate runs QA generation over the blob's latest chunk artifact,
// synchronously. Chunks are processed one at a time; a chunk failure is
// recorded on the job and the loop moves on, so one bad model response
// cannot discard the pairs already written for other chunks.
func (s *Service) Generate(ctx context.Context, ident middleware.Identity, blobID string, questionsPerChunk int) (*GenerationJob, error) {
	blob, err := s.blobs.Get(ctx, blobID)
	if err != nil {
		return nil, err
	}
	if !ident.CanAccess(blob.TenantID) {
		return nil, ErrForbidden
	}

	if questionsPerChunk <= 0 {
		questionsPerChunk = 3
		if set, err := s.settings.Get(ctx); err == nil && set != nil && set.QAPairsPerChunk > 0 {
			questionsPerChunk = set.QAPairsPerChunk
		}
	}

	out, err := s.outputs.LatestCompleted(ctx, blob.ID)
	if err != nil {
		return nil, ErrNotExtracted
	}

	artifact, err := s.store.Get(ctx, out.ArtifactKey)
	if err != nil {
		return nil, fmt.Errorf("read chunk artifact: %w", err)
	}
	records, err := chunks.DecodeJSONL(artifact)
	if err != nil {
		return nil, fmt.Errorf("parse chunk artifact: %w", err)
	}

	// Resolve the prompt before creating the job row so a configuration
	// problem aborts without leaving a stuck processing job behind.
	cfg, err := s.promptRepo.GetActive(ctx, prompts.FunctionChunkQA)
	if err != nil {
		return nil, err
	}

	job := &GenerationJob{
		BlobID:            blob.ID,
		TenantID:          blob.TenantID,
		QuestionsPerChunk: questionsPerChunk,
		TotalChunks:       len(records),
		CreatedBy:         ident.UserID,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "qa generation started", "job_id", job.ID, "blob_id", blob.ID, "chunks", len(records))

	processed := 0
	generated := 0
	lastErr := ""
	for i, rec := range records {
		pairs, err := s.generateForChunk(ctx, cfg, job, i, rec, questionsPerChunk)
		processed++
		if err != nil {
			lastErr = fmt.Sprintf("chunk %d: %v", i, err)
			slog.WarnContext(ctx, "qa generation chunk failed", "job_id", job.ID, "chunk_index", i, "error", err)
		} else {
			generated += len(pairs)
		}
		if err := s.repo.UpdateJobProgress(ctx, job.ID, processed, generated, lastErr); err != nil {
			slog.WarnContext(ctx, "failed to persist qa job progress", "job_id", job.ID, "error", err)
		}
	}

	if err := s.repo.CompleteJob(ctx, job.ID, processed, generated, lastErr); err != nil {
		return nil, fmt.Errorf("complete qa job: %w", err)
	}

	job.Status = JobStatusCompleted
	job.ProcessedChunks = processed
	job.TotalQAGenerated = generated
	job.Error = lastErr

	slog.InfoContext(ctx, "qa generation completed", "job_id", job.ID, "pairs", generated, "chunks", processed)
	return job, nil
}

func (s *Service) generateForChunk(ctx context.Context, cfg *prompts.Config, job *GenerationJob, index int, rec chunks.Record, questionsPerChunk int) ([]Pair, error) {
	prompt := prompts.Render(cfg.UserTemplate, map[string]string{
		"questions_per_chunk": strconv.Itoa(questionsPerChunk),
		"title":               rec.Content.Title,
		"section_path":        strings.Join(rec.Provenance.SectionPath, " > "),
		"chunk_text":          rec.Content.ChunkText,
	})

	res, err := s.gen.Generate(ctx, gemini.GenerateRequest{
		Model:           cfg.Model,
		SystemPrompt:    cfg.SystemPrompt,
		Prompt:          prompt,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
		ForceJSON:       true,
	})
	if err != nil {
		return nil, err
	}

	var items []qaItem
	if err := modeljson.Decode(res.Text, &items); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}

	pairs := make([]Pair, 0, len(items))
	for _, item := range items {
		if item.Question == "" || item.Answer == "" {
			continue
		}
		pairs = append(pairs, Pair{
			JobID:      job.ID,
			BlobID:     job.BlobID,
			TenantID:   job.TenantID,
			ChunkIndex: index,
			ChunkText:  rec.Content.ChunkText,
			Question:   item.Question,
			Answer:     item.Answer,
			Status:     PairStatusPending,
			Generator:  cfg.Model,
		})
	}

	if err := s.repo.SavePairs(ctx, pairs); err != nil {
		return nil, fmt.Errorf("save pairs: %w", err)
	}
	return pairs, nil
}

// GetOverview assembles the latest job, the pair list, and counts by status
// for one blob. A blob with no generation job yet returns an empty overview
// rather than an error.
func (s *Service) GetOverview(ctx context.Context, ident middleware.Identity, blobID, status string) (*Overview, error) {
	blob, err := s.blobs.Get(ctx, blobID)
	if err != nil {
		return nil, err
	}
	if !ident.CanAccess(blob.TenantID) {
		return nil, ErrForbidden
	}

	ov := &Overview{Pairs: []Pair{}, Counts: map[string]int{}}

	job, err := s.repo.LatestJobForBlob(ctx, blob.ID)
	if err == nil {
		ov.Job = job
	}

	pairs, err := s.repo.ListPairs(ctx, blob.ID, status)
	if err != nil {
		return nil, err
	}
	if pairs != nil {
		ov.Pairs = pairs
	}

	counts, err := s.repo.CountPairsForBlob(ctx, blob.ID)
	if err != nil {
		return nil, err
	}
	ov.Counts = counts

	return ov, nil
}

// Review advances one pair out of pending. Returns false when the pair had
// already been reviewed.
func (s *Service) Review(ctx context.Context, ident middleware.Identity, pairID, status string) (bool, error) {
	pair, err := s.repo.GetPair(ctx, pairID)
	if err != nil {
		return false, err
	}
	if !ident.CanAccess(pair.TenantID) {
		return false, ErrForbidden
	}
	return s.repo.SetPairStatus(ctx, pairID, status, ident.UserID)
}

// ApproveByIDs approves each listed pair that exists, belongs to the caller's
// tenant, and is still pending. Missing and non-owned ids are skipped, not
// errors; the count of pairs actually approved is returned.
func (s *Service) ApproveByIDs(ctx context.Context, ident middleware.Identity, ids []string) (int, error) {
	approved := 0
	for _, id := range ids {
		pair, err := s.repo.GetPair(ctx, id)
		if err != nil {
			continue
		}
		if !ident.CanAccess(pair.TenantID) {
			continue
		}
		ok, err := s.repo.SetPairStatus(ctx, id, PairStatusApproved, ident.UserID)
		if err != nil {
			return approved, err
		}
		if ok {
			approved++
		}
	}
	return approved, nil
}

// ApproveAll approves every pending pair for the blob in one update.
func (s *Service) ApproveAll(ctx context.Context, ident middleware.Identity, blobID string) (int, error) {
	blob, err := s.blobs.Get(ctx, blobID)
	if err != nil {
		return 0, err
	}
	if !ident.CanAccess(blob.TenantID) {
		return 0, ErrForbidden
	}
	return s.repo.ApproveAllPending(ctx, blob.ID, ident.UserID)
}

func (s *Service) Delete(ctx context.Context, ident middleware.Identity, pairID string) error {
	pair, err := s.repo.GetPair(ctx, pairID)
	if err != nil {
		return err
	}
	if !ident.CanAccess(pair.TenantID) {
		return ErrForbidden
	}
	return s.repo.DeletePair(ctx, pairID)
}
