package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"corpora/apps/backend/features/extraction"
	"corpora/apps/backend/features/inventory"
	"corpora/apps/backend/features/qa"
	"corpora/apps/backend/features/search"
	"corpora/apps/backend/features/stats"
	"corpora/apps/backend/internal/adapter/blobstore"
	"corpora/apps/backend/internal/adapter/gemini"
	"corpora/apps/backend/internal/adapter/reranker"
	"corpora/apps/backend/internal/config"
	"corpora/apps/backend/internal/middleware"
	"corpora/apps/backend/internal/prompts"
	"corpora/apps/backend/internal/retrieval"
	"corpora/apps/backend/internal/settings"
	"corpora/apps/backend/internal/worker"
)

// VectorStore is the full chunk-index surface the app needs from Weaviate.
// It is a superset of the narrower interfaces the features declare.
type VectorStore interface {
	EnsureSchema(ctx context.Context) error
	StoreChunk(ctx context.Context, chunk worker.Chunk) error
	DeleteChunksByDocument(ctx context.Context, documentID string) error
	Search(ctx context.Context, query string, vector []float32, alpha float32, limit int, documentID string) ([]retrieval.SearchResult, error)
	GetChunksByDocument(ctx context.Context, documentID string) ([]retrieval.SearchResult, error)
	CountChunks(ctx context.Context) (int, error)
}

// TaskPublisher publishes fire-and-forget events to NSQ.
type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler           http.Handler
	ExtractionService *extraction.Service
	ExtractConsumer   *worker.ExtractConsumer
	IndexConsumer     *worker.IndexConsumer

	cfg *config.Config
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore VectorStore,
	blobStore blobstore.Store,
	taskPub TaskPublisher,
	logger *slog.Logger,
) (*App, error) {

	// Settings
	settingsRepo := settings.NewPostgresRepo(db)
	settingsService := settings.NewService(settingsRepo)
	seedAPIKeys(cfg, settingsService)
	settingsHandler := settings.NewHandler(settingsService)

	// Prompt configs
	promptRepo := prompts.NewPostgresRepo(db)
	promptHandler := prompts.NewHandler(promptRepo)

	// Adapters: settings-backed clients, re-resolved per call so key and
	// model changes take effect without a restart.
	geminiClient := gemini.NewDynamicClient(settingsService)
	rerankerClient := reranker.NewDynamicClient(settingsService)
	extractor := gemini.NewExtractor(geminiClient, promptRepo)

	// Feature: Inventory
	blobRepo := inventory.NewPostgresRepo(db)
	inventoryService := inventory.NewService(blobRepo, blobStore, vecStore)
	inventoryHandler := inventory.NewHandler(inventoryService, cfg.MaxUploadSizeMB)

	// Feature: Extraction
	jobRepo := extraction.NewPostgresRepo(db)
	outputRepo := extraction.NewPostgresOutputRepo(db)
	extractionService := extraction.NewService(
		jobRepo, outputRepo, blobRepo, blobStore,
		extractor, settingsService, taskPub,
		"gemini-v1", cfg.LeaseTTLSeconds,
	)
	extractionHandler := extraction.NewHandler(extractionService)

	// Feature: QA generation and review
	qaRepo := qa.NewPostgresRepo(db)
	qaService := qa.NewService(qaRepo, blobRepo, outputRepo, blobStore, geminiClient, promptRepo, settingsService)
	qaHandler := qa.NewHandler(qaService)

	// Feature: Stats
	statsHandler := stats.NewHandler(blobRepo, jobRepo, qaRepo, vecStore)

	// Feature: Search
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(geminiClient, vecStore, rerankerClient, settingsService, queryLogger)
	searchHandler := search.NewHandler(retrievalService)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID, X-Tenant-ID, X-Admin")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Tenant-scoped routes reject requests without identity headers.
	// CORS runs first so preflight requests pass without them.
	secured := func(next http.HandlerFunc) http.Handler {
		return middleware.CorrelationID(enableCORS(middleware.RequireIdentity(next).ServeHTTP))
	}
	open := func(next http.HandlerFunc) http.Handler {
		return middleware.CorrelationID(enableCORS(next))
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /blobs/upload", secured(inventoryHandler.Upload))
	mux.Handle("GET /blobs", secured(inventoryHandler.List))
	mux.Handle("GET /blobs/{id}", secured(inventoryHandler.Get))
	mux.Handle("DELETE /blobs/{id}", secured(inventoryHandler.Delete))

	mux.Handle("POST /extraction/jobs", secured(extractionHandler.Enqueue))
	mux.Handle("POST /extraction/run", secured(extractionHandler.Run))
	mux.Handle("GET /extraction/jobs", secured(extractionHandler.List))
	mux.Handle("GET /extraction/jobs/{id}", secured(extractionHandler.Get))
	mux.Handle("GET /extraction/jobs/{id}/output", secured(extractionHandler.GetOutput))

	mux.Handle("POST /qa/generate", secured(qaHandler.Generate))
	mux.Handle("GET /qa", secured(qaHandler.GetOverview))
	mux.Handle("POST /qa/{id}/review", secured(qaHandler.Review))
	mux.Handle("POST /qa/approve", secured(qaHandler.Approve))
	mux.Handle("DELETE /qa/{id}", secured(qaHandler.Delete))

	mux.Handle("GET /search", open(searchHandler.Search))

	mux.Handle("GET /settings", open(settingsHandler.GetSettings))
	mux.Handle("PUT /settings", open(settingsHandler.UpdateSettings))

	mux.Handle("GET /prompts", open(promptHandler.ListPrompts))
	mux.Handle("GET /prompts/{function}", open(promptHandler.GetPrompt))
	mux.Handle("PUT /prompts/{function}", open(promptHandler.UpdatePrompt))

	mux.Handle("GET /stats", open(statsHandler.GetStats))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:           mux,
		ExtractionService: extractionService,
		ExtractConsumer:   worker.NewExtractConsumer(extractionService),
		IndexConsumer:     worker.NewIndexConsumer(geminiClient, vecStore),
		cfg:               cfg,
	}, nil
}

// seedAPIKeys copies API keys from the environment into settings when the
// stored values are empty, so a fresh install works without a manual PUT.
func seedAPIKeys(cfg *config.Config, svc *settings.Service) {
	if cfg.GeminiAPIKey == "" && cfg.RerankAPIKey == "" {
		return
	}
	ctx := context.Background()
	set, err := svc.Get(ctx)
	if err != nil {
		slog.Warn("failed to fetch settings for seeding", "error", err)
		return
	}
	changed := false
	if set.GeminiAPIKey == "" && cfg.GeminiAPIKey != "" {
		set.GeminiAPIKey = cfg.GeminiAPIKey
		changed = true
	}
	if set.RerankAPIKey == "" && cfg.RerankAPIKey != "" {
		set.RerankAPIKey = cfg.RerankAPIKey
		changed = true
	}
	if !changed {
		return
	}
	if err := svc.Update(ctx, set); err != nil {
		slog.Warn("failed to seed api keys", "error", err)
	} else {
		slog.Info("seeded api keys from environment")
	}
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler: a.Handler,
	}

	// Lease reaper: requeue extraction jobs whose worker died mid-run.
	go func() {
		interval := time.Duration(a.cfg.ReaperIntervalSeconds) * time.Second
		if interval <= 0 {
			interval = time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := a.ExtractionService.Reap(ctx)
				if err != nil {
					slog.Error("lease reaper failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("requeued stale extraction jobs", "count", n)
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.cfg.ServerPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
