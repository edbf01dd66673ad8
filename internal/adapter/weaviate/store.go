package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"corpora/apps/backend/internal/retrieval"
	"corpora/apps/backend/internal/vector"
	"corpora/apps/backend/internal/worker"
)

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// EnsureSchema creates or patches the chunk class in Weaviate.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewWeaviateClientAdapter(s.client))
}

func (s *Store) StoreChunk(ctx context.Context, chunk worker.Chunk) error {
	_, err := s.client.Data().Creator().
		WithClassName(vector.ClassName).
		WithProperties(map[string]interface{}{
			"content":    chunk.Content,
			"documentId": chunk.DocumentID,
			"chunkId":    chunk.ChunkID,
			"chunkIndex": chunk.ChunkIndex,
			"title":      chunk.Title,
			"page":       chunk.Page,
			"language":   chunk.Language,
		}).
		WithVector(chunk.Vector).
		Do(ctx)
	return err
}

func (s *Store) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueString(documentID)).
		Do(ctx)
	return err
}

// CountChunks reports the total number of indexed chunks via a meta count
// aggregate.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", result.Errors)
	}

	agg, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	rows, ok := agg[vector.ClassName].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := row["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}

var chunkFields = []graphql.Field{
	{Name: "content"},
	{Name: "documentId"},
	{Name: "chunkId"},
	{Name: "chunkIndex"},
	{Name: "title"},
	{Name: "page"},
	{Name: "language"},
}

func (s *Store) Search(ctx context.Context, query string, vec []float32, alpha float32, limit int, documentID string) ([]retrieval.SearchResult, error) {
	hybrid := s.client.GraphQL().HybridArgumentBuilder().
		WithQuery(query).
		WithVector(vec).
		WithAlpha(alpha)

	fields := append([]graphql.Field{}, chunkFields...)
	fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "score"}}})

	builder := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithHybrid(hybrid).
		WithLimit(limit).
		WithFields(fields...)

	if documentID != "" {
		builder = builder.WithWhere(filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueString(documentID))
	}

	res, err := builder.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	return decodeResults(res.Data, true), nil
}

func (s *Store) GetChunksByDocument(ctx context.Context, documentID string) ([]retrieval.SearchResult, error) {
	where := filters.Where().
		WithOperator(filters.Equal).
		WithPath([]string{"documentId"}).
		WithValueString(documentID)

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithWhere(where).
		WithLimit(1000).
		WithFields(chunkFields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	return decodeResults(res.Data, false), nil
}

func decodeResults(data map[string]models.JSONObject, withScore bool) []retrieval.SearchResult {
	var results []retrieval.SearchResult
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return results
	}
	rows, ok := get[vector.ClassName].([]interface{})
	if !ok {
		return results
	}

	for _, row := range rows {
		props, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		result := retrieval.SearchResult{
			Metadata: make(map[string]interface{}),
		}
		if content, ok := props["content"].(string); ok {
			result.Content = content
		}
		if title, ok := props["title"].(string); ok {
			result.Title = title
		}
		if id, ok := props["documentId"].(string); ok {
			result.DocumentID = id
		}
		if id, ok := props["chunkId"].(string); ok {
			result.ChunkID = id
		}
		if idx, ok := props["chunkIndex"].(float64); ok {
			result.ChunkIndex = int(idx)
		}
		if page, ok := props["page"].(float64); ok {
			result.Page = int(page)
		}
		if lang, ok := props["language"].(string); ok {
			result.Language = lang
		}

		if withScore {
			if additional, ok := props["_additional"].(map[string]interface{}); ok {
				// Scores come back as strings in some server versions.
				if score, ok := additional["score"].(string); ok {
					var fScore float64
					fmt.Sscanf(score, "%f", &fScore)
					result.Score = float32(fScore)
				} else if score, ok := additional["score"].(float64); ok {
					result.Score = float32(score)
				}
			}
		}

		results = append(results, result)
	}
	return results
}
