package reranker

import (
	"context"
	"fmt"

	"corpora/apps/backend/internal/settings"
)

// DynamicClient resolves the rerank provider and key from settings on every
// call, so switching providers takes effect immediately.
type DynamicClient struct {
	settingsSvc *settings.Service
	baseURL     string
}

func NewDynamicClient(svc *settings.Service) *DynamicClient {
	return &DynamicClient{settingsSvc: svc}
}

func (c *DynamicClient) SetBaseURL(url string) {
	c.baseURL = url
}

func (c *DynamicClient) Rerank(ctx context.Context, query string, docs []string) ([]int, error) {
	s, err := c.settingsSvc.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	client := NewClient(s.RerankProvider, s.RerankAPIKey)
	if c.baseURL != "" {
		client.SetBaseURL(c.baseURL)
	}
	return client.Rerank(ctx, query, docs)
}
