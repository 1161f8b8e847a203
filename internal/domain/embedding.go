package domain

import (
	"context"
	"time"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// EmbeddingRecord is the stored embedding for one entity. At most one record
// exists per (Kind, EntityID); SourceText is kept verbatim for change detection.
type EmbeddingRecord struct {
	Kind       Kind
	EntityID   int64
	Vector     []float32
	ModelName  string
	SourceText string
	UpdatedAt  time.Time
}
