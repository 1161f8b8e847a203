package search

import (
	"context"

	"github.com/labscout/labscout/internal/domain"
	"github.com/labscout/labscout/internal/repository/vectorindex"
)

// Index retrieves ranked candidates for a query vector.
type Index interface {
	TopK(ctx context.Context, vector []float32, f *domain.Filters, k int) ([]vectorindex.Hit, error)
	CandidatePool(ctx context.Context) (int, error)
}

// Catalog decorates candidate IDs with full opportunity documents.
type Catalog interface {
	GetOpportunities(ctx context.Context, ids []int64) ([]domain.Opportunity, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
