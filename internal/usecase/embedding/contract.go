package embedding

import (
	"context"

	"github.com/labscout/labscout/internal/domain"
)

// Records is the storage contract for embedding records.
type Records interface {
	Upsert(ctx context.Context, rec *domain.EmbeddingRecord, facets *domain.Opportunity) error
	Get(ctx context.Context, kind domain.Kind, id int64) (domain.EmbeddingRecord, error)
	Delete(ctx context.Context, kind domain.Kind, id int64) error
	Count(ctx context.Context, kind domain.Kind) (int, error)
}

// Catalog reads the entities embeddings are generated from.
type Catalog interface {
	GetOpportunity(ctx context.Context, id int64) (domain.Opportunity, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
	ListOpportunityIDs(ctx context.Context) ([]int64, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
