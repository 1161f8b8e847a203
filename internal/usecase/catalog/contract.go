package catalog

import (
	"context"

	"github.com/labscout/labscout/internal/domain"
	"github.com/labscout/labscout/internal/usecase/embedding"
)

// Documents is the catalog persistence this service depends on.
type Documents interface {
	UpsertOpportunity(ctx context.Context, o *domain.Opportunity) (bool, error)
	GetOpportunity(ctx context.Context, id int64) (domain.Opportunity, error)
	GetOpportunities(ctx context.Context, ids []int64) ([]domain.Opportunity, error)
	DeleteOpportunity(ctx context.Context, id int64) error
	ListOpportunityIDs(ctx context.Context) ([]int64, error)
	UpsertUser(ctx context.Context, u *domain.User) (bool, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
}

// Embeddings keeps embedding records in step with catalog mutations.
type Embeddings interface {
	EnsureOpportunity(ctx context.Context, id int64, force bool) (embedding.Status, error)
	EnsureUser(ctx context.Context, id int64, force bool) (embedding.Status, error)
	Delete(ctx context.Context, kind domain.Kind, id int64) error
}
