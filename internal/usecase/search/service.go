package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/labscout/labscout/internal/domain"
	"github.com/labscout/labscout/internal/repository/vectorindex"
)

// Params is one search request.
type Params struct {
	Query   string
	Filters *domain.Filters
	Limit   int
}

// Result is a ranked answer to one search request.
type Result struct {
	Matches       []domain.Match
	Count         int
	CandidatePool int
}

// Config bounds query and result sizes.
type Config struct {
	MinQueryChars int
	DefaultLimit  int
	MaxLimit      int
}

// Service ranks opportunities against a free-text query. The query is
// embedded fresh on every call; only the candidate vectors are reused.
type Service struct {
	index   Index
	catalog Catalog
	embed   Embedder
	cfg     Config
	logger  *zap.Logger
}

// New creates a search service.
func New(index Index, catalog Catalog, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		index:   index,
		catalog: catalog,
		embed:   embed,
		cfg:     cfg,
		logger:  logger,
	}
}

// Search embeds the query, retrieves the top candidates passing the
// filters and decorates them with catalog documents. An empty candidate
// set yields an empty result, not an error.
func (s *Service) Search(ctx context.Context, p Params) (Result, error) {
	query := strings.TrimSpace(p.Query)
	if len([]rune(query)) < s.cfg.MinQueryChars {
		return Result{}, fmt.Errorf("query needs at least %d characters: %w",
			s.cfg.MinQueryChars, domain.ErrQueryTooShort)
	}
	if err := p.Filters.Validate(); err != nil {
		return Result{}, err
	}

	limit := p.Limit
	switch {
	case limit <= 0:
		limit = s.cfg.DefaultLimit
	case limit > s.cfg.MaxLimit:
		limit = s.cfg.MaxLimit
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := s.index.TopK(ctx, embResult.Embedding, p.Filters, limit)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve candidates: %w", err)
	}

	pool, err := s.index.CandidatePool(ctx)
	if err != nil {
		s.logger.Warn("Candidate pool count failed", zap.Error(err))
		pool = 0
	}

	if len(hits) == 0 {
		return Result{CandidatePool: pool}, nil
	}

	matches, err := s.decorate(ctx, hits)
	if err != nil {
		return Result{}, err
	}

	s.logger.Debug("Search completed",
		zap.Int("query_chars", len(query)),
		zap.Int("matches", len(matches)),
		zap.Int("candidate_pool", pool))

	return Result{
		Matches:       matches,
		Count:         len(matches),
		CandidatePool: pool,
	}, nil
}

// decorate joins hits with their catalog documents, preserving rank
// order. A hit whose document vanished since indexing is dropped.
func (s *Service) decorate(ctx context.Context, hits []vectorindex.Hit) ([]domain.Match, error) {
	ids := make([]int64, len(hits))
	scores := make(map[int64]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.EntityID
		scores[h.EntityID] = h.Score
	}

	opps, err := s.catalog.GetOpportunities(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("decorate matches: %w", err)
	}

	matches := make([]domain.Match, 0, len(opps))
	for _, o := range opps {
		score, ok := scores[o.ID]
		if !ok {
			continue
		}
		matches = append(matches, domain.Match{Opportunity: o, Score: score})
	}
	return matches, nil
}
