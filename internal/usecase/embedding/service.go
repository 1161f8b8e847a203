package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/labscout/labscout/internal/domain"
)

// Status is the outcome of ensuring one entity's embedding.
type Status string

const (
	// StatusCreated means a record was generated for the first time.
	StatusCreated Status = "created"
	// StatusUpdated means the source text changed and the record was regenerated.
	StatusUpdated Status = "updated"
	// StatusSkipped means the stored record is already current, no provider call made.
	StatusSkipped Status = "skipped"
)

// Summary aggregates a batch generation run.
type Summary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Stats reports embedding coverage per entity kind. Ready means search can
// serve results, true once at least one opportunity embedding exists.
type Stats struct {
	Users         KindStats `json:"users"`
	Opportunities KindStats `json:"opportunities"`
	Ready         bool      `json:"ready"`
}

// KindStats pairs catalog size with embedding coverage.
type KindStats struct {
	Total    int `json:"total"`
	Embedded int `json:"embedded"`
}

// Service generates and maintains embedding records. An entity is
// re-embedded only when its source text or the model changed; unchanged
// entities never cost a provider call.
type Service struct {
	records     Records
	catalog     Catalog
	embed       Embedder
	model       string
	concurrency int
	logger      *zap.Logger
}

// New creates an embedding service. concurrency bounds parallel provider
// calls during batch generation.
func New(
	records Records,
	catalog Catalog,
	embed Embedder,
	model string,
	concurrency int,
	logger *zap.Logger,
) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		records:     records,
		catalog:     catalog,
		embed:       embed,
		model:       model,
		concurrency: concurrency,
		logger:      logger,
	}
}

// EnsureOpportunity brings one opportunity's embedding up to date.
func (s *Service) EnsureOpportunity(ctx context.Context, id int64, force bool) (Status, error) {
	opp, err := s.catalog.GetOpportunity(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get opportunity %d: %w", id, err)
	}
	return s.ensure(ctx, domain.KindOpportunity, id, opp.EmbeddingText(), &opp, force)
}

// EnsureUser brings one user's embedding up to date.
func (s *Service) EnsureUser(ctx context.Context, id int64, force bool) (Status, error) {
	user, err := s.catalog.GetUser(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get user %d: %w", id, err)
	}
	return s.ensure(ctx, domain.KindUser, id, user.EmbeddingText(), nil, force)
}

func (s *Service) ensure(
	ctx context.Context, kind domain.Kind, id int64,
	text string, facets *domain.Opportunity, force bool,
) (Status, error) {
	if text == "" {
		// nothing to embed; drop any stale record so searches cannot
		// surface an entity from text it no longer has
		if err := s.records.Delete(ctx, kind, id); err != nil {
			return "", fmt.Errorf("delete stale record %s/%d: %w", kind, id, err)
		}
		return StatusSkipped, nil
	}

	existing, err := s.records.Get(ctx, kind, id)
	existed := err == nil
	if err != nil && !isNotFound(err) {
		return "", fmt.Errorf("get record %s/%d: %w", kind, id, err)
	}

	if existed && !force && existing.SourceText == text && existing.ModelName == s.model {
		if facets != nil {
			// facets may change without touching the text; refresh the
			// denormalized filter fields using the stored vector
			refresh := existing
			if err := s.records.Upsert(ctx, &refresh, facets); err != nil {
				return "", fmt.Errorf("refresh facets %s/%d: %w", kind, id, err)
			}
		}
		return StatusSkipped, nil
	}

	result, err := s.embed.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed %s/%d: %w", kind, id, err)
	}

	rec := domain.EmbeddingRecord{
		Kind:       kind,
		EntityID:   id,
		Vector:     result.Embedding,
		ModelName:  s.model,
		SourceText: text,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.records.Upsert(ctx, &rec, facets); err != nil {
		return "", fmt.Errorf("store record %s/%d: %w", kind, id, err)
	}

	if existed {
		return StatusUpdated, nil
	}
	return StatusCreated, nil
}

// Delete removes an entity's embedding record.
func (s *Service) Delete(ctx context.Context, kind domain.Kind, id int64) error {
	return s.records.Delete(ctx, kind, id)
}

// GenerateAll ensures embeddings for every entity of a kind. Individual
// failures are isolated: one bad entity never aborts the run, it just
// lands in the failed count.
func (s *Service) GenerateAll(ctx context.Context, kind domain.Kind, force bool) (Summary, error) {
	ids, err := s.listIDs(ctx, kind)
	if err != nil {
		return Summary{}, err
	}

	var mu sync.Mutex
	var summary Summary

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			status, err := s.ensureByKind(gctx, kind, id, force)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				s.logger.Warn("Embedding generation failed",
					zap.String("kind", string(kind)),
					zap.Int64("id", id),
					zap.Error(err))
			case status == StatusSkipped:
				summary.Skipped++
			default:
				summary.Processed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	s.logger.Info("Embedding generation finished",
		zap.String("kind", string(kind)),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// CollectStats reports catalog size and embedding coverage per kind.
func (s *Service) CollectStats(ctx context.Context) (Stats, error) {
	oppIDs, err := s.catalog.ListOpportunityIDs(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list opportunities: %w", err)
	}
	userIDs, err := s.catalog.ListUserIDs(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list users: %w", err)
	}

	oppEmb, err := s.records.Count(ctx, domain.KindOpportunity)
	if err != nil {
		return Stats{}, fmt.Errorf("count opportunity records: %w", err)
	}
	userEmb, err := s.records.Count(ctx, domain.KindUser)
	if err != nil {
		return Stats{}, fmt.Errorf("count user records: %w", err)
	}

	return Stats{
		Users:         KindStats{Total: len(userIDs), Embedded: userEmb},
		Opportunities: KindStats{Total: len(oppIDs), Embedded: oppEmb},
		Ready:         oppEmb > 0,
	}, nil
}

func (s *Service) listIDs(ctx context.Context, kind domain.Kind) ([]int64, error) {
	switch kind {
	case domain.KindOpportunity:
		ids, err := s.catalog.ListOpportunityIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list opportunities: %w", err)
		}
		return ids, nil
	case domain.KindUser:
		ids, err := s.catalog.ListUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("unknown kind %q: %w", kind, domain.ErrInvalidInput)
	}
}

func (s *Service) ensureByKind(ctx context.Context, kind domain.Kind, id int64, force bool) (Status, error) {
	if kind == domain.KindUser {
		return s.EnsureUser(ctx, id, force)
	}
	return s.EnsureOpportunity(ctx, id, force)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
