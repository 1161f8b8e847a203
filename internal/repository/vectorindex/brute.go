package vectorindex

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/labscout/labscout/internal/domain"
	"github.com/labscout/labscout/internal/repository/embedding"
)

// bruteTopK scans every opportunity embedding record, filters in memory
// and ranks by cosine similarity. Ties break on ascending entity ID so
// rankings stay deterministic.
func (x *Index) bruteTopK(ctx context.Context, vector []float32, f *domain.Filters, k int) ([]Hit, error) {
	candidates, err := x.scanCandidates(ctx)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		if !f.Matches(&c.facets) {
			continue
		}
		cos := domain.CosineSimilarity(vector, c.vector)
		hits = append(hits, Hit{EntityID: c.id, Score: domain.SimilarityScore(cos)})
	}

	sortHits(hits)

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// bruteCandidatePool counts active records without an index.
func (x *Index) bruteCandidatePool(ctx context.Context) (int, error) {
	candidates, err := x.scanCandidates(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range candidates {
		if c.facets.IsActive {
			n++
		}
	}
	return n, nil
}

type candidate struct {
	id     int64
	vector []float32
	facets domain.Opportunity
}

func (x *Index) scanCandidates(ctx context.Context) ([]candidate, error) {
	keys, err := x.store.Scan(ctx, embedding.KeyPattern(domain.KindOpportunity))
	if err != nil {
		return nil, fmt.Errorf("scan candidates: %w", err)
	}
	if x.maxScan > 0 && len(keys) > x.maxScan {
		return nil, fmt.Errorf("%d candidates exceed scan ceiling %d: %w",
			len(keys), x.maxScan, domain.ErrScanLimitExceeded)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	fieldMaps, err := x.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	candidates := make([]candidate, 0, len(keys))
	for i, m := range fieldMaps {
		if len(m) == 0 {
			continue // deleted between scan and fetch
		}
		id, err := embedding.EntityIDFromKey(keys[i], domain.KindOpportunity)
		if err != nil {
			x.logger.Warn("Skipping malformed record key", zap.Error(err))
			continue
		}
		vec, err := embedding.BytesToVector(m[embedding.FieldVector])
		if err != nil {
			x.logger.Warn("Skipping record with bad vector data",
				zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		candidates = append(candidates, candidate{
			id:     id,
			vector: vec,
			facets: embedding.ParseFacets(m),
		})
	}
	return candidates, nil
}
