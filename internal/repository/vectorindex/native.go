package vectorindex

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/labscout/labscout/internal/db"
	"github.com/labscout/labscout/internal/domain"
	"github.com/labscout/labscout/internal/repository/embedding"
)

// nativeTopK runs a pre-filtered KNN query via FT.SEARCH.
func (x *Index) nativeTopK(ctx context.Context, vector []float32, f *domain.Filters, k int) ([]Hit, error) {
	q := &db.KNNQuery{
		IndexName:    embedding.IndexName(domain.KindOpportunity),
		Filter:       buildFilter(f),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"__vector_score"},
	}

	sr, err := x.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, err
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id, err := embedding.EntityIDFromKey(entry.Key, domain.KindOpportunity)
		if err != nil {
			x.logger.Warn("Skipping malformed index key", zap.Error(err))
			continue
		}
		hits = append(hits, Hit{
			EntityID: id,
			Score:    domain.ScoreFromDistance(entry.Score),
		})
	}
	// FT.SEARCH sorts by distance but leaves equal-distance order
	// unspecified; re-sort so ties break deterministically.
	sortHits(hits)
	return hits, nil
}

// buildFilter translates domain filters into an FT.SEARCH pre-filter.
// The active gate is always applied. A state constraint admits remote
// opportunities, matching the in-memory predicate.
func buildFilter(f *domain.Filters) string {
	parts := []string{fmt.Sprintf("@%s:{1}", embedding.FieldActive)}
	if f == nil {
		return parts[0]
	}

	if len(f.States) > 0 {
		upper := make([]string, len(f.States))
		for i, s := range f.States {
			upper[i] = strings.ToUpper(s)
		}
		parts = append(parts, fmt.Sprintf("(@%s:{%s} | @%s:{1})",
			embedding.FieldState, strings.Join(upper, "|"), embedding.FieldRemote))
	}

	if len(f.DegreeLevels) > 0 {
		lower := make([]string, len(f.DegreeLevels))
		for i, d := range f.DegreeLevels {
			lower[i] = strings.ToLower(d)
		}
		parts = append(parts, fmt.Sprintf("@%s:{%s}",
			embedding.FieldDegrees, strings.Join(lower, "|")))
	}

	if f.IsRemote != nil {
		v := "0"
		if *f.IsRemote {
			v = "1"
		}
		parts = append(parts, fmt.Sprintf("@%s:{%s}", embedding.FieldRemote, v))
	}

	if f.PaidType != "" {
		parts = append(parts, fmt.Sprintf("@%s:{%s}",
			embedding.FieldPaidType, strings.ToLower(f.PaidType)))
	}

	// Hour windows overlap when the document's max reaches the requested
	// min and its min stays under the requested max. Open document bounds
	// are stored as sentinels, so the numeric ranges still apply.
	if f.MinHours != nil {
		parts = append(parts, fmt.Sprintf("@%s:[%s +inf]",
			embedding.FieldMaxHours, strconv.Itoa(*f.MinHours)))
	}
	if f.MaxHours != nil {
		parts = append(parts, fmt.Sprintf("@%s:[-inf %s]",
			embedding.FieldMinHours, strconv.Itoa(*f.MaxHours)))
	}

	return strings.Join(parts, " ")
}
