package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/labscout/labscout/internal/db"
	"github.com/labscout/labscout/internal/domain"
	"github.com/labscout/labscout/internal/repository/embedding"
)

// store is the consumer interface for vector retrieval (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SupportsVectorSearch(ctx context.Context) bool
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Hit is one ranked candidate: an opportunity ID with its similarity score
// already rescaled to [0, 1].
type Hit struct {
	EntityID int64
	Score    float64
}

// sortHits orders by descending score, ties by ascending entity ID. Both
// retrieval paths go through this so equal-score candidates rank the same
// regardless of path.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].EntityID < hits[j].EntityID
	})
}

// Index retrieves the top-K opportunity candidates for a query vector.
// When the store carries a search module it runs a pre-filtered KNN query;
// otherwise it degrades to a full scan with in-memory filtering. Both
// paths score on the same cosine scale.
type Index struct {
	store       store
	dims        int
	hnswM       int
	hnswEF      int
	maxScan     int
	searchTotal *prometheus.CounterVec
	logger      *zap.Logger
}

// Config holds index tuning parameters.
type Config struct {
	Dims              int
	HNSWM             int
	HNSWEFConstruct   int
	MaxScanCandidates int
}

// New creates a vector index over opportunity embedding records.
// searchTotal is a counter vec with labels "path" and "status", passed explicitly.
func New(s store, cfg Config, searchTotal *prometheus.CounterVec, logger *zap.Logger) *Index {
	return &Index{
		store:       s,
		dims:        cfg.Dims,
		hnswM:       cfg.HNSWM,
		hnswEF:      cfg.HNSWEFConstruct,
		maxScan:     cfg.MaxScanCandidates,
		searchTotal: searchTotal,
		logger:      logger,
	}
}

// EnsureIndex creates the FT index if the store supports it. An existing
// index is fine; a store without the search module is fine too, retrieval
// will take the scan path.
func (x *Index) EnsureIndex(ctx context.Context) error {
	def := embedding.IndexDefinition(domain.KindOpportunity, x.dims, x.hnswM, x.hnswEF)
	err := x.store.CreateIndex(ctx, def)
	switch {
	case err == nil:
		x.logger.Info("Vector index created", zap.String("index", def.Name))
		return nil
	case errors.Is(err, db.ErrIndexExists):
		return nil
	case errors.Is(err, db.ErrNoVectorIndex):
		x.logger.Warn("Store has no search module, similarity will use full scans")
		return nil
	default:
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
}

// TopK returns the k best-matching candidates for the query vector,
// restricted to active opportunities satisfying the filters. An empty
// result is not an error.
func (x *Index) TopK(ctx context.Context, vector []float32, f *domain.Filters, k int) ([]Hit, error) {
	if x.store.SupportsVectorSearch(ctx) {
		hits, err := x.nativeTopK(ctx, vector, f, k)
		if err == nil {
			x.incSearch("native", "ok")
			return hits, nil
		}
		if !errors.Is(err, db.ErrNoVectorIndex) && !errors.Is(err, db.ErrIndexNotFound) {
			x.incSearch("native", "error")
			return nil, err
		}
		x.logger.Warn("Native KNN unavailable, degrading to scan", zap.Error(err))
	}

	hits, err := x.bruteTopK(ctx, vector, f, k)
	if err != nil {
		x.incSearch("fallback", "error")
		return nil, err
	}
	x.incSearch("fallback", "ok")
	return hits, nil
}

// CandidatePool counts active opportunities carrying an embedding.
func (x *Index) CandidatePool(ctx context.Context) (int, error) {
	if x.store.SupportsVectorSearch(ctx) {
		n, err := x.store.SearchCount(ctx,
			embedding.IndexName(domain.KindOpportunity),
			fmt.Sprintf("@%s:{1}", embedding.FieldActive))
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, db.ErrNoVectorIndex) && !errors.Is(err, db.ErrIndexNotFound) {
			return 0, err
		}
	}
	return x.bruteCandidatePool(ctx)
}

func (x *Index) incSearch(path, status string) {
	if x.searchTotal != nil {
		x.searchTotal.WithLabelValues(path, status).Inc()
	}
}
