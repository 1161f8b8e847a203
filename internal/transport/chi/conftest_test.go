package chi

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/labscout/labscout/internal/domain"
	"github.com/labscout/labscout/internal/repository/vectorindex"
	cataloguc "github.com/labscout/labscout/internal/usecase/catalog"
	embeddinguc "github.com/labscout/labscout/internal/usecase/embedding"
	healthuc "github.com/labscout/labscout/internal/usecase/health"
	searchuc "github.com/labscout/labscout/internal/usecase/search"
)

// fakeBackend is an in-memory stand-in for the repository layer, shared by
// every usecase behind one router.
type fakeBackend struct {
	mu      sync.Mutex
	opps    map[int64]domain.Opportunity
	users   map[int64]domain.User
	records map[int64]domain.EmbeddingRecord // opportunity kind
	userRec map[int64]domain.EmbeddingRecord
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		opps:    make(map[int64]domain.Opportunity),
		users:   make(map[int64]domain.User),
		records: make(map[int64]domain.EmbeddingRecord),
		userRec: make(map[int64]domain.EmbeddingRecord),
	}
}

func (f *fakeBackend) recMap(kind domain.Kind) map[int64]domain.EmbeddingRecord {
	if kind == domain.KindUser {
		return f.userRec
	}
	return f.records
}

// --- embedding.Records ---

func (f *fakeBackend) Upsert(_ context.Context, rec *domain.EmbeddingRecord, _ *domain.Opportunity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recMap(rec.Kind)[rec.EntityID] = *rec
	return nil
}

func (f *fakeBackend) Get(_ context.Context, kind domain.Kind, id int64) (domain.EmbeddingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recMap(kind)[id]
	if !ok {
		return domain.EmbeddingRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeBackend) Delete(_ context.Context, kind domain.Kind, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recMap(kind), id)
	return nil
}

func (f *fakeBackend) Count(_ context.Context, kind domain.Kind) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recMap(kind)), nil
}

// --- catalog repositories ---

func (f *fakeBackend) UpsertOpportunity(_ context.Context, o *domain.Opportunity) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, existed := f.opps[o.ID]
	f.opps[o.ID] = *o
	return !existed, nil
}

func (f *fakeBackend) GetOpportunity(_ context.Context, id int64) (domain.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.opps[id]
	if !ok {
		return domain.Opportunity{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *fakeBackend) GetOpportunities(_ context.Context, ids []int64) ([]domain.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Opportunity, 0, len(ids))
	for _, id := range ids {
		if o, ok := f.opps[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeBackend) DeleteOpportunity(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.opps[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.opps, id)
	return nil
}

func (f *fakeBackend) ListOpportunityIDs(_ context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.opps))
	for id := range f.opps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeBackend) UpsertUser(_ context.Context, u *domain.User) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, existed := f.users[u.ID]
	f.users[u.ID] = *u
	return !existed, nil
}

func (f *fakeBackend) GetUser(_ context.Context, id int64) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeBackend) ListUserIDs(_ context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// --- search.Index ---

func (f *fakeBackend) TopK(_ context.Context, vector []float32, fl *domain.Filters, k int) ([]vectorindex.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hits := make([]vectorindex.Hit, 0, len(f.records))
	for id, rec := range f.records {
		o, ok := f.opps[id]
		if !ok || !fl.Matches(&o) {
			continue
		}
		cos := domain.CosineSimilarity(vector, rec.Vector)
		hits = append(hits, vectorindex.Hit{EntityID: id, Score: domain.SimilarityScore(cos)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].EntityID < hits[j].EntityID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *fakeBackend) CandidatePool(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id := range f.records {
		if o, ok := f.opps[id]; ok && o.IsActive {
			n++
		}
	}
	return n, nil
}

// --- health deps ---

func (f *fakeBackend) Ping(_ context.Context) error { return nil }

func (f *fakeBackend) SupportsVectorSearch(_ context.Context) bool { return false }

// wordEmbedder maps known phrases to fixed vectors so rankings are
// deterministic without a provider.
type wordEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *wordEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	v, ok := e.vectors[text]
	if !ok {
		v = []float32{1, 0, 0}
	}
	return domain.EmbeddingResult{Embedding: v, TotalTokens: 2}, nil
}

type testHarness struct {
	backend  *fakeBackend
	embedder *wordEmbedder
	handler  http.Handler
}

func newTestHarness(apiKeys []string) *testHarness {
	backend := newFakeBackend()
	embedder := &wordEmbedder{vectors: map[string][]float32{}}
	logger := zap.NewNop()

	embedSvc := embeddinguc.New(backend, backend, embedder, "test-model", 2, logger)
	searchSvc := searchuc.New(backend, backend, embedder,
		searchuc.Config{MinQueryChars: 10, DefaultLimit: 10, MaxLimit: 100}, logger)
	catalogSvc := cataloguc.New(backend, embedSvc, logger)
	healthSvc := healthuc.New(backend, nil, backend)

	srv := NewServer(searchSvc, catalogSvc, embedSvc, healthSvc, logger)
	return &testHarness{
		backend:  backend,
		embedder: embedder,
		handler:  srv.Router(BearerAuthMiddleware(apiKeys)),
	}
}
