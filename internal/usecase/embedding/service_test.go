package embedding

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/labscout/labscout/internal/domain"
)

// --- Mocks ---

type mockRecords struct {
	mu      sync.Mutex
	records map[string]domain.EmbeddingRecord
	facets  map[string]*domain.Opportunity

	upsertErr error
	deleteErr error
}

func newMockRecords() *mockRecords {
	return &mockRecords{
		records: make(map[string]domain.EmbeddingRecord),
		facets:  make(map[string]*domain.Opportunity),
	}
}

func recKey(kind domain.Kind, id int64) string {
	return string(kind) + "/" + strconv.FormatInt(id, 10)
}

func (m *mockRecords) Upsert(_ context.Context, rec *domain.EmbeddingRecord, facets *domain.Opportunity) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recKey(rec.Kind, rec.EntityID)] = *rec
	m.facets[recKey(rec.Kind, rec.EntityID)] = facets
	return nil
}

func (m *mockRecords) Get(_ context.Context, kind domain.Kind, id int64) (domain.EmbeddingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recKey(kind, id)]
	if !ok {
		return domain.EmbeddingRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *mockRecords) Delete(_ context.Context, kind domain.Kind, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, recKey(kind, id))
	return nil
}

func (m *mockRecords) Count(_ context.Context, kind domain.Kind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if rec.Kind == kind {
			n++
		}
	}
	return n, nil
}

type mockCatalog struct {
	opps  map[int64]domain.Opportunity
	users map[int64]domain.User
}

func (m *mockCatalog) GetOpportunity(_ context.Context, id int64) (domain.Opportunity, error) {
	o, ok := m.opps[id]
	if !ok {
		return domain.Opportunity{}, domain.ErrNotFound
	}
	return o, nil
}

func (m *mockCatalog) GetUser(_ context.Context, id int64) (domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *mockCatalog) ListOpportunityIDs(_ context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(m.opps))
	for id := range m.opps {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockCatalog) ListUserIDs(_ context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	return ids, nil
}

type mockEmbedder struct {
	calls  atomic.Int64
	err    error
	failOn string // text that triggers err
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.err != nil && (m.failOn == "" || m.failOn == text) {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 5}, nil
}

func newTestService(rec *mockRecords, cat *mockCatalog, emb *mockEmbedder) *Service {
	return New(rec, cat, emb, "test-model", 4, zap.NewNop())
}

// --- Tests ---

func TestEnsureOpportunity_CreatesOnFirstCall(t *testing.T) {
	rec := newMockRecords()
	cat := &mockCatalog{opps: map[int64]domain.Opportunity{
		1: {ID: 1, Title: "CRISPR lab", Description: "gene editing", IsActive: true},
	}}
	emb := &mockEmbedder{}
	svc := newTestService(rec, cat, emb)

	status, err := svc.EnsureOpportunity(context.Background(), 1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusCreated {
		t.Errorf("expected created, got %s", status)
	}

	stored, err := rec.Get(context.Background(), domain.KindOpportunity, 1)
	if err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	if stored.SourceText != "CRISPR lab. gene editing" {
		t.Errorf("unexpected source text: %q", stored.SourceText)
	}
	if stored.ModelName != "test-model" {
		t.Errorf("unexpected model: %s", stored.ModelName)
	}
	if rec.facets[recKey(domain.KindOpportunity, 1)] == nil {
		t.Error("expected facets to be written for opportunities")
	}
}

func TestEnsureOpportunity_SecondCallSkipsWithoutProviderCall(t *testing.T) {
	rec := newMockRecords()
	cat := &mockCatalog{opps: map[int64]domain.Opportunity{
		1: {ID: 1, Title: "CRISPR lab", Description: "gene editing", IsActive: true},
	}}
	emb := &mockEmbedder{}
	svc := newTestService(rec, cat, emb)

	if _, err := svc.EnsureOpportunity(context.Background(), 1, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	callsAfterFirst := emb.calls.Load()

	status, err := svc.EnsureOpportunity(context.Background(), 1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusSkipped {
		t.Errorf("expected skipped, got %s", status)
	}
	if emb.calls.Load() != callsAfterFirst {
		t.Errorf("unchanged text must not call the provider (calls %d -> %d)",
			callsAfterFirst, emb.calls.Load())
	}
}

func TestEnsureOpportunity_TextChangeRegenerates(t *testing.T) {
	rec := newMockRecords()
	cat := &mockCatalog{opps: map[int64]domain.Opportunity{
		1: {ID: 1, Title: "CRISPR lab", IsActive: true},
	}}
	emb := &mockEmbedder{}
	svc := newTestService(rec, cat, emb)

	if _, err := svc.EnsureOpportunity(context.Background(), 1, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cat.opps[1] = domain.Opportunity{ID: 1, Title: "Protein folding lab", IsActive: true}
	status, err := svc.EnsureOpportunity(context.Background(), 1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusUpdated {
		t.Errorf("expected updated, got %s", status)
	}
}

func TestEnsureOpportunity_ForceRegenerates(t *testing.T) {
	rec := newMockRecords()
	cat := &mockCatalog{opps: map[int64]domain.Opportunity{
		1: {ID: 1, Title: "CRISPR lab", IsActive: true},
	}}
	emb := &mockEmbedder{}
	svc := newTestService(rec, cat, emb)

	if _, err := svc.EnsureOpportunity(context.Background(), 1, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := svc.EnsureOpportunity(context.Background(), 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusUpdated {
		t.Errorf("expected updated under force, got %s", status)
	}
	if emb.calls.Load() != 2 {
		t.Errorf("expected 2 provider calls, got %d", emb.calls.Load())
	}
}

func TestEnsure_EmptyTextSkipsAndDropsRecord(t *testing.T) {
	rec := newMockRecords()
	cat := &mockCatalog{users: map[int64]domain.User{
		7: {ID: 7, ResearchInterests: "neuroscience"},
	}}
	emb := &mockEmbedder{}
	svc := newTestService(rec, cat, emb)

	if _, err := svc.EnsureUser(context.Background(), 7, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cat.users[7] = domain.User{ID: 7, ResearchInterests: "   "}
	status, err := svc.EnsureUser(context.Background(), 7, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusSkipped {
		t.Errorf("expected skipped, got %s", status)
	}
	if _, err := rec.Get(context.Background(), domain.KindUser, 7); !errors.Is(err, domain.ErrNotFound) {
		t.Error("stale record should be dropped when text becomes empty")
	}
}

func TestEnsureUser_MissingEntity(t *testing.T) {
	svc := newTestService(newMockRecords(), &mockCatalog{}, &mockEmbedder{})

	_, err := svc.EnsureUser(context.Background(), 404, false)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerateAll_CountsAndIsolatesFailures(t *testing.T) {
	rec := newMockRecords()
	cat := &mockCatalog{opps: map[int64]domain.Opportunity{
		1: {ID: 1, Title: "good one", IsActive: true},
		2: {ID: 2, Title: "bad one", IsActive: true},
		3: {ID: 3, Title: "", Description: ""}, // nothing to embed
	}}
	emb := &mockEmbedder{err: errors.New("provider down"), failOn: "bad one"}
	svc := newTestService(rec, cat, emb)

	summary, err := svc.GenerateAll(context.Background(), domain.KindOpportunity, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Processed != 1 {
		t.Errorf("expected 1 processed, got %d", summary.Processed)
	}
	if summary.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", summary.Skipped)
	}
	if summary.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", summary.Failed)
	}
}

func TestGenerateAll_SecondRunAllSkipped(t *testing.T) {
	rec := newMockRecords()
	cat := &mockCatalog{users: map[int64]domain.User{
		1: {ID: 1, ResearchInterests: "robotics"},
		2: {ID: 2, ResearchInterests: "genomics"},
	}}
	emb := &mockEmbedder{}
	svc := newTestService(rec, cat, emb)

	if _, err := svc.GenerateAll(context.Background(), domain.KindUser, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	callsAfterFirst := emb.calls.Load()

	summary, err := svc.GenerateAll(context.Background(), domain.KindUser, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Skipped != 2 || summary.Processed != 0 {
		t.Errorf("expected all skipped, got %+v", summary)
	}
	if emb.calls.Load() != callsAfterFirst {
		t.Errorf("second run must not call the provider")
	}
}

func TestGenerateAll_UnknownKind(t *testing.T) {
	svc := newTestService(newMockRecords(), &mockCatalog{}, &mockEmbedder{})

	_, err := svc.GenerateAll(context.Background(), domain.Kind("widget"), false)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCollectStats(t *testing.T) {
	rec := newMockRecords()
	cat := &mockCatalog{
		opps: map[int64]domain.Opportunity{
			1: {ID: 1, Title: "a", IsActive: true},
			2: {ID: 2, Title: "b", IsActive: true},
		},
		users: map[int64]domain.User{
			5: {ID: 5, ResearchInterests: "ml"},
		},
	}
	emb := &mockEmbedder{}
	svc := newTestService(rec, cat, emb)

	empty, err := svc.CollectStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty.Ready {
		t.Error("search must not report ready without opportunity embeddings")
	}

	// embed only one opportunity and the user
	if _, err := svc.EnsureOpportunity(context.Background(), 1, false); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.EnsureUser(context.Background(), 5, false); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.CollectStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Opportunities.Total != 2 || stats.Opportunities.Embedded != 1 {
		t.Errorf("unexpected opportunity stats: %+v", stats.Opportunities)
	}
	if stats.Users.Total != 1 || stats.Users.Embedded != 1 {
		t.Errorf("unexpected user stats: %+v", stats.Users)
	}
	if !stats.Ready {
		t.Error("search must report ready once an opportunity embedding exists")
	}
}
