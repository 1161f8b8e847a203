package vectorindex

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/labscout/labscout/internal/db"
	"github.com/labscout/labscout/internal/domain"
	"github.com/labscout/labscout/internal/repository/embedding"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	vectorSearch bool

	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error

	// in-memory corpus backing Scan and HGetAllMulti
	records map[string]map[string]string
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) SupportsVectorSearch(context.Context) bool {
	return m.vectorSearch
}

func (m *mockStore) Scan(_ context.Context, _ string) ([]string, error) {
	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.records[k]
	}
	return out, nil
}

func (m *mockStore) put(id int64, vec []float32, facets domain.Opportunity) {
	if m.records == nil {
		m.records = make(map[string]map[string]string)
	}
	fields := map[string]string{
		embedding.FieldVector:   encodeVector(vec),
		embedding.FieldRemote:   boolTag(facets.IsRemote),
		embedding.FieldActive:   boolTag(facets.IsActive),
		embedding.FieldMinHours: fmt.Sprintf("%d", embedding.OpenMinHours),
		embedding.FieldMaxHours: fmt.Sprintf("%d", embedding.OpenMaxHours),
	}
	if facets.LocationState != "" {
		fields[embedding.FieldState] = facets.LocationState
	}
	if len(facets.DegreeLevels) > 0 {
		fields[embedding.FieldDegrees] = joinDegrees(facets.DegreeLevels)
	}
	if facets.PaidType != "" {
		fields[embedding.FieldPaidType] = facets.PaidType
	}
	if facets.MinHours != nil {
		fields[embedding.FieldMinHours] = fmt.Sprintf("%d", *facets.MinHours)
	}
	if facets.MaxHours != nil {
		fields[embedding.FieldMaxHours] = fmt.Sprintf("%d", *facets.MaxHours)
	}
	m.records[embedding.Key(domain.KindOpportunity, id)] = fields
}

func newTestIndex(ms *mockStore) *Index {
	return New(ms, Config{Dims: 4, MaxScanCandidates: 100}, nil, zap.NewNop())
}

func encodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func boolTag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func joinDegrees(ds []string) string {
	out := ""
	for i, d := range ds {
		if i > 0 {
			out += embedding.DegreeSeparator
		}
		out += d
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }
