package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/labscout/labscout/internal/domain"
)

// Hash field names of an embedding record. Opportunity records additionally
// carry denormalized filter fields so FT.SEARCH can pre-filter candidates
// without touching the catalog.
const (
	FieldVector     = "__vector"
	FieldModel      = "model"
	FieldSourceText = "source_text"
	FieldUpdatedAt  = "updated_at"

	FieldState    = "state"
	FieldDegrees  = "degree_levels"
	FieldRemote   = "is_remote"
	FieldPaidType = "paid_type"
	FieldMinHours = "min_hours"
	FieldMaxHours = "max_hours"
	FieldActive   = "active"
)

// Numeric sentinels standing in for open hour bounds, so that range
// predicates work on documents without an hour commitment. Both sit
// outside the validated hour range, so no stored value collides with them.
const (
	OpenMinHours = -1
	OpenMaxHours = 10000
)

// DegreeSeparator joins degree levels into a single TAG field value.
const DegreeSeparator = ","

// Key returns the hash key for one embedding record.
func Key(kind domain.Kind, id int64) string {
	return fmt.Sprintf("%semb:%s:%d", domain.KeyPrefix, kind, id)
}

// KeyPattern returns the SCAN pattern covering all records of a kind.
func KeyPattern(kind domain.Kind) string {
	return fmt.Sprintf("%semb:%s:*", domain.KeyPrefix, kind)
}

// IndexName returns the FT index name for a kind's records.
func IndexName(kind domain.Kind) string {
	return fmt.Sprintf("%semb:%s:idx", domain.KeyPrefix, kind)
}

// EntityIDFromKey extracts the entity ID from a record key.
func EntityIDFromKey(key string, kind domain.Kind) (int64, error) {
	prefix := fmt.Sprintf("%semb:%s:", domain.KeyPrefix, kind)
	raw := strings.TrimPrefix(key, prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("embedding key %q: %w", key, err)
	}
	return id, nil
}

// buildHashFields flattens a record into HSET fields. For opportunity
// records facets carries the filterable attributes to denormalize.
func buildHashFields(rec *domain.EmbeddingRecord, facets *domain.Opportunity) map[string]string {
	m := map[string]string{
		FieldVector:     vectorToBytes(rec.Vector),
		FieldModel:      rec.ModelName,
		FieldSourceText: rec.SourceText,
		FieldUpdatedAt:  rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if facets != nil {
		applyFacetFields(m, facets)
	}
	return m
}

// applyFacetFields writes every facet field, empty or sentinel when the
// opportunity has no value. HSET merges into an existing hash, so a partial
// write would leave stale values behind after a facet is cleared on the
// catalog side.
func applyFacetFields(m map[string]string, o *domain.Opportunity) {
	m[FieldState] = strings.ToUpper(o.LocationState)
	lower := make([]string, len(o.DegreeLevels))
	for i, d := range o.DegreeLevels {
		lower[i] = strings.ToLower(d)
	}
	m[FieldDegrees] = strings.Join(lower, DegreeSeparator)
	m[FieldRemote] = boolTag(o.IsRemote)
	m[FieldPaidType] = strings.ToLower(o.PaidType)
	m[FieldMinHours] = strconv.Itoa(hourOrSentinel(o.MinHours, OpenMinHours))
	m[FieldMaxHours] = strconv.Itoa(hourOrSentinel(o.MaxHours, OpenMaxHours))
	m[FieldActive] = boolTag(o.IsActive)
}

// parseRecord converts hash fields back into a record.
func parseRecord(kind domain.Kind, id int64, m map[string]string) (domain.EmbeddingRecord, error) {
	vec, err := bytesToVector(m[FieldVector])
	if err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("record %s/%d: %w", kind, id, err)
	}
	rec := domain.EmbeddingRecord{
		Kind:       kind,
		EntityID:   id,
		Vector:     vec,
		ModelName:  m[FieldModel],
		SourceText: m[FieldSourceText],
	}
	if raw := m[FieldUpdatedAt]; raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			rec.UpdatedAt = ts
		}
	}
	return rec, nil
}

// ParseFacets reconstructs the filterable attributes from a record's hash
// fields. Sentinel hour bounds map back to open bounds so the in-memory
// predicate sees the same document the index does.
func ParseFacets(m map[string]string) domain.Opportunity {
	o := domain.Opportunity{
		LocationState: m[FieldState],
		IsRemote:      m[FieldRemote] == "1",
		PaidType:      m[FieldPaidType],
		IsActive:      m[FieldActive] == "1",
	}
	if raw := m[FieldDegrees]; raw != "" {
		o.DegreeLevels = strings.Split(raw, DegreeSeparator)
	}
	if n, err := strconv.Atoi(m[FieldMinHours]); err == nil && n != OpenMinHours {
		o.MinHours = &n
	}
	if n, err := strconv.Atoi(m[FieldMaxHours]); err == nil && n != OpenMaxHours {
		o.MaxHours = &n
	}
	return o
}

func boolTag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func hourOrSentinel(h *int, sentinel int) int {
	if h == nil {
		return sentinel
	}
	return *h
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// BytesToVector deserializes a binary string back to []float32.
func BytesToVector(s string) ([]float32, error) {
	return bytesToVector(s)
}

func bytesToVector(s string) ([]float32, error) {
	if len(s)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d (not multiple of 4)", len(s))
	}
	b := []byte(s)
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
