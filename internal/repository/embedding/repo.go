package embedding

import (
	"context"
	"fmt"

	"github.com/labscout/labscout/internal/db"
	"github.com/labscout/labscout/internal/domain"
)

// store is the consumer interface for embedding records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo persists embedding records as hashes, one per (kind, entity).
type Repo struct {
	store store
	dims  int
}

// New creates an embedding record repository. dims is the expected vector
// dimensionality; zero disables the check.
func New(s store, dims int) *Repo {
	return &Repo{store: s, dims: dims}
}

// Upsert writes a record, replacing any previous one for the same entity.
// For opportunity records facets supplies the filter attributes to
// denormalize into the hash; pass nil for user records.
func (r *Repo) Upsert(ctx context.Context, rec *domain.EmbeddingRecord, facets *domain.Opportunity) error {
	if r.dims > 0 && len(rec.Vector) != r.dims {
		return fmt.Errorf("vector has %d dims, want %d: %w",
			len(rec.Vector), r.dims, domain.ErrVectorDimMismatch)
	}
	key := Key(rec.Kind, rec.EntityID)
	if err := r.store.HSet(ctx, key, buildHashFields(rec, facets)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Get returns the record for one entity.
func (r *Repo) Get(ctx context.Context, kind domain.Kind, id int64) (domain.EmbeddingRecord, error) {
	key := Key(kind, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domain.EmbeddingRecord{}, domain.ErrNotFound
	}
	return parseRecord(kind, id, m)
}

// Exists reports whether a record is stored for the entity.
func (r *Repo) Exists(ctx context.Context, kind domain.Kind, id int64) (bool, error) {
	ok, err := r.store.Exists(ctx, Key(kind, id))
	if err != nil {
		return false, fmt.Errorf("exists %s/%d: %w", kind, id, err)
	}
	return ok, nil
}

// Delete removes the record for one entity. Deleting a missing record is a no-op.
func (r *Repo) Delete(ctx context.Context, kind domain.Kind, id int64) error {
	if err := r.store.Del(ctx, Key(kind, id)); err != nil {
		return fmt.Errorf("del %s/%d: %w", kind, id, err)
	}
	return nil
}

// Count returns the number of stored records of a kind.
func (r *Repo) Count(ctx context.Context, kind domain.Kind) (int, error) {
	keys, err := r.store.Scan(ctx, KeyPattern(kind))
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", kind, err)
	}
	return len(keys), nil
}

// IndexDefinition builds the FT schema for a kind's records. Only
// opportunity records carry filter fields, but the vector field is shared.
func IndexDefinition(kind domain.Kind, dims, m, efConstruct int) *db.IndexDefinition {
	fields := []db.IndexField{
		{
			Name:              FieldVector,
			Type:              db.IndexFieldVector,
			VectorAlgo:        db.VectorHNSW,
			VectorDim:         dims,
			VectorDistance:    db.DistanceCosine,
			VectorM:           m,
			VectorEFConstruct: efConstruct,
		},
	}
	if kind == domain.KindOpportunity {
		fields = append(fields,
			db.IndexField{Name: FieldState, Type: db.IndexFieldTag},
			db.IndexField{Name: FieldDegrees, Type: db.IndexFieldTag, TagSeparator: DegreeSeparator},
			db.IndexField{Name: FieldRemote, Type: db.IndexFieldTag},
			db.IndexField{Name: FieldPaidType, Type: db.IndexFieldTag},
			db.IndexField{Name: FieldMinHours, Type: db.IndexFieldNumeric},
			db.IndexField{Name: FieldMaxHours, Type: db.IndexFieldNumeric},
			db.IndexField{Name: FieldActive, Type: db.IndexFieldTag},
		)
	}
	return &db.IndexDefinition{
		Name:        IndexName(kind),
		StorageType: db.StorageHash,
		Prefixes:    []string{fmt.Sprintf("%semb:%s:", domain.KeyPrefix, kind)},
		Fields:      fields,
	}
}
