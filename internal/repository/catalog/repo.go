package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labscout/labscout/internal/db"
	"github.com/labscout/labscout/internal/domain"
)

// store is the consumer interface for catalog documents (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo stores opportunities and user profiles as JSON documents.
type Repo struct {
	store store
}

// New creates a catalog repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// UpsertOpportunity creates or updates an opportunity. Returns true if created.
func (r *Repo) UpsertOpportunity(ctx context.Context, o *domain.Opportunity) (bool, error) {
	o.UpdatedAt = time.Now().UTC()
	return r.upsert(ctx, oppKey(o.ID), o)
}

// GetOpportunity returns one opportunity by ID.
func (r *Repo) GetOpportunity(ctx context.Context, id int64) (domain.Opportunity, error) {
	var o domain.Opportunity
	if err := r.get(ctx, oppKey(id), &o); err != nil {
		return domain.Opportunity{}, err
	}
	return o, nil
}

// GetOpportunities fetches a batch of opportunities in one round-trip,
// preserving the order of ids. Missing IDs are skipped, not errors.
func (r *Repo) GetOpportunities(ctx context.Context, ids []int64) ([]domain.Opportunity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = oppKey(id)
	}

	raws, err := r.store.JSONGetMulti(ctx, keys, "$")
	if err != nil {
		return nil, fmt.Errorf("json.get multi: %w", err)
	}

	out := make([]domain.Opportunity, 0, len(ids))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		var o domain.Opportunity
		if err := unwrapJSON(raw, &o); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", keys[i], err)
		}
		out = append(out, o)
	}
	return out, nil
}

// DeleteOpportunity removes an opportunity.
func (r *Repo) DeleteOpportunity(ctx context.Context, id int64) error {
	return r.delete(ctx, oppKey(id))
}

// ListOpportunityIDs returns all catalog opportunity IDs in ascending order.
func (r *Repo) ListOpportunityIDs(ctx context.Context) ([]int64, error) {
	return r.listIDs(ctx, oppKeyPrefix)
}

// CountOpportunities returns the number of stored opportunities.
func (r *Repo) CountOpportunities(ctx context.Context) (int, error) {
	keys, err := r.store.Scan(ctx, oppKeyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan opportunities: %w", err)
	}
	return len(keys), nil
}

// UpsertUser creates or updates a user profile. Returns true if created.
func (r *Repo) UpsertUser(ctx context.Context, u *domain.User) (bool, error) {
	u.UpdatedAt = time.Now().UTC()
	return r.upsert(ctx, userKey(u.ID), u)
}

// GetUser returns one user profile by ID.
func (r *Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	if err := r.get(ctx, userKey(id), &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// DeleteUser removes a user profile.
func (r *Repo) DeleteUser(ctx context.Context, id int64) error {
	return r.delete(ctx, userKey(id))
}

// ListUserIDs returns all stored user IDs in ascending order.
func (r *Repo) ListUserIDs(ctx context.Context) ([]int64, error) {
	return r.listIDs(ctx, userKeyPrefix)
}

func (r *Repo) upsert(ctx context.Context, key string, doc any) (bool, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("marshal %s: %w", key, err)
	}

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return false, fmt.Errorf("json.set %s: %w", key, err)
	}
	return !exists, nil
}

func (r *Repo) get(ctx context.Context, key string, out any) error {
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("json.get %s: %w", key, err)
	}
	if err := unwrapJSON(raw, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (r *Repo) delete(ctx context.Context, key string) error {
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func (r *Repo) listIDs(ctx context.Context, prefix string) ([]int64, error) {
	keys, err := r.store.Scan(ctx, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}

	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// unwrapJSON unmarshals a JSON.GET "$" result, which wraps the document
// in a one-element array.
func unwrapJSON(raw []byte, out any) error {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var docs []json.RawMessage
		if err := json.Unmarshal(raw, &docs); err != nil {
			return err
		}
		if len(docs) == 0 {
			return domain.ErrNotFound
		}
		return json.Unmarshal(docs[0], out)
	}
	return json.Unmarshal(raw, out)
}

var (
	oppKeyPrefix  = domain.KeyPrefix + "opp:"
	userKeyPrefix = domain.KeyPrefix + "user:"
)

func oppKey(id int64) string {
	return oppKeyPrefix + strconv.FormatInt(id, 10)
}

func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}
