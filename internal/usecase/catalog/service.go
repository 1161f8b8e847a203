package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/labscout/labscout/internal/domain"
)

// Page is one slice of the opportunity listing.
type Page struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
	Total         int                  `json:"total"`
	Offset        int                  `json:"offset"`
	Limit         int                  `json:"limit"`
}

// Service handles opportunity and user catalog mutations and keeps the
// embedding records in step with them.
type Service struct {
	docs   Documents
	embeds Embeddings
	logger *zap.Logger
}

// New creates a catalog service.
func New(docs Documents, embeds Embeddings, logger *zap.Logger) *Service {
	return &Service{docs: docs, embeds: embeds, logger: logger}
}

// UpsertOpportunity stores an opportunity and re-ensures its embedding.
// Returns true when the opportunity did not exist before.
func (s *Service) UpsertOpportunity(ctx context.Context, o *domain.Opportunity) (bool, error) {
	if err := validateOpportunity(o); err != nil {
		return false, err
	}

	created, err := s.docs.UpsertOpportunity(ctx, o)
	if err != nil {
		return false, fmt.Errorf("upsert opportunity: %w", err)
	}

	// The ensure path skips unchanged text, so this is cheap on no-op edits.
	// An embedding failure does not roll back the catalog write; the record
	// is recoverable through the generate-all endpoint.
	if _, err := s.embeds.EnsureOpportunity(ctx, o.ID, false); err != nil {
		s.logger.Warn("opportunity stored but embedding not refreshed",
			zap.Int64("opportunity_id", o.ID),
			zap.Error(err),
		)
	}

	return created, nil
}

// GetOpportunity retrieves a single opportunity.
func (s *Service) GetOpportunity(ctx context.Context, id int64) (domain.Opportunity, error) {
	o, err := s.docs.GetOpportunity(ctx, id)
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("get opportunity: %w", err)
	}
	return o, nil
}

// ListOpportunities returns one page of the catalog ordered by ID.
func (s *Service) ListOpportunities(ctx context.Context, offset, limit int) (Page, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}

	ids, err := s.docs.ListOpportunityIDs(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("list opportunities: %w", err)
	}

	page := Page{Total: len(ids), Offset: offset, Limit: limit, Opportunities: []domain.Opportunity{}}
	if offset >= len(ids) {
		return page, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}

	opps, err := s.docs.GetOpportunities(ctx, ids[offset:end])
	if err != nil {
		return Page{}, fmt.Errorf("list opportunities: %w", err)
	}
	page.Opportunities = opps
	return page, nil
}

// DeleteOpportunity removes an opportunity and its embedding record.
func (s *Service) DeleteOpportunity(ctx context.Context, id int64) error {
	if err := s.docs.DeleteOpportunity(ctx, id); err != nil {
		return fmt.Errorf("delete opportunity: %w", err)
	}
	if err := s.embeds.Delete(ctx, domain.KindOpportunity, id); err != nil {
		s.logger.Warn("opportunity deleted but embedding record remains",
			zap.Int64("opportunity_id", id),
			zap.Error(err),
		)
	}
	return nil
}

// SetUserInterests stores a user's research interest statement and
// re-ensures the user embedding. An empty statement drops the embedding.
func (s *Service) SetUserInterests(ctx context.Context, id int64, interests string) (domain.User, error) {
	if id <= 0 {
		return domain.User{}, fmt.Errorf("user id must be positive: %w", domain.ErrInvalidInput)
	}

	u := domain.User{ID: id, ResearchInterests: strings.TrimSpace(interests)}
	if _, err := s.docs.UpsertUser(ctx, &u); err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}

	if _, err := s.embeds.EnsureUser(ctx, id, false); err != nil {
		s.logger.Warn("user stored but embedding not refreshed",
			zap.Int64("user_id", id),
			zap.Error(err),
		)
	}

	return u, nil
}

// GetUser retrieves a user profile.
func (s *Service) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.docs.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func validateOpportunity(o *domain.Opportunity) error {
	if o.ID <= 0 {
		return fmt.Errorf("opportunity id must be positive: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(o.Title) == "" {
		return fmt.Errorf("opportunity title is required: %w", domain.ErrInvalidInput)
	}
	f := filtersFromOpportunity(o)
	if err := f.Validate(); err != nil {
		return err
	}
	return nil
}

// filtersFromOpportunity reuses the filter vocabulary and hour range
// checks for the opportunity's own facet values.
func filtersFromOpportunity(o *domain.Opportunity) domain.Filters {
	f := domain.Filters{
		DegreeLevels: o.DegreeLevels,
		PaidType:     o.PaidType,
		MinHours:     o.MinHours,
		MaxHours:     o.MaxHours,
	}
	if o.LocationState != "" {
		f.States = []string{o.LocationState}
	}
	return f
}
