package chi

import (
	"github.com/labscout/labscout/internal/domain"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error response codes.
const (
	codeBadRequest          = "bad_request"
	codeValidationFailed    = "validation_failed"
	codeQueryTooShort       = "query_too_short"
	codeNotFound            = "not_found"
	codeRateLimited         = "rate_limited"
	codeProviderUnavailable = "embedding_provider_unavailable"
	codeEmbeddingProvider   = "embedding_provider_error"
	codeSearchOverloaded    = "search_overloaded"
	codeInternalError       = "internal_error"
)

// searchRequest is the body of POST /api/v1/opportunities/search.
type searchRequest struct {
	Query   string             `json:"query"`
	Filters *searchFiltersBody `json:"filters,omitempty"`
	Limit   int                `json:"limit,omitempty"`
}

type searchFiltersBody struct {
	States       []string `json:"states,omitempty"`
	DegreeLevels []string `json:"degree_levels,omitempty"`
	IsRemote     *bool    `json:"is_remote,omitempty"`
	PaidType     string   `json:"paid_type,omitempty"`
	MinHours     *int     `json:"min_hours,omitempty"`
	MaxHours     *int     `json:"max_hours,omitempty"`
}

func (b *searchFiltersBody) toDomain() *domain.Filters {
	if b == nil {
		return nil
	}
	return &domain.Filters{
		States:       b.States,
		DegreeLevels: b.DegreeLevels,
		IsRemote:     b.IsRemote,
		PaidType:     b.PaidType,
		MinHours:     b.MinHours,
		MaxHours:     b.MaxHours,
	}
}

// searchResultItem flattens an opportunity with its similarity score.
type searchResultItem struct {
	domain.Opportunity
	SimilarityScore float64 `json:"similarity_score"`
}

type searchResponse struct {
	Query              string             `json:"query"`
	Results            []searchResultItem `json:"results"`
	Count              int                `json:"count"`
	TotalCandidatePool int                `json:"total_candidate_pool"`
}

// interestsRequest is the body of PUT /api/v1/users/{id}/interests.
type interestsRequest struct {
	ResearchInterests string `json:"research_interests"`
}

type ensureResponse struct {
	Status string `json:"status"`
}
