package sdk

// Opportunity mirrors the server's catalog document.
type Opportunity struct {
	ID              int64    `json:"opportunity_id,omitempty"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	LabName         string   `json:"lab_name,omitempty"`
	PIName          string   `json:"pi_name,omitempty"`
	Institution     string   `json:"institution,omitempty"`
	LocationCity    string   `json:"location_city,omitempty"`
	LocationState   string   `json:"location_state,omitempty"`
	IsRemote        bool     `json:"is_remote,omitempty"`
	DegreeLevels    []string `json:"degree_levels,omitempty"`
	PaidType        string   `json:"paid_type,omitempty"`
	MinHours        *int     `json:"min_hours,omitempty"`
	MaxHours        *int     `json:"max_hours,omitempty"`
	ResearchTopics  []string `json:"research_topics,omitempty"`
	Deadline        string   `json:"deadline,omitempty"`
	ApplicationLink string   `json:"application_link,omitempty"`
	ContactEmail    string   `json:"contact_email,omitempty"`
	IsActive        bool     `json:"is_active"`
}

// SearchFilters narrows the candidate set. Zero values mean no constraint.
type SearchFilters struct {
	States       []string `json:"states,omitempty"`
	DegreeLevels []string `json:"degree_levels,omitempty"`
	IsRemote     *bool    `json:"is_remote,omitempty"`
	PaidType     string   `json:"paid_type,omitempty"`
	MinHours     *int     `json:"min_hours,omitempty"`
	MaxHours     *int     `json:"max_hours,omitempty"`
}

// SearchRequest is the body of the search endpoint.
type SearchRequest struct {
	Query   string         `json:"query"`
	Filters *SearchFilters `json:"filters,omitempty"`
	Limit   int            `json:"limit,omitempty"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Opportunity
	SimilarityScore float64 `json:"similarity_score"`
}

// SearchResponse is the ranked answer to a search request.
type SearchResponse struct {
	Query              string         `json:"query"`
	Results            []SearchResult `json:"results"`
	Count              int            `json:"count"`
	TotalCandidatePool int            `json:"total_candidate_pool"`
}

// GenerateSummary aggregates a batch embedding run.
type GenerateSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// KindStats pairs catalog size with embedding coverage.
type KindStats struct {
	Total    int `json:"total"`
	Embedded int `json:"embedded"`
}

// Stats reports embedding coverage per entity kind and whether search is
// ready to serve results.
type Stats struct {
	Users         KindStats `json:"users"`
	Opportunities KindStats `json:"opportunities"`
	Ready         bool      `json:"ready"`
}
