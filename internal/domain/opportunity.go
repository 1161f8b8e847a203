package domain

import (
	"strings"
	"time"
)

// Opportunity is a research opportunity as stored in the catalog.
// Relational CRUD around it lives outside the matching core; the core reads
// it for embedding text composition, filtering, and result decoration.
type Opportunity struct {
	ID              int64     `json:"opportunity_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	LabName         string    `json:"lab_name,omitempty"`
	PIName          string    `json:"pi_name,omitempty"`
	Institution     string    `json:"institution,omitempty"`
	LocationCity    string    `json:"location_city,omitempty"`
	LocationState   string    `json:"location_state,omitempty"`
	IsRemote        bool      `json:"is_remote"`
	DegreeLevels    []string  `json:"degree_levels,omitempty"`
	PaidType        string    `json:"paid_type,omitempty"`
	MinHours        *int      `json:"min_hours,omitempty"`
	MaxHours        *int      `json:"max_hours,omitempty"`
	ResearchTopics  []string  `json:"research_topics,omitempty"`
	Deadline        string    `json:"deadline,omitempty"`
	ApplicationLink string    `json:"application_link,omitempty"`
	ContactEmail    string    `json:"contact_email,omitempty"`
	IsActive        bool      `json:"is_active"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EmbeddingText composes the text an opportunity is embedded from:
// title, description, then research topics, joined with ". ".
func (o *Opportunity) EmbeddingText() string {
	parts := make([]string, 0, 3)
	if t := strings.TrimSpace(o.Title); t != "" {
		parts = append(parts, t)
	}
	if d := strings.TrimSpace(o.Description); d != "" {
		parts = append(parts, d)
	}
	if len(o.ResearchTopics) > 0 {
		parts = append(parts, "Research topics: "+strings.Join(o.ResearchTopics, ", "))
	}
	return strings.Join(parts, ". ")
}

// User holds the slice of a user profile the matching core consumes.
type User struct {
	ID                int64     `json:"user_id"`
	ResearchInterests string    `json:"research_interests"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// EmbeddingText returns the trimmed interest statement the user is embedded from.
func (u *User) EmbeddingText() string {
	return strings.TrimSpace(u.ResearchInterests)
}
