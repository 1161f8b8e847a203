package domain

// Match is one ranked search hit: an opportunity plus its similarity score.
// Matches are recomputed per query and never persisted.
type Match struct {
	Opportunity Opportunity
	Score       float64
}
