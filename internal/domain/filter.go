package domain

import (
	"fmt"
	"strings"
)

// MaxWeeklyHours caps hour commitments; a week has 168 hours.
const MaxWeeklyHours = 168

// Valid filter vocabulary, matching the catalog's controlled fields.
var (
	validDegreeLevels = map[string]bool{
		"undergraduate": true,
		"masters":       true,
		"phd":           true,
	}
	validPaidTypes = map[string]bool{
		"stipend": true,
		"hourly":  true,
		"unpaid":  true,
		"credit":  true,
	}
)

// Filters narrows a search candidate set. Every field is optional; a zero
// value means "no constraint". Fields combine with AND, values inside a
// multi-valued field with OR. Filters never affect similarity scores.
type Filters struct {
	States       []string
	DegreeLevels []string
	IsRemote     *bool
	PaidType     string
	MinHours     *int
	MaxHours     *int
}

// IsEmpty reports whether no constraint is set.
func (f *Filters) IsEmpty() bool {
	return f == nil || (len(f.States) == 0 && len(f.DegreeLevels) == 0 &&
		f.IsRemote == nil && f.PaidType == "" && f.MinHours == nil && f.MaxHours == nil)
}

// Validate checks the filter vocabulary and hour range at the boundary.
func (f *Filters) Validate() error {
	if f == nil {
		return nil
	}
	for _, s := range f.States {
		if len(s) != 2 {
			return fmt.Errorf("state code %q must be two letters: %w", s, ErrInvalidInput)
		}
	}
	for _, d := range f.DegreeLevels {
		if !validDegreeLevels[d] {
			return fmt.Errorf("unknown degree level %q: %w", d, ErrInvalidInput)
		}
	}
	if f.PaidType != "" && !validPaidTypes[f.PaidType] {
		return fmt.Errorf("unknown paid type %q: %w", f.PaidType, ErrInvalidInput)
	}
	if f.MinHours != nil && (*f.MinHours < 0 || *f.MinHours > MaxWeeklyHours) {
		return fmt.Errorf("min_hours must be between 0 and %d: %w", MaxWeeklyHours, ErrInvalidInput)
	}
	if f.MaxHours != nil && (*f.MaxHours < 0 || *f.MaxHours > MaxWeeklyHours) {
		return fmt.Errorf("max_hours must be between 0 and %d: %w", MaxWeeklyHours, ErrInvalidInput)
	}
	if f.MinHours != nil && f.MaxHours != nil && *f.MinHours > *f.MaxHours {
		return fmt.Errorf("min_hours exceeds max_hours: %w", ErrInvalidInput)
	}
	return nil
}

// Matches evaluates the filter against one opportunity. Inactive
// opportunities never match. A state constraint is also satisfied by remote
// opportunities, which can be done from any state.
func (f *Filters) Matches(o *Opportunity) bool {
	if !o.IsActive {
		return false
	}
	if f == nil {
		return true
	}
	if len(f.States) > 0 && !o.IsRemote && !containsFold(f.States, o.LocationState) {
		return false
	}
	if len(f.DegreeLevels) > 0 && !intersects(f.DegreeLevels, o.DegreeLevels) {
		return false
	}
	if f.IsRemote != nil && o.IsRemote != *f.IsRemote {
		return false
	}
	if f.PaidType != "" && o.PaidType != f.PaidType {
		return false
	}
	// Hour ranges overlap when the opportunity's window is open on the
	// relevant side or reaches the requested bound.
	if f.MinHours != nil && o.MaxHours != nil && *o.MaxHours < *f.MinHours {
		return false
	}
	if f.MaxHours != nil && o.MinHours != nil && *o.MinHours > *f.MaxHours {
		return false
	}
	return true
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if containsFold(b, x) {
			return true
		}
	}
	return false
}
