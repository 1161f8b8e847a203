package domain

import "fmt"

// KeyPrefix namespaces every key labscout writes to the store.
const KeyPrefix = "labscout:"

// Kind identifies which side of a match an embedding belongs to.
type Kind string

const (
	// KindUser embeds a user's research-interest statement.
	KindUser Kind = "user"
	// KindOpportunity embeds an opportunity's description text.
	KindOpportunity Kind = "opportunity"
)

// ParseKind validates a kind string from transport input.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindUser:
		return KindUser, nil
	case KindOpportunity:
		return KindOpportunity, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q: %w", s, ErrInvalidInput)
	}
}
