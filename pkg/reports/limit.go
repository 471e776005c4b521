package reports

import "fmt"

const (
	// DefaultListLimit is the SOQL LIMIT used when none is given
	DefaultListLimit = 200
	// MaxListLimit is the largest accepted limit
	MaxListLimit = 2000
)

// LimitedResult is a list cut down to a requested size
type LimitedResult[T any] struct {
	Items     []T
	Total     int
	Truncated bool
}

// ValidateLimit checks an optional limit. Zero means unset.
func ValidateLimit(limit int) error {
	if limit == 0 {
		return nil
	}
	if limit < 1 {
		return fmt.Errorf("limit parameter (%d) must be at least 1", limit)
	}
	if limit > MaxListLimit {
		return fmt.Errorf("limit parameter (%d) exceeds maximum allowed value (%d)", limit, MaxListLimit)
	}
	return nil
}

// LimitResults keeps the first limit items. A limit <= 0 keeps everything.
func LimitResults[T any](items []T, limit int) LimitedResult[T] {
	total := len(items)
	if limit <= 0 || limit >= total {
		return LimitedResult[T]{Items: items, Total: total}
	}
	return LimitedResult[T]{
		Items:     items[:limit],
		Total:     total,
		Truncated: true,
	}
}

func soqlLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
