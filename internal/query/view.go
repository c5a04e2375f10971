package query

import (
	"slices"
	"strings"
)

// Matcher reports whether item matches the search needle. The needle is
// already trimmed and lower-cased and is never empty.
type Matcher[T any] func(item T, needle string) bool

// Comparator orders two items; negative means a sorts before b.
type Comparator[T any] func(a, b T) int

// Query is the committed state a view is derived from
type Query struct {
	Search string
	Sort   Sort
	Page   int
	Limit  int
}

// Result is one derived page of a collection
type Result[T any] struct {
	Items      []T
	Total      int
	TotalPages int
	Page       int
}

// MatchFields builds a Matcher that succeeds when any field returned by
// fields contains the needle, ignoring case.
func MatchFields[T any](fields func(T) []string) Matcher[T] {
	return func(item T, needle string) bool {
		for _, f := range fields(item) {
			if strings.Contains(strings.ToLower(f), needle) {
				return true
			}
		}
		return false
	}
}

// Derive filters, sorts and paginates all without touching it. A nil cmp
// keeps input order. The requested page is clamped into [1, TotalPages].
func Derive[T any](all []T, q Query, match Matcher[T], cmp Comparator[T]) Result[T] {
	limit := max(q.Limit, 1)
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	filtered := make([]T, 0, len(all))
	for _, item := range all {
		if needle == "" || match == nil || match(item, needle) {
			filtered = append(filtered, item)
		}
	}

	if cmp != nil {
		slices.SortStableFunc(filtered, cmp)
	}

	total := len(filtered)
	totalPages := max(1, (total+limit-1)/limit)
	page := min(max(q.Page, 1), totalPages)

	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	return Result[T]{
		Items:      filtered[start:end:end],
		Total:      total,
		TotalPages: totalPages,
		Page:       page,
	}
}
