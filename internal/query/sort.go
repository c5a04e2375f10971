package query

import (
	"cmp"
	"fmt"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort names one entry of a list's closed set of orderings
type Sort string

const (
	SortAZ         Sort = "a-z"
	SortZA         Sort = "z-a"
	SortMostHiring Sort = "most-hiring"
	SortNewest     Sort = "newest"
)

func (s Sort) Label() string {
	switch s {
	case SortAZ:
		return "A → Z"
	case SortZA:
		return "Z → A"
	case SortMostHiring:
		return "Most Hiring"
	case SortNewest:
		return "Newest"
	default:
		return string(s)
	}
}

// ParseLocale resolves a BCP 47 tag for collation, falling back to English
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}

// Alphabetical compares key(a) and key(b) with locale-aware collation
func Alphabetical[T any](tag language.Tag, key func(T) string) Comparator[T] {
	var mu sync.Mutex
	c := collate.New(tag)

	return func(a, b T) int {
		// collate.Collator keeps internal buffers
		mu.Lock()
		defer mu.Unlock()
		return c.CompareString(key(a), key(b))
	}
}

// Reverse flips a comparator
func Reverse[T any](c Comparator[T]) Comparator[T] {
	return func(a, b T) int {
		return c(b, a)
	}
}

// Descending orders by an ordered key, largest first
func Descending[T any, K cmp.Ordered](key func(T) K) Comparator[T] {
	return func(a, b T) int {
		return cmp.Compare(key(b), key(a))
	}
}

// ParseSort validates s against the sorts a list supports
func ParseSort[T any](s string, sorts map[Sort]Comparator[T]) (Sort, error) {
	if _, ok := sorts[Sort(s)]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSort, s)
	}
	return Sort(s), nil
}
