package query

import (
	"net/url"
	"strconv"
)

const (
	paramSearch = "q"
	paramSort   = "sort"
	paramPage   = "page"
)

// State is the user-controlled part of a list view. It round-trips through
// url.Values so it can live in a URL or in a persisted string.
type State struct {
	Search string
	Sort   Sort
	Page   int
}

func EncodeParams(s State) url.Values {
	v := url.Values{}
	if s.Search != "" {
		v.Set(paramSearch, s.Search)
	}
	if s.Sort != "" {
		v.Set(paramSort, string(s.Sort))
	}
	if s.Page > 1 {
		v.Set(paramPage, strconv.Itoa(s.Page))
	}
	return v
}

// DecodeParams never fails: unknown or malformed values fall back to the
// zero State fields, and the page is at least 1.
func DecodeParams(v url.Values) State {
	s := State{
		Search: v.Get(paramSearch),
		Sort:   Sort(v.Get(paramSort)),
		Page:   1,
	}
	if p, err := strconv.Atoi(v.Get(paramPage)); err == nil && p > 1 {
		s.Page = p
	}
	return s
}

// ParseState decodes a raw query string such as "q=acme&sort=z-a"
func ParseState(raw string) State {
	v, err := url.ParseQuery(raw)
	if err != nil {
		return State{Page: 1}
	}
	return DecodeParams(v)
}
