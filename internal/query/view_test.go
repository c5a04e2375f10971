package query

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type company struct {
	name      string
	cities    []string
	openRoles int
}

var matchCompany = MatchFields(func(c company) []string {
	return append([]string{c.name}, c.cities...)
})

func companySorts() map[Sort]Comparator[company] {
	byName := Alphabetical(language.English, func(c company) string { return c.name })
	return map[Sort]Comparator[company]{
		SortAZ:         byName,
		SortZA:         Reverse(byName),
		SortMostHiring: Descending(func(c company) int { return c.openRoles }),
	}
}

func names(items []company) []string {
	out := make([]string, len(items))
	for i, c := range items {
		out[i] = c.name
	}
	return out
}

func numbered(n int) []company {
	out := make([]company, n)
	for i := range out {
		out[i] = company{name: fmt.Sprintf("Company %03d", i)}
	}
	return out
}

func TestDerive_PaginationInvariant(t *testing.T) {
	for total := 0; total <= 60; total++ {
		for _, limit := range []int{1, 7, 24, 100} {
			all := numbered(total)
			wantPages := max(1, (total+limit-1)/limit)

			for page := 1; page <= wantPages; page++ {
				res := Derive(all, Query{Page: page, Limit: limit}, matchCompany, nil)

				require.Equal(t, total, res.Total)
				require.Equal(t, wantPages, res.TotalPages, "total=%d limit=%d", total, limit)
				require.Equal(t, page, res.Page)
				require.Len(t, res.Items, min(limit, total-(page-1)*limit), "total=%d limit=%d page=%d", total, limit, page)
			}
		}
	}
}

func TestDerive_ThirtyCompaniesTwoPages(t *testing.T) {
	all := numbered(30)
	sorts := companySorts()

	first := Derive(all, Query{Sort: SortAZ, Page: 1, Limit: 24}, matchCompany, sorts[SortAZ])
	assert.Len(t, first.Items, 24)
	assert.Equal(t, 2, first.TotalPages)

	second := Derive(all, Query{Sort: SortAZ, Page: 2, Limit: 24}, matchCompany, sorts[SortAZ])
	assert.Len(t, second.Items, 6)
	assert.Equal(t, "Company 024", second.Items[0].name)
}

func TestDerive_PageClampedSilently(t *testing.T) {
	all := numbered(30)

	res := Derive(all, Query{Page: 9, Limit: 24}, matchCompany, nil)
	assert.Equal(t, 2, res.Page)
	assert.Len(t, res.Items, 6)

	res = Derive(all, Query{Page: -3, Limit: 24}, matchCompany, nil)
	assert.Equal(t, 1, res.Page)
	assert.Len(t, res.Items, 24)

	empty := Derive([]company{}, Query{Page: 4, Limit: 24}, matchCompany, nil)
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, 1, empty.TotalPages)
	assert.Empty(t, empty.Items)
}

func TestDerive_CaseInsensitiveSearch(t *testing.T) {
	all := []company{{name: "Zebra"}, {name: "Acme"}, {name: "acmeX"}}

	res := Derive(all, Query{Search: "acm", Limit: 24}, matchCompany, nil)
	assert.Equal(t, []string{"Acme", "acmeX"}, names(res.Items))

	res = Derive(all, Query{Search: "  ACM ", Limit: 24}, matchCompany, nil)
	assert.Equal(t, []string{"Acme", "acmeX"}, names(res.Items))
}

func TestDerive_SearchMatchesCities(t *testing.T) {
	all := []company{
		{name: "Acme", cities: []string{"Berlin"}},
		{name: "Globex", cities: []string{"Munich", "Hamburg"}},
		{name: "Initech"},
	}

	res := Derive(all, Query{Search: "ham", Limit: 24}, matchCompany, nil)
	assert.Equal(t, []string{"Globex"}, names(res.Items))
}

func TestDerive_FilterCorrectness(t *testing.T) {
	all := []company{
		{name: "Acme", cities: []string{"Berlin"}},
		{name: "Berliner Bank"},
		{name: "Globex", cities: []string{"munich"}},
		{name: "Initech", cities: []string{}},
	}

	for _, s := range []string{"", "a", "ber", "MUN", "x", "zzz", "in"} {
		res := Derive(all, Query{Search: s, Limit: 100}, matchCompany, nil)

		var want []string
		needle := strings.ToLower(strings.TrimSpace(s))
		for _, c := range all {
			hit := strings.Contains(strings.ToLower(c.name), needle)
			for _, city := range c.cities {
				hit = hit || strings.Contains(strings.ToLower(city), needle)
			}
			if hit {
				want = append(want, c.name)
			}
		}

		assert.Equal(t, len(want), res.Total, "search %q", s)
		assert.ElementsMatch(t, want, names(res.Items), "search %q", s)
	}

	assert.Equal(t, len(all), Derive(all, Query{Limit: 100}, matchCompany, nil).Total)
}

func TestDerive_MostHiring(t *testing.T) {
	all := []company{
		{name: "A", openRoles: 0},
		{name: "B", openRoles: 5},
		{name: "C", openRoles: 2},
	}
	sorts := companySorts()

	res := Derive(all, Query{Sort: SortMostHiring, Limit: 24}, matchCompany, sorts[SortMostHiring])

	roles := make([]int, len(res.Items))
	for i, c := range res.Items {
		roles[i] = c.openRoles
	}
	assert.Equal(t, []int{5, 2, 0}, roles)
}

func TestDerive_Alphabetical(t *testing.T) {
	all := []company{{name: "Zebra"}, {name: "Äpfel"}, {name: "Acme"}, {name: "Bosch"}}
	sorts := companySorts()

	res := Derive(all, Query{Sort: SortAZ, Limit: 24}, matchCompany, sorts[SortAZ])
	assert.Equal(t, []string{"Acme", "Äpfel", "Bosch", "Zebra"}, names(res.Items))

	res = Derive(all, Query{Sort: SortZA, Limit: 24}, matchCompany, sorts[SortZA])
	assert.Equal(t, []string{"Zebra", "Bosch", "Äpfel", "Acme"}, names(res.Items))
}

func TestDerive_StableAndDeterministic(t *testing.T) {
	all := []company{
		{name: "first", openRoles: 3},
		{name: "second", openRoles: 1},
		{name: "third", openRoles: 3},
		{name: "fourth", openRoles: 1},
		{name: "fifth", openRoles: 3},
	}
	cmp := companySorts()[SortMostHiring]

	a := Derive(all, Query{Limit: 10}, matchCompany, cmp)
	b := Derive(all, Query{Limit: 10}, matchCompany, cmp)

	assert.Equal(t, names(a.Items), names(b.Items))
	assert.Equal(t, []string{"first", "third", "fifth", "second", "fourth"}, names(a.Items))
}

func TestDerive_DoesNotModifyInput(t *testing.T) {
	all := []company{{name: "b"}, {name: "a"}}
	_ = Derive(all, Query{Limit: 10}, matchCompany, companySorts()[SortAZ])

	assert.Equal(t, []string{"b", "a"}, names(all))
}

func TestParseSort(t *testing.T) {
	sorts := companySorts()

	s, err := ParseSort("z-a", sorts)
	require.NoError(t, err)
	assert.Equal(t, SortZA, s)

	_, err = ParseSort("newest", sorts)
	assert.ErrorIs(t, err, ErrUnknownSort)
}
