package utils

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobboard-bot/internal/models"
	"jobboard-bot/internal/query"
)

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `Acme\-X \(Berlin\)\. 100% \\o/`, EscapeMarkdown(`Acme-X (Berlin). 100% \o/`))
	assert.Equal(t, `a\_b\*c`, EscapeMarkdown("a_b*c"))
	assert.Equal(t, `\\`, EscapeMarkdown(`\`))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "Grüß…", TruncateString("Grüße aus Berlin", 5))
}

func TestFormatCompany(t *testing.T) {
	out := FormatCompany(models.Company{
		Name:      "Acme.io",
		Domain:    "https://acme.io/careers",
		Cities:    []string{"Berlin", "Munich", "Hamburg", "Cologne"},
		OpenRoles: 1,
	})

	assert.Contains(t, out, `*Acme\.io*`)
	assert.Contains(t, out, "1 open role")
	assert.Contains(t, out, "Berlin, Munich, Hamburg\n")
	assert.NotContains(t, out, "Cologne")
	assert.Contains(t, out, `[acme\.io](https://acme.io/careers)`)

	bare := FormatCompany(models.Company{Name: "Zebra"})
	assert.Contains(t, bare, "Germany \\(Various\\)")
	assert.NotContains(t, bare, "🔗")
}

func TestFormatJob(t *testing.T) {
	german := true
	j := models.Job{
		Title:           "Go Engineer",
		Company:         "Acme",
		Location:        "Berlin",
		GermanRequired:  &german,
		ConfidenceScore: 0.873,
		ApplicationURL:  "https://jobs.example/1",
	}

	public := FormatJob(j, false)
	assert.Contains(t, public, "*Go Engineer*")
	assert.Contains(t, public, "N/A")
	assert.Contains(t, public, "German required")
	assert.NotContains(t, public, "Confidence")

	review := FormatJob(j, true)
	assert.Contains(t, review, "Confidence: 87%")
}

func TestFormatPage(t *testing.T) {
	res := query.Result[string]{Items: []string{"a", "b"}, Total: 26, TotalPages: 2, Page: 2}
	out := FormatPage(ListHeader{Title: "Companies", Typed: "ac", Search: "a", Loaded: true}, res, 24, func(s string) string { return s })

	assert.True(t, strings.HasPrefix(out, `*Companies* \(26\)`))
	assert.Contains(t, out, "25\\. a")
	assert.Contains(t, out, "26\\. b")
	assert.Contains(t, out, "…", "typed text not yet committed is marked")

	loading := FormatPage(ListHeader{Title: "Jobs", Loading: true}, query.Result[string]{}, 0, func(s string) string { return s })
	assert.Contains(t, loading, "Loading")

	failed := FormatPage(ListHeader{Title: "Jobs", Err: errors.New("x"), Loaded: true}, query.Result[string]{TotalPages: 1, Page: 1}, 0, func(s string) string { return s })
	assert.Contains(t, failed, "Failed to load")
	assert.Contains(t, failed, "Nothing here yet")
}

func TestListKeyboard(t *testing.T) {
	kb := ListKeyboard(2, 3,
		[]query.Sort{query.SortAZ, query.SortZA},
		query.SortZA,
		[][]ItemAction{{{Text: "👍", Data: "thumb:up:j1"}}, nil},
		[]ItemAction{{Text: "All", Data: "company:"}},
	)

	require.Len(t, kb.InlineKeyboard, 4)
	assert.Equal(t, "thumb:up:j1", kb.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "• Z → A", kb.InlineKeyboard[1][1].Text)
	assert.Equal(t, "company:", kb.InlineKeyboard[2][0].Unique)

	nav := kb.InlineKeyboard[3]
	require.Len(t, nav, 4)
	assert.Equal(t, "page:1", nav[0].Unique)
	assert.Equal(t, "2/3", nav[1].Text)
	assert.Equal(t, "page:3", nav[2].Unique)
	assert.Equal(t, "refresh", nav[3].Unique)
}

func TestPaginationRow_SinglePage(t *testing.T) {
	kb := ListKeyboard(1, 1, nil, "", nil, nil)
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Len(t, kb.InlineKeyboard[0], 2)
}

func TestFormatPage_FitsOneMessage(t *testing.T) {
	items := make([]string, 24)
	for i := range items {
		items[i] = strings.Repeat("x", 400)
	}
	res := query.Result[string]{Items: items, Total: 24, TotalPages: 1, Page: 1}

	out := FormatPage(ListHeader{Title: "Jobs", Loaded: true}, res, 0, func(s string) string { return s })

	assert.LessOrEqual(t, len(out), 4096)
	assert.Contains(t, out, "more on this page")
}

func TestFacetKeyboard(t *testing.T) {
	kb := FacetKeyboard("company", []string{"Acme", "Zebra", "Umbrella"}, "Zebra")

	require.Len(t, kb.InlineKeyboard, 4)
	assert.Equal(t, "All", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "company:", kb.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "• Zebra", kb.InlineKeyboard[1][1].Text)
	assert.Equal(t, "company:2", kb.InlineKeyboard[2][0].Unique)
	assert.Equal(t, "back", kb.InlineKeyboard[3][0].Unique)
}
