package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"jobboard-bot/internal/models"
	"jobboard-bot/internal/query"
)

// Telegram rejects messages over 4096 characters
const maxMessageLen = 3900

// ListHeader is the title block shown above every list page
type ListHeader struct {
	Title   string
	Typed   string
	Search  string
	Facet   string
	Loading bool
	Loaded  bool
	Err     error
}

// FormatCompany renders one directory card
func FormatCompany(c models.Company) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🏢 *%s*", EscapeMarkdown(c.Name)))
	if label := c.OpenRolesLabel(); label != "" {
		sb.WriteString(fmt.Sprintf(" · %s", EscapeMarkdown(label)))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("📍 %s\n", EscapeMarkdown(c.CitiesLabel())))

	if site := c.WebsiteURL(); site != "" {
		sb.WriteString(fmt.Sprintf("🔗 [%s](%s)\n", EscapeMarkdown(c.Host()), escapeURL(site)))
	}

	return sb.String()
}

// FormatJob renders one job card. Review mode adds the classifier fields.
func FormatJob(j models.Job, review bool) string {
	var sb strings.Builder

	title := j.Title
	if title == "" {
		title = "Untitled"
	}
	sb.WriteString(fmt.Sprintf("💼 *%s*\n", EscapeMarkdown(title)))

	if j.Company != "" {
		sb.WriteString(fmt.Sprintf("🏢 %s\n", EscapeMarkdown(j.Company)))
	}

	var meta []string
	for _, v := range []string{j.Location, j.Department, j.ContractType, j.ExperienceLevel} {
		if v != "" {
			meta = append(meta, EscapeMarkdown(v))
		}
	}
	if len(meta) > 0 {
		sb.WriteString("📍 " + strings.Join(meta, " · ") + "\n")
	}

	sb.WriteString(fmt.Sprintf("📅 %s", EscapeMarkdown(j.PostedLabel())))
	if j.EnglishFriendly() {
		sb.WriteString(" · 🇬🇧 English friendly")
	} else {
		sb.WriteString(" · 🇩🇪 German required")
	}
	sb.WriteString("\n")

	if j.ThumbStatus != nil && *j.ThumbStatus == models.ThumbUp {
		sb.WriteString("👍 Marked as good\n")
	}

	if review {
		sb.WriteString(fmt.Sprintf("🤖 Confidence: %d%%", j.ConfidencePercent()))
		if j.FinalDecision != "" {
			sb.WriteString(fmt.Sprintf(" · %s", EscapeMarkdown(j.FinalDecision)))
		}
		sb.WriteString("\n")
		if j.Evidence != nil {
			if j.Evidence.LocationReason != "" {
				sb.WriteString(fmt.Sprintf("_Location:_ %s\n", EscapeMarkdown(TruncateString(j.Evidence.LocationReason, 160))))
			}
			if j.Evidence.GermanReason != "" {
				sb.WriteString(fmt.Sprintf("_German:_ %s\n", EscapeMarkdown(TruncateString(j.Evidence.GermanReason, 160))))
			}
		}
	}

	if j.ApplicationURL != "" {
		sb.WriteString(fmt.Sprintf("🔗 [Apply](%s)\n", escapeURL(j.ApplicationURL)))
	}

	return sb.String()
}

// FormatPage joins the header and the numbered cards of one page
func FormatPage[T any](h ListHeader, res query.Result[T], offset int, card func(T) string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("*%s*", EscapeMarkdown(h.Title)))
	if h.Loaded || res.Total > 0 {
		sb.WriteString(EscapeMarkdown(fmt.Sprintf(" (%d)", res.Total)))
	}
	sb.WriteString("\n")

	if h.Facet != "" {
		sb.WriteString(fmt.Sprintf("🏷 %s\n", EscapeMarkdown(h.Facet)))
	}
	if h.Typed != "" {
		line := fmt.Sprintf("🔍 %q", h.Typed)
		if h.Typed != h.Search {
			line += " …"
		}
		sb.WriteString(EscapeMarkdown(line) + "\n")
	}
	if h.Err != nil {
		sb.WriteString("⚠️ Failed to load\\. Tap 🔄 to retry\\.\n")
	}
	sb.WriteString("\n")

	switch {
	case h.Loading && !h.Loaded:
		sb.WriteString("⏳ Loading…")
		return sb.String()
	case len(res.Items) == 0 && h.Search != "":
		sb.WriteString("Nothing matches your search\\.")
		return sb.String()
	case len(res.Items) == 0:
		sb.WriteString("Nothing here yet\\.")
		return sb.String()
	}

	for i, item := range res.Items {
		entry := EscapeMarkdown(fmt.Sprintf("%d. ", offset+i+1)) + card(item) + "\n"
		if sb.Len()+len(entry) > maxMessageLen {
			sb.WriteString(EscapeMarkdown(fmt.Sprintf("… %d more on this page, narrow your search to see them.", len(res.Items)-i)))
			break
		}
		sb.WriteString(entry)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func FormatWelcomeMessage(firstName string) string {
	name := firstName
	if name == "" {
		name = "there"
	}

	return fmt.Sprintf(`👋 Hi, *%s*\!

I list English\-friendly tech jobs in Germany and the companies hiring for them\.

*Commands:*
/companies \- company directory
/jobs \- job feed
/login \- sign in to your account
/help \- all commands

Send any text while a list is open to search it\.`, EscapeMarkdown(name))
}

func FormatHelpMessage() string {
	return `*Lists*
/companies \- company directory
/jobs \- job feed, 👍 keeps a job, 👎 hides it

While a list is open, send text to search it\. Send /clear to drop the search\.

*Account*
/login \- sign in
/logout \- sign out

*Admin*
/review \- jobs waiting for a decision
/rejected \- rejected jobs, restore with ♻️
/logs \- classifier test logs
/manage \- manage directory companies
/addcompany \- add a company
/addjob \- add a job by hand
/stats \- today's pipeline numbers
/digest \- turn the hourly digest on or off`
}

func FormatStats(s *models.DailyStats) string {
	return fmt.Sprintf(`📊 *Pipeline today*

🔌 Connected sources: %d
🕸 Jobs scraped: %d
🤖 Sent to AI: %d
⏳ Pending review: %d
✅ Published: %d`,
		s.ConnectedSources,
		s.JobsScraped,
		s.JobsSentToAI,
		s.JobsPendingReview,
		s.JobsPublished,
	)
}

func FormatDigest(name string, s *models.DailyStats) string {
	greeting := "📬 *Admin digest*"
	if name != "" {
		greeting = fmt.Sprintf("📬 *Admin digest for %s*", EscapeMarkdown(name))
	}

	msg := greeting + "\n\n" + strings.TrimPrefix(FormatStats(s), "📊 *Pipeline today*\n\n")
	if s.JobsPendingReview > 0 {
		msg += "\n\nOpen /review to work through the queue\\."
	}
	return msg
}

func EscapeMarkdown(text string) string {
	// \ _ * [ ] ( ) ~ ` > # + - = | { } . !
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)

	return replacer.Replace(text)
}

// inside (...) of a MarkdownV2 link only ) and \ need escaping
func escapeURL(u string) string {
	return strings.NewReplacer("\\", "\\\\", ")", "\\)").Replace(u)
}

func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}
