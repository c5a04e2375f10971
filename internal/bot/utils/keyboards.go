package utils

import (
	"strconv"

	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/query"
)

// Main menu button texts
const (
	BtnCompanies = "🏢 Companies"
	BtnJobs      = "💼 Jobs"
	BtnAccount   = "👤 Login"
	BtnHelp      = "❓ Help"
	BtnCancel    = "❌ Cancel"
)

// ItemAction is a per-item inline button
type ItemAction struct {
	Text string
	Data string
}

func MainMenuKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}

	menu.Reply(
		menu.Row(menu.Text(BtnCompanies), menu.Text(BtnJobs)),
		menu.Row(menu.Text(BtnAccount), menu.Text(BtnHelp)),
	)

	return menu
}

func CancelKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(menu.Row(menu.Text(BtnCancel)))
	return menu
}

// ListKeyboard builds the inline controls of a list message: one row of
// actions per listed item, the sort choices, an optional row of extra
// buttons, and pagination.
func ListKeyboard(page, totalPages int, sorts []query.Sort, current query.Sort, items [][]ItemAction, extra []ItemAction) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	var rows []tele.Row

	for _, actions := range items {
		if len(actions) == 0 {
			continue
		}
		var btns []tele.Btn
		for _, a := range actions {
			btns = append(btns, menu.Data(a.Text, a.Data))
		}
		rows = append(rows, menu.Row(btns...))
	}

	if len(sorts) > 1 {
		var btns []tele.Btn
		for _, s := range sorts {
			label := s.Label()
			if s == current {
				label = "• " + label
			}
			btns = append(btns, menu.Data(label, "sort:"+string(s)))
		}
		rows = append(rows, menu.Row(btns...))
	}

	if len(extra) > 0 {
		var btns []tele.Btn
		for _, a := range extra {
			btns = append(btns, menu.Data(a.Text, a.Data))
		}
		rows = append(rows, menu.Row(btns...))
	}

	rows = append(rows, PaginationRow(menu, page, totalPages))

	menu.Inline(rows...)
	return menu
}

// PaginationRow shows prev, the 1-based position and next. Refresh is always
// present so a failed load can be retried.
func PaginationRow(menu *tele.ReplyMarkup, page, totalPages int) tele.Row {
	var buttons []tele.Btn

	if page > 1 {
		buttons = append(buttons, menu.Data("⬅️", "page:"+strconv.Itoa(page-1)))
	}

	buttons = append(buttons, menu.Data(strconv.Itoa(page)+"/"+strconv.Itoa(totalPages), "noop"))

	if page < totalPages {
		buttons = append(buttons, menu.Data("➡️", "page:"+strconv.Itoa(page+1)))
	}

	buttons = append(buttons, menu.Data("🔄", "refresh"))

	return menu.Row(buttons...)
}

func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

func DigestKeyboard(enabled bool) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}

	btn := menu.Data("🔔 Turn digest on", "digest:on")
	if enabled {
		btn = menu.Data("🔕 Turn digest off", "digest:off")
	}

	menu.Inline(menu.Row(btn))
	return menu
}

const maxFacetButtons = 40

// FacetKeyboard offers one button per option, two per row. Options are
// addressed by index so long names fit the callback limit.
func FacetKeyboard(prefix string, options []string, current string) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	var rows []tele.Row

	all := "All"
	if current == "" {
		all = "• All"
	}
	rows = append(rows, menu.Row(menu.Data(all, prefix+":")))

	var row []tele.Btn
	for i, opt := range options {
		if i == maxFacetButtons {
			break
		}
		label := TruncateString(opt, 28)
		if opt == current {
			label = "• " + label
		}
		row = append(row, menu.Data(label, prefix+":"+strconv.Itoa(i)))
		if len(row) == 2 {
			rows = append(rows, menu.Row(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, menu.Row(row...))
	}

	rows = append(rows, menu.Row(menu.Data("⬅️ Back", "back")))

	menu.Inline(rows...)
	return menu
}
