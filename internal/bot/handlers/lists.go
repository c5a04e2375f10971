package handlers

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/bot/utils"
	"jobboard-bot/internal/listing"
	"jobboard-bot/internal/models"
	"jobboard-bot/internal/query"
)

const listLoadTimeout = 2 * time.Minute

// openList builds a list for the sender, restores its saved state, shows it
// and runs the initial fetch. The previous list of the user is closed.
func openList[L engine](ctx *Context, c tele.Context, kind Kind, build func(listing.Settings) L, render func(L) (string, *tele.ReplyMarkup)) error {
	userID := c.Sender().ID

	v := &view{kind: kind, userID: userID}
	list := build(ctx.settings(v))
	v.list = list
	v.render = func() (string, *tele.ReplyMarkup) { return render(list) }

	// without a users row the list state cannot be saved
	_ = registerUser(ctx, c.Sender())

	dbCtx, cancel := dbContext()
	state, ok, err := ctx.Store.GetListView(dbCtx, userID, string(kind))
	cancel()
	if err != nil {
		ctx.Logger.Warn("failed to restore list view", zap.Int64("user_id", userID), zap.String("list", string(kind)), zap.Error(err))
	} else if ok {
		list.Restore(state)
		v.saved = state
	}

	ctx.Views.replace(v)

	if err := ctx.Views.show(c.Recipient(), v); err != nil {
		ctx.Logger.Error("failed to send list", zap.Int64("user_id", userID), zap.String("list", string(kind)), zap.Error(err))
		ctx.Views.Close(userID)
		return c.Send("😔 Could not open the list. Try again later.")
	}

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), listLoadTimeout)
	defer cancelLoad()

	if err := list.Start(loadCtx); err != nil {
		ctx.Logger.Warn("initial list load failed",
			zap.Int64("user_id", userID),
			zap.String("list", string(kind)),
			zap.Error(err),
		)
	}

	return nil
}

// /companies
func HandleCompanies(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		return openList(ctx, c, KindDirectory,
			func(s listing.Settings) *listing.Directory {
				return listing.NewDirectory(ctx.Board, s)
			},
			func(d *listing.Directory) (string, *tele.ReplyMarkup) {
				p := d.View()
				return utils.FormatPage(header("🏢 Company directory", p), p.Result, offset(p, ctx.Config.PageSize), utils.FormatCompany),
					utils.ListKeyboard(p.Page, p.TotalPages, listing.CompanySorts, p.Sort, nil, nil)
			},
		)
	}
}

// /jobs
func HandleJobs(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		sess := optionalSession(ctx, c.Sender().ID)

		return openList(ctx, c, KindFeed,
			func(s listing.Settings) *listing.Feed {
				return listing.NewFeed(ctx.Board, sess, s)
			},
			func(f *listing.Feed) (string, *tele.ReplyMarkup) {
				p := f.View()
				h := header("💼 Jobs", p)
				h.Facet = f.Company()

				first := offset(p, ctx.Config.PageSize)
				items := make([][]utils.ItemAction, len(p.Items))
				for i, j := range p.Items {
					n := strconv.Itoa(first + i + 1)
					items[i] = []utils.ItemAction{
						{Text: "👍 " + n, Data: "thumb:up:" + j.Key()},
						{Text: "👎 " + n, Data: "thumb:down:" + j.Key()},
					}
				}

				extra := []utils.ItemAction{{Text: "🏷 Company", Data: "facets"}}
				if h.Facet != "" {
					extra = append(extra, utils.ItemAction{Text: "✖️ All companies", Data: "company:"})
				}

				return utils.FormatPage(h, p.Result, first, func(j models.Job) string { return utils.FormatJob(j, false) }),
					utils.ListKeyboard(p.Page, p.TotalPages, listing.JobSorts, p.Sort, items, extra)
			},
		)
	}
}

// /manage
func HandleManage(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		sess, ok := requireAdmin(ctx, c)
		if !ok {
			return nil
		}

		return openList(ctx, c, KindCompanies,
			func(s listing.Settings) *listing.AdminCompanies {
				return listing.NewAdminCompanies(ctx.Board, sess, s)
			},
			func(a *listing.AdminCompanies) (string, *tele.ReplyMarkup) {
				p := a.View()
				first := offset(p, ctx.Config.PageSize)

				items := make([][]utils.ItemAction, len(p.Items))
				for i, co := range p.Items {
					if co.Deletable() {
						items[i] = []utils.ItemAction{{Text: "🗑 " + strconv.Itoa(first+i+1), Data: "delete:" + co.Key()}}
					}
				}

				extra := []utils.ItemAction{{Text: "➕ Add company", Data: "addcompany"}}

				return utils.FormatPage(header("🛠 Manage companies", p), p.Result, first, utils.FormatCompany),
					utils.ListKeyboard(p.Page, p.TotalPages, listing.CompanySorts, p.Sort, items, extra)
			},
		)
	}
}

// /review
func HandleReview(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		sess, ok := requireAdmin(ctx, c)
		if !ok {
			return nil
		}

		return openList(ctx, c, KindReview,
			func(s listing.Settings) *listing.ReviewQueue {
				return listing.NewReviewQueue(ctx.Board, sess, s)
			},
			func(r *listing.ReviewQueue) (string, *tele.ReplyMarkup) {
				p := r.View()
				first := offset(p, ctx.Config.PageSize)

				items := make([][]utils.ItemAction, len(p.Items))
				for i, j := range p.Items {
					n := strconv.Itoa(first + i + 1)
					items[i] = []utils.ItemAction{
						{Text: "✅ " + n, Data: "decide:accept:" + j.Key()},
						{Text: "❌ " + n, Data: "decide:reject:" + j.Key()},
					}
				}

				return utils.FormatPage(header("📝 Review queue", p), p.Result, first, func(j models.Job) string { return utils.FormatJob(j, true) }),
					utils.ListKeyboard(p.Page, p.TotalPages, listing.JobSorts, p.Sort, items, nil)
			},
		)
	}
}

// /rejected
func HandleRejected(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		sess, ok := requireAdmin(ctx, c)
		if !ok {
			return nil
		}

		return openList(ctx, c, KindRejected,
			func(s listing.Settings) *listing.Rejected {
				return listing.NewRejected(ctx.Board, sess, s)
			},
			func(r *listing.Rejected) (string, *tele.ReplyMarkup) {
				p := r.View()
				first := offset(p, ctx.Config.PageSize)

				items := make([][]utils.ItemAction, len(p.Items))
				for i, j := range p.Items {
					if j.Status == models.StatusActive {
						continue
					}
					items[i] = []utils.ItemAction{{Text: "♻️ " + strconv.Itoa(first+i+1), Data: "restore:" + j.Key()}}
				}

				return utils.FormatPage(header("🗃 Rejected jobs", p), p.Result, first, func(j models.Job) string { return utils.FormatJob(j, true) }),
					utils.ListKeyboard(p.Page, p.TotalPages, listing.JobSorts, p.Sort, items, nil)
			},
		)
	}
}

// /logs
func HandleTestLogs(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		sess, ok := requireAdmin(ctx, c)
		if !ok {
			return nil
		}

		return openList(ctx, c, KindTestLogs,
			func(s listing.Settings) *listing.TestLogs {
				return listing.NewTestLogs(ctx.Board, sess, s)
			},
			func(t *listing.TestLogs) (string, *tele.ReplyMarkup) {
				p := t.View()
				current := t.Decision()

				h := header("🧪 Classifier logs", p)
				if current != listing.DecisionAll {
					h.Facet = "Decision: " + string(current)
				}

				var extra []utils.ItemAction
				for _, d := range []listing.DecisionFilter{listing.DecisionAll, listing.DecisionAccepted, listing.DecisionRejected} {
					label := string(d)
					if d == current {
						label = "• " + label
					}
					extra = append(extra, utils.ItemAction{Text: label, Data: "decision:" + string(d)})
				}

				return utils.FormatPage(h, p.Result, offset(p, ctx.Config.PageSize), func(j models.Job) string { return utils.FormatJob(j, true) }),
					utils.ListKeyboard(p.Page, p.TotalPages, listing.JobSorts, p.Sort, nil, extra)
			},
		)
	}
}

func header[T any](title string, p query.Page[T]) utils.ListHeader {
	return utils.ListHeader{
		Title:   title,
		Typed:   p.Typed,
		Search:  p.Search,
		Loading: p.Loading || (!p.Loaded && p.Err == nil),
		Loaded:  p.Loaded,
		Err:     p.Err,
	}
}

func offset[T any](p query.Page[T], pageSize int) int {
	return (p.Page - 1) * max(pageSize, 1)
}
