package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/bot/utils"
	"jobboard-bot/internal/listing"
	"jobboard-bot/internal/models"
	"jobboard-bot/internal/query"
)

// parseCallback splits "\faction:arg:key" into the action and at most two
// arguments. The last argument keeps any further colons.
func parseCallback(data string) (string, []string) {
	data = strings.TrimPrefix(data, "\f")
	parts := strings.SplitN(data, ":", 3)
	return parts[0], parts[1:]
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// HandleCallback processes all callback queries from inline buttons
func HandleCallback(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}

		userID := c.Sender().ID
		action, args := parseCallback(cb.Data)

		ctx.Logger.Debug("received callback",
			zap.Int64("user_id", userID),
			zap.String("action", action),
			zap.Strings("args", args),
		)

		switch action {
		case "noop":
			return c.Respond()
		case "digest":
			return handleDigestToggle(ctx, c, arg(args, 0) == "on")
		case "addcompany":
			_ = c.Respond()
			return HandleAddCompany(ctx)(c)
		}

		v := ctx.Views.get(userID)
		if v == nil || cb.Message == nil || v.messageID() != cb.Message.ID {
			return c.Respond(&tele.CallbackResponse{Text: "This list is closed. Open it again from the menu."})
		}

		switch action {
		case "page":
			n, err := strconv.Atoi(arg(args, 0))
			if err != nil {
				return c.Respond(&tele.CallbackResponse{Text: "❌ Bad page"})
			}
			v.list.SetPage(n)
			return c.Respond()

		case "sort":
			if err := v.list.SetSort(query.Sort(arg(args, 0))); err != nil {
				ctx.Logger.Warn("unknown sort", zap.String("sort", arg(args, 0)))
				return c.Respond(&tele.CallbackResponse{Text: "❌ Unknown sort"})
			}
			return c.Respond()

		case "refresh":
			_ = c.Respond(&tele.CallbackResponse{Text: "🔄 Refreshing…"})
			loadCtx, cancel := context.WithTimeout(context.Background(), listLoadTimeout)
			defer cancel()
			if err := v.list.Refetch(loadCtx); err != nil {
				ctx.Logger.Warn("refresh failed", zap.Int64("user_id", userID), zap.String("list", string(v.kind)), zap.Error(err))
			}
			return nil

		case "thumb":
			return handleThumb(c, v, arg(args, 0), arg(args, 1))
		case "decide":
			return handleDecide(c, v, arg(args, 0), arg(args, 1))
		case "restore":
			return handleRestore(c, v, arg(args, 0))
		case "delete":
			return handleDelete(c, v, arg(args, 0))
		case "decision":
			return handleDecisionFilter(c, v, arg(args, 0))
		case "facets":
			return handleFacets(ctx, c, v)
		case "company":
			return handleCompanyFacet(ctx, c, v, arg(args, 0))
		case "back":
			v.invalidate()
			v.refresh()
			return c.Respond()

		default:
			ctx.Logger.Warn("unknown callback action", zap.String("action", action), zap.String("data", cb.Data))
			return c.Respond(&tele.CallbackResponse{Text: "❓ Unknown action"})
		}
	}
}

func handleThumb(c tele.Context, v *view, dir, key string) error {
	feed, ok := v.list.(*listing.Feed)
	if !ok {
		return c.Respond()
	}

	thumb := models.Thumb(dir)
	if thumb != models.ThumbUp && thumb != models.ThumbDown {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Bad feedback"})
	}

	if err := feed.Thumb(key, thumb); err != nil {
		return respondListError(c, err)
	}

	if thumb == models.ThumbDown {
		return c.Respond(&tele.CallbackResponse{Text: "👎 Hidden"})
	}
	return c.Respond(&tele.CallbackResponse{Text: "👍 Saved"})
}

func handleDecide(c tele.Context, v *view, decision, key string) error {
	queue, ok := v.list.(*listing.ReviewQueue)
	if !ok {
		return c.Respond()
	}

	d, err := models.ParseDecision(decision)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Bad decision"})
	}

	if err := queue.Decide(key, d); err != nil {
		return respondListError(c, err)
	}

	if d == models.DecisionAccept {
		return c.Respond(&tele.CallbackResponse{Text: "✅ Published"})
	}
	return c.Respond(&tele.CallbackResponse{Text: "❌ Rejected"})
}

func handleRestore(c tele.Context, v *view, key string) error {
	rejected, ok := v.list.(*listing.Rejected)
	if !ok {
		return c.Respond()
	}

	if err := rejected.Unreject(key); err != nil {
		return respondListError(c, err)
	}
	return c.Respond(&tele.CallbackResponse{Text: "♻️ Restored"})
}

func handleDelete(c tele.Context, v *view, key string) error {
	companies, ok := v.list.(*listing.AdminCompanies)
	if !ok {
		return c.Respond()
	}

	if err := companies.Delete(key); err != nil {
		return respondListError(c, err)
	}
	return c.Respond(&tele.CallbackResponse{Text: "🗑 Deleted"})
}

func handleDecisionFilter(c tele.Context, v *view, value string) error {
	logs, ok := v.list.(*listing.TestLogs)
	if !ok {
		return c.Respond()
	}

	d, err := listing.ParseDecisionFilter(value)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Bad filter"})
	}

	logs.SetDecision(d)
	return c.Respond()
}

func handleFacets(ctx *Context, c tele.Context, v *view) error {
	feed, ok := v.list.(*listing.Feed)
	if !ok {
		return c.Respond()
	}

	companies := feed.Companies()
	if len(companies) == 0 {
		return c.Respond(&tele.CallbackResponse{Text: "No companies to choose from yet"})
	}

	if err := c.Edit(utils.FacetKeyboard("company", companies, feed.Company())); err != nil {
		ctx.Logger.Warn("failed to show company facet", zap.Error(err))
	}
	v.invalidate()

	return c.Respond()
}

func handleCompanyFacet(ctx *Context, c tele.Context, v *view, idx string) error {
	feed, ok := v.list.(*listing.Feed)
	if !ok {
		return c.Respond()
	}

	company := ""
	if idx != "" {
		i, err := strconv.Atoi(idx)
		companies := feed.Companies()
		if err != nil || i < 0 || i >= len(companies) {
			return c.Respond(&tele.CallbackResponse{Text: "❌ Unknown company"})
		}
		company = companies[i]
	}

	_ = c.Respond(&tele.CallbackResponse{Text: "⏳ Loading…"})
	v.invalidate()

	loadCtx, cancel := context.WithTimeout(context.Background(), listLoadTimeout)
	defer cancel()

	if err := feed.SetCompany(loadCtx, company); err != nil {
		ctx.Logger.Warn("company filter load failed", zap.String("company", company), zap.Error(err))
	}
	return nil
}

func handleDigestToggle(ctx *Context, c tele.Context, enabled bool) error {
	dbCtx, cancel := dbContext()
	defer cancel()

	if err := ctx.Store.SetDigestEnabled(dbCtx, c.Sender().ID, enabled); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "😔 Could not save"})
	}

	if err := c.Edit(digestStatus(enabled), utils.DigestKeyboard(enabled)); err != nil {
		ctx.Logger.Warn("failed to edit digest message", zap.Error(err))
	}

	if enabled {
		return c.Respond(&tele.CallbackResponse{Text: "🔔 Digest on"})
	}
	return c.Respond(&tele.CallbackResponse{Text: "🔕 Digest off"})
}

func respondListError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, listing.ErrNotFound):
		return c.Respond(&tele.CallbackResponse{Text: "Already gone. Tap 🔄 to refresh."})
	case errors.Is(err, listing.ErrScrapedCompany):
		return c.Respond(&tele.CallbackResponse{Text: "⛔ Scraped companies cannot be deleted", ShowAlert: true})
	default:
		return c.Respond(&tele.CallbackResponse{Text: "❌ " + err.Error()})
	}
}
