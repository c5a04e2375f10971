package handlers

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/api/board"
	"jobboard-bot/internal/config"
	"jobboard-bot/internal/listing"
	"jobboard-bot/internal/query"
	"jobboard-bot/internal/session"
	"jobboard-bot/internal/storage/postgres"
	"jobboard-bot/internal/storage/redis"
)

const dbTimeout = 10 * time.Second

// Context contains deps for all handlers
type Context struct {
	Store    *postgres.Store
	Cache    *redis.Cache
	Sessions *session.Store
	Board    *board.Client
	Views    *Views
	Config   *config.Config
	Logger   *zap.Logger
}

func dbContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

// settings builds the list settings for a view owned by userID
func (ctx *Context) settings(v *view) listing.Settings {
	return listing.Settings{
		PageSize:   ctx.Config.PageSize,
		FetchLimit: ctx.Config.JobsFetchLimit,
		Debounce:   ctx.Config.SearchDebounce,
		Locale:     query.ParseLocale(ctx.Config.CollationLocale),
		OnChange:   v.refresh,
		OnMutationError: func(me *listing.MutationError) {
			ctx.onMutationError(v.userID, me)
		},
		Logger: ctx.Logger.With(zap.Int64("user_id", v.userID)),
	}
}

func (ctx *Context) onMutationError(userID int64, me *listing.MutationError) {
	to := &tele.User{ID: userID}

	if errors.Is(me, board.ErrUnauthorized) {
		ctx.expireSession(userID, me)
		ctx.Views.notify(to, "🔒 Your session expired. Send /login to sign in again.")
		return
	}

	ctx.Views.notify(to, "⚠️ Could not "+me.Action+". The list was reloaded.")
}

// expireSession drops a session the backend refused together with the
// user's open list, which still holds the old token. The list is closed on
// its own goroutine because this may run on one of the list's mutation
// goroutines, which Close waits for.
func (ctx *Context) expireSession(userID int64, cause error) {
	dbCtx, cancel := dbContext()
	defer cancel()
	ctx.Sessions.Invalidate(dbCtx, userID, cause)

	if v := ctx.Views.detach(userID); v != nil {
		go v.close()
	}
}

// requireSession loads the sender's session and answers the user when there
// is none
func requireSession(ctx *Context, c tele.Context) (*session.Session, bool) {
	dbCtx, cancel := dbContext()
	defer cancel()

	sess, err := ctx.Sessions.Get(dbCtx, c.Sender().ID)
	switch {
	case err == nil:
		return sess, true
	case errors.Is(err, session.ErrNoSession):
		_ = c.Send("🔑 Sign in first with /login.")
	case errors.Is(err, session.ErrExpired):
		_ = c.Send("🔒 Your session expired. Send /login to sign in again.")
	default:
		ctx.Logger.Error("failed to load session", zap.Int64("user_id", c.Sender().ID), zap.Error(err))
		_ = c.Send("😔 Something went wrong. Try again later.")
	}
	return nil, false
}

func requireAdmin(ctx *Context, c tele.Context) (*session.Session, bool) {
	sess, ok := requireSession(ctx, c)
	if !ok {
		return nil, false
	}
	if !sess.IsAdmin() {
		_ = c.Send("⛔ This command is for admins.")
		return nil, false
	}
	return sess, true
}

// optionalSession returns the sender's session or nil
func optionalSession(ctx *Context, userID int64) *session.Session {
	dbCtx, cancel := dbContext()
	defer cancel()

	sess, err := ctx.Sessions.Get(dbCtx, userID)
	if err != nil {
		return nil
	}
	return sess
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
