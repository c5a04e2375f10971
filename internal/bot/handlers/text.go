package handlers

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/bot/utils"
	"jobboard-bot/internal/storage/redis"
)

// User states for conversation flow
const (
	StateIdle          = ""
	StateLoginEmail    = "login_email"
	StateLoginPassword = "login_password"
	StateAddCompany    = "add_company"
	StateAddJob        = "add_job"
)

// HandleText processes all text messages. Outside a conversation, text is
// the search input of the user's open list.
func HandleText(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		text := strings.TrimSpace(c.Text())
		userID := c.Sender().ID

		if text == utils.BtnCancel {
			return cancelConversation(ctx, c)
		}

		state, err := getUserState(ctx, userID)
		if err != nil {
			ctx.Logger.Warn("failed to get user state", zap.Error(err))
			state = StateIdle
		}

		if state != StateIdle {
			return handleStateInput(ctx, c, state)
		}

		switch text {
		case utils.BtnCompanies:
			return HandleCompanies(ctx)(c)
		case utils.BtnJobs:
			return HandleJobs(ctx)(c)
		case utils.BtnAccount:
			return HandleLogin(ctx)(c)
		case utils.BtnHelp:
			return HandleHelp(ctx)(c)
		}

		v := ctx.Views.get(userID)
		if v == nil {
			return c.Reply("Open /companies or /jobs first, then send text to search.")
		}

		v.list.Type(text)
		v.refresh()

		// keep the chat down to the list message
		if err := c.Delete(); err != nil {
			ctx.Logger.Debug("failed to delete search message", zap.Error(err))
		}
		return nil
	}
}

// /clear drops the search of the open list at once
func HandleClear(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		v := ctx.Views.get(c.Sender().ID)
		if v == nil {
			return c.Reply("No list is open.")
		}

		v.list.Type("")
		v.list.Commit()
		return nil
	}
}

func handleStateInput(ctx *Context, c tele.Context, state string) error {
	switch state {
	case StateLoginEmail:
		return handleLoginEmail(ctx, c)
	case StateLoginPassword:
		return handleLoginPassword(ctx, c)
	case StateAddCompany:
		return handleAddCompanyInput(ctx, c)
	case StateAddJob:
		return handleAddJobInput(ctx, c)
	default:
		_ = clearUserState(ctx, c.Sender().ID)
		return c.Reply("Use the menu buttons or commands")
	}
}

func setUserState(ctx *Context, userID int64, state string) error {
	return ctx.Cache.SetUserState(context.Background(), userID, state)
}

func getUserState(ctx *Context, userID int64) (string, error) {
	state, err := ctx.Cache.GetUserState(context.Background(), userID)
	if errors.Is(err, redis.ErrCacheMiss) {
		return StateIdle, nil
	}
	return state, err
}

func clearUserState(ctx *Context, userID int64) error {
	return ctx.Cache.DeleteUserState(context.Background(), userID)
}

func cancelConversation(ctx *Context, c tele.Context) error {
	userID := c.Sender().ID

	if err := clearUserState(ctx, userID); err != nil {
		ctx.Logger.Warn("failed to clear state", zap.Error(err))
	}
	_ = ctx.Cache.DeleteForm(context.Background(), userID, loginForm)

	return c.Send("❌ Cancelled", utils.MainMenuKeyboard())
}
