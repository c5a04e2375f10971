package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/api/board"
	"jobboard-bot/internal/bot/utils"
	"jobboard-bot/internal/session"
)

const (
	loginForm    = "login"
	loginTimeout = 20 * time.Second
)

type loginDraft struct {
	Email string `json:"email"`
}

// /login
func HandleLogin(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		if err := setUserState(ctx, c.Sender().ID, StateLoginEmail); err != nil {
			ctx.Logger.Error("failed to set user state", zap.Error(err))
			return c.Send("😔 Something went wrong. Try again later.")
		}

		return c.Send("📧 Send the email of your job board account.", utils.CancelKeyboard())
	}
}

func handleLoginEmail(ctx *Context, c tele.Context) error {
	userID := c.Sender().ID

	addr, err := mail.ParseAddress(strings.TrimSpace(c.Text()))
	if err != nil {
		return c.Send("That does not look like an email. Try again or tap Cancel.", utils.CancelKeyboard())
	}

	dbCtx, cancel := dbContext()
	defer cancel()

	if err := ctx.Cache.SetForm(dbCtx, userID, loginForm, loginDraft{Email: addr.Address}); err != nil {
		ctx.Logger.Error("failed to store login form", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send("😔 Something went wrong. Try again later.")
	}

	if err := setUserState(ctx, userID, StateLoginPassword); err != nil {
		ctx.Logger.Error("failed to set user state", zap.Error(err))
	}

	return c.Send("🔑 Now send your password. I delete the message right away.", utils.CancelKeyboard())
}

func handleLoginPassword(ctx *Context, c tele.Context) error {
	userID := c.Sender().ID
	password := c.Text()

	if err := c.Delete(); err != nil {
		ctx.Logger.Warn("failed to delete password message", zap.Int64("user_id", userID), zap.Error(err))
	}

	dbCtx, cancel := dbContext()
	defer cancel()

	var draft loginDraft
	if err := ctx.Cache.GetForm(dbCtx, userID, loginForm, &draft); err != nil || draft.Email == "" {
		_ = clearUserState(ctx, userID)
		return c.Send("The login timed out. Send /login to start again.", utils.MainMenuKeyboard())
	}

	_ = ctx.Cache.DeleteForm(dbCtx, userID, loginForm)
	_ = clearUserState(ctx, userID)

	loginCtx, cancelLogin := context.WithTimeout(context.Background(), loginTimeout)
	defer cancelLogin()

	res, err := ctx.Board.Login(loginCtx, board.Credentials{Email: draft.Email, Password: password})
	if err != nil {
		return c.Send(loginFailure(err), utils.MainMenuKeyboard())
	}

	sess, err := session.FromLogin(res, time.Now())
	if err != nil {
		ctx.Logger.Error("unusable login token", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send("😔 The server sent an unusable token. Try again later.", utils.MainMenuKeyboard())
	}

	if err := ctx.Sessions.Save(dbCtx, userID, sess); err != nil {
		return c.Send("😔 Could not start the session. Try again later.", utils.MainMenuKeyboard())
	}

	if err := registerUser(ctx, c.Sender()); err == nil {
		if err := ctx.Store.SetAdmin(dbCtx, userID, sess.IsAdmin()); err != nil {
			ctx.Logger.Warn("failed to record admin flag", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	msg := fmt.Sprintf("✅ Signed in as %s.", sess.Email)
	if sess.IsAdmin() {
		msg += "\n\nAdmin commands: /review /rejected /logs /manage /stats /digest"
	}

	return c.Send(msg, utils.MainMenuKeyboard())
}

func loginFailure(err error) string {
	var apiErr *board.APIError
	switch {
	case errors.Is(err, board.ErrUnauthorized):
		return "❌ Wrong email or password."
	case errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Message != "":
		return "❌ " + apiErr.Message
	default:
		return "😔 The job board is not answering. Try again later."
	}
}

// /logout
func HandleLogout(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		// open lists hold the old token
		ctx.Views.Close(userID)

		dbCtx, cancel := dbContext()
		defer cancel()

		if err := ctx.Sessions.Delete(dbCtx, userID); err != nil {
			ctx.Logger.Error("failed to delete session", zap.Int64("user_id", userID), zap.Error(err))
			return c.Send("😔 Something went wrong. Try again later.")
		}

		if err := ctx.Store.SignOut(dbCtx, userID, AdminKinds); err != nil {
			ctx.Logger.Warn("failed to reset user", zap.Int64("user_id", userID), zap.Error(err))
		}

		ctx.Logger.Info("user signed out", zap.Int64("user_id", userID))

		return c.Send("👋 Signed out.", utils.MainMenuKeyboard())
	}
}
