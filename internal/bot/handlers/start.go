package handlers

import (
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/bot/utils"
	"jobboard-bot/internal/models"
)

// /start command
func HandleStart(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()

		ctx.Logger.Info("user started bot",
			zap.Int64("user_id", sender.ID),
			zap.String("username", sender.Username),
		)

		if err := registerUser(ctx, sender); err != nil {
			return c.Send("😔 Something went wrong. Try again later.")
		}

		return c.Send(
			utils.FormatWelcomeMessage(sender.FirstName),
			utils.MainMenuKeyboard(),
			tele.ModeMarkdownV2,
		)
	}
}

// /help
func HandleHelp(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Send(
			utils.FormatHelpMessage(),
			utils.MainMenuKeyboard(),
			tele.ModeMarkdownV2,
		)
	}
}

// registerUser makes sure the sender has a users row. Saved list views and
// the admin flag hang off it, and a user may skip /start.
func registerUser(ctx *Context, sender *tele.User) error {
	dbCtx, cancel := dbContext()
	defer cancel()

	_, err := ctx.Store.GetOrCreateUser(dbCtx, &models.User{
		ID:            sender.ID,
		Username:      stringPtr(sender.Username),
		FirstName:     stringPtr(sender.FirstName),
		LastName:      stringPtr(sender.LastName),
		DigestEnabled: true,
	})
	if err != nil {
		ctx.Logger.Error("failed to register user", zap.Int64("user_id", sender.ID), zap.Error(err))
	}
	return err
}
