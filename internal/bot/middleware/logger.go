package middleware

import (
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Logger logs every update with its handling time. Free text is not
// logged, it may be a password or a search; only commands are.
func Logger(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()

			var userID int64
			var username string
			if user := c.Sender(); user != nil {
				userID = user.ID
				username = user.Username
			}

			fields := []zap.Field{
				zap.Int64("user_id", userID),
				zap.String("username", username),
			}

			switch {
			case c.Callback() != nil:
				action, _, _ := strings.Cut(strings.TrimPrefix(c.Callback().Data, "\f"), ":")
				fields = append(fields, zap.String("type", "callback"), zap.String("action", action))
			case c.Message() != nil:
				text := c.Message().Text
				if strings.HasPrefix(text, "/") {
					fields = append(fields, zap.String("type", "command"), zap.String("command", strings.Fields(text)[0]))
				} else {
					fields = append(fields, zap.String("type", "message"), zap.Int("text_len", len(text)))
				}
			}

			err := next(c)

			fields = append(fields, zap.Duration("duration", time.Since(start)))

			if err != nil {
				fields = append(fields, zap.Error(err))
				logger.Error("handler error", fields...)
			} else {
				logger.Info("update handled", fields...)
			}

			return err
		}
	}
}
