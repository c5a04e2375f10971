package middleware

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const MaxRequestsPerMinute = 50

type counter interface {
	IncrementUserRateLimit(ctx context.Context, userID int64) (int64, error)
}

// RateLimit drops updates from users over MaxRequestsPerMinute in the
// current one-minute window. A failing counter lets the update through.
func RateLimit(cache counter, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			count, err := cache.IncrementUserRateLimit(ctx, user.ID)
			if err != nil {
				logger.Error("failed to check rate limit",
					zap.Int64("user_id", user.ID),
					zap.Error(err),
				)
				return next(c)
			}

			if count <= MaxRequestsPerMinute {
				return next(c)
			}

			logger.Warn("rate limit exceeded",
				zap.Int64("user_id", user.ID),
				zap.Int64("count", count),
			)

			// tell the user once per window
			if count > MaxRequestsPerMinute+1 {
				if c.Callback() != nil {
					return c.Respond()
				}
				return nil
			}

			msg := fmt.Sprintf("⚠️ Too many requests. Wait a minute, the limit is %d per minute.", MaxRequestsPerMinute)
			if c.Callback() != nil {
				return c.Respond(&tele.CallbackResponse{Text: msg, ShowAlert: true})
			}
			return c.Reply(msg)
		}
	}
}
