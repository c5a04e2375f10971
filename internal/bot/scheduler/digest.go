// Package scheduler sends the periodic admin digest.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/api/board"
	"jobboard-bot/internal/bot/utils"
	"jobboard-bot/internal/models"
	"jobboard-bot/internal/session"
)

const runTimeout = 5 * time.Minute

type recipientStore interface {
	GetDigestRecipients(ctx context.Context) ([]models.User, error)
	UpdateLastDigest(ctx context.Context, userID int64) error
}

type sessionStore interface {
	Get(ctx context.Context, userID int64) (*session.Session, error)
	Invalidate(ctx context.Context, userID int64, cause error)
}

type statsSource interface {
	DailyStats(ctx context.Context, token string) (*models.DailyStats, error)
}

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Digest sends pipeline stats to every admin with the digest enabled and a
// live session
type Digest struct {
	cron     *cron.Cron
	spec     string
	bot      sender
	store    recipientStore
	sessions sessionStore
	stats    statsSource
	logger   *zap.Logger
}

func New(bot sender, store recipientStore, sessions sessionStore, stats statsSource, spec string, logger *zap.Logger) *Digest {
	cl := cronLogger{logger.Sugar()}

	return &Digest{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		spec:     spec,
		bot:      bot,
		store:    store,
		sessions: sessions,
		stats:    stats,
		logger:   logger,
	}
}

// Start registers the job and starts the scheduler. Runs stop when ctx is
// cancelled.
func (d *Digest) Start(ctx context.Context) error {
	if _, err := d.cron.AddFunc(d.spec, func() { d.run(ctx) }); err != nil {
		return fmt.Errorf("schedule digest %q: %w", d.spec, err)
	}

	d.cron.Start()
	d.logger.Info("digest scheduler started", zap.String("spec", d.spec))

	return nil
}

// Stop waits for a running digest to finish
func (d *Digest) Stop() {
	<-d.cron.Stop().Done()
	d.logger.Info("digest scheduler stopped")
}

func (d *Digest) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	users, err := d.store.GetDigestRecipients(ctx)
	if err != nil {
		d.logger.Error("failed to get digest recipients", zap.Error(err))
		return
	}

	var sent int
	for _, u := range users {
		if ctx.Err() != nil {
			return
		}

		ok, err := d.sendTo(ctx, u.ID)
		if err != nil {
			d.logger.Error("failed to send digest", zap.Int64("user_id", u.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		sent++

		if err := d.store.UpdateLastDigest(ctx, u.ID); err != nil {
			d.logger.Warn("failed to update last digest", zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}

	d.logger.Info("digest run finished", zap.Int("recipients", len(users)), zap.Int("sent", sent))
}

// sendTo reports false when the user has no usable admin session
func (d *Digest) sendTo(ctx context.Context, userID int64) (bool, error) {
	sess, err := d.sessions.Get(ctx, userID)
	if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrExpired) {
		d.logger.Debug("skipping digest, no session", zap.Int64("user_id", userID))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !sess.IsAdmin() {
		return false, nil
	}

	stats, err := d.stats.DailyStats(ctx, sess.Token)
	if errors.Is(err, board.ErrUnauthorized) {
		d.sessions.Invalidate(ctx, userID, err)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("daily stats: %w", err)
	}

	if _, err := d.bot.Send(&tele.User{ID: userID}, utils.FormatDigest(sess.Name, stats), tele.ModeMarkdownV2); err != nil {
		return false, fmt.Errorf("send: %w", err)
	}

	return true, nil
}

// cronLogger routes cron's own logging into zap
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
