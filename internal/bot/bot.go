package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/api/board"
	"jobboard-bot/internal/bot/handlers"
	"jobboard-bot/internal/bot/middleware"
	"jobboard-bot/internal/config"
	"jobboard-bot/internal/session"
	"jobboard-bot/internal/storage/postgres"
	"jobboard-bot/internal/storage/redis"
)

// Bot represents Telegram bot
type Bot struct {
	bot      *tele.Bot
	views    *handlers.Views
	store    *postgres.Store
	cache    *redis.Cache
	sessions *session.Store
	board    *board.Client
	config   *config.Config
	logger   *zap.Logger
}

func New(
	cfg *config.Config,
	store *postgres.Store,
	cache *redis.Cache,
	sessions *session.Store,
	boardClient *board.Client,
	logger *zap.Logger,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.TelegramToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error("telegram error", zap.Error(err))
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		views:    handlers.NewViews(b, store, logger.Named("views")),
		store:    store,
		cache:    cache,
		sessions: sessions,
		board:    boardClient,
		config:   cfg,
		logger:   logger,
	}

	bot.setupMiddleware()
	bot.registerHandlers()

	logger.Info("bot initialized")

	return bot, nil
}

func (b *Bot) setupMiddleware() {
	b.bot.Use(middleware.Recovery(b.logger))
	b.bot.Use(middleware.Logger(b.logger))
	b.bot.Use(middleware.RateLimit(b.cache, b.logger))
}

func (b *Bot) registerHandlers() {
	ctx := &handlers.Context{
		Store:    b.store,
		Cache:    b.cache,
		Sessions: b.sessions,
		Board:    b.board,
		Views:    b.views,
		Config:   b.config,
		Logger:   b.logger,
	}

	b.bot.Handle("/start", handlers.HandleStart(ctx))
	b.bot.Handle("/help", handlers.HandleHelp(ctx))

	b.bot.Handle("/companies", handlers.HandleCompanies(ctx))
	b.bot.Handle("/jobs", handlers.HandleJobs(ctx))
	b.bot.Handle("/clear", handlers.HandleClear(ctx))

	b.bot.Handle("/login", handlers.HandleLogin(ctx))
	b.bot.Handle("/logout", handlers.HandleLogout(ctx))

	b.bot.Handle("/review", handlers.HandleReview(ctx))
	b.bot.Handle("/rejected", handlers.HandleRejected(ctx))
	b.bot.Handle("/logs", handlers.HandleTestLogs(ctx))
	b.bot.Handle("/manage", handlers.HandleManage(ctx))
	b.bot.Handle("/addcompany", handlers.HandleAddCompany(ctx))
	b.bot.Handle("/addjob", handlers.HandleAddJob(ctx))
	b.bot.Handle("/stats", handlers.HandleStats(ctx))
	b.bot.Handle("/digest", handlers.HandleDigest(ctx))

	b.bot.Handle(tele.OnText, handlers.HandleText(ctx))
	b.bot.Handle(tele.OnCallback, handlers.HandleCallback(ctx))

	b.logger.Info("handlers registered")
}

// Start polls until ctx is cancelled, then closes every open list
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting bot")

	go b.bot.Start()

	<-ctx.Done()

	b.logger.Info("stopping bot")
	b.bot.Stop()
	b.views.CloseAll()

	return nil
}

func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}
