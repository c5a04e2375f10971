package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/query"
)

// Kind names a list a user can open. It doubles as the list_views key.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindCompanies Kind = "admin_companies"
	KindFeed      Kind = "feed"
	KindReview    Kind = "review"
	KindRejected  Kind = "rejected"
	KindTestLogs  Kind = "test_logs"
)

// AdminKinds are forgotten on logout
var AdminKinds = []string{string(KindCompanies), string(KindReview), string(KindRejected), string(KindTestLogs)}

// engine is the part of every list a view drives
type engine interface {
	Start(ctx context.Context) error
	Refetch(ctx context.Context) error
	Type(raw string)
	Commit()
	SetSort(s query.Sort) error
	SetPage(p int)
	State() query.State
	Restore(s query.State)
	Close()
}

type messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type viewStore interface {
	SaveListView(ctx context.Context, userID int64, list string, state query.State) error
}

// view is one list shown to one user as a single message that is edited in
// place on every change
type view struct {
	kind   Kind
	userID int64
	list   engine
	render func() (string, *tele.ReplyMarkup)
	views  *Views

	mu     sync.Mutex
	msg    *tele.Message
	last   string
	saved  query.State
	closed bool
}

// refresh re-renders the message and persists the list state. It is the
// OnChange hook of the view's list.
func (v *view) refresh() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.msg == nil || v.closed {
		return
	}

	text, markup := v.render()
	if sig := signature(text, markup); sig != v.last {
		_, err := v.views.bot.Edit(v.msg, text, markup, tele.ModeMarkdownV2, tele.NoPreview)
		switch {
		case err == nil, notModified(err):
			v.last = sig
		default:
			v.views.logger.Warn("failed to edit list message",
				zap.Int64("user_id", v.userID),
				zap.String("list", string(v.kind)),
				zap.Error(err),
			)
		}
	}

	v.persist()
}

// invalidate forces the next refresh to edit the message
func (v *view) invalidate() {
	v.mu.Lock()
	v.last = ""
	v.mu.Unlock()
}

func (v *view) persist() {
	st := v.list.State()
	if st == v.saved || v.views.store == nil {
		return
	}

	ctx, cancel := dbContext()
	defer cancel()

	if err := v.views.store.SaveListView(ctx, v.userID, string(v.kind), st); err != nil {
		v.views.logger.Warn("failed to save list view",
			zap.Int64("user_id", v.userID),
			zap.String("list", string(v.kind)),
			zap.Error(err),
		)
		return
	}
	v.saved = st
}

func (v *view) messageID() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.msg == nil {
		return 0
	}
	return v.msg.ID
}

func (v *view) close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()

	v.list.Close()
}

// Views tracks the one open list of every user
type Views struct {
	bot    messenger
	store  viewStore
	logger *zap.Logger

	mu   sync.Mutex
	open map[int64]*view
}

func NewViews(bot messenger, store viewStore, logger *zap.Logger) *Views {
	return &Views{
		bot:    bot,
		store:  store,
		logger: logger,
		open:   make(map[int64]*view),
	}
}

// replace registers v as the user's open list and closes the previous one
func (vs *Views) replace(v *view) {
	v.views = vs

	vs.mu.Lock()
	prev := vs.open[v.userID]
	vs.open[v.userID] = v
	vs.mu.Unlock()

	if prev != nil {
		prev.close()
	}
}

func (vs *Views) get(userID int64) *view {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.open[userID]
}

// Close closes the user's open list, if any
func (vs *Views) Close(userID int64) {
	if v := vs.detach(userID); v != nil {
		v.close()
	}
}

// detach forgets the user's open list without closing it
func (vs *Views) detach(userID int64) *view {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	v := vs.open[userID]
	delete(vs.open, userID)
	return v
}

// CloseAll closes every open list and waits for their background work
func (vs *Views) CloseAll() {
	vs.mu.Lock()
	open := vs.open
	vs.open = make(map[int64]*view)
	vs.mu.Unlock()

	for _, v := range open {
		v.close()
	}

	vs.logger.Info("list views closed", zap.Int("count", len(open)))
}

// show sends the first rendering of v to the chat
func (vs *Views) show(to tele.Recipient, v *view) error {
	text, markup := v.render()

	msg, err := vs.bot.Send(to, text, markup, tele.ModeMarkdownV2, tele.NoPreview)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.msg = msg
	v.last = signature(text, markup)
	v.mu.Unlock()

	return nil
}

func (vs *Views) notify(to tele.Recipient, text string) {
	if _, err := vs.bot.Send(to, text); err != nil {
		vs.logger.Warn("failed to notify user", zap.String("chat", to.Recipient()), zap.Error(err))
	}
}

func signature(text string, markup *tele.ReplyMarkup) string {
	b, _ := json.Marshal(markup)
	return text + "\x00" + string(b)
}

func notModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
