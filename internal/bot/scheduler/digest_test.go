package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/api/board"
	"jobboard-bot/internal/models"
	"jobboard-bot/internal/session"
)

type fakeStore struct {
	users   []models.User
	updated []int64
}

func (f *fakeStore) GetDigestRecipients(context.Context) ([]models.User, error) {
	return f.users, nil
}

func (f *fakeStore) UpdateLastDigest(_ context.Context, userID int64) error {
	f.updated = append(f.updated, userID)
	return nil
}

type fakeSessions struct {
	byUser      map[int64]*session.Session
	invalidated []int64
}

func (f *fakeSessions) Get(_ context.Context, userID int64) (*session.Session, error) {
	s, ok := f.byUser[userID]
	if !ok {
		return nil, session.ErrNoSession
	}
	return s, nil
}

func (f *fakeSessions) Invalidate(_ context.Context, userID int64, _ error) {
	f.invalidated = append(f.invalidated, userID)
}

type fakeStats map[string]error

func (f fakeStats) DailyStats(_ context.Context, token string) (*models.DailyStats, error) {
	if err := f[token]; err != nil {
		return nil, err
	}
	return &models.DailyStats{JobsScraped: 120, JobsPendingReview: 4, JobsPublished: 9}, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent map[string]string
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[to.Recipient()] = what.(string)
	return &tele.Message{}, nil
}

func TestDigestRun(t *testing.T) {
	store := &fakeStore{users: []models.User{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}}
	sessions := &fakeSessions{byUser: map[int64]*session.Session{
		1: {Token: "good", Name: "Ada", Role: session.RoleAdmin},
		3: {Token: "stale", Role: session.RoleAdmin},
		4: {Token: "demoted", Role: "user"},
	}}
	stats := fakeStats{"stale": &board.APIError{Status: 401}}
	bot := &fakeSender{}

	d := New(bot, store, sessions, stats, "@every 1h", zap.NewNop())
	d.run(context.Background())

	require.Len(t, bot.sent, 1)
	assert.Contains(t, bot.sent["1"], "Admin digest for Ada")
	assert.Contains(t, bot.sent["1"], "/review")

	assert.Equal(t, []int64{1}, store.updated)
	assert.Equal(t, []int64{3}, sessions.invalidated)
}

func TestDigestStart_BadSpec(t *testing.T) {
	d := New(&fakeSender{}, &fakeStore{}, &fakeSessions{}, fakeStats{}, "every hour", zap.NewNop())
	assert.Error(t, d.Start(context.Background()))
}
