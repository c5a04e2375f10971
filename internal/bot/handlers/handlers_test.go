package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/api/board"
	"jobboard-bot/internal/listing"
	"jobboard-bot/internal/query"
	"jobboard-bot/internal/session"
	"jobboard-bot/internal/storage/redis"
)

// every list a view can hold keeps the full engine surface
var (
	_ engine = (*listing.Directory)(nil)
	_ engine = (*listing.AdminCompanies)(nil)
	_ engine = (*listing.Feed)(nil)
	_ engine = (*listing.ReviewQueue)(nil)
	_ engine = (*listing.Rejected)(nil)
	_ engine = (*listing.TestLogs)(nil)
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data   string
		action string
		args   []string
	}{
		{"\fpage:3", "page", []string{"3"}},
		{"refresh", "refresh", []string{}},
		{"\fthumb:up:65f0c2", "thumb", []string{"up", "65f0c2"}},
		{"\fdelete:Acme: Berlin", "delete", []string{"Acme", " Berlin"}},
		{"\fdecide:reject:a:b", "decide", []string{"reject", "a:b"}},
		{"\fcompany:", "company", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			action, args := parseCallback(tt.data)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.args, args)
		})
	}

	assert.Equal(t, "", arg(nil, 0))
}

func TestParseCompanyForm(t *testing.T) {
	nc, err := parseCompanyForm(" Acme GmbH ; acme.de ; Berlin, , Munich ")
	require.NoError(t, err)
	assert.Equal(t, "Acme GmbH", nc.Name)
	assert.Equal(t, "acme.de", nc.Domain)
	assert.Equal(t, "Berlin, Munich", nc.Cities)

	nc, err = parseCompanyForm("Zebra; zebra.io")
	require.NoError(t, err)
	assert.Empty(t, nc.Cities)

	_, err = parseCompanyForm("Only a name")
	assert.Error(t, err)
}

func TestParseJobForm(t *testing.T) {
	nj, err := parseJobForm(`title: Backend Engineer
Company: Acme GmbH
url: https://acme.de/jobs/42

german: yes
posted: 2024-05-01`)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", nj.Title)
	assert.Equal(t, "Acme GmbH", nj.Company)
	assert.Equal(t, "https://acme.de/jobs/42", nj.ApplicationURL)
	assert.True(t, nj.GermanRequired)
	assert.Equal(t, "2024-05-01", nj.PostedDate)

	errs := map[string]string{
		"title: x\ncompany: y":                    "url is required",
		"title: x\ncompany: y\nurl: z\nsalary: 1": `unknown field "salary"`,
		"title: x\ncompany: y\nurl: z\ngerman: ?": "german must be yes or no",
		"title: x\ncompany: y\nurl: z\nposted: 1": "posted must look like 2024-05-01",
		"just words":                              `line "just words" has no field name`,
	}
	for input, want := range errs {
		_, err := parseJobForm(input)
		assert.EqualError(t, err, want, input)
	}
}

func TestLoginFailure(t *testing.T) {
	assert.Equal(t, "❌ Wrong email or password.", loginFailure(fmt.Errorf("login: %w", &board.APIError{Status: 401})))
	assert.Equal(t, "❌ Email not verified", loginFailure(&board.APIError{Status: 403, Message: "Email not verified"}))
	assert.Contains(t, loginFailure(&board.APIError{Status: 502}), "not answering")
	assert.Contains(t, loginFailure(errors.New("dial tcp: refused")), "not answering")
}

type sentMessage struct {
	edit bool
	text string
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	editErr error
}

func (f *fakeMessenger) Send(_ tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{text: what.(string)})
	return &tele.Message{ID: 100}, nil
}

func (f *fakeMessenger) Edit(_ tele.Editable, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.sent = append(f.sent, sentMessage{edit: true, text: what.(string)})
	return &tele.Message{ID: 100}, nil
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeViewStore struct {
	mu    sync.Mutex
	saved []query.State
}

func (f *fakeViewStore) SaveListView(_ context.Context, _ int64, _ string, st query.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, st)
	return nil
}

// stubList is an engine whose state is set directly by the test
type stubList struct {
	mu     sync.Mutex
	state  query.State
	closed bool
}

func (s *stubList) Start(context.Context) error   { return nil }
func (s *stubList) Refetch(context.Context) error { return nil }
func (s *stubList) Type(string)                   {}
func (s *stubList) Commit()                       {}
func (s *stubList) SetSort(query.Sort) error      { return nil }
func (s *stubList) Restore(st query.State)        { s.SetState(st) }

func (s *stubList) SetPage(p int) {
	s.mu.Lock()
	s.state.Page = p
	s.mu.Unlock()
}

func (s *stubList) SetState(st query.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *stubList) State() query.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stubList) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *stubList) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newStubView(userID int64, list *stubList) *view {
	return &view{
		kind:   KindDirectory,
		userID: userID,
		list:   list,
		render: func() (string, *tele.ReplyMarkup) {
			return fmt.Sprintf("page %d", list.State().Page), nil
		},
	}
}

func TestViewRefresh(t *testing.T) {
	bot := &fakeMessenger{}
	store := &fakeViewStore{}
	views := NewViews(bot, store, zap.NewNop())

	list := &stubList{state: query.State{Page: 1}}
	v := newStubView(7, list)
	v.saved = list.State()

	v.refresh()
	assert.Empty(t, bot.messages(), "nothing is edited before the message exists")

	views.replace(v)
	require.NoError(t, views.show(&tele.User{ID: 7}, v))
	assert.Equal(t, []sentMessage{{text: "page 1"}}, bot.messages())
	assert.Equal(t, 100, v.messageID())

	v.refresh()
	assert.Len(t, bot.messages(), 1, "unchanged render is not sent again")
	assert.Empty(t, store.saved)

	list.SetPage(2)
	v.refresh()
	assert.Equal(t, sentMessage{edit: true, text: "page 2"}, bot.messages()[1])
	assert.Equal(t, []query.State{{Page: 2}}, store.saved)

	v.invalidate()
	v.refresh()
	assert.Len(t, bot.messages(), 3, "invalidate forces an edit")
	assert.Len(t, store.saved, 1, "state unchanged, nothing saved")
}

func TestViewRefresh_NotModifiedIsSuccess(t *testing.T) {
	bot := &fakeMessenger{editErr: errors.New("telegram: Bad Request: message is not modified (400)")}
	views := NewViews(bot, nil, zap.NewNop())

	list := &stubList{state: query.State{Page: 1}}
	v := newStubView(7, list)
	views.replace(v)
	require.NoError(t, views.show(&tele.User{ID: 7}, v))

	list.SetPage(3)
	v.refresh()

	v.mu.Lock()
	defer v.mu.Unlock()
	assert.Contains(t, v.last, "page 3")
}

func TestViewsReplaceClosesPrevious(t *testing.T) {
	views := NewViews(&fakeMessenger{}, nil, zap.NewNop())

	first := &stubList{}
	views.replace(newStubView(7, first))

	second := &stubList{}
	views.replace(newStubView(7, second))
	other := &stubList{}
	views.replace(newStubView(8, other))

	assert.True(t, first.closed)
	assert.False(t, second.closed)
	assert.Same(t, second, views.get(7).list)

	views.Close(7)
	assert.True(t, second.closed)
	assert.Nil(t, views.get(7))

	views.CloseAll()
	assert.True(t, other.closed)
	assert.Nil(t, views.get(8))
}

func TestOffset(t *testing.T) {
	p := query.Page[string]{Result: query.Result[string]{Page: 3}}
	assert.Equal(t, 48, offset(p, 24))
	assert.Equal(t, 2, offset(p, 0))
}

// memoryKV keeps cache entries as raw values
type memoryKV struct {
	mu      sync.Mutex
	entries map[string]any
}

func (m *memoryKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryKV) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	*dest.(*session.Session) = *v.(*session.Session)
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func TestRejectedTokenClosesOpenList(t *testing.T) {
	kv := &memoryKV{entries: map[string]any{}}
	sessions := session.NewStore(kv, zap.NewNop())
	require.NoError(t, sessions.Save(context.Background(), 7, &session.Session{
		Token:     "stale",
		Role:      session.RoleAdmin,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	bot := &fakeMessenger{}
	ctx := &Context{
		Sessions: sessions,
		Views:    NewViews(bot, nil, zap.NewNop()),
		Logger:   zap.NewNop(),
	}

	list := &stubList{}
	ctx.Views.replace(newStubView(7, list))

	ctx.onMutationError(7, &listing.MutationError{
		Action: "delete company",
		Key:    "m1",
		Err:    &board.APIError{Status: 401, Message: "Invalid Token"},
	})

	assert.Nil(t, ctx.Views.get(7))
	assert.Eventually(t, list.isClosed, time.Second, 5*time.Millisecond)

	_, err := sessions.Get(context.Background(), 7)
	assert.ErrorIs(t, err, session.ErrNoSession)

	msgs := bot.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].text, "/login")
}

func TestFailedMutationKeepsList(t *testing.T) {
	bot := &fakeMessenger{}
	ctx := &Context{
		Views:  NewViews(bot, nil, zap.NewNop()),
		Logger: zap.NewNop(),
	}

	list := &stubList{}
	ctx.Views.replace(newStubView(7, list))

	ctx.onMutationError(7, &listing.MutationError{Action: "delete company", Key: "m1", Err: errors.New("boom")})

	assert.Same(t, list, ctx.Views.get(7).list)
	assert.False(t, list.isClosed())
	require.Len(t, bot.messages(), 1)
	assert.Contains(t, bot.messages()[0].text, "Could not delete company")
}
