package listing

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"jobboard-bot/internal/models"
	"jobboard-bot/internal/query"
	"jobboard-bot/internal/session"
)

type FeedSource interface {
	AllJobs(ctx context.Context, company string, limit int) ([]models.Job, []string, error)
	SubmitFeedback(ctx context.Context, token, jobID string, thumb *models.Thumb) error
}

type ReviewSource interface {
	ReviewQueue(ctx context.Context, token string) ([]models.Job, error)
	Decide(ctx context.Context, token, jobID string, d models.Decision) error
}

type RejectedSource interface {
	RejectedJobs(ctx context.Context, token string) ([]models.Job, error)
	SubmitFeedback(ctx context.Context, token, jobID string, thumb *models.Thumb) error
}

type TestLogSource interface {
	TestLogs(ctx context.Context, token string) ([]models.Job, error)
}

// JobSorts lists the sort options of the job lists in display order
var JobSorts = []query.Sort{query.SortNewest, query.SortAZ, query.SortZA}

var matchJob = query.MatchFields(func(j models.Job) []string {
	return []string{j.Title, j.Company}
})

func jobSorts(tag language.Tag) map[query.Sort]query.Comparator[models.Job] {
	byTitle := query.Alphabetical(tag, func(j models.Job) string { return j.Title })
	return map[query.Sort]query.Comparator[models.Job]{
		query.SortNewest: query.Descending(func(j models.Job) int64 { return j.Posted().Unix() }),
		query.SortAZ:     byTitle,
		query.SortZA:     query.Reverse(byTitle),
	}
}

func newJobList(fetch query.Fetcher[models.Job], s Settings, name string, match query.Matcher[models.Job], filter func(models.Job) bool) *List[models.Job] {
	return New(Options[models.Job]{
		Engine: query.Config[models.Job]{
			Fetch:       fetch,
			Match:       match,
			Filter:      filter,
			Sorts:       jobSorts(s.Locale),
			DefaultSort: query.SortNewest,
			Limit:       s.PageSize,
			Debounce:    s.Debounce,
			AfterFunc:   s.AfterFunc,
			OnChange:    s.OnChange,
		},
		Key:             models.Job.Key,
		OnMutationError: s.OnMutationError,
		Logger:          s.logger().With(zap.String("list", name)),
	})
}

// Feed is the public job dashboard. The company facet is applied by the
// backend, so changing it refetches.
type Feed struct {
	*List[models.Job]

	client FeedSource
	token  string

	mu        sync.Mutex
	company   string
	companies []string
}

// NewFeed creates the job feed. sess may be nil for anonymous users.
func NewFeed(client FeedSource, sess *session.Session, s Settings) *Feed {
	f := &Feed{client: client}
	if sess != nil {
		f.token = sess.Token
	}

	limit := s.FetchLimit
	f.List = newJobList(func(ctx context.Context) ([]models.Job, error) {
		company := f.Company()
		jobs, companies, err := client.AllJobs(ctx, company, limit)
		if err != nil {
			return nil, err
		}

		f.mu.Lock()
		if company == "" {
			f.companies = companies
		}
		f.mu.Unlock()

		return jobs, nil
	}, s, "feed", matchJob, nil)

	return f
}

func (f *Feed) Company() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.company
}

// Companies is the company facet reported by the unfiltered feed
func (f *Feed) Companies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.companies...)
}

// SetCompany switches the company facet, returns to page 1 and reloads.
// An empty company shows every company.
func (f *Feed) SetCompany(ctx context.Context, company string) error {
	f.mu.Lock()
	f.company = company
	f.mu.Unlock()

	f.SetPage(1)
	return f.Refetch(ctx)
}

// Thumb records feedback. Thumbs down hides the job at once; thumbs up marks
// it in place.
func (f *Feed) Thumb(key string, thumb models.Thumb) error {
	send := func(ctx context.Context) error {
		return f.client.SubmitFeedback(ctx, f.token, key, &thumb)
	}

	if models.RemovesFromFeed(&thumb) {
		return f.Remove("thumbs down", key, send)
	}

	return f.Patch("thumbs up", key, func(j models.Job) models.Job {
		j.ThumbStatus = &thumb
		return j
	}, send)
}

// ReviewQueue holds jobs waiting for an admin decision
type ReviewQueue struct {
	*List[models.Job]

	client ReviewSource
	sess   *session.Session
}

func NewReviewQueue(client ReviewSource, sess *session.Session, s Settings) *ReviewQueue {
	return &ReviewQueue{
		List: newJobList(func(ctx context.Context) ([]models.Job, error) {
			return client.ReviewQueue(ctx, sess.Token)
		}, s, "review", matchJob, nil),
		client: client,
		sess:   sess,
	}
}

// Decide accepts or rejects a pending job. Either way it leaves the queue.
func (r *ReviewQueue) Decide(key string, d models.Decision) error {
	j, ok := r.Find(key)
	if !ok {
		return ErrNotFound
	}

	from := j.Status
	if from == "" {
		from = models.StatusPendingReview
	}
	if !models.CanTransition(from, d.Target()) {
		return fmt.Errorf("cannot move job from %s to %s", from, d.Target())
	}

	return r.Remove(string(d), key, func(ctx context.Context) error {
		return r.client.Decide(ctx, r.sess.Token, key, d)
	})
}

// Rejected lists rejected jobs so an admin can restore them
type Rejected struct {
	*List[models.Job]

	client RejectedSource
	sess   *session.Session
}

func NewRejected(client RejectedSource, sess *session.Session, s Settings) *Rejected {
	return &Rejected{
		List: newJobList(func(ctx context.Context) ([]models.Job, error) {
			return client.RejectedJobs(ctx, sess.Token)
		}, s, "rejected", matchJob, nil),
		client: client,
		sess:   sess,
	}
}

// Unreject clears the feedback marker, which the backend treats as
// un-rejecting. The job stays listed, marked active, until the next reload.
func (r *Rejected) Unreject(key string) error {
	return r.Patch("restore", key, func(j models.Job) models.Job {
		j.ThumbStatus = nil
		j.Status = models.StatusActive
		return j
	}, func(ctx context.Context) error {
		return r.client.SubmitFeedback(ctx, r.sess.Token, key, nil)
	})
}

// DecisionFilter narrows the classifier test logs
type DecisionFilter string

const (
	DecisionAll      DecisionFilter = "all"
	DecisionAccepted DecisionFilter = "accepted"
	DecisionRejected DecisionFilter = "rejected"
)

func ParseDecisionFilter(s string) (DecisionFilter, error) {
	switch f := DecisionFilter(s); f {
	case DecisionAll, DecisionAccepted, DecisionRejected:
		return f, nil
	}
	return "", fmt.Errorf("unknown decision filter %q", s)
}

var matchTestLog = query.MatchFields(func(j models.Job) []string {
	return []string{j.Title, j.Company, j.JobID}
})

// TestLogs shows the classifier's recent decisions. It is read-only.
type TestLogs struct {
	*List[models.Job]

	mu       sync.Mutex
	decision DecisionFilter
}

func NewTestLogs(client TestLogSource, sess *session.Session, s Settings) *TestLogs {
	t := &TestLogs{decision: DecisionAll}
	t.List = newJobList(func(ctx context.Context) ([]models.Job, error) {
		return client.TestLogs(ctx, sess.Token)
	}, s, "test_logs", matchTestLog, t.matchDecision)
	return t
}

func (t *TestLogs) Decision() DecisionFilter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decision
}

// SetDecision changes the decision facet and returns to page 1
func (t *TestLogs) SetDecision(d DecisionFilter) {
	t.mu.Lock()
	t.decision = d
	t.mu.Unlock()

	t.SetPage(1)
}

func (t *TestLogs) matchDecision(j models.Job) bool {
	d := t.Decision()
	return d == DecisionAll || j.FinalDecision == string(d)
}
