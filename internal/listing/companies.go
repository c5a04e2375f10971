package listing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"jobboard-bot/internal/models"
	"jobboard-bot/internal/query"
	"jobboard-bot/internal/session"
)

// Settings are shared by every list a user opens
type Settings struct {
	PageSize   int
	FetchLimit int
	Debounce   time.Duration
	Locale     language.Tag

	AfterFunc       query.AfterFunc
	OnChange        func()
	OnMutationError func(*MutationError)
	Logger          *zap.Logger
}

func (s Settings) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

type CompanySource interface {
	ListCompanies(ctx context.Context) ([]models.Company, error)
}

type CompanyAdmin interface {
	CompanySource
	AddCompany(ctx context.Context, token string, nc models.NewCompany) (*models.Company, error)
	DeleteCompany(ctx context.Context, token, id string) error
}

var matchCompany = query.MatchFields(func(c models.Company) []string {
	return append([]string{c.Name}, c.Cities...)
})

func companySorts(tag language.Tag) map[query.Sort]query.Comparator[models.Company] {
	byName := query.Alphabetical(tag, func(c models.Company) string { return c.Name })
	return map[query.Sort]query.Comparator[models.Company]{
		query.SortAZ:         byName,
		query.SortZA:         query.Reverse(byName),
		query.SortMostHiring: query.Descending(func(c models.Company) int { return c.OpenRoles }),
	}
}

// CompanySorts lists the sort options of the company lists in display order
var CompanySorts = []query.Sort{query.SortAZ, query.SortZA, query.SortMostHiring}

func newCompanyList(src CompanySource, s Settings, name string) *List[models.Company] {
	return New(Options[models.Company]{
		Engine: query.Config[models.Company]{
			Fetch:       src.ListCompanies,
			Match:       matchCompany,
			Sorts:       companySorts(s.Locale),
			DefaultSort: query.SortAZ,
			Limit:       s.PageSize,
			Debounce:    s.Debounce,
			AfterFunc:   s.AfterFunc,
			OnChange:    s.OnChange,
		},
		Key:             models.Company.Key,
		OnMutationError: s.OnMutationError,
		Logger:          s.logger().With(zap.String("list", name)),
	})
}

// Directory is the public company directory. It has no actions.
type Directory struct {
	*List[models.Company]
}

func NewDirectory(src CompanySource, s Settings) *Directory {
	return &Directory{List: newCompanyList(src, s, "directory")}
}

// AdminCompanies manages manually added directory entries
type AdminCompanies struct {
	*List[models.Company]

	client CompanyAdmin
	sess   *session.Session
	logger *zap.Logger
}

func NewAdminCompanies(client CompanyAdmin, sess *session.Session, s Settings) *AdminCompanies {
	return &AdminCompanies{
		List:   newCompanyList(client, s, "admin_companies"),
		client: client,
		sess:   sess,
		logger: s.logger(),
	}
}

// Add creates the company and then reloads the directory. It waits for the
// backend because the new record's id is only known afterwards.
func (a *AdminCompanies) Add(ctx context.Context, nc models.NewCompany) (*models.Company, error) {
	created, err := a.client.AddCompany(ctx, a.sess.Token, nc)
	if err != nil {
		return nil, err
	}

	a.logger.Info("company added", zap.String("name", created.Name), zap.String("by", a.sess.Email))

	if err := a.Refetch(ctx); err != nil {
		return created, fmt.Errorf("reload companies: %w", err)
	}
	return created, nil
}

// Delete removes a manually added company. Scraped companies are refused
// before anything is sent.
func (a *AdminCompanies) Delete(key string) error {
	c, ok := a.Find(key)
	if !ok {
		return ErrNotFound
	}
	if !c.Deletable() {
		return ErrScrapedCompany
	}

	return a.Remove("delete company", key, func(ctx context.Context) error {
		return a.client.DeleteCompany(ctx, a.sess.Token, c.ID)
	})
}
