package board

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"jobboard-bot/internal/models"
)

// maxJobPages stops AllJobs from walking forever on a backend that keeps
// reporting more pages
const maxJobPages = 200

type JobsPage struct {
	Jobs       []models.Job `json:"jobs"`
	TotalJobs  int          `json:"totalJobs"`
	TotalPages int          `json:"totalPages"`
	Companies  []string     `json:"companies"`
}

type JobsParams struct {
	Page    int
	Limit   int
	Company string
}

func (c *Client) ListJobs(ctx context.Context, p JobsParams) (*JobsPage, error) {
	params := url.Values{}
	if p.Page > 0 {
		params.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Company != "" {
		params.Set("company", p.Company)
	}

	var page JobsPage
	if err := c.get(ctx, "/api/jobs", params, "", &page); err != nil {
		c.logger.Error("failed to list jobs",
			zap.Int("page", p.Page),
			zap.String("company", p.Company),
			zap.Error(err),
		)
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	return &page, nil
}

// AllJobs walks every page of the jobs feed and returns the concatenation
// together with the company facet of the first page
func (c *Client) AllJobs(ctx context.Context, company string, limit int) ([]models.Job, []string, error) {
	var (
		jobs      []models.Job
		companies []string
	)

	for page := 1; page <= maxJobPages; page++ {
		res, err := c.ListJobs(ctx, JobsParams{Page: page, Limit: limit, Company: company})
		if err != nil {
			return nil, nil, err
		}
		if page == 1 {
			companies = res.Companies
			jobs = make([]models.Job, 0, max(res.TotalJobs, len(res.Jobs)))
		}
		jobs = append(jobs, res.Jobs...)

		if page >= res.TotalPages || len(res.Jobs) == 0 {
			break
		}
	}

	c.logger.Debug("jobs fetched",
		zap.Int("count", len(jobs)),
		zap.String("company", company),
	)

	return jobs, companies, nil
}

type feedbackRequest struct {
	Status *models.Thumb `json:"status"`
}

// SubmitFeedback records a thumbs up or down. A nil thumb clears it.
func (c *Client) SubmitFeedback(ctx context.Context, token, jobID string, thumb *models.Thumb) error {
	path := "/api/jobs/" + url.PathEscape(jobID) + "/feedback"
	if err := c.mutate(ctx, http.MethodPatch, path, feedbackRequest{Status: thumb}, token, nil); err != nil {
		c.logger.Error("failed to submit feedback", zap.String("job_id", jobID), zap.Error(err))
		return fmt.Errorf("submit feedback: %w", err)
	}
	return nil
}

func (c *Client) AddJob(ctx context.Context, token string, nj models.NewJob) (*models.Job, error) {
	if nj.Title == "" || nj.Company == "" || nj.ApplicationURL == "" {
		return nil, fmt.Errorf("title, company and application url are required")
	}

	var created models.Job
	if err := c.mutate(ctx, http.MethodPost, "/api/jobs", nj, token, &created); err != nil {
		c.logger.Error("failed to add job",
			zap.String("title", nj.Title),
			zap.String("company", nj.Company),
			zap.Error(err),
		)
		return nil, fmt.Errorf("add job: %w", err)
	}

	return &created, nil
}
