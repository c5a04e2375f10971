package board

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"jobboard-bot/internal/models"
)

type reviewResponse struct {
	Jobs []models.Job `json:"jobs"`
}

type decisionRequest struct {
	Decision models.Decision `json:"decision"`
}

// ReviewQueue returns jobs waiting for an admin decision
func (c *Client) ReviewQueue(ctx context.Context, token string) ([]models.Job, error) {
	var res reviewResponse
	if err := c.get(ctx, "/api/jobs/admin/review", nil, token, &res); err != nil {
		c.logger.Error("failed to fetch review queue", zap.Error(err))
		return nil, fmt.Errorf("fetch review queue: %w", err)
	}
	return nonNil(res.Jobs), nil
}

func (c *Client) Decide(ctx context.Context, token, jobID string, d models.Decision) error {
	path := "/api/jobs/admin/decision/" + url.PathEscape(jobID)
	if err := c.mutate(ctx, http.MethodPatch, path, decisionRequest{Decision: d}, token, nil); err != nil {
		c.logger.Error("failed to submit decision",
			zap.String("job_id", jobID),
			zap.String("decision", string(d)),
			zap.Error(err),
		)
		return fmt.Errorf("submit decision: %w", err)
	}
	return nil
}

func (c *Client) RejectedJobs(ctx context.Context, token string) ([]models.Job, error) {
	var jobs []models.Job
	if err := c.get(ctx, "/api/jobs/rejected", nil, token, &jobs); err != nil {
		c.logger.Error("failed to fetch rejected jobs", zap.Error(err))
		return nil, fmt.Errorf("fetch rejected jobs: %w", err)
	}
	return nonNil(jobs), nil
}

// TestLogs returns the classifier's recent decisions with their evidence
func (c *Client) TestLogs(ctx context.Context, token string) ([]models.Job, error) {
	var logs []models.Job
	if err := c.get(ctx, "/api/jobs/test-logs", nil, token, &logs); err != nil {
		c.logger.Error("failed to fetch test logs", zap.Error(err))
		return nil, fmt.Errorf("fetch test logs: %w", err)
	}
	return nonNil(logs), nil
}

func (c *Client) DailyStats(ctx context.Context, token string) (*models.DailyStats, error) {
	var stats models.DailyStats
	if err := c.get(ctx, "/api/analytics/daily", nil, token, &stats); err != nil {
		c.logger.Error("failed to fetch daily stats", zap.Error(err))
		return nil, fmt.Errorf("fetch daily stats: %w", err)
	}
	return &stats, nil
}

func nonNil(jobs []models.Job) []models.Job {
	if jobs == nil {
		return []models.Job{}
	}
	return jobs
}
