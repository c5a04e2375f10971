package board

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"jobboard-bot/internal/models"
)

// ListCompanies fetches the whole company directory in one call
func (c *Client) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var raw []models.Company
	if err := c.get(ctx, "/api/jobs/directory", nil, "", &raw); err != nil {
		c.logger.Error("failed to list companies", zap.Error(err))
		return nil, fmt.Errorf("list companies: %w", err)
	}

	companies := make([]models.Company, 0, len(raw))
	for _, co := range raw {
		if strings.TrimSpace(co.Name) == "" {
			c.logger.Warn("skipping company without a name", zap.String("id", co.ID))
			continue
		}
		if co.OpenRoles < 0 {
			co.OpenRoles = 0
		}
		companies = append(companies, co)
	}

	c.logger.Debug("companies fetched",
		zap.Int("returned", len(raw)),
		zap.Int("kept", len(companies)),
	)

	return companies, nil
}

func (c *Client) AddCompany(ctx context.Context, token string, nc models.NewCompany) (*models.Company, error) {
	if err := nc.Validate(); err != nil {
		return nil, err
	}

	var created models.Company
	if err := c.mutate(ctx, http.MethodPost, "/api/jobs/companies", nc, token, &created); err != nil {
		c.logger.Error("failed to add company",
			zap.String("name", nc.Name),
			zap.String("domain", nc.Domain),
			zap.Error(err),
		)
		return nil, fmt.Errorf("add company: %w", err)
	}

	if created.Name == "" {
		created.Name = nc.Name
	}

	return &created, nil
}

func (c *Client) DeleteCompany(ctx context.Context, token, id string) error {
	path := "/api/jobs/companies/" + url.PathEscape(id)
	if err := c.mutate(ctx, http.MethodDelete, path, nil, token, nil); err != nil {
		c.logger.Error("failed to delete company", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete company: %w", err)
	}
	return nil
}
