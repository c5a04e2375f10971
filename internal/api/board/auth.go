package board

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AccountUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  AccountUser `json:"user"`
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	var res LoginResponse
	if err := c.mutate(ctx, http.MethodPost, "/api/auth/login", creds, "", &res); err != nil {
		c.logger.Warn("login failed", zap.String("email", creds.Email), zap.Error(err))
		return nil, fmt.Errorf("login: %w", err)
	}

	if res.Token == "" {
		return nil, fmt.Errorf("login: %w: empty token", ErrMalformedResponse)
	}

	return &res, nil
}
