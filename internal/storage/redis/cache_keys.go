package redis

import (
	"context"
	"fmt"
	"time"
)

const (
	RateLimitWindowTTL = 1 * time.Minute
	UserStateCacheTTL  = 30 * time.Minute
	PendingFormTTL     = 30 * time.Minute
)

func SessionKey(userID int64) string {
	return fmt.Sprintf("session:user:%d", userID)
}

func RateLimitKey(userID int64) string {
	return fmt.Sprintf("ratelimit:user:%d", userID)
}

func UserStateKey(userID int64) string {
	return fmt.Sprintf("state:user:%d", userID)
}

func formKey(userID int64, name string) string {
	return fmt.Sprintf("form:user:%d:%s", userID, name)
}

func (c *Cache) IncrementUserRateLimit(ctx context.Context, userID int64) (int64, error) {
	return c.IncrementWithExpiry(ctx, RateLimitKey(userID), RateLimitWindowTTL)
}

// SetUserState remembers what the next plain-text message from the user
// means, for example a login email or a company name
func (c *Cache) SetUserState(ctx context.Context, userID int64, state string) error {
	return c.SetString(ctx, UserStateKey(userID), state, UserStateCacheTTL)
}

func (c *Cache) GetUserState(ctx context.Context, userID int64) (string, error) {
	return c.GetString(ctx, UserStateKey(userID))
}

func (c *Cache) DeleteUserState(ctx context.Context, userID int64) error {
	return c.Delete(ctx, UserStateKey(userID))
}

// SetForm stores a partially filled multi-step form
func (c *Cache) SetForm(ctx context.Context, userID int64, name string, value any) error {
	return c.Set(ctx, formKey(userID, name), value, PendingFormTTL)
}

func (c *Cache) GetForm(ctx context.Context, userID int64, name string, dest any) error {
	return c.Get(ctx, formKey(userID, name), dest)
}

func (c *Cache) DeleteForm(ctx context.Context, userID int64, name string) error {
	return c.Delete(ctx, formKey(userID, name))
}
