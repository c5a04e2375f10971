package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gocraft/dbr/v2"
	"go.uber.org/zap"

	"jobboard-bot/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// CreateUser inserts the user. An existing row is left untouched.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	stmt := `
		INSERT INTO users (id, username, first_name, last_name, created_at, is_admin, digest_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.sess.
		InsertBySql(stmt, user.ID, user.Username, user.FirstName, user.LastName, time.Now(), user.IsAdmin, user.DigestEnabled).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to create user",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created",
		zap.Int64("user_id", user.ID),
		zap.Stringp("username", user.Username),
	)

	return nil
}

// GetUser returns nil, nil when the user does not exist
func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User

	err := s.sess.
		Select("*").
		From("users").
		Where("id = ?", userID).
		LoadOneContext(ctx, &user)

	if errors.Is(err, dbr.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		s.logger.Error("failed to get user",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (s *Store) GetOrCreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	existing, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return existing, nil
	}

	if err := s.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// SetAdmin records whether the user's backend account is an admin. It is
// refreshed on every login.
func (s *Store) SetAdmin(ctx context.Context, userID int64, admin bool) error {
	res, err := s.sess.
		Update("users").
		Set("is_admin", admin).
		Where("id = ?", userID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to set admin flag",
			zap.Int64("user_id", userID),
			zap.Bool("admin", admin),
			zap.Error(err),
		)
		return fmt.Errorf("set admin: %w", err)
	}

	return requireRow(res, userID)
}

func (s *Store) SetDigestEnabled(ctx context.Context, userID int64, enabled bool) error {
	res, err := s.sess.
		Update("users").
		Set("digest_enabled", enabled).
		Where("id = ?", userID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to set digest enabled",
			zap.Int64("user_id", userID),
			zap.Bool("enabled", enabled),
			zap.Error(err),
		)
		return fmt.Errorf("set digest enabled: %w", err)
	}

	if err := requireRow(res, userID); err != nil {
		return err
	}

	s.logger.Info("digest setting updated",
		zap.Int64("user_id", userID),
		zap.Bool("enabled", enabled),
	)

	return nil
}

func (s *Store) UpdateLastDigest(ctx context.Context, userID int64) error {
	_, err := s.sess.
		Update("users").
		Set("last_digest", time.Now()).
		Where("id = ?", userID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to update last digest",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("update last digest: %w", err)
	}

	return nil
}

// GetDigestRecipients returns admins who have not switched the digest off
func (s *Store) GetDigestRecipients(ctx context.Context) ([]models.User, error) {
	var users []models.User

	_, err := s.sess.
		Select("*").
		From("users").
		Where("is_admin = ? AND digest_enabled = ?", true, true).
		LoadContext(ctx, &users)

	if err != nil {
		s.logger.Error("failed to get digest recipients", zap.Error(err))
		return nil, fmt.Errorf("get digest recipients: %w", err)
	}

	s.logger.Debug("digest recipients", zap.Int("count", len(users)))

	return users, nil
}

// SignOut clears the admin flag and forgets the saved views of the given
// lists in one transaction
func (s *Store) SignOut(ctx context.Context, userID int64, lists []string) error {
	err := s.withTx(ctx, func(tx *dbr.Tx) error {
		if _, err := tx.Update("users").
			Set("is_admin", false).
			Where("id = ?", userID).
			ExecContext(ctx); err != nil {
			return fmt.Errorf("clear admin: %w", err)
		}

		if len(lists) == 0 {
			return nil
		}

		if _, err := tx.DeleteFrom("list_views").
			Where("user_id = ? AND list IN ?", userID, lists).
			ExecContext(ctx); err != nil {
			return fmt.Errorf("delete views: %w", err)
		}
		return nil
	})

	if err != nil {
		s.logger.Error("failed to sign out user",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("sign out: %w", err)
	}

	return nil
}

// requireRow turns an update that matched nothing into ErrUserNotFound
func requireRow(res sql.Result, userID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	return nil
}
