package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocraft/dbr/v2"
	"go.uber.org/zap"

	"jobboard-bot/internal/query"
)

// SaveListView stores the search, sort and page a user last had on a list
func (s *Store) SaveListView(ctx context.Context, userID int64, list string, state query.State) error {
	stmt := `
		INSERT INTO list_views (user_id, list, params, updated_at)
		VALUES (?, ?, ?, NOW())
		ON CONFLICT (user_id, list)
		DO UPDATE SET
			params     = EXCLUDED.params,
			updated_at = NOW()
	`

	params := query.EncodeParams(state).Encode()

	_, err := s.sess.
		InsertBySql(stmt, userID, list, params).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to save list view",
			zap.Int64("user_id", userID),
			zap.String("list", list),
			zap.Error(err),
		)
		return fmt.Errorf("save list view: %w", err)
	}

	return nil
}

// GetListView returns the stored state, or ok=false when there is none
func (s *Store) GetListView(ctx context.Context, userID int64, list string) (query.State, bool, error) {
	var params string

	err := s.sess.
		Select("params").
		From("list_views").
		Where("user_id = ? AND list = ?", userID, list).
		LoadOneContext(ctx, &params)

	if errors.Is(err, dbr.ErrNotFound) {
		return query.State{Page: 1}, false, nil
	}

	if err != nil {
		s.logger.Error("failed to get list view",
			zap.Int64("user_id", userID),
			zap.String("list", list),
			zap.Error(err),
		)
		return query.State{}, false, fmt.Errorf("get list view: %w", err)
	}

	return query.ParseState(params), true, nil
}

func (s *Store) DeleteListViews(ctx context.Context, userID int64) error {
	_, err := s.sess.
		DeleteFrom("list_views").
		Where("user_id = ?", userID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to delete list views",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("delete list views: %w", err)
	}

	return nil
}
