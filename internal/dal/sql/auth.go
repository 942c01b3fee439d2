package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
)

func (r *Repository) InsertAuthConfirmation(ctx context.Context, chatID int64, token string, expiresIn time.Duration) error {
	if chatID == 0 {
		return errors.New("chat id is required")
	}
	if expiresIn <= 0 {
		return errors.New("expires in is required")
	}

	if _, err := r.exec(ctx, dal.InsertAuthConfirmationQuery(chatID, token, r.now().Add(expiresIn))); err != nil {
		return fmt.Errorf("insert auth confirmation: %w", err)
	}

	return nil
}

func (r *Repository) IsConfirmed(ctx context.Context, chatID int64, token string) (bool, error) {
	row, err := r.queryRow(ctx, dal.IsConfirmedQuery(chatID, token, r.now()))
	if err != nil {
		return false, err
	}

	var confirmed bool
	if err = row.Scan(&confirmed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, dal.ErrNotFound
		}
		return false, fmt.Errorf("is confirmed: %w", err)
	}

	return confirmed, nil
}

func (r *Repository) ConfirmAuthConfirmation(ctx context.Context, chatID int64, token string) error {
	if _, err := r.exec(ctx, dal.ConfirmAuthConfirmationQuery(chatID, token, r.now())); err != nil {
		return fmt.Errorf("confirm auth confirmation: %w", err)
	}

	return nil
}

func (r *Repository) DeleteAuthConfirmation(ctx context.Context, chatID int64, token string) error {
	if _, err := r.exec(ctx, dal.DeleteAuthConfirmationQuery(chatID, token)); err != nil {
		return fmt.Errorf("delete auth confirmation: %w", err)
	}

	return nil
}

func (r *Repository) CleanupAuthConfirmations(ctx context.Context) (int64, error) {
	res, err := r.exec(ctx, dal.CleanupAuthConfirmationsQuery(r.now()))
	if err != nil {
		return 0, fmt.Errorf("cleanup auth confirmations: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return affected, nil
}

func (r *Repository) cleanupAuthConfirmationsJob(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := r.CleanupAuthConfirmations(ctx)
			if err != nil {
				r.log.ErrorContext(ctx, "failed to cleanup auth confirmations", "error", err)
				continue
			}
			r.log.DebugContext(ctx, "auth confirmations cleaned up", "deleted", deleted)
		}
	}
}
