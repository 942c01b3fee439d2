package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
)

func (r *Repository) FindUserStats(ctx context.Context, chatID int64) (*dal.UserStats, error) {
	row, err := r.queryRow(ctx, dal.FindUserStatsQuery(chatID))
	if err != nil {
		return nil, err
	}

	var (
		stats        dal.UserStats
		lastActivity sql.NullString
	)
	err = row.Scan(
		&stats.ChatID,
		&stats.TotalXP,
		&stats.Level,
		&stats.CurrentStreak,
		&stats.LongestStreak,
		&stats.WordsLearned,
		&stats.WordsMastered,
		&stats.TotalReviews,
		&lastActivity,
		&stats.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dal.ErrNotFound
		}
		return nil, fmt.Errorf("find user stats: %w", err)
	}
	stats.UpdatedAt = stats.UpdatedAt.UTC()

	if lastActivity.Valid {
		date, err := time.Parse(time.DateOnly, lastActivity.String)
		if err != nil {
			return nil, fmt.Errorf("parse last activity date: %w", err)
		}
		stats.LastActivityDate = &date
	}

	return &stats, nil
}

func (r *Repository) SaveUserStats(ctx context.Context, stats dal.UserStats) error {
	if stats.ChatID == 0 {
		return errors.New("chat id is required")
	}
	if stats.UpdatedAt.IsZero() {
		stats.UpdatedAt = r.now()
	}

	if _, err := r.exec(ctx, dal.SaveUserStatsQuery(stats)); err != nil {
		return fmt.Errorf("save user stats: %w", err)
	}
	return nil
}
