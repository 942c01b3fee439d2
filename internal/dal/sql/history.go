package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/srs"
)

func (r *Repository) InsertReviewHistory(ctx context.Context, entry dal.ReviewHistory) error {
	if _, err := r.exec(ctx, dal.InsertReviewHistoryQuery(entry)); err != nil {
		return fmt.Errorf("insert review history: %w", err)
	}
	return nil
}

func (r *Repository) GetReviewSummary(ctx context.Context, chatID int64) (*dal.ReviewSummary, error) {
	row, err := r.queryRow(ctx, dal.ReviewSummaryQuery(chatID))
	if err != nil {
		return nil, err
	}

	var res dal.ReviewSummary
	if err = row.Scan(&res.TotalReviews, &res.WordsReviewed, &res.AverageRating, &res.TotalXP); err != nil {
		return nil, fmt.Errorf("get review summary: %w", err)
	}
	return &res, nil
}

func (r *Repository) GetDailyReviewStats(ctx context.Context, chatID int64, from, to time.Time) ([]dal.DailyReviewStats, error) {
	rows, err := r.query(ctx, dal.DailyReviewStatsQuery(chatID, int(srs.PassRating), from, to))
	if err != nil {
		return nil, fmt.Errorf("get daily review stats: %w", err)
	}
	defer rows.Close()

	var (
		res     []dal.DailyReviewStats
		dateStr string
	)
	for rows.Next() {
		var s dal.DailyReviewStats
		if err := rows.Scan(&dateStr, &s.Reviews, &s.Passed, &s.Failed, &s.AverageRating, &s.XPEarned); err != nil {
			return nil, fmt.Errorf("scan daily review stats: %w", err)
		}
		s.Date, err = time.Parse(time.DateOnly, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse date: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily review stats: %w", err)
	}

	return res, nil
}
