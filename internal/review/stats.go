package review

import (
	"context"
	"fmt"
	"time"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
)

type (
	StatsView struct {
		ChatID        int64
		TotalXP       int64
		Level         int
		NextLevelXP   int64
		CurrentStreak int
		LongestStreak int
		WordsLearned  int
		WordsMastered int
		TotalReviews  int
		LastActivity  *time.Time
		Progress      dal.ProgressCounts
		DueWords      int
	}

	ReviewReport struct {
		Summary dal.ReviewSummary
		Days    []dal.DailyReviewStats
	}
)

// Stats returns the progression of a user as seen now. A streak that was not continued yesterday is reported as 0.
func (s *Service) Stats(ctx context.Context, chatID int64) (*StatsView, error) {
	engineStats, err := s.loadStats(ctx, s.repo, chatID)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.CountProgress(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("count progress: %w", err)
	}

	now := s.now()
	due, err := s.repo.FindDueSummaries(ctx, []int64{chatID}, now)
	if err != nil {
		return nil, fmt.Errorf("find due summaries: %w", err)
	}

	res := &StatsView{
		ChatID:        chatID,
		TotalXP:       engineStats.TotalXP,
		Level:         engineStats.Level,
		NextLevelXP:   s.engine.LevelThreshold(engineStats.Level + 1),
		CurrentStreak: engineStats.ActiveStreak(now.In(s.loc)),
		LongestStreak: engineStats.LongestStreak,
		WordsLearned:  engineStats.WordsLearned,
		WordsMastered: engineStats.WordsMastered,
		TotalReviews:  engineStats.TotalReviews,
		LastActivity:  engineStats.LastActivity,
		Progress:      *counts,
	}
	for _, d := range due {
		if d.ChatID == chatID {
			res.DueWords = d.DueWords
		}
	}

	return res, nil
}

// Reviews returns the overall review summary together with per day aggregates for [from, to).
func (s *Service) Reviews(ctx context.Context, chatID int64, from, to time.Time) (*ReviewReport, error) {
	if !from.Before(to) || to.Sub(from) > maxDailyRange {
		return nil, ErrInvalidRange
	}

	summary, err := s.repo.GetReviewSummary(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get review summary: %w", err)
	}

	days, err := s.repo.GetDailyReviewStats(ctx, chatID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get daily review stats: %w", err)
	}
	if days == nil {
		days = []dal.DailyReviewStats{}
	}

	return &ReviewReport{Summary: *summary, Days: days}, nil
}

// Today returns the start of the current calendar day in the service location.
func (s *Service) Today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}
