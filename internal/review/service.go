// Package review composes scheduling and progression into the review workflow of a learner.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/progression"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/srs"
)

const (
	DefaultResponseTimeMs int64 = 10_000
	DefaultDueLimit       uint64 = 20
	MaxDueLimit           uint64 = 100
	maxDailyRange                = 366 * 24 * time.Hour
)

var (
	ErrNotStarted   = errors.New("word is not being learned")
	ErrInvalidRange = errors.New("invalid date range")
)

type (
	Notifier interface {
		NotifyBadges(ctx context.Context, chatID int64, badges []progression.Badge) error
	}

	Submission struct {
		ChatID int64
		WordID int64
		Rating int
		// ResponseTimeMs defaults to DefaultResponseTimeMs when nil
		ResponseTimeMs *int64
		// Mode defaults to flashcard when empty
		Mode progression.Mode
	}

	Outcome struct {
		WordID        int64
		EaseFactor    float64
		Interval      int
		Repetitions   int
		Status        srs.Status
		NextReviewAt  time.Time
		XPEarned      int64
		TotalXP       int64
		Level         int
		LeveledUp     bool
		CurrentStreak int
		LongestStreak int
		NewBadges     []progression.Badge
	}

	Service struct {
		repo      dal.Repository
		scheduler *srs.Scheduler
		engine    *progression.Engine
		notifier  Notifier
		loc       *time.Location
		now       func() time.Time
		log       *slog.Logger
	}
)

// NewService creates the review service. Calendar days (streaks, review dates) are counted in loc.
// notifier may be nil.
func NewService(repo dal.Repository, engine *progression.Engine, notifier Notifier, loc *time.Location, log *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:      repo,
		scheduler: srs.NewScheduler(),
		engine:    engine,
		notifier:  notifier,
		loc:       loc,
		now:       time.Now,
		log:       log,
	}
}

// SyncCatalog stores the badge catalog of the engine so badges can be listed and awarded.
func (s *Service) SyncCatalog(ctx context.Context) error {
	badges := s.engine.Badges()
	rows := make([]dal.Badge, 0, len(badges))
	for _, b := range badges {
		rows = append(rows, dal.Badge{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			Icon:        b.Icon,
			Requirement: b.Requirement.String(),
			XPBonus:     b.XPBonus,
		})
	}

	if err := s.repo.SyncBadges(ctx, rows); err != nil {
		return fmt.Errorf("sync badges: %w", err)
	}
	return nil
}

// StartLearning creates the initial progress of a word, or returns the existing one.
func (s *Service) StartLearning(ctx context.Context, chatID, wordID int64) (*dal.WordProgress, error) {
	var res *dal.WordProgress
	err := s.repo.Transact(ctx, func(r dal.Repository) error {
		if _, err := r.FindWord(ctx, chatID, wordID); err != nil {
			return fmt.Errorf("find word: %w", err)
		}

		now := s.now().UTC()
		state := srs.NewState()
		progress := dal.WordProgress{
			ChatID:       chatID,
			WordID:       wordID,
			EaseFactor:   state.EaseFactor,
			Interval:     state.Interval,
			Repetitions:  state.Repetitions,
			Status:       string(srs.StatusNew),
			NextReviewAt: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		inserted, err := r.InsertWordProgress(ctx, progress)
		if err != nil {
			return fmt.Errorf("insert word progress: %w", err)
		}
		if inserted {
			res = &progress
			return s.refreshWordCounts(ctx, r, chatID)
		}

		res, err = r.FindWordProgress(ctx, chatID, wordID)
		if err != nil {
			return fmt.Errorf("find word progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SubmitReview schedules the next review of a word and applies the progression earned by the review.
// All changes are stored in one transaction, new badges are announced after the commit.
func (s *Service) SubmitReview(ctx context.Context, sub Submission) (*Outcome, error) {
	rating := srs.Rating(sub.Rating)
	if err := rating.Validate(); err != nil {
		return nil, err
	}

	mode := sub.Mode
	if mode == "" {
		mode = progression.ModeFlashcard
	}
	if !s.engine.ValidMode(mode) {
		return nil, fmt.Errorf("%w: %s", progression.ErrUnknownMode, mode)
	}

	responseTime := DefaultResponseTimeMs
	if sub.ResponseTimeMs != nil {
		responseTime = *sub.ResponseTimeMs
	}

	now := s.now().In(s.loc)
	var res *Outcome
	err := s.repo.Transact(ctx, func(r dal.Repository) error {
		progress, err := r.FindWordProgress(ctx, sub.ChatID, sub.WordID)
		if err != nil {
			if errors.Is(err, dal.ErrNotFound) {
				return ErrNotStarted
			}
			return fmt.Errorf("find word progress: %w", err)
		}

		scheduled, err := s.scheduler.Next(srs.State{
			EaseFactor:  progress.EaseFactor,
			Interval:    progress.Interval,
			Repetitions: progress.Repetitions,
		}, rating, now)
		if err != nil {
			return fmt.Errorf("schedule review: %w", err)
		}

		xp, err := s.engine.CalculateXP(int(rating), mode, responseTime)
		if err != nil {
			return fmt.Errorf("calculate xp: %w", err)
		}

		reviewedAt := now.UTC()
		progress.EaseFactor = scheduled.EaseFactor
		progress.Interval = scheduled.Interval
		progress.Repetitions = scheduled.Repetitions
		progress.Status = string(scheduled.Status)
		progress.NextReviewAt = scheduled.NextReviewAt.UTC()
		progress.LastReviewAt = &reviewedAt
		progress.UpdatedAt = reviewedAt
		if err = r.UpdateWordProgress(ctx, *progress); err != nil {
			return fmt.Errorf("update word progress: %w", err)
		}

		stats, err := s.loadStats(ctx, r, sub.ChatID)
		if err != nil {
			return err
		}
		prevLevel := stats.Level

		stats.TotalXP += xp
		stats.TotalReviews++
		stats.RecordActivity(now)

		counts, err := r.CountProgress(ctx, sub.ChatID)
		if err != nil {
			return fmt.Errorf("count progress: %w", err)
		}
		stats.WordsLearned = counts.Learned()
		stats.WordsMastered = counts.Mastered
		stats.Level = s.engine.CalculateLevel(stats.TotalXP)

		badges, err := s.engine.CheckBadges(ctx, r, sub.ChatID, &stats, reviewedAt)
		if err != nil {
			return fmt.Errorf("check badges: %w", err)
		}

		if err = r.SaveUserStats(ctx, toUserStats(sub.ChatID, stats, reviewedAt)); err != nil {
			return fmt.Errorf("save user stats: %w", err)
		}

		err = r.InsertReviewHistory(ctx, dal.ReviewHistory{
			ChatID:         sub.ChatID,
			WordID:         sub.WordID,
			ReviewedAt:     reviewedAt,
			Rating:         int(rating),
			ResponseTimeMs: responseTime,
			LearningMode:   string(mode),
			XPEarned:       xp,
		})
		if err != nil {
			return fmt.Errorf("insert review history: %w", err)
		}

		res = &Outcome{
			WordID:        sub.WordID,
			EaseFactor:    scheduled.EaseFactor,
			Interval:      scheduled.Interval,
			Repetitions:   scheduled.Repetitions,
			Status:        scheduled.Status,
			NextReviewAt:  progress.NextReviewAt,
			XPEarned:      xp,
			TotalXP:       stats.TotalXP,
			Level:         stats.Level,
			LeveledUp:     stats.Level > prevLevel,
			CurrentStreak: stats.CurrentStreak,
			LongestStreak: stats.LongestStreak,
			NewBadges:     badges,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyBadges(ctx, sub.ChatID, res.NewBadges)

	return res, nil
}

// ResetProgress removes progress of a word, the word starts over as not being learned.
func (s *Service) ResetProgress(ctx context.Context, chatID, wordID int64) error {
	return s.repo.Transact(ctx, func(r dal.Repository) error {
		if err := r.DeleteWordProgress(ctx, chatID, wordID); err != nil {
			return fmt.Errorf("delete word progress: %w", err)
		}
		return s.refreshWordCounts(ctx, r, chatID)
	})
}

// DeleteWord resets the progress of a word and removes it. Review history is kept.
func (s *Service) DeleteWord(ctx context.Context, chatID, wordID int64) error {
	return s.repo.Transact(ctx, func(r dal.Repository) error {
		if err := r.DeleteWordProgress(ctx, chatID, wordID); err != nil && !errors.Is(err, dal.ErrNotFound) {
			return fmt.Errorf("delete word progress: %w", err)
		}
		if err := r.DeleteWord(ctx, chatID, wordID); err != nil {
			return fmt.Errorf("delete word: %w", err)
		}
		return s.refreshWordCounts(ctx, r, chatID)
	})
}

// DueWords returns words due for review, most overdue first.
func (s *Service) DueWords(ctx context.Context, chatID int64, limit uint64) ([]dal.WordWithProgress, error) {
	switch {
	case limit == 0:
		limit = DefaultDueLimit
	case limit > MaxDueLimit:
		limit = MaxDueLimit
	}

	res, err := s.repo.FindDueWords(ctx, chatID, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("find due words: %w", err)
	}
	return res, nil
}

func (s *Service) Badges(ctx context.Context, chatID int64) ([]dal.UserBadge, error) {
	res, err := s.repo.FindBadges(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("find badges: %w", err)
	}
	return res, nil
}

func (s *Service) loadStats(ctx context.Context, r dal.Repository, chatID int64) (progression.Stats, error) {
	stats, err := r.FindUserStats(ctx, chatID)
	if errors.Is(err, dal.ErrNotFound) {
		return progression.NewStats(), nil
	}
	if err != nil {
		return progression.Stats{}, fmt.Errorf("find user stats: %w", err)
	}
	return toEngineStats(*stats), nil
}

// refreshWordCounts keeps learned and mastered counters in line with the progress of words.
// Users without stats are left alone, stats are created by the first review.
func (s *Service) refreshWordCounts(ctx context.Context, r dal.Repository, chatID int64) error {
	stats, err := r.FindUserStats(ctx, chatID)
	if errors.Is(err, dal.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user stats: %w", err)
	}

	counts, err := r.CountProgress(ctx, chatID)
	if err != nil {
		return fmt.Errorf("count progress: %w", err)
	}
	stats.WordsLearned = counts.Learned()
	stats.WordsMastered = counts.Mastered
	stats.UpdatedAt = s.now().UTC()

	if err = r.SaveUserStats(ctx, *stats); err != nil {
		return fmt.Errorf("save user stats: %w", err)
	}
	return nil
}

func (s *Service) notifyBadges(ctx context.Context, chatID int64, badges []progression.Badge) {
	if s.notifier == nil || len(badges) == 0 {
		return
	}

	if err := s.notifier.NotifyBadges(ctx, chatID, badges); err != nil {
		s.log.ErrorContext(ctx, "failed to notify about new badges", "error", err, "chat_id", chatID)
	}
}

func toEngineStats(stats dal.UserStats) progression.Stats {
	return progression.Stats{
		TotalXP:       stats.TotalXP,
		Level:         stats.Level,
		CurrentStreak: stats.CurrentStreak,
		LongestStreak: stats.LongestStreak,
		WordsLearned:  stats.WordsLearned,
		WordsMastered: stats.WordsMastered,
		TotalReviews:  stats.TotalReviews,
		LastActivity:  stats.LastActivityDate,
	}
}

func toUserStats(chatID int64, stats progression.Stats, updatedAt time.Time) dal.UserStats {
	return dal.UserStats{
		ChatID:           chatID,
		TotalXP:          stats.TotalXP,
		Level:            stats.Level,
		CurrentStreak:    stats.CurrentStreak,
		LongestStreak:    stats.LongestStreak,
		WordsLearned:     stats.WordsLearned,
		WordsMastered:    stats.WordsMastered,
		TotalReviews:     stats.TotalReviews,
		LastActivityDate: stats.LastActivity,
		UpdatedAt:        updatedAt,
	}
}
