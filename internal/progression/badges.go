package progression

import (
	"context"
	"fmt"
	"time"
)

const (
	MetricWordsLearned  Metric = "words_learned"
	MetricWordsMastered Metric = "words_mastered"
	MetricCurrentStreak Metric = "current_streak"
	MetricTotalReviews  Metric = "total_reviews"
	MetricLevel         Metric = "level"
)

type (
	Metric string

	Requirement struct {
		Metric    Metric
		Threshold int64
	}

	Badge struct {
		ID          string
		Name        string
		Description string
		Icon        string
		Requirement Requirement
		XPBonus     int64
	}

	// BadgeStore keeps the set of badges a user has earned.
	// RecordEarned must insert only if absent and report whether this call inserted the record.
	BadgeStore interface {
		HasEarned(ctx context.Context, userID int64, badgeID string) (bool, error)
		RecordEarned(ctx context.Context, userID int64, badgeID string, earnedAt time.Time) (bool, error)
	}
)

func (m Metric) Valid() bool {
	switch m {
	case MetricWordsLearned, MetricWordsMastered, MetricCurrentStreak, MetricTotalReviews, MetricLevel:
		return true
	default:
		return false
	}
}

func (m Metric) value(s Stats) int64 {
	switch m {
	case MetricWordsLearned:
		return int64(s.WordsLearned)
	case MetricWordsMastered:
		return int64(s.WordsMastered)
	case MetricCurrentStreak:
		return int64(s.CurrentStreak)
	case MetricTotalReviews:
		return int64(s.TotalReviews)
	case MetricLevel:
		return int64(s.Level)
	default:
		return 0
	}
}

func (r Requirement) Satisfied(s Stats) bool {
	return r.Metric.Valid() && r.Metric.value(s) >= r.Threshold
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s >= %d", r.Metric, r.Threshold)
}

// EligibleBadges returns catalog badges whose requirement is met by s, in catalog order.
func (e *Engine) EligibleBadges(s Stats) []Badge {
	res := make([]Badge, 0, len(e.badges))
	for _, b := range e.badges {
		if b.Requirement.Satisfied(s) {
			res = append(res, b)
		}
	}
	return res
}

// CheckBadges awards every eligible badge userID has not earned yet, adds the XP bonuses to s and
// recomputes the level. Level badges unlocked by those bonuses are awarded in a second pass; bonuses
// of the second pass can raise the level again but do not trigger another pass.
func (e *Engine) CheckBadges(ctx context.Context, store BadgeStore, userID int64, s *Stats, now time.Time) ([]Badge, error) {
	earned := make([]Badge, 0)

	awarded, err := e.award(ctx, store, userID, s, now, func(Badge) bool { return true })
	if err != nil {
		return nil, err
	}
	earned = append(earned, awarded...)
	s.Level = e.CalculateLevel(s.TotalXP)

	awarded, err = e.award(ctx, store, userID, s, now, func(b Badge) bool { return b.Requirement.Metric == MetricLevel })
	if err != nil {
		return nil, err
	}
	earned = append(earned, awarded...)
	s.Level = e.CalculateLevel(s.TotalXP)

	return earned, nil
}

func (e *Engine) award(ctx context.Context, store BadgeStore, userID int64, s *Stats, now time.Time, include func(Badge) bool) ([]Badge, error) {
	var res []Badge
	for _, b := range e.EligibleBadges(*s) {
		if !include(b) {
			continue
		}

		has, err := store.HasEarned(ctx, userID, b.ID)
		if err != nil {
			return nil, fmt.Errorf("check badge %s: %w", b.ID, err)
		}
		if has {
			continue
		}

		inserted, err := store.RecordEarned(ctx, userID, b.ID, now)
		if err != nil {
			return nil, fmt.Errorf("record badge %s: %w", b.ID, err)
		}
		if !inserted {
			continue
		}

		s.TotalXP += b.XPBonus
		res = append(res, b)
	}
	return res, nil
}
