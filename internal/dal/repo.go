package dal

import (
	"context"
	"errors"
	"time"
)

const (
	StatusFilterAll       StatusFilter = "all"
	StatusFilterUnstarted StatusFilter = "unstarted"
	StatusFilterNew       StatusFilter = "new"
	StatusFilterLearning  StatusFilter = "learning"
	StatusFilterReviewing StatusFilter = "reviewing"
	StatusFilterMastered  StatusFilter = "mastered"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInUse         = errors.New("in use")
)

type (
	StatusFilter string

	WordsFilter struct {
		Search string
		Status StatusFilter
		Offset uint64
		Limit  uint64
	}

	WordsRepository interface {
		FindWord(ctx context.Context, chatID, wordID int64) (*Word, error)
		FindWords(ctx context.Context, chatID int64, filter WordsFilter) ([]WordWithProgress, int, error)
		AddWord(ctx context.Context, word Word) (int64, error)
		UpsertWord(ctx context.Context, word Word) error
		UpdateWord(ctx context.Context, word Word) error
		DeleteWord(ctx context.Context, chatID, wordID int64) error
	}

	ProgressRepository interface {
		FindWordProgress(ctx context.Context, chatID, wordID int64) (*WordProgress, error)
		InsertWordProgress(ctx context.Context, progress WordProgress) (bool, error)
		UpdateWordProgress(ctx context.Context, progress WordProgress) error
		DeleteWordProgress(ctx context.Context, chatID, wordID int64) error
		FindDueWords(ctx context.Context, chatID int64, now time.Time, limit uint64) ([]WordWithProgress, error)
		CountProgress(ctx context.Context, chatID int64) (*ProgressCounts, error)
		FindDueSummaries(ctx context.Context, chatIDs []int64, now time.Time) ([]DueSummary, error)
	}

	UserStatsRepository interface {
		FindUserStats(ctx context.Context, chatID int64) (*UserStats, error)
		SaveUserStats(ctx context.Context, stats UserStats) error
	}

	BadgesRepository interface {
		SyncBadges(ctx context.Context, badges []Badge) error
		FindBadges(ctx context.Context, chatID int64) ([]UserBadge, error)
		HasEarned(ctx context.Context, chatID int64, badgeID string) (bool, error)
		RecordEarned(ctx context.Context, chatID int64, badgeID string, earnedAt time.Time) (bool, error)
	}

	ReviewHistoryRepository interface {
		InsertReviewHistory(ctx context.Context, entry ReviewHistory) error
		GetReviewSummary(ctx context.Context, chatID int64) (*ReviewSummary, error)
		GetDailyReviewStats(ctx context.Context, chatID int64, from, to time.Time) ([]DailyReviewStats, error)
	}

	AuthConfirmationRepository interface {
		InsertAuthConfirmation(ctx context.Context, chatID int64, token string, expiresIn time.Duration) error
		IsConfirmed(ctx context.Context, chatID int64, token string) (bool, error)
		ConfirmAuthConfirmation(ctx context.Context, chatID int64, token string) error
		DeleteAuthConfirmation(ctx context.Context, chatID int64, token string) error
	}

	Repository interface {
		Transact(ctx context.Context, txFunc func(r Repository) error) error
		WordsRepository
		ProgressRepository
		UserStatsRepository
		BadgesRepository
		ReviewHistoryRepository
		AuthConfirmationRepository
	}
)

func (f StatusFilter) Valid() bool {
	switch f {
	case "", StatusFilterAll, StatusFilterUnstarted, StatusFilterNew, StatusFilterLearning, StatusFilterReviewing, StatusFilterMastered:
		return true
	default:
		return false
	}
}
