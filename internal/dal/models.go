package dal

import "time"

type (
	Word struct {
		ID          int64
		ChatID      int64
		Word        string
		Translation string
		Description string
		Morphemes   string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	WordProgress struct {
		ChatID       int64
		WordID       int64
		EaseFactor   float64
		Interval     int
		Repetitions  int
		Status       string
		NextReviewAt time.Time
		LastReviewAt *time.Time
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// WordWithProgress is a word joined with its progress, Progress is nil for words not being learned.
	WordWithProgress struct {
		Word
		Progress *WordProgress
	}

	ProgressCounts struct {
		New       int
		Learning  int
		Reviewing int
		Mastered  int
	}

	DueSummary struct {
		ChatID   int64
		DueWords int
	}

	UserStats struct {
		ChatID           int64
		TotalXP          int64
		Level            int
		CurrentStreak    int
		LongestStreak    int
		WordsLearned     int
		WordsMastered    int
		TotalReviews     int
		LastActivityDate *time.Time
		UpdatedAt        time.Time
	}

	Badge struct {
		ID          string
		Name        string
		Description string
		Icon        string
		Requirement string
		XPBonus     int64
	}

	UserBadge struct {
		Badge
		EarnedAt *time.Time
	}

	ReviewHistory struct {
		ID             int64
		ChatID         int64
		WordID         int64
		ReviewedAt     time.Time
		Rating         int
		ResponseTimeMs int64
		LearningMode   string
		XPEarned       int64
	}

	ReviewSummary struct {
		TotalReviews  int
		WordsReviewed int
		AverageRating float64
		TotalXP       int64
	}

	DailyReviewStats struct {
		Date          time.Time
		Reviews       int
		Passed        int
		Failed        int
		AverageRating float64
		XPEarned      int64
	}
)

// Learned is the number of words with at least one successful review since the last lapse.
func (c ProgressCounts) Learned() int {
	return c.Learning + c.Reviewing + c.Mastered
}

func (c ProgressCounts) Total() int {
	return c.New + c.Learned()
}
