package dal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
)

const (
	wordColumns     = "w.id, w.chat_id, w.word, w.translation, w.description, w.morphemes, w.created_at, w.updated_at"
	progressColumns = "p.chat_id, p.word_id, p.ease_factor, p.interval_days, p.repetitions, p.status, p.next_review_at, p.last_review_at, p.created_at, p.updated_at"
)

var qb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question) //nolint:gochecknoglobals // stateless builder

// AddWordQuery builds a query to insert a new word
func AddWordQuery(word Word) squirrel.Sqlizer {
	return qb.Insert("words").
		Columns("chat_id", "word", "translation", "description", "morphemes", "created_at", "updated_at").
		Values(word.ChatID, word.Word, word.Translation, word.Description, word.Morphemes, utc(word.CreatedAt), utc(word.UpdatedAt))
}

// UpsertWordQuery builds a query to insert a word or overwrite the translation of an existing one
func UpsertWordQuery(word Word) squirrel.Sqlizer {
	return qb.Insert("words").
		Columns("chat_id", "word", "translation", "description", "morphemes", "created_at", "updated_at").
		Values(word.ChatID, word.Word, word.Translation, word.Description, word.Morphemes, utc(word.CreatedAt), utc(word.UpdatedAt)).
		Suffix("ON CONFLICT (chat_id, word) DO UPDATE SET translation = excluded.translation, " +
			"description = excluded.description, morphemes = excluded.morphemes, updated_at = excluded.updated_at")
}

// UpdateWordQuery builds a query to update a word
func UpdateWordQuery(word Word) squirrel.Sqlizer {
	return qb.Update("words").
		Set("word", word.Word).
		Set("translation", word.Translation).
		Set("description", word.Description).
		Set("morphemes", word.Morphemes).
		Set("updated_at", utc(word.UpdatedAt)).
		Where(squirrel.Eq{"chat_id": word.ChatID, "id": word.ID})
}

// DeleteWordQuery builds a query to delete a word, its progress must be reset beforehand
func DeleteWordQuery(chatID, wordID int64) squirrel.Sqlizer {
	return qb.Delete("words").
		Where(squirrel.Eq{"chat_id": chatID, "id": wordID})
}

// FindWordQuery builds a query to find a specific word
func FindWordQuery(chatID, wordID int64) squirrel.Sqlizer {
	return qb.Select(wordColumns).
		From("words w").
		Where(squirrel.Eq{"w.chat_id": chatID, "w.id": wordID})
}

// FindWordsQuery builds a query to find words joined with their progress
func FindWordsQuery(chatID int64, filter WordsFilter) (selectQuery, countQuery squirrel.Sqlizer) {
	baseQuery := qb.Select().
		From("words w").
		LeftJoin("word_progress p ON p.chat_id = w.chat_id AND p.word_id = w.id").
		Where(squirrel.Eq{"w.chat_id": chatID})

	if filter.Search != "" {
		pattern := fmt.Sprintf("%%%s%%", strings.ToLower(filter.Search))
		baseQuery = baseQuery.Where(squirrel.Or{
			squirrel.Expr("LOWER(w.word) LIKE ?", pattern),
			squirrel.Expr("LOWER(w.translation) LIKE ?", pattern),
		})
	}

	switch filter.Status {
	case "", StatusFilterAll:
	case StatusFilterUnstarted:
		baseQuery = baseQuery.Where("p.word_id IS NULL")
	default:
		baseQuery = baseQuery.Where(squirrel.Eq{"p.status": string(filter.Status)})
	}

	sq := baseQuery.
		Columns(wordColumns, progressColumns).
		OrderBy("w.word")
	if filter.Limit > 0 {
		sq = sq.Limit(filter.Limit).Offset(filter.Offset)
	}
	selectQuery = sq

	countQuery = baseQuery.Columns("COUNT(*)")

	return selectQuery, countQuery
}

// InsertWordProgressQuery builds a query to create progress unless the word is already being learned
func InsertWordProgressQuery(progress WordProgress) squirrel.Sqlizer {
	return qb.Insert("word_progress").
		Columns("chat_id", "word_id", "ease_factor", "interval_days", "repetitions", "status",
			"next_review_at", "last_review_at", "created_at", "updated_at").
		Values(progress.ChatID, progress.WordID, progress.EaseFactor, progress.Interval, progress.Repetitions, progress.Status,
			utc(progress.NextReviewAt), utcPtr(progress.LastReviewAt), utc(progress.CreatedAt), utc(progress.UpdatedAt)).
		Suffix("ON CONFLICT (chat_id, word_id) DO NOTHING")
}

// UpdateWordProgressQuery builds a query to store the result of a review
func UpdateWordProgressQuery(progress WordProgress) squirrel.Sqlizer {
	return qb.Update("word_progress").
		Set("ease_factor", progress.EaseFactor).
		Set("interval_days", progress.Interval).
		Set("repetitions", progress.Repetitions).
		Set("status", progress.Status).
		Set("next_review_at", utc(progress.NextReviewAt)).
		Set("last_review_at", utcPtr(progress.LastReviewAt)).
		Set("updated_at", utc(progress.UpdatedAt)).
		Where(squirrel.Eq{"chat_id": progress.ChatID, "word_id": progress.WordID})
}

// DeleteWordProgressQuery builds a query to reset progress of a word
func DeleteWordProgressQuery(chatID, wordID int64) squirrel.Sqlizer {
	return qb.Delete("word_progress").
		Where(squirrel.Eq{"chat_id": chatID, "word_id": wordID})
}

// FindWordProgressQuery builds a query to find progress of a word
func FindWordProgressQuery(chatID, wordID int64) squirrel.Sqlizer {
	return qb.Select(progressColumns).
		From("word_progress p").
		Where(squirrel.Eq{"p.chat_id": chatID, "p.word_id": wordID})
}

// FindDueWordsQuery builds a query to find words whose next review is not in the future, most overdue first
func FindDueWordsQuery(chatID int64, now time.Time, limit uint64) squirrel.Sqlizer {
	query := qb.Select(wordColumns, progressColumns).
		From("word_progress p").
		Join("words w ON w.chat_id = p.chat_id AND w.id = p.word_id").
		Where(squirrel.Eq{"p.chat_id": chatID}).
		Where(squirrel.LtOrEq{"p.next_review_at": utc(now)}).
		OrderBy("p.next_review_at", "w.id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return query
}

// CountProgressQuery builds a query to count words per learning status
func CountProgressQuery(chatID int64) squirrel.Sqlizer {
	return qb.Select(
		"COALESCE(SUM(CASE WHEN status = 'new' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN status = 'learning' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN status = 'reviewing' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN status = 'mastered' THEN 1 ELSE 0 END), 0)",
	).
		From("word_progress").
		Where(squirrel.Eq{"chat_id": chatID})
}

// DueSummariesQuery builds a query to count due words per chat, all chats are counted when chatIDs is empty
func DueSummariesQuery(chatIDs []int64, now time.Time) squirrel.Sqlizer {
	query := qb.Select("chat_id", "COUNT(*)").
		From("word_progress").
		Where(squirrel.LtOrEq{"next_review_at": utc(now)}).
		GroupBy("chat_id").
		OrderBy("chat_id")
	if len(chatIDs) > 0 {
		query = query.Where(squirrel.Eq{"chat_id": chatIDs})
	}
	return query
}

// FindUserStatsQuery builds a query to find stats of a user
func FindUserStatsQuery(chatID int64) squirrel.Sqlizer {
	return qb.Select("chat_id", "total_xp", "level", "current_streak", "longest_streak",
		"words_learned", "words_mastered", "total_reviews", "last_activity_date", "updated_at").
		From("user_stats").
		Where(squirrel.Eq{"chat_id": chatID})
}

// SaveUserStatsQuery builds a query to insert or overwrite stats of a user
func SaveUserStatsQuery(stats UserStats) squirrel.Sqlizer {
	var lastActivity any
	if stats.LastActivityDate != nil {
		lastActivity = stats.LastActivityDate.Format(time.DateOnly)
	}

	return qb.Insert("user_stats").
		Columns("chat_id", "total_xp", "level", "current_streak", "longest_streak",
			"words_learned", "words_mastered", "total_reviews", "last_activity_date", "updated_at").
		Values(stats.ChatID, stats.TotalXP, stats.Level, stats.CurrentStreak, stats.LongestStreak,
			stats.WordsLearned, stats.WordsMastered, stats.TotalReviews, lastActivity, utc(stats.UpdatedAt)).
		Suffix("ON CONFLICT (chat_id) DO UPDATE SET total_xp = excluded.total_xp, level = excluded.level, " +
			"current_streak = excluded.current_streak, longest_streak = excluded.longest_streak, " +
			"words_learned = excluded.words_learned, words_mastered = excluded.words_mastered, " +
			"total_reviews = excluded.total_reviews, last_activity_date = excluded.last_activity_date, " +
			"updated_at = excluded.updated_at")
}

// SyncBadgeQuery builds a query to insert or refresh a badge of the catalog
func SyncBadgeQuery(badge Badge, position int) squirrel.Sqlizer {
	return qb.Insert("badges").
		Columns("id", "name", "description", "icon", "requirement", "xp_bonus", "sort_order").
		Values(badge.ID, badge.Name, badge.Description, badge.Icon, badge.Requirement, badge.XPBonus, position).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = excluded.name, description = excluded.description, " +
			"icon = excluded.icon, requirement = excluded.requirement, xp_bonus = excluded.xp_bonus, sort_order = excluded.sort_order")
}

// FindBadgesQuery builds a query to list the catalog with the time each badge was earned by the user
func FindBadgesQuery(chatID int64) squirrel.Sqlizer {
	return qb.Select("b.id", "b.name", "b.description", "b.icon", "b.requirement", "b.xp_bonus", "ub.earned_at").
		From("badges b").
		LeftJoin("user_badges ub ON ub.badge_id = b.id AND ub.chat_id = ?", chatID).
		OrderBy("b.sort_order", "b.id")
}

// HasEarnedQuery builds a query to check whether a user has a badge
func HasEarnedQuery(chatID int64, badgeID string) squirrel.Sqlizer {
	return qb.Select("COUNT(*)").
		From("user_badges").
		Where(squirrel.Eq{"chat_id": chatID, "badge_id": badgeID})
}

// RecordEarnedQuery builds a query to award a badge, it does nothing when the badge is already awarded
func RecordEarnedQuery(chatID int64, badgeID string, earnedAt time.Time) squirrel.Sqlizer {
	return qb.Insert("user_badges").
		Columns("chat_id", "badge_id", "earned_at").
		Values(chatID, badgeID, utc(earnedAt)).
		Suffix("ON CONFLICT (chat_id, badge_id) DO NOTHING")
}

// InsertReviewHistoryQuery builds a query to append a review to the history
func InsertReviewHistoryQuery(entry ReviewHistory) squirrel.Sqlizer {
	return qb.Insert("review_history").
		Columns("chat_id", "word_id", "reviewed_at", "rating", "response_time_ms", "learning_mode", "xp_earned").
		Values(entry.ChatID, entry.WordID, utc(entry.ReviewedAt), entry.Rating, entry.ResponseTimeMs, entry.LearningMode, entry.XPEarned)
}

// ReviewSummaryQuery builds a query to aggregate the whole review history of a user
func ReviewSummaryQuery(chatID int64) squirrel.Sqlizer {
	return qb.Select(
		"COUNT(*)",
		"COUNT(DISTINCT word_id)",
		"COALESCE(AVG(rating), 0)",
		"COALESCE(SUM(xp_earned), 0)",
	).
		From("review_history").
		Where(squirrel.Eq{"chat_id": chatID})
}

// DailyReviewStatsQuery builds a query to aggregate reviews per UTC day in [from, to)
func DailyReviewStatsQuery(chatID int64, passRating int, from, to time.Time) squirrel.Sqlizer {
	return qb.Select(
		"date(reviewed_at) AS day",
		"COUNT(*)",
		fmt.Sprintf("SUM(CASE WHEN rating >= %d THEN 1 ELSE 0 END)", passRating),
		fmt.Sprintf("SUM(CASE WHEN rating < %d THEN 1 ELSE 0 END)", passRating),
		"AVG(rating)",
		"SUM(xp_earned)",
	).
		From("review_history").
		Where(squirrel.Eq{"chat_id": chatID}).
		Where(squirrel.GtOrEq{"reviewed_at": utc(from)}).
		Where(squirrel.Lt{"reviewed_at": utc(to)}).
		GroupBy("day").
		OrderBy("day")
}

// InsertAuthConfirmationQuery builds a query to insert a new auth confirmation
func InsertAuthConfirmationQuery(chatID int64, token string, expiresAt time.Time) squirrel.Sqlizer {
	return qb.Insert("auth_confirmations").
		Columns("chat_id", "token", "expires_at").
		Values(chatID, token, utc(expiresAt))
}

// IsConfirmedQuery builds a query to check if a not expired auth confirmation is confirmed
func IsConfirmedQuery(chatID int64, token string, now time.Time) squirrel.Sqlizer {
	return qb.Select("confirmed").
		From("auth_confirmations").
		Where(squirrel.Eq{"chat_id": chatID, "token": token}).
		Where(squirrel.Gt{"expires_at": utc(now)})
}

// ConfirmAuthConfirmationQuery builds a query to confirm a not expired auth confirmation
func ConfirmAuthConfirmationQuery(chatID int64, token string, now time.Time) squirrel.Sqlizer {
	return qb.Update("auth_confirmations").
		Set("confirmed", true).
		Where(squirrel.Eq{"chat_id": chatID, "token": token}).
		Where(squirrel.Gt{"expires_at": utc(now)})
}

// DeleteAuthConfirmationQuery builds a query to delete auth confirmation
func DeleteAuthConfirmationQuery(chatID int64, token string) squirrel.Sqlizer {
	return qb.Delete("auth_confirmations").
		Where(squirrel.Eq{"chat_id": chatID, "token": token})
}

// CleanupAuthConfirmationsQuery builds a query to cleanup expired auth confirmations
func CleanupAuthConfirmationsQuery(now time.Time) squirrel.Sqlizer {
	return qb.Delete("auth_confirmations").
		Where(squirrel.Lt{"expires_at": utc(now)})
}

// timestamps are stored as UTC text, so comparisons in SQL only hold when every value is in UTC
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
