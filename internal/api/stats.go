package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/context"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/review"
)

const defaultReviewDays = 30

type (
	StatsHandler struct {
		service *review.Service
		now     func() time.Time
		log     *slog.Logger
	}

	// ReviewsQueryParams holds an inclusive range of UTC dates in 2006-01-02 format.
	ReviewsQueryParams struct {
		From string `query:"from" validate:"omitempty,datetime=2006-01-02"`
		To   string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	}
)

func NewStatsHandler(service *review.Service, log *slog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		now:     time.Now,
		log:     log,
	}
}

func (h *StatsHandler) Stats(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())

	stats, err := h.service.Stats(c.Request().Context(), chatID)
	if err != nil {
		return domainError(c, h.log, "failed to get stats", err)
	}

	var lastActivity string
	if stats.LastActivity != nil {
		lastActivity = stats.LastActivity.Format(time.DateOnly)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_xp":           stats.TotalXP,
		"level":              stats.Level,
		"next_level_xp":      stats.NextLevelXP,
		"current_streak":     stats.CurrentStreak,
		"longest_streak":     stats.LongestStreak,
		"words_learned":      stats.WordsLearned,
		"words_mastered":     stats.WordsMastered,
		"total_reviews":      stats.TotalReviews,
		"last_activity_date": lastActivity,
		"due_words":          stats.DueWords,
		"progress": echo.Map{
			"new":       stats.Progress.New,
			"learning":  stats.Progress.Learning,
			"reviewing": stats.Progress.Reviewing,
			"mastered":  stats.Progress.Mastered,
			"total":     stats.Progress.Total(),
		},
	})
}

// Reviews returns the review summary with per day aggregates. The last 30 days are used by default.
func (h *StatsHandler) Reviews(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())

	var qp ReviewsQueryParams
	if err := c.Bind(&qp); err != nil {
		h.log.DebugContext(c.Request().Context(), "failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, BadRequestError)
	}
	if err := c.Validate(&qp); err != nil {
		h.log.DebugContext(c.Request().Context(), "failed to validate request", "error", err)
		return err
	}

	y, m, d := h.now().UTC().Date()
	to := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if qp.To != "" {
		to, _ = time.Parse(time.DateOnly, qp.To) // validated above
	}
	from := to.AddDate(0, 0, -(defaultReviewDays - 1))
	if qp.From != "" {
		from, _ = time.Parse(time.DateOnly, qp.From)
	}

	report, err := h.service.Reviews(c.Request().Context(), chatID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return domainError(c, h.log, "failed to get reviews", err)
	}

	days := make([]echo.Map, len(report.Days))
	for i, day := range report.Days {
		days[i] = echo.Map{
			"date":           day.Date.Format(time.DateOnly),
			"reviews":        day.Reviews,
			"passed":         day.Passed,
			"failed":         day.Failed,
			"average_rating": day.AverageRating,
			"xp_earned":      day.XPEarned,
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"summary": echo.Map{
			"total_reviews":  report.Summary.TotalReviews,
			"words_reviewed": report.Summary.WordsReviewed,
			"average_rating": report.Summary.AverageRating,
			"total_xp":       report.Summary.TotalXP,
		},
		"items": days,
	})
}

func (h *StatsHandler) Badges(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())

	badges, err := h.service.Badges(c.Request().Context(), chatID)
	if err != nil {
		return domainError(c, h.log, "failed to get badges", err)
	}

	items := make([]BadgeView, len(badges))
	for i, b := range badges {
		items[i] = BadgeView{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			Icon:        b.Icon,
			Requirement: b.Requirement,
			XPBonus:     b.XPBonus,
			EarnedAt:    b.EarnedAt,
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
	})
}
