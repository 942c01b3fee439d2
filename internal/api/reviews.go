package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/context"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/progression"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/review"
)

type (
	SubmitReviewRequest struct {
		WordID         int64  `json:"word_id" validate:"required,min=1"`
		Rating         *int   `json:"rating" validate:"required"`
		ResponseTimeMs *int64 `json:"response_time_ms"`
		LearningMode   string `json:"learning_mode"`
	}

	DueQueryParams struct {
		Limit uint64 `query:"limit" validate:"max=100"`
	}

	BadgeView struct {
		ID          string     `json:"id"`
		Name        string     `json:"name"`
		Description string     `json:"description"`
		Icon        string     `json:"icon"`
		Requirement string     `json:"requirement,omitempty"`
		XPBonus     int64      `json:"xp_bonus"`
		EarnedAt    *time.Time `json:"earned_at,omitempty"`
	}

	ReviewOutcomeView struct {
		WordID        int64       `json:"word_id"`
		EaseFactor    float64     `json:"ease_factor"`
		Interval      int         `json:"interval"`
		Repetitions   int         `json:"repetitions"`
		Status        string      `json:"status"`
		NextReviewAt  time.Time   `json:"next_review_at"`
		XPEarned      int64       `json:"xp_earned"`
		TotalXP       int64       `json:"total_xp"`
		Level         int         `json:"level"`
		LeveledUp     bool        `json:"leveled_up"`
		CurrentStreak int         `json:"current_streak"`
		LongestStreak int         `json:"longest_streak"`
		NewBadges     []BadgeView `json:"new_badges"`
	}

	ReviewsHandler struct {
		service *review.Service
		log     *slog.Logger
	}
)

func NewReviewsHandler(service *review.Service, log *slog.Logger) *ReviewsHandler {
	return &ReviewsHandler{
		service: service,
		log:     log,
	}
}

func (h *ReviewsHandler) Due(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())

	var qp DueQueryParams
	if err := c.Bind(&qp); err != nil {
		h.log.DebugContext(c.Request().Context(), "failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, BadRequestError)
	}
	if err := c.Validate(&qp); err != nil {
		h.log.DebugContext(c.Request().Context(), "failed to validate request", "error", err)
		return err
	}

	words, err := h.service.DueWords(c.Request().Context(), chatID, qp.Limit)
	if err != nil {
		return domainError(c, h.log, "failed to find due words", err)
	}

	items := make([]WordView, len(words))
	for i, w := range words {
		items[i] = toWordView(w.Word, w.Progress)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
	})
}

// Submit applies a review of a word. Rating and learning mode are validated by the review service.
func (h *ReviewsHandler) Submit(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())

	var req SubmitReviewRequest
	if err := c.Bind(&req); err != nil {
		h.log.DebugContext(c.Request().Context(), "failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, BadRequestError)
	}
	if err := c.Validate(&req); err != nil {
		h.log.DebugContext(c.Request().Context(), "failed to validate request", "error", err)
		return err
	}

	outcome, err := h.service.SubmitReview(c.Request().Context(), review.Submission{
		ChatID:         chatID,
		WordID:         req.WordID,
		Rating:         *req.Rating,
		ResponseTimeMs: req.ResponseTimeMs,
		Mode:           progression.Mode(req.LearningMode),
	})
	if err != nil {
		return domainError(c, h.log, "failed to submit review", err)
	}

	newBadges := make([]BadgeView, len(outcome.NewBadges))
	for i, b := range outcome.NewBadges {
		newBadges[i] = BadgeView{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			Icon:        b.Icon,
			Requirement: b.Requirement.String(),
			XPBonus:     b.XPBonus,
		}
	}

	return c.JSON(http.StatusOK, ReviewOutcomeView{
		WordID:        outcome.WordID,
		EaseFactor:    outcome.EaseFactor,
		Interval:      outcome.Interval,
		Repetitions:   outcome.Repetitions,
		Status:        string(outcome.Status),
		NextReviewAt:  outcome.NextReviewAt,
		XPEarned:      outcome.XPEarned,
		TotalXP:       outcome.TotalXP,
		Level:         outcome.Level,
		LeveledUp:     outcome.LeveledUp,
		CurrentStreak: outcome.CurrentStreak,
		LongestStreak: outcome.LongestStreak,
		NewBadges:     newBadges,
	})
}
