package api

import (
	stdctx "context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/context"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/review"
)

type (
	WordRequest struct {
		Word        string `json:"word" validate:"required,max=255"`
		Translation string `json:"translation" validate:"required,max=255"`
		Description string `json:"description" validate:"max=1024"`
		Morphemes   string `json:"morphemes" validate:"max=255"`
	}

	WordView struct {
		ID          int64         `json:"id"`
		Word        string        `json:"word"`
		Translation string        `json:"translation"`
		Description string        `json:"description,omitempty"`
		Morphemes   string        `json:"morphemes,omitempty"`
		CreatedAt   time.Time     `json:"created_at"`
		Progress    *ProgressView `json:"progress,omitempty"`
	}

	ProgressView struct {
		EaseFactor   float64    `json:"ease_factor"`
		Interval     int        `json:"interval"`
		Repetitions  int        `json:"repetitions"`
		Status       string     `json:"status"`
		NextReviewAt time.Time  `json:"next_review_at"`
		LastReviewAt *time.Time `json:"last_review_at,omitempty"`
	}

	WordsQueryParams struct {
		Search string           `query:"search" validate:"max=255"`
		Status dal.StatusFilter `query:"status" validate:"omitempty,oneof=all unstarted new learning reviewing mastered"`
		Offset uint64           `query:"offset"`
		Limit  uint64           `query:"limit" validate:"required,min=1,max=100"`
	}

	wordsRepository interface {
		dal.WordsRepository
		FindWordProgress(ctx stdctx.Context, chatID, wordID int64) (*dal.WordProgress, error)
	}

	WordsHandler struct {
		repo    wordsRepository
		service *review.Service
		log     *slog.Logger
	}
)

func NewWordsHandler(repo wordsRepository, service *review.Service, log *slog.Logger) *WordsHandler {
	return &WordsHandler{
		repo:    repo,
		service: service,
		log:     log,
	}
}

func (h *WordsHandler) FindWords(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())

	var qp WordsQueryParams
	if err := c.Bind(&qp); err != nil {
		h.log.DebugContext(c.Request().Context(), "failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, BadRequestError)
	}

	if err := c.Validate(&qp); err != nil {
		h.log.DebugContext(c.Request().Context(), "failed to validate request", "error", err)
		return err
	}

	filter := dal.WordsFilter{
		Search: strings.TrimSpace(qp.Search),
		Status: qp.Status,
		Offset: qp.Offset,
		Limit:  qp.Limit,
	}
	words, total, err := h.repo.FindWords(c.Request().Context(), chatID, filter)
	if err != nil {
		return domainError(c, h.log, "failed to find words", err)
	}

	items := make([]WordView, len(words))
	for i, w := range words {
		items[i] = toWordView(w.Word, w.Progress)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": total,
	})
}

func (h *WordsHandler) GetWord(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())
	wordID, ok := wordIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, BadRequestError)
	}

	word, err := h.repo.FindWord(c.Request().Context(), chatID, wordID)
	if err != nil {
		return domainError(c, h.log, "failed to find word", err)
	}

	progress, err := h.repo.FindWordProgress(c.Request().Context(), chatID, wordID)
	if err != nil && !errors.Is(err, dal.ErrNotFound) {
		return domainError(c, h.log, "failed to find word progress", err)
	}

	return c.JSON(http.StatusOK, toWordView(*word, progress))
}

func (h *WordsHandler) CreateWord(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())

	req, err := h.bindWord(c)
	if err != nil {
		return err
	}

	word := req.toWord(chatID)
	word.ID, err = h.repo.AddWord(c.Request().Context(), word)
	if err != nil {
		return domainError(c, h.log, "failed to create word", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": word.ID})
}

func (h *WordsHandler) UpdateWord(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())
	wordID, ok := wordIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, BadRequestError)
	}

	req, err := h.bindWord(c)
	if err != nil {
		return err
	}

	word := req.toWord(chatID)
	word.ID = wordID
	if err = h.repo.UpdateWord(c.Request().Context(), word); err != nil {
		return domainError(c, h.log, "failed to update word", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "message": "word updated"})
}

func (h *WordsHandler) DeleteWord(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())
	wordID, ok := wordIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, BadRequestError)
	}

	if err := h.service.DeleteWord(c.Request().Context(), chatID, wordID); err != nil {
		return domainError(c, h.log, "failed to delete word", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "message": "word deleted"})
}

// StartLearning puts a word into the review schedule, the word is due immediately.
func (h *WordsHandler) StartLearning(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())
	wordID, ok := wordIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, BadRequestError)
	}

	progress, err := h.service.StartLearning(c.Request().Context(), chatID, wordID)
	if err != nil {
		return domainError(c, h.log, "failed to start learning", err)
	}

	return c.JSON(http.StatusOK, toProgressView(progress))
}

func (h *WordsHandler) ResetProgress(c echo.Context) error {
	chatID := context.MustChatIDFromContext(c.Request().Context())
	wordID, ok := wordIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, BadRequestError)
	}

	if err := h.service.ResetProgress(c.Request().Context(), chatID, wordID); err != nil {
		return domainError(c, h.log, "failed to reset progress", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "message": "progress reset"})
}

func (h *WordsHandler) bindWord(c echo.Context) (*WordRequest, error) {
	var req WordRequest
	if err := c.Bind(&req); err != nil {
		h.log.DebugContext(c.Request().Context(), "failed to bind request", "error", err)
		return nil, echo.NewHTTPError(http.StatusBadRequest, BadRequestError.Message).SetInternal(err)
	}

	req.Word = strings.TrimSpace(req.Word)
	req.Translation = strings.TrimSpace(req.Translation)
	req.Description = strings.TrimSpace(req.Description)
	req.Morphemes = strings.TrimSpace(req.Morphemes)

	if err := c.Validate(&req); err != nil {
		h.log.DebugContext(c.Request().Context(), "failed to validate request", "error", err)
		return nil, err
	}
	return &req, nil
}

func (r WordRequest) toWord(chatID int64) dal.Word {
	return dal.Word{
		ChatID:      chatID,
		Word:        r.Word,
		Translation: r.Translation,
		Description: r.Description,
		Morphemes:   r.Morphemes,
	}
}

func wordIDParam(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func toWordView(w dal.Word, p *dal.WordProgress) WordView {
	return WordView{
		ID:          w.ID,
		Word:        w.Word,
		Translation: w.Translation,
		Description: w.Description,
		Morphemes:   w.Morphemes,
		CreatedAt:   w.CreatedAt,
		Progress:    toProgressView(p),
	}
}

func toProgressView(p *dal.WordProgress) *ProgressView {
	if p == nil {
		return nil
	}
	return &ProgressView{
		EaseFactor:   p.EaseFactor,
		Interval:     p.Interval,
		Repetitions:  p.Repetitions,
		Status:       p.Status,
		NextReviewAt: p.NextReviewAt,
		LastReviewAt: p.LastReviewAt,
	}
}
