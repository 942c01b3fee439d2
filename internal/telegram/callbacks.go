package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tb "gopkg.in/telebot.v3"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/progression"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/review"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/srs"
)

const (
	callbackAuthConfirm = "callback#auth#confirm"
	callbackAuthDecline = "callback#auth#decline"
	callbackReviewNext  = "callback#review#next"
	callbackReviewShow  = "callback#review#show"
	callbackReviewRate  = "callback#review#rate#" // followed by the rating
)

type (
	// callbackData is encoded as "action:target", target is optional.
	callbackData struct {
		Action string
		Target string
	}

	// reviewCard is a flashcard waiting for the answer, kept in the cache under the callback target.
	reviewCard struct {
		WordID         int64     `json:"word_id"`
		Word           string    `json:"word"`
		Translation    string    `json:"translation"`
		Description    string    `json:"description,omitempty"`
		Morphemes      string    `json:"morphemes,omitempty"`
		SentAt         time.Time `json:"sent_at"`
		ResponseTimeMs *int64    `json:"response_time_ms,omitempty"`
	}

	ratingButton struct {
		Text   string
		Rating srs.Rating
	}
)

//nolint:gochecknoglobals // constant set of buttons
var ratingButtons = []ratingButton{
	{Text: "❌ Forgot", Rating: 1},
	{Text: "😬 Hard", Rating: 3},
	{Text: "🙂 Good", Rating: 4},
	{Text: "😎 Easy", Rating: 5},
}

func (b *Bot) HandleCallback(c tb.Context) error {
	ctx, cancel := processCtx()
	defer cancel()

	data, err := parseCallbackData(c.Callback().Data)
	if err != nil {
		b.log.ErrorContext(ctx, "failed to parse callback data", "error", err)
		return c.RespondText(somethingWentWrongMsg)
	}

	switch data.Action {
	case callbackAuthConfirm:
		return b.handleAuthConfirmCallback(ctx, c, data)
	case callbackAuthDecline:
		return b.handleAuthDeclineCallback(ctx, c, data)
	case callbackReviewNext:
		if err = b.sendNextReview(ctx, c); err != nil {
			return err
		}
		return c.Respond()
	}

	rating, isRate := ratingFromAction(data.Action)
	if !isRate && data.Action != callbackReviewShow {
		b.log.WarnContext(ctx, "unknown callback action", "action", data.Action)
		return c.RespondText(somethingWentWrongMsg)
	}

	var (
		card reviewCard
		ok   bool
	)
	if isRate {
		card, ok = b.claimCard(data.Target)
	} else {
		card, ok = b.loadCard(data.Target)
	}
	if !ok {
		b.log.WarnContext(ctx, "review card not found", "data", data)
		return c.RespondText("too much time passed")
	}

	if isRate {
		return b.handleRateCallback(ctx, c, data.Target, card, rating)
	}
	return b.handleShowCallback(ctx, c, data.Target, card)
}

func (b *Bot) handleAuthConfirmCallback(ctx context.Context, c tb.Context, data callbackData) error {
	if err := b.repo.ConfirmAuthConfirmation(ctx, c.Chat().ID, data.Target); err != nil {
		b.log.ErrorContext(ctx, "failed to confirm auth", "error", err)
		return c.RespondText(somethingWentWrongMsg)
	}
	return c.Delete()
}

func (b *Bot) handleAuthDeclineCallback(ctx context.Context, c tb.Context, data callbackData) error {
	if err := b.repo.DeleteAuthConfirmation(ctx, c.Chat().ID, data.Target); err != nil {
		b.log.ErrorContext(ctx, "failed to decline auth", "error", err)
		return c.RespondText(somethingWentWrongMsg)
	}
	return c.Delete()
}

// handleShowCallback reveals the translation. The time until the reveal is the response time of the review.
func (b *Bot) handleShowCallback(ctx context.Context, c tb.Context, cacheID string, card reviewCard) error {
	if card.ResponseTimeMs == nil {
		rt := b.now().Sub(card.SentAt).Milliseconds()
		card.ResponseTimeMs = &rt

		encoded, err := card.encode()
		if err != nil {
			b.log.ErrorContext(ctx, "failed to encode review card", "error", err)
			return c.RespondText(somethingWentWrongMsg)
		}
		b.cache.Set(cacheID, encoded, cacheTTL)
	}

	if err := c.Send(card.answer(), tb.ModeHTML, rateMarkup(cacheID)); err != nil {
		return fmt.Errorf("send answer: %w", err)
	}
	return c.Delete()
}

// handleRateCallback expects the card to be claimed already, so a repeated tap finds nothing to rate.
// The card is put back when the review could not be stored.
func (b *Bot) handleRateCallback(ctx context.Context, c tb.Context, cacheID string, card reviewCard, rating srs.Rating) error {
	outcome, err := b.service.SubmitReview(ctx, review.Submission{
		ChatID:         c.Chat().ID,
		WordID:         card.WordID,
		Rating:         int(rating),
		ResponseTimeMs: card.ResponseTimeMs,
		Mode:           progression.ModeFlashcard,
	})
	if err != nil {
		if errors.Is(err, review.ErrNotStarted) {
			return c.RespondText("the word is not being learned anymore")
		}
		b.log.ErrorContext(ctx, "failed to submit review", "error", err)
		b.putCard(ctx, cacheID, card)
		return c.RespondText(somethingWentWrongMsg)
	}

	if err = c.Send(outcomeMessage(outcome), startReviewMarkup()); err != nil {
		return fmt.Errorf("send outcome: %w", err)
	}
	return c.Delete()
}

func (b *Bot) loadCard(cacheID string) (reviewCard, bool) {
	if cacheID == "" {
		return reviewCard{}, false
	}
	encoded, ok := b.cache.Get(cacheID)
	if !ok {
		return reviewCard{}, false
	}
	return b.decodeCard(encoded)
}

// claimCard removes the card from the cache and returns it, only one caller gets it.
func (b *Bot) claimCard(cacheID string) (reviewCard, bool) {
	if cacheID == "" {
		return reviewCard{}, false
	}
	encoded, ok := b.cache.Take(cacheID)
	if !ok {
		return reviewCard{}, false
	}
	return b.decodeCard(encoded)
}

func (b *Bot) putCard(ctx context.Context, cacheID string, card reviewCard) {
	encoded, err := card.encode()
	if err != nil {
		b.log.ErrorContext(ctx, "failed to encode review card", "error", err)
		return
	}
	b.cache.Set(cacheID, encoded, cacheTTL)
}

func (b *Bot) decodeCard(encoded string) (reviewCard, bool) {
	card, err := decodeReviewCard(encoded)
	if err != nil {
		b.log.Error("failed to decode review card", "error", err)
		return reviewCard{}, false
	}
	return card, true
}

func parseCallbackData(val string) (callbackData, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return callbackData{}, errors.New("empty callback data")
	}

	action, target, _ := strings.Cut(val, ":")
	if action == "" || strings.Contains(target, ":") {
		return callbackData{}, fmt.Errorf("invalid callback data: %s", val)
	}
	return callbackData{
		Action: action,
		Target: target,
	}, nil
}

func ratingFromAction(action string) (srs.Rating, bool) {
	raw, ok := strings.CutPrefix(action, callbackReviewRate)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	rating := srs.Rating(v)
	if rating.Validate() != nil {
		return 0, false
	}
	return rating, true
}

func (c reviewCard) encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal review card: %w", err)
	}
	return string(b), nil
}

func decodeReviewCard(data string) (reviewCard, error) {
	var c reviewCard
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return reviewCard{}, fmt.Errorf("unmarshal review card: %w", err)
	}
	return c, nil
}

func (c reviewCard) answer() string {
	msg := fmt.Sprintf("<b>%s</b>: %s", html.EscapeString(c.Word), html.EscapeString(c.Translation))
	if c.Description != "" {
		msg += fmt.Sprintf("\n<i>%s</i>", html.EscapeString(c.Description))
	}
	if c.Morphemes != "" {
		msg += fmt.Sprintf("\n%s", html.EscapeString(c.Morphemes))
	}
	return msg
}

func outcomeMessage(o *review.Outcome) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "+%d XP, total %d XP", o.XPEarned, o.TotalXP)
	if o.LeveledUp {
		fmt.Fprintf(sb, "\nLevel up! You are level %d now", o.Level)
	}
	if o.Interval == 1 {
		sb.WriteString("\nNext review tomorrow")
	} else {
		fmt.Fprintf(sb, "\nNext review in %d days", o.Interval)
	}
	fmt.Fprintf(sb, "\nStreak: %d", o.CurrentStreak)
	return sb.String()
}

func seeTranslationMarkup(cacheID string) *tb.ReplyMarkup {
	return &tb.ReplyMarkup{
		InlineKeyboard: [][]tb.InlineButton{
			{
				{
					Text: "See translation",
					Data: callbackReviewShow + ":" + cacheID,
				},
			},
		},
	}
}

func rateMarkup(cacheID string) *tb.ReplyMarkup {
	row := make([]tb.InlineButton, 0, len(ratingButtons))
	for _, rb := range ratingButtons {
		row = append(row, tb.InlineButton{
			Text: rb.Text,
			Data: fmt.Sprintf("%s%d:%s", callbackReviewRate, rb.Rating, cacheID),
		})
	}
	return &tb.ReplyMarkup{InlineKeyboard: [][]tb.InlineButton{row}}
}

func startReviewMarkup() *tb.ReplyMarkup {
	return &tb.ReplyMarkup{
		InlineKeyboard: [][]tb.InlineButton{
			{
				{
					Text: "Review next",
					Data: callbackReviewNext,
				},
			},
		},
	}
}
