package telegram

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/progression"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/review"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/srs"
	"github.com/Roma7-7-7/vocabulary-trainer/pkg/cache"
)

// Telegram rejects callback data longer than 64 bytes.
const maxCallbackDataLen = 64

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name    string
		val     string
		want    callbackData
		wantErr bool
	}{
		{name: "with target", val: "callback#auth#confirm:abc", want: callbackData{Action: callbackAuthConfirm, Target: "abc"}},
		{name: "without target", val: " callback#review#next ", want: callbackData{Action: callbackReviewNext}},
		{name: "rate", val: "callback#review#rate#4:1#2", want: callbackData{Action: "callback#review#rate#4", Target: "1#2"}},
		{name: "empty", val: "", wantErr: true},
		{name: "no action", val: ":abc", wantErr: true},
		{name: "too many parts", val: "a:b:c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCallbackData(tt.val)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRatingFromAction(t *testing.T) {
	rating, ok := ratingFromAction(callbackReviewRate + "5")
	assert.True(t, ok)
	assert.Equal(t, srs.Rating(5), rating)

	rating, ok = ratingFromAction(callbackReviewRate + "0")
	assert.True(t, ok)
	assert.Equal(t, srs.Rating(0), rating)

	for _, action := range []string{callbackReviewRate + "6", callbackReviewRate + "x", callbackReviewShow, callbackReviewRate} {
		_, ok = ratingFromAction(action)
		assert.False(t, ok, action)
	}
}

func TestCallbackDataFitsLimit(t *testing.T) {
	cacheID := callbackCacheID(-1001234567890, time.Date(2262, time.January, 1, 0, 0, 0, 0, time.UTC))

	var all []string
	for _, row := range rateMarkup(cacheID).InlineKeyboard {
		for _, btn := range row {
			all = append(all, btn.Data)
		}
	}
	all = append(all, seeTranslationMarkup(cacheID).InlineKeyboard[0][0].Data)
	all = append(all, callbackAuthConfirm+":"+"123e4567-e89b-12d3-a456-426614174000")

	for _, d := range all {
		assert.LessOrEqual(t, len(d), maxCallbackDataLen, d)
		parsed, err := parseCallbackData(d)
		require.NoError(t, err)
		assert.NotEmpty(t, parsed.Target)
	}

	parsed, err := parseCallbackData(rateMarkup(cacheID).InlineKeyboard[0][0].Data)
	require.NoError(t, err)
	assert.Equal(t, cacheID, parsed.Target)
	rating, ok := ratingFromAction(parsed.Action)
	assert.True(t, ok)
	assert.Equal(t, ratingButtons[0].Rating, rating)
}

func TestReviewCard(t *testing.T) {
	rt := int64(2500)
	card := reviewCard{
		WordID:         7,
		Word:           "<apple>",
		Translation:    "яблуко",
		Description:    "a fruit & more",
		SentAt:         time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC),
		ResponseTimeMs: &rt,
	}

	encoded, err := card.encode()
	require.NoError(t, err)
	decoded, err := decodeReviewCard(encoded)
	require.NoError(t, err)
	assert.Equal(t, card, decoded)

	assert.Equal(t, "<b>&lt;apple&gt;</b>: яблуко\n<i>a fruit &amp; more</i>", card.answer())

	_, err = decodeReviewCard("{")
	assert.Error(t, err)
}

func TestOutcomeMessage(t *testing.T) {
	msg := outcomeMessage(&review.Outcome{XPEarned: 11, TotalXP: 121, Level: 2, LeveledUp: true, Interval: 1, CurrentStreak: 3})
	assert.Equal(t, "+11 XP, total 121 XP\nLevel up! You are level 2 now\nNext review tomorrow\nStreak: 3", msg)

	msg = outcomeMessage(&review.Outcome{XPEarned: 5, TotalXP: 50, Level: 1, Interval: 6, CurrentStreak: 1})
	assert.Equal(t, "+5 XP, total 50 XP\nNext review in 6 days\nStreak: 1", msg)
}

func TestTemplates(t *testing.T) {
	sb := &strings.Builder{}
	require.NoError(t, dueTemplate.Execute(sb, []dal.WordWithProgress{
		{Word: dal.Word{Word: "apple"}},
		{Word: dal.Word{Word: "banana"}},
	}))
	assert.Equal(t, "Due for review:\n- apple\n- banana", sb.String())

	earned := time.Now()
	sb.Reset()
	require.NoError(t, badgesTemplate.Execute(sb, []dal.UserBadge{
		{Badge: dal.Badge{Name: "First Word", Description: "Learn your first word", Icon: "🌱"}, EarnedAt: &earned},
		{Badge: dal.Badge{Name: "Lexicon", Description: "Learn 100 words", Icon: "📖"}},
	}))
	assert.Equal(t, "Badges:\n🌱 First Word: Learn your first word\n🔒 Lexicon: Learn 100 words", sb.String())

	sb.Reset()
	require.NoError(t, statsTemplate.Execute(sb, &review.StatsView{Level: 2, TotalXP: 120, NextLevelXP: 250, DueWords: 4}))
	assert.Contains(t, sb.String(), "Level 2 · 120 XP (next level at 250 XP)")
	assert.Contains(t, sb.String(), "Due now: 4")
}

func TestClient(t *testing.T) {
	var (
		mx     sync.Mutex
		got    []SendMessageRequest
		paths  []string
		status = http.StatusOK
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mx.Lock()
		defer mx.Unlock()

		var req SendMessageRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)
		paths = append(paths, r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("secret-token", slog.New(slog.DiscardHandler))
	c.apiURL = srv.URL
	ctx := context.Background()

	require.NoError(t, c.AskAuthConfirmation(ctx, 42, "key"))
	require.NoError(t, c.NotifyBadges(ctx, 42, []progression.Badge{{Name: "First <Word>", Icon: "🌱", XPBonus: 10, Description: "d"}}))
	require.NoError(t, c.NotifyBadges(ctx, 42, nil))
	require.NoError(t, c.SendReminder(ctx, 42, 3))

	mx.Lock()
	defer mx.Unlock()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"/botsecret-token/sendMessage", "/botsecret-token/sendMessage", "/botsecret-token/sendMessage"}, paths)

	assert.Equal(t, int64(42), got[0].ChatID)
	require.NotNil(t, got[0].ReplyMarkup)
	assert.Equal(t, callbackAuthConfirm+":key", got[0].ReplyMarkup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, callbackAuthDecline+":key", got[0].ReplyMarkup.InlineKeyboard[0][1].CallbackData)

	assert.Equal(t, "HTML", got[1].ParseMode)
	assert.Contains(t, got[1].Text, "First &lt;Word&gt;")
	assert.Contains(t, got[1].Text, "+10 XP")

	assert.Equal(t, "3 words are waiting for review.", got[2].Text)
	assert.Equal(t, callbackReviewNext, got[2].ReplyMarkup.InlineKeyboard[0][0].CallbackData)

	status = http.StatusBadRequest
	mx.Unlock()
	assert.Error(t, c.SendReminder(ctx, 42, 1))
	mx.Lock()
}

func TestBot_ClaimCard(t *testing.T) {
	b := &Bot{
		cache: cache.NewInMemory(),
		now:   time.Now,
		log:   slog.New(slog.DiscardHandler),
	}
	card := reviewCard{WordID: 7, Word: "apple", Translation: "яблуко", SentAt: time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)}
	b.putCard(context.Background(), "1#2", card)

	loaded, ok := b.loadCard("1#2")
	require.True(t, ok)
	assert.Equal(t, card.WordID, loaded.WordID)

	claimed, ok := b.claimCard("1#2")
	require.True(t, ok)
	assert.Equal(t, card.WordID, claimed.WordID)

	_, ok = b.claimCard("1#2")
	assert.False(t, ok, "second tap must not rate the card again")
	_, ok = b.loadCard("1#2")
	assert.False(t, ok)

	b.putCard(context.Background(), "1#2", claimed)
	_, ok = b.claimCard("1#2")
	assert.True(t, ok, "card put back after a failed submit can be rated")

	_, ok = b.claimCard("")
	assert.False(t, ok)
}
