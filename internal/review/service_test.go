package review

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
	sqlrepo "github.com/Roma7-7-7/vocabulary-trainer/internal/dal/sql"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/progression"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/srs"
)

const chatID int64 = 100

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyBadges(ctx context.Context, chatID int64, badges []progression.Badge) error {
	args := m.Called(ctx, chatID, badges)
	return args.Error(0)
}

type testEnv struct {
	svc      *Service
	repo     *sqlrepo.Repository
	notifier *mockNotifier
	clock    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := sqlrepo.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.DiscardHandler)
	env := &testEnv{
		repo:     sqlrepo.NewRepository(ctx, db, log),
		notifier: &mockNotifier{},
		clock:    time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(env.repo, progression.MustNew(progression.DefaultConfig()), env.notifier, time.UTC, log)
	env.svc.now = func() time.Time { return env.clock }
	require.NoError(t, env.svc.SyncCatalog(ctx))

	return env
}

func (e *testEnv) addWord(t *testing.T, word string) int64 {
	t.Helper()

	id, err := e.repo.AddWord(context.Background(), dal.Word{ChatID: chatID, Word: word, Translation: word + "-translation"})
	require.NoError(t, err)
	return id
}

func (e *testEnv) startLearning(t *testing.T, word string) int64 {
	t.Helper()

	id := e.addWord(t, word)
	_, err := e.svc.StartLearning(context.Background(), chatID, id)
	require.NoError(t, err)
	return id
}

func ms(v int64) *int64 {
	return &v
}

func badgeIDs(badges []progression.Badge) []string {
	res := make([]string, 0, len(badges))
	for _, b := range badges {
		res = append(res, b.ID)
	}
	return res
}

func TestService_StartLearning(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.StartLearning(ctx, chatID, 999)
	require.ErrorIs(t, err, dal.ErrNotFound)

	wordID := env.addWord(t, "apple")
	progress, err := env.svc.StartLearning(ctx, chatID, wordID)
	require.NoError(t, err)
	assert.Equal(t, srs.InitialEaseFactor, progress.EaseFactor)
	assert.Zero(t, progress.Interval)
	assert.Zero(t, progress.Repetitions)
	assert.Equal(t, string(srs.StatusNew), progress.Status)
	assert.Equal(t, env.clock, progress.NextReviewAt)
	assert.Nil(t, progress.LastReviewAt)

	env.clock = env.clock.Add(time.Hour)
	again, err := env.svc.StartLearning(ctx, chatID, wordID)
	require.NoError(t, err)
	assert.Equal(t, progress.NextReviewAt, again.NextReviewAt)
}

func TestService_SubmitReview(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	wordID := env.startLearning(t, "apple")

	env.notifier.On("NotifyBadges", mock.Anything, chatID, mock.MatchedBy(func(badges []progression.Badge) bool {
		return len(badges) == 1 && badges[0].ID == "words_1"
	})).Return(nil).Once()

	out, err := env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: wordID, Rating: 5, ResponseTimeMs: ms(1000)})
	require.NoError(t, err)

	assert.InDelta(t, 2.6, out.EaseFactor, 1e-9)
	assert.Equal(t, 1, out.Interval)
	assert.Equal(t, 1, out.Repetitions)
	assert.Equal(t, srs.StatusLearning, out.Status)
	assert.Equal(t, env.clock.AddDate(0, 0, 1), out.NextReviewAt)
	assert.Equal(t, int64(11), out.XPEarned)
	assert.Equal(t, int64(21), out.TotalXP)
	assert.Equal(t, 1, out.Level)
	assert.False(t, out.LeveledUp)
	assert.Equal(t, 1, out.CurrentStreak)
	assert.Equal(t, []string{"words_1"}, badgeIDs(out.NewBadges))
	env.notifier.AssertExpectations(t)

	progress, err := env.repo.FindWordProgress(ctx, chatID, wordID)
	require.NoError(t, err)
	assert.Equal(t, string(srs.StatusLearning), progress.Status)
	require.NotNil(t, progress.LastReviewAt)
	assert.Equal(t, env.clock, *progress.LastReviewAt)

	stats, err := env.svc.Stats(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, int64(21), stats.TotalXP)
	assert.Equal(t, 1, stats.TotalReviews)
	assert.Equal(t, 1, stats.WordsLearned)
	assert.Equal(t, int64(100), stats.NextLevelXP)
	assert.Zero(t, stats.DueWords)

	report, err := env.svc.Reviews(ctx, chatID, env.svc.Today(), env.svc.Today().AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.TotalReviews)
	assert.Equal(t, int64(11), report.Summary.TotalXP)
	require.Len(t, report.Days, 1)
	assert.Equal(t, 1, report.Days[0].Passed)

	badges, err := env.svc.Badges(ctx, chatID)
	require.NoError(t, err)
	require.NotEmpty(t, badges)
	assert.Equal(t, "words_1", badges[0].ID)
	assert.NotNil(t, badges[0].EarnedAt)
}

func TestService_SubmitReview_Failure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	wordID := env.startLearning(t, "apple")
	env.notifier.On("NotifyBadges", mock.Anything, chatID, mock.Anything).Return(nil)

	_, err := env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: wordID, Rating: 4})
	require.NoError(t, err)

	out, err := env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: wordID, Rating: 1, Mode: progression.ModeTyping})
	require.NoError(t, err)
	assert.Zero(t, out.Repetitions)
	assert.Equal(t, 1, out.Interval)
	assert.Equal(t, srs.StatusNew, out.Status)
	assert.GreaterOrEqual(t, out.EaseFactor, srs.MinEaseFactor)
	assert.Positive(t, out.XPEarned)

	stats, err := env.svc.Stats(ctx, chatID)
	require.NoError(t, err)
	assert.Zero(t, stats.WordsLearned)
	assert.Equal(t, 1, stats.Progress.New)
	assert.Equal(t, 2, stats.TotalReviews)
}

func TestService_SubmitReview_Streak(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	wordID := env.startLearning(t, "apple")
	env.notifier.On("NotifyBadges", mock.Anything, chatID, mock.Anything).Return(nil)

	review := func() *Outcome {
		out, err := env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: wordID, Rating: 4})
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, 1, review().CurrentStreak)
	env.clock = env.clock.Add(2 * time.Hour)
	assert.Equal(t, 1, review().CurrentStreak)

	env.clock = env.clock.AddDate(0, 0, 1)
	assert.Equal(t, 2, review().CurrentStreak)

	env.clock = env.clock.AddDate(0, 0, 3)
	stats, err := env.svc.Stats(ctx, chatID)
	require.NoError(t, err)
	assert.Zero(t, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)

	out := review()
	assert.Equal(t, 1, out.CurrentStreak)
	assert.Equal(t, 2, out.LongestStreak)
}

func TestService_SubmitReview_Errors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	wordID := env.addWord(t, "apple")

	_, err := env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: wordID, Rating: 3})
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: wordID, Rating: 6})
	var ratingErr *srs.InvalidRatingError
	require.ErrorAs(t, err, &ratingErr)
	assert.Equal(t, 6, ratingErr.Rating)

	_, err = env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: wordID, Rating: 3, Mode: "dictation"})
	assert.ErrorIs(t, err, progression.ErrUnknownMode)

	_, err = env.repo.FindUserStats(ctx, chatID)
	assert.ErrorIs(t, err, dal.ErrNotFound)
}

func TestService_SubmitReview_NotifierErrorIsIgnored(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	wordID := env.startLearning(t, "apple")
	env.notifier.On("NotifyBadges", mock.Anything, chatID, mock.Anything).Return(errors.New("telegram is down")).Once()

	out, err := env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: wordID, Rating: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, out.NewBadges)
	env.notifier.AssertExpectations(t)
}

func TestService_BadgesAwardedOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	first := env.startLearning(t, "apple")
	second := env.startLearning(t, "pear")
	env.notifier.On("NotifyBadges", mock.Anything, chatID, mock.Anything).Return(nil).Once()

	out, err := env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: first, Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"words_1"}, badgeIDs(out.NewBadges))
	totalXP := out.TotalXP

	out, err = env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: second, Rating: 5})
	require.NoError(t, err)
	assert.Empty(t, out.NewBadges)
	assert.Equal(t, totalXP+out.XPEarned, out.TotalXP)
	env.notifier.AssertExpectations(t)
}

func TestService_ResetProgress(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	wordID := env.startLearning(t, "apple")
	env.notifier.On("NotifyBadges", mock.Anything, chatID, mock.Anything).Return(nil)

	_, err := env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: wordID, Rating: 5})
	require.NoError(t, err)

	require.NoError(t, env.svc.ResetProgress(ctx, chatID, wordID))
	assert.ErrorIs(t, env.svc.ResetProgress(ctx, chatID, wordID), dal.ErrNotFound)

	stats, err := env.svc.Stats(ctx, chatID)
	require.NoError(t, err)
	assert.Zero(t, stats.WordsLearned)
	assert.Zero(t, stats.Progress.Total())
	assert.Equal(t, 1, stats.TotalReviews)

	_, err = env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: wordID, Rating: 5})
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestService_DeleteWord(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	wordID := env.startLearning(t, "apple")
	env.notifier.On("NotifyBadges", mock.Anything, chatID, mock.Anything).Return(nil)

	_, err := env.svc.SubmitReview(ctx, Submission{ChatID: chatID, WordID: wordID, Rating: 5})
	require.NoError(t, err)

	before, err := env.repo.GetReviewSummary(ctx, chatID)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteWord(ctx, chatID, wordID))
	assert.ErrorIs(t, env.svc.DeleteWord(ctx, chatID, wordID), dal.ErrNotFound)

	stats, err := env.svc.Stats(ctx, chatID)
	require.NoError(t, err)
	assert.Zero(t, stats.WordsLearned)
	assert.Equal(t, 1, stats.TotalReviews)

	after, err := env.repo.GetReviewSummary(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, *before, *after, "review history is append-only")
	assert.Equal(t, 1, after.TotalReviews)
}

func TestService_DueWords(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for _, w := range []string{"a", "b", "c"} {
		env.startLearning(t, w)
	}

	words, err := env.svc.DueWords(ctx, chatID, 0)
	require.NoError(t, err)
	assert.Len(t, words, 3)

	words, err = env.svc.DueWords(ctx, chatID, 2)
	require.NoError(t, err)
	assert.Len(t, words, 2)

	stats, err := env.svc.Stats(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DueWords)
}

func TestService_Reviews_InvalidRange(t *testing.T) {
	env := newTestEnv(t)
	today := env.svc.Today()

	_, err := env.svc.Reviews(context.Background(), chatID, today, today)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = env.svc.Reviews(context.Background(), chatID, today, today.AddDate(2, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidRange)

	report, err := env.svc.Reviews(context.Background(), chatID, today.AddDate(0, 0, -7), today)
	require.NoError(t, err)
	assert.Empty(t, report.Days)
	assert.NotNil(t, report.Days)
}
