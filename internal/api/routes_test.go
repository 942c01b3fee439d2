package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/config"
	sqlrepo "github.com/Roma7-7-7/vocabulary-trainer/internal/dal/sql"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/progression"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/review"
)

const testChatID int64 = 1001

type mockTelegramClient struct {
	mock.Mock
}

func (m *mockTelegramClient) AskAuthConfirmation(ctx context.Context, chatID int64, token string) error {
	args := m.Called(ctx, chatID, token)
	return args.Error(0)
}

type testServer struct {
	handler     http.Handler
	repo        *sqlrepo.Repository
	telegram    *mockTelegramClient
	accessToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := sqlrepo.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.DiscardHandler)
	repo := sqlrepo.NewRepository(ctx, db, log)
	service := review.NewService(repo, progression.MustNew(progression.DefaultConfig()), nil, time.UTC, log)
	require.NoError(t, service.SyncCatalog(ctx))

	conf := &config.API{
		Dev:            true,
		AllowedChatIDs: []int64{testChatID},
		HTTP: config.HTTP{
			ProcessTimeout: 5 * time.Second,
			RateLimit:      1000,
			CORS:           config.CORS{AllowOrigins: []string{"http://localhost:5173"}},
			Cookie: config.Cookie{
				Path:            "/",
				Domain:          "localhost",
				AuthExpiresIn:   15 * time.Minute,
				AccessExpiresIn: time.Hour,
			},
			JWT: config.JWT{Issuer: "test-issuer", Audience: []string{"test-audience"}, Secret: "test-secret"},
		},
	}

	telegram := &mockTelegramClient{}
	t.Cleanup(func() { telegram.AssertExpectations(t) })

	accessToken, err := NewJWTProcessor(conf.HTTP.JWT, time.Minute, time.Hour).ToAccessToken(testChatID)
	require.NoError(t, err)

	return &testServer{
		handler: NewRouter(ctx, conf, Dependencies{
			Repo:           repo,
			Service:        service,
			TelegramClient: telegram,
			Logger:         log,
		}),
		repo:        repo,
		telegram:    telegram,
		accessToken: accessToken,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) authorized(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, method, target, body, &http.Cookie{Name: accessCookieName, Value: s.accessToken})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return res
}

func (s *testServer) createWord(t *testing.T, word string) int64 {
	t.Helper()

	rec := s.authorized(t, http.MethodPost, "/words", echoBody{"word": word, "translation": word + "-uk"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return int64(decode(t, rec)["id"].(float64))
}

type echoBody map[string]any

func TestRouter_Unauthorized(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/words?limit=10", "/stats", "/badges", "/reviews/due", "/auth/info"} {
		rec := s.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}

	rec := s.do(t, http.MethodGet, "/stats", nil, &http.Cookie{Name: accessCookieName, Value: "broken"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Words(t *testing.T) {
	s := newTestServer(t)

	id := s.createWord(t, "apple")

	rec := s.authorized(t, http.MethodPost, "/words", echoBody{"word": "apple", "translation": "яблуко"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.authorized(t, http.MethodPost, "/words", echoBody{"word": " ", "translation": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.authorized(t, http.MethodGet, fmt.Sprintf("/words/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "apple", body["word"])
	assert.Nil(t, body["progress"])

	rec = s.authorized(t, http.MethodPut, fmt.Sprintf("/words/%d", id), echoBody{"word": "apple", "translation": "яблуко", "morphemes": "apple"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	s.createWord(t, "banana")
	rec = s.authorized(t, http.MethodGet, "/words?limit=10&search=APP", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.InDelta(t, 1, body["total"], 0)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "яблуко", items[0].(map[string]any)["translation"])

	rec = s.authorized(t, http.MethodGet, "/words", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "limit is required")

	rec = s.authorized(t, http.MethodGet, "/words?limit=10&status=forgotten", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.authorized(t, http.MethodDelete, fmt.Sprintf("/words/%d", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.authorized(t, http.MethodGet, fmt.Sprintf("/words/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.authorized(t, http.MethodGet, "/words/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ReviewFlow(t *testing.T) {
	s := newTestServer(t)
	id := s.createWord(t, "apple")

	rec := s.authorized(t, http.MethodPost, "/reviews", echoBody{"word_id": id, "rating": 4})
	assert.Equal(t, http.StatusConflict, rec.Code, "word is not being learned yet")

	rec = s.authorized(t, http.MethodPost, fmt.Sprintf("/words/%d/learn", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "new", decode(t, rec)["status"])

	rec = s.authorized(t, http.MethodGet, "/reviews/due", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = s.authorized(t, http.MethodPost, "/reviews", echoBody{"word_id": id, "rating": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	outcome := decode(t, rec)
	assert.InDelta(t, 2.6, outcome["ease_factor"], 1e-9)
	assert.InDelta(t, 1, outcome["interval"], 0)
	assert.InDelta(t, 1, outcome["repetitions"], 0)
	assert.Equal(t, "learning", outcome["status"])
	assert.InDelta(t, 10, outcome["xp_earned"], 0)
	assert.InDelta(t, 1, outcome["current_streak"], 0)
	assert.NotEmpty(t, outcome["new_badges"])

	rec = s.authorized(t, http.MethodGet, "/reviews/due", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["items"])

	rec = s.authorized(t, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.InDelta(t, 1, stats["total_reviews"], 0)
	assert.InDelta(t, 1, stats["words_learned"], 0)

	today := time.Now().UTC().Format(time.DateOnly)
	rec = s.authorized(t, http.MethodGet, "/stats/reviews?from="+today+"&to="+today, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode(t, rec)
	assert.Len(t, report["items"], 1)
	assert.InDelta(t, 1, report["summary"].(map[string]any)["total_reviews"], 0)

	rec = s.authorized(t, http.MethodGet, "/badges", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	badges := decode(t, rec)["items"].([]any)
	assert.Len(t, badges, len(progression.DefaultBadges()))

	rec = s.authorized(t, http.MethodDelete, fmt.Sprintf("/words/%d/progress", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ReviewErrors(t *testing.T) {
	s := newTestServer(t)
	id := s.createWord(t, "apple")
	rec := s.authorized(t, http.MethodPost, fmt.Sprintf("/words/%d/learn", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name string
		body echoBody
		want int
	}{
		{name: "rating above range", body: echoBody{"word_id": id, "rating": 6}, want: http.StatusBadRequest},
		{name: "negative rating", body: echoBody{"word_id": id, "rating": -1}, want: http.StatusBadRequest},
		{name: "missing rating", body: echoBody{"word_id": id}, want: http.StatusBadRequest},
		{name: "unknown mode", body: echoBody{"word_id": id, "rating": 3, "learning_mode": "telepathy"}, want: http.StatusBadRequest},
		{name: "missing word", body: echoBody{"rating": 3}, want: http.StatusBadRequest},
		{name: "unknown word", body: echoBody{"word_id": id + 100, "rating": 3}, want: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.authorized(t, http.MethodPost, "/reviews", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec = s.authorized(t, http.MethodGet, "/stats/reviews?from=2024-05-10&to=2024-05-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.authorized(t, http.MethodGet, "/stats/reviews?from=10.05.2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.authorized(t, http.MethodPost, "/words/999/learn", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Login(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/login", echoBody{"chat_id": 7})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var key string
	s.telegram.On("AskAuthConfirmation", mock.Anything, testChatID, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { key = args.String(2) }).
		Return(nil).
		Once()

	rec = s.do(t, http.MethodPost, "/auth/login", echoBody{"chat_id": testChatID})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	authCookie := findCookie(rec, authCookieName)
	require.NotNil(t, authCookie)

	rec = s.do(t, http.MethodGet, "/auth/status", nil, authCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["authenticated"])

	require.NoError(t, s.repo.ConfirmAuthConfirmation(context.Background(), testChatID, key))

	rec = s.do(t, http.MethodGet, "/auth/status", nil, authCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["authenticated"])
	access := findCookie(rec, accessCookieName)
	require.NotNil(t, access)

	rec = s.do(t, http.MethodGet, "/auth/info", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, testChatID, decode(t, rec)["chat_id"], 0)

	rec = s.do(t, http.MethodGet, "/auth/status", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	return nil
}
