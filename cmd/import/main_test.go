package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
	sqlrepo "github.com/Roma7-7-7/vocabulary-trainer/internal/dal/sql"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/data"
)

func TestImportWords(t *testing.T) {
	ctx := context.Background()
	db, err := sqlrepo.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := sqlrepo.NewRepository(ctx, db, slog.New(slog.DiscardHandler))

	in := io.NopCloser(strings.NewReader("apple:яблуко\nbroken\npear:груша:fruit\n"))
	imported, err := importWords(ctx, repo, 7, in)

	var parsingErr *data.ParsingError
	require.ErrorAs(t, err, &parsingErr)
	assert.Equal(t, []int{2}, parsingErr.InvalidLines)
	assert.Equal(t, 2, imported)

	words, total, err := repo.FindWords(ctx, 7, dal.WordsFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, words, 2)

	in = io.NopCloser(strings.NewReader("Apple:яблуко:updated\n"))
	imported, err = importWords(ctx, repo, 7, in)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	_, total, err = repo.FindWords(ctx, 7, dal.WordsFilter{Search: "apple", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestParseArgs(t *testing.T) {
	a, err := parseArgs([]string{"-source", "words.txt", "-chat-id", "12"})
	require.NoError(t, err)
	assert.Equal(t, args{source: "words.txt", dbPath: "vocabulary.db", chatID: 12}, a)

	_, err = parseArgs([]string{"-source", "words.txt"})
	require.Error(t, err)

	_, err = parseArgs([]string{"-chat-id", "12"})
	require.Error(t, err)
}
