package progression

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/srs"
)

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "zero base xp", modify: func(c *Config) { c.BaseXP = 0 }},
		{name: "no flashcard multiplier", modify: func(c *Config) { delete(c.ModeMultipliers, ModeFlashcard) }},
		{name: "empty thresholds", modify: func(c *Config) { c.LevelThresholds = nil }},
		{name: "thresholds not from zero", modify: func(c *Config) { c.LevelThresholds = []int64{10, 20} }},
		{name: "thresholds not ascending", modify: func(c *Config) { c.LevelThresholds = []int64{0, 20, 20} }},
		{name: "duplicate badge", modify: func(c *Config) { c.Badges = append(c.Badges, c.Badges[0]) }},
		{name: "unknown metric", modify: func(c *Config) { c.Badges[0].Requirement.Metric = "likes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := DefaultConfig()
			tt.modify(&conf)
			_, err := New(conf)
			assert.Error(t, err)
		})
	}
}

func TestCalculateXP(t *testing.T) {
	e := MustNew(DefaultConfig())

	tests := []struct {
		name     string
		rating   int
		mode     Mode
		response int64
		want     int64
	}{
		{name: "perfect fast flashcard", rating: 5, mode: ModeFlashcard, response: 1000, want: 11},
		{name: "perfect slow flashcard", rating: 5, mode: ModeFlashcard, response: 5000, want: 10},
		{name: "instant answer gets full bonus", rating: 5, mode: ModeFlashcard, response: 0, want: 12},
		{name: "negative response time is clamped", rating: 5, mode: ModeFlashcard, response: -500, want: 12},
		{name: "exactly three seconds", rating: 5, mode: ModeFlashcard, response: 3000, want: 10},
		{name: "typing multiplier", rating: 5, mode: ModeTyping, response: 10000, want: 13},
		{name: "morpheme build multiplier", rating: 3, mode: ModeMorphemeBuild, response: 10000, want: 10},
		{name: "failure earns little", rating: 0, mode: ModeFlashcard, response: 10000, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.CalculateXP(tt.rating, tt.mode, tt.response)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateXP_FlooredAtOne(t *testing.T) {
	conf := DefaultConfig()
	conf.BaseXP = 1
	e := MustNew(conf)

	got, err := e.CalculateXP(0, ModeFlashcard, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestCalculateXP_UnknownMode(t *testing.T) {
	_, err := MustNew(DefaultConfig()).CalculateXP(5, "dictation", 1000)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestCalculateXP_InvalidRating(t *testing.T) {
	e := MustNew(DefaultConfig())

	for _, rating := range []int{-1, 6, 9} {
		_, err := e.CalculateXP(rating, ModeFlashcard, 10000)
		var ratingErr *srs.InvalidRatingError
		require.ErrorAs(t, err, &ratingErr, "rating=%d", rating)
		assert.Equal(t, rating, ratingErr.Rating)
	}
}

func TestCalculateLevel(t *testing.T) {
	e := MustNew(DefaultConfig())

	tests := []struct {
		xp   int64
		want int
	}{
		{xp: -10, want: 1},
		{xp: 0, want: 1},
		{xp: 99, want: 1},
		{xp: 100, want: 2},
		{xp: 249, want: 2},
		{xp: 250, want: 3},
		{xp: 10999, want: 9},
		{xp: 11000, want: 10},
		{xp: 13199, want: 10},
		{xp: 13200, want: 11},
		{xp: 15840, want: 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.CalculateLevel(tt.xp), "xp=%d", tt.xp)
	}
}

func TestCalculateLevel_Monotonic(t *testing.T) {
	e := MustNew(DefaultConfig())

	prev := e.CalculateLevel(0)
	for xp := int64(0); xp < 200_000; xp += 37 {
		level := e.CalculateLevel(xp)
		require.GreaterOrEqual(t, level, prev, "xp=%d", xp)
		prev = level
	}

	assert.Positive(t, e.CalculateLevel(1<<62))
}

func TestLevelThreshold(t *testing.T) {
	e := MustNew(DefaultConfig())

	for level := 1; level <= 25; level++ {
		threshold := e.LevelThreshold(level)
		assert.Equal(t, level, e.CalculateLevel(threshold), "level=%d", level)
		if threshold > 0 {
			assert.Equal(t, level-1, e.CalculateLevel(threshold-1), "level=%d", level)
		}
	}
}

func TestNextStreak(t *testing.T) {
	day := func(s string) *time.Time {
		d, err := time.Parse(time.DateOnly, s)
		require.NoError(t, err)
		return &d
	}

	today := *day("2024-01-03")
	tests := []struct {
		name    string
		current int
		last    *time.Time
		want    int
	}{
		{name: "first activity", current: 0, last: nil, want: 1},
		{name: "same day", current: 4, last: day("2024-01-03"), want: 4},
		{name: "same day keeps zero", current: 0, last: day("2024-01-03"), want: 0},
		{name: "yesterday", current: 4, last: day("2024-01-02"), want: 5},
		{name: "two day gap", current: 4, last: day("2024-01-01"), want: 1},
		{name: "long gap", current: 40, last: day("2023-06-01"), want: 1},
		{name: "future date", current: 2, last: day("2024-01-05"), want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStreak(tt.current, tt.last, today))
		})
	}
}

func TestStats_RecordActivity(t *testing.T) {
	kyiv, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)

	s := NewStats()
	s.RecordActivity(time.Date(2024, time.March, 30, 23, 30, 0, 0, kyiv))
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.LongestStreak)

	// next calendar day across the DST switch, less than 24 hours later
	s.RecordActivity(time.Date(2024, time.March, 31, 8, 0, 0, 0, kyiv))
	assert.Equal(t, 2, s.CurrentStreak)

	s.RecordActivity(time.Date(2024, time.March, 31, 22, 0, 0, 0, kyiv))
	s.RecordActivity(time.Date(2024, time.March, 31, 22, 5, 0, 0, kyiv))
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
	require.NotNil(t, s.LastActivity)
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), *s.LastActivity)

	s.RecordActivity(time.Date(2024, time.April, 5, 10, 0, 0, 0, kyiv))
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
	assert.GreaterOrEqual(t, s.LongestStreak, s.CurrentStreak)
}

func TestStats_ActiveStreak(t *testing.T) {
	last := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	s := Stats{CurrentStreak: 6, LastActivity: &last}

	assert.Equal(t, 6, s.ActiveStreak(time.Date(2024, time.January, 2, 20, 0, 0, 0, time.UTC)))
	assert.Equal(t, 6, s.ActiveStreak(time.Date(2024, time.January, 3, 20, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, s.ActiveStreak(time.Date(2024, time.January, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, NewStats().ActiveStreak(last))
}
