// Package progression derives XP, levels, streaks and badge awards from review events.
package progression

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultBaseXP = 10

	ModeFlashcard      Mode = "flashcard"
	ModeMultipleChoice Mode = "multiple_choice"
	ModeContextGuess   Mode = "context_guess"
	ModeTyping         Mode = "typing"
	ModeMorphemeBuild  Mode = "morpheme_build"
)

var ErrUnknownMode = errors.New("unknown learning mode")

type (
	Mode string

	Config struct {
		BaseXP          int
		ModeMultipliers map[Mode]float64
		LevelThresholds []int64
		Badges          []Badge
	}

	// Stats is the per-user progression snapshot the engine reads and updates.
	Stats struct {
		TotalXP       int64
		Level         int
		CurrentStreak int
		LongestStreak int
		WordsLearned  int
		WordsMastered int
		TotalReviews  int
		LastActivity  *time.Time // calendar date, see DateOf
	}

	Engine struct {
		baseXP          float64
		modeMultipliers map[Mode]float64
		thresholds      []int64
		badges          []Badge
	}
)

func DefaultModeMultipliers() map[Mode]float64 {
	return map[Mode]float64{
		ModeFlashcard:      1.0,
		ModeMultipleChoice: 1.1,
		ModeContextGuess:   1.2,
		ModeTyping:         1.3,
		ModeMorphemeBuild:  1.5,
	}
}

func DefaultLevelThresholds() []int64 {
	return []int64{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 11000}
}

func DefaultConfig() Config {
	return Config{
		BaseXP:          DefaultBaseXP,
		ModeMultipliers: DefaultModeMultipliers(),
		LevelThresholds: DefaultLevelThresholds(),
		Badges:          DefaultBadges(),
	}
}

func New(conf Config) (*Engine, error) {
	if conf.BaseXP <= 0 {
		return nil, fmt.Errorf("base xp must be positive: %d", conf.BaseXP)
	}
	if _, ok := conf.ModeMultipliers[ModeFlashcard]; !ok {
		return nil, fmt.Errorf("multiplier for %q mode is required", ModeFlashcard)
	}
	if len(conf.LevelThresholds) == 0 || conf.LevelThresholds[0] != 0 {
		return nil, errors.New("level thresholds must start with 0")
	}
	for i := 1; i < len(conf.LevelThresholds); i++ {
		if conf.LevelThresholds[i] <= conf.LevelThresholds[i-1] {
			return nil, fmt.Errorf("level thresholds must be strictly ascending: %v", conf.LevelThresholds)
		}
	}

	seen := make(map[string]struct{}, len(conf.Badges))
	for _, b := range conf.Badges {
		if b.ID == "" {
			return nil, errors.New("badge id is required")
		}
		if _, ok := seen[b.ID]; ok {
			return nil, fmt.Errorf("duplicate badge id %q", b.ID)
		}
		seen[b.ID] = struct{}{}
		if !b.Requirement.Metric.Valid() {
			return nil, fmt.Errorf("badge %q: unknown metric %q", b.ID, b.Requirement.Metric)
		}
	}

	modes := make(map[Mode]float64, len(conf.ModeMultipliers))
	for m, v := range conf.ModeMultipliers {
		modes[m] = v
	}

	return &Engine{
		baseXP:          float64(conf.BaseXP),
		modeMultipliers: modes,
		thresholds:      append([]int64(nil), conf.LevelThresholds...),
		badges:          append([]Badge(nil), conf.Badges...),
	}, nil
}

func MustNew(conf Config) *Engine {
	e, err := New(conf)
	if err != nil {
		panic(fmt.Sprintf("create progression engine: %v", err))
	}
	return e
}

// NewStats returns stats of a user without any activity.
func NewStats() Stats {
	return Stats{Level: 1}
}

func (e *Engine) Badges() []Badge {
	return append([]Badge(nil), e.badges...)
}

func (e *Engine) ValidMode(m Mode) bool {
	_, ok := e.modeMultipliers[m]
	return ok
}
