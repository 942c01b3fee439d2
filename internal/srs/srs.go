// Package srs implements the SM-2 spaced-repetition scheduling used for word reviews.
package srs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	MinRating  Rating = 0
	PassRating Rating = 3
	MaxRating  Rating = 5

	MinEaseFactor     = 1.3
	InitialEaseFactor = 2.5

	masteredRepetitions = 3

	StatusNew       Status = "new"
	StatusLearning  Status = "learning"
	StatusReviewing Status = "reviewing"
	StatusMastered  Status = "mastered"
)

var ErrInvalidState = errors.New("invalid scheduling state")

type (
	// Rating is the 0..5 quality of recall reported by the learner.
	Rating int

	Status string

	State struct {
		EaseFactor  float64
		Interval    int // days
		Repetitions int
	}

	Result struct {
		State
		NextReviewAt time.Time
		Status       Status
	}

	InvalidRatingError struct {
		Rating int
	}

	// Scheduler is stateless, a single instance can be shared between requests.
	Scheduler struct{}
)

func (e *InvalidRatingError) Error() string {
	return fmt.Sprintf("invalid rating %d: must be in range %d-%d", e.Rating, MinRating, MaxRating)
}

func (r Rating) Validate() error {
	if r < MinRating || r > MaxRating {
		return &InvalidRatingError{Rating: int(r)}
	}
	return nil
}

func (r Rating) Passed() bool {
	return r >= PassRating
}

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusLearning, StatusReviewing, StatusMastered:
		return true
	default:
		return false
	}
}

// NewState returns the scheduling state of a word that has just been added to learning.
func NewState() State {
	return State{
		EaseFactor:  InitialEaseFactor,
		Interval:    0,
		Repetitions: 0,
	}
}

func (s State) validate() error {
	if math.IsNaN(s.EaseFactor) || s.EaseFactor < MinEaseFactor {
		return fmt.Errorf("%w: ease factor %.2f is below %.2f", ErrInvalidState, s.EaseFactor, MinEaseFactor)
	}
	if s.Interval < 0 {
		return fmt.Errorf("%w: negative interval %d", ErrInvalidState, s.Interval)
	}
	if s.Repetitions < 0 {
		return fmt.Errorf("%w: negative repetitions %d", ErrInvalidState, s.Repetitions)
	}
	return nil
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Next computes the scheduling state after a review rated with rating at now.
func (s *Scheduler) Next(prev State, rating Rating, now time.Time) (Result, error) {
	if err := rating.Validate(); err != nil {
		return Result{}, err
	}
	if err := prev.validate(); err != nil {
		return Result{}, err
	}

	next := State{EaseFactor: NextEaseFactor(prev.EaseFactor, rating)}

	if rating.Passed() {
		switch prev.Repetitions {
		case 0:
			next.Interval = 1
		case 1:
			next.Interval = 6 //nolint:mnd // second SM-2 step
		default:
			next.Interval = max(1, int(math.Round(float64(prev.Interval)*next.EaseFactor)))
		}
		next.Repetitions = prev.Repetitions + 1
	} else {
		next.Interval = 1
		next.Repetitions = 0
	}

	return Result{
		State:        next,
		NextReviewAt: now.AddDate(0, 0, next.Interval),
		Status:       DetermineStatus(next.Repetitions, next.EaseFactor),
	}, nil
}

// NextEaseFactor applies the SM-2 ease adjustment, rounded to two decimals and floored at MinEaseFactor.
func NextEaseFactor(ease float64, rating Rating) float64 {
	q := float64(MaxRating - rating)
	ef := ease + (0.1 - q*(0.08+q*0.02)) //nolint:mnd // SM-2 constants
	ef = math.Round(ef*100) / 100        //nolint:mnd // two decimals
	return math.Max(MinEaseFactor, ef)
}

func DetermineStatus(repetitions int, ease float64) Status {
	switch {
	case repetitions <= 0:
		return StatusNew
	case repetitions < masteredRepetitions:
		return StatusLearning
	case ease >= InitialEaseFactor:
		return StatusMastered
	default:
		return StatusReviewing
	}
}

func Due(nextReviewAt, now time.Time) bool {
	return !nextReviewAt.After(now)
}
