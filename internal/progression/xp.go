package progression

import (
	"fmt"
	"math"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/srs"
)

const (
	speedBonusWindowMs  = 3000
	speedBonusDivisorMs = 15000
)

// CalculateXP returns the XP earned for a single review, never less than 1.
// A rating outside 0..5 is rejected with *srs.InvalidRatingError.
func (e *Engine) CalculateXP(rating int, mode Mode, responseTimeMs int64) (int64, error) {
	if err := srs.Rating(rating).Validate(); err != nil {
		return 0, err
	}
	modeMultiplier, ok := e.modeMultipliers[mode]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	ratingMultiplier := float64(rating+1) / 6 //nolint:mnd // rating 0..5 maps to 1/6..1

	xp := int64(math.Round(e.baseXP * ratingMultiplier * modeMultiplier * speedBonus(responseTimeMs)))
	return max(1, xp), nil
}

func speedBonus(responseTimeMs int64) float64 {
	responseTimeMs = max(0, responseTimeMs)
	if responseTimeMs >= speedBonusWindowMs {
		return 1
	}
	return 1 + float64(speedBonusWindowMs-responseTimeMs)/speedBonusDivisorMs
}
