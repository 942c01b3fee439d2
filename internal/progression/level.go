package progression

import "math"

const levelGrowth = 1.2

// CalculateLevel returns the 1-indexed level reached with totalXP.
// Past the last configured threshold every next threshold is the previous one times 1.2.
func (e *Engine) CalculateLevel(totalXP int64) int {
	level := 0
	for i, threshold := range e.thresholds {
		if totalXP < threshold {
			return max(1, i)
		}
		level = i + 1
	}

	threshold := e.thresholds[len(e.thresholds)-1]
	for {
		next := nextThreshold(threshold)
		if next <= threshold || totalXP < next {
			return level
		}
		threshold = next
		level++
	}
}

// LevelThreshold returns the total XP required to reach level.
func (e *Engine) LevelThreshold(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level <= len(e.thresholds) {
		return e.thresholds[level-1]
	}

	threshold := e.thresholds[len(e.thresholds)-1]
	for range level - len(e.thresholds) {
		next := nextThreshold(threshold)
		if next <= threshold {
			return math.MaxInt64
		}
		threshold = next
	}
	return threshold
}

func nextThreshold(threshold int64) int64 {
	f := math.Floor(float64(threshold) * levelGrowth)
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	next := int64(f)
	if next <= threshold && threshold < math.MaxInt64 {
		next = threshold + 1
	}
	return next
}
