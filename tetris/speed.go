package tetris

import (
	"math"
	"time"
)

const (
	MinLevel = 1
	MaxLevel = 10

	MinInterval = 50 * time.Millisecond

	milestoneStep = 500
	milestoneRate = 0.95
)

// Difficulty is a preset for the speed level and the ghost piece.
type Difficulty string

const (
	Easy   Difficulty = "easy"   // level 1, ghost on.
	Medium Difficulty = "medium" // level 7, ghost off.
)

// Speed holds everything the fall interval is derived from.
type Speed struct {
	Level     int
	Scale     float64
	Milestone int
	Interval  time.Duration
}

func newSpeed(level int) Speed {
	s := Speed{Level: clampLevel(level)}
	s.reset()
	return s
}

// reset drops the score based speed-ups, keeping the level.
func (s *Speed) reset() {
	s.Scale = 1
	s.Milestone = milestoneStep
	s.update()
}

func (s *Speed) setLevel(level int) {
	s.Level = clampLevel(level)
	s.update()
}

// update recomputes the interval:
//
//	max(50, round(max(100, 1000 - (level-1)*100) * scale)) ms
func (s *Speed) update() {
	base := max(100, 1000-(s.Level-1)*100)
	ms := int(math.Round(float64(base) * s.Scale))
	s.Interval = max(MinInterval, time.Duration(ms)*time.Millisecond)
}

// advance applies a speed-up for every milestone the score reached and
// reports whether any was applied.
func (s *Speed) advance(score int) bool {
	var changed bool
	for score >= s.Milestone {
		s.Scale *= milestoneRate
		s.Milestone += milestoneStep
		changed = true
	}
	if changed {
		s.update()
	}
	return changed
}

// points returns the score for clearing n rows at once.
func points(n int) int {
	return 50 * n * n
}

func clampLevel(level int) int {
	return min(MaxLevel, max(MinLevel, level))
}
