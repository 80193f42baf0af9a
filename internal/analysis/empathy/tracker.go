// Package empathy evolves the bounded rapport score of a conversation.
package empathy

import (
	"sort"

	"github.com/zhouzirui/sky-inn/backend/internal/analysis/emotion"
)

// Bounds of the empathy level.
const (
	Floor   = 35
	Ceiling = 85
)

// Milestone raises the base level once a conversation reaches Turns messages.
type Milestone struct {
	Turns int
	Level int
}

// Schedule parameterizes growth. Levels outside [Floor, Ceiling] are clamped.
type Schedule struct {
	Milestones    []Milestone
	DistressBonus int
}

// DefaultSchedule grows rapport at 5, 10 and 20 turns and adds a small bonus
// whenever the user expresses distress.
func DefaultSchedule() Schedule {
	return Schedule{
		Milestones: []Milestone{
			{Turns: 5, Level: 50},
			{Turns: 10, Level: 70},
			{Turns: 20, Level: 85},
		},
		DistressBonus: 5,
	}
}

// Tracker computes the next empathy level. It holds no per-chat state.
type Tracker struct {
	schedule Schedule
}

// NewTracker returns a tracker over a sorted copy of the schedule.
func NewTracker(schedule Schedule) *Tracker {
	milestones := append([]Milestone(nil), schedule.Milestones...)
	sort.Slice(milestones, func(i, j int) bool { return milestones[i].Turns < milestones[j].Turns })
	if schedule.DistressBonus < 0 {
		schedule.DistressBonus = 0
	}
	schedule.Milestones = milestones
	return &Tracker{schedule: schedule}
}

// Next returns the level after a message classified as tag, given the last
// recorded level and the number of turns so far.
//
// previous is clamped to [Floor, Ceiling] first. For previous in that range
// distress never lowers the level; a previous above Ceiling comes back as
// Ceiling. Otherwise the level only moves when a milestone is crossed.
func (t *Tracker) Next(tag emotion.Tag, previous, turns int) int {
	level := max(Clamp(previous), t.base(turns))
	if emotion.HasDistress(tag) {
		level += t.schedule.DistressBonus
	}
	return Clamp(level)
}

// base returns the milestone level reached after turns messages.
func (t *Tracker) base(turns int) int {
	level := Floor
	for _, m := range t.schedule.Milestones {
		if turns < m.Turns {
			break
		}
		level = max(level, m.Level)
	}
	return Clamp(level)
}

// Clamp bounds level to [Floor, Ceiling].
func Clamp(level int) int {
	if level < Floor {
		return Floor
	}
	if level > Ceiling {
		return Ceiling
	}
	return level
}
