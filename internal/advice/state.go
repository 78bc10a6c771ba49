// Package advice turns a tracked round into human-readable recommendations,
// either composed locally or phrased by a remote model.
package advice

import (
	"shellsense/internal/items"
	"shellsense/internal/tracker"
)

// Target is who the shotgun is pointed at.
type Target int

const (
	TargetDealer Target = iota
	TargetSelf
)

func (t Target) String() string {
	if t == TargetSelf {
		return "self"
	}
	return "dealer"
}

// GameState is a read-only snapshot of everything advice needs.
type GameState struct {
	RemainingLive   int
	RemainingBlank  int
	CurrentPosition int

	// LiveProbability is the tracker's knowledge-adjusted probability.
	LiveProbability float64
	CurrentKnown    bool
	CurrentLive     bool

	// Known holds unfired known records only.
	Known []tracker.KnownRecord

	PlayerItems []items.Item
	DealerItems []items.Item

	PlayerHealth    int
	PlayerMaxHealth int
	DealerHealth    int
	DealerMaxHealth int

	PlayerTurn    bool
	HandsawActive bool
}

// Remaining returns the number of unfired shells.
func (s GameState) Remaining() int {
	return s.RemainingLive + s.RemainingBlank
}

// probability collapses to 0 or 1 when the current shell is known.
func (s GameState) probability() float64 {
	if s.Remaining() <= 0 {
		return 0
	}
	if s.CurrentKnown {
		if s.CurrentLive {
			return 1
		}
		return 0
	}
	return s.LiveProbability
}

// ExpectedValue scores firing at target. Shooting the dealer pays the damage
// multiplier on a live shell and costs a small penalty on a blank; shooting
// yourself pays 1 on a blank (extra turn) and costs 2 on a live shell.
func ExpectedValue(s GameState, target Target) float64 {
	if s.Remaining() <= 0 {
		return 0
	}
	p := s.probability()
	if target == TargetDealer {
		m := 1.0
		if s.HandsawActive {
			m = 2.0
		}
		return p*m - (1-p)*0.1
	}
	return (1-p)*1 - p*2
}

func unused(list []items.Item) []items.Item {
	var out []items.Item
	for _, it := range list {
		if !it.Used {
			out = append(out, it)
		}
	}
	return out
}
