// Package tracker maintains the belief state over the shells loaded into the chamber.
//
// A Tracker owns the ground-truth remaining counts, the ordered fired history and a
// sparse set of positions whose identity was revealed ahead of firing. Every mutation
// recomputes the cached live probability for the next draw. The tracker is not safe
// for concurrent use; callers drive it from a single goroutine.
package tracker

import "shellsense/internal/logging"

// =============================================================================
// RECORDS
// =============================================================================

// FiredRecord is one shell that has left the chamber, in firing order.
type FiredRecord struct {
	Position int  `json:"position"`
	Live     bool `json:"live"`
}

// KnownRecord is a revealed identity for a shell position.
// Fired is derived from the history at read time and is never stored.
type KnownRecord struct {
	Position int  `json:"position"`
	Live     bool `json:"live"`
	Fired    bool `json:"fired"`
}

// RoundState is the counter view of the current round.
type RoundState struct {
	TotalLive       int `json:"total_live"`
	TotalBlank      int `json:"total_blank"`
	RemainingLive   int `json:"remaining_live"`
	RemainingBlank  int `json:"remaining_blank"`
	CurrentPosition int `json:"current_position"`
}

// Remaining returns the number of shells not yet fired.
func (s RoundState) Remaining() int {
	return s.RemainingLive + s.RemainingBlank
}

// Total returns the number of shells loaded at round start.
func (s RoundState) Total() int {
	return s.TotalLive + s.TotalBlank
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker is the shell sequence belief tracker.
type Tracker struct {
	state       RoundState
	probability float64

	history    []FiredRecord
	known      map[int]bool // position -> live
	knownOrder []int        // insertion order of known positions

	listeners []Listener
}

// New returns a tracker with no round loaded.
func New() *Tracker {
	return &Tracker{known: make(map[int]bool)}
}

// StartNewRound loads a fresh round. Negative counts are treated as zero.
// It always applies and returns true.
func (t *Tracker) StartNewRound(live, blank int) bool {
	live = max(live, 0)
	blank = max(blank, 0)

	t.state = RoundState{
		TotalLive:       live,
		TotalBlank:      blank,
		RemainingLive:   live,
		RemainingBlank:  blank,
		CurrentPosition: 1,
	}
	t.history = nil
	t.known = make(map[int]bool)
	t.knownOrder = nil

	logging.Get(logging.CategoryTracker).Debugw("round started", "live", live, "blank", blank)

	t.recompute()
	t.emit(Event{Kind: EventRoundStarted, Live: live, Blank: blank})
	return true
}

// Fire records the identity of the shell at the current position.
// Returns false, changing nothing, when no shells remain.
func (t *Tracker) Fire(live bool) bool {
	if t.state.Remaining() <= 0 {
		return false
	}

	position := t.state.CurrentPosition
	t.history = append(t.history, FiredRecord{Position: position, Live: live})

	if live {
		t.state.RemainingLive = max(t.state.RemainingLive-1, 0)
	} else {
		t.state.RemainingBlank = max(t.state.RemainingBlank-1, 0)
	}
	t.state.CurrentPosition++

	logging.Get(logging.CategoryTracker).Debugw("shell fired", "position", position, "live", live)

	t.recompute()
	t.emit(Event{Kind: EventFired, Position: position, IsLive: live})
	return true
}

// Reveal records that the shell at position is live or blank.
// An existing record is overwritten. A new record is refused when the position
// has already been fired.
func (t *Tracker) Reveal(position int, live bool) bool {
	if _, ok := t.known[position]; ok {
		t.known[position] = live
		t.recompute()
		return true
	}
	if t.IsFired(position) {
		return false
	}

	t.known[position] = live
	t.knownOrder = append(t.knownOrder, position)
	t.recompute()
	return true
}

// Forget drops the known record at position. Returns false when none exists.
func (t *Tracker) Forget(position int) bool {
	if _, ok := t.known[position]; !ok {
		return false
	}
	delete(t.known, position)
	for i, p := range t.knownOrder {
		if p == position {
			t.knownOrder = append(t.knownOrder[:i], t.knownOrder[i+1:]...)
			break
		}
	}
	t.recompute()
	return true
}

// Reset returns the tracker to its never-started state. No events are emitted.
func (t *Tracker) Reset() {
	t.state = RoundState{}
	t.probability = 0
	t.history = nil
	t.known = make(map[int]bool)
	t.knownOrder = nil
}

// =============================================================================
// READ ACCESSORS
// =============================================================================

// LiveProbability is the probability that the shell at the current position is live.
func (t *Tracker) LiveProbability() float64 { return t.probability }

// RemainingLive returns the unfired live count.
func (t *Tracker) RemainingLive() int { return t.state.RemainingLive }

// RemainingBlank returns the unfired blank count.
func (t *Tracker) RemainingBlank() int { return t.state.RemainingBlank }

// Remaining returns the unfired shell count.
func (t *Tracker) Remaining() int { return t.state.Remaining() }

// CurrentPosition returns the 1-based position of the next shell, or 0 before any round.
func (t *Tracker) CurrentPosition() int { return t.state.CurrentPosition }

// State returns a copy of the round counters.
func (t *Tracker) State() RoundState { return t.state }

// History returns the fired shells in firing order.
func (t *Tracker) History() []FiredRecord {
	out := make([]FiredRecord, len(t.history))
	copy(out, t.history)
	return out
}

// Known returns every known record in insertion order, stale ones included.
func (t *Tracker) Known() []KnownRecord {
	out := make([]KnownRecord, 0, len(t.knownOrder))
	for _, p := range t.knownOrder {
		out = append(out, KnownRecord{Position: p, Live: t.known[p], Fired: t.IsFired(p)})
	}
	return out
}

// Pending returns the known records whose position has not been fired.
func (t *Tracker) Pending() []KnownRecord {
	var out []KnownRecord
	for _, k := range t.Known() {
		if !k.Fired {
			out = append(out, k)
		}
	}
	return out
}

// KnownAt reports the revealed identity at position, ignoring stale records.
func (t *Tracker) KnownAt(position int) (live, ok bool) {
	live, ok = t.known[position]
	if !ok || t.IsFired(position) {
		return false, false
	}
	return live, true
}

// IsFired reports whether position appears in the fired history.
func (t *Tracker) IsFired(position int) bool {
	for _, f := range t.history {
		if f.Position == position {
			return true
		}
	}
	return false
}

// =============================================================================
// PROBABILITY
// =============================================================================

func (t *Tracker) recompute() {
	t.probability = t.liveProbability()
	t.emit(Event{Kind: EventProbabilityChanged, Probability: t.probability})
}

func (t *Tracker) liveProbability() float64 {
	if t.state.Remaining() <= 0 {
		return 0
	}

	current := t.state.CurrentPosition
	if live, ok := t.KnownAt(current); ok {
		if live {
			return 1
		}
		return 0
	}

	// Shells known further down the chamber leave the undifferentiated pool.
	adjustedLive := t.state.RemainingLive
	adjustedBlank := t.state.RemainingBlank
	for _, k := range t.Pending() {
		if k.Position <= current {
			continue
		}
		if k.Live {
			adjustedLive = max(adjustedLive-1, 0)
		} else {
			adjustedBlank = max(adjustedBlank-1, 0)
		}
	}

	adjusted := adjustedLive + adjustedBlank
	if adjusted <= 0 {
		if t.state.RemainingLive > 0 {
			return 1
		}
		return 0
	}
	return float64(adjustedLive) / float64(adjusted)
}
