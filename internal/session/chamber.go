package session

import "sort"

// Slot is one chamber position as displayed.
type Slot struct {
	Position int
	Fired    bool
	Current  bool
	Known    bool // identity is known, by firing or by reveal
	Live     bool
}

// Status renders the slot as a short word.
func (s Slot) Status() string {
	switch {
	case s.Fired && s.Live:
		return "fired live"
	case s.Fired:
		return "fired blank"
	case s.Known && s.Live:
		return "live"
	case s.Known:
		return "blank"
	}
	return "?"
}

// Chamber returns positions 1..total in order, followed by any revealed
// positions past the loaded total. Gaps past the total are not filled, so the
// slice stays bounded by total plus the number of reveals.
func (s *Session) Chamber() []Slot {
	st := s.tracker.State()
	total := st.Total()

	fired := make(map[int]bool, len(s.tracker.History()))
	for _, f := range s.tracker.History() {
		fired[f.Position] = f.Live
	}

	slots := make([]Slot, 0, total)
	for p := 1; p <= total; p++ {
		slot := Slot{Position: p, Current: p == st.CurrentPosition && st.Remaining() > 0}
		if live, ok := fired[p]; ok {
			slot.Fired, slot.Known, slot.Live = true, true, live
		} else if live, ok := s.tracker.KnownAt(p); ok {
			slot.Known, slot.Live = true, live
		}
		slots = append(slots, slot)
	}

	var stray []Slot
	for _, k := range s.tracker.Known() {
		if k.Position > total && !k.Fired {
			stray = append(stray, Slot{Position: k.Position, Known: true, Live: k.Live})
		}
	}
	sort.Slice(stray, func(i, j int) bool { return stray[i].Position < stray[j].Position })
	return append(slots, stray...)
}
