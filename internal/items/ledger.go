// Package items keeps the per-side bookkeeping of acquired items.
//
// The ledger has no probabilistic logic. It is read by the advice layer to describe
// which items each side still holds.
package items

import "shellsense/internal/logging"

// Item is one acquired item.
type Item struct {
	Kind Kind `json:"kind"`
	Used bool `json:"used"`
}

// Name returns the display name of the item's kind.
func (i Item) Name() string { return NameOf(i.Kind) }

// Description returns the effect description of the item's kind.
func (i Item) Description() string { return DescriptionOf(i.Kind) }

// EventKind identifies a ledger notification.
type EventKind int

const (
	EventItemAdded EventKind = iota
	EventItemUsed
)

// Event is emitted synchronously from Add and Use.
type Event struct {
	Kind EventKind
	Side Side
	Item Kind
}

// Listener receives ledger events. It must not mutate the ledger.
type Listener func(Event)

// Ledger holds the ordered item sequences of both sides.
type Ledger struct {
	player    []Item
	dealer    []Item
	listeners []Listener
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Subscribe registers l for item events.
func (l *Ledger) Subscribe(fn Listener) {
	if fn != nil {
		l.listeners = append(l.listeners, fn)
	}
}

func (l *Ledger) emit(e Event) {
	for _, fn := range l.listeners {
		fn(e)
	}
}

func (l *Ledger) seq(side Side) *[]Item {
	if side == Dealer {
		return &l.dealer
	}
	return &l.player
}

// Add appends an unused item of kind to side.
func (l *Ledger) Add(side Side, kind Kind) bool {
	s := l.seq(side)
	*s = append(*s, Item{Kind: kind})
	logging.Get(logging.CategoryItems).Debugw("item added", "side", side.String(), "item", NameOf(kind))
	l.emit(Event{Kind: EventItemAdded, Side: side, Item: kind})
	return true
}

// Use marks the first unused item of kind on side as used.
// Returns false when side holds no unused item of that kind.
func (l *Ledger) Use(side Side, kind Kind) bool {
	s := *l.seq(side)
	for i := range s {
		if s[i].Kind == kind && !s[i].Used {
			s[i].Used = true
			logging.Get(logging.CategoryItems).Debugw("item used", "side", side.String(), "item", NameOf(kind))
			l.emit(Event{Kind: EventItemUsed, Side: side, Item: kind})
			return true
		}
	}
	return false
}

// Remove deletes the item at index. Out-of-range indexes are ignored.
func (l *Ledger) Remove(side Side, index int) bool {
	s := l.seq(side)
	if index < 0 || index >= len(*s) {
		return false
	}
	*s = append((*s)[:index], (*s)[index+1:]...)
	return true
}

// ClearAll empties both sides.
func (l *Ledger) ClearAll() {
	l.player = nil
	l.dealer = nil
}

// Items returns a copy of side's sequence in acquisition order.
func (l *Ledger) Items(side Side) []Item {
	s := *l.seq(side)
	out := make([]Item, len(s))
	copy(out, s)
	return out
}

// Unused returns side's items that have not been used yet.
func (l *Ledger) Unused(side Side) []Item {
	var out []Item
	for _, it := range *l.seq(side) {
		if !it.Used {
			out = append(out, it)
		}
	}
	return out
}

// Holds reports whether side has an unused item of kind.
func (l *Ledger) Holds(side Side, kind Kind) bool {
	for _, it := range *l.seq(side) {
		if it.Kind == kind && !it.Used {
			return true
		}
	}
	return false
}
