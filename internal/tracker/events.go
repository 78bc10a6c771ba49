package tracker

// EventKind identifies a tracker notification.
type EventKind int

const (
	EventRoundStarted EventKind = iota
	EventFired
	EventProbabilityChanged
)

func (k EventKind) String() string {
	switch k {
	case EventRoundStarted:
		return "round_started"
	case EventFired:
		return "fired"
	case EventProbabilityChanged:
		return "probability_changed"
	default:
		return "unknown"
	}
}

// Event carries the payload of a notification. Only the fields relevant to Kind are set:
// Live/Blank for round start, Position/IsLive for a fire, Probability for a change.
type Event struct {
	Kind        EventKind
	Live        int
	Blank       int
	Position    int
	IsLive      bool
	Probability float64
}

// Listener receives tracker events synchronously, inside the mutating call.
// A listener must not call back into the tracker's mutating methods.
type Listener func(Event)

// Subscribe registers l. Listeners run in subscription order.
func (t *Tracker) Subscribe(l Listener) {
	if l == nil {
		return
	}
	t.listeners = append(t.listeners, l)
}

func (t *Tracker) emit(e Event) {
	for _, l := range t.listeners {
		l(e)
	}
}
