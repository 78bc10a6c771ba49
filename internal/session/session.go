// Package session ties the tracker, the item ledger and player health into one
// playable session and journals what happens in it.
package session

import (
	"context"
	"math/rand"
	"time"

	"shellsense/internal/advice"
	"shellsense/internal/config"
	"shellsense/internal/items"
	"shellsense/internal/logging"
	"shellsense/internal/store"
	"shellsense/internal/tracker"

	"github.com/google/uuid"
)

// Journal receives the session's history. *store.Journal implements it.
type Journal interface {
	StartRound(ctx context.Context, sessionID string, live, blank int) (int64, error)
	RecordEvent(ctx context.Context, e store.Event) error
	RecordAdvice(ctx context.Context, a store.Advice) error
}

// Health holds both sides' current and maximum health.
type Health struct {
	Player    int
	PlayerMax int
	Dealer    int
	DealerMax int
}

const journalTimeout = 2 * time.Second

// Session is one sitting at the table. It is not safe for concurrent use.
type Session struct {
	id      string
	tracker *tracker.Tracker
	ledger  *items.Ledger
	health  Health
	handsaw bool

	journal Journal
	roundID int64

	advisor  *advice.Advisor
	settings config.LLMConfig
	rng      *rand.Rand
}

// Option configures a Session.
type Option func(*Session)

// WithJournal journals rounds, events and advice to j.
func WithJournal(j Journal) Option {
	return func(s *Session) { s.journal = j }
}

// WithAdvisor enables remote advice with the given settings.
func WithAdvisor(a *advice.Advisor, settings config.LLMConfig) Option {
	return func(s *Session) {
		s.advisor = a
		s.settings = settings
	}
}

// WithGame sets the starting health from config.
func WithGame(g config.GameConfig) Option {
	return func(s *Session) {
		s.health = Health{
			Player:    g.PlayerHealth,
			PlayerMax: g.PlayerMaxHealth,
			Dealer:    g.DealerHealth,
			DealerMax: g.DealerMaxHealth,
		}
	}
}

// WithRand sets the random source used by Pick.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// New creates a session with a fresh id.
func New(opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		tracker: tracker.New(),
		ledger:  items.NewLedger(),
		health:  Health{Player: 3, PlayerMax: 3, Dealer: 3, DealerMax: 3},
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ID returns the session id used in the journal.
func (s *Session) ID() string { return s.id }

// Tracker exposes the underlying tracker for read access and subscriptions.
func (s *Session) Tracker() *tracker.Tracker { return s.tracker }

// Ledger exposes the underlying item ledger.
func (s *Session) Ledger() *items.Ledger { return s.ledger }

// Health returns both sides' health.
func (s *Session) Health() Health { return s.health }

// HandsawActive reports whether the next live shell deals double damage.
func (s *Session) HandsawActive() bool { return s.handsaw }

// SetAdviceSettings replaces the remote advice settings, e.g. after a config reload.
func (s *Session) SetAdviceSettings(settings config.LLMConfig) { s.settings = settings }

// NewRound loads a new round and clears both sides' items.
func (s *Session) NewRound(live, blank int) bool {
	s.tracker.StartNewRound(live, blank)
	s.ledger.ClearAll()
	s.handsaw = false

	st := s.tracker.State()
	logging.Get(logging.CategorySession).Infow("new round", "session", s.id, "live", st.TotalLive, "blank", st.TotalBlank)

	s.roundID = 0
	if s.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		id, err := s.journal.StartRound(ctx, s.id, st.TotalLive, st.TotalBlank)
		if err != nil {
			logging.Get(logging.CategorySession).Warnw("journal: start round failed", "error", err)
		} else {
			s.roundID = id
		}
	}
	return true
}

// Fire records a shot with the identity it turned out to have.
func (s *Session) Fire(live bool) bool {
	return s.discharge(store.KindFire, live)
}

// Eject records a shell racked out by Beer. To the tracker it is the same as a
// shot, but it deals no damage and leaves the handsaw armed.
func (s *Session) Eject(live bool) bool {
	return s.discharge(store.KindEject, live)
}

func (s *Session) discharge(kind string, live bool) bool {
	pos := s.tracker.CurrentPosition()
	p := s.tracker.LiveProbability()
	if !s.tracker.Fire(live) {
		return false
	}
	if kind == store.KindFire {
		s.handsaw = false
	}
	s.record(store.Event{Kind: kind, Position: pos, Live: live, Probability: p})
	return true
}

// Reveal records knowledge of the shell at position.
func (s *Session) Reveal(position int, live bool) bool {
	p := s.tracker.LiveProbability()
	if !s.tracker.Reveal(position, live) {
		return false
	}
	s.record(store.Event{Kind: store.KindReveal, Position: position, Live: live, Probability: p})
	return true
}

// Forget drops knowledge of the shell at position.
func (s *Session) Forget(position int) bool {
	if !s.tracker.Forget(position) {
		return false
	}
	s.record(store.Event{Kind: store.KindForget, Position: position})
	return true
}

// Reset clears the round and all items.
func (s *Session) Reset() {
	s.tracker.Reset()
	s.ledger.ClearAll()
	s.handsaw = false
	s.roundID = 0
}

// AddItem gives side an item.
func (s *Session) AddItem(side items.Side, kind items.Kind) bool {
	s.ledger.Add(side, kind)
	s.record(store.Event{Kind: store.KindItem, Detail: "add " + side.String() + " " + kind.String()})
	return true
}

// UseItem marks side's first unused item of kind as used and applies the
// effects the session can model: Handsaw arms double damage, Cigarettes heal 1.
// Items whose outcome is observed in game (Magnifying Glass, Beer, Burner Phone)
// are followed by reveal or eject.
func (s *Session) UseItem(side items.Side, kind items.Kind) bool {
	if !s.ledger.Use(side, kind) {
		return false
	}
	switch kind {
	case items.Handsaw:
		s.handsaw = true
	case items.Cigarettes:
		if side == items.Player {
			s.health.Player = min(s.health.Player+1, s.health.PlayerMax)
		} else {
			s.health.Dealer = min(s.health.Dealer+1, s.health.DealerMax)
		}
	}
	s.record(store.Event{Kind: store.KindItem, Detail: "use " + side.String() + " " + kind.String()})
	return true
}

// RemoveItem deletes side's item at index.
func (s *Session) RemoveItem(side items.Side, index int) bool {
	return s.ledger.Remove(side, index)
}

// SetHealth sets side's health. maxHP <= 0 keeps the current maximum.
// Values are clamped to 1..10 for the maximum and 0..max for the current value.
func (s *Session) SetHealth(side items.Side, hp, maxHP int) Health {
	cur, curMax := &s.health.Player, &s.health.PlayerMax
	if side == items.Dealer {
		cur, curMax = &s.health.Dealer, &s.health.DealerMax
	}
	if maxHP > 0 {
		*curMax = min(maxHP, config.MaxHealthLimit)
	}
	*cur = max(0, min(hp, *curMax))
	s.record(store.Event{Kind: store.KindHealth, Position: *cur, Detail: side.String()})
	return s.health
}

// SetHandsaw arms or disarms double damage directly.
func (s *Session) SetHandsaw(on bool) { s.handsaw = on }

// Snapshot returns the state advice is composed from.
func (s *Session) Snapshot() advice.GameState {
	st := s.tracker.State()
	curLive, curKnown := s.tracker.KnownAt(st.CurrentPosition)
	return advice.GameState{
		RemainingLive:   st.RemainingLive,
		RemainingBlank:  st.RemainingBlank,
		CurrentPosition: st.CurrentPosition,
		LiveProbability: s.tracker.LiveProbability(),
		CurrentKnown:    curKnown,
		CurrentLive:     curLive,
		Known:           s.tracker.Pending(),
		PlayerItems:     s.ledger.Items(items.Player),
		DealerItems:     s.ledger.Items(items.Dealer),
		PlayerHealth:    s.health.Player,
		PlayerMaxHealth: s.health.PlayerMax,
		DealerHealth:    s.health.Dealer,
		DealerMaxHealth: s.health.DealerMax,
		PlayerTurn:      true,
		HandsawActive:   s.handsaw,
	}
}

// Pick draws a shell identity weighted by the current live probability.
// ok is false when nothing remains.
func (s *Session) Pick() (live, ok bool) {
	if s.tracker.Remaining() <= 0 {
		return false, false
	}
	return s.rng.Float64() < s.tracker.LiveProbability(), true
}

// LocalAdvice composes advice and journals it.
func (s *Session) LocalAdvice() string {
	text := advice.Compose(s.Snapshot())
	s.recordAdvice(store.Advice{Source: store.SourceLocal, Text: text})
	return text
}

// RemoteAdvice asks the configured model and journals the answer.
func (s *Session) RemoteAdvice(ctx context.Context) (string, error) {
	if s.advisor == nil {
		return "", ErrNoAdvisor
	}
	reply, err := s.advisor.RemoteReply(ctx, s.Snapshot(), s.settings)
	if err != nil {
		return "", err
	}
	s.recordAdvice(store.Advice{
		Source:   store.SourceRemote,
		Provider: reply.Provider,
		Model:    reply.Model,
		Text:     reply.Text,
	})
	return reply.Text, nil
}

// record journals e against the current round. Failures are logged only.
func (s *Session) record(e store.Event) {
	if s.journal == nil || s.roundID == 0 {
		return
	}
	e.RoundID = s.roundID
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := s.journal.RecordEvent(ctx, e); err != nil {
		logging.Get(logging.CategorySession).Warnw("journal: record event failed", "kind", e.Kind, "error", err)
	}
}

func (s *Session) recordAdvice(a store.Advice) {
	if s.journal == nil || s.roundID == 0 {
		return
	}
	a.RoundID = s.roundID
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := s.journal.RecordAdvice(ctx, a); err != nil {
		logging.Get(logging.CategorySession).Warnw("journal: record advice failed", "error", err)
	}
}
