package session

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"shellsense/internal/advice"
	"shellsense/internal/config"
	"shellsense/internal/items"
	"shellsense/internal/llm"
	"shellsense/internal/store"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRound_ClearsItemsAndSaw(t *testing.T) {
	s := New()
	s.NewRound(2, 2)
	s.AddItem(items.Player, items.Beer)
	s.AddItem(items.Dealer, items.Handsaw)
	s.SetHandsaw(true)

	s.NewRound(3, 1)
	assert.Empty(t, s.Ledger().Items(items.Player))
	assert.Empty(t, s.Ledger().Items(items.Dealer))
	assert.False(t, s.HandsawActive())
	assert.Equal(t, 4, s.Tracker().Remaining())
}

func TestFire_ClearsHandsawButEjectDoesNot(t *testing.T) {
	s := New()
	s.NewRound(2, 2)
	s.AddItem(items.Player, items.Handsaw)
	require.True(t, s.UseItem(items.Player, items.Handsaw))
	assert.True(t, s.HandsawActive())

	require.True(t, s.Eject(false))
	assert.True(t, s.HandsawActive(), "racking a shell keeps the saw armed")

	require.True(t, s.Fire(true))
	assert.False(t, s.HandsawActive())
	assert.Equal(t, 3, s.Tracker().CurrentPosition())
}

func TestUseItem_Cigarettes(t *testing.T) {
	s := New()
	s.SetHealth(items.Player, 1, 3)
	s.AddItem(items.Player, items.Cigarettes)
	s.AddItem(items.Player, items.Cigarettes)
	s.AddItem(items.Player, items.Cigarettes)

	s.UseItem(items.Player, items.Cigarettes)
	s.UseItem(items.Player, items.Cigarettes)
	s.UseItem(items.Player, items.Cigarettes)
	assert.Equal(t, 3, s.Health().Player, "healing stops at max")

	assert.False(t, s.UseItem(items.Player, items.Cigarettes))
}

func TestSetHealth_Clamps(t *testing.T) {
	s := New()
	h := s.SetHealth(items.Dealer, 7, 4)
	assert.Equal(t, Health{Player: 3, PlayerMax: 3, Dealer: 4, DealerMax: 4}, h)

	h = s.SetHealth(items.Dealer, -2, 0)
	assert.Equal(t, 0, h.Dealer)
	assert.Equal(t, 4, h.DealerMax, "max kept when not given")

	h = s.SetHealth(items.Player, 20, 50)
	assert.Equal(t, config.MaxHealthLimit, h.PlayerMax)
	assert.Equal(t, config.MaxHealthLimit, h.Player)
}

func TestWithGame(t *testing.T) {
	s := New(WithGame(config.GameConfig{PlayerHealth: 2, PlayerMaxHealth: 4, DealerHealth: 1, DealerMaxHealth: 5}))
	assert.Equal(t, Health{Player: 2, PlayerMax: 4, Dealer: 1, DealerMax: 5}, s.Health())
}

func TestSnapshot(t *testing.T) {
	s := New()
	s.NewRound(2, 2)
	s.Reveal(1, true)
	s.Reveal(3, false)
	s.AddItem(items.Player, items.Beer)

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.RemainingLive)
	assert.Equal(t, 1, snap.CurrentPosition)
	assert.True(t, snap.CurrentKnown)
	assert.True(t, snap.CurrentLive)
	assert.Equal(t, 1.0, snap.LiveProbability)
	assert.Len(t, snap.Known, 2)
	assert.Len(t, snap.PlayerItems, 1)

	s.Fire(true)
	snap = s.Snapshot()
	assert.False(t, snap.CurrentKnown)
	assert.Len(t, snap.Known, 1, "fired position is no longer pending")
}

func TestPick(t *testing.T) {
	s := New(WithRand(rand.New(rand.NewSource(1))))
	_, ok := s.Pick()
	assert.False(t, ok, "nothing loaded")

	s.NewRound(3, 0)
	for i := 0; i < 20; i++ {
		live, ok := s.Pick()
		require.True(t, ok)
		assert.True(t, live)
	}

	s.NewRound(0, 3)
	for i := 0; i < 20; i++ {
		live, _ := s.Pick()
		assert.False(t, live)
	}
}

func TestChamber(t *testing.T) {
	s := New()
	s.NewRound(2, 2)
	s.Fire(false)
	s.Reveal(3, true)
	s.Reveal(6, false)

	got := s.Chamber()
	want := []Slot{
		{Position: 1, Fired: true, Known: true, Live: false},
		{Position: 2, Current: true},
		{Position: 3, Known: true, Live: true},
		{Position: 4},
		{Position: 6, Known: true, Live: false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Chamber() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "fired blank", got[0].Status())
	assert.Equal(t, "?", got[1].Status())
	assert.Equal(t, "live", got[2].Status())
}

func TestChamber_FarRevealStaysBounded(t *testing.T) {
	s := New()
	s.NewRound(1, 1)
	require.True(t, s.Reveal(50_000_000, true))
	require.True(t, s.Reveal(9, false))

	got := s.Chamber()
	require.Len(t, got, 4)
	assert.Equal(t, []int{1, 2, 9, 50_000_000}, []int{got[0].Position, got[1].Position, got[2].Position, got[3].Position})
	assert.True(t, got[3].Known)
	assert.True(t, got[3].Live)
	assert.False(t, got[3].Current)
}

func TestExecute_RejectsOversizedInput(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Execute(ctx, "new 2 2")
	require.NoError(t, err)

	for _, line := range []string{
		"reveal 2000000000 live",
		"reveal 65 live",
		"new 40 25",
		"new 1000 -990",
	} {
		_, err := s.Execute(ctx, line)
		assert.ErrorIs(t, err, ErrUsage, line)
	}
	assert.Len(t, s.Chamber(), 4)
	assert.Empty(t, s.Tracker().Known())

	res, err := s.Execute(ctx, "new 32 32")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Len(t, s.Chamber(), 64)
}

func TestChamber_EmptyRoundHasNoCurrent(t *testing.T) {
	s := New()
	s.NewRound(1, 0)
	s.Fire(true)
	for _, slot := range s.Chamber() {
		assert.False(t, slot.Current)
	}
}

func TestJournalIntegration(t *testing.T) {
	ctx := context.Background()
	j, err := store.Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	s := New(WithJournal(j))
	s.Fire(true) // no round yet, nothing journaled
	s.NewRound(1, 1)
	s.Reveal(2, false)
	s.Fire(true)
	s.Forget(2)
	s.LocalAdvice()

	rounds, err := j.RecentRounds(ctx, 5)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, s.ID(), rounds[0].SessionID)
	assert.Equal(t, 1, rounds[0].Shots)
	assert.Equal(t, 1, rounds[0].Advice)

	events, err := j.Events(ctx, rounds[0].ID)
	require.NoError(t, err)
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []string{store.KindReveal, store.KindFire, store.KindForget}, kinds)
	assert.InDelta(t, 1.0, events[1].Probability, 1e-9, "blank at #2 is known, so #1 must be live")
}

type failingJournal struct{}

func (failingJournal) StartRound(context.Context, string, int, int) (int64, error) { return 7, nil }
func (failingJournal) RecordEvent(context.Context, store.Event) error {
	return errors.New("disk full")
}
func (failingJournal) RecordAdvice(context.Context, store.Advice) error {
	return errors.New("disk full")
}

func TestJournalErrorsAreNotFatal(t *testing.T) {
	s := New(WithJournal(failingJournal{}))
	s.NewRound(1, 1)
	assert.True(t, s.Fire(false))
	assert.NotEmpty(t, s.LocalAdvice())
}

type stubClient struct{ reply string }

func (c stubClient) CompleteWithSystem(context.Context, string, string) (string, error) {
	return c.reply, nil
}

func TestRemoteAdvice(t *testing.T) {
	s := New()
	_, err := s.RemoteAdvice(context.Background())
	assert.ErrorIs(t, err, ErrNoAdvisor)

	a := advice.NewAdvisorWithFactory(func(config.LLMConfig) (llm.Client, error) {
		return stubClient{reply: "shoot"}, nil
	})
	s = New(WithAdvisor(a, config.DefaultConfig().LLM))
	s.NewRound(1, 1)
	text, err := s.RemoteAdvice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "shoot", text)
}

type adviceJournal struct {
	failingJournal
	advice []store.Advice
}

func (j *adviceJournal) RecordAdvice(_ context.Context, a store.Advice) error {
	j.advice = append(j.advice, a)
	return nil
}

type namedClient struct{ stubClient }

func (namedClient) Provider() string { return "gemini" }
func (namedClient) Model() string    { return "gemini-2.0-flash" }

func TestRemoteAdvice_JournalsReportedModel(t *testing.T) {
	j := &adviceJournal{}
	a := advice.NewAdvisorWithFactory(func(config.LLMConfig) (llm.Client, error) {
		return namedClient{stubClient{reply: "shoot"}}, nil
	})
	settings := config.DefaultConfig().LLM
	settings.APIKey = "k"
	s := New(WithJournal(j), WithAdvisor(a, settings))
	s.NewRound(1, 1)

	_, err := s.RemoteAdvice(context.Background())
	require.NoError(t, err)
	require.Len(t, j.advice, 1)
	assert.Equal(t, store.SourceRemote, j.advice[0].Source)
	assert.Equal(t, "gemini", j.advice[0].Provider)
	assert.Equal(t, "gemini-2.0-flash", j.advice[0].Model)
}
