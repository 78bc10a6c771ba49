package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RoundLifecycle(t *testing.T) {
	ctx := context.Background()
	j := newJournal(t)

	id, err := j.StartRound(ctx, "sess-1", 2, 2)
	require.NoError(t, err)
	assert.Positive(t, id)

	require.NoError(t, j.RecordEvent(ctx, Event{RoundID: id, Kind: KindFire, Position: 1, Live: true, Probability: 0.5}))
	require.NoError(t, j.RecordEvent(ctx, Event{RoundID: id, Kind: KindReveal, Position: 3, Live: false}))
	require.NoError(t, j.RecordEvent(ctx, Event{RoundID: id, Kind: KindFire, Position: 2, Live: false, Probability: 0.5}))
	require.NoError(t, j.RecordAdvice(ctx, Advice{RoundID: id, Source: SourceLocal, Text: "shoot"}))

	events, err := j.Events(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, KindFire, events[0].Kind)
	assert.True(t, events[0].Live)
	assert.Equal(t, KindReveal, events[1].Kind)
	assert.Equal(t, 3, events[1].Position)
	assert.False(t, events[2].Live)
	assert.False(t, events[0].At.IsZero())

	rounds, err := j.RecentRounds(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	r := rounds[0]
	assert.Equal(t, "sess-1", r.SessionID)
	assert.Equal(t, 2, r.Live)
	assert.Equal(t, 2, r.Blank)
	assert.Equal(t, 2, r.Shots)
	assert.Equal(t, 1, r.LiveShots)
	assert.Equal(t, 1, r.Advice)
}

func TestJournal_RecentRoundsNewestFirst(t *testing.T) {
	ctx := context.Background()
	j := newJournal(t)

	for i := 1; i <= 3; i++ {
		_, err := j.StartRound(ctx, "s", i, 1)
		require.NoError(t, err)
	}
	rounds, err := j.RecentRounds(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, 3, rounds[0].Live)
	assert.Equal(t, 2, rounds[1].Live)
}

func TestJournal_Stats(t *testing.T) {
	ctx := context.Background()
	j := newJournal(t)

	empty, err := j.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, empty)

	id, err := j.StartRound(ctx, "s", 1, 1)
	require.NoError(t, err)
	require.NoError(t, j.RecordEvent(ctx, Event{RoundID: id, Kind: KindFire, Live: true, Probability: 0.5}))
	require.NoError(t, j.RecordEvent(ctx, Event{RoundID: id, Kind: KindFire, Live: false, Probability: 0}))
	require.NoError(t, j.RecordEvent(ctx, Event{RoundID: id, Kind: KindReveal, Position: 2}))
	require.NoError(t, j.RecordAdvice(ctx, Advice{RoundID: id, Source: SourceLocal, Text: "a"}))
	require.NoError(t, j.RecordAdvice(ctx, Advice{RoundID: id, Source: SourceRemote, Provider: "openai", Model: "gpt-4o", Text: "b"}))

	s, err := j.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Rounds)
	assert.Equal(t, 2, s.Shots)
	assert.Equal(t, 1, s.LiveShots)
	assert.Equal(t, 1, s.Reveals)
	assert.Equal(t, 1, s.LocalAdvice)
	assert.Equal(t, 1, s.RemoteAdvice)
	assert.InDelta(t, 0.25, s.MeanPredicted, 1e-9)
	assert.InDelta(t, 0.5, s.ObservedLive, 1e-9)
	// ((0.5-1)^2 + (0-0)^2) / 2
	assert.InDelta(t, 0.125, s.Brier, 1e-9)
}

func TestJournal_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, j.Path())
	_, err = j.StartRound(ctx, "s", 3, 2)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	rounds, err := j.RecentRounds(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, rounds, 1)
}

func TestMigrations_AddMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE advice (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round_id INTEGER NOT NULL,
		source TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	for _, col := range []string{"provider", "model"} {
		ok, err := columnExists(j.db, "advice", col)
		require.NoError(t, err)
		assert.True(t, ok, col)
	}
}
