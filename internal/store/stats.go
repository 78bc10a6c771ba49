package store

import (
	"context"
	"fmt"
)

// Stats aggregates the whole journal.
type Stats struct {
	Rounds       int
	Shots        int
	LiveShots    int
	Reveals      int
	LocalAdvice  int
	RemoteAdvice int

	// MeanPredicted is the average live probability held before each shot.
	MeanPredicted float64
	// ObservedLive is the fraction of shots that were live.
	ObservedLive float64
	// Brier is the mean squared error of the pre-shot probability. Lower is better.
	Brier float64
}

// Stats computes journal-wide statistics.
func (j *Journal) Stats(ctx context.Context) (Stats, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var s Stats
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rounds").Scan(&s.Rounds); err != nil {
		return s, fmt.Errorf("failed to count rounds: %w", err)
	}

	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(live), 0),
		        COALESCE(AVG(probability), 0),
		        COALESCE(AVG(live), 0),
		        COALESCE(AVG((probability - live) * (probability - live)), 0)
		 FROM events WHERE kind = ?`, KindFire,
	).Scan(&s.Shots, &s.LiveShots, &s.MeanPredicted, &s.ObservedLive, &s.Brier)
	if err != nil {
		return s, fmt.Errorf("failed to aggregate shots: %w", err)
	}

	if err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE kind = ?", KindReveal).Scan(&s.Reveals); err != nil {
		return s, fmt.Errorf("failed to count reveals: %w", err)
	}

	err = j.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN source = 'local' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN source != 'local' THEN 1 ELSE 0 END), 0)
		 FROM advice`,
	).Scan(&s.LocalAdvice, &s.RemoteAdvice)
	if err != nil {
		return s, fmt.Errorf("failed to count advice: %w", err)
	}
	return s, nil
}
