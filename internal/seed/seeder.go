// Package seed populates an empty actor store from a provider once at startup.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ShalomGure/actors-api/internal/actor"
	"github.com/ShalomGure/actors-api/internal/metrics"
)

// Result summarizes one Seed call.
type Result struct {
	Skipped    bool
	Extracted  int
	Duplicates int
	Inserted   int
}

// Seeder loads provider records into an empty store.
type Seeder struct {
	store  actor.Store
	source actor.Source
	logger *zap.Logger
}

// New constructs a Seeder.
func New(store actor.Store, source actor.Source, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{store: store, source: source, logger: logger}
}

// Seed is a no-op when the store already holds records. Otherwise it scrapes
// the source once and inserts every record in a single batch. A scrape error
// is returned unchanged so the caller can treat it as fatal.
func (s *Seeder) Seed(ctx context.Context) (Result, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count existing actors: %w", err)
	}
	if n > 0 {
		s.logger.Info("store already populated, skipping seed", zap.Int("count", n))
		return Result{Skipped: true}, nil
	}

	s.logger.Info("seeding actors", zap.String("source", s.source.Name()))
	scraped, err := s.source.Scrape(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{Extracted: len(scraped)}
	if len(scraped) == 0 {
		s.logger.Warn("source returned no actors, store left empty", zap.String("source", s.source.Name()))
		return res, nil
	}

	unique := s.dedupeByRank(scraped)
	res.Duplicates = len(scraped) - len(unique)

	inserted, err := s.store.AddBatch(ctx, unique)
	if err != nil {
		return res, fmt.Errorf("insert seeded actors: %w", err)
	}
	res.Inserted = len(inserted)
	metrics.ObserveSeeded(s.source.Name(), res.Inserted)
	s.logger.Info("seeded actors",
		zap.String("source", s.source.Name()),
		zap.Int("inserted", res.Inserted),
		zap.Int("duplicates", res.Duplicates),
	)
	return res, nil
}

// dedupeByRank keeps the first record for each rank.
func (s *Seeder) dedupeByRank(actors []actor.Actor) []actor.Actor {
	seen := make(map[int]struct{}, len(actors))
	out := make([]actor.Actor, 0, len(actors))
	for _, a := range actors {
		if _, dup := seen[a.Rank]; dup {
			s.logger.Warn("dropping actor with duplicate rank",
				zap.Int("rank", a.Rank),
				zap.String("name", a.Name),
			)
			continue
		}
		seen[a.Rank] = struct{}{}
		out = append(out, a)
	}
	return out
}
