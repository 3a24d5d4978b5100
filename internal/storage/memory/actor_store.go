// Package memory provides in-memory stores for development and the default
// volatile deployment.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ShalomGure/actors-api/internal/actor"
)

// ActorStore keeps actor records in a map guarded by a single RWMutex.
// Mutations are serialized; reads never observe a partial write.
type ActorStore struct {
	mu     sync.RWMutex
	actors map[int]actor.Actor
	nextID int
}

// NewActorStore constructs an empty ActorStore.
func NewActorStore() *ActorStore {
	return &ActorStore{
		actors: make(map[int]actor.Actor),
		nextID: 1,
	}
}

// Get fetches a record by identifier.
func (s *ActorStore) Get(_ context.Context, id int) (actor.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[id]
	if !ok {
		return actor.Actor{}, actor.ActorNotFound(id)
	}
	return a.Clone(), nil
}

// ListAll returns every record ordered by rank.
func (s *ActorStore) ListAll(_ context.Context) ([]actor.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(actor.Filter{}), nil
}

// List returns one page of the filtered records ordered by ascending rank,
// plus the filtered total before pagination.
func (s *ActorStore) List(_ context.Context, filter actor.Filter, page actor.PageRequest) ([]actor.Actor, int, error) {
	s.mu.RLock()
	matched := s.sortedLocked(filter)
	s.mu.RUnlock()

	total := len(matched)
	start := page.Offset()
	if start < 0 || start >= total || page.Size <= 0 {
		return []actor.Actor{}, total, nil
	}
	end := min(start+page.Size, total)
	return matched[start:end], total, nil
}

// Add assigns a fresh identifier and stores the record.
func (s *ActorStore) Add(_ context.Context, a actor.Actor) (actor.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rankTakenLocked(a.Rank, 0) {
		return actor.Actor{}, actor.RankTaken(a.Rank)
	}
	return s.insertLocked(a), nil
}

// AddBatch inserts all records or none. Identifiers follow slice order.
func (s *ActorStore) AddBatch(_ context.Context, actors []actor.Actor) ([]actor.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int]struct{}, len(actors))
	for _, a := range actors {
		if _, dup := seen[a.Rank]; dup || s.rankTakenLocked(a.Rank, 0) {
			return nil, actor.RankTaken(a.Rank)
		}
		seen[a.Rank] = struct{}{}
	}
	out := make([]actor.Actor, 0, len(actors))
	for _, a := range actors {
		out = append(out, s.insertLocked(a))
	}
	return out, nil
}

// Update replaces the mutable fields of an existing record. Source and the
// identifier are left untouched.
func (s *ActorStore) Update(_ context.Context, id int, a actor.Actor) (actor.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.actors[id]
	if !ok {
		return actor.Actor{}, actor.ActorNotFound(id)
	}
	if s.rankTakenLocked(a.Rank, id) {
		return actor.Actor{}, actor.RankTaken(a.Rank)
	}
	updated := a.Clone()
	updated.ID = id
	updated.Source = existing.Source
	if updated.KnownFor == nil {
		updated.KnownFor = []string{}
	}
	s.actors[id] = updated
	return updated.Clone(), nil
}

// Delete removes a record.
func (s *ActorStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actors[id]; !ok {
		return actor.ActorNotFound(id)
	}
	delete(s.actors, id)
	return nil
}

// ExistsByRank reports whether another record holds rank. A record whose
// identifier equals *excludeID is not counted.
func (s *ActorStore) ExistsByRank(_ context.Context, rank int, excludeID *int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exclude := 0
	if excludeID != nil {
		exclude = *excludeID
	}
	return s.rankTakenLocked(rank, exclude), nil
}

// Count returns the number of stored records.
func (s *ActorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.actors), nil
}

// rankTakenLocked ignores the record with identifier exclude; identifiers
// start at 1 so 0 excludes nothing.
func (s *ActorStore) rankTakenLocked(rank, exclude int) bool {
	for id, a := range s.actors {
		if a.Rank == rank && id != exclude {
			return true
		}
	}
	return false
}

func (s *ActorStore) insertLocked(a actor.Actor) actor.Actor {
	stored := a.Clone()
	stored.ID = s.nextID
	if stored.KnownFor == nil {
		stored.KnownFor = []string{}
	}
	s.nextID++
	s.actors[stored.ID] = stored
	return stored.Clone()
}

func (s *ActorStore) sortedLocked(filter actor.Filter) []actor.Actor {
	out := make([]actor.Actor, 0, len(s.actors))
	for _, a := range s.actors {
		if filter.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank == out[j].Rank {
			return out[i].ID < out[j].ID
		}
		return out[i].Rank < out[j].Rank
	})
	return out
}
