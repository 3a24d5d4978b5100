// Package service implements the actor query service: validation, views and
// change events on top of an actor.Store.
package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ShalomGure/actors-api/internal/actor"
	"github.com/ShalomGure/actors-api/internal/metrics"
)

// Options wires optional collaborators. A nil Publisher disables change events.
type Options struct {
	Publisher actor.Publisher
	Topic     string
	IDs       actor.IDGenerator
	Clock     actor.Clock
	Logger    *zap.Logger
}

// Service validates requests and shapes store results into views.
type Service struct {
	store     actor.Store
	publisher actor.Publisher
	topic     string
	ids       actor.IDGenerator
	clock     actor.Clock
	logger    *zap.Logger
}

// New constructs a Service over store.
func New(store actor.Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		publisher: opts.Publisher,
		topic:     opts.Topic,
		ids:       opts.IDs,
		clock:     opts.Clock,
		logger:    logger,
	}
}

// Get returns the detail view of one actor.
func (s *Service) Get(ctx context.Context, id int) (Detail, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return toDetail(a), nil
}

// List returns one page of summaries. Page bounds are validated by the caller.
func (s *Service) List(ctx context.Context, filter actor.Filter, page actor.PageRequest) (PagedResult, error) {
	actors, total, err := s.store.List(ctx, filter, page)
	if err != nil {
		return PagedResult{}, err
	}
	data := make([]Summary, 0, len(actors))
	for _, a := range actors {
		data = append(data, toSummary(a))
	}
	return PagedResult{
		Data:       data,
		TotalCount: total,
		PageNumber: page.Number,
		PageSize:   page.Size,
	}, nil
}

// Create validates and stores a new actor.
func (s *Service) Create(ctx context.Context, in CreateInput) (Detail, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Detail{}, actor.Validationf("Actor name is required.")
	}
	taken, err := s.store.ExistsByRank(ctx, in.Rank, nil)
	if err != nil {
		return Detail{}, err
	}
	if taken {
		return Detail{}, actor.RankTaken(in.Rank)
	}

	created, err := s.store.Add(ctx, actor.Actor{
		Name:      in.Name,
		Rank:      in.Rank,
		Bio:       in.Bio,
		BirthDate: in.BirthDate.timePtr(),
		ImageURL:  in.ImageURL,
		KnownFor:  in.KnownFor,
		Source:    in.Source,
	})
	if err != nil {
		return Detail{}, err
	}
	s.publish(ctx, actor.ChangeCreated, created)
	return toDetail(created), nil
}

// Update replaces the mutable fields of an existing actor.
func (s *Service) Update(ctx context.Context, id int, in UpdateInput) (Detail, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return Detail{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return Detail{}, actor.Validationf("Actor name is required.")
	}
	taken, err := s.store.ExistsByRank(ctx, in.Rank, &id)
	if err != nil {
		return Detail{}, err
	}
	if taken {
		return Detail{}, actor.RankTaken(in.Rank)
	}

	updated, err := s.store.Update(ctx, id, actor.Actor{
		Name:      in.Name,
		Rank:      in.Rank,
		Bio:       in.Bio,
		BirthDate: in.BirthDate.timePtr(),
		ImageURL:  in.ImageURL,
		KnownFor:  in.KnownFor,
	})
	if err != nil {
		return Detail{}, err
	}
	s.publish(ctx, actor.ChangeUpdated, updated)
	return toDetail(updated), nil
}

// Delete removes an actor.
func (s *Service) Delete(ctx context.Context, id int) error {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, actor.ChangeDeleted, existing)
	return nil
}

// Ready reports whether the backing store answers.
func (s *Service) Ready(ctx context.Context) error {
	_, err := s.store.Count(ctx)
	return err
}

// publish never fails the mutation that triggered it.
func (s *Service) publish(ctx context.Context, kind actor.ChangeType, a actor.Actor) {
	metrics.ObserveChange(string(kind))
	if s.publisher == nil {
		return
	}

	ev := actor.ChangeEvent{
		Type:       kind,
		ActorID:    a.ID,
		Rank:       a.Rank,
		Name:       a.Name,
		OccurredAt: s.now(),
	}
	if s.ids != nil {
		id, err := s.ids.NewID()
		if err != nil {
			s.logger.Warn("failed to generate change event id", zap.Error(err))
		}
		ev.ID = id
	}

	msgID, err := s.publisher.Publish(ctx, s.topic, ev)
	if err != nil {
		metrics.ObservePublishFailure()
		s.logger.Warn("failed to publish change event",
			zap.String("type", string(kind)),
			zap.Int("actor_id", a.ID),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("published change event", zap.String("type", string(kind)), zap.String("message_id", msgID))
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}
