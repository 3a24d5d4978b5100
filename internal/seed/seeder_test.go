package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShalomGure/actors-api/internal/actor"
	"github.com/ShalomGure/actors-api/internal/scraper"
	"github.com/ShalomGure/actors-api/internal/storage/memory"
)

type stubSource struct {
	actors []actor.Actor
	err    error
	calls  int
}

func (s *stubSource) Name() string { return "IMDb" }

func (s *stubSource) Scrape(context.Context) ([]actor.Actor, error) {
	s.calls++
	return s.actors, s.err
}

func sample() []actor.Actor {
	return []actor.Actor{
		{Name: "Meryl Streep", Rank: 1, Source: "IMDb"},
		{Name: "Denzel Washington", Rank: 2, Source: "IMDb"},
		{Name: "Tom Hanks", Rank: 3, Source: "IMDb"},
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	t.Parallel()

	store := memory.NewActorStore()
	src := &stubSource{actors: sample()}
	s := New(store, src, nil)

	res, err := s.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)

	res, err = s.Seed(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, src.calls)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSeedPreservesOrder(t *testing.T) {
	t.Parallel()

	store := memory.NewActorStore()
	_, err := New(store, &stubSource{actors: sample()}, nil).Seed(context.Background())
	require.NoError(t, err)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, a := range all {
		assert.Equal(t, i+1, a.ID)
		assert.Equal(t, i+1, a.Rank)
	}
}

func TestSeedZeroRecords(t *testing.T) {
	t.Parallel()

	store := memory.NewActorStore()
	res, err := New(store, &stubSource{}, nil).Seed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
	assert.False(t, res.Skipped)

	n, _ := store.Count(context.Background())
	assert.Zero(t, n)
}

func TestSeedPropagatesUpstreamFailure(t *testing.T) {
	t.Parallel()

	store := memory.NewActorStore()
	src := &stubSource{err: actor.Upstream("fetch IMDb listing page", errors.New("503"))}

	_, err := New(store, src, nil).Seed(context.Background())
	require.ErrorIs(t, err, actor.ErrUpstreamFetch)

	n, _ := store.Count(context.Background())
	assert.Zero(t, n)
}

func TestSeedDropsDuplicateRanks(t *testing.T) {
	t.Parallel()

	store := memory.NewActorStore()
	src := &stubSource{actors: []actor.Actor{
		{Name: "First", Rank: 1},
		{Name: "Second", Rank: 2},
		{Name: "Also First", Rank: 1},
	}}

	res, err := New(store, src, nil).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 2, res.Inserted)

	page, _, err := store.List(context.Background(), actor.Filter{}, actor.PageRequest{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, "First", page[0].Name)
}

type fixtureFetcher struct{ body string }

func (f fixtureFetcher) Fetch(_ context.Context, url string) (actor.Page, error) {
	return actor.Page{URL: url, StatusCode: 200, Body: []byte(f.body)}, nil
}

func TestSeedFromProvider(t *testing.T) {
	t.Parallel()

	doc := `<ul>` + strings.Repeat(`<li class="ipc-metadata-list-summary-item"><div data-testid="nlib-title"><h3>Someone</h3></div></li>`, 4) + `</ul>`
	provider := scraper.NewProvider(scraper.ProviderConfig{}, fixtureFetcher{body: doc}, nil, nil, nil)
	store := memory.NewActorStore()

	res, err := New(store, provider, nil).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Inserted)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{all[0].Rank, all[1].Rank, all[2].Rank, all[3].Rank})
	assert.Equal(t, "IMDb", all[0].Source)
}
