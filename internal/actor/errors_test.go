package actor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKindsMatchThroughWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("service: %w", RankTaken(5))
	require.ErrorIs(t, err, ErrConflict)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Equal(t, "An actor with rank 5 already exists.", Message(err))

	cause := errors.New("dial tcp: timeout")
	up := Upstream("fetch listing page", cause)
	require.ErrorIs(t, up, ErrUpstreamFetch)
	require.ErrorIs(t, up, cause)
	require.Contains(t, up.Error(), "dial tcp")

	require.Empty(t, Message(errors.New("plain")))
}

func TestFilterMatches(t *testing.T) {
	t.Parallel()

	minRank, maxRank := 2, 4
	f := Filter{Name: "Streep", MinRank: &minRank, MaxRank: &maxRank}

	require.True(t, f.Matches(Actor{Name: "Meryl Streep", Rank: 3}))
	require.False(t, f.Matches(Actor{Name: "meryl streep", Rank: 3}), "name filter is case-sensitive")
	require.False(t, f.Matches(Actor{Name: "Meryl Streep", Rank: 1}))
	require.False(t, f.Matches(Actor{Name: "Meryl Streep", Rank: 5}))
	require.True(t, Filter{}.Matches(Actor{Name: "Anyone", Rank: 99}))
}

func TestActorCloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := Actor{Name: "A", KnownFor: []string{"X"}}
	cp := orig.Clone()
	cp.KnownFor[0] = "Y"
	require.Equal(t, "X", orig.KnownFor[0])
}
