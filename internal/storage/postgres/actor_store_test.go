package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShalomGure/actors-api/internal/actor"
)

var actorColumns = []string{"id", "name", "rank", "bio", "birth_date", "image_url", "known_for", "source"}

func newMockStore(t *testing.T) (*ActorStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewActorStoreWithPool(mock, "actors")
	require.NoError(t, err)
	return store, mock
}

func birth(y int, m time.Month, d int) *time.Time {
	ts := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &ts
}

func TestNewActorStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewActorStoreWithPool(nil, "actors")
	assert.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewActorStoreWithPool(mock, "actors; DROP TABLE x")
	assert.ErrorContains(t, err, "invalid table name")

	store, err := NewActorStoreWithPool(mock, "")
	require.NoError(t, err)
	assert.Equal(t, "actors", store.table)
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS actors")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM actors WHERE id = $1")).
		WithArgs(7).
		WillReturnRows(pgxmock.NewRows(actorColumns).
			AddRow(7, "Meryl Streep", 1, "bio", birth(1949, time.June, 22), "https://img", []string{"Doubt"}, "IMDb"))

	got, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, got.ID)
	assert.Equal(t, "Meryl Streep", got.Name)
	assert.Equal(t, []string{"Doubt"}, got.KnownFor)
	require.NotNil(t, got.BirthDate)
	assert.Equal(t, 1949, got.BirthDate.Year())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM actors WHERE id = $1")).
		WithArgs(99).
		WillReturnRows(pgxmock.NewRows(actorColumns))

	_, err := store.Get(context.Background(), 99)
	require.ErrorIs(t, err, actor.ErrNotFound)
	assert.Equal(t, "Actor with ID 99 not found.", actor.Message(err))
}

func TestListAppliesFilterAndPage(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	minRank, maxRank := 2, 9

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM actors WHERE strpos(name, $1) > 0 AND rank >= $2 AND rank <= $3")).
		WithArgs("an", 2, 9).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY rank, id LIMIT $4 OFFSET $5")).
		WithArgs("an", 2, 9, 2, 2).
		WillReturnRows(pgxmock.NewRows(actorColumns).
			AddRow(5, "Daniel", 8, "", birth(1957, time.April, 29), "", []string{}, "IMDb"))

	page, total, err := store.List(context.Background(),
		actor.Filter{Name: "an", MinRank: &minRank, MaxRank: &maxRank},
		actor.PageRequest{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Daniel", page[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPastEndSkipsPageQuery(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM actors")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	page, total, err := store.List(context.Background(), actor.Filter{}, actor.PageRequest{Number: 5, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.NotNil(t, page)
	assert.Empty(t, page)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddAssignsID(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO actors")).
		WithArgs("Tom Hanks", 3, "", pgxmock.AnyArg(), "", []string{}, "Manual").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(12))

	got, err := store.Add(context.Background(), actor.Actor{Name: "Tom Hanks", Rank: 3, Source: "Manual"})
	require.NoError(t, err)
	assert.Equal(t, 12, got.ID)
	assert.Equal(t, []string{}, got.KnownFor)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddRankConflict(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO actors")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "actors_rank_key"})

	_, err := store.Add(context.Background(), actor.Actor{Name: "Dup", Rank: 1})
	require.ErrorIs(t, err, actor.ErrConflict)
	assert.Equal(t, "An actor with rank 1 already exists.", actor.Message(err))
}

func TestAddBatchCommits(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO actors")).
		WithArgs("A", 1, "", pgxmock.AnyArg(), "", []string{}, "IMDb").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO actors")).
		WithArgs("B", 2, "", pgxmock.AnyArg(), "", []string{"X"}, "IMDb").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	out, err := store.AddBatch(context.Background(), []actor.Actor{
		{Name: "A", Rank: 1, Source: "IMDb"},
		{Name: "B", Rank: 2, KnownFor: []string{"X"}, Source: "IMDb"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []int{1, 2}, []int{out[0].ID, out[1].ID})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddBatchRollsBackOnConflict(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO actors")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO actors")).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := store.AddBatch(context.Background(), []actor.Actor{
		{Name: "A", Rank: 1},
		{Name: "B", Rank: 1},
	})
	require.ErrorIs(t, err, actor.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	bd := birth(1956, time.July, 9)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE actors SET")).
		WithArgs("Tom Hanks", 4, "new bio", bd, "", []string{}, 3).
		WillReturnRows(pgxmock.NewRows(actorColumns).
			AddRow(3, "Tom Hanks", 4, "new bio", bd, "", []string{}, "IMDb"))

	got, err := store.Update(context.Background(), 3, actor.Actor{Name: "Tom Hanks", Rank: 4, Bio: "new bio", BirthDate: bd, Source: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "IMDb", got.Source)
	assert.Equal(t, 4, got.Rank)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateErrors(t *testing.T) {
	t.Parallel()

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE actors SET")).
			WillReturnRows(pgxmock.NewRows(actorColumns))

		_, err := store.Update(context.Background(), 8, actor.Actor{Name: "X", Rank: 1})
		assert.ErrorIs(t, err, actor.ErrNotFound)
	})

	t.Run("rank taken", func(t *testing.T) {
		t.Parallel()
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE actors SET")).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := store.Update(context.Background(), 8, actor.Actor{Name: "X", Rank: 1})
		assert.ErrorIs(t, err, actor.ErrConflict)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM actors WHERE id = $1")).
		WithArgs(4).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM actors WHERE id = $1")).
		WithArgs(4).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.Delete(context.Background(), 4))
	assert.ErrorIs(t, store.Delete(context.Background(), 4), actor.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsByRank(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	self := 5
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(2, 0).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(2, 5).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	taken, err := store.ExistsByRank(context.Background(), 2, nil)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = store.ExistsByRank(context.Background(), 2, &self)
	require.NoError(t, err)
	assert.False(t, taken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAndListAll(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM actors")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY rank, id")).
		WillReturnRows(pgxmock.NewRows(actorColumns).
			AddRow(2, "B", 1, "", birth(1970, time.January, 1), "", []string{}, "IMDb").
			AddRow(1, "A", 2, "", birth(1971, time.January, 1), "", []string{"Y"}, "IMDb"))

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "B", all[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
