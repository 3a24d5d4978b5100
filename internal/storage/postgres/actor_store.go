// Package postgres provides a Postgres-backed actor store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ShalomGure/actors-api/internal/actor"
)

const uniqueViolation = "23505"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for actor rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// ActorStore keeps actor rows in Postgres. Rank uniqueness is enforced by a
// UNIQUE constraint so concurrent writers cannot both win.
type ActorStore struct {
	pool    pool
	table   string
	columns string
}

// NewActorStore connects a pool using cfg.
func NewActorStore(ctx context.Context, cfg Config) (*ActorStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewActorStoreWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewActorStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewActorStoreWithPool(p pool, table string) (*ActorStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "actors"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ActorStore{
		pool:    p,
		table:   table,
		columns: "id, name, rank, bio, birth_date, image_url, known_for, source",
	}, nil
}

// Close releases the underlying pool resources.
func (s *ActorStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the actor table when it does not exist.
func (s *ActorStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id         SERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	rank       INTEGER NOT NULL UNIQUE,
	bio        TEXT NOT NULL DEFAULT '',
	birth_date DATE,
	image_url  TEXT NOT NULL DEFAULT '',
	known_for  TEXT[] NOT NULL DEFAULT '{}',
	source     TEXT NOT NULL DEFAULT ''
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// Get fetches a record by identifier.
func (s *ActorStore) Get(ctx context.Context, id int) (actor.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, s.columns, s.table)
	a, err := scanActor(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return actor.Actor{}, actor.ActorNotFound(id)
	}
	if err != nil {
		return actor.Actor{}, fmt.Errorf("get actor %d: %w", id, err)
	}
	return a, nil
}

// ListAll returns every record ordered by rank.
func (s *ActorStore) ListAll(ctx context.Context) ([]actor.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY rank, id`, s.columns, s.table)
	return s.queryActors(ctx, query)
}

// List returns one page of the filtered records ordered by ascending rank,
// plus the filtered total before pagination.
func (s *ActorStore) List(ctx context.Context, filter actor.Filter, page actor.PageRequest) ([]actor.Actor, int, error) {
	where, args := whereClause(filter)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, s.table, where)
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count actors: %w", err)
	}
	if page.Size <= 0 || page.Offset() < 0 || page.Offset() >= total {
		return []actor.Actor{}, total, nil
	}

	pageQuery := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY rank, id LIMIT $%d OFFSET $%d`,
		s.columns, s.table, where, len(args)+1, len(args)+2)
	actors, err := s.queryActors(ctx, pageQuery, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return actors, total, nil
}

// Add inserts a record and returns it with its assigned identifier.
func (s *ActorStore) Add(ctx context.Context, a actor.Actor) (actor.Actor, error) {
	return s.insert(ctx, s.pool, a)
}

// AddBatch inserts all records in one transaction.
func (s *ActorStore) AddBatch(ctx context.Context, actors []actor.Actor) ([]actor.Actor, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch insert: %w", err)
	}
	out := make([]actor.Actor, 0, len(actors))
	for _, a := range actors {
		stored, err := s.insert(ctx, tx, a)
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				return nil, fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
			return nil, err
		}
		out = append(out, stored)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit batch insert: %w", err)
	}
	return out, nil
}

// Update replaces the mutable fields of an existing record. Source and the
// identifier are left untouched.
func (s *ActorStore) Update(ctx context.Context, id int, a actor.Actor) (actor.Actor, error) {
	knownFor := a.KnownFor
	if knownFor == nil {
		knownFor = []string{}
	}
	query := fmt.Sprintf(`
UPDATE %s SET name = $1, rank = $2, bio = $3, birth_date = $4, image_url = $5, known_for = $6
WHERE id = $7
RETURNING %s`, s.table, s.columns)
	updated, err := scanActor(s.pool.QueryRow(ctx, query, a.Name, a.Rank, a.Bio, a.BirthDate, a.ImageURL, knownFor, id))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return actor.Actor{}, actor.ActorNotFound(id)
	case isUniqueViolation(err):
		return actor.Actor{}, actor.RankTaken(a.Rank)
	case err != nil:
		return actor.Actor{}, fmt.Errorf("update actor %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes a record.
func (s *ActorStore) Delete(ctx context.Context, id int) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete actor %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return actor.ActorNotFound(id)
	}
	return nil
}

// ExistsByRank reports whether another record holds rank. A record whose
// identifier equals *excludeID is not counted.
func (s *ActorStore) ExistsByRank(ctx context.Context, rank int, excludeID *int) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE rank = $1 AND id <> $2)`, s.table)
	exclude := 0
	if excludeID != nil {
		exclude = *excludeID
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, query, rank, exclude).Scan(&exists); err != nil {
		return false, fmt.Errorf("check rank %d: %w", rank, err)
	}
	return exists, nil
}

// Count returns the number of stored records.
func (s *ActorStore) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actors: %w", err)
	}
	return n, nil
}

type queryRower interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}

func (s *ActorStore) insert(ctx context.Context, q queryRower, a actor.Actor) (actor.Actor, error) {
	knownFor := a.KnownFor
	if knownFor == nil {
		knownFor = []string{}
	}
	query := fmt.Sprintf(`
INSERT INTO %s (name, rank, bio, birth_date, image_url, known_for, source)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`, s.table)

	var id int
	err := q.QueryRow(ctx, query, a.Name, a.Rank, a.Bio, a.BirthDate, a.ImageURL, knownFor, a.Source).Scan(&id)
	if isUniqueViolation(err) {
		return actor.Actor{}, actor.RankTaken(a.Rank)
	}
	if err != nil {
		return actor.Actor{}, fmt.Errorf("insert actor: %w", err)
	}
	stored := a.Clone()
	stored.ID = id
	stored.KnownFor = append([]string{}, knownFor...)
	return stored, nil
}

func (s *ActorStore) queryActors(ctx context.Context, query string, args ...any) ([]actor.Actor, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query actors: %w", err)
	}
	defer rows.Close()

	out := []actor.Actor{}
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan actor: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actors: %w", err)
	}
	return out, nil
}

func scanActor(row pgx.Row) (actor.Actor, error) {
	var a actor.Actor
	err := row.Scan(&a.ID, &a.Name, &a.Rank, &a.Bio, &a.BirthDate, &a.ImageURL, &a.KnownFor, &a.Source)
	if err != nil {
		return actor.Actor{}, err
	}
	if a.KnownFor == nil {
		a.KnownFor = []string{}
	}
	return a, nil
}

// whereClause renders filter as SQL. The name test uses strpos so matching
// stays a case-sensitive substring test without LIKE escaping.
func whereClause(filter actor.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Name != "" {
		args = append(args, filter.Name)
		conds = append(conds, fmt.Sprintf("strpos(name, $%d) > 0", len(args)))
	}
	if filter.MinRank != nil {
		args = append(args, *filter.MinRank)
		conds = append(conds, fmt.Sprintf("rank >= $%d", len(args)))
	}
	if filter.MaxRank != nil {
		args = append(args, *filter.MaxRank)
		conds = append(conds, fmt.Sprintf("rank <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
