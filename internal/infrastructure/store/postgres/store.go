package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/domain/user"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

// Store persists pools and users in PostgreSQL. RunTransaction maps to a
// serializable database transaction with row locks on every entity read, so
// two transactions touching the same pool or user cannot interleave.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const poolColumns = `id, name, tokens_per_square, grid, top_numbers, side_numbers,
is_locked, start_time, scores, winning_squares, created_at, updated_at`

const userColumns = `id, first_name, last_name, email, is_admin, tokens, tokens_spent,
created_at, updated_at`

func (s *Store) GetPool(ctx context.Context, poolID string) (pool.Pool, bool, error) {
	var row poolTableModel
	query := fmt.Sprintf(`SELECT %s FROM pools WHERE id = $1`, poolColumns)
	if err := s.db.GetContext(ctx, &row, query, poolID); err != nil {
		if isNotFound(err) {
			return pool.Pool{}, false, nil
		}
		return pool.Pool{}, false, fmt.Errorf("get pool: %w", err)
	}
	p, err := poolFromRow(row)
	if err != nil {
		return pool.Pool{}, false, err
	}
	return p, true, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (user.User, bool, error) {
	var row userTableModel
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		if isNotFound(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return userFromRow(row), true, nil
}

func (s *Store) ListPools(ctx context.Context) ([]pool.Pool, error) {
	var rows []poolTableModel
	query := fmt.Sprintf(`SELECT %s FROM pools ORDER BY created_at`, poolColumns)
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}

	out := make([]pool.Pool, 0, len(rows))
	for _, row := range rows {
		p, err := poolFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	var rows []userTableModel
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at`, userColumns)
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]user.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, userFromRow(row))
	}
	return out, nil
}

// RunTransaction executes fn inside a serializable transaction. Reads
// through the transaction take FOR UPDATE locks; buffered writes flush as
// upserts at commit. A non-nil error from fn rolls everything back.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, txn usecase.Txn) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	txn := &sqlTxn{tx: tx}
	if err := fn(ctx, txn); err != nil {
		return err
	}
	if err := txn.flush(ctx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type sqlTxn struct {
	tx          *sqlx.Tx
	poolWrites  map[string]pool.Pool
	userWrites  map[string]user.User
	poolDeletes map[string]struct{}
}

func (t *sqlTxn) Pool(ctx context.Context, poolID string) (pool.Pool, bool, error) {
	if _, deleted := t.poolDeletes[poolID]; deleted {
		return pool.Pool{}, false, nil
	}
	if p, ok := t.poolWrites[poolID]; ok {
		return p.Clone(), true, nil
	}

	var row poolTableModel
	query := fmt.Sprintf(`SELECT %s FROM pools WHERE id = $1 FOR UPDATE`, poolColumns)
	if err := t.tx.GetContext(ctx, &row, query, poolID); err != nil {
		if isNotFound(err) {
			return pool.Pool{}, false, nil
		}
		return pool.Pool{}, false, fmt.Errorf("get pool for update: %w", err)
	}
	p, err := poolFromRow(row)
	if err != nil {
		return pool.Pool{}, false, err
	}
	return p, true, nil
}

func (t *sqlTxn) User(ctx context.Context, userID string) (user.User, bool, error) {
	if u, ok := t.userWrites[userID]; ok {
		return u, true, nil
	}

	var row userTableModel
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 FOR UPDATE`, userColumns)
	if err := t.tx.GetContext(ctx, &row, query, userID); err != nil {
		if isNotFound(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, fmt.Errorf("get user for update: %w", err)
	}
	return userFromRow(row), true, nil
}

func (t *sqlTxn) PutPool(p pool.Pool) {
	if t.poolWrites == nil {
		t.poolWrites = make(map[string]pool.Pool)
	}
	delete(t.poolDeletes, p.ID)
	t.poolWrites[p.ID] = p.Clone()
}

func (t *sqlTxn) PutUser(u user.User) {
	if t.userWrites == nil {
		t.userWrites = make(map[string]user.User)
	}
	t.userWrites[u.ID] = u
}

func (t *sqlTxn) DeletePool(poolID string) {
	if t.poolDeletes == nil {
		t.poolDeletes = make(map[string]struct{})
	}
	delete(t.poolWrites, poolID)
	t.poolDeletes[poolID] = struct{}{}
}

func (t *sqlTxn) flush(ctx context.Context) error {
	for _, p := range t.poolWrites {
		row, err := poolToRow(p)
		if err != nil {
			return err
		}
		_, err = t.tx.NamedExecContext(ctx, `INSERT INTO pools
(id, name, tokens_per_square, grid, top_numbers, side_numbers, is_locked, start_time, scores, winning_squares, created_at, updated_at)
VALUES (:id, :name, :tokens_per_square, :grid, :top_numbers, :side_numbers, :is_locked, :start_time, :scores, :winning_squares, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    tokens_per_square = EXCLUDED.tokens_per_square,
    grid = EXCLUDED.grid,
    top_numbers = EXCLUDED.top_numbers,
    side_numbers = EXCLUDED.side_numbers,
    is_locked = EXCLUDED.is_locked,
    start_time = EXCLUDED.start_time,
    scores = EXCLUDED.scores,
    winning_squares = EXCLUDED.winning_squares,
    updated_at = EXCLUDED.updated_at`, row)
		if err != nil {
			return fmt.Errorf("upsert pool %s: %w", p.ID, err)
		}
	}

	for _, u := range t.userWrites {
		_, err := t.tx.NamedExecContext(ctx, `INSERT INTO users
(id, first_name, last_name, email, is_admin, tokens, tokens_spent, created_at, updated_at)
VALUES (:id, :first_name, :last_name, :email, :is_admin, :tokens, :tokens_spent, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    email = EXCLUDED.email,
    is_admin = EXCLUDED.is_admin,
    tokens = EXCLUDED.tokens,
    tokens_spent = EXCLUDED.tokens_spent,
    updated_at = EXCLUDED.updated_at`, userToRow(u))
		if err != nil {
			return fmt.Errorf("upsert user %s: %w", u.ID, err)
		}
	}

	for id := range t.poolDeletes {
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM pools WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete pool %s: %w", id, err)
		}
	}
	return nil
}
