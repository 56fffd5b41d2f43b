package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/starbids/starbids/starbids/store"
)

// Store is the Postgres implementation of store.Store on top of bun. The
// record operations live on ops so that the same code serves both the
// auto-commit path (backed by *bun.DB) and transactions (backed by bun.Tx).
type Store struct {
	ops
	db *bun.DB
}

var _ store.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	b := db.BunDB()
	return &Store{ops: ops{db: b}, db: b}
}

// txOptions for every unit of work. Wallet mutations are read-modify-write
// of absolute balance/hold values, so anything weaker than serializable
// allows two concurrent holds on the same wallet to overwrite each other and
// lose money. Serialization failures surface as SQLSTATE 40001, which
// translate maps to ErrTxConflict for the engines' retry loops.
var txOptions = sql.TxOptions{Isolation: sql.LevelSerializable}

// RunInTx maps commit/serialization failures onto the store sentinels so the
// engines' retry loops work unchanged across backends.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	err := s.db.RunInTx(ctx, &txOptions, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, ops{db: tx})
	})
	return translate(err)
}

type ops struct {
	db bun.IDB
}

// translate maps driver errors onto the store package sentinels:
// unique violations to ErrDuplicate, serialization/deadlock failures to
// ErrTxConflict, empty results to ErrNotFound. Errors already carrying a
// sentinel pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if store.IsRetryable(err) || errors.Is(err, store.ErrNotFound) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case "23505":
			return store.ErrDuplicate
		case "40001", "40P01":
			return store.ErrTxConflict
		}
	}
	return err
}
