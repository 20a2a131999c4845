package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// TxManager runs a unit of work either inside one SQL transaction or directly on the pool.
type TxManager struct {
	db            *sqlx.DB
	transactional bool
}

// NewTxManager constructs a TxManager.
func NewTxManager(db *sqlx.DB, transactional bool) *TxManager {
	return &TxManager{db: db, transactional: transactional}
}

// Transactional reports whether units of work are wrapped in a transaction.
func (m *TxManager) Transactional() bool {
	return m.transactional
}

// DB exposes the pool for read-only work.
func (m *TxManager) DB() Querier {
	return m.db
}

// WithinTx executes fn. When transactional, fn's error rolls back every write it made.
func (m *TxManager) WithinTx(ctx context.Context, fn func(q Querier) error) (err error) {
	if !m.transactional {
		return fn(m.db)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
