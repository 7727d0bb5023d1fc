// Package warehouse implements the SQLite-backed analytical store: the
// date dimension, denormalized transaction facts, and the summary tables
// recomputed by the aggregation stage.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/finsight/finsight/internal/common"
	"github.com/finsight/finsight/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Warehouse implements service.Warehouse using SQLite.
type Warehouse struct {
	db     *sql.DB
	dbPath string
}

// Open opens the analytical database. Migrate must be called before the
// first load.
func Open(dbPath string) (*Warehouse, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: warehouse db path is empty", common.ErrInvalidConfig)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrWarehouseUnavailable, err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrWarehouseUnavailable, err)
	}

	return &Warehouse{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// BeginTx starts a warehouse write transaction.
func (w *Warehouse) BeginTx(ctx context.Context) (service.WarehouseTx, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %v", common.ErrWarehouseUnavailable, err)
	}

	return &Tx{tx: tx}, nil
}

// Tx wraps sql.Tx to implement service.WarehouseTx.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", common.ErrWarehouseUnavailable, err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return ctx.Err()
}
