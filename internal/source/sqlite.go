// Package source implements the transactional store the pipeline reads from.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/finsight/finsight/internal/common"
	"github.com/finsight/finsight/internal/model"
	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store is the SQLite-backed transactional store. The pipeline only reads
// from it; writes happen through statement import and seeding.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (and if needed creates) the transactional database.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: source db path is empty", common.ErrInvalidConfig)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSourceUnavailable, err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrSourceUnavailable, err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			email TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			account_id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(user_id),
			account_name TEXT NOT NULL,
			account_type TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USD'
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			category_id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(user_id),
			category_name TEXT NOT NULL,
			category_type TEXT NOT NULL,
			parent_category_id INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			transaction_id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(user_id),
			account_id INTEGER NOT NULL REFERENCES accounts(account_id),
			category_id INTEGER REFERENCES categories(category_id),
			transaction_date DATETIME NOT NULL,
			amount TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			description TEXT,
			merchant_name TEXT,
			payment_method TEXT,
			external_id TEXT UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, transaction_date)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to migrate source schema: %w", err)
		}
	}
	return nil
}

// ReadTransactions returns change-eligible transactions, all of them when
// since is nil, otherwise only rows created or updated after the watermark.
func (s *Store) ReadTransactions(ctx context.Context, since *time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT transaction_id, user_id, account_id, category_id,
		       transaction_date, amount, transaction_type,
		       description, merchant_name, payment_method, created_at
		FROM transactions`

	args := []any{}
	if since != nil {
		query += ` WHERE created_at > ? OR updated_at > ?`
		args = append(args, *since, *since)
	}
	query += ` ORDER BY transaction_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying transactions: %v", common.ErrSourceUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading transactions: %v", common.ErrSourceUnavailable, err)
	}

	return txns, nil
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var (
		txn        model.Transaction
		categoryID sql.NullInt64
		amount     string
		txType     string
		desc       sql.NullString
		merchant   sql.NullString
		payMethod  sql.NullString
	)

	err := rows.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.AccountID,
		&categoryID,
		&txn.Date,
		&amount,
		&txType,
		&desc,
		&merchant,
		&payMethod,
		&txn.CreatedAt,
	)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}

	txn.Amount = amt
	txn.Type = model.TransactionType(txType)
	txn.CategoryID = categoryID.Int64
	txn.Description = desc.String
	txn.MerchantName = merchant.String
	txn.PaymentMethod = payMethod.String

	return txn, nil
}

// ReadUsers returns every user dimension row.
func (s *Store) ReadUsers(ctx context.Context) ([]model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, username, email, created_at FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying users: %v", common.ErrSourceUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ReadAccounts returns every account dimension row.
func (s *Store) ReadAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, user_id, account_name, account_type, currency
		FROM accounts ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying accounts: %v", common.ErrSourceUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ReadCategories returns every category dimension row.
func (s *Store) ReadCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, user_id, category_name, category_type, parent_category_id
		FROM categories ORDER BY category_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying categories: %v", common.ErrSourceUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var (
			c      model.Category
			parent sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &parent); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.ParentID = parent.Int64
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return ctx.Err()
}
