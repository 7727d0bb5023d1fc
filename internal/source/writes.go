package source

import (
	"context"
	"fmt"
	"time"

	"github.com/finsight/finsight/internal/model"
)

// SaveTransactions inserts imported transactions, skipping rows whose
// external id is already present. Used by statement import and seeding,
// never by the pipeline.
func (s *Store) SaveTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			user_id, account_id, category_id, transaction_date, amount,
			transaction_type, description, merchant_name, payment_method,
			external_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	inserted := 0
	for _, txn := range txns {
		if !txn.Type.Valid() {
			return 0, fmt.Errorf("transaction %q has invalid type %q", txn.ExternalID, txn.Type)
		}

		var categoryID any
		if txn.CategoryID != 0 {
			categoryID = txn.CategoryID
		}
		var externalID any
		if txn.ExternalID != "" {
			externalID = txn.ExternalID
		}

		res, err := stmt.ExecContext(ctx,
			txn.UserID,
			txn.AccountID,
			categoryID,
			txn.Date,
			txn.Amount.String(),
			string(txn.Type),
			txn.Description,
			txn.MerchantName,
			txn.PaymentMethod,
			externalID,
			now,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction %q: %w", txn.ExternalID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return inserted, nil
}

// CreateUser inserts a user and returns its id.
func (s *Store) CreateUser(ctx context.Context, username, email string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email) VALUES (?, ?)`, username, email)
	if err != nil {
		return 0, fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return res.LastInsertId()
}

// CreateAccount inserts an account and returns its id.
func (s *Store) CreateAccount(ctx context.Context, userID int64, name, accountType, currency string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, account_name, account_type, currency)
		VALUES (?, ?, ?, ?)`, userID, name, accountType, currency)
	if err != nil {
		return 0, fmt.Errorf("failed to create account %q: %w", name, err)
	}
	return res.LastInsertId()
}

// CreateCategory inserts a category and returns its id.
func (s *Store) CreateCategory(ctx context.Context, userID int64, name, categoryType string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (user_id, category_name, category_type)
		VALUES (?, ?, ?)`, userID, name, categoryType)
	if err != nil {
		return 0, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return res.LastInsertId()
}
