package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/finsight/finsight/internal/common"
	"github.com/finsight/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// DateKeyExists reports whether dim_date carries a row for the key.
func (t *Tx) DateKeyExists(ctx context.Context, key model.DateKey) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM dim_date WHERE date_key = ?)`, int(key)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking date key %d: %v", common.ErrWarehouseUnavailable, key, err)
	}
	return exists, nil
}

// UpsertFact writes one fact keyed on (transaction_id, date_key): existing
// rows have all non-key columns overwritten, absent rows are inserted.
// Reports whether the row was newly inserted.
func (t *Tx) UpsertFact(ctx context.Context, fact model.WarehouseFact) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	var categoryID any
	if fact.CategoryID != 0 {
		categoryID = fact.CategoryID
	}

	res, err := t.tx.ExecContext(ctx, `
		UPDATE fact_transactions
		SET user_id = ?, account_id = ?, category_id = ?, amount = ?,
		    transaction_type = ?, description = ?, merchant_name = ?,
		    payment_method = ?, loaded_at = CURRENT_TIMESTAMP
		WHERE transaction_id = ? AND date_key = ?
	`,
		fact.UserID, fact.AccountID, categoryID, fact.Amount.String(),
		string(fact.Type), fact.Description, fact.MerchantName,
		fact.PaymentMethod, fact.TransactionID, int(fact.DateKey))
	if err != nil {
		return false, fmt.Errorf("%w: updating fact %d: %v", common.ErrWarehouseUnavailable, fact.TransactionID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		return false, nil
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO fact_transactions (
			transaction_id, date_key, user_id, account_id, category_id,
			amount, transaction_type, description, merchant_name, payment_method
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fact.TransactionID, int(fact.DateKey), fact.UserID, fact.AccountID,
		categoryID, fact.Amount.String(), string(fact.Type),
		fact.Description, fact.MerchantName, fact.PaymentMethod)
	if err != nil {
		return false, fmt.Errorf("%w: inserting fact %d: %v", common.ErrWarehouseUnavailable, fact.TransactionID, err)
	}

	return true, nil
}

// GetFactsForMonth returns every fact for the aggregation target, ordered
// by date key then transaction id.
func (t *Tx) GetFactsForMonth(ctx context.Context, key model.MonthKey) ([]model.WarehouseFact, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	lo := key.Year*10000 + key.Month*100 + 1
	hi := key.Year*10000 + key.Month*100 + 31

	rows, err := t.tx.QueryContext(ctx, `
		SELECT transaction_id, date_key, user_id, account_id, category_id,
		       amount, transaction_type, description, merchant_name, payment_method
		FROM fact_transactions
		WHERE user_id = ? AND date_key BETWEEN ? AND ?
		ORDER BY date_key, transaction_id
	`, key.UserID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("%w: querying facts: %v", common.ErrWarehouseUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var facts []model.WarehouseFact
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}

func scanFact(rows *sql.Rows) (model.WarehouseFact, error) {
	var (
		fact       model.WarehouseFact
		dateKey    int
		categoryID sql.NullInt64
		amount     string
		txType     string
		desc       sql.NullString
		merchant   sql.NullString
		payMethod  sql.NullString
	)

	err := rows.Scan(
		&fact.TransactionID,
		&dateKey,
		&fact.UserID,
		&fact.AccountID,
		&categoryID,
		&amount,
		&txType,
		&desc,
		&merchant,
		&payMethod,
	)
	if err != nil {
		return model.WarehouseFact{}, fmt.Errorf("failed to scan fact: %w", err)
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return model.WarehouseFact{}, fmt.Errorf("failed to parse fact amount %q: %w", amount, err)
	}

	fact.DateKey = model.DateKey(dateKey)
	fact.CategoryID = categoryID.Int64
	fact.Amount = amt
	fact.Type = model.TransactionType(txType)
	fact.Description = desc.String
	fact.MerchantName = merchant.String
	fact.PaymentMethod = payMethod.String

	return fact, nil
}

// ReplaceUsers swaps the user dimension for the given rows.
func (t *Tx) ReplaceUsers(ctx context.Context, users []model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM dim_user`); err != nil {
		return fmt.Errorf("%w: truncating dim_user: %v", common.ErrWarehouseUnavailable, err)
	}
	for _, u := range users {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO dim_user (user_id, username, email, created_at)
			VALUES (?, ?, ?, ?)`, u.ID, u.Username, u.Email, u.CreatedAt)
		if err != nil {
			return fmt.Errorf("%w: inserting dim_user %d: %v", common.ErrWarehouseUnavailable, u.ID, err)
		}
	}
	return nil
}

// ReplaceAccounts swaps the account dimension for the given rows.
func (t *Tx) ReplaceAccounts(ctx context.Context, accounts []model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM dim_account`); err != nil {
		return fmt.Errorf("%w: truncating dim_account: %v", common.ErrWarehouseUnavailable, err)
	}
	for _, a := range accounts {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO dim_account (account_id, user_id, account_name, account_type, currency)
			VALUES (?, ?, ?, ?, ?)`, a.ID, a.UserID, a.Name, a.Type, a.Currency)
		if err != nil {
			return fmt.Errorf("%w: inserting dim_account %d: %v", common.ErrWarehouseUnavailable, a.ID, err)
		}
	}
	return nil
}

// ReplaceCategories swaps the category dimension for the given rows.
func (t *Tx) ReplaceCategories(ctx context.Context, categories []model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM dim_category`); err != nil {
		return fmt.Errorf("%w: truncating dim_category: %v", common.ErrWarehouseUnavailable, err)
	}
	for _, c := range categories {
		var parent any
		if c.ParentID != 0 {
			parent = c.ParentID
		}
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO dim_category (category_id, user_id, category_name, category_type, parent_category_id)
			VALUES (?, ?, ?, ?, ?)`, c.ID, c.UserID, c.Name, c.Type, parent)
		if err != nil {
			return fmt.Errorf("%w: inserting dim_category %d: %v", common.ErrWarehouseUnavailable, c.ID, err)
		}
	}
	return nil
}
