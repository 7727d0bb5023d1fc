package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/finsight/finsight/internal/common"
	"github.com/finsight/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// UpsertMonthlySummary writes one full-replace summary row keyed on
// (user_id, year, month).
func (t *Tx) UpsertMonthlySummary(ctx context.Context, s model.MonthlySummary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO fact_monthly_summary (
			user_id, year, month, total_income, total_expenses,
			net_cashflow, transaction_count, avg_transaction_amount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, year, month) DO UPDATE SET
			total_income = excluded.total_income,
			total_expenses = excluded.total_expenses,
			net_cashflow = excluded.net_cashflow,
			transaction_count = excluded.transaction_count,
			avg_transaction_amount = excluded.avg_transaction_amount,
			updated_at = CURRENT_TIMESTAMP
	`,
		s.UserID, s.Year, s.Month,
		s.TotalIncome.String(), s.TotalExpenses.String(), s.NetCashflow.String(),
		s.TransactionCount, s.AvgTransactionAmount.String())
	if err != nil {
		return fmt.Errorf("%w: upserting monthly summary %d/%d-%02d: %v",
			common.ErrWarehouseUnavailable, s.UserID, s.Year, s.Month, err)
	}
	return nil
}

// UpsertCategorySummary writes one full-replace summary row keyed on
// (user_id, category_id, year, month).
func (t *Tx) UpsertCategorySummary(ctx context.Context, s model.CategorySummary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO fact_category_summary (
			user_id, category_id, year, month,
			total_amount, transaction_count, avg_amount
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, category_id, year, month) DO UPDATE SET
			total_amount = excluded.total_amount,
			transaction_count = excluded.transaction_count,
			avg_amount = excluded.avg_amount,
			updated_at = CURRENT_TIMESTAMP
	`,
		s.UserID, s.CategoryID, s.Year, s.Month,
		s.TotalAmount.String(), s.TransactionCount, s.AvgAmount.String())
	if err != nil {
		return fmt.Errorf("%w: upserting category summary %d/%d/%d-%02d: %v",
			common.ErrWarehouseUnavailable, s.UserID, s.CategoryID, s.Year, s.Month, err)
	}
	return nil
}

// DeleteCategorySummaries clears the month's category rows ahead of a
// recompute.
func (t *Tx) DeleteCategorySummaries(ctx context.Context, key model.MonthKey) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(ctx, `
		DELETE FROM fact_category_summary
		WHERE user_id = ? AND year = ? AND month = ?
	`, key.UserID, key.Year, key.Month)
	if err != nil {
		return fmt.Errorf("%w: deleting category summaries %d/%d-%02d: %v",
			common.ErrWarehouseUnavailable, key.UserID, key.Year, key.Month, err)
	}
	return nil
}

// GetMonthlySummaries returns up to limit of the user's most recent
// monthly summaries, ordered oldest first. limit <= 0 means no limit.
func (w *Warehouse) GetMonthlySummaries(ctx context.Context, userID int64, limit int) ([]model.MonthlySummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT user_id, year, month, total_income, total_expenses,
		       net_cashflow, transaction_count, avg_transaction_amount
		FROM fact_monthly_summary
		WHERE user_id = ?
		ORDER BY year DESC, month DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying monthly summaries: %v", common.ErrWarehouseUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []model.MonthlySummary
	for rows.Next() {
		s, err := scanMonthlySummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading monthly summaries: %v", common.ErrWarehouseUnavailable, err)
	}

	// Oldest first for trend math.
	for i, j := 0, len(summaries)-1; i < j; i, j = i+1, j-1 {
		summaries[i], summaries[j] = summaries[j], summaries[i]
	}
	return summaries, nil
}

// GetMonthlySummary returns one summary row, or common.ErrNotFound.
func (w *Warehouse) GetMonthlySummary(ctx context.Context, userID int64, year, month int) (*model.MonthlySummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := w.db.QueryRowContext(ctx, `
		SELECT user_id, year, month, total_income, total_expenses,
		       net_cashflow, transaction_count, avg_transaction_amount
		FROM fact_monthly_summary
		WHERE user_id = ? AND year = ? AND month = ?
	`, userID, year, month)

	s, err := scanMonthlySummaryRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetCategorySummaries returns the month's category summary rows ordered
// by category id.
func (w *Warehouse) GetCategorySummaries(ctx context.Context, userID int64, year, month int) ([]model.CategorySummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := w.db.QueryContext(ctx, `
		SELECT user_id, category_id, year, month, total_amount, transaction_count, avg_amount
		FROM fact_category_summary
		WHERE user_id = ? AND year = ? AND month = ?
		ORDER BY category_id
	`, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("%w: querying category summaries: %v", common.ErrWarehouseUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []model.CategorySummary
	for rows.Next() {
		var (
			s           model.CategorySummary
			totalAmount string
			avgAmount   string
		)
		err := rows.Scan(&s.UserID, &s.CategoryID, &s.Year, &s.Month,
			&totalAmount, &s.TransactionCount, &avgAmount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category summary: %w", err)
		}
		if s.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
			return nil, fmt.Errorf("failed to parse total_amount %q: %w", totalAmount, err)
		}
		if s.AvgAmount, err = decimal.NewFromString(avgAmount); err != nil {
			return nil, fmt.Errorf("failed to parse avg_amount %q: %w", avgAmount, err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// GetDailyExpenses returns per-day expense totals from the fact table for
// date keys at or after from, summed in decimal to avoid drift.
func (w *Warehouse) GetDailyExpenses(ctx context.Context, userID int64, from model.DateKey) ([]model.DailyExpense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := w.db.QueryContext(ctx, `
		SELECT date_key, amount
		FROM fact_transactions
		WHERE user_id = ? AND transaction_type = 'expense' AND date_key >= ?
		ORDER BY date_key
	`, userID, int(from))
	if err != nil {
		return nil, fmt.Errorf("%w: querying daily expenses: %v", common.ErrWarehouseUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var daily []model.DailyExpense
	for rows.Next() {
		var (
			dateKey int
			amount  string
		)
		if err := rows.Scan(&dateKey, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan daily expense: %w", err)
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
		}

		key := model.DateKey(dateKey)
		if n := len(daily); n > 0 && daily[n-1].DateKey == key {
			daily[n-1].Amount = daily[n-1].Amount.Add(amt)
		} else {
			daily = append(daily, model.DailyExpense{DateKey: key, Amount: amt})
		}
	}
	return daily, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMonthlySummary(rows *sql.Rows) (model.MonthlySummary, error) {
	return scanMonthlySummaryRow(rows)
}

func scanMonthlySummaryRow(row rowScanner) (model.MonthlySummary, error) {
	var (
		s        model.MonthlySummary
		income   string
		expenses string
		net      string
		avg      string
	)

	err := row.Scan(&s.UserID, &s.Year, &s.Month,
		&income, &expenses, &net, &s.TransactionCount, &avg)
	if err != nil {
		return model.MonthlySummary{}, err
	}

	if s.TotalIncome, err = decimal.NewFromString(income); err != nil {
		return model.MonthlySummary{}, fmt.Errorf("failed to parse total_income %q: %w", income, err)
	}
	if s.TotalExpenses, err = decimal.NewFromString(expenses); err != nil {
		return model.MonthlySummary{}, fmt.Errorf("failed to parse total_expenses %q: %w", expenses, err)
	}
	if s.NetCashflow, err = decimal.NewFromString(net); err != nil {
		return model.MonthlySummary{}, fmt.Errorf("failed to parse net_cashflow %q: %w", net, err)
	}
	if s.AvgTransactionAmount, err = decimal.NewFromString(avg); err != nil {
		return model.MonthlySummary{}, fmt.Errorf("failed to parse avg_transaction_amount %q: %w", avg, err)
	}

	return s, nil
}
