package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// ExpectedSchemaVersion is the latest schema version the application expects.
const ExpectedSchemaVersion = 3

// Date dimension coverage. Facts dated outside this range fail loading
// with a missing-date-dimension error.
var (
	dateDimStart = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	dateDimEnd   = time.Date(2035, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Migration represents a warehouse schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Dimension tables and date dimension",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS dim_date (
					date_key INTEGER PRIMARY KEY,
					date_value TEXT NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					day INTEGER NOT NULL,
					iso_week INTEGER NOT NULL,
					day_of_week INTEGER NOT NULL,
					is_weekend BOOLEAN NOT NULL,
					is_month_end BOOLEAN NOT NULL
				)`,
				`CREATE INDEX idx_dim_date_year_month ON dim_date(year, month)`,

				`CREATE TABLE IF NOT EXISTS dim_user (
					user_id INTEGER PRIMARY KEY,
					username TEXT NOT NULL,
					email TEXT NOT NULL,
					created_at DATETIME
				)`,
				`CREATE TABLE IF NOT EXISTS dim_account (
					account_id INTEGER PRIMARY KEY,
					user_id INTEGER NOT NULL,
					account_name TEXT NOT NULL,
					account_type TEXT NOT NULL,
					currency TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS dim_category (
					category_id INTEGER PRIMARY KEY,
					user_id INTEGER NOT NULL,
					category_name TEXT NOT NULL,
					category_type TEXT NOT NULL,
					parent_category_id INTEGER
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}

			return populateDateDimension(tx)
		},
	},
	{
		Version:     2,
		Description: "Fact and summary tables",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS fact_transactions (
					transaction_id INTEGER NOT NULL,
					date_key INTEGER NOT NULL REFERENCES dim_date(date_key),
					user_id INTEGER NOT NULL,
					account_id INTEGER NOT NULL,
					category_id INTEGER,
					amount TEXT NOT NULL,
					transaction_type TEXT NOT NULL,
					description TEXT,
					merchant_name TEXT,
					payment_method TEXT,
					loaded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (transaction_id, date_key)
				)`,
				`CREATE INDEX idx_fact_transactions_user_date ON fact_transactions(user_id, date_key)`,

				`CREATE TABLE IF NOT EXISTS fact_monthly_summary (
					user_id INTEGER NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					total_income TEXT NOT NULL,
					total_expenses TEXT NOT NULL,
					net_cashflow TEXT NOT NULL,
					transaction_count INTEGER NOT NULL,
					avg_transaction_amount TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (user_id, year, month)
				)`,

				`CREATE TABLE IF NOT EXISTS fact_category_summary (
					user_id INTEGER NOT NULL,
					category_id INTEGER NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					total_amount TEXT NOT NULL,
					transaction_count INTEGER NOT NULL,
					avg_amount TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (user_id, category_id, year, month)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Run log for watermark resumption",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS etl_runs (
					run_id INTEGER PRIMARY KEY AUTOINCREMENT,
					mode TEXT NOT NULL,
					state TEXT NOT NULL,
					rows_read INTEGER NOT NULL DEFAULT 0,
					rows_loaded INTEGER NOT NULL DEFAULT 0,
					rows_failed INTEGER NOT NULL DEFAULT 0,
					error_kind TEXT,
					started_at DATETIME NOT NULL,
					finished_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_etl_runs_state ON etl_runs(state, started_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

func populateDateDimension(tx *sql.Tx) error {
	stmt, err := tx.Prepare(`
		INSERT INTO dim_date (
			date_key, date_value, year, month, day,
			iso_week, day_of_week, is_weekend, is_month_end
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare date dimension insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for d := dateDimStart; !d.After(dateDimEnd); d = d.AddDate(0, 0, 1) {
		_, isoWeek := d.ISOWeek()
		weekday := int(d.Weekday())
		isWeekend := weekday == 0 || weekday == 6
		isMonthEnd := d.AddDate(0, 0, 1).Day() == 1

		dateKey := d.Year()*10000 + int(d.Month())*100 + d.Day()
		_, err := stmt.Exec(
			dateKey,
			d.Format("2006-01-02"),
			d.Year(),
			int(d.Month()),
			d.Day(),
			isoWeek,
			weekday,
			isWeekend,
			isMonthEnd,
		)
		if err != nil {
			return fmt.Errorf("failed to insert date dimension row %d: %w", dateKey, err)
		}
	}

	return nil
}

// Migrate brings the warehouse schema up to the expected version.
func (w *Warehouse) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := w.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Applying warehouse migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := w.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
