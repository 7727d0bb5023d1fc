package main

import (
	"fmt"
	"time"

	"github.com/finsight/finsight/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the transactional store with sample data",
		Long: `Create a demo user with a year of deterministic sample transactions:
monthly salary, rent, groceries, utilities, a savings transfer, and an
occasional large one-off expense. Useful for trying out sync, analyze,
and recommend without a real data source.`,
		RunE: runSeed,
	}

	cmd.Flags().Int("months", 12, "Months of history to generate")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	months, _ := cmd.Flags().GetInt("months")
	if months <= 0 {
		months = 12
	}
	ctx := cmd.Context()

	src, err := openSource()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	userID, err := src.CreateUser(ctx, "demo", "demo@example.com")
	if err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}

	checkingID, err := src.CreateAccount(ctx, userID, "Demo Checking", "checking", "USD")
	if err != nil {
		return fmt.Errorf("failed to seed account: %w", err)
	}
	savingsID, err := src.CreateAccount(ctx, userID, "Demo Savings", "savings", "USD")
	if err != nil {
		return fmt.Errorf("failed to seed account: %w", err)
	}

	categories := map[string]int64{}
	for _, c := range []struct{ name, kind string }{
		{"Salary", "income"},
		{"Rent", "expense"},
		{"Groceries", "expense"},
		{"Utilities", "expense"},
		{"Shopping", "expense"},
	} {
		id, err := src.CreateCategory(ctx, userID, c.name, c.kind)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", c.name, err)
		}
		categories[c.name] = id
	}

	txns := sampleTransactions(userID, checkingID, savingsID, categories, months)
	inserted, err := src.SaveTransactions(ctx, txns)
	if err != nil {
		return fmt.Errorf("failed to seed transactions: %w", err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf(
		"Seeded user %d with %d transactions over %d months", userID, inserted, months)))
	fmt.Println(mutedStyle.Render("next: finsight sync, then finsight analyze " + fmt.Sprint(userID)))
	return nil
}

// sampleTransactions generates a fixed monthly pattern ending last month.
// Amounts drift slightly by month index so the series is not perfectly
// flat, and every third month carries a one-off spike purchase.
func sampleTransactions(userID, checkingID, savingsID int64, categories map[string]int64, months int) []model.Transaction {
	now := time.Now().UTC()
	firstMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -months, 0)

	var txns []model.Transaction
	add := func(month time.Time, day int, accountID, categoryID int64, txType model.TransactionType, amount decimal.Decimal, description string) {
		date := month.AddDate(0, 0, day-1)
		txns = append(txns, model.Transaction{
			UserID:      userID,
			AccountID:   accountID,
			CategoryID:  categoryID,
			Date:        date,
			Type:        txType,
			Amount:      amount,
			Description: description,
			ExternalID:  fmt.Sprintf("seed-%s-%d-%s", date.Format("20060102"), accountID, description),
		})
	}

	for i := 0; i < months; i++ {
		month := firstMonth.AddDate(0, i, 0)
		drift := decimal.NewFromInt(int64(i * 10))

		add(month, 1, checkingID, categories["Salary"], model.TypeIncome,
			decimal.NewFromInt(5200), "Monthly salary")
		add(month, 2, checkingID, categories["Rent"], model.TypeExpense,
			decimal.NewFromInt(1800), "Rent payment")
		add(month, 5, checkingID, categories["Groceries"], model.TypeExpense,
			decimal.NewFromInt(320).Add(drift), "Groceries week 1")
		add(month, 12, checkingID, categories["Groceries"], model.TypeExpense,
			decimal.NewFromInt(280).Add(drift), "Groceries week 2")
		add(month, 19, checkingID, categories["Groceries"], model.TypeExpense,
			decimal.NewFromInt(305), "Groceries week 3")
		add(month, 8, checkingID, categories["Utilities"], model.TypeExpense,
			decimal.NewFromInt(140), "Electricity and water")
		add(month, 3, savingsID, 0, model.TypeTransfer,
			decimal.NewFromInt(500), "Savings transfer")

		if i%3 == 2 {
			add(month, 21, checkingID, categories["Shopping"], model.TypeExpense,
				decimal.NewFromInt(1450), "One-off purchase")
		}
	}

	return txns
}
