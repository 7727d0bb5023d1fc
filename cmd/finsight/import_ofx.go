package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/finsight/finsight/internal/model"
	"github.com/finsight/finsight/internal/ofx"
	"github.com/finsight/finsight/internal/source"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX statements",
		Long: `Import bank statement files into the transactional store. Statement
accounts are matched to source accounts by name and created when missing.
Rows are deduplicated on the statement's transaction id, so re-importing
a file is safe.

Examples:
  finsight import-ofx --user 1 ~/Downloads/checking_jan.qfx
  finsight import-ofx --user 1 ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().Int64("user", 0, "Owning user id (required)")
	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	files, err := expandPatterns(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to import")
	}

	src, err := openSource()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	parser := ofx.NewParser()
	totalParsed, totalSaved := 0, 0

	for _, filePath := range files {
		statements, err := parseOFXFile(ctx, parser, filePath)
		if err != nil {
			slog.Error("Failed to parse statement file", "file", filePath, "error", err)
			continue
		}

		for _, stmt := range statements {
			totalParsed += len(stmt.Transactions)
			if dryRun {
				fmt.Printf("%s %s: %d transactions\n",
					mutedStyle.Render("would import"), stmt.AccountRef, len(stmt.Transactions))
				continue
			}

			saved, err := importStatement(cmd, src, userID, stmt)
			if err != nil {
				return fmt.Errorf("importing account %s from %s: %w",
					stmt.AccountRef, filepath.Base(filePath), err)
			}
			totalSaved += saved
		}
	}

	if dryRun {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("dry run: %d transactions parsed, none saved", totalParsed)))
		return nil
	}

	fmt.Println(successStyle.Render(fmt.Sprintf(
		"Imported %d new transactions (%d parsed, %d already present)",
		totalSaved, totalParsed, totalParsed-totalSaved)))
	return nil
}

func expandPatterns(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}
	return files, nil
}

func parseOFXFile(ctx context.Context, parser *ofx.Parser, filePath string) ([]ofx.Statement, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return parser.ParseFile(ctx, f)
}

// importStatement saves one statement's transactions under the matching
// source account, creating the account when the statement names a new one.
func importStatement(cmd *cobra.Command, src *source.Store, userID int64, stmt ofx.Statement) (int, error) {
	ctx := cmd.Context()

	accountID, err := resolveAccount(cmd, src, userID, stmt)
	if err != nil {
		return 0, err
	}

	txns := make([]model.Transaction, len(stmt.Transactions))
	for i, txn := range stmt.Transactions {
		txn.UserID = userID
		txn.AccountID = accountID
		txns[i] = txn
	}

	return src.SaveTransactions(ctx, txns)
}

func resolveAccount(cmd *cobra.Command, src *source.Store, userID int64, stmt ofx.Statement) (int64, error) {
	accounts, err := src.ReadAccounts(cmd.Context())
	if err != nil {
		return 0, err
	}
	for _, account := range accounts {
		if account.UserID == userID && account.Name == stmt.AccountRef {
			return account.ID, nil
		}
	}

	currency := stmt.Currency
	if currency == "" {
		currency = "USD"
	}
	slog.Info("Creating account for statement",
		"account", stmt.AccountRef,
		"currency", currency)
	return src.CreateAccount(cmd.Context(), userID, stmt.AccountRef, "checking", currency)
}
