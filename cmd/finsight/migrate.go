package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run warehouse migrations",
		Long: `Initialize or update the warehouse schema to the latest version,
including the pre-populated date dimension. sync runs this automatically;
the command exists for provisioning a warehouse ahead of the first load.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	wh, err := openWarehouse()
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	slog.Info("Running warehouse migrations...")
	if err := wh.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println(successStyle.Render("Warehouse schema is up to date"))
	return nil
}
