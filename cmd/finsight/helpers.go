package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/finsight/finsight/internal/common"
	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/source"
	"github.com/finsight/finsight/internal/warehouse"
	"github.com/spf13/viper"
)

// Retry policy for opening stores: another process holding the sqlite
// write lock should not fail the command outright.
var openRetry = common.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     2 * time.Second,
}

// Shared output styles.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func openSource() (*source.Store, error) {
	dbPath := viper.GetString("source.db_path")
	if dbPath == "" {
		var err error
		if dbPath, err = config.DefaultSourcePath(); err != nil {
			return nil, err
		}
	}

	var store *source.Store
	err := common.WithRetry(context.Background(), func() error {
		var openErr error
		store, openErr = source.Open(dbPath)
		return openErr
	}, openRetry)
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}
	return store, nil
}

func openWarehouse() (*warehouse.Warehouse, error) {
	dbPath := viper.GetString("warehouse.db_path")
	if dbPath == "" {
		var err error
		if dbPath, err = config.DefaultWarehousePath(); err != nil {
			return nil, err
		}
	}

	var wh *warehouse.Warehouse
	err := common.WithRetry(context.Background(), func() error {
		var openErr error
		wh, openErr = warehouse.Open(dbPath)
		return openErr
	}, openRetry)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse database: %w", err)
	}
	return wh, nil
}

func classStyle(class string) lipgloss.Style {
	switch class {
	case "low":
		return successStyle
	case "medium":
		return warnStyle
	case "high":
		return errorStyle
	default:
		return mutedStyle
	}
}
