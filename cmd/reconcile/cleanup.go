package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/report"
)

func cleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old comparison records",
		RunE:  runCleanup,
	}

	cmd.Flags().Int("days", 0, "delete records older than N days (default: database.retention_days)")

	return cmd
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	days, _ := cmd.Flags().GetInt("days")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if days <= 0 {
		days = cfg.Database.RetentionDays
	}
	if days <= 0 {
		return common.NewUserError("Retention is disabled; pass --days to clean up", common.ErrInvalidConfig)
	}

	ctx := cmd.Context()
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cutoff := time.Now().AddDate(0, 0, -days)
	removed, err := store.CleanupOldRecords(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	slog.Info("Cleaned up comparison history", "removed", removed, "older_than", cutoff.Format(time.DateOnly))
	fmt.Fprintln(cmd.OutOrStdout(), report.FormatSuccess(fmt.Sprintf("Removed %d records older than %d days", removed, days)))
	return nil
}
