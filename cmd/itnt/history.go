package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/itnt/extension/internal/database"
	gormstorage "github.com/itnt/extension/internal/storage/gorm"
	"github.com/itnt/extension/pkg/core"
)

type historyConfig struct {
	db    string
	limit int
}

func newHistoryCmd() *cobra.Command {
	cfg := &historyConfig{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the latest lifecycle events from a sqlite journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.db, "db", "", "sqlite journal file, or a directory holding journal dumps")
	cmd.Flags().IntVar(&cfg.limit, "limit", 20, "number of events to print")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(out io.Writer, cfg *historyConfig) error {
	if cfg.limit <= 0 {
		return errors.New("limit must be positive")
	}
	path, err := resolveJournal(cfg.db)
	if err != nil {
		return err
	}

	db, err := database.OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	events, err := gormstorage.Recent(db, cfg.limit)
	if err != nil {
		return fmt.Errorf("reading journal: %w", err)
	}

	writeHistory(out, events)
	return nil
}

// resolveJournal accepts a journal file or a directory of dumps, in which case
// the newest dump is used.
func resolveJournal(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("opening journal: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}
	dumps, err := database.GetBackupDBPaths(path)
	if err != nil {
		return "", fmt.Errorf("listing journals: %w", err)
	}
	if len(dumps) == 0 {
		return "", fmt.Errorf("no journal files in %s", path)
	}
	return dumps[len(dumps)-1], nil
}

func writeHistory(out io.Writer, events []core.LifecycleEvent) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tKIND\tTYPE\tPOSITION\tIGNITER\tREASON")
	for _, e := range events {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s %.1f,%.1f,%.1f\t%s\t%s\n",
			e.Time.UTC().Format("2006-01-02 15:04:05"),
			e.Kind, e.TypeID,
			e.Position.World, e.Position.X, e.Position.Y, e.Position.Z,
			dash(e.Igniter), dash(e.Reason))
	}
	_ = w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
