package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/pantry/internal/database"
	"github.com/bryan-buckman/pantry/internal/expiry"
	"github.com/bryan-buckman/pantry/internal/model"
	"github.com/bryan-buckman/pantry/internal/transfer"
)

var exportFilter string

// =============================================================================
// IMPORT, EXPORT AND SETTINGS
// =============================================================================

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Add items from a CSV file",
	Long: `Adds every row of a CSV file as a new item. The header row names the
columns; only name is required. The export format reads back as is, and
expiration dates are left to the backend. Rows that fail validation are
reported and skipped. Use - to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the inventory as CSV",
	Long: `Writes every item as CSV. --filter keeps only items in one expiry
bucket, judged against today's date.`,
	RunE: runExport,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change local settings",
	RunE:  runSettingsGet,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show local settings",
	RunE:  runSettingsGet,
}

var settingsIntervalCmd = &cobra.Command{
	Use:   "set-interval <seconds>",
	Short: "Set the polling interval",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsInterval,
}

func init() {
	exportCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringVarP(&exportFilter, "filter", "f", model.FilterAll, "Filter: all, expired, expiring_soon, fresh")
	settingsCmd.AddCommand(settingsGetCmd, settingsIntervalCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	items, parseErr := transfer.ReadItemsCSV(in)
	var rowErr *transfer.RowError
	if parseErr != nil && !errors.As(parseErr, &rowErr) {
		return fmt.Errorf("read %s: %w", args[0], parseErr)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	rep, err := e.svc.ImportItems(ctx, items)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d of %d items.\n", len(rep.Added), len(items))
	if parseErr != nil {
		fmt.Fprintf(out, "  rejected rows: %v\n", parseErr)
	}
	idx := make([]int, 0, len(rep.Failed))
	for i := range rep.Failed {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		fmt.Fprintf(out, "  %s: %v\n", items[i].Name, rep.Failed[i])
	}
	if len(rep.Failed) > 0 || parseErr != nil {
		return fmt.Errorf("%d rows not imported", len(items)-len(rep.Added)+countRows(parseErr))
	}
	return nil
}

func countRows(err error) int {
	if err == nil {
		return 0
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return len(joined.Unwrap())
	}
	return 1
}

func runExport(cmd *cobra.Command, args []string) error {
	if !expiry.ValidFilter(exportFilter) {
		return fmt.Errorf("unknown filter %q", exportFilter)
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	items, err := e.svc.AllItems(ctx)
	if err != nil {
		return err
	}
	items = expiry.Filter(items, exportFilter, time.Now())
	return writeOutput(cmd, outPath, func(w io.Writer) error {
		return transfer.WriteItemsCSV(w, items)
	})
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	interval, err := e.store.GetRefreshInterval()
	if err != nil {
		return err
	}
	filter, err := e.store.GetInventoryFilter()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d\n", model.SettingRefreshInterval, interval)
	fmt.Fprintf(out, "%s: %s\n", model.SettingInventoryFilter, filter)
	return nil
}

func runSettingsInterval(cmd *cobra.Command, args []string) error {
	secs, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("interval must be a whole number of seconds: %w", err)
	}
	secs = max(secs, database.MinRefreshIntervalSeconds)

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.store.SetSetting(model.SettingRefreshInterval, strconv.Itoa(secs)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Polling every %ds\n", secs)
	return nil
}
