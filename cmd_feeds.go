package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bryan-buckman/pantry/internal/expiry"
	"github.com/bryan-buckman/pantry/internal/model"
	"github.com/bryan-buckman/pantry/internal/transfer"
)

var (
	unreadOnly bool
	outPath    string
)

// =============================================================================
// NOTIFICATIONS, CALENDAR AND STATS
// =============================================================================

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Show expiration notifications",
	RunE:    runNotificationsList,
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, newest first",
	RunE:  runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsRead,
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show upcoming expiration events",
	RunE:  runCalendarList,
}

var calendarListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events grouped by day",
	RunE:  runCalendarList,
}

var calendarExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write events as an iCalendar file",
	RunE:  runCalendarExport,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard statistics",
	RunE:  runStats,
}

func init() {
	notificationsCmd.PersistentFlags().BoolVar(&unreadOnly, "unread", false, "Only unread notifications")
	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd)

	calendarExportCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default stdout)")
	calendarCmd.AddCommand(calendarListCmd, calendarExportCmd)
}

func runNotificationsList(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	list, err := e.api.ListNotifications(ctx)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}
	unread, err := e.api.UnreadCount(ctx)
	if err != nil {
		return fmt.Errorf("unread count: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🔔 %d unread\n", unread)
	fmt.Fprintln(out, strings.Repeat("─", 50))
	now := time.Now()
	shown := 0
	for _, n := range list {
		if unreadOnly && n.IsRead {
			continue
		}
		mark := "○"
		if !n.IsRead {
			mark = "●"
		}
		when := ""
		if !n.CreatedAt.IsZero() {
			when = " (" + humanize.RelTime(n.CreatedAt.Time, now, "ago", "from now") + ")"
		}
		fmt.Fprintf(out, "%s %s  %s%s\n", mark, n.ID, n.Message, when)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(out, "No notifications.")
	}
	return nil
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	if err := e.svc.MarkRead(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Marked read. %d unread.\n", e.svc.Snapshot().UnreadCount)
	return nil
}

func runCalendarList(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	events, err := e.api.ListCalendarEvents(ctx)
	if err != nil {
		return fmt.Errorf("list calendar events: %w", err)
	}
	out := cmd.OutOrStdout()
	days := expiry.GroupEventsByDay(events)
	if len(days) == 0 {
		fmt.Fprintln(out, "No upcoming events.")
		return nil
	}
	for _, d := range days {
		fmt.Fprintf(out, "📅 %s\n", d.Date)
		for _, ev := range d.Events {
			fmt.Fprintf(out, "  • %s\n", ev.Title)
			if ev.Description != "" {
				fmt.Fprintf(out, "    %s\n", ev.Description)
			}
		}
	}
	return nil
}

func runCalendarExport(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	events, err := e.api.ListCalendarEvents(ctx)
	if err != nil {
		return fmt.Errorf("list calendar events: %w", err)
	}
	return writeOutput(cmd, outPath, func(w io.Writer) error {
		return transfer.WriteCalendar(w, "Pantry", events, time.Now())
	})
}

func runStats(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	stats, err := e.api.DashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("dashboard stats: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total items:    %d\n", stats.TotalItems)
	fmt.Fprintf(out, "Expiring soon:  %d\n", stats.ExpiringSoon)
	fmt.Fprintf(out, "Expired:        %d\n", stats.Expired)
	if len(stats.CategoryBreakdown) == 0 {
		return nil
	}
	fmt.Fprintln(out, strings.Repeat("─", 30))
	names := make([]string, 0, len(stats.CategoryBreakdown))
	for name := range stats.CategoryBreakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%s %-14s %d\n", model.CategoryIcon(name),
			model.OptionLabel(model.Categories, name), stats.CategoryBreakdown[name])
	}
	return nil
}

// writeOutput runs write against path, or stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", path)
	return nil
}
