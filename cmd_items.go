package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/pantry/internal/expiry"
	"github.com/bryan-buckman/pantry/internal/model"
)

var (
	itemsFilter string
	itemsJSON   bool
	assumeYes   bool

	newItem = model.DefaultNewFoodItem()

	updName, updCategory, updUnit, updStorage, updExpires, updNotes, updEmoji string
	updQuantity                                                                float64
)

// =============================================================================
// ITEM COMMANDS
// =============================================================================

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage inventory items",
	Long: `List, add, edit and delete inventory items.

Subcommands:
  list       - List items, soonest-expiring first
  add        - Add an item
  update     - Edit fields of an item
  delete     - Delete an item
  ai-update  - Describe a change in plain words`,
	RunE: runItemsList,
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items, soonest-expiring first",
	RunE:  runItemsList,
}

var itemsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an item",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runItemsAdd,
}

var itemsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit fields of an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemsUpdate,
}

var itemsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemsDelete,
}

var itemsAIUpdateCmd = &cobra.Command{
	Use:   "ai-update <id> <instruction...>",
	Short: "Describe a change in plain words",
	Example: `  pantry items ai-update 42 "I used half of it"
  pantry items ai-update 42 move it to the freezer`,
	Args: cobra.MinimumNArgs(2),
	RunE: runItemsAIUpdate,
}

func init() {
	itemsCmd.PersistentFlags().StringVarP(&itemsFilter, "filter", "f", model.FilterAll, "Filter: all, expired, expiring_soon, fresh")
	itemsCmd.PersistentFlags().BoolVar(&itemsJSON, "json", false, "Print JSON")

	f := itemsAddCmd.Flags()
	f.Float64VarP(&newItem.Quantity, "qty", "q", newItem.Quantity, "Quantity")
	f.StringVarP(&newItem.Unit, "unit", "u", newItem.Unit, "Unit")
	f.StringVarP(&newItem.StorageCondition, "storage", "s", newItem.StorageCondition, "Storage condition")
	f.StringVar(&newItem.Category, "category", "", "Category (backend picks one when empty)")
	f.StringVar(&newItem.PurchaseDate, "purchased", "", "Purchase date, YYYY-MM-DD")
	f.StringVar(&newItem.Notes, "notes", "", "Notes")
	f.StringVar(&newItem.Emoji, "emoji", "", "Emoji")

	f = itemsUpdateCmd.Flags()
	f.StringVar(&updName, "name", "", "New name")
	f.StringVar(&updCategory, "category", "", "New category")
	f.Float64VarP(&updQuantity, "qty", "q", 0, "New quantity")
	f.StringVarP(&updUnit, "unit", "u", "", "New unit")
	f.StringVarP(&updStorage, "storage", "s", "", "New storage condition")
	f.StringVar(&updExpires, "expires", "", "New expiration date, YYYY-MM-DD")
	f.StringVar(&updNotes, "notes", "", "New notes")
	f.StringVar(&updEmoji, "emoji", "", "New emoji")
	f.BoolVarP(&assumeYes, "yes", "y", false, "Delete used-up items without asking")

	itemsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	itemsAIUpdateCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete used-up items without asking")

	itemsCmd.AddCommand(itemsListCmd, itemsAddCmd, itemsUpdateCmd, itemsDeleteCmd, itemsAIUpdateCmd)
}

func runItemsList(cmd *cobra.Command, args []string) error {
	if !expiry.ValidFilter(itemsFilter) {
		return fmt.Errorf("unknown filter %q", itemsFilter)
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	items, err := e.api.ListItems(ctx, itemsFilter)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	expiry.SortByExpiration(items)

	out := cmd.OutOrStdout()
	if itemsJSON {
		return writeJSON(out, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No items match this filter.")
		return nil
	}
	printItems(out, items, time.Now())
	return nil
}

func printItems(out io.Writer, items []model.FoodItem, now time.Time) {
	fmt.Fprintf(out, "%-38s %-22s %8s %-7s %-16s %s\n", "ID", "NAME", "QTY", "UNIT", "STORAGE", "STATUS")
	fmt.Fprintln(out, strings.Repeat("─", 104))
	for _, it := range items {
		st := expiry.StatusFor(now, it.ExpirationDate.Time)
		fmt.Fprintf(out, "%-38s %-22s %8s %-7s %-16s %s\n",
			it.ID, it.Icon()+" "+it.Name, strconv.FormatFloat(it.Quantity, 'f', -1, 64), it.Unit,
			model.OptionLabel(model.StorageConditions, it.StorageCondition), st.Label)
	}
	fmt.Fprintln(out, strings.Repeat("─", 104))
	fmt.Fprintf(out, "Total: %d items\n", len(items))
}

func runItemsAdd(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	in := newItem
	in.Name = strings.Join(args, " ")
	item, err := e.svc.AddItem(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s %s (%s), %s\n", item.Icon(), item.Name, item.ID,
		expiry.StatusFor(time.Now(), item.ExpirationDate.Time).Label)
	return nil
}

// itemUpdate collects the flags the user actually set.
func itemUpdate(cmd *cobra.Command) model.ItemUpdate {
	var upd model.ItemUpdate
	f := cmd.Flags()
	str := func(name string, v string) *string {
		if !f.Changed(name) {
			return nil
		}
		return &v
	}
	upd.Name = str("name", updName)
	upd.Category = str("category", updCategory)
	upd.Unit = str("unit", updUnit)
	upd.StorageCondition = str("storage", updStorage)
	upd.ExpirationDate = str("expires", updExpires)
	upd.Notes = str("notes", updNotes)
	upd.Emoji = str("emoji", updEmoji)
	if f.Changed("qty") {
		q := updQuantity
		upd.Quantity = &q
	}
	return upd
}

func runItemsUpdate(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	res, err := e.svc.UpdateItem(ctx, args[0], itemUpdate(cmd))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Updated %s\n", res.Item.Name)
	if res.NeedsCleanup {
		return offerCleanup(cmd, e, res.Item)
	}
	return nil
}

// offerCleanup asks whether a used-up item should go.
func offerCleanup(cmd *cobra.Command, e *env, item model.FoodItem) error {
	out := cmd.OutOrStdout()
	if !assumeYes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("%s is used up. Delete it?", item.Name)) {
		fmt.Fprintln(out, "Kept.")
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()
	if err := e.svc.DeleteItem(ctx, item.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Deleted %s\n", item.Name)
	return nil
}

func runItemsDelete(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	item, err := e.svc.Item(ctx, args[0])
	if err != nil {
		return err
	}
	if err := e.svc.RequestDelete(item.ID); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !assumeYes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Delete %s?", item.Name)) {
		e.svc.CancelDelete()
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	if _, err := e.svc.ConfirmDelete(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Deleted %s\n", item.Name)
	return nil
}

func runItemsAIUpdate(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	outcome, err := e.svc.AIUpdate(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if outcome.Message != "" {
		fmt.Fprintln(out, outcome.Message)
	}
	if len(outcome.Ignored) > 0 {
		fmt.Fprintf(out, "Ignored fields: %s\n", strings.Join(outcome.Ignored, ", "))
	}
	if outcome.Result == nil {
		fmt.Fprintln(out, "Nothing to change.")
		return nil
	}
	fmt.Fprintf(out, "✓ Updated %s\n", outcome.Result.Item.Name)
	if outcome.Result.NeedsCleanup {
		return offerCleanup(cmd, e, outcome.Result.Item)
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
