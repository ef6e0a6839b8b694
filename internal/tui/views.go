package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/bryan-buckman/pantry/internal/expiry"
	"github.com/bryan-buckman/pantry/internal/model"
	"github.com/bryan-buckman/pantry/internal/refresh"
)

var helpText = [numTabs]string{
	tabDashboard:     "tab/1-5 switch · r refresh · q quit",
	tabInventory:     "j/k move · f filter · - use one · d delete · r refresh · q quit",
	tabCalendar:      "tab/1-5 switch · r refresh · q quit",
	tabNotifications: "j/k move · enter mark read · r refresh · q quit",
	tabMeals:         "s suggest · j/k choose · c cooked it · x clear · pgup/pgdown scroll · q quit",
}

// View renders the UI.
func (m Model) View() string {
	snap := m.svc.Snapshot()

	var b strings.Builder
	b.WriteString(m.header(snap))
	b.WriteString("\n\n")

	if !snap.Loaded() && m.loading > 0 {
		b.WriteString(m.spinner.View() + " Loading…\n")
	} else {
		switch m.tab {
		case tabDashboard:
			b.WriteString(m.dashboardView(snap))
		case tabInventory:
			b.WriteString(m.inventoryView(snap))
		case tabCalendar:
			b.WriteString(m.calendarView(snap))
		case tabNotifications:
			b.WriteString(m.notificationsView(snap))
		case tabMeals:
			b.WriteString(m.mealsView())
		}
	}

	b.WriteString("\n")
	if len(snap.Errors) > 0 {
		srcs := make([]string, 0, len(snap.Errors))
		for _, src := range refresh.Sources {
			if _, ok := snap.Errors[src]; ok {
				srcs = append(srcs, string(src))
			}
		}
		b.WriteString(m.styles.Error.Render("Stale: "+strings.Join(srcs, ", ")) + "\n")
	}
	if m.confirm != "" {
		b.WriteString(m.styles.Prompt.Render(m.confirm) + "\n")
	} else if m.status != "" {
		b.WriteString(m.statusLine() + "\n")
	}
	if m.loading > 0 && snap.Loaded() {
		b.WriteString(m.spinner.View() + " working…\n")
	}
	b.WriteString(m.styles.Footer.Render(helpText[m.tab]))
	return b.String()
}

func (m Model) header(snap refresh.Snapshot) string {
	tabs := make([]string, 0, numTabs)
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if tab(i) == m.tab {
			tabs = append(tabs, m.styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	bell := "🔔 0"
	if snap.UnreadCount > 0 {
		bell = m.styles.Badge.Render(fmt.Sprintf("🔔 %d", snap.UnreadCount))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Title.Render("🥫 Pantry  "),
		strings.Join(tabs, ""),
		"  "+bell)
}

func (m Model) statusLine() string {
	switch m.statusKind {
	case statusError:
		return m.styles.Error.Render(m.status)
	case statusSuccess:
		return m.styles.Success.Render(m.status)
	}
	return m.styles.Info.Render(m.status)
}

func (m Model) dashboardView(snap refresh.Snapshot) string {
	card := func(label string, n int) string {
		return m.styles.Card.Render(fmt.Sprintf("%d\n%s", n, label))
	}
	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Items", snap.Stats.TotalItems),
		card("Expiring Soon", snap.Stats.ExpiringSoon),
		card("Expired", snap.Stats.Expired)))
	b.WriteString("\n\n")

	if len(snap.Stats.CategoryBreakdown) > 0 {
		names := make([]string, 0, len(snap.Stats.CategoryBreakdown))
		for name := range snap.Stats.CategoryBreakdown {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s %s %d", model.CategoryIcon(name),
				model.OptionLabel(model.Categories, name), snap.Stats.CategoryBreakdown[name])
		}
		b.WriteString(strings.Join(parts, "   ") + "\n\n")
	}

	b.WriteString(m.styles.Title.Render("Recent Items") + "\n")
	recent := expiry.Recent(snap.Items, 5)
	if len(recent) == 0 {
		b.WriteString(m.styles.Muted.Render("Nothing added yet.") + "\n")
	}
	for _, it := range recent {
		b.WriteString(fmt.Sprintf("  %s %s  %s\n", it.Icon(), it.Name,
			m.styles.Level(expiry.StatusFor(m.now(), it.ExpirationDate.Time))))
	}
	return b.String()
}

func (m Model) inventoryView(snap refresh.Snapshot) string {
	var b strings.Builder
	b.WriteString(m.styles.Muted.Render("Filter: "+model.OptionLabel(model.Filters, snap.Filter)) + "\n\n")
	if len(snap.Items) == 0 {
		b.WriteString(m.styles.Muted.Render("No items match this filter.") + "\n")
		return b.String()
	}
	for i, it := range snap.Items {
		line := fmt.Sprintf("%s %-22s %6s %-7s %-16s %s",
			it.Icon(), truncate(it.Name, 22), formatQty(it.Quantity), it.Unit,
			model.OptionLabel(model.StorageConditions, it.StorageCondition),
			m.styles.Level(expiry.StatusFor(m.now(), it.ExpirationDate.Time)))
		if i == m.cursor[tabInventory] {
			b.WriteString(m.styles.Selected.Render("› ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	if it, ok := m.selectedItem(); ok && it.StorageTips != "" {
		b.WriteString("\n" + m.styles.Muted.Render("💡 "+it.StorageTips) + "\n")
	}
	return b.String()
}

func (m Model) calendarView(snap refresh.Snapshot) string {
	days := expiry.GroupEventsByDay(snap.Events)
	if len(days) == 0 {
		return m.styles.Muted.Render("No upcoming events.") + "\n"
	}
	var b strings.Builder
	for _, d := range days {
		b.WriteString(m.styles.Title.Render(d.Date) + "\n")
		for _, ev := range d.Events {
			b.WriteString("  • " + ev.Title + "\n")
			if ev.Description != "" {
				b.WriteString("    " + m.styles.Muted.Render(ev.Description) + "\n")
			}
		}
	}
	return b.String()
}

func (m Model) notificationsView(snap refresh.Snapshot) string {
	if len(snap.Notifications) == 0 {
		return m.styles.Muted.Render("No notifications.") + "\n"
	}
	var b strings.Builder
	for i, n := range snap.Notifications {
		mark := "○"
		if !n.IsRead {
			mark = "●"
		}
		when := ""
		if !n.CreatedAt.IsZero() {
			when = humanize.RelTime(n.CreatedAt.Time, m.now(), "ago", "from now")
		}
		line := fmt.Sprintf("%s %s  %s", mark, n.Message, m.styles.Muted.Render(when))
		if i == m.cursor[tabNotifications] {
			b.WriteString(m.styles.Selected.Render("› ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

func (m Model) mealsView() string {
	recipes := m.svc.Recipes()
	if len(recipes) == 0 {
		return m.styles.Muted.Render("No suggestions yet. Press s for meal ideas.") + "\n"
	}
	var b strings.Builder
	for i, r := range recipes {
		line := fmt.Sprintf("%s  %s", r.Name, m.styles.Muted.Render(fmt.Sprintf("%d min · %d servings", r.TotalTime, r.Servings)))
		if i == m.cursor[tabMeals] {
			b.WriteString(m.styles.Selected.Render("› ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString("\n" + m.detail.View() + "\n")
	return b.String()
}

// recipeMarkdown lays a recipe out as markdown for glamour.
func recipeMarkdown(r model.Recipe) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Name)
	fmt.Fprintf(&b, "*%d min (prep %d, cook %d) · %d servings*\n\n", r.TotalTime, r.PrepTime, r.CookTime, r.Servings)
	if r.Description != "" {
		b.WriteString(r.Description + "\n\n")
	}
	b.WriteString("## Ingredients\n\n")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&b, "- %s %s %s", formatQty(ing.QuantityRequired), ing.Unit, ing.Name)
		if ing.InventoryItemID != nil {
			b.WriteString(" (in stock)")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n## Instructions\n\n")
	for i, step := range r.Instructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return b.String()
}

func formatQty(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
