// Package tui is the interactive terminal client.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/bryan-buckman/pantry/internal/app"
	"github.com/bryan-buckman/pantry/internal/model"
	"github.com/bryan-buckman/pantry/internal/refresh"
)

// actionTimeout bounds one user action. Meal suggestions are AI backed
// and slow.
const actionTimeout = 2 * time.Minute

type tab int

const (
	tabDashboard tab = iota
	tabInventory
	tabCalendar
	tabNotifications
	tabMeals
	numTabs
)

var tabNames = [numTabs]string{"Dashboard", "Inventory", "Calendar", "Notifications", "Meals"}

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)

// Options configure the terminal UI.
type Options struct {
	// Settings supplies the refresh interval, re-read after every refresh.
	Settings refresh.IntervalSource
	Logger   *zap.Logger
	// GlamourStyle names the recipe renderer style. Empty detects it from
	// the terminal.
	GlamourStyle string
	Now          func() time.Time
}

type (
	tickMsg      time.Time
	refreshedMsg struct {
		err       error
		scheduled bool
	}
	resultMsg struct {
		text string
		err  error
		// cleanup lists items an update or a cooked recipe left at zero.
		cleanup []model.FoodItem
	}
)

// Model is the bubbletea model of the terminal UI.
type Model struct {
	svc      *app.Service
	settings refresh.IntervalSource
	logger   *zap.Logger
	now      func() time.Time

	styles   Styles
	renderer *glamour.TermRenderer
	spinner  spinner.Model
	detail   viewport.Model

	tab        tab
	cursor     [numTabs]int
	confirm    string
	cleanups   []model.FoodItem
	status     string
	statusKind statusKind
	loading    int
	width      int
	height     int
}

// New builds the model. Call Run to start it on the terminal.
func New(svc *app.Service, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = DefaultStyles().Info

	style := glamour.WithAutoStyle()
	if opts.GlamourStyle != "" {
		style = glamour.WithStandardStyle(opts.GlamourStyle)
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(76))
	if err != nil {
		opts.Logger.Warn("recipe renderer unavailable", zap.Error(err))
		renderer = nil
	}

	return Model{
		svc:      svc,
		settings: opts.Settings,
		logger:   opts.Logger,
		now:      opts.Now,
		styles:   DefaultStyles(),
		renderer: renderer,
		spinner:  sp,
		detail:   viewport.New(80, 14),
		width:    80,
		height:   24,
	}
}

// Run starts the UI on the terminal and blocks until the user quits.
func Run(svc *app.Service, opts Options) error {
	p := tea.NewProgram(New(svc, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init starts the first refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(true), m.spinner.Tick)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.detail.Width = msg.Width
		m.detail.Height = max(5, msg.Height-12)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.loading++
		return m, m.refreshCmd(true)

	case refreshedMsg:
		m.loading = max(0, m.loading-1)
		if msg.err != nil {
			m.setStatus(statusError, "Refresh incomplete: "+msg.err.Error())
		} else if !msg.scheduled {
			m.setStatus(statusInfo, "Refreshed.")
		}
		m.clampCursors()
		if msg.scheduled {
			return m, m.tickCmd()
		}
		return m, nil

	case resultMsg:
		m.loading = max(0, m.loading-1)
		m.clampCursors()
		if msg.err != nil {
			m.setStatus(statusError, msg.text+": "+userMessage(msg.err))
		} else {
			m.setStatus(statusSuccess, msg.text)
		}
		m.cleanups = append(m.cleanups, msg.cleanup...)
		m.nextCleanup()
		if m.tab == tabMeals {
			m.syncDetail()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.confirm != "" {
		switch key {
		case "y", "Y":
			m.confirm = ""
			m.loading++
			return m, m.confirmDeleteCmd()
		case "n", "N", "esc":
			m.confirm = ""
			m.svc.CancelDelete()
			m.setStatus(statusInfo, "Delete cancelled.")
			m.nextCleanup()
		}
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "tab", "right", "l":
		m.switchTab((m.tab + 1) % numTabs)
		return m, nil
	case "shift+tab", "left", "h":
		m.switchTab((m.tab + numTabs - 1) % numTabs)
		return m, nil
	case "1", "2", "3", "4", "5":
		m.switchTab(tab(key[0] - '1'))
		return m, nil
	case "r":
		m.loading++
		return m, m.refreshCmd(false)
	case "j", "down":
		m.move(1)
		return m, nil
	case "k", "up":
		m.move(-1)
		return m, nil
	}

	switch m.tab {
	case tabInventory:
		return m.inventoryKey(key)
	case tabNotifications:
		if key == "enter" {
			if n, ok := m.selectedNotification(); ok && !n.IsRead {
				m.loading++
				return m, m.markReadCmd(n)
			}
		}
	case tabMeals:
		switch key {
		case "s":
			m.loading++
			m.setStatus(statusInfo, "Asking for meal ideas…")
			return m, m.suggestCmd()
		case "c", "enter":
			if len(m.svc.Recipes()) > 0 {
				m.loading++
				return m, m.cookCmd(m.cursor[tabMeals])
			}
		case "x":
			if len(m.svc.Recipes()) > 0 {
				m.svc.ClearSuggestions()
				m.cursor[tabMeals] = 0
				m.syncDetail()
				m.setStatus(statusInfo, "Suggestions cleared.")
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) inventoryKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "f":
		m.loading++
		return m, m.filterCmd(nextFilter(m.svc.State().Filter()))
	case "d":
		it, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		if err := m.svc.RequestDelete(it.ID); err != nil {
			m.setStatus(statusError, userMessage(err))
			return m, nil
		}
		m.confirm = fmt.Sprintf("Delete %s? (y/n)", it.Name)
	case "-":
		it, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		m.loading++
		return m, m.useOneCmd(it)
	}
	return m, nil
}

func (m *Model) switchTab(t tab) {
	if t < 0 || t >= numTabs {
		return
	}
	m.tab = t
	if t == tabMeals {
		m.syncDetail()
	}
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind, m.status = kind, text
}

func (m *Model) listLen(t tab) int {
	snap := m.svc.Snapshot()
	switch t {
	case tabInventory:
		return len(snap.Items)
	case tabNotifications:
		return len(snap.Notifications)
	case tabMeals:
		return len(m.svc.Recipes())
	}
	return 0
}

func (m *Model) move(delta int) {
	n := m.listLen(m.tab)
	if n == 0 {
		m.cursor[m.tab] = 0
		return
	}
	c := m.cursor[m.tab] + delta
	m.cursor[m.tab] = min(max(c, 0), n-1)
	if m.tab == tabMeals {
		m.syncDetail()
	}
}

func (m *Model) clampCursors() {
	for t := tab(0); t < numTabs; t++ {
		n := m.listLen(t)
		if m.cursor[t] >= n {
			m.cursor[t] = max(0, n-1)
		}
	}
}

func (m *Model) selectedItem() (model.FoodItem, bool) {
	items := m.svc.Snapshot().Items
	i := m.cursor[tabInventory]
	if i < 0 || i >= len(items) {
		return model.FoodItem{}, false
	}
	return items[i], true
}

func (m *Model) selectedNotification() (model.Notification, bool) {
	ns := m.svc.Snapshot().Notifications
	i := m.cursor[tabNotifications]
	if i < 0 || i >= len(ns) {
		return model.Notification{}, false
	}
	return ns[i], true
}

// syncDetail renders the selected recipe into the detail viewport.
func (m *Model) syncDetail() {
	recipes := m.svc.Recipes()
	i := m.cursor[tabMeals]
	if i < 0 || i >= len(recipes) {
		m.detail.SetContent("")
		return
	}
	md := recipeMarkdown(recipes[i])
	if m.renderer != nil {
		if out, err := m.renderer.Render(md); err == nil {
			md = out
		} else {
			m.logger.Debug("render recipe", zap.Error(err))
		}
	}
	m.detail.SetContent(md)
	m.detail.GotoTop()
}

func nextFilter(current string) string {
	for i, f := range model.Filters {
		if f.Value == current {
			return model.Filters[(i+1)%len(model.Filters)].Value
		}
	}
	return model.FilterAll
}

func userMessage(err error) string {
	if errors.Is(err, app.ErrBusy) {
		return "another request is still running"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "the backend did not answer in time"
	}
	return err.Error()
}

// --- Commands ---

func (m Model) tickCmd() tea.Cmd {
	d, err := refresh.ReadInterval(m.settings)
	if err != nil {
		m.logger.Warn("read refresh interval", zap.Error(err))
	}
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refreshCmd re-reads everything. Scheduled refreshes chain the next tick.
func (m Model) refreshCmd(scheduled bool) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refresh.FetchTimeout)
		defer cancel()
		return refreshedMsg{err: svc.Refresh(ctx), scheduled: scheduled}
	}
}

func (m Model) filterCmd(filter string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refresh.FetchTimeout)
		defer cancel()
		err := svc.SetFilter(ctx, filter)
		return resultMsg{text: "Filter: " + model.OptionLabel(model.Filters, filter), err: err}
	}
}

func (m Model) markReadCmd(n model.Notification) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := svc.MarkRead(ctx, n.ID); err != nil {
			return resultMsg{text: "Mark read failed", err: err}
		}
		return resultMsg{text: "Marked read."}
	}
}

// nextCleanup asks about the next used-up item while no question is open.
func (m *Model) nextCleanup() {
	for m.confirm == "" && len(m.cleanups) > 0 {
		it := m.cleanups[0]
		m.cleanups = m.cleanups[1:]
		if err := m.svc.RequestDelete(it.ID); err == nil {
			m.confirm = fmt.Sprintf("%s is used up. Delete it? (y/n)", it.Name)
		}
	}
}

func (m Model) confirmDeleteCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if _, err := svc.ConfirmDelete(ctx); err != nil {
			return resultMsg{text: "Delete failed", err: err}
		}
		return resultMsg{text: "Item deleted."}
	}
}

// useOneCmd takes one unit off an item, never going below zero.
func (m Model) useOneCmd(it model.FoodItem) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		q := max(0, it.Quantity-1)
		res, err := svc.UpdateItem(ctx, it.ID, model.ItemUpdate{Quantity: &q})
		if err != nil {
			return resultMsg{text: "Update failed", err: err}
		}
		out := resultMsg{text: fmt.Sprintf("%s: %s %s left.", res.Item.Name, formatQty(res.Item.Quantity), res.Item.Unit)}
		if res.NeedsCleanup {
			out.cleanup = []model.FoodItem{res.Item}
		}
		return out
	}
}

func (m Model) suggestCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		out, err := svc.SuggestMeals(ctx, model.DefaultMealRequest())
		if err != nil {
			return resultMsg{text: "Meal suggestions failed", err: err}
		}
		if !out.Success {
			return resultMsg{text: "No suggestions", err: errors.New(out.Message)}
		}
		return resultMsg{text: fmt.Sprintf("Found %d recipes using %d available items.", len(out.Recipes), out.AvailableItemsCount)}
	}
}

func (m Model) cookCmd(index int) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		rep, err := svc.CookRecipe(ctx, index)
		if err != nil {
			out := resultMsg{text: "Cooking failed", err: err}
			if rep != nil {
				out.cleanup = rep.Depleted
			}
			return out
		}
		return resultMsg{
			text:    fmt.Sprintf("Cooked %s: %d deducted, %d skipped.", rep.Recipe, len(rep.Applied), len(rep.Skipped)),
			cleanup: rep.Depleted,
		}
	}
}
