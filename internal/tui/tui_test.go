package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bryan-buckman/pantry/internal/api"
	"github.com/bryan-buckman/pantry/internal/api/apitest"
	"github.com/bryan-buckman/pantry/internal/app"
	"github.com/bryan-buckman/pantry/internal/model"
	"github.com/bryan-buckman/pantry/internal/refresh"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func newTestModel(t *testing.T) (Model, *apitest.Backend, *app.Service) {
	t.Helper()
	b := apitest.New()
	t.Cleanup(b.Close)

	c, err := api.New(b.URL())
	require.NoError(t, err)
	f := refresh.NewFetcher(c, refresh.NewState(model.FilterAll), nil)
	svc := app.NewService(c, f, nil, nil)
	return New(svc, Options{GlamourStyle: "notty"}), b, svc
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msg to m and runs the returned command once, feeding its
// result back. Commands that only schedule ticks are not run.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	switch out := cmd().(type) {
	case refreshedMsg, resultMsg:
		next, _ = m.Update(out)
		m = next.(Model)
	}
	return m
}

func TestViewTabs(t *testing.T) {
	m, b, svc := newTestModel(t)
	b.AddItem(model.FoodItem{
		Name: "Milk", Category: model.CategoryDairy, Quantity: 1, Unit: model.UnitLiter,
		StorageCondition: model.StorageRefrigerated,
		ExpirationDate:   model.NewTime(time.Now().Add(30 * time.Hour)),
	})
	b.AddNotification(model.Notification{ID: "n1", Message: "Milk expires tomorrow"})
	b.AddEvent(model.CalendarEvent{ID: "e1", Title: "Milk expires", EventDate: model.NewTime(time.Now().Add(30 * time.Hour))})
	require.NoError(t, svc.Refresh(context.Background()))

	view := m.View()
	assert.Contains(t, view, "Recent Items")
	assert.Contains(t, view, "Milk")
	assert.Contains(t, view, "🔔 1")

	m = send(t, m, runes("2"))
	assert.Contains(t, m.View(), "Refrigerated")
	assert.Contains(t, m.View(), "2 days left")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Contains(t, m.View(), "Milk expires")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Contains(t, m.View(), "Milk expires tomorrow")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, tabDashboard, m.tab)
}

func TestRefreshKey(t *testing.T) {
	m, b, _ := newTestModel(t)
	b.AddItem(model.FoodItem{Name: "Rice"})

	m = send(t, m, runes("r"))
	assert.Equal(t, "Refreshed.", m.status)
	assert.Zero(t, m.loading)
	assert.Contains(t, m.View(), "Rice")

	b.FailNext("GET /api/dashboard/stats", 1)
	m = send(t, m, runes("r"))
	assert.Equal(t, statusError, m.statusKind)
	assert.Contains(t, m.View(), "Stale: stats")
}

func TestFilterCycle(t *testing.T) {
	m, b, svc := newTestModel(t)
	b.AddItem(model.FoodItem{Name: "Old Bread", ExpirationDate: model.NewTime(time.Now().Add(-48 * time.Hour))})
	require.NoError(t, svc.Refresh(context.Background()))

	m = send(t, m, runes("2"))
	m = send(t, m, runes("f"))
	assert.Equal(t, nextFilter(model.FilterAll), svc.State().Filter())
	assert.Contains(t, m.View(), "Filter: ")
}

func TestDeleteConfirm(t *testing.T) {
	m, b, svc := newTestModel(t)
	b.AddItem(model.FoodItem{Name: "Yogurt", Quantity: 1})
	b.AddItem(model.FoodItem{Name: "Cheese", Quantity: 1})
	require.NoError(t, svc.Refresh(context.Background()))

	m = send(t, m, runes("2"))
	m = send(t, m, runes("d"))
	assert.Contains(t, m.View(), "(y/n)")

	m = send(t, m, runes("n"))
	assert.Empty(t, m.confirm)
	assert.Equal(t, 2, b.ItemCount())

	m = send(t, m, runes("d"))
	m = send(t, m, runes("y"))
	assert.Equal(t, "Item deleted.", m.status)
	assert.Equal(t, 1, b.ItemCount())
	_, pending := svc.PendingDelete()
	assert.False(t, pending)
}

func TestUseOneAsksForCleanup(t *testing.T) {
	m, b, svc := newTestModel(t)
	it := b.AddItem(model.FoodItem{Name: "Lemon", Quantity: 1, Unit: model.UnitEach})
	require.NoError(t, svc.Refresh(context.Background()))

	m = send(t, m, runes("2"))
	m = send(t, m, runes("-"))
	got, _ := b.Item(it.ID)
	assert.Zero(t, got.Quantity)
	assert.Contains(t, m.confirm, "Lemon is used up")

	m = send(t, m, runes("y"))
	assert.Zero(t, b.ItemCount())
}

func TestMarkReadKey(t *testing.T) {
	m, b, svc := newTestModel(t)
	b.AddNotification(model.Notification{ID: "n1", Message: "Eggs expire soon"})
	require.NoError(t, svc.Refresh(context.Background()))

	m = send(t, m, runes("4"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	n, _ := b.Notification("n1")
	assert.True(t, n.IsRead)
	assert.Zero(t, svc.Snapshot().UnreadCount)
	assert.Equal(t, "Marked read.", m.status)
}

func TestMealsSuggestAndCook(t *testing.T) {
	m, b, svc := newTestModel(t)
	it := b.AddItem(model.FoodItem{Name: "Rice", Quantity: 2, Unit: model.UnitLbs})
	b.Recipes = []model.Recipe{{
		Name: "Fried Rice", TotalTime: 20, Servings: 2,
		Ingredients:  []model.RecipeIngredient{{Name: "Rice", QuantityRequired: 0.5, Unit: model.UnitLbs, InventoryItemID: &it.ID}},
		Instructions: []string{"Fry the rice"},
	}}
	require.NoError(t, svc.Refresh(context.Background()))

	m = send(t, m, runes("5"))
	assert.Contains(t, m.View(), "Press s")

	m = send(t, m, runes("s"))
	assert.Contains(t, m.status, "Found 1 recipes")
	view := m.View()
	assert.Contains(t, view, "Fried Rice")
	assert.Contains(t, view, "20 min · 2 servings")

	m = send(t, m, runes("c"))
	assert.Contains(t, m.status, "Cooked Fried Rice")
	got, _ := b.Item(it.ID)
	assert.Equal(t, 1.5, got.Quantity)
}

func TestCookAsksAboutEachUsedUpItem(t *testing.T) {
	m, b, svc := newTestModel(t)
	eggs := b.AddItem(model.FoodItem{Name: "Eggs", Quantity: 2, Unit: model.UnitEach})
	milk := b.AddItem(model.FoodItem{Name: "Milk", Quantity: 1, Unit: model.UnitGallon})
	b.Recipes = []model.Recipe{{
		Name: "Custard",
		Ingredients: []model.RecipeIngredient{
			{Name: "Eggs", QuantityRequired: 2, Unit: model.UnitEach, InventoryItemID: &eggs.ID},
			{Name: "Milk", QuantityRequired: 1, Unit: model.UnitGallon, InventoryItemID: &milk.ID},
		},
	}}
	require.NoError(t, svc.Refresh(context.Background()))

	m = send(t, m, runes("5"))
	m = send(t, m, runes("s"))
	m = send(t, m, runes("c"))
	assert.Contains(t, m.status, "Cooked Custard")
	assert.Contains(t, m.confirm, "Eggs is used up")
	id, pending := svc.PendingDelete()
	require.True(t, pending)
	assert.Equal(t, eggs.ID, id)

	m = send(t, m, runes("n"))
	assert.Contains(t, m.confirm, "Milk is used up")
	id, _ = svc.PendingDelete()
	assert.Equal(t, milk.ID, id)

	m = send(t, m, runes("y"))
	assert.Empty(t, m.confirm)
	assert.Equal(t, "Item deleted.", m.status)
	_, ok := b.Item(milk.ID)
	assert.False(t, ok)
	_, ok = b.Item(eggs.ID)
	assert.True(t, ok)
}

func TestClearSuggestionsKey(t *testing.T) {
	m, b, svc := newTestModel(t)
	b.AddItem(model.FoodItem{Name: "Rice", Quantity: 1, Unit: model.UnitLbs})
	b.Recipes = []model.Recipe{{Name: "Fried Rice"}}
	require.NoError(t, svc.Refresh(context.Background()))

	m = send(t, m, runes("5"))
	m = send(t, m, runes("s"))
	require.Len(t, svc.Recipes(), 1)

	m = send(t, m, runes("x"))
	assert.Empty(t, svc.Recipes())
	assert.Equal(t, "Suggestions cleared.", m.status)
	assert.Contains(t, m.View(), "Press s")
}

func TestMealsEmptyInventory(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = send(t, m, runes("5"))
	m = send(t, m, runes("s"))
	assert.Equal(t, statusError, m.statusKind)
	assert.Contains(t, m.status, "No available ingredients")
}

func TestCursorStaysInRange(t *testing.T) {
	m, b, svc := newTestModel(t)
	b.AddItem(model.FoodItem{Name: "A"})
	b.AddItem(model.FoodItem{Name: "B"})
	require.NoError(t, svc.Refresh(context.Background()))

	m = send(t, m, runes("2"))
	for i := 0; i < 5; i++ {
		m = send(t, m, runes("j"))
	}
	assert.Equal(t, 1, m.cursor[tabInventory])
	m = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor[tabInventory])
}

func TestRecipeMarkdown(t *testing.T) {
	id := "item-1"
	md := recipeMarkdown(model.Recipe{
		Name: "Omelette", PrepTime: 5, CookTime: 5, TotalTime: 10, Servings: 1,
		Ingredients: []model.RecipeIngredient{
			{Name: "eggs", QuantityRequired: 2, Unit: "each", InventoryItemID: &id},
			{Name: "salt", QuantityRequired: 0.25, Unit: "tsp"},
		},
		Instructions: []string{"Whisk", "Cook"},
	})
	assert.True(t, strings.HasPrefix(md, "# Omelette\n"))
	assert.Contains(t, md, "- 2 each eggs (in stock)\n")
	assert.Contains(t, md, "- 0.25 tsp salt\n")
	assert.Contains(t, md, "2. Cook\n")
}

func TestNextFilter(t *testing.T) {
	seen := map[string]bool{}
	f := model.FilterAll
	for range model.Filters {
		seen[f] = true
		f = nextFilter(f)
	}
	assert.Equal(t, model.FilterAll, f)
	assert.Len(t, seen, len(model.Filters))
	assert.Equal(t, model.FilterAll, nextFilter("bogus"))
}
