package app

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/pantry/internal/api"
	"github.com/bryan-buckman/pantry/internal/api/apitest"
	"github.com/bryan-buckman/pantry/internal/database"
	"github.com/bryan-buckman/pantry/internal/model"
	"github.com/bryan-buckman/pantry/internal/refresh"
)

type fixture struct {
	backend *apitest.Backend
	store   *database.DB
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := apitest.New()
	t.Cleanup(b.Close)

	store, err := database.New(filepath.Join(t.TempDir(), "pantry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c, err := api.New(b.URL())
	require.NoError(t, err)
	f := refresh.NewFetcher(c, refresh.NewState(model.FilterAll), nil)
	return &fixture{backend: b, store: store, svc: NewService(c, f, store, nil)}
}

func strp(s string) *string { return &s }

func fltp(f float64) *float64 { return &f }

func TestAddItemValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	cases := map[string]model.NewFoodItem{
		"blank name":   {Name: "  ", Quantity: 1},
		"zero qty":     {Name: "Rice", Quantity: 0},
		"bad unit":     {Name: "Rice", Quantity: 1, Unit: "bushel"},
		"bad storage":  {Name: "Rice", Quantity: 1, StorageCondition: "attic"},
		"bad category": {Name: "Rice", Quantity: 1, Category: "grain"},
		"bad date":     {Name: "Rice", Quantity: 1, PurchaseDate: "yesterday"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fx.svc.AddItem(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, fx.backend.Calls("POST /api/food-items"))
}

func TestAddItemSubmitsAndRefreshes(t *testing.T) {
	fx := newFixture(t)

	item, err := fx.svc.AddItem(context.Background(), model.NewFoodItem{
		Name: " Basmati Rice ", Quantity: 2, Unit: "LBS", PurchaseDate: "2025-06-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "Basmati Rice", item.Name)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(fx.backend.LastBody("POST /api/food-items"), &sent))
	assert.Equal(t, "lbs", sent["unit"])
	assert.Equal(t, "pantry", sent["storage_condition"])
	assert.Equal(t, "2025-06-01T00:00:00Z", sent["purchase_date"])

	assert.Equal(t, 1, fx.backend.Calls("GET /api/food-items"))
	snap := fx.svc.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, item.ID, snap.Items[0].ID)
	assert.False(t, fx.svc.Busy())
}

func TestSubmissionWhileBusy(t *testing.T) {
	fx := newFixture(t)
	done, err := fx.svc.begin()
	require.NoError(t, err)

	_, err = fx.svc.AddItem(context.Background(), model.NewFoodItem{Name: "Tea", Quantity: 1})
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, fx.svc.Busy())

	done()
	_, err = fx.svc.AddItem(context.Background(), model.NewFoodItem{Name: "Tea", Quantity: 1})
	assert.NoError(t, err)
}

func TestUpdateItem(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	it := fx.backend.AddItem(model.FoodItem{Name: "Eggs", Quantity: 12, Unit: model.UnitEach})

	res, err := fx.svc.UpdateItem(ctx, it.ID, model.ItemUpdate{Quantity: fltp(8), ExpirationDate: strp("2025-07-01")})
	require.NoError(t, err)
	assert.Equal(t, 8.0, res.Item.Quantity)
	assert.False(t, res.NeedsCleanup)
	assert.Equal(t, "2025-07-01", res.Item.ExpirationDate.DateString())

	res, err = fx.svc.UpdateItem(ctx, it.ID, model.ItemUpdate{Quantity: fltp(0)})
	require.NoError(t, err)
	assert.True(t, res.NeedsCleanup)

	_, err = fx.svc.UpdateItem(ctx, it.ID, model.ItemUpdate{ExpirationDate: strp("07/01/2025")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = fx.svc.UpdateItem(ctx, it.ID, model.ItemUpdate{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = fx.svc.UpdateItem(ctx, it.ID, model.ItemUpdate{Quantity: fltp(-1)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = fx.svc.UpdateItem(ctx, "missing", model.ItemUpdate{Notes: strp("x")})
	assert.True(t, api.IsNotFound(err))
}

func TestAIUpdateAppliesSuggestedFields(t *testing.T) {
	fx := newFixture(t)
	it := fx.backend.AddItem(model.FoodItem{Name: "Chicken", Quantity: 2, Unit: model.UnitLbs, StorageCondition: model.StorageRefrigerated})
	fx.backend.AIFields = map[string]interface{}{
		"storage_condition": "frozen",
		"quantity":          "1.5",
		"expiration_date":   "2025-09-01T00:00:00",
		"confidence":        0.9,
	}

	out, err := fx.svc.AIUpdate(context.Background(), it.ID, "froze half of it")
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, []string{"confidence"}, out.Ignored)
	assert.Equal(t, model.StorageFrozen, out.Result.Item.StorageCondition)
	assert.Equal(t, 1.5, out.Result.Item.Quantity)

	assert.JSONEq(t, `{"storage_condition":"frozen","quantity":1.5,"expiration_date":"2025-09-01"}`,
		string(fx.backend.LastBody("PUT /api/food-items/{id}")))
}

func TestAIUpdateWithoutFields(t *testing.T) {
	fx := newFixture(t)
	it := fx.backend.AddItem(model.FoodItem{Name: "Bread", Quantity: 1})

	_, err := fx.svc.AIUpdate(context.Background(), it.ID, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	out, err := fx.svc.AIUpdate(context.Background(), it.ID, "looks fine")
	require.NoError(t, err)
	assert.Nil(t, out.Result)
	assert.Zero(t, fx.backend.Calls("PUT /api/food-items/{id}"))
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	it := fx.backend.AddItem(model.FoodItem{Name: "Ham"})

	_, err := fx.svc.ConfirmDelete(ctx)
	assert.ErrorIs(t, err, ErrNoPendingDelete)

	require.NoError(t, fx.svc.RequestDelete(it.ID))
	fx.svc.CancelDelete()
	_, err = fx.svc.ConfirmDelete(ctx)
	assert.ErrorIs(t, err, ErrNoPendingDelete)
	assert.Equal(t, 1, fx.backend.ItemCount())

	require.NoError(t, fx.svc.RequestDelete(it.ID))
	pending, ok := fx.svc.PendingDelete()
	require.True(t, ok)
	assert.Equal(t, it.ID, pending)

	id, err := fx.svc.ConfirmDelete(ctx)
	require.NoError(t, err)
	assert.Equal(t, it.ID, id)
	assert.Zero(t, fx.backend.ItemCount())
	_, ok = fx.svc.PendingDelete()
	assert.False(t, ok)
}

func TestMarkReadRefreshesNotifications(t *testing.T) {
	fx := newFixture(t)
	fx.backend.AddNotification(model.Notification{ID: "n1", Message: "Milk expires today!"})
	fx.backend.AddNotification(model.Notification{ID: "n2", Message: "Ham has expired"})

	require.NoError(t, fx.svc.MarkRead(context.Background(), "n1"))

	snap := fx.svc.Snapshot()
	assert.Equal(t, 1, snap.UnreadCount)
	assert.Len(t, snap.Notifications, 2)
	assert.Equal(t, 1, fx.backend.Calls("GET /api/notifications"))
	assert.Equal(t, 1, fx.backend.Calls("GET /api/notifications/unread"))
	assert.Zero(t, fx.backend.Calls("GET /api/food-items"))
}

func TestSetFilterPersists(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, fx.svc.SetFilter(ctx, "rotten"), ErrValidation)
	require.NoError(t, fx.svc.SetFilter(ctx, model.FilterFresh))

	stored, err := fx.store.GetInventoryFilter()
	require.NoError(t, err)
	assert.Equal(t, model.FilterFresh, stored)
	assert.Equal(t, model.FilterFresh, fx.svc.State().Filter())
}

func TestSetFilterFailureKeepsSavedFilter(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.backend.FailNext("GET /api/food-items", 1)

	require.Error(t, fx.svc.SetFilter(ctx, model.FilterExpired))
	stored, err := fx.store.GetInventoryFilter()
	require.NoError(t, err)
	assert.Equal(t, model.FilterAll, stored)
	assert.Equal(t, model.FilterAll, fx.svc.State().Filter())
	assert.Equal(t, model.FilterAll, fx.svc.State().WantedFilter())

	require.NoError(t, fx.svc.Refresh(ctx))
	assert.Equal(t, model.FilterAll, fx.svc.Snapshot().Filter)
}

func TestSuggestMealsMergesProfile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.backend.AddItem(model.FoodItem{Name: "Tomato"})
	fx.backend.Recipes = []model.Recipe{{Name: "Tomato Soup"}, {Name: "Bruschetta"}}

	_, err := fx.svc.SaveProfile(model.DietaryProfile{Allergies: []string{"peanuts"}, Diets: []string{"Vegetarian"}})
	require.NoError(t, err)

	out, err := fx.svc.SuggestMeals(ctx, model.MealRequest{Type: "dinner", AdditionalPreferences: "spicy"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Len(t, fx.svc.Recipes(), 2)

	var sent model.MealRequest
	require.NoError(t, json.Unmarshal(fx.backend.LastBody("POST /api/meal-suggestions"), &sent))
	assert.Equal(t, 60, sent.MaxTime)
	assert.Equal(t, 2, sent.Servings)
	assert.Equal(t, "spicy. Allergies (must avoid): Peanuts. Diet: Vegetarian", sent.AdditionalPreferences)

	fx.svc.ClearSuggestions()
	assert.Empty(t, fx.svc.Recipes())
}

func TestSuggestMealsWithEmptyInventory(t *testing.T) {
	fx := newFixture(t)
	fx.svc.recipes = []model.Recipe{{Name: "stale"}}

	out, err := fx.svc.SuggestMeals(context.Background(), model.DefaultMealRequest())
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "No available ingredients in inventory", out.Message)
	assert.Empty(t, fx.svc.Recipes())
}

func TestCookRecipe(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	milk := fx.backend.AddItem(model.FoodItem{Name: "Milk", Quantity: 1, Unit: model.UnitGallon})
	eggs := fx.backend.AddItem(model.FoodItem{Name: "Eggs", Quantity: 12, Unit: model.UnitEach})
	flour := fx.backend.AddItem(model.FoodItem{Name: "Flour", Quantity: 2, Unit: model.UnitLbs})

	fx.svc.recipes = []model.Recipe{{
		Name: "Pancakes",
		Ingredients: []model.RecipeIngredient{
			{Name: "milk", QuantityRequired: 1, Unit: "gallon", InventoryItemID: strp(milk.ID)},
			{Name: "eggs", QuantityRequired: 2, Unit: "each", InventoryItemID: strp(eggs.ID)},
			{Name: "flour", QuantityRequired: 200, Unit: "g", InventoryItemID: strp(flour.ID)},
			{Name: "salt", QuantityRequired: 1, Unit: "pinch"},
			{Name: "butter", QuantityRequired: 1, Unit: "each", InventoryItemID: strp("gone")},
		},
	}}

	_, err := fx.svc.CookRecipe(ctx, 3)
	assert.ErrorIs(t, err, ErrNoRecipe)

	rep, err := fx.svc.CookRecipe(ctx, 0)
	require.NoError(t, err)

	want := []CookedIngredient{
		{ItemID: milk.ID, Name: "Milk", Used: 1, Unit: "gallon", Remaining: 0},
		{ItemID: eggs.ID, Name: "Eggs", Used: 2, Unit: "each", Remaining: 10},
	}
	if diff := cmp.Diff(want, rep.Applied); diff != "" {
		t.Errorf("applied mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, rep.Skipped, 3)
	assert.Equal(t, "flour", rep.Skipped[0].Name)
	assert.Contains(t, rep.Skipped[0].Reason, "unit")
	assert.Equal(t, "not from inventory", rep.Skipped[1].Reason)
	assert.Equal(t, "no longer in inventory", rep.Skipped[2].Reason)
	require.Len(t, rep.Depleted, 1)
	assert.Equal(t, milk.ID, rep.Depleted[0].ID)

	stored, _ := fx.backend.Item(flour.ID)
	assert.Equal(t, 2.0, stored.Quantity)
}

func TestCookRecipePartialFailureRefreshes(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	milk := fx.backend.AddItem(model.FoodItem{Name: "Milk", Quantity: 2, Unit: model.UnitGallon})
	eggs := fx.backend.AddItem(model.FoodItem{Name: "Eggs", Quantity: 12, Unit: model.UnitEach})
	require.NoError(t, fx.svc.Refresh(ctx))
	fx.svc.recipes = []model.Recipe{{
		Name: "Custard",
		Ingredients: []model.RecipeIngredient{
			{Name: "milk", QuantityRequired: 1, Unit: "gallon", InventoryItemID: strp(milk.ID)},
			{Name: "eggs", QuantityRequired: 4, Unit: "each", InventoryItemID: strp(eggs.ID)},
		},
	}}
	fx.backend.FailAfter("PUT /api/food-items/{id}", 1, 1)
	before := fx.backend.Calls("GET /api/food-items")

	rep, err := fx.svc.CookRecipe(ctx, 0)
	require.Error(t, err)
	require.Len(t, rep.Applied, 1)
	assert.Equal(t, milk.ID, rep.Applied[0].ItemID)

	assert.Greater(t, fx.backend.Calls("GET /api/food-items"), before)
	for _, it := range fx.svc.Snapshot().Items {
		if it.ID == milk.ID {
			assert.Equal(t, 1.0, it.Quantity)
		}
	}
	assert.False(t, fx.svc.Busy())
}

func TestImportItemsContinuesPastFailures(t *testing.T) {
	fx := newFixture(t)

	rep, err := fx.svc.ImportItems(context.Background(), []model.NewFoodItem{
		{Name: "Apples", Quantity: 6},
		{Name: "", Quantity: 1},
		{Name: "Pears", Quantity: 3, Unit: model.UnitEach},
	})
	require.NoError(t, err)
	assert.Len(t, rep.Added, 2)
	require.Len(t, rep.Failed, 1)
	assert.True(t, errors.Is(rep.Failed[1], ErrValidation))
	assert.Equal(t, 2, fx.backend.ItemCount())
	assert.Equal(t, 1, fx.backend.Calls("GET /api/food-items"), "one refresh for the whole import")
}

func TestNormalizeProfile(t *testing.T) {
	got := NormalizeProfile(model.DietaryProfile{
		Allergies:           []string{"Peanuts", "peanuts", "unicorn", "tree nuts"},
		Diets:               nil,
		HealthGoals:         []string{" High_Protein "},
		DislikedIngredients: []string{" Cilantro", "cilantro", ""},
	})
	want := model.DietaryProfile{
		Allergies:           []string{"peanuts", "tree_nuts"},
		Diets:               []string{},
		HealthGoals:         []string{"high_protein"},
		DislikedIngredients: []string{"cilantro"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileWithoutStore(t *testing.T) {
	svc := NewService(nil, refresh.NewFetcher(nil, refresh.NewState(""), nil), nil, nil)
	_, err := svc.SaveProfile(model.DietaryProfile{Diets: []string{"keto"}})
	require.NoError(t, err)
	p, err := svc.Profile()
	require.NoError(t, err)
	assert.Equal(t, []string{"keto"}, p.Diets)
}

func TestUpdateFromFields(t *testing.T) {
	upd, ignored := UpdateFromFields(map[string]interface{}{
		"name":            "Greek Yogurt",
		"quantity":        3.0,
		"unit":            42,
		"expiration_date": "not a date",
	})
	assert.Equal(t, "Greek Yogurt", *upd.Name)
	assert.Equal(t, 3.0, *upd.Quantity)
	assert.Nil(t, upd.Unit)
	assert.Nil(t, upd.ExpirationDate)
	assert.ElementsMatch(t, []string{"unit", "expiration_date"}, ignored)
}

func TestMergePreferences(t *testing.T) {
	assert.Equal(t, "", MergePreferences("  ", model.DietaryProfile{}))
	assert.Equal(t, "Health goals: Low Sodium. Disliked ingredients: olives, anchovies",
		MergePreferences("", model.DietaryProfile{
			HealthGoals:         []string{"low_sodium"},
			DislikedIngredients: []string{"olives", "anchovies"},
		}))
}

func TestRefreshAfterSubmissionFailureIsRecorded(t *testing.T) {
	fx := newFixture(t)
	fx.backend.FailNext("GET /api/dashboard/stats", 1)

	_, err := fx.svc.AddItem(context.Background(), model.NewFoodItem{Name: "Oats", Quantity: 1})
	require.NoError(t, err, "the add itself succeeded")
	snap := fx.svc.Snapshot()
	assert.Contains(t, snap.Errors, refresh.SourceStats)
	assert.WithinDuration(t, time.Now(), snap.FetchedAt, time.Minute)
}
