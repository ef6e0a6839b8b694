package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/pantry/internal/api"
	"github.com/bryan-buckman/pantry/internal/api/apitest"
	"github.com/bryan-buckman/pantry/internal/model"
)

func newClient(t *testing.T, b *apitest.Backend) *api.Client {
	t.Helper()
	c, err := api.New(b.URL() + "/")
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := api.New("localhost:8001")
	assert.Error(t, err)
	_, err = api.New("ftp://example.com")
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	b := apitest.New()
	defer b.Close()

	st, err := newClient(t, b).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "running", st.Status)
}

func TestCreateSendsFormFields(t *testing.T) {
	b := apitest.New()
	defer b.Close()
	c := newClient(t, b)
	ctx := context.Background()

	form := model.DefaultNewFoodItem()
	form.Name = "Whole Milk"
	form.Unit = model.UnitGallon
	form.StorageCondition = model.StorageRefrigerated

	item, err := c.CreateItem(ctx, form)
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "Whole Milk", item.Name)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(b.LastBody("POST /api/food-items"), &sent))
	assert.Equal(t, "Whole Milk", sent["name"])
	assert.Equal(t, 1.0, sent["quantity"])
	assert.Equal(t, "gallon", sent["unit"])
	assert.Equal(t, "refrigerated", sent["storage_condition"])
	assert.NotContains(t, sent, "category", "empty category asks the backend to detect it")
	assert.NotContains(t, sent, "emoji")
}

func TestListItemsFilterQuery(t *testing.T) {
	b := apitest.New()
	defer b.Close()
	now := time.Now().UTC()
	b.AddItem(model.FoodItem{Name: "old", ExpirationDate: model.NewTime(now.AddDate(0, 0, -2))})
	b.AddItem(model.FoodItem{Name: "new", ExpirationDate: model.NewTime(now.AddDate(0, 0, 30))})
	c := newClient(t, b)

	all, err := c.ListItems(context.Background(), model.FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	expired, err := c.ListItems(context.Background(), model.FilterExpired)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "old", expired[0].Name)
}

func TestUpdateOnlySendsSetFields(t *testing.T) {
	b := apitest.New()
	defer b.Close()
	it := b.AddItem(model.FoodItem{Name: "Eggs", Quantity: 12, Unit: model.UnitEach})
	c := newClient(t, b)

	q := 6.0
	got, err := c.UpdateItem(context.Background(), it.ID, model.ItemUpdate{Quantity: &q})
	require.NoError(t, err)
	assert.Equal(t, 6.0, got.Quantity)
	assert.JSONEq(t, `{"quantity":6}`, string(b.LastBody("PUT /api/food-items/{id}")))
}

func TestNotFoundIsTyped(t *testing.T) {
	b := apitest.New()
	defer b.Close()
	c := newClient(t, b)

	err := c.DeleteItem(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Food item not found", apiErr.Detail)
}

func TestValidationDetailKeptRaw(t *testing.T) {
	b := apitest.New()
	defer b.Close()
	c := newClient(t, b)

	_, err := c.CreateItem(context.Background(), model.NewFoodItem{})
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Detail, "field required")
}

func TestPlainTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()
	c, err := api.New(srv.URL)
	require.NoError(t, err)

	_, err = c.DashboardStats(context.Background())
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad gateway", apiErr.Detail)
	assert.Contains(t, apiErr.Error(), "502")
}

func TestRequestIDHeader(t *testing.T) {
	seen := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"unread_count": 3}`))
	}))
	defer srv.Close()
	c, err := api.New(srv.URL)
	require.NoError(t, err)

	n, err := c.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, <-seen, 36)
}

func TestNotificationsAndMeals(t *testing.T) {
	b := apitest.New()
	defer b.Close()
	c := newClient(t, b)
	ctx := context.Background()

	b.AddNotification(model.Notification{ID: "n1", FoodName: "Milk", Message: "Milk expires today!"})
	require.NoError(t, c.MarkNotificationRead(ctx, "n1"))
	n, ok := b.Notification("n1")
	require.True(t, ok)
	assert.True(t, n.IsRead)

	out, err := c.SuggestMeals(ctx, model.DefaultMealRequest())
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "No available ingredients in inventory", out.Message)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(b.LastBody("POST /api/meal-suggestions"), &sent))
	assert.Equal(t, 60.0, sent["max_time"])
	assert.Equal(t, 2.0, sent["servings"])
}

func TestAIUpdate(t *testing.T) {
	b := apitest.New()
	defer b.Close()
	it := b.AddItem(model.FoodItem{Name: "Chicken"})
	b.AIFields = map[string]interface{}{"storage_condition": "frozen"}
	c := newClient(t, b)

	res, err := c.AIUpdate(context.Background(), it.ID, "move this to the freezer")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "frozen", res.UpdatedFields["storage_condition"])
	assert.JSONEq(t, `{"instruction":"move this to the freezer"}`, string(b.LastBody("POST /api/food-items/{id}/ai-update")))
}
