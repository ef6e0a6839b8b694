package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeLayouts(t *testing.T) {
	want := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	cases := map[string]string{
		"rfc3339":        "2025-03-14T09:30:00Z",
		"naive":          "2025-03-14T09:30:00",
		"naive fraction": "2025-03-14T09:30:00.000000",
		"space":          "2025-03-14 09:30:00",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseTime(in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	day, err := ParseTime("2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), day)

	_, err = ParseTime("next tuesday")
	assert.Error(t, err)
}

func TestTimeUnmarshalIsTolerant(t *testing.T) {
	var item FoodItem
	err := json.Unmarshal([]byte(`{
		"id": "a1",
		"name": "Milk",
		"expiration_date": "not a date",
		"purchase_date": "2025-01-02T08:00:00.123456",
		"created_at": null
	}`), &item)
	require.NoError(t, err)

	assert.True(t, item.ExpirationDate.IsZero())
	assert.True(t, item.CreatedAt.IsZero())
	assert.Equal(t, "2025-01-02", item.PurchaseDate.DateString())
}

func TestTimeUnmarshalNonString(t *testing.T) {
	var items []FoodItem
	err := json.Unmarshal([]byte(`[
		{"id": "a1", "name": "Milk", "expiration_date": 1718000000},
		{"id": "a2", "name": "Eggs", "expiration_date": {"date": "2025-06-01"}, "created_at": true},
		{"id": "a3", "name": "Rice", "expiration_date": "2025-09-01"}
	]`), &items)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, items[0].ExpirationDate.IsZero())
	assert.True(t, items[1].ExpirationDate.IsZero())
	assert.True(t, items[1].CreatedAt.IsZero())
	assert.Equal(t, "Eggs", items[1].Name)
	assert.Equal(t, "2025-09-01", items[2].ExpirationDate.DateString())
}

func TestTimeMarshal(t *testing.T) {
	data, err := json.Marshal(struct {
		A Time `json:"a"`
		B Time `json:"b"`
	}{A: NewTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"2025-01-02T03:04:05Z","b":null}`, string(data))
}

func TestIcons(t *testing.T) {
	assert.Equal(t, "🥛", CategoryIcon(CategoryDairy))
	assert.Equal(t, "🍽️", CategoryIcon("mystery"))
	assert.Equal(t, "🌡️", StorageIcon(StorageRoomTemp))
	assert.Equal(t, "📦", StorageIcon(""))

	assert.Equal(t, "🍎", FoodItem{Emoji: "🍎", Category: CategoryMeat}.Icon())
	assert.Equal(t, "🥩", FoodItem{Category: CategoryMeat}.Icon())
}

func TestItemUpdateEmpty(t *testing.T) {
	assert.True(t, ItemUpdate{}.Empty())
	q := 2.0
	assert.False(t, ItemUpdate{Quantity: &q}.Empty())
}
