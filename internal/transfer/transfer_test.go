package transfer

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/pantry/internal/model"
)

func date(s string) model.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return model.NewTime(t)
}

func TestWriteItemsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteItemsCSV(&buf, []model.FoodItem{{
		Name: "Cheddar, aged", Category: "dairy", Quantity: 0.5, Unit: "lbs",
		StorageCondition: "refrigerated", PurchaseDate: date("2025-06-01"),
		ExpirationDate: date("2025-07-15"), Notes: "opened", Emoji: "🧀",
	}})
	require.NoError(t, err)

	want := "name,category,quantity,unit,storage_condition,purchase_date,expiration_date,notes,emoji\n" +
		"\"Cheddar, aged\",dairy,0.5,lbs,refrigerated,2025-06-01,2025-07-15,opened,🧀\n"
	assert.Equal(t, want, buf.String())
}

func TestReadItemsCSV(t *testing.T) {
	in := "\ufeffQuantity,Name,unit,notes\n" +
		"2,Apples,each,\n" +
		"\n" +
		",Salt,,  coarse \n"
	items, err := ReadItemsCSV(strings.NewReader(in))
	require.NoError(t, err)

	want := []model.NewFoodItem{
		{Name: "Apples", Quantity: 2, Unit: "each", StorageCondition: "pantry"},
		{Name: "Salt", Quantity: 1, Unit: "each", StorageCondition: "pantry", Notes: "coarse"},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestReadItemsCSVReportsBadRows(t *testing.T) {
	in := "name,quantity\n" +
		"Milk,1\n" +
		",3\n" +
		"Eggs,a dozen\n" +
		"Bread,1\n"
	items, err := ReadItemsCSV(strings.NewReader(in))
	require.Error(t, err)
	assert.Len(t, items, 2)

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 3, rowErr.Line)
	assert.Contains(t, err.Error(), "line 3: name is empty")
	assert.Contains(t, err.Error(), "line 4: quantity \"a dozen\" is not a number")
}

func TestReadItemsCSVHeader(t *testing.T) {
	_, err := ReadItemsCSV(strings.NewReader(""))
	assert.Error(t, err)
	_, err = ReadItemsCSV(strings.NewReader("title,quantity\nMilk,1\n"))
	assert.ErrorContains(t, err, "no name column")
}

func TestRoundTripKeepsFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteItemsCSV(&buf, []model.FoodItem{{
		Name: "Peas", Category: "frozen", Quantity: 1, Unit: "lbs", StorageCondition: "frozen",
		PurchaseDate: date("2025-05-20"),
	}}))
	items, err := ReadItemsCSV(&buf)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "frozen", items[0].Category)
	assert.Equal(t, "2025-05-20", items[0].PurchaseDate)
}

func TestWriteCalendar(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	events := []model.CalendarEvent{
		{ID: "e1", FoodName: "Milk", EventType: "expiration", EventDate: date("2025-06-03"),
			Title: "Milk expires", Description: "Use it in pancakes; or smoothies, soon"},
		{ID: "e2", FoodName: "Ghost"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCalendar(&buf, "Pantry", events, now))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"), "events without a date are skipped")
	assert.Contains(t, out, "UID:e1@pantry\r\n")
	assert.Contains(t, out, "DTSTAMP:20250601T083000Z\r\n")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20250603\r\n")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20250604\r\n")
	assert.Contains(t, out, `DESCRIPTION:Use it in pancakes\; or smoothies\, soon`)
	assert.Contains(t, out, "SUMMARY:Milk expires\r\n")
	assert.Contains(t, out, "CATEGORIES:expiration\r\n")
	assert.Contains(t, out, "PRODID:"+prodID+"\r\n")
	assert.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n")
}

func TestWriteCalendarParsesBack(t *testing.T) {
	events := []model.CalendarEvent{
		{FoodItemID: "item-7", FoodName: "Yogurt", EventDate: date("2025-06-10"),
			Description: strings.Repeat("é", 60)},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCalendar(&buf, "Pantry", events, time.Now()))

	for i, line := range strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), 75, "line %d is not folded", i)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)
	ev := cal.Events()[0]
	assert.Equal(t, "item-7-20250610@pantry", ev.Id())
	assert.Equal(t, "Yogurt", ev.GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, strings.Repeat("é", 60), ev.GetProperty(ics.ComponentPropertyDescription).Value)
	start, err := ev.GetAllDayStartAt()
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", start.Format(model.DateLayout))
}
