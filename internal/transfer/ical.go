package transfer

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/bryan-buckman/pantry/internal/model"
)

const prodID = "-//pantry//food inventory//EN"

// WriteCalendar writes events as an iCalendar feed of all-day events.
// Events without a date are skipped.
func WriteCalendar(w io.Writer, name string, events []model.CalendarEvent, now time.Time) error {
	cal := ics.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(name)

	for _, ev := range events {
		if ev.EventDate.IsZero() {
			continue
		}
		start := ev.EventDate.UTC()
		uid := ev.ID
		if uid == "" {
			uid = fmt.Sprintf("%s-%s", ev.FoodItemID, start.Format("20060102"))
		}
		summary := ev.Title
		if summary == "" {
			summary = ev.FoodName
		}

		vev := cal.AddEvent(uid + "@pantry")
		vev.SetDtStampTime(now)
		vev.SetAllDayStartAt(start)
		vev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		vev.SetSummary(summary)
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		if ev.EventType != "" {
			vev.AddProperty(ics.ComponentPropertyCategories, ev.EventType)
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}
