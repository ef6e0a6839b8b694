// Package expiry derives expiration status, filters and orderings from
// item dates.
package expiry

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bryan-buckman/pantry/internal/model"
)

// Level is the severity of an expiration status.
type Level int

const (
	LevelFresh Level = iota
	LevelCaution
	LevelWarning
	LevelCritical
)

// String returns the level name, also used as a CSS/style class.
func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "critical"
	case LevelWarning:
		return "warning"
	case LevelCaution:
		return "caution"
	default:
		return "fresh"
	}
}

// Status is the label/level pair shown next to an item.
type Status struct {
	Days  int
	Label string
	Level Level
}

const day = 24 * time.Hour

// DaysUntil returns the number of days from now until exp, rounded up.
// An item that expired less than a day ago therefore reports 0.
func DaysUntil(now, exp time.Time) int {
	d := math.Ceil(float64(exp.Sub(now)) / float64(day))
	if d == 0 {
		return 0 // normalise -0
	}
	return int(d)
}

// StatusFor buckets the days until exp into a display status. A missing
// expiration date counts as expired.
func StatusFor(now, exp time.Time) Status {
	if exp.IsZero() {
		return Status{Days: -1, Label: "Expired", Level: LevelCritical}
	}
	days := DaysUntil(now, exp)
	switch {
	case days < 0:
		return Status{Days: days, Label: "Expired", Level: LevelCritical}
	case days == 0:
		return Status{Days: days, Label: "Expires Today", Level: LevelCritical}
	case days <= 3:
		return Status{Days: days, Label: daysLeft(days), Level: LevelWarning}
	case days <= 7:
		return Status{Days: days, Label: daysLeft(days), Level: LevelCaution}
	default:
		return Status{Days: days, Label: daysLeft(days), Level: LevelFresh}
	}
}

func daysLeft(days int) string {
	if days == 1 {
		return "1 day left"
	}
	return fmt.Sprintf("%d days left", days)
}

// WholeDaysUntil truncates toward negative infinity, matching the
// backend's filter arithmetic. A missing date yields -999.
func WholeDaysUntil(now, exp time.Time) int {
	if exp.IsZero() {
		return -999
	}
	return int(math.Floor(float64(exp.Sub(now)) / float64(day)))
}

// Classify returns the inventory filter bucket for exp.
func Classify(now, exp time.Time) string {
	days := WholeDaysUntil(now, exp)
	switch {
	case days < 0:
		return model.FilterExpired
	case days <= 7:
		return model.FilterExpiringSoon
	default:
		return model.FilterFresh
	}
}

// Match reports whether exp falls into filter. "all" and "" match anything.
func Match(filter string, now, exp time.Time) bool {
	if filter == "" || filter == model.FilterAll {
		return true
	}
	return Classify(now, exp) == filter
}

// Filter returns the items matching filter.
func Filter(items []model.FoodItem, filter string, now time.Time) []model.FoodItem {
	out := make([]model.FoodItem, 0, len(items))
	for _, it := range items {
		if Match(filter, now, it.ExpirationDate.Time) {
			out = append(out, it)
		}
	}
	return out
}

// ValidFilter reports whether filter is a known inventory filter.
func ValidFilter(filter string) bool {
	return model.ValidOption(model.Filters, filter)
}

// SortByExpiration orders items soonest-expiring first. Items without a
// date sort first because they count as expired.
func SortByExpiration(items []model.FoodItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ExpirationDate.Before(items[j].ExpirationDate.Time)
	})
}

// Recent returns up to n items, newest first by creation time.
func Recent(items []model.FoodItem, n int) []model.FoodItem {
	out := append([]model.FoodItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt.Time)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// FormatDate renders a date the way every view shows it.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("Jan 2, 2006")
}

// DayGroup is the set of calendar events falling on one displayed date.
type DayGroup struct {
	Date   string
	Events []model.CalendarEvent
}

// GroupEventsByDay groups events by formatted date, keeping the order in
// which each date first appears.
func GroupEventsByDay(events []model.CalendarEvent) []DayGroup {
	var groups []DayGroup
	index := make(map[string]int)
	for _, ev := range events {
		key := FormatDate(ev.EventDate.Time)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Date: key})
		}
		groups[i].Events = append(groups[i].Events, ev)
	}
	return groups
}
