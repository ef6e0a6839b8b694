// Package refresh keeps the client-side view of the backend current.
package refresh

import (
	"sync"
	"time"

	"github.com/bryan-buckman/pantry/internal/model"
)

// Source names one of the polled read endpoints.
type Source string

const (
	SourceItems         Source = "items"
	SourceNotifications Source = "notifications"
	SourceUnread        Source = "unread"
	SourceEvents        Source = "events"
	SourceStats         Source = "stats"
)

// Sources lists every polled endpoint in display order.
var Sources = []Source{SourceItems, SourceNotifications, SourceUnread, SourceEvents, SourceStats}

// Snapshot is a consistent copy of the client state.
type Snapshot struct {
	Items         []model.FoodItem      `json:"items"`
	Notifications []model.Notification  `json:"notifications"`
	Events        []model.CalendarEvent `json:"calendar_events"`
	Stats         model.DashboardStats  `json:"stats"`
	UnreadCount   int                   `json:"unread_count"`
	Filter        string                `json:"filter"`
	FetchedAt     time.Time             `json:"fetched_at"`
	Errors        map[Source]string     `json:"errors,omitempty"`
}

// Loaded reports whether at least one refresh has been applied.
func (s Snapshot) Loaded() bool {
	return !s.FetchedAt.IsZero()
}

// Result carries the outcome of one refresh. Nil fields were not fetched
// or failed; failures are listed in Errors.
type Result struct {
	Items         []model.FoodItem
	Filter        string
	Notifications []model.Notification
	Events        []model.CalendarEvent
	Stats         *model.DashboardStats
	UnreadCount   *int
	Errors        map[Source]error

	hasItems         bool
	hasNotifications bool
	hasEvents        bool
}

// SetItems records a successful item fetch for filter.
func (r *Result) SetItems(items []model.FoodItem, filter string) {
	r.Items, r.Filter, r.hasItems = items, filter, true
}

// SetNotifications records a successful notification fetch.
func (r *Result) SetNotifications(n []model.Notification) {
	r.Notifications, r.hasNotifications = n, true
}

// SetEvents records a successful calendar fetch.
func (r *Result) SetEvents(ev []model.CalendarEvent) {
	r.Events, r.hasEvents = ev, true
}

// Fail records a failed source.
func (r *Result) Fail(src Source, err error) {
	if r.Errors == nil {
		r.Errors = make(map[Source]error)
	}
	r.Errors[src] = err
}

func (r *Result) has(src Source) bool {
	switch src {
	case SourceItems:
		return r.hasItems
	case SourceNotifications:
		return r.hasNotifications
	case SourceEvents:
		return r.hasEvents
	case SourceStats:
		return r.Stats != nil
	case SourceUnread:
		return r.UnreadCount != nil
	}
	return false
}

// State is the mutex-guarded holder of the latest snapshot. Each source
// remembers the sequence number of the refresh that last wrote it, so a
// slow response never overwrites a newer one.
type State struct {
	mu      sync.RWMutex
	snap    Snapshot
	seq     uint64
	applied map[Source]uint64
	now     func() time.Time
	// wanted is the filter the next item read uses. It runs ahead of
	// snap.Filter while a filter change is in flight.
	wanted string
}

// NewState returns an empty state showing filter.
func NewState(filter string) *State {
	if filter == "" {
		filter = model.FilterAll
	}
	return &State{
		snap: Snapshot{
			Items:         []model.FoodItem{},
			Notifications: []model.Notification{},
			Events:        []model.CalendarEvent{},
			Stats:         model.DashboardStats{CategoryBreakdown: map[string]int{}},
			Filter:        filter,
			Errors:        map[Source]string{},
		},
		applied: make(map[Source]uint64),
		now:     time.Now,
		wanted:  filter,
	}
}

// Begin reserves the sequence number for a refresh about to start.
func (s *State) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// BeginFetch reserves a sequence number and returns the filter the refresh
// must read items with. A non-empty filter becomes the wanted filter in the
// same step, so a later refresh can never read an older filter.
func (s *State) BeginFetch(filter string) (uint64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if filter != "" {
		s.wanted = filter
	}
	s.seq++
	return s.seq, s.wanted
}

// RevertFilter restores the wanted filter to prev after a failed change to
// filter. A newer change is left alone.
func (s *State) RevertFilter(filter, prev string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wanted == filter {
		s.wanted = prev
	}
}

// WantedFilter returns the filter the next item read uses.
func (s *State) WantedFilter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wanted
}

// Apply merges res into the state. Sources already written by a later
// refresh are left alone. It reports whether anything changed.
func (s *State) Apply(seq uint64, res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, src := range Sources {
		ferr, failed := res.Errors[src]
		if !res.has(src) && !failed {
			continue
		}
		if seq <= s.applied[src] {
			continue
		}
		s.applied[src] = seq
		changed = true
		if failed {
			s.snap.Errors[src] = ferr.Error()
			continue
		}
		delete(s.snap.Errors, src)
		switch src {
		case SourceItems:
			s.snap.Items = orEmpty(res.Items)
			s.snap.Filter = res.Filter
		case SourceNotifications:
			s.snap.Notifications = orEmpty(res.Notifications)
		case SourceEvents:
			s.snap.Events = orEmpty(res.Events)
		case SourceStats:
			st := *res.Stats
			if st.CategoryBreakdown == nil {
				st.CategoryBreakdown = map[string]int{}
			}
			s.snap.Stats = st
		case SourceUnread:
			s.snap.UnreadCount = *res.UnreadCount
		}
	}
	if changed {
		s.snap.FetchedAt = s.now()
	}
	return changed
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.snap
	out.Items = append([]model.FoodItem(nil), s.snap.Items...)
	out.Notifications = append([]model.Notification(nil), s.snap.Notifications...)
	out.Events = append([]model.CalendarEvent(nil), s.snap.Events...)
	out.Stats.CategoryBreakdown = make(map[string]int, len(s.snap.Stats.CategoryBreakdown))
	for k, v := range s.snap.Stats.CategoryBreakdown {
		out.Stats.CategoryBreakdown[k] = v
	}
	out.Errors = make(map[Source]string, len(s.snap.Errors))
	for k, v := range s.snap.Errors {
		out.Errors[k] = v
	}
	return out
}

// Filter returns the filter of the items in the snapshot.
func (s *State) Filter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Filter
}

// Item looks up an item in the current snapshot.
func (s *State) Item(id string) (model.FoodItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.snap.Items {
		if it.ID == id {
			return it, true
		}
	}
	return model.FoodItem{}, false
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
