// Package apitest provides an in-memory fake of the food-inventory backend
// for tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryan-buckman/pantry/internal/expiry"
	"github.com/bryan-buckman/pantry/internal/model"
)

// Backend is an in-memory backend served over httptest.
type Backend struct {
	Server *httptest.Server

	mu            sync.Mutex
	items         map[string]model.FoodItem
	order         []string
	notifications []model.Notification
	events        []model.CalendarEvent
	nextID        int
	now           func() time.Time
	calls         map[string]int
	failures      map[string]int
	passes        map[string]int
	lastBodies    map[string]json.RawMessage

	// AIFields is returned by the ai-update endpoint.
	AIFields map[string]interface{}
	// Recipes is returned by the meal-suggestion endpoint.
	Recipes []model.Recipe
	// ShelfLifeDays is added to the purchase date of created items.
	ShelfLifeDays int
}

// New starts a fake backend. Close it with Backend.Close.
func New() *Backend {
	b := &Backend{
		items:         make(map[string]model.FoodItem),
		now:           func() time.Time { return time.Now().UTC() },
		calls:         make(map[string]int),
		failures:      make(map[string]int),
		passes:        make(map[string]int),
		lastBodies:    make(map[string]json.RawMessage),
		ShelfLifeDays: 7,
	}
	b.Server = httptest.NewServer(b.routes())
	return b
}

// URL is the base URL of the fake.
func (b *Backend) URL() string { return b.Server.URL }

// Close stops the server.
func (b *Backend) Close() { b.Server.Close() }

// SetNow fixes the clock used for created items and dashboard stats.
func (b *Backend) SetNow(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = func() time.Time { return now }
}

// AddItem stores an item directly and returns it with an id assigned.
func (b *Backend) AddItem(it model.FoodItem) model.FoodItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it.ID == "" {
		b.nextID++
		it.ID = fmt.Sprintf("item-%d", b.nextID)
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = model.NewTime(b.now())
	}
	b.items[it.ID] = it
	b.order = append(b.order, it.ID)
	return it
}

// AddNotification stores a notification.
func (b *Backend) AddNotification(n model.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifications = append(b.notifications, n)
}

// AddEvent stores a calendar event.
func (b *Backend) AddEvent(ev model.CalendarEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

// Item returns the stored item with id.
func (b *Backend) Item(id string) (model.FoodItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.items[id]
	return it, ok
}

// ItemCount returns the number of stored items.
func (b *Backend) ItemCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Notification returns the stored notification with id.
func (b *Backend) Notification(id string) (model.Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.notifications {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}

// Calls returns how often a route pattern was hit, e.g. "GET /api/food-items".
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// LastBody returns the last request body received on a route pattern.
func (b *Backend) LastBody(route string) json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBodies[route]
}

// FailNext makes the next n requests on route answer 500.
func (b *Backend) FailNext(route string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = n
	b.passes[route] = 0
}

// FailAfter lets skip requests on route pass, then fails the next n.
func (b *Backend) FailAfter(route string, skip, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = n
	b.passes[route] = skip
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", b.hit("GET /", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Home Food Management System API", "status": "running"})
	}))
	r.Route("/api", func(r chi.Router) {
		r.Get("/food-items", b.hit("GET /api/food-items", b.listItems))
		r.Post("/food-items", b.hit("POST /api/food-items", b.createItem))
		r.Get("/food-items/{id}", b.hit("GET /api/food-items/{id}", b.getItem))
		r.Put("/food-items/{id}", b.hit("PUT /api/food-items/{id}", b.updateItem))
		r.Delete("/food-items/{id}", b.hit("DELETE /api/food-items/{id}", b.deleteItem))
		r.Post("/food-items/{id}/ai-update", b.hit("POST /api/food-items/{id}/ai-update", b.aiUpdate))
		r.Get("/notifications", b.hit("GET /api/notifications", b.listNotifications))
		r.Get("/notifications/unread", b.hit("GET /api/notifications/unread", b.unreadCount))
		r.Put("/notifications/{id}/read", b.hit("PUT /api/notifications/{id}/read", b.markRead))
		r.Get("/calendar-events", b.hit("GET /api/calendar-events", b.listEvents))
		r.Get("/dashboard/stats", b.hit("GET /api/dashboard/stats", b.stats))
		r.Post("/meal-suggestions", b.hit("POST /api/meal-suggestions", b.suggest))
	})
	return r
}

// hit counts calls on route, records the body and injects failures.
func (b *Backend) hit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		b.mu.Lock()
		b.calls[route]++
		if len(body) > 0 {
			b.lastBodies[route] = json.RawMessage(body)
		}
		fail := false
		switch {
		case b.passes[route] > 0:
			b.passes[route]--
		case b.failures[route] > 0:
			b.failures[route]--
			fail = true
		}
		b.mu.Unlock()

		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "injected failure"})
			return
		}
		next(w, r)
	}
}

func (b *Backend) listItems(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	b.mu.Lock()
	now := b.now()
	out := make([]model.FoodItem, 0, len(b.order))
	for _, id := range b.order {
		it, ok := b.items[id]
		if !ok {
			continue
		}
		if expiry.Match(filter, now, it.ExpirationDate.Time) {
			out = append(out, it)
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getItem(w http.ResponseWriter, r *http.Request) {
	it, ok := b.Item(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Food item not found"})
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (b *Backend) createItem(w http.ResponseWriter, r *http.Request) {
	var in model.NewFoodItem
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []map[string]string{{"msg": "field required", "loc": "name"}},
		})
		return
	}
	b.mu.Lock()
	now := b.now()
	shelf := b.ShelfLifeDays
	b.mu.Unlock()

	purchase := now
	if in.PurchaseDate != "" {
		if t, err := model.ParseTime(in.PurchaseDate); err == nil {
			purchase = t
		}
	}
	category := in.Category
	if category == "" {
		category = model.CategoryOther
	}
	emoji := in.Emoji
	if emoji == "" {
		emoji = "🍽️"
	}
	it := b.AddItem(model.FoodItem{
		Name:             in.Name,
		Category:         category,
		Quantity:         in.Quantity,
		Unit:             in.Unit,
		StorageCondition: in.StorageCondition,
		PurchaseDate:     model.NewTime(purchase),
		ExpirationDate:   model.NewTime(purchase.AddDate(0, 0, shelf)),
		CurrentState:     "raw",
		Notes:            in.Notes,
		Emoji:            emoji,
	})
	writeJSON(w, http.StatusOK, it)
}

func (b *Backend) updateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var upd model.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}
	b.mu.Lock()
	it, ok := b.items[id]
	if !ok {
		b.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Food item not found"})
		return
	}
	if upd.Name != nil {
		it.Name = *upd.Name
	}
	if upd.Category != nil {
		it.Category = *upd.Category
	}
	if upd.Quantity != nil {
		it.Quantity = *upd.Quantity
	}
	if upd.Unit != nil {
		it.Unit = *upd.Unit
	}
	if upd.StorageCondition != nil {
		it.StorageCondition = *upd.StorageCondition
	}
	if upd.Notes != nil {
		it.Notes = *upd.Notes
	}
	if upd.Emoji != nil {
		it.Emoji = *upd.Emoji
	}
	if upd.ExpirationDate != nil {
		t, err := model.ParseTime(*upd.ExpirationDate)
		if err != nil {
			b.mu.Unlock()
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid expiration_date format. Use YYYY-MM-DD."})
			return
		}
		it.ExpirationDate = model.NewTime(t)
	}
	b.items[id] = it
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, it)
}

func (b *Backend) deleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	_, ok := b.items[id]
	if ok {
		delete(b.items, id)
		kept := b.notifications[:0]
		for _, n := range b.notifications {
			if n.FoodItemID != id {
				kept = append(kept, n)
			}
		}
		b.notifications = kept
		keptEvents := b.events[:0]
		for _, ev := range b.events {
			if ev.FoodItemID != id {
				keptEvents = append(keptEvents, ev)
			}
		}
		b.events = keptEvents
	}
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Food item not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Food item deleted successfully"})
}

func (b *Backend) aiUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.Item(chi.URLParam(r, "id")); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Food item not found"})
		return
	}
	var req struct {
		Instruction string `json:"instruction"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Instruction == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Instruction is required"})
		return
	}
	b.mu.Lock()
	fields := b.AIFields
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, model.AIUpdateResult{Success: true, UpdatedFields: fields, Message: "AI analysis complete"})
}

func (b *Backend) listNotifications(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := append([]model.Notification{}, b.notifications...)
	b.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt.Time) })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) unreadCount(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	n := 0
	for _, notif := range b.notifications {
		if !notif.IsRead {
			n++
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": n})
}

func (b *Backend) markRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	found := false
	for i := range b.notifications {
		if b.notifications[i].ID == id {
			b.notifications[i].IsRead = true
			found = true
		}
	}
	b.mu.Unlock()
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Notification not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func (b *Backend) listEvents(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := append([]model.CalendarEvent{}, b.events...)
	b.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate.Time) })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) stats(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	now := b.now()
	st := model.DashboardStats{CategoryBreakdown: make(map[string]int)}
	for _, it := range b.items {
		st.TotalItems++
		exp := it.ExpirationDate.Time
		switch {
		case exp.Before(now):
			st.Expired++
		case !exp.After(now.Add(72 * time.Hour)):
			st.ExpiringSoon++
		}
		st.CategoryBreakdown[it.Category]++
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, st)
}

func (b *Backend) suggest(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	recipes := b.Recipes
	count := len(b.items)
	b.mu.Unlock()
	if count == 0 {
		writeJSON(w, http.StatusOK, model.MealSuggestions{Success: false, Message: "No available ingredients in inventory", Recipes: []model.Recipe{}})
		return
	}
	writeJSON(w, http.StatusOK, model.MealSuggestions{Success: true, Recipes: recipes, AvailableItemsCount: count})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
