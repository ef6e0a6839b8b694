package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bryan-buckman/pantry/internal/api"
	"github.com/bryan-buckman/pantry/internal/app"
	"github.com/bryan-buckman/pantry/internal/expiry"
	"github.com/bryan-buckman/pantry/internal/model"
)

// submitTimeout bounds user-initiated backend calls. AI calls are slow.
const submitTimeout = 2 * time.Minute

const recentItems = 5

var mealTypes = []model.Option{
	{Value: "breakfast", Label: "Breakfast"},
	{Value: "lunch", Label: "Lunch"},
	{Value: "dinner", Label: "Dinner"},
	{Value: "snack", Label: "Snack"},
}

func vocab(data map[string]interface{}) map[string]interface{} {
	data["Categories"] = model.Categories
	data["Units"] = model.Units
	data["StorageConditions"] = model.StorageConditions
	data["Filters"] = model.Filters
	return data
}

// --- Dashboard ---

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := vocab(s.page(r, "dashboard", "Dashboard"))
	data["Live"] = true
	snap := s.svc.Snapshot()
	data["Stats"] = snap.Stats
	data["Breakdown"] = breakdown(snap.Stats)
	data["Recent"] = expiry.Recent(snap.Items, recentItems)
	s.render(w, http.StatusOK, "dashboard.html", data)
}

// --- Add item ---

func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	s.renderAdd(w, r, http.StatusOK, model.DefaultNewFoodItem(), "")
}

func (s *Server) renderAdd(w http.ResponseWriter, r *http.Request, status int, form model.NewFoodItem, formErr string) {
	data := vocab(s.page(r, "add", "Add Item"))
	data["Form"] = form
	data["FormError"] = formErr
	data["Emojis"] = model.EmojiPalette
	s.render(w, status, "add.html", data)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	form := model.NewFoodItem{
		Name:             r.PostForm.Get("name"),
		Category:         r.PostForm.Get("category"),
		Unit:             r.PostForm.Get("unit"),
		StorageCondition: r.PostForm.Get("storage_condition"),
		PurchaseDate:     r.PostForm.Get("purchase_date"),
		Notes:            r.PostForm.Get("notes"),
		Emoji:            r.PostForm.Get("emoji"),
	}
	if q := strings.TrimSpace(r.PostForm.Get("quantity")); q != "" {
		f, err := strconv.ParseFloat(q, 64)
		if err != nil {
			s.renderAdd(w, r, http.StatusUnprocessableEntity, form, "Quantity must be a number.")
			return
		}
		form.Quantity = f
	}

	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	item, err := s.svc.AddItem(ctx, form)
	if errors.Is(err, app.ErrValidation) {
		s.renderAdd(w, r, http.StatusUnprocessableEntity, form, userMessage(err))
		return
	}
	if err != nil {
		s.logger.Warn("add item failed", zap.Error(err))
		s.renderAdd(w, r, http.StatusBadGateway, form, "Failed to add item: "+userMessage(err))
		return
	}
	msg := fmt.Sprintf("Added %s %s (%s), expires %s.", item.Icon(), item.Name,
		model.OptionLabel(model.Categories, item.Category), expiry.FormatDate(item.ExpirationDate.Time))
	redirect(w, r, "/add", "success", msg)
}

// --- Inventory ---

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	if filter := r.URL.Query().Get("filter"); filter != "" && filter != s.svc.State().Filter() {
		ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
		defer cancel()
		if err := s.svc.SetFilter(ctx, filter); err != nil {
			redirect(w, r, "/inventory", "error", userMessage(err))
			return
		}
	}
	data := vocab(s.page(r, "inventory", "Inventory"))
	data["Live"] = true
	snap := s.svc.Snapshot()
	data["Items"] = snap.Items
	data["Filter"] = snap.Filter
	s.render(w, http.StatusOK, "inventory.html", data)
}

func (s *Server) lookupItem(w http.ResponseWriter, r *http.Request) (*model.FoodItem, bool) {
	id := chi.URLParam(r, "id")
	item, err := s.svc.Item(r.Context(), id)
	if api.IsNotFound(err) {
		redirect(w, r, "/inventory", "error", "That item no longer exists.")
		return nil, false
	}
	if err != nil {
		redirect(w, r, "/inventory", "error", userMessage(err))
		return nil, false
	}
	return item, true
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	item, ok := s.lookupItem(w, r)
	if !ok {
		return
	}
	data := vocab(s.page(r, "inventory", "Edit "+item.Name))
	data["Item"] = item
	data["Emojis"] = model.EmojiPalette
	s.render(w, http.StatusOK, "edit.html", data)
}

// updateFromForm sends only the fields present in the form.
func updateFromForm(r *http.Request) (model.ItemUpdate, error) {
	var upd model.ItemUpdate
	field := func(name string) *string {
		if _, ok := r.PostForm[name]; !ok {
			return nil
		}
		v := r.PostForm.Get(name)
		return &v
	}
	upd.Name = field("name")
	upd.Category = field("category")
	upd.Unit = field("unit")
	upd.StorageCondition = field("storage_condition")
	upd.Notes = field("notes")
	if e := field("emoji"); e != nil && *e != "" {
		upd.Emoji = e
	}
	if d := field("expiration_date"); d != nil && *d != "" {
		upd.ExpirationDate = d
	}
	if q := field("quantity"); q != nil && strings.TrimSpace(*q) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(*q), 64)
		if err != nil {
			return upd, fmt.Errorf("%w: quantity must be a number", app.ErrValidation)
		}
		upd.Quantity = &f
	}
	return upd, nil
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	upd, err := updateFromForm(r)
	if err != nil {
		redirect(w, r, "/items/"+id+"/edit", "error", userMessage(err))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	res, err := s.svc.UpdateItem(ctx, id, upd)
	if err != nil {
		redirect(w, r, "/items/"+id+"/edit", "error", "Failed to update item: "+userMessage(err))
		return
	}
	if res.NeedsCleanup {
		redirect(w, r, "/items/"+id+"/delete?cleanup=1", "", "")
		return
	}
	redirect(w, r, "/inventory", "success", "Updated "+res.Item.Name+".")
}

func (s *Server) handleAIUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	out, err := s.svc.AIUpdate(ctx, id, r.PostForm.Get("instruction"))
	if err != nil {
		redirect(w, r, "/inventory", "error", "AI update failed: "+userMessage(err))
		return
	}
	if out.Result == nil {
		msg := "Nothing to change."
		if out.Message != "" {
			msg = out.Message
		}
		redirect(w, r, "/inventory", "info", msg)
		return
	}
	if out.Result.NeedsCleanup {
		redirect(w, r, "/items/"+id+"/delete?cleanup=1", "", "")
		return
	}
	redirect(w, r, "/inventory", "success", "AI updated "+out.Result.Item.Name+".")
}

func (s *Server) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	item, ok := s.lookupItem(w, r)
	if !ok {
		return
	}
	if err := s.svc.RequestDelete(item.ID); err != nil {
		redirect(w, r, "/inventory", "error", userMessage(err))
		return
	}
	data := s.page(r, "inventory", "Delete "+item.Name)
	data["Item"] = item
	data["Cleanup"] = r.URL.Query().Get("cleanup") != ""
	s.render(w, http.StatusOK, "delete.html", data)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("action") == "cancel" {
		s.svc.CancelDelete()
		redirect(w, r, "/inventory", "", "")
		return
	}
	// Submitting the confirm form is the confirmation.
	if pending, ok := s.svc.PendingDelete(); !ok || pending != id {
		if err := s.svc.RequestDelete(id); err != nil {
			redirect(w, r, "/inventory", "error", userMessage(err))
			return
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	if _, err := s.svc.ConfirmDelete(ctx); err != nil {
		redirect(w, r, "/inventory", "error", "Failed to delete item: "+userMessage(err))
		return
	}
	redirect(w, r, "/inventory", "success", "Item deleted.")
}

// --- Calendar ---

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "calendar", "Calendar")
	data["Live"] = true
	data["Days"] = expiry.GroupEventsByDay(s.svc.Snapshot().Events)
	s.render(w, http.StatusOK, "calendar.html", data)
}

// --- Meals ---

func (s *Server) handleMeals(w http.ResponseWriter, r *http.Request) {
	req := model.DefaultMealRequest()
	s.renderMeals(w, r, req)
}

func (s *Server) renderMeals(w http.ResponseWriter, r *http.Request, req model.MealRequest) {
	data := s.page(r, "meals", "Meal Ideas")
	profile, err := s.svc.Profile()
	if err != nil {
		s.logger.Warn("load profile", zap.Error(err))
	}
	data["Request"] = req
	data["MealTypes"] = mealTypes
	data["Recipes"] = s.svc.Recipes()
	data["Profile"] = profile
	data["ProfileText"] = app.MergePreferences("", profile)
	s.render(w, http.StatusOK, "meals.html", data)
}

func (s *Server) handleSuggestMeals(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	req := model.DefaultMealRequest()
	req.Type = r.PostForm.Get("type")
	req.Style = r.PostForm.Get("style")
	req.AdditionalPreferences = r.PostForm.Get("additional_preferences")
	if n, err := strconv.Atoi(r.PostForm.Get("max_time")); err == nil {
		req.MaxTime = n
	}
	if n, err := strconv.Atoi(r.PostForm.Get("servings")); err == nil {
		req.Servings = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	out, err := s.svc.SuggestMeals(ctx, req)
	if err != nil {
		redirect(w, r, "/meals", "error", "Failed to get meal suggestions: "+userMessage(err))
		return
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "No recipes could be suggested."
		}
		redirect(w, r, "/meals", "error", msg)
		return
	}
	redirect(w, r, "/meals", "success",
		fmt.Sprintf("Found %d recipes using %d available items.", len(out.Recipes), out.AvailableItemsCount))
}

func (s *Server) handleCook(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		redirect(w, r, "/meals", "error", "Unknown recipe.")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	rep, err := s.svc.CookRecipe(ctx, index)
	if errors.Is(err, app.ErrNoRecipe) {
		redirect(w, r, "/meals", "error", "That suggestion is gone, ask for new ones.")
		return
	}
	if err != nil {
		redirect(w, r, "/meals", "error", "Failed to update inventory: "+userMessage(err))
		return
	}
	if len(rep.Depleted) > 0 {
		redirect(w, r, "/items/"+rep.Depleted[0].ID+"/delete?cleanup=1", "success", cookSummary(rep))
		return
	}
	redirect(w, r, "/meals", "success", cookSummary(rep))
}

func cookSummary(rep *app.CookReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cooked %s: %d ingredients deducted", rep.Recipe, len(rep.Applied))
	if n := len(rep.Skipped); n > 0 {
		fmt.Fprintf(&b, ", %d skipped", n)
	}
	b.WriteString(".")
	if len(rep.Depleted) > 0 {
		names := make([]string, len(rep.Depleted))
		for i, it := range rep.Depleted {
			names[i] = it.Name
		}
		fmt.Fprintf(&b, " Used up: %s.", strings.Join(names, ", "))
	}
	return b.String()
}

// --- Profile ---

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.svc.Profile()
	if err != nil {
		s.logger.Warn("load profile", zap.Error(err))
	}
	data := s.page(r, "profile", "Dietary Profile")
	data["Profile"] = profile
	data["Allergies"] = model.Allergies
	data["Diets"] = model.Diets
	data["HealthGoals"] = model.HealthGoals
	data["Disliked"] = strings.Join(profile.DislikedIngredients, ", ")
	s.render(w, http.StatusOK, "profile.html", data)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	p := model.DietaryProfile{
		Allergies:           r.PostForm["allergies"],
		Diets:               r.PostForm["diets"],
		HealthGoals:         r.PostForm["health_goals"],
		DislikedIngredients: strings.Split(r.PostForm.Get("disliked"), ","),
	}
	if _, err := s.svc.SaveProfile(p); err != nil {
		redirect(w, r, "/profile", "error", "Failed to save profile: "+userMessage(err))
		return
	}
	redirect(w, r, "/profile", "success", "Dietary profile saved.")
}

// --- Notifications ---

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "notifications", "Notifications")
	data["Live"] = true
	data["Notifications"] = s.svc.Snapshot().Notifications
	s.render(w, http.StatusOK, "notifications.html", data)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	if err := s.svc.MarkRead(ctx, chi.URLParam(r, "id")); err != nil {
		redirect(w, r, "/notifications", "error", "Failed to mark notification read: "+userMessage(err))
		return
	}
	redirect(w, r, "/notifications", "", "")
}
