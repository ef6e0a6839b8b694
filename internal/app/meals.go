package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bryan-buckman/pantry/internal/api"
	"github.com/bryan-buckman/pantry/internal/model"
)

// SuggestMeals asks the backend for recipes. The saved dietary profile is
// appended to the free-text preferences. Returned recipes replace the
// current suggestions; an unsuccessful answer clears them.
func (s *Service) SuggestMeals(ctx context.Context, req model.MealRequest) (*model.MealSuggestions, error) {
	if req.MaxTime <= 0 {
		req.MaxTime = model.DefaultMealRequest().MaxTime
	}
	if req.Servings <= 0 {
		req.Servings = model.DefaultMealRequest().Servings
	}
	req.Type = strings.TrimSpace(req.Type)
	req.Style = strings.TrimSpace(req.Style)

	profile, err := s.Profile()
	if err != nil {
		s.logger.Warn("load dietary profile", zap.Error(err))
	}
	req.AdditionalPreferences = MergePreferences(req.AdditionalPreferences, profile)

	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	out, err := s.api.SuggestMeals(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("meal suggestions: %w", err)
	}
	s.mu.Lock()
	if out.Success {
		s.recipes = append([]model.Recipe(nil), out.Recipes...)
	} else {
		s.recipes = nil
	}
	s.mu.Unlock()
	s.logger.Info("meal suggestions", zap.Bool("success", out.Success), zap.Int("recipes", len(out.Recipes)))
	return out, nil
}

// Recipes returns the current suggestions.
func (s *Service) Recipes() []model.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Recipe(nil), s.recipes...)
}

// ClearSuggestions discards the current suggestions.
func (s *Service) ClearSuggestions() {
	s.mu.Lock()
	s.recipes = nil
	s.mu.Unlock()
}

// MergePreferences appends the profile to free-text preferences.
func MergePreferences(extra string, p model.DietaryProfile) string {
	var parts []string
	if extra = strings.TrimSpace(extra); extra != "" {
		parts = append(parts, extra)
	}
	labels := func(opts []model.Option, values []string) string {
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = model.OptionLabel(opts, v)
		}
		return strings.Join(out, ", ")
	}
	if len(p.Allergies) > 0 {
		parts = append(parts, "Allergies (must avoid): "+labels(model.Allergies, p.Allergies))
	}
	if len(p.Diets) > 0 {
		parts = append(parts, "Diet: "+labels(model.Diets, p.Diets))
	}
	if len(p.HealthGoals) > 0 {
		parts = append(parts, "Health goals: "+labels(model.HealthGoals, p.HealthGoals))
	}
	if len(p.DislikedIngredients) > 0 {
		parts = append(parts, "Disliked ingredients: "+strings.Join(p.DislikedIngredients, ", "))
	}
	return strings.Join(parts, ". ")
}

// CookedIngredient is an inventory deduction made by CookRecipe.
type CookedIngredient struct {
	ItemID    string
	Name      string
	Used      float64
	Unit      string
	Remaining float64
}

// SkippedIngredient is an ingredient CookRecipe left alone.
type SkippedIngredient struct {
	Name   string
	Reason string
}

// CookReport is the outcome of cooking a recipe.
type CookReport struct {
	Recipe  string
	Applied []CookedIngredient
	Skipped []SkippedIngredient
	// Depleted lists items whose quantity reached zero.
	Depleted []model.FoodItem
}

// CookRecipe deducts the ingredients of the suggestion at index from the
// inventory. Only ingredients linked to an inventory item in the same unit
// are deducted; quantities never go below zero.
func (s *Service) CookRecipe(ctx context.Context, index int) (*CookReport, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.recipes) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrNoRecipe, index)
	}
	recipe := s.recipes[index]
	s.mu.Unlock()

	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	rep := &CookReport{Recipe: recipe.Name}
	depleted := make(map[string]model.FoodItem)
	// Deductions already written stay written, so the snapshot must catch up
	// even when a later ingredient fails.
	fail := func(err error) (*CookReport, error) {
		if len(rep.Applied) > 0 {
			s.refreshAfter(ctx, "cook")
		}
		return rep, fmt.Errorf("cook %s: %w", recipe.Name, err)
	}
	for _, ing := range recipe.Ingredients {
		if ing.InventoryItemID == nil || *ing.InventoryItemID == "" {
			rep.Skipped = append(rep.Skipped, SkippedIngredient{Name: ing.Name, Reason: "not from inventory"})
			continue
		}
		id := *ing.InventoryItemID
		item, err := s.api.GetItem(ctx, id)
		if api.IsNotFound(err) {
			rep.Skipped = append(rep.Skipped, SkippedIngredient{Name: ing.Name, Reason: "no longer in inventory"})
			continue
		}
		if err != nil {
			return fail(err)
		}
		if !strings.EqualFold(item.Unit, ing.Unit) {
			rep.Skipped = append(rep.Skipped, SkippedIngredient{
				Name:   ing.Name,
				Reason: fmt.Sprintf("unit %s does not match inventory unit %s", ing.Unit, item.Unit),
			})
			continue
		}
		if ing.QuantityRequired <= 0 {
			rep.Skipped = append(rep.Skipped, SkippedIngredient{Name: ing.Name, Reason: "no quantity given"})
			continue
		}
		remaining := roundQty(math.Max(0, item.Quantity-ing.QuantityRequired))
		res, err := s.update(ctx, id, model.ItemUpdate{Quantity: &remaining})
		if err != nil {
			return fail(err)
		}
		rep.Applied = append(rep.Applied, CookedIngredient{
			ItemID: id, Name: item.Name, Used: roundQty(item.Quantity - remaining),
			Unit: item.Unit, Remaining: remaining,
		})
		if res.NeedsCleanup {
			depleted[id] = res.Item
		} else {
			delete(depleted, id)
		}
	}
	for _, it := range depleted {
		rep.Depleted = append(rep.Depleted, it)
	}
	sort.Slice(rep.Depleted, func(i, j int) bool { return rep.Depleted[i].Name < rep.Depleted[j].Name })

	s.logger.Info("recipe cooked", zap.String("recipe", recipe.Name),
		zap.Int("applied", len(rep.Applied)), zap.Int("skipped", len(rep.Skipped)))
	if len(rep.Applied) > 0 {
		s.refreshAfter(ctx, "cook")
	}
	return rep, nil
}

func roundQty(q float64) float64 {
	return math.Round(q*1000) / 1000
}
