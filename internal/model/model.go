// Package model defines shared data structures.
package model

// FoodItem is a single inventory entry as returned by the backend.
type FoodItem struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	Quantity         float64 `json:"quantity"`
	Unit             string  `json:"unit"`
	StorageCondition string  `json:"storage_condition"`
	PurchaseDate     Time    `json:"purchase_date"`
	ExpirationDate   Time    `json:"expiration_date"`
	CurrentState     string  `json:"current_state,omitempty"`
	Notes            string  `json:"notes,omitempty"`
	Emoji            string  `json:"emoji,omitempty"`
	StorageTips      string  `json:"storage_tips,omitempty"`
	CreatedAt        Time    `json:"created_at"`
}

// Icon returns the item's emoji, falling back to its category icon.
func (f FoodItem) Icon() string {
	if f.Emoji != "" {
		return f.Emoji
	}
	return CategoryIcon(f.Category)
}

// NewFoodItem is the add-item form. Empty Category and Emoji let the
// backend pick them.
type NewFoodItem struct {
	Name             string  `json:"name"`
	Category         string  `json:"category,omitempty"`
	Quantity         float64 `json:"quantity"`
	Unit             string  `json:"unit"`
	StorageCondition string  `json:"storage_condition"`
	PurchaseDate     string  `json:"purchase_date,omitempty"`
	Notes            string  `json:"notes,omitempty"`
	Emoji            string  `json:"emoji,omitempty"`
}

// DefaultNewFoodItem returns a blank form with the default quantity, unit
// and storage condition.
func DefaultNewFoodItem() NewFoodItem {
	return NewFoodItem{
		Quantity:         1,
		Unit:             UnitEach,
		StorageCondition: StoragePantry,
	}
}

// ItemUpdate is a partial update. Nil fields are left untouched.
// ExpirationDate uses the YYYY-MM-DD form.
type ItemUpdate struct {
	Name             *string  `json:"name,omitempty"`
	Category         *string  `json:"category,omitempty"`
	Quantity         *float64 `json:"quantity,omitempty"`
	Unit             *string  `json:"unit,omitempty"`
	StorageCondition *string  `json:"storage_condition,omitempty"`
	ExpirationDate   *string  `json:"expiration_date,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
	Emoji            *string  `json:"emoji,omitempty"`
}

// Empty reports whether no field is set.
func (u ItemUpdate) Empty() bool {
	return u.Name == nil && u.Category == nil && u.Quantity == nil && u.Unit == nil &&
		u.StorageCondition == nil && u.ExpirationDate == nil && u.Notes == nil && u.Emoji == nil
}

// Notification is a backend-generated reminder about an item.
type Notification struct {
	ID               string `json:"id"`
	FoodItemID       string `json:"food_item_id"`
	FoodName         string `json:"food_name"`
	NotificationType string `json:"notification_type"`
	Message          string `json:"message"`
	Priority         string `json:"priority"`
	IsRead           bool   `json:"is_read"`
	CreatedAt        Time   `json:"created_at"`
}

// CalendarEvent is a read-only expiration reminder on the calendar.
type CalendarEvent struct {
	ID          string `json:"id"`
	FoodItemID  string `json:"food_item_id"`
	FoodName    string `json:"food_name"`
	EventType   string `json:"event_type"`
	EventDate   Time   `json:"event_date"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
	CreatedAt   Time   `json:"created_at"`
}

// DashboardStats holds server-computed aggregate counts.
type DashboardStats struct {
	TotalItems        int            `json:"total_items"`
	ExpiringSoon      int            `json:"expiring_soon"`
	Expired           int            `json:"expired"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
}

// MealRequest carries the meal-suggestion preferences.
type MealRequest struct {
	Type                  string `json:"type"`
	Style                 string `json:"style"`
	MaxTime               int    `json:"max_time"`
	Servings              int    `json:"servings"`
	AdditionalPreferences string `json:"additional_preferences"`
}

// DefaultMealRequest returns a request for any meal, 60 minutes, two servings.
func DefaultMealRequest() MealRequest {
	return MealRequest{MaxTime: 60, Servings: 2}
}

// RecipeIngredient is one line of a recipe. InventoryItemID is set when the
// ingredient comes from the inventory.
type RecipeIngredient struct {
	Name             string  `json:"name"`
	QuantityRequired float64 `json:"quantity_required"`
	Unit             string  `json:"unit"`
	InventoryItemID  *string `json:"inventory_item_id"`
}

// Recipe is a transient meal suggestion.
type Recipe struct {
	Name            string             `json:"name"`
	Servings        int                `json:"servings"`
	PrepTime        int                `json:"prep_time"`
	CookTime        int                `json:"cook_time"`
	TotalTime       int                `json:"total_time"`
	Description     string             `json:"description"`
	IngredientsUsed []string           `json:"ingredients_used"`
	Ingredients     []RecipeIngredient `json:"ingredients"`
	Instructions    []string           `json:"instructions"`
}

// MealSuggestions is the meal-suggestion response.
type MealSuggestions struct {
	Success             bool     `json:"success"`
	Message             string   `json:"message,omitempty"`
	Recipes             []Recipe `json:"recipes"`
	AvailableItemsCount int      `json:"available_items_count"`
}

// AIUpdateResult holds the fields the backend suggests changing. The client
// applies them itself.
type AIUpdateResult struct {
	Success       bool                   `json:"success"`
	UpdatedFields map[string]interface{} `json:"updated_fields"`
	Message       string                 `json:"message"`
}

// DietaryProfile is held by the client and fed into meal suggestions.
type DietaryProfile struct {
	Allergies           []string `json:"allergies"`
	Diets               []string `json:"diets"`
	HealthGoals         []string `json:"health_goals"`
	DislikedIngredients []string `json:"disliked_ingredients"`
}

// IsZero reports whether the profile carries no preference at all.
func (p DietaryProfile) IsZero() bool {
	return len(p.Allergies) == 0 && len(p.Diets) == 0 && len(p.HealthGoals) == 0 && len(p.DislikedIngredients) == 0
}

// Settings key constants.
const (
	SettingRefreshInterval = "refresh_interval_seconds"
	SettingInventoryFilter = "inventory_filter"
)
