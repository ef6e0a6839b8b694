package model

// Categories.
const (
	CategoryProduce  = "produce"
	CategoryDairy    = "dairy"
	CategoryMeat     = "meat"
	CategoryPackaged = "packaged"
	CategoryFrozen   = "frozen"
	CategoryOther    = "other"
)

// Storage conditions.
const (
	StoragePantry       = "pantry"
	StorageRefrigerated = "refrigerated"
	StorageFrozen       = "frozen"
	StorageRoomTemp     = "room_temp"
)

// Units.
const (
	UnitEach   = "each"
	UnitLbs    = "lbs"
	UnitOz     = "oz"
	UnitKg     = "kg"
	UnitG      = "g"
	UnitGallon = "gallon"
	UnitLiter  = "liter"
)

// Inventory filters understood by GET /api/food-items.
const (
	FilterAll          = "all"
	FilterExpired      = "expired"
	FilterExpiringSoon = "expiring_soon"
	FilterFresh        = "fresh"
)

// Option is a value with its display label.
type Option struct {
	Value string
	Label string
}

var (
	Categories = []Option{
		{CategoryProduce, "Produce"},
		{CategoryDairy, "Dairy"},
		{CategoryMeat, "Meat"},
		{CategoryPackaged, "Packaged"},
		{CategoryFrozen, "Frozen"},
		{CategoryOther, "Other"},
	}
	StorageConditions = []Option{
		{StoragePantry, "Pantry"},
		{StorageRefrigerated, "Refrigerated"},
		{StorageFrozen, "Frozen"},
		{StorageRoomTemp, "Room Temperature"},
	}
	Units = []Option{
		{UnitEach, "Each"},
		{UnitLbs, "Pounds (lbs)"},
		{UnitOz, "Ounces (oz)"},
		{UnitKg, "Kilograms (kg)"},
		{UnitG, "Grams (g)"},
		{UnitGallon, "Gallon"},
		{UnitLiter, "Liter"},
	}
	Filters = []Option{
		{FilterAll, "All"},
		{FilterExpired, "Expired"},
		{FilterExpiringSoon, "Expiring Soon (1-7 days)"},
		{FilterFresh, "Fresh (>7 days)"},
	}
)

// Dietary profile vocabularies.
var (
	Allergies = []Option{
		{"dairy", "Dairy"},
		{"eggs", "Eggs"},
		{"fish", "Fish"},
		{"gluten", "Gluten"},
		{"peanuts", "Peanuts"},
		{"shellfish", "Shellfish"},
		{"soy", "Soy"},
		{"tree_nuts", "Tree Nuts"},
	}
	Diets = []Option{
		{"vegetarian", "Vegetarian"},
		{"vegan", "Vegan"},
		{"pescatarian", "Pescatarian"},
		{"keto", "Keto"},
		{"paleo", "Paleo"},
		{"low_carb", "Low Carb"},
		{"halal", "Halal"},
		{"kosher", "Kosher"},
	}
	HealthGoals = []Option{
		{"weight_loss", "Weight Loss"},
		{"muscle_gain", "Muscle Gain"},
		{"heart_healthy", "Heart Healthy"},
		{"low_sodium", "Low Sodium"},
		{"high_protein", "High Protein"},
		{"high_fiber", "High Fiber"},
	}
)

// ValidOption reports whether value is one of opts.
func ValidOption(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

// OptionLabel returns the label for value, or value itself when unknown.
func OptionLabel(opts []Option, value string) string {
	for _, o := range opts {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

var categoryIcons = map[string]string{
	CategoryProduce:  "🥬",
	CategoryDairy:    "🥛",
	CategoryMeat:     "🥩",
	CategoryPackaged: "📦",
	CategoryFrozen:   "❄️",
	CategoryOther:    "🍽️",
}

var storageIcons = map[string]string{
	StorageFrozen:       "❄️",
	StorageRefrigerated: "🥛",
	StoragePantry:       "📦",
	StorageRoomTemp:     "🌡️",
}

// CategoryIcon returns the emoji for a category.
func CategoryIcon(category string) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return "🍽️"
}

// StorageIcon returns the emoji for a storage condition.
func StorageIcon(storage string) string {
	if icon, ok := storageIcons[storage]; ok {
		return icon
	}
	return "📦"
}

// EmojiPalette is the set offered by the add-item emoji picker.
var EmojiPalette = []string{
	"🍎", "🍌", "🍊", "🍇", "🥕", "🥦", "🥬", "🥒",
	"🍅", "🥔", "🧅", "🧄", "🥛", "🧀", "🥩", "🍗",
	"🐟", "🍤", "🥚", "🍞", "🥐", "🥖", "🥯", "🍕",
	"🍝", "🍜", "🍚", "🥫", "🍯", "🧂", "🧈", "🥤",
	"☕", "🍵", "🧃", "🧊", "🍪", "🍰", "🧁", "🍫",
	"🍬", "🍭", "🥜", "🌰", "🍿", "🧇", "🥞", "🧆",
}
