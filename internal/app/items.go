package app

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryan-buckman/pantry/internal/expiry"
	"github.com/bryan-buckman/pantry/internal/model"
)

// UpdateResult is the stored item after an edit. NeedsCleanup is set when
// the quantity reached zero and the user should be asked to delete it.
type UpdateResult struct {
	Item         model.FoodItem
	NeedsCleanup bool
}

// AIOutcome describes an AI-assisted update.
type AIOutcome struct {
	Message string
	Applied model.ItemUpdate
	Ignored []string
	// Result is nil when the backend suggested nothing applicable.
	Result *UpdateResult
}

// NormalizeNewItem trims the form, fills defaults and validates it.
func NormalizeNewItem(in model.NewFoodItem) (model.NewFoodItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.Unit = strings.ToLower(strings.TrimSpace(in.Unit))
	in.StorageCondition = strings.ToLower(strings.TrimSpace(in.StorageCondition))
	in.PurchaseDate = strings.TrimSpace(in.PurchaseDate)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Emoji = strings.TrimSpace(in.Emoji)

	if in.Name == "" {
		return in, invalid("name is required")
	}
	if in.Quantity <= 0 || math.IsNaN(in.Quantity) || math.IsInf(in.Quantity, 0) {
		return in, invalid("quantity must be greater than zero")
	}
	if in.Unit == "" {
		in.Unit = model.UnitEach
	}
	if !model.ValidOption(model.Units, in.Unit) {
		return in, invalid("unknown unit %q", in.Unit)
	}
	if in.StorageCondition == "" {
		in.StorageCondition = model.StoragePantry
	}
	if !model.ValidOption(model.StorageConditions, in.StorageCondition) {
		return in, invalid("unknown storage condition %q", in.StorageCondition)
	}
	if in.Category != "" && !model.ValidOption(model.Categories, in.Category) {
		return in, invalid("unknown category %q", in.Category)
	}
	if in.PurchaseDate != "" {
		t, err := model.ParseTime(in.PurchaseDate)
		if err != nil {
			return in, invalid("purchase date %q is not a date", in.PurchaseDate)
		}
		in.PurchaseDate = t.Format(time.RFC3339)
	}
	return in, nil
}

// AddItem validates and submits the add-item form, then refreshes.
func (s *Service) AddItem(ctx context.Context, in model.NewFoodItem) (*model.FoodItem, error) {
	in, err := NormalizeNewItem(in)
	if err != nil {
		return nil, err
	}
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	item, err := s.api.CreateItem(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", in.Name, err)
	}
	s.logger.Info("item added", zap.String("id", item.ID), zap.String("name", item.Name),
		zap.String("category", item.Category))
	s.refreshAfter(ctx, "add")
	return item, nil
}

// ImportReport summarises a bulk add.
type ImportReport struct {
	Added  []model.FoodItem
	Failed map[int]error
}

// ImportItems adds every item in order, continuing past failures. Keys
// of Failed are indexes into items.
func (s *Service) ImportItems(ctx context.Context, items []model.NewFoodItem) (*ImportReport, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	rep := &ImportReport{Failed: make(map[int]error)}
	for i, in := range items {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		in, err := NormalizeNewItem(in)
		if err != nil {
			rep.Failed[i] = err
			continue
		}
		item, err := s.api.CreateItem(ctx, in)
		if err != nil {
			rep.Failed[i] = err
			continue
		}
		rep.Added = append(rep.Added, *item)
	}
	s.logger.Info("import finished", zap.Int("added", len(rep.Added)), zap.Int("failed", len(rep.Failed)))
	if len(rep.Added) > 0 {
		s.refreshAfter(ctx, "import")
	}
	return rep, nil
}

// ValidateUpdate normalizes and checks an edit.
func ValidateUpdate(upd model.ItemUpdate) (model.ItemUpdate, error) {
	if upd.Empty() {
		return upd, invalid("nothing to update")
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return upd, invalid("name cannot be empty")
		}
		upd.Name = &name
	}
	if upd.Quantity != nil {
		q := *upd.Quantity
		if q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
			return upd, invalid("quantity cannot be negative")
		}
	}
	check := func(field string, p *string, opts []model.Option) (*string, error) {
		if p == nil {
			return nil, nil
		}
		v := strings.ToLower(strings.TrimSpace(*p))
		if !model.ValidOption(opts, v) {
			return nil, invalid("unknown %s %q", field, *p)
		}
		return &v, nil
	}
	var err error
	if upd.Category, err = check("category", upd.Category, model.Categories); err != nil {
		return upd, err
	}
	if upd.Unit, err = check("unit", upd.Unit, model.Units); err != nil {
		return upd, err
	}
	if upd.StorageCondition, err = check("storage condition", upd.StorageCondition, model.StorageConditions); err != nil {
		return upd, err
	}
	if upd.ExpirationDate != nil {
		d := strings.TrimSpace(*upd.ExpirationDate)
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			return upd, invalid("expiration date must be YYYY-MM-DD")
		}
		upd.ExpirationDate = &d
	}
	return upd, nil
}

// UpdateItem applies an in-place edit, then refreshes.
func (s *Service) UpdateItem(ctx context.Context, id string, upd model.ItemUpdate) (*UpdateResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("item id is required")
	}
	upd, err := ValidateUpdate(upd)
	if err != nil {
		return nil, err
	}
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	res, err := s.update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.refreshAfter(ctx, "update")
	return res, nil
}

func (s *Service) update(ctx context.Context, id string, upd model.ItemUpdate) (*UpdateResult, error) {
	item, err := s.api.UpdateItem(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update item %s: %w", id, err)
	}
	return &UpdateResult{Item: *item, NeedsCleanup: item.Quantity <= 0}, nil
}

// AIUpdate sends a natural-language instruction for an item, applies the
// fields the backend suggests and refreshes.
func (s *Service) AIUpdate(ctx context.Context, id, instruction string) (*AIOutcome, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, invalid("instruction is required")
	}
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	ai, err := s.api.AIUpdate(ctx, id, instruction)
	if err != nil {
		return nil, fmt.Errorf("ai update: %w", err)
	}
	if !ai.Success {
		msg := ai.Message
		if msg == "" {
			msg = "the assistant could not interpret the instruction"
		}
		return nil, fmt.Errorf("ai update: %s", msg)
	}

	upd, ignored := UpdateFromFields(ai.UpdatedFields)
	out := &AIOutcome{Message: ai.Message, Applied: upd, Ignored: ignored}
	if upd.Empty() {
		return out, nil
	}
	if upd, err = ValidateUpdate(upd); err != nil {
		return nil, fmt.Errorf("ai update suggested %w", err)
	}
	out.Applied = upd
	if out.Result, err = s.update(ctx, id, upd); err != nil {
		return nil, err
	}
	s.logger.Info("ai update applied", zap.String("id", id), zap.Int("fields", fieldCount(upd)))
	s.refreshAfter(ctx, "ai-update")
	return out, nil
}

// UpdateFromFields converts the backend's updated_fields into an update.
// Numbers may arrive as JSON numbers or strings. Unknown or malformed
// fields are returned in ignored.
func UpdateFromFields(fields map[string]interface{}) (upd model.ItemUpdate, ignored []string) {
	str := func(v interface{}) (*string, bool) {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		return &s, true
	}
	for key, v := range fields {
		ok := true
		switch key {
		case "name":
			upd.Name, ok = str(v)
		case "category":
			upd.Category, ok = str(v)
		case "unit":
			upd.Unit, ok = str(v)
		case "storage_condition":
			upd.StorageCondition, ok = str(v)
		case "notes":
			upd.Notes, ok = str(v)
		case "emoji":
			upd.Emoji, ok = str(v)
		case "quantity":
			var q float64
			q, ok = toFloat(v)
			if ok {
				upd.Quantity = &q
			}
		case "expiration_date":
			var raw *string
			if raw, ok = str(v); ok {
				t, err := model.ParseTime(*raw)
				if ok = err == nil; ok {
					d := t.Format(model.DateLayout)
					upd.ExpirationDate = &d
				}
			}
		default:
			ok = false
		}
		if !ok {
			ignored = append(ignored, key)
		}
	}
	return upd, ignored
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func fieldCount(u model.ItemUpdate) int {
	n := 0
	for _, set := range []bool{u.Name != nil, u.Category != nil, u.Quantity != nil, u.Unit != nil,
		u.StorageCondition != nil, u.ExpirationDate != nil, u.Notes != nil, u.Emoji != nil} {
		if set {
			n++
		}
	}
	return n
}

// --- Delete ---

// RequestDelete marks id as the item awaiting confirmation.
func (s *Service) RequestDelete(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("item id is required")
	}
	s.mu.Lock()
	s.pendingDelete = id
	s.mu.Unlock()
	return nil
}

// PendingDelete returns the item awaiting confirmation, if any.
func (s *Service) PendingDelete() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingDelete, s.pendingDelete != ""
}

// CancelDelete drops the pending delete.
func (s *Service) CancelDelete() {
	s.mu.Lock()
	s.pendingDelete = ""
	s.mu.Unlock()
}

// ConfirmDelete deletes the pending item and returns its id.
func (s *Service) ConfirmDelete(ctx context.Context) (string, error) {
	id, ok := s.PendingDelete()
	if !ok {
		return "", ErrNoPendingDelete
	}
	if err := s.DeleteItem(ctx, id); err != nil {
		return "", err
	}
	s.mu.Lock()
	if s.pendingDelete == id {
		s.pendingDelete = ""
	}
	s.mu.Unlock()
	return id, nil
}

// DeleteItem removes an item without the confirmation step, for callers
// that already asked.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	done, err := s.begin()
	if err != nil {
		return err
	}
	defer done()

	if err := s.api.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	s.logger.Info("item deleted", zap.String("id", id))
	s.refreshAfter(ctx, "delete")
	return nil
}

// Item returns an item from the current state, asking the backend when
// the active filter hides it.
func (s *Service) Item(ctx context.Context, id string) (*model.FoodItem, error) {
	if it, ok := s.State().Item(id); ok {
		return &it, nil
	}
	it, err := s.api.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return it, nil
}

// AllItems lists the whole inventory regardless of the active filter,
// soonest-expiring first.
func (s *Service) AllItems(ctx context.Context) ([]model.FoodItem, error) {
	items, err := s.api.ListItems(ctx, model.FilterAll)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	expiry.SortByExpiration(items)
	return items, nil
}
