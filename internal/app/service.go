// Package app implements the user-facing inventory operations on top of
// the backend client, the refresh state and the local store.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bryan-buckman/pantry/internal/database"
	"github.com/bryan-buckman/pantry/internal/expiry"
	"github.com/bryan-buckman/pantry/internal/model"
	"github.com/bryan-buckman/pantry/internal/refresh"
)

var (
	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("another request is in progress")
	// ErrValidation wraps every input validation failure.
	ErrValidation = errors.New("invalid input")
	// ErrNoPendingDelete is returned by ConfirmDelete without a prior RequestDelete.
	ErrNoPendingDelete = errors.New("no delete pending")
	// ErrNoRecipe is returned when a recipe index is out of range.
	ErrNoRecipe = errors.New("no such recipe")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Backend is the part of the API client the service needs.
type Backend interface {
	refresh.Backend
	GetItem(ctx context.Context, id string) (*model.FoodItem, error)
	CreateItem(ctx context.Context, in model.NewFoodItem) (*model.FoodItem, error)
	UpdateItem(ctx context.Context, id string, upd model.ItemUpdate) (*model.FoodItem, error)
	DeleteItem(ctx context.Context, id string) error
	AIUpdate(ctx context.Context, id, instruction string) (*model.AIUpdateResult, error)
	MarkNotificationRead(ctx context.Context, id string) error
	SuggestMeals(ctx context.Context, req model.MealRequest) (*model.MealSuggestions, error)
}

// Service holds the interactive session: the busy flag, the pending
// delete and the current meal suggestions.
type Service struct {
	api     Backend
	fetcher *refresh.Fetcher
	store   database.Store
	logger  *zap.Logger
	now     func() time.Time

	mu            sync.Mutex
	busy          bool
	pendingDelete string
	recipes       []model.Recipe
	profile       model.DietaryProfile // used without a store
}

// NewService wires a service. store may be nil, in which case the filter
// and the dietary profile are kept for the session only.
func NewService(api Backend, fetcher *refresh.Fetcher, store database.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, fetcher: fetcher, store: store, logger: logger, now: time.Now}
}

// State returns the refresh state the service updates.
func (s *Service) State() *refresh.State { return s.fetcher.State() }

// Snapshot is shorthand for State().Snapshot().
func (s *Service) Snapshot() refresh.Snapshot { return s.fetcher.State().Snapshot() }

// Busy reports whether a submission is in flight.
func (s *Service) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Service) begin() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrBusy
	}
	s.busy = true
	return func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}, nil
}

// Refresh re-reads everything with the active filter.
func (s *Service) Refresh(ctx context.Context) error {
	return s.fetcher.FetchAll(ctx, "")
}

// refreshAfter runs a full refresh after a successful submission. Its
// failures are recorded in the state, not returned.
func (s *Service) refreshAfter(ctx context.Context, op string) {
	if err := s.fetcher.FetchAll(ctx, ""); err != nil {
		s.logger.Debug("refresh after submission", zap.String("op", op), zap.Error(err))
	}
}

// --- Filter ---

// SetFilter re-reads items with filter and, once that worked, persists it.
// A failed read leaves both the shown and the saved filter unchanged.
func (s *Service) SetFilter(ctx context.Context, filter string) error {
	if filter == "" {
		filter = model.FilterAll
	}
	if !expiry.ValidFilter(filter) {
		return invalid("unknown filter %q", filter)
	}
	state := s.fetcher.State()
	prev := state.WantedFilter()
	if err := s.fetcher.FetchItems(ctx, filter); err != nil {
		state.RevertFilter(filter, prev)
		return err
	}
	if s.store != nil {
		if err := s.store.SetInventoryFilter(filter); err != nil {
			return fmt.Errorf("save filter: %w", err)
		}
	}
	return nil
}

// --- Notifications ---

// MarkRead marks a notification read, then re-reads the notification
// list and the unread count.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("notification id is required")
	}
	if err := s.api.MarkNotificationRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return s.fetcher.FetchNotifications(ctx)
}
