package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryan-buckman/pantry/internal/expiry"
	"github.com/bryan-buckman/pantry/internal/model"
)

// Backend is the read side of the backend API.
type Backend interface {
	ListItems(ctx context.Context, filter string) ([]model.FoodItem, error)
	ListNotifications(ctx context.Context) ([]model.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	ListCalendarEvents(ctx context.Context) ([]model.CalendarEvent, error)
	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
}

// SourceError is a failed read of one source.
type SourceError struct {
	Source Source
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Fetcher runs reads against the backend and applies them to a State.
type Fetcher struct {
	api    Backend
	state  *State
	logger *zap.Logger
}

// NewFetcher creates a fetcher writing into state.
func NewFetcher(api Backend, state *State, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{api: api, state: state, logger: logger}
}

// State returns the state the fetcher writes to.
func (f *Fetcher) State() *State { return f.state }

// FetchAll runs the five reads concurrently and waits for all of them.
// Every source that succeeds replaces its slot even when others fail.
// The returned error joins the individual failures. An empty filter reads
// items with the state's wanted filter.
func (f *Fetcher) FetchAll(ctx context.Context, filter string) error {
	return f.fetch(ctx, filter, Sources...)
}

// FetchItems re-reads the inventory with filter.
func (f *Fetcher) FetchItems(ctx context.Context, filter string) error {
	return f.fetch(ctx, filter, SourceItems)
}

// FetchNotifications re-reads the notification list and the unread count.
func (f *Fetcher) FetchNotifications(ctx context.Context) error {
	return f.fetch(ctx, "", SourceNotifications, SourceUnread)
}

func (f *Fetcher) fetch(ctx context.Context, filter string, sources ...Source) error {
	seq, filter := f.state.BeginFetch(filter)
	start := time.Now()

	var (
		mu  sync.Mutex
		res Result
		g   errgroup.Group
	)
	record := func(src Source, err error, ok func()) error {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Fail(src, err)
			return &SourceError{Source: src, Err: err}
		}
		ok()
		return nil
	}

	errs := make([]error, len(sources))
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			errs[i] = f.read(ctx, src, filter, &res, record)
			return nil
		})
	}
	_ = g.Wait()

	f.state.Apply(seq, res)

	err := errors.Join(errs...)
	if err != nil {
		f.logger.Warn("refresh incomplete",
			zap.Int("sources", len(sources)), zap.Int("failed", len(res.Errors)),
			zap.Duration("took", time.Since(start)), zap.Error(err))
	} else {
		f.logger.Debug("refresh complete",
			zap.Int("sources", len(sources)), zap.String("filter", filter),
			zap.Duration("took", time.Since(start)))
	}
	return err
}

func (f *Fetcher) read(ctx context.Context, src Source, filter string, res *Result,
	record func(Source, error, func()) error) error {
	switch src {
	case SourceItems:
		items, err := f.api.ListItems(ctx, filter)
		return record(src, err, func() {
			expiry.SortByExpiration(items)
			res.SetItems(items, filter)
		})
	case SourceNotifications:
		n, err := f.api.ListNotifications(ctx)
		return record(src, err, func() { res.SetNotifications(n) })
	case SourceUnread:
		c, err := f.api.UnreadCount(ctx)
		return record(src, err, func() { res.UnreadCount = &c })
	case SourceEvents:
		ev, err := f.api.ListCalendarEvents(ctx)
		return record(src, err, func() { res.SetEvents(ev) })
	case SourceStats:
		st, err := f.api.DashboardStats(ctx)
		return record(src, err, func() { res.Stats = st })
	}
	return fmt.Errorf("unknown source %q", src)
}
