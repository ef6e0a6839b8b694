package refresh

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MinInterval is the shortest allowed polling interval.
const MinInterval = 5 * time.Second

// DefaultInterval applies when the interval cannot be read.
const DefaultInterval = 30 * time.Second

// FetchTimeout bounds one polling cycle.
const FetchTimeout = 30 * time.Second

// IntervalSource provides the polling interval in seconds. It is read
// before every wait, so changes apply from the next cycle.
type IntervalSource interface {
	GetRefreshInterval() (int, error)
}

// Poller runs continuous polling.
type Poller struct {
	fetcher  *Fetcher
	settings IntervalSource
	logger   *zap.Logger

	trigger  chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPoller creates a background poller.
func NewPoller(fetcher *Fetcher, settings IntervalSource, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		fetcher:  fetcher,
		settings: settings,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Interval returns the current polling interval.
func (p *Poller) Interval() time.Duration {
	d, err := ReadInterval(p.settings)
	if err != nil {
		p.logger.Warn("read refresh interval", zap.Error(err))
	}
	return d
}

// ReadInterval reads the interval from src, clamped to MinInterval. A nil
// source or a read error yields DefaultInterval.
func ReadInterval(src IntervalSource) (time.Duration, error) {
	if src == nil {
		return DefaultInterval, nil
	}
	secs, err := src.GetRefreshInterval()
	if err != nil {
		return DefaultInterval, err
	}
	d := time.Duration(secs) * time.Second
	if d < MinInterval {
		d = MinInterval
	}
	return d, nil
}

// Start begins the polling loop. The first refresh runs immediately.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			interval := p.Interval()

			ctx, cancel := context.WithTimeout(p.ctx, FetchTimeout)
			err := p.fetcher.FetchAll(ctx, "")
			cancel()
			if err != nil {
				p.logger.Info("poll finished with errors", zap.Error(err))
			}

			select {
			case <-p.stopChan:
				return
			case <-p.trigger:
			case <-time.After(interval):
			}
		}
	}()
}

// Trigger asks for an immediate refresh without waiting for the interval.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Stop stops the poller gracefully, cancelling an in-flight refresh.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.cancel()
	})
	p.wg.Wait()
}
