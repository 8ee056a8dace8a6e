// Package scheduler runs the periodic price-refresh job independent of any
// in-flight optimization: the price store loader is a pure function, but a
// real service still needs a cadence to call it on.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gearopt/internal/pricestore"
)

// Refresher is the subset of pricestore.Loader the scheduler needs.
type Refresher interface {
	Refresh(ctx context.Context) pricestore.FetchResult
}

// PriceScheduler runs Refresher.Refresh on a fixed interval via cron.
type PriceScheduler struct {
	cron      *cron.Cron
	refresher Refresher
	interval  time.Duration
	logger    *logrus.Logger
	mu        sync.Mutex
	running   bool
}

// New builds an unstarted PriceScheduler.
func New(refresher Refresher, interval time.Duration, logger *logrus.Logger) *PriceScheduler {
	return &PriceScheduler{
		cron:      cron.New(),
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the recurring refresh job and begins running it.
func (s *PriceScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("price scheduler already running")
	}

	schedule := fmt.Sprintf("@every %s", s.interval.String())
	if _, err := s.cron.AddFunc(schedule, s.runRefresh); err != nil {
		return fmt.Errorf("schedule price refresh: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.WithField("interval", s.interval).Info("price refresh scheduler started")
	return nil
}

// Stop waits for any in-flight job to finish, then halts the scheduler.
func (s *PriceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info("price refresh scheduler stopped")
}

// RunNow triggers an out-of-band refresh, e.g. at process startup.
func (s *PriceScheduler) RunNow() {
	s.runRefresh()
}

func (s *PriceScheduler) runRefresh() {
	result := s.refresher.Refresh(context.Background())
	if !result.Success {
		s.logger.WithField("error", result.Error).Warn("scheduled price refresh failed")
		return
	}
	s.logger.WithField("item_count", result.ItemCount).Info("scheduled price refresh completed")
}
