package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/mauv0809/pickup/internal/metrics"
)

// DefaultInterval is how often expired matches are swept.
const DefaultInterval = time.Hour

const sweepTimeout = time.Minute

// ExpiredMatchStore removes matches whose start time has passed.
type ExpiredMatchStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs the periodic expired match sweep.
type Scheduler struct {
	sched    gocron.Scheduler
	store    ExpiredMatchStore
	metrics  metrics.Metrics
	interval time.Duration
	now      func() time.Time
}

// New creates a Scheduler. It does nothing until Start is called.
func New(store ExpiredMatchStore, metrics metrics.Metrics, interval time.Duration) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		sched:    sched,
		store:    store,
		metrics:  metrics,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Start registers the sweep, runs it once right away and then every interval.
func (s *Scheduler) Start() error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			defer cancel()
			if _, err := s.Sweep(ctx); err != nil {
				log.Error("Expired match sweep failed", "error", err)
			}
		}),
		gocron.WithName("expired-match-sweep"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule expired match sweep: %w", err)
	}
	s.sched.Start()
	log.Info("Scheduler started", "interval", s.interval)
	return nil
}

// Sweep deletes every match that started before now, along with its chat.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	removed, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.AddExpiredMatchesRemoved(removed)
	if removed > 0 {
		log.Info("Removed expired matches", "count", removed)
	} else {
		log.Debug("No expired matches to remove")
	}
	return removed, nil
}

// Stop waits for a running sweep and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}
