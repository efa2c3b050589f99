// Package scheduler runs periodic housekeeping for in-memory user state.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Defaults used when the configuration leaves the values empty.
const (
	DefaultInterval = 30 * time.Minute
	DefaultIdle     = 24 * time.Hour
)

// Sweeper drops entries idle for longer than idle and reports how many it dropped.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// SweeperFunc adapts a function to Sweeper.
type SweeperFunc func(idle time.Duration) int

func (f SweeperFunc) Sweep(idle time.Duration) int { return f(idle) }

type target struct {
	name    string
	sweeper Sweeper
}

// Scheduler evicts idle sessions, transcripts and mode flags on a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	idle      time.Duration
	targets   []target
	log       *zap.Logger
}

// New creates a scheduler. Non-positive durations fall back to the defaults.
func New(interval, idle time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if idle <= 0 {
		idle = DefaultIdle
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		idle:      idle,
		log:       log.Named("scheduler"),
	}
}

// Register adds a sweeper under name. Call before Start.
func (s *Scheduler) Register(name string, sw Sweeper) {
	s.targets = append(s.targets, target{name: name, sweeper: sw})
}

// Start schedules the sweep and runs the scheduler in the background.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.RunOnce); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("janitor started", zap.Duration("interval", s.interval), zap.Duration("idle", s.idle))
	return nil
}

// Stop terminates all scheduled tasks.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	s.log.Info("janitor stopped")
	return nil
}

// RunOnce sweeps every registered target and returns the total evicted.
func (s *Scheduler) RunOnce() int {
	total := 0
	for _, t := range s.targets {
		n := t.sweeper.Sweep(s.idle)
		if n > 0 {
			s.log.Info("evicted idle entries", zap.String("target", t.name), zap.Int("count", n))
		}
		total += n
	}
	return total
}
