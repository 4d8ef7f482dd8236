package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/vashkevichs/citypulse/internal/geocode"
)

// Scheduler periodically sweeps expired entries out of the region cache so
// it stays bounded for the lifetime of the process.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cache     *geocode.RegionCache
	interval  time.Duration
}

// New creates a new Scheduler.
func New(cache *geocode.RegionCache, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		cache:     cache,
		interval:  interval,
	}
}

// Start schedules the periodic sweep and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = time.Hour
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		removed := s.cache.Sweep()
		if removed > 0 {
			log.Printf("scheduler: evicted %d expired region cache entries", removed)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
