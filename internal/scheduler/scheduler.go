package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/weatherwise/weatherwise/internal/observability"
	"github.com/weatherwise/weatherwise/internal/weather"
)

// FavoritesSource lists the locations the background job keeps fresh.
type FavoritesSource interface {
	List() []string
}

// Refresher re-fetches one location and updates the shared cache.
// Satisfied by *weather.Service.
type Refresher interface {
	Refresh(ctx context.Context, location string) (weather.WeatherData, error)
}

// Scheduler periodically refreshes cached weather for the current favorites.
// Stop cancels future runs; in-flight fetches finish under a bounded context.
type Scheduler struct {
	scheduler *gocron.Scheduler
	favorites FavoritesSource
	refresher Refresher
	interval  time.Duration
}

func New(favorites FavoritesSource, refresher Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		favorites: favorites,
		refresher: refresher,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every current favorite concurrently. Failures are logged
// per location and never abort the rest of the batch.
func (s *Scheduler) RunOnce() {
	locations := s.favorites.List()
	if len(locations) == 0 {
		return
	}

	observability.Debug("scheduler: refreshing favorites", "count", len(locations))

	var wg sync.WaitGroup
	for _, loc := range locations {
		wg.Add(1)
		go func(loc string) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if _, err := s.refresher.Refresh(ctx, loc); err != nil {
				observability.Warn("scheduler: refresh failed", "location", loc, "error", err)
			}
		}(loc)
	}
	wg.Wait()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
