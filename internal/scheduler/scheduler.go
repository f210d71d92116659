package scheduler

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/tutorbot/internal/session"
)

// DefaultSessionTTLMinutes is how long a session may sit idle before the
// sweeper evicts it.
const DefaultSessionTTLMinutes = 60

// Scheduler manages scheduled tasks for the application. Its one job is
// sweeping idle sessions out of the registry so abandoned conversations
// don't pile up in memory.
type Scheduler struct {
	scheduler *gocron.Scheduler
	registry  *session.Registry
	ttl       time.Duration
}

// New creates a new scheduler instance. The idle TTL comes from
// SESSION_TTL_MINUTES when set.
func New(registry *session.Registry) *Scheduler {
	ttl := time.Duration(DefaultSessionTTLMinutes) * time.Minute
	if ttlStr := os.Getenv("SESSION_TTL_MINUTES"); ttlStr != "" {
		if minutes, err := strconv.Atoi(ttlStr); err == nil && minutes > 0 {
			ttl = time.Duration(minutes) * time.Minute
		}
	}

	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		registry:  registry,
		ttl:       ttl,
	}
}

// Start begins running all scheduled tasks in the background.
func (s *Scheduler) Start() {
	s.scheduler.Every(10).Minutes().Do(s.sweepIdleSessions)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// sweepIdleSessions evicts idle sessions and closes their durable rows.
func (s *Scheduler) sweepIdleSessions() {
	evicted := s.registry.EvictIdle(s.ttl)
	if len(evicted) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, engine := range evicted {
		if err := engine.Close(ctx); err != nil {
			log.Printf("Error closing evicted session: %v", err)
		}
	}
	log.Printf("Evicted %d idle session(s)", len(evicted))
}
