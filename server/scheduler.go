package server

import (
	"log"
	"os"

	"github.com/Desarso/haochat/ratelimit"
	"github.com/robfig/cron/v3"
)

// DefaultSweepSpec is how often idle limiter keys are dropped.
const DefaultSweepSpec = "@every 1m"

// Scheduler runs periodic housekeeping.
type Scheduler struct {
	cron   *cron.Cron
	Logger *log.Logger
}

// NewScheduler registers a limiter sweep on spec.
func NewScheduler(limiter *ratelimit.Limiter, spec string) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	s := &Scheduler{
		cron:   cron.New(),
		Logger: log.New(os.Stdout, "[SCHEDULER] ", log.LstdFlags),
	}
	if limiter == nil {
		return s, nil
	}
	if _, err := s.cron.AddFunc(spec, func() {
		if n := limiter.Sweep(); n > 0 {
			s.Logger.Printf("Swept %d idle rate limit keys", n)
		}
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
