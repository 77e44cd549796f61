package schedule

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"seminargo/internal/domain"
)

// Scheduler wraps gocron as the engine's deferred-job facility: one-shot
// jobs chain sync invocations, recurring jobs fire the periodic triggers.
type Scheduler struct{ s gocron.Scheduler }

func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{s: s}, nil
}

func (s *Scheduler) Start() { s.s.Start() }

func (s *Scheduler) Stop() error {
	log.Info().Msg("stopping scheduler")
	return s.s.Shutdown()
}

// Every registers a recurring trigger. Singleton mode keeps a slow trigger
// from overlapping itself.
func (s *Scheduler) Every(interval time.Duration, name string, task func()) error {
	_, err := s.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(name),
	)
	return err
}

// Cron registers a cron-expression trigger (used for the weekly full sync).
func (s *Scheduler) Cron(expr, name string, task func()) error {
	_, err := s.s.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(task),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(name),
	)
	return err
}

// Dispatcher adapts one-shot job scheduling to the engine's port.
func (s *Scheduler) Dispatcher(task func()) domain.Dispatcher {
	return &dispatcher{s: s.s, task: task}
}

type dispatcher struct {
	s    gocron.Scheduler
	task func()
}

func (d *dispatcher) Enqueue(delay time.Duration) error {
	// gocron rejects one-time jobs whose start already passed
	if delay < 100*time.Millisecond {
		delay = 100 * time.Millisecond
	}
	// WithLimitedRuns makes gocron drop the job after it fired; without it
	// every chained step would leave a spent job registered
	_, err := d.s.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(delay))),
		gocron.NewTask(d.task),
		gocron.WithName("sync-step"),
		gocron.WithLimitedRuns(1),
	)
	return err
}
