package delivery

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// gocron rejects start times in the past, anything closer than this runs
// immediately.
const minScheduleLead = 100 * time.Millisecond

// CronRunner runs one-shot tasks on a gocron scheduler.
type CronRunner struct {
	scheduler gocron.Scheduler
}

func NewCronRunner() (*CronRunner, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	scheduler.Start()
	return &CronRunner{scheduler: scheduler}, nil
}

func (r *CronRunner) RunOnce(name string, at time.Time, task func()) error {
	start := gocron.OneTimeJobStartDateTime(at)
	if time.Until(at) < minScheduleLead {
		start = gocron.OneTimeJobStartImmediately()
	}

	_, err := r.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithLimitedRuns(1),
	)
	return err
}

func (r *CronRunner) Shutdown() error {
	return r.scheduler.Shutdown()
}
