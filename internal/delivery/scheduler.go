package delivery

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/media"
)

const defaultDeliveryTimeout = 2 * time.Minute

type Scheduler struct {
	runner  Runner
	sink    Sink
	journal Journal
	logger  logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewScheduler wires a runner and a sink. journal may be nil.
func NewScheduler(runner Runner, sink Sink, journal Journal, log logger.Logger) *Scheduler {
	return &Scheduler{
		runner:  runner,
		sink:    sink,
		journal: journal,
		logger:  log,
		timeout: defaultDeliveryTimeout,
		now:     time.Now,
	}
}

// SetTimeout bounds each deferred send. Non-positive values are ignored.
func (s *Scheduler) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Schedule arranges one deferred delivery of alt, delayed by directive.
// There is no cancel: pending deliveries die with the process.
func (s *Scheduler) Schedule(chatID int64, targetMessageID int, alt, directive media.Alternative) (Handle, error) {
	if !alt.IsDeliverable() {
		return Handle{}, fmt.Errorf("cannot schedule non deliverable %s", alt.Kind)
	}
	if directive.Kind != media.KindDirective {
		return Handle{}, fmt.Errorf("expected timing directive, got %s", directive.Kind)
	}

	delay := Delay(directive)
	d := ScheduledDelivery{
		ID:              uuid.NewString(),
		ChatID:          chatID,
		TargetMessageID: targetMessageID,
		Alternative:     alt,
		Delay:           delay,
		FireAt:          s.now().Add(delay),
	}

	// Journal first so a zero delay cannot finish before it is recorded.
	if s.journal != nil {
		if err := s.journal.Scheduled(context.Background(), d); err != nil {
			s.logger.WithError(err).WithField("delivery_id", d.ID).Warn("Failed to journal scheduled delivery")
		}
	}

	var fired atomic.Bool
	if err := s.runner.RunOnce("delivery_"+d.ID, d.FireAt, func() {
		if fired.CompareAndSwap(false, true) {
			s.fire(d)
		}
	}); err != nil {
		if s.journal != nil {
			_ = s.journal.Finished(context.Background(), d.ID, StatusFailed, err.Error())
		}
		return Handle{}, fmt.Errorf("failed to schedule delivery: %w", err)
	}

	s.logger.WithFields(logger.Fields{
		"delivery_id": d.ID,
		"chat_id":     chatID,
		"reply_to":    targetMessageID,
		"item":        alt.String(),
		"delay":       delay.String(),
	}).Info("Deferred delivery scheduled")

	return Handle{ID: d.ID, FireAt: d.FireAt}, nil
}

// ScheduleDeferred schedules every item of ref that follows a timing
// directive. A trailing directive with nothing after it schedules nothing.
func (s *Scheduler) ScheduleDeferred(chatID int64, targetMessageID int, ref media.Reference) ([]Handle, error) {
	plan := NewPlan(ref)
	if plan.Dangling > 0 {
		s.logger.WithFields(logger.Fields{
			"chat_id":   chatID,
			"reference": media.Encode(ref),
		}).Debug("Timing directive without a deferred item")
	}

	handles := make([]Handle, 0, len(plan.Deferred))
	for _, item := range plan.Deferred {
		h, err := s.Schedule(chatID, targetMessageID, item.Alternative, item.Directive)
		if err != nil {
			return handles, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (s *Scheduler) fire(d ScheduledDelivery) {
	log := s.logger.WithFields(logger.Fields{
		"delivery_id": d.ID,
		"chat_id":     d.ChatID,
		"reply_to":    d.TargetMessageID,
		"item":        d.Alternative.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	status, reason := StatusFired, ""
	if err := s.sink.Deliver(ctx, d.ChatID, d.TargetMessageID, d.Alternative); err != nil {
		status, reason = StatusFailed, err.Error()
		log.WithError(err).Warn("Deferred delivery failed")
	} else {
		log.Info("Deferred delivery sent")
	}

	if s.journal != nil {
		if err := s.journal.Finished(ctx, d.ID, status, reason); err != nil {
			log.WithError(err).Warn("Failed to journal delivery result")
		}
	}
}

func (s *Scheduler) Shutdown() error {
	return s.runner.Shutdown()
}
