package delivery

import (
	"context"
	"time"

	"github.com/muratoffalex/memebot/internal/media"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusFired   Status = "fired"
	StatusFailed  Status = "failed"
	StatusLost    Status = "lost"
)

// ScheduledDelivery is everything a timer needs to deliver one deferred item.
type ScheduledDelivery struct {
	ID              string
	ChatID          int64
	TargetMessageID int
	Alternative     media.Alternative
	Delay           time.Duration
	FireAt          time.Time
}

type Handle struct {
	ID     string
	FireAt time.Time
}

// Sink delivers a decoded item to a chat, replying to targetMessageID.
type Sink interface {
	Deliver(ctx context.Context, chatID int64, targetMessageID int, alt media.Alternative) error
}

// Runner fires task once at the given time.
type Runner interface {
	RunOnce(name string, at time.Time, task func()) error
	Shutdown() error
}

// Journal keeps an audit trail of deferred deliveries. It is never replayed.
type Journal interface {
	Scheduled(ctx context.Context, d ScheduledDelivery) error
	Finished(ctx context.Context, id string, status Status, reason string) error
}

// Deferred pairs an item with the directive that delays it.
type Deferred struct {
	Alternative media.Alternative
	Directive   media.Alternative
}

// Plan splits a reference into items sent right away and items sent after a
// directive. A directive applies to the next deliverable after it.
type Plan struct {
	Immediate []media.Alternative
	Deferred  []Deferred
	// Dangling counts directives that have no item to delay.
	Dangling int
}

func NewPlan(ref media.Reference) Plan {
	var plan Plan
	var directive *media.Alternative
	for _, alt := range ref {
		if alt.Kind == media.KindDirective {
			if directive != nil {
				plan.Dangling++
			}
			d := alt
			directive = &d
			continue
		}
		if directive != nil {
			plan.Deferred = append(plan.Deferred, Deferred{Alternative: alt, Directive: *directive})
			directive = nil
			continue
		}
		plan.Immediate = append(plan.Immediate, alt)
	}
	if directive != nil {
		plan.Dangling++
	}
	return plan
}

// Delay converts a timing directive to a duration. Minutes unless the
// directive is marked as seconds.
func Delay(directive media.Alternative) time.Duration {
	if directive.Unit == media.UnitSeconds {
		return time.Duration(directive.Amount) * time.Second
	}
	return time.Duration(directive.Amount) * 60 * time.Second
}
