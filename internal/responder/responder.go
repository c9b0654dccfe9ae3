package responder

import (
	"context"
	"errors"

	"github.com/muratoffalex/memebot/internal/delivery"
	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/matcher"
	"github.com/muratoffalex/memebot/internal/media"
	"github.com/muratoffalex/memebot/internal/telegram"
)

// DeferredScheduler is the part of the delivery scheduler the responder
// needs.
type DeferredScheduler interface {
	ScheduleDeferred(chatID int64, targetMessageID int, ref media.Reference) ([]delivery.Handle, error)
}

// Responder turns resolved references into chat replies: immediate items
// now, delayed items through the scheduler.
type Responder struct {
	tg        telegram.Client
	engine    *matcher.Engine
	sink      delivery.Sink
	scheduler DeferredScheduler
	cacheTime int
	maxInline int
	logger    logger.Logger
}

func New(
	tg telegram.Client,
	engine *matcher.Engine,
	sink delivery.Sink,
	scheduler DeferredScheduler,
	inlineCacheTime int,
	inlineMaxResults int,
	log logger.Logger,
) *Responder {
	if inlineMaxResults <= 0 || inlineMaxResults > matcher.MaxInlineResults {
		inlineMaxResults = matcher.MaxInlineResults
	}
	return &Responder{
		tg:        tg,
		engine:    engine,
		sink:      sink,
		scheduler: scheduler,
		cacheTime: inlineCacheTime,
		maxInline: inlineMaxResults,
		logger:    log,
	}
}

// Reply sends every immediate item of ref and schedules the deferred ones.
// A failed immediate send does not stop the rest.
func (r *Responder) Reply(ctx context.Context, chatID int64, replyTo int, ref media.Reference) error {
	plan := delivery.NewPlan(ref)

	var errs []error
	for _, alt := range plan.Immediate {
		if err := r.sink.Deliver(ctx, chatID, replyTo, alt); err != nil {
			r.logger.WithError(err).WithFields(logger.Fields{
				"chat_id": chatID,
				"item":    alt.String(),
			}).Warn("Immediate delivery failed")
			errs = append(errs, err)
		}
	}

	if _, err := r.scheduler.ScheduleDeferred(chatID, replyTo, ref); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ReplyItems sends items right away, without timing directives.
func (r *Responder) ReplyItems(ctx context.Context, chatID int64, replyTo int, items []media.Alternative) error {
	return r.Reply(ctx, chatID, replyTo, media.Reference(items))
}

// AnswerInline answers an inline query with matching stickers. Videos have
// no file id to reference and are left out.
func (r *Responder) AnswerInline(query *telegram.InlineQuery) error {
	var stickers []string
	for _, alt := range r.engine.Search(query.Query, r.maxInline) {
		if alt.Kind == media.KindSticker {
			stickers = append(stickers, alt.Payload)
		}
	}

	r.logger.WithFields(logger.Fields{
		"query":   query.Query,
		"results": len(stickers),
	}).Debug("Answering inline query")

	answer := telegram.NewInlineAnswer(query.ID, stickers, r.cacheTime)
	_, err := r.tg.Request(answer)
	return err
}
