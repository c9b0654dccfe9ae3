package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/media"
)

type fakeJob struct {
	name string
	at   time.Time
	task func()
}

type fakeRunner struct {
	mu   sync.Mutex
	jobs []fakeJob
	err  error
}

func (r *fakeRunner) RunOnce(name string, at time.Time, task func()) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, fakeJob{name: name, at: at, task: task})
	return nil
}

func (r *fakeRunner) Shutdown() error { return nil }

type delivered struct {
	chatID  int64
	replyTo int
	alt     media.Alternative
}

type fakeSink struct {
	mu    sync.Mutex
	calls []delivered
	err   error
	done  chan struct{}
}

func (s *fakeSink) Deliver(_ context.Context, chatID int64, replyTo int, alt media.Alternative) error {
	s.mu.Lock()
	s.calls = append(s.calls, delivered{chatID: chatID, replyTo: replyTo, alt: alt})
	s.mu.Unlock()
	if s.done != nil {
		s.done <- struct{}{}
	}
	return s.err
}

type journalEntry struct {
	id     string
	status Status
	reason string
}

type fakeJournal struct {
	mu        sync.Mutex
	scheduled []ScheduledDelivery
	finished  []journalEntry
}

func (j *fakeJournal) Scheduled(_ context.Context, d ScheduledDelivery) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.scheduled = append(j.scheduled, d)
	return nil
}

func (j *fakeJournal) Finished(_ context.Context, id string, status Status, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished = append(j.finished, journalEntry{id: id, status: status, reason: reason})
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func newTestScheduler(runner Runner, sink Sink, journal Journal, log logger.Logger) *Scheduler {
	s := NewScheduler(runner, sink, journal, log)
	s.now = fixedNow
	return s
}

func TestDelay(t *testing.T) {
	assert.Equal(t, 120*time.Second, Delay(media.Directive(2, media.UnitMinutes)))
	assert.Equal(t, 1800*time.Second, Delay(media.Directive(30, media.UnitMinutes)))
	assert.Equal(t, 45*time.Second, Delay(media.Directive(45, media.UnitSeconds)))
	assert.Equal(t, time.Duration(0), Delay(media.Directive(0, media.UnitMinutes)))
}

func TestNewPlan(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Plan
	}{
		{
			name:     "single sticker",
			raw:      "AAA",
			expected: Plan{Immediate: []media.Alternative{media.Sticker("AAA")}},
		},
		{
			name:     "trailing directive has no target",
			raw:      "AAA|time:2",
			expected: Plan{Immediate: []media.Alternative{media.Sticker("AAA")}, Dangling: 1},
		},
		{
			name: "video then deferred video",
			raw:  "video:a.mp4|time:30|video:b.mp4",
			expected: Plan{
				Immediate: []media.Alternative{media.Video("a.mp4")},
				Deferred:  []Deferred{{Alternative: media.Video("b.mp4"), Directive: media.Directive(30, media.UnitMinutes)}},
			},
		},
		{
			name: "stickers sent in sequence",
			raw:  "AAA|BBB|time:5s|CCC|DDD",
			expected: Plan{
				Immediate: []media.Alternative{media.Sticker("AAA"), media.Sticker("BBB"), media.Sticker("DDD")},
				Deferred:  []Deferred{{Alternative: media.Sticker("CCC"), Directive: media.Directive(5, media.UnitSeconds)}},
			},
		},
		{
			name: "consecutive directives keep the last one",
			raw:  "AAA|time:1|time:2|BBB",
			expected: Plan{
				Immediate: []media.Alternative{media.Sticker("AAA")},
				Deferred:  []Deferred{{Alternative: media.Sticker("BBB"), Directive: media.Directive(2, media.UnitMinutes)}},
				Dangling:  1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := media.Decode(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, NewPlan(ref))
		})
	}
}

func TestScheduler_Schedule(t *testing.T) {
	runner := &fakeRunner{}
	sink := &fakeSink{}
	journal := &fakeJournal{}
	s := newTestScheduler(runner, sink, journal, logger.NewTestLogger())

	h, err := s.Schedule(10, 20, media.Video("bye.mp4"), media.Directive(30, media.UnitMinutes))
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, fixedNow().Add(1800*time.Second), h.FireAt)

	require.Len(t, runner.jobs, 1)
	assert.Equal(t, "delivery_"+h.ID, runner.jobs[0].name)
	assert.Equal(t, h.FireAt, runner.jobs[0].at)

	require.Len(t, journal.scheduled, 1)
	assert.Equal(t, int64(10), journal.scheduled[0].ChatID)
	assert.Equal(t, 20, journal.scheduled[0].TargetMessageID)
	assert.Equal(t, 1800*time.Second, journal.scheduled[0].Delay)
	assert.Empty(t, sink.calls, "nothing is delivered before the timer fires")

	runner.jobs[0].task()
	require.Len(t, sink.calls, 1)
	assert.Equal(t, delivered{chatID: 10, replyTo: 20, alt: media.Video("bye.mp4")}, sink.calls[0])
	require.Len(t, journal.finished, 1)
	assert.Equal(t, journalEntry{id: h.ID, status: StatusFired}, journal.finished[0])
}

func TestScheduler_FiresExactlyOnce(t *testing.T) {
	runner := &fakeRunner{}
	sink := &fakeSink{}
	s := newTestScheduler(runner, sink, nil, logger.NewTestLogger())

	_, err := s.Schedule(1, 2, media.Sticker("AAA"), media.Directive(1, media.UnitSeconds))
	require.NoError(t, err)

	runner.jobs[0].task()
	runner.jobs[0].task()
	assert.Len(t, sink.calls, 1)
}

func TestScheduler_DeliveryFailureIsLogged(t *testing.T) {
	runner := &fakeRunner{}
	sink := &fakeSink{err: errors.New("media not found")}
	journal := &fakeJournal{}
	log := logger.NewTestLogger()
	s := newTestScheduler(runner, sink, journal, log)

	h, err := s.Schedule(1, 2, media.Video("missing.mp4"), media.Directive(1, media.UnitMinutes))
	require.NoError(t, err)

	assert.NotPanics(t, runner.jobs[0].task)
	assert.True(t, log.HasEntry("warn", "Deferred delivery failed"))
	require.Len(t, journal.finished, 1)
	assert.Equal(t, journalEntry{id: h.ID, status: StatusFailed, reason: "media not found"}, journal.finished[0])
}

func TestScheduler_ScheduleRejectsInvalidInput(t *testing.T) {
	s := newTestScheduler(&fakeRunner{}, &fakeSink{}, nil, logger.NewTestLogger())

	_, err := s.Schedule(1, 2, media.Directive(1, media.UnitMinutes), media.Directive(1, media.UnitMinutes))
	assert.Error(t, err)

	_, err = s.Schedule(1, 2, media.Sticker("A"), media.Sticker("B"))
	assert.Error(t, err)
}

func TestScheduler_RunnerError(t *testing.T) {
	journal := &fakeJournal{}
	s := newTestScheduler(&fakeRunner{err: errors.New("scheduler stopped")}, &fakeSink{}, journal, logger.NewTestLogger())

	_, err := s.Schedule(1, 2, media.Sticker("A"), media.Directive(1, media.UnitMinutes))
	require.Error(t, err)
	require.Len(t, journal.scheduled, 1)
	require.Len(t, journal.finished, 1)
	assert.Equal(t, StatusFailed, journal.finished[0].status)
	assert.Equal(t, "scheduler stopped", journal.finished[0].reason)
}

func TestScheduler_ScheduleDeferred(t *testing.T) {
	t.Run("trailing directive without item is a no-op", func(t *testing.T) {
		runner := &fakeRunner{}
		s := newTestScheduler(runner, &fakeSink{}, nil, logger.NewTestLogger())

		ref, err := media.Decode("AAA|time:2")
		require.NoError(t, err)

		handles, err := s.ScheduleDeferred(1, 2, ref)
		require.NoError(t, err)
		assert.Empty(t, handles)
		assert.Empty(t, runner.jobs)

		directive := ref[1]
		assert.Equal(t, 120*time.Second, Delay(directive))
	})

	t.Run("video with directive in minutes", func(t *testing.T) {
		ref, err := media.Decode("video:bye.mp4|time:30")
		require.NoError(t, err)
		assert.Equal(t, 1800*time.Second, Delay(ref[1]))
	})

	t.Run("deferred item is scheduled", func(t *testing.T) {
		runner := &fakeRunner{}
		sink := &fakeSink{}
		s := newTestScheduler(runner, sink, nil, logger.NewTestLogger())

		ref, err := media.Decode("video:hello.mp4|time:30|video:bye.mp4")
		require.NoError(t, err)

		handles, err := s.ScheduleDeferred(5, 6, ref)
		require.NoError(t, err)
		require.Len(t, handles, 1)
		assert.Equal(t, fixedNow().Add(30*time.Minute), handles[0].FireAt)

		runner.jobs[0].task()
		assert.Equal(t, []delivered{{chatID: 5, replyTo: 6, alt: media.Video("bye.mp4")}}, sink.calls)
	})
}

func TestCronRunner_FiresTask(t *testing.T) {
	runner, err := NewCronRunner()
	require.NoError(t, err)
	defer runner.Shutdown()

	sink := &fakeSink{done: make(chan struct{}, 1)}
	s := NewScheduler(runner, sink, nil, logger.NewTestLogger())

	_, err = s.Schedule(1, 2, media.Sticker("AAA"), media.Directive(0, media.UnitSeconds))
	require.NoError(t, err)

	select {
	case <-sink.done:
	case <-time.After(5 * time.Second):
		t.Fatal("deferred delivery did not fire")
	}
	assert.Len(t, sink.calls, 1)
}
