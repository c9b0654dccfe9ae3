package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/muratoffalex/memebot/internal/commands"
	"github.com/muratoffalex/memebot/internal/database"
	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/telegram"
)

type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusComplete TaskStatus = "complete"
	TaskStatusFailed   TaskStatus = "failed"
)

const idlePoll = time.Second

type Task struct {
	ID         int64
	Command    string
	UpdateData []byte
	RetryCount int
	MaxRetries int
	RetryDelay time.Duration
	Status     TaskStatus
	Update     *telegram.Update
}

func (t *Task) GetUpdate() (*telegram.Update, error) {
	if t.Update != nil {
		return t.Update, nil
	}

	var update telegram.Update
	if err := json.Unmarshal(t.UpdateData, &update); err != nil {
		return nil, fmt.Errorf("failed to unmarshal update data: %w", err)
	}
	t.Update = &update
	return t.Update, nil
}

// Queue persists command invocations in the tasks table and runs them with
// a per-command rate limit, concurrency cap and retry budget.
type Queue struct {
	db       database.Database
	logger   logger.Logger
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	started  map[string]bool
	now      func() time.Time
}

func NewQueue(db database.Database, log logger.Logger) *Queue {
	return &Queue{
		db:       db,
		logger:   log,
		limiters: make(map[string]*rate.Limiter),
		started:  make(map[string]bool),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (q *Queue) Add(cmd commands.Command, update telegram.Update) error {
	cmdName := cmd.Name()
	if cmdName == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	cfg := cmd.GetQueueConfig()

	updateData, err := json.Marshal(update)
	if err != nil {
		return err
	}

	_, err = q.db.ExecWithRetry(context.Background(), `
		INSERT INTO tasks (command, update_data, max_retries, retry_delay, next_attempt)
		VALUES (?, ?, ?, ?, ?)
	`, cmdName, updateData, cfg.MaxRetries, cfg.RetryDelay.Milliseconds(), q.now())
	if err != nil {
		q.logger.WithError(err).
			WithField("command", cmdName).
			Error("Failed to add task")
		return err
	}

	q.logger.WithFields(logger.Fields{
		"command":   cmdName,
		"update_id": update.UpdateID,
	}).Debug("Task added to queue")
	return nil
}

// Start launches the workers of every queued command. Commands already
// started are skipped.
func (q *Queue) Start(ctx context.Context, handlers []commands.Command) {
	for _, handler := range handlers {
		q.StartCommand(ctx, handler)
	}
}

func (q *Queue) StartCommand(ctx context.Context, handler commands.Command) {
	name := handler.Name()

	q.mu.Lock()
	if q.started[name] {
		q.mu.Unlock()
		return
	}
	q.started[name] = true

	cfg := handler.GetQueueConfig()
	requests := max(cfg.Throttle.Requests, 1)
	concurrency := max(cfg.Throttle.Concurrency, 1)
	interval := cfg.Throttle.Period / time.Duration(requests)
	limiter := rate.NewLimiter(rate.Every(interval), requests)
	q.limiters[name] = limiter
	q.mu.Unlock()

	q.logger.WithFields(logger.Fields{
		"command":     name,
		"period":      cfg.Throttle.Period,
		"requests":    requests,
		"interval":    interval,
		"concurrency": concurrency,
	}).Info("Configured command queue")

	for range concurrency {
		go q.taskWorker(ctx, handler, limiter)
	}
}

func (q *Queue) taskWorker(ctx context.Context, h commands.Command, lim *rate.Limiter) {
	log := q.logger.WithField("command", h.Name())
	log.Debug("Worker started")
	defer func() {
		log.Debug("Worker stopped")
		if r := recover(); r != nil {
			log.Error(fmt.Sprintf("recovered from panic: %v", r))
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		task, err := q.lockAndGetTask(ctx, h.Name())
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Error("Failed to get task")
			}
			if !sleep(ctx, idlePoll) {
				return
			}
			continue
		}
		if task == nil {
			log.Trace("No tasks available")
			if !sleep(ctx, idlePoll) {
				return
			}
			continue
		}

		reserve := lim.Reserve()
		if delay := reserve.Delay(); delay > 0 {
			log.WithFields(logger.Fields{
				"task":     task.ID,
				"wait_for": delay.String(),
			}).Debug("Rate limiting, delaying task")

			if !sleep(ctx, delay) {
				reserve.Cancel()
				return
			}
		}

		if err := q.handleTask(ctx, *task, h); err != nil {
			log.WithError(err).WithField("task_id", task.ID).Error("Task processing failed")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (q *Queue) lockAndGetTask(ctx context.Context, command string) (*Task, error) {
	var task Task
	var retryDelayMillis int64
	now := q.now()
	err := q.db.GetDB().QueryRowContext(ctx, `
		UPDATE tasks
		SET status = ?, last_attempt = ?
		WHERE id = (
			SELECT id FROM tasks
			WHERE command = ? AND status = ? AND next_attempt <= ?
			ORDER BY id ASC
			LIMIT 1
		)
		RETURNING id, command, update_data, retry_count, max_retries, retry_delay`,
		TaskStatusRunning, now, command, TaskStatusPending, now,
	).Scan(
		&task.ID, &task.Command, &task.UpdateData,
		&task.RetryCount, &task.MaxRetries, &retryDelayMillis,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	task.Status = TaskStatusRunning
	task.RetryDelay = time.Duration(retryDelayMillis) * time.Millisecond
	return &task, nil
}

func (q *Queue) updateTaskStatus(ctx context.Context, taskID int64, status TaskStatus) error {
	q.logger.WithFields(logger.Fields{
		"task_id": taskID,
		"status":  status,
	}).Debug("Updating task status")

	_, err := q.db.ExecWithRetry(ctx,
		"UPDATE tasks SET status = ? WHERE id = ?",
		status, taskID)
	return err
}

func (q *Queue) handleTask(ctx context.Context, task Task, handler commands.Command) error {
	timeout := handler.GetQueueConfig().Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	log := q.logger.WithFields(logger.Fields{
		"command": task.Command,
		"task_id": task.ID,
	})

	update, err := task.GetUpdate()
	if err != nil {
		log.WithError(err).Error("Dropping task with unreadable update")
		return q.updateTaskStatus(ctx, task.ID, TaskStatusFailed)
	}

	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resultCh := make(chan error, 1)
	go func() {
		resultCh <- handler.Execute(*update)
	}()

	select {
	case err := <-resultCh:
		if err != nil {
			log.WithError(err).Warn("Handler execution failed")
			return q.handleTaskError(ctx, task)
		}
	case <-taskCtx.Done():
		log.WithFields(logger.Fields{
			"actual_duration": time.Since(start).String(),
			"retry_count":     task.RetryCount,
		}).Warn("Execution timeout exceeded")
		return q.handleTaskError(ctx, task)
	}

	if err := q.updateTaskStatus(ctx, task.ID, TaskStatusComplete); err != nil {
		return fmt.Errorf("failed to mark task as complete: %w", err)
	}

	log.WithField("duration", time.Since(start).String()).Debug("Task completed")
	return nil
}

func (q *Queue) handleTaskError(ctx context.Context, task Task) error {
	log := q.logger.WithFields(logger.Fields{
		"command":     task.Command,
		"task_id":     task.ID,
		"retry_count": task.RetryCount,
		"max_retries": task.MaxRetries,
	})

	if task.RetryCount >= task.MaxRetries {
		log.Warn("Max retries exceeded, marking as failed")
		return q.updateTaskStatus(ctx, task.ID, TaskStatusFailed)
	}

	nextAttempt := q.now().Add(task.RetryDelay)
	_, err := q.db.ExecWithRetry(ctx, `
		UPDATE tasks
		SET status = ?, retry_count = retry_count + 1, next_attempt = ?
		WHERE id = ?
	`, TaskStatusPending, nextAttempt, task.ID)
	if err != nil {
		log.WithError(err).Error("Failed to reschedule task")
		return err
	}

	log.WithField("next_attempt", nextAttempt).Info("Task rescheduled")
	return nil
}

// Status returns the stored status of a task.
func (q *Queue) Status(ctx context.Context, taskID int64) (TaskStatus, error) {
	var status TaskStatus
	err := q.db.GetDB().QueryRowContext(ctx, "SELECT status FROM tasks WHERE id = ?", taskID).Scan(&status)
	return status, err
}

// PurgeFinished removes completed and failed tasks older than retention.
func (q *Queue) PurgeFinished(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := q.db.ExecWithRetry(ctx,
		"DELETE FROM tasks WHERE status IN (?, ?) AND next_attempt < ?",
		TaskStatusComplete, TaskStatusFailed, q.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
