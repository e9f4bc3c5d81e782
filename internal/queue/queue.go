package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"topic-studio/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	// TaskTypeGenerate runs the outline and summary stages for a stored session.
	TaskTypeGenerate TaskType = "generate"
)

// Task is one unit of work handed to a worker. Attempts counts failed runs so
// far; NotBefore delays redelivery after a failure.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Type        TaskType  `json:"type"`
	Payload     []byte    `json:"payload"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	NotBefore   time.Time `json:"not_before"`
}

// Handler processes one task. Returning an error schedules a retry unless the
// error is wrapped with Permanent.
type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// PermanentError marks a handler failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the queue drops the task instead of retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// nextAttempt decides what happens to task after handlerErr. It returns the
// task to redeliver and true, or false when the task is done for good.
func nextAttempt(task Task, handlerErr error, maxAttempts int, base time.Duration, now time.Time) (Task, bool) {
	if IsPermanent(handlerErr) {
		return task, false
	}
	task.Attempts++
	if task.MaxAttempts <= 0 {
		task.MaxAttempts = maxAttempts
	}
	if task.Attempts >= task.MaxAttempts {
		return task, false
	}
	task.NotBefore = now.Add(retry.WithJitter(retry.ExponentialBackoff(task.Attempts, base)))
	return task, true
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retry.ExponentialBackoff(attempt-1, base)):
			}
		}
		if err = q.Enqueue(ctx, task); err == nil {
			return nil
		}
	}
	return err
}
