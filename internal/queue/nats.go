package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const subjectPrefix = "studio.tasks."

// NATSOptions tunes redelivery. Zero values fall back to defaults.
type NATSOptions struct {
	MaxAttempts int
	RetryBase   time.Duration
}

// NewNATS builds a queue on core NATS subjects. Failed tasks are republished
// with a NotBefore delay; there is no broker-side persistence.
func NewNATS(log *slog.Logger, nc *nats.Conn, opts NATSOptions) Queue {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = time.Second
	}
	return &natsQueue{log: log, nc: nc, opts: opts}
}

type natsQueue struct {
	log  *slog.Logger
	nc   *nats.Conn
	opts NATSOptions
}

func subjectFor(t TaskType) string { return subjectPrefix + string(t) }

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	if task.Type == "" {
		return errors.New("task type required")
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.nc.Publish(subjectFor(task.Type), body)
}

// Worker consumes tasks of one type in a queue group until ctx is done.
func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	sub, err := q.nc.QueueSubscribe(subjectFor(taskType), "workers-"+string(taskType), func(msg *nats.Msg) {
		q.handleMessage(ctx, msg.Data, handler)
	})
	if err != nil {
		return err
	}
	q.log.Info("worker subscribed", "subject", sub.Subject, "queue", sub.Queue)
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (q *natsQueue) handleMessage(ctx context.Context, data []byte, handler Handler) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		q.log.Error("failed to decode task", "err", err)
		return
	}
	log := q.log.With("task_id", task.ID, "type", task.Type, "attempt", task.Attempts)

	if wait := time.Until(task.NotBefore); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}

	start := time.Now()
	err := handler(ctx, task)
	if err == nil {
		log.Info("task done", "duration_ms", time.Since(start).Milliseconds())
		return
	}

	next, again := nextAttempt(task, err, q.opts.MaxAttempts, q.opts.RetryBase, time.Now())
	if !again {
		log.Error("task dropped", "err", err, "permanent", IsPermanent(err))
		return
	}
	log.Warn("task failed, retrying", "err", err, "not_before", next.NotBefore)
	if err := q.Enqueue(ctx, next); err != nil {
		log.Error("failed to re-enqueue task", "err", err)
	}
}
