package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue() *natsQueue {
	return NewNATS(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, NATSOptions{}).(*natsQueue)
}

func TestNewNATSDefaults(t *testing.T) {
	q := newTestQueue()
	assert.Equal(t, 5, q.opts.MaxAttempts)
	assert.Equal(t, time.Second, q.opts.RetryBase)
	assert.Equal(t, "studio.tasks.generate", subjectFor(TaskTypeGenerate))
}

func TestEnqueueRequiresType(t *testing.T) {
	assert.EqualError(t, newTestQueue().Enqueue(context.Background(), Task{}), "task type required")
}

func TestHandleMessage(t *testing.T) {
	task := Task{ID: uuid.New(), Type: TaskTypeGenerate, Payload: []byte(`{"session_id":"x"}`)}
	data, err := json.Marshal(task)
	require.NoError(t, err)

	t.Run("delivers decoded task", func(t *testing.T) {
		var got Task
		newTestQueue().handleMessage(context.Background(), data, func(_ context.Context, tk Task) error {
			got = tk
			return nil
		})
		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, task.Payload, got.Payload)
	})

	t.Run("permanent failure is not republished", func(t *testing.T) {
		calls := 0
		// a nil connection would panic on republish
		newTestQueue().handleMessage(context.Background(), data, func(context.Context, Task) error {
			calls++
			return Permanent(errors.New("bad payload"))
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("undecodable message is skipped", func(t *testing.T) {
		newTestQueue().handleMessage(context.Background(), []byte("{"), func(context.Context, Task) error {
			t.Fatal("handler must not run")
			return nil
		})
	})

	t.Run("delayed task waits for context", func(t *testing.T) {
		delayed := task
		delayed.NotBefore = time.Now().Add(time.Hour)
		body, err := json.Marshal(delayed)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		newTestQueue().handleMessage(ctx, body, func(context.Context, Task) error {
			t.Fatal("handler must not run before NotBefore")
			return nil
		})
	})
}
