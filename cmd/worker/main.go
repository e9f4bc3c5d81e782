package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"topic-studio/internal/app"
	"topic-studio/internal/httputil"
	"topic-studio/internal/queue"
	"topic-studio/internal/store"
	"topic-studio/internal/studio"
)

type generateTaskPayload struct {
	SessionID string `json:"session_id"`
}

func main() {
	deps, err := app.BuildService()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()
	deps.Log.Info("generation worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	pipeline := deps.Pipeline()
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeGenerate, func(ctx context.Context, task queue.Task) error {
			var payload generateTaskPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				return queue.Permanent(err)
			}
			return handleGenerate(ctx, deps, pipeline, payload)
		})
	})

	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, "worker", deps.Config.Port)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		deps.Log.Error("worker stopped", "err", err)
	}
}

// handleGenerate runs the outline and summary stages for one pending session.
// Generation failures are final and recorded on the session; store errors are
// returned so the queue retries the task.
func handleGenerate(ctx context.Context, deps app.Deps, pipeline *studio.Pipeline, payload generateTaskPayload) error {
	sess, err := loadPending(ctx, deps, payload.SessionID)
	if err != nil || sess == nil {
		return err
	}
	log := deps.Log.With("session_id", sess.ID, "topic", sess.Topic)

	res, err := pipeline.Prepare(ctx, sess.Topic, io.Discard, studio.Hooks{})
	if err != nil {
		// shutdown, not a verdict on the topic: leave it pending for redelivery
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !isPermanent(err) {
			return err
		}
		log.Warn("generation failed, marking session failed", "err", err)
		return deps.Store.MarkFailed(context.WithoutCancel(ctx), sess.ID, err.Error())
	}

	if err := deps.Store.SaveArtifacts(ctx, sess.ID, res.Outline, res.Summary); err != nil {
		return err
	}
	log.Info("session ready", "outline_bytes", len(res.Outline))
	return nil
}

// loadPending returns nil without error when the task no longer applies:
// the session is gone or was already processed by an earlier delivery.
func loadPending(ctx context.Context, deps app.Deps, rawID string) (*store.Session, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, queue.Permanent(fmt.Errorf("invalid session id %q: %w", rawID, err))
	}
	sess, err := deps.Store.GetSession(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		deps.Log.Warn("dropping task for unknown session", "session_id", id)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.Status != store.StatusPending {
		deps.Log.Info("session already processed", "session_id", id, "status", sess.Status)
		return nil, nil
	}
	return &sess, nil
}

func isPermanent(err error) bool {
	return studio.IsGenerationFailure(err) ||
		errors.Is(err, studio.ErrEmptyTopic) ||
		errors.Is(err, studio.ErrEmptyOutline)
}
