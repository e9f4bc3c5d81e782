package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"topic-studio/internal/app"
	"topic-studio/internal/httputil"
	"topic-studio/internal/queue"
	"topic-studio/internal/store"
	"topic-studio/internal/studio"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type createSessionRequest struct {
	Topic string `json:"topic" validate:"required,max=200"`
}

type questionRequest struct {
	Question string `json:"question" validate:"required,max=500"`
}

type generateTaskPayload struct {
	SessionID uuid.UUID `json:"session_id"`
}

func main() {
	deps, err := app.BuildService()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	r := httputil.NewRouter(deps.Log, deps.Config.LLMTimeout+30*time.Second)
	routes(r, deps)

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("api listening", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func routes(r chi.Router, deps app.Deps) {
	answerer := deps.Answerer()

	r.Post("/api/sessions", createSessionHandler(deps))
	r.Get("/api/sessions", listSessionsHandler(deps))
	r.Get("/api/sessions/{id}", getSessionHandler(deps))
	r.Post("/api/sessions/{id}/questions", questionHandler(deps, answerer))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
}

func createSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		req.Topic = strings.TrimSpace(req.Topic)
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		sess, err := deps.Store.CreateSession(ctx, req.Topic)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist session", err, http.StatusInternalServerError)
			return
		}
		log := deps.Log.With("session_id", sess.ID)

		body, err := json.Marshal(generateTaskPayload{SessionID: sess.ID})
		if err != nil {
			fail(ctx, deps, log, w, "marshal payload failed", err, sess.ID)
			return
		}
		task := queue.Task{Type: queue.TaskTypeGenerate, Payload: body}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			fail(ctx, deps, log, w, "failed to enqueue session; please retry", err, sess.ID)
			return
		}

		log.Info("session accepted", "topic", sess.Topic)
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"id":     sess.ID.String(),
			"status": sess.Status,
		})
	}
}

// fail marks a freshly created session failed before reporting a 500.
func fail(ctx context.Context, deps app.Deps, log *slog.Logger, w http.ResponseWriter, message string, err error, id uuid.UUID) {
	if upErr := deps.Store.MarkFailed(context.WithoutCancel(ctx), id, message); upErr != nil {
		log.Error("failed to mark session failed", "err", upErr)
	}
	httputil.Fail(log, w, message, err, http.StatusInternalServerError)
}

func listSessionsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses, err := parseStatuses(r.URL.Query().Get("status"))
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		sessions, err := deps.Store.ListSessions(r.Context(), statuses, limit)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to list sessions", err, http.StatusInternalServerError)
			return
		}
		if sessions == nil {
			sessions = []store.Session{}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	}
}

// parseStatuses reads a comma separated status filter. Empty means all.
func parseStatuses(raw string) ([]store.SessionStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []store.SessionStatus
	for _, part := range strings.Split(raw, ",") {
		status := store.SessionStatus(strings.ToLower(strings.TrimSpace(part)))
		switch status {
		case store.StatusPending, store.StatusReady, store.StatusFailed:
			out = append(out, status)
		default:
			return nil, fmt.Errorf("unknown status %q", part)
		}
	}
	return out, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxListLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxListLimit)
	}
	return limit, nil
}

func getSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid session id", err, http.StatusBadRequest)
			return
		}
		sess, ok := loadSession(deps, w, r, id)
		if !ok {
			return
		}
		exchanges, err := deps.Store.ListExchanges(r.Context(), id)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load transcript", err, http.StatusInternalServerError)
			return
		}
		if exchanges == nil {
			exchanges = []store.Exchange{}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"session":   sess,
			"exchanges": exchanges,
		})
	}
}

func questionHandler(deps app.Deps, answerer studio.Answerer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid session id", err, http.StatusBadRequest)
			return
		}
		var req questionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		req.Question = strings.TrimSpace(req.Question)
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		sess, ok := loadSession(deps, w, r, id)
		if !ok {
			return
		}
		log := deps.Log.With("session_id", id)
		if sess.Status != store.StatusReady {
			httputil.Fail(log, w, fmt.Sprintf("session is %s, not ready", sess.Status), nil, http.StatusConflict)
			return
		}

		answer, err := answerer.Answer(ctx, studio.BuildContext(sess.Topic, sess.Outline, sess.Summary), req.Question)
		if err != nil {
			status := http.StatusInternalServerError
			if studio.IsGenerationFailure(err) {
				status = http.StatusBadGateway
			}
			httputil.Fail(log, w, "failed to answer question", err, status)
			return
		}

		exchange, err := deps.Store.SaveExchange(ctx, id, req.Question, answer)
		if err != nil {
			httputil.Fail(log, w, "failed to persist exchange", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"answer":      answer,
			"exchange_id": exchange.ID.String(),
		})
	}
}

func loadSession(deps app.Deps, w http.ResponseWriter, r *http.Request, id uuid.UUID) (store.Session, bool) {
	sess, err := deps.Store.GetSession(r.Context(), id)
	if errors.Is(err, store.ErrSessionNotFound) {
		httputil.Fail(deps.Log, w, "session not found", err, http.StatusNotFound)
		return store.Session{}, false
	}
	if err != nil {
		httputil.Fail(deps.Log, w, "failed to load session", err, http.StatusInternalServerError)
		return store.Session{}, false
	}
	return sess, true
}
