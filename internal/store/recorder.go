package store

import (
	"context"

	"github.com/google/uuid"
)

// SessionRecorder appends answered questions to one stored session.
type SessionRecorder struct {
	Store     Store
	SessionID uuid.UUID
}

func (r SessionRecorder) RecordExchange(ctx context.Context, question, answer string) error {
	_, err := r.Store.SaveExchange(ctx, r.SessionID, question, answer)
	return err
}
