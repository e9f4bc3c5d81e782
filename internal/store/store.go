package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusPending SessionStatus = "pending"
	StatusReady   SessionStatus = "ready"
	StatusFailed  SessionStatus = "failed"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one topic with its generated artifacts. Outline and Summary
// are empty until the session is ready.
type Session struct {
	ID        uuid.UUID     `json:"id"`
	Topic     string        `json:"topic"`
	Status    SessionStatus `json:"status"`
	Outline   string        `json:"outline,omitempty"`
	Summary   string        `json:"summary,omitempty"`
	Failure   string        `json:"failure,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Exchange is one answered follow-up question.
type Exchange struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines persistence contract; an external DB implementation can replace this.
type Store interface {
	CreateSession(ctx context.Context, topic string) (Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (Session, error)
	ListSessions(ctx context.Context, statuses []SessionStatus, limit int) ([]Session, error)
	SaveArtifacts(ctx context.Context, id uuid.UUID, outline, summary string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	SaveExchange(ctx context.Context, sessionID uuid.UUID, question, answer string) (Exchange, error)
	ListExchanges(ctx context.Context, sessionID uuid.UUID) ([]Exchange, error)
	Close() error
}
