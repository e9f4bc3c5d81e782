package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateSession(ctx context.Context, topic string) (Session, error) {
	args := m.Called(ctx, topic)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockStore) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockStore) ListSessions(ctx context.Context, statuses []SessionStatus, limit int) ([]Session, error) {
	args := m.Called(ctx, statuses, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Session), args.Error(1)
}

func (m *MockStore) SaveArtifacts(ctx context.Context, id uuid.UUID, outline, summary string) error {
	args := m.Called(ctx, id, outline, summary)
	return args.Error(0)
}

func (m *MockStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockStore) SaveExchange(ctx context.Context, sessionID uuid.UUID, question, answer string) (Exchange, error) {
	args := m.Called(ctx, sessionID, question, answer)
	return args.Get(0).(Exchange), args.Error(1)
}

func (m *MockStore) ListExchanges(ctx context.Context, sessionID uuid.UUID) ([]Exchange, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Exchange), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
