package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

const defaultListLimit = 50

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps the api and worker from migrating at the same time.
	const lockID = 582917364

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			topic TEXT NOT NULL,
			status TEXT NOT NULL,
			outline TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			failure TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS sessions_status_created_idx ON sessions (status, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS exchanges (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS exchanges_session_idx ON exchanges (session_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, topic string) (Session, error) {
	now := time.Now().UTC()
	sess := Session{ID: uuid.New(), Topic: topic, Status: StatusPending, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, topic, status, created_at, updated_at) VALUES($1,$2,$3,$4,$5)`,
		sess.ID, sess.Topic, sess.Status, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

const sessionColumns = `id, topic, status, outline, summary, failure, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.Topic, &sess.Status, &sess.Outline, &sess.Summary,
		&sess.Failure, &sess.CreatedAt, &sess.UpdatedAt)
	return sess, err
}

func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id=$1`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns the newest sessions, optionally filtered by status.
func (s *PostgresStore) ListSessions(ctx context.Context, statuses []SessionStatus, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	filter := make([]string, len(statuses))
	for i, st := range statuses {
		filter[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE cardinality($1::text[]) = 0 OR status = ANY($1::text[])
		ORDER BY created_at DESC
		LIMIT $2`, pq.Array(filter), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveArtifacts(ctx context.Context, id uuid.UUID, outline, summary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET outline=$1, summary=$2, status=$3, failure='', updated_at=now() WHERE id=$4`,
		outline, summary, StatusReady, id)
	return checkUpdated(res, err)
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status=$1, failure=$2, updated_at=now() WHERE id=$3`,
		StatusFailed, reason, id)
	return checkUpdated(res, err)
}

func checkUpdated(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) SaveExchange(ctx context.Context, sessionID uuid.UUID, question, answer string) (Exchange, error) {
	ex := Exchange{ID: uuid.New(), SessionID: sessionID, Question: question, Answer: answer, CreatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges(id, session_id, question, answer, created_at) VALUES($1,$2,$3,$4,$5)`,
		ex.ID, ex.SessionID, ex.Question, ex.Answer, ex.CreatedAt)
	if err != nil {
		return Exchange{}, err
	}
	return ex, nil
}

func (s *PostgresStore) ListExchanges(ctx context.Context, sessionID uuid.UUID) ([]Exchange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, created_at FROM exchanges WHERE session_id=$1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Exchange{}
	for rows.Next() {
		ex := Exchange{SessionID: sessionID}
		if err := rows.Scan(&ex.ID, &ex.Question, &ex.Answer, &ex.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
