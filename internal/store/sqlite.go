package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"docpilot/internal/domain"
	"docpilot/internal/shared"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS agent_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		goal TEXT NOT NULL,
		state TEXT NOT NULL,
		repo_json TEXT,
		repository TEXT,
		messages_json TEXT NOT NULL DEFAULT '[]',
		steps_json TEXT NOT NULL DEFAULT '[]',
		preview_id TEXT,
		pr_json TEXT,
		head_branch TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_agent_sessions_user ON agent_sessions(user_id, updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const sessionColumns = `id, user_id, name, goal, state, repo_json, repository,
	messages_json, steps_json, preview_id, pr_json, head_branch,
	version, created_at, updated_at`

// CreateSession inserts a new session record.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.AgentSession) error {
	repoJSON, prJSON, messagesJSON, stepsJSON, err := marshalSessionColumns(session)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO agent_sessions (` + sessionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.Name, session.Goal, string(session.State),
		repoJSON, nullString(session.Repository),
		messagesJSON, stepsJSON,
		nullString(session.PreviewID), prJSON, nullString(session.HeadBranch),
		session.Version,
		session.CreatedAt.Unix(), session.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session owned by userID.
func (s *SQLiteStore) GetSession(ctx context.Context, userID, sessionID string) (*domain.AgentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM agent_sessions WHERE id = ? AND user_id = ?`
	row := s.db.QueryRowContext(ctx, query, sessionID, userID)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return session, nil
}

// ListSessions retrieves all sessions owned by userID.
func (s *SQLiteStore) ListSessions(ctx context.Context, userID string) ([]*domain.AgentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM agent_sessions WHERE user_id = ? ORDER BY updated_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session rows", "error", closeErr)
		}
	}()

	var sessions []*domain.AgentSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// UpdateSession writes the session back guarded by its version.
// Retries transient SQLITE_BUSY conflicts with exponential backoff; a
// genuine version mismatch surfaces as ErrVersionConflict immediately.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *domain.AgentSession) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.updateSessionOnce(ctx, session)
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		if i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("UpdateSession hit SQLITE_BUSY, retrying",
				"session_id", session.ID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
		}
	}
	return fmt.Errorf("update session %s after %d attempts: %w", session.ID, maxRetries, err)
}

func (s *SQLiteStore) updateSessionOnce(ctx context.Context, session *domain.AgentSession) error {
	repoJSON, prJSON, messagesJSON, stepsJSON, err := marshalSessionColumns(session)
	if err != nil {
		return err
	}

	query := `
	UPDATE agent_sessions SET
		name = ?, goal = ?, state = ?, repo_json = ?, repository = ?,
		messages_json = ?, steps_json = ?,
		preview_id = ?, pr_json = ?, head_branch = ?,
		version = version + 1, updated_at = ?
	WHERE id = ? AND user_id = ? AND version = ?`

	result, err := s.db.ExecContext(ctx, query,
		session.Name, session.Goal, string(session.State),
		repoJSON, nullString(session.Repository),
		messagesJSON, stepsJSON,
		nullString(session.PreviewID), prJSON, nullString(session.HeadBranch),
		session.UpdatedAt.Unix(),
		session.ID, session.UserID, session.Version,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	session.Version++
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*domain.AgentSession, error) {
	var session domain.AgentSession
	var state string
	var repoJSON, repository, previewID, prJSON, headBranch sql.NullString
	var messagesJSON, stepsJSON string
	var createdAt, updatedAt int64

	err := row.Scan(
		&session.ID, &session.UserID, &session.Name, &session.Goal, &state,
		&repoJSON, &repository,
		&messagesJSON, &stepsJSON,
		&previewID, &prJSON, &headBranch,
		&session.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	session.State = domain.State(state)
	session.Repository = repository.String
	session.PreviewID = previewID.String
	session.HeadBranch = headBranch.String
	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)

	if repoJSON.Valid {
		var repo domain.RepoRef
		if err := json.Unmarshal([]byte(repoJSON.String), &repo); err != nil {
			return nil, fmt.Errorf("decode repo: %w", err)
		}
		session.Repo = &repo
	}
	if prJSON.Valid {
		var pr domain.PullRequest
		if err := json.Unmarshal([]byte(prJSON.String), &pr); err != nil {
			return nil, fmt.Errorf("decode pr: %w", err)
		}
		session.PR = &pr
	}
	if err := json.Unmarshal([]byte(messagesJSON), &session.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if err := json.Unmarshal([]byte(stepsJSON), &session.Steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}

	return &session, nil
}

func marshalSessionColumns(session *domain.AgentSession) (repoJSON, prJSON any, messagesJSON, stepsJSON string, err error) {
	if session.Repo != nil {
		buf, err := json.Marshal(session.Repo)
		if err != nil {
			return nil, nil, "", "", fmt.Errorf("encode repo: %w", err)
		}
		repoJSON = string(buf)
	}
	if session.PR != nil {
		buf, err := json.Marshal(session.PR)
		if err != nil {
			return nil, nil, "", "", fmt.Errorf("encode pr: %w", err)
		}
		prJSON = string(buf)
	}

	messages := session.Messages
	if messages == nil {
		messages = []domain.Message{}
	}
	buf, err := json.Marshal(messages)
	if err != nil {
		return nil, nil, "", "", fmt.Errorf("encode messages: %w", err)
	}
	messagesJSON = string(buf)

	steps := session.Steps
	if steps == nil {
		steps = []domain.Step{}
	}
	buf, err = json.Marshal(steps)
	if err != nil {
		return nil, nil, "", "", fmt.Errorf("encode steps: %w", err)
	}
	stepsJSON = string(buf)

	return repoJSON, prJSON, messagesJSON, stepsJSON, nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
