// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrNotFound       = errors.New("not found")
)

// =============================================================================
// SCHEMA
// =============================================================================

// Schema is applied on every open; all statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	role     TEXT NOT NULL DEFAULT 'user'
);

CREATE TABLE IF NOT EXISTS knowledge_base (
	key     TEXT PRIMARY KEY,
	content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS shortcuts (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id   INTEGER NOT NULL,
	text      TEXT NOT NULL,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users (id)
);

CREATE TABLE IF NOT EXISTS conversation_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	timestamp  DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users (id)
);

CREATE TABLE IF NOT EXISTS feedback (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	user_query   TEXT NOT NULL,
	bot_response TEXT NOT NULL,
	rating       INTEGER NOT NULL,
	correction   TEXT,
	timestamp    DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users (id)
);
`

// =============================================================================
// STORE
// =============================================================================

// User is an account that may log in.
type User struct {
	ID       int64
	Username string
	Role     string
}

// ShortcutRow is a stored shortcut.
type ShortcutRow struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// FeedbackRow is a stored rating.
type FeedbackRow struct {
	UserQuery   string
	BotResponse string
	Rating      int
	Correction  *string
}

// Store persists users, shortcuts, history and feedback in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the database at path. Use ":memory:"
// for a throwaway store.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time; a single connection also
	// keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureUser creates username with password unless it already exists.
func (s *Store) EnsureUser(ctx context.Context, username, password, role string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if role == "" {
		role = "user"
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (username, password, role) VALUES (?, ?, ?)`, username, string(hash), role)
	return err
}

// Authenticate checks a username and password.
func (s *Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT id, username, role, password FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.Role, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

// ListShortcuts returns a user's shortcuts, newest first.
func (s *Store) ListShortcuts(ctx context.Context, userID int64) ([]ShortcutRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text FROM shortcuts WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []ShortcutRow{}
	for rows.Next() {
		var r ShortcutRow
		if err := rows.Scan(&r.ID, &r.Text); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// AddShortcut stores text and returns its id.
func (s *Store) AddShortcut(ctx context.Context, userID int64, text string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO shortcuts (user_id, text) VALUES (?, ?)`, userID, text)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteShortcut removes one of the user's shortcuts.
func (s *Store) DeleteShortcut(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shortcuts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddFeedback stores a rating.
func (s *Store) AddFeedback(ctx context.Context, userID int64, fb FeedbackRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (user_id, user_query, bot_response, rating, correction) VALUES (?, ?, ?, ?, ?)`,
		userID, fb.UserQuery, fb.BotResponse, fb.Rating, fb.Correction)
	return err
}

// Feedback returns a user's ratings, oldest first.
func (s *Store) Feedback(ctx context.Context, userID int64) ([]FeedbackRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_query, bot_response, rating, correction FROM feedback WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []FeedbackRow
	for rows.Next() {
		var r FeedbackRow
		var correction sql.NullString
		if err := rows.Scan(&r.UserQuery, &r.BotResponse, &r.Rating, &correction); err != nil {
			return nil, err
		}
		if correction.Valid {
			c := correction.String
			r.Correction = &c
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// AppendHistory records one turn of a conversation.
func (s *Store) AppendHistory(ctx context.Context, userID int64, sessionID, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_history (user_id, session_id, role, content) VALUES (?, ?, ?, ?)`,
		userID, sessionID, role, content)
	return err
}

// PutKnowledge sets an entry of the knowledge base.
func (s *Store) PutKnowledge(ctx context.Context, key, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge_base (key, content) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET content = excluded.content`,
		strings.ToLower(key), content)
	return err
}

// LookupKnowledge returns the content of the first key contained in message.
func (s *Store) LookupKnowledge(ctx context.Context, message string) (string, bool, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM knowledge_base WHERE instr(?, key) > 0 ORDER BY length(key) DESC LIMIT 1`,
		strings.ToLower(message)).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return content, true, nil
}
