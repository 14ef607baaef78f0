// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/whirlwindnoa/ams/internal/model"
)

const sessionColumns = "token, user_id, expires, created_at, ip, user_agent"

func scanSession(row *sql.Row) (model.Session, error) {
	var s model.Session
	err := row.Scan(&s.Token, &s.UserID, &s.Expires, &s.CreatedAt, &s.IP, &s.UserAgent)
	return s, err
}

// CreateSessionParams holds the fields for creating a session.
type CreateSessionParams struct {
	Token     string
	UserID    int64
	Expires   time.Time
	CreatedAt time.Time
	IP        string
	UserAgent string
}

// CreateSession inserts a new session row.
func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires, created_at, ip, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		arg.Token, arg.UserID, arg.Expires, arg.CreatedAt, arg.IP, arg.UserAgent)
	return err
}

// GetSessionByToken returns the session with the given token.
func (q *Queries) GetSessionByToken(ctx context.Context, token string) (model.Session, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = ?`, token)
	return scanSession(row)
}

// SessionTokenExists reports whether a session with the given token exists.
func (q *Queries) SessionTokenExists(ctx context.Context, token string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE token = ?`, token).Scan(&n)
	return n > 0, err
}

// ListSessionsByUser returns all of a user's sessions ordered by expiry,
// latest-expiring first.
func (q *Queries) ListSessionsByUser(ctx context.Context, userID int64) ([]model.Session, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = ?
		 ORDER BY expires DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.Token, &s.UserID, &s.Expires, &s.CreatedAt, &s.IP, &s.UserAgent); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListSessionTokensByUser returns the tokens of all of a user's sessions.
func (q *Queries) ListSessionTokensByUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT token FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// UpdateSessionExpiresParams holds the fields for a sliding-expiry refresh.
type UpdateSessionExpiresParams struct {
	Expires time.Time
	Token   string
}

// UpdateSessionExpires extends a session's absolute expiry instant.
func (q *Queries) UpdateSessionExpires(ctx context.Context, arg UpdateSessionExpiresParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE sessions SET expires = ? WHERE token = ?`, arg.Expires, arg.Token)
	return err
}

// DeleteSession removes a session row. Deleting an absent token is a no-op.
func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// CountSessionsByUser returns the number of sessions held by a user.
func (q *Queries) CountSessionsByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}
