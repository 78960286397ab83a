package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type SQLStore struct{ db *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) SaveExchange(ctx context.Context, sess Session, msgs ...Message) ([]Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, student_id, course_id, vendor_session_id, title, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
		  vendor_session_id = excluded.vendor_session_id,
		  updated_at = excluded.updated_at`,
		sess.ID, sess.StudentID, sess.CourseID, sess.VendorSessionID, sess.Title,
		sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli()); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		m.SessionID = sess.ID
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO chat_messages (session_id, role, content, created_at)
			VALUES ($1,$2,$3,$4) RETURNING id`,
			m.SessionID, m.Role, m.Content, m.CreatedAt.UnixMilli()).Scan(&m.ID); err != nil {
			return nil, fmt.Errorf("save message: %w", err)
		}
		out = append(out, m)
	}
	return out, tx.Commit()
}

const sessionCols = `id, student_id, course_id, vendor_session_id, title, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanSession(r rowScanner) (Session, error) {
	var (
		s                Session
		created, updated int64
	)
	if err := r.Scan(&s.ID, &s.StudentID, &s.CourseID, &s.VendorSessionID, &s.Title, &created, &updated); err != nil {
		return Session{}, err
	}
	s.CreatedAt = time.UnixMilli(created).UTC()
	s.UpdatedAt = time.UnixMilli(updated).UTC()
	return s, nil
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionCols+` FROM chat_sessions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return sess, err
}

func (s *SQLStore) ListSessions(ctx context.Context, studentID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionCols+` FROM chat_sessions WHERE student_id = $1
		 ORDER BY updated_at DESC, id LIMIT $2`, studentID, limit)
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

func (s *SQLStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM chat_messages
		 WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Message{}
	for rows.Next() {
		var (
			m  Message
			ts int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &ts); err != nil {
			return nil, err
		}
		m.CreatedAt = time.UnixMilli(ts).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
