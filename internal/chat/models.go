// Package chat keeps tutoring conversations between a student and the
// CreateAI assistant.
package chat

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("chat: session not found")
	ErrEmptyMessage = errors.New("chat: message is empty")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Session struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	CourseID        string    `json:"course_id,omitempty"`
	VendorSessionID string    `json:"-"`
	Title           string    `json:"title"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	// SaveExchange upserts the session and appends the messages in one transaction.
	SaveExchange(ctx context.Context, s Session, msgs ...Message) ([]Message, error)
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, studentID string, limit int) ([]Session, error)
	Messages(ctx context.Context, sessionID string) ([]Message, error)
}
