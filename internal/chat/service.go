package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mind-engage/studycoach/internal/createai"
	"github.com/mind-engage/studycoach/internal/eventlog"
	"github.com/mind-engage/studycoach/internal/platform/logger"
)

const (
	maxTitleRunes = 60
	tutorPrompt   = "You are a friendly tutor helping a university student understand their coursework. Guide them toward answers rather than just giving them away."
)

type Querier interface {
	Query(ctx context.Context, q createai.QueryRequest) (createai.QueryResponse, error)
}

type Service struct {
	store   Store
	ai      Querier
	tracker *SessionTracker
	events  eventlog.Appender
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store Store, ai Querier, tracker *SessionTracker, events eventlog.Appender, log *logger.Logger) *Service {
	return &Service{store: store, ai: ai, tracker: tracker, events: events, log: log.With("service", "ChatService"), now: time.Now}
}

type SendRequest struct {
	StudentID string
	SessionID string // empty starts a new session
	CourseID  string
	Message   string
}

type Reply struct {
	Session   Session `json:"session"`
	User      Message `json:"user"`
	Assistant Message `json:"assistant"`
}

// Send forwards a student message to the assistant and stores both sides of
// the exchange. Nothing is stored when the assistant call fails.
func (s *Service) Send(ctx context.Context, req SendRequest) (Reply, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}
	now := s.now().UTC()

	var sess Session
	if req.SessionID != "" {
		var err error
		if sess, err = s.owned(ctx, req.StudentID, req.SessionID); err != nil {
			return Reply{}, err
		}
	} else {
		sess = Session{
			ID:        uuid.NewString(),
			StudentID: req.StudentID,
			CourseID:  req.CourseID,
			Title:     title(text),
			CreatedAt: now,
		}
	}

	resp, err := s.ai.Query(ctx, createai.QueryRequest{
		Query:        text,
		SessionID:    sess.VendorSessionID,
		SystemPrompt: tutorPrompt,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("chat query: %w", err)
	}

	sess.VendorSessionID = resp.SessionID
	sess.UpdatedAt = now
	saved, err := s.store.SaveExchange(ctx, sess,
		Message{Role: RoleUser, Content: text, CreatedAt: now},
		Message{Role: RoleAssistant, Content: resp.Response, CreatedAt: now},
	)
	if err != nil {
		return Reply{}, err
	}

	if err := s.tracker.Track(ctx, req.StudentID, sess.ID); err != nil {
		s.log.Warn("session tracking failed", "student_id", req.StudentID, "error", err.Error())
	}
	if err := s.events.Append(ctx, eventlog.TypeChatMessageSent, req.StudentID, map[string]any{
		"session_id": sess.ID, "course_id": sess.CourseID,
	}); err != nil {
		s.log.Warn("event append failed", "event", eventlog.TypeChatMessageSent, "error", err.Error())
	}
	return Reply{Session: sess, User: saved[0], Assistant: saved[1]}, nil
}

// owned loads a session and hides sessions of other students as missing.
func (s *Service) owned(ctx context.Context, studentID, sessionID string) (Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.StudentID != studentID {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *Service) ListSessions(ctx context.Context, studentID string) ([]Session, error) {
	return s.store.ListSessions(ctx, studentID, 0)
}

func (s *Service) Messages(ctx context.Context, studentID, sessionID string) ([]Message, error) {
	if _, err := s.owned(ctx, studentID, sessionID); err != nil {
		return nil, err
	}
	return s.store.Messages(ctx, sessionID)
}

// LastSession resolves the tracked session, falling back to the most
// recently updated one when the pointer has expired.
func (s *Service) LastSession(ctx context.Context, studentID string) (Session, error) {
	id, ok, err := s.tracker.Last(ctx, studentID)
	if err != nil {
		s.log.Warn("session tracker lookup failed", "student_id", studentID, "error", err.Error())
	}
	if ok {
		sess, err := s.owned(ctx, studentID, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Session{}, err
		}
	}
	list, err := s.store.ListSessions(ctx, studentID, 1)
	if err != nil {
		return Session{}, err
	}
	if len(list) == 0 {
		return Session{}, ErrNotFound
	}
	return list[0], nil
}

func title(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxTitleRunes {
		return text
	}
	r := []rune(text)
	return string(r[:maxTitleRunes-1]) + "…"
}
