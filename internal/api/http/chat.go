package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/studycoach/internal/chat"
	"github.com/mind-engage/studycoach/internal/platform/apierr"
	"github.com/mind-engage/studycoach/internal/platform/httpx"
	"github.com/mind-engage/studycoach/internal/platform/logger"
	"github.com/mind-engage/studycoach/internal/rbac"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	CourseID  string `json:"course_id"`
	Message   string `json:"message" validate:"required,max=8000"`
}

// POST /chat
func SendChatHandler(svc *chat.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			apierr.Write(w, err)
			return
		}
		reply, err := svc.Send(r.Context(), chat.SendRequest{
			StudentID: rbac.SubjectFromContext(r.Context()),
			SessionID: req.SessionID,
			CourseID:  req.CourseID,
			Message:   req.Message,
		})
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, reply)
	}
}

// GET /chat/sessions
func ListChatSessionsHandler(svc *chat.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := svc.ListSessions(r.Context(), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	}
}

// GET /chat/sessions/last
func LastChatSessionHandler(svc *chat.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.LastSession(r.Context(), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, s)
	}
}

// GET /chat/sessions/{sessionID}/messages
func ChatMessagesHandler(svc *chat.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := svc.Messages(r.Context(), rbac.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"messages": msgs})
	}
}
