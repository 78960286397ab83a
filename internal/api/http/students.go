package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/studycoach/internal/coursework"
	"github.com/mind-engage/studycoach/internal/platform/apierr"
	"github.com/mind-engage/studycoach/internal/platform/httpx"
	"github.com/mind-engage/studycoach/internal/platform/logger"
	"github.com/mind-engage/studycoach/internal/rbac"
	"github.com/mind-engage/studycoach/internal/studyaid"
)

const maxListLimit = 200

// isStudentOwner reports whether the {studentID} path parameter is the caller.
func isStudentOwner(r *http.Request) bool {
	sub := rbac.SubjectFromContext(r.Context())
	return sub != "" && chi.URLParam(r, "studentID") == sub
}

// GET /students/{studentID}/learning-gaps?course_id=
func LearningGapsHandler(svc *studyaid.InsightsService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(r.URL.Query().Get("course_id"))
		out, err := svc.LearningGaps(r.Context(), chi.URLParam(r, "studentID"), courseID)
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"courses": out})
	}
}

// GET /students/{studentID}/performance?course_id=
func PerformanceHandler(svc *studyaid.InsightsService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(r.URL.Query().Get("course_id"))
		out, err := svc.Performance(r.Context(), chi.URLParam(r, "studentID"), courseID)
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// GET /students/{studentID}/courses
func ListCoursesHandler(store coursework.Store, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courses, err := store.ListCourses(r.Context(), chi.URLParam(r, "studentID"))
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"courses": courses})
	}
}

// GET /students/{studentID}/items?course_id=&status=&limit=50&offset=0
func ListItemsHandler(store coursework.Store, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		status := coursework.Status(strings.TrimSpace(q.Get("status")))
		switch status {
		case "", coursework.StatusUpcoming, coursework.StatusSubmitted, coursework.StatusGraded, coursework.StatusMissing:
		default:
			apierr.Write(w, apierr.BadRequest("invalid_status", fmt.Errorf("unknown status %q", status)))
			return
		}
		items, err := store.ListItems(r.Context(), coursework.ListOpts{
			StudentID: chi.URLParam(r, "studentID"),
			CourseID:  strings.TrimSpace(q.Get("course_id")),
			Status:    status,
			Limit:     min(parseIntDefault(q.Get("limit"), 50), maxListLimit),
			Offset:    parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func parseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return def
	}
	return n
}
