package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/studycoach/internal/coursework"
	"github.com/mind-engage/studycoach/internal/eventlog"
	"github.com/mind-engage/studycoach/internal/platform/apierr"
	"github.com/mind-engage/studycoach/internal/platform/httpx"
	"github.com/mind-engage/studycoach/internal/platform/logger"
	"github.com/mind-engage/studycoach/internal/rbac"
	"github.com/mind-engage/studycoach/internal/studyaid"
)

type questionRequest struct {
	Topic         string `json:"topic" validate:"required"`
	CorrectAnswer string `json:"correct_answer"`
	StudentAnswer string `json:"student_answer"`
	AnswerKind    string `json:"answer_kind" validate:"omitempty,oneof=exact choice short_word numeric"`
	IsCorrect     *bool  `json:"is_correct"`
}

type attemptRequest struct {
	AttemptNo   int                    `json:"attempt_no" validate:"gte=0"`
	SubmittedAt *time.Time             `json:"submitted_at"`
	Score       *float64               `json:"score" validate:"omitempty,gte=0"`
	Questions   []questionRequest      `json:"questions" validate:"dive"`
	Submission  *coursework.Submission `json:"submission"`
}

func (a attemptRequest) toAttempt() coursework.Attempt {
	out := coursework.Attempt{
		AttemptNo:  a.AttemptNo,
		Score:      a.Score,
		Submission: a.Submission,
	}
	if a.SubmittedAt != nil {
		out.SubmittedAt = a.SubmittedAt.UTC()
	}
	for _, q := range a.Questions {
		out.Questions = append(out.Questions, coursework.Question(q))
	}
	return out
}

type upsertItemRequest struct {
	StudentID      string              `json:"student_id" validate:"required"`
	CourseID       string              `json:"course_id" validate:"required"`
	Type           coursework.ItemType `json:"type" validate:"required,oneof=quiz assignment exam"`
	Title          string              `json:"title" validate:"required"`
	PointsPossible float64             `json:"points_possible" validate:"gte=0"`
	LatestScore    *float64            `json:"latest_score" validate:"omitempty,gte=0"`
	AttemptCount   int                 `json:"attempt_count" validate:"gte=0"`
	DueDate        *time.Time          `json:"due_date"`
	Status         coursework.Status   `json:"status" validate:"required,oneof=upcoming submitted graded missing"`
	Attempts       []attemptRequest    `json:"attempts" validate:"dive"`
}

// PUT /items/{itemID}
func UpsertItemHandler(store coursework.Store, svc *studyaid.InsightsService, events eventlog.Appender, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req upsertItemRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			apierr.Write(w, err)
			return
		}
		it := coursework.CourseItem{
			ID:             chi.URLParam(r, "itemID"),
			StudentID:      req.StudentID,
			CourseID:       req.CourseID,
			Type:           req.Type,
			Title:          req.Title,
			PointsPossible: req.PointsPossible,
			LatestScore:    req.LatestScore,
			AttemptCount:   req.AttemptCount,
			DueDate:        req.DueDate,
			Status:         req.Status,
		}
		for _, a := range req.Attempts {
			it.Attempts = append(it.Attempts, a.toAttempt())
		}
		prev, err := store.GetItem(r.Context(), it.ID)
		if err != nil && !errors.Is(err, coursework.ErrNotFound) {
			writeErr(w, r, log, err)
			return
		}
		saved, err := store.UpsertItem(r.Context(), it)
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		svc.Invalidate(r.Context(), saved.StudentID, saved.CourseID)
		// an item moved to another student or course leaves stale insights behind
		if prev.ID != "" && (prev.StudentID != saved.StudentID || prev.CourseID != saved.CourseID) {
			svc.Invalidate(r.Context(), prev.StudentID, prev.CourseID)
		}
		if err := events.Append(r.Context(), eventlog.TypeCourseItemUpserted, saved.StudentID, map[string]any{
			"item_id": saved.ID, "course_id": saved.CourseID, "status": saved.Status,
		}); err != nil {
			log.Warn("event append failed", "event", eventlog.TypeCourseItemUpserted, "error", err.Error())
		}
		httpx.WriteJSON(w, http.StatusOK, saved)
	}
}

// GET /items/{itemID}
// Students only see their own items; others are reported as missing.
func GetItemHandler(store coursework.Store, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := store.GetItem(r.Context(), chi.URLParam(r, "itemID"))
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		if !canActOn(r, it.StudentID, rbac.PermItemsViewOwn, rbac.PermItemsViewAll) {
			writeErr(w, r, log, coursework.ErrNotFound)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, it)
	}
}

// POST /items/{itemID}/attempts
// Records the next attempt, drops cached insights for the student's course
// and appends an AttemptRecorded event.
func RecordAttemptHandler(store coursework.Store, svc *studyaid.InsightsService, events eventlog.Appender, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		it, err := store.GetItem(ctx, chi.URLParam(r, "itemID"))
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		if !canActOn(r, it.StudentID, rbac.PermAttemptsOwn, rbac.PermAttemptsAll) {
			writeErr(w, r, log, coursework.ErrNotFound)
			return
		}

		var req attemptRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			apierr.Write(w, err)
			return
		}
		a := req.toAttempt()
		a.AttemptNo = 0 // assigned by the store
		updated, err := store.RecordAttempt(ctx, it.ID, a)
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		svc.Invalidate(ctx, updated.StudentID, updated.CourseID)

		latest, _ := updated.LatestAttempt()
		if err := events.Append(ctx, eventlog.TypeAttemptRecorded, updated.StudentID, map[string]any{
			"item_id":    updated.ID,
			"course_id":  updated.CourseID,
			"attempt_no": latest.AttemptNo,
			"score":      latest.Score,
		}); err != nil {
			log.Warn("event append failed", "event", eventlog.TypeAttemptRecorded, "error", err.Error())
		}
		httpx.WriteJSON(w, http.StatusCreated, updated)
	}
}

// canActOn allows callers holding allPerm, and owners holding ownPerm.
func canActOn(r *http.Request, ownerID, ownPerm, allPerm string) bool {
	ctx := r.Context()
	if rbac.Can(ctx, allPerm) {
		return true
	}
	sub := rbac.SubjectFromContext(ctx)
	return sub != "" && sub == ownerID && rbac.Can(ctx, ownPerm)
}
