package http

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/studycoach/internal/platform/apierr"
	"github.com/mind-engage/studycoach/internal/platform/httpx"
	"github.com/mind-engage/studycoach/internal/platform/logger"
	"github.com/mind-engage/studycoach/internal/rbac"
	"github.com/mind-engage/studycoach/internal/storage"
	"github.com/mind-engage/studycoach/internal/studyaid"
)

type studyAidRequest struct {
	StudentID string   `json:"student_id"` // defaults to the caller
	CourseID  string   `json:"course_id"`
	Kind      string   `json:"kind" validate:"required,oneof=flashcards quiz summary music"`
	Topics    []string `json:"topics" validate:"max=20"`
	Count     int      `json:"count" validate:"gte=0,lte=50"`
}

// POST /study-aids
func GenerateStudyAidHandler(gen *studyaid.Generator, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req studyAidRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			apierr.Write(w, err)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		studentID := strings.TrimSpace(req.StudentID)
		if studentID == "" {
			studentID = sub
		}
		if studentID != sub && !rbac.Can(r.Context(), rbac.PermInsightsViewAll) {
			apierr.Write(w, apierr.Forbidden())
			return
		}
		a, err := gen.Generate(r.Context(), studyaid.Request{
			StudentID: studentID,
			CourseID:  strings.TrimSpace(req.CourseID),
			Kind:      studyaid.Kind(req.Kind),
			Topics:    req.Topics,
			Count:     req.Count,
		})
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, a)
	}
}

// MountAssets serves stored artifacts under GET /assets/*. Students may
// only read keys under their own studyaids/{studentID}/ prefix.
func MountAssets(r chi.Router, bs storage.BlobStore, log *logger.Logger) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if !canReadAsset(r, key) {
			writeErr(w, r, log, storage.ErrNotFound)
			return
		}
		rc, err := bs.Get(r.Context(), key)
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		defer rc.Close()
		ct := "application/octet-stream"
		if path.Ext(key) == ".json" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}

func canReadAsset(r *http.Request, key string) bool {
	ctx := r.Context()
	if rbac.Can(ctx, rbac.PermInsightsViewAll) {
		return true
	}
	sub := rbac.SubjectFromContext(ctx)
	if sub == "" || strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(key, "studyaids/"+sub+"/")
}
