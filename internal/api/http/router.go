// Package http wires the study coach HTTP surface onto chi.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/studycoach/internal/auth"
	"github.com/mind-engage/studycoach/internal/chat"
	"github.com/mind-engage/studycoach/internal/coursework"
	"github.com/mind-engage/studycoach/internal/eventlog"
	"github.com/mind-engage/studycoach/internal/platform/apierr"
	"github.com/mind-engage/studycoach/internal/platform/logger"
	"github.com/mind-engage/studycoach/internal/rbac"
	"github.com/mind-engage/studycoach/internal/storage"
	"github.com/mind-engage/studycoach/internal/studyaid"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Log *logger.Logger

	Auth   *auth.AuthService
	Users  *auth.Users
	Google *auth.GoogleSSO // nil disables Google sign-in

	EnableLocalAuth bool
	EnableGuestAuth bool

	// AllowClaimRole keeps the token's role for subjects missing from the
	// users table. Offline installs only.
	AllowClaimRole bool

	Items     coursework.Store
	Insights  *studyaid.InsightsService
	StudyAids *studyaid.Generator
	Chat      *chat.Service
	Events    eventlog.Appender
	Blobs     storage.BlobStore
	DB        Pinger

	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 90 * time.Second // assistant calls are slow
	}
	log := d.Log.With("component", "http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog(log), middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierr.Write(w, apierr.NotFound("not_found"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			if err := d.DB.PingContext(r.Context()); err != nil {
				log.Warn("readiness check failed", "error", err.Error())
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	if d.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users, log))
	}
	if d.EnableGuestAuth {
		r.Post("/auth/guest", auth.GuestLoginHandler(d.Auth, d.Users))
	}
	if d.Google != nil {
		r.Get("/auth/google/login", d.Google.LoginHandler())
		r.Get("/auth/google/callback", d.Google.CallbackHandler())
	}

	// Protected API (JWT -> stored role -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		pr.Use(auth.AttachRoleFromDB(d.Users, d.AllowClaimRole))

		pr.Route("/students/{studentID}", func(sr chi.Router) {
			sr.With(rbac.RequireOwnerOr(rbac.PermInsightsViewOwn, rbac.PermInsightsViewAll, isStudentOwner)).
				Get("/learning-gaps", LearningGapsHandler(d.Insights, log))
			sr.With(rbac.RequireOwnerOr(rbac.PermInsightsViewOwn, rbac.PermInsightsViewAll, isStudentOwner)).
				Get("/performance", PerformanceHandler(d.Insights, log))
			sr.With(rbac.RequireOwnerOr(rbac.PermItemsViewOwn, rbac.PermItemsViewAll, isStudentOwner)).
				Get("/courses", ListCoursesHandler(d.Items, log))
			sr.With(rbac.RequireOwnerOr(rbac.PermItemsViewOwn, rbac.PermItemsViewAll, isStudentOwner)).
				Get("/items", ListItemsHandler(d.Items, log))
		})

		pr.With(rbac.Require(rbac.PermItemsWrite)).
			Put("/items/{itemID}", UpsertItemHandler(d.Items, d.Insights, d.Events, log))
		// ownership is checked against the loaded item
		pr.With(rbac.RequireAny(rbac.PermItemsViewOwn, rbac.PermItemsViewAll)).
			Get("/items/{itemID}", GetItemHandler(d.Items, log))
		pr.With(rbac.RequireAny(rbac.PermAttemptsOwn, rbac.PermAttemptsAll)).
			Post("/items/{itemID}/attempts", RecordAttemptHandler(d.Items, d.Insights, d.Events, log))

		pr.With(rbac.Require(rbac.PermStudyAidGenerate)).
			Post("/study-aids", GenerateStudyAidHandler(d.StudyAids, log))
		pr.Route("/assets", func(ar chi.Router) {
			MountAssets(ar, d.Blobs, log)
		})

		pr.Route("/chat", func(cr chi.Router) {
			cr.Use(rbac.Require(rbac.PermChatUse))
			cr.Post("/", SendChatHandler(d.Chat, log))
			cr.Get("/sessions", ListChatSessionsHandler(d.Chat, log))
			cr.Get("/sessions/last", LastChatSessionHandler(d.Chat, log))
			cr.Get("/sessions/{sessionID}/messages", ChatMessagesHandler(d.Chat, log))
		})
	})

	return r
}
