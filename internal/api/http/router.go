package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/mindengage-access/internal/admission"
	"github.com/mind-engage/mindengage-access/internal/auth"
	authmw "github.com/mind-engage/mindengage-access/internal/auth/middleware"
	"github.com/mind-engage/mindengage-access/internal/quiz"
	"github.com/mind-engage/mindengage-access/internal/rbac"
)

type Deps struct {
	Service     *admission.Service
	Store       quiz.Store
	Events      EventFeed // optional
	Auth        *authmw.AuthService
	Checker     *rbac.Checker
	Logger      *slog.Logger
	CORSOrigins []string
	LocalLogin  bool
	GuestLogin  bool
}

func NewRouter(d Deps) chi.Router {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Checker == nil {
		d.Checker = rbac.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", HeaderQuizPassword, HeaderSecureWindow, HeaderCompletedActs},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if d.LocalLogin {
		r.Post("/auth/login", authmw.LoginHandler(d.Auth))
	}
	if d.GuestLogin {
		r.Post("/auth/guest", auth.GuestLoginHandler(d.Auth))
	}

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))

		pr.With(rbac.Require(rbac.PermQuizView)).
			Get("/quizzes/{quizID}/view", ViewQuizHandler(d.Service, d.Checker, d.Logger))
		pr.With(rbac.RequireAny(rbac.PermReviewOwn, rbac.PermAttemptsViewAll)).
			Get("/quizzes/{quizID}/attempts", ListAttemptsHandler(d.Store, d.Checker, d.Logger))
		pr.With(rbac.Require(rbac.PermAttemptsRecord)).
			Post("/quizzes/{quizID}/attempts", RecordAttemptHandler(d.Store, d.Logger))

		// Teacher
		pr.With(rbac.Require(rbac.PermQuizManage)).
			Put("/quizzes/{quizID}", PutQuizHandler(d.Store, d.Logger))
		pr.With(rbac.Require(rbac.PermQuizManage)).
			Put("/quizzes/{quizID}/overrides/users/{userID}", PutAccessOverrideHandler(d.Store, d.Logger))
		pr.With(rbac.Require(rbac.PermQuizManage)).
			Put("/quizzes/{quizID}/overrides/groups/{groupID}", PutAccessOverrideHandler(d.Store, d.Logger))
		pr.With(rbac.Require(rbac.PermQuizManage)).
			Put("/groups/{groupID}/members/{userID}", AddGroupMemberHandler(d.Store, d.Logger))
		pr.With(rbac.Require(rbac.PermGradeOverride)).
			Put("/quizzes/{quizID}/grades/{userID}", PutGradeOverrideHandler(d.Store, d.Logger))

		if d.Events != nil {
			pr.With(rbac.Require(rbac.PermEventsRead)).
				Get("/events", EventsHandler(d.Events, d.Logger))
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
