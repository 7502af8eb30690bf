package http

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-access/internal/admission"
	"github.com/mind-engage/mindengage-access/internal/rbac"
	"github.com/mind-engage/mindengage-access/internal/rules"
)

// Request headers describing the client. A trusted front end sets
// X-Completed-Activities; the others come from the browser.
const (
	HeaderQuizPassword  = "X-Quiz-Password"
	HeaderSecureWindow  = "X-Quiz-Secure-Window"
	HeaderCompletedActs = "X-Completed-Activities"
)

// CapabilitiesFor maps a role onto the capabilities the decision reads.
func CapabilitiesFor(c *rbac.Checker, role string) admission.Capabilities {
	return admission.Capabilities{
		CanAttempt:       c.Has(role, rbac.PermQuizAttempt),
		CanPreview:       c.Has(role, rbac.PermQuizPreview),
		CanReviewOwn:     c.Has(role, rbac.PermReviewOwn),
		IgnoreTimeLimits: c.Has(role, rbac.PermIgnoreTimeLimits),
		IsGuest:          role == "guest",
	}
}

// EnvironmentFrom reads the client environment off the request. RemoteAddr
// is expected to be rewritten by middleware.RealIP already.
func EnvironmentFrom(r *http.Request) rules.Environment {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	env := rules.Environment{
		ClientIP:   ip,
		UserAgent:  r.UserAgent(),
		JavaScript: r.Header.Get(HeaderSecureWindow) == "1",
		Password:   r.Header.Get(HeaderQuizPassword),
	}
	if acts := r.Header.Get(HeaderCompletedActs); acts != "" {
		env.Completed = map[string]bool{}
		for _, a := range strings.Split(acts, ",") {
			if a = strings.TrimSpace(a); a != "" {
				env.Completed[a] = true
			}
		}
	}
	return env
}

// GET /quizzes/{quizID}/view
func ViewQuizHandler(svc *admission.Service, checker *rbac.Checker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		res, err := svc.View(r.Context(), admission.ViewRequest{
			QuizID: chi.URLParam(r, "quizID"),
			UserID: rbac.SubjectFromContext(r.Context()),
			Caps:   CapabilitiesFor(checker, role),
			Env:    EnvironmentFrom(r),
		})
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
