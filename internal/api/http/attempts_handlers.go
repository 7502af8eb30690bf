package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-access/internal/quiz"
	"github.com/mind-engage/mindengage-access/internal/rbac"
)

// GET /quizzes/{quizID}/attempts?user_id=...&state=finished,in_progress
// Without attempts:view-all the user_id is forced to the caller.
func ListAttemptsHandler(store quiz.Store, checker *rbac.Checker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" || !checker.Has(role, rbac.PermAttemptsViewAll) {
			userID = rbac.SubjectFromContext(r.Context())
		}

		var states []quiz.AttemptState
		for _, s := range strings.Split(r.URL.Query().Get("state"), ",") {
			if s = strings.TrimSpace(s); s != "" {
				states = append(states, quiz.AttemptState(s))
			}
		}

		list, err := store.ListAttempts(r.Context(), chi.URLParam(r, "quizID"), userID, states...)
		if err != nil {
			writeError(w, r, logger, quiz.Unavailable("list attempts", err))
			return
		}
		if list == nil {
			list = []quiz.Attempt{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /quizzes/{quizID}/attempts records an attempt synced from the
// delivery side.
func RecordAttemptHandler(store quiz.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var a quiz.Attempt
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		a.QuizID = chi.URLParam(r, "quizID")
		if a.UserID == "" || a.Seq < 1 {
			http.Error(w, "user_id and seq >= 1 required", http.StatusBadRequest)
			return
		}
		switch a.State {
		case quiz.StateInProgress, quiz.StateAbandoned:
		case quiz.StateFinished:
			if a.FinishedAt == nil {
				http.Error(w, "finished attempts need finished_at", http.StatusBadRequest)
				return
			}
		default:
			http.Error(w, "unknown state", http.StatusBadRequest)
			return
		}
		saved, err := store.PutAttempt(r.Context(), a)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}
