package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-access/internal/quiz"
)

const defaultDecimalPoints = 2

// PUT /quizzes/{quizID}
// A plain "password" is hashed before storing; "password_hash" is ignored.
func PutQuizHandler(store quiz.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			quiz.Quiz
			Password string `json:"password"`
		}
		req.DecimalPoints = defaultDecimalPoints
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q := req.Quiz
		q.ID = chi.URLParam(r, "quizID")
		q.PasswordHash = ""
		if req.Password != "" {
			h, err := hashPassword(req.Password)
			if err != nil {
				writeError(w, r, logger, err)
				return
			}
			q.PasswordHash = h
		}
		if err := q.Validate(); err != nil {
			var cfgErr *quiz.ConfigurationError
			if errors.As(err, &cfgErr) {
				writeJSON(w, http.StatusBadRequest, map[string]any{"problems": cfgErr.Problems})
				return
			}
			writeError(w, r, logger, err)
			return
		}
		if err := store.PutQuiz(r.Context(), q); err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

type overrideRequest struct {
	TimeOpen  *time.Time `json:"time_open"`
	TimeClose *time.Time `json:"time_close"`
	TimeLimit *int64     `json:"time_limit_sec"`
	Attempts  *int       `json:"attempts"`
	Password  *string    `json:"password"`
}

func (o overrideRequest) toOverride(quizID string) (quiz.AccessOverride, error) {
	out := quiz.AccessOverride{
		QuizID:    quizID,
		TimeOpen:  o.TimeOpen,
		TimeClose: o.TimeClose,
		Attempts:  o.Attempts,
	}
	if o.TimeLimit != nil {
		if *o.TimeLimit < 0 {
			return out, errors.New("time_limit_sec must not be negative")
		}
		d := time.Duration(*o.TimeLimit) * time.Second
		out.TimeLimit = &d
	}
	if o.Attempts != nil && *o.Attempts < 0 {
		return out, errors.New("attempts must not be negative")
	}
	if o.TimeOpen != nil && o.TimeClose != nil && o.TimeClose.Before(*o.TimeOpen) {
		return out, errors.New("time_close is before time_open")
	}
	if o.Password != nil {
		h := ""
		if *o.Password != "" {
			var err error
			if h, err = hashPassword(*o.Password); err != nil {
				return out, err
			}
		}
		out.Password = &h
	}
	return out, nil
}

// PUT /quizzes/{quizID}/overrides/users/{userID}
// PUT /quizzes/{quizID}/overrides/groups/{groupID}
func PutAccessOverrideHandler(store quiz.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req overrideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		o, err := req.toOverride(chi.URLParam(r, "quizID"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		o.UserID = chi.URLParam(r, "userID")
		o.GroupID = chi.URLParam(r, "groupID")
		if o.UserID == "" && o.GroupID == "" {
			http.Error(w, "user or group required", http.StatusBadRequest)
			return
		}
		if _, err := store.GetQuiz(r.Context(), o.QuizID); err != nil {
			writeError(w, r, logger, err)
			return
		}
		if err := store.PutAccessOverride(r.Context(), o); err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PUT /groups/{groupID}/members/{userID}
func AddGroupMemberHandler(store quiz.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.AddGroupMember(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID")); err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PUT /quizzes/{quizID}/grades/{userID}
func PutGradeOverrideHandler(store quiz.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var g quiz.GradeOverride
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if g.Overridden && g.Value == nil {
			http.Error(w, "overridden grades need a value", http.StatusBadRequest)
			return
		}
		quizID := chi.URLParam(r, "quizID")
		if _, err := store.GetQuiz(r.Context(), quizID); err != nil {
			writeError(w, r, logger, err)
			return
		}
		if err := store.PutGradeOverride(r.Context(), quizID, chi.URLParam(r, "userID"), g); err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
