package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mind-engage/mindengage-access/internal/quiz"
)

const msgUnavailable = "cannot determine access right now"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError never leaks internals: anything other than a missing quiz is
// reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var cfgErr *quiz.ConfigurationError
	switch {
	case errors.Is(err, quiz.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case errors.Is(err, quiz.ErrDataUnavailable):
		logger.Warn("data unavailable", "path", r.URL.Path, "error", err)
		http.Error(w, msgUnavailable, http.StatusServiceUnavailable)
		return
	case errors.As(err, &cfgErr):
		logger.Error("quiz misconfigured", "quiz_id", cfgErr.QuizID, "problems", cfgErr.Problems)
	default:
		logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	http.Error(w, msgUnavailable, http.StatusInternalServerError)
}
