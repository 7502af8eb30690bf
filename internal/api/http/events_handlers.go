package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-access/internal/sync"
)

type EventFeed interface {
	Since(ctx context.Context, offset int64, limit int) ([]syncx.Event, error)
}

type eventOut struct {
	Offset    int64  `json:"offset"`
	EventID   string `json:"event_id"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	Data      string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// GET /events?since=0&limit=100
func EventsHandler(feed EventFeed, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		if limit > 1000 {
			limit = 1000
		}
		evs, err := feed.Since(r.Context(), since, limit)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		out := make([]eventOut, 0, len(evs))
		for _, e := range evs {
			out = append(out, eventOut{
				Offset:    e.Offset,
				EventID:   e.EventID,
				SiteID:    e.SiteID,
				Type:      e.Type,
				Key:       e.Key,
				Data:      e.DataJSON,
				CreatedAt: e.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
