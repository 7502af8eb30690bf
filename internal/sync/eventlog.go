package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeQuizViewed       = "quiz.viewed"
	TypeCompletionViewed = "completion.viewed"
)

type Event struct {
	Offset    int64
	EventID   string
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

type viewPayload struct {
	QuizID string `json:"quiz_id"`
	UserID string `json:"user_id"`
	At     int64  `json:"at"`
}

func newViewEvent(siteID, typ, quizID, userID string, now time.Time) (Event, error) {
	buf, err := json.Marshal(viewPayload{QuizID: quizID, UserID: userID, At: now.Unix()})
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:   uuid.NewString(),
		SiteID:    siteID,
		Type:      typ,
		Key:       quizID + "|" + userID,
		DataJSON:  string(buf),
		CreatedAt: now.Unix(),
	}, nil
}

// EventRepo is the SQL audit trail. It also records first/last view per
// user so activity completion can be derived from it.
type EventRepo struct {
	db     *sql.DB
	siteID string
	now    func() time.Time
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID, now: time.Now}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = r.now().Unix()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (event_id, site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		e.EventID, e.SiteID, e.Type, e.Key, e.DataJSON, e.CreatedAt)
	return err
}

func (r *EventRepo) LogView(ctx context.Context, quizID, userID string) error {
	e, err := newViewEvent(r.siteID, TypeQuizViewed, quizID, userID, r.now())
	if err != nil {
		return err
	}
	return r.Append(ctx, e)
}

func (r *EventRepo) MarkViewed(ctx context.Context, quizID, userID string) error {
	now := r.now().Unix()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO completion_views (quiz_id, user_id, first_viewed_at, last_viewed_at)
		 VALUES ($1,$2,$3,$3)
		 ON CONFLICT (quiz_id, user_id) DO UPDATE SET last_viewed_at=EXCLUDED.last_viewed_at`,
		quizID, userID, now)
	return err
}

// Since returns events after offset, oldest first.
func (r *EventRepo) Since(ctx context.Context, offset int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, site_id, typ, key, data, created_at FROM event_log
		 WHERE id > $1 ORDER BY id ASC LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.EventID, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
