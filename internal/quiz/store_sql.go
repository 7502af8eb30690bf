package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) error {
	cfg, err := json.Marshal(q)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,title,config_json,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$4)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, config_json=EXCLUDED.config_json, updated_at=EXCLUDED.updated_at`,
		q.ID, q.Title, string(cfg), now)
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	var cfg string
	err := s.db.QueryRowContext(ctx, `SELECT config_json FROM quizzes WHERE id=$1`, id).Scan(&cfg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrNotFound
		}
		return Quiz{}, err
	}
	var q Quiz
	if err := json.Unmarshal([]byte(cfg), &q); err != nil {
		return Quiz{}, fmt.Errorf("decode quiz %s: %w", id, err)
	}
	q.ID = id
	return q, nil
}

func (s *SQLStore) PutAccessOverride(ctx context.Context, o AccessOverride) error {
	if (o.UserID == "") == (o.GroupID == "") {
		return errOverrideTarget
	}
	buf, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO access_overrides (quiz_id,user_id,group_id,override_json)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (quiz_id,user_id,group_id) DO UPDATE SET override_json=EXCLUDED.override_json`,
		o.QuizID, o.UserID, o.GroupID, string(buf))
	return err
}

func (s *SQLStore) AccessOverrides(ctx context.Context, quizID, userID string) (*AccessOverride, []AccessOverride, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT override_json FROM access_overrides
		WHERE quiz_id=$1 AND (user_id=$2 OR group_id IN (SELECT group_id FROM group_members WHERE user_id=$2))`,
		quizID, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var user *AccessOverride
	var groups []AccessOverride
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, nil, err
		}
		var o AccessOverride
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			return nil, nil, fmt.Errorf("decode override: %w", err)
		}
		if o.UserID != "" {
			user = &o
			continue
		}
		groups = append(groups, o)
	}
	return user, groups, rows.Err()
}

func (s *SQLStore) AddGroupMember(ctx context.Context, groupID, userID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO group_members (group_id,user_id) VALUES ($1,$2)
		ON CONFLICT (group_id,user_id) DO NOTHING`, groupID, userID)
	return err
}

func (s *SQLStore) ListAttempts(ctx context.Context, quizID, userID string, states ...AttemptState) ([]Attempt, error) {
	q := `SELECT id,quiz_id,user_id,seq,state,started_at,finished_at,score FROM quiz_attempts
		WHERE quiz_id=$1 AND user_id=$2`
	args := []any{quizID, userID}
	if len(states) > 0 {
		ph := make([]string, len(states))
		for i, st := range states {
			args = append(args, string(st))
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		q += " AND state IN (" + strings.Join(ph, ",") + ")"
	}
	q += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a        Attempt
			state    string
			started  int64
			finished sql.NullInt64
			score    sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Seq, &state, &started, &finished, &score); err != nil {
			return nil, err
		}
		a.State = AttemptState(state)
		a.StartedAt = time.Unix(started, 0).UTC()
		if finished.Valid {
			t := time.Unix(finished.Int64, 0).UTC()
			a.FinishedAt = &t
		}
		if score.Valid {
			v := score.Float64
			a.Score = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id=$1`, a.QuizID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}
	var finished sql.NullInt64
	if a.FinishedAt != nil {
		finished = sql.NullInt64{Int64: a.FinishedAt.Unix(), Valid: true}
	}
	var score sql.NullFloat64
	if a.Score != nil {
		score = sql.NullFloat64{Float64: *a.Score, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO quiz_attempts (id,quiz_id,user_id,seq,state,started_at,finished_at,score)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET state=EXCLUDED.state, finished_at=EXCLUDED.finished_at, score=EXCLUDED.score`,
		a.ID, a.QuizID, a.UserID, a.Seq, string(a.State), a.StartedAt.Unix(), finished, score)
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) GetGradeOverride(ctx context.Context, quizID, userID string) (*GradeOverride, error) {
	var (
		g     GradeOverride
		value sql.NullFloat64
		over  bool
	)
	err := s.db.QueryRowContext(ctx, `SELECT value,overridden,feedback FROM grade_overrides WHERE quiz_id=$1 AND user_id=$2`,
		quizID, userID).Scan(&value, &over, &g.Feedback)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if value.Valid {
		v := value.Float64
		g.Value = &v
	}
	g.Overridden = over
	return &g, nil
}

func (s *SQLStore) PutGradeOverride(ctx context.Context, quizID, userID string, g GradeOverride) error {
	var value sql.NullFloat64
	if g.Value != nil {
		value = sql.NullFloat64{Float64: *g.Value, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO grade_overrides (quiz_id,user_id,value,overridden,feedback,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (quiz_id,user_id) DO UPDATE SET value=EXCLUDED.value, overridden=EXCLUDED.overridden,
			feedback=EXCLUDED.feedback, updated_at=EXCLUDED.updated_at`,
		quizID, userID, value, g.Overridden, g.Feedback, time.Now().Unix())
	return err
}
