package admission_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-access/internal/admission"
	"github.com/mind-engage/mindengage-access/internal/quiz"
)

/* ---------------- fakes ---------------- */

type recorder struct {
	views, completions []string
	err                error
}

func (r *recorder) LogView(_ context.Context, quizID, userID string) error {
	r.views = append(r.views, quizID+"|"+userID)
	return r.err
}

func (r *recorder) MarkViewed(_ context.Context, quizID, userID string) error {
	r.completions = append(r.completions, quizID+"|"+userID)
	return r.err
}

type failingGrades struct{}

func (failingGrades) GetGradeOverride(context.Context, string, string) (*quiz.GradeOverride, error) {
	return nil, errors.New("gradebook timeout")
}

/* ---------------- helpers ---------------- */

var clock = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return clock }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func seed(t *testing.T) quiz.Store {
	t.Helper()
	ctx := context.Background()
	s := quiz.NewInMemoryStore()
	require.NoError(t, s.PutQuiz(ctx, quiz.Quiz{ID: "q1", MaxAttempts: 1, MaxGrade: 10, DecimalPoints: 2, Questions: []string{"a"}}))
	return s
}

var student = admission.Capabilities{CanAttempt: true, CanReviewOwn: true}

/* ---------------- tests ---------------- */

func TestViewStartsFirstAttemptAndNotifies(t *testing.T) {
	store := seed(t)
	rec := &recorder{}
	svc := admission.NewService(admission.StoreRepository{Store: store}, store, store,
		admission.WithClock(fixedClock), admission.WithAudit(rec), admission.WithCompletion(rec), admission.WithLogger(quiet()))

	res, err := svc.View(context.Background(), admission.ViewRequest{QuizID: "q1", UserID: "u1", Caps: student})
	require.NoError(t, err)
	assert.Equal(t, admission.ActionStartFirst, res.Action)
	assert.Equal(t, []string{"q1|u1"}, rec.views)
	assert.Equal(t, []string{"q1|u1"}, rec.completions)
}

func TestViewAppliesUserOverride(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	score := 5.0
	end := clock.Add(-time.Hour)
	_, err := store.PutAttempt(ctx, quiz.Attempt{QuizID: "q1", UserID: "u1", Seq: 1, State: quiz.StateFinished,
		StartedAt: clock.Add(-2 * time.Hour), FinishedAt: &end, Score: &score})
	require.NoError(t, err)

	svc := admission.NewService(admission.StoreRepository{Store: store}, store, store,
		admission.WithClock(fixedClock), admission.WithLogger(quiet()))

	res, err := svc.View(ctx, admission.ViewRequest{QuizID: "q1", UserID: "u1", Caps: student})
	require.NoError(t, err)
	assert.Equal(t, admission.ActionNone, res.Action)
	require.NotNil(t, res.Grade.Value)
	assert.Equal(t, 5.0, *res.Grade.Value)

	two := 2
	require.NoError(t, store.PutAccessOverride(ctx, quiz.AccessOverride{QuizID: "q1", UserID: "u1", Attempts: &two}))
	res, err = svc.View(ctx, admission.ViewRequest{QuizID: "q1", UserID: "u1", Caps: student})
	require.NoError(t, err)
	assert.Equal(t, admission.ActionReattempt, res.Action)
}

func TestViewIgnoresNotificationFailures(t *testing.T) {
	store := seed(t)
	rec := &recorder{err: errors.New("bus down")}
	svc := admission.NewService(admission.StoreRepository{Store: store}, store, store,
		admission.WithClock(fixedClock), admission.WithAudit(rec), admission.WithLogger(quiet()))

	res, err := svc.View(context.Background(), admission.ViewRequest{QuizID: "q1", UserID: "u1", Caps: student})
	require.NoError(t, err)
	assert.Equal(t, admission.ActionStartFirst, res.Action)
	assert.Len(t, rec.views, 1)
}

func TestViewErrors(t *testing.T) {
	store := seed(t)

	svc := admission.NewService(admission.StoreRepository{Store: store}, store, store, admission.WithLogger(quiet()))
	_, err := svc.View(context.Background(), admission.ViewRequest{QuizID: "missing", UserID: "u1", Caps: student})
	assert.ErrorIs(t, err, quiz.ErrNotFound)

	svc = admission.NewService(admission.StoreRepository{Store: store}, store, failingGrades{}, admission.WithLogger(quiet()))
	_, err = svc.View(context.Background(), admission.ViewRequest{QuizID: "q1", UserID: "u1", Caps: student})
	assert.ErrorIs(t, err, quiz.ErrDataUnavailable)

	require.NoError(t, store.PutQuiz(context.Background(), quiz.Quiz{ID: "broken", MaxAttempts: -1, Questions: []string{"a"}}))
	svc = admission.NewService(admission.StoreRepository{Store: store}, store, store, admission.WithLogger(quiet()))
	_, err = svc.View(context.Background(), admission.ViewRequest{QuizID: "broken", UserID: "u1", Caps: student})
	var ce *quiz.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestViewUsesServiceLocation(t *testing.T) {
	ctx := context.Background()
	store := quiz.NewInMemoryStore()
	closeAt := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.PutQuiz(ctx, quiz.Quiz{ID: "q1", TimeClose: &closeAt, Questions: []string{"a"}}))

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	svc := admission.NewService(admission.StoreRepository{Store: store}, store, store,
		admission.WithClock(fixedClock), admission.WithLocation(tokyo), admission.WithLogger(quiet()))

	res, err := svc.View(ctx, admission.ViewRequest{QuizID: "q1", UserID: "u1", Caps: student})
	require.NoError(t, err)
	assert.Equal(t, []string{"This quiz is closed. It closed on Sunday, 9 March 2025, 9:00 PM"}, res.BlockingMessages)
}
