package quiz_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-access/internal/quiz"
)

// flakyStore fails reads while down is set.
type flakyStore struct {
	quiz.Store
	down  bool
	calls int
}

var errConnRefused = errors.New("connection refused")

func (f *flakyStore) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	f.calls++
	if f.down {
		return quiz.Quiz{}, errConnRefused
	}
	return f.Store.GetQuiz(ctx, id)
}

func (f *flakyStore) ListAttempts(ctx context.Context, quizID, userID string, states ...quiz.AttemptState) ([]quiz.Attempt, error) {
	f.calls++
	if f.down {
		return nil, errConnRefused
	}
	return f.Store.ListAttempts(ctx, quizID, userID, states...)
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestGuardedStoreMapsFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{Store: quiz.NewInMemoryStore()}
	require.NoError(t, inner.PutQuiz(ctx, quiz.Quiz{ID: "q1"}))
	g := quiz.NewGuardedStore(inner, quiz.DefaultBreakerConfig(), quietLogger())

	q, err := g.GetQuiz(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "q1", q.ID)

	_, err = g.GetQuiz(ctx, "missing")
	assert.ErrorIs(t, err, quiz.ErrNotFound)
	assert.NotErrorIs(t, err, quiz.ErrDataUnavailable)

	inner.down = true
	_, err = g.ListAttempts(ctx, "q1", "u")
	assert.ErrorIs(t, err, quiz.ErrDataUnavailable)
	assert.ErrorIs(t, err, errConnRefused)

	g2, err := g.GetGradeOverride(ctx, "q1", "u")
	require.NoError(t, err, "one failure does not open the breaker")
	assert.Nil(t, g2)
}

func TestGuardedStoreOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{Store: quiz.NewInMemoryStore(), down: true}
	cfg := quiz.BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Hour, FailureThreshold: 3}
	g := quiz.NewGuardedStore(inner, cfg, quietLogger())

	for i := 0; i < 3; i++ {
		_, err := g.GetQuiz(ctx, "q1")
		require.ErrorIs(t, err, quiz.ErrDataUnavailable)
	}
	require.Equal(t, 3, inner.calls)

	inner.down = false
	_, err := g.GetQuiz(ctx, "q1")
	assert.ErrorIs(t, err, quiz.ErrDataUnavailable, "breaker is open")
	assert.Equal(t, 3, inner.calls, "open breaker does not reach the store")
}

func TestGuardedStoreNotFoundDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{Store: quiz.NewInMemoryStore()}
	cfg := quiz.BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Hour, FailureThreshold: 2}
	g := quiz.NewGuardedStore(inner, cfg, quietLogger())

	for i := 0; i < 5; i++ {
		_, err := g.GetQuiz(ctx, "missing")
		require.ErrorIs(t, err, quiz.ErrNotFound)
	}
	assert.Equal(t, 5, inner.calls)
}
