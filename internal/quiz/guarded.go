package quiz

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// GuardedStore runs reads through a circuit breaker and reports every
// collaborator failure as ErrDataUnavailable. Not-found results pass
// through untouched and do not count against the breaker. There are no
// retries here.
type GuardedStore struct {
	Store
	breaker *gobreaker.CircuitBreaker[any]
}

func NewGuardedStore(next Store, cfg BreakerConfig, logger *slog.Logger) *GuardedStore {
	if logger == nil {
		logger = slog.Default()
	}
	st := gobreaker.Settings{
		Name:        "quiz-store",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &GuardedStore{Store: next, breaker: gobreaker.NewCircuitBreaker[any](st)}
}

func (g *GuardedStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	v, err := g.breaker.Execute(func() (any, error) { return g.Store.GetQuiz(ctx, id) })
	if err != nil {
		return Quiz{}, Unavailable("load quiz", err)
	}
	return v.(Quiz), nil
}

type overrides struct {
	user   *AccessOverride
	groups []AccessOverride
}

func (g *GuardedStore) AccessOverrides(ctx context.Context, quizID, userID string) (*AccessOverride, []AccessOverride, error) {
	v, err := g.breaker.Execute(func() (any, error) {
		u, gs, err := g.Store.AccessOverrides(ctx, quizID, userID)
		return overrides{u, gs}, err
	})
	if err != nil {
		return nil, nil, Unavailable("load access overrides", err)
	}
	o := v.(overrides)
	return o.user, o.groups, nil
}

func (g *GuardedStore) ListAttempts(ctx context.Context, quizID, userID string, states ...AttemptState) ([]Attempt, error) {
	v, err := g.breaker.Execute(func() (any, error) { return g.Store.ListAttempts(ctx, quizID, userID, states...) })
	if err != nil {
		return nil, Unavailable("list attempts", err)
	}
	return v.([]Attempt), nil
}

func (g *GuardedStore) GetGradeOverride(ctx context.Context, quizID, userID string) (*GradeOverride, error) {
	v, err := g.breaker.Execute(func() (any, error) { return g.Store.GetGradeOverride(ctx, quizID, userID) })
	if err != nil {
		return nil, Unavailable("load grade override", err)
	}
	return v.(*GradeOverride), nil
}
