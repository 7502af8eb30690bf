package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/mind-engage/mindengage-access/internal/quiz"
	"github.com/mind-engage/mindengage-access/internal/rules"
)

type AssessmentRepository interface {
	GetQuiz(ctx context.Context, id string) (quiz.Quiz, error)
	GetEffectiveAccess(ctx context.Context, q quiz.Quiz, userID string) (quiz.Quiz, error)
}

type AttemptRepository interface {
	ListAttempts(ctx context.Context, quizID, userID string, states ...quiz.AttemptState) ([]quiz.Attempt, error)
}

type GradeOverrideSource interface {
	GetGradeOverride(ctx context.Context, quizID, userID string) (*quiz.GradeOverride, error)
}

// CompletionTracker and AuditLog are notified on every view. Their errors
// are logged and otherwise ignored.
type CompletionTracker interface {
	MarkViewed(ctx context.Context, quizID, userID string) error
}

type AuditLog interface {
	LogView(ctx context.Context, quizID, userID string) error
}

type ViewRequest struct {
	QuizID string
	UserID string
	Caps   Capabilities
	Env    rules.Environment
}

type Service struct {
	quizzes    AssessmentRepository
	attempts   AttemptRepository
	grades     GradeOverrideSource
	completion CompletionTracker
	audit      AuditLog
	logger     *slog.Logger
	now        func() time.Time
	loc        *time.Location
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option          { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option     { return func(s *Service) { s.now = now } }
func WithCompletion(c CompletionTracker) Option { return func(s *Service) { s.completion = c } }
func WithAudit(a AuditLog) Option               { return func(s *Service) { s.audit = a } }

// WithLocation sets the zone dates are shown in when the request has none.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

func NewService(quizzes AssessmentRepository, attempts AttemptRepository, grades GradeOverrideSource, opts ...Option) *Service {
	s := &Service{
		quizzes:  quizzes,
		attempts: attempts,
		grades:   grades,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// View loads what the decision needs, records the view and evaluates.
// Collaborator failures come back matching quiz.ErrDataUnavailable (or
// quiz.ErrNotFound); nothing is retried here.
func (s *Service) View(ctx context.Context, req ViewRequest) (Result, error) {
	base, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return Result{}, quiz.Unavailable("load quiz", err)
	}
	q, err := s.quizzes.GetEffectiveAccess(ctx, base, req.UserID)
	if err != nil {
		return Result{}, quiz.Unavailable("effective access", err)
	}

	s.notify(ctx, req.QuizID, req.UserID)

	list, err := s.attempts.ListAttempts(ctx, q.ID, req.UserID, quiz.StateFinished, quiz.StateInProgress)
	if err != nil {
		return Result{}, quiz.Unavailable("list attempts", err)
	}
	override, err := s.grades.GetGradeOverride(ctx, q.ID, req.UserID)
	if err != nil {
		return Result{}, quiz.Unavailable("grade override", err)
	}

	env := req.Env
	if env.Location == nil {
		env.Location = s.loc
	}
	res, err := Evaluate(Input{
		Quiz:     q,
		UserID:   req.UserID,
		Now:      s.now(),
		Caps:     req.Caps,
		Attempts: list,
		Override: override,
		Env:      env,
	})
	if err != nil {
		s.logger.Error("quiz configuration rejected", "quiz_id", q.ID, "error", err)
		return Result{}, err
	}
	for _, w := range res.Warnings {
		s.logger.Warn("attempt history inconsistent", "quiz_id", q.ID, "user_id", req.UserID, "error", w)
	}
	s.logger.Debug("admission evaluated",
		"quiz_id", q.ID,
		"user_id", req.UserID,
		"action", res.Action,
		"attempts", res.AttemptCount,
		"rules", res.Rules,
	)
	return res, nil
}

func (s *Service) notify(ctx context.Context, quizID, userID string) {
	if s.audit != nil {
		if err := s.audit.LogView(ctx, quizID, userID); err != nil {
			s.logger.Warn("audit log failed", "quiz_id", quizID, "user_id", userID, "error", err)
		}
	}
	if s.completion != nil {
		if err := s.completion.MarkViewed(ctx, quizID, userID); err != nil {
			s.logger.Warn("completion tracking failed", "quiz_id", quizID, "user_id", userID, "error", err)
		}
	}
}

// StoreRepository adapts a quiz.Store to the assessment repository,
// merging user and group overrides into effective access.
type StoreRepository struct {
	quiz.Store
}

func (r StoreRepository) GetEffectiveAccess(ctx context.Context, q quiz.Quiz, userID string) (quiz.Quiz, error) {
	user, groups, err := r.Store.AccessOverrides(ctx, q.ID, userID)
	if err != nil {
		return quiz.Quiz{}, err
	}
	return quiz.EffectiveAccess(q, user, groups), nil
}
