package rules

import (
	"errors"
	"time"

	"github.com/mind-engage/mindengage-access/internal/quiz"
)

// Manager owns the rules for one (quiz, user, evaluation time) tuple.
// All methods are pure and safe to call repeatedly.
type Manager struct {
	quizID string
	rules  []Rule
	count  Rule // attempt-count rule, nil when attempts are unlimited
}

// NewManager validates the quiz and builds the rules that apply to it.
// Malformed configuration is reported here as *quiz.ConfigurationError.
func NewManager(q quiz.Quiz, userID string, now time.Time, ignoreTimeLimits bool, env Environment) (*Manager, error) {
	var probs []string
	if err := q.Validate(); err != nil {
		var ce *quiz.ConfigurationError
		if !errors.As(err, &ce) {
			return nil, err
		}
		probs = append(probs, ce.Problems...)
	}
	if env.Location == nil {
		env.Location = time.UTC
	}

	c := Context{Quiz: q, UserID: userID, Now: now, IgnoreTimeLimits: ignoreTimeLimits, Env: env}
	m := &Manager{quizID: q.ID}
	for _, entry := range ruleTable {
		r, err := entry.build(c)
		if err != nil {
			probs = append(probs, err.Error())
			continue
		}
		if r == nil {
			continue
		}
		if entry.kind == KindAttemptCount {
			m.count = r
		}
		m.rules = append(m.rules, r)
	}
	if len(probs) > 0 {
		return nil, &quiz.ConfigurationError{QuizID: q.ID, Problems: probs}
	}
	return m, nil
}

// Kinds lists the active rules in declaration order.
func (m *Manager) Kinds() []Kind {
	out := make([]Kind, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r.Kind())
	}
	return out
}

func (m *Manager) DescribeRules() []string {
	var out []string
	for _, r := range m.rules {
		out = append(out, r.Describe()...)
	}
	return out
}

// IsFinished asks the attempt-count rule alone whether the user has used up
// their allowance. Other rules never count here; a closed quiz still offers
// "more attempts" and PreventAccess explains why it cannot be started.
func (m *Manager) IsFinished(numPrev int, lastFinished *quiz.Attempt) bool {
	if m.count == nil {
		return false
	}
	return len(m.count.PreventNewAttempt(numPrev, lastFinished)) > 0
}

func (m *Manager) PreventNewAttempt(numPrev int, lastFinished *quiz.Attempt) []string {
	var out []string
	for _, r := range m.rules {
		out = append(out, r.PreventNewAttempt(numPrev, lastFinished)...)
	}
	return out
}

func (m *Manager) PreventAccess() []string {
	var out []string
	for _, r := range m.rules {
		out = append(out, r.PreventAccess()...)
	}
	return out
}
