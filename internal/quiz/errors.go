package quiz

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDataUnavailable = errors.New("data unavailable")

	errOverrideTarget = errors.New("override needs exactly one of user_id or group_id")
)

// ConfigurationError reports a malformed quiz configuration. It is raised
// when rules are built, never during evaluation.
type ConfigurationError struct {
	QuizID   string
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("quiz %s: invalid configuration: %s", e.QuizID, strings.Join(e.Problems, "; "))
}

// InvariantViolation is a recoverable inconsistency found in stored data.
type InvariantViolation struct {
	QuizID  string
	UserID  string
	Message string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("quiz %s user %s: invariant violated: %s", e.QuizID, e.UserID, e.Message)
}

// Unavailable wraps a collaborator failure so callers can match it with
// errors.Is(err, ErrDataUnavailable).
func Unavailable(what string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDataUnavailable) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %v", what, ErrDataUnavailable, err)
}

// Validate checks the settings the access rules rely on.
func (q Quiz) Validate() error {
	var probs []string
	if q.MaxAttempts < 0 {
		probs = append(probs, "max_attempts must not be negative")
	}
	if q.GradeMethod != "" && !q.GradeMethod.Valid() {
		probs = append(probs, fmt.Sprintf("unknown grade_method %q", q.GradeMethod))
	}
	if q.MaxGrade < 0 {
		probs = append(probs, "max_grade must not be negative")
	}
	if q.PassGrade != nil && (*q.PassGrade < 0 || *q.PassGrade > q.MaxGrade) {
		probs = append(probs, "pass_grade must be between 0 and max_grade")
	}
	if q.DecimalPoints < 0 || q.DecimalPoints > 5 {
		probs = append(probs, "decimal_points must be between 0 and 5")
	}
	if q.TimeOpen != nil && q.TimeClose != nil && q.TimeClose.Before(*q.TimeOpen) {
		probs = append(probs, "time_close is before time_open")
	}
	if q.TimeLimit < 0 {
		probs = append(probs, "time_limit must not be negative")
	}
	if q.Delay1 < 0 || q.Delay2 < 0 {
		probs = append(probs, "delays must not be negative")
	}
	switch q.BrowserSecurity {
	case BrowserSecurityNone, BrowserSecuritySecure, BrowserSecuritySafeBrowser:
	default:
		probs = append(probs, fmt.Sprintf("unknown browser_security %q", q.BrowserSecurity))
	}
	if len(probs) > 0 {
		return &ConfigurationError{QuizID: q.ID, Problems: probs}
	}
	return nil
}
