package quiz

import (
	"strings"
	"time"
)

type GradeMethod string

const (
	GradeHighest GradeMethod = "highest"
	GradeAverage GradeMethod = "average"
	GradeFirst   GradeMethod = "first"
	GradeLast    GradeMethod = "last"
)

// Label is the human-readable name shown in the "Grading method" info line.
func (m GradeMethod) Label() string {
	switch m {
	case GradeHighest:
		return "Highest grade"
	case GradeAverage:
		return "Average grade"
	case GradeFirst:
		return "First attempt"
	case GradeLast:
		return "Last attempt"
	default:
		return string(m)
	}
}

func (m GradeMethod) Valid() bool {
	switch m {
	case GradeHighest, GradeAverage, GradeFirst, GradeLast:
		return true
	}
	return false
}

type BrowserSecurity string

const (
	BrowserSecurityNone        BrowserSecurity = ""
	BrowserSecuritySecure      BrowserSecurity = "securewindow" // JavaScript-capable full-screen client
	BrowserSecuritySafeBrowser BrowserSecurity = "safebrowser"  // Safe Exam Browser only
)

type AttemptState string

const (
	StateInProgress AttemptState = "in_progress"
	StateFinished   AttemptState = "finished"
	StateAbandoned  AttemptState = "abandoned"
)

// Quiz is the access and grading configuration of one timed assessment.
// Questions holds question ids in layout order; an empty id is a page break.
type Quiz struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	MaxAttempts   int         `json:"max_attempts"` // 0 = unlimited
	GradeMethod   GradeMethod `json:"grade_method"`
	MaxGrade      float64     `json:"max_grade"`
	PassGrade     *float64    `json:"pass_grade,omitempty"`
	DecimalPoints int         `json:"decimal_points"`

	TimeOpen  *time.Time    `json:"time_open,omitempty"`
	TimeClose *time.Time    `json:"time_close,omitempty"`
	TimeLimit time.Duration `json:"time_limit"`

	Delay1 time.Duration `json:"delay1"` // wait after the first attempt
	Delay2 time.Duration `json:"delay2"` // wait after later attempts

	Subnets         []string        `json:"subnets,omitempty"`
	PasswordHash    string          `json:"password_hash,omitempty"` // bcrypt
	BrowserSecurity BrowserSecurity `json:"browser_security,omitempty"`
	Prerequisites   []string        `json:"prerequisites,omitempty"` // activity ids

	Questions []string `json:"questions"`
}

// LayoutUsable reports whether the question layout contains at least one
// question. Page breaks alone do not count.
func (q Quiz) LayoutUsable() bool {
	for _, id := range q.Questions {
		if strings.TrimSpace(id) != "" {
			return true
		}
	}
	return false
}

type Attempt struct {
	ID         string       `json:"id"`
	QuizID     string       `json:"quiz_id"`
	UserID     string       `json:"user_id"`
	Seq        int          `json:"seq"`
	State      AttemptState `json:"state"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Score      *float64     `json:"score,omitempty"`
}

// GradeOverride is what the gradebook holds for one user on one quiz.
type GradeOverride struct {
	Value      *float64 `json:"value,omitempty"`
	Overridden bool     `json:"overridden"`
	Feedback   string   `json:"feedback,omitempty"`
}

// AccessOverride adjusts access settings for a user or a group.
// Nil fields leave the quiz setting untouched.
type AccessOverride struct {
	QuizID    string         `json:"quiz_id"`
	UserID    string         `json:"user_id,omitempty"`
	GroupID   string         `json:"group_id,omitempty"`
	TimeOpen  *time.Time     `json:"time_open,omitempty"`
	TimeClose *time.Time     `json:"time_close,omitempty"`
	TimeLimit *time.Duration `json:"time_limit,omitempty"`
	Attempts  *int           `json:"attempts,omitempty"`
	Password  *string        `json:"password_hash,omitempty"`
}
