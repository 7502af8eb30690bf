// Package admission decides what a user may do on a quiz page right now.
package admission

import (
	"time"

	"github.com/mind-engage/mindengage-access/internal/attempts"
	"github.com/mind-engage/mindengage-access/internal/grading"
	"github.com/mind-engage/mindengage-access/internal/quiz"
	"github.com/mind-engage/mindengage-access/internal/rules"
)

type Action string

const (
	ActionNone       Action = "NO_BUTTON"
	ActionContinue   Action = "CONTINUE"
	ActionStartFirst Action = "START_FIRST"
	ActionReattempt  Action = "REATTEMPT"
	ActionPreview    Action = "PREVIEW"
)

// Page is the page variant the caller should render.
type Page string

const (
	PageStandard    Page = "standard"
	PageGuest       Page = "guest"
	PageNotEnrolled Page = "not_enrolled"
)

type Capabilities struct {
	CanAttempt       bool `json:"can_attempt"`
	CanPreview       bool `json:"can_preview"`
	CanReviewOwn     bool `json:"can_review_own"`
	IgnoreTimeLimits bool `json:"ignore_time_limits"`
	IsGuest          bool `json:"is_guest"`
}

// Input is everything one decision is computed from. Quiz must already
// carry the user's effective access.
type Input struct {
	Quiz     quiz.Quiz
	UserID   string
	Now      time.Time
	Caps     Capabilities
	Attempts []quiz.Attempt
	Override *quiz.GradeOverride
	Env      rules.Environment
}

type Result struct {
	Action            Action         `json:"action"`
	ActionLabel       string         `json:"action_label,omitempty"`
	BlockingMessages  []string       `json:"blocking_messages"`
	InfoMessages      []string       `json:"info_messages"`
	Grade             grading.Record `json:"grade"`
	AttemptCount      int            `json:"attempt_count"`
	HasUnfinished     bool           `json:"has_unfinished"`
	MoreAttempts      bool           `json:"more_attempts"`
	Page              Page           `json:"page"`
	ShowAttemptColumn bool           `json:"show_attempt_column"`

	// Rules lists the access rules that were active, for logs.
	Rules []rules.Kind `json:"-"`

	// Warnings are recoverable data problems for operators, not users.
	Warnings []error `json:"-"`
}

const (
	labelStart           = "Attempt quiz now"
	labelReattempt       = "Re-attempt quiz"
	labelContinue        = "Continue the last attempt"
	labelPreview         = "Preview quiz now"
	labelContinuePreview = "Continue the last preview"
)

// Evaluate is the single entry point for a decision. It is pure: the same
// input always gives the same result. The only error is a
// *quiz.ConfigurationError for a malformed quiz.
func Evaluate(in Input) (Result, error) {
	mgr, err := rules.NewManager(in.Quiz, in.UserID, in.Now, in.Caps.IgnoreTimeLimits, in.Env)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		BlockingMessages:  []string{},
		InfoMessages:      infoMessages(in.Quiz, mgr),
		Page:              pageFor(in.Caps),
		ShowAttemptColumn: in.Quiz.MaxAttempts != 1,
		Rules:             mgr.Kinds(),
	}

	hist, warn := attempts.Resolve(in.Quiz.ID, in.UserID, in.Attempts)
	if warn != nil {
		res.Warnings = append(res.Warnings, warn)
	}
	res.AttemptCount = hist.Count
	res.HasUnfinished = hist.HasUnfinished()
	res.MoreAttempts = hist.HasUnfinished() || !mgr.IsFinished(hist.Count, hist.LastFinished)

	res.Grade = grading.Aggregate(grading.Input{
		Finished:      hist.Finished,
		Method:        in.Quiz.GradeMethod,
		DecimalPoints: in.Quiz.DecimalPoints,
		PassGrade:     in.Quiz.PassGrade,
		Override:      in.Override,
	})

	s := tentative(in.Quiz, in.Caps, hist, mgr)
	s = gate(s, in.Caps, res.MoreAttempts, mgr)
	res.Action = s.action
	res.ActionLabel = s.label
	if s.blocking != nil {
		res.BlockingMessages = s.blocking
	}
	return res, nil
}

type state struct {
	action   Action
	label    string
	blocking []string
}

var noButton = state{action: ActionNone}

// tentative picks the action the user would get if nothing blocked access.
func tentative(q quiz.Quiz, caps Capabilities, hist attempts.History, mgr *rules.Manager) state {
	if !q.LayoutUsable() {
		return noButton
	}
	if hist.HasUnfinished() {
		switch {
		case caps.CanAttempt:
			return state{action: ActionContinue, label: labelContinue}
		case caps.CanPreview:
			return state{action: ActionPreview, label: labelContinuePreview}
		}
		return noButton
	}
	switch {
	case caps.CanAttempt:
		if msgs := mgr.PreventNewAttempt(hist.Count, hist.LastFinished); len(msgs) > 0 {
			return state{action: ActionNone, blocking: msgs}
		}
		if hist.Count == 0 {
			return state{action: ActionStartFirst, label: labelStart}
		}
		return state{action: ActionReattempt, label: labelReattempt}
	case caps.CanPreview:
		return state{action: ActionPreview, label: labelPreview}
	}
	return noButton
}

// gate re-checks the tentative action. Running out of attempts hides the
// button silently; an access rule hides it and says why.
func gate(s state, caps Capabilities, moreAttempts bool, mgr *rules.Manager) state {
	if !moreAttempts {
		return noButton
	}
	if s.action == ActionNone {
		return s
	}
	if caps.CanAttempt {
		if msgs := mgr.PreventAccess(); len(msgs) > 0 {
			return state{action: ActionNone, blocking: msgs}
		}
	}
	return s
}

func infoMessages(q quiz.Quiz, mgr *rules.Manager) []string {
	out := mgr.DescribeRules()
	if q.MaxAttempts != 1 {
		method := q.GradeMethod
		if method == "" {
			method = quiz.GradeHighest
		}
		out = append(out, "Grading method: "+method.Label())
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func pageFor(c Capabilities) Page {
	switch {
	case c.IsGuest:
		return PageGuest
	case !(c.CanAttempt || c.CanPreview || c.CanReviewOwn):
		return PageNotEnrolled
	}
	return PageStandard
}
