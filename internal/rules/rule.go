// Package rules holds the quiz access rules and the Manager that combines
// them into one admission answer.
package rules

import (
	"time"

	"github.com/mind-engage/mindengage-access/internal/quiz"
)

type Kind string

const (
	KindAttemptCount Kind = "numattempts"
	KindTimeWindow   Kind = "openclosedate"
	KindTimeLimit    Kind = "timelimit"
	KindDelay        Kind = "delaybetweenattempts"
	KindSubnet       Kind = "ipaddress"
	KindPassword     Kind = "password"
	KindSecureWindow Kind = "securewindow"
	KindSafeBrowser  Kind = "safebrowser"
	KindPrerequisite Kind = "prerequisite"
)

// Rule is one access policy. Both checks return nil when the rule has no
// objection, otherwise user-facing reasons.
type Rule interface {
	Kind() Kind
	// Describe is shown whatever the outcome; nil means nothing to say.
	Describe() []string
	// PreventNewAttempt is asked before a fresh attempt starts. numPrev
	// counts every attempt already made, lastFinished may be nil.
	PreventNewAttempt(numPrev int, lastFinished *quiz.Attempt) []string
	// PreventAccess applies to starting, continuing and previewing alike.
	PreventAccess() []string
}

// Environment is what the request tells us about the client.
type Environment struct {
	ClientIP   string
	UserAgent  string
	JavaScript bool   // client reports a JavaScript-capable secure window
	Password   string // quiz password supplied with the request
	Completed  map[string]bool
	Location   *time.Location
}

// Context is everything a rule may be built from.
type Context struct {
	Quiz             quiz.Quiz
	UserID           string
	Now              time.Time
	IgnoreTimeLimits bool
	Env              Environment
}

// builder returns a nil Rule when the quiz does not use it.
type builder func(c Context) (Rule, error)

// ruleTable is the closed set of rules in declaration order. Description
// order follows this table.
var ruleTable = []struct {
	kind  Kind
	build builder
}{
	{KindAttemptCount, newAttemptCount},
	{KindTimeWindow, newTimeWindow},
	{KindTimeLimit, newTimeLimit},
	{KindDelay, newDelay},
	{KindSubnet, newSubnet},
	{KindPassword, newPassword},
	{KindSecureWindow, newSecureWindow},
	{KindSafeBrowser, newSafeBrowser},
	{KindPrerequisite, newPrerequisite},
}
