package rules

import (
	"fmt"
	"time"
)

// timeWindow blocks access outside the open/close dates.
type timeWindow struct {
	base
	openAt, closeAt *time.Time
	now             time.Time
	loc             *time.Location
}

func newTimeWindow(c Context) (Rule, error) {
	if c.Quiz.TimeOpen == nil && c.Quiz.TimeClose == nil {
		return nil, nil
	}
	return timeWindow{
		base:    base{KindTimeWindow},
		openAt:  c.Quiz.TimeOpen,
		closeAt: c.Quiz.TimeClose,
		now:     c.Now,
		loc:     c.Env.Location,
	}, nil
}

func (r timeWindow) notYetOpen() bool { return r.openAt != nil && r.now.Before(*r.openAt) }
func (r timeWindow) closed() bool     { return r.closeAt != nil && r.now.After(*r.closeAt) }

func (r timeWindow) Describe() []string {
	switch {
	case r.notYetOpen():
		return []string{fmt.Sprintf("The quiz will not be available until %s", formatDate(*r.openAt, r.loc))}
	case r.closed():
		return []string{fmt.Sprintf("This quiz closed on %s", formatDate(*r.closeAt, r.loc))}
	}
	var out []string
	if r.openAt != nil {
		out = append(out, fmt.Sprintf("This quiz opened at %s", formatDate(*r.openAt, r.loc)))
	}
	if r.closeAt != nil {
		out = append(out, fmt.Sprintf("This quiz will close at %s", formatDate(*r.closeAt, r.loc)))
	}
	return out
}

func (r timeWindow) PreventAccess() []string {
	switch {
	case r.notYetOpen():
		return []string{fmt.Sprintf("This quiz is not available until %s", formatDate(*r.openAt, r.loc))}
	case r.closed():
		return []string{fmt.Sprintf("This quiz is closed. It closed on %s", formatDate(*r.closeAt, r.loc))}
	}
	return nil
}

// timeLimit only describes the limit; enforcing it belongs to the
// attempt-taking side.
type timeLimit struct {
	base
	limit time.Duration
}

func newTimeLimit(c Context) (Rule, error) {
	if c.Quiz.TimeLimit <= 0 || c.IgnoreTimeLimits {
		return nil, nil
	}
	return timeLimit{base: base{KindTimeLimit}, limit: c.Quiz.TimeLimit}, nil
}

func (r timeLimit) Describe() []string {
	return []string{"Time limit: " + formatDuration(r.limit)}
}
