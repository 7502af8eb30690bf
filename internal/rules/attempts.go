package rules

import (
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-access/internal/quiz"
)

// attemptCount caps the number of attempts. Only built when the quiz has a
// positive limit.
type attemptCount struct {
	base
	max int
}

func newAttemptCount(c Context) (Rule, error) {
	if c.Quiz.MaxAttempts <= 0 {
		return nil, nil
	}
	return attemptCount{base: base{KindAttemptCount}, max: c.Quiz.MaxAttempts}, nil
}

func (r attemptCount) Describe() []string {
	return []string{fmt.Sprintf("Attempts allowed: %d", r.max)}
}

func (r attemptCount) PreventNewAttempt(numPrev int, _ *quiz.Attempt) []string {
	if numPrev >= r.max {
		return []string{"No more attempts are allowed"}
	}
	return nil
}

// delay enforces a wait after the first attempt (delay1) and after every
// later one (delay2), measured from when the last attempt finished.
type delay struct {
	base
	delay1, delay2 time.Duration
	max            int
	timeLimit      time.Duration
	timeClose      *time.Time
	now            time.Time
	loc            *time.Location
}

func newDelay(c Context) (Rule, error) {
	if c.Quiz.Delay1 <= 0 && c.Quiz.Delay2 <= 0 {
		return nil, nil
	}
	return delay{
		base:      base{KindDelay},
		delay1:    c.Quiz.Delay1,
		delay2:    c.Quiz.Delay2,
		max:       c.Quiz.MaxAttempts,
		timeLimit: c.Quiz.TimeLimit,
		timeClose: c.Quiz.TimeClose,
		now:       c.Now,
		loc:       c.Env.Location,
	}, nil
}

// nextStart is zero when no wait applies.
func (r delay) nextStart(numPrev int, last *quiz.Attempt) time.Time {
	if numPrev == 0 || last == nil || last.FinishedAt == nil {
		return time.Time{}
	}
	finished := *last.FinishedAt
	if r.timeLimit > 0 {
		if deadline := last.StartedAt.Add(r.timeLimit); deadline.Before(finished) {
			finished = deadline
		}
	}
	switch {
	case numPrev == 1 && r.delay1 > 0:
		return finished.Add(r.delay1)
	case numPrev > 1 && r.delay2 > 0:
		return finished.Add(r.delay2)
	}
	return time.Time{}
}

func (r delay) PreventNewAttempt(numPrev int, last *quiz.Attempt) []string {
	if r.max > 0 && numPrev >= r.max {
		// the attempt-count rule already says no
		return nil
	}
	if r.timeClose != nil && r.now.After(*r.timeClose) {
		// closed; the time window rule speaks
		return nil
	}
	next := r.nextStart(numPrev, last)
	if next.IsZero() || !r.now.Before(next) {
		return nil
	}
	if r.timeClose != nil && next.After(*r.timeClose) {
		return []string{"This quiz closes before you will be allowed to start another attempt."}
	}
	return []string{fmt.Sprintf("You must wait before you may re-attempt this quiz. You will be allowed to start another attempt after %s.",
		formatDate(next, r.loc))}
}
