// Package attempts works out where a user stands from their attempt list.
package attempts

import (
	"fmt"
	"sort"

	"github.com/mind-engage/mindengage-access/internal/quiz"
)

// History is a user's attempts on one quiz, resolved.
type History struct {
	Finished     []quiz.Attempt // ordered by seq
	InProgress   *quiz.Attempt
	LastFinished *quiz.Attempt
	// Count is finished attempts plus the one in progress, if any. This is
	// what the access rules see.
	Count int
}

func (h History) HasUnfinished() bool { return h.InProgress != nil }

// Resolve sorts out attempts of any state. Abandoned attempts are ignored.
// If more than one attempt is in progress the earliest by seq is used and
// an *quiz.InvariantViolation is returned with the history; the history is
// still valid in that case.
func Resolve(quizID, userID string, all []quiz.Attempt) (History, error) {
	sorted := append([]quiz.Attempt(nil), all...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	var (
		h    History
		open []quiz.Attempt
	)
	for _, a := range sorted {
		switch a.State {
		case quiz.StateFinished:
			h.Finished = append(h.Finished, a)
		case quiz.StateInProgress:
			open = append(open, a)
		}
	}
	if n := len(h.Finished); n > 0 {
		last := h.Finished[n-1]
		h.LastFinished = &last
	}
	h.Count = len(h.Finished)

	var warn error
	if len(open) > 0 {
		first := open[0]
		h.InProgress = &first
		h.Count++
		if len(open) > 1 {
			seqs := make([]int, len(open))
			for i, a := range open {
				seqs[i] = a.Seq
			}
			warn = &quiz.InvariantViolation{
				QuizID:  quizID,
				UserID:  userID,
				Message: fmt.Sprintf("%d attempts in progress (seq %v), using seq %d", len(open), seqs, first.Seq),
			}
		}
	}
	return h, warn
}
