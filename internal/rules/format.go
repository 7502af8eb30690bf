package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-access/internal/quiz"
)

const dateLayout = "Monday, 2 January 2006, 3:04 PM"

func formatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// formatDuration renders d the way the quiz page shows time limits,
// e.g. "1 hour 30 mins".
func formatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs <= 0 {
		return "0 secs"
	}
	units := []struct {
		size       int64
		one, other string
	}{
		{86400, "day", "days"},
		{3600, "hour", "hours"},
		{60, "min", "mins"},
		{1, "sec", "secs"},
	}
	var parts []string
	for _, u := range units {
		n := secs / u.size
		secs %= u.size
		switch {
		case n == 1:
			parts = append(parts, "1 "+u.one)
		case n > 1:
			parts = append(parts, fmt.Sprintf("%d %s", n, u.other))
		}
	}
	return strings.Join(parts, " ")
}

// base gives rules no opinion on anything they do not override.
type base struct{ kind Kind }

func (b base) Kind() Kind                                  { return b.kind }
func (base) Describe() []string                            { return nil }
func (base) PreventNewAttempt(int, *quiz.Attempt) []string { return nil }
func (base) PreventAccess() []string                       { return nil }
