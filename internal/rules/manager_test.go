package rules_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-access/internal/quiz"
	"github.com/mind-engage/mindengage-access/internal/rules"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func finished(seq int, start, end time.Time, score float64) *quiz.Attempt {
	return &quiz.Attempt{Seq: seq, State: quiz.StateFinished, StartedAt: start, FinishedAt: &end, Score: &score}
}

func mustManager(t *testing.T, q quiz.Quiz, env rules.Environment) *rules.Manager {
	t.Helper()
	m, err := rules.NewManager(q, "u1", now, false, env)
	require.NoError(t, err)
	return m
}

func TestAttemptLimitExhausted(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		m := mustManager(t, quiz.Quiz{ID: "q", MaxAttempts: n}, rules.Environment{})
		last := finished(n, now.Add(-2*time.Hour), now.Add(-time.Hour), 5)

		assert.NotEmpty(t, m.PreventNewAttempt(n, last), "limit %d", n)
		assert.True(t, m.IsFinished(n, last), "limit %d", n)

		assert.Empty(t, m.PreventNewAttempt(n-1, last), "limit %d", n)
		assert.False(t, m.IsFinished(n-1, last), "limit %d", n)
	}
}

func TestUnlimitedAttemptsNeverFinished(t *testing.T) {
	m := mustManager(t, quiz.Quiz{ID: "q"}, rules.Environment{})
	for _, n := range []int{0, 1, 10, 1000} {
		assert.False(t, m.IsFinished(n, nil))
		assert.Empty(t, m.PreventNewAttempt(n, nil))
	}
	assert.Empty(t, m.Kinds())
}

// A closed quiz vetoes access but never counts as finished.
func TestIsFinishedIgnoresOtherRules(t *testing.T) {
	m := mustManager(t, quiz.Quiz{ID: "q", MaxAttempts: 3, TimeClose: at(-time.Hour)}, rules.Environment{})
	assert.NotEmpty(t, m.PreventAccess())
	assert.False(t, m.IsFinished(1, nil))
}

func TestDescribeAndPreventAccessAreIdempotent(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	q := quiz.Quiz{
		ID:            "q",
		MaxAttempts:   2,
		TimeOpen:      at(-time.Hour),
		TimeClose:     at(time.Hour),
		TimeLimit:     90 * time.Minute,
		Subnets:       []string{"10.0.0.0/8"},
		PasswordHash:  string(hash),
		Prerequisites: []string{"lesson-1"},
	}
	m := mustManager(t, q, rules.Environment{ClientIP: "192.168.1.4"})

	assert.Equal(t, m.DescribeRules(), m.DescribeRules())
	assert.Equal(t, m.PreventAccess(), m.PreventAccess())
}

func TestDescribeFollowsDeclarationOrder(t *testing.T) {
	q := quiz.Quiz{
		ID:            "q",
		MaxAttempts:   3,
		TimeOpen:      at(-time.Hour),
		TimeClose:     at(time.Hour),
		TimeLimit:     90 * time.Minute,
		Prerequisites: []string{"lesson-1", "lesson-2"},
	}
	m := mustManager(t, q, rules.Environment{})

	assert.Equal(t, []rules.Kind{
		rules.KindAttemptCount,
		rules.KindTimeWindow,
		rules.KindTimeLimit,
		rules.KindPrerequisite,
	}, m.Kinds())
	assert.Equal(t, []string{
		"Attempts allowed: 3",
		"This quiz opened at Monday, 10 March 2025, 11:00 AM",
		"This quiz will close at Monday, 10 March 2025, 1:00 PM",
		"Time limit: 1 hour 30 mins",
		"This quiz requires completion of: lesson-1, lesson-2",
	}, m.DescribeRules())
}

func TestTimeLimitHiddenWhenIgnored(t *testing.T) {
	m, err := rules.NewManager(quiz.Quiz{ID: "q", TimeLimit: time.Hour}, "u1", now, true, rules.Environment{})
	require.NoError(t, err)
	assert.Empty(t, m.DescribeRules())
}

func TestTimeWindow(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		name     string
		q        quiz.Quiz
		describe []string
		block    []string
	}{
		{
			name:     "not yet open",
			q:        quiz.Quiz{ID: "q", TimeOpen: at(24 * time.Hour)},
			describe: []string{"The quiz will not be available until Tuesday, 11 March 2025, 12:00 PM"},
			block:    []string{"This quiz is not available until Tuesday, 11 March 2025, 12:00 PM"},
		},
		{
			name:     "closed",
			q:        quiz.Quiz{ID: "q", TimeOpen: at(-48 * time.Hour), TimeClose: at(-24 * time.Hour)},
			describe: []string{"This quiz closed on Sunday, 9 March 2025, 12:00 PM"},
			block:    []string{"This quiz is closed. It closed on Sunday, 9 March 2025, 12:00 PM"},
		},
		{
			name:     "open with no close",
			q:        quiz.Quiz{ID: "q", TimeOpen: at(-30 * time.Minute)},
			describe: []string{"This quiz opened at Monday, 10 March 2025, 11:30 AM"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustManager(t, tt.q, rules.Environment{Location: loc})
			assert.Equal(t, tt.describe, m.DescribeRules())
			assert.Equal(t, tt.block, m.PreventAccess())
		})
	}
}

func TestDelayBetweenAttempts(t *testing.T) {
	q := quiz.Quiz{ID: "q", Delay1: time.Hour, Delay2: 2 * time.Hour}

	t.Run("first delay still running", func(t *testing.T) {
		m := mustManager(t, q, rules.Environment{})
		last := finished(1, now.Add(-time.Hour), now.Add(-30*time.Minute), 4)
		assert.Equal(t, []string{
			"You must wait before you may re-attempt this quiz. You will be allowed to start another attempt after Monday, 10 March 2025, 12:30 PM.",
		}, m.PreventNewAttempt(1, last))
	})
	t.Run("first delay over", func(t *testing.T) {
		m := mustManager(t, q, rules.Environment{})
		last := finished(1, now.Add(-3*time.Hour), now.Add(-2*time.Hour), 4)
		assert.Empty(t, m.PreventNewAttempt(1, last))
	})
	t.Run("second delay applies after later attempts", func(t *testing.T) {
		m := mustManager(t, q, rules.Environment{})
		last := finished(2, now.Add(-3*time.Hour), now.Add(-90*time.Minute), 4)
		assert.Len(t, m.PreventNewAttempt(2, last), 1)
	})
	t.Run("wait measured from the time limit when overrun", func(t *testing.T) {
		limited := q
		limited.TimeLimit = 10 * time.Minute
		m := mustManager(t, limited, rules.Environment{})
		// started 75 min ago, deadline 65 min ago, delay1 ends 5 min ago
		last := finished(1, now.Add(-75*time.Minute), now.Add(-5*time.Minute), 4)
		assert.Empty(t, m.PreventNewAttempt(1, last))
	})
	t.Run("refuses when quiz closes before the wait ends", func(t *testing.T) {
		closing := q
		closing.TimeClose = at(10 * time.Minute)
		m := mustManager(t, closing, rules.Environment{})
		last := finished(1, now.Add(-time.Hour), now.Add(-30*time.Minute), 4)
		assert.Equal(t, []string{"This quiz closes before you will be allowed to start another attempt."},
			m.PreventNewAttempt(1, last))
	})
	t.Run("silent once the quiz has closed", func(t *testing.T) {
		closed := q
		closed.TimeClose = at(-10 * time.Minute)
		m := mustManager(t, closed, rules.Environment{})
		last := finished(1, now.Add(-time.Hour), now.Add(-30*time.Minute), 4)
		assert.Empty(t, m.PreventNewAttempt(1, last))
	})
	t.Run("silent once attempts are used up", func(t *testing.T) {
		capped := q
		capped.MaxAttempts = 1
		m := mustManager(t, capped, rules.Environment{})
		last := finished(1, now.Add(-time.Hour), now.Add(-30*time.Minute), 4)
		assert.Equal(t, []string{"No more attempts are allowed"}, m.PreventNewAttempt(1, last))
	})
}

func TestSubnet(t *testing.T) {
	q := quiz.Quiz{ID: "q", Subnets: []string{"10.0.0.0/8", "192.168.5.", "172.16.1.10-20", "2001:db8::1"}}
	tests := []struct {
		ip      string
		allowed bool
	}{
		{"10.20.30.40", true},
		{"192.168.5.77", true},
		{"192.168.50.1", false},
		{"172.16.1.15", true},
		{"172.16.1.21", false},
		{"2001:db8::1", true},
		{"::ffff:10.1.1.1", true},
		{"8.8.8.8", false},
		{"", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		m := mustManager(t, q, rules.Environment{ClientIP: tt.ip})
		if tt.allowed {
			assert.Empty(t, m.PreventAccess(), tt.ip)
		} else {
			assert.Equal(t, []string{"This quiz is only accessible from certain locations, and this computer is not on the allowed list."},
				m.PreventAccess(), tt.ip)
		}
	}
}

func TestPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	q := quiz.Quiz{ID: "q", PasswordHash: string(hash)}

	m := mustManager(t, q, rules.Environment{})
	assert.Equal(t, []string{"To attempt this quiz you need to know the quiz password"}, m.DescribeRules())
	assert.Equal(t, []string{"Please enter the quiz password"}, m.PreventAccess())

	m = mustManager(t, q, rules.Environment{Password: "wrong"})
	assert.Equal(t, []string{"The password entered was incorrect"}, m.PreventAccess())

	m = mustManager(t, q, rules.Environment{Password: "open sesame"})
	assert.Empty(t, m.PreventAccess())
}

func TestBrowserSecurity(t *testing.T) {
	m := mustManager(t, quiz.Quiz{ID: "q", BrowserSecurity: quiz.BrowserSecuritySecure}, rules.Environment{})
	assert.NotEmpty(t, m.PreventAccess())
	m = mustManager(t, quiz.Quiz{ID: "q", BrowserSecurity: quiz.BrowserSecuritySecure}, rules.Environment{JavaScript: true})
	assert.Empty(t, m.PreventAccess())

	m = mustManager(t, quiz.Quiz{ID: "q", BrowserSecurity: quiz.BrowserSecuritySafeBrowser}, rules.Environment{UserAgent: "Mozilla/5.0"})
	assert.NotEmpty(t, m.PreventAccess())
	m = mustManager(t, quiz.Quiz{ID: "q", BrowserSecurity: quiz.BrowserSecuritySafeBrowser}, rules.Environment{UserAgent: "Mozilla/5.0 SEB/3.4"})
	assert.Empty(t, m.PreventAccess())
}

func TestPrerequisites(t *testing.T) {
	q := quiz.Quiz{ID: "q", Prerequisites: []string{"a", " ", "b"}}
	m := mustManager(t, q, rules.Environment{Completed: map[string]bool{"a": true}})
	assert.Equal(t, []string{`You must complete "b" before attempting this quiz.`}, m.PreventAccess())

	m = mustManager(t, q, rules.Environment{Completed: map[string]bool{"a": true, "b": true}})
	assert.Empty(t, m.PreventAccess())
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		q    quiz.Quiz
		want string
	}{
		{"negative attempts", quiz.Quiz{ID: "q", MaxAttempts: -1}, "max_attempts must not be negative"},
		{"close before open", quiz.Quiz{ID: "q", TimeOpen: at(time.Hour), TimeClose: at(-time.Hour)}, "time_close is before time_open"},
		{"bad subnet", quiz.Quiz{ID: "q", Subnets: []string{"10.0.0.300/8"}}, `subnet "10.0.0.300/8"`},
		{"bad range", quiz.Quiz{ID: "q", Subnets: []string{"10.0.0.20-5"}}, "range end before start"},
		{"plain text password", quiz.Quiz{ID: "q", PasswordHash: "letmein"}, "password_hash is not a bcrypt hash"},
		{"grade method", quiz.Quiz{ID: "q", GradeMethod: "median"}, `unknown grade_method "median"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rules.NewManager(tt.q, "u1", now, false, rules.Environment{})
			var ce *quiz.ConfigurationError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "q", ce.QuizID)
			assert.Contains(t, ce.Error(), tt.want)
		})
	}
}
