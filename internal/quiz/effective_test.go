package quiz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestEffectiveAccessWithoutOverrides(t *testing.T) {
	q := Quiz{ID: "q", MaxAttempts: 2, TimeLimit: time.Hour, Questions: []string{"a"}}
	got := EffectiveAccess(q, nil, nil)
	assert.Equal(t, q, got)

	got.Questions[0] = "changed"
	assert.Equal(t, "a", q.Questions[0], "base quiz must not be aliased")
}

func TestEffectiveAccessUserOverrideWins(t *testing.T) {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	q := Quiz{ID: "q", MaxAttempts: 1, TimeLimit: 30 * time.Minute, TimeClose: ptr(base)}

	groups := []AccessOverride{{GroupID: "g", Attempts: ptr(5), TimeLimit: ptr(2 * time.Hour)}}
	user := &AccessOverride{UserID: "u", Attempts: ptr(2), TimeClose: ptr(base.Add(48 * time.Hour))}

	got := EffectiveAccess(q, user, groups)
	assert.Equal(t, 2, got.MaxAttempts, "user beats group")
	assert.Equal(t, 2*time.Hour, got.TimeLimit, "group fills what the user leaves unset")
	assert.Equal(t, base.Add(48*time.Hour), *got.TimeClose)
	assert.Equal(t, base, *q.TimeClose, "base untouched")
}

func TestEffectiveAccessGroupsAreLenient(t *testing.T) {
	open := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	groups := []AccessOverride{
		{GroupID: "a", TimeOpen: ptr(open.Add(time.Hour)), TimeClose: ptr(open.Add(5 * time.Hour)), TimeLimit: ptr(time.Hour), Attempts: ptr(3)},
		{GroupID: "b", TimeOpen: ptr(open), TimeClose: ptr(open.Add(3 * time.Hour)), TimeLimit: ptr(90 * time.Minute), Attempts: ptr(2), Password: ptr("hash-b")},
		{GroupID: "c", Password: ptr("hash-c")},
	}
	got := EffectiveAccess(Quiz{ID: "q", MaxAttempts: 1}, nil, groups)

	assert.Equal(t, open, *got.TimeOpen)
	assert.Equal(t, open.Add(5*time.Hour), *got.TimeClose)
	assert.Equal(t, 90*time.Minute, got.TimeLimit)
	assert.Equal(t, 3, got.MaxAttempts)
	assert.Equal(t, "hash-b", got.PasswordHash)
}

func TestEffectiveAccessZeroMeansUnlimited(t *testing.T) {
	groups := []AccessOverride{
		{GroupID: "a", Attempts: ptr(4), TimeLimit: ptr(time.Hour)},
		{GroupID: "b", Attempts: ptr(0), TimeLimit: ptr(time.Duration(0))},
		{GroupID: "c", Attempts: ptr(9), TimeLimit: ptr(3 * time.Hour)},
	}
	got := EffectiveAccess(Quiz{ID: "q", MaxAttempts: 1, TimeLimit: time.Minute}, nil, groups)
	assert.Equal(t, 0, got.MaxAttempts)
	assert.Equal(t, time.Duration(0), got.TimeLimit)
}

func TestEffectiveAccessUserCanClearPassword(t *testing.T) {
	got := EffectiveAccess(Quiz{ID: "q", PasswordHash: "x"}, &AccessOverride{UserID: "u", Password: ptr("")}, nil)
	assert.Empty(t, got.PasswordHash)
}
