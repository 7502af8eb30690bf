package quiz

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	PutQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)

	PutAccessOverride(ctx context.Context, o AccessOverride) error
	// AccessOverrides returns the user's own override (nil if none) and the
	// overrides of every group the user belongs to.
	AccessOverrides(ctx context.Context, quizID, userID string) (*AccessOverride, []AccessOverride, error)
	AddGroupMember(ctx context.Context, groupID, userID string) error

	// ListAttempts returns the user's attempts ordered by seq. With no
	// states given every attempt is returned.
	ListAttempts(ctx context.Context, quizID, userID string, states ...AttemptState) ([]Attempt, error)
	PutAttempt(ctx context.Context, a Attempt) (Attempt, error)

	GetGradeOverride(ctx context.Context, quizID, userID string) (*GradeOverride, error)
	PutGradeOverride(ctx context.Context, quizID, userID string, g GradeOverride) error
}

type memoryStore struct {
	mu        sync.RWMutex
	quizzes   map[string]Quiz
	overrides []AccessOverride
	members   map[string]map[string]bool // user -> groups
	attempts  map[string]Attempt
	grades    map[string]GradeOverride // quiz|user
}

func NewInMemoryStore() Store {
	return &memoryStore{
		quizzes:  map[string]Quiz{},
		members:  map[string]map[string]bool{},
		attempts: map[string]Attempt{},
		grades:   map[string]GradeOverride{},
	}
}

func (m *memoryStore) PutQuiz(_ context.Context, q Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	return q, nil
}

func (m *memoryStore) PutAccessOverride(_ context.Context, o AccessOverride) error {
	if (o.UserID == "") == (o.GroupID == "") {
		return errOverrideTarget
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ex := range m.overrides {
		if ex.QuizID == o.QuizID && ex.UserID == o.UserID && ex.GroupID == o.GroupID {
			m.overrides[i] = o
			return nil
		}
	}
	m.overrides = append(m.overrides, o)
	return nil
}

func (m *memoryStore) AccessOverrides(_ context.Context, quizID, userID string) (*AccessOverride, []AccessOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var user *AccessOverride
	var groups []AccessOverride
	for _, o := range m.overrides {
		if o.QuizID != quizID {
			continue
		}
		switch {
		case o.UserID != "" && o.UserID == userID:
			o := o
			user = &o
		case o.GroupID != "" && m.members[userID][o.GroupID]:
			groups = append(groups, o)
		}
	}
	return user, groups, nil
}

func (m *memoryStore) AddGroupMember(_ context.Context, groupID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[userID] == nil {
		m.members[userID] = map[string]bool{}
	}
	m.members[userID][groupID] = true
	return nil
}

func (m *memoryStore) ListAttempts(_ context.Context, quizID, userID string, states ...AttemptState) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.QuizID != quizID || a.UserID != userID {
			continue
		}
		if len(states) > 0 && !hasState(states, a.State) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *memoryStore) PutAttempt(_ context.Context, a Attempt) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[a.QuizID]; !ok {
		return Attempt{}, ErrNotFound
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now()
	}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *memoryStore) GetGradeOverride(_ context.Context, quizID, userID string) (*GradeOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.grades[quizID+"|"+userID]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *memoryStore) PutGradeOverride(_ context.Context, quizID, userID string, g GradeOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grades[quizID+"|"+userID] = g
	return nil
}

func hasState(states []AttemptState, s AttemptState) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}
