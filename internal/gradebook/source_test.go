package gradebook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-access/internal/quiz"
)

// platform fakes the token endpoint and an AGS line item container.
func platform(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/lineitems", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, mediaLineItems, r.Header.Get("Accept"))
		items := []LineItem{}
		if r.URL.Query().Get("resource_id") == "q1" {
			items = append(items, LineItem{ID: srv.URL + "/lineitems/7", ScoreMaximum: 10, ResourceID: "q1"})
		}
		_ = json.NewEncoder(w).Encode(items)
	})
	mux.HandleFunc("/lineitems/7/results", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, mediaResults, r.Header.Get("Accept"))
		out := []Result{}
		switch r.URL.Query().Get("user_id") {
		case "sam":
			score := 45.0
			out = append(out, Result{UserID: "sam", ResultScore: &score, ResultMaximum: 50, Comment: "nice"})
		case "kim":
			out = append(out, Result{UserID: "kim", Comment: "see me"})
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSource(srv *httptest.Server, authoritative bool) *Source {
	c := NewClient(Config{TokenURL: srv.URL + "/token", ClientID: "id", ClientSecret: "secret", Timeout: 2 * time.Second})
	return NewSource(c, srv.URL+"/lineitems", authoritative)
}

func TestSourceScalesToLineItem(t *testing.T) {
	srv := platform(t)

	g, err := newTestSource(srv, true).GetGradeOverride(context.Background(), "q1", "sam")
	require.NoError(t, err)
	require.NotNil(t, g)
	require.NotNil(t, g.Value)
	assert.InDelta(t, 9.0, *g.Value, 1e-9)
	assert.True(t, g.Overridden)
	assert.Equal(t, "nice", g.Feedback)

	g, err = newTestSource(srv, false).GetGradeOverride(context.Background(), "q1", "sam")
	require.NoError(t, err)
	assert.False(t, g.Overridden, "non-authoritative grades only carry feedback")
}

func TestSourceMissing(t *testing.T) {
	srv := platform(t)
	s := newTestSource(srv, true)

	g, err := s.GetGradeOverride(context.Background(), "other-quiz", "sam")
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = s.GetGradeOverride(context.Background(), "q1", "nobody")
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = s.GetGradeOverride(context.Background(), "q1", "kim")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Nil(t, g.Value)
	assert.False(t, g.Overridden)
	assert.Equal(t, "see me", g.Feedback)
}

func TestSourceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
			return
		}
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestSource(srv, true).GetGradeOverride(context.Background(), "q1", "sam")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type fixedSource struct {
	g     *quiz.GradeOverride
	err   error
	calls int
}

func (f *fixedSource) GetGradeOverride(context.Context, string, string) (*quiz.GradeOverride, error) {
	f.calls++
	return f.g, f.err
}

func TestLayered(t *testing.T) {
	v := 7.0
	local := &fixedSource{g: &quiz.GradeOverride{Value: &v, Overridden: true}}
	remote := &fixedSource{g: &quiz.GradeOverride{Feedback: "remote"}}

	g, err := Layered{Local: local, Remote: remote}.GetGradeOverride(context.Background(), "q1", "sam")
	require.NoError(t, err)
	assert.Same(t, local.g, g)
	assert.Zero(t, remote.calls)

	local.g = nil
	g, err = Layered{Local: local, Remote: remote}.GetGradeOverride(context.Background(), "q1", "sam")
	require.NoError(t, err)
	assert.Equal(t, "remote", g.Feedback)

	g, err = Layered{Local: local}.GetGradeOverride(context.Background(), "q1", "sam")
	require.NoError(t, err)
	assert.Nil(t, g)

	local.err = errors.New("db down")
	remote.calls = 0
	_, err = Layered{Local: local, Remote: remote}.GetGradeOverride(context.Background(), "q1", "sam")
	assert.Error(t, err)
	assert.Zero(t, remote.calls, "local errors are not masked by the remote")
}
