package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCachesWithETag(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("<table></table>"))
	}))
	defer srv.Close()

	s := NewSession(t.TempDir(), nil)
	ctx := context.Background()

	first, err := s.Get(ctx, srv.URL+"/timetable.aspx")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, []byte("<table></table>"), first.Body)

	second, err := s.Get(ctx, srv.URL+"/timetable.aspx")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, 2, hits)
}

func TestGetFallsBackToCacheOnServerError(t *testing.T) {
	var failing bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	s := NewSession(t.TempDir(), nil)
	ctx := context.Background()

	_, err := s.Get(ctx, srv.URL)
	require.NoError(t, err)

	failing = true
	res, err := s.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, []byte("body"), res.Body)
}

func TestGetErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewSession(t.TempDir(), nil)
	_, err := s.Get(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestBasicAuthSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "abcd1234" || pass != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewSession(t.TempDir(), nil)
	ctx := context.Background()

	needed, err := s.NeedsAuth(ctx, srv.URL)
	require.NoError(t, err)
	assert.True(t, needed)

	s.SetAuth(&BasicAuth{Username: "abcd1234", Password: "hunter2"})
	res, err := s.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), res.Body)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.org/...(redacted)",
		RedactURL("https://example.org/lectures2/course.aspx?id=1"))
	assert.Equal(t, "https://example.org", RedactURL("https://example.org"))
	assert.Equal(t, "...(redacted)", RedactURL("not a url"))
}
