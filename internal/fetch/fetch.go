// Package fetch provides the HTTP session used to pull timetable pages and
// the term-dates feed. It keeps a disk-backed cache keyed by URL and honors
// ETag / Last-Modified so repeated runs in the same term are cheap and keep
// working through transient outages of the department site.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "lectical/internal/log"
)

// BasicAuth holds credentials sent with every request when non-nil.
type BasicAuth struct {
	Username string
	Password string
}

// Result is the outcome of fetching one URL.
type Result struct {
	URL       string
	Body      []byte
	FromCache bool // true if the body came from the disk cache
}

// cacheEntry holds HTTP cache metadata for a single URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is a shared HTTP client for one scrape run.
type Session struct {
	client   *http.Client
	cacheDir string
	auth     *BasicAuth
}

// NewSession creates a Session caching under cacheDir. auth may be nil.
func NewSession(cacheDir string, auth *BasicAuth) *Session {
	if cacheDir == "" {
		cacheDir = "./var/page-cache"
	}
	return &Session{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
		auth:     auth,
	}
}

// NeedsAuth probes url without credentials and reports whether the server
// challenges with 401. The department site only does this off-network, so
// the caller can skip prompting for credentials when on it.
func (s *Session) NeedsAuth(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusUnauthorized, nil
}

// SetAuth installs credentials for subsequent requests.
func (s *Session) SetAuth(auth *BasicAuth) { s.auth = auth }

// Get fetches url, honoring ETag and Last-Modified from the disk cache.
// On 304, network error, or a non-OK status with a cached body available,
// the cached body is returned with FromCache set.
func (s *Session) Get(ctx context.Context, url string) (Result, error) {
	if url == "" {
		return Result{}, errors.New("fetch: url is empty")
	}

	cachePath := s.cachePathForURL(url)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return Result{}, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := os.ReadFile(filepath.Join(cachePath, "body"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}
	if s.auth != nil {
		req.SetBasicAuth(s.auth.Username, s.auth.Password)
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("fetch start", "url", RedactURL(url))

	resp, err := s.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Warn("fetch network error, using cached body", "url", RedactURL(url), "err", err)
			return Result{URL: url, Body: cachedBody, FromCache: true}, nil
		}
		return Result{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return Result{}, readErr
		}

		newMeta := cacheEntry{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("fetch cache save failed", err, "url", RedactURL(url))
		}

		return Result{URL: url, Body: body, FromCache: false}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return Result{}, errors.New("fetch: 304 Not Modified but no cached body")
		}
		appLog.Debug("fetch not modified, using cache", "url", RedactURL(url))
		return Result{URL: url, Body: cachedBody, FromCache: true}, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Warn("fetch non-OK status, using cached body", "url", RedactURL(url), "status", resp.StatusCode)
			return Result{URL: url, Body: cachedBody, FromCache: true}, nil
		}
		return Result{}, errors.New("fetch: " + resp.Status)
	}
}

func (s *Session) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(s.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// RedactURL trims the path and query from a URL for logging. Course page
// URLs carry query parameters that identify the user's cohort and the host
// may be credentialed.
func RedactURL(u string) string {
	i := strings.Index(u, "://")
	if i == -1 {
		return "...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j != -1 {
		return u[:i+3+j] + "/...(redacted)"
	}
	return u
}
