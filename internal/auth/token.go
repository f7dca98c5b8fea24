// Package auth reads the installer's shared credential from its on-disk
// state store.
package auth

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// authConfigKey is the key under which the installer state blob stores its
// authentication block.
const authConfigKey = "*gencrypto.AuthConfig"

// TokenSource reads the bearer token for the orchestration API from the
// installer state file. The file appears partway through the bootstrap, so
// absence is an expected, non-fatal condition.
type TokenSource struct {
	path string

	mu       sync.Mutex
	cached   string
	cachedAt time.Time
	ttl      time.Duration
}

// NewTokenSource creates a token source backed by the given state file.
// Reads are cached briefly so the event poller and the main poll loop do not
// hit the filesystem on every cycle.
func NewTokenSource(path string) *TokenSource {
	return &TokenSource{path: path, ttl: 10 * time.Second}
}

// Token returns the current bearer token, or "" when the state file is
// absent, unreadable, or does not carry a token yet.
func (s *TokenSource) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" && time.Since(s.cachedAt) < s.ttl {
		return s.cached
	}

	s.cached = readToken(s.path)
	s.cachedAt = time.Now()
	return s.cached
}

func readToken(path string) string {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	var state map[string]json.RawMessage
	if err := json.Unmarshal(data, &state); err != nil {
		return ""
	}

	raw, ok := state[authConfigKey]
	if !ok {
		return ""
	}

	var authCfg struct {
		UserAuthToken string `json:"UserAuthToken"`
	}
	if err := json.Unmarshal(raw, &authCfg); err != nil {
		return ""
	}

	return authCfg.UserAuthToken
}
