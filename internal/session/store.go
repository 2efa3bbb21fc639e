// Package session implements the server-held session model: an in-process
// mapping from opaque bearer tokens to authenticated identities. Sessions are
// created on sign-in, consulted on every authenticated request and removed on
// sign-out. Nothing is persisted; restarting the process signs everyone out.
package session

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/reading-practice/internal/utils"
)

// CookieName is the HTTP-only cookie that carries the session token.
const CookieName = "session_token"

// DefaultTTL is how long a session stays valid without re-authentication.
const DefaultTTL = 7 * 24 * time.Hour

// Identity is what a session token resolves to. ClassID is zero for users
// without a class (teachers own classes instead of belonging to one).
type Identity struct {
	UserID   uint64 `json:"user_id"`
	Role     string `json:"role"`
	ClassID  uint64 `json:"class_id,omitempty"`
	FullName string `json:"full_name"`
}

type entry struct {
	identity  Identity
	expiresAt time.Time
}

// Store holds active sessions. It is safe for concurrent use and must be
// constructed with New so the lifecycle is explicit: built at process start,
// cleared via DestroyAll on shutdown or test teardown.
type Store struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry
}

// New returns an empty store. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl: ttl,
		now: time.Now,
		m:   make(map[string]entry),
	}
}

// Create issues a fresh opaque token for id. Every call returns a distinct
// token, so two concurrent sign-ins for the same user hold independent
// sessions and destroying one leaves the other valid.
func (s *Store) Create(id Identity) (string, error) {
	token, err := utils.NewSessionToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.m[token] = entry{identity: id, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return token, nil
}

// Get resolves a token to its identity. Expired entries are treated as absent
// and evicted lazily.
func (s *Store) Get(token string) (Identity, bool) {
	s.mu.RLock()
	e, ok := s.m[token]
	s.mu.RUnlock()
	if !ok {
		return Identity{}, false
	}
	if s.now().After(e.expiresAt) {
		s.Destroy(token)
		return Identity{}, false
	}
	return e.identity, true
}

// Destroy removes a single session. Unknown tokens are a no-op.
func (s *Store) Destroy(token string) {
	s.mu.Lock()
	delete(s.m, token)
	s.mu.Unlock()
}

// DestroyAll drops every session.
func (s *Store) DestroyAll() {
	s.mu.Lock()
	s.m = make(map[string]entry)
	s.mu.Unlock()
}

// Len reports the number of live entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// FromRequest extracts the session token from the session_token cookie or,
// failing that, from an Authorization: Bearer header.
func FromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		if tok := strings.TrimPrefix(auth, "Bearer "); tok != "" {
			return tok, true
		}
	}
	return "", false
}

// Cookie builds the HTTP-only cookie set on sign-in/sign-up. maxAge <= 0
// builds the clearing cookie used on sign-out.
func Cookie(token string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge <= 0 {
		c.Value = ""
		c.MaxAge = -1
		return c
	}
	c.MaxAge = int(maxAge / time.Second)
	return c
}
