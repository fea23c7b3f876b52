// Package session owns the authenticated user context: the persisted token,
// the cached user record and the organization every route is scoped to.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"healthdesk/internal/model"
)

// Storage keys.
const (
	KeyToken = "authToken"
	KeyUser  = "user"
	KeyOrgID = "org_id"
)

// Store is the key-value persistence the session needs.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Session is safe for concurrent use.
type Session struct {
	store    Store
	devOrgID string
	now      func() time.Time

	mu     sync.RWMutex
	token  string
	user   *model.User
	orgID  string
	claims *Claims
}

// New returns an empty session. devOrgID is the last-resort organization.
func New(store Store, devOrgID string) *Session {
	return &Session{store: store, devOrgID: devOrgID, now: time.Now}
}

// SetClock overrides the time source. Intended for tests.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Init restores token, user and org id from the store.
// A corrupt user record is dropped rather than failing startup.
func (s *Session) Init(ctx context.Context) error {
	token, _, err := s.store.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("failed to restore session token: %w", err)
	}
	rawUser, _, err := s.store.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("failed to restore session user: %w", err)
	}
	orgID, _, err := s.store.Get(ctx, KeyOrgID)
	if err != nil {
		return fmt.Errorf("failed to restore org id: %w", err)
	}

	var user *model.User
	if rawUser != "" {
		var u model.User
		if json.Unmarshal([]byte(rawUser), &u) == nil {
			user = &u
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTokenLocked(token)
	s.user = user
	s.orgID = orgID
	return nil
}

// Begin persists a successful login.
func (s *Session) Begin(ctx context.Context, resp model.LoginResponse) error {
	if resp.AccessToken == "" {
		return fmt.Errorf("login response has no access token")
	}
	rawUser, err := json.Marshal(resp.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	if err := s.store.Set(ctx, KeyToken, resp.AccessToken); err != nil {
		return err
	}
	if err := s.store.Set(ctx, KeyUser, string(rawUser)); err != nil {
		return err
	}
	if resp.User.OrgID != "" {
		if err := s.store.Set(ctx, KeyOrgID, resp.User.OrgID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTokenLocked(resp.AccessToken)
	user := resp.User
	s.user = &user
	if resp.User.OrgID != "" {
		s.orgID = resp.User.OrgID
	}
	return nil
}

// Teardown removes the token, user and org id from memory and storage.
// Memory is cleared even when the store fails.
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.Lock()
	s.setTokenLocked("")
	s.user = nil
	s.orgID = ""
	s.mu.Unlock()

	if err := s.store.Delete(ctx, KeyToken, KeyUser, KeyOrgID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *Session) setTokenLocked(token string) {
	s.token = token
	s.claims = nil
	if token == "" {
		return
	}
	if c, err := DecodeClaims(token); err == nil {
		s.claims = c
	}
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Claims returns the decoded claims, or nil when the token is absent or malformed.
func (s *Session) Claims() *Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return nil
	}
	c := *s.claims
	return &c
}

// User returns the cached user record.
func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// IsAuthenticated reports a present, decodable, unexpired token.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.claims != nil && !s.claims.Expired(s.now())
}

// ExpiresAt returns the token expiry, or the zero time.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil || s.claims.ExpiresAt == nil {
		return time.Time{}
	}
	return s.claims.ExpiresAt.Time
}

// OrgID resolves the organization: the claim of an unexpired token, then
// the stored org id, then the configured development fallback.
func (s *Session) OrgID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims != nil && s.claims.OrgID != "" && !s.claims.Expired(s.now()) {
		return s.claims.OrgID
	}
	if s.orgID != "" {
		return s.orgID
	}
	return s.devOrgID
}

// SetOrgID persists an explicit organization choice.
func (s *Session) SetOrgID(ctx context.Context, orgID string) error {
	if err := s.store.Set(ctx, KeyOrgID, orgID); err != nil {
		return err
	}
	s.mu.Lock()
	s.orgID = orgID
	s.mu.Unlock()
	return nil
}

// OrgName returns the organization name from the claims or user record.
func (s *Session) OrgName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims != nil && s.claims.OrgName != "" {
		return s.claims.OrgName
	}
	if s.user != nil {
		return s.user.OrgName
	}
	return ""
}

// Role returns the role from the claims or user record.
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims != nil && s.claims.Role != "" {
		return s.claims.Role
	}
	if s.user != nil {
		return s.user.Role
	}
	return ""
}

// Email returns the email from the claims or user record.
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims != nil && s.claims.Email != "" {
		return s.claims.Email
	}
	if s.user != nil {
		return s.user.Email
	}
	return ""
}

// BuildRoute prefixes path with the current organization: "/x" → "/{org}/x".
func (s *Session) BuildRoute(path string) string {
	return "/" + s.OrgID() + "/" + strings.TrimPrefix(path, "/")
}

// DashboardPath is the organization root.
func (s *Session) DashboardPath() string {
	return "/" + s.OrgID()
}
