package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthdesk/internal/model"
	"healthdesk/internal/store"
)

var fixedNow = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

func mintToken(t *testing.T, orgID string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		OrgID:   orgID,
		OrgName: "Mercy General",
		Email:   "admin@mercy.test",
		Role:    "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newTestSession(t *testing.T) (*Session, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s := New(st, "org-123")
	s.SetClock(func() time.Time { return fixedNow })
	return s, st
}

func TestDecodeClaims(t *testing.T) {
	token := mintToken(t, "org-42", fixedNow.Add(time.Hour))

	c, err := DecodeClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "org-42", c.OrgID)
	assert.Equal(t, "Mercy General", c.OrgName)
	assert.Equal(t, "user-1", c.RegisteredClaims.Subject)
	assert.False(t, c.Expired(fixedNow))
	assert.True(t, c.Expired(fixedNow.Add(2*time.Hour)))

	_, err = DecodeClaims("not-a-jwt")
	assert.Error(t, err)
}

func TestSession_OrgIDFallbackChain(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)

	assert.Equal(t, "org-123", s.OrgID(), "no token, nothing stored")

	require.NoError(t, s.SetOrgID(ctx, "org-stored"))
	assert.Equal(t, "org-stored", s.OrgID(), "stored org id")

	require.NoError(t, s.Begin(ctx, model.LoginResponse{
		AccessToken: mintToken(t, "org-claim", fixedNow.Add(time.Hour)),
	}))
	assert.Equal(t, "org-claim", s.OrgID(), "unexpired token claim wins")

	s.SetClock(func() time.Time { return fixedNow.Add(2 * time.Hour) })
	assert.Equal(t, "org-stored", s.OrgID(), "expired token falls back to stored")
	assert.False(t, s.IsAuthenticated())
}

func TestSession_BeginInitTeardown(t *testing.T) {
	ctx := context.Background()
	s, st := newTestSession(t)

	token := mintToken(t, "org-7", fixedNow.Add(time.Hour))
	resp := model.LoginResponse{
		Success:     true,
		AccessToken: token,
		User:        model.User{ID: "user-1", Email: "admin@mercy.test", FullName: "Ada Admin", OrgID: "org-7"},
	}
	require.NoError(t, s.Begin(ctx, resp))
	assert.True(t, s.IsAuthenticated())

	restored := New(st, "org-123")
	restored.SetClock(func() time.Time { return fixedNow })
	require.NoError(t, restored.Init(ctx))
	assert.Equal(t, token, restored.Token())
	u, ok := restored.User()
	require.True(t, ok)
	assert.Equal(t, "Ada Admin", u.DisplayName())
	assert.Equal(t, "/org-7/patients", restored.BuildRoute("/patients"))
	assert.Equal(t, "/org-7", restored.DashboardPath())

	require.NoError(t, restored.Teardown(ctx))
	assert.False(t, restored.IsAuthenticated())
	assert.Empty(t, restored.Token())
	for _, key := range []string{KeyToken, KeyUser, KeyOrgID} {
		_, ok, err := st.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
	assert.Equal(t, "/org-123/departments", restored.BuildRoute("departments"))
}

func TestSession_BeginRequiresToken(t *testing.T) {
	s, _ := newTestSession(t)
	assert.Error(t, s.Begin(context.Background(), model.LoginResponse{}))
}

func TestSession_MalformedTokenIsNotAuthenticated(t *testing.T) {
	ctx := context.Background()
	s, st := newTestSession(t)
	require.NoError(t, st.Set(ctx, KeyToken, "garbage"))
	require.NoError(t, st.Set(ctx, KeyUser, "{not json"))

	require.NoError(t, s.Init(ctx))
	assert.Equal(t, "garbage", s.Token())
	assert.False(t, s.IsAuthenticated())
	_, ok := s.User()
	assert.False(t, ok)
	assert.Nil(t, s.Claims())
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}
func (failingStore) Set(context.Context, string, string) error { return errors.New("disk gone") }
func (failingStore) Delete(context.Context, ...string) error   { return errors.New("disk gone") }

func TestSession_TeardownClearsMemoryOnStoreFailure(t *testing.T) {
	s := New(failingStore{}, "org-123")
	s.token = "t"
	s.orgID = "org-9"

	err := s.Teardown(context.Background())
	assert.Error(t, err)
	assert.Empty(t, s.Token())
	assert.Equal(t, "org-123", s.OrgID())
	assert.Error(t, s.Init(context.Background()))
}
