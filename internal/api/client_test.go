package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"healthdesk/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc, token string, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{
		WithHTTPClient(srv.Client()),
		WithLogger(zaptest.NewLogger(t)),
		WithRetryWait(time.Millisecond),
	}, opts...)
	return NewClient(srv.URL+"/api/v1/", 5*time.Second, staticToken(token), opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestResource_ListSendsBearerAndDecodesEnvelope(t *testing.T) {
	var gotAuth, gotRequestID string
	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/departments/", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{
			"code":    200,
			"message": "ok",
			"data": map[string]any{
				"departments": []model.Department{
					{ID: "d1", Name: "Cardiology", Code: "CARD", IsActive: true},
				},
				"page":        5,
				"page_size":   10,
				"total":       47,
				"total_pages": 5,
			},
		})
	}, "tok-1")

	res := NewResource[model.Department](c, "/departments/", "departments")
	page, err := res.List(context.Background(), url.Values{"page": {"5"}, "limit": {"10"}, "status": {"active"}})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "active", gotQuery.Get("status"))
	assert.Equal(t, 47, page.Total)
	assert.Equal(t, 5, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "CARD", page.Items[0].Code)
}

func TestResource_ListLogsMalformedPageFields(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"code":    200,
			"message": "ok",
			"data": map[string]any{
				"departments": []model.Department{{ID: "d1", Name: "Cardiology"}},
				"total":       "47",
			},
		})
	}, "tok-1", WithLogger(zap.New(core)))

	res := NewResource[model.Department](c, "/departments/", "departments")
	page, err := res.List(context.Background(), url.Values{"page": {"1"}})
	require.NoError(t, err)

	assert.Len(t, page.Items, 1)
	assert.Zero(t, page.Total)
	entries := logs.FilterMessage("ignoring malformed page field").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "total", entries[0].ContextMap()["field"])
}

func TestClient_NoTokenNoAuthorizationHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"departments": nil}})
	}, "")

	page, err := NewResource[model.Department](c, "/departments/", "departments").List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestClient_UnauthorizedTriggersTeardown(t *testing.T) {
	var torn atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token expired"})
	}, "stale", WithUnauthorizedHandler(func() { torn.Add(1) }))

	_, err := NewResource[model.Department](c, "/departments/", "departments").Get(context.Background(), "d1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Token expired", MessageOr(err, "fallback"))
	assert.Equal(t, int32(1), torn.Load(), "401 is not retried")
}

func TestAuth_LoginFailureDoesNotTearDown(t *testing.T) {
	var torn atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}, "stale", WithUnauthorizedHandler(func() { torn.Add(1) }))

	_, err := NewAuth(c).Login(context.Background(), model.LoginRequest{Email: "a@b.c", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", MessageOr(err, "Invalid email or password"))
	assert.Zero(t, torn.Load())
}

func TestAuth_LoginSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body model.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "admin@mercy.test", body.Email)
		writeJSON(w, http.StatusOK, model.LoginResponse{
			Success:     true,
			AccessToken: "jwt",
			TokenType:   "bearer",
			User:        model.User{ID: "u1", OrgID: "org-7"},
		})
	}, "")

	resp, err := NewAuth(c).Login(context.Background(), model.LoginRequest{Email: "admin@mercy.test", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.AccessToken)
	assert.Equal(t, "org-7", resp.User.OrgID)
}

func TestAuth_Me(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/me", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"user": model.User{Email: "admin@mercy.test"}})
	}, "tok")

	u, err := NewAuth(c).Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin@mercy.test", u.Email)
}

func TestClient_ReadRetriedOnceOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": model.Department{ID: "d1"}})
	}, "tok")

	d, err := NewResource[model.Department](c, "/departments/", "departments").Get(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", d.ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ReadGivesUpAfterOneRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadGateway, map[string]any{"message": "upstream down"})
	}, "tok")

	_, err := NewResource[model.Department](c, "/departments/", "departments").Get(context.Background(), "d1")
	require.Error(t, err)
	assert.Equal(t, "upstream down", MessageOr(err, "x"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_MutationsAndClientErrorsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}, "tok")
	res := NewResource[model.Department](c, "/departments/", "departments")

	_, err := res.Create(context.Background(), model.DepartmentInput{Name: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = res.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "Request failed with status 404", MessageOr(err, "Request failed with status 404"))
}

func TestResource_UpdateAndDelete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			assert.Equal(t, "/api/v1/departments/d%201", r.URL.EscapedPath())
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"is_active":false}`, string(body))
			writeJSON(w, http.StatusOK, map[string]any{"data": model.Department{ID: "d 1", IsActive: false}})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}, "tok")
	res := NewResource[model.Department](c, "/departments/", "departments")

	d, err := res.Update(context.Background(), "d 1", model.DepartmentStatusPatch{IsActive: false})
	require.NoError(t, err)
	assert.False(t, d.IsActive)
	require.NoError(t, res.Delete(context.Background(), "d 1"))
}

func TestErrorMessage_DetailList(t *testing.T) {
	msg := errorMessage([]byte(`{"detail":[{"msg":"name too short"},{"msg":"code invalid"}]}`))
	assert.Equal(t, "name too short; code invalid", msg)
	assert.Equal(t, "plain", errorMessage([]byte(`{"message":"plain"}`)))
	assert.Empty(t, errorMessage([]byte(`<html>`)))
}

func TestMessageOr_TransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second, staticToken(""), WithRetryWait(time.Millisecond))
	_, err := NewResource[model.Department](c, "/departments/", "departments").Get(context.Background(), "d1")
	require.Error(t, err)
	assert.Contains(t, MessageOr(err, "fallback"), "network error")
}
