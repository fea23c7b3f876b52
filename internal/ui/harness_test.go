package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"healthdesk/internal/api"
	"healthdesk/internal/model"
	"healthdesk/internal/query"
	"healthdesk/internal/session"
	"healthdesk/internal/store"
	"healthdesk/internal/theme"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// call is one request the fake backend received.
type call struct {
	method string
	path   string
	query  url.Values
	body   map[string]any
}

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	store  *store.Store
	sess   *session.Session
	client *api.Client
	cache  *query.Cache
	styles *theme.Styles
	deps   pageDeps

	mu    sync.Mutex
	calls []call
}

func newHarness(t *testing.T, stale time.Duration, h http.HandlerFunc) *harness {
	t.Helper()
	hs := &harness{t: t}

	hs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{method: r.Method, path: r.URL.Path, query: r.URL.Query()}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &c.body)
		}
		r.Body = io.NopCloser(bytes.NewReader(data))
		hs.mu.Lock()
		hs.calls = append(hs.calls, c)
		hs.mu.Unlock()
		h(w, r)
	}))
	t.Cleanup(hs.srv.Close)

	kv, err := store.Open(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	hs.store = kv

	hs.sess = session.New(kv, "org-123")
	require.NoError(t, hs.sess.Init(context.Background()))

	logger := zaptest.NewLogger(t)
	hs.client = api.NewClient(hs.srv.URL, 5*time.Second, hs.sess,
		api.WithHTTPClient(hs.srv.Client()),
		api.WithLogger(logger),
		api.WithRetryWait(time.Millisecond))
	hs.cache = query.New(stale)

	st := theme.ByName("dark")
	hs.styles = &st
	hs.deps = pageDeps{
		cache:    hs.cache,
		session:  hs.sess,
		prefs:    newPrefsWriter("", prefsDelay, logger),
		logger:   logger,
		styles:   hs.styles,
		pageSize: 10,
	}
	return hs
}

func (h *harness) requests() []call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]call(nil), h.calls...)
}

func (h *harness) last() call {
	calls := h.requests()
	require.NotEmpty(h.t, calls)
	return calls[len(calls)-1]
}

// collect runs cmd and flattens batches into the messages they produce.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// drive runs cmd against p until the page stops producing its own
// messages, and returns everything addressed to the root model.
func drive(p listPage, cmd tea.Cmd) []tea.Msg {
	var out []tea.Msg
	queue := collect(cmd)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		switch msg.(type) {
		case entityMsg:
			queue = append(queue, collect(p.Update(msg))...)
		case spinner.TickMsg:
		default:
			out = append(out, msg)
		}
	}
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func envelope(data any) map[string]any {
	return map[string]any{"code": 200, "message": "ok", "data": data}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sampleDepartments() []model.Department {
	return []model.Department{
		{ID: "d1", OrgID: "org-123", Name: "Cardiology", Code: "CARD", Description: "Heart care", IsActive: true},
		{ID: "d2", OrgID: "org-123", Name: "Radiology", Code: "RAD", Description: "Imaging", IsActive: false},
	}
}

// departmentsAPI serves a fixed department list and echoes writes.
func departmentsAPI(rows []model.Department) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/departments/":
			writeJSON(w, http.StatusOK, envelope(map[string]any{
				"departments": rows,
				"total":       len(rows),
			}))
		case r.Method == http.MethodGet:
			for _, d := range rows {
				if r.URL.Path == "/departments/"+d.ID {
					writeJSON(w, http.StatusOK, envelope(d))
					return
				}
			}
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Department not found"})
		case r.Method == http.MethodPost:
			var in map[string]any
			_ = json.NewDecoder(r.Body).Decode(&in)
			in["id"] = "d-new"
			writeJSON(w, http.StatusCreated, envelope(in))
		case r.Method == http.MethodPut:
			writeJSON(w, http.StatusOK, envelope(rows[0]))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func findMsg[M any](msgs []tea.Msg) (M, bool) {
	for _, m := range msgs {
		if typed, ok := m.(M); ok {
			return typed, true
		}
	}
	var zero M
	return zero, false
}
