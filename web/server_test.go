package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/layoutfix/config"
	"markestedt/layoutfix/layout"
	"markestedt/layoutfix/orchestrator"
	"markestedt/layoutfix/storage"
)

type fakeController struct {
	enabled atomic.Bool
	cfg     *config.Config

	// onChange stands in for the agent publishing its status.
	onChange func()
}

func newFakeController() *fakeController {
	c := &fakeController{cfg: config.Defaults()}
	c.enabled.Store(true)
	return c
}

func (c *fakeController) Status() Status {
	return Status{
		Enabled:       c.enabled.Load(),
		Hotkey:        c.cfg.Binding().String(),
		Registered:    true,
		SessionState:  "registered",
		OverlapPolicy: "drop",
	}
}

func (c *fakeController) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *fakeController) Config() *config.Config { return c.cfg }

type harness struct {
	srv  *Server
	db   *storage.DB
	ctrl *fakeController
	http *httptest.Server
}

func newHarness(t *testing.T, withDB bool) *harness {
	t.Helper()
	h := &harness{ctrl: newFakeController()}
	if withDB {
		db, err := storage.Open(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		h.db = db
	}
	h.srv = NewServer(h.db, h.ctrl)
	h.ctrl.onChange = h.srv.BroadcastStatus
	handler, err := h.srv.Handler()
	require.NoError(t, err)
	h.http = httptest.NewServer(handler)
	t.Cleanup(func() {
		h.http.Close()
		h.srv.Close(context.Background())
	})
	return h
}

// do sends a same-origin request; POST and PUT carry a JSON content type
// the way the dashboard sends them.
func (h *harness) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	header := http.Header{}
	if method == http.MethodPost || method == http.MethodPut {
		header.Set("Content-Type", "application/json")
	}
	return h.doWith(t, method, path, body, header)
}

func (h *harness) doWith(t *testing.T, method, path, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header = header
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode(t *testing.T, res *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func saved(t *testing.T, db *storage.DB, outcome orchestrator.Outcome) *storage.Conversion {
	t.Helper()
	c := storage.NewConversion(orchestrator.Result{
		ID:            string(outcome),
		Outcome:       outcome,
		Mode:          layout.ToggleAll,
		CapturedChars: 4,
		Captured:      "akuo",
		Converted:     "שלום",
	}, true)
	require.NoError(t, db.SaveConversion(c))
	return c
}

func TestStatus(t *testing.T) {
	h := newHarness(t, false)

	res := h.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var st Status
	decode(t, res, &st)
	assert.True(t, st.Enabled)
	assert.Equal(t, "Ctrl+Q", st.Hotkey)

	res = h.do(t, http.MethodPost, "/api/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestEnabledToggle(t *testing.T) {
	h := newHarness(t, false)

	res := h.do(t, http.MethodPost, "/api/enabled", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.False(t, h.ctrl.enabled.Load())

	var body map[string]bool
	decode(t, h.do(t, http.MethodGet, "/api/enabled", ""), &body)
	assert.False(t, body["enabled"])

	res = h.do(t, http.MethodPost, "/api/enabled", `{}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res = h.do(t, http.MethodPost, "/api/enabled", `not json`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.False(t, h.ctrl.enabled.Load())
}

func TestConfigIsReadOnly(t *testing.T) {
	h := newHarness(t, false)

	var view map[string]any
	decode(t, h.do(t, http.MethodGet, "/api/config", ""), &view)
	assert.Equal(t, "Ctrl+Q", view["hotkey"])
	assert.Equal(t, "toggle_all", view["mode"])
	assert.Equal(t, true, view["replaceCaps"])

	res := h.do(t, http.MethodPut, "/api/config", `{"hotkey":"ctrl+x"}`)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestHistoryDisabled(t *testing.T) {
	h := newHarness(t, false)

	assert.Equal(t, http.StatusServiceUnavailable, h.do(t, http.MethodGet, "/api/history", "").StatusCode)
	assert.Equal(t, http.StatusServiceUnavailable, h.do(t, http.MethodGet, "/api/stats", "").StatusCode)
}

func TestHistory(t *testing.T) {
	h := newHarness(t, true)
	first := saved(t, h.db, orchestrator.OutcomeConverted)
	saved(t, h.db, orchestrator.OutcomeNoText)

	var page struct {
		Conversions []storage.Conversion `json:"conversions"`
		Total       int                  `json:"total"`
		Limit       int                  `json:"limit"`
	}
	decode(t, h.do(t, http.MethodGet, "/api/history?limit=1", ""), &page)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Limit)
	require.Len(t, page.Conversions, 1)

	res := h.do(t, http.MethodDelete, "/api/history/abc", "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = h.do(t, http.MethodDelete, "/api/history/"+strconv.FormatInt(first.ID, 10), "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res = h.do(t, http.MethodDelete, "/api/history/"+strconv.FormatInt(first.ID, 10), "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = h.do(t, http.MethodDelete, "/api/history", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	count, err := h.db.GetConversionCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStats(t *testing.T) {
	h := newHarness(t, true)
	saved(t, h.db, orchestrator.OutcomeConverted)
	saved(t, h.db, orchestrator.OutcomeFailed)

	var body struct {
		Days     int                    `json:"days"`
		Overall  storage.OverallStats   `json:"overall"`
		Outcomes []storage.OutcomeStats `json:"outcomes"`
	}
	decode(t, h.do(t, http.MethodGet, "/api/stats?days=abc", ""), &body)
	assert.Equal(t, 7, body.Days)
	assert.Equal(t, 2, body.Overall.Total)
	assert.Equal(t, 1, body.Overall.Converted)
	assert.Len(t, body.Outcomes, 2)

	today := time.Now().UTC().Format(time.DateOnly)
	var ranged struct {
		Overall storage.OverallStats `json:"overall"`
	}
	decode(t, h.do(t, http.MethodGet, "/api/stats?from="+today+"&to="+today, ""), &ranged)
	assert.Equal(t, 2, ranged.Overall.Total)

	res := h.do(t, http.MethodGet, "/api/stats?from=2024-02-02&to=2024-01-01", "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestStaticIndex(t *testing.T) {
	h := newHarness(t, false)

	res := h.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")
}

func TestWebSocketReceivesResults(t *testing.T) {
	h := newHarness(t, false)

	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.srv.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.srv.BroadcastResult(&storage.Conversion{InvocationID: "abc", Outcome: "converted"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type MessageType        `json:"type"`
		Data storage.Conversion `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeResult, msg.Type)
	assert.Equal(t, "abc", msg.Data.InvocationID)

	// Toggling over HTTP pushes the new status.
	h.do(t, http.MethodPost, "/api/enabled", `{"enabled": false}`)
	var status struct {
		Type MessageType `json:"type"`
		Data Status      `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, MessageTypeStatus, status.Type)
	assert.False(t, status.Data.Enabled)

	// The controller publishes the change; the handler adds nothing.
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "one toggle produced a second status message")
}

func TestMutationsRequireLoopbackJSON(t *testing.T) {
	h := newHarness(t, true)
	saved(t, h.db, orchestrator.OutcomeConverted)

	// A page on another site posting a simple request.
	res := h.doWith(t, http.MethodPost, "/api/enabled", `{"enabled":false}`, http.Header{
		"Origin":       {"https://evil.example"},
		"Content-Type": {"text/plain"},
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.True(t, h.ctrl.enabled.Load())

	res = h.doWith(t, http.MethodPost, "/api/enabled", `{"enabled":false}`, http.Header{
		"Origin":       {"https://evil.example"},
		"Content-Type": {"application/json"},
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.True(t, h.ctrl.enabled.Load())

	res = h.doWith(t, http.MethodPost, "/api/enabled", `{"enabled":false}`, http.Header{
		"Content-Type": {"text/plain"},
	})
	assert.Equal(t, http.StatusUnsupportedMediaType, res.StatusCode)
	assert.True(t, h.ctrl.enabled.Load())

	res = h.doWith(t, http.MethodDelete, "/api/history", "", http.Header{
		"Origin": {"https://evil.example"},
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	count, err := h.db.GetConversionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The dashboard itself still works.
	res = h.doWith(t, http.MethodPost, "/api/enabled", `{"enabled":false}`, http.Header{
		"Origin":       {h.http.URL},
		"Content-Type": {"application/json; charset=utf-8"},
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.False(t, h.ctrl.enabled.Load())

	res = h.doWith(t, http.MethodDelete, "/api/history", "", http.Header{"Origin": {h.http.URL}})
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// Reads are not guarded.
	res = h.doWith(t, http.MethodGet, "/api/status", "", http.Header{"Origin": {"https://evil.example"}})
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	h := newHarness(t, false)

	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws"
	_, res, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestIsLoopbackOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:8923", true},
		{"http://127.0.0.1:8923", true},
		{"http://[::1]:8923", true},
		{"http://192.168.1.10:8923", false},
		{"https://example.com", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, isLoopbackOrigin(r), tt.origin)
	}
}

func TestHubStopDisconnectsClients(t *testing.T) {
	h := newHarness(t, false)

	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.srv.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.srv.hub.Stop()
	assert.Eventually(t, func() bool { return h.srv.hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	// Broadcasting after Stop must not block.
	h.srv.BroadcastStatus()
}
