package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"walletview/pkg/metrics"
	"walletview/pkg/models"
	"walletview/pkg/watcher"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejection struct{}

func (rejection) Error() string  { return "User rejected the request." }
func (rejection) ErrorCode() int { return 4001 }

type fakeSession struct {
	state      models.ViewState
	connectErr error
	resyncErr  error
	dismissed  bool
	connects   int
}

func (f *fakeSession) Snapshot() models.ViewState { return f.state.Clone() }
func (f *fakeSession) Subscribe() watcher.Subscriber { return make(watcher.Subscriber, 1) }
func (f *fakeSession) Unsubscribe(watcher.Subscriber) {}
func (f *fakeSession) Connect(ctx context.Context) error {
	f.connects++
	if f.connectErr != nil {
		var rej rejection
		if errors.As(f.connectErr, &rej) {
			f.state.Error = true
			f.state.ErrorMessage = rej.Error()
		}
		return f.connectErr
	}
	f.state.Wallet = models.WalletState{Accounts: []string{"0x1111111111111111111111111111111111111111"}}
	return nil
}
func (f *fakeSession) Resync() error { return f.resyncErr }
func (f *fakeSession) DismissError() {
	f.dismissed = true
	f.state.Error = false
	f.state.ErrorMessage = ""
}

func newTestServer(s Session) *Server {
	return NewServer(s, metrics.New("test"), zerolog.Nop())
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHandleStatus(t *testing.T) {
	found := true
	s := newTestServer(&fakeSession{state: models.ViewState{SessionID: "abc", HasProvider: &found}})

	rr := do(t, s, http.MethodGet, "/api/status")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp["session_id"])
	assert.Equal(t, true, resp["has_provider"])
	assert.Contains(t, resp, "wallet")
}

func TestHandleStatus_WrongMethod(t *testing.T) {
	s := newTestServer(&fakeSession{})
	rr := do(t, s, http.MethodPost, "/api/status")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleConnect(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"approved", nil, http.StatusOK, "0x1111111111111111111111111111111111111111"},
		{"not offered", watcher.ErrConnectUnavailable, http.StatusConflict, "connect is not available"},
		{"no provider", watcher.ErrNoProvider, http.StatusConflict, "no wallet provider detected"},
		{"rejected", rejection{}, http.StatusBadGateway, "User rejected the request."},
		{"stopped", watcher.ErrStopped, http.StatusServiceUnavailable, "watcher stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeSession{connectErr: tt.err})
			rr := do(t, s, http.MethodPost, "/api/connect")
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}

func TestPostRoutes_OriginCheck(t *testing.T) {
	tests := []struct {
		name       string
		origin     string
		wantStatus int
		wantCalls  int
	}{
		{"no origin", "", http.StatusOK, 1},
		{"same origin", "http://example.com", http.StatusOK, 1},
		{"same origin different case", "http://EXAMPLE.com", http.StatusOK, 1},
		{"foreign origin", "https://evil.example", http.StatusForbidden, 0},
		{"foreign port", "http://example.com:8080", http.StatusForbidden, 0},
		{"opaque origin", "null", http.StatusForbidden, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &fakeSession{}
			s := newTestServer(sess)
			req := httptest.NewRequest(http.MethodPost, "/api/connect", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalls, sess.connects)
		})
	}
}

func TestHandleDismiss_ForeignOrigin(t *testing.T) {
	sess := &fakeSession{state: models.ViewState{Error: true, ErrorMessage: "boom"}}
	s := newTestServer(sess)

	req := httptest.NewRequest(http.MethodPost, "/api/dismiss", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, sess.dismissed)
}

func TestHandleDismiss(t *testing.T) {
	sess := &fakeSession{state: models.ViewState{Error: true, ErrorMessage: "boom"}}
	s := newTestServer(sess)

	rr := do(t, s, http.MethodPost, "/api/dismiss")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, sess.dismissed)

	var resp models.ViewState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Error)
}

func TestHandleResync(t *testing.T) {
	s := newTestServer(&fakeSession{resyncErr: watcher.ErrNoProvider})
	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/api/resync").Code)

	s = newTestServer(&fakeSession{})
	assert.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/resync").Code)
}

func TestHandleMetrics(t *testing.T) {
	m := metrics.New("test")
	m.RecordConnect("ok")
	s := NewServer(&fakeSession{}, m, zerolog.Nop())

	rr := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "test_connect_attempts_total")
}

func TestHandleWS(t *testing.T) {
	s := newTestServer(&fakeSession{state: models.ViewState{SessionID: "abc"}})
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	// Read initial state
	var msg map[string]interface{}
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, "initial", msg["type"])

	s.broadcast(watcher.Event{Type: watcher.EventConnectFailed, State: models.ViewState{Error: true, ErrorMessage: "nope"}})

	var ev watcher.Event
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, watcher.EventConnectFailed, ev.Type)
	assert.Equal(t, "nope", ev.State.ErrorMessage)
}

func TestHandleWS_ForeignOrigin(t *testing.T) {
	s := newTestServer(&fakeSession{})
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}

	_, resp, err := websocket.DefaultDialer.Dial(u, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
