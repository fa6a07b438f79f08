package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"walletview/pkg/metrics"
	"walletview/pkg/models"
	"walletview/pkg/provider"
	"walletview/pkg/watcher"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// the default CheckOrigin refuses upgrades whose Origin host differs from Host
var upgrader = websocket.Upgrader{}

// Session is the connection view controller served over HTTP.
// *watcher.Watcher implements it.
type Session interface {
	Snapshot() models.ViewState
	Subscribe() watcher.Subscriber
	Unsubscribe(watcher.Subscriber)
	Connect(ctx context.Context) error
	Resync() error
	DismissError()
}

type Server struct {
	session Session
	metrics *metrics.Metrics
	logger  zerolog.Logger
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	mux     *http.ServeMux
}

func NewServer(s Session, m *metrics.Metrics, logger zerolog.Logger) *Server {
	srv := &Server{
		session: s,
		metrics: m,
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
		mux:     http.NewServeMux(),
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.Handle("POST /api/connect", sameOrigin(s.handleConnect))
	s.mux.Handle("POST /api/dismiss", sameOrigin(s.handleDismiss))
	s.mux.Handle("POST /api/resync", sameOrigin(s.handleResync))
	s.mux.HandleFunc("/ws", s.handleWS)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler exposes the routes, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on host:port until ctx is done.
func (s *Server) Start(ctx context.Context, host string, port int) error {
	go s.listenToWatcher(ctx)

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", addr).Msg("API server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sameOrigin rejects browser requests sent from another origin. Requests
// without an Origin header (curl, scripts) pass through.
func sameOrigin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next(w, r)
			return
		}
		u, err := url.Parse(origin)
		if err != nil || !strings.EqualFold(u.Host, r.Host) {
			writeError(w, http.StatusForbidden, "cross-origin request refused")
			return
		}
		next(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	err := s.session.Connect(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.session.Snapshot())
	case errors.Is(err, watcher.ErrConnectUnavailable), errors.Is(err, watcher.ErrNoProvider):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, watcher.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		msg := s.session.Snapshot().ErrorMessage
		if msg == "" {
			msg = provider.ErrorMessage(err)
		}
		writeError(w, http.StatusBadGateway, msg)
	}
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.session.DismissError()
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Resync(); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, watcher.ErrNoProvider) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, s.session.Snapshot())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	s.mu.Lock()
	s.clients[conn] = true
	// Send initial state
	err = conn.WriteJSON(map[string]interface{}{
		"type": "initial",
		"data": s.session.Snapshot(),
	})
	s.mu.Unlock()
	if err != nil {
		s.removeClient(conn)
		return
	}
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, conn)
}

func (s *Server) listenToWatcher(ctx context.Context) {
	sub := s.session.Subscribe()
	defer s.session.Unsubscribe(sub)

	for {
		select {
		case event, ok := <-sub:
			if !ok {
				return
			}
			s.broadcast(event)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) broadcast(event watcher.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		if err := client.WriteJSON(event); err != nil {
			_ = client.Close()
			delete(s.clients, client)
		}
	}
}
