package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"markestedt/layoutfix/config"
	"markestedt/layoutfix/storage"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return isLoopbackOrigin(r)
	},
}

// Status is the agent state shown on the dashboard
type Status struct {
	Enabled           bool   `json:"enabled"`
	Hotkey            string `json:"hotkey"`
	Registered        bool   `json:"registered"`
	RegistrationError string `json:"registration_error,omitempty"`
	SessionState      string `json:"session_state"`
	SessionBinding    string `json:"session_binding,omitempty"`
	Busy              bool   `json:"busy"`
	Handled           uint64 `json:"handled"`
	Dropped           uint64 `json:"dropped"`
	OverlapPolicy     string `json:"overlap_policy"`
	HistoryEnabled    bool   `json:"history_enabled"`
}

// Controller is the part of the agent the dashboard drives.
type Controller interface {
	Status() Status
	SetEnabled(enabled bool)
	Config() *config.Config
}

// Server represents the web server
type Server struct {
	db   *storage.DB
	ctrl Controller
	hub  *Hub

	mu   sync.Mutex
	http *http.Server
}

// NewServer creates a new web server. db may be nil when history is
// disabled.
func NewServer(db *storage.DB, ctrl Controller) *Server {
	hub := NewHub()
	go hub.Run()

	return &Server{
		db:   db,
		ctrl: ctrl,
		hub:  hub,
	}
}

// Handler returns the dashboard mux.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/enabled", s.handleEnabled)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/", s.handleHistory)
	mux.HandleFunc("/ws", s.handleWebSocket)

	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to load static files: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	return recoverMiddleware(guardMutations(mux)), nil
}

// Start serves the dashboard on localhost:port until Close is called.
func (s *Server) Start(port int) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	slog.Info("Starting web server", "port", port, "url", fmt.Sprintf("http://localhost:%d", port))

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts the HTTP server down and disconnects websocket clients.
func (s *Server) Close(ctx context.Context) error {
	s.hub.Stop()

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// BroadcastStatus pushes the current agent status to every client
func (s *Server) BroadcastStatus() {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeStatus,
		Data: s.ctrl.Status(),
	})
}

// BroadcastResult pushes a finished invocation to every client
func (s *Server) BroadcastResult(c *storage.Conversion) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeResult,
		Data: c,
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
		addr: r.RemoteAddr,
	}

	if !s.hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic in web handler", "path", r.URL.Path, "panic", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// guardMutations keeps other sites from driving the dashboard API. A
// state-changing request must come from a loopback page, and a POST must
// carry JSON, which a cross-site form or simple fetch cannot send without
// a preflight.
func guardMutations(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if !isLoopbackOrigin(r) {
			slog.Warn("Rejected cross-origin request", "method", r.Method, "path", r.URL.Path, "origin", r.Header.Get("Origin"))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// isLoopbackOrigin accepts requests without an Origin header and pages
// served from a loopback host.
func isLoopbackOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
