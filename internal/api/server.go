// Package api serves the browser overlay: a status page, a JSON status
// endpoint and a WebSocket feed that pushes every refresh.
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"pedalkeys/internal/network"
	"pedalkeys/internal/overlay"

	log "github.com/sirupsen/logrus"
)

//go:embed overlay.html
var overlayPage []byte

// Server provides the status HTTP API. It is an overlay.Sink: every
// Publish is pushed to connected WebSocket clients.
type Server struct {
	board   *overlay.Board
	version string
	wsMgr   *WSManager
}

// NewServer creates a server reading from board
func NewServer(board *overlay.Board, version string) *Server {
	s := &Server{
		board:   board,
		version: version,
	}
	s.wsMgr = newWSManager(s)
	return s
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return s.logMiddleware(s.recoverMiddleware(mux))
}

// Run serves on port until ctx is cancelled. The WebSocket manager runs
// for as long as Run does.
func (s *Server) Run(ctx context.Context, port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return fmt.Errorf("api listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.wsMgr.start(ctx)

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	})
	defer stop()

	if port := ln.Addr().(*net.TCPAddr).Port; port != 0 {
		for _, u := range network.OverlayURLs(port) {
			log.Infof("API: Overlay available at %s", u)
		}
	}

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("API: Server stopped: %v", err)
		return err
	}
	return nil
}

func (s *Server) Name() string { return "ws" }

// Publish broadcasts st to every WebSocket client
func (s *Server) Publish(st overlay.Status) error {
	return s.wsMgr.BroadcastStatus(st)
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorf("API: Recovered panic on %s: %v", r.URL.Path, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("API: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// handleIndex serves the overlay page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(overlayPage)
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.board.Get().Payload())
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}
