// Package api exposes the HTTP surface: camera snapshot and preview
// stream, the color endpoints, and the Simon game.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/hwalther/lightson/internal/auth"
	"github.com/hwalther/lightson/internal/camera"
	"github.com/hwalther/lightson/internal/lights"
	"github.com/hwalther/lightson/internal/logger"
	"github.com/hwalther/lightson/internal/simon"
	"github.com/hwalther/lightson/internal/tasks"
)

// Options tunes the camera endpoints
type Options struct {
	// SnapshotQuality is the JPEG quality for /camera/snapshot
	SnapshotQuality int
	// SnapshotMaxWidth bounds snapshot width (0 disables scaling)
	SnapshotMaxWidth int
	// StreamInterval is the frame period of /camera/stream
	StreamInterval time.Duration
}

// Server represents the HTTP API server
type Server struct {
	router   *mux.Router
	frames   *camera.FrameBuffer
	lights   lights.Controller
	game     *simon.Game
	hub      *simon.Hub
	verifier auth.Verifier
	enqueuer tasks.Enqueuer
	upgrader websocket.Upgrader
	opts     Options
}

// NewServer creates a new API server. frames, verifier and enqueuer may
// be nil when the matching subsystem is not configured; the affected
// endpoints degrade per their error contract.
func NewServer(frames *camera.FrameBuffer, ctrl lights.Controller, game *simon.Game, hub *simon.Hub, verifier auth.Verifier, enqueuer tasks.Enqueuer, opts Options) *Server {
	if opts.SnapshotQuality <= 0 {
		opts.SnapshotQuality = camera.DefaultQuality
	}
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = 100 * time.Millisecond
	}

	s := &Server{
		router:   mux.NewRouter(),
		frames:   frames,
		lights:   ctrl,
		game:     game,
		hub:      hub,
		verifier: verifier,
		enqueuer: enqueuer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the game UI is served from anywhere on the LAN
			},
		},
		opts: opts,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/camera/snapshot", s.handleSnapshot).Methods("GET")
	s.router.HandleFunc("/camera/stream", s.handleStream).Methods("GET")

	s.router.HandleFunc("/set-color", s.handleSetColor).Methods("POST")
	s.router.HandleFunc("/enqueue-color", s.handleEnqueueColor).Methods("POST")

	s.router.HandleFunc("/simon/round", s.handleRound).Methods("GET")
	s.router.HandleFunc("/simon/check", s.handleCheck).Methods("POST")
	s.router.HandleFunc("/simon/events", s.handleEvents)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Router returns the configured handler (used by tests)
func (s *Server) Router() http.Handler {
	return s.enableCORS(s.router)
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("Starting server")
	return http.ListenAndServe(addr, s.Router())
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HTTP Handlers

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.frames == nil {
		http.Error(w, "no video source configured", http.StatusServiceUnavailable)
		return
	}

	frame, capturedAt, ok := s.frames.Read()
	if !ok {
		http.Error(w, "no frame captured yet", http.StatusServiceUnavailable)
		return
	}

	data, err := camera.EncodeJPEG(frame, s.opts.SnapshotQuality, s.opts.SnapshotMaxWidth)
	if err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("Snapshot encode failed")
		http.Error(w, "failed to encode frame", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Last-Modified", capturedAt.UTC().Format(http.TimeFormat))
	w.Write(data)
}

// handleStream serves a Motion JPEG preview by polling the frame buffer
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.frames == nil {
		http.Error(w, "no video source configured", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "close")

	flusher, _ := w.(http.Flusher)
	ticker := time.NewTicker(s.opts.StreamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, _, ok := s.frames.Read()
		if !ok {
			continue
		}
		data, err := camera.EncodeJPEG(frame, s.opts.SnapshotQuality, s.opts.SnapshotMaxWidth)
		if err != nil {
			continue
		}

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	if s.verifier != nil {
		if err := s.verifier.VerifyRequest(r.Context(), r); err != nil {
			logger.WithComponent("api").Warn().Err(err).Msg("Rejected /set-color caller")
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
	}

	var req struct {
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	color, err := lights.Parse(req.Color)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.lights.SetColor(r.Context(), color); err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("Light update failed")
		http.Error(w, "light update failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "color": req.Color})
}

func (s *Server) handleEnqueueColor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := lights.Parse(req.Color); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.enqueuer == nil {
		http.Error(w, "task queue not configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.enqueuer.EnqueueColor(r.Context(), req.Color); err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("Enqueue failed")
		http.Error(w, "failed to enqueue color change", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"queued": true})
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	length := s.game.RequestRound()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"length": length})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sequence []string `json:"sequence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	candidate := make([]simon.Color, 0, len(req.Sequence))
	for _, token := range req.Sequence {
		c, err := simon.ParseColor(token)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		candidate = append(candidate, c)
	}

	correct := s.game.CheckSubmission(r.Context(), candidate)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"correct": correct})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "events not available", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	s.hub.Add(conn)
	defer s.hub.Remove(conn)

	// Drain the connection; clients only listen
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}
