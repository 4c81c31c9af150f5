// Package statusserver serves an optional HTTP+WebSocket status endpoint
// for a running dedup or merge job: connected clients receive a JSON
// snapshot on connect and a push on every band/merge-band completion.
// Built on fiber + gofiber/websocket with a rate-limited broadcast channel,
// the same shape as a fuzzing tool's live stats dashboard retargeted here
// to band/merge progress instead of request/response/anomaly counts.
package statusserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"

	"github.com/corpusdedup/doubri/internal/progress"
)

// Snapshot is the JSON status payload pushed to connected clients.
type Snapshot struct {
	RunID          string  `json:"runId"`
	Kind           string  `json:"kind"`
	Basename       string  `json:"basename"`
	Running        bool    `json:"running"`
	Band           int     `json:"band"`
	TotalBands     int     `json:"totalBands"`
	NumItems       uint64  `json:"numItems"`
	NumActiveAfter uint64  `json:"numActiveAfter"`
	NumDetected    uint64  `json:"numDetected"`
	DetectionRatio float64 `json:"detectionRatio"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	Err            string  `json:"error,omitempty"`
}

// Server is an HTTP+WebSocket status endpoint for one dedup/merge run.
type Server struct {
	app *fiber.App

	mu       sync.RWMutex
	snapshot Snapshot
	start    time.Time

	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan []byte
	limiter   *rate.Limiter
}

// New returns a Server for a run identified by runID (kind is "dedup" or
// "merge"). Broadcasts are rate-limited to at most broadcastsPerSecond
// pushes/second so a tight band loop cannot overwhelm slow websocket
// clients; a non-positive value disables the cap.
func New(runID, kind, basename string, totalBands int, broadcastsPerSecond float64) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	s := &Server{
		app: app,
		snapshot: Snapshot{
			RunID:      runID,
			Kind:       kind,
			Basename:   basename,
			Running:    true,
			TotalBands: totalBands,
		},
		start:     time.Now(),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 100),
	}
	if broadcastsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(broadcastsPerSecond), 1)
	}

	s.setupRoutes()
	go s.pump()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(cors.New())

	api := s.app.Group("/api")
	api.Get("/status", s.handleStatus)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleWebSocket))

	s.app.Get("/", s.handleDashboard)
	s.app.Get("/dashboard.js", s.handleDashboardJS)
	s.app.Get("/dashboard.css", s.handleDashboardCSS)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(s.snapshot)
}

func (s *Server) handleWebSocket(c *websocket.Conn) {
	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()
		c.Close()
	}()

	s.mu.RLock()
	data, _ := json.Marshal(s.snapshot)
	s.mu.RUnlock()
	c.WriteMessage(websocket.TextMessage, data)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) pump() {
	for msg := range s.broadcast {
		s.clientsMu.Lock()
		for client := range s.clients {
			if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
				client.Close()
				delete(s.clients, client)
			}
		}
		s.clientsMu.Unlock()
	}
}

// Publish updates the current snapshot from one band's outcome and pushes
// it to every connected client, subject to the broadcast rate limit.
func (s *Server) Publish(ev progress.BandEvent) {
	s.mu.Lock()
	s.snapshot.Band = ev.Band
	s.snapshot.TotalBands = ev.TotalBands
	s.snapshot.NumItems = ev.NumItems
	s.snapshot.NumActiveAfter = ev.NumActiveAfter
	s.snapshot.NumDetected = ev.NumDetected
	s.snapshot.DetectionRatio = ev.DetectionRatio
	s.snapshot.ElapsedSeconds = time.Since(s.start).Seconds()
	data, _ := json.Marshal(s.snapshot)
	s.mu.Unlock()

	if s.limiter != nil && !s.limiter.Allow() {
		return
	}
	select {
	case s.broadcast <- data:
	default:
	}
}

// Finish marks the run complete (or failed) and pushes a final snapshot
// without consulting the rate limit. Like Publish, it drops the push if
// the broadcast buffer is full; /api/status still reports the terminal
// state.
func (s *Server) Finish(err error) {
	s.mu.Lock()
	s.snapshot.Running = false
	if err != nil {
		s.snapshot.Err = err.Error()
	}
	s.snapshot.ElapsedSeconds = time.Since(s.start).Seconds()
	data, _ := json.Marshal(s.snapshot)
	s.mu.Unlock()

	select {
	case s.broadcast <- data:
	default:
	}
}

// Listen starts serving addr (e.g. ":8088"). It blocks until the server is
// shut down or fails.
func (s *Server) Listen(addr string, logger *slog.Logger) error {
	logger.Info("status server listening", "addr", fmt.Sprintf("http://localhost%s", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the server, closing any open websocket connections.
func (s *Server) Shutdown() error {
	close(s.broadcast)
	return s.app.Shutdown()
}
