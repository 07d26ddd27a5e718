// Package web exposes the analysis core over HTTP and WebSocket: a REST
// surface for session lifecycle, an ingest socket for landmark frames, and
// fan-out sockets for metric snapshots, tell/alert events and relayed frames.
package web

import (
	"sync"
	"sync/atomic"

	contribws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/candormetrics/go-candor/internal/log"
	"github.com/candormetrics/go-candor/pkg/hub"
	"github.com/candormetrics/go-candor/pkg/protocol"
	"github.com/candormetrics/go-candor/pkg/session"
)

// sessionStreams bundles the outbound hubs for one session.
type sessionStreams struct {
	metrics *hub.Hub
	events  *hub.Hub
	frames  *hub.Hub
}

func (ss *sessionStreams) stop() {
	ss.metrics.Stop()
	ss.events.Stop()
	ss.frames.Stop()
}

// Server is the HTTP/WebSocket front of the analysis service.
type Server struct {
	app     *fiber.App
	port    string
	manager *session.Manager

	mu      sync.RWMutex
	streams map[string]*sessionStreams

	// Stats
	framesReceived atomic.Uint64
	snapshotsSent  atomic.Uint64
	eventsSent     atomic.Uint64
}

// NewServer creates the server around a session manager.
func NewServer(port string, manager *session.Manager) *Server {
	s := &Server{
		port:    port,
		manager: manager,
		streams: make(map[string]*sessionStreams),
	}

	app := fiber.New(fiber.Config{
		AppName:               "candor-server",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Post("/sessions", s.handleCreateSession)
	api.Get("/sessions/:id", s.handleSessionStatus)
	api.Delete("/sessions/:id", s.handleEndSession)
	api.Post("/sessions/:id/calibrate", s.handleStartCalibration)
	api.Post("/sessions/:id/calibrate/complete", s.handleCompleteCalibration)
	api.Get("/sessions/:id/tells", s.handleTells)

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/ingest/:id", contribws.New(s.handleIngest))
	app.Get("/ws/metrics/:id", websocket.New(s.handleMetricsWS))
	app.Get("/ws/events/:id", websocket.New(s.handleEventsWS))
	app.Get("/ws/frames/:id", websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// Start blocks serving HTTP until shutdown.
func (s *Server) Start() error {
	log.Info("server listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown stops the listener and every session's streams.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	for id, ss := range s.streams {
		ss.stop()
		delete(s.streams, id)
	}
	s.mu.Unlock()

	s.manager.CloseAll()
	return s.app.Shutdown()
}

func (s *Server) closeStreams(id string) {
	s.mu.Lock()
	ss, ok := s.streams[id]
	if ok {
		delete(s.streams, id)
	}
	s.mu.Unlock()
	if ok {
		ss.stop()
	}
}

func (s *Server) getStreams(id string) *sessionStreams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streams[id]
}

// callbacks wires a session's outward channel into its stream hubs.
func (s *Server) callbacks(ss *sessionStreams) session.Callbacks {
	broadcastEvent := func(msgType protocol.MessageType, data interface{}) {
		msg, err := protocol.NewMessage(msgType, data)
		if err != nil {
			log.Error("encode event", "type", msgType, "error", err)
			return
		}
		raw, err := msg.Bytes()
		if err != nil {
			return
		}
		ss.events.Broadcast(hub.NewJSONMessage(raw))
		s.eventsSent.Add(1)
	}

	return session.Callbacks{
		OnSnapshot: func(snap protocol.MetricsSnapshot) {
			msg, err := protocol.NewMetricsMessage(snap)
			if err != nil {
				return
			}
			raw, err := msg.Bytes()
			if err != nil {
				return
			}
			ss.metrics.Broadcast(hub.NewJSONMessage(raw))
			s.snapshotsSent.Add(1)
		},
		OnTell: func(ev protocol.TellEvent) {
			broadcastEvent(protocol.TypeTell, ev)
		},
		OnAlert: func(ev protocol.AlertEvent) {
			broadcastEvent(protocol.TypeAlert, ev)
		},
		OnCalibration: func(p protocol.CalibrationProgress) {
			broadcastEvent(protocol.TypeCalibration, p)
		},
		OnState: func(st protocol.SessionState) {
			broadcastEvent(protocol.TypeSession, st)
		},
	}
}
