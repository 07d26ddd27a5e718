package web

import (
	"fmt"
	"time"

	contribws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/candormetrics/go-candor/internal/log"
	"github.com/candormetrics/go-candor/pkg/hub"
	"github.com/candormetrics/go-candor/pkg/protocol"
	"github.com/candormetrics/go-candor/pkg/session"
)

// =============================================================================
// REST Handlers
// =============================================================================

// handleCreateSession opens a new analysis session and its stream hubs.
func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	// The hubs must exist before the session so callbacks never race a
	// missing stream.
	ss := &sessionStreams{}
	sess := s.manager.Start(session.WithCallbacks(s.callbacks(ss)))

	ss.metrics = hub.New(fmt.Sprintf("metrics/%s", sess.ID))
	ss.events = hub.New(fmt.Sprintf("events/%s", sess.ID))
	ss.frames = hub.New(fmt.Sprintf("frames/%s", sess.ID))
	go ss.metrics.Run()
	go ss.events.Run()
	go ss.frames.Run()

	s.mu.Lock()
	s.streams[sess.ID] = ss
	s.mu.Unlock()

	log.Info("session created", "session_id", sess.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": sess.ID,
		"state":      string(sess.State()),
	})
}

// handleSessionStatus reports state, baseline and the latest snapshot.
func (s *Server) handleSessionStatus(c *fiber.Ctx) error {
	sess, err := s.manager.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	return c.JSON(fiber.Map{
		"session_id": sess.ID,
		"state":      string(sess.State()),
		"baseline":   sess.Baseline(),
		"snapshot":   sess.Snapshot(),
	})
}

// handleEndSession tears down the session and its streams.
func (s *Server) handleEndSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.manager.End(id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	s.closeStreams(id)

	log.Info("session ended", "session_id", id)
	return c.JSON(fiber.Map{"session_id": id, "state": string(session.StateEnded)})
}

// handleStartCalibration begins baseline collection.
func (s *Server) handleStartCalibration(c *fiber.Ctx) error {
	sess, err := s.manager.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	sess.StartCalibration()
	return c.JSON(fiber.Map{"session_id": sess.ID, "calibrating": true})
}

// handleCompleteCalibration forces calibration to finish early.
func (s *Server) handleCompleteCalibration(c *fiber.Ctx) error {
	sess, err := s.manager.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	sess.CompleteCalibration()
	return c.JSON(fiber.Map{"session_id": sess.ID, "completing": true})
}

// handleTells returns the session's live tell list.
func (s *Server) handleTells(c *fiber.Ctx) error {
	sess, err := s.manager.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	return c.JSON(fiber.Map{
		"session_id": sess.ID,
		"tells":      sess.Tells(),
	})
}

// handleHealth is the liveness endpoint.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"sessions": s.manager.Count(),
		"time":     time.Now().Format(time.RFC3339),
	})
}

// handleMetrics exposes simple operational counters as plain text.
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	s.mu.RLock()
	var metricsClients, eventClients, frameClients int
	for _, ss := range s.streams {
		metricsClients += ss.metrics.ClientCount()
		eventClients += ss.events.ClientCount()
		frameClients += ss.frames.ClientCount()
	}
	s.mu.RUnlock()

	metrics := fmt.Sprintf(`# candor-server metrics
sessions_active %d
frames_received %d
snapshots_sent %d
events_sent %d
metrics_clients %d
event_clients %d
frame_clients %d
`,
		s.manager.Count(),
		s.framesReceived.Load(),
		s.snapshotsSent.Load(),
		s.eventsSent.Load(),
		metricsClients,
		eventClients,
		frameClients,
	)

	c.Set("Content-Type", "text/plain")
	return c.SendString(metrics)
}

// =============================================================================
// WebSocket Handlers
// =============================================================================

// handleIngest receives landmark frames from the upstream inference oracle
// and feeds them into the session pipeline.
func (s *Server) handleIngest(c *contribws.Conn) {
	sessionID := c.Params("id")
	sess, err := s.manager.Get(sessionID)
	if err != nil {
		log.Warn("ingest for unknown session", "session_id", sessionID)
		c.WriteMessage(contribws.CloseMessage,
			contribws.FormatCloseMessage(contribws.ClosePolicyViolation, "unknown session"))
		c.Close()
		return
	}

	ss := s.getStreams(sessionID)

	log.Info("ingest connected", "session_id", sessionID, "remote", c.RemoteAddr().String())
	defer func() {
		log.Info("ingest disconnected", "session_id", sessionID)
		c.Close()
	}()

	for {
		msgType, data, err := c.ReadMessage()
		if err != nil {
			if contribws.IsUnexpectedCloseError(err, contribws.CloseGoingAway, contribws.CloseNormalClosure) {
				log.Warn("ingest read error", "session_id", sessionID, "error", err)
			}
			return
		}
		if msgType != contribws.TextMessage {
			continue
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Warn("ingest parse error", "session_id", sessionID, "error", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeFrame:
			frame, err := msg.GetFrameData()
			if err != nil {
				log.Warn("bad frame payload", "session_id", sessionID, "error", err)
				continue
			}
			jpeg, err := frame.DecodeJpeg()
			if err != nil {
				log.Warn("bad frame jpeg", "session_id", sessionID, "error", err)
				jpeg = nil
			}
			sess.Feed(frame.Frame, jpeg)
			s.framesReceived.Add(1)
			if ss != nil {
				// Relay the frame as received so viewers see what the
				// pipeline saw.
				ss.frames.Broadcast(hub.NewJSONMessage(data))
			}

		case protocol.TypePing:
			ping, err := msg.GetPingData()
			if err != nil {
				continue
			}
			pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
			if err != nil {
				continue
			}
			raw, err := pong.Bytes()
			if err != nil {
				continue
			}
			c.WriteMessage(contribws.TextMessage, raw)

		default:
			log.Debug("ignoring ingest message", "type", msg.Type)
		}
	}
}

// handleMetricsWS attaches a client to the session's metrics stream.
func (s *Server) handleMetricsWS(c *websocket.Conn) {
	s.serveStream(c, c.Params("id"), func(ss *sessionStreams) *hub.Hub {
		return ss.metrics
	})
}

// handleEventsWS attaches a client to the session's tell/alert stream.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	s.serveStream(c, c.Params("id"), func(ss *sessionStreams) *hub.Hub {
		return ss.events
	})
}

// handleFramesWS attaches a client to the relayed frame stream.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	s.serveStream(c, c.Params("id"), func(ss *sessionStreams) *hub.Hub {
		return ss.frames
	})
}

func (s *Server) serveStream(c *websocket.Conn, sessionID string, pick func(*sessionStreams) *hub.Hub) {
	ss := s.getStreams(sessionID)
	if ss == nil {
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown session"))
		c.Close()
		return
	}

	client := hub.NewClient(pick(ss), c)
	client.Run()
}
