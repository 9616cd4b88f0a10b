package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/internal/transcription"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler serves the transcription websocket
type Handler struct {
	hub     *Hub
	manager *transcription.Manager
	logger  *zap.Logger
}

// NewHandler creates a websocket handler
func NewHandler(hub *Hub, manager *transcription.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		hub:     hub,
		manager: manager,
		logger:  logger,
	}
}

// HandleTranscribe upgrades the request and runs one transcription session until
// the client disconnects or the session closes.
func (h *Handler) HandleTranscribe(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The first frame is the handshake. Clients that skip it and start with
	// audio get a generated session id.
	messageType, first, err := conn.ReadMessage()
	if err != nil {
		h.logReadError(err)
		return nil
	}

	var handshake transcription.Handshake
	var pendingAudio []byte
	switch messageType {
	case websocket.TextMessage:
		if err := json.Unmarshal(first, &handshake); err != nil {
			h.logger.Warn("Ignoring malformed handshake", zap.Error(err))
		}
	case websocket.BinaryMessage:
		pendingAudio = first
	}

	client := newClient(conn)
	session, err := h.manager.Open(c.Request().Context(), handshake, client)
	if err != nil {
		h.logger.Error("Failed to open transcription session", zap.Error(err))
		client.close("session could not be opened")
		return nil
	}

	h.hub.Register(session)
	defer h.hub.Unregister(session)

	if pendingAudio != nil {
		session.IngestAudio(pendingAudio)
	}

	watchDone := make(chan struct{})
	go h.watch(session, client, watchDone)

	h.readLoop(conn, session)

	session.Close()
	<-watchDone
	return nil
}

// readLoop routes inbound frames to the session until the connection fails
func (h *Handler) readLoop(conn *websocket.Conn, session *transcription.Session) {
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-session.Done():
			default:
				h.logReadError(err)
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			session.IngestControl(message)
		case websocket.BinaryMessage:
			session.IngestAudio(message)
		default:
			h.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// watch keeps the connection alive with pings and terminates it once the session closed
func (h *Handler) watch(session *transcription.Session, client *Client, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := client.ping(); err != nil {
				h.logger.Debug("Failed to ping client", zap.String("sessionID", session.ID()), zap.Error(err))
			}
		case <-session.Done():
			client.close("session closed")
			return
		}
	}
}

func (h *Handler) logReadError(err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
		h.logger.Warn("WebSocket read error", zap.Error(err))
	}
}
