package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/internal/transcription"
)

// Hub maintains the set of live transcription sessions
type Hub struct {
	// Registered sessions.
	sessions map[*transcription.Session]struct{}

	// Register requests from the handlers.
	register chan *transcription.Session

	// Unregister requests from the handlers.
	unregister chan *transcription.Session

	// Closed when Run returns.
	stopped chan struct{}

	// Mutex for thread-safe access to sessions map
	mu sync.RWMutex

	logger *zap.Logger
}

// NewHub creates a new hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessions:   make(map[*transcription.Session]struct{}),
		register:   make(chan *transcription.Session),
		unregister: make(chan *transcription.Session),
		stopped:    make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("Session registered", zap.String("sessionID", s.ID()))

		case s := <-h.unregister:
			h.mu.Lock()
			delete(h.sessions, s)
			h.mu.Unlock()
			h.logger.Debug("Session unregistered", zap.String("sessionID", s.ID()))

		case <-ctx.Done():
			return
		}
	}
}

// Register adds a session. It is a no-op once the hub stopped.
func (h *Hub) Register(s *transcription.Session) {
	select {
	case h.register <- s:
	case <-h.stopped:
	}
}

// Unregister removes a session. It is a no-op once the hub stopped.
func (h *Hub) Unregister(s *transcription.Session) {
	select {
	case h.unregister <- s:
	case <-h.stopped:
	}
}

// ActiveSessions returns the number of registered sessions
func (h *Hub) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll closes every registered session and waits for them to finish
func (h *Hub) CloseAll() {
	h.mu.RLock()
	sessions := make([]*transcription.Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	if len(sessions) == 0 {
		return
	}
	h.logger.Info("Closing active sessions", zap.Int("count", len(sessions)))

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *transcription.Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
}
