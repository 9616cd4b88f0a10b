package transcription

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
	"github.com/GPS-Demos/suny-ther-assist/internal/metrics"
)

const (
	defaultPollInterval    = 100 * time.Millisecond
	defaultShutdownTimeout = 2 * time.Second
)

// DefaultReadyConfig returns the audio parameters announced to clients
func DefaultReadyConfig() ReadyConfig {
	return ReadyConfig{
		SampleRate:      48000,
		Encoding:        "WEBM_OPUS",
		ChunkDurationMs: 100,
		Features:        ReadyFeatures{InterimResults: true},
	}
}

// ManagerConfig configures every session opened by a Manager
type ManagerConfig struct {
	Recognition repositories.RecognitionConfig
	Ready       ReadyConfig
	// QueueMaxDepth bounds the audio queue, zero means unbounded
	QueueMaxDepth   int
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
}

// Manager opens transcription sessions against one recognizer
type Manager struct {
	recognizer repositories.SpeechRecognizer
	config     ManagerConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewManager creates a session manager
func NewManager(recognizer repositories.SpeechRecognizer, config ManagerConfig, logger *zap.Logger, m *metrics.Metrics) *Manager {
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}
	if config.Ready == (ReadyConfig{}) {
		config.Ready = DefaultReadyConfig()
	}
	return &Manager{
		recognizer: recognizer,
		config:     config,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// Session owns one transcription session from handshake to teardown
type Session struct {
	mu     sync.Mutex
	entity *entities.Session

	sendMu     sync.Mutex
	sendClosed bool
	sender     Sender

	audio   *AudioQueue
	results *Queue[entities.TranscriptEvent]

	logger          *zap.Logger
	metrics         *metrics.Metrics
	shutdownTimeout time.Duration
	now             func() time.Time

	cancelDriver context.CancelFunc
	cancelRelay  context.CancelFunc
	driverDone   chan struct{}
	relayDone    chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

// Open starts a session: it resolves the session id, sends the ready message
// and starts the recognition driver and the result relay.
func (m *Manager) Open(ctx context.Context, hs Handshake, sender Sender) (*Session, error) {
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := m.resolveSessionID(hs.SessionID)
	logger := m.logger.With(zap.String("sessionID", id))

	s := &Session{
		entity:          entities.NewSession(id),
		sender:          sender,
		audio:           NewAudioQueue(m.config.QueueMaxDepth, logger, m.metrics),
		results:         NewQueue[entities.TranscriptEvent](0),
		logger:          logger,
		metrics:         m.metrics,
		shutdownTimeout: m.config.ShutdownTimeout,
		now:             m.now,
		driverDone:      make(chan struct{}),
		relayDone:       make(chan struct{}),
		done:            make(chan struct{}),
	}
	s.entity.CreatedAt = m.now()
	if err := s.entity.Transition(entities.SessionStateActive); err != nil {
		return nil, err
	}

	d := &driver{
		recognizer:   m.recognizer,
		config:       m.config.Recognition,
		audio:        s.audio,
		results:      s.results,
		pollInterval: m.config.PollInterval,
		logger:       logger.With(zap.String("component", "driver")),
		metrics:      m.metrics,
		now:          m.now,
	}
	r := &relay{
		send:         s.send,
		results:      s.results,
		logger:       logger.With(zap.String("component", "relay")),
		onError:      s.fail,
		onWriteError: s.writeFailed,
	}

	driverCtx, cancelDriver := context.WithCancel(ctx)
	relayCtx, cancelRelay := context.WithCancel(ctx)
	s.cancelDriver = cancelDriver
	s.cancelRelay = cancelRelay

	m.metrics.SessionsTotal.Inc()
	m.metrics.SessionsActive.Inc()
	logger.Info("Session opened")

	go func() {
		defer close(s.relayDone)
		r.run(relayCtx, NewReadyMessage(id, m.config.Ready, m.now()))
	}()
	go func() {
		defer close(s.driverDone)
		if err := d.run(driverCtx); err == nil {
			s.providerFinished()
		}
	}()

	return s, nil
}

func (m *Manager) resolveSessionID(requested string) string {
	if requested == "" {
		return entities.GenerateSessionID(m.now())
	}
	if err := entities.ValidateSessionID(requested); err != nil {
		id := entities.GenerateSessionID(m.now())
		m.logger.Warn("Rejected client session id, using generated id",
			zap.String("requested", requested),
			zap.String("sessionID", id),
			zap.Error(err))
		return id
	}
	return requested
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.entity.ID
}

// State returns the current lifecycle state
func (s *Session) State() entities.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entity.State
}

// Done is closed once the session reached CLOSED and released its resources
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// IngestAudio queues one chunk of client audio and reports whether it was accepted
func (s *Session) IngestAudio(data []byte) bool {
	if s.State() != entities.SessionStateActive {
		return false
	}
	s.metrics.AudioChunksReceived.Inc()
	s.metrics.AudioBytesReceived.Add(float64(len(data)))
	return s.audio.Push(entities.AudioChunk{Data: data, ReceivedAt: s.now()})
}

// IngestControl handles a JSON text frame. Unknown or malformed messages are logged and ignored.
func (s *Session) IngestControl(raw []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Warn("Ignoring malformed control message", zap.Error(err))
		return
	}

	switch msg.Type {
	case MessageTypeStop:
		s.logger.Info("Stop requested by client")
		s.Close()
	case MessageTypeAudio:
		data, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			s.logger.Warn("Ignoring audio message with invalid base64 data", zap.Error(err))
			return
		}
		s.IngestAudio(data)
	default:
		s.logger.Warn("Ignoring unknown control message", zap.String("type", string(msg.Type)))
	}
}

// Close stops the session and blocks until it is closed. It is safe to call more than once.
func (s *Session) Close() {
	s.shutdown()
	<-s.done
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		go s.teardown()
	})
}

// teardown stops the driver, drains the relay and releases the queues.
// Every wait is bounded by the shutdown timeout.
func (s *Session) teardown() {
	s.setState(entities.SessionStateStopping)
	s.audio.Shutdown()

	if !s.wait(s.driverDone) {
		s.logger.Warn("Recognition driver did not stop in time, cancelling stream")
		s.cancelDriver()
		if !s.wait(s.driverDone) {
			s.logger.Error("Recognition driver did not exit after cancellation")
		}
	}

	s.results.Close()
	if !s.wait(s.relayDone) {
		s.logger.Warn("Result relay did not drain in time, discarding pending events",
			zap.Int("pending", s.results.Len()))
		s.cancelRelay()
		s.wait(s.relayDone)
	}

	s.sendMu.Lock()
	s.sendClosed = true
	s.sendMu.Unlock()

	s.setState(entities.SessionStateClosed)
	s.cancelDriver()
	s.cancelRelay()

	duration := s.now().Sub(s.entity.CreatedAt)
	s.metrics.SessionsActive.Dec()
	s.metrics.SessionDuration.Observe(duration.Seconds())
	s.logger.Info("Session closed", zap.Duration("duration", duration))

	close(s.done)
}

// fail closes the session right after an error event reached the client
func (s *Session) fail() {
	s.sendMu.Lock()
	s.sendClosed = true
	s.sendMu.Unlock()

	s.setState(entities.SessionStateClosed)
	s.audio.Shutdown()
	s.shutdown()
}

// writeFailed treats a broken connection as an implicit stop
func (s *Session) writeFailed(err error) {
	if !errors.Is(err, ErrSessionClosed) {
		s.logger.Debug("Failed to write to client, closing session", zap.Error(err))
	}
	s.shutdown()
}

// providerFinished closes the session when the provider ended the stream on its own
func (s *Session) providerFinished() {
	if s.State() != entities.SessionStateActive {
		return
	}
	s.logger.Info("Recognition stream ended by provider, closing session")
	s.shutdown()
}

func (s *Session) send(v any) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.sendClosed {
		return ErrSessionClosed
	}
	return s.sender.Send(v)
}

func (s *Session) setState(to entities.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entity.CanTransition(to) {
		_ = s.entity.Transition(to)
	}
}

func (s *Session) wait(ch <-chan struct{}) bool {
	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}
