package transcription

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/internal/metrics"
)

// ErrPopTimeout is returned by AudioQueue.Pop when no frame arrived in time
var ErrPopTimeout = errors.New("audio queue pop timed out")

// AudioFrame is either AudioData or EndOfStream
type AudioFrame interface {
	audioFrame()
}

// AudioData carries one chunk of client audio
type AudioData struct {
	Chunk entities.AudioChunk
}

// EndOfStream tells the recognition driver to stop pulling audio
type EndOfStream struct{}

func (AudioData) audioFrame()   {}
func (EndOfStream) audioFrame() {}

// AudioQueue hands audio chunks from the connection to the recognition driver.
// When full, new chunks are dropped and logged rather than blocking the receive path.
type AudioQueue struct {
	queue   *Queue[AudioFrame]
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewAudioQueue creates an audio queue holding at most maxDepth chunks, zero means unbounded
func NewAudioQueue(maxDepth int, logger *zap.Logger, m *metrics.Metrics) *AudioQueue {
	return &AudioQueue{
		queue:   NewQueue[AudioFrame](maxDepth),
		logger:  logger,
		metrics: m,
	}
}

// Push enqueues a chunk and reports whether it was accepted
func (q *AudioQueue) Push(chunk entities.AudioChunk) bool {
	err := q.queue.Push(AudioData{Chunk: chunk})
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrQueueFull):
		q.metrics.AudioChunksDropped.Inc()
		q.logger.Warn("Audio queue is full, dropping audio chunk",
			zap.Int("depth", q.queue.Len()),
			zap.Int("size", len(chunk.Data)))
	default:
		q.logger.Debug("Audio queue is closed, ignoring audio chunk",
			zap.Int("size", len(chunk.Data)))
	}
	return false
}

// Shutdown pushes the end of stream marker and closes the queue
func (q *AudioQueue) Shutdown() {
	q.queue.CloseWith(EndOfStream{})
}

// Len returns the number of queued frames
func (q *AudioQueue) Len() int {
	return q.queue.Len()
}

// Pop waits up to timeout for the next frame. Once the queue is shut down and
// drained it keeps returning EndOfStream.
func (q *AudioQueue) Pop(ctx context.Context, timeout time.Duration) (AudioFrame, error) {
	popCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	frame, err := q.queue.Pop(popCtx)
	switch {
	case err == nil:
		return frame, nil
	case errors.Is(err, ErrQueueClosed):
		return EndOfStream{}, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, ErrPopTimeout
	}
}
