package transcription

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
	"github.com/GPS-Demos/suny-ther-assist/internal/metrics"
)

// ErrSessionClosed is returned when a session no longer accepts work
var ErrSessionClosed = errors.New("session is closed")

// driver runs the blocking streaming recognition call for one session.
// It pulls audio from the audio queue and pushes transcript events to the results queue.
type driver struct {
	recognizer   repositories.SpeechRecognizer
	config       repositories.RecognitionConfig
	audio        *AudioQueue
	results      *Queue[entities.TranscriptEvent]
	pollInterval time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	chunksSent int
}

// run blocks until the recognition stream ends. A provider failure is pushed
// as a single error event and returned.
func (d *driver) run(ctx context.Context) error {
	d.logger.Debug("Starting streaming recognition")

	err := d.recognizer.StreamingRecognize(ctx, d.config, d, d.handleResponse)
	if err == nil || isCancellation(ctx, err) {
		d.logger.Debug("Streaming recognition finished", zap.Int("chunksSent", d.chunksSent))
		return nil
	}

	d.metrics.ProviderErrors.Inc()
	d.metrics.TranscriptEvents.WithLabelValues(string(entities.EventError)).Inc()
	d.logger.Error("Streaming recognition failed", zap.Int("chunksSent", d.chunksSent), zap.Error(err))

	if pushErr := d.results.Push(entities.NewErrorEvent(err, d.now())); pushErr != nil {
		d.logger.Warn("Dropping provider error, session already closed", zap.Error(pushErr))
	}
	return err
}

// Next implements repositories.AudioSource
func (d *driver) Next(ctx context.Context) ([]byte, error) {
	for {
		frame, err := d.audio.Pop(ctx, d.pollInterval)
		if errors.Is(err, ErrPopTimeout) {
			continue
		}
		if err != nil {
			return nil, err
		}

		switch f := frame.(type) {
		case AudioData:
			d.chunksSent++
			return f.Chunk.Data, nil
		case EndOfStream:
			return nil, io.EOF
		}
	}
}

func (d *driver) handleResponse(resp *repositories.RecognitionResponse) error {
	for _, ev := range translateResponse(resp, d.now()) {
		if err := d.results.Push(ev); err != nil {
			return ErrSessionClosed
		}
		d.metrics.TranscriptEvents.WithLabelValues(string(ev.Kind)).Inc()
	}
	return nil
}

// isCancellation reports whether err was caused by our own teardown rather than the provider
func isCancellation(ctx context.Context, err error) bool {
	if errors.Is(err, ErrSessionClosed) || errors.Is(err, context.Canceled) {
		return true
	}
	if status.Code(err) == codes.Canceled {
		return true
	}
	return ctx.Err() != nil
}
