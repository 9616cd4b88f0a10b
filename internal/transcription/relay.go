package transcription

import (
	"context"

	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
)

// Sender writes one outbound message to the client connection
type Sender interface {
	Send(v any) error
}

// relay is the only writer to the client connection. It sends the ready
// message and then every transcript event in the order the driver produced them.
type relay struct {
	send    func(v any) error
	results *Queue[entities.TranscriptEvent]
	logger  *zap.Logger

	// onError runs after an error event was delivered
	onError func()
	// onWriteError runs when the connection can no longer be written
	onWriteError func(err error)
}

func (r *relay) run(ctx context.Context, ready *ReadyMessage) {
	if err := r.send(ready); err != nil {
		r.onWriteError(err)
		return
	}

	for {
		ev, err := r.results.Pop(ctx)
		if err != nil {
			// closed and drained, or teardown gave up waiting
			return
		}
		// Pop hands out queued items even after cancellation
		if ctx.Err() != nil {
			return
		}

		if err := r.send(NewOutboundMessage(ev)); err != nil {
			r.onWriteError(err)
			return
		}

		if ev.Kind == entities.EventError {
			r.onError()
			return
		}
	}
}
