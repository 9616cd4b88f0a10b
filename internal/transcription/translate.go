package transcription

import (
	"strconv"
	"time"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

// translateResponse converts one provider response into transcript events:
// one per result and alternative, followed by the voice activity marker if any.
func translateResponse(resp *repositories.RecognitionResponse, now time.Time) []entities.TranscriptEvent {
	var events []entities.TranscriptEvent

	for _, result := range resp.Results {
		for _, alt := range result.Alternatives {
			ev := entities.TranscriptEvent{
				Kind:            entities.EventPartial,
				Text:            alt.Transcript,
				Confidence:      confidence(alt.Confidence),
				ResultEndOffset: result.ResultEndOffset.Seconds(),
				EmittedAt:       now,
			}
			if result.IsFinal {
				ev.Kind = entities.EventFinal
				ev.Words = translateWords(alt.Words)
			}
			events = append(events, ev)
		}
	}

	switch resp.SpeechEvent {
	case repositories.SpeechEventBegin:
		events = append(events, entities.TranscriptEvent{Kind: entities.EventVoiceStart, EmittedAt: now})
	case repositories.SpeechEventEnd:
		events = append(events, entities.TranscriptEvent{Kind: entities.EventVoiceEnd, EmittedAt: now})
	}

	return events
}

func translateWords(words []repositories.WordInfo) []entities.WordTiming {
	timings := make([]entities.WordTiming, 0, len(words))
	for _, w := range words {
		timings = append(timings, entities.WordTiming{
			Word:        w.Word,
			StartOffset: w.StartOffset.Seconds(),
			EndOffset:   w.EndOffset.Seconds(),
			Confidence:  confidence(w.Confidence),
			Speaker:     parseSpeaker(w.SpeakerLabel),
		})
	}
	return timings
}

// parseSpeaker returns the numeric speaker label, 0 when absent or not numeric
func parseSpeaker(label string) int {
	n, err := strconv.Atoi(label)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// confidence widens a provider float32 score without float32 rounding noise
func confidence(c float32) float64 {
	f, err := strconv.ParseFloat(strconv.FormatFloat(float64(c), 'g', -1, 32), 64)
	if err != nil {
		f = float64(c)
	}
	return entities.ClampConfidence(f)
}
