package stt

import (
	"context"
	"errors"
	"fmt"
	"io"

	speech "cloud.google.com/go/speech/apiv2"
	"cloud.google.com/go/speech/apiv2/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

// GoogleRecognizer implements SpeechRecognizer with Google Cloud Speech-to-Text v2
type GoogleRecognizer struct {
	client   *speech.Client
	project  string
	location string
	logger   *zap.Logger
}

// NewGoogleRecognizer creates a Speech-to-Text client. Non-global locations use the regional endpoint.
func NewGoogleRecognizer(ctx context.Context, project, location string, logger *zap.Logger) (*GoogleRecognizer, error) {
	if project == "" {
		return nil, errors.New("google cloud project is required")
	}
	if location == "" {
		location = "global"
	}

	var opts []option.ClientOption
	if location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:443", location)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return &GoogleRecognizer{
		client:   client,
		project:  project,
		location: location,
		logger:   logger,
	}, nil
}

// StreamingRecognize implements repositories.SpeechRecognizer
func (g *GoogleRecognizer) StreamingRecognize(ctx context.Context, cfg repositories.RecognitionConfig, source repositories.AudioSource, onResponse func(*repositories.RecognitionResponse) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := g.client.StreamingRecognize(ctx)
	if err != nil {
		return fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	if err := stream.Send(buildConfigRequest(g.recognizerName(), cfg)); err != nil {
		return fmt.Errorf("failed to send streaming config: %w", err)
	}
	g.logger.Debug("Speech stream opened",
		zap.String("model", cfg.Model),
		zap.Strings("languageCodes", cfg.LanguageCodes))

	pumpErr := make(chan error, 1)
	go func() {
		pumpErr <- sendAudio(ctx, stream, source)
	}()

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to receive response: %w", err)
		}

		if err := onResponse(convertResponse(resp)); err != nil {
			return err
		}
	}

	// The provider may end the stream before we run out of audio.
	cancel()
	g.logger.Debug("Speech stream ended by provider")
	if err := <-pumpErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Ping lists recognizers to verify credentials and connectivity
func (g *GoogleRecognizer) Ping(ctx context.Context) error {
	it := g.client.ListRecognizers(ctx, &speechpb.ListRecognizersRequest{
		Parent:   fmt.Sprintf("projects/%s/locations/%s", g.project, g.location),
		PageSize: 1,
	})
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return err
	}
	return nil
}

// Close releases the underlying gRPC connection
func (g *GoogleRecognizer) Close() error {
	return g.client.Close()
}

func (g *GoogleRecognizer) recognizerName() string {
	return fmt.Sprintf("projects/%s/locations/%s/recognizers/_", g.project, g.location)
}

// sendAudio forwards audio until the source is exhausted, then half-closes the stream
func sendAudio(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient, source repositories.AudioSource) error {
	for {
		data, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return stream.CloseSend()
		}
		if err != nil {
			return err
		}

		if err := stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{
				Audio: data,
			},
		}); err != nil {
			if err == io.EOF {
				// stream already ended, Recv reports why
				return nil
			}
			return fmt.Errorf("failed to send audio data: %w", err)
		}
	}
}

// buildConfigRequest creates the first request of a stream
func buildConfigRequest(recognizer string, cfg repositories.RecognitionConfig) *speechpb.StreamingRecognizeRequest {
	streamingFeatures := &speechpb.StreamingRecognitionFeatures{
		InterimResults:            cfg.InterimResults,
		EnableVoiceActivityEvents: cfg.VoiceActivityEvents,
	}
	if cfg.VoiceActivityEvents && (cfg.SpeechStartTimeout > 0 || cfg.SpeechEndTimeout > 0) {
		timeout := &speechpb.StreamingRecognitionFeatures_VoiceActivityTimeout{}
		if cfg.SpeechStartTimeout > 0 {
			timeout.SpeechStartTimeout = durationpb.New(cfg.SpeechStartTimeout)
		}
		if cfg.SpeechEndTimeout > 0 {
			timeout.SpeechEndTimeout = durationpb.New(cfg.SpeechEndTimeout)
		}
		streamingFeatures.VoiceActivityTimeout = timeout
	}

	return &speechpb.StreamingRecognizeRequest{
		Recognizer: recognizer,
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
						AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
					},
					Model:         cfg.Model,
					LanguageCodes: cfg.LanguageCodes,
					Features: &speechpb.RecognitionFeatures{
						EnableAutomaticPunctuation: cfg.AutomaticPunctuation,
						ProfanityFilter:            cfg.ProfanityFilter,
						EnableWordTimeOffsets:      cfg.WordTimeOffsets,
						EnableWordConfidence:       cfg.WordConfidence,
						MaxAlternatives:            cfg.MaxAlternatives,
					},
				},
				StreamingFeatures: streamingFeatures,
			},
		},
	}
}

// convertResponse maps a provider response to the domain shape
func convertResponse(resp *speechpb.StreamingRecognizeResponse) *repositories.RecognitionResponse {
	out := &repositories.RecognitionResponse{}

	switch resp.GetSpeechEventType() {
	case speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_BEGIN:
		out.SpeechEvent = repositories.SpeechEventBegin
	case speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_END:
		out.SpeechEvent = repositories.SpeechEventEnd
	}

	for _, result := range resp.GetResults() {
		r := repositories.RecognitionResult{
			IsFinal:         result.GetIsFinal(),
			ResultEndOffset: result.GetResultEndOffset().AsDuration(),
		}
		for _, alt := range result.GetAlternatives() {
			a := repositories.Alternative{
				Transcript: alt.GetTranscript(),
				Confidence: alt.GetConfidence(),
			}
			for _, w := range alt.GetWords() {
				a.Words = append(a.Words, repositories.WordInfo{
					Word:         w.GetWord(),
					StartOffset:  w.GetStartOffset().AsDuration(),
					EndOffset:    w.GetEndOffset().AsDuration(),
					Confidence:   w.GetConfidence(),
					SpeakerLabel: w.GetSpeakerLabel(),
				})
			}
			r.Alternatives = append(r.Alternatives, a)
		}
		out.Results = append(out.Results, r)
	}

	return out
}
