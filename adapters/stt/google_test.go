package stt

import (
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv2/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

var (
	_ repositories.SpeechRecognizer = &GoogleRecognizer{}
	_ repositories.HealthChecker    = &GoogleRecognizer{}
)

func TestBuildConfigRequest(t *testing.T) {
	cfg := repositories.RecognitionConfig{
		LanguageCodes:        []string{"en-US"},
		Model:                "latest_long",
		InterimResults:       true,
		VoiceActivityEvents:  true,
		SpeechStartTimeout:   30 * time.Second,
		SpeechEndTimeout:     3 * time.Second,
		AutomaticPunctuation: true,
		WordTimeOffsets:      true,
		WordConfidence:       true,
		MaxAlternatives:      1,
	}

	req := buildConfigRequest("projects/p/locations/global/recognizers/_", cfg)
	if req.GetRecognizer() != "projects/p/locations/global/recognizers/_" {
		t.Errorf("Unexpected recognizer %s", req.GetRecognizer())
	}

	streaming := req.GetStreamingConfig()
	if streaming == nil {
		t.Fatal("Expected streaming config")
	}
	rc := streaming.GetConfig()
	if rc.GetAutoDecodingConfig() == nil {
		t.Error("Expected auto decoding")
	}
	if rc.GetModel() != "latest_long" || len(rc.GetLanguageCodes()) != 1 || rc.GetLanguageCodes()[0] != "en-US" {
		t.Errorf("Unexpected model or language: %s %v", rc.GetModel(), rc.GetLanguageCodes())
	}
	features := rc.GetFeatures()
	if !features.GetEnableAutomaticPunctuation() || !features.GetEnableWordTimeOffsets() || !features.GetEnableWordConfidence() {
		t.Errorf("Unexpected recognition features %v", features)
	}
	if features.GetProfanityFilter() || features.GetMaxAlternatives() != 1 {
		t.Errorf("Unexpected recognition features %v", features)
	}

	sf := streaming.GetStreamingFeatures()
	if !sf.GetInterimResults() || !sf.GetEnableVoiceActivityEvents() {
		t.Errorf("Unexpected streaming features %v", sf)
	}
	if got := sf.GetVoiceActivityTimeout().GetSpeechStartTimeout().AsDuration(); got != 30*time.Second {
		t.Errorf("Expected 30s speech start timeout, got %s", got)
	}
	if got := sf.GetVoiceActivityTimeout().GetSpeechEndTimeout().AsDuration(); got != 3*time.Second {
		t.Errorf("Expected 3s speech end timeout, got %s", got)
	}
}

func TestBuildConfigRequestWithoutVoiceActivity(t *testing.T) {
	req := buildConfigRequest("r", repositories.RecognitionConfig{SpeechEndTimeout: time.Second})
	if req.GetStreamingConfig().GetStreamingFeatures().GetVoiceActivityTimeout() != nil {
		t.Error("Voice activity timeout must not be set when voice activity events are disabled")
	}
}

func TestConvertResponse(t *testing.T) {
	resp := &speechpb.StreamingRecognizeResponse{
		SpeechEventType: speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_END,
		Results: []*speechpb.StreamingRecognitionResult{{
			IsFinal:         true,
			ResultEndOffset: durationpb.New(1500 * time.Millisecond),
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{
				Transcript: "I feel anxious",
				Confidence: 0.87,
				Words: []*speechpb.WordInfo{
					{Word: "I", StartOffset: durationpb.New(0), EndOffset: durationpb.New(200 * time.Millisecond), Confidence: 0.9, SpeakerLabel: "1"},
					{Word: "feel", EndOffset: durationpb.New(600 * time.Millisecond)},
				},
			}},
		}},
	}

	out := convertResponse(resp)
	if out.SpeechEvent != repositories.SpeechEventEnd {
		t.Errorf("Expected speech end, got %v", out.SpeechEvent)
	}
	if len(out.Results) != 1 || !out.Results[0].IsFinal {
		t.Fatalf("Unexpected results %+v", out.Results)
	}
	if out.Results[0].ResultEndOffset != 1500*time.Millisecond {
		t.Errorf("Unexpected result end offset %s", out.Results[0].ResultEndOffset)
	}

	alt := out.Results[0].Alternatives[0]
	if alt.Transcript != "I feel anxious" || len(alt.Words) != 2 {
		t.Fatalf("Unexpected alternative %+v", alt)
	}
	if alt.Words[0].SpeakerLabel != "1" || alt.Words[0].EndOffset != 200*time.Millisecond {
		t.Errorf("Unexpected first word %+v", alt.Words[0])
	}
	if alt.Words[1].StartOffset != 0 {
		t.Errorf("Missing offsets must convert to zero, got %s", alt.Words[1].StartOffset)
	}
}

func TestConvertResponseSpeechBegin(t *testing.T) {
	out := convertResponse(&speechpb.StreamingRecognizeResponse{
		SpeechEventType: speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_BEGIN,
	})
	if out.SpeechEvent != repositories.SpeechEventBegin || len(out.Results) != 0 {
		t.Errorf("Unexpected response %+v", out)
	}
}
