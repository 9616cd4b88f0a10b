package api

import "github.com/GPS-Demos/suny-ther-assist/domain/entities"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ServiceFeatures lists what the transcription service offers
type ServiceFeatures struct {
	Streaming      bool   `json:"streaming"`
	InterimResults bool   `json:"interim_results"`
	Latency        string `json:"latency"`
}

// ServiceInfo is the response of the root endpoint
type ServiceInfo struct {
	Status    string          `json:"status"`
	Service   string          `json:"service"`
	Features  ServiceFeatures `json:"features"`
	Timestamp string          `json:"timestamp"`
}

// HealthResponse is the response of the health endpoint
type HealthResponse struct {
	Status           string `json:"status"`
	SpeechAPI        string `json:"speech_api"`
	ProjectID        string `json:"project_id"`
	StreamingEnabled bool   `json:"streaming_enabled"`
	ActiveSessions   int    `json:"active_sessions"`
	Timestamp        string `json:"timestamp"`
}

// ObjectMetadataResponse is the response of the storage metadata endpoint
type ObjectMetadataResponse struct {
	Exists bool `json:"exists"`
	*entities.ObjectAttrs
}

// StreamLine is one NDJSON line of a streaming generation
type StreamLine struct {
	Type   string         `json:"type"`
	Text   string         `json:"text,omitempty"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}
