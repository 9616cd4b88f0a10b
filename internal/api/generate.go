package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
	"github.com/GPS-Demos/suny-ther-assist/usecase"
)

// NDJSON line types of a streaming generation
const (
	streamLineChunk  = "chunk"
	streamLineResult = "result"
	streamLineError  = "error"
)

// generate runs one prompt through the generative model, streaming the reply
// as NDJSON when requested
func (h *handlers) generate(c echo.Context) error {
	var req usecase.GenerationRequest
	if err := c.Bind(&req); err != nil {
		h.Logger.Error("Failed to bind generate request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Prompt is required",
		})
	}

	if req.Stream {
		return h.generateStream(c, req)
	}

	result, err := h.Generation.Analyze(c.Request().Context(), req)
	if err != nil {
		status, resp := generationError(err)
		h.Logger.Error("Generation failed", zap.Error(err))
		h.countGenerate("single", status)
		return c.JSON(status, resp)
	}

	if result.Failed() {
		h.countGenerate("single", http.StatusInternalServerError)
		return c.JSON(http.StatusInternalServerError, result)
	}

	h.countGenerate("single", http.StatusOK)
	return c.JSON(http.StatusOK, result)
}

func (h *handlers) generateStream(c echo.Context, req usecase.GenerationRequest) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(resp)
	writeLine := func(line StreamLine) error {
		if err := encoder.Encode(line); err != nil {
			return err
		}
		resp.Flush()
		return nil
	}

	result, err := h.Generation.AnalyzeStream(c.Request().Context(), req, func(chunk string) error {
		return writeLine(StreamLine{Type: streamLineChunk, Text: chunk})
	})
	if err != nil {
		h.Logger.Error("Streaming generation failed", zap.Error(err))
		h.countGenerate("stream", http.StatusInternalServerError)
		return writeLine(StreamLine{Type: streamLineError, Error: "Analysis failed: " + err.Error()})
	}

	status := http.StatusOK
	if result.Failed() {
		status = http.StatusInternalServerError
	}
	h.countGenerate("stream", status)
	return writeLine(StreamLine{Type: streamLineResult, Result: result})
}

func generationError(err error) (int, ErrorResponse) {
	if errors.Is(err, repositories.ErrInvalidOptions) {
		return http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_options",
			Message: err.Error(),
		}
	}
	return http.StatusInternalServerError, ErrorResponse{
		Error:   "generation_failed",
		Message: err.Error(),
	}
}

func (h *handlers) countGenerate(mode string, status int) {
	if h.Metrics == nil {
		return
	}
	label := "ok"
	if status >= 400 {
		label = "error"
	}
	h.Metrics.GenerateRequests.WithLabelValues(mode, label).Inc()
}
