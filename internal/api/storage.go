package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

const objectCacheControl = "public, max-age=3600"

// getObject streams a stored document addressed by ?uri=gs://bucket/path
func (h *handlers) getObject(c echo.Context) error {
	uri, errResp := parseObjectURI(c)
	if errResp != nil {
		h.countStorage("content", http.StatusBadRequest)
		return c.JSON(http.StatusBadRequest, errResp)
	}

	object, err := h.Store.Get(c.Request().Context(), uri)
	if err != nil {
		if errors.Is(err, repositories.ErrObjectNotFound) {
			h.countStorage("content", http.StatusNotFound)
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: fmt.Sprintf("File not found: %s", uri),
			})
		}

		h.Logger.Error("Failed to read object", zap.String("uri", uri.String()), zap.Error(err))
		h.countStorage("content", http.StatusInternalServerError)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "Failed to access file",
		})
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", uri.Filename()))
	header.Set(echo.HeaderContentLength, strconv.Itoa(len(object.Content)))
	header.Set("Cache-Control", objectCacheControl)

	h.countStorage("content", http.StatusOK)
	return c.Blob(http.StatusOK, object.ContentType, object.Content)
}

// getObjectMetadata reports the attributes of a stored document
func (h *handlers) getObjectMetadata(c echo.Context) error {
	uri, errResp := parseObjectURI(c)
	if errResp != nil {
		h.countStorage("metadata", http.StatusBadRequest)
		return c.JSON(http.StatusBadRequest, errResp)
	}

	attrs, err := h.Store.Stat(c.Request().Context(), uri)
	if err != nil {
		if errors.Is(err, repositories.ErrObjectNotFound) {
			h.countStorage("metadata", http.StatusNotFound)
			return c.JSON(http.StatusNotFound, ObjectMetadataResponse{Exists: false})
		}

		h.Logger.Error("Failed to stat object", zap.String("uri", uri.String()), zap.Error(err))
		h.countStorage("metadata", http.StatusInternalServerError)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "Failed to read file metadata",
		})
	}

	h.countStorage("metadata", http.StatusOK)
	return c.JSON(http.StatusOK, ObjectMetadataResponse{Exists: true, ObjectAttrs: attrs})
}

func parseObjectURI(c echo.Context) (entities.ObjectURI, *ErrorResponse) {
	raw := c.QueryParam("uri")
	if raw == "" {
		return entities.ObjectURI{}, &ErrorResponse{
			Error:   "missing_uri",
			Message: "No URI provided",
		}
	}

	uri, err := entities.ParseObjectURI(raw)
	if err != nil {
		return entities.ObjectURI{}, &ErrorResponse{
			Error:   "invalid_uri",
			Message: "Invalid GCS URI format, expected gs://bucket/path",
		}
	}
	return uri, nil
}

func (h *handlers) countStorage(endpoint string, code int) {
	if h.Metrics != nil {
		h.Metrics.StorageRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	}
}
