// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"payables/internal/core"
	"payables/internal/objectstore"
	"payables/internal/ocr"
	"payables/internal/services"
	"payables/internal/storage"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Detail string `json:"detail"`
}

// ErrorResponse creates a standard {"detail": message} error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Detail: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "missing user")
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// StatusFor maps an error returned by the services to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrEmptyUserID):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, objectstore.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, ocr.ErrUnsupportedContentType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ocr.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrAsyncUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrDownloadUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, ocr.ErrEmptyFile),
		errors.Is(err, core.ErrInvalidSortKey),
		errors.Is(err, core.ErrInvalidFilter),
		errors.Is(err, core.ErrEmptyCategoryName),
		errors.Is(err, services.ErrConflictingStep),
		errors.Is(err, services.ErrInvalidMonth),
		errors.Is(err, ErrInvalidParam):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ErrorFor builds the response for err. Server errors hide their message.
func ErrorFor(err error) *JSONResponseBuilder {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		return InternalServerError()
	}
	return ErrorResponse(code, err.Error())
}
